package links

import (
	"strings"

	"golang.org/x/net/html"

	"handbook/app/internal/domain/content"
)

// ExtractLinks returns the href of every anchor in the rendered HTML, in document order.
func ExtractLinks(rendered string) []string {
	tokenizer := html.NewTokenizer(strings.NewReader(rendered))
	var hrefs []string

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return hrefs
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			for _, attr := range token.Attr {
				if strings.EqualFold(attr.Key, "href") && strings.TrimSpace(attr.Val) != "" {
					hrefs = append(hrefs, strings.TrimSpace(attr.Val))
				}
			}
		}
	}
}

// ParseInternalLink interprets a site-absolute href of the form /lang/slug.
func ParseInternalLink(href string) (content.Params, bool) {
	if !strings.HasPrefix(href, "/") || strings.HasPrefix(href, "//") {
		return content.Params{}, false
	}

	path, _ := splitSuffix(href)
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) != 2 {
		return content.Params{}, false
	}

	params, err := content.ParseParams(segments[0], segments[1])
	if err != nil {
		return content.Params{}, false
	}

	return params, true
}
