package filesystem

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"handbook/app/internal/domain/content"
)

// htmlTitle returns the text of <title>, falling back to the first <h1>.
func htmlTitle(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	if title := firstElementText(doc, atom.Title); title != "" {
		return title
	}
	return firstElementText(doc, atom.H1)
}

func firstElementText(node *html.Node, target atom.Atom) string {
	if node.Type == html.ElementNode && node.DataAtom == target {
		return strings.Join(strings.Fields(textContent(node)), " ")
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if text := firstElementText(child, target); text != "" {
			return text
		}
	}
	return ""
}

func textContent(node *html.Node) string {
	if node.Type == html.TextNode {
		return node.Data
	}

	var builder strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		builder.WriteString(textContent(child))
	}
	return builder.String()
}

// markdownTitle takes the first ATX level-one heading as the title. When the
// heading opens the document it is removed from the body so the layout does
// not repeat it.
func markdownTitle(body string) (string, string) {
	lines := strings.Split(body, "\n")
	inFence := false
	leading := true

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			leading = false
			continue
		}
		if inFence {
			continue
		}
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "# ") {
			title := atxHeadingText(trimmed[2:])
			if title == "" {
				leading = false
				continue
			}
			if leading {
				rest := strings.Join(lines[i+1:], "\n")
				return title, strings.TrimLeft(rest, "\r\n")
			}
			return title, body
		}
		leading = false
	}

	return "", body
}

// atxHeadingText strips an optional closing sequence of '#' characters. The
// sequence only closes the heading when a space or tab precedes it, so
// "Learn C#" keeps its trailing '#'.
func atxHeadingText(raw string) string {
	text := strings.TrimRight(raw, " \t")
	stripped := strings.TrimRight(text, "#")

	switch {
	case strings.TrimSpace(stripped) == "":
		return ""
	case strings.HasSuffix(stripped, " ") || strings.HasSuffix(stripped, "\t"):
		text = stripped
	}

	return strings.TrimSpace(text)
}

// humanize turns "getting-started" into "Getting started".
func humanize(slug content.Slug) string {
	words := strings.FieldsFunc(string(slug), func(r rune) bool {
		return r == '-' || r == '_'
	})
	if len(words) == 0 {
		return string(slug)
	}

	text := strings.Join(words, " ")
	first, size := utf8.DecodeRuneInString(text)
	return string(unicode.ToUpper(first)) + text[size:]
}
