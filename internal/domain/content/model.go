package content

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
)

// Lang identifies a supported locale. Values are canonical BCP 47 tags.
type Lang string

// Slug identifies a page within a language.
type Slug string

// Format describes how a page body is encoded.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Params is the identity of a statically generated page.
type Params struct {
	Lang Lang `json:"lang"`
	Slug Slug `json:"slug"`
}

// String returns the path form "lang/slug".
func (p Params) String() string {
	return string(p.Lang) + "/" + string(p.Slug)
}

// Less orders params by language, then slug.
func (p Params) Less(other Params) bool {
	if p.Lang != other.Lang {
		return p.Lang < other.Lang
	}
	return p.Slug < other.Slug
}

// Page is the content read for a single identity.
type Page struct {
	Params
	Title       string
	Description string
	Body        string
	Format      Format
}

// ParseLang validates raw as a language tag and returns its canonical form.
func ParseLang(raw string) (Lang, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", eris.New("language is required")
	}

	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", eris.Wrapf(err, "invalid language tag: %s", trimmed)
	}
	if tag == language.Und {
		return "", eris.Errorf("undetermined language tag: %s", trimmed)
	}

	return Lang(tag.String()), nil
}

// ParseLangs parses a list of language tags, dropping duplicates while keeping order.
func ParseLangs(raw []string) ([]Lang, error) {
	langs := make([]Lang, 0, len(raw))
	seen := make(map[Lang]struct{}, len(raw))

	for _, value := range raw {
		lang, err := ParseLang(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[lang]; ok {
			continue
		}
		seen[lang] = struct{}{}
		langs = append(langs, lang)
	}

	return langs, nil
}

// ParseSlug validates raw as a page slug.
func ParseSlug(raw string) (Slug, error) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		return "", eris.New("slug is required")
	case trimmed == "." || trimmed == "..":
		return "", eris.Errorf("invalid slug: %s", trimmed)
	case strings.ContainsAny(trimmed, "/\\"):
		return "", eris.Errorf("slug %s contains a path separator", trimmed)
	case strings.HasPrefix(trimmed, "_") || strings.HasPrefix(trimmed, "."):
		return "", eris.Errorf("slug %s is reserved", trimmed)
	}

	return Slug(trimmed), nil
}

// ParseParams validates a raw language and slug pair.
func ParseParams(rawLang, rawSlug string) (Params, error) {
	lang, err := ParseLang(rawLang)
	if err != nil {
		return Params{}, err
	}

	slug, err := ParseSlug(rawSlug)
	if err != nil {
		return Params{}, err
	}

	return Params{Lang: lang, Slug: slug}, nil
}
