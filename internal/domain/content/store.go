package content

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
)

// ErrPageNotFound indicates the store has no page for the requested identity.
var ErrPageNotFound = eris.New("page not found")

// Store enumerates and reads prerendered pages.
type Store interface {
	ListStaticParams(ctx context.Context) ([]Params, error)
	ReadPage(ctx context.Context, lang Lang, slug Slug) (*Page, error)
}

// LinkRewriter maps legacy link targets in a page body to their current form.
type LinkRewriter interface {
	RewriteLinks(body string, lang Lang) string
}

// SortParams orders params in place by language, then slug.
func SortParams(params []Params) {
	sort.Slice(params, func(i, j int) bool {
		return params[i].Less(params[j])
	})
}

// LangSet is a lookup table of configured languages.
type LangSet map[Lang]struct{}

// NewLangSet builds a LangSet from langs.
func NewLangSet(langs []Lang) LangSet {
	set := make(LangSet, len(langs))
	for _, lang := range langs {
		set[lang] = struct{}{}
	}
	return set
}

// Contains reports whether lang is configured. An empty set allows every language.
func (s LangSet) Contains(lang Lang) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[lang]
	return ok
}
