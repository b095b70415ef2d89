package site

import (
	"context"

	"github.com/rotisserie/eris"

	"handbook/app/internal/domain/content"
)

// CatalogEntry pairs an enumerated identity with its title.
type CatalogEntry struct {
	Params content.Params
	Title  string
}

// Catalog lists every enumerated page with its metadata title, in enumeration
// order. The store is enumerated once for the whole listing.
func Catalog(ctx context.Context, svc Service) ([]CatalogEntry, error) {
	enum, err := svc.Enumerate(ctx)
	if err != nil {
		return nil, err
	}

	params := enum.Params()
	entries := make([]CatalogEntry, 0, len(params))
	for _, p := range params {
		meta, err := enum.Metadata(ctx, p)
		if err != nil {
			return nil, eris.Wrapf(err, "loading metadata for %s", p)
		}
		entries = append(entries, CatalogEntry{Params: p, Title: meta.Title})
	}

	return entries, nil
}
