package pages

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"handbook/app/internal/domain/content"
)

// ImportFrom copies every page enumerated by src into the repository, replacing
// stored pages with the same identity. It stops at the first failure and returns
// the number of pages written before it.
func (r *Repository) ImportFrom(ctx context.Context, src content.Store) (int, error) {
	if src == nil {
		return 0, eris.New("source store is required")
	}

	params, err := src.ListStaticParams(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "enumerating source pages")
	}

	imported := 0
	for _, p := range params {
		page, err := src.ReadPage(ctx, p.Lang, p.Slug)
		if err != nil {
			return imported, eris.Wrapf(err, "reading source page %s", p)
		}
		if err := r.Upsert(ctx, page, false); err != nil {
			return imported, err
		}
		imported++

		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"lang": string(p.Lang), "slug": string(p.Slug)}).Debug("imported page")
		}
	}

	return imported, nil
}
