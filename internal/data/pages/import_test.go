package pages

import (
	"context"
	"testing"
	"testing/fstest"

	"handbook/app/internal/domain/content"
	"handbook/app/internal/infrastructure/filesystem"
)

func TestImportFromCopiesPublishedPages(t *testing.T) {
	t.Parallel()

	src := filesystem.NewStoreFS(fstest.MapFS{
		"en/intro.md":   {Data: []byte("---\ntitle: Introduction\n---\nSee [old](/old/page).\n")},
		"en/about.html": {Data: []byte("<h1>About us</h1><p>Hi</p>")},
		"en/wip.md":     {Data: []byte("---\ntitle: WIP\ndraft: true\n---\nlater\n")},
	}, []content.Lang{"en"}, nil)

	repo := setupRepository(t, []content.Lang{"en"})
	ctx := context.Background()

	imported, err := repo.ImportFrom(ctx, src)
	if err != nil {
		t.Fatalf("ImportFrom returned error: %v", err)
	}
	if imported != 2 {
		t.Fatalf("expected 2 imported pages, got %d", imported)
	}

	params, err := repo.ListStaticParams(ctx)
	if err != nil {
		t.Fatalf("ListStaticParams returned error: %v", err)
	}
	if len(params) != 2 || params[0].Slug != "about" || params[1].Slug != "intro" {
		t.Fatalf("unexpected params after import: %v", params)
	}

	about, err := repo.ReadPage(ctx, "en", "about")
	if err != nil {
		t.Fatalf("ReadPage returned error: %v", err)
	}
	if about.Format != content.FormatHTML || about.Title != "About us" {
		t.Fatalf("unexpected imported page %#v", about)
	}

	if again, err := repo.ImportFrom(ctx, src); err != nil || again != 2 {
		t.Fatalf("expected re-import to upsert 2 pages, got %d, %v", again, err)
	}
	if count, err := repo.Count(ctx); err != nil || count != 2 {
		t.Fatalf("expected 2 stored pages after re-import, got %d, %v", count, err)
	}
}

func TestImportFromRequiresSource(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t, nil)

	if _, err := repo.ImportFrom(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil source")
	}
}
