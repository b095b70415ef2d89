package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"handbook/app/internal/domain/content"
)

func TestParamsCommandPrintsJSON(t *testing.T) {
	setupContent(t)

	out := execute(t, "params")

	var params []content.Params
	if err := json.Unmarshal([]byte(out), &params); err != nil {
		t.Fatalf("decoding params output %q: %v", out, err)
	}
	want := []content.Params{{Lang: "en", Slug: "intro"}, {Lang: "en", Slug: "page"}}
	if len(params) != len(want) || params[0] != want[0] || params[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, params)
	}
}

func TestBuildCommandHonoursOutputFlag(t *testing.T) {
	setupContent(t)
	out := filepath.Join(t.TempDir(), "site")

	stdout := execute(t, "build", "--output", out)

	if !strings.Contains(stdout, "built 2 pages") {
		t.Fatalf("unexpected build output %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(out, "en", "intro", "index.html")); err != nil {
		t.Fatalf("expected rendered page: %v", err)
	}
}

func TestImportThenListParamsFromDatabase(t *testing.T) {
	setupContent(t)

	stdout := execute(t, "import")
	if !strings.Contains(stdout, "imported 2 pages") {
		t.Fatalf("unexpected import output %q", stdout)
	}

	t.Setenv("CONTENT_SOURCE", "database")
	out := execute(t, "params")
	if !strings.Contains(out, `"slug": "intro"`) {
		t.Fatalf("expected database params to include intro, got %q", out)
	}
}

// helpers

func setupContent(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "content", "en", "intro.md"), "---\ntitle: Introduction\n---\nSee [old](/old/page).\n")
	writeFile(t, filepath.Join(root, "content", "en", "page.md"), "# Page\n\nTarget.\n")

	t.Setenv("CONTENT_DIR", filepath.Join(root, "content"))
	t.Setenv("CONTENT_SOURCE", "filesystem")
	t.Setenv("SITE_LANGUAGES", "en")
	t.Setenv("OUTPUT_DIR", filepath.Join(root, "dist"))
	t.Setenv("DB_PATH", filepath.Join(root, "data", "handbook.db"))
	t.Setenv("LEGACY_LINKS_PATH", "")
	t.Setenv("SENTRY_DSN", "")
	t.Setenv("LOG_LEVEL", "error")

	return root
}

func execute(t *testing.T, args ...string) string {
	t.Helper()

	rt := newRuntime()
	cmd := newRootCommand(rt)

	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	rt.flush()
	if err != nil {
		t.Fatalf("handbook %s failed: %v", strings.Join(args, " "), err)
	}

	return stdout.String()
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
