package markdown

import (
	"bytes"
	"context"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"handbook/app/internal/domain/content"
	"handbook/app/internal/domain/site"
)

// Options tunes the goldmark engine.
type Options struct {
	// HardWraps renders soft line breaks as <br>.
	HardWraps bool
	// SafeMode drops raw HTML embedded in Markdown instead of passing it through.
	SafeMode bool
}

// GoldmarkRenderer renders Markdown bodies with goldmark. Raw HTML embedded in
// the Markdown is passed through unless SafeMode is set.
type GoldmarkRenderer struct {
	engine goldmark.Markdown
}

var _ site.Renderer = (*GoldmarkRenderer)(nil)

// NewRenderer builds a renderer with GFM extensions and automatic heading IDs.
func NewRenderer(opts Options) *GoldmarkRenderer {
	htmlOptions := []renderer.Option{html.WithXHTML()}
	if opts.HardWraps {
		htmlOptions = append(htmlOptions, html.WithHardWraps())
	}
	if !opts.SafeMode {
		htmlOptions = append(htmlOptions, html.WithUnsafe())
	}

	engine := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(htmlOptions...),
	)

	return &GoldmarkRenderer{engine: engine}
}

// Render converts body to HTML. HTML bodies are returned unchanged.
func (r *GoldmarkRenderer) Render(ctx context.Context, body string, format content.Format) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if format == content.FormatHTML {
		return body, nil
	}

	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(body), &buf); err != nil {
		return "", eris.Wrap(err, "converting markdown")
	}

	return buf.String(), nil
}
