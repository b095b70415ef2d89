package static

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/a-h/templ"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"handbook/app/internal/domain/content"
	"handbook/app/internal/domain/site"
	"handbook/app/internal/infrastructure/links"
	"handbook/app/internal/presentation/http/templates"
)

const (
	pageFileName     = "index.html"
	manifestFileName = "static-params.json"
)

// Options configures a static build.
type Options struct {
	Site        site.Service
	OutputDir   string
	SiteName    string
	DefaultLang string
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
}

// BrokenLink is an internal link whose target is not an enumerated page.
type BrokenLink struct {
	From content.Params `json:"from"`
	Href string         `json:"href"`
}

// BuildReport summarises a completed build.
type BuildReport struct {
	Pages       int
	BrokenLinks []BrokenLink
	Failed      []content.Params
}

// Builder writes every enumerated page to disk.
type Builder struct {
	site        site.Service
	outputDir   string
	siteName    string
	defaultLang string
	logger      *logrus.Logger
	sentry      *sentry.Hub
}

// NewBuilder validates options and returns a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Site == nil {
		return nil, eris.New("site service is required")
	}
	if opts.OutputDir == "" {
		return nil, eris.New("output directory is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Builder{
		site:        opts.Site,
		outputDir:   opts.OutputDir,
		siteName:    opts.SiteName,
		defaultLang: opts.DefaultLang,
		logger:      logger,
		sentry:      opts.SentryHub,
	}, nil
}

// OutputDir is the directory pages are written to.
func (b *Builder) OutputDir() string {
	return b.outputDir
}

// Build renders every enumerated page, then writes the index and the params manifest.
// A failing page does not stop the others; the returned error lists every failure.
func (b *Builder) Build(ctx context.Context) (*BuildReport, error) {
	enum, err := b.site.Enumerate(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "enumerating pages")
	}
	params := enum.Params()

	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "creating output directory: %s", b.outputDir)
	}

	known := make(map[content.Params]struct{}, len(params))
	for _, p := range params {
		known[p] = struct{}{}
	}

	report := &BuildReport{}
	entries := make([]site.CatalogEntry, 0, len(params))
	var failures []error

	for _, p := range params {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		page, err := b.buildPage(ctx, enum, p)
		if err != nil {
			report.Failed = append(report.Failed, p)
			failures = append(failures, err)
			b.recordError(err, p)
			continue
		}

		report.Pages++
		entries = append(entries, site.CatalogEntry{Params: p, Title: page.Title})
		report.BrokenLinks = append(report.BrokenLinks, b.checkLinks(p, page.BodyHTML, known)...)
	}

	index := templates.IndexDocument(templates.NewIndexData(b.siteName, b.defaultLang, entries))
	if err := b.writeComponent(ctx, filepath.Join(b.outputDir, pageFileName), index); err != nil {
		return report, eris.Wrap(err, "writing index")
	}

	if err := b.writeManifest(params); err != nil {
		return report, err
	}

	b.logger.WithFields(logrus.Fields{
		"pages":        report.Pages,
		"failed":       len(report.Failed),
		"broken_links": len(report.BrokenLinks),
		"output":       b.outputDir,
	}).Info("static build finished")

	if len(failures) > 0 {
		return report, eris.Wrapf(errors.Join(failures...), "%d of %d pages failed", len(failures), len(params))
	}

	return report, nil
}

func (b *Builder) buildPage(ctx context.Context, enum site.Enumeration, p content.Params) (*site.RenderedPage, error) {
	page, err := enum.RenderPage(ctx, p)
	if err != nil {
		return nil, err
	}

	doc := templates.PageDocument(templates.PageDocumentData{
		SiteName:    b.siteName,
		Lang:        string(p.Lang),
		Title:       page.Title,
		Description: page.Description,
		BodyHTML:    page.BodyHTML,
	})

	path := filepath.Join(b.outputDir, string(p.Lang), string(p.Slug), pageFileName)
	if err := b.writeComponent(ctx, path, doc); err != nil {
		return nil, eris.Wrapf(err, "writing %s", p)
	}

	return page, nil
}

// checkLinks reports /lang/slug links in body that point outside the enumerated set.
func (b *Builder) checkLinks(from content.Params, body string, known map[content.Params]struct{}) []BrokenLink {
	var broken []BrokenLink
	for _, href := range links.ExtractLinks(body) {
		target, ok := links.ParseInternalLink(href)
		if !ok {
			continue
		}
		if _, exists := known[target]; exists {
			continue
		}

		broken = append(broken, BrokenLink{From: from, Href: href})
		b.logger.WithFields(logrus.Fields{
			"lang": string(from.Lang),
			"slug": string(from.Slug),
			"href": href,
		}).Warn("broken internal link")
	}
	return broken
}

func (b *Builder) writeComponent(ctx context.Context, path string, component templ.Component) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "creating directory for %s", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "creating %s", path)
	}

	if err := component.Render(ctx, file); err != nil {
		_ = file.Close()
		return eris.Wrapf(err, "rendering %s", path)
	}

	return eris.Wrapf(file.Close(), "closing %s", path)
}

func (b *Builder) writeManifest(params []content.Params) error {
	if params == nil {
		params = []content.Params{}
	}

	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encoding static params")
	}

	path := filepath.Join(b.outputDir, manifestFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "writing %s", path)
	}
	return nil
}

func (b *Builder) recordError(err error, p content.Params) {
	entry := b.logger.WithFields(logrus.Fields{
		"lang":  string(p.Lang),
		"slug":  string(p.Slug),
		"error": err.Error(),
	})
	if stage, ok := site.StageOf(err); ok {
		entry = entry.WithField("stage", string(stage))
	}
	entry.Error("page build failed")

	if b.sentry != nil {
		b.sentry.CaptureException(err)
	}
}
