package site

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"handbook/app/internal/domain/content"
)

// Renderer converts a page body into HTML.
type Renderer interface {
	Render(ctx context.Context, body string, format content.Format) (string, error)
}

// RenderedPage is a page ready to be embedded in the layout.
type RenderedPage struct {
	Params      content.Params
	Title       string
	Description string
	BodyHTML    string
}

// Metadata describes a page for the document head.
type Metadata struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Lang        content.Lang `json:"lang"`
}

// Service sequences enumeration, reading, link rewriting and rendering.
type Service interface {
	StaticParams(ctx context.Context) ([]content.Params, error)
	RenderPage(ctx context.Context, params content.Params) (*RenderedPage, error)
	Metadata(ctx context.Context, params content.Params) (Metadata, error)
	Enumerate(ctx context.Context) (Enumeration, error)
}

// Enumeration is a single listing of static params. Pages resolved through it
// are checked against that listing, so walking every page costs one
// enumeration instead of one per page.
type Enumeration interface {
	Params() []content.Params
	RenderPage(ctx context.Context, params content.Params) (*RenderedPage, error)
	Metadata(ctx context.Context, params content.Params) (Metadata, error)
}

type service struct {
	store     content.Store
	rewriter  content.LinkRewriter
	renderer  Renderer
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var (
	_ Service     = (*service)(nil)
	_ Enumeration = (*enumeration)(nil)
)

// NewService wires the page renderer with its collaborators.
func NewService(store content.Store, rewriter content.LinkRewriter, renderer Renderer, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if store == nil {
		return nil, eris.New("content store is required")
	}
	if rewriter == nil {
		return nil, eris.New("link rewriter is required")
	}
	if renderer == nil {
		return nil, eris.New("renderer is required")
	}

	return &service{
		store:     store,
		rewriter:  rewriter,
		renderer:  renderer,
		logger:    logger,
		sentryHub: hub,
	}, nil
}

func (s *service) StaticParams(ctx context.Context) ([]content.Params, error) {
	params, err := s.store.ListStaticParams(ctx)
	if err != nil {
		s.recordError(nil, err, "listing static params")
		return nil, eris.Wrap(err, "listing static params")
	}

	return params, nil
}

func (s *service) RenderPage(ctx context.Context, params content.Params) (*RenderedPage, error) {
	enum, err := s.Enumerate(ctx)
	if err != nil {
		return nil, err
	}
	return enum.RenderPage(ctx, params)
}

func (s *service) Metadata(ctx context.Context, params content.Params) (Metadata, error) {
	enum, err := s.Enumerate(ctx)
	if err != nil {
		return Metadata{}, err
	}
	return enum.Metadata(ctx, params)
}

func (s *service) Enumerate(ctx context.Context) (Enumeration, error) {
	params, err := s.StaticParams(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[content.Params]struct{}, len(params))
	for _, p := range params {
		known[p] = struct{}{}
	}

	return &enumeration{service: s, params: params, known: known}, nil
}

type enumeration struct {
	service *service
	params  []content.Params
	known   map[content.Params]struct{}
}

func (e *enumeration) Params() []content.Params {
	return append([]content.Params(nil), e.params...)
}

func (e *enumeration) RenderPage(ctx context.Context, params content.Params) (*RenderedPage, error) {
	return e.service.renderKnown(ctx, e.known, params)
}

func (e *enumeration) Metadata(ctx context.Context, params content.Params) (Metadata, error) {
	page, err := e.service.readKnown(ctx, e.known, params)
	if err != nil {
		return Metadata{}, err
	}

	return Metadata{
		Title:       page.Title,
		Description: page.Description,
		Lang:        params.Lang,
	}, nil
}

func (s *service) renderKnown(ctx context.Context, known map[content.Params]struct{}, params content.Params) (*RenderedPage, error) {
	page, err := s.readKnown(ctx, known, params)
	if err != nil {
		return nil, err
	}

	body := s.rewriter.RewriteLinks(page.Body, params.Lang)

	html, err := s.renderer.Render(ctx, body, page.Format)
	if err != nil {
		pageErr := &PageError{Stage: StageRender, Params: params, Err: err}
		s.recordError(paramFields(params), pageErr, "rendering page body")
		return nil, pageErr
	}

	return &RenderedPage{
		Params:      params,
		Title:       page.Title,
		Description: page.Description,
		BodyHTML:    html,
	}, nil
}

// readKnown rejects identities outside the enumeration before touching the store.
func (s *service) readKnown(ctx context.Context, known map[content.Params]struct{}, params content.Params) (*content.Page, error) {
	if _, ok := known[params]; !ok {
		return nil, eris.Wrapf(ErrUnknownPage, "resolving %s", params)
	}

	page, err := s.store.ReadPage(ctx, params.Lang, params.Slug)
	if err == nil && page == nil {
		err = content.ErrPageNotFound
	}
	if err != nil {
		pageErr := &PageError{
			Stage:  StageRead,
			Params: params,
			Err:    eris.Wrapf(ErrInconsistentContent, "%v", err),
		}
		s.recordError(paramFields(params), pageErr, "reading enumerated page")
		return nil, pageErr
	}

	if strings.TrimSpace(page.Title) == "" {
		pageErr := &PageError{
			Stage:  StageRead,
			Params: params,
			Err:    eris.Wrap(ErrInconsistentContent, "page title is empty"),
		}
		s.recordError(paramFields(params), pageErr, "validating enumerated page")
		return nil, pageErr
	}

	return page, nil
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}

func paramFields(params content.Params) logrus.Fields {
	return logrus.Fields{"lang": string(params.Lang), "slug": string(params.Slug)}
}
