package http

import (
	"bytes"
	"context"
	"fmt"
	stdhttp "net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"handbook/app/internal/data/database"
	"handbook/app/internal/domain/content"
	"handbook/app/internal/domain/site"
	"handbook/app/internal/presentation/http/templates"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	errorFallbackMessage = "We couldn't render this page right now."
	notFoundMessage      = "This page is not part of the handbook."
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type indexInput struct {
	path string
}

// Resolve captures the raw request path; "/" also matches every unrouted path.
func (i *indexInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	i.path = u.Path
	return nil
}

type pageInput struct {
	Lang string `path:"lang"`
	Slug string `path:"slug"`
}

// params parses the path segments and only accepts the canonical spelling, so
// "/EN/intro" or an escaped space never alias an enumerated page.
func (i *pageInput) params() (content.Params, bool) {
	params, err := content.ParseParams(i.Lang, i.Slug)
	if err != nil || params.String() != i.Lang+"/"+i.Slug {
		return content.Params{}, false
	}
	return params, true
}

type staticParamsResponse struct {
	Body []content.Params
}

type metadataResponse struct {
	Body site.Metadata
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Content  string `json:"content"`
		Database string `json:"database"`
		Pages    int    `json:"pages"`
	}
}

func (s *Server) registerIndexRoute() {
	huma.Get(s.api, "/", s.indexHandler, htmlOperation(
		"Handbook index",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerPageRoute() {
	huma.Get(s.api, pageRouteSuffix, s.pageHandler, htmlOperation(
		"Rendered page",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerStaticParamsRoute() {
	huma.Get(s.api, "/api/static-params", s.staticParamsHandler, func(op *huma.Operation) {
		op.Summary = "List static params"
	})
}

func (s *Server) registerMetadataRoute() {
	huma.Get(s.api, "/api/metadata"+pageRouteSuffix, s.metadataHandler, func(op *huma.Operation) {
		op.Summary = "Page metadata"
	})
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, healthPath, s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) indexHandler(ctx context.Context, input *indexInput) (*htmlResponse, error) {
	if input.path != "" && input.path != "/" {
		return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, notFoundMessage)
	}

	entries, err := site.Catalog(ctx, s.site)
	if err != nil {
		s.recordError(ctx, err, "building index", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	data := templates.NewIndexData(s.siteName, s.defaultLang, entries)
	body, err := renderComponent(ctx, templates.IndexDocument(data))
	if err != nil {
		s.recordError(ctx, err, "rendering index", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) pageHandler(ctx context.Context, input *pageInput) (*htmlResponse, error) {
	params, ok := input.params()
	if !ok {
		return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, notFoundMessage)
	}

	page, err := s.site.RenderPage(ctx, params)
	if err != nil {
		status, message := classifyError(err)
		if status >= stdhttp.StatusInternalServerError {
			s.recordError(ctx, err, "rendering page", paramFields(params))
		}
		return s.renderErrorResponse(ctx, status, message)
	}

	body, err := renderComponent(ctx, templates.PageDocument(templates.PageDocumentData{
		SiteName:    s.siteName,
		Lang:        string(page.Params.Lang),
		Title:       page.Title,
		Description: page.Description,
		BodyHTML:    page.BodyHTML,
	}))
	if err != nil {
		s.recordError(ctx, err, "rendering page layout", paramFields(params))
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) staticParamsHandler(ctx context.Context, _ *struct{}) (*staticParamsResponse, error) {
	params, err := s.site.StaticParams(ctx)
	if err != nil {
		s.recordError(ctx, err, "listing static params", nil)
		return nil, huma.Error500InternalServerError("listing static params failed")
	}
	if params == nil {
		params = []content.Params{}
	}
	return &staticParamsResponse{Body: params}, nil
}

func (s *Server) metadataHandler(ctx context.Context, input *pageInput) (*metadataResponse, error) {
	params, ok := input.params()
	if !ok {
		return nil, huma.Error404NotFound(notFoundMessage)
	}

	meta, err := s.site.Metadata(ctx, params)
	if err != nil {
		status, message := classifyError(err)
		if status == stdhttp.StatusNotFound {
			return nil, huma.Error404NotFound(message)
		}
		s.recordError(ctx, err, "loading page metadata", paramFields(params))
		return nil, huma.Error500InternalServerError(message)
	}

	return &metadataResponse{Body: meta}, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Content = "ok"
	resp.Body.Database = "unused"

	params, err := s.site.StaticParams(ctx)
	if err != nil {
		s.recordError(ctx, err, "listing static params", nil)
		resp.Body.Status = "degraded"
		resp.Body.Content = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}
	resp.Body.Pages = len(params)

	if s.db != nil {
		resp.Body.Database = "ok"
		sqlDB, err := database.SQLDB(s.db)
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			s.recordError(ctx, err, "pinging database", nil)
			resp.Body.Status = "degraded"
			resp.Body.Database = "error"
			resp.Status = stdhttp.StatusServiceUnavailable
		}
	}

	return resp, nil
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

// classifyError maps a site error onto an HTTP status and a user-facing message.
func classifyError(err error) (int, string) {
	switch {
	case err == nil:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	case eris.Is(err, site.ErrUnknownPage):
		return stdhttp.StatusNotFound, notFoundMessage
	default:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	component := templates.ErrorPage(templates.ErrorPageData{
		SiteName:    s.siteName,
		Lang:        s.defaultLang,
		StatusLabel: label,
		Message:     message,
	})

	body, err := renderComponent(ctx, component)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

// renderComponent buffers the whole document so a failed render never reaches
// the client half written.
func renderComponent(ctx context.Context, component templ.Component) ([]byte, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, eris.Wrap(err, "rendering component")
	}
	return buf.Bytes(), nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if stage, ok := site.StageOf(err); ok {
			entry = entry.WithField("stage", string(stage))
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

func paramFields(params content.Params) logrus.Fields {
	return logrus.Fields{"lang": string(params.Lang), "slug": string(params.Slug)}
}
