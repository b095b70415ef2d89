package http

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"handbook/app/internal/data/database"
	"handbook/app/internal/domain/content"
	"handbook/app/internal/domain/site"
)

func TestNewServerValidatesOptions(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(Options{}); err == nil {
		t.Fatalf("expected error without site service")
	}

	_, err := NewServer(Options{Site: newStubSite(), RateLimiter: RateLimiterSettings{RequestsPerSecond: 1, ClientTTL: time.Minute}})
	if err == nil {
		t.Fatalf("expected error for zero burst")
	}
}

func TestPageRouteRendersLayout(t *testing.T) {
	t.Parallel()

	svc := newStubSite()
	svc.add(site.RenderedPage{
		Params:   content.Params{Lang: "en", Slug: "intro"},
		Title:    "Introduction",
		BodyHTML: `<p>See <a href="/en/page">old</a>.</p>`,
	})
	srv := newTestServer(t, svc, 10)

	rec := serve(srv, "/en/intro")

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != htmlContentType {
		t.Fatalf("expected content type %q, got %q", htmlContentType, ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`<html lang="en">`,
		"<title>Introduction</title>",
		">Introduction</h1>",
		`<a href="/en/page">old</a>`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q, got %q", want, body)
		}
	}

	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header to be set")
	}
}

func TestPageRouteReturns404ForUnknownPage(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newStubSite(), 10)

	rec := serve(srv, "/en/missing")

	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), notFoundMessage) {
		t.Fatalf("expected not found message, got %q", rec.Body.String())
	}
}

func TestPageRouteReturns404ForInvalidSlug(t *testing.T) {
	t.Parallel()

	svc := newStubSite()
	srv := newTestServer(t, svc, 10)

	rec := serve(srv, "/en/_partial")

	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if svc.renders != 0 {
		t.Fatalf("expected invalid slug to be rejected before rendering")
	}
}

func TestPageRouteReturns500OnRenderFailure(t *testing.T) {
	t.Parallel()

	svc := newStubSite()
	params := content.Params{Lang: "en", Slug: "broken"}
	svc.add(site.RenderedPage{Params: params, Title: "Broken"})
	svc.renderErr = &site.PageError{Stage: site.StageRender, Params: params, Err: eris.New("boom")}
	srv := newTestServer(t, svc, 10)

	rec := serve(srv, "/en/broken")

	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Fatalf("expected internal error detail to stay out of the response")
	}
}

func TestIndexRouteListsPages(t *testing.T) {
	t.Parallel()

	svc := newStubSite()
	svc.add(site.RenderedPage{Params: content.Params{Lang: "en", Slug: "intro"}, Title: "Introduction", BodyHTML: "<p>x</p>"})
	svc.add(site.RenderedPage{Params: content.Params{Lang: "ko", Slug: "intro"}, Title: "소개", BodyHTML: "<p>x</p>"})
	srv := newTestServer(t, svc, 10)

	rec := serve(srv, "/")

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `href="/en/intro"`) || !strings.Contains(body, `href="/ko/intro"`) {
		t.Fatalf("expected links for both languages, got %q", body)
	}
	if !strings.Contains(body, "Test Handbook") {
		t.Fatalf("expected site name in index, got %q", body)
	}
}

func TestUnroutedPathReturns404(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newStubSite(), 10)

	rec := serve(srv, "/en/intro/extra")

	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestStaticParamsRouteReturnsJSON(t *testing.T) {
	t.Parallel()

	svc := newStubSite()
	svc.add(site.RenderedPage{Params: content.Params{Lang: "en", Slug: "b"}, Title: "B"})
	svc.add(site.RenderedPage{Params: content.Params{Lang: "en", Slug: "a"}, Title: "A"})
	srv := newTestServer(t, svc, 10)

	rec := serve(srv, "/api/static-params")

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var params []content.Params
	if err := json.Unmarshal(rec.Body.Bytes(), &params); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	want := []content.Params{{Lang: "en", Slug: "a"}, {Lang: "en", Slug: "b"}}
	if len(params) != len(want) || params[0] != want[0] || params[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, params)
	}
}

func TestMetadataRoute(t *testing.T) {
	t.Parallel()

	svc := newStubSite()
	svc.add(site.RenderedPage{Params: content.Params{Lang: "en", Slug: "intro"}, Title: "Introduction", Description: "Start here"})
	srv := newTestServer(t, svc, 10)

	rec := serve(srv, "/api/metadata/en/intro")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var meta site.Metadata
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if meta.Title != "Introduction" || meta.Description != "Start here" || meta.Lang != "en" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	if rec := serve(srv, "/api/metadata/en/missing"); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404 for unknown page, got %d", rec.Code)
	}
}

func TestHealthRouteReportsOK(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newStubSite(), 10)

	rec := serve(srv, "/healthz")

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"database":"unused"`) {
		t.Fatalf("expected database to be reported unused, got %q", rec.Body.String())
	}
}

func TestHealthRoutePingsDatabase(t *testing.T) {
	t.Parallel()

	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "health.db")})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	srv, err := NewServer(Options{
		Site:        newStubSite(),
		Database:    db,
		Logger:      silentLogger(),
		RateLimiter: RateLimiterSettings{Burst: 10, RequestsPerSecond: 10, ClientTTL: time.Minute},
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	rec := serve(srv, "/healthz")
	if rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), `"database":"ok"`) {
		t.Fatalf("expected healthy database, got %d %q", rec.Code, rec.Body.String())
	}

	_ = database.Close(db)

	rec = serve(srv, "/healthz")
	if rec.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("expected status 503 after closing the database, got %d", rec.Code)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newStubSite(), 2)

	for i := 0; i < 2; i++ {
		if rec := serve(srv, "/api/static-params"); rec.Code != stdhttp.StatusOK {
			t.Fatalf("expected request %d to succeed, got %d", i+1, rec.Code)
		}
	}

	rec := serve(srv, "/api/static-params")
	if rec.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestRateLimitExemptsHealthCheck(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newStubSite(), 1)

	if rec := serve(srv, "/api/static-params"); rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec.Code)
	}
	if rec := serve(srv, "/api/static-params"); rec.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected budget to be exhausted, got %d", rec.Code)
	}

	for i := 0; i < 3; i++ {
		if rec := serve(srv, "/healthz"); rec.Code != stdhttp.StatusOK {
			t.Fatalf("expected health check %d to bypass the limiter, got %d", i+1, rec.Code)
		}
	}
}

func TestPageRoutesRejectNonCanonicalSegments(t *testing.T) {
	t.Parallel()

	svc := newStubSite()
	svc.add(site.RenderedPage{Params: content.Params{Lang: "en", Slug: "intro"}, Title: "Introduction"})
	srv := newTestServer(t, svc, 20)

	for _, path := range []string{
		"/EN/intro",
		"/en/%20intro",
		"/api/metadata/EN/intro",
		"/api/metadata/en/%20intro",
	} {
		if rec := serve(srv, path); rec.Code != stdhttp.StatusNotFound {
			t.Fatalf("expected status 404 for %s, got %d", path, rec.Code)
		}
	}
	if svc.renders != 0 {
		t.Fatalf("expected non-canonical paths to be rejected before rendering")
	}

	if rec := serve(srv, "/en/intro"); rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected canonical path to render, got %d", rec.Code)
	}
}

func TestLoggingIncludesPageIdentity(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	svc := newStubSite()
	svc.add(site.RenderedPage{Params: content.Params{Lang: "ko", Slug: "intro"}, Title: "소개"})

	srv, err := NewServer(Options{
		Site:        svc,
		Logger:      logger,
		RateLimiter: RateLimiterSettings{Burst: 10, RequestsPerSecond: 10, ClientTTL: time.Minute},
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	if rec := serve(srv, "/ko/intro"); rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected a request log entry")
	}
	if entry.Data["lang"] != "ko" || entry.Data["slug"] != "intro" || entry.Data["route"] != "/{lang}/{slug}" {
		t.Fatalf("expected page identity in log fields, got %v", entry.Data)
	}

	hook.Reset()
	serve(srv, "/healthz")
	if entry := hook.LastEntry(); entry == nil {
		t.Fatalf("expected a health check log entry")
	} else if _, ok := entry.Data["slug"]; ok {
		t.Fatalf("expected no page fields for the health check, got %v", entry.Data)
	}
}

func TestSentryEventsAreTaggedWithPage(t *testing.T) {
	t.Parallel()

	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			events = append(events, event)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	svc := newStubSite()
	params := content.Params{Lang: "en", Slug: "broken"}
	svc.add(site.RenderedPage{Params: params, Title: "Broken"})
	svc.renderErr = &site.PageError{Stage: site.StageRender, Params: params, Err: eris.New("boom")}

	srv, err := NewServer(Options{
		Site:        svc,
		Logger:      silentLogger(),
		SentryHub:   sentry.NewHub(client, sentry.NewScope()),
		RateLimiter: RateLimiterSettings{Burst: 10, RequestsPerSecond: 10, ClientTTL: time.Minute},
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	if rec := serve(srv, "/en/broken"); rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	if len(events) != 1 {
		t.Fatalf("expected one captured event, got %d", len(events))
	}
	tags := events[0].Tags
	if tags["page.lang"] != "en" || tags["page.slug"] != "broken" || tags["http.route"] != "/{lang}/{slug}" {
		t.Fatalf("expected page tags on the event, got %v", tags)
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newStubSite(), 10)

	const id = "0b6f3c52-3f0e-4a55-9a0b-6b1f4f0c9d2e"
	req := httptest.NewRequest(stdhttp.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, id)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != id {
		t.Fatalf("expected request id %q, got %q", id, got)
	}
}

func TestClientIPFromRequest(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(stdhttp.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if got := clientIPFromRequest(req); got != "10.0.0.1" {
		t.Fatalf("expected remote host, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIPFromRequest(req); got != "203.0.113.9" {
		t.Fatalf("expected first forwarded address, got %q", got)
	}
}

// helper utilities

func newTestServer(t *testing.T, svc site.Service, burst int) *Server {
	t.Helper()

	srv, err := NewServer(Options{
		Site:        svc,
		SiteName:    "Test Handbook",
		DefaultLang: "en",
		Logger:      silentLogger(),
		RateLimiter: RateLimiterSettings{
			Burst:             burst,
			RequestsPerSecond: 0.001,
			ClientTTL:         time.Minute,
		},
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	return srv
}

func serve(srv *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(stdhttp.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// stubs

type stubSite struct {
	pages     map[content.Params]site.RenderedPage
	renderErr error
	renders   int
}

func newStubSite() *stubSite {
	return &stubSite{pages: map[content.Params]site.RenderedPage{}}
}

func (s *stubSite) add(page site.RenderedPage) {
	s.pages[page.Params] = page
}

func (s *stubSite) StaticParams(_ context.Context) ([]content.Params, error) {
	params := make([]content.Params, 0, len(s.pages))
	for p := range s.pages {
		params = append(params, p)
	}
	content.SortParams(params)
	return params, nil
}

func (s *stubSite) RenderPage(_ context.Context, params content.Params) (*site.RenderedPage, error) {
	s.renders++
	page, ok := s.pages[params]
	if !ok {
		return nil, eris.Wrapf(site.ErrUnknownPage, "resolving %s", params)
	}
	if s.renderErr != nil {
		return nil, s.renderErr
	}
	return &page, nil
}

func (s *stubSite) Metadata(_ context.Context, params content.Params) (site.Metadata, error) {
	page, ok := s.pages[params]
	if !ok {
		return site.Metadata{}, eris.Wrapf(site.ErrUnknownPage, "resolving %s", params)
	}
	return site.Metadata{Title: page.Title, Description: page.Description, Lang: params.Lang}, nil
}

func (s *stubSite) Enumerate(ctx context.Context) (site.Enumeration, error) {
	params, err := s.StaticParams(ctx)
	if err != nil {
		return nil, err
	}
	return &stubEnumeration{stubSite: s, params: params}, nil
}

type stubEnumeration struct {
	*stubSite
	params []content.Params
}

func (e *stubEnumeration) Params() []content.Params {
	return e.params
}

var (
	_ site.Service     = (*stubSite)(nil)
	_ site.Enumeration = (*stubEnumeration)(nil)
)
