package log

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentrylogrus "github.com/getsentry/sentry-go/logrus"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const (
	sentryFlushTimeout = 2 * time.Second
	defaultHookLevel   = logrus.ErrorLevel
)

// SentrySettings represents the configuration required to bootstrap Sentry.
type SentrySettings struct {
	DSN         string
	Environment string
	Release     string
	// SiteName and ContentSource tag every event so reports from several
	// handbooks sharing one project stay apart.
	SiteName      string
	ContentSource string
	// HookLevel is the least severe logrus level forwarded to Sentry. Empty means "error".
	HookLevel string
}

// InitSentry connects Sentry to the logger. Without a DSN it returns a nil hub
// and a no-op flush.
func InitSentry(logger *logrus.Logger, settings SentrySettings) (*sentry.Hub, func(), error) {
	levels, err := HookLevels(settings.HookLevel)
	if err != nil {
		return nil, nil, err
	}

	if settings.DSN == "" {
		return nil, func() {}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         settings.DSN,
		Environment: settings.Environment,
		Release:     settings.Release,
		ServerName:  settings.SiteName,
		Tags:        siteTags(settings),
		BeforeSend:  dropCancelled,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "initialising sentry client")
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	logger.AddHook(sentrylogrus.NewLogHookFromClient(levels, client))

	flush := func() {
		hub.Flush(sentryFlushTimeout)
	}

	return hub, flush, nil
}

// HookLevels lists the logrus levels at or above the named threshold.
func HookLevels(threshold string) ([]logrus.Level, error) {
	least := defaultHookLevel
	if name := strings.TrimSpace(threshold); name != "" {
		level, err := logrus.ParseLevel(name)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid sentry hook level: %s", threshold)
		}
		least = level
	}

	levels := make([]logrus.Level, 0, int(least)+1)
	for _, level := range logrus.AllLevels {
		if level <= least {
			levels = append(levels, level)
		}
	}
	return levels, nil
}

// TagPage attaches the page identity to the hub's scope so captured render
// failures can be grouped by page.
func TagPage(hub *sentry.Hub, lang, slug string) {
	if hub == nil {
		return
	}

	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("page.lang", lang)
		scope.SetTag("page.slug", slug)
		scope.SetContext("page", sentry.Context{
			"lang": lang,
			"slug": slug,
			"path": "/" + lang + "/" + slug,
		})
	})
}

func siteTags(settings SentrySettings) map[string]string {
	tags := map[string]string{}
	if settings.SiteName != "" {
		tags["site"] = settings.SiteName
	}
	if settings.ContentSource != "" {
		tags["content_source"] = settings.ContentSource
	}
	return tags
}

// dropCancelled discards events caused by a client going away mid-render.
func dropCancelled(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && hint.OriginalException != nil && errors.Is(hint.OriginalException, context.Canceled) {
		return nil
	}
	return event
}
