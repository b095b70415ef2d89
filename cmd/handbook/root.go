package main

import (
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"handbook/app/internal/app/bootstrap"
	"handbook/app/internal/config"
	applog "handbook/app/internal/platform/log"
)

// runtime is the state shared by every subcommand once configuration is loaded.
type runtime struct {
	cfg    *config.Config
	logger *logrus.Logger
	hub    *sentry.Hub
	flush  func()
}

func (rt *runtime) deps() bootstrap.Dependencies {
	return bootstrap.Dependencies{Config: rt.cfg, Logger: rt.logger, SentryHub: rt.hub}
}

func newRuntime() *runtime {
	return &runtime{flush: func() {}}
}

func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "handbook",
		Short:         "Render handbook pages to static HTML",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return rt.init()
		},
	}

	root.AddCommand(
		newBuildCommand(rt),
		newServeCommand(rt),
		newImportCommand(rt),
		newParamsCommand(rt),
	)

	return root
}

func (rt *runtime) init() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(applog.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}

	hub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:           cfg.SentryDSN,
		Environment:   cfg.Environment,
		Release:       cfg.SentryRelease,
		SiteName:      cfg.SiteName,
		ContentSource: cfg.ContentSource,
		HookLevel:     cfg.SentryLogLevel,
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}

	rt.cfg = cfg
	rt.logger = logger
	rt.hub = hub
	rt.flush = flush
	return nil
}

// build composes the application and hands it to fn, releasing resources afterwards.
func (rt *runtime) build(cmd *cobra.Command, fn func(bootstrap.Result) error) error {
	result, err := bootstrap.Build(cmd.Context(), rt.deps())
	if err != nil {
		return eris.Wrap(err, "bootstrapping handbook")
	}
	defer func() {
		if closeErr := result.Cleanup(); closeErr != nil {
			rt.logger.WithError(closeErr).Error("releasing resources")
		}
	}()

	return fn(result)
}
