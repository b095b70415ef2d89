package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"handbook/app/internal/config"
	"handbook/app/internal/data/database"
	"handbook/app/internal/data/migrations"
	"handbook/app/internal/data/pages"
	"handbook/app/internal/domain/content"
	"handbook/app/internal/domain/site"
	"handbook/app/internal/infrastructure/filesystem"
	"handbook/app/internal/infrastructure/links"
	"handbook/app/internal/infrastructure/markdown"
	presentationhttp "handbook/app/internal/presentation/http"
	"handbook/app/internal/presentation/static"
)

type Dependencies struct {
	Config    *config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	Site       site.Service
	Store      content.Store
	HTTPServer *presentationhttp.Server
	Builder    *static.Builder
	// Database is nil unless pages are served from SQLite.
	Database *gorm.DB
	Cleanup  func() error
}

// Build composes the handbook layers selected by the configuration.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	if deps.Config == nil {
		return Result{}, eris.New("configuration is required")
	}
	cfg := deps.Config

	langs, err := content.ParseLangs(cfg.Languages)
	if err != nil {
		return Result{}, eris.Wrap(err, "parsing SITE_LANGUAGES")
	}

	var (
		store content.Store
		db    *gorm.DB
	)

	switch cfg.ContentSource {
	case config.SourceDatabase:
		repo, conn, err := OpenRepository(ctx, deps, langs)
		if err != nil {
			return Result{}, err
		}
		store, db = repo, conn
	default:
		fsStore, err := OpenFilesystem(deps, langs)
		if err != nil {
			return Result{}, err
		}
		store = fsStore
	}

	closeOnError := func(wrapper error) (Result, error) {
		if db != nil {
			if closeErr := database.Close(db); closeErr != nil && deps.Logger != nil {
				deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
			}
		}
		return Result{}, wrapper
	}

	rules := links.DefaultRules
	if cfg.LegacyLinksPath != "" {
		rules, err = links.LoadRules(cfg.LegacyLinksPath)
		if err != nil {
			return closeOnError(eris.Wrap(err, "loading legacy link rules"))
		}
	}

	rewriter, err := links.NewRewriter(rules, langs)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating link rewriter"))
	}

	siteService, err := site.NewService(store, rewriter, markdown.NewRenderer(markdown.Options{}), deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating site service"))
	}

	builder, err := static.NewBuilder(static.Options{
		Site:        siteService,
		OutputDir:   cfg.OutputDir,
		SiteName:    cfg.SiteName,
		DefaultLang: cfg.DefaultLanguage(),
		Logger:      deps.Logger,
		SentryHub:   deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating static builder"))
	}

	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		Site:        siteService,
		SiteName:    cfg.SiteName,
		DefaultLang: cfg.DefaultLanguage(),
		Database:    db,
		Logger:      deps.Logger,
		SentryHub:   deps.SentryHub,
		RateLimiter: presentationhttp.RateLimiterSettings{
			Burst:             cfg.RateLimit.Burst,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			ClientTTL:         cfg.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := func() error {
		httpServer.Close()
		if db == nil {
			return nil
		}
		return database.Close(db)
	}

	return Result{
		Site:       siteService,
		Store:      store,
		HTTPServer: httpServer,
		Builder:    builder,
		Database:   db,
		Cleanup:    cleanup,
	}, nil
}

// OpenFilesystem opens the content directory named by CONTENT_DIR.
func OpenFilesystem(deps Dependencies, langs []content.Lang) (*filesystem.Store, error) {
	store, err := filesystem.NewStore(filesystem.Options{
		Root:      deps.Config.ContentDir,
		Languages: langs,
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, eris.Wrap(err, "opening content directory")
	}
	return store, nil
}

// OpenRepository opens and migrates the SQLite page store. The caller owns the
// returned connection.
func OpenRepository(ctx context.Context, deps Dependencies, langs []content.Lang) (*pages.Repository, *gorm.DB, error) {
	db, err := database.Open(database.Options{Path: deps.Config.DBPath, Logger: deps.Logger})
	if err != nil {
		return nil, nil, eris.Wrap(err, "opening database")
	}

	fail := func(wrapper error) (*pages.Repository, *gorm.DB, error) {
		if closeErr := database.Close(db); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return nil, nil, wrapper
	}

	if err := migrations.MigratePages(ctx, db, deps.Logger); err != nil {
		return fail(eris.Wrap(err, "running page migrations"))
	}

	repo, err := pages.NewRepository(db, langs, deps.Logger)
	if err != nil {
		return fail(eris.Wrap(err, "creating page repository"))
	}

	return repo, db, nil
}
