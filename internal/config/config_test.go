package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"SITE_NAME", "CONTENT_DIR", "CONTENT_SOURCE", "SITE_LANGUAGES", "LEGACY_LINKS_PATH",
		"OUTPUT_DIR", "DB_PATH", "SERVER_PORT", "LOG_LEVEL", "LOG_FORMAT", "SENTRY_DSN",
		"SENTRY_RELEASE", "SENTRY_LOG_LEVEL", "ENV", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "SHUTDOWN_GRACE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.SiteName != defaultSiteName {
		t.Errorf("expected default site name %q, got %q", defaultSiteName, cfg.SiteName)
	}

	if cfg.ContentDir != defaultContentDir {
		t.Errorf("expected default content dir %q, got %q", defaultContentDir, cfg.ContentDir)
	}

	if cfg.ContentSource != SourceFilesystem {
		t.Errorf("expected filesystem content source, got %q", cfg.ContentSource)
	}

	if len(cfg.Languages) != 1 || cfg.DefaultLanguage() != "en" {
		t.Errorf("expected default languages [en], got %v", cfg.Languages)
	}

	if cfg.OutputDir != defaultOutputDir {
		t.Errorf("expected default output dir %q, got %q", defaultOutputDir, cfg.OutputDir)
	}

	if cfg.DBPath != defaultDBPath {
		t.Errorf("expected default DB path %q, got %q", defaultDBPath, cfg.DBPath)
	}

	if cfg.ServerPort != defaultServerPort {
		t.Errorf("expected default server port %d, got %d", defaultServerPort, cfg.ServerPort)
	}

	if cfg.LogLevel != defaultLogLevel || cfg.LogFormat != defaultLogFormat {
		t.Errorf("expected default log settings, got %q/%q", cfg.LogLevel, cfg.LogFormat)
	}

	if cfg.SentryLogLevel != defaultSentryLevel || cfg.SentryRelease != "" {
		t.Errorf("expected default sentry settings, got %q/%q", cfg.SentryLogLevel, cfg.SentryRelease)
	}

	if cfg.Environment != defaultEnvironment {
		t.Errorf("expected default environment %q, got %q", defaultEnvironment, cfg.Environment)
	}

	if cfg.ShutdownGrace != defaultShutdownGrace {
		t.Errorf("expected shutdown grace %s, got %s", defaultShutdownGrace, cfg.ShutdownGrace)
	}

	if cfg.RateLimit.Burst != defaultRateBurst || cfg.RateLimit.RequestsPerSecond != defaultRateLimitRPS {
		t.Errorf("unexpected default rate limit %#v", cfg.RateLimit)
	}

	if cfg.LegacyLinksPath != "" || cfg.SentryDSN != "" {
		t.Errorf("expected empty optional values, got %q/%q", cfg.LegacyLinksPath, cfg.SentryDSN)
	}
}

func TestLoadWithExplicitValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SITE_NAME", "Docs")
	t.Setenv("CONTENT_DIR", "/srv/content")
	t.Setenv("CONTENT_SOURCE", "Database")
	t.Setenv("SITE_LANGUAGES", " ko, en ,,ja ")
	t.Setenv("LEGACY_LINKS_PATH", "/etc/links.yaml")
	t.Setenv("OUTPUT_DIR", "/srv/out")
	t.Setenv("DB_PATH", "/tmp/handbook.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SENTRY_DSN", "dsn")
	t.Setenv("SENTRY_RELEASE", "handbook@1.2.0")
	t.Setenv("SENTRY_LOG_LEVEL", "warning")
	t.Setenv("ENV", "production")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "4")
	t.Setenv("SHUTDOWN_GRACE", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.SiteName != "Docs" || cfg.ContentDir != "/srv/content" || cfg.OutputDir != "/srv/out" {
		t.Errorf("unexpected paths %#v", cfg)
	}

	if cfg.ContentSource != SourceDatabase {
		t.Errorf("expected database content source, got %q", cfg.ContentSource)
	}

	expectedLangs := []string{"ko", "en", "ja"}
	if len(cfg.Languages) != len(expectedLangs) {
		t.Fatalf("expected %d languages, got %v", len(expectedLangs), cfg.Languages)
	}
	for i, lang := range expectedLangs {
		if cfg.Languages[i] != lang {
			t.Errorf("expected language %q at index %d, got %q", lang, i, cfg.Languages[i])
		}
	}
	if cfg.DefaultLanguage() != "ko" {
		t.Errorf("expected default language ko, got %q", cfg.DefaultLanguage())
	}

	if cfg.LegacyLinksPath != "/etc/links.yaml" {
		t.Errorf("expected legacy links path, got %q", cfg.LegacyLinksPath)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.ServerPort)
	}

	if cfg.LogLevel != "debug" || cfg.LogFormat != "text" {
		t.Errorf("unexpected log settings %q/%q", cfg.LogLevel, cfg.LogFormat)
	}

	if cfg.SentryDSN != "dsn" || cfg.Environment != "production" {
		t.Errorf("unexpected sentry settings %q/%q", cfg.SentryDSN, cfg.Environment)
	}

	if cfg.SentryRelease != "handbook@1.2.0" || cfg.SentryLogLevel != "warning" {
		t.Errorf("unexpected sentry release settings %q/%q", cfg.SentryRelease, cfg.SentryLogLevel)
	}

	if cfg.RateLimit.RequestsPerSecond != 2.5 || cfg.RateLimit.Burst != 4 {
		t.Errorf("unexpected rate limit %#v", cfg.RateLimit)
	}

	if cfg.ShutdownGrace != 3*time.Second {
		t.Errorf("expected shutdown grace 3s, got %s", cfg.ShutdownGrace)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "invalid")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for invalid port, got nil")
	}

	if !strings.Contains(err.Error(), "invalid SERVER_PORT value") {
		t.Fatalf("expected error to mention invalid SERVER_PORT value, got %v", err)
	}
}

func TestLoadInvalidContentSource(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONTENT_SOURCE", "s3")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for invalid content source, got nil")
	}

	if !strings.Contains(err.Error(), "invalid CONTENT_SOURCE value") {
		t.Fatalf("expected error to mention CONTENT_SOURCE, got %v", err)
	}
}

func TestLoadInvalidRateLimit(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT_BURST", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero burst, got nil")
	}

	t.Setenv("RATE_LIMIT_BURST", "")
	t.Setenv("RATE_LIMIT_RPS", "fast")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric rps, got nil")
	}
}

func TestLoadEmptyLanguageList(t *testing.T) {
	clearEnv(t)
	t.Setenv("SITE_LANGUAGES", " , ")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when no languages are configured")
	}
}
