package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Content sources.
const (
	SourceFilesystem = "filesystem"
	SourceDatabase   = "database"
)

// Config holds runtime configuration values for the handbook renderer.
type Config struct {
	SiteName        string
	ContentDir      string
	ContentSource   string
	Languages       []string
	LegacyLinksPath string
	OutputDir       string
	DBPath          string
	ServerPort      int
	LogLevel        string
	LogFormat       string
	SentryDSN       string
	SentryRelease   string
	SentryLogLevel  string
	Environment     string
	ShutdownGrace   time.Duration
	RateLimit       RateLimit
}

// RateLimit configures the preview server's per-client token bucket.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

const (
	defaultSiteName      = "Handbook"
	defaultContentDir    = "./content"
	defaultLanguages     = "en"
	defaultOutputDir     = "./dist"
	defaultDBPath        = "./data/handbook.db"
	defaultServerPort    = 8080
	defaultLogLevel      = "info"
	defaultLogFormat     = "json"
	defaultSentryLevel   = "error"
	defaultEnvironment   = "development"
	defaultShutdownGrace = 10 * time.Second
	defaultRateLimitRPS  = 5.0
	defaultRateBurst     = 20
	defaultRateClientTTL = 5 * time.Minute
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		SiteName:        getEnv("SITE_NAME", defaultSiteName),
		ContentDir:      getEnv("CONTENT_DIR", defaultContentDir),
		ContentSource:   strings.ToLower(getEnv("CONTENT_SOURCE", SourceFilesystem)),
		LegacyLinksPath: os.Getenv("LEGACY_LINKS_PATH"),
		OutputDir:       getEnv("OUTPUT_DIR", defaultOutputDir),
		DBPath:          getEnv("DB_PATH", defaultDBPath),
		LogLevel:        getEnv("LOG_LEVEL", defaultLogLevel),
		LogFormat:       getEnv("LOG_FORMAT", defaultLogFormat),
		SentryDSN:       os.Getenv("SENTRY_DSN"),
		SentryRelease:   os.Getenv("SENTRY_RELEASE"),
		SentryLogLevel:  getEnv("SENTRY_LOG_LEVEL", defaultSentryLevel),
		Environment:     getEnv("ENV", defaultEnvironment),
		ShutdownGrace:   defaultShutdownGrace,
		RateLimit: RateLimit{
			RequestsPerSecond: defaultRateLimitRPS,
			Burst:             defaultRateBurst,
			ClientTTL:         defaultRateClientTTL,
		},
	}

	switch cfg.ContentSource {
	case SourceFilesystem, SourceDatabase:
	default:
		return nil, eris.Errorf("invalid CONTENT_SOURCE value: %s", cfg.ContentSource)
	}

	cfg.Languages = splitList(getEnv("SITE_LANGUAGES", defaultLanguages))
	if len(cfg.Languages) == 0 {
		return nil, eris.New("SITE_LANGUAGES must include at least one language")
	}

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	if raw := os.Getenv("RATE_LIMIT_RPS"); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil || rps <= 0 {
			return nil, eris.Errorf("invalid RATE_LIMIT_RPS value: %s", raw)
		}
		cfg.RateLimit.RequestsPerSecond = rps
	}

	if raw := os.Getenv("RATE_LIMIT_BURST"); raw != "" {
		burst, err := strconv.Atoi(raw)
		if err != nil || burst <= 0 {
			return nil, eris.Errorf("invalid RATE_LIMIT_BURST value: %s", raw)
		}
		cfg.RateLimit.Burst = burst
	}

	if raw := os.Getenv("SHUTDOWN_GRACE"); raw != "" {
		grace, err := time.ParseDuration(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid SHUTDOWN_GRACE value: %s", raw)
		}
		cfg.ShutdownGrace = grace
	}

	return cfg, nil
}

// DefaultLanguage is the first configured language.
func (c *Config) DefaultLanguage() string {
	if len(c.Languages) == 0 {
		return ""
	}
	return c.Languages[0]
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
