// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the ops
// HTTP server, logging, storage, the remote directory client, the harvest
// loop, and observability.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS" envDefault:"false"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" envDefault:"4320h"`
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"go-tgstats"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" envDefault:"1.0"`
}

// DBConfig selects the storage engine.
type DBConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"` // sqlite|postgres
	Path   string `env:"DB_PATH" envDefault:"tgstats.db"`
	DSN    string `env:"DB_DSN"` // required for postgres
}

// DirectoryConfig configures the remote participant directory client.
type DirectoryConfig struct {
	URL        string        `env:"DIRECTORY_URL"`
	Token      string        `env:"DIRECTORY_TOKEN"`
	Fixture    string        `env:"DIRECTORY_FIXTURE"` // YAML file, used instead of URL for dry runs
	Timeout    time.Duration `env:"DIRECTORY_TIMEOUT" envDefault:"10s"`
	MaxRetries uint          `env:"DIRECTORY_MAX_RETRIES" envDefault:"3"`
	RPS        float64       `env:"DIRECTORY_RPS" envDefault:"5"`
	Burst      int           `env:"DIRECTORY_BURST" envDefault:"5"`
}

// HarvestConfig drives the roster crawl and the departure sweep.
type HarvestConfig struct {
	ChannelIDs         []int64       `env:"HARVEST_CHANNEL_IDS" envSeparator:","`
	Alphabet           []string      `env:"HARVEST_ALPHABET" envSeparator:","`
	AlphabetFile       string        `env:"HARVEST_ALPHABET_FILE"`
	PageLimit          int           `env:"HARVEST_PAGE_LIMIT" envDefault:"200"`
	MaxPagesPerKey     int           `env:"HARVEST_MAX_PAGES_PER_KEY" envDefault:"50"`
	Concurrency        int           `env:"HARVEST_CONCURRENCY" envDefault:"1"`
	Interval           time.Duration `env:"HARVEST_INTERVAL" envDefault:"1h"`
	RunOnStart         bool          `env:"HARVEST_RUN_ON_START" envDefault:"true"`
	Staleness          time.Duration `env:"HARVEST_STALENESS" envDefault:"24h"`
	AmbiguousThreshold int           `env:"HARVEST_AMBIGUOUS_THRESHOLD" envDefault:"1"`
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `env:"PORT" envDefault:"8080"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"5m"` // POST /harvest runs synchronously
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES" envDefault:"1048576"`
	GinMode           string        `env:"GIN_MODE" envDefault:"release"`

	// Logging / Docs
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SwaggerEnabled bool   `env:"SWAGGER_ENABLED" envDefault:"false"`
	APIBasePath    string `env:"API_BASE_PATH" envDefault:"/api/v1"`

	// Rate limiting (ops API)
	RateRPS   float64 `env:"RATE_RPS" envDefault:"5"`
	RateBurst int     `env:"RATE_BURST" envDefault:"10"`

	DB        DBConfig
	Directory DirectoryConfig
	Harvest   HarvestConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	// --- normalization ---
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	cfg.GinMode = strings.ToLower(strings.TrimSpace(cfg.GinMode))
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.APIBasePath = normalizeBasePath(cfg.APIBasePath)
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	cfg.CORS.AllowedOrigins = trimAll(cfg.CORS.AllowedOrigins)
	cfg.Harvest.Alphabet = trimAll(cfg.Harvest.Alphabet)

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DB_DSN must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Directory.URL == "" && cfg.Directory.Fixture == "" {
		return cfg, errors.New("one of DIRECTORY_URL or DIRECTORY_FIXTURE must be set")
	}
	if cfg.Directory.Timeout <= 0 {
		return cfg, errors.New("DIRECTORY_TIMEOUT must be > 0")
	}
	if cfg.Directory.RPS <= 0 || cfg.Directory.Burst < 1 {
		return cfg, errors.New("DIRECTORY_RPS must be > 0 and DIRECTORY_BURST >= 1")
	}
	if len(cfg.Harvest.ChannelIDs) == 0 {
		return cfg, errors.New("HARVEST_CHANNEL_IDS must list at least one channel")
	}
	if cfg.Harvest.PageLimit < 1 {
		return cfg, errors.New("HARVEST_PAGE_LIMIT must be >= 1")
	}
	if cfg.Harvest.MaxPagesPerKey < 1 {
		return cfg, errors.New("HARVEST_MAX_PAGES_PER_KEY must be >= 1")
	}
	if cfg.Harvest.Concurrency < 1 {
		return cfg, errors.New("HARVEST_CONCURRENCY must be >= 1")
	}
	if cfg.Harvest.Interval <= 0 {
		return cfg, errors.New("HARVEST_INTERVAL must be > 0")
	}
	if cfg.Harvest.Staleness <= 0 {
		return cfg, errors.New("HARVEST_STALENESS must be > 0")
	}
	if cfg.Harvest.AmbiguousThreshold < 1 {
		return cfg, errors.New("HARVEST_AMBIGUOUS_THRESHOLD must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// trimAll trims each entry and drops the empty ones.
func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
