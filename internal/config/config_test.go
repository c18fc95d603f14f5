package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// setRequired sets the variables that have no usable default.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DIRECTORY_URL", "http://directory.local")
	t.Setenv("HARVEST_CHANNEL_IDS", "1001")
}

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	setRequired(t)
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging / Docs
	t.Setenv("LOG_LEVEL", "WARNING") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("SWAGGER_ENABLED", "true")
	t.Setenv("API_BASE_PATH", "api/v1/") // -> "/api/v1"

	// Storage
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "postgres://u:p@db:5432/tgstats")

	// Directory
	t.Setenv("DIRECTORY_URL", "http://gw:9000")
	t.Setenv("DIRECTORY_TOKEN", "secret")
	t.Setenv("DIRECTORY_TIMEOUT", "3s")
	t.Setenv("DIRECTORY_MAX_RETRIES", "5")
	t.Setenv("DIRECTORY_RPS", "2.5")
	t.Setenv("DIRECTORY_BURST", "4")

	// Harvest
	t.Setenv("HARVEST_CHANNEL_IDS", "1001,2002")
	t.Setenv("HARVEST_ALPHABET", "a, b ,,c")
	t.Setenv("HARVEST_PAGE_LIMIT", "100")
	t.Setenv("HARVEST_CONCURRENCY", "3")
	t.Setenv("HARVEST_INTERVAL", "30m")
	t.Setenv("HARVEST_RUN_ON_START", "false")
	t.Setenv("HARVEST_STALENESS", "10m")
	t.Setenv("HARVEST_AMBIGUOUS_THRESHOLD", "3")

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "true")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "false")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}

	// Logging / Docs
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}

	// Storage
	if cfg.DB.Driver != "postgres" || cfg.DB.DSN != "postgres://u:p@db:5432/tgstats" {
		t.Fatalf("db unexpected: %+v", cfg.DB)
	}

	// Directory
	d := cfg.Directory
	if d.URL != "http://gw:9000" || d.Token != "secret" || d.Timeout != 3*time.Second ||
		d.MaxRetries != 5 || d.RPS != 2.5 || d.Burst != 4 {
		t.Fatalf("directory unexpected: %+v", d)
	}

	// Harvest
	h := cfg.Harvest
	if !reflect.DeepEqual(h.ChannelIDs, []int64{1001, 2002}) {
		t.Fatalf("channel ids unexpected: %#v", h.ChannelIDs)
	}
	if !reflect.DeepEqual(h.Alphabet, []string{"a", "b", "c"}) {
		t.Fatalf("alphabet unexpected: %#v", h.Alphabet)
	}
	if h.PageLimit != 100 || h.Concurrency != 3 || h.Interval != 30*time.Minute || h.RunOnStart ||
		h.Staleness != 10*time.Minute || h.AmbiguousThreshold != 3 || h.MaxPagesPerKey != 50 {
		t.Fatalf("harvest unexpected: %+v", h)
	}

	// Web protection
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.Path != "tgstats.db" {
		t.Fatalf("db defaults unexpected: %+v", cfg.DB)
	}
	h := cfg.Harvest
	if h.PageLimit != 200 || h.Staleness != 24*time.Hour || h.AmbiguousThreshold != 1 || !h.RunOnStart || h.Concurrency != 1 {
		t.Fatalf("harvest defaults unexpected: %+v", h)
	}
	if h.Alphabet != nil {
		t.Fatalf("alphabet should be empty by default, got %#v", h.Alphabet)
	}
	if cfg.Directory.Timeout != 10*time.Second || cfg.Directory.MaxRetries != 3 {
		t.Fatalf("directory defaults unexpected: %+v", cfg.Directory)
	}
}

func TestLoad_ParseError(t *testing.T) {
	setRequired(t)
	t.Setenv("HARVEST_PAGE_LIMIT", "lots")
	if _, err := Load(); err == nil || !containsErr(err, "parse env") {
		t.Fatalf("expected parse error, got: %v", err)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"invalid LOG_LEVEL", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"empty PORT via spaces", "PORT", "   ", "PORT must not be empty"},
		{"non-positive timeouts", "READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"max header bytes <= 0", "MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"empty DB_PATH", "DB_PATH", "   ", "DB_PATH must not be empty"},
		{"unknown DB_DRIVER", "DB_DRIVER", "oracle", "DB_DRIVER"},
		{"postgres without DSN", "DB_DRIVER", "postgres", "DB_DSN"},
		{"rate rps negative", "RATE_RPS", "-1", "RATE_RPS"},
		{"rate burst < 1", "RATE_BURST", "0", "RATE_BURST"},
		{"directory timeout", "DIRECTORY_TIMEOUT", "0s", "DIRECTORY_TIMEOUT"},
		{"directory rps", "DIRECTORY_RPS", "0", "DIRECTORY_RPS"},
		{"page limit", "HARVEST_PAGE_LIMIT", "0", "HARVEST_PAGE_LIMIT"},
		{"max pages", "HARVEST_MAX_PAGES_PER_KEY", "0", "HARVEST_MAX_PAGES_PER_KEY"},
		{"concurrency", "HARVEST_CONCURRENCY", "0", "HARVEST_CONCURRENCY"},
		{"interval", "HARVEST_INTERVAL", "0s", "HARVEST_INTERVAL"},
		{"staleness", "HARVEST_STALENESS", "-1m", "HARVEST_STALENESS"},
		{"ambiguous threshold", "HARVEST_AMBIGUOUS_THRESHOLD", "0", "HARVEST_AMBIGUOUS_THRESHOLD"},
		{"hsts max age negative", "HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE"},
		{"otel sample ratio out of range", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}

	t.Run("no directory source", func(t *testing.T) {
		t.Setenv("HARVEST_CHANNEL_IDS", "1")
		if _, err := Load(); err == nil || !containsErr(err, "DIRECTORY_URL") {
			t.Fatalf("expected directory validation error, got: %v", err)
		}
	})
	t.Run("no channels", func(t *testing.T) {
		t.Setenv("DIRECTORY_FIXTURE", "fixture.yaml")
		if _, err := Load(); err == nil || !containsErr(err, "HARVEST_CHANNEL_IDS") {
			t.Fatalf("expected channel validation error, got: %v", err)
		}
	})
}

// --- helpers ---

func TestHelpers_trimAll_and_normalizeBasePath(t *testing.T) {
	if out := trimAll(nil); out != nil {
		t.Fatalf("trimAll nil should return nil")
	}
	in := []string{" a", " ", "b ", "  c  ", ""}
	want := []string{"a", "b", "c"}
	if got := trimAll(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("trimAll mismatch: got %#v want %#v", got, want)
	}

	if normalizeBasePath("") != "/" {
		t.Fatalf("normalizeBasePath empty -> '/' failed")
	}
	if normalizeBasePath("v1") != "/v1" {
		t.Fatalf("normalizeBasePath missing leading slash failed")
	}
	if normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath trailing slash trim failed")
	}
	if normalizeBasePath(" / ") != "/" {
		t.Fatalf("normalizeBasePath whitespace failed")
	}
}

// Ensure tests don't inherit env from the shell.
func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "DIRECTORY_URL", "DIRECTORY_FIXTURE", "HARVEST_CHANNEL_IDS", "DB_DRIVER", "DB_DSN"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
