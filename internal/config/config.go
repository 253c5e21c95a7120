// Package config loads the dispute API's settings from environment
// variables. Every knob has a default so a bare process starts, and Load
// rejects combinations that would misbehave at runtime (inverted settlement
// windows, zero timeouts, malformed currency codes).
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig lists the browser origins allowed to call the API. Empty means
// allow all.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig carries the transport-hardening knobs.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig carries the OpenTelemetry exporter settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-dispute-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath string // SQLite path

	// Dispute rules
	BaseCurrency      string  // bank accounting currency (ISO 4217)
	MinDisputeAmount  float64 // below this a write-off is recommended
	SettlementMinDays int     // lower bound of the normal settlement window
	SettlementMaxDays int     // upper bound before escalation

	// Classification service
	AIAPIKey      string        // AI_API_KEY
	AIBaseURL     string        // AI_BASE_URL (override for tests/proxies)
	AIModel       string        // AI_MODEL (text judgments)
	AIVisionModel string        // AI_VISION_MODEL (image judgments)
	AITimeout     time.Duration // per-call budget

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad is Load for main: it panics on a validation error so a
// misconfigured process never starts serving.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, fills defaults, normalizes the result, and
// validates it. The returned Config is ready to wire into the server even
// when err is non-nil; callers should still abort on error.
func Load() (Config, error) {
	cfg := fromEnv()
	cfg.normalize()
	return cfg, cfg.validate()
}

func fromEnv() Config {
	return Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "app.db"),

		// Dispute rules
		BaseCurrency:      strings.ToUpper(getenv("BASE_CURRENCY", "EUR")),
		MinDisputeAmount:  getfloat("MIN_DISPUTE_AMOUNT", 5.0),
		SettlementMinDays: getint("SETTLEMENT_MIN_DAYS", 3),
		SettlementMaxDays: getint("SETTLEMENT_MAX_DAYS", 21),

		// Classification service
		AIAPIKey:      getenv("AI_API_KEY", ""),
		AIBaseURL:     getenv("AI_BASE_URL", ""),
		AIModel:       getenv("AI_MODEL", "gpt-4o-mini"),
		AIVisionModel: getenv("AI_VISION_MODEL", "gpt-4o"),
		AITimeout:     getdur("AI_TIMEOUT", 60*time.Second),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-dispute-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}
}

func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if c.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if len(c.BaseCurrency) != 3 {
		return errors.New("BASE_CURRENCY must be a 3-letter ISO code")
	}
	if c.MinDisputeAmount < 0 {
		return errors.New("MIN_DISPUTE_AMOUNT must be >= 0")
	}
	if c.SettlementMinDays < 0 || c.SettlementMaxDays <= c.SettlementMinDays {
		return errors.New("settlement window must satisfy 0 <= min < max days")
	}
	if c.AITimeout <= 0 {
		return errors.New("AI_TIMEOUT must be > 0")
	}
	if c.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if c.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if c.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if c.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// Env readers. Unset and empty both fall back to the default; so do values
// that fail to parse, keeping a typo in one variable from taking the process
// down for the wrong reason.

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getbool(k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty entries. Returns nil for an empty input.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath forces a leading '/' and strips trailing slashes, keeping
// "/" itself intact.
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
