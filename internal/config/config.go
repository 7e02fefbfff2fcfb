package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/sarthakastic/storefront/internal/fakestore"
	pkgconfig "github.com/sarthakastic/storefront/pkg/config"
)

// Environment variables that carry the catalog base URL, in precedence order.
var baseURLKeys = []string{"API_BASE_URL", "API_URL"}

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Remote catalog. BaseURL is resolved from API_BASE_URL, then API_URL.
	BaseURL            string
	BaseURLSource      string
	UpstreamTimeout    time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	UpstreamMaxRetries int           `env:"UPSTREAM_MAX_RETRIES" envDefault:"2"`

	// Circuit breaker around the remote catalog
	BreakerTimeout      time.Duration `env:"UPSTREAM_BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerInterval     time.Duration `env:"UPSTREAM_BREAKER_INTERVAL" envDefault:"60s"`
	BreakerFailureRatio float64       `env:"UPSTREAM_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests  uint32        `env:"UPSTREAM_BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Session behaviour
	SearchDebounce time.Duration `env:"SEARCH_DEBOUNCE" envDefault:"500ms"`
	PageWait       time.Duration `env:"PAGE_WAIT" envDefault:"2s"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	SessionCookie  string        `env:"SESSION_COOKIE" envDefault:"sid"`
	ThemeTTL       time.Duration `env:"THEME_TTL" envDefault:"720h"`
	CookieSecure   bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`

	// Redis
	RedisEnabled    bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass       string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`

	// Kafka
	KafkaEnabled   bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers   []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID   string        `env:"KAFKA_GROUP_ID" envDefault:"storefront"`
	IdempotencyTTL time.Duration `env:"KAFKA_IDEMPOTENCY_TTL" envDefault:"24h"`

	// Edge
	RateLimitRPS       float64  `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" envDefault:"100"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Observability
	OTELEnabled    bool     `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string   `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64  `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	MetricsCIDRs   []string `env:"METRICS_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16" envSeparator:","`
	PprofCIDRs     []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}

	if v, key, ok := pkgconfig.FirstSet(baseURLKeys...); ok {
		cfg.BaseURL, cfg.BaseURLSource = v, key
	} else {
		cfg.BaseURL = fakestore.DefaultBaseURL
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UsingFallbackBaseURL reports whether no base URL variable was set.
func (c *Config) UsingFallbackBaseURL() bool {
	return c.BaseURLSource == ""
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid catalog base URL %q: must be an absolute http(s) URL", c.BaseURL)
	}
	if c.UpstreamMaxRetries < 0 {
		return fmt.Errorf("UPSTREAM_MAX_RETRIES must not be negative")
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("UPSTREAM_BREAKER_FAILURE_RATIO must be in (0.0, 1.0]")
	}
	if c.SearchDebounce <= 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE must be positive")
	}
	if c.PageWait <= 0 {
		return fmt.Errorf("PAGE_WAIT must be positive")
	}
	if c.SessionTTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be at least 1m")
	}
	if c.SessionCookie == "" {
		return fmt.Errorf("SESSION_COOKIE is required")
	}
	if c.ThemeTTL < c.SessionTTL {
		return fmt.Errorf("THEME_TTL must be at least SESSION_TTL")
	}
	if c.CatalogCacheTTL < 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must not be negative")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}
