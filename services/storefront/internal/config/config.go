package config

import (
	"fmt"
	"os"
	"time"

	pkgconfig "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/config"
)

// Cart store backends.
const (
	CartStoreRedis  = "redis"
	CartStoreMemory = "memory"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	InstanceID  string `env:"STOREFRONT_INSTANCE_ID"`

	// HTTP server
	HTTPPort        int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8081"`
	RequestTimeout  time.Duration `env:"STOREFRONT_REQUEST_TIMEOUT" envDefault:"15s"`
	SSEHeartbeat    time.Duration `env:"STOREFRONT_SSE_HEARTBEAT" envDefault:"15s"`
	SessionMaxAge   time.Duration `env:"STOREFRONT_SESSION_MAX_AGE" envDefault:"720h"`
	SessionSecure   bool          `env:"STOREFRONT_SESSION_SECURE" envDefault:"false"`
	CORSOrigins     []string      `env:"STOREFRONT_CORS_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	ReturnURL       string        `env:"STOREFRONT_RETURN_URL" envDefault:"http://localhost:5173/confirmation"`
	ShutdownTimeout time.Duration `env:"STOREFRONT_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Cart store
	CartStore string        `env:"CART_STORE" envDefault:"redis"`
	CartTTL   time.Duration `env:"CART_TTL" envDefault:"720h"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Shop API
	ShopAPIURL     string        `env:"SHOPAPI_URL" envDefault:"http://localhost:8080"`
	ShopAPITimeout time.Duration `env:"SHOPAPI_TIMEOUT" envDefault:"10s"`

	// Confirmation poller
	PollInterval          time.Duration `env:"STOREFRONT_POLL_INTERVAL" envDefault:"2s"`
	PollTimeout           time.Duration `env:"STOREFRONT_POLL_TIMEOUT" envDefault:"30s"`
	PollRetryServerErrors bool          `env:"STOREFRONT_POLL_RETRY_SERVER_ERRORS" envDefault:"false"`

	// Circuit Breaker
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from STOREFRONT_CONFIG_FILE (if set) and the
// environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFile(os.Getenv("STOREFRONT_CONFIG_FILE"), cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CartStore != CartStoreRedis && c.CartStore != CartStoreMemory {
		return fmt.Errorf("CART_STORE must be %q or %q, got %q", CartStoreRedis, CartStoreMemory, c.CartStore)
	}
	if c.ShopAPIURL == "" {
		return fmt.Errorf("SHOPAPI_URL is required")
	}
	if c.PollInterval <= 0 || c.PollTimeout <= 0 {
		return fmt.Errorf("poll interval and timeout must be positive")
	}
	if c.PollInterval >= c.PollTimeout {
		return fmt.Errorf("STOREFRONT_POLL_INTERVAL (%s) must be shorter than STOREFRONT_POLL_TIMEOUT (%s)", c.PollInterval, c.PollTimeout)
	}
	if c.CartTTL <= 0 {
		return fmt.Errorf("CART_TTL must be positive")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// WriteTimeout is the HTTP server write timeout. It leaves room for the
// confirmation request, which can stay open for the whole poll deadline.
func (c *Config) WriteTimeout() time.Duration {
	return c.PollTimeout + 15*time.Second
}
