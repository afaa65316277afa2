package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/odyssey-erp/wms-console/internal/audit"
)

// Config holds runtime configuration for the console and the worker.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	TestMode          bool          `envconfig:"WMS_CONSOLE_TEST_MODE"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"45s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	WMSAPIURL     string        `envconfig:"WMS_API_URL" default:"http://localhost:8080"`
	WMSAPITimeout time.Duration `envconfig:"WMS_API_TIMEOUT" default:"30s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	AuditPGDSN string `envconfig:"AUDIT_PG_DSN"`
	AuditMode  string `envconfig:"AUDIT_MODE" default:"off"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"5"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	u, err := url.Parse(c.WMSAPIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("WMS_API_URL %q is not an absolute URL", c.WMSAPIURL)
	}
	switch c.AuditMode {
	case audit.ModeOff:
	case audit.ModeDirect, audit.ModeQueue:
		if c.AuditPGDSN == "" {
			return fmt.Errorf("AUDIT_MODE=%s requires AUDIT_PG_DSN", c.AuditMode)
		}
	default:
		return fmt.Errorf("AUDIT_MODE must be off, direct or queue, got %q", c.AuditMode)
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE cannot be negative")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
