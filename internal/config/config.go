// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Remote services
	XAIBaseURL        string // Academic-risk prediction service
	EngagementBaseURL string // Engagement-tracker / schedule service
	HTTPTimeout       time.Duration

	// Transport retry policy (transport failures only; validation
	// failures are never retried)
	RetryMaxAttempts int
	RetryDelay       time.Duration

	// Local persistence
	DataDir string // Root for draft and history files

	// Orchestrator timing
	AutosaveDelay time.Duration // Quiet period before a form draft is persisted
	ToastTTL      time.Duration // How long an ephemeral toast stays visible

	// Observability
	OTLPEndpoint string // Empty disables tracing
}

const (
	DefaultXAIBaseURL        = "http://localhost:8000"
	DefaultEngagementBaseURL = "http://localhost:8002"
	DefaultEnv               = "development"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultDataDir           = ".edumind"
	DefaultHTTPTimeoutSec    = 30
	DefaultRetryMaxAttempts  = 2 // one retry
	DefaultRetryDelayMS      = 1000
	DefaultAutosaveDelayMS   = 2000
	DefaultToastTTLMS        = 3000
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Env:               getEnv("ENV", DefaultEnv),
		LogLevel:          getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:         getEnv("LOG_FORMAT", DefaultLogFormat),
		XAIBaseURL:        getEnv("XAI_API_URL", DefaultXAIBaseURL),
		EngagementBaseURL: getEnv("ENGAGEMENT_API_URL", DefaultEngagementBaseURL),
		HTTPTimeout:       time.Duration(getEnvInt64("HTTP_TIMEOUT", DefaultHTTPTimeoutSec)) * time.Second,
		RetryMaxAttempts:  int(getEnvInt64("RETRY_MAX_ATTEMPTS", DefaultRetryMaxAttempts)),
		RetryDelay:        time.Duration(getEnvInt64("RETRY_DELAY_MS", DefaultRetryDelayMS)) * time.Millisecond,
		DataDir:           getEnv("DATA_DIR", DefaultDataDir),
		AutosaveDelay:     time.Duration(getEnvInt64("AUTOSAVE_DELAY_MS", DefaultAutosaveDelayMS)) * time.Millisecond,
		ToastTTL:          time.Duration(getEnvInt64("TOAST_TTL_MS", DefaultToastTTLMS)) * time.Millisecond,
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if err := validateURL("XAI_API_URL", c.XAIBaseURL); err != nil {
		return err
	}
	if err := validateURL("ENGAGEMENT_API_URL", c.EngagementBaseURL); err != nil {
		return err
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	return nil
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
