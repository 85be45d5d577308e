package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

// Base URLs for the two Pesapal environments.
const (
	SandboxBaseURL    = "https://cybqa.pesapal.com/pesapalv3/api"
	ProductionBaseURL = "https://pay.pesapal.com/v3/api"
)

// Defaults applied when the corresponding field is left zero.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
)

// Config carries the credentials and transport policy for one Pesapal
// client. Zero values for BaseURL, Timeout and RetryBaseDelay are replaced
// with the documented defaults by Validate.
type Config struct {
	ConsumerKey    string        `koanf:"consumer_key" validate:"required"`
	ConsumerSecret string        `koanf:"consumer_secret" validate:"required"`
	BaseURL        string        `koanf:"base_url"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxRetries     int           `koanf:"max_retries"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
}

// Load reads configuration from PESAPAL_-prefixed environment variables.
// A .env file in the working directory is honored. MaxRetries defaults to
// DefaultMaxRetries when the variable is absent so that an explicit 0
// still means "no retries".
func Load() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider("PESAPAL_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PESAPAL_"))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if !k.Exists("max_retries") {
		cfg.MaxRetries = DefaultMaxRetries
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the configuration (defaults, trailing-slash strip)
// and checks its invariants.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = SandboxBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("base_url %q is not a valid absolute http(s) URL", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("retry_base_delay must not be negative, got %s", c.RetryBaseDelay)
	}
	return nil
}
