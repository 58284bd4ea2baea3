// Package config provides configuration management for runctl and the webhook receiver.
// Values come from an optional YAML file and environment variables, with sensible defaults.
package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Backland-Labs/runclient/internal/client"
	"github.com/Backland-Labs/runclient/internal/logger"
)

// Verbosity represents the output verbosity level
type Verbosity string

const (
	// VerbosityQuiet only reports errors
	VerbosityQuiet Verbosity = "quiet"
	// VerbosityNormal shows only essential output
	VerbosityNormal Verbosity = "normal"
	// VerbosityDebug provides full debug logging
	VerbosityDebug Verbosity = "debug"
)

// APIConfig holds settings for talking to the workflow service
type APIConfig struct {
	// Base is the service root; "/api" is appended. Empty means the hosted service.
	Base string `yaml:"base" env:"RUNCLIENT_API_BASE" env-description:"Workflow service base URL"`

	// Token is the bearer credential sent with every request
	Token string `yaml:"token" env:"RUNCLIENT_API_TOKEN" env-description:"Workflow service API token"`

	// Timeout bounds every single HTTP request
	Timeout time.Duration `yaml:"timeout" env:"RUNCLIENT_HTTP_TIMEOUT" env-default:"30s"`
}

// PollConfig controls synchronous runs
type PollConfig struct {
	Interval    time.Duration `yaml:"interval" env:"RUNCLIENT_POLL_INTERVAL" env-default:"1s"`
	MaxAttempts int           `yaml:"max_attempts" env:"RUNCLIENT_POLL_MAX_ATTEMPTS" env-default:"300"`
}

// WebhookConfig holds settings for the webhook receiver
type WebhookConfig struct {
	Port int    `yaml:"port" env:"RUNCLIENT_WEBHOOK_PORT" env-default:"3001"`
	Path string `yaml:"path" env:"RUNCLIENT_WEBHOOK_PATH" env-default:"/webhook"`
}

// Config holds all configuration
type Config struct {
	API       APIConfig     `yaml:"api"`
	Poll      PollConfig    `yaml:"poll"`
	Webhook   WebhookConfig `yaml:"webhook"`
	Verbosity Verbosity     `yaml:"verbosity" env:"RUNCLIENT_VERBOSITY" env-default:"normal"`
}

// Load reads configuration from path (if non-empty) and the environment, then validates it.
// Environment variables win over file values.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch c.Verbosity {
	case VerbosityQuiet, VerbosityNormal, VerbosityDebug:
	default:
		return fmt.Errorf("RUNCLIENT_VERBOSITY must be one of: quiet, normal, debug; got: %s", c.Verbosity)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("RUNCLIENT_HTTP_TIMEOUT must be positive, got: %s", c.API.Timeout)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("RUNCLIENT_POLL_INTERVAL must be positive, got: %s", c.Poll.Interval)
	}
	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("RUNCLIENT_POLL_MAX_ATTEMPTS must be positive, got: %d", c.Poll.MaxAttempts)
	}
	if c.Webhook.Port < 1 || c.Webhook.Port > 65535 {
		return fmt.Errorf("RUNCLIENT_WEBHOOK_PORT must be between 1 and 65535, got: %d", c.Webhook.Port)
	}
	if c.Webhook.Path == "" || c.Webhook.Path[0] != '/' {
		return fmt.Errorf("RUNCLIENT_WEBHOOK_PATH must start with /, got: %q", c.Webhook.Path)
	}
	return nil
}

// IsDebug returns true if verbosity is debug
func (c *Config) IsDebug() bool {
	return c.Verbosity == VerbosityDebug
}

// LoggerConfig derives logger settings. RUNCLIENT_LOG_LEVEL wins over verbosity.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.ConfigFromEnv()
	if os.Getenv("RUNCLIENT_LOG_LEVEL") != "" {
		return lc
	}
	switch c.Verbosity {
	case VerbosityDebug:
		lc.Level = logger.DebugLevel
	case VerbosityQuiet:
		lc.Level = logger.ErrorLevel
	}
	return lc
}

// ClientOptions maps the configuration onto client options
func (c *Config) ClientOptions() []client.Option {
	return []client.Option{
		client.WithAPIBase(c.API.Base),
		client.WithAPIToken(c.API.Token),
		client.WithHTTPClient(&http.Client{Timeout: c.API.Timeout}),
		client.WithPollConfig(client.PollConfig{
			Interval:    c.Poll.Interval,
			MaxAttempts: c.Poll.MaxAttempts,
		}),
	}
}
