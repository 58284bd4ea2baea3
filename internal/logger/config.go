package logger

import (
	"os"
	"strings"
)

// Config holds logger configuration
type Config struct {
	Level  Level
	Format string // "console" or "json"
	Caller bool   // Include caller information
}

// ConfigFromEnv creates a logger configuration from environment variables
func ConfigFromEnv() *Config {
	cfg := &Config{
		Level:  InfoLevel,
		Format: "console",
	}

	if levelStr := os.Getenv("RUNCLIENT_LOG_LEVEL"); levelStr != "" {
		cfg.Level = LevelFromString(levelStr)
	} else {
		// Fall back to RUNCLIENT_VERBOSITY if no explicit level is set
		switch os.Getenv("RUNCLIENT_VERBOSITY") {
		case "debug":
			cfg.Level = DebugLevel
		case "quiet":
			cfg.Level = ErrorLevel
		}
	}

	if format := os.Getenv("RUNCLIENT_LOG_FORMAT"); format != "" {
		cfg.Format = strings.ToLower(format)
	}

	cfg.Caller = os.Getenv("RUNCLIENT_LOG_CALLER") == "true"

	return cfg
}

// IsDevelopment returns true if the logger is configured for development mode
func (c *Config) IsDevelopment() bool {
	return c.Format != "json"
}
