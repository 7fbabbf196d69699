package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRateLimit = errors.New("rateLimit must be greater than zero")
	ErrInvalidLogLevel  = errors.New("unsupported log level")
	ErrInvalidLogFormat = errors.New("unsupported log format")
)

// Config holds the run options shared by every command.
type Config struct {
	BaseURL    string        `koanf:"baseURL"`
	RateLimit  float64       `koanf:"rateLimit"`
	HeaderFile string        `koanf:"headerFile"`
	Logging    LoggingConfig `koanf:"logging"`
	Report     ReportConfig  `koanf:"report"`
}

// LoggingConfig selects the log level and encoder.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ReportConfig controls what is written once a run is over.
type ReportConfig struct {
	Dir         string `koanf:"dir"`
	JUnit       bool   `koanf:"junit"`
	JSON        bool   `koanf:"json"`
	MetricsFile string `koanf:"metricsFile"`
	Color       bool   `koanf:"color"`
}

// DefaultConfig returns the values used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		RateLimit: 1,
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Report: ReportConfig{
			Dir:   "reports",
			Color: true,
		},
	}
}

// Validate rejects settings the run cannot work with.
func (c Config) Validate() error {
	if c.RateLimit <= 0 {
		return fmt.Errorf("config: %w, is %v", ErrInvalidRateLimit, c.RateLimit)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("config: %w %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json", "":
	default:
		return fmt.Errorf("config: %w %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	return nil
}
