// Package config loads countdown service settings from the environment and
// an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds service settings. YAML keys override environment values.
type Config struct {
	Port         string        `yaml:"port"`
	NATSURL      string        `yaml:"nats_url"`
	NATSSubject  string        `yaml:"nats_subject"`
	TickInterval time.Duration `yaml:"tick_interval"`
	Timezone     string        `yaml:"timezone"`
	LogLevel     string        `yaml:"log_level"`
	CompleteText string        `yaml:"complete_text"`
}

// NewConfigFromEnv reads the service environment variables (with defaults).
func NewConfigFromEnv() Config {
	interval, err := time.ParseDuration(getEnv("COUNTDOWN_TICK_INTERVAL", "1s"))
	if err != nil || interval <= 0 {
		interval = time.Second
	}

	return Config{
		Port:         getEnv("PORT", "8080"),
		NATSURL:      getEnv("NATS_URL", ""),
		NATSSubject:  getEnv("NATS_SUBJECT", "countdown"),
		TickInterval: interval,
		Timezone:     getEnv("COUNTDOWN_TIMEZONE", "Local"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CompleteText: getEnv("COUNTDOWN_COMPLETE_TEXT", "Countdown complete!"),
	}
}

// Load reads the environment and then overlays the YAML file at path, if any.
func Load(path string) (Config, error) {
	config := NewConfigFromEnv()
	if path == "" {
		return config, config.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, config.Validate()
}

// Validate checks values the environment defaults cannot repair.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Location is the zone used for dates without an offset.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Level is the zerolog level, falling back to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
