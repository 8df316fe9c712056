package config

import (
	"fmt"
	"time"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
	platformclient "github.com/minhvu-dev/provisioner/internal/infra/platform"
	redisclient "github.com/minhvu-dev/provisioner/internal/infra/redis"
	"github.com/minhvu-dev/provisioner/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig          `yaml:"server"`
	Retry    RetryConfig           `yaml:"retry"`
	Redis    redisclient.Config    `yaml:"redis"`
	Database postgres.Config       `yaml:"database"`
	Platform platformclient.Config `yaml:"platform"`
	Logging  LoggingConfig         `yaml:"logging"`
}

// ServerConfig holds health/stats HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// RetryConfig holds the retry policy plus idempotency record settings.
type RetryConfig struct {
	Policy    domain.RetryPolicy
	RecordTTL time.Duration // idempotency record lifetime
}

type retryConfigRaw struct {
	Policy struct {
		MaxAttempts    int     `yaml:"max_attempts"`
		BaseDelay      string  `yaml:"base_delay"`
		MaxDelay       string  `yaml:"max_delay"`
		Multiplier     float64 `yaml:"backoff_multiplier"`
		JitterFraction float64 `yaml:"jitter_fraction"`
	} `yaml:"policy"`
	RecordTTL string `yaml:"record_ttl"`
}

// UnmarshalYAML parses duration fields from "2s" style strings, which
// yaml.v2 cannot decode into time.Duration directly.
func (c *RetryConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw retryConfigRaw
	if err := unmarshal(&raw); err != nil {
		return err
	}

	c.Policy.MaxAttempts = raw.Policy.MaxAttempts
	c.Policy.Multiplier = raw.Policy.Multiplier
	c.Policy.JitterFraction = raw.Policy.JitterFraction

	var err error
	if c.Policy.BaseDelay, err = parseDuration(raw.Policy.BaseDelay, "base_delay"); err != nil {
		return err
	}
	if c.Policy.MaxDelay, err = parseDuration(raw.Policy.MaxDelay, "max_delay"); err != nil {
		return err
	}
	if c.RecordTTL, err = parseDuration(raw.RecordTTL, "record_ttl"); err != nil {
		return err
	}
	return nil
}

func parseDuration(s, field string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	return d, nil
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
