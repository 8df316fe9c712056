package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	// An all-zero policy means the section was omitted entirely; start from
	// the defaults instead of clamping zeros up to the legal minimums.
	var zero = cfg.Retry.Policy
	if zero.MaxAttempts == 0 && zero.BaseDelay == 0 && zero.MaxDelay == 0 &&
		zero.Multiplier == 0 && zero.JitterFraction == 0 {
		cfg.Retry.Policy = domain.DefaultRetryPolicy()
	}
	cfg.Retry.Policy = cfg.Retry.Policy.Normalize()

	if cfg.Retry.RecordTTL == 0 {
		cfg.Retry.RecordTTL = 24 * time.Hour
	}
	if cfg.Platform.Timeout == 0 {
		cfg.Platform.Timeout = 30 * time.Second
	}
}
