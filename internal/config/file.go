package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// applyFile overlays values from a YAML file onto the config. Only keys
// present in the file override the environment-derived values.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var overlay struct {
		App       *AppConfig       `yaml:"app"`
		Server    *ServerConfig    `yaml:"server"`
		Database  *DatabaseConfig  `yaml:"database"`
		Redis     *RedisConfig     `yaml:"redis"`
		Log       *LogConfig       `yaml:"log"`
		RateLimit *RateLimitConfig `yaml:"rate_limit"`
		Worker    *WorkerConfig    `yaml:"worker"`
		Alerting  *AlertingConfig  `yaml:"alerting"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if overlay.App != nil {
		cfg.App = *overlay.App
	}
	if overlay.Server != nil {
		cfg.Server = *overlay.Server
	}
	if overlay.Database != nil {
		cfg.Database = *overlay.Database
	}
	if overlay.Redis != nil {
		cfg.Redis = *overlay.Redis
	}
	if overlay.Log != nil {
		cfg.Log = *overlay.Log
	}
	if overlay.RateLimit != nil {
		cfg.RateLimit = *overlay.RateLimit
	}
	if overlay.Worker != nil {
		cfg.Worker = *overlay.Worker
	}
	if overlay.Alerting != nil {
		cfg.Alerting = *overlay.Alerting
	}
	return nil
}
