package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		// CacheTTL bounds how stale a served question list may be.
		CacheTTL string `yaml:"cache_ttl"`
		// FeedbackDelay paces the gap between answer feedback and the
		// next question.
		FeedbackDelay string `yaml:"feedback_delay"`
	} `yaml:"quiz"`
	Bot struct {
		// AdminIDs may author tests and see the admin panel; the first
		// entry also receives completion notices.
		AdminIDs []int64 `yaml:"admin_ids"`
		// Name appears in deep links of channel announcements.
		Name string `yaml:"name"`
	} `yaml:"bot"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty
// or malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
