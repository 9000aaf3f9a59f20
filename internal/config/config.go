package config

import (
	"os"
	"time"

	"quiz-buzzer-service/internal/domain"
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
		// Roster is the number of fixed player slots per session.
		Roster int `yaml:"roster"`
		// SetTTL bounds how long question sets stay cached.
		SetTTL string `yaml:"setTTL"`
		// Settings overrides individual policy defaults.
		Settings domain.QuizSettingPatch `yaml:"settings"`
	} `yaml:"quiz"`
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

// RosterSize returns the configured roster, falling back to the controller's
// six buttons.
func (c Config) RosterSize() int {
	if c.Quiz.Roster > 0 {
		return c.Quiz.Roster
	}
	return 6
}

// QuizDefaults merges configured setting overrides over the built-in defaults.
func (c Config) QuizDefaults() (domain.QuizSetting, error) {
	settings := domain.DefaultSettings()
	if err := c.Quiz.Settings.Apply(&settings); err != nil {
		return domain.QuizSetting{}, err
	}
	return settings, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
