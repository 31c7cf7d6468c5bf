// Package config loads server configuration from an optional YAML file,
// with environment variables (optionally via a .env file) taking
// precedence.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is everything the composition root needs.
type Config struct {
	Addr           string `yaml:"addr"`
	LogLevel       string `yaml:"log_level"`
	PersistenceURL string `yaml:"persistence_url"`
	MatchmakingURL string `yaml:"matchmaking_url"`
	TournamentURL  string `yaml:"tournament_url"`
}

func defaults() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
	}
}

// Load reads the YAML file at path (skipped when empty or missing), then
// applies .env and environment overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	// A missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	overrideString(&cfg.Addr, "PONGD_ADDR")
	overrideString(&cfg.LogLevel, "PONGD_LOG_LEVEL")
	overrideString(&cfg.PersistenceURL, "PONGD_PERSISTENCE_URL")
	overrideString(&cfg.MatchmakingURL, "PONGD_MATCHMAKING_URL")
	overrideString(&cfg.TournamentURL, "PONGD_TOURNAMENT_URL")

	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
