package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the microlith.
type Config struct {
	Port        string
	APIToken    string
	DBPath      string
	NATSPort    int
	NATSDataDir string
	LogLevel    string
	LogFormat   string

	// EnvFileLoaded reports whether a .env file was found and applied.
	EnvFileLoaded bool
}

func Default() *Config {
	return &Config{
		Port:        "8080",
		APIToken:    "herdwatch-dev-token",
		DBPath:      "./db/herdwatch.db",
		NATSPort:    4222,
		NATSDataDir: "./data/nats",
		LogLevel:    "info",
		LogFormat:   "json",
	}
}

// Load reads an optional .env file, then overlays environment variables on
// the defaults. Variables already set in the process win over .env.
func Load(envFiles ...string) (*Config, error) {
	cfg := Default()
	if err := godotenv.Load(envFiles...); err == nil {
		cfg.EnvFileLoaded = true
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("API_BEARER_TOKEN"); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("NATS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid NATS_PORT %q: %w", v, err)
		}
		cfg.NATSPort = port
	}
	if v := os.Getenv("NATS_DATA_DIR"); v != "" {
		cfg.NATSDataDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg, nil
}
