package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the portfolio client
type Config struct {
	API     APIConfig     `toml:"api"`
	Sync    SyncConfig    `toml:"sync"`
	Logging LoggingConfig `toml:"logging"`
}

// APIConfig holds portfolio service connection settings
type APIConfig struct {
	BaseURL   string   `toml:"base_url"`
	Timeout   Duration `toml:"timeout"`
	RateLimit int      `toml:"rate_limit"` // Requests per second, 0 disables limiting
}

// SyncConfig holds synchronization settings
type SyncConfig struct {
	HistoryDays int `toml:"history_days"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration read from TOML as a string such as "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:5000/api",
			Timeout:   Duration(30 * time.Second),
			RateLimit: 5,
		},
		Sync: SyncConfig{
			HistoryDays: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the defaults, an optional TOML file named by
// PORTFOLIO_CONFIG, and environment variables including a .env file, in that order
// of increasing precedence.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := Default()

	if path := os.Getenv("PORTFOLIO_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) error {
	config.API.BaseURL = getEnv("PORTFOLIO_API_URL", config.API.BaseURL)
	config.Logging.Level = getEnv("LOG_LEVEL", config.Logging.Level)

	if v := os.Getenv("PORTFOLIO_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PORTFOLIO_API_TIMEOUT %q: %w", v, err)
		}
		config.API.Timeout = Duration(d)
	}

	if v := os.Getenv("PORTFOLIO_API_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORTFOLIO_API_RATE_LIMIT %q: %w", v, err)
		}
		config.API.RateLimit = n
	}

	if v := os.Getenv("PORTFOLIO_HISTORY_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid PORTFOLIO_HISTORY_DAYS %q: must be a positive integer", v)
		}
		config.Sync.HistoryDays = n
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
