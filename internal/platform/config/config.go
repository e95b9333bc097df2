// Package config loads application configuration from environment variables.
// All variables use the ADMIN_ prefix.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server           ServerConfig
	Database         DatabaseConfig
	Cache            CacheConfig
	Notify           NotifyConfig
	CORS             CORSConfig
	Log              LogConfig
	SeedPath         string
	StrictReferences bool
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL settings for the activity log.
// An empty URL disables it.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis settings. An empty URL disables pub/sub notifications.
type CacheConfig struct {
	URL string
}

// NotifyConfig holds notification fan-out settings.
type NotifyConfig struct {
	Channel string
}

// CORSConfig lists the origins allowed to call the JSON API.
type CORSConfig struct {
	Origins []string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// LoadDotEnv reads a .env file into the environment when one exists.
// Variables already set are left alone.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// Load reads configuration from environment variables with ADMIN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("ADMIN_SERVER_PORT", 8080),
			Host: envStr("ADMIN_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("ADMIN_DATABASE_URL", ""),
			MaxConns: envInt("ADMIN_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("ADMIN_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL: envStr("ADMIN_CACHE_URL", ""),
		},
		Notify: NotifyConfig{
			Channel: envStr("ADMIN_NOTIFY_CHANNEL", "admin:notifications"),
		},
		CORS: CORSConfig{
			Origins: envList("ADMIN_CORS_ORIGINS", []string{"http://localhost:5173"}),
		},
		Log: LogConfig{
			Level:  envStr("ADMIN_LOG_LEVEL", "info"),
			Format: envStr("ADMIN_LOG_FORMAT", "json"),
		},
		SeedPath:         envStr("ADMIN_SEED_PATH", ""),
		StrictReferences: envBool("ADMIN_STRICT_REFERENCES", false),
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("ADMIN_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("ADMIN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	for _, o := range c.CORS.Origins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("ADMIN_CORS_ORIGINS entry %q must start with http:// or https://", o)
		}
	}

	if c.Database.URL != "" && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("ADMIN_DATABASE_MIN_CONNS (%d) exceeds ADMIN_DATABASE_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	return nil
}

// HasDatabase returns true if the activity log should be persisted.
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasCache returns true if notifications should also go out over Redis.
func (c *Config) HasCache() bool {
	return c.Cache.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
