package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	Port     string
	DBPath   string
	MediaDir string

	LogLevel    string
	LogPath     string
	MaxUploadMB int64
}

// LoadConfig loads configuration from environment variables with
// defaults. A .env file in the working directory is honored but never
// overrides variables already set in the environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "5000"),
		DBPath:      getEnv("DB_PATH", "tunecrate.db"),
		MediaDir:    getEnv("MEDIA_DIR", "media"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogPath:     getEnv("LOG_PATH", ""),
		MaxUploadMB: getEnvInt64("MAX_UPLOAD_MB", 64),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}
	if c.MediaDir == "" {
		errors = append(errors, "MEDIA_DIR cannot be empty")
	} else if err := os.MkdirAll(filepath.Clean(c.MediaDir), 0755); err != nil {
		errors = append(errors, fmt.Sprintf("MEDIA_DIR is not writable: %v", err))
	}
	if c.MaxUploadMB < 1 {
		errors = append(errors, "MAX_UPLOAD_MB must be at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
