// Package config contains everything related to configuration
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath    string
	SettingsPath    string
	APIBaseURL      string
	ProductCode     string
	HTTPTimeout     time.Duration
	RefreshInterval time.Duration
	ChartHours      int
}

// Default values
const (
	defaultAPIBaseURL      = "https://api.octopus.energy/v1"
	defaultProductCode     = "AGILE-24-10-01"
	defaultHTTPTimeout     = 30 * time.Second
	defaultRefreshInterval = time.Minute
	defaultChartHours      = 24
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		DatabasePath:    getEnvString("DATABASE_PATH", getDefaultDatabasePath()),
		SettingsPath:    getEnvString("SETTINGS_PATH", getDefaultSettingsPath()),
		APIBaseURL:      getEnvString("API_BASE_URL", defaultAPIBaseURL),
		ProductCode:     getEnvString("PRODUCT_CODE", defaultProductCode),
		HTTPTimeout:     getEnvDuration("HTTP_TIMEOUT", defaultHTTPTimeout),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", defaultRefreshInterval),
		ChartHours:      getEnvInt("CHART_HOURS", defaultChartHours),
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	// Ensure settings directory exists
	if err := ensureDir(filepath.Dir(cfg.SettingsPath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "agile-dashboard", ".env"),
			filepath.Join(home, ".agile-dashboard", ".env"),
		)
	}

	return paths
}

// getDefaultDatabasePath returns the default path for the SQLite database.
func getDefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "rates.db"
	}
	return filepath.Join(home, ".config", "agile-dashboard", "rates.db")
}

// getDefaultSettingsPath returns the default path for the settings JSON file.
func getDefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "settings.json"
	}
	return filepath.Join(home, ".config", "agile-dashboard", "settings.json")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
