package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	HTTP     HTTPConfig
	Auth     AuthConfig
	Geocoder GeocoderConfig
	Sim      SimConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	Address string // listen address (e.g., ":8080")
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string // JWT signing secret
}

// GeocoderConfig contains geocoding service settings.
type GeocoderConfig struct {
	BaseURL     string // search endpoint; empty uses the public default
	CountryCode string // country restriction for candidates
}

// SimConfig contains position simulator settings.
type SimConfig struct {
	TickInterval       time.Duration
	StepFraction       float64
	ArrivalThresholdKm float64
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg, err := LoadWithDefaults()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "dev-secret-change-me" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	stepFraction, err := getEnvFloat("SIM_STEP_FRACTION", 0.15)
	if err != nil {
		return nil, err
	}
	if stepFraction <= 0 || stepFraction >= 1 {
		return nil, fmt.Errorf("SIM_STEP_FRACTION must be in (0,1), got %v", stepFraction)
	}
	tickMillis, err := getEnvInt("SIM_TICK_MILLIS", 2000)
	if err != nil {
		return nil, err
	}
	thresholdKm, err := getEnvFloat("SIM_ARRIVAL_THRESHOLD_KM", 0.05)
	if err != nil {
		return nil, err
	}

	return &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "tracker.db"),
		},
		HTTP: HTTPConfig{
			Address: getEnv("HTTP_ADDRESS", ":8080"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		},
		Geocoder: GeocoderConfig{
			BaseURL:     getEnv("GEOCODER_BASE_URL", ""),
			CountryCode: getEnv("GEOCODER_COUNTRY", "vn"),
		},
		Sim: SimConfig{
			TickInterval:       time.Duration(tickMillis) * time.Millisecond,
			StepFraction:       stepFraction,
			ArrivalThresholdKm: thresholdKm,
		},
	}, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

// getEnvFloat retrieves an environment variable as a float with a default fallback.
func getEnvFloat(key string, defaultVal float64) (float64, error) {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float for %s: %w", key, err)
		}
		return f, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, HTTP: %s, Geocoder: %s/%s, Auth: *** (masked) ***}",
		c.Database.Path, c.HTTP.Address, c.Geocoder.BaseURL, c.Geocoder.CountryCode)
}
