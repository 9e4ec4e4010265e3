package config

import (
	"fmt"
	"os"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database      DatabaseConfig
	Import        ImportConfig
	Observability ObservabilityConfig
	Watch         WatchConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// ImportConfig tunes the import pipeline.
type ImportConfig struct {
	BatchSize           int
	MinConfidence       float64
	MaxErrorPercentage  float64
	SampleSize          int
	FallbackMode        string
	FallbackName        string
	DetectionSkipLimit  int
	LinkExistingByFuzzy bool
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
	LogFormat      string
	LogLevel       string
}

// WatchConfig drives the directory watcher.
type WatchConfig struct {
	Schedule string
	Dir      string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "pos-import-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns: int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
		},
		Import: ImportConfig{
			BatchSize:           getEnvAsInt("IMPORT_BATCH_SIZE", 500),
			MinConfidence:       getEnvAsFloat("IMPORT_MIN_CONFIDENCE", 0.3),
			MaxErrorPercentage:  getEnvAsFloat("IMPORT_MAX_ERROR_PERCENTAGE", 10.0),
			SampleSize:          getEnvAsInt("IMPORT_SAMPLE_SIZE", 20),
			FallbackMode:        getEnv("IMPORT_CUSTOMER_FALLBACK_MODE", "walk_in"),
			FallbackName:        getEnv("IMPORT_CUSTOMER_FALLBACK_NAME", ""),
			DetectionSkipLimit:  getEnvAsInt("IMPORT_DETECTION_SKIP_LIMIT", 20),
			LinkExistingByFuzzy: getEnvAsBool("IMPORT_LINK_EXISTING", true),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			LogFormat:      getEnv("LOG_FORMAT", "text"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
		},
		Watch: WatchConfig{
			Schedule: getEnv("WATCH_SCHEDULE", "*/5 * * * *"),
			Dir:      getEnv("WATCH_DIR", ""),
		},
	}

	if cfg.Import.MinConfidence < 0 || cfg.Import.MinConfidence > 1 {
		return nil, fmt.Errorf("IMPORT_MIN_CONFIDENCE must be between 0 and 1, got %g", cfg.Import.MinConfidence)
	}
	if cfg.Import.MaxErrorPercentage < 0 || cfg.Import.MaxErrorPercentage > 100 {
		return nil, fmt.Errorf("IMPORT_MAX_ERROR_PERCENTAGE must be between 0 and 100, got %g", cfg.Import.MaxErrorPercentage)
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
