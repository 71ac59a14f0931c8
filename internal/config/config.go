package config

import (
	"os"
	"strconv"
	"time"

	"shrimp/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Model    ModelConfig
	Server   ServerConfig
	Schema   SchemaConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// ModelConfig holds inference service settings
type ModelConfig struct {
	URL     string
	Timeout time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// SchemaConfig holds the feature schema artifact location
type SchemaConfig struct {
	File string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}

	modelConfig, err := loadModelConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load model configuration")
	}

	config := &Config{
		Database: *dbConfig,
		Model:    *modelConfig,
		Server: ServerConfig{
			Port: getEnvOrDefault("SERVER_PORT", "8080"),
		},
		Schema: SchemaConfig{
			File: getEnvOrDefault("SCHEMA_FILE", "schema/columns_data.json"),
		},
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	return &DatabaseConfig{
		URL:          url,
		MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
	}, nil
}

func loadModelConfig() (*ModelConfig, error) {
	url := os.Getenv("MODEL_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("MODEL_URL is required")
	}

	timeoutSecs := getEnvIntOrDefault("MODEL_TIMEOUT_SECONDS", 30)

	return &ModelConfig{
		URL:     url,
		Timeout: time.Duration(timeoutSecs) * time.Second,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
