package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	ServerID      string // identity tag reported on GET / behind a load balancer
	Environment   string
	BaseURL       string // external base URL used in task poll links

	// Storage
	DatabasePath string

	// Cache TTLs, in seconds
	SnapshotTTL int // candidate pool snapshot
	ResultTTL   int // per-query search result

	// Async search workers
	WorkerCount   int
	QueueCapacity int

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		ServerID:      getEnv("SERVER_ID", "1"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		BaseURL:       getEnv("DOMAIN", "http://localhost"),

		DatabasePath: getEnv("DATABASE_PATH", "molecules.db"),

		SnapshotTTL: getEnvInt("SNAPSHOT_TTL", 300),
		ResultTTL:   getEnvInt("RESULT_TTL", 60),

		WorkerCount:   getEnvInt("WORKER_COUNT", 4),
		QueueCapacity: getEnvInt("QUEUE_CAPACITY", 64),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("QUEUE_CAPACITY must be at least 1")
	}
	if c.SnapshotTTL < 1 || c.ResultTTL < 1 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
