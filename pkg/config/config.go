// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/backoffice/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Catalog       CatalogConfig
	Observability ObservabilityConfig
	Sweeper       SweeperConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig holds optional Redis configuration for distributed rate limiting
type RedisConfig struct {
	URL      string // empty disables the distributed limiter
	Password string
	DB       int
}

// CatalogConfig controls permission catalog seeding
type CatalogConfig struct {
	SeedPath  string // optional on-disk seed override; embedded seed otherwise
	WatchSeed bool   // reload the seed file on change
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// SweeperConfig holds schedules for the maintenance binary
type SweeperConfig struct {
	ExpirySchedule     string
	RetentionSchedule  string
	AuditRetentionDays int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("BACKOFFICE_HOST", "0.0.0.0"),
			Port:            getEnv("BACKOFFICE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("BACKOFFICE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("BACKOFFICE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("BACKOFFICE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("BACKOFFICE_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("BACKOFFICE_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("BACKOFFICE_POSTGRES_URL", "postgres://localhost/backoffice?sslmode=disable"),
			MaxOpenConns: getEnvInt("BACKOFFICE_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("BACKOFFICE_POSTGRES_IDLE_CONNS", 5),
			ConnLifetime: getEnvDuration("BACKOFFICE_POSTGRES_CONN_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("BACKOFFICE_REDIS_URL", ""),
			Password: getEnv("BACKOFFICE_REDIS_PASSWORD", ""),
			DB:       getEnvInt("BACKOFFICE_REDIS_DB", 0),
		},
		Catalog: CatalogConfig{
			SeedPath:  getEnv("BACKOFFICE_CATALOG_SEED", ""),
			WatchSeed: getEnvBool("BACKOFFICE_CATALOG_WATCH", false),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(strings.ToLower(getEnv("BACKOFFICE_LOG_LEVEL", "info"))),
			MetricsEnabled: getEnvBool("BACKOFFICE_METRICS_ENABLED", true),
		},
		Sweeper: SweeperConfig{
			ExpirySchedule:     getEnv("BACKOFFICE_EXPIRY_SCHEDULE", "0 * * * *"),
			RetentionSchedule:  getEnv("BACKOFFICE_RETENTION_SCHEDULE", "30 0 * * *"),
			AuditRetentionDays: getEnvInt("BACKOFFICE_AUDIT_RETENTION_DAYS", 365),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Catalog.WatchSeed && c.Catalog.SeedPath == "" {
		return fmt.Errorf("catalog seed watching requires BACKOFFICE_CATALOG_SEED")
	}
	if c.Sweeper.AuditRetentionDays <= 0 {
		return fmt.Errorf("audit retention must be positive")
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
