package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Lock modes for record writes
const (
	LockNone  = "none"
	LockLocal = "local"
	LockRedis = "redis"
)

// AppConfig holds the RSVP service configuration
type AppConfig struct {
	Port    string
	DataDir string

	// DatabaseURL selects the relational backend when non-empty
	DatabaseURL string

	LogLevel  string
	LogFormat string

	LockMode    string
	LockTTL     time.Duration
	RedisHost   string
	RedisPort   string
	RedisPass   string
	KafkaBroker string
	KafkaTopic  string

	AtomicRewrite bool
}

// LoadAppConfig reads the configuration from environment variables
func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:        getEnv("RSVP_SERVICE_PORT", "8004"),
		DataDir:     getEnv("DATA_DIR", "data"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		LockMode:    strings.ToLower(getEnv("LOCK_MODE", LockNone)),
		RedisHost:   getEnv("REDIS_HOST", "localhost"),
		RedisPort:   getEnv("REDIS_PORT", "6379"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		KafkaBroker: os.Getenv("KAFKA_BROKER"),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "rsvp-events"),
	}

	if cfg.DatabaseURL == "" && os.Getenv("DB_HOST") != "" {
		cfg.DatabaseURL = GetDatabaseConfig().GetDSN()
	}

	ttl, err := time.ParseDuration(getEnv("LOCK_TTL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCK_TTL: %w", err)
	}
	cfg.LockTTL = ttl

	switch cfg.LockMode {
	case LockNone, LockLocal, LockRedis:
	default:
		return nil, fmt.Errorf("invalid LOCK_MODE %q (expected none, local or redis)", cfg.LockMode)
	}

	if raw := os.Getenv("FILE_ATOMIC_REWRITE"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid FILE_ATOMIC_REWRITE: %w", err)
		}
		cfg.AtomicRewrite = v
	}

	return cfg, nil
}

// UsesDatabase reports whether the relational backend is selected
func (c *AppConfig) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
