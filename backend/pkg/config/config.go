package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"daydei-social/backend/internal/constants"
	apperrors "daydei-social/backend/pkg/errors"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreNeo4j    = "neo4j"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Notification backends
const (
	NotifyLog   = "log"
	NotifyNATS  = "nats"
	NotifyRedis = "redis"
)

// Ordering policies
const (
	OrderingDayParity = "day_parity"
	OrderingShuffle   = "shuffle"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string

	// Store
	StoreBackend  string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	PostgresDSN   string
	SQLitePath    string
	SeedFile      string

	// Notifications
	NotifyBackend   string
	NATSURL         string
	NATSStream      string
	RedisAddr       string
	RedisPassword   string
	RedisStream     string
	NotifyQueueSize int
	NotifyWorkers   int
	NotifyTimeout   time.Duration

	// Relations
	OrderingPolicy       string
	RecommendConcurrency int
	RandomListSize       int

	// HTTP
	IdentityHeader      string
	MutationRatePerSec  float64
	MutationBurst       int
	ShutdownGracePeriod time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", ""),
		StoreBackend:         strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		Neo4jURI:             getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:            getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:        getEnv("NEO4J_PASSWORD", "password"),
		PostgresDSN:          getEnv("POSTGRES_DSN", ""),
		SQLitePath:           getEnv("SQLITE_PATH", "daydei.db"),
		SeedFile:             getEnv("SEED_FILE", ""),
		NotifyBackend:        strings.ToLower(getEnv("NOTIFY_BACKEND", NotifyLog)),
		NATSURL:              getEnv("NATS_URL", "nats://localhost:4222"),
		NATSStream:           getEnv("NATS_STREAM", "NOTIFICATIONS"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisStream:          getEnv("REDIS_STREAM", "notifications"),
		NotifyQueueSize:      getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		NotifyWorkers:        getEnvInt("NOTIFY_WORKERS", 2),
		NotifyTimeout:        getEnvDuration("NOTIFY_TIMEOUT", 3*time.Second),
		OrderingPolicy:       strings.ToLower(getEnv("ORDERING_POLICY", OrderingDayParity)),
		RecommendConcurrency: getEnvInt("RECOMMEND_CONCURRENCY", constants.DefaultRecommendConcurrency),
		RandomListSize:       getEnvInt("RANDOM_LIST_SIZE", constants.DefaultRandomListSize),
		IdentityHeader:       getEnv("IDENTITY_HEADER", constants.DefaultIdentityHeader),
		MutationRatePerSec:   getEnvFloat("MUTATION_RATE_PER_SEC", 5),
		MutationBurst:        getEnvInt("MUTATION_BURST", 10),
		ShutdownGracePeriod:  getEnvDuration("SHUTDOWN_GRACE_PERIOD", 5*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StoreNeo4j:
		if c.Neo4jURI == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_USER")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return apperrors.NewConfigMissingRequired("POSTGRES_DSN")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return apperrors.NewConfigMissingRequired("SQLITE_PATH")
		}
	default:
		return apperrors.NewConfigValidationFailed("STORE_BACKEND", fmt.Sprintf("unknown backend %q", c.StoreBackend))
	}

	switch c.NotifyBackend {
	case NotifyLog:
	case NotifyNATS:
		if c.NATSURL == "" {
			return apperrors.NewConfigMissingRequired("NATS_URL")
		}
	case NotifyRedis:
		if c.RedisAddr == "" {
			return apperrors.NewConfigMissingRequired("REDIS_ADDR")
		}
	default:
		return apperrors.NewConfigValidationFailed("NOTIFY_BACKEND", fmt.Sprintf("unknown backend %q", c.NotifyBackend))
	}

	if c.OrderingPolicy != OrderingDayParity && c.OrderingPolicy != OrderingShuffle {
		return apperrors.NewConfigValidationFailed("ORDERING_POLICY", fmt.Sprintf("unknown policy %q", c.OrderingPolicy))
	}
	if c.RecommendConcurrency < 1 {
		return apperrors.NewConfigValidationFailed("RECOMMEND_CONCURRENCY", "must be at least 1")
	}
	if c.NotifyWorkers < 1 {
		return apperrors.NewConfigValidationFailed("NOTIFY_WORKERS", "must be at least 1")
	}
	if c.RandomListSize < 0 {
		return apperrors.NewConfigValidationFailed("RANDOM_LIST_SIZE", "cannot be negative")
	}
	if c.IdentityHeader == "" {
		return apperrors.NewConfigMissingRequired("IDENTITY_HEADER")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
