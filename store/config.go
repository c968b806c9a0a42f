package store

import (
	"os"
	"strconv"
	"time"

	"github.com/sweetpotato0/bookaudit/config"
)

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI                    string
	Database               string
	ChunksCollection       string
	AgentsCollection       string
	ResultsCollection      string
	AgentResultsCollection string
}

// DefaultMongoConfig returns default MongoDB configuration.
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		URI:                    "mongodb://localhost:27017",
		Database:               "bookaudit",
		ChunksCollection:       "chunks",
		AgentsCollection:       "agents",
		ResultsCollection:      "results",
		AgentResultsCollection: "agent_results",
	}
}

// MongoConfigFromEnv loads MongoDB configuration from environment variables,
// falling back to defaults for anything unset.
func MongoConfigFromEnv() MongoConfig {
	def := DefaultMongoConfig()
	return MongoConfig{
		URI:                    getEnv("BOOKAUDIT_MONGO_URI", def.URI),
		Database:               getEnv("BOOKAUDIT_MONGO_DB", def.Database),
		ChunksCollection:       getEnv("BOOKAUDIT_MONGO_CHUNKS", def.ChunksCollection),
		AgentsCollection:       getEnv("BOOKAUDIT_MONGO_AGENTS", def.AgentsCollection),
		ResultsCollection:      getEnv("BOOKAUDIT_MONGO_RESULTS", def.ResultsCollection),
		AgentResultsCollection: getEnv("BOOKAUDIT_MONGO_AGENT_RESULTS", def.AgentResultsCollection),
	}
}

// Validate checks the MongoDB configuration.
func (c MongoConfig) Validate() error {
	v := config.NewValidator()
	v.RequireNonEmpty("uri", c.URI)
	v.RequireNonEmpty("database", c.Database)
	v.RequireNonEmpty("chunksCollection", c.ChunksCollection)
	v.RequireNonEmpty("agentsCollection", c.AgentsCollection)
	v.RequireNonEmpty("resultsCollection", c.ResultsCollection)
	return v.Error()
}

// RedisConfig holds Redis connection configuration for the status cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "bookaudit:status:",
		TTL:    24 * time.Hour,
	}
}

// RedisConfigFromEnv loads Redis configuration from environment variables.
func RedisConfigFromEnv() RedisConfig {
	def := DefaultRedisConfig()
	return RedisConfig{
		Addr:     getEnv("BOOKAUDIT_REDIS_ADDR", def.Addr),
		Password: getEnv("BOOKAUDIT_REDIS_PASSWORD", def.Password),
		DB:       getEnvInt("BOOKAUDIT_REDIS_DB", def.DB),
		Prefix:   getEnv("BOOKAUDIT_REDIS_PREFIX", def.Prefix),
		TTL:      getEnvDuration("BOOKAUDIT_REDIS_TTL", def.TTL),
	}
}

// Validate checks the Redis configuration.
func (c RedisConfig) Validate() error {
	v := config.NewValidator()
	v.RequireNonEmpty("addr", c.Addr)
	v.ValidateDBNumber("db", c.DB)
	return v.Error()
}

// Helper functions for environment variable reading

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
