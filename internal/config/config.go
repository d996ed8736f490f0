package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all coordinator configuration
type Config struct {
	Environment string
	RedisURL    string // empty disables the Redis-backed stores
	MongoURI    string // empty disables the Mongo memory store

	// Lifetimes
	KnowledgeTTL     time.Duration // records untouched for longer are swept
	RotationInterval time.Duration // minimum gap between summary recomputations
	EntityContextTTL time.Duration // active entity contexts older than this are absent

	RecentConversationLimit int

	// Maintenance schedules (5-field cron)
	SweepCron       string
	HealthProbeCron string

	// Optional YAML file overriding heuristic constants (hot-reloaded)
	TuningFile string

	// Calendar/task provider throttling
	ProviderRatePerSecond float64
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Environment: strings.ToLower(getEnv("ENVIRONMENT", "development")),
		RedisURL:    getEnv("REDIS_URL", ""),
		MongoURI:    getEnv("MONGODB_URI", ""),

		KnowledgeTTL:     getDurationEnv("KNOWLEDGE_TTL", 30*time.Minute),
		RotationInterval: getDurationEnv("ROTATION_INTERVAL", 5*time.Minute),
		EntityContextTTL: getDurationEnv("ENTITY_CONTEXT_TTL", 1*time.Hour),

		RecentConversationLimit: getIntEnv("RECENT_CONVERSATION_LIMIT", 15),

		SweepCron:       getEnv("SWEEP_CRON", "*/5 * * * *"),
		HealthProbeCron: getEnv("HEALTH_PROBE_CRON", "* * * * *"),

		TuningFile: getEnv("TUNING_FILE", ""),

		ProviderRatePerSecond: getFloatEnv("PROVIDER_RATE_PER_SECOND", 5),
	}
}

// Validate checks the values that would otherwise fail late at job registration
func (c *Config) Validate() error {
	if c.KnowledgeTTL <= 0 {
		return fmt.Errorf("KNOWLEDGE_TTL must be positive")
	}
	if c.RotationInterval <= 0 {
		return fmt.Errorf("ROTATION_INTERVAL must be positive")
	}
	if c.EntityContextTTL <= 0 {
		return fmt.Errorf("ENTITY_CONTEXT_TTL must be positive")
	}
	if c.RecentConversationLimit <= 0 {
		return fmt.Errorf("RECENT_CONVERSATION_LIMIT must be positive")
	}
	if c.ProviderRatePerSecond <= 0 {
		return fmt.Errorf("PROVIDER_RATE_PER_SECOND must be positive")
	}
	if err := ValidateCron(c.SweepCron); err != nil {
		return fmt.Errorf("invalid SWEEP_CRON: %w", err)
	}
	if err := ValidateCron(c.HealthProbeCron); err != nil {
		return fmt.Errorf("invalid HEALTH_PROBE_CRON: %w", err)
	}
	return nil
}

// IsProduction reports whether the coordinator runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ValidateCron checks a standard 5-field cron expression
func ValidateCron(expr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(expr); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
