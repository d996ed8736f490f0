package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "REDIS_URL", "MONGODB_URI", "KNOWLEDGE_TTL", "ROTATION_INTERVAL",
		"ENTITY_CONTEXT_TTL", "RECENT_CONVERSATION_LIMIT", "SWEEP_CRON", "HEALTH_PROBE_CRON", "TUNING_FILE",
		"PROVIDER_RATE_PER_SECOND"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 30*time.Minute, cfg.KnowledgeTTL)
	assert.Equal(t, 5*time.Minute, cfg.RotationInterval)
	assert.Equal(t, time.Hour, cfg.EntityContextTTL)
	assert.Equal(t, 15, cfg.RecentConversationLimit)
	assert.Equal(t, 5.0, cfg.ProviderRatePerSecond)
	assert.False(t, cfg.IsProduction())
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("KNOWLEDGE_TTL", "45m")
	t.Setenv("RECENT_CONVERSATION_LIMIT", "30")
	t.Setenv("ROTATION_INTERVAL", "not-a-duration")
	t.Setenv("PROVIDER_RATE_PER_SECOND", "2.5")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 45*time.Minute, cfg.KnowledgeTTL)
	assert.Equal(t, 30, cfg.RecentConversationLimit)
	assert.Equal(t, 5*time.Minute, cfg.RotationInterval, "unparseable values fall back to defaults")
	assert.Equal(t, 2.5, cfg.ProviderRatePerSecond)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero ttl", func(c *Config) { c.KnowledgeTTL = 0 }, "KNOWLEDGE_TTL"},
		{"negative rotation", func(c *Config) { c.RotationInterval = -time.Second }, "ROTATION_INTERVAL"},
		{"zero context ttl", func(c *Config) { c.EntityContextTTL = 0 }, "ENTITY_CONTEXT_TTL"},
		{"zero recent limit", func(c *Config) { c.RecentConversationLimit = 0 }, "RECENT_CONVERSATION_LIMIT"},
		{"zero provider rate", func(c *Config) { c.ProviderRatePerSecond = 0 }, "PROVIDER_RATE_PER_SECOND"},
		{"bad sweep cron", func(c *Config) { c.SweepCron = "every minute" }, "SWEEP_CRON"},
		{"six-field probe cron", func(c *Config) { c.HealthProbeCron = "0 * * * * *" }, "HEALTH_PROBE_CRON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				KnowledgeTTL:            30 * time.Minute,
				RotationInterval:        5 * time.Minute,
				EntityContextTTL:        time.Hour,
				RecentConversationLimit: 15,
				SweepCron:               "*/5 * * * *",
				HealthProbeCron:         "* * * * *",
				ProviderRatePerSecond:   5,
			}
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
