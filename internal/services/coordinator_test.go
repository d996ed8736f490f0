package services

import (
	"context"
	"testing"
	"time"

	"claramesh/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoordinatorWithRedis(t *testing.T) {
	redisService, mr := newTestRedis(t)
	c := NewCoordinator(testConfig(), nil, CoordinatorDeps{
		Redis:      redisService,
		Registerer: prometheus.NewRegistry(),
	})
	ctx := context.Background()

	require.NoError(t, c.Knowledge.Register(ctx, models.AgentTask, "u1", taskKnowledge(75)))
	assert.True(t, mr.Exists("knowledge:user:u1"))

	require.NoError(t, c.Contexts.Set(ctx, doctorContext(models.BehaviorRegularUser, 3)))
	assert.True(t, mr.Exists("entity_context:user:u1"))

	errs := c.Health.ProbeAll(ctx)
	assert.NoError(t, errs[models.UpstreamKnowledgeStore])
	assert.NoError(t, errs[models.UpstreamEntityContext])
}

func TestCoordinatorApplyTuningKeepsRecentLimit(t *testing.T) {
	c := newTestCoordinator(t, nil, nil)

	tuning := models.DefaultTuning()
	tuning.Pattern.RecentLimit = 99
	tuning.Resolver.ConfidenceThreshold = 0.9
	tuning.Synthesis.BufferTimeMinutes = 5
	c.ApplyTuning(tuning)
	c.ApplyTuning(nil)

	pattern, _ := c.Patterns.configs()
	assert.Equal(t, 15, pattern.RecentLimit)
	assert.Equal(t, 0.9, c.Resolver.Config().ConfidenceThreshold)
	assert.Equal(t, 5, c.Knowledge.hintConfig().BufferTimeMinutes)
	assert.Equal(t, 99, tuning.Pattern.RecentLimit, "caller's tuning is not modified")
}

func TestNewCoordinatorLeavesTuningUntouched(t *testing.T) {
	tuning := models.DefaultTuning()
	tuning.Pattern.RecentLimit = 42

	c := NewCoordinator(testConfig(), tuning, CoordinatorDeps{Registerer: prometheus.NewRegistry()})

	pattern, _ := c.Patterns.configs()
	assert.Equal(t, testConfig().RecentConversationLimit, pattern.RecentLimit)
	assert.Equal(t, 42, tuning.Pattern.RecentLimit)
}

func TestCoordinatorSweepExpired(t *testing.T) {
	c := newTestCoordinator(t, nil, nil)
	clock := &testClock{now: time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)}
	c.Knowledge.SetClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, c.Knowledge.Register(ctx, models.AgentTask, "old", taskKnowledge(50)))
	clock.Advance(20 * time.Minute)
	require.NoError(t, c.Knowledge.Register(ctx, models.AgentTask, "fresh", taskKnowledge(50)))
	clock.Advance(15 * time.Minute)

	swept, err := c.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Zero(t, c.Knowledge.GetSummary(ctx, "old").ContributorCount)
	assert.Equal(t, 1, c.Knowledge.GetSummary(ctx, "fresh").ContributorCount)
}
