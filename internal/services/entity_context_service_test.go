package services

import (
	"context"
	"testing"
	"time"

	"claramesh/internal/health"
	"claramesh/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityContextSetAndGet(t *testing.T) {
	service := NewEntityContextService(NewMemoryEntityContextStore(), time.Hour)
	clock := &testClock{now: time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)}
	service.SetClock(clock.Now)
	ctx := context.Background()

	assert.Nil(t, service.Get(ctx, "u1"))

	require.NoError(t, service.Set(ctx, doctorContext(models.BehaviorRegularUser, 2)))
	got := service.Get(ctx, "u1")
	require.NotNil(t, got)
	assert.Equal(t, "evt-1", got.EntityID)
	assert.Equal(t, clock.now, got.Timestamp, "zero timestamp is stamped")

	clock.Advance(59 * time.Minute)
	assert.NotNil(t, service.Get(ctx, "u1"))

	clock.Advance(2 * time.Minute)
	assert.Nil(t, service.Get(ctx, "u1"), "stale after one hour")
}

func TestEntityContextGetReturnsIsolatedCopy(t *testing.T) {
	service := NewEntityContextService(nil, time.Hour)
	ctx := context.Background()

	written := doctorContext(models.BehaviorRegularUser, 2)
	written.Pattern.AgentAffinity[models.AgentScheduling] = 3
	require.NoError(t, service.Set(ctx, written))
	written.Pattern.AgentAffinity[models.AgentScheduling] = 99

	got := service.Get(ctx, "u1")
	require.NotNil(t, got)
	assert.Equal(t, 3, got.Pattern.AgentAffinity[models.AgentScheduling])
	got.Pattern.AgentAffinity[models.AgentTask] = 7
	got.Pattern.TimeOfDayAffinity["15:30"] = 4

	again := service.Get(ctx, "u1")
	assert.Equal(t, map[string]int{models.AgentScheduling: 3}, again.Pattern.AgentAffinity)
	assert.Empty(t, again.Pattern.TimeOfDayAffinity)
}

func TestEntityContextSetRequiresUser(t *testing.T) {
	service := NewEntityContextService(nil, time.Hour)
	err := service.Set(context.Background(), models.ActiveEntityContext{EntityID: "e1"})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestEntityContextOverwriteAndClear(t *testing.T) {
	service := NewEntityContextService(NewMemoryEntityContextStore(), time.Hour)
	ctx := context.Background()

	require.NoError(t, service.Set(ctx, doctorContext(models.BehaviorRegularUser, 2)))
	next := doctorContext(models.BehaviorRegularUser, 2)
	next.EntityID = "evt-2"
	require.NoError(t, service.Set(ctx, next))
	assert.Equal(t, "evt-2", service.Get(ctx, "u1").EntityID)

	service.Clear(ctx, "u1")
	assert.Nil(t, service.Get(ctx, "u1"))
}

func TestEntityContextRefreshesFromRedis(t *testing.T) {
	redisService, mr := newTestRedis(t)
	store := NewRedisEntityContextStore(redisService)
	ctx := context.Background()
	written := time.Now().Add(-10 * time.Minute)

	writer := NewEntityContextService(store, time.Hour)
	entityContext := doctorContext(models.BehaviorPowerUser, 7)
	entityContext.Timestamp = written
	require.NoError(t, writer.Set(ctx, entityContext))

	ttl := mr.TTL("entity_context:user:u1")
	assert.Equal(t, time.Hour, ttl)

	// A second process with a cold cache reads through to Redis
	reader := NewEntityContextService(store, time.Hour)
	got := reader.Get(ctx, "u1")
	require.NotNil(t, got)
	assert.Equal(t, "doctor appointment", got.CleanedTitle)
	assert.Equal(t, models.BehaviorPowerUser, got.BehaviorType)
	assert.True(t, written.Equal(got.Timestamp))

	mr.FastForward(time.Hour)
	fresh := NewEntityContextService(store, time.Hour)
	assert.Nil(t, fresh.Get(ctx, "u1"))
}

func TestEntityContextDurableFailureDegrades(t *testing.T) {
	redisService, mr := newTestRedis(t)
	healthService := health.NewService(1, time.Minute)
	service := NewEntityContextService(NewRedisEntityContextStore(redisService), time.Hour)
	service.SetHealthService(healthService)
	ctx := context.Background()

	mr.Close()

	require.NoError(t, service.Set(ctx, doctorContext(models.BehaviorRegularUser, 1)), "durable failures are not returned")
	assert.NotNil(t, service.Get(ctx, "u1"), "cached copy still serves")
	assert.False(t, healthService.IsAvailable(models.UpstreamEntityContext))

	cold := NewEntityContextService(NewRedisEntityContextStore(redisService), time.Hour)
	cold.SetHealthService(healthService)
	assert.Nil(t, cold.Get(ctx, "u1"))
}
