package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"claramesh/internal/config"
	"claramesh/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu       sync.Mutex
	entities []models.Entity
	listErr  error
	lists    int
	updated  []models.Entity
	deleted  []string
}

func (p *fakeProvider) List(_ context.Context, _ string, _ models.Window) ([]models.Entity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lists++
	if p.listErr != nil {
		return nil, p.listErr
	}
	return append([]models.Entity(nil), p.entities...), nil
}

func (p *fakeProvider) Create(_ context.Context, _ string, entity models.Entity) (models.Entity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entity.ID == "" {
		entity.ID = fmt.Sprintf("new-%d", len(p.entities)+1)
	}
	p.entities = append(p.entities, entity)
	return entity, nil
}

func (p *fakeProvider) Update(_ context.Context, _ string, entity models.Entity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated = append(p.updated, entity)
	return nil
}

func (p *fakeProvider) Delete(_ context.Context, _ string, entity models.Entity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, entity.ID)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		KnowledgeTTL:            30 * time.Minute,
		RotationInterval:        5 * time.Minute,
		EntityContextTTL:        time.Hour,
		RecentConversationLimit: 15,
		SweepCron:               "*/5 * * * *",
		HealthProbeCron:         "* * * * *",
		ProviderRatePerSecond:   1000,
	}
}

func newTestCoordinator(t *testing.T, calendar, tasks *fakeProvider) *Coordinator {
	t.Helper()
	deps := CoordinatorDeps{Registerer: prometheus.NewRegistry()}
	if calendar != nil {
		deps.Calendar = calendar
	}
	if tasks != nil {
		deps.Tasks = tasks
	}
	return NewCoordinator(testConfig(), nil, deps)
}

// seedHistory gives u1 enough calendar-heavy conversation to be a regular user
func seedHistory(t *testing.T, c *Coordinator) {
	t.Helper()
	memory := c.References.memory
	for i := 0; i < 15; i++ {
		require.NoError(t, memory.Store(context.Background(), "u1", models.MemoryRecord{
			AgentID:   models.AgentScheduling,
			Type:      models.MemoryTypeConversationTurn,
			Content:   "schedule the team meeting",
			CreatedAt: time.Now().Add(time.Duration(i-20) * time.Minute),
		}))
	}
}

func TestReferenceWorkflow(t *testing.T) {
	calendar := &fakeProvider{}
	c := newTestCoordinator(t, calendar, nil)
	seedHistory(t, c)
	ctx := context.Background()

	created, err := calendar.Create(ctx, "u1", models.Entity{
		Type:     models.EntityTypeEvent,
		Title:    "🩺 Doctor Appointment",
		Start:    "2025-11-20T15:30:00",
		Location: "Main St Clinic",
	})
	require.NoError(t, err)

	anchor, err := c.References.RecordEntityCreated(ctx, "u1", models.AgentScheduling, created, "book a doctor appointment at 3:30pm")
	require.NoError(t, err)
	require.NotNil(t, anchor)
	assert.Equal(t, "doctor appointment", anchor.CleanedTitle)
	assert.Equal(t, "2025-11-20", anchor.Date)
	assert.Equal(t, "15:30", anchor.Time)
	assert.Equal(t, models.PatternCalendarFocused, anchor.Pattern.PatternType)
	assert.Equal(t, models.BehaviorRegularUser, anchor.BehaviorType)

	snapshots, err := c.References.memory.QueryByType(ctx, "u1", models.MemoryTypeEntityContext)
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)

	calendar.entities = append(calendar.entities, models.Entity{ID: "other", Title: "Team sync", Start: "2025-11-20T10:00"})

	resolution := c.References.ResolveFromCalendar(ctx, "u1", "move it", models.Window{})
	require.True(t, resolution.Accepted, resolution.Reason)
	assert.Equal(t, created.ID, resolution.Match.Entity.ID)
	assert.Equal(t, models.EntityTypeEvent, resolution.Match.Entity.Type)
	assert.Len(t, resolution.Ranked, 2)

	updated := resolution.Match.Entity
	updated.Start = "2025-11-20T16:00:00"
	outcome := c.References.ApplyUpdate(ctx, "u1", resolution.Match, models.DimensionTime, updated)
	assert.True(t, outcome.Applied)
	assert.Empty(t, outcome.Error)
	assert.Empty(t, outcome.Validation.Warnings)
	require.Len(t, calendar.updated, 1)

	refreshed := c.Contexts.Get(ctx, "u1")
	require.NotNil(t, refreshed)
	assert.Equal(t, "16:00", refreshed.Time)
	assert.Equal(t, "move it", refreshed.FreeTextSource, "the accepted reference became the new source")

	outcome = c.References.ApplyUpdate(ctx, "u1", resolution.Match, models.DimensionDelete, models.Entity{})
	assert.True(t, outcome.Applied)
	assert.Equal(t, []string{created.ID}, calendar.deleted)
	assert.Nil(t, c.Contexts.Get(ctx, "u1"), "deleting the anchored entity clears the context")
}

func TestResolveFromProviderWithoutContext(t *testing.T) {
	calendar := &fakeProvider{entities: []models.Entity{doctorEvent}}
	c := newTestCoordinator(t, calendar, nil)

	resolution := c.References.ResolveFromCalendar(context.Background(), "u1", "the event", models.Window{})
	assert.False(t, resolution.Accepted)
	assert.Zero(t, calendar.lists, "provider is not queried without an anchor")
}

func TestResolveFromUnconfiguredProvider(t *testing.T) {
	c := newTestCoordinator(t, nil, nil)
	ctx := context.Background()
	require.NoError(t, c.Contexts.Set(ctx, doctorContext(models.BehaviorPowerUser, 7)))

	resolution := c.References.ResolveFromTasks(ctx, "u1", "that task", models.Window{})
	assert.False(t, resolution.Accepted)
	assert.Equal(t, "upstream unavailable: task_provider not configured", resolution.Reason)
}

func TestProviderFailuresTripCooldown(t *testing.T) {
	calendar := &fakeProvider{listErr: errors.New("connection refused")}
	c := newTestCoordinator(t, calendar, nil)
	ctx := context.Background()
	require.NoError(t, c.Contexts.Set(ctx, doctorContext(models.BehaviorPowerUser, 7)))

	for i := 0; i < 3; i++ {
		resolution := c.References.ResolveFromCalendar(ctx, "u1", "it", models.Window{})
		assert.False(t, resolution.Accepted)
		assert.Contains(t, resolution.Reason, "upstream unavailable")
	}
	assert.Equal(t, 3, calendar.lists)
	assert.False(t, c.Health.IsAvailable(models.UpstreamCalendarProvider))

	resolution := c.References.ResolveFromCalendar(ctx, "u1", "it", models.Window{})
	assert.Contains(t, resolution.Reason, "in cooldown")
	assert.Equal(t, 3, calendar.lists, "cooldown skips the provider")
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Metrics.UpstreamFailures.WithLabelValues(models.UpstreamCalendarProvider)))

	// The anchor survives provider outages
	assert.NotNil(t, c.Contexts.Get(ctx, "u1"))
}

func TestApplyUpdateWithoutMatch(t *testing.T) {
	c := newTestCoordinator(t, &fakeProvider{}, nil)
	outcome := c.References.ApplyUpdate(context.Background(), "u1", nil, models.DimensionTitle, models.Entity{})
	assert.False(t, outcome.Applied)
	assert.True(t, outcome.Validation.Allowed)
	assert.Equal(t, "no resolved match to update", outcome.Error)
}

func TestApplyUpdateRoutesTasks(t *testing.T) {
	calendar, tasks := &fakeProvider{}, &fakeProvider{}
	c := newTestCoordinator(t, calendar, tasks)
	match := &models.MatchCandidate{Entity: models.Entity{ID: "t1", Type: models.EntityTypeTask, Title: "Pay rent"}}

	outcome := c.References.ApplyUpdate(context.Background(), "u1", match, models.DimensionPriority, models.Entity{Title: "Pay rent"})
	assert.True(t, outcome.Applied)
	require.Len(t, tasks.updated, 1)
	assert.Equal(t, "t1", tasks.updated[0].ID)
	assert.Equal(t, models.EntityTypeTask, tasks.updated[0].Type)
	assert.Empty(t, calendar.updated)
}

func TestRecordEntityCreatedValidates(t *testing.T) {
	c := newTestCoordinator(t, nil, nil)
	_, err := c.References.RecordEntityCreated(context.Background(), "u1", "", models.Entity{ID: "e1"}, "")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}
