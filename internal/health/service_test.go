package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(now *time.Time) *Service {
	s := NewService(3, time.Minute)
	s.SetClock(func() time.Time { return *now })
	return s
}

func TestUnknownComponentIsAvailable(t *testing.T) {
	now := time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)
	s := newTestService(&now)

	assert.True(t, s.IsAvailable("memory_store"))

	var nilService *Service
	assert.True(t, nilService.IsAvailable("memory_store"))
	nilService.MarkFailure("memory_store", errors.New("boom"))
	nilService.MarkHealthy("memory_store")
}

func TestFailureThresholdStartsCooldown(t *testing.T) {
	now := time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)
	s := newTestService(&now)
	boom := errors.New("unexpected EOF")

	s.MarkFailure("calendar_provider", boom)
	s.MarkFailure("calendar_provider", boom)

	h, ok := s.Get("calendar_provider")
	require.True(t, ok)
	assert.Equal(t, StatusDegraded, h.Status)
	assert.Equal(t, 2, h.FailureCount)
	assert.True(t, s.IsAvailable("calendar_provider"))

	s.MarkFailure("calendar_provider", boom)

	h, _ = s.Get("calendar_provider")
	assert.Equal(t, StatusCooldown, h.Status)
	assert.Equal(t, now.Add(time.Minute), h.CooldownUntil)
	assert.False(t, s.IsAvailable("calendar_provider"))

	now = now.Add(time.Minute + time.Second)
	assert.True(t, s.IsAvailable("calendar_provider"), "cooldown should lapse on its own")
}

func TestCooldownDurationFollowsErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"timeout", errors.New("i/o timeout"), 30 * time.Second},
		{"deadline", context.DeadlineExceeded, 30 * time.Second},
		{"refused", errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), 2 * time.Minute},
		{"server selection", errors.New("server selection error: context deadline"), 2 * time.Minute},
		{"other", errors.New("unexpected EOF"), 45 * time.Second},
		{"nil", nil, 45 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCooldownDuration(tt.err, 45*time.Second))
		})
	}
}

func TestMarkHealthyResetsFailures(t *testing.T) {
	now := time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)
	s := newTestService(&now)

	for i := 0; i < 3; i++ {
		s.MarkFailure("task_provider", errors.New("unexpected EOF"))
	}
	require.False(t, s.IsAvailable("task_provider"))

	s.MarkHealthy("task_provider")

	h, _ := s.Get("task_provider")
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Zero(t, h.FailureCount)
	assert.Empty(t, h.LastError)
	assert.True(t, s.IsAvailable("task_provider"))
}

func TestProbeAll(t *testing.T) {
	now := time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)
	s := newTestService(&now)

	s.RegisterPinger("knowledge_store", PingerFunc(func(context.Context) error { return nil }))
	s.RegisterPinger("memory_store", PingerFunc(func(context.Context) error {
		return errors.New("server selection error")
	}))
	s.Register("calendar_provider")

	failures := s.ProbeAll(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures, "memory_store")

	status := s.GetStatus()
	assert.Equal(t, 3, status["total"])
	components := status["components"].(map[string]string)
	assert.Equal(t, "healthy", components["knowledge_store"])
	assert.Equal(t, "degraded", components["memory_store"])
	assert.Equal(t, "unknown", components["calendar_provider"])

	assert.Error(t, s.Probe(context.Background(), "calendar_provider"), "no pinger registered")
}
