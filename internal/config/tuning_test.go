package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"claramesh/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTuningOverlaysDefaults(t *testing.T) {
	tuning, err := ParseTuning([]byte(`
resolver:
  score_threshold: 0.5
  power_user_score_bonus: 0.2
pattern:
  calendar_keywords: [meeting, standup]
synthesis:
  buffer_time_minutes: 20
`))
	require.NoError(t, err)

	assert.Equal(t, 0.5, tuning.Resolver.ScoreThreshold)
	assert.Equal(t, 0.2, tuning.Resolver.PowerUserScoreBonus)
	assert.Equal(t, 0.4, tuning.Resolver.ConfidenceThreshold, "untouched keys keep defaults")
	assert.Equal(t, []string{"meeting", "standup"}, tuning.Pattern.CalendarKeywords)
	assert.Equal(t, models.DefaultPatternConfig().TaskKeywords, tuning.Pattern.TaskKeywords)
	assert.Equal(t, 20, tuning.Synthesis.BufferTimeMinutes)
	assert.Equal(t, models.DefaultBehaviorConfig(), tuning.Behavior)
}

func TestParseTuningRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "resolver: [unclosed"},
		{"score threshold above one", "resolver:\n  score_threshold: 1.5\n"},
		{"negative confidence threshold", "resolver:\n  confidence_threshold: -0.1\n"},
		{"zero depth cap", "resolver:\n  max_context_depth: 0\n"},
		{"zero recent limit", "pattern:\n  recent_limit: 0\n"},
		{"single contributor", "synthesis:\n  min_contributors: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTuning([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadTuningMissingFile(t *testing.T) {
	_, err := LoadTuning(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatchTuningReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resolver:\n  score_threshold: 0.3\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *models.Tuning, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchTuning(ctx, path, func(t *models.Tuning) { reloaded <- t })
	}()

	// Give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("resolver:\n  score_threshold: 0.6\n"), 0o644))

	select {
	case tuning := <-reloaded:
		assert.Equal(t, 0.6, tuning.Resolver.ScoreThreshold)
	case <-time.After(5 * time.Second):
		t.Fatal("tuning was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
