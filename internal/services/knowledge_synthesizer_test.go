package services

import (
	"testing"
	"time"

	"claramesh/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordWith(contributions map[string]models.AgentKnowledge) *models.UserKnowledgeRecord {
	at := time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)
	record := models.NewUserKnowledgeRecord("u1", at)
	for agentID, knowledge := range contributions {
		record.AgentContributions[agentID] = models.AgentContribution{
			Knowledge:   knowledge,
			LastUpdated: at,
			AccessLevel: models.AccessLevelFor(agentID),
		}
	}
	return record
}

func TestSchedulingExperienceFor(t *testing.T) {
	config := models.DefaultSynthesisConfig()
	tests := []struct {
		events int
		want   models.SchedulingExperience
	}{
		{0, models.ExperienceBeginner},
		{5, models.ExperienceBeginner},
		{6, models.ExperienceIntermediate},
		{20, models.ExperienceIntermediate},
		{21, models.ExperienceExperienced},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SchedulingExperienceFor(tt.events, config), "events=%d", tt.events)
	}
}

func TestSynthesizeInsights(t *testing.T) {
	synth := NewKnowledgeSynthesizer(models.DefaultSynthesisConfig())

	tests := []struct {
		name          string
		contributions map[string]models.AgentKnowledge
		want          []string
	}{
		{
			name: "power user",
			contributions: map[string]models.AgentKnowledge{
				models.AgentScheduling: schedulingKnowledge(25, 0),
				models.AgentTask:       taskKnowledge(85),
			},
			want: []string{models.InsightPowerUser},
		},
		{
			name: "needs support",
			contributions: map[string]models.AgentKnowledge{
				models.AgentScheduling: schedulingKnowledge(3, 0),
				models.AgentTask:       taskKnowledge(30),
			},
			want: []string{models.InsightNeedsSupport},
		},
		{
			name: "needs buffer time",
			contributions: map[string]models.AgentKnowledge{
				models.AgentScheduling: schedulingKnowledge(10, 30),
				models.AgentTask:       taskKnowledge(60),
			},
			want: []string{models.InsightNeedsBufferTime},
		},
		{
			name: "buffer rule without a task slice",
			contributions: map[string]models.AgentKnowledge{
				models.AgentScheduling: schedulingKnowledge(40, 20),
				models.AgentOrchestrator: {Orchestration: &models.OrchestrationKnowledge{
					LastIntent: "create_event",
				}},
			},
			want: []string{models.InsightNeedsBufferTime},
		},
		{
			name: "thresholds are strict",
			contributions: map[string]models.AgentKnowledge{
				models.AgentScheduling: schedulingKnowledge(21, 15),
				models.AgentTask:       taskKnowledge(80),
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := synth.Synthesize(recordWith(tt.contributions), time.Now())
			require.NotNil(t, summary)
			assert.Equal(t, tt.want, insightTypes(summary))
			for _, insight := range summary.CoordinationInsights {
				assert.NotEmpty(t, insight.ID)
				assert.NotEmpty(t, insight.Description)
				assert.NotEmpty(t, insight.Recommendations)
			}
		})
	}
}

func TestSynthesizeNeedsTwoContributors(t *testing.T) {
	synth := NewKnowledgeSynthesizer(models.DefaultSynthesisConfig())
	assert.Nil(t, synth.Synthesize(nil, time.Now()))
	assert.Nil(t, synth.Synthesize(recordWith(map[string]models.AgentKnowledge{
		models.AgentTask: taskKnowledge(99),
	}), time.Now()))
}

func TestSynthesizeProfiles(t *testing.T) {
	synth := NewKnowledgeSynthesizer(models.DefaultSynthesisConfig())
	summary := synth.Synthesize(recordWith(map[string]models.AgentKnowledge{
		"calendar-bot": schedulingKnowledge(8, 5),
		"todo-bot":     taskKnowledge(64),
	}), time.Now())
	require.NotNil(t, summary)

	assert.Equal(t, []string{"calendar-bot", "todo-bot"}, summary.ParticipatingAgents)
	assert.Equal(t, models.ProductivityProfile{
		OverallCompletionRate:   64,
		TaskPreferences:         []string{"small batches"},
		MotivationalTriggers:    []string{"streaks"},
		OptimalInteractionTimes: []string{"08:00"},
	}, summary.UnifiedProfile.Productivity)
	assert.Equal(t, models.SchedulingProfile{
		TotalEvents:          8,
		FavoriteEventTypes:   []string{"1:1", "standup"},
		BufferTimePreference: 5,
		SchedulingExperience: models.ExperienceIntermediate,
	}, summary.UnifiedProfile.Scheduling)
}

func TestCoordinationHints(t *testing.T) {
	config := models.DefaultSynthesisConfig()
	record := recordWith(map[string]models.AgentKnowledge{
		models.AgentScheduling: schedulingKnowledge(9, 16),
		models.AgentTask:       taskKnowledge(70),
	})

	hints := CoordinationHints(record, models.EmptyRotatedSummary(), config)
	assert.Equal(t, []string{
		"prefer task-agent for follow-up tracking",
		"leave buffer time around scheduled tasks",
	}, hints)

	assert.Equal(t, []string{}, CoordinationHints(nil, nil, config))
}
