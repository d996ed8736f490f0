package services

import (
	"sync"
	"time"

	"claramesh/internal/models"

	"github.com/google/uuid"
)

// Synthesizer merges a user's agent contributions into a rotated summary
type Synthesizer interface {
	Synthesize(record *models.UserKnowledgeRecord, now time.Time) *models.RotatedSummary
}

// KnowledgeSynthesizer builds the unified profile and coordination insights
type KnowledgeSynthesizer struct {
	mu     sync.RWMutex
	config models.SynthesisConfig
}

// NewKnowledgeSynthesizer creates a synthesizer with the given thresholds
func NewKnowledgeSynthesizer(config models.SynthesisConfig) *KnowledgeSynthesizer {
	return &KnowledgeSynthesizer{config: config}
}

// SetConfig replaces the thresholds (tuning hot-reload)
func (s *KnowledgeSynthesizer) SetConfig(config models.SynthesisConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
}

// Config returns the active thresholds
func (s *KnowledgeSynthesizer) Config() models.SynthesisConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Synthesize returns nil when fewer than MinContributors agents contributed
func (s *KnowledgeSynthesizer) Synthesize(record *models.UserKnowledgeRecord, now time.Time) *models.RotatedSummary {
	config := s.Config()
	if record == nil || len(record.AgentContributions) < config.MinContributors {
		return nil
	}

	summary := models.EmptyRotatedSummary()
	summary.ParticipatingAgents = models.SortedKeys(record.AgentContributions)
	summary.GeneratedAt = now

	_, taskSlice := record.SliceOf(models.KnowledgeKindTask)
	_, schedulingSlice := record.SliceOf(models.KnowledgeKindScheduling)

	var task *models.TaskKnowledge
	if taskSlice != nil {
		task = taskSlice.Knowledge.Task
		summary.UnifiedProfile.Productivity = models.ProductivityProfile{
			OverallCompletionRate:   task.CompletionRate,
			TaskPreferences:         cloneStrings(task.TaskPreferences),
			MotivationalTriggers:    cloneStrings(task.MotivationalTriggers),
			OptimalInteractionTimes: cloneStrings(task.OptimalInteractionTimes),
		}
	}

	var scheduling *models.SchedulingKnowledge
	if schedulingSlice != nil {
		scheduling = schedulingSlice.Knowledge.Scheduling
		summary.UnifiedProfile.Scheduling = models.SchedulingProfile{
			TotalEvents:          scheduling.TotalEvents,
			FavoriteEventTypes:   cloneStrings(scheduling.FavoriteEventTypes),
			BufferTimePreference: scheduling.BufferTimePreference,
			SchedulingExperience: SchedulingExperienceFor(scheduling.TotalEvents, config),
		}
	}

	summary.CoordinationInsights = s.insights(task, scheduling, summary.UnifiedProfile.Scheduling.SchedulingExperience, config)
	return summary
}

// SchedulingExperienceFor buckets a user by the number of events they manage
func SchedulingExperienceFor(totalEvents int, config models.SynthesisConfig) models.SchedulingExperience {
	switch {
	case totalEvents > config.ExperiencedMinEvents:
		return models.ExperienceExperienced
	case totalEvents > config.IntermediateMinEvents:
		return models.ExperienceIntermediate
	default:
		return models.ExperienceBeginner
	}
}

// insights applies the rule table. Compound rules need both slices present.
func (s *KnowledgeSynthesizer) insights(
	task *models.TaskKnowledge,
	scheduling *models.SchedulingKnowledge,
	experience models.SchedulingExperience,
	config models.SynthesisConfig,
) []models.CoordinationInsight {
	insights := []models.CoordinationInsight{}

	if task != nil && scheduling != nil {
		if task.CompletionRate > config.PowerUserCompletionRate && experience == models.ExperienceExperienced {
			insights = append(insights, models.CoordinationInsight{
				ID:          uuid.New().String(),
				Type:        models.InsightPowerUser,
				Description: "User completes most tasks and manages a busy calendar",
				Recommendations: []string{
					"Offer batch operations and shortcuts",
					"Skip step-by-step confirmations for routine changes",
				},
			})
		}
		if task.CompletionRate < config.NeedsSupportCompletionRate && experience == models.ExperienceBeginner {
			insights = append(insights, models.CoordinationInsight{
				ID:          uuid.New().String(),
				Type:        models.InsightNeedsSupport,
				Description: "User completes few tasks and is new to scheduling",
				Recommendations: []string{
					"Break tasks into smaller steps",
					"Send gentle reminders before deadlines",
					"Explain scheduling options when creating events",
				},
			})
		}
	}

	if scheduling != nil && scheduling.BufferTimePreference > config.BufferTimeMinutes {
		insights = append(insights, models.CoordinationInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightNeedsBufferTime,
			Description: "User prefers generous gaps between commitments",
			Recommendations: []string{
				"Avoid back-to-back scheduling",
				"Pad task time estimates with the preferred buffer",
			},
		})
	}

	return insights
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
