package services

import (
	"fmt"

	"claramesh/internal/models"
)

// knowledgeWhitelists lists, per requesting agent, the fields it may see of
// other agents' knowledge. Requesters without an entry see empty views.
// TODO: give orchestrator-agent its own whitelist once routing needs profile fields.
var knowledgeWhitelists = map[string]map[string]bool{
	models.AgentScheduling: {
		"completionRate":          true,
		"taskPreferences":         true,
		"optimalInteractionTimes": true,
		"pendingTasks":            true,
	},
	models.AgentTask: {
		"totalEvents":           true,
		"favoriteEventTypes":    true,
		"bufferTimePreference":  true,
		"preferredMeetingTimes": true,
	},
}

// WhitelistFor returns a copy of the fields visible to a requester
func WhitelistFor(requesterID string) map[string]bool {
	out := make(map[string]bool)
	for field := range knowledgeWhitelists[requesterID] {
		out[field] = true
	}
	return out
}

// SanitizeKnowledge keeps only the requester's whitelisted fields.
// The result is never nil.
func SanitizeKnowledge(knowledge models.AgentKnowledge, requesterID string) models.SanitizedView {
	view := models.SanitizedView{}
	whitelist := knowledgeWhitelists[requesterID]
	if len(whitelist) == 0 {
		return view
	}
	for field, value := range knowledge.Fields() {
		if whitelist[field] {
			view[field] = value
		}
	}
	return view
}

// SanitizeSummary copies a rotated summary keeping participants and insights,
// with the unified profile reduced to the requester's whitelisted fields.
// Profile fields with no whitelist key (motivational triggers, scheduling
// experience) are never shared.
func SanitizeSummary(summary *models.RotatedSummary, requesterID string) *models.RotatedSummary {
	out := models.EmptyRotatedSummary()
	if summary == nil {
		return out
	}
	out.ParticipatingAgents = append(out.ParticipatingAgents, summary.ParticipatingAgents...)
	out.CoordinationInsights = append(out.CoordinationInsights, summary.CoordinationInsights...)
	out.GeneratedAt = summary.GeneratedAt

	whitelist := knowledgeWhitelists[requesterID]
	productivity := summary.UnifiedProfile.Productivity
	scheduling := summary.UnifiedProfile.Scheduling
	if whitelist["completionRate"] {
		out.UnifiedProfile.Productivity.OverallCompletionRate = productivity.OverallCompletionRate
	}
	if whitelist["taskPreferences"] {
		out.UnifiedProfile.Productivity.TaskPreferences = cloneStrings(productivity.TaskPreferences)
	}
	if whitelist["optimalInteractionTimes"] {
		out.UnifiedProfile.Productivity.OptimalInteractionTimes = cloneStrings(productivity.OptimalInteractionTimes)
	}
	if whitelist["totalEvents"] {
		out.UnifiedProfile.Scheduling.TotalEvents = scheduling.TotalEvents
	}
	if whitelist["favoriteEventTypes"] {
		out.UnifiedProfile.Scheduling.FavoriteEventTypes = cloneStrings(scheduling.FavoriteEventTypes)
	}
	if whitelist["bufferTimePreference"] {
		out.UnifiedProfile.Scheduling.BufferTimePreference = scheduling.BufferTimePreference
	}
	return out
}

// CoordinationHints derives "prefer agent X for Y" advice from threshold rules
// plus every insight in the rotated summary
func CoordinationHints(record *models.UserKnowledgeRecord, summary *models.RotatedSummary, config models.SynthesisConfig) []string {
	hints := []string{}
	if record == nil {
		return hints
	}

	if taskAgent, task := record.SliceOf(models.KnowledgeKindTask); task != nil {
		if task.Knowledge.Task.CompletionRate >= config.HintCompletionRate {
			hints = append(hints, fmt.Sprintf("prefer %s for follow-up tracking", taskAgent))
		}
	}
	if schedulingAgent, scheduling := record.SliceOf(models.KnowledgeKindScheduling); scheduling != nil {
		if scheduling.Knowledge.Scheduling.TotalEvents >= config.HintEventCount {
			hints = append(hints, fmt.Sprintf("prefer %s for time-bound commitments", schedulingAgent))
		}
		if scheduling.Knowledge.Scheduling.BufferTimePreference > config.BufferTimeMinutes {
			hints = append(hints, "leave buffer time around scheduled tasks")
		}
	}

	if summary != nil {
		for _, insight := range summary.CoordinationInsights {
			hints = append(hints, "insight:"+insight.Type)
		}
	}
	return hints
}
