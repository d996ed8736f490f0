package models

import (
	"fmt"
	"strings"
	"time"
)

// Well-known agent identifiers. Agent IDs are free-form; these are the ones
// the coordinator has domain rules for.
const (
	AgentScheduling   = "scheduling-agent"
	AgentTask         = "task-agent"
	AgentOrchestrator = "orchestrator-agent"
)

// AccessLevel describes how much of the shared profile an agent may read.
type AccessLevel string

const (
	AccessLevelFull    AccessLevel = "full"
	AccessLevelDomain  AccessLevel = "domain"
	AccessLevelLimited AccessLevel = "limited"
)

// AccessLevelFor returns the access level for an agent identifier.
// Unknown identifiers are accepted with limited access.
func AccessLevelFor(agentID string) AccessLevel {
	switch agentID {
	case AgentOrchestrator:
		return AccessLevelFull
	case AgentScheduling, AgentTask:
		return AccessLevelDomain
	default:
		return AccessLevelLimited
	}
}

// KnowledgeKind tags which variant an AgentKnowledge carries
type KnowledgeKind string

const (
	KnowledgeKindScheduling    KnowledgeKind = "scheduling"
	KnowledgeKindTask          KnowledgeKind = "task"
	KnowledgeKindOrchestration KnowledgeKind = "orchestration"
)

// SchedulingKnowledge is what a calendar-owning agent knows about a user
type SchedulingKnowledge struct {
	TotalEvents           int      `json:"totalEvents" bson:"totalEvents"`
	FavoriteEventTypes    []string `json:"favoriteEventTypes,omitempty" bson:"favoriteEventTypes,omitempty"`
	BufferTimePreference  int      `json:"bufferTimePreference" bson:"bufferTimePreference"` // minutes
	PreferredMeetingTimes []string `json:"preferredMeetingTimes,omitempty" bson:"preferredMeetingTimes,omitempty"`
	Timezone              string   `json:"timezone,omitempty" bson:"timezone,omitempty"`
}

// TaskKnowledge is what a task-owning agent knows about a user
type TaskKnowledge struct {
	CompletionRate          float64  `json:"completionRate" bson:"completionRate"` // percent, 0-100
	TaskPreferences         []string `json:"taskPreferences,omitempty" bson:"taskPreferences,omitempty"`
	MotivationalTriggers    []string `json:"motivationalTriggers,omitempty" bson:"motivationalTriggers,omitempty"`
	OptimalInteractionTimes []string `json:"optimalInteractionTimes,omitempty" bson:"optimalInteractionTimes,omitempty"`
	PendingTasks            int      `json:"pendingTasks" bson:"pendingTasks"`
}

// OrchestrationKnowledge is what the routing agent knows about a user
type OrchestrationKnowledge struct {
	RoutedIntents map[string]int `json:"routedIntents,omitempty" bson:"routedIntents,omitempty"`
	LastIntent    string         `json:"lastIntent,omitempty" bson:"lastIntent,omitempty"`
}

// AgentKnowledge is a tagged union: exactly one variant must be set.
type AgentKnowledge struct {
	Scheduling    *SchedulingKnowledge    `json:"scheduling,omitempty" bson:"scheduling,omitempty"`
	Task          *TaskKnowledge          `json:"task,omitempty" bson:"task,omitempty"`
	Orchestration *OrchestrationKnowledge `json:"orchestration,omitempty" bson:"orchestration,omitempty"`
}

// Kind returns the variant tag, or "" when no variant is set
func (k AgentKnowledge) Kind() KnowledgeKind {
	switch {
	case k.Scheduling != nil:
		return KnowledgeKindScheduling
	case k.Task != nil:
		return KnowledgeKindTask
	case k.Orchestration != nil:
		return KnowledgeKindOrchestration
	default:
		return ""
	}
}

// Validate checks the union shape and the value ranges of the set variant
func (k AgentKnowledge) Validate() error {
	set := 0
	if k.Scheduling != nil {
		set++
	}
	if k.Task != nil {
		set++
	}
	if k.Orchestration != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one knowledge variant must be set, got %d", ErrInvalidKnowledge, set)
	}

	if s := k.Scheduling; s != nil {
		if s.TotalEvents < 0 {
			return fmt.Errorf("%w: totalEvents must be >= 0", ErrInvalidKnowledge)
		}
		if s.BufferTimePreference < 0 {
			return fmt.Errorf("%w: bufferTimePreference must be >= 0", ErrInvalidKnowledge)
		}
	}
	if t := k.Task; t != nil {
		if t.CompletionRate < 0 || t.CompletionRate > 100 {
			return fmt.Errorf("%w: completionRate must be within 0-100", ErrInvalidKnowledge)
		}
		if t.PendingTasks < 0 {
			return fmt.Errorf("%w: pendingTasks must be >= 0", ErrInvalidKnowledge)
		}
	}
	return nil
}

// Fields flattens the set variant into field-name -> value pairs.
// Sanitization filters this map against the requester's whitelist.
func (k AgentKnowledge) Fields() map[string]any {
	fields := make(map[string]any)
	if s := k.Scheduling; s != nil {
		fields["totalEvents"] = s.TotalEvents
		fields["favoriteEventTypes"] = cloneStrings(s.FavoriteEventTypes)
		fields["bufferTimePreference"] = s.BufferTimePreference
		fields["preferredMeetingTimes"] = cloneStrings(s.PreferredMeetingTimes)
		fields["timezone"] = s.Timezone
	}
	if t := k.Task; t != nil {
		fields["completionRate"] = t.CompletionRate
		fields["taskPreferences"] = cloneStrings(t.TaskPreferences)
		fields["motivationalTriggers"] = cloneStrings(t.MotivationalTriggers)
		fields["optimalInteractionTimes"] = cloneStrings(t.OptimalInteractionTimes)
		fields["pendingTasks"] = t.PendingTasks
	}
	if o := k.Orchestration; o != nil {
		intents := make(map[string]int, len(o.RoutedIntents))
		for intent, n := range o.RoutedIntents {
			intents[intent] = n
		}
		fields["routedIntents"] = intents
		fields["lastIntent"] = o.LastIntent
	}
	return fields
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// AgentContribution is one agent's latest knowledge snapshot for a user
type AgentContribution struct {
	Knowledge   AgentKnowledge `json:"knowledge" bson:"knowledge"`
	LastUpdated time.Time      `json:"lastUpdated" bson:"lastUpdated"`
	AccessLevel AccessLevel    `json:"accessLevel" bson:"accessLevel"`
}

// UserKnowledgeRecord aggregates every agent's latest contribution for one user
type UserKnowledgeRecord struct {
	UserID             string                       `json:"userId" bson:"userId"`
	LastUpdated        time.Time                    `json:"lastUpdated" bson:"lastUpdated"`
	AgentContributions map[string]AgentContribution `json:"agentContributions" bson:"agentContributions"`
	RotatedSummary     *RotatedSummary              `json:"rotatedSummary,omitempty" bson:"rotatedSummary,omitempty"`
}

// NewUserKnowledgeRecord creates an empty record for a user
func NewUserKnowledgeRecord(userID string, now time.Time) *UserKnowledgeRecord {
	return &UserKnowledgeRecord{
		UserID:             userID,
		LastUpdated:        now,
		AgentContributions: make(map[string]AgentContribution),
	}
}

// SliceOf returns the first contribution carrying the given knowledge kind.
// Agent IDs are visited in sorted order so the choice is deterministic.
func (r *UserKnowledgeRecord) SliceOf(kind KnowledgeKind) (string, *AgentContribution) {
	if r == nil {
		return "", nil
	}
	for _, agentID := range SortedKeys(r.AgentContributions) {
		c := r.AgentContributions[agentID]
		if c.Knowledge.Kind() == kind {
			return agentID, &c
		}
	}
	return "", nil
}

// SchedulingExperience buckets users by how many events they manage
type SchedulingExperience string

const (
	ExperienceBeginner     SchedulingExperience = "beginner"
	ExperienceIntermediate SchedulingExperience = "intermediate"
	ExperienceExperienced  SchedulingExperience = "experienced"
)

// ProductivityProfile is derived from the task-owning agent's slice
type ProductivityProfile struct {
	OverallCompletionRate   float64  `json:"overallCompletionRate" bson:"overallCompletionRate"`
	TaskPreferences         []string `json:"taskPreferences" bson:"taskPreferences"`
	MotivationalTriggers    []string `json:"motivationalTriggers" bson:"motivationalTriggers"`
	OptimalInteractionTimes []string `json:"optimalInteractionTimes" bson:"optimalInteractionTimes"`
}

// SchedulingProfile is derived from the calendar-owning agent's slice
type SchedulingProfile struct {
	TotalEvents          int                  `json:"totalEvents" bson:"totalEvents"`
	FavoriteEventTypes   []string             `json:"favoriteEventTypes" bson:"favoriteEventTypes"`
	BufferTimePreference int                  `json:"bufferTimePreference" bson:"bufferTimePreference"`
	SchedulingExperience SchedulingExperience `json:"schedulingExperience" bson:"schedulingExperience"`
}

// UnifiedProfile is the merged cross-agent view of a user
type UnifiedProfile struct {
	Productivity ProductivityProfile `json:"productivity" bson:"productivity"`
	Scheduling   SchedulingProfile   `json:"scheduling" bson:"scheduling"`
}

// Coordination insight types
const (
	InsightPowerUser       = "power-user"
	InsightNeedsSupport    = "needs-support"
	InsightNeedsBufferTime = "needs-buffer-time"
)

// CoordinationInsight is an advisory observation produced by synthesis.
// Recommendations are plain text and never executed.
type CoordinationInsight struct {
	ID              string   `json:"id" bson:"id"`
	Type            string   `json:"type" bson:"type"`
	Description     string   `json:"description" bson:"description"`
	Recommendations []string `json:"recommendations" bson:"recommendations"`
}

// RotatedSummary is the periodically recomputed merged knowledge for a user
type RotatedSummary struct {
	ParticipatingAgents  []string              `json:"participatingAgents" bson:"participatingAgents"`
	UnifiedProfile       UnifiedProfile        `json:"unifiedProfile" bson:"unifiedProfile"`
	CoordinationInsights []CoordinationInsight `json:"coordinationInsights" bson:"coordinationInsights"`
	GeneratedAt          time.Time             `json:"generatedAt" bson:"generatedAt"`
}

// EmptyRotatedSummary returns a summary with zero participants and non-nil collections
func EmptyRotatedSummary() *RotatedSummary {
	return &RotatedSummary{
		ParticipatingAgents: []string{},
		UnifiedProfile: UnifiedProfile{
			Productivity: ProductivityProfile{
				TaskPreferences:         []string{},
				MotivationalTriggers:    []string{},
				OptimalInteractionTimes: []string{},
			},
			Scheduling: SchedulingProfile{
				FavoriteEventTypes:   []string{},
				SchedulingExperience: ExperienceBeginner,
			},
		},
		CoordinationInsights: []CoordinationInsight{},
	}
}

// SanitizedView is the whitelisted subset of another agent's knowledge
type SanitizedView map[string]any

// RotatedKnowledge is what a requesting agent receives about the other agents
type RotatedKnowledge struct {
	UserID            string                   `json:"userId"`
	RequesterID       string                   `json:"requesterId"`
	AgentViews        map[string]SanitizedView `json:"agentViews"`
	CoordinationHints []string                 `json:"coordinationHints"`
	Summary           *RotatedSummary          `json:"summary"`
}

// KnowledgeSummary answers "what do we know about this user" without sanitization.
// It is always structurally valid, even for unknown users.
type KnowledgeSummary struct {
	UserID           string                 `json:"userId"`
	ContributorCount int                    `json:"contributorCount"`
	Contributors     map[string]AccessLevel `json:"contributors"`
	RotatedSummary   *RotatedSummary        `json:"rotatedSummary"`
	LastUpdated      time.Time              `json:"lastUpdated"`
}

// ValidateIDs checks the identifiers every knowledge operation needs
func ValidateIDs(agentID, userID string) error {
	if strings.TrimSpace(agentID) == "" {
		return fmt.Errorf("%w: agent ID is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user ID is required", ErrInvalidArgument)
	}
	return nil
}
