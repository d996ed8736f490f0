package models

import "time"

// Entity types an active context can point at
const (
	EntityTypeEvent = "event"
	EntityTypeTask  = "task"
)

// Entity is a calendar event or task as returned by a provider.
// Start and End are free-form provider strings ("2025-11-20T14:00", RFC3339, ...).
type Entity struct {
	ID       string `json:"id" bson:"id"`
	Type     string `json:"type,omitempty" bson:"type,omitempty"`
	Title    string `json:"title" bson:"title"`
	Start    string `json:"start,omitempty" bson:"start,omitempty"`
	End      string `json:"end,omitempty" bson:"end,omitempty"`
	Location string `json:"location,omitempty" bson:"location,omitempty"`
}

// Window bounds a provider listing
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ActiveEntityContext is the most recently referenced entity for a user.
// Only one live instance exists per user; it is overwritten on every new
// entity creation or successful reference.
type ActiveEntityContext struct {
	UserID         string              `json:"userId"`
	EntityID       string              `json:"entityId"`
	EntityType     string              `json:"entityType,omitempty"`
	CleanedTitle   string              `json:"cleanedTitle"`
	OriginalTitle  string              `json:"originalTitle"`
	Date           string              `json:"date,omitempty"` // YYYY-MM-DD
	Time           string              `json:"time,omitempty"` // HH:MM, 24h
	Location       string              `json:"location,omitempty"`
	FreeTextSource string              `json:"freeTextSource,omitempty"`
	Pattern        ConversationPattern `json:"conversationPattern"`
	BehaviorType   BehaviorType        `json:"behaviorType"`
	Timestamp      time.Time           `json:"timestamp"`
}

// IsStale reports whether the context is older than ttl at now
func (c *ActiveEntityContext) IsStale(now time.Time, ttl time.Duration) bool {
	if c == nil {
		return true
	}
	return now.Sub(c.Timestamp) > ttl
}

// Clone returns a copy that shares no maps with c
func (c ActiveEntityContext) Clone() *ActiveEntityContext {
	c.Pattern.AgentAffinity = cloneCounts(c.Pattern.AgentAffinity)
	c.Pattern.TimeOfDayAffinity = cloneCounts(c.Pattern.TimeOfDayAffinity)
	return &c
}

func cloneCounts(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MatchCandidate is an entity scored against a reference
type MatchCandidate struct {
	Entity     Entity  `json:"entity"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Resolution is the full outcome of resolving a reference.
// Match is nil unless Accepted; Reason always explains the outcome.
type Resolution struct {
	Accepted bool             `json:"accepted"`
	Match    *MatchCandidate  `json:"match,omitempty"`
	Ranked   []MatchCandidate `json:"ranked"`
	Reason   string           `json:"reason"`
}

// Update dimensions that contextual validation knows about
const (
	DimensionTime     = "time"
	DimensionDate     = "date"
	DimensionLocation = "location"
	DimensionTitle    = "title"
	DimensionDeadline = "deadline"
	DimensionPriority = "priority"
	DimensionDelete   = "delete"
)

// UpdateValidation annotates a pending mutation. Allowed is always true:
// validation never blocks the underlying operation.
type UpdateValidation struct {
	Allowed     bool     `json:"allowed"`
	Dimension   string   `json:"dimension"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// UpdateOutcome is the result of applying a mutation to a resolved entity
type UpdateOutcome struct {
	Applied    bool             `json:"applied"`
	Validation UpdateValidation `json:"validation"`
	Error      string           `json:"error,omitempty"`
}
