package models

// PatternType summarizes which domain a user's conversations lean towards
type PatternType string

const (
	PatternCalendarFocused PatternType = "calendar_focused"
	PatternTaskFocused     PatternType = "task_focused"
	PatternBalanced        PatternType = "balanced"
)

// BehaviorType is the discrete interaction-style tag for a user
type BehaviorType string

const (
	BehaviorNewUser     BehaviorType = "new_user"
	BehaviorPowerUser   BehaviorType = "power_user"
	BehaviorHelpSeeker  BehaviorType = "help_seeker"
	BehaviorRegularUser BehaviorType = "regular_user"
)

// ConversationPattern is derived from recent conversation and long-term memory.
// It is snapshotted into ActiveEntityContext, never persisted on its own.
type ConversationPattern struct {
	PatternType       PatternType    `json:"patternType" bson:"patternType"`
	CalendarFrequency float64        `json:"calendarFrequency" bson:"calendarFrequency"`
	TaskFrequency     float64        `json:"taskFrequency" bson:"taskFrequency"`
	AgentAffinity     map[string]int `json:"agentAffinity" bson:"agentAffinity"`
	TimeOfDayAffinity map[string]int `json:"timeOfDayAffinity" bson:"timeOfDayAffinity"` // "HH:MM" -> count
	ContextDepth      float64        `json:"contextDepth" bson:"contextDepth"`
}

// DefaultConversationPattern is the pattern used when nothing is known
func DefaultConversationPattern() ConversationPattern {
	return ConversationPattern{
		PatternType:       PatternBalanced,
		AgentAffinity:     map[string]int{},
		TimeOfDayAffinity: map[string]int{},
	}
}

// ConversationSignals is the raw input the pattern analyzer and behavior
// classifier work from
type ConversationSignals struct {
	ShortTerm []string
	LongTerm  []string
	Current   string
}
