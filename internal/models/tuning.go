package models

// ResolverConfig holds the reference-resolution heuristic constants.
// Score and confidence are independent axes; both thresholds must be met.
type ResolverConfig struct {
	// Base match: fractions of BaseWeight earned by each matching field
	BaseWeight       float64 `yaml:"base_weight"`       // Default: 0.6
	TitleFraction    float64 `yaml:"title_fraction"`    // Default: 0.5
	DateFraction     float64 `yaml:"date_fraction"`     // Default: 0.25
	TimeFraction     float64 `yaml:"time_fraction"`     // Default: 0.15
	LocationFraction float64 `yaml:"location_fraction"` // Default: 0.10

	// Score adjustments
	CalendarFocusBonus    float64 `yaml:"calendar_focus_bonus"`    // Default: 0.1
	CalendarAffinityBonus float64 `yaml:"calendar_affinity_bonus"` // Default: 0.1
	PreferredTimeBonus    float64 `yaml:"preferred_time_bonus"`    // Default: 0.1
	ContextDepthBonus     float64 `yaml:"context_depth_bonus"`     // Default: 0.05
	ContextDepthBonusMin  float64 `yaml:"context_depth_bonus_min"` // Default: 5
	PowerUserScoreBonus   float64 `yaml:"power_user_score_bonus"`  // Default: 0.1
	HelpSeekerPenalty     float64 `yaml:"help_seeker_penalty"`     // Default: 0.05

	// Confidence
	BaseConfidence               float64 `yaml:"base_confidence"`                 // Default: 0.5
	ContextDepthConfidenceMax    float64 `yaml:"context_depth_confidence_max"`    // Default: 0.3
	MaxContextDepth              float64 `yaml:"max_context_depth"`               // Default: 10
	PowerUserConfidenceBonus     float64 `yaml:"power_user_confidence_bonus"`     // Default: 0.2
	NewUserConfidencePenalty     float64 `yaml:"new_user_confidence_penalty"`     // Default: 0.2
	CalendarFocusConfidenceBonus float64 `yaml:"calendar_focus_confidence_bonus"` // Default: 0.15
	CalendarFrequencyMin         float64 `yaml:"calendar_frequency_min"`          // Default: 5

	// Acceptance
	ScoreThreshold      float64 `yaml:"score_threshold"`      // Default: 0.3
	ConfidenceThreshold float64 `yaml:"confidence_threshold"` // Default: 0.4
}

// DefaultResolverConfig returns the default resolver constants
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		BaseWeight:       0.6,
		TitleFraction:    0.5,
		DateFraction:     0.25,
		TimeFraction:     0.15,
		LocationFraction: 0.10,

		CalendarFocusBonus:    0.1,
		CalendarAffinityBonus: 0.1,
		PreferredTimeBonus:    0.1,
		ContextDepthBonus:     0.05,
		ContextDepthBonusMin:  5,
		PowerUserScoreBonus:   0.1,
		HelpSeekerPenalty:     0.05,

		BaseConfidence:               0.5,
		ContextDepthConfidenceMax:    0.3,
		MaxContextDepth:              10,
		PowerUserConfidenceBonus:     0.2,
		NewUserConfidencePenalty:     0.2,
		CalendarFocusConfidenceBonus: 0.15,
		CalendarFrequencyMin:         5,

		ScoreThreshold:      0.3,
		ConfidenceThreshold: 0.4,
	}
}

// SynthesisConfig holds the knowledge synthesis and coordination-hint thresholds
type SynthesisConfig struct {
	MinContributors            int     `yaml:"min_contributors"`              // Default: 2
	ExperiencedMinEvents       int     `yaml:"experienced_min_events"`        // Default: 20 (strictly greater)
	IntermediateMinEvents      int     `yaml:"intermediate_min_events"`       // Default: 5 (strictly greater)
	PowerUserCompletionRate    float64 `yaml:"power_user_completion_rate"`    // Default: 80 (strictly greater)
	NeedsSupportCompletionRate float64 `yaml:"needs_support_completion_rate"` // Default: 50 (strictly less)
	BufferTimeMinutes          int     `yaml:"buffer_time_minutes"`           // Default: 15 (strictly greater)
	HintCompletionRate         float64 `yaml:"hint_completion_rate"`          // Default: 70
	HintEventCount             int     `yaml:"hint_event_count"`              // Default: 10
}

// DefaultSynthesisConfig returns the default synthesis thresholds
func DefaultSynthesisConfig() SynthesisConfig {
	return SynthesisConfig{
		MinContributors:            2,
		ExperiencedMinEvents:       20,
		IntermediateMinEvents:      5,
		PowerUserCompletionRate:    80,
		NeedsSupportCompletionRate: 50,
		BufferTimeMinutes:          15,
		HintCompletionRate:         70,
		HintEventCount:             10,
	}
}

// PatternConfig holds the conversation-pattern vocabulary and weights
type PatternConfig struct {
	RecentLimit          int               `yaml:"recent_limit"`            // Default: 15
	ShortTermWeight      float64           `yaml:"short_term_weight"`       // Default: 1
	LongTermWeight       float64           `yaml:"long_term_weight"`        // Default: 2
	FocusRatio           float64           `yaml:"focus_ratio"`             // Default: 1.5
	ShortTermDepthWeight float64           `yaml:"short_term_depth_weight"` // Default: 0.3
	LongTermDepthWeight  float64           `yaml:"long_term_depth_weight"`  // Default: 0.7
	MaxContextDepth      float64           `yaml:"max_context_depth"`       // Default: 10
	CalendarKeywords     []string          `yaml:"calendar_keywords"`
	TaskKeywords         []string          `yaml:"task_keywords"`
	AgentAliases         map[string]string `yaml:"agent_aliases"` // mention -> agent ID
}

// DefaultPatternConfig returns the default pattern vocabulary and weights
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		RecentLimit:          15,
		ShortTermWeight:      1,
		LongTermWeight:       2,
		FocusRatio:           1.5,
		ShortTermDepthWeight: 0.3,
		LongTermDepthWeight:  0.7,
		MaxContextDepth:      10,
		CalendarKeywords: []string{
			"meeting", "event", "calendar", "schedule", "appointment",
			"call", "reschedule", "agenda", "invite", "conference",
		},
		TaskKeywords: []string{
			"task", "todo", "to-do", "deadline", "complete", "finish",
			"project", "priority", "checklist", "done",
		},
		AgentAliases: map[string]string{
			"scheduling agent":   AgentScheduling,
			"scheduling-agent":   AgentScheduling,
			"calendar agent":     AgentScheduling,
			"task agent":         AgentTask,
			"task-agent":         AgentTask,
			"task manager":       AgentTask,
			"orchestrator":       AgentOrchestrator,
			"orchestrator-agent": AgentOrchestrator,
		},
	}
}

// BehaviorConfig holds the behavior classification thresholds
type BehaviorConfig struct {
	NewUserMaxShortTerm   int `yaml:"new_user_max_short_term"`   // Default: 5 (strictly less)
	NewUserMaxLongTerm    int `yaml:"new_user_max_long_term"`    // Default: 3 (strictly less)
	PowerUserMinShortTerm int `yaml:"power_user_min_short_term"` // Default: 20 (strictly greater)
	PowerUserMinLongTerm  int `yaml:"power_user_min_long_term"`  // Default: 10 (strictly greater)
}

// DefaultBehaviorConfig returns the default behavior thresholds
func DefaultBehaviorConfig() BehaviorConfig {
	return BehaviorConfig{
		NewUserMaxShortTerm:   5,
		NewUserMaxLongTerm:    3,
		PowerUserMinShortTerm: 20,
		PowerUserMinLongTerm:  10,
	}
}

// Tuning groups every heuristic constant that can be overridden from a file
type Tuning struct {
	Resolver  ResolverConfig  `yaml:"resolver"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Pattern   PatternConfig   `yaml:"pattern"`
	Behavior  BehaviorConfig  `yaml:"behavior"`
}

// DefaultTuning returns all default heuristic constants
func DefaultTuning() *Tuning {
	return &Tuning{
		Resolver:  DefaultResolverConfig(),
		Synthesis: DefaultSynthesisConfig(),
		Pattern:   DefaultPatternConfig(),
		Behavior:  DefaultBehaviorConfig(),
	}
}
