package services

import (
	"math"
	"strings"

	"claramesh/internal/models"
)

// scoreBreakdown is one candidate's score, confidence and the heuristics that fired
type scoreBreakdown struct {
	score      float64
	confidence float64
	fired      []string
}

// baseMatch compares a candidate against the anchored context. Each field that
// is present on both sides and equal earns its fraction of BaseWeight; absent
// fields earn nothing and cost nothing.
func baseMatch(anchor *models.ActiveEntityContext, entity models.Entity, config models.ResolverConfig) (float64, []string) {
	var fraction float64
	var fired []string

	anchorTitle := anchor.CleanedTitle
	if anchorTitle == "" {
		anchorTitle = NormalizeTitle(anchor.OriginalTitle)
	}
	if anchorTitle != "" && NormalizeTitle(entity.Title) == anchorTitle {
		fraction += config.TitleFraction
		fired = append(fired, "exact-title match")
	}

	date, clock, _ := SplitEntityStart(entity.Start)
	if anchor.Date != "" && date == anchor.Date {
		fraction += config.DateFraction
		fired = append(fired, "date match")
	}
	if anchor.Time != "" && clock == anchor.Time {
		fraction += config.TimeFraction
		fired = append(fired, "time match")
	}

	location := strings.TrimSpace(entity.Location)
	if anchor.Location != "" && location != "" && strings.EqualFold(location, strings.TrimSpace(anchor.Location)) {
		fraction += config.LocationFraction
		fired = append(fired, "location match")
	}

	return config.BaseWeight * fraction, fired
}

// scoreCandidate adds pattern and behavior adjustments to the base match
func scoreCandidate(anchor *models.ActiveEntityContext, entity models.Entity, config models.ResolverConfig) scoreBreakdown {
	score, fired := baseMatch(anchor, entity, config)
	pattern := anchor.Pattern

	if pattern.PatternType == models.PatternCalendarFocused {
		score += config.CalendarFocusBonus
		fired = append(fired, "calendar-focused pattern")
	}
	if pattern.AgentAffinity[models.AgentScheduling] > pattern.AgentAffinity[models.AgentTask] {
		score += config.CalendarAffinityBonus
		fired = append(fired, "calendar-agent affinity")
	}
	if _, clock, ok := SplitEntityStart(entity.Start); ok && clock != "" && pattern.TimeOfDayAffinity[clock] > 0 {
		score += config.PreferredTimeBonus
		fired = append(fired, "preferred time "+clock)
	}
	if pattern.ContextDepth > config.ContextDepthBonusMin {
		score += config.ContextDepthBonus
		fired = append(fired, "deep context")
	}
	switch anchor.BehaviorType {
	case models.BehaviorPowerUser:
		score += config.PowerUserScoreBonus
		fired = append(fired, "power-user precision")
	case models.BehaviorHelpSeeker:
		score -= config.HelpSeekerPenalty
		fired = append(fired, "help-seeker caution")
	}

	return scoreBreakdown{
		score:      clamp01(score),
		confidence: referenceConfidence(anchor, config),
		fired:      fired,
	}
}

// referenceConfidence is independent of the candidate: it measures how much
// evidence backs the anchor itself
func referenceConfidence(anchor *models.ActiveEntityContext, config models.ResolverConfig) float64 {
	pattern := anchor.Pattern
	confidence := config.BaseConfidence

	if config.MaxContextDepth > 0 {
		depth := math.Min(pattern.ContextDepth, config.MaxContextDepth)
		confidence += config.ContextDepthConfidenceMax * depth / config.MaxContextDepth
	}
	switch anchor.BehaviorType {
	case models.BehaviorPowerUser:
		confidence += config.PowerUserConfidenceBonus
	case models.BehaviorNewUser:
		confidence -= config.NewUserConfidencePenalty
	}
	if pattern.PatternType == models.PatternCalendarFocused && pattern.CalendarFrequency > config.CalendarFrequencyMin {
		confidence += config.CalendarFocusConfidenceBonus
	}
	return clamp01(confidence)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
