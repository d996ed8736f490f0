package services

import (
	"fmt"

	"claramesh/internal/models"
)

// ValidateUpdate cross-checks a pending mutation against how the user usually
// works. It only annotates: Allowed is always true.
func ValidateUpdate(pattern models.ConversationPattern, behavior models.BehaviorType, dimension string) models.UpdateValidation {
	v := models.UpdateValidation{
		Allowed:     true,
		Dimension:   dimension,
		Warnings:    []string{},
		Suggestions: []string{},
	}

	switch dimension {
	case models.DimensionTime, models.DimensionDate, models.DimensionLocation:
		if pattern.PatternType == models.PatternTaskFocused {
			v.Warnings = append(v.Warnings,
				fmt.Sprintf("changing %s on a calendar event while the user mostly manages tasks", dimension))
			v.Suggestions = append(v.Suggestions, "create a task reminder instead")
		}
	case models.DimensionDeadline, models.DimensionPriority:
		if pattern.PatternType == models.PatternCalendarFocused {
			v.Warnings = append(v.Warnings,
				fmt.Sprintf("changing task %s while the user mostly works from the calendar", dimension))
			v.Suggestions = append(v.Suggestions, "block calendar time instead")
		}
	case models.DimensionDelete:
		if behavior == models.BehaviorNewUser {
			v.Warnings = append(v.Warnings, "deleting for a new user; confirm the right item was picked")
			v.Suggestions = append(v.Suggestions, "repeat the item title back before deleting")
		}
	}

	if behavior == models.BehaviorHelpSeeker && len(v.Warnings) == 0 {
		v.Suggestions = append(v.Suggestions, "summarize the change after applying it")
	}
	return v
}
