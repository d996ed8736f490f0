package services

import (
	"testing"

	"claramesh/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateUpdate(t *testing.T) {
	taskFocused := models.ConversationPattern{PatternType: models.PatternTaskFocused}
	calendarFocused := models.ConversationPattern{PatternType: models.PatternCalendarFocused}
	balanced := models.DefaultConversationPattern()

	tests := []struct {
		name        string
		pattern     models.ConversationPattern
		behavior    models.BehaviorType
		dimension   string
		warnings    int
		suggestions []string
	}{
		{"time change for task-focused user", taskFocused, models.BehaviorRegularUser, models.DimensionTime, 1, []string{"create a task reminder instead"}},
		{"location change for task-focused user", taskFocused, models.BehaviorRegularUser, models.DimensionLocation, 1, []string{"create a task reminder instead"}},
		{"deadline change for calendar-focused user", calendarFocused, models.BehaviorPowerUser, models.DimensionDeadline, 1, []string{"block calendar time instead"}},
		{"priority change for balanced user", balanced, models.BehaviorRegularUser, models.DimensionPriority, 0, []string{}},
		{"delete by new user", balanced, models.BehaviorNewUser, models.DimensionDelete, 1, []string{"repeat the item title back before deleting"}},
		{"delete by regular user", balanced, models.BehaviorRegularUser, models.DimensionDelete, 0, []string{}},
		{"help seeker without warnings", balanced, models.BehaviorHelpSeeker, models.DimensionTitle, 0, []string{"summarize the change after applying it"}},
		{"help seeker with warnings", taskFocused, models.BehaviorHelpSeeker, models.DimensionDate, 1, []string{"create a task reminder instead"}},
		{"unknown dimension", taskFocused, models.BehaviorRegularUser, "color", 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateUpdate(tt.pattern, tt.behavior, tt.dimension)
			assert.True(t, v.Allowed, "validation never blocks")
			assert.Equal(t, tt.dimension, v.Dimension)
			assert.Len(t, v.Warnings, tt.warnings)
			assert.Equal(t, tt.suggestions, v.Suggestions)
		})
	}
}
