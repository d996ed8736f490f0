package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Doctor Appointment", "doctor appointment"},
		{"emoji prefix", "🩺 Doctor Appointment", "doctor appointment"},
		{"dingbat and spaces", "✅  Finish   report ", "finish report"},
		{"transport symbol", "✈️ Flight to Berlin", "flight to berlin"},
		{"zwj sequence", "👩‍💻 Code review", "code review"},
		{"skin tone", "👍🏽 Team sync", "team sync"},
		{"full width", "Ｔｅａｍ Ｍｅｅｔｉｎｇ", "team meeting"},
		{"only symbols", "🎉🎉", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.input))
		})
	}
}

func TestNormalizeTitleIsIdempotent(t *testing.T) {
	inputs := []string{
		"🩺 Doctor Appointment",
		"  MIXED case\tTitle\n",
		"Straße Meeting",
		"Ｔｅａｍ Ｍｅｅｔｉｎｇ 📅",
		"İstanbul trip ✈️",
		"Café ☕ catch-up",
		"1️⃣ first item",
		"e\U0001f389\u0301 party",
		"e\ufe0f\u0301",
		"a\u200d\u0308b",
		"",
	}

	for _, input := range inputs {
		once := NormalizeTitle(input)
		assert.Equal(t, once, NormalizeTitle(once), "input %q", input)
	}
	assert.Equal(t, "\u00e9", NormalizeTitle("e\U0001f389\u0301"))
}

func TestSplitEntityStart(t *testing.T) {
	tests := []struct {
		input     string
		wantDate  string
		wantClock string
		wantOK    bool
	}{
		{"2025-11-20T14:00", "2025-11-20", "14:00", true},
		{"2025-11-20T14:00:30", "2025-11-20", "14:00", true},
		{"2025-11-20T09:15:00+01:00", "2025-11-20", "09:15", true},
		{"2025-11-20 18:45", "2025-11-20", "18:45", true},
		{"2025-11-20", "2025-11-20", "", true},
		{"November 20, 2025 3:30:00 PM", "2025-11-20", "15:30", true},
		{"", "", "", false},
		{"not a date", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			date, clock, ok := SplitEntityStart(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDate, date)
			assert.Equal(t, tt.wantClock, clock)
		})
	}
}
