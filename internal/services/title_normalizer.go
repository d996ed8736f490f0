package services

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// isDecorativeRune matches pictographs and the joiners/modifiers that glue them together
func isDecorativeRune(r rune) bool {
	switch {
	case unicode.Is(unicode.So, r): // emoji, dingbats, transport and map symbols
		return true
	case r == 0x200D: // zero width joiner
		return true
	case r == 0x20E3: // combining enclosing keycap
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	case r >= 0xE0020 && r <= 0xE007F: // tag sequences
		return true
	}
	return false
}

// NormalizeTitle strips decorative symbols, folds case and collapses whitespace
// so "🩺  Doctor Appointment" and "doctor appointment" compare equal.
// NormalizeTitle(NormalizeTitle(x)) == NormalizeTitle(x).
func NormalizeTitle(title string) string {
	decorative := runes.Predicate(isDecorativeRune)
	// Composition must run after the last removal.
	t := transform.Chain(
		runes.Remove(decorative),
		norm.NFKC,
		cases.Fold(),
		norm.NFKC,
		runes.Remove(decorative),
		norm.NFKC,
	)
	cleaned, _, err := transform.String(t, title)
	if err != nil {
		cleaned = strings.ToLower(title)
	}
	return strings.Join(strings.Fields(cleaned), " ")
}

var entityTimeLayouts = []struct {
	layout  string
	hasTime bool
}{
	{time.RFC3339, true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02T15:04", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02 15:04", true},
	{"2006-01-02", false},
}

// SplitEntityStart turns a provider start value into "YYYY-MM-DD" and "HH:MM".
// Known layouts are tried first; anything else goes through dateparse, where a
// midnight result is read as date-only.
func SplitEntityStart(start string) (date, clock string, ok bool) {
	start = strings.TrimSpace(start)
	if start == "" {
		return "", "", false
	}

	for _, l := range entityTimeLayouts {
		t, err := time.Parse(l.layout, start)
		if err != nil {
			continue
		}
		if l.hasTime {
			return t.Format("2006-01-02"), t.Format("15:04"), true
		}
		return t.Format("2006-01-02"), "", true
	}

	t, err := dateparse.ParseIn(start, time.UTC)
	if err != nil {
		return "", "", false
	}
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("2006-01-02"), "", true
	}
	return t.Format("2006-01-02"), t.Format("15:04"), true
}

// FormatClock renders an hour and minute as a 24h "HH:MM" key
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
