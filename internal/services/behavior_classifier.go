package services

import (
	"strings"

	"claramesh/internal/models"
)

// ClassifyBehavior tags a user's interaction style. Rules are checked in
// order and the first match wins.
func ClassifyBehavior(signals models.ConversationSignals, config models.BehaviorConfig) models.BehaviorType {
	shortCount := len(signals.ShortTerm)
	longCount := len(signals.LongTerm)

	switch {
	case shortCount < config.NewUserMaxShortTerm && longCount < config.NewUserMaxLongTerm:
		return models.BehaviorNewUser
	case shortCount > config.PowerUserMinShortTerm || longCount > config.PowerUserMinLongTerm:
		return models.BehaviorPowerUser
	case seeksHelp(signals):
		return models.BehaviorHelpSeeker
	default:
		return models.BehaviorRegularUser
	}
}

// seeksHelp looks for both a question mark and the word "help" anywhere in
// the recent history, current message included
func seeksHelp(signals models.ConversationSignals) bool {
	history := strings.ToLower(strings.Join(append(append([]string{}, signals.ShortTerm...), signals.Current), "\n"))
	return strings.Contains(history, "?") && strings.Contains(history, "help")
}
