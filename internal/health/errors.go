package health

import (
	"context"
	"errors"
	"strings"
	"time"
)

// IsTransientError detects failures that are likely to clear on their own
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	lower := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"timed out",
		"connection reset",
		"temporarily unavailable",
		"too many requests",
		"rate limit",
		"i/o timeout",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}

	return false
}

// ParseCooldownDuration determines how long to stop calling a component after repeated failures
func ParseCooldownDuration(err error, defaultCooldown time.Duration) time.Duration {
	if err == nil {
		return defaultCooldown
	}

	// Timeouts and throttling - retry soon
	if IsTransientError(err) {
		return 30 * time.Second
	}

	lower := strings.ToLower(err.Error())

	// Component is down - back off longer
	if strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "server selection") {
		return 2 * time.Minute
	}

	return defaultCooldown
}
