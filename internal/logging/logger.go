package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithUser returns a logger with the user ID attached.
// Use this for everything logged on behalf of one user's turn.
func WithUser(userID string) *slog.Logger {
	return slog.With("user_id", userID)
}

// WithAgent returns a logger scoped to an agent acting for a user
func WithAgent(logger *slog.Logger, agentID string) *slog.Logger {
	return logger.With("agent_id", agentID)
}

// WithJob returns a logger scoped to a maintenance job run
func WithJob(jobName, runID string) *slog.Logger {
	return slog.With(
		"job", jobName,
		"run_id", runID,
	)
}
