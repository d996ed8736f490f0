package health

import (
	"context"
	"time"
)

// HealthStatus represents the health state of an upstream component
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusDegraded HealthStatus = "degraded"
	StatusCooldown HealthStatus = "cooldown"
	StatusUnknown  HealthStatus = "unknown"
)

// ComponentHealth tracks the health of one external collaborator
// (memory store, calendar provider, task provider, ...)
type ComponentHealth struct {
	Component     string
	Status        HealthStatus
	LastChecked   time.Time
	LastSuccessAt time.Time
	FailureCount  int
	LastError     string
	CooldownUntil time.Time
}

// Pinger is implemented by anything that can cheaply prove it is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }
