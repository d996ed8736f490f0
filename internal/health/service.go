package health

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

const (
	defaultFailureThreshold = 3
	defaultCooldownDuration = 1 * time.Minute
)

// Service tracks the health of the coordinator's external collaborators.
// Components that fail repeatedly are put into cooldown so callers degrade
// to defaults instead of waiting on a dead dependency.
type Service struct {
	mu               sync.RWMutex
	components       map[string]*ComponentHealth
	pingers          map[string]Pinger
	failureThreshold int
	cooldownDuration time.Duration
	now              func() time.Time
}

// NewService creates a new health service
func NewService(failureThreshold int, cooldownDuration time.Duration) *Service {
	if failureThreshold <= 0 {
		failureThreshold = defaultFailureThreshold
	}
	if cooldownDuration <= 0 {
		cooldownDuration = defaultCooldownDuration
	}

	return &Service{
		components:       make(map[string]*ComponentHealth),
		pingers:          make(map[string]Pinger),
		failureThreshold: failureThreshold,
		cooldownDuration: cooldownDuration,
		now:              time.Now,
	}
}

// SetClock overrides the time source (tests)
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Register adds a component to the health cache
func (s *Service) Register(component string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerLocked(component)
}

func (s *Service) registerLocked(component string) *ComponentHealth {
	h, exists := s.components[component]
	if !exists {
		h = &ComponentHealth{
			Component: component,
			Status:    StatusUnknown,
		}
		s.components[component] = h
		log.Printf("[HEALTH] Registered component %s", component)
	}
	return h
}

// RegisterPinger registers a component together with an active probe
func (s *Service) RegisterPinger(component string, pinger Pinger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerLocked(component)
	s.pingers[component] = pinger
}

// IsAvailable reports whether callers should try the component.
// Unknown components are assumed available; cooldown ends on its own.
func (s *Service) IsAvailable(component string) bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.components[component]
	if !exists {
		return true
	}
	if h.Status == StatusCooldown {
		return s.now().After(h.CooldownUntil)
	}
	return true
}

// MarkHealthy records a successful call
func (s *Service) MarkHealthy(component string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.registerLocked(component)
	wasUnhealthy := h.Status == StatusDegraded || h.Status == StatusCooldown
	now := s.now()
	h.Status = StatusHealthy
	h.FailureCount = 0
	h.LastError = ""
	h.LastSuccessAt = now
	h.LastChecked = now
	h.CooldownUntil = time.Time{}

	if wasUnhealthy {
		log.Printf("[HEALTH] %s recovered - now healthy", component)
	}
}

// MarkFailure records a failed call. Reaching the threshold starts a cooldown.
func (s *Service) MarkFailure(component string, err error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.registerLocked(component)
	now := s.now()
	h.FailureCount++
	h.LastChecked = now
	if err != nil {
		h.LastError = err.Error()
	}

	if h.FailureCount >= s.failureThreshold {
		h.Status = StatusCooldown
		h.CooldownUntil = now.Add(ParseCooldownDuration(err, s.cooldownDuration))
		log.Printf("[HEALTH] %s in COOLDOWN until %s after %d failures: %s",
			component, h.CooldownUntil.Format(time.RFC3339), h.FailureCount, truncateStr(h.LastError, 200))
		return
	}

	h.Status = StatusDegraded
	log.Printf("[HEALTH] %s failure %d/%d: %s",
		component, h.FailureCount, s.failureThreshold, truncateStr(h.LastError, 200))
}

// Probe runs the registered pinger for a component and records the result
func (s *Service) Probe(ctx context.Context, component string) error {
	s.mu.RLock()
	pinger, ok := s.pingers[component]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no probe registered for %s", component)
	}

	if err := pinger.Ping(ctx); err != nil {
		s.MarkFailure(component, err)
		return err
	}
	s.MarkHealthy(component)
	return nil
}

// ProbeAll probes every component that has a pinger and returns the failures
func (s *Service) ProbeAll(ctx context.Context) map[string]error {
	s.mu.RLock()
	names := make([]string, 0, len(s.pingers))
	for name := range s.pingers {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)

	failures := make(map[string]error)
	for _, name := range names {
		if err := s.Probe(ctx, name); err != nil {
			failures[name] = err
		}
	}
	return failures
}

// Get returns a copy of a component's health entry
func (s *Service) Get(component string) (ComponentHealth, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.components[component]
	if !ok {
		return ComponentHealth{}, false
	}
	return *h, true
}

// GetStatus returns a health summary across all components
func (s *Service) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	counts := map[string]int{"healthy": 0, "degraded": 0, "cooldown": 0, "unknown": 0}
	components := make(map[string]string, len(s.components))

	for name, h := range s.components {
		status := h.Status
		if status == StatusCooldown && now.After(h.CooldownUntil) {
			status = StatusUnknown
		}
		counts[string(status)]++
		components[name] = string(status)
	}

	return map[string]interface{}{
		"total":      len(s.components),
		"counts":     counts,
		"components": components,
	}
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
