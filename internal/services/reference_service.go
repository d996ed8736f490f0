package services

import (
	"context"
	"fmt"
	"log"

	"claramesh/internal/health"
	"claramesh/internal/models"
)

// EntityProvider is an external calendar or task backend
type EntityProvider interface {
	List(ctx context.Context, userID string, window models.Window) ([]models.Entity, error)
	Create(ctx context.Context, userID string, entity models.Entity) (models.Entity, error)
	Update(ctx context.Context, userID string, entity models.Entity) error
	Delete(ctx context.Context, userID string, entity models.Entity) error
}

// CalendarProvider lists and mutates calendar events
type CalendarProvider interface {
	EntityProvider
}

// TaskProvider lists and mutates tasks
type TaskProvider interface {
	EntityProvider
}

// ReferenceService runs the reference workflow end to end: it pulls candidates
// from a provider, resolves against the active context, keeps that context
// current and applies validated updates.
type ReferenceService struct {
	calendar CalendarProvider
	tasks    TaskProvider
	resolver *ReferenceResolver
	contexts *EntityContextService
	patterns *ConversationPatternService
	memory   MemoryStore
	limiter  *ProviderRateLimiter
	health   *health.Service
	metrics  *Metrics
}

// NewReferenceService wires the reference workflow. tasks and memory may be nil.
func NewReferenceService(
	calendar CalendarProvider,
	tasks TaskProvider,
	resolver *ReferenceResolver,
	contexts *EntityContextService,
	patterns *ConversationPatternService,
) *ReferenceService {
	return &ReferenceService{
		calendar: calendar,
		tasks:    tasks,
		resolver: resolver,
		contexts: contexts,
		patterns: patterns,
	}
}

// SetMemoryStore records entity-context snapshots in long-lived memory
func (s *ReferenceService) SetMemoryStore(memory MemoryStore) {
	s.memory = memory
}

// SetRateLimiter throttles provider calls
func (s *ReferenceService) SetRateLimiter(limiter *ProviderRateLimiter) {
	s.limiter = limiter
}

// SetHealthService skips providers in cooldown and records their failures
func (s *ReferenceService) SetHealthService(healthService *health.Service) {
	s.health = healthService
}

// SetMetrics attaches Prometheus metrics
func (s *ReferenceService) SetMetrics(metrics *Metrics) {
	s.metrics = metrics
}

// ResolveFromCalendar resolves a reference against the user's calendar events
func (s *ReferenceService) ResolveFromCalendar(ctx context.Context, userID, reference string, window models.Window) models.Resolution {
	return s.resolveFrom(ctx, s.calendar, models.UpstreamCalendarProvider, models.EntityTypeEvent, userID, reference, window)
}

// ResolveFromTasks resolves a reference against the user's tasks
func (s *ReferenceService) ResolveFromTasks(ctx context.Context, userID, reference string, window models.Window) models.Resolution {
	return s.resolveFrom(ctx, s.tasks, models.UpstreamTaskProvider, models.EntityTypeTask, userID, reference, window)
}

func (s *ReferenceService) resolveFrom(
	ctx context.Context,
	provider EntityProvider,
	component, entityType, userID, reference string,
	window models.Window,
) models.Resolution {
	anchor := s.contexts.Get(ctx, userID)
	if anchor == nil {
		return s.resolver.ResolveWithContext(userID, reference, nil, nil)
	}

	candidates, err := s.listCandidates(ctx, provider, component, userID, window)
	if err != nil {
		return models.Resolution{
			Ranked: []models.MatchCandidate{},
			Reason: "upstream unavailable: " + err.Error(),
		}
	}
	for i := range candidates {
		if candidates[i].Type == "" {
			candidates[i].Type = entityType
		}
	}

	resolution := s.resolver.ResolveWithContext(userID, reference, anchor, candidates)
	if resolution.Accepted {
		next := contextFromEntity(userID, resolution.Match.Entity, anchor.Pattern, anchor.BehaviorType, reference)
		if err := s.contexts.Set(ctx, next); err != nil {
			log.Printf("⚠️ [REFERENCE] Failed to refresh context for %s: %v", userID, err)
		}
	}
	return resolution
}

func (s *ReferenceService) listCandidates(ctx context.Context, provider EntityProvider, component, userID string, window models.Window) ([]models.Entity, error) {
	if provider == nil {
		return nil, fmt.Errorf("%s not configured", component)
	}
	if !s.health.IsAvailable(component) {
		return nil, fmt.Errorf("%s in cooldown", component)
	}
	if err := s.limiter.Wait(ctx, userID); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	entities, err := provider.List(ctx, userID, window)
	if err != nil {
		upstream := models.NewUpstreamError(component, "list", err)
		s.providerFailure(component, upstream)
		return nil, upstream
	}
	s.health.MarkHealthy(component)
	return entities, nil
}

// RecordEntityCreated makes a freshly created entity the user's active context
func (s *ReferenceService) RecordEntityCreated(ctx context.Context, userID, agentID string, entity models.Entity, sourceText string) (*models.ActiveEntityContext, error) {
	if err := models.ValidateIDs(agentID, userID); err != nil {
		return nil, err
	}

	pattern, behavior := models.DefaultConversationPattern(), models.BehaviorNewUser
	if s.patterns != nil {
		pattern, behavior = s.patterns.Analyze(ctx, userID, agentID, sourceText)
	}

	entityContext := contextFromEntity(userID, entity, pattern, behavior, sourceText)
	if err := s.contexts.Set(ctx, entityContext); err != nil {
		return nil, err
	}

	if s.memory != nil {
		snapshot := models.MemoryRecord{
			AgentID: agentID,
			Type:    models.MemoryTypeEntityContext,
			Content: fmt.Sprintf("%s %s: %s", entity.Type, entity.ID, entity.Title),
		}
		if err := s.memory.Store(ctx, userID, snapshot); err != nil {
			log.Printf("⚠️ [REFERENCE] Failed to record entity snapshot for %s: %v", userID, err)
			s.health.MarkFailure(models.UpstreamMemoryStore, err)
			s.metrics.RecordUpstreamFailure(models.UpstreamMemoryStore)
		}
	}

	log.Printf("📌 [REFERENCE] Active context for %s -> %s %q (%s, %s)",
		userID, entity.ID, entity.Title, pattern.PatternType, behavior)
	return s.contexts.Get(ctx, userID), nil
}

// ApplyUpdate validates a mutation of a resolved entity against the user's
// pattern and sends it to the owning provider. Validation never blocks;
// provider failures are reported in the outcome.
func (s *ReferenceService) ApplyUpdate(ctx context.Context, userID string, match *models.MatchCandidate, dimension string, updated models.Entity) models.UpdateOutcome {
	pattern, behavior := models.DefaultConversationPattern(), models.BehaviorRegularUser
	anchor := s.contexts.Get(ctx, userID)
	if anchor != nil {
		pattern, behavior = anchor.Pattern, anchor.BehaviorType
	}

	outcome := models.UpdateOutcome{Validation: ValidateUpdate(pattern, behavior, dimension)}
	if match == nil {
		outcome.Error = "no resolved match to update"
		return outcome
	}
	for _, warning := range outcome.Validation.Warnings {
		log.Printf("⚠️ [REFERENCE] Update warning for %s on %s: %s", userID, match.Entity.ID, warning)
	}

	var provider EntityProvider = s.calendar
	component := models.UpstreamCalendarProvider
	if match.Entity.Type == models.EntityTypeTask {
		provider, component = s.tasks, models.UpstreamTaskProvider
	}
	if provider == nil {
		outcome.Error = fmt.Sprintf("%s not configured", component)
		return outcome
	}
	if !s.health.IsAvailable(component) {
		outcome.Error = fmt.Sprintf("%s in cooldown", component)
		return outcome
	}
	if err := s.limiter.Wait(ctx, userID); err != nil {
		outcome.Error = fmt.Sprintf("rate limit wait: %v", err)
		return outcome
	}

	if updated.ID == "" {
		updated.ID = match.Entity.ID
	}
	if updated.Type == "" {
		updated.Type = match.Entity.Type
	}

	op := "update"
	var err error
	if dimension == models.DimensionDelete {
		op = "delete"
		err = provider.Delete(ctx, userID, updated)
	} else {
		err = provider.Update(ctx, userID, updated)
	}
	if err != nil {
		upstream := models.NewUpstreamError(component, op, err)
		s.providerFailure(component, upstream)
		outcome.Error = upstream.Error()
		return outcome
	}
	s.health.MarkHealthy(component)
	outcome.Applied = true

	if op == "delete" {
		s.contexts.Clear(ctx, userID)
	} else {
		next := contextFromEntity(userID, updated, pattern, behavior, "")
		if anchor != nil {
			next.FreeTextSource = anchor.FreeTextSource
		}
		if err := s.contexts.Set(ctx, next); err != nil {
			log.Printf("⚠️ [REFERENCE] Failed to refresh context for %s: %v", userID, err)
		}
	}
	return outcome
}

func (s *ReferenceService) providerFailure(component string, err error) {
	log.Printf("❌ [REFERENCE] %v", err)
	s.health.MarkFailure(component, err)
	s.metrics.RecordUpstreamFailure(component)
}

func contextFromEntity(userID string, entity models.Entity, pattern models.ConversationPattern, behavior models.BehaviorType, source string) models.ActiveEntityContext {
	date, clock, _ := SplitEntityStart(entity.Start)
	return models.ActiveEntityContext{
		UserID:         userID,
		EntityID:       entity.ID,
		EntityType:     entity.Type,
		CleanedTitle:   NormalizeTitle(entity.Title),
		OriginalTitle:  entity.Title,
		Date:           date,
		Time:           clock,
		Location:       entity.Location,
		FreeTextSource: source,
		Pattern:        pattern,
		BehaviorType:   behavior,
	}
}
