package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"claramesh/internal/health"
	"claramesh/internal/models"

	"github.com/patrickmn/go-cache"
)

// EntityContextService holds each user's active entity context: an
// in-process cache in front of a durable store, both bounded by the same TTL.
type EntityContextService struct {
	cache   *cache.Cache
	durable EntityContextStore
	ttl     time.Duration
	health  *health.Service
	metrics *Metrics
	changes ContextChangePublisher

	mu  sync.RWMutex
	now func() time.Time
}

// NewEntityContextService creates a context service. durable may be nil.
func NewEntityContextService(durable EntityContextStore, ttl time.Duration) *EntityContextService {
	return &EntityContextService{
		cache:   cache.New(ttl, 2*ttl),
		durable: durable,
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetHealthService attaches upstream health tracking for the durable store
func (s *EntityContextService) SetHealthService(healthService *health.Service) {
	s.health = healthService
}

// SetMetrics attaches Prometheus metrics
func (s *EntityContextService) SetMetrics(metrics *Metrics) {
	s.metrics = metrics
}

// SetChangePublisher announces local changes so other instances evict their copy
func (s *EntityContextService) SetChangePublisher(changes ContextChangePublisher) {
	s.changes = changes
}

// SetClock overrides the time source (tests)
func (s *EntityContextService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *EntityContextService) clock() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

// TTL returns how long a context stays live
func (s *EntityContextService) TTL() time.Duration {
	return s.ttl
}

// Get returns the user's live context, refreshing the cache from the durable
// store on a miss. Stale or missing contexts yield nil.
func (s *EntityContextService) Get(ctx context.Context, userID string) *models.ActiveEntityContext {
	now := s.clock()

	if cached, found := s.cache.Get(userID); found {
		if entityContext, ok := cached.(models.ActiveEntityContext); ok && !entityContext.IsStale(now, s.ttl) {
			return entityContext.Clone()
		}
		s.cache.Delete(userID)
	}

	if s.durable == nil || !s.health.IsAvailable(models.UpstreamEntityContext) {
		return nil
	}

	stored, err := s.durable.Get(ctx, userID)
	if err != nil {
		log.Printf("⚠️ [ENTITY-CONTEXT] Durable lookup failed for %s: %v", userID, err)
		s.upstreamFailure(err)
		return nil
	}
	s.health.MarkHealthy(models.UpstreamEntityContext)
	if stored == nil || stored.IsStale(now, s.ttl) {
		return nil
	}

	remaining := s.ttl - now.Sub(stored.Timestamp)
	s.cache.Set(userID, *stored.Clone(), remaining)
	log.Printf("🔁 [ENTITY-CONTEXT] Refreshed context for %s from durable store (%s left)", userID, remaining.Round(time.Second))
	return stored
}

// Set overwrites the user's active context. A zero Timestamp is stamped with now.
// Durable write failures are logged; the cached copy still serves this process.
func (s *EntityContextService) Set(ctx context.Context, entityContext models.ActiveEntityContext) error {
	if strings.TrimSpace(entityContext.UserID) == "" {
		return fmt.Errorf("%w: user ID is required", models.ErrInvalidArgument)
	}
	if entityContext.Timestamp.IsZero() {
		entityContext.Timestamp = s.clock()
	}

	s.cache.Set(entityContext.UserID, *entityContext.Clone(), cache.DefaultExpiration)

	if s.durable == nil || !s.health.IsAvailable(models.UpstreamEntityContext) {
		return nil
	}
	if err := s.durable.Set(ctx, &entityContext, s.ttl); err != nil {
		log.Printf("⚠️ [ENTITY-CONTEXT] Durable write failed for %s: %v", entityContext.UserID, err)
		s.upstreamFailure(err)
		return nil
	}
	s.health.MarkHealthy(models.UpstreamEntityContext)
	s.announce(ctx, ContextChangeSet, entityContext.UserID)
	return nil
}

// Evict drops the cached copy only; the next Get reads through the durable store
func (s *EntityContextService) Evict(userID string) {
	s.cache.Delete(userID)
}

// Clear drops the user's context from both layers
func (s *EntityContextService) Clear(ctx context.Context, userID string) {
	s.cache.Delete(userID)
	if s.durable == nil {
		return
	}
	if err := s.durable.Delete(ctx, userID); err != nil {
		log.Printf("⚠️ [ENTITY-CONTEXT] Durable delete failed for %s: %v", userID, err)
		s.upstreamFailure(err)
		return
	}
	s.announce(ctx, ContextChangeClear, userID)
}

// announce runs only after a durable write, so peers that evict will read the new state
func (s *EntityContextService) announce(ctx context.Context, kind, userID string) {
	if s.changes == nil {
		return
	}
	if err := s.changes.PublishContextChange(ctx, kind, userID); err != nil {
		log.Printf("⚠️ [ENTITY-CONTEXT] Failed to publish %s for %s: %v", kind, userID, err)
	}
}

func (s *EntityContextService) upstreamFailure(err error) {
	s.health.MarkFailure(models.UpstreamEntityContext, err)
	s.metrics.RecordUpstreamFailure(models.UpstreamEntityContext)
}
