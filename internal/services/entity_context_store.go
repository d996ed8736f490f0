package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"claramesh/internal/models"

	"github.com/redis/go-redis/v9"
)

// EntityContextStore is the durable copy of each user's active entity context.
// Get returns (nil, nil) when nothing is stored.
type EntityContextStore interface {
	Get(ctx context.Context, userID string) (*models.ActiveEntityContext, error)
	Set(ctx context.Context, entityContext *models.ActiveEntityContext, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
}

var (
	_ EntityContextStore = (*MemoryEntityContextStore)(nil)
	_ EntityContextStore = (*RedisEntityContextStore)(nil)
)

// MemoryEntityContextStore keeps contexts in a map. It never expires entries
// itself; readers treat stale timestamps as absent.
type MemoryEntityContextStore struct {
	mu       sync.RWMutex
	contexts map[string]models.ActiveEntityContext
}

// NewMemoryEntityContextStore creates an empty in-memory context store
func NewMemoryEntityContextStore() *MemoryEntityContextStore {
	return &MemoryEntityContextStore{
		contexts: make(map[string]models.ActiveEntityContext),
	}
}

func (s *MemoryEntityContextStore) Get(_ context.Context, userID string) (*models.ActiveEntityContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[userID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *MemoryEntityContextStore) Set(_ context.Context, entityContext *models.ActiveEntityContext, _ time.Duration) error {
	if entityContext == nil {
		return fmt.Errorf("%w: entity context is nil", models.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[entityContext.UserID] = *entityContext
	return nil
}

func (s *MemoryEntityContextStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, userID)
	return nil
}

const entityContextKeyPrefix = "entity_context:user:"

// RedisEntityContextStore stores contexts as JSON with a Redis TTL
type RedisEntityContextStore struct {
	redis *RedisService
}

// NewRedisEntityContextStore creates a Redis-backed context store
func NewRedisEntityContextStore(redisService *RedisService) *RedisEntityContextStore {
	return &RedisEntityContextStore{redis: redisService}
}

func entityContextKey(userID string) string {
	return entityContextKeyPrefix + userID
}

func (s *RedisEntityContextStore) Get(ctx context.Context, userID string) (*models.ActiveEntityContext, error) {
	raw, err := s.redis.Get(ctx, entityContextKey(userID))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewUpstreamError(models.UpstreamEntityContext, "get", err)
	}
	var entityContext models.ActiveEntityContext
	if err := json.Unmarshal([]byte(raw), &entityContext); err != nil {
		return nil, fmt.Errorf("failed to decode entity context for %s: %w", userID, err)
	}
	return &entityContext, nil
}

func (s *RedisEntityContextStore) Set(ctx context.Context, entityContext *models.ActiveEntityContext, ttl time.Duration) error {
	if entityContext == nil {
		return fmt.Errorf("%w: entity context is nil", models.ErrInvalidArgument)
	}
	data, err := json.Marshal(entityContext)
	if err != nil {
		return fmt.Errorf("failed to encode entity context: %w", err)
	}
	if err := s.redis.Set(ctx, entityContextKey(entityContext.UserID), data, ttl); err != nil {
		return models.NewUpstreamError(models.UpstreamEntityContext, "set", err)
	}
	return nil
}

func (s *RedisEntityContextStore) Delete(ctx context.Context, userID string) error {
	if err := s.redis.Delete(ctx, entityContextKey(userID)); err != nil {
		return models.NewUpstreamError(models.UpstreamEntityContext, "delete", err)
	}
	return nil
}
