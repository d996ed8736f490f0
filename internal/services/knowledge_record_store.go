package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"claramesh/internal/models"

	"github.com/redis/go-redis/v9"
)

// KnowledgeRecordStore persists one UserKnowledgeRecord per user.
// Get returns (nil, nil) for unknown users.
type KnowledgeRecordStore interface {
	Get(ctx context.Context, userID string) (*models.UserKnowledgeRecord, error)
	Set(ctx context.Context, record *models.UserKnowledgeRecord) error
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context) ([]*models.UserKnowledgeRecord, error)
}

// MemoryKnowledgeRecordStore keeps records in a process-local map
type MemoryKnowledgeRecordStore struct {
	mu      sync.RWMutex
	records map[string]*models.UserKnowledgeRecord
}

// NewMemoryKnowledgeRecordStore creates an empty in-memory store
func NewMemoryKnowledgeRecordStore() *MemoryKnowledgeRecordStore {
	return &MemoryKnowledgeRecordStore{
		records: make(map[string]*models.UserKnowledgeRecord),
	}
}

func (s *MemoryKnowledgeRecordStore) Get(_ context.Context, userID string) (*models.UserKnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[userID]
	if !ok {
		return nil, nil
	}
	return cloneRecord(record), nil
}

func (s *MemoryKnowledgeRecordStore) Set(_ context.Context, record *models.UserKnowledgeRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", models.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = cloneRecord(record)
	return nil
}

func (s *MemoryKnowledgeRecordStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

func (s *MemoryKnowledgeRecordStore) List(_ context.Context) ([]*models.UserKnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.UserKnowledgeRecord, 0, len(s.records))
	for _, userID := range models.SortedKeys(s.records) {
		out = append(out, cloneRecord(s.records[userID]))
	}
	return out, nil
}

// cloneRecord copies the contribution map so callers cannot mutate stored state.
// Contributions and summaries are replaced wholesale, never edited in place.
func cloneRecord(r *models.UserKnowledgeRecord) *models.UserKnowledgeRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.AgentContributions = make(map[string]models.AgentContribution, len(r.AgentContributions))
	for agentID, c := range r.AgentContributions {
		out.AgentContributions[agentID] = c
	}
	return &out
}

const knowledgeKeyPrefix = "knowledge:user:"

// RedisKnowledgeRecordStore stores records as JSON under knowledge:user:<id>.
// Keys carry no expiration; removal is the sweep's job.
type RedisKnowledgeRecordStore struct {
	redis *RedisService
}

// NewRedisKnowledgeRecordStore creates a Redis-backed record store
func NewRedisKnowledgeRecordStore(redisService *RedisService) *RedisKnowledgeRecordStore {
	return &RedisKnowledgeRecordStore{redis: redisService}
}

func knowledgeKey(userID string) string {
	return knowledgeKeyPrefix + userID
}

func (s *RedisKnowledgeRecordStore) Get(ctx context.Context, userID string) (*models.UserKnowledgeRecord, error) {
	raw, err := s.redis.Get(ctx, knowledgeKey(userID))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewUpstreamError(models.UpstreamKnowledgeStore, "get", err)
	}
	var record models.UserKnowledgeRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge record for %s: %w", userID, err)
	}
	if record.AgentContributions == nil {
		record.AgentContributions = make(map[string]models.AgentContribution)
	}
	return &record, nil
}

func (s *RedisKnowledgeRecordStore) Set(ctx context.Context, record *models.UserKnowledgeRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", models.ErrInvalidArgument)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode knowledge record: %w", err)
	}
	if err := s.redis.Set(ctx, knowledgeKey(record.UserID), data, 0); err != nil {
		return models.NewUpstreamError(models.UpstreamKnowledgeStore, "set", err)
	}
	return nil
}

func (s *RedisKnowledgeRecordStore) Delete(ctx context.Context, userID string) error {
	if err := s.redis.Delete(ctx, knowledgeKey(userID)); err != nil {
		return models.NewUpstreamError(models.UpstreamKnowledgeStore, "delete", err)
	}
	return nil
}

func (s *RedisKnowledgeRecordStore) List(ctx context.Context) ([]*models.UserKnowledgeRecord, error) {
	keys, err := s.redis.ScanKeys(ctx, knowledgeKeyPrefix+"*")
	if err != nil {
		return nil, models.NewUpstreamError(models.UpstreamKnowledgeStore, "scan", err)
	}
	records := make([]*models.UserKnowledgeRecord, 0, len(keys))
	for _, key := range keys {
		userID := strings.TrimPrefix(key, knowledgeKeyPrefix)
		record, err := s.Get(ctx, userID)
		if err != nil {
			if models.IsUpstreamError(err) {
				return nil, err
			}
			log.Printf("⚠️ [KNOWLEDGE] Skipping unreadable record for %s: %v", userID, err)
			continue
		}
		if record != nil {
			records = append(records, record)
		}
	}
	return records, nil
}
