package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"claramesh/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is the durable conversation/long-term memory the pattern
// analyzer reads from. Implementations may be eventually consistent and
// return empty results.
type MemoryStore interface {
	Store(ctx context.Context, userID string, record models.MemoryRecord) error
	QueryByType(ctx context.Context, userID, recordType string) ([]models.MemoryRecord, error)
	// GetRecentConversation returns up to limit conversation turns, oldest first.
	// An empty agentID matches every agent.
	GetRecentConversation(ctx context.Context, userID, agentID string, limit int) ([]string, error)
	GetLongTermMemories(ctx context.Context, userID string) ([]models.LongTermMemory, error)
}

var (
	_ MemoryStore = (*InMemoryMemoryStore)(nil)
	_ MemoryStore = (*MongoMemoryStore)(nil)
)

// prepareMemoryRecord fills in the ID, owner and creation time
func prepareMemoryRecord(userID string, record models.MemoryRecord) (models.MemoryRecord, error) {
	if userID == "" {
		return record, fmt.Errorf("%w: user ID is required", models.ErrInvalidArgument)
	}
	if record.Type == "" {
		return record, fmt.Errorf("%w: memory record type is required", models.ErrInvalidArgument)
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.UserID = userID
	return record, nil
}

// InMemoryMemoryStore keeps memory records per user in process memory
type InMemoryMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]models.MemoryRecord
}

// NewInMemoryMemoryStore creates an empty in-memory memory store
func NewInMemoryMemoryStore() *InMemoryMemoryStore {
	return &InMemoryMemoryStore{
		records: make(map[string][]models.MemoryRecord),
	}
}

func (s *InMemoryMemoryStore) Store(_ context.Context, userID string, record models.MemoryRecord) error {
	record, err := prepareMemoryRecord(userID, record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = append(s.records[userID], record)
	return nil
}

func (s *InMemoryMemoryStore) QueryByType(_ context.Context, userID, recordType string) ([]models.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.MemoryRecord{}
	for _, record := range s.records[userID] {
		if record.Type == recordType {
			out = append(out, record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryMemoryStore) GetRecentConversation(ctx context.Context, userID, agentID string, limit int) ([]string, error) {
	turns, err := s.QueryByType(ctx, userID, models.MemoryTypeConversationTurn)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, turn := range turns {
		if agentID != "" && turn.AgentID != agentID {
			continue
		}
		out = append(out, turn.Content)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *InMemoryMemoryStore) GetLongTermMemories(ctx context.Context, userID string) ([]models.LongTermMemory, error) {
	summaries, err := s.QueryByType(ctx, userID, models.MemoryTypeLongTermSummary)
	if err != nil {
		return nil, err
	}
	out := make([]models.LongTermMemory, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, models.LongTermMemory{Summary: summary.Content})
	}
	return out, nil
}
