package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"claramesh/internal/health"
	"claramesh/internal/logging"
	"claramesh/internal/models"
)

const (
	opRegister = "register"
	opUpdate   = "update"
)

// KnowledgeService is the coordinator's per-user knowledge store.
// Agents write their slice with Register/Update; reads lazily rotate the
// merged summary and hand each agent a sanitized view of the others.
type KnowledgeService struct {
	store        KnowledgeRecordStore
	synthesizer  Synthesizer
	rotation     *RotationScheduler
	knowledgeTTL time.Duration

	mu     sync.RWMutex
	hints  models.SynthesisConfig
	now    func() time.Time
	health *health.Service

	metrics *Metrics
}

// NewKnowledgeService creates a knowledge service over the given record store
func NewKnowledgeService(store KnowledgeRecordStore, synthesizer Synthesizer, rotation *RotationScheduler, knowledgeTTL time.Duration) *KnowledgeService {
	return &KnowledgeService{
		store:        store,
		synthesizer:  synthesizer,
		rotation:     rotation,
		knowledgeTTL: knowledgeTTL,
		hints:        models.DefaultSynthesisConfig(),
		now:          time.Now,
	}
}

// SetMetrics attaches Prometheus metrics
func (s *KnowledgeService) SetMetrics(metrics *Metrics) {
	s.metrics = metrics
}

// SetHealthService attaches upstream health tracking for the record store
func (s *KnowledgeService) SetHealthService(healthService *health.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = healthService
}

// SetClock overrides the time source (tests)
func (s *KnowledgeService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetSynthesisConfig applies new thresholds to hints and, when supported, to the synthesizer
func (s *KnowledgeService) SetSynthesisConfig(config models.SynthesisConfig) {
	s.mu.Lock()
	s.hints = config
	s.mu.Unlock()

	if configurable, ok := s.synthesizer.(interface {
		SetConfig(models.SynthesisConfig)
	}); ok {
		configurable.SetConfig(config)
	}
}

func (s *KnowledgeService) clock() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

func (s *KnowledgeService) hintConfig() models.SynthesisConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hints
}

func (s *KnowledgeService) healthService() *health.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

// Register upserts an agent's knowledge slice, creating the user record if needed.
// It never triggers rotation.
func (s *KnowledgeService) Register(ctx context.Context, agentID, userID string, knowledge models.AgentKnowledge) error {
	return s.upsert(ctx, opRegister, agentID, userID, knowledge)
}

// Update behaves like Register but logs when the user has no record yet
func (s *KnowledgeService) Update(ctx context.Context, agentID, userID string, knowledge models.AgentKnowledge) error {
	return s.upsert(ctx, opUpdate, agentID, userID, knowledge)
}

func (s *KnowledgeService) upsert(ctx context.Context, op, agentID, userID string, knowledge models.AgentKnowledge) error {
	if err := models.ValidateIDs(agentID, userID); err != nil {
		return err
	}
	if err := knowledge.Validate(); err != nil {
		return fmt.Errorf("%s from %s rejected: %w", op, agentID, err)
	}

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		s.recordStoreFailure(err)
		return fmt.Errorf("failed to load knowledge record: %w", err)
	}

	now := s.clock()
	if record == nil {
		if op == opUpdate {
			log.Printf("⚠️ [KNOWLEDGE] Update from %s for user %s with no record yet, creating it", agentID, userID)
		}
		record = models.NewUserKnowledgeRecord(userID, now)
	}

	access := models.AccessLevelFor(agentID)
	record.AgentContributions[agentID] = models.AgentContribution{
		Knowledge:   knowledge,
		LastUpdated: now,
		AccessLevel: access,
	}
	record.LastUpdated = now

	if err := s.store.Set(ctx, record); err != nil {
		s.recordStoreFailure(err)
		return fmt.Errorf("failed to save knowledge record: %w", err)
	}
	s.healthService().MarkHealthy(models.UpstreamKnowledgeStore)
	s.metrics.RecordKnowledgeWrite(op, string(access))

	logging.WithAgent(logging.WithUser(userID), agentID).Debug("knowledge slice stored",
		"operation", op,
		"kind", knowledge.Kind(),
		"access_level", access,
		"contributors", len(record.AgentContributions),
	)
	return nil
}

// CheckAndRotate recomputes the user's summary when the rotation interval has
// elapsed and at least two agents contributed. Returns true when it rotated.
func (s *KnowledgeService) CheckAndRotate(ctx context.Context, userID string) bool {
	now := s.clock()
	if !s.rotation.Due(userID, now) {
		return false
	}

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		s.recordStoreFailure(err)
		log.Printf("⚠️ [ROTATION] Failed to load record for %s: %v", userID, err)
		return false
	}
	if record == nil {
		return false
	}

	summary := s.synthesizer.Synthesize(record, now)
	if summary == nil {
		return false
	}

	record.RotatedSummary = summary
	if err := s.store.Set(ctx, record); err != nil {
		s.recordStoreFailure(err)
		log.Printf("⚠️ [ROTATION] Failed to save rotated summary for %s: %v", userID, err)
		return false
	}

	s.rotation.MarkRotated(userID, now)
	s.metrics.RecordRotation()
	log.Printf("🔄 [ROTATION] Rotated knowledge for %s (%d agents, %d insights)",
		userID, len(summary.ParticipatingAgents), len(summary.CoordinationInsights))
	return true
}

// GetRotatedKnowledge rotates if due, then returns sanitized views of every
// contributing agent except the requester. Unknown users get an empty result.
func (s *KnowledgeService) GetRotatedKnowledge(ctx context.Context, requesterID, userID string) (*models.RotatedKnowledge, error) {
	if err := models.ValidateIDs(requesterID, userID); err != nil {
		return nil, err
	}

	s.CheckAndRotate(ctx, userID)

	result := &models.RotatedKnowledge{
		UserID:            userID,
		RequesterID:       requesterID,
		AgentViews:        map[string]models.SanitizedView{},
		CoordinationHints: []string{},
		Summary:           models.EmptyRotatedSummary(),
	}

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		s.recordStoreFailure(err)
		log.Printf("⚠️ [KNOWLEDGE] Returning empty rotated knowledge for %s: %v", userID, err)
		return result, nil
	}
	if record == nil {
		return result, nil
	}

	for agentID, contribution := range record.AgentContributions {
		if agentID == requesterID {
			continue
		}
		result.AgentViews[agentID] = SanitizeKnowledge(contribution.Knowledge, requesterID)
	}
	result.Summary = SanitizeSummary(record.RotatedSummary, requesterID)
	result.CoordinationHints = CoordinationHints(record, result.Summary, s.hintConfig())
	return result, nil
}

// GetSummary reports what is known about a user without sanitization.
// The result is structurally valid for unknown users.
func (s *KnowledgeService) GetSummary(ctx context.Context, userID string) models.KnowledgeSummary {
	summary := models.KnowledgeSummary{
		UserID:         userID,
		Contributors:   map[string]models.AccessLevel{},
		RotatedSummary: models.EmptyRotatedSummary(),
	}

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		s.recordStoreFailure(err)
		log.Printf("⚠️ [KNOWLEDGE] Summary for %s degraded to empty: %v", userID, err)
		return summary
	}
	if record == nil {
		return summary
	}

	for agentID, contribution := range record.AgentContributions {
		summary.Contributors[agentID] = contribution.AccessLevel
	}
	summary.ContributorCount = len(summary.Contributors)
	summary.LastUpdated = record.LastUpdated
	if record.RotatedSummary != nil {
		summary.RotatedSummary = record.RotatedSummary
	}
	return summary
}

// SweepExpired deletes records whose LastUpdated is older than the knowledge TTL
func (s *KnowledgeService) SweepExpired(ctx context.Context) (int, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		s.recordStoreFailure(err)
		return 0, fmt.Errorf("failed to list knowledge records: %w", err)
	}

	now := s.clock()
	swept := 0
	for _, record := range records {
		if now.Sub(record.LastUpdated) <= s.knowledgeTTL {
			continue
		}
		if err := s.store.Delete(ctx, record.UserID); err != nil {
			s.recordStoreFailure(err)
			log.Printf("⚠️ [KNOWLEDGE] Failed to sweep record for %s: %v", record.UserID, err)
			continue
		}
		s.rotation.Forget(record.UserID)
		swept++
	}

	s.metrics.RecordSwept(swept)
	if swept > 0 {
		log.Printf("🧹 [KNOWLEDGE] Swept %d expired records (ttl %s)", swept, s.knowledgeTTL)
	}
	return swept, nil
}

func (s *KnowledgeService) recordStoreFailure(err error) {
	if !models.IsUpstreamError(err) {
		return
	}
	s.healthService().MarkFailure(models.UpstreamKnowledgeStore, err)
	s.metrics.RecordUpstreamFailure(models.UpstreamKnowledgeStore)
}
