package services

import (
	"context"
	"log"
	"time"

	"claramesh/internal/config"
	"claramesh/internal/database"
	"claramesh/internal/health"
	"claramesh/internal/models"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// CoordinatorDeps are the optional external collaborators. Nil fields fall
// back to in-memory stores, or disable the feature (providers).
type CoordinatorDeps struct {
	Redis      *RedisService
	Mongo      *database.MongoDB
	Calendar   CalendarProvider
	Tasks      TaskProvider
	Registerer prometheus.Registerer
}

// Coordinator bundles the services agents call in-process
type Coordinator struct {
	Knowledge  *KnowledgeService
	Patterns   *ConversationPatternService
	Contexts   *EntityContextService
	Resolver   *ReferenceResolver
	References *ReferenceService
	Health     *health.Service
	Metrics    *Metrics

	// Sync is nil without Redis
	Sync *ContextSyncService
}

// NewCoordinator wires every service from configuration and tuning
func NewCoordinator(cfg *config.Config, tuning *models.Tuning, deps CoordinatorDeps) *Coordinator {
	if tuning == nil {
		tuning = models.DefaultTuning()
	}
	applied := *tuning
	applied.Pattern.RecentLimit = cfg.RecentConversationLimit
	tuning = &applied

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	metrics := NewMetrics(registerer)
	healthService := health.NewService(3, time.Minute)

	var (
		recordStore  KnowledgeRecordStore = NewMemoryKnowledgeRecordStore()
		contextStore EntityContextStore   = NewMemoryEntityContextStore()
		memoryStore  MemoryStore          = NewInMemoryMemoryStore()
	)
	if deps.Redis != nil {
		recordStore = NewRedisKnowledgeRecordStore(deps.Redis)
		contextStore = NewRedisEntityContextStore(deps.Redis)
		healthService.RegisterPinger(models.UpstreamKnowledgeStore, deps.Redis)
		healthService.RegisterPinger(models.UpstreamEntityContext, deps.Redis)
		log.Println("✅ [COORDINATOR] Knowledge and entity contexts backed by Redis")
	} else {
		log.Println("⚠️  [COORDINATOR] REDIS_URL not set, knowledge and entity contexts are process-local")
	}
	if deps.Mongo != nil {
		memoryStore = NewMongoMemoryStore(deps.Mongo)
		healthService.RegisterPinger(models.UpstreamMemoryStore, deps.Mongo)
		log.Println("✅ [COORDINATOR] Memory store backed by MongoDB")
	}
	if deps.Calendar != nil {
		healthService.Register(models.UpstreamCalendarProvider)
	}
	if deps.Tasks != nil {
		healthService.Register(models.UpstreamTaskProvider)
	}

	synthesizer := NewKnowledgeSynthesizer(tuning.Synthesis)
	knowledge := NewKnowledgeService(recordStore, synthesizer, NewRotationScheduler(cfg.RotationInterval), cfg.KnowledgeTTL)
	knowledge.SetSynthesisConfig(tuning.Synthesis)
	knowledge.SetMetrics(metrics)
	knowledge.SetHealthService(healthService)

	patterns := NewConversationPatternService(memoryStore, tuning.Pattern, tuning.Behavior)
	patterns.SetMetrics(metrics)
	patterns.SetHealthService(healthService)

	contexts := NewEntityContextService(contextStore, cfg.EntityContextTTL)
	contexts.SetMetrics(metrics)
	contexts.SetHealthService(healthService)

	var contextSync *ContextSyncService
	if deps.Redis != nil {
		contextSync = NewContextSyncService(deps.Redis, uuid.New().String())
		contextSync.OnChange(func(change ContextChange) {
			contexts.Evict(change.UserID)
		})
		contexts.SetChangePublisher(contextSync)
	}

	resolver := NewReferenceResolver(contexts, tuning.Resolver)
	resolver.SetMetrics(metrics)

	references := NewReferenceService(deps.Calendar, deps.Tasks, resolver, contexts, patterns)
	references.SetMemoryStore(memoryStore)
	references.SetRateLimiter(NewProviderRateLimiter(cfg.ProviderRatePerSecond))
	references.SetHealthService(healthService)
	references.SetMetrics(metrics)

	return &Coordinator{
		Knowledge:  knowledge,
		Patterns:   patterns,
		Contexts:   contexts,
		Resolver:   resolver,
		References: references,
		Health:     healthService,
		Metrics:    metrics,
		Sync:       contextSync,
	}
}

// Start begins background listeners. Without Redis there is nothing to start.
func (c *Coordinator) Start() error {
	if c.Sync == nil {
		return nil
	}
	return c.Sync.Start()
}

// Stop shuts down background listeners
func (c *Coordinator) Stop() {
	if c.Sync == nil {
		return
	}
	if err := c.Sync.Stop(); err != nil {
		log.Printf("⚠️ [COORDINATOR] Context sync shutdown: %v", err)
	}
}

// ApplyTuning swaps heuristic constants at runtime. The recent-conversation
// limit stays as configured.
func (c *Coordinator) ApplyTuning(tuning *models.Tuning) {
	if tuning == nil {
		return
	}
	current, _ := c.Patterns.configs()
	pattern := tuning.Pattern
	pattern.RecentLimit = current.RecentLimit

	c.Knowledge.SetSynthesisConfig(tuning.Synthesis)
	c.Patterns.SetConfig(pattern, tuning.Behavior)
	c.Resolver.SetConfig(tuning.Resolver)
	log.Println("✅ [COORDINATOR] Tuning applied")
}

// SweepExpired lets the coordinator serve as the sweep job's target
func (c *Coordinator) SweepExpired(ctx context.Context) (int, error) {
	return c.Knowledge.SweepExpired(ctx)
}
