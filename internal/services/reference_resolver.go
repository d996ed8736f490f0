package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"claramesh/internal/models"
)

// Resolution outcomes, also used as the metrics label
const (
	OutcomeAccepted      = "accepted"
	OutcomeLowConfidence = "low_confidence"
	OutcomeNoContext     = "no_context"
	OutcomeNoCandidates  = "no_candidates"
)

// EntityContextSource returns a user's live active entity context, or nil
type EntityContextSource interface {
	Get(ctx context.Context, userID string) *models.ActiveEntityContext
}

// ReferenceResolver maps a vague reference ("the event", "it") to one candidate.
// It never guesses: without an anchoring context, or when either the score or
// the confidence misses its threshold, no match is returned.
type ReferenceResolver struct {
	contexts EntityContextSource
	metrics  *Metrics

	mu     sync.RWMutex
	config models.ResolverConfig
}

// NewReferenceResolver creates a resolver over the given context source
func NewReferenceResolver(contexts EntityContextSource, config models.ResolverConfig) *ReferenceResolver {
	return &ReferenceResolver{
		contexts: contexts,
		config:   config,
	}
}

// SetMetrics attaches Prometheus metrics
func (r *ReferenceResolver) SetMetrics(metrics *Metrics) {
	r.metrics = metrics
}

// SetConfig replaces the scoring constants (tuning hot-reload)
func (r *ReferenceResolver) SetConfig(config models.ResolverConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = config
}

// Config returns the active scoring constants
func (r *ReferenceResolver) Config() models.ResolverConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// ResolveReference returns the accepted match, or nil when the caller should
// ask a clarifying question
func (r *ReferenceResolver) ResolveReference(ctx context.Context, userID, reference string, candidates []models.Entity) *models.MatchCandidate {
	return r.Resolve(ctx, userID, reference, candidates).Match
}

// Resolve scores and ranks every candidate and reports why the top one was
// accepted or rejected
func (r *ReferenceResolver) Resolve(ctx context.Context, userID, reference string, candidates []models.Entity) models.Resolution {
	resolution := models.Resolution{Ranked: []models.MatchCandidate{}}

	anchor := r.contexts.Get(ctx, userID)
	if anchor == nil {
		resolution.Reason = "no active entity context"
		r.finish(userID, reference, OutcomeNoContext, &resolution)
		return resolution
	}
	return r.ResolveWithContext(userID, reference, anchor, candidates)
}

// ResolveWithContext resolves against an explicit anchor instead of the stored one
func (r *ReferenceResolver) ResolveWithContext(userID, reference string, anchor *models.ActiveEntityContext, candidates []models.Entity) models.Resolution {
	resolution := models.Resolution{Ranked: []models.MatchCandidate{}}
	if anchor == nil {
		resolution.Reason = "no active entity context"
		r.finish(userID, reference, OutcomeNoContext, &resolution)
		return resolution
	}
	if len(candidates) == 0 {
		resolution.Reason = "no candidates to match"
		r.finish(userID, reference, OutcomeNoCandidates, &resolution)
		return resolution
	}

	config := r.Config()
	for _, entity := range candidates {
		b := scoreCandidate(anchor, entity, config)
		resolution.Ranked = append(resolution.Ranked, models.MatchCandidate{
			Entity:     entity,
			Score:      b.score,
			Confidence: b.confidence,
			Reasoning:  describeHeuristics(b),
		})
	}
	sort.SliceStable(resolution.Ranked, func(i, j int) bool {
		return resolution.Ranked[i].Score > resolution.Ranked[j].Score
	})

	top := resolution.Ranked[0]
	var misses []string
	if top.Score < config.ScoreThreshold {
		misses = append(misses, fmt.Sprintf("score %.2f < %.2f", top.Score, config.ScoreThreshold))
	}
	if top.Confidence < config.ConfidenceThreshold {
		misses = append(misses, fmt.Sprintf("confidence %.2f < %.2f", top.Confidence, config.ConfidenceThreshold))
	}

	if len(misses) > 0 {
		resolution.Reason = fmt.Sprintf("top candidate %q needs clarification: %s (%s)",
			top.Entity.Title, strings.Join(misses, ", "), top.Reasoning)
		r.finish(userID, reference, OutcomeLowConfidence, &resolution)
		return resolution
	}

	resolution.Accepted = true
	resolution.Match = &top
	resolution.Reason = fmt.Sprintf("matched %q: %s", top.Entity.Title, top.Reasoning)
	r.finish(userID, reference, OutcomeAccepted, &resolution)
	return resolution
}

func (r *ReferenceResolver) finish(userID, reference, outcome string, resolution *models.Resolution) {
	scored := len(resolution.Ranked) > 0
	var topScore float64
	if scored {
		topScore = resolution.Ranked[0].Score
	}
	r.metrics.RecordResolution(outcome, topScore, scored)
	log.Printf("🔎 [REFERENCE] %s %q for %s: %s", outcome, reference, userID, resolution.Reason)
}

func describeHeuristics(b scoreBreakdown) string {
	fired := "no heuristics fired"
	if len(b.fired) > 0 {
		fired = strings.Join(b.fired, ", ")
	}
	return fmt.Sprintf("score %.2f, confidence %.2f; %s", b.score, b.confidence, fired)
}
