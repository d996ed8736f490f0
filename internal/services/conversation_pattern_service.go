package services

import (
	"context"
	"log"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"claramesh/internal/health"
	"claramesh/internal/models"
)

// clockPattern matches "9:30", "14:05", "2:15pm", "11:00 AM"
var clockPattern = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)

// ConversationPatternService derives conversation patterns and behavior tags
// from the memory store. Memory failures degrade to an empty history.
type ConversationPatternService struct {
	memory  MemoryStore
	health  *health.Service
	metrics *Metrics

	mu       sync.RWMutex
	pattern  models.PatternConfig
	behavior models.BehaviorConfig
}

// NewConversationPatternService creates a pattern service over a memory store
func NewConversationPatternService(memory MemoryStore, pattern models.PatternConfig, behavior models.BehaviorConfig) *ConversationPatternService {
	return &ConversationPatternService{
		memory:   memory,
		pattern:  pattern,
		behavior: behavior,
	}
}

// SetHealthService attaches upstream health tracking for the memory store
func (s *ConversationPatternService) SetHealthService(healthService *health.Service) {
	s.health = healthService
}

// SetMetrics attaches Prometheus metrics
func (s *ConversationPatternService) SetMetrics(metrics *Metrics) {
	s.metrics = metrics
}

// SetConfig replaces the vocabulary and thresholds (tuning hot-reload)
func (s *ConversationPatternService) SetConfig(pattern models.PatternConfig, behavior models.BehaviorConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pattern = pattern
	s.behavior = behavior
}

func (s *ConversationPatternService) configs() (models.PatternConfig, models.BehaviorConfig) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pattern, s.behavior
}

// Analyze collects the user's signals and returns the pattern and behavior tag
func (s *ConversationPatternService) Analyze(ctx context.Context, userID, agentID, current string) (models.ConversationPattern, models.BehaviorType) {
	pattern, behavior := s.configs()
	signals := s.CollectSignals(ctx, userID, agentID, current)
	return AnalyzeSignals(signals, pattern), ClassifyBehavior(signals, behavior)
}

// CollectSignals loads recent conversation and long-term summaries.
// Either source failing leaves that side empty.
func (s *ConversationPatternService) CollectSignals(ctx context.Context, userID, agentID, current string) models.ConversationSignals {
	pattern, _ := s.configs()
	signals := models.ConversationSignals{
		ShortTerm: []string{},
		LongTerm:  []string{},
		Current:   current,
	}
	if s.memory == nil || !s.health.IsAvailable(models.UpstreamMemoryStore) {
		return signals
	}

	failed := false
	recent, err := s.memory.GetRecentConversation(ctx, userID, agentID, pattern.RecentLimit)
	if err != nil {
		failed = true
		s.memoryFailure(userID, "recent conversation", err)
	} else {
		if pattern.RecentLimit > 0 && len(recent) > pattern.RecentLimit {
			recent = recent[len(recent)-pattern.RecentLimit:]
		}
		signals.ShortTerm = recent
	}

	memories, err := s.memory.GetLongTermMemories(ctx, userID)
	if err != nil {
		failed = true
		s.memoryFailure(userID, "long-term memories", err)
	} else {
		for _, m := range memories {
			signals.LongTerm = append(signals.LongTerm, m.Summary)
		}
	}

	if !failed {
		s.health.MarkHealthy(models.UpstreamMemoryStore)
	}
	return signals
}

func (s *ConversationPatternService) memoryFailure(userID, what string, err error) {
	log.Printf("⚠️ [PATTERN] Failed to load %s for %s, using empty history: %v", what, userID, err)
	s.health.MarkFailure(models.UpstreamMemoryStore, err)
	s.metrics.RecordUpstreamFailure(models.UpstreamMemoryStore)
}

// AnalyzeSignals computes the conversation pattern from raw signals.
// Long-term frequencies are not normalized by memory count; only ContextDepth is capped.
func AnalyzeSignals(signals models.ConversationSignals, config models.PatternConfig) models.ConversationPattern {
	pattern := models.DefaultConversationPattern()
	calendar := keywordSet(config.CalendarKeywords)
	task := keywordSet(config.TaskKeywords)
	aliases := sortedAliases(config.AgentAliases)

	tally := func(text string, weight float64) {
		if text == "" {
			return
		}
		lower := strings.ToLower(text)
		for _, token := range tokenize(lower) {
			if calendar[token] {
				pattern.CalendarFrequency += weight
			}
			if task[token] {
				pattern.TaskFrequency += weight
			}
		}
		countAgentMentions(lower, aliases, config.AgentAliases, pattern.AgentAffinity)
		countClockMentions(lower, pattern.TimeOfDayAffinity)
	}

	for _, text := range signals.ShortTerm {
		tally(text, config.ShortTermWeight)
	}
	for _, text := range signals.LongTerm {
		tally(text, config.LongTermWeight)
	}
	tally(signals.Current, config.ShortTermWeight)

	switch {
	case pattern.CalendarFrequency > config.FocusRatio*pattern.TaskFrequency:
		pattern.PatternType = models.PatternCalendarFocused
	case pattern.TaskFrequency > config.FocusRatio*pattern.CalendarFrequency:
		pattern.PatternType = models.PatternTaskFocused
	default:
		pattern.PatternType = models.PatternBalanced
	}

	depth := config.ShortTermDepthWeight*float64(len(signals.ShortTerm)) +
		config.LongTermDepthWeight*float64(len(signals.LongTerm))
	pattern.ContextDepth = math.Min(config.MaxContextDepth, depth)
	return pattern
}

func keywordSet(keywords []string) map[string]bool {
	set := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		set[strings.ToLower(k)] = true
	}
	return set
}

// tokenize splits on anything that is not a letter, digit or hyphen
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

// sortedAliases orders mentions longest first so "orchestrator-agent" is not
// also counted as "orchestrator"
func sortedAliases(aliases map[string]string) []string {
	out := make([]string, 0, len(aliases))
	for alias := range aliases {
		out = append(out, strings.ToLower(alias))
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

func countAgentMentions(lower string, ordered []string, aliases map[string]string, affinity map[string]int) {
	lookup := make(map[string]string, len(aliases))
	for alias, agentID := range aliases {
		lookup[strings.ToLower(alias)] = agentID
	}
	for _, alias := range ordered {
		n := strings.Count(lower, alias)
		if n == 0 {
			continue
		}
		affinity[lookup[alias]] += n
		lower = strings.ReplaceAll(lower, alias, " ")
	}
}

func countClockMentions(lower string, affinity map[string]int) {
	for _, m := range clockPattern.FindAllStringSubmatch(lower, -1) {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		switch m[3] {
		case "am":
			if hour == 12 {
				hour = 0
			}
		case "pm":
			if hour < 12 {
				hour += 12
			}
		}
		if hour > 23 || minute > 59 {
			continue
		}
		affinity[FormatClock(hour, minute)]++
	}
}
