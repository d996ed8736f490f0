package models

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInvalidArgument marks caller mistakes such as empty identifiers
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidKnowledge marks a knowledge payload that fails validation
	ErrInvalidKnowledge = errors.New("invalid knowledge payload")
)

// Upstream component names used in UpstreamError and health tracking
const (
	UpstreamMemoryStore      = "memory_store"
	UpstreamCalendarProvider = "calendar_provider"
	UpstreamTaskProvider     = "task_provider"
	UpstreamEntityContext    = "entity_context_store"
	UpstreamKnowledgeStore   = "knowledge_store"
)

// UpstreamError wraps a failure from an external collaborator.
// It is logged and converted to a default result at the service boundary.
type UpstreamError struct {
	Component string
	Op        string
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s %s failed: %v", e.Component, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError returns nil when err is nil
func NewUpstreamError(component, op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Component: component, Op: op, Err: err}
}

// IsUpstreamError reports whether err wraps an UpstreamError
func IsUpstreamError(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}

// SortedKeys returns the keys of a string-keyed map in ascending order
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
