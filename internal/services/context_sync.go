package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const contextSyncChannelPrefix = "entity_context:sync:"

// Context change kinds
const (
	ContextChangeSet   = "set"
	ContextChangeClear = "clear"
)

// ContextChange announces that an instance overwrote or cleared a user's context
type ContextChange struct {
	Kind       string `json:"kind"`
	UserID     string `json:"userId"`
	InstanceID string `json:"instanceId"`
}

// ContextChangePublisher tells other coordinator instances about context changes
type ContextChangePublisher interface {
	PublishContextChange(ctx context.Context, kind, userID string) error
}

// ContextSyncService keeps each instance's in-process context cache coherent
// over Redis pub/sub. Changes published by this instance are ignored on receipt.
type ContextSyncService struct {
	redis      *RedisService
	instanceID string
	pubsub     *redis.PubSub

	mu       sync.RWMutex
	handlers []func(ContextChange)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewContextSyncService creates a sync service for one coordinator instance
func NewContextSyncService(redisService *RedisService, instanceID string) *ContextSyncService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ContextSyncService{
		redis:      redisService,
		instanceID: instanceID,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// InstanceID returns the identifier stamped on published changes
func (s *ContextSyncService) InstanceID() string {
	return s.instanceID
}

// OnChange registers a handler for changes made by other instances
func (s *ContextSyncService) OnChange(handler func(ContextChange)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start subscribes to every user's sync channel
func (s *ContextSyncService) Start() error {
	s.pubsub = s.redis.Client().PSubscribe(s.ctx, contextSyncChannelPrefix+"*")

	// Wait for subscription confirmation
	if _, err := s.pubsub.Receive(s.ctx); err != nil {
		return fmt.Errorf("failed to subscribe to context sync: %w", err)
	}

	go s.processMessages()

	log.Printf("✅ [CONTEXT-SYNC] Listening for context changes (instance: %s)", s.instanceID)
	return nil
}

func (s *ContextSyncService) processMessages() {
	defer close(s.done)
	ch := s.pubsub.Channel()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handleMessage(msg)
		}
	}
}

func (s *ContextSyncService) handleMessage(msg *redis.Message) {
	var change ContextChange
	if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
		log.Printf("⚠️ [CONTEXT-SYNC] Dropping malformed message on %s: %v", msg.Channel, err)
		return
	}
	if change.InstanceID == s.instanceID {
		return
	}
	if change.UserID == "" {
		change.UserID = strings.TrimPrefix(msg.Channel, contextSyncChannelPrefix)
	}

	s.mu.RLock()
	handlers := append([]func(ContextChange){}, s.handlers...)
	s.mu.RUnlock()

	for _, handler := range handlers {
		handler(change)
	}
}

// PublishContextChange announces a change to the user's channel
func (s *ContextSyncService) PublishContextChange(ctx context.Context, kind, userID string) error {
	data, err := json.Marshal(ContextChange{
		Kind:       kind,
		UserID:     userID,
		InstanceID: s.instanceID,
	})
	if err != nil {
		return err
	}
	return s.redis.Client().Publish(ctx, contextSyncChannelPrefix+userID, data).Err()
}

// Stop unsubscribes and waits for the message loop to exit
func (s *ContextSyncService) Stop() error {
	s.cancel()
	if s.pubsub == nil {
		return nil
	}
	err := s.pubsub.Close()
	<-s.done
	return err
}
