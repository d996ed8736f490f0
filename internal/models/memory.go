package models

import (
	"time"
)

// MemoryRecord is a single entry kept by the durable memory store
type MemoryRecord struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"userId" json:"user_id"`
	AgentID   string    `bson:"agentId,omitempty" json:"agent_id,omitempty"` // Owning agent (optional)
	Type      string    `bson:"type" json:"type"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
}

// LongTermMemory is a durable summary about a user
type LongTermMemory struct {
	Summary string `bson:"summary" json:"summary"`
}

// MemoryRecord type constants
const (
	MemoryTypeConversationTurn = "conversation_turn"
	MemoryTypeLongTermSummary  = "long_term_summary"
	MemoryTypeEntityContext    = "entity_context"
)
