package services

import (
	"context"
	"fmt"

	"claramesh/internal/database"
	"claramesh/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMemoryStore keeps memory records in the memory_records collection.
// Failures are returned as UpstreamErrors for the caller to degrade on.
type MongoMemoryStore struct {
	collection *mongo.Collection
}

// NewMongoMemoryStore creates a memory store over the given database
func NewMongoMemoryStore(mongodb *database.MongoDB) *MongoMemoryStore {
	return &MongoMemoryStore{
		collection: mongodb.Collection(database.CollectionMemoryRecords),
	}
}

func (s *MongoMemoryStore) Store(ctx context.Context, userID string, record models.MemoryRecord) error {
	record, err := prepareMemoryRecord(userID, record)
	if err != nil {
		return err
	}
	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return models.NewUpstreamError(models.UpstreamMemoryStore, "store", err)
	}
	return nil
}

func (s *MongoMemoryStore) QueryByType(ctx context.Context, userID, recordType string) ([]models.MemoryRecord, error) {
	filter := bson.M{"userId": userID, "type": recordType}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return s.find(ctx, "query_by_type", filter, opts)
}

func (s *MongoMemoryStore) GetRecentConversation(ctx context.Context, userID, agentID string, limit int) ([]string, error) {
	filter := bson.M{"userId": userID, "type": models.MemoryTypeConversationTurn}
	if agentID != "" {
		filter["agentId"] = agentID
	}
	// Newest first so the limit keeps the most recent turns, then reversed below
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	records, err := s.find(ctx, "recent_conversation", filter, opts)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(records))
	for i, record := range records {
		out[len(records)-1-i] = record.Content
	}
	return out, nil
}

func (s *MongoMemoryStore) GetLongTermMemories(ctx context.Context, userID string) ([]models.LongTermMemory, error) {
	records, err := s.QueryByType(ctx, userID, models.MemoryTypeLongTermSummary)
	if err != nil {
		return nil, err
	}
	out := make([]models.LongTermMemory, 0, len(records))
	for _, record := range records {
		out = append(out, models.LongTermMemory{Summary: record.Content})
	}
	return out, nil
}

func (s *MongoMemoryStore) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptions) ([]models.MemoryRecord, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, models.NewUpstreamError(models.UpstreamMemoryStore, op, err)
	}
	defer cursor.Close(ctx)

	records := []models.MemoryRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, models.NewUpstreamError(models.UpstreamMemoryStore, op, fmt.Errorf("failed to decode memory records: %w", err))
	}
	return records, nil
}
