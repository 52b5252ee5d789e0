package services

import (
	"context"
	"fmt"
	"time"

	"fitcoach/internal/database"
	"fitcoach/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageService is the conversation store gateway: it appends turns, reads
// recent-N windows, and enforces the per-user retention limit.
type MessageService struct {
	db         *database.MongoDB
	collection *mongo.Collection
}

// NewMessageService creates a new message service
func NewMessageService(db *database.MongoDB) *MessageService {
	return &MessageService{
		db:         db,
		collection: db.Collection(database.CollectionMessages),
	}
}

// RecordTurn appends one message for the user. The timestamp is assigned
// here, at write time.
func (s *MessageService) RecordTurn(ctx context.Context, userID, role, content string) (*models.Message, error) {
	msg := models.Message{
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.collection.InsertOne(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to record %s turn: %w", role, err)
	}

	return &msg, nil
}

// RecentHistory returns the user's most recent limit messages in
// chronological order, ready for prompt inclusion. A user with no prior
// messages gets an empty slice, not an error.
func (s *MessageService) RecentHistory(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer cursor.Close(ctx)

	var newestFirst []models.Message
	if err := cursor.All(ctx, &newestFirst); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}

	return oldestFirst(newestFirst), nil
}

// oldestFirst reverses a newest-first query result into the chronological
// order the transcript expects.
func oldestFirst(newestFirst []models.Message) []models.Message {
	history := make([]models.Message, len(newestFirst))
	for i, msg := range newestFirst {
		history[len(newestFirst)-1-i] = msg
	}
	return history
}

// TrimHistory deletes all but the user's newest keep messages and returns
// how many were removed. Calling it on an already-trimmed user is a no-op.
func (s *MessageService) TrimHistory(ctx context.Context, userID string, keep int) (int64, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(keep)).
		SetProjection(bson.M{"_id": 1})

	cursor, err := s.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to find overflow messages: %w", err)
	}
	defer cursor.Close(ctx)

	var overflow []struct {
		ID interface{} `bson:"_id"`
	}
	if err := cursor.All(ctx, &overflow); err != nil {
		return 0, fmt.Errorf("failed to decode overflow messages: %w", err)
	}

	if len(overflow) == 0 {
		return 0, nil
	}

	ids := make([]interface{}, len(overflow))
	for i, doc := range overflow {
		ids[i] = doc.ID
	}

	result, err := s.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete overflow messages: %w", err)
	}

	return result.DeletedCount, nil
}

// UserIDsWithMessages returns the distinct user IDs that have at least one
// stored message. Used by the nightly retention sweep.
func (s *MessageService) UserIDsWithMessages(ctx context.Context) ([]string, error) {
	results, err := s.collection.Distinct(ctx, "userId", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list user IDs: %w", err)
	}

	userIDs := make([]string, 0, len(results))
	for _, result := range results {
		if userID, ok := result.(string); ok {
			userIDs = append(userIDs, userID)
		}
	}

	return userIDs, nil
}
