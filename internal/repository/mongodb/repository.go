package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bluerock/internal/domain/models"
)

const (
	messagesCollection = "inbound_messages"
	statusesCollection = "message_statuses"
)

// EventStore defines the persistence operations the gateway performs on
// inbound webhook events.
type EventStore interface {
	SaveInboundMessage(ctx context.Context, rec models.InboundMessageRecord) error
	SaveStatusUpdate(ctx context.Context, rec models.StatusUpdateRecord) error
	CountMessagesSince(ctx context.Context, since time.Time) (int64, error)
}

// MongoEventStore implements EventStore on top of MongoDB.
type MongoEventStore struct {
	client *mongo.Client
	dbName string
}

// NewMongoEventStore connects to MongoDB and verifies the connection.
func NewMongoEventStore(ctx context.Context, uri string, dbName string) (*MongoEventStore, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoEventStore{client: client, dbName: dbName}, nil
}

// SaveInboundMessage upserts an inbound message keyed by its provider message
// id. Redelivered events overwrite the existing document instead of creating
// duplicates.
func (s *MongoEventStore) SaveInboundMessage(ctx context.Context, rec models.InboundMessageRecord) error {
	coll := s.client.Database(s.dbName).Collection(messagesCollection)

	filter := bson.M{"message_id": rec.MessageID}
	update := bson.M{"$set": rec}

	if _, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert inbound message %s: %w", rec.MessageID, err)
	}
	return nil
}

// SaveStatusUpdate upserts a delivery receipt keyed by its message id, so the
// stored document reflects the latest reported state.
func (s *MongoEventStore) SaveStatusUpdate(ctx context.Context, rec models.StatusUpdateRecord) error {
	coll := s.client.Database(s.dbName).Collection(statusesCollection)

	filter := bson.M{"message_id": rec.MessageID}
	update := bson.M{"$set": rec}

	if _, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert status update %s: %w", rec.MessageID, err)
	}
	return nil
}

// CountMessagesSince returns how many inbound messages arrived at or after
// the given instant. Used by the daily digest job.
func (s *MongoEventStore) CountMessagesSince(ctx context.Context, since time.Time) (int64, error) {
	coll := s.client.Database(s.dbName).Collection(messagesCollection)

	count, err := coll.CountDocuments(ctx, bson.M{"received_at": bson.M{"$gte": since}})
	if err != nil {
		return 0, fmt.Errorf("failed to count inbound messages: %w", err)
	}
	return count, nil
}

// Close closes the MongoDB connection.
func (s *MongoEventStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
