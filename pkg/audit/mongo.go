package audit

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultMongoCollection is the collection MongoStorage writes to by default.
const DefaultMongoCollection = "audit_logs"

// MongoStorage writes events to a MongoDB collection.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage creates a storage over db. An empty collection name uses
// DefaultMongoCollection.
func NewMongoStorage(db *mongo.Database, collection string) *MongoStorage {
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoStorage{coll: db.Collection(collection)}
}

func (s *MongoStorage) Store(ctx context.Context, event Event) error {
	if _, err := s.coll.InsertOne(ctx, event); err != nil {
		return errors.Join(ErrStorageNotAvailable, err)
	}
	return nil
}

// StoreBatch inserts events in order and stops at the first failure.
func (s *MongoStorage) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]any, len(events))
	for i, e := range events {
		docs[i] = e
	}
	if _, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return errors.Join(ErrStorageNotAvailable, err)
	}
	return nil
}
