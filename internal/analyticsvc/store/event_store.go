package store

import (
	"context"
	"time"

	"github.com/avvvet/kidzone-services/internal/analyticsvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const EventsCollection = "events"

type EventStore struct {
	coll *mongo.Collection
}

func NewEventStore(db *mongo.Database) *EventStore {
	return &EventStore{coll: db.Collection(EventsCollection)}
}

// Insert stores the event. Redelivered events keep their first copy.
func (s *EventStore) Insert(ctx context.Context, e models.StoredEvent) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": e.ID},
		bson.M{"$setOnInsert": e},
		options.Update().SetUpsert(true),
	)
	return err
}

// CountSince groups events newer than since by name, most frequent first.
func (s *EventStore) CountSince(ctx context.Context, since time.Time) ([]models.EventCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{"_id": "$name", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := []models.EventCount{}
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}
