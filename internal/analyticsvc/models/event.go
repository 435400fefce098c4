package models

import "time"

// StoredEvent is an event as kept in the events collection.
type StoredEvent struct {
	ID        string                 `json:"id" bson:"_id"`
	Name      string                 `json:"name" bson:"name"`
	Props     map[string]interface{} `json:"props,omitempty" bson:"props,omitempty"`
	UserID    *int64                 `json:"user_id,omitempty" bson:"user_id,omitempty"`
	At        time.Time              `json:"at" bson:"at"`
	ExpiresAt time.Time              `json:"expires_at" bson:"expires_at"`
}

type EventCount struct {
	Name  string `json:"name" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}
