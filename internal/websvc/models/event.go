package models

import "time"

// Event is an analytics or domain event travelling over NATS.
type Event struct {
	ID     string                 `json:"id" bson:"_id"`
	Name   string                 `json:"name" bson:"name"`
	Props  map[string]interface{} `json:"props,omitempty" bson:"props,omitempty"`
	UserID *int64                 `json:"user_id,omitempty" bson:"user_id,omitempty"`
	At     time.Time              `json:"at" bson:"at"`
}
