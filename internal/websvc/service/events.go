package service

import (
	"time"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventPublisher ships events to the bus. Implementations must be safe for
// concurrent use.
type EventPublisher interface {
	PublishEvent(e models.Event) error
}

func publish(p EventPublisher, name string, userID *int64, props map[string]interface{}) {
	if p == nil {
		return
	}
	e := models.Event{
		ID:     uuid.NewString(),
		Name:   name,
		Props:  props,
		UserID: userID,
		At:     time.Now().UTC(),
	}
	if err := p.PublishEvent(e); err != nil {
		log.Warnf("publish event %s: %s", name, err)
	}
}
