package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/kidzone-services/internal/analyticsvc/models"
	"github.com/avvvet/kidzone-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

var ErrMalformed = errors.New("malformed event")

type EventWriter interface {
	Insert(ctx context.Context, e models.StoredEvent) error
}

type Broker struct {
	Conn      *nats.Conn
	store     EventWriter
	retention time.Duration
	now       func() time.Time
}

func NewBroker(nc *nats.Conn, store EventWriter, retention time.Duration) *Broker {
	return &Broker{Conn: nc, store: store, retention: retention, now: time.Now}
}

// Subscribe joins the analytics queue group so each event is stored by one
// instance only.
func (b *Broker) Subscribe() (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(comm.EventsTopic, comm.EventsQueue, func(msg *nats.Msg) {
		if err := b.handleMessage(msg.Data); err != nil {
			log.Errorf("Error [Broker.handleMessage] %s", err)
		}
	})
	if err != nil {
		return nil, err
	}
	log.Infof("subscribed to %s as %s", comm.EventsTopic, comm.EventsQueue)
	return sub, nil
}

func (b *Broker) handleMessage(data []byte) error {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformed, err)
	}

	switch msg.Type {
	case "event":
		var e models.StoredEvent
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return fmt.Errorf("%w: %s", ErrMalformed, err)
		}
		if e.ID == "" || e.Name == "" {
			return fmt.Errorf("%w: id and name are required", ErrMalformed)
		}
		if e.At.IsZero() {
			e.At = b.now()
		}
		e.ExpiresAt = e.At.Add(b.retention)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.store.Insert(ctx, e); err != nil {
			return fmt.Errorf("store event %s: %w", e.ID, err)
		}
		log.Debugf("stored event %s (%s)", e.ID, e.Name)
	default:
		log.Warnf("unknown message type received: %s", msg.Type)
	}
	return nil
}
