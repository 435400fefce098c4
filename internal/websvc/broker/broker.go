package broker

import (
	"fmt"

	"github.com/avvvet/kidzone-services/internal/comm"
	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn *nats.Conn
}

func NewBroker(nc *nats.Conn) *Broker {
	return &Broker{Conn: nc}
}

// PublishEvent sends an analytics or domain event to the analytics service.
func (b *Broker) PublishEvent(e models.Event) error {
	payload, err := comm.Envelope("event", e, "")
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.Name, err)
	}
	return b.Publish(comm.EventsTopic, payload)
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
