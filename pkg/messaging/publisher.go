package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-backoffice/pkg/logger"
	"github.com/jwalitptl/clinic-backoffice/pkg/metrics"
)

const (
	EventServiceConfirmed     = "consulted_service.confirmed"
	EventServiceClaimed       = "consulted_service.claimed"
	EventStageChanged         = "consulted_service.stage_changed"
	EventOwnershipReassigned  = "consulted_service.reassigned"
	EventAppointmentConfirmed = "appointment.confirmed"
	EventCheckedIn            = "appointment.checked_in"
	EventCheckedOut           = "appointment.checked_out"
)

type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	EntityID   uuid.UUID   `json:"entity_id"`
	ActorID    uuid.UUID   `json:"actor_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload,omitempty"`
}

// Publisher emits domain events after a write has committed. Delivery is best
// effort: failures are logged and counted, never returned to the caller.
type Publisher struct {
	broker  Broker
	prefix  string
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewPublisher(broker Broker, prefix string, log *logger.Logger, m *metrics.Metrics) *Publisher {
	if broker == nil {
		broker = NopBroker{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{broker: broker, prefix: prefix, log: log, metrics: m}
}

// Channel is the broker channel an event type is published on.
func (p *Publisher) Channel(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish sends evt. A nil Publisher drops it.
func (p *Publisher) Publish(ctx context.Context, evt Event) {
	if p == nil {
		return
	}
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	channel := p.Channel(evt.Type)
	payload, err := json.Marshal(evt)
	if err == nil {
		err = p.broker.Publish(ctx, channel, payload)
	}
	p.metrics.Published(channel, err)
	if err != nil {
		p.log.Error(err, "failed to publish event", "channel", channel, "entity_id", evt.EntityID.String())
	}
}
