package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

// NopBroker drops every message. It stands in when no broker is configured.
type NopBroker struct{}

func (NopBroker) Publish(context.Context, string, []byte) error { return nil }

func (NopBroker) Close() error { return nil }
