// Package eventbus provides the messaging layer that carries timeout jobs and
// campaign lifecycle events between processes.
package eventbus

import (
	"context"

	"github.com/dukex/cadence/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler processes one delivered event. A returned error nacks the
// message so the broker's own retry/backoff (and eventual dead-lettering)
// applies; business outcomes must be expressed as nil returns.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
