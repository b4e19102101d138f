package ports

import (
	"context"

	"github.com/aescanero/taskorch/pkg/domain"
)

// EventHandler handles a single event delivered by the bus.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes workflow events and fans them out to subscribers.
// A subscription lives until the context passed to Subscribe is done.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}
