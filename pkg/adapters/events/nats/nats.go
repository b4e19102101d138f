// Package nats publishes workflow events on core NATS subjects.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/aescanero/taskorch/pkg/ports"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "taskorch"

// EventBus implements ports.EventBus on a NATS connection. Delivery is at
// most once; subscribers that are offline miss events.
type EventBus struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[string][]*nats.Subscription
	closed bool
}

// NewEventBus wraps conn. The connection stays owned by the caller.
func NewEventBus(conn *nats.Conn, prefix string, logger *zap.Logger) (*EventBus, error) {
	if conn == nil {
		return nil, fmt.Errorf("NATS connection is required")
	}
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger,
		subs:   make(map[string][]*nats.Subscription),
	}, nil
}

// Connect dials url and names the connection after the service.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("taskorch"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return conn, nil
}

// Subject returns the NATS subject a topic is published on.
func (b *EventBus) Subject(topic string) string {
	return b.prefix + "." + topic
}

// Publish publishes event on the topic's subject.
func (b *EventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	subject := b.Subject(topic)
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	b.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("subject", subject))
	return nil
}

// Subscribe delivers the topic's events to handler until ctx is done or
// the topic is unsubscribed.
func (b *EventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	subject := b.Subject(topic)
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		var event domain.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			b.logger.Error("failed to unmarshal event",
				zap.String("subject", msg.Subject),
				zap.Error(err))
			return
		}
		if err := handler(ctx, event); err != nil {
			b.logger.Error("handler error",
				zap.String("subject", msg.Subject),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	b.subs[topic] = append(b.subs[topic], sub)

	go func() {
		<-ctx.Done()
		b.remove(topic, sub)
	}()

	b.logger.Info("subscribed to subject", zap.String("subject", subject))
	return nil
}

func (b *EventBus) remove(topic string, sub *nats.Subscription) {
	b.mu.Lock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s == sub {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	b.mu.Unlock()

	if sub.IsValid() {
		_ = sub.Unsubscribe()
	}
}

// Unsubscribe removes every subscription on topic.
func (b *EventBus) Unsubscribe(_ context.Context, topic string) error {
	b.mu.Lock()
	subs := b.subs[topic]
	delete(b.subs, topic)
	b.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil && sub.IsValid() {
			return fmt.Errorf("failed to unsubscribe from %s: %w", sub.Subject, err)
		}
	}
	return nil
}

// Close drains every subscription and flushes pending publishes.
func (b *EventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	all := b.subs
	b.subs = make(map[string][]*nats.Subscription)
	b.mu.Unlock()

	for _, subs := range all {
		for _, sub := range subs {
			if sub.IsValid() {
				_ = sub.Drain()
			}
		}
	}
	if b.conn.IsConnected() {
		if err := b.conn.Flush(); err != nil {
			return fmt.Errorf("failed to flush NATS connection: %w", err)
		}
	}
	return nil
}
