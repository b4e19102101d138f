package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/aescanero/taskorch/pkg/ports"
	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 256

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("event bus closed")

type subscription struct {
	id      uint64
	topic   string
	handler ports.EventHandler
	queue   chan domain.Event
	stop    chan struct{}
	once    sync.Once
}

func (s *subscription) cancel() {
	s.once.Do(func() { close(s.stop) })
}

// InMemoryEventBus implements EventBus using in-process queues. Each
// subscriber receives events in publish order on its own goroutine; a
// subscriber whose queue is full misses events instead of blocking the
// publisher.
type InMemoryEventBus struct {
	subscribers map[string]map[uint64]*subscription
	nextID      uint64
	buffer      int
	closed      bool
	logger      *zap.Logger
	wg          sync.WaitGroup
	mu          sync.RWMutex
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string]map[uint64]*subscription),
		buffer:      DefaultBuffer,
		logger:      logger,
	}
}

// Publish queues an event for every subscriber of a topic
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrClosed
	}

	for _, sub := range e.subscribers[topic] {
		select {
		case sub.queue <- event:
		default:
			e.logger.Warn("subscriber queue full, event dropped",
				zap.String("topic", topic),
				zap.String("event_type", string(event.Type)),
				zap.Uint64("subscription", sub.id))
		}
	}

	return nil
}

// Subscribe subscribes to events on a specific topic. The subscription
// ends when ctx is done, on Unsubscribe or on Close.
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	e.nextID++
	sub := &subscription{
		id:      e.nextID,
		topic:   topic,
		handler: handler,
		queue:   make(chan domain.Event, e.buffer),
		stop:    make(chan struct{}),
	}
	if e.subscribers[topic] == nil {
		e.subscribers[topic] = make(map[uint64]*subscription)
	}
	e.subscribers[topic][sub.id] = sub

	e.wg.Add(1)
	go e.deliver(ctx, sub)

	return nil
}

func (e *InMemoryEventBus) deliver(ctx context.Context, sub *subscription) {
	defer e.wg.Done()
	defer e.remove(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.stop:
			return
		case event := <-sub.queue:
			if err := sub.handler(ctx, event); err != nil {
				e.logger.Warn("event handler failed",
					zap.String("topic", sub.topic),
					zap.String("event_id", event.ID),
					zap.Error(err))
			}
		}
	}
}

// remove drops exactly this subscription from its topic.
func (e *InMemoryEventBus) remove(sub *subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if subs, ok := e.subscribers[sub.topic]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(e.subscribers, sub.topic)
		}
	}
}

// Unsubscribe removes all subscriptions from a topic
func (e *InMemoryEventBus) Unsubscribe(ctx context.Context, topic string) error {
	e.mu.Lock()
	subs := e.subscribers[topic]
	delete(e.subscribers, topic)
	e.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	return nil
}

// Subscribers returns the number of live subscriptions on topic.
func (e *InMemoryEventBus) Subscribers(topic string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers[topic])
}

// Close stops every subscription and waits for in-flight handlers.
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	var subs []*subscription
	for _, topicSubs := range e.subscribers {
		for _, sub := range topicSubs {
			subs = append(subs, sub)
		}
	}
	e.subscribers = make(map[string]map[uint64]*subscription)
	e.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	e.wg.Wait()
	return nil
}
