package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/aescanero/taskorch/pkg/ports"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultMaxLen caps each stream; older entries are trimmed approximately.
const DefaultMaxLen = 10000

const groupDestroyTimeout = 5 * time.Second

// StreamsEventBus implements EventBus using Redis Streams. Every
// subscription reads through its own consumer group, named after the
// bus's group prefix, so each subscriber sees every event published
// after it subscribed.
type StreamsEventBus struct {
	client        *redis.Client
	logger        *zap.Logger
	consumerGroup string
	consumerName  string
	maxLen        int64

	mu      sync.Mutex
	readers map[string]map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewStreamsEventBus creates a new Redis Streams event bus
func NewStreamsEventBus(client *redis.Client, consumerGroup, consumerName string, logger *zap.Logger) (*StreamsEventBus, error) {
	if consumerGroup == "" || consumerName == "" {
		return nil, fmt.Errorf("consumer group and consumer name are required")
	}
	return &StreamsEventBus{
		client:        client,
		logger:        logger,
		consumerGroup: consumerGroup,
		consumerName:  consumerName,
		maxLen:        DefaultMaxLen,
		readers:       make(map[string]map[string]context.CancelFunc),
	}, nil
}

// Publish publishes an event to the appropriate stream topic
func (e *StreamsEventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	streamKey := getStreamKey(topic)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: streamKey,
		MaxLen: e.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}

	if _, err := e.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	e.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("topic", topic),
		zap.String("stream", streamKey))

	return nil
}

// Subscribe subscribes to events on a specific topic. The reader stops when
// ctx ends or the topic is unsubscribed, and its consumer group is then
// destroyed.
func (e *StreamsEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	streamKey := getStreamKey(topic)
	group := e.subscriptionGroup()

	err := e.client.XGroupCreateMkStream(ctx, streamKey, group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	e.logger.Info("subscribed to event stream",
		zap.String("stream", streamKey),
		zap.String("topic", topic),
		zap.String("consumer_group", group),
		zap.String("consumer", e.consumerName))

	e.startReader(ctx, topic, group, func(readCtx context.Context) {
		e.readStream(readCtx, streamKey, group, handler)
	}, func() {
		e.destroyGroup(streamKey, group)
	})

	return nil
}

// subscriptionGroup returns a consumer group name unique to one subscription.
func (e *StreamsEventBus) subscriptionGroup() string {
	return e.consumerGroup + ":" + uuid.New().String()
}

// startReader runs read until ctx ends or the reader is cancelled, then
// forgets the reader and runs cleanup.
func (e *StreamsEventBus) startReader(ctx context.Context, topic, group string, read func(context.Context), cleanup func()) {
	readCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	if e.readers[topic] == nil {
		e.readers[topic] = make(map[string]context.CancelFunc)
	}
	e.readers[topic][group] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		read(readCtx)
		e.removeReader(topic, group)
		if cleanup != nil {
			cleanup()
		}
	}()
}

func (e *StreamsEventBus) removeReader(topic, group string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.readers[topic], group)
	if len(e.readers[topic]) == 0 {
		delete(e.readers, topic)
	}
}

func (e *StreamsEventBus) readerCount(topic string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.readers[topic])
}

func (e *StreamsEventBus) destroyGroup(streamKey, group string) {
	ctx, cancel := context.WithTimeout(context.Background(), groupDestroyTimeout)
	defer cancel()
	if err := e.client.XGroupDestroy(ctx, streamKey, group).Err(); err != nil {
		e.logger.Warn("failed to destroy consumer group",
			zap.String("stream", streamKey),
			zap.String("consumer_group", group),
			zap.Error(err))
	}
}

// readStream reads events from a stream
func (e *StreamsEventBus) readStream(ctx context.Context, streamKey, group string, handler ports.EventHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			streams, err := e.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    group,
				Consumer: e.consumerName,
				Streams:  []string{streamKey, ">"},
				Count:    10,
				Block:    time.Second,
			}).Result()

			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue
				}
				e.logger.Error("failed to read from stream",
					zap.String("stream", streamKey),
					zap.Error(err))
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
				continue
			}

			for _, stream := range streams {
				for _, message := range stream.Messages {
					e.processMessage(ctx, streamKey, group, message, handler)
				}
			}
		}
	}
}

// processMessage processes a single message from the stream
func (e *StreamsEventBus) processMessage(ctx context.Context, streamKey, group string, message redis.XMessage, handler ports.EventHandler) {
	data, ok := message.Values["data"].(string)
	if !ok {
		e.logger.Error("invalid message format",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID))
		return
	}

	var event domain.Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		e.logger.Error("failed to unmarshal event",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID),
			zap.Error(err))
		return
	}

	if err := handler(ctx, event); err != nil {
		e.logger.Error("handler error",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID),
			zap.Error(err))
		return
	}

	if err := e.client.XAck(ctx, streamKey, group, message.ID).Err(); err != nil {
		e.logger.Error("failed to acknowledge message",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID),
			zap.Error(err))
	}
}

// Unsubscribe stops this bus's readers on a topic.
func (e *StreamsEventBus) Unsubscribe(ctx context.Context, topic string) error {
	e.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(e.readers[topic]))
	for _, cancel := range e.readers[topic] {
		cancels = append(cancels, cancel)
	}
	e.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return nil
}

// Close stops every reader and waits for them to exit. The Redis client
// is closed by the caller.
func (e *StreamsEventBus) Close() error {
	e.mu.Lock()
	for _, cancels := range e.readers {
		for _, cancel := range cancels {
			cancel()
		}
	}
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}

// getStreamKey returns the Redis stream key for a topic
func getStreamKey(topic string) string {
	return fmt.Sprintf("taskorch:events:%s", topic)
}
