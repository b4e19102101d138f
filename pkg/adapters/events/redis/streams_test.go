package redis

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewStreamsEventBus(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	_, err := NewStreamsEventBus(client, "", "consumer-1", zaptest.NewLogger(t))
	require.Error(t, err)

	bus, err := NewStreamsEventBus(client, "taskorch", "consumer-1", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.EqualValues(t, DefaultMaxLen, bus.maxLen)
	require.NoError(t, bus.Close())
}

func TestGetStreamKey(t *testing.T) {
	assert.Equal(t, "taskorch:events:workflow.events", getStreamKey("workflow.events"))
}

func newTestBus(t *testing.T) *StreamsEventBus {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { client.Close() })

	bus, err := NewStreamsEventBus(client, "taskorch-workers", "consumer-1", zaptest.NewLogger(t))
	require.NoError(t, err)
	return bus
}

func TestSubscriptionGroupsAreDistinct(t *testing.T) {
	bus := newTestBus(t)

	first := bus.subscriptionGroup()
	second := bus.subscriptionGroup()

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "taskorch-workers:"))
	assert.True(t, strings.HasPrefix(second, "taskorch-workers:"))
}

func blockUntilDone(ctx context.Context) { <-ctx.Done() }

func TestReaderForgottenWhenContextEnds(t *testing.T) {
	bus := newTestBus(t)
	var cleaned atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	bus.startReader(ctx, "workflow.events", bus.subscriptionGroup(), blockUntilDone, func() { cleaned.Add(1) })
	bus.startReader(context.Background(), "workflow.events", bus.subscriptionGroup(), blockUntilDone, func() { cleaned.Add(1) })
	assert.Equal(t, 2, bus.readerCount("workflow.events"))

	cancel()
	assert.Eventually(t, func() bool { return bus.readerCount("workflow.events") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), cleaned.Load())

	require.NoError(t, bus.Close())
	assert.Zero(t, bus.readerCount("workflow.events"))
	assert.Equal(t, int32(2), cleaned.Load())
}

func TestUnsubscribeStopsTopicReaders(t *testing.T) {
	bus := newTestBus(t)
	var cleaned atomic.Int32

	for i := 0; i < 2; i++ {
		bus.startReader(context.Background(), "workflow.events", bus.subscriptionGroup(), blockUntilDone, func() { cleaned.Add(1) })
	}
	bus.startReader(context.Background(), "health.events", bus.subscriptionGroup(), blockUntilDone, nil)

	require.NoError(t, bus.Unsubscribe(context.Background(), "workflow.events"))
	assert.Eventually(t, func() bool { return bus.readerCount("workflow.events") == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), cleaned.Load())
	assert.Equal(t, 1, bus.readerCount("health.events"))

	require.NoError(t, bus.Close())
	assert.Zero(t, bus.readerCount("health.events"))
}
