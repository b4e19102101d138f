package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/taskorch/pkg/adapters/events/memory"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newStreamServer(t *testing.T) (*memory.InMemoryEventBus, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	bus := memory.NewInMemoryEventBus(logger)
	router := gin.New()
	router.GET("/api/v1/events/ws", NewHandler(bus, logger).HandleEventStream)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		bus.Close()
	})
	return bus, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscriber(t *testing.T, bus *memory.InMemoryEventBus, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return bus.Subscribers(domain.WorkflowTopic) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandleEventStream_ForwardsEvents(t *testing.T) {
	bus, srv := newStreamServer(t)
	conn := dial(t, srv, "")
	waitForSubscriber(t, bus, 1)

	require.NoError(t, bus.Publish(context.Background(), domain.WorkflowTopic, domain.Event{
		ID:     "evt-1",
		Type:   domain.EventWorkflowStarted,
		TaskID: "task-1",
	}))

	var got domain.Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "evt-1", got.ID)
	assert.Equal(t, domain.EventWorkflowStarted, got.Type)
}

func TestHandleEventStream_FiltersByTask(t *testing.T) {
	bus, srv := newStreamServer(t)
	conn := dial(t, srv, "?task_id=task-2")
	waitForSubscriber(t, bus, 1)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, domain.WorkflowTopic, domain.Event{ID: "other", TaskID: "task-1"}))
	require.NoError(t, bus.Publish(ctx, domain.WorkflowTopic, domain.Event{ID: "mine", TaskID: "task-2"}))

	var got domain.Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "mine", got.ID)
}

func TestHandleEventStream_ClientDisconnectUnsubscribes(t *testing.T) {
	bus, srv := newStreamServer(t)
	conn := dial(t, srv, "")
	waitForSubscriber(t, bus, 1)

	require.NoError(t, conn.Close())
	waitForSubscriber(t, bus, 0)
}
