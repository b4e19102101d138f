package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const okBody = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-sonnet-20241022",
  "content": [{"type": "text", "text": "Hello"}, {"type": "text", "text": " world"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 3, "output_tokens": 2}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient("test-key", "", zaptest.NewLogger(t), option.WithBaseURL(server.URL))
	require.NoError(t, err)
	return c
}

func TestComplete(t *testing.T) {
	var body map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, okBody)
	})

	reply, err := c.Complete(context.Background(), domain.UserPrompt("be brief", "hi", 50))
	require.NoError(t, err)
	assert.Equal(t, "Hello world", reply)

	assert.Equal(t, DefaultModel, body["model"])
	assert.Equal(t, float64(50), body["max_tokens"])
	assert.NotNil(t, body["system"])
	msgs, ok := body["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, msgs, 1)
}

func TestCompleteClassifiesErrors(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{status: http.StatusTooManyRequests, transient: true},
		{status: http.StatusInternalServerError, transient: true},
		{status: 529, transient: true},
		{status: http.StatusBadRequest, transient: false},
		{status: http.StatusUnauthorized, transient: false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"nope"}}`)
			})

			_, err := c.Complete(context.Background(), domain.UserPrompt("", "hi", 10))
			require.Error(t, err)
			assert.Equal(t, tt.transient, domain.IsTransient(err))
			assert.Equal(t, !tt.transient, domain.IsFatal(err))
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("", "", zaptest.NewLogger(t))
	assert.Error(t, err)
}
