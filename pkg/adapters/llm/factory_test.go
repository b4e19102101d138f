package llm

import (
	"context"
	"testing"

	"github.com/aescanero/taskorch/pkg/adapters/llm/anthropic"
	"github.com/aescanero/taskorch/pkg/adapters/llm/static"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/aescanero/taskorch/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewClient(t *testing.T) {
	logger := zaptest.NewLogger(t)

	c, err := NewClient(&Config{Provider: ProviderAnthropic, APIKey: "key", Logger: logger})
	require.NoError(t, err)
	assert.IsType(t, &anthropic.Client{}, c)

	c, err = NewClient(&Config{Provider: ProviderStatic, Logger: logger})
	require.NoError(t, err)
	assert.IsType(t, &static.Client{}, c)

	_, err = NewClient(&Config{Provider: ProviderAnthropic, Logger: logger})
	assert.Error(t, err)

	_, err = NewClient(&Config{Provider: "openai", Logger: logger})
	assert.Error(t, err)
}

func TestStaticClient(t *testing.T) {
	c := static.NewClient()

	reply, err := c.Complete(context.Background(), domain.UserPrompt("sys", "Explain   Go\nchannels", 10))
	require.NoError(t, err)
	assert.Equal(t, "OK. Acknowledged request: Explain Go channels", reply)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Complete(ctx, domain.UserPrompt("", "x", 1))
	assert.Error(t, err)
}

func TestNewClient_TokenCap(t *testing.T) {
	var seen []int
	capped := &tokenCap{
		next: ports.CompleterFunc(func(_ context.Context, req domain.CompletionRequest) (string, error) {
			seen = append(seen, req.MaxTokens)
			return "ok", nil
		}),
		max: 800,
	}

	for _, n := range []int{300, 1500, 0} {
		_, err := capped.Complete(context.Background(), domain.UserPrompt("", "x", n))
		require.NoError(t, err)
	}
	assert.Equal(t, []int{300, 800, 800}, seen)

	c, err := NewClient(&Config{Provider: ProviderStatic, MaxTokens: 800, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.IsType(t, &tokenCap{}, c)
}
