package llm

import (
	"context"
	"fmt"

	"github.com/aescanero/taskorch/pkg/adapters/llm/anthropic"
	"github.com/aescanero/taskorch/pkg/adapters/llm/static"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/aescanero/taskorch/pkg/ports"
	"go.uber.org/zap"
)

// Providers
const (
	ProviderAnthropic = "anthropic"
	ProviderStatic    = "static"
)

// Config holds LLM client configuration
type Config struct {
	Provider string
	APIKey   string
	Model    string
	// MaxTokens caps every request's token budget. Zero leaves requests
	// unchanged.
	MaxTokens int
	Logger    *zap.Logger
}

// NewClient creates a new collaborator client based on provider
func NewClient(cfg *Config) (ports.Completer, error) {
	var (
		c   ports.Completer
		err error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		c, err = anthropic.NewClient(cfg.APIKey, cfg.Model, cfg.Logger)
	case ProviderStatic:
		c = static.NewClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.MaxTokens > 0 {
		return &tokenCap{next: c, max: cfg.MaxTokens}, nil
	}
	return c, nil
}

type tokenCap struct {
	next ports.Completer
	max  int
}

func (t *tokenCap) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if req.MaxTokens <= 0 || req.MaxTokens > t.max {
		req.MaxTokens = t.max
	}
	return t.next.Complete(ctx, req)
}
