// Package anthropic adapts the Anthropic Messages API to ports.Completer.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-3-5-sonnet-20241022"

// Client implements ports.Completer using the Anthropic SDK.
type Client struct {
	client anthropic.Client
	model  string
	logger *zap.Logger
}

// NewClient creates a new Anthropic client. Retries are disabled in the SDK
// because the invoker owns the retry policy. Extra options such as
// option.WithBaseURL are appended.
func NewClient(apiKey, model string, logger *zap.Logger, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &Client{
		client: anthropic.NewClient(reqOpts...),
		model:  model,
		logger: logger,
	}, nil
}

// Complete sends one Messages request and returns the concatenated text
// blocks of the reply.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(req.Messages)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == domain.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
			continue
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.logger.Debug("anthropic request failed", zap.Error(err))
		return "", classify(err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	c.logger.Debug("anthropic request completed",
		zap.String("model", c.model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens))

	return b.String(), nil
}

// classify marks rate limits, server errors and network failures as
// transient and every other API error as fatal.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode >= http.StatusInternalServerError:
			return domain.NewTransientError(err)
		default:
			return domain.NewFatalError(err)
		}
	}

	return domain.NewTransientError(err)
}
