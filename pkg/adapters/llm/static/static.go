// Package static provides an offline collaborator for demos and smoke runs.
package static

import (
	"context"
	"fmt"
	"strings"

	"github.com/aescanero/taskorch/pkg/domain"
)

// Client answers every request with a fixed acknowledgement that echoes
// the start of the prompt. It never fails.
type Client struct{}

// NewClient creates a static client
func NewClient() *Client {
	return &Client{}
}

// Complete implements ports.Completer.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var prompt string
	if n := len(req.Messages); n > 0 {
		prompt = req.Messages[n-1].Content
	}
	prompt = strings.Join(strings.Fields(prompt), " ")
	if r := []rune(prompt); len(r) > 80 {
		prompt = string(r[:80]) + "..."
	}
	return fmt.Sprintf("OK. Acknowledged request: %s", prompt), nil
}
