// Package agent implements the responders that handle support tickets:
// a classifier and three topic specialists. Respond never fails: every
// internal error degrades to a deterministic fallback with the error
// recorded in response metadata.
package agent

import (
	"context"

	"github.com/deskd-io/deskd/internal/provider"
	"github.com/deskd-io/deskd/pkg/protocol"
)

const defaultMaxTokens = 2048

// Responder produces a reply and metadata for a ticket.
type Responder interface {
	Name() string
	Respond(ctx context.Context, ticket string) protocol.AgentResponse
}

func complete(ctx context.Context, prov provider.Provider, prompt string, temperature float64) (string, error) {
	resp, err := prov.Complete(ctx, protocol.CompletionRequest{
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// truncate caps s at n bytes for use inside search queries.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
