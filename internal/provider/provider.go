package provider

import (
	"context"

	"github.com/deskd-io/deskd/pkg/protocol"
)

// Provider is the abstraction over text-completion APIs. Callers treat it
// as an opaque capability that may fail or time out; recovery is theirs.
type Provider interface {
	Complete(ctx context.Context, req protocol.CompletionRequest) (*protocol.CompletionResponse, error)
	Name() string
}
