package provider

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/deskd-io/deskd/pkg/protocol"
)

// RetryProvider wraps another Provider with exponential backoff. Client
// errors (4xx) are permanent and returned immediately; everything else is
// retried until MaxElapsed is exhausted.
type RetryProvider struct {
	inner      Provider
	maxElapsed time.Duration
}

// NewRetry wraps prov with retry behaviour. maxElapsed <= 0 defaults to
// 30 seconds.
func NewRetry(prov Provider, maxElapsed time.Duration) *RetryProvider {
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}
	return &RetryProvider{inner: prov, maxElapsed: maxElapsed}
}

func (p *RetryProvider) Name() string { return p.inner.Name() }

func (p *RetryProvider) Complete(ctx context.Context, req protocol.CompletionRequest) (*protocol.CompletionResponse, error) {
	var resp *protocol.CompletionResponse

	op := func() error {
		r, err := p.inner.Complete(ctx, req)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = p.maxElapsed

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}
