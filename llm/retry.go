package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// RetryClient decorates a Client with exponential backoff on retryable
// errors. Rate limit errors honor the provider's retry-after hint.
type RetryClient struct {
	inner      Client
	maxRetries uint64
	logger     zerolog.Logger
}

// NewRetryClient wraps a client with retry behavior. maxRetries of 0 selects
// 3 attempts.
func NewRetryClient(inner Client, maxRetries uint64, logger zerolog.Logger) *RetryClient {
	if maxRetries == 0 {
		maxRetries = 3
	}
	return &RetryClient{
		inner:      inner,
		maxRetries: maxRetries,
		logger:     logger.With().Str("component", "llm-retry").Logger(),
	}
}

// Synchronous implements Client.
func (c *RetryClient) Synchronous(ctx context.Context, req *Request) (*Response, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 1 * time.Second
	eb.MaxInterval = 30 * time.Second
	b := backoff.WithMaxRetries(eb, c.maxRetries)

	var resp *Response
	operation := func() error {
		var err error
		resp, err = c.inner.Synchronous(ctx, req)
		if err == nil {
			return nil
		}
		if !IsRetryableError(err) {
			return backoff.Permanent(err)
		}
		if ra := ExtractRetryAfter(err); ra != nil {
			c.logger.Warn().Dur("retryAfter", *ra).Msg("Rate limited, honoring retry-after")
			select {
			case <-time.After(*ra):
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			}
		}
		c.logger.Warn().Err(err).Msg("Retryable LLM error")
		return err
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}
