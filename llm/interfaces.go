// Package llm defines a provider-neutral interface for language model calls
// used by explanation generation.
package llm

import (
	"context"
)

// Client provides a provider-neutral interface for making LLM API calls.
// Implementations should handle provider-specific details internally.
type Client interface {
	// Synchronous sends a request and returns a complete response.
	Synchronous(ctx context.Context, req *Request) (*Response, error)
}

// ClientFunc adapts a plain function to the Client interface, mainly for
// tests and decorators.
type ClientFunc func(ctx context.Context, req *Request) (*Response, error)

// Synchronous implements Client.
func (f ClientFunc) Synchronous(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
