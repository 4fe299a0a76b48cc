package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRetryClientSucceedsAfterRetryableError(t *testing.T) {
	calls := 0
	inner := ClientFunc(func(context.Context, *Request) (*Response, error) {
		calls++
		if calls == 1 {
			return nil, NewNetworkError("connection reset", errors.New("reset"))
		}
		return &Response{Text: "ok"}, nil
	})

	c := NewRetryClient(inner, 3, zerolog.Nop())
	resp, err := c.Synchronous(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("Synchronous: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("text = %q", resp.Text)
	}
	if calls != 2 {
		t.Errorf("inner called %d times, want 2", calls)
	}
}

func TestRetryClientDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	inner := ClientFunc(func(context.Context, *Request) (*Response, error) {
		calls++
		return nil, NewInvalidRequestError("bad prompt", nil)
	})

	c := NewRetryClient(inner, 3, zerolog.Nop())
	if _, err := c.Synchronous(context.Background(), &Request{}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("inner called %d times, want 1", calls)
	}
}

func TestRetryClientHonorsRetryAfter(t *testing.T) {
	retryAfter := 10 * time.Millisecond
	calls := 0
	start := time.Now()
	inner := ClientFunc(func(context.Context, *Request) (*Response, error) {
		calls++
		if calls == 1 {
			return nil, NewRateLimitError("slow down", &retryAfter, nil)
		}
		return &Response{Text: "ok"}, nil
	})

	c := NewRetryClient(inner, 3, zerolog.Nop())
	if _, err := c.Synchronous(context.Background(), &Request{}); err != nil {
		t.Fatalf("Synchronous: %v", err)
	}
	if elapsed := time.Since(start); elapsed < retryAfter {
		t.Errorf("returned after %v, before the retry-after hint", elapsed)
	}
}

func TestErrorPredicates(t *testing.T) {
	retryAfter := time.Second
	rate := NewRateLimitError("limited", &retryAfter, nil)
	if !IsRateLimitError(rate) || !IsRetryableError(rate) {
		t.Error("rate limit error not recognized")
	}
	if got := ExtractRetryAfter(rate); got == nil || *got != time.Second {
		t.Errorf("retry after = %v", got)
	}

	invalid := NewInvalidRequestError("bad", nil)
	if IsRetryableError(invalid) || IsRateLimitError(invalid) {
		t.Error("invalid request error misclassified")
	}
	if IsRetryableError(errors.New("plain")) {
		t.Error("plain error treated as retryable")
	}
	if !IsRetryableError(NewProviderError("upstream 503", true, nil)) {
		t.Error("retryable provider error not recognized")
	}
}
