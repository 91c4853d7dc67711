// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/hypothesis-engine/internal/httputil"
)

// Policy bounds retries of transient failures.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt. Zero
	// selects the default (3); a negative value disables retries.
	MaxRetries int

	// Base is the first backoff delay; each retry doubles it and adds up to
	// Base of jitter.
	Base time.Duration

	// OnRetry, when set, is called before each backoff wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

const defaultMaxRetries = 3

// Retry calls fn until it succeeds, returns a non-transient error, or the
// retry budget is spent. Exhausted retries return the last error wrapped.
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	maxRetries := p.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = defaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := httputil.Backoff(attempt-1, p.Base)
			if p.OnRetry != nil {
				p.OnRetry(attempt, wait, lastErr)
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(wait):
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !IsTransient(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// Resilient applies a per-call timeout and the retry policy to a completer
// and an embedder. Either may be nil if the caller never uses it.
type Resilient struct {
	completer Completer
	embedder  Embedder
	policy    Policy
	timeout   time.Duration
}

// NewResilient wraps c and e. A zero timeout leaves calls unbounded.
func NewResilient(c Completer, e Embedder, p Policy, timeout time.Duration) *Resilient {
	return &Resilient{completer: c, embedder: e, policy: p, timeout: timeout}
}

// Complete implements Completer.
func (r *Resilient) Complete(ctx context.Context, p Prompt) (string, error) {
	if r.completer == nil {
		return "", errors.New("no completion provider configured")
	}
	return Retry(ctx, r.policy, func(ctx context.Context) (string, error) {
		callCtx, cancel := r.callContext(ctx)
		defer cancel()
		out, err := r.completer.Complete(callCtx, p)
		return out, r.timeoutAsTransient(ctx, err)
	})
}

// Embed implements Embedder.
func (r *Resilient) Embed(ctx context.Context, text string) ([]float32, error) {
	if r.embedder == nil {
		return nil, errors.New("no embedding provider configured")
	}
	return Retry(ctx, r.policy, func(ctx context.Context) ([]float32, error) {
		callCtx, cancel := r.callContext(ctx)
		defer cancel()
		out, err := r.embedder.Embed(callCtx, text)
		return out, r.timeoutAsTransient(ctx, err)
	})
}

func (r *Resilient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// timeoutAsTransient marks an expired per-call deadline as retryable while
// the caller's own context is still live.
func (r *Resilient) timeoutAsTransient(parent context.Context, err error) error {
	if err == nil || parent.Err() != nil || IsTransient(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Provider: "llm", Kind: KindTransient, Err: err}
	}
	return err
}
