// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"
)

// Limiter throttles outgoing requests to one upstream API. A nil *Limiter
// never blocks.
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter allows perSecond requests per second with a burst of one.
// A non-positive rate disables throttling.
func NewLimiter(perSecond float64) *Limiter {
	if perSecond <= 0 {
		return nil
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.bucket.Wait(ctx)
}

// Do waits for the limiter, then runs DoWithRetry.
func (l *Limiter) Do(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if err := l.Wait(ctx); err != nil {
		return nil, err
	}
	return DoWithRetry(ctx, client, req, maxRetries)
}
