// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the search adapters and
// model clients.
package httputil

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 and 5xx responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// MaxRetryAfter caps how long a server-provided retry hint may make us wait.
var MaxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 3

// Retryable reports whether a response status warrants another attempt.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) and 5xx responses. The wait is taken from the Retry-After or
// X-RateLimit-Retry-After header when present, otherwise it grows
// exponentially from RetryBaseDelay with up to one base delay of jitter.
//
// When maxRetries is 0 the default (3) is used; a negative value sends the
// request once. Before each retry the
// response body is drained and closed. If the context is cancelled during a
// backoff wait the function returns ctx.Err(). After exhausting retries the
// last response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	switch {
	case maxRetries == 0:
		maxRetries = defaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		wait, ok := RetryAfter(resp.Header, time.Now())
		if !ok {
			wait = Backoff(attempt, RetryBaseDelay)
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Backoff returns base * 2^attempt plus a random jitter in [0, base).
func Backoff(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	d := time.Duration(math.Pow(2, float64(attempt))) * base
	return d + time.Duration(rand.Int64N(int64(base)))
}

// RetryAfter extracts a wait duration from Retry-After (seconds or HTTP
// date) or CORE's X-RateLimit-Retry-After (RFC 3339 timestamp). The result
// is clamped to MaxRetryAfter; a hint in the past yields zero.
func RetryAfter(h http.Header, now time.Time) (time.Duration, bool) {
	var wait time.Duration
	switch {
	case h.Get("Retry-After") != "":
		v := h.Get("Retry-After")
		if secs, err := strconv.Atoi(v); err == nil {
			wait = time.Duration(secs) * time.Second
		} else if t, err := http.ParseTime(v); err == nil {
			wait = t.Sub(now)
		} else {
			return 0, false
		}
	case h.Get("X-RateLimit-Retry-After") != "":
		t, err := time.Parse(time.RFC3339, h.Get("X-RateLimit-Retry-After"))
		if err != nil {
			return 0, false
		}
		wait = t.Sub(now) + time.Second
	default:
		return 0, false
	}
	if wait < 0 {
		wait = 0
	}
	if wait > MaxRetryAfter {
		wait = MaxRetryAfter
	}
	return wait, true
}
