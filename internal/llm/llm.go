// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the text-completion and embedding capability used by the
// pipeline. Providers (OpenAI, Anthropic, Gemini) implement Completer and/or
// Embedder; Resilient wraps them with per-call timeouts and bounded retries
// of transient failures.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Prompt is a single-turn request to a completion model.
type Prompt struct {
	System string
	User   string

	// Temperature is passed through to the provider; 0 asks for
	// deterministic output.
	Temperature float32

	// JSON asks the provider for a JSON object reply where supported.
	JSON bool
}

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Embedder produces a vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Kind separates failures worth retrying from those that are not.
type Kind int

const (
	KindPermanent Kind = iota
	KindTransient
)

func (k Kind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "permanent"
}

// Error is a provider failure with its retry kind.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	// ErrEmptyResponse is returned when a provider answers without content.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrMalformedOutput wraps replies that cannot be decoded as expected.
	ErrMalformedOutput = errors.New("malformed model output")
)

// IsTransient reports whether err (or anything it wraps) is a transient
// provider failure.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTransient
}

// statusError builds an Error from an HTTP status and response body.
func statusError(provider string, status int, body string) *Error {
	kind := KindPermanent
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500 {
		kind = KindTransient
	}
	body = strings.TrimSpace(body)
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return &Error{Provider: provider, Kind: kind, StatusCode: status, Err: errors.New(body)}
}

// transportError classifies a failure to reach the provider. Cancellation
// of the caller's context is permanent: retrying cannot succeed.
func transportError(ctx context.Context, provider string, err error) *Error {
	kind := KindTransient
	if ctx.Err() != nil {
		kind = KindPermanent
	}
	return &Error{Provider: provider, Kind: kind, Err: err}
}
