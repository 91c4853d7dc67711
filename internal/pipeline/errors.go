// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/pdiddy/hypothesis-engine/internal/llm"
	"github.com/pdiddy/hypothesis-engine/internal/store"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// ErrShortCircuit ends a workflow early without error. The step that
// returns it has already set a terminal status.
var ErrShortCircuit = errors.New("workflow short-circuited")

// Category is the client-visible class of a failure.
type Category string

const (
	CategoryTimeout              Category = "Timeout"
	CategoryNetwork              Category = "NetworkError"
	CategoryMalformedModelOutput Category = "MalformedModelOutput"
	CategoryModel                Category = "ModelError"
	CategoryStorage              Category = "StorageUnavailable"
	CategoryInvalidInput         Category = "InvalidInput"
	CategoryUnexpected           Category = "Unexpected"
)

// Recoverable reports whether the category is an expected operational
// failure rather than a defect.
func (c Category) Recoverable() bool {
	return c != CategoryUnexpected
}

// Message is the only error text clients see.
func (c Category) Message() string {
	return "An error occurred: " + string(c)
}

// Classify maps an error to its category.
func Classify(err error) Category {
	var netErr net.Error
	var llmErr *llm.Error
	var pe *panicError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return CategoryUnexpected
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return CategoryTimeout
	case errors.Is(err, llm.ErrMalformedOutput), errors.Is(err, llm.ErrEmptyResponse):
		return CategoryMalformedModelOutput
	case errors.As(err, &netErr):
		return CategoryNetwork
	case errors.As(err, &llmErr):
		return CategoryModel
	case errors.Is(err, store.ErrUnavailable):
		return CategoryStorage
	case errors.Is(err, types.ErrInvalidContent):
		return CategoryInvalidInput
	default:
		return CategoryUnexpected
	}
}

// StepError attributes a failure to the step that raised it.
type StepError struct {
	Step  string
	Title string
	Err   error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// panicError carries a recovered panic value and its stack.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }
