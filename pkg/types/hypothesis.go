// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the hypothesis-engine
// validation pipeline: hypotheses and their lifecycle, validation results,
// search candidates, persisted works, progress events, and configuration.
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Status is the lifecycle state of a Hypothesis.
type Status string

const (
	StatusPending             Status = "Pending"
	StatusProcessing          Status = "Processing"
	StatusCompleted           Status = "Completed"
	StatusFailed              Status = "Failed"
	StatusSkipped             Status = "Skipped"
	StatusInsufficientSources Status = "InsufficientSources"
)

// Terminal reports whether no further transition happens without a fresh run.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped, StatusInsufficientSources:
		return true
	}
	return false
}

// Valid reports whether s is one of the defined lifecycle states.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusProcessing || s.Terminal()
}

// QueryType is the evidence category a hypothesis is classified into.
type QueryType string

const (
	QueryFactual       QueryType = "factual"
	QueryDefinitional  QueryType = "definitional"
	QueryResearchBased QueryType = "research-based"
	QueryAbstract      QueryType = "abstract"
	QuerySubjective    QueryType = "subjective"
	QueryUnknown       QueryType = "unknown"
)

// ParseQueryType normalizes the classifier's label. Empty input maps to unknown;
// anything else is kept verbatim so unsupported labels stay visible.
func ParseQueryType(s string) QueryType {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return QueryUnknown
	}
	return QueryType(s)
}

// Content length limits for a hypothesis, in characters.
const (
	MinContentLength = 3
	MaxContentLength = 500
)

// Hypothesis is the user's claim together with its pipeline state.
type Hypothesis struct {
	ID        string    `json:"id" yaml:"id"`
	UserID    string    `json:"user_id" yaml:"user_id"`
	Content   string    `json:"content" yaml:"content"`
	Status    Status    `json:"status" yaml:"status"`
	QueryType QueryType `json:"query_type" yaml:"query_type"`

	Topics   []string `json:"topics" yaml:"topics"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Entities []string `json:"entities" yaml:"entities"`

	// Result holds the narrative produced by the abstract workflow.
	Result string `json:"result,omitempty" yaml:"result,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// ErrInvalidContent is wrapped by ValidateContent failures.
var ErrInvalidContent = errors.New("invalid hypothesis content")

// ValidateContent checks the 3–500 character bound on hypothesis text.
func ValidateContent(content string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n < MinContentLength || n > MaxContentLength {
		return fmt.Errorf("%w: must be between %d and %d characters, got %d",
			ErrInvalidContent, MinContentLength, MaxContentLength, n)
	}
	return nil
}

// Terms returns topics, keywords, and entities in that order with duplicates
// removed, keeping the first occurrence.
func (h Hypothesis) Terms() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{h.Topics, h.Keywords, h.Entities} {
		for _, t := range group {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Classification is the verdict on a hypothesis.
type Classification string

const (
	ClassSupported          Classification = "supported"
	ClassPartiallySupported Classification = "partially-supported"
	ClassInconclusive       Classification = "inconclusive"
	ClassRefuted            Classification = "refuted"
	ClassError              Classification = "error"
	ClassNoData             Classification = "no-data"
)

// ParseClassification maps model output to the fixed set. It accepts the
// letter codes used in evaluation prompts ("A".."D", "[B]") as well as the
// names; anything unrecognized is an error classification.
func ParseClassification(s string) Classification {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "[]`\"' ")
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	switch {
	case s == "a" || strings.HasPrefix(s, "a]") || s == string(ClassSupported):
		return ClassSupported
	case s == "b" || strings.HasPrefix(s, "b]") || s == string(ClassPartiallySupported):
		return ClassPartiallySupported
	case s == "c" || strings.HasPrefix(s, "c]") || s == string(ClassInconclusive):
		return ClassInconclusive
	case s == "d" || strings.HasPrefix(s, "d]") || s == string(ClassRefuted):
		return ClassRefuted
	case s == string(ClassNoData) || s == "nodata":
		return ClassNoData
	}
	return ClassError
}

// Source is one normalized evidence reference on a ValidationResult.
type Source struct {
	Index       int    `json:"index" yaml:"index"`
	ReferenceID string `json:"reference_id,omitempty" yaml:"reference_id,omitempty"`
	Citation    string `json:"citation,omitempty" yaml:"citation,omitempty"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Relevant    bool   `json:"relevant,omitempty" yaml:"relevant,omitempty"`
}

// ValidationResult is the outcome of one evaluation step.
type ValidationResult struct {
	ID             string         `json:"id" yaml:"id"`
	HypothesisID   string         `json:"hypothesis_id" yaml:"hypothesis_id"`
	Classification Classification `json:"classification" yaml:"classification"`
	Motivation     string         `json:"motivation" yaml:"motivation"`
	Sources        []Source       `json:"sources" yaml:"sources"`
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
}
