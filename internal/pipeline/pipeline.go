// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline validates hypotheses. The Manager owns the status state
// machine: it classifies the claim, routes it to one of four workflows, and
// guarantees that every run ends in a terminal status. Workflows are ordered
// step lists that report progress on the bus before and after each step.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/hypothesis-engine/internal/evaluate"
	"github.com/pdiddy/hypothesis-engine/internal/nlu"
	"github.com/pdiddy/hypothesis-engine/internal/progress"
	"github.com/pdiddy/hypothesis-engine/internal/search"
	"github.com/pdiddy/hypothesis-engine/internal/summarize"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// HypothesisStore loads hypotheses and saves the state a run owns. Content
// and owner are never written by a run.
type HypothesisStore interface {
	GetHypothesis(ctx context.Context, id string) (types.Hypothesis, error)
	SaveRunState(ctx context.Context, h *types.Hypothesis) error
}

// ResultStore persists validation results.
type ResultStore interface {
	CreateResult(ctx context.Context, r *types.ValidationResult) error
}

// WorkStore records found academic works so summaries can be cached on them.
type WorkStore interface {
	UpsertWork(ctx context.Context, w *types.Work) error
}

// Classifier extracts terms and the query type from hypothesis text.
type Classifier interface {
	Classify(ctx context.Context, text string) (nlu.Result, error)
}

// Summarizer condenses candidates.
type Summarizer interface {
	Summarize(ctx context.Context, cands []types.Candidate) ([]types.Candidate, summarize.Stats, error)
}

// Evaluator produces verdicts and abstract interpretations.
type Evaluator interface {
	Academic(ctx context.Context, claim string, cands []types.Candidate) (evaluate.Verdict, error)
	Articles(ctx context.Context, claim, kind string, cands []types.Candidate) (evaluate.Verdict, error)
	Interpret(ctx context.Context, claim string) (string, error)
}

// Ranker scores and orders candidates against the hypothesis text.
type Ranker interface {
	Rank(ctx context.Context, text string, cands []types.Candidate, topN int) ([]types.Candidate, error)
}

// Recorder receives run and step measurements. metrics.Recorder implements it.
type Recorder interface {
	RunStarted()
	RunFinished(workflow string, status types.Status, d time.Duration)
	StepFinished(step, category string, d time.Duration)
}

// Manager runs validation pipelines. All fields except Recorder and
// FinalizeTimeout are required for the workflows that use them.
type Manager struct {
	Hypotheses HypothesisStore
	Results    ResultStore
	Works      WorkStore
	Bus        progress.Bus

	Classifier Classifier
	Ranker     Ranker
	Summarizer Summarizer
	Evaluator  Evaluator

	// Academic are the fan-out sources of the research-based workflow,
	// in tie-break order.
	Academic []search.Adapter
	// Encyclopedia serves the factual workflow.
	Encyclopedia search.Adapter
	// Web serves the definitional workflow.
	Web search.Adapter

	Config   types.PipelineConfig
	Log      zerolog.Logger
	Recorder Recorder

	// FinalizeTimeout bounds the terminal status write (default 10s).
	FinalizeTimeout time.Duration
}

// Workflow is the closed set of validation workflows.
type Workflow int

const (
	// WorkflowUnsupported covers query types no workflow handles.
	WorkflowUnsupported Workflow = iota
	WorkflowFactual
	WorkflowDefinitional
	WorkflowAcademic
	WorkflowAbstract
)

// WorkflowFor maps a query type to its workflow.
func WorkflowFor(q types.QueryType) Workflow {
	switch q {
	case types.QueryFactual:
		return WorkflowFactual
	case types.QueryDefinitional:
		return WorkflowDefinitional
	case types.QueryResearchBased:
		return WorkflowAcademic
	case types.QueryAbstract:
		return WorkflowAbstract
	default:
		return WorkflowUnsupported
	}
}

func (w Workflow) String() string {
	switch w {
	case WorkflowFactual:
		return "factual"
	case WorkflowDefinitional:
		return "definitional"
	case WorkflowAcademic:
		return "academic"
	case WorkflowAbstract:
		return "abstract"
	default:
		return "unsupported"
	}
}
