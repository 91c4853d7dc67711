// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"

	"github.com/pdiddy/hypothesis-engine/internal/search"
)

// Step names of the single-source and abstract workflows.
const (
	StepSearchingFact        = "SearchingFact"
	StepEvaluatingFact       = "EvaluatingFact"
	StepSearchingWeb         = "SearchingWeb"
	StepEvaluatingDefinition = "EvaluatingDefinition"
	StepInterpretAbstract    = "InterpretAbstractClaim"
)

// steps returns the ordered steps of a supported workflow.
func (m *Manager) steps(w Workflow) []Step {
	switch w {
	case WorkflowFactual:
		return []Step{
			{Name: StepSearchingFact, Title: "Searching for facts", Run: m.lookup(m.Encyclopedia, "articles")},
			{Name: StepEvaluatingFact, Title: "Evaluating fact", Run: m.evaluateArticles("Wikipedia articles")},
		}
	case WorkflowDefinitional:
		return []Step{
			{Name: StepSearchingWeb, Title: "Searching the web", Run: m.lookup(m.Web, "web results")},
			{Name: StepEvaluatingDefinition, Title: "Evaluating definition", Run: m.evaluateArticles("web results")},
		}
	case WorkflowAcademic:
		return m.academicSteps()
	case WorkflowAbstract:
		return []Step{
			{Name: StepInterpretAbstract, Title: "Interpreting abstract claim", Run: m.interpretAbstract},
		}
	case WorkflowUnsupported:
		return nil
	}
	panic(fmt.Sprintf("pipeline: unknown workflow %d", w))
}

// lookup queries a single evidence source.
func (m *Manager) lookup(a search.Adapter, noun string) func(context.Context, *run) (string, error) {
	return func(ctx context.Context, r *run) (string, error) {
		if a == nil {
			return "", fmt.Errorf("no %s source configured", noun)
		}
		r.cands = a.Search(ctx, *r.h)
		return fmt.Sprintf("%d %s found.", len(r.cands), noun), nil
	}
}

// evaluateArticles judges the claim against the looked-up articles and
// stores the verdict.
func (m *Manager) evaluateArticles(kind string) func(context.Context, *run) (string, error) {
	return func(ctx context.Context, r *run) (string, error) {
		v, err := m.Evaluator.Articles(ctx, r.h.Content, kind, r.cands)
		if err != nil {
			return "", err
		}
		return m.saveVerdict(ctx, r, v.Result(r.h.ID))
	}
}

// interpretAbstract stores a reasoned discussion on the hypothesis itself;
// abstract claims produce no ValidationResult.
func (m *Manager) interpretAbstract(ctx context.Context, r *run) (string, error) {
	out, err := m.Evaluator.Interpret(ctx, r.h.Content)
	if err != nil {
		return "", err
	}
	r.h.Result = out
	if err := m.Hypotheses.SaveRunState(ctx, r.h); err != nil {
		return "", err
	}
	return "Abstract claim processed.", nil
}
