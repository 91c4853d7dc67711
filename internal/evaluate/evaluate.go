// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate turns a curated evidence set into a verdict: a
// classification from the fixed set, a motivation citing sources by index,
// and a normalized source list. It also produces the free-form
// interpretation used for abstract claims.
package evaluate

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/hypothesis-engine/internal/llm"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// NoDataMotivation explains a verdict reached without any evidence.
const NoDataMotivation = "No sources were provided."

// maxArticleChars bounds how much of each article is placed in a prompt.
const maxArticleChars = 4000

// Verdict is the evaluator's output before it is persisted.
type Verdict struct {
	Classification types.Classification
	Motivation     string
	Sources        []types.Source
}

// Result converts the verdict into a ValidationResult for hypothesisID.
func (v Verdict) Result(hypothesisID string) types.ValidationResult {
	return types.ValidationResult{
		HypothesisID:   hypothesisID,
		Classification: v.Classification,
		Motivation:     v.Motivation,
		Sources:        v.Sources,
	}
}

// Evaluator asks a completion model for verdicts.
type Evaluator struct {
	LLM llm.Completer
}

type promptItem struct {
	Index    int
	ID       string
	Citation string
	Title    string
	URL      string
	Text     string
}

type reply struct {
	Classification string `json:"classification"`
	Motivation     string `json:"motivation"`
}

// Academic evaluates claim against summarized papers. Sources keep the
// candidates' order and carry their external id and citation. An empty
// evidence set yields a no-data verdict without calling the model.
func (e *Evaluator) Academic(ctx context.Context, claim string, cands []types.Candidate) (Verdict, error) {
	if len(cands) == 0 {
		return Verdict{Classification: types.ClassNoData, Motivation: NoDataMotivation, Sources: []types.Source{}}, nil
	}

	items := make([]promptItem, len(cands))
	sources := make([]types.Source, len(cands))
	for i, c := range cands {
		text := c.Summary
		if text == "" {
			text = c.Abstract
		}
		if text == "" {
			text = "No abstract provided."
		}
		citation := c.Citation
		if citation == "" {
			citation = "No citation"
		}
		items[i] = promptItem{Index: i + 1, ID: c.ID, Citation: citation, Title: c.Title, Text: text}
		sources[i] = types.Source{Index: i + 1, ReferenceID: c.ID, Citation: citation, Title: c.Title, URL: c.URL}
	}

	var user strings.Builder
	if err := academicPrompt.Execute(&user, struct {
		Claim string
		Items []promptItem
	}{claim, items}); err != nil {
		return Verdict{}, fmt.Errorf("rendering prompt: %w", err)
	}

	r, err := e.ask(ctx, academicSystem, user.String())
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{
		Classification: types.ParseClassification(r.Classification),
		Motivation:     r.Motivation,
		Sources:        sources,
	}, nil
}

// Articles evaluates claim against encyclopedic or web articles; kind names
// them in the prompt ("Wikipedia articles", "web results"). A source is
// marked relevant when the motivation mentions its title.
func (e *Evaluator) Articles(ctx context.Context, claim, kind string, cands []types.Candidate) (Verdict, error) {
	if len(cands) == 0 {
		return Verdict{Classification: types.ClassNoData, Motivation: NoDataMotivation, Sources: []types.Source{}}, nil
	}

	items := make([]promptItem, len(cands))
	sources := make([]types.Source, len(cands))
	for i, c := range cands {
		text := c.FullText
		if text == "" {
			text = c.Abstract
		}
		if r := []rune(text); len(r) > maxArticleChars {
			text = string(r[:maxArticleChars]) + "..."
		}
		items[i] = promptItem{Index: i + 1, ID: c.ID, Title: c.Title, URL: c.URL, Text: text}
		sources[i] = types.Source{Index: i + 1, ReferenceID: c.ID, Citation: c.Citation, Title: c.Title, URL: c.URL}
	}

	var user strings.Builder
	if err := articlePrompt.Execute(&user, struct {
		Claim string
		Kind  string
		Items []promptItem
	}{claim, kind, items}); err != nil {
		return Verdict{}, fmt.Errorf("rendering prompt: %w", err)
	}

	r, err := e.ask(ctx, articleSystem, user.String())
	if err != nil {
		return Verdict{}, err
	}
	MarkRelevant(sources, r.Motivation)
	return Verdict{
		Classification: types.ParseClassification(r.Classification),
		Motivation:     r.Motivation,
		Sources:        sources,
	}, nil
}

// Interpret asks for a free-form discussion of an abstract claim.
func (e *Evaluator) Interpret(ctx context.Context, claim string) (string, error) {
	out, err := e.LLM.Complete(ctx, llm.Prompt{
		System:      abstractSystem,
		User:        "Interpret and discuss the claim: " + claim,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: %w", llm.ErrMalformedOutput, llm.ErrEmptyResponse)
	}
	return out, nil
}

func (e *Evaluator) ask(ctx context.Context, system, user string) (reply, error) {
	out, err := e.LLM.Complete(ctx, llm.Prompt{System: system, User: user, JSON: true})
	if err != nil {
		return reply{}, err
	}
	var r reply
	if err := llm.DecodeJSON(out, &r); err != nil {
		return reply{}, err
	}
	if strings.TrimSpace(r.Motivation) == "" {
		return reply{}, fmt.Errorf("%w: missing motivation", llm.ErrMalformedOutput)
	}
	return r, nil
}

// MarkRelevant flags every source whose title appears in the motivation.
func MarkRelevant(sources []types.Source, motivation string) {
	for i := range sources {
		if t := strings.TrimSpace(sources[i].Title); t != "" && strings.Contains(motivation, t) {
			sources[i].Relevant = true
		}
	}
}
