// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package nlu classifies a hypothesis into a query type and extracts the
// topics, keywords, and named entities used to build search queries.
package nlu

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/hypothesis-engine/internal/llm"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// maxTopics caps the broad topics kept from a reply.
const maxTopics = 3

var classifyPrompt = template.Must(template.New("nlu").Parse(`Classify the text below into one of these query_type categories:
  - factual: objective, verifiable facts (e.g. "The Berlin Wall fell in 1989.").
  - definitional: claims needing general evidence from the web (e.g. "5G technology causes cancer.").
  - research-based: claims needing academic evidence (e.g. "Social media impacts mental health.").
  - abstract: interpretive or philosophical ideas (e.g. "Nietzsche's philosophy emphasizes ambition.").
  - subjective: personal opinions or preferences (e.g. "Roses are prettier than tulips.").
  - unknown: the category is unclear or ambiguous.

Also extract:
  - named_entities: persons, organizations, locations.
  - keywords: key phrases from the claim.
  - topics: up to 3 broad topics.

Text:
"{{.}}"

Return a JSON object:
{"named_entities": [], "keywords": [], "topics": [], "query_type": "factual|definitional|research-based|abstract|subjective|unknown"}
`))

const systemPrompt = "You are a concise, factual assistant."

// Result is the classifier output.
type Result struct {
	Topics    []string
	Keywords  []string
	Entities  []string
	QueryType types.QueryType
}

// Apply copies the extracted fields onto h.
func (r Result) Apply(h *types.Hypothesis) {
	h.Topics = r.Topics
	h.Keywords = r.Keywords
	h.Entities = r.Entities
	h.QueryType = r.QueryType
}

type reply struct {
	NamedEntities []string `json:"named_entities"`
	Keywords      []string `json:"keywords"`
	Topics        []string `json:"topics"`
	QueryType     string   `json:"query_type"`
}

// Classifier runs the extraction prompt against a completion model.
type Classifier struct {
	LLM llm.Completer
}

// Classify extracts terms and the query type from text. A reply that is not
// valid JSON degrades to an empty result of type unknown, which the
// pipeline then skips; model call failures are returned.
func (c *Classifier) Classify(ctx context.Context, text string) (Result, error) {
	var user strings.Builder
	if err := classifyPrompt.Execute(&user, text); err != nil {
		return Result{}, fmt.Errorf("rendering prompt: %w", err)
	}

	out, err := c.LLM.Complete(ctx, llm.Prompt{System: systemPrompt, User: user.String(), JSON: true})
	if err != nil {
		return Result{}, fmt.Errorf("classifying hypothesis: %w", err)
	}

	var r reply
	if err := llm.DecodeJSON(out, &r); err != nil {
		return Result{QueryType: types.QueryUnknown}, nil
	}

	topics := clean(r.Topics)
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return Result{
		Topics:    topics,
		Keywords:  clean(r.Keywords),
		Entities:  clean(r.NamedEntities),
		QueryType: types.ParseQueryType(r.QueryType),
	}, nil
}

// clean trims terms and drops blanks and repeats.
func clean(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
