// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize condenses candidate abstracts with a completion model.
// Summaries are cached on the persisted work record keyed by the
// candidate's external id, so a paper is summarized once across runs.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/hypothesis-engine/internal/llm"
	"github.com/pdiddy/hypothesis-engine/internal/store"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

const defaultWorkers = 4

var systemPrompt = template.Must(template.New("summary").Parse(`You are a research assistant with three tasks:
1. Summarize the academic paper below in 1 to 3 paragraphs ({{.MinChars}} to {{.MaxChars}} characters in total). Use Markdown and separate paragraphs.
2. From that summary derive an introductory phrase of about 200 characters.
3. Name up to two key topics that capture the main themes of the paper.

Respond with a JSON object and nothing else:
{"summary": "<summary in Markdown>", "phrase": "<phrase>", "topics": ["<topic1>", "<topic2>"]}
All three fields are required.`))

// WorkStore is the slice of the store the summarizer needs.
type WorkStore interface {
	GetWork(ctx context.Context, externalID string) (types.Work, error)
	SaveSummary(ctx context.Context, externalID, summary, phrase string, topics []string) error
}

// Summary is the model's condensed view of one paper.
type Summary struct {
	Summary string   `json:"summary"`
	Phrase  string   `json:"phrase"`
	Topics  []string `json:"topics"`
}

func (s Summary) complete() bool {
	return strings.TrimSpace(s.Summary) != "" && strings.TrimSpace(s.Phrase) != "" && len(s.Topics) > 0
}

// Summarizer fills Summary, Phrase and SummaryTopics on candidates.
type Summarizer struct {
	LLM     llm.Completer
	Works   WorkStore
	Workers int
	Log     zerolog.Logger
}

// Stats reports how each candidate was handled.
type Stats struct {
	Cached    int
	Generated int
	Skipped   int
}

// Summarize processes candidates concurrently and returns them with their
// summaries set, in input order. A cached summary is reused only when all of
// its parts are present. Candidates without text are left unsummarized.
// The first model or storage failure cancels the remaining work and is
// returned.
func (s *Summarizer) Summarize(ctx context.Context, cands []types.Candidate) ([]types.Candidate, Stats, error) {
	out := make([]types.Candidate, len(cands))
	copy(out, cands)
	outcome := make([]int, len(out))

	workers := s.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range out {
		g.Go(func() error {
			var err error
			outcome[i], err = s.one(gctx, &out[i])
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	var st Stats
	for _, o := range outcome {
		switch o {
		case outcomeCached:
			st.Cached++
		case outcomeGenerated:
			st.Generated++
		default:
			st.Skipped++
		}
	}
	return out, st, nil
}

const (
	outcomeSkipped = iota
	outcomeCached
	outcomeGenerated
)

func (s *Summarizer) one(ctx context.Context, c *types.Candidate) (int, error) {
	log := s.Log.With().Str("work_id", c.ID).Logger()

	text := c.Abstract
	if text == "" {
		text = c.FullText
	}
	if c.ID == "" || strings.TrimSpace(text) == "" {
		log.Warn().Str("title", c.Title).Msg("skipping candidate without abstract or id")
		return outcomeSkipped, nil
	}

	if s.Works != nil {
		w, err := s.Works.GetWork(ctx, c.ID)
		switch {
		case err == nil && w.HasSummary():
			log.Debug().Msg("reusing cached summary")
			apply(c, Summary{Summary: w.Summary, Phrase: w.Phrase, Topics: w.SummaryTopics})
			return outcomeCached, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return outcomeSkipped, fmt.Errorf("loading work %s: %w", c.ID, err)
		}
	}

	sum, err := Generate(ctx, s.LLM, c.Title+"\n"+text, 1200, 1500)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("summarizing %s: %w", c.ID, err)
	}
	apply(c, sum)

	if s.Works != nil {
		err := s.Works.SaveSummary(ctx, c.ID, sum.Summary, sum.Phrase, sum.Topics)
		switch {
		case errors.Is(err, store.ErrNotFound):
			log.Warn().Msg("work not persisted, summary not cached")
		case err != nil:
			return outcomeSkipped, fmt.Errorf("caching summary for %s: %w", c.ID, err)
		}
	}
	log.Info().Msg("summary generated")
	return outcomeGenerated, nil
}

func apply(c *types.Candidate, s Summary) {
	c.Summary = s.Summary
	c.Phrase = s.Phrase
	c.SummaryTopics = s.Topics
}

// Generate asks the model for a summary of text between minChars and
// maxChars long. A reply missing any part is malformed.
func Generate(ctx context.Context, c llm.Completer, text string, minChars, maxChars int) (Summary, error) {
	var sys strings.Builder
	if err := systemPrompt.Execute(&sys, struct{ MinChars, MaxChars int }{minChars, maxChars}); err != nil {
		return Summary{}, fmt.Errorf("rendering prompt: %w", err)
	}

	reply, err := c.Complete(ctx, llm.Prompt{System: sys.String(), User: text, JSON: true})
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	if err := llm.DecodeJSON(reply, &sum); err != nil {
		return Summary{}, err
	}
	if !sum.complete() {
		return Summary{}, fmt.Errorf("%w: summary, phrase and topics are required", llm.ErrMalformedOutput)
	}
	return sum, nil
}
