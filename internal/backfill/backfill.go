// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backfill writes long-form "academic breakdown" summaries for
// stored works that lack one.
package backfill

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/hypothesis-engine/internal/llm"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

const (
	defaultMaxChars = 5000
	defaultBatch    = 100
)

const systemPrompt = `You are an AI research assistant tasked with rewriting a research article in an "academic breakdown", keeping all nuances and depth, yet using clear language. Use Markdown to format your rewrite and separate into paragraphs. Keep your article under 5000 words.`

// WorkStore is the persistence the backfill needs.
type WorkStore interface {
	WorksMissingExtendedSummary(ctx context.Context, limit int) ([]types.Work, error)
	SetExtendedSummary(ctx context.Context, externalID, text string) error
}

// Backfiller generates missing extended summaries.
type Backfiller struct {
	Works WorkStore
	LLM   llm.Completer
	Log   zerolog.Logger

	// MaxChars truncates the text sent to the model (default 5000).
	MaxChars int

	// Batch bounds the works handled per pass (default 100).
	Batch int
}

// Stats counts the outcome of one pass.
type Stats struct {
	Written int
	Failed  int
}

// RunOnce summarizes every pending work in one batch. A failure on one work
// is logged and counted; only a failure to list works is returned.
func (b *Backfiller) RunOnce(ctx context.Context) (Stats, error) {
	var st Stats
	works, err := b.Works.WorksMissingExtendedSummary(ctx, b.batch())
	if err != nil {
		return st, fmt.Errorf("listing works: %w", err)
	}
	for _, w := range works {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		log := b.Log.With().Str("work", w.ExternalID).Logger()
		text, err := b.LLM.Complete(ctx, llm.Prompt{
			System: systemPrompt,
			User:   Truncate(Input(w), b.maxChars()),
		})
		if err == nil && strings.TrimSpace(text) == "" {
			err = llm.ErrEmptyResponse
		}
		if err == nil {
			err = b.Works.SetExtendedSummary(ctx, w.ExternalID, text)
		}
		if err != nil {
			st.Failed++
			log.Warn().Err(err).Msg("extended summary failed")
			continue
		}
		st.Written++
		log.Info().Str("title", w.Title).Msg("extended summary added")
	}
	return st, nil
}

// Input lays out a work as the Markdown document the model rewrites.
func Input(w types.Work) string {
	return fmt.Sprintf("# %s\n ## Abstract \n %s ## Article \n %s", w.Title, w.Abstract, w.FullText)
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func (b *Backfiller) maxChars() int {
	if b.MaxChars > 0 {
		return b.MaxChars
	}
	return defaultMaxChars
}

func (b *Backfiller) batch() int {
	if b.Batch > 0 {
		return b.Batch
	}
	return defaultBatch
}

// Scheduler runs a Backfiller on a cron schedule. Overlapping passes are
// skipped.
type Scheduler struct {
	cron *cron.Cron
	id   cron.EntryID
}

// Schedule registers b under the standard cron spec.
func Schedule(spec string, b *Backfiller) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)))
	id, err := c.AddFunc(spec, func() {
		st, err := b.RunOnce(context.Background())
		if err != nil {
			b.Log.Error().Err(err).Msg("backfill pass failed")
			return
		}
		b.Log.Info().Int("written", st.Written).Int("failed", st.Failed).Msg("backfill pass complete")
	})
	if err != nil {
		return nil, fmt.Errorf("parsing backfill schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, id: id}, nil
}

// Start begins running passes in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running pass.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entry exposes the schedule, mainly for the next run time.
func (s *Scheduler) Entry() cron.Entry { return s.cron.Entry(s.id) }
