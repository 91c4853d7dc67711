// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries evidence sources for a hypothesis: academic APIs
// (CORE, OpenAlex, Semantic Scholar, arXiv), Wikipedia for factual claims,
// and DuckDuckGo instant answers for definitions. Backends may fail; the
// Adapter wrapper turns every failure into an empty result so one broken
// source never fails a run.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Backend searches a single source. Each source implements this interface
// per the Strategy pattern.
type Backend interface {
	Name() string
	Search(ctx context.Context, h types.Hypothesis) ([]types.Candidate, error)
}

// Adapter is a source search that never fails: errors surface as an empty
// list and a log line.
type Adapter interface {
	Name() string
	Search(ctx context.Context, h types.Hypothesis) []types.Candidate
}

// Observer receives the outcome of every backend call, for metrics.
type Observer func(source string, found int, err error, elapsed time.Duration)

// failSafe adapts a Backend into an Adapter.
type failSafe struct {
	backend Backend
	log     zerolog.Logger
	observe Observer
}

// FailSafe wraps b so that errors and panics become empty results.
// observe may be nil.
func FailSafe(b Backend, log zerolog.Logger, observe Observer) Adapter {
	return &failSafe{
		backend: b,
		log:     log.With().Str("source", b.Name()).Logger(),
		observe: observe,
	}
}

func (f *failSafe) Name() string { return f.backend.Name() }

func (f *failSafe) Search(ctx context.Context, h types.Hypothesis) (out []types.Candidate) {
	start := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			f.log.Error().Str("hypothesis_id", h.ID).Str("stack", string(debug.Stack())).
				Interface("panic", r).Msg("search backend panicked")
			out = nil
		}
		if f.observe != nil {
			f.observe(f.backend.Name(), len(out), err, time.Since(start))
		}
	}()

	out, err = f.backend.Search(ctx, h)
	if err != nil {
		f.log.Warn().Err(err).Str("hypothesis_id", h.ID).Msg("search backend failed")
		return nil
	}
	f.log.Debug().Str("hypothesis_id", h.ID).Int("found", len(out)).Msg("search backend finished")
	return out
}

// Output holds merged candidates and dedup statistics.
type Output struct {
	Candidates  []types.Candidate `json:"candidates"`
	DupsRemoved int               `json:"dups_removed"`
}

// SearchAll queries every adapter concurrently and merges the results in
// adapter order, dropping candidates whose exact title was already seen.
func SearchAll(ctx context.Context, h types.Hypothesis, adapters []Adapter) Output {
	results := make([][]types.Candidate, len(adapters))
	var wg sync.WaitGroup

	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a Adapter) {
			defer wg.Done()
			results[i] = a.Search(ctx, h)
		}(i, a)
	}
	wg.Wait()

	var all []types.Candidate
	for _, r := range results {
		all = append(all, r...)
	}
	deduped, removed := dedupByTitle(all)
	return Output{Candidates: deduped, DupsRemoved: removed}
}

// dedupByTitle keeps the first candidate for each exact title. Candidates
// without a title are dropped.
func dedupByTitle(cands []types.Candidate) ([]types.Candidate, int) {
	seen := make(map[string]bool)
	var out []types.Candidate
	removed := 0
	for _, c := range cands {
		if c.Title == "" {
			removed++
			continue
		}
		if seen[c.Title] {
			removed++
			continue
		}
		seen[c.Title] = true
		out = append(out, c)
	}
	return out, removed
}

// FormatTable writes candidates as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Candidates) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-7s  %s\n",
		"Rank", "Title", "Authors", "Year", "Score", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 112))

	for i, c := range out.Candidates {
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-7.3f  %s\n",
			i+1, truncate(c.Title, 60), formatAuthors(c.Authors), c.Year, c.Similarity, c.Source)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Candidates))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes candidates as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Candidates)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

// truncate shortens s to at most max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// termsQuery joins the hypothesis terms with sep, falling back to the
// content when NLU produced nothing.
func termsQuery(h types.Hypothesis, sep string) string {
	if terms := h.Terms(); len(terms) > 0 {
		return strings.Join(terms, sep)
	}
	return strings.TrimSpace(h.Content)
}
