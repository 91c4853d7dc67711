// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank scores search candidates by cosine similarity between the
// embedding of the hypothesis and the embedding of each candidate's title
// and abstract, then orders and truncates them.
package rank

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/hypothesis-engine/internal/llm"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// LowestScore is assigned to candidates that cannot be embedded. It sorts
// below every cosine value and survives JSON encoding.
const LowestScore = -999.0

// embedWorkers bounds concurrent candidate embedding calls.
const embedWorkers = 4

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with zero norm have similarity 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Rounding can push parallel vectors just past 1.
	return math.Max(-1, math.Min(1, s))
}

// Rank embeds the hypothesis text and every candidate, sets Similarity on
// each, sorts descending (stable, so equal scores keep their input order),
// and returns at most topN candidates. A failed hypothesis embedding is
// returned as an error; a failed candidate embedding only lowers that
// candidate to LowestScore. The input slice is not modified.
func Rank(ctx context.Context, e llm.Embedder, text string, cands []types.Candidate, topN int) ([]types.Candidate, error) {
	if len(cands) == 0 {
		return nil, nil
	}

	ref, err := e.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding hypothesis: %w", err)
	}

	out := make([]types.Candidate, len(cands))
	copy(out, cands)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)
	for i := range out {
		g.Go(func() error {
			out[i].Similarity = LowestScore
			t := out[i].RankText()
			if t == "" {
				return nil
			}
			v, err := e.Embed(gctx, t)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}
			out[i].Similarity = Cosine(ref, v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	Sort(out)
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// Sort orders candidates by descending similarity, keeping the relative
// order of ties.
func Sort(cands []types.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Similarity > cands[j].Similarity
	})
}

// Threshold keeps candidates scoring strictly above min, capped at max,
// in their existing order. A max of zero means no cap.
func Threshold(cands []types.Candidate, min float64, max int) []types.Candidate {
	var out []types.Candidate
	for _, c := range cands {
		if c.Similarity <= min {
			continue
		}
		out = append(out, c)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

// ScoreRange returns the lowest and highest similarity among cands that
// were actually scored.
func ScoreRange(cands []types.Candidate) (lo, hi float64, ok bool) {
	for _, c := range cands {
		if c.Similarity == LowestScore {
			continue
		}
		if !ok {
			lo, hi, ok = c.Similarity, c.Similarity, true
			continue
		}
		lo = math.Min(lo, c.Similarity)
		hi = math.Max(hi, c.Similarity)
	}
	return lo, hi, ok
}

// Embedding ranks candidates with a fixed embedder.
type Embedding struct {
	Embedder llm.Embedder
}

// Rank calls the package-level Rank with r.Embedder.
func (r Embedding) Rank(ctx context.Context, text string, cands []types.Candidate, topN int) ([]types.Candidate, error) {
	return Rank(ctx, r.Embedder, text, cands, topN)
}
