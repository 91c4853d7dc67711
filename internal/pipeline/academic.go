// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/hypothesis-engine/internal/rank"
	"github.com/pdiddy/hypothesis-engine/internal/search"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Academic workflow step names.
const (
	StepAcademicSearch = "PerformingAcademicSearch"
	StepRanking        = "RankingSearchResults"
	StepFiltering      = "FilteringResults"
	StepSummarizing    = "SummarizingResults"
	StepEvaluating     = "EvaluatingHypothesis"
)

func (m *Manager) academicSteps() []Step {
	return []Step{
		{Name: StepAcademicSearch, Title: "Performing academic search", Run: m.academicSearch},
		{Name: StepRanking, Title: "Ranking search results", Run: m.rankResults},
		{Name: StepFiltering, Title: "Filtering results", Run: m.filterResults},
		{Name: StepSummarizing, Title: "Summarizing results", Run: m.summarizeResults},
		{Name: StepEvaluating, Title: "Evaluating hypothesis", Run: m.evaluateAcademic},
	}
}

// academicSearch fans out to every academic adapter and records the found
// works so their summaries can be cached.
func (m *Manager) academicSearch(ctx context.Context, r *run) (string, error) {
	out := search.SearchAll(ctx, *r.h, m.Academic)
	r.cands = out.Candidates
	r.log.Info().Int("found", len(out.Candidates)).Int("duplicates", out.DupsRemoved).Msg("academic search complete")

	if m.Works != nil {
		for _, c := range r.cands {
			w := types.WorkFromCandidate(c)
			if err := m.Works.UpsertWork(ctx, &w); err != nil {
				return "", fmt.Errorf("recording work %s: %w", c.ID, err)
			}
		}
	}
	return fmt.Sprintf("%d results found.", len(r.cands)), nil
}

func (m *Manager) rankResults(ctx context.Context, r *run) (string, error) {
	if len(r.cands) == 0 {
		return "No results to rank.", nil
	}
	ranked, err := m.Ranker.Rank(ctx, r.h.Content, r.cands, m.topN())
	if err != nil {
		return "", fmt.Errorf("ranking: %w", err)
	}
	r.cands = ranked

	if m.Config.DebugDir != "" {
		if err := dumpRanked(m.Config.DebugDir, r.h.ID, ranked); err != nil {
			r.log.Warn().Err(err).Msg("writing ranked candidates dump")
		}
	}

	lo, hi, ok := rank.ScoreRange(ranked)
	if !ok {
		return "No results could be scored.", nil
	}
	return fmt.Sprintf("Scores range %.2f to %.2f", lo, hi), nil
}

// filterResults keeps candidates above the similarity threshold. With none
// left the hypothesis has insufficient sources and the workflow ends.
func (m *Manager) filterResults(ctx context.Context, r *run) (string, error) {
	r.cands = rank.Threshold(r.cands, m.threshold(), m.maxSources())
	if len(r.cands) > 0 {
		return fmt.Sprintf("%d results kept.", len(r.cands)), nil
	}

	r.h.Status = types.StatusInsufficientSources
	if err := m.Hypotheses.SaveRunState(ctx, r.h); err != nil {
		return "", err
	}
	return "No results above the similarity threshold.", ErrShortCircuit
}

func (m *Manager) summarizeResults(ctx context.Context, r *run) (string, error) {
	cands, st, err := m.Summarizer.Summarize(ctx, r.cands)
	if err != nil {
		return "", err
	}
	r.cands = cands
	r.log.Info().Int("cached", st.Cached).Int("generated", st.Generated).Int("skipped", st.Skipped).Msg("summaries ready")
	return "Summaries generated.", nil
}

func (m *Manager) evaluateAcademic(ctx context.Context, r *run) (string, error) {
	v, err := m.Evaluator.Academic(ctx, r.h.Content, r.cands)
	if err != nil {
		return "", err
	}
	return m.saveVerdict(ctx, r, v.Result(r.h.ID))
}

func (m *Manager) saveVerdict(ctx context.Context, r *run, res types.ValidationResult) (string, error) {
	if err := m.Results.CreateResult(ctx, &res); err != nil {
		return "", err
	}
	r.log.Info().Str("result_id", res.ID).Str("classification", string(res.Classification)).Msg("validation result stored")
	return "Evaluation complete.", nil
}

func (m *Manager) topN() int {
	if m.Config.TopN > 0 {
		return m.Config.TopN
	}
	return 10
}

// threshold maps zero to the default and a negative value to "keep every
// scored candidate".
func (m *Manager) threshold() float64 {
	switch {
	case m.Config.Threshold == 0:
		return 0.2
	case m.Config.Threshold < 0:
		return rank.LowestScore
	}
	return m.Config.Threshold
}

func (m *Manager) maxSources() int {
	if m.Config.MaxSources > 0 {
		return m.Config.MaxSources
	}
	return 6
}

// rankedDump is the debug file layout.
type rankedDump struct {
	HypothesisID string            `yaml:"hypothesis_id"`
	RankedAt     time.Time         `yaml:"ranked_at"`
	Candidates   []types.Candidate `yaml:"candidates"`
}

func dumpRanked(dir, id string, cands []types.Candidate) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating debug dir: %w", err)
	}
	data, err := yaml.Marshal(rankedDump{HypothesisID: id, RankedAt: time.Now().UTC(), Candidates: cands})
	if err != nil {
		return fmt.Errorf("marshaling ranked candidates: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, id+"-ranked.yaml"), data, 0o644)
}
