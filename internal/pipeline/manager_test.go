// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/hypothesis-engine/internal/evaluate"
	"github.com/pdiddy/hypothesis-engine/internal/llm"
	"github.com/pdiddy/hypothesis-engine/internal/nlu"
	"github.com/pdiddy/hypothesis-engine/internal/progress"
	"github.com/pdiddy/hypothesis-engine/internal/rank"
	"github.com/pdiddy/hypothesis-engine/internal/search"
	"github.com/pdiddy/hypothesis-engine/internal/store"
	"github.com/pdiddy/hypothesis-engine/internal/summarize"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// --- fakes ---

type fakeClassifier struct {
	result nlu.Result
	err    error

	// during runs inside Classify, while the hypothesis is Processing.
	during func()
}

func (f *fakeClassifier) Classify(context.Context, string) (nlu.Result, error) {
	if f.during != nil {
		f.during()
	}
	return f.result, f.err
}

// fakeRanker scores candidates from a title → score table.
type fakeRanker struct {
	scores map[string]float64
	err    error
}

func (f *fakeRanker) Rank(_ context.Context, _ string, cands []types.Candidate, topN int) ([]types.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]types.Candidate, len(cands))
	copy(out, cands)
	for i := range out {
		out[i].Similarity = f.scores[out[i].Title]
	}
	rank.Sort(out)
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

type fakeSummarizer struct {
	calls atomic.Int32
}

func (f *fakeSummarizer) Summarize(_ context.Context, cands []types.Candidate) ([]types.Candidate, summarize.Stats, error) {
	f.calls.Add(1)
	out := make([]types.Candidate, len(cands))
	for i, c := range cands {
		c.Summary = "summary of " + c.Title
		out[i] = c
	}
	return out, summarize.Stats{Generated: len(out)}, nil
}

type fakeEvaluator struct {
	calls     atomic.Int32
	err       error
	panics    bool
	gotCands  []types.Candidate
	interpret string
}

func (f *fakeEvaluator) verdict(cands []types.Candidate) (evaluate.Verdict, error) {
	f.calls.Add(1)
	if f.panics {
		panic("evaluator exploded")
	}
	if f.err != nil {
		return evaluate.Verdict{}, f.err
	}
	f.gotCands = cands
	var sources []types.Source
	for i, c := range cands {
		sources = append(sources, types.Source{Index: i + 1, ReferenceID: c.ID, Title: c.Title})
	}
	return evaluate.Verdict{Classification: types.ClassSupported, Motivation: "because", Sources: sources}, nil
}

func (f *fakeEvaluator) Academic(_ context.Context, _ string, cands []types.Candidate) (evaluate.Verdict, error) {
	return f.verdict(cands)
}

func (f *fakeEvaluator) Articles(_ context.Context, _, _ string, cands []types.Candidate) (evaluate.Verdict, error) {
	return f.verdict(cands)
}

func (f *fakeEvaluator) Interpret(context.Context, string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.interpret, nil
}

type fakeBackend struct {
	name    string
	results []types.Candidate
	err     error
	calls   atomic.Int32
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Search(context.Context, types.Hypothesis) ([]types.Candidate, error) {
	b.calls.Add(1)
	return b.results, b.err
}

// --- harness ---

type harness struct {
	m     *Manager
	store *store.Store
	bus   *progress.Memory

	classifier *fakeClassifier
	ranker     *fakeRanker
	summarizer *fakeSummarizer
	evaluator  *fakeEvaluator
	core       *fakeBackend
	arxiv      *fakeBackend
	wiki       *fakeBackend
	web        *fakeBackend
}

func newHarness(t *testing.T, qt types.QueryType) *harness {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	bus := progress.NewMemory(256)
	t.Cleanup(func() { bus.Close() })

	h := &harness{
		store:      s,
		bus:        bus,
		classifier: &fakeClassifier{result: nlu.Result{Topics: []string{"sleep", "memory"}, Keywords: []string{"sleep"}, QueryType: qt}},
		ranker:     &fakeRanker{scores: map[string]float64{}},
		summarizer: &fakeSummarizer{},
		evaluator:  &fakeEvaluator{interpret: "A discussion."},
		core:       &fakeBackend{name: "core"},
		arxiv:      &fakeBackend{name: "arxiv"},
		wiki:       &fakeBackend{name: "wikipedia"},
		web:        &fakeBackend{name: "duckduckgo"},
	}
	log := zerolog.Nop()
	h.m = &Manager{
		Hypotheses: s,
		Results:    s,
		Works:      s,
		Bus:        bus,
		Classifier: h.classifier,
		Ranker:     h.ranker,
		Summarizer: h.summarizer,
		Evaluator:  h.evaluator,
		Academic: []search.Adapter{
			search.FailSafe(h.core, log, nil),
			search.FailSafe(h.arxiv, log, nil),
		},
		Encyclopedia: search.FailSafe(h.wiki, log, nil),
		Web:          search.FailSafe(h.web, log, nil),
		Config:       types.DefaultConfig().Pipeline,
		Log:          log,
	}
	return h
}

func (h *harness) create(t *testing.T, content string) types.Hypothesis {
	t.Helper()
	hyp := types.Hypothesis{UserID: "u1", Content: content}
	require.NoError(t, h.store.CreateHypothesis(context.Background(), &hyp))
	return hyp
}

// watch collects the events of one hypothesis until its terminal event.
func (h *harness) watch(t *testing.T, id string) func() []types.ProgressEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	ch, err := progress.Watch(ctx, h.bus, id)
	require.NoError(t, err)

	var events []types.ProgressEvent
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			events = append(events, ev)
		}
	}()
	return func() []types.ProgressEvent {
		<-done
		cancel()
		return events
	}
}

func (h *harness) reload(t *testing.T, id string) types.Hypothesis {
	t.Helper()
	got, err := h.store.GetHypothesis(context.Background(), id)
	require.NoError(t, err)
	return got
}

func (h *harness) results(t *testing.T, id string) []types.ValidationResult {
	t.Helper()
	rs, err := h.store.ListResults(context.Background(), id)
	require.NoError(t, err)
	return rs
}

func stepNames(events []types.ProgressEvent) []string {
	var out []string
	for _, ev := range events {
		out = append(out, ev.Step)
	}
	return out
}

func cand(source, id, title string) types.Candidate {
	return types.Candidate{ID: source + ":" + id, Title: title, Abstract: "abstract of " + title, Source: source}
}

// --- Manager.Run ---

func TestRunMissingHypothesis(t *testing.T) {
	h := newHarness(t, types.QueryResearchBased)
	err := h.m.Run(context.Background(), "Hmissing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, h.core.calls.Load())
}

func TestRunAcademicCompleted(t *testing.T) {
	h := newHarness(t, types.QueryResearchBased)
	h.core.results = []types.Candidate{cand("core", "1", "Sleep and memory"), cand("core", "2", "Off topic")}
	h.arxiv.results = []types.Candidate{cand("arxiv", "9", "Sleep and memory"), cand("arxiv", "3", "REM sleep")}
	h.ranker.scores = map[string]float64{"Sleep and memory": 0.9, "REM sleep": 0.5, "Off topic": 0.1}

	hyp := h.create(t, "Sleep improves memory consolidation")
	wait := h.watch(t, hyp.ID)

	require.NoError(t, h.m.Run(context.Background(), hyp.ID))
	events := wait()

	assert.Equal(t, []string{
		StepStarted,
		StepExtractingTopics, StepExtractingTopics,
		StepAcademicSearch, StepAcademicSearch,
		StepRanking, StepRanking,
		StepFiltering, StepFiltering,
		StepSummarizing, StepSummarizing,
		StepEvaluating, StepEvaluating,
		StepFinished,
	}, stepNames(events))

	assert.Empty(t, events[1].Comment, "pre-step event has no comment")
	assert.Equal(t, "Extracted topics: sleep, memory", events[2].Comment)
	assert.Equal(t, "3 results found.", events[4].Comment)
	assert.Equal(t, "Scores range 0.10 to 0.90", events[6].Comment)
	assert.Equal(t, "2 results kept.", events[8].Comment)
	assert.Equal(t, "Summaries generated.", events[10].Comment)
	assert.Equal(t, "Evaluation complete.", events[12].Comment)
	assert.Equal(t, types.StatusCompleted, events[13].Status)

	got := h.reload(t, hyp.ID)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, types.QueryResearchBased, got.QueryType)
	assert.Equal(t, []string{"sleep", "memory"}, got.Topics)

	rs := h.results(t, hyp.ID)
	require.Len(t, rs, 1)
	assert.Equal(t, types.ClassSupported, rs[0].Classification)

	// The first adapter wins the duplicate title; order follows the ranking.
	require.Len(t, h.evaluator.gotCands, 2)
	assert.Equal(t, "core:1", h.evaluator.gotCands[0].ID)
	assert.Equal(t, "arxiv:3", h.evaluator.gotCands[1].ID)
	assert.Equal(t, "summary of REM sleep", h.evaluator.gotCands[1].Summary)

	w, err := h.store.GetWork(context.Background(), "core:2")
	require.NoError(t, err, "found works are recorded")
	assert.Equal(t, "Off topic", w.Title)
}

func TestRunZeroResultsIsInsufficientSources(t *testing.T) {
	h := newHarness(t, types.QueryResearchBased)
	h.core.err = errors.New("connection refused")

	hyp := h.create(t, "Sleep improves memory consolidation")
	wait := h.watch(t, hyp.ID)
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))
	events := wait()

	assert.Equal(t, types.StatusInsufficientSources, h.reload(t, hyp.ID).Status)
	assert.Empty(t, h.results(t, hyp.ID))
	assert.Zero(t, h.summarizer.calls.Load())
	assert.Zero(t, h.evaluator.calls.Load())

	last := events[len(events)-1]
	assert.Equal(t, types.StatusInsufficientSources, last.Status)
	assert.Contains(t, stepNames(events), StepFiltering)
	assert.NotContains(t, stepNames(events), StepSummarizing)
	assert.Equal(t, "No results to rank.", events[6].Comment)
}

func TestRunAllBelowThresholdIsInsufficientSources(t *testing.T) {
	h := newHarness(t, types.QueryResearchBased)
	h.core.results = []types.Candidate{cand("core", "1", "A"), cand("core", "2", "B")}
	h.ranker.scores = map[string]float64{"A": 0.2, "B": 0.19}

	hyp := h.create(t, "Sleep improves memory consolidation")
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))

	assert.Equal(t, types.StatusInsufficientSources, h.reload(t, hyp.ID).Status)
	assert.Empty(t, h.results(t, hyp.ID))
}

func TestRunThresholdConfiguration(t *testing.T) {
	t.Run("zero selects the default", func(t *testing.T) {
		h := newHarness(t, types.QueryResearchBased)
		h.m.Config.Threshold = 0
		h.core.results = []types.Candidate{cand("core", "1", "A")}
		h.ranker.scores = map[string]float64{"A": 0.2}

		hyp := h.create(t, "Sleep improves memory consolidation")
		require.NoError(t, h.m.Run(context.Background(), hyp.ID))
		assert.Equal(t, types.StatusInsufficientSources, h.reload(t, hyp.ID).Status)
	})

	t.Run("negative keeps every scored candidate", func(t *testing.T) {
		h := newHarness(t, types.QueryResearchBased)
		h.m.Config.Threshold = -1
		h.core.results = []types.Candidate{cand("core", "1", "A"), cand("core", "2", "B")}
		h.ranker.scores = map[string]float64{"A": 0.0, "B": -0.5}

		hyp := h.create(t, "Sleep improves memory consolidation")
		require.NoError(t, h.m.Run(context.Background(), hyp.ID))
		assert.Equal(t, types.StatusCompleted, h.reload(t, hyp.ID).Status)
		assert.Len(t, h.evaluator.gotCands, 2)
	})
}

func TestRunUnsupportedQueryTypeIsSkipped(t *testing.T) {
	for _, qt := range []types.QueryType{types.QuerySubjective, types.QueryUnknown, types.QueryType("poetry")} {
		t.Run(string(qt), func(t *testing.T) {
			h := newHarness(t, qt)
			hyp := h.create(t, "Roses are prettier than tulips")
			wait := h.watch(t, hyp.ID)
			require.NoError(t, h.m.Run(context.Background(), hyp.ID))
			events := wait()

			assert.Equal(t, types.StatusSkipped, h.reload(t, hyp.ID).Status)
			for _, b := range []*fakeBackend{h.core, h.arxiv, h.wiki, h.web} {
				assert.Zero(t, b.calls.Load(), b.name)
			}
			assert.Zero(t, h.evaluator.calls.Load())
			assert.Zero(t, h.summarizer.calls.Load())

			last := events[len(events)-1]
			assert.Equal(t, types.StatusSkipped, last.Status)
			assert.Contains(t, last.Error, "Skipped: query type")
			assert.Contains(t, last.Error, string(qt))
		})
	}
}

func TestRunStepErrorFailsWithCategoryOnly(t *testing.T) {
	h := newHarness(t, types.QueryFactual)
	h.wiki.results = []types.Candidate{cand("wikipedia", "1", "Eiffel Tower")}
	h.evaluator.err = &llm.Error{Provider: "openai", Kind: llm.KindPermanent, StatusCode: 401, Err: errors.New("secret detail")}

	hyp := h.create(t, "The Eiffel Tower is in Paris")
	wait := h.watch(t, hyp.ID)
	require.NoError(t, h.m.Run(context.Background(), hyp.ID), "failures never escape Run")
	events := wait()

	assert.Equal(t, types.StatusFailed, h.reload(t, hyp.ID).Status)
	assert.Empty(t, h.results(t, hyp.ID))

	last := events[len(events)-1]
	assert.Equal(t, StepEvaluatingFact, last.Step)
	assert.Equal(t, "An error occurred: ModelError", last.Error)
	assert.Equal(t, types.StatusFailed, last.Status)
	for _, ev := range events {
		assert.NotContains(t, ev.Error, "secret detail")
	}

	terminal := 0
	for _, ev := range events {
		if ev.IsTerminal() {
			terminal++
		}
	}
	assert.Equal(t, 1, terminal, "exactly one terminal event")
}

func TestRunMalformedOutputCategory(t *testing.T) {
	h := newHarness(t, types.QueryAbstract)
	h.evaluator.err = llm.ErrMalformedOutput

	hyp := h.create(t, "Nietzsche's philosophy emphasizes ambition")
	wait := h.watch(t, hyp.ID)
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))
	events := wait()

	assert.Equal(t, "An error occurred: MalformedModelOutput", events[len(events)-1].Error)
}

func TestRunRecoversPanic(t *testing.T) {
	h := newHarness(t, types.QueryResearchBased)
	h.core.results = []types.Candidate{cand("core", "1", "A")}
	h.ranker.scores = map[string]float64{"A": 0.8}
	h.evaluator.panics = true

	hyp := h.create(t, "Sleep improves memory consolidation")
	wait := h.watch(t, hyp.ID)
	assert.NotPanics(t, func() {
		require.NoError(t, h.m.Run(context.Background(), hyp.ID))
	})
	events := wait()

	assert.Equal(t, types.StatusFailed, h.reload(t, hyp.ID).Status)
	assert.Equal(t, "An error occurred: Unexpected", events[len(events)-1].Error)
}

func TestRunClassifierFailure(t *testing.T) {
	h := newHarness(t, types.QueryResearchBased)
	h.classifier.err = context.DeadlineExceeded

	hyp := h.create(t, "Sleep improves memory consolidation")
	wait := h.watch(t, hyp.ID)
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))
	events := wait()

	got := h.reload(t, hyp.ID)
	assert.Equal(t, types.StatusFailed, got.Status)
	assert.Equal(t, types.QueryUnknown, got.QueryType)
	assert.Equal(t, StepExtractingTopics, events[len(events)-1].Step)
	assert.Equal(t, "An error occurred: Timeout", events[len(events)-1].Error)
}

func TestRunTerminalEvenWhenCallerCancels(t *testing.T) {
	h := newHarness(t, types.QueryResearchBased)
	ctx, cancel := context.WithCancel(context.Background())
	h.m.Classifier = classifierFunc(func(context.Context, string) (nlu.Result, error) {
		cancel()
		return nlu.Result{}, context.Canceled
	})

	hyp := h.create(t, "Sleep improves memory consolidation")
	require.NoError(t, h.m.Run(ctx, hyp.ID))
	assert.Equal(t, types.StatusFailed, h.reload(t, hyp.ID).Status)
}

type classifierFunc func(context.Context, string) (nlu.Result, error)

func (f classifierFunc) Classify(ctx context.Context, text string) (nlu.Result, error) {
	return f(ctx, text)
}

func TestRunAlwaysEndsTerminal(t *testing.T) {
	failures := map[string]func(h *harness){
		"ok":               func(*harness) {},
		"classifier":       func(h *harness) { h.classifier.err = errors.New("x") },
		"ranker":           func(h *harness) { h.ranker.err = errors.New("x") },
		"evaluator":        func(h *harness) { h.evaluator.err = errors.New("x") },
		"evaluator panics": func(h *harness) { h.evaluator.panics = true },
		"no sources":       func(h *harness) { h.core.results = nil },
	}
	for _, qt := range []types.QueryType{types.QueryFactual, types.QueryDefinitional, types.QueryResearchBased, types.QueryAbstract, types.QuerySubjective} {
		for name, inject := range failures {
			t.Run(string(qt)+"/"+name, func(t *testing.T) {
				h := newHarness(t, qt)
				h.core.results = []types.Candidate{cand("core", "1", "A")}
				h.wiki.results = []types.Candidate{cand("wikipedia", "1", "A")}
				h.ranker.scores = map[string]float64{"A": 0.8}
				inject(h)

				hyp := h.create(t, "Sleep improves memory consolidation")
				require.NoError(t, h.m.Run(context.Background(), hyp.ID))
				got := h.reload(t, hyp.ID)
				assert.True(t, got.Status.Terminal(), "status %s", got.Status)
			})
		}
	}
}

func TestRunFactual(t *testing.T) {
	h := newHarness(t, types.QueryFactual)
	h.wiki.results = []types.Candidate{cand("wikipedia", "1", "Berlin Wall")}

	hyp := h.create(t, "The Berlin Wall fell in 1989")
	wait := h.watch(t, hyp.ID)
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))
	events := wait()

	assert.Equal(t, []string{
		StepStarted, StepExtractingTopics, StepExtractingTopics,
		StepSearchingFact, StepSearchingFact,
		StepEvaluatingFact, StepEvaluatingFact,
		StepFinished,
	}, stepNames(events))
	assert.Equal(t, "1 articles found.", events[4].Comment)
	assert.Equal(t, types.StatusCompleted, h.reload(t, hyp.ID).Status)
	require.Len(t, h.results(t, hyp.ID), 1)
	assert.Zero(t, h.web.calls.Load())
}

func TestRunDefinitional(t *testing.T) {
	h := newHarness(t, types.QueryDefinitional)
	h.web.results = []types.Candidate{cand("ddg", "x", "5G")}

	hyp := h.create(t, "5G technology causes cancer")
	wait := h.watch(t, hyp.ID)
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))
	events := wait()

	assert.Contains(t, stepNames(events), StepSearchingWeb)
	assert.Contains(t, stepNames(events), StepEvaluatingDefinition)
	assert.Equal(t, types.StatusCompleted, h.reload(t, hyp.ID).Status)
	require.Len(t, h.results(t, hyp.ID), 1)
	assert.Zero(t, h.wiki.calls.Load())
}

func TestRunAbstractStoresNarrative(t *testing.T) {
	h := newHarness(t, types.QueryAbstract)

	hyp := h.create(t, "Nietzsche's philosophy emphasizes ambition")
	wait := h.watch(t, hyp.ID)
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))
	events := wait()

	got := h.reload(t, hyp.ID)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, "A discussion.", got.Result)
	assert.Empty(t, h.results(t, hyp.ID))
	assert.Equal(t, "Abstract claim processed.", events[4].Comment)
}

// flakyCompleter fails with a transient error before answering.
type flakyCompleter struct {
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyCompleter) Complete(context.Context, llm.Prompt) (string, error) {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return "", &llm.Error{Provider: "test", Kind: llm.KindTransient, StatusCode: 503}
	}
	return `{"classification": "A", "motivation": "Berlin Wall article confirms it."}`, nil
}

func TestRunRetriedEvaluationCreatesOneResult(t *testing.T) {
	h := newHarness(t, types.QueryFactual)
	h.wiki.results = []types.Candidate{cand("wikipedia", "1", "Berlin Wall")}

	model := &flakyCompleter{}
	model.failures.Store(2)
	h.m.Evaluator = &evaluate.Evaluator{LLM: llm.NewResilient(model, nil, llm.Policy{MaxRetries: 3, Base: time.Millisecond}, 0)}

	hyp := h.create(t, "The Berlin Wall fell in 1989")
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))

	assert.Equal(t, int32(3), model.calls.Load())
	rs := h.results(t, hyp.ID)
	require.Len(t, rs, 1)
	assert.Equal(t, types.ClassSupported, rs[0].Classification)
	require.Len(t, rs[0].Sources, 1)
	assert.True(t, rs[0].Sources[0].Relevant)
}

func TestRunReRunStartsFresh(t *testing.T) {
	h := newHarness(t, types.QueryAbstract)
	hyp := h.create(t, "Nietzsche's philosophy emphasizes ambition")
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))
	require.Equal(t, types.StatusCompleted, h.reload(t, hyp.ID).Status)

	h.evaluator.err = errors.New("x")
	wait := h.watch(t, hyp.ID)
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))
	events := wait()

	assert.Equal(t, StepStarted, events[0].Step)
	assert.Equal(t, types.StatusFailed, h.reload(t, hyp.ID).Status)
}

func TestRunReRunClearsPreviousClassification(t *testing.T) {
	h := newHarness(t, types.QueryAbstract)
	hyp := h.create(t, "Nietzsche's philosophy emphasizes ambition")
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))
	first := h.reload(t, hyp.ID)
	require.Equal(t, types.QueryAbstract, first.QueryType)
	require.Equal(t, "A discussion.", first.Result)

	h.classifier.err = errors.New("classifier down")
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))

	got := h.reload(t, hyp.ID)
	assert.Equal(t, types.StatusFailed, got.Status)
	assert.Equal(t, types.QueryUnknown, got.QueryType)
	assert.Empty(t, got.Topics)
	assert.Empty(t, got.Keywords)
	assert.Empty(t, got.Entities)
	assert.Empty(t, got.Result)
}

func TestRunKeepsContentEditedMidRun(t *testing.T) {
	h := newHarness(t, types.QueryAbstract)
	hyp := h.create(t, "Original claim about sleep")
	h.classifier.during = func() {
		_, err := h.store.UpdateContent(context.Background(), hyp.ID, "Edited claim about memory")
		assert.NoError(t, err)
	}

	require.NoError(t, h.m.Run(context.Background(), hyp.ID))

	got := h.reload(t, hyp.ID)
	assert.Equal(t, "Edited claim about memory", got.Content)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.Status.Terminal())
}

func TestWatcherSeesOnlyItsHypothesis(t *testing.T) {
	h := newHarness(t, types.QueryAbstract)
	a := h.create(t, "Claim A is an abstract idea")
	b := h.create(t, "Claim B is an abstract idea")
	c := h.create(t, "Claim C is an abstract idea")

	wait := h.watch(t, a.ID)
	var wg sync.WaitGroup
	for _, id := range []string{b.ID, a.ID, c.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.m.Run(context.Background(), id))
		}()
	}
	wg.Wait()

	events := wait()
	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.Equal(t, a.ID, ev.HypothesisID)
	}
	assert.True(t, events[len(events)-1].IsTerminal())
}

func TestRunWritesDebugDump(t *testing.T) {
	h := newHarness(t, types.QueryResearchBased)
	h.m.Config.DebugDir = filepath.Join(t.TempDir(), "debug")
	h.core.results = []types.Candidate{cand("core", "1", "A"), cand("core", "2", "B")}
	h.ranker.scores = map[string]float64{"A": 0.3, "B": 0.7}

	hyp := h.create(t, "Sleep improves memory consolidation")
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))

	data, err := os.ReadFile(filepath.Join(h.m.Config.DebugDir, hyp.ID+"-ranked.yaml"))
	require.NoError(t, err)
	var dump rankedDump
	require.NoError(t, yaml.Unmarshal(data, &dump))
	assert.Equal(t, hyp.ID, dump.HypothesisID)
	require.Len(t, dump.Candidates, 2)
	assert.Equal(t, "B", dump.Candidates[0].Title)
}

type countingRecorder struct {
	mu       sync.Mutex
	started  int
	finished []types.Status
	steps    map[string]string
}

func (c *countingRecorder) RunStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
}

func (c *countingRecorder) RunFinished(_ string, s types.Status, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = append(c.finished, s)
}

func (c *countingRecorder) StepFinished(step, category string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.steps == nil {
		c.steps = map[string]string{}
	}
	c.steps[step] = category
}

func TestRunReportsToRecorder(t *testing.T) {
	h := newHarness(t, types.QueryAbstract)
	rec := &countingRecorder{}
	h.m.Recorder = rec
	h.evaluator.err = llm.ErrEmptyResponse

	hyp := h.create(t, "Nietzsche's philosophy emphasizes ambition")
	require.NoError(t, h.m.Run(context.Background(), hyp.ID))

	assert.Equal(t, 1, rec.started)
	assert.Equal(t, []types.Status{types.StatusFailed}, rec.finished)
	assert.Equal(t, "", rec.steps[StepExtractingTopics])
	assert.Equal(t, string(CategoryMalformedModelOutput), rec.steps[StepInterpretAbstract])
}
