// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pdiddy/hypothesis-engine/internal/evaluate"
	"github.com/pdiddy/hypothesis-engine/internal/llm"
	"github.com/pdiddy/hypothesis-engine/internal/metrics"
	"github.com/pdiddy/hypothesis-engine/internal/nlu"
	"github.com/pdiddy/hypothesis-engine/internal/pipeline"
	"github.com/pdiddy/hypothesis-engine/internal/progress"
	"github.com/pdiddy/hypothesis-engine/internal/rank"
	"github.com/pdiddy/hypothesis-engine/internal/search"
	"github.com/pdiddy/hypothesis-engine/internal/store"
	"github.com/pdiddy/hypothesis-engine/internal/summarize"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// app holds the process-scoped capabilities. They are opened once per
// command and closed on exit.
type app struct {
	cfg      types.Config
	store    *store.Store
	bus      progress.Bus
	registry *prometheus.Registry
	recorder *metrics.Recorder
	model    *llm.Resilient
}

// openApp opens the store and bus. Model clients are created lazily by
// manager since not every command needs them.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	bus, err := openBus(cfg.Bus)
	if err != nil {
		st.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &app{
		cfg:      cfg,
		store:    st,
		bus:      bus,
		registry: reg,
		recorder: metrics.New(reg),
	}, nil
}

func (a *app) Close() {
	if err := a.bus.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing progress bus")
	}
	if err := a.store.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing store")
	}
}

func openBus(cfg types.BusConfig) (progress.Bus, error) {
	switch cfg.Backend {
	case "", types.BusMemory:
		return progress.NewMemory(0), nil
	case types.BusRedis:
		r, err := progress.NewRedis(cfg, logger)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown bus backend %q (want memory or redis)", cfg.Backend)
	}
}

// models builds the completion and embedding clients, wrapped with the
// retry policy and per-call timeout.
func (a *app) models(ctx context.Context) (*llm.Resilient, error) {
	if a.model != nil {
		return a.model, nil
	}
	c := a.cfg.LLM
	httpClient := &http.Client{}

	var gemini *llm.Gemini
	geminiClient := func() (*llm.Gemini, error) {
		if gemini != nil {
			return gemini, nil
		}
		g, err := llm.NewGemini(ctx, c.GeminiAPIKey, geminiModel(c.Model), geminiModel(c.EmbeddingModel))
		gemini = g
		return g, err
	}
	openai := &llm.OpenAI{APIKey: c.OpenAIAPIKey, Model: c.Model, EmbeddingModel: c.EmbeddingModel, BaseURL: c.OpenAIBaseURL, Client: httpClient}

	var completer llm.Completer
	switch c.Completion {
	case types.ProviderOpenAI:
		completer = openai
	case types.ProviderAnthropic:
		completer = &llm.Anthropic{APIKey: c.AnthropicAPIKey, Model: c.Model, Client: httpClient}
	case types.ProviderGemini:
		g, err := geminiClient()
		if err != nil {
			return nil, err
		}
		completer = g
	default:
		return nil, fmt.Errorf("unknown completion provider %q", c.Completion)
	}

	var embedder llm.Embedder
	switch c.Embedding {
	case types.ProviderOpenAI:
		embedder = openai
	case types.ProviderGemini:
		g, err := geminiClient()
		if err != nil {
			return nil, err
		}
		embedder = g
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", c.Embedding)
	}

	policy := llm.Policy{MaxRetries: c.MaxRetries, Base: c.BackoffBase, OnRetry: a.recorder.ObserveRetry}
	a.model = llm.NewResilient(completer, embedder, policy, c.Timeout)
	return a.model, nil
}

// geminiModel drops OpenAI model names so the Gemini defaults apply.
func geminiModel(name string) string {
	if name == "gpt-4o" || name == "text-embedding-3-large" {
		return ""
	}
	return name
}

func (a *app) searchClient() *http.Client {
	return &http.Client{Timeout: a.cfg.Search.Timeout}
}

// academicAdapters wraps the enabled academic sources.
func (a *app) academicAdapters() []search.Adapter {
	var out []search.Adapter
	for _, b := range search.AcademicBackends(a.cfg.Search, a.searchClient()) {
		out = append(out, search.FailSafe(b, logger, a.recorder.ObserveAdapter))
	}
	return out
}

// manager assembles a pipeline manager over the app's capabilities.
func (a *app) manager(ctx context.Context) (*pipeline.Manager, error) {
	model, err := a.models(ctx)
	if err != nil {
		return nil, err
	}
	return &pipeline.Manager{
		Hypotheses: a.store,
		Results:    a.store,
		Works:      a.store,
		Bus:        a.bus,
		Classifier: &nlu.Classifier{LLM: model},
		Ranker:     &rank.Embedding{Embedder: model},
		Summarizer: &summarize.Summarizer{
			LLM:     model,
			Works:   a.store,
			Workers: a.cfg.Pipeline.SummaryWorkers,
			Log:     logger,
		},
		Evaluator:    &evaluate.Evaluator{LLM: model},
		Academic:     a.academicAdapters(),
		Encyclopedia: search.FailSafe(search.NewWikipedia(a.cfg.Search, a.searchClient()), logger, a.recorder.ObserveAdapter),
		Web:          search.FailSafe(search.NewDuckDuckGo(a.cfg.Search, a.searchClient()), logger, a.recorder.ObserveAdapter),
		Config:       a.cfg.Pipeline,
		Log:          logger,
		Recorder:     a.recorder,
	}, nil
}
