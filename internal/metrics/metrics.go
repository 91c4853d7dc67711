// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus instruments for pipeline runs, steps,
// search adapters, and model retries.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Recorder holds the instruments. A nil *Recorder records nothing.
type Recorder struct {
	Runs            *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	ActiveRuns      prometheus.Gauge
	StepDuration    *prometheus.HistogramVec
	StepFailures    *prometheus.CounterVec
	AdapterResults  *prometheus.CounterVec
	AdapterFailures *prometheus.CounterVec
	AdapterLatency  *prometheus.HistogramVec
	ModelRetries    prometheus.Counter
	Coalesced       prometheus.Counter
}

// New registers the instruments with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		Runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypothesis_engine_runs_total",
				Help: "Finished pipeline runs by workflow and terminal status",
			},
			[]string{"workflow", "status"},
		),
		RunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hypothesis_engine_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"workflow"},
		),
		ActiveRuns: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "hypothesis_engine_active_runs",
				Help: "Pipeline runs currently executing",
			},
		),
		StepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "hypothesis_engine_step_duration_seconds",
				Help: "Pipeline step duration in seconds",
			},
			[]string{"step"},
		),
		StepFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypothesis_engine_step_failures_total",
				Help: "Pipeline steps that returned an error, by error category",
			},
			[]string{"step", "category"},
		),
		AdapterResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypothesis_engine_adapter_results_total",
				Help: "Candidates returned by each search adapter",
			},
			[]string{"source"},
		),
		AdapterFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypothesis_engine_adapter_failures_total",
				Help: "Search adapter calls that failed and were degraded to no results",
			},
			[]string{"source"},
		),
		AdapterLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "hypothesis_engine_adapter_latency_seconds",
				Help: "Search adapter latency in seconds",
			},
			[]string{"source"},
		),
		ModelRetries: f.NewCounter(
			prometheus.CounterOpts{
				Name: "hypothesis_engine_model_retries_total",
				Help: "Retries of transient model failures",
			},
		),
		Coalesced: f.NewCounter(
			prometheus.CounterOpts{
				Name: "hypothesis_engine_coalesced_submissions_total",
				Help: "Run submissions folded into an already pending run",
			},
		),
	}
}

// RunStarted marks a run as executing.
func (r *Recorder) RunStarted() {
	if r == nil {
		return
	}
	r.ActiveRuns.Inc()
}

// RunFinished records a run's outcome.
func (r *Recorder) RunFinished(workflow string, status types.Status, d time.Duration) {
	if r == nil {
		return
	}
	r.ActiveRuns.Dec()
	r.Runs.WithLabelValues(workflow, string(status)).Inc()
	r.RunDuration.WithLabelValues(workflow).Observe(d.Seconds())
}

// StepFinished records one step; category is empty on success.
func (r *Recorder) StepFinished(step, category string, d time.Duration) {
	if r == nil {
		return
	}
	r.StepDuration.WithLabelValues(step).Observe(d.Seconds())
	if category != "" {
		r.StepFailures.WithLabelValues(step, category).Inc()
	}
}

// ObserveAdapter matches search.Observer.
func (r *Recorder) ObserveAdapter(source string, found int, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.AdapterLatency.WithLabelValues(source).Observe(elapsed.Seconds())
	if err != nil {
		r.AdapterFailures.WithLabelValues(source).Inc()
		return
	}
	r.AdapterResults.WithLabelValues(source).Add(float64(found))
}

// ObserveRetry matches llm.Policy.OnRetry.
func (r *Recorder) ObserveRetry(int, time.Duration, error) {
	if r == nil {
		return
	}
	r.ModelRetries.Inc()
}

// ObserveCoalesced counts a submission absorbed by a pending run.
func (r *Recorder) ObserveCoalesced() {
	if r == nil {
		return
	}
	r.Coalesced.Inc()
}
