// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Manager-level step names.
const (
	StepStarted          = "Started"
	StepExtractingTopics = "ExtractingTopics"
	StepFinished         = "Finished"
)

const defaultFinalizeTimeout = 10 * time.Second

// Run validates the hypothesis with the given id. A missing hypothesis is
// returned as an error with its status untouched. Once the hypothesis is
// loaded, Run always returns nil: failures are reported through the
// hypothesis status and the progress bus, and the status is guaranteed to be
// terminal when Run returns.
func (m *Manager) Run(ctx context.Context, id string) error {
	h, err := m.Hypotheses.GetHypothesis(ctx, id)
	if err != nil {
		return fmt.Errorf("loading hypothesis %s: %w", id, err)
	}

	r := &run{
		h:   &h,
		log: m.Log.With().Str("hypothesis_id", id).Logger(),
	}
	start := time.Now()
	if m.Recorder != nil {
		m.Recorder.RunStarted()
	}
	defer m.finalize(ctx, r, start)

	if err := m.execute(ctx, r); err != nil {
		m.fail(ctx, r, err)
	}
	return nil
}

// execute drives the state machine up to the end of the workflow.
func (m *Manager) execute(ctx context.Context, r *run) error {
	r.h.Status = types.StatusProcessing
	r.h.QueryType = types.QueryUnknown
	r.h.Topics, r.h.Keywords, r.h.Entities = nil, nil, nil
	r.h.Result = ""
	if err := m.Hypotheses.SaveRunState(ctx, r.h); err != nil {
		return &StepError{Step: StepStarted, Title: "Validation started", Err: err}
	}
	m.publish(ctx, r, types.ProgressEvent{Step: StepStarted, Title: "Validation started"})

	if err := m.runSteps(ctx, r, []Step{{Name: StepExtractingTopics, Title: "Extracting topics", Run: m.extractTopics}}); err != nil {
		return err
	}

	r.workflow = WorkflowFor(r.h.QueryType)
	r.log = r.log.With().Str("workflow", r.workflow.String()).Logger()
	if r.workflow == WorkflowUnsupported {
		return m.skip(ctx, r)
	}

	r.log.Info().Str("query_type", string(r.h.QueryType)).Msg("dispatching workflow")
	if err := m.runSteps(ctx, r, m.steps(r.workflow)); err != nil {
		return err
	}

	if !r.h.Status.Terminal() {
		r.h.Status = types.StatusCompleted
	}
	return nil
}

// extractTopics classifies the claim and persists the extracted fields.
func (m *Manager) extractTopics(ctx context.Context, r *run) (string, error) {
	res, err := m.Classifier.Classify(ctx, r.h.Content)
	if err != nil {
		return "", err
	}
	res.Apply(r.h)
	if err := m.Hypotheses.SaveRunState(ctx, r.h); err != nil {
		return "", err
	}
	return "Extracted topics: " + strings.Join(r.h.Topics, ", "), nil
}

// skip ends a run whose query type no workflow handles. This is not a
// failure.
func (m *Manager) skip(ctx context.Context, r *run) error {
	r.h.Status = types.StatusSkipped
	if err := m.Hypotheses.SaveRunState(ctx, r.h); err != nil {
		return &StepError{Step: StepFinished, Title: "Skipped", Err: err}
	}
	r.log.Info().Str("query_type", string(r.h.QueryType)).Msg("query type not handled, skipping")
	m.publish(ctx, r, types.ProgressEvent{
		Step:   StepFinished,
		Title:  "Skipped",
		Error:  fmt.Sprintf("Skipped: query type %q not handled", r.h.QueryType),
		Status: types.StatusSkipped,
	})
	return nil
}

// fail classifies err, logs it, marks the hypothesis Failed, and publishes
// the category. Raw error text never reaches the bus.
func (m *Manager) fail(ctx context.Context, r *run, err error) {
	category := Classify(err)

	step, title := StepFinished, "Validation failed"
	var se *StepError
	if errors.As(err, &se) {
		step, title = se.Step, se.Title
	}

	ev := r.log.Error().Str("step", step).Str("error_type", string(category)).Err(err)
	var pe *panicError
	if errors.As(err, &pe) {
		ev = ev.Bytes("stack", pe.stack)
	} else if !category.Recoverable() {
		ev = ev.Str("error_detail", fmt.Sprintf("%+v", err))
	}
	ev.Msg("pipeline step failed")

	r.h.Status = types.StatusFailed
	m.persistFinal(ctx, r)
	m.publish(context.WithoutCancel(ctx), r, types.ProgressEvent{
		Step:   step,
		Title:  title,
		Error:  category.Message(),
		Status: types.StatusFailed,
	})
}

// finalize runs on every exit path once the hypothesis is loaded. It turns a
// panic into a failure, forces a terminal status, and makes sure exactly one
// terminal event is published.
func (m *Manager) finalize(ctx context.Context, r *run, start time.Time) {
	if p := recover(); p != nil {
		m.fail(ctx, r, &panicError{value: p, stack: debug.Stack()})
	}

	if !r.h.Status.Terminal() {
		r.log.Warn().Str("status", string(r.h.Status)).Msg("run ended without terminal status, marking failed")
		r.h.Status = types.StatusFailed
	}
	if !r.terminalSent {
		m.persistFinal(ctx, r)
		m.publish(context.WithoutCancel(ctx), r, types.ProgressEvent{
			Step:   StepFinished,
			Title:  "Validation finished",
			Status: r.h.Status,
		})
	}

	elapsed := time.Since(start)
	if m.Recorder != nil {
		m.Recorder.RunFinished(r.workflow.String(), r.h.Status, elapsed)
	}
	r.log.Info().Str("status", string(r.h.Status)).Dur("elapsed", elapsed).Msg("pipeline finished")
}

// persistFinal writes the status with a context detached from the caller so
// the terminal write lands even after cancellation.
func (m *Manager) persistFinal(ctx context.Context, r *run) {
	timeout := m.FinalizeTimeout
	if timeout <= 0 {
		timeout = defaultFinalizeTimeout
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := m.Hypotheses.SaveRunState(wctx, r.h); err != nil {
		r.log.Error().Err(err).Str("status", string(r.h.Status)).Msg("persisting terminal status")
	}
}
