// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Step is one unit of a workflow. Run returns the comment published after
// the step completes.
type Step struct {
	Name  string
	Title string
	Run   func(ctx context.Context, r *run) (string, error)
}

// run is the state of one pipeline execution.
type run struct {
	h        *types.Hypothesis
	workflow Workflow
	log      zerolog.Logger

	// cands carries candidates from step to step.
	cands []types.Candidate

	// terminalSent is set once the event carrying the terminal status has
	// been published.
	terminalSent bool
}

// runSteps executes steps in order. Each step is bracketed by a progress
// event without comment and one with the step's comment. ErrShortCircuit
// stops the sequence without error; any other failure is returned as a
// *StepError.
func (m *Manager) runSteps(ctx context.Context, r *run, steps []Step) error {
	for _, s := range steps {
		m.publish(ctx, r, types.ProgressEvent{Step: s.Name, Title: s.Title})

		start := time.Now()
		comment, err := s.Run(ctx, r)
		m.recordStep(s.Name, err, time.Since(start))

		switch {
		case errors.Is(err, ErrShortCircuit):
			r.log.Info().Str("step", s.Name).Str("status", string(r.h.Status)).Msg("workflow ended early")
			m.publish(ctx, r, types.ProgressEvent{Step: s.Name, Title: s.Title, Comment: comment})
			return nil
		case err != nil:
			return &StepError{Step: s.Name, Title: s.Title, Err: err}
		}

		r.log.Debug().Str("step", s.Name).Dur("elapsed", time.Since(start)).Msg(comment)
		m.publish(ctx, r, types.ProgressEvent{Step: s.Name, Title: s.Title, Comment: comment})
	}
	return nil
}

func (m *Manager) recordStep(step string, err error, d time.Duration) {
	if m.Recorder == nil {
		return
	}
	var category string
	if err != nil && !errors.Is(err, ErrShortCircuit) {
		category = string(Classify(err))
	}
	m.Recorder.StepFinished(step, category, d)
}

// publish stamps and sends an event. Delivery is best effort: a failed
// publish is logged and never fails the run.
func (m *Manager) publish(ctx context.Context, r *run, ev types.ProgressEvent) {
	ev.HypothesisID = r.h.ID
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	if ev.IsTerminal() {
		r.terminalSent = true
	}
	if err := m.Bus.Publish(ctx, ev); err != nil {
		r.log.Warn().Err(err).Str("step", ev.Step).Msg("publishing progress")
	}
}
