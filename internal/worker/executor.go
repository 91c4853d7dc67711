// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package worker runs validations in the background, decoupled from the
// request that asked for them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Submit after Shutdown has begun.
var ErrClosed = errors.New("executor closed")

const defaultConcurrency = 4

// RunFunc validates one hypothesis. pipeline.Manager.Run satisfies it.
type RunFunc func(ctx context.Context, id string) error

// Executor runs submitted hypotheses with bounded concurrency. Runs for the
// same id never overlap: a submission that arrives while the id is queued or
// running is coalesced into a single follow-up run.
type Executor struct {
	run RunFunc
	log zerolog.Logger
	sem chan struct{}

	// OnCoalesce, when set, is called for every coalesced submission.
	OnCoalesce func()

	mu     sync.Mutex
	rerun  map[string]bool // id → another run requested
	closed bool
	wg     sync.WaitGroup
}

// New creates an executor allowing at most concurrency runs at once.
func New(run RunFunc, concurrency int, log zerolog.Logger) *Executor {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Executor{
		run:   run,
		log:   log,
		sem:   make(chan struct{}, concurrency),
		rerun: make(map[string]bool),
	}
}

// Submit schedules a run for id and returns immediately. Runs execute under
// a background context, so callers cannot cancel them.
func (e *Executor) Submit(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if _, busy := e.rerun[id]; busy {
		e.rerun[id] = true
		if e.OnCoalesce != nil {
			e.OnCoalesce()
		}
		e.log.Debug().Str("hypothesis_id", id).Msg("run already pending, coalesced")
		return nil
	}
	e.rerun[id] = false
	e.wg.Add(1)
	go e.loop(id)
	return nil
}

// Pending reports how many ids are queued or running.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rerun)
}

// Shutdown stops accepting submissions and waits for in-flight runs, or for
// ctx to end.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for runs: %w", ctx.Err())
	}
}

func (e *Executor) loop(id string) {
	defer e.wg.Done()
	e.sem <- struct{}{}
	defer func() { <-e.sem }()

	for {
		e.runOnce(id)

		e.mu.Lock()
		again := e.rerun[id]
		if !again {
			delete(e.rerun, id)
		} else {
			e.rerun[id] = false
		}
		e.mu.Unlock()
		if !again {
			return
		}
	}
}

func (e *Executor) runOnce(id string) {
	log := e.log.With().Str("hypothesis_id", id).Logger()
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("run panicked")
		}
	}()
	if err := e.run(context.Background(), id); err != nil {
		log.Error().Err(err).Msg("run failed")
	}
}
