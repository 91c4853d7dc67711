// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress carries step-level pipeline updates from running
// validations to any number of watchers. Delivery is best effort: events are
// never persisted and subscribers only see what is published after they
// subscribe.
package progress

import (
	"context"
	"sync"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Bus is a broadcast channel of progress events.
type Bus interface {
	// Publish sends ev to current subscribers. Failures never affect the
	// caller's run; they are reported only so they can be logged.
	Publish(ctx context.Context, ev types.ProgressEvent) error

	// Subscribe registers a new subscriber. Cancelling ctx unsubscribes.
	Subscribe(ctx context.Context) (*Subscription, error)

	// Close releases the bus's resources.
	Close() error
}

// Subscription is one subscriber's view of a bus.
type Subscription struct {
	events  chan types.ProgressEvent
	done    chan struct{}
	once    sync.Once
	onClose func()
}

func newSubscription(buffer int) *Subscription {
	return &Subscription{
		events: make(chan types.ProgressEvent, buffer),
		done:   make(chan struct{}),
	}
}

// Events returns the channel of received events. It is closed once the
// subscription ends.
func (s *Subscription) Events() <-chan types.ProgressEvent {
	return s.events
}

// Close ends the subscription. Calling it more than once is safe.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// Watch streams the events for one hypothesis. The returned channel closes
// after the event carrying a terminal status, or when ctx ends.
func Watch(ctx context.Context, bus Bus, hypothesisID string) (<-chan types.ProgressEvent, error) {
	sub, err := bus.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan types.ProgressEvent)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				if ev.HypothesisID != hypothesisID {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				if ev.IsTerminal() {
					return
				}
			}
		}
	}()
	return out, nil
}
