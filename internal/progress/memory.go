// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

const defaultBuffer = 64

// Memory is an in-process bus. A subscriber whose buffer is full misses
// the event; publishers never block.
type Memory struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	buffer  int
	closed  bool
	dropped atomic.Int64
}

// NewMemory creates a bus with the given per-subscriber buffer (default 64).
func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Memory{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Publish implements Bus.
func (m *Memory) Publish(_ context.Context, ev types.ProgressEvent) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for s := range m.subs {
		select {
		case s.events <- ev:
		default:
			m.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe implements Bus.
func (m *Memory) Subscribe(ctx context.Context) (*Subscription, error) {
	s := newSubscription(m.buffer)
	s.onClose = func() { m.remove(s) }

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(s.events)
		return s, nil
	}
	m.subs[s] = struct{}{}
	m.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

func (m *Memory) remove(s *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[s]; ok {
		delete(m.subs, s)
		close(s.events)
	}
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full.
func (m *Memory) Dropped() int64 {
	return m.dropped.Load()
}

// Close ends every subscription.
func (m *Memory) Close() error {
	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subs))
	for s := range m.subs {
		subs = append(subs, s)
	}
	m.closed = true
	m.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return nil
}
