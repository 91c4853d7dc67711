// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ProgressEvent is a transient, step-level status update. It is never
// persisted; late subscribers see only events emitted after they subscribe.
type ProgressEvent struct {
	HypothesisID string `json:"id"`
	Step         string `json:"step"`
	Title        string `json:"title"`
	Comment      string `json:"comment,omitempty"`
	Error        string `json:"error,omitempty"`

	// Status is set on the event that records a terminal status, so
	// watchers know when to stop.
	Status Status `json:"status,omitempty"`

	Time time.Time `json:"time"`
}

// IsTerminal reports whether the event announces a terminal status.
func (e ProgressEvent) IsTerminal() bool {
	return e.Status.Terminal()
}
