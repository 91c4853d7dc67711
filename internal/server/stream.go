// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pdiddy/hypothesis-engine/internal/pipeline"
	"github.com/pdiddy/hypothesis-engine/internal/progress"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// subscribe opens a progress stream for id. When the hypothesis has already
// reached a terminal status the stream holds a single event describing it,
// so late watchers do not hang.
func (s *Server) subscribe(ctx context.Context, id string) (<-chan types.ProgressEvent, error) {
	ch, err := progress.Watch(ctx, s.bus, id)
	if err != nil {
		return nil, err
	}
	h, err := s.store.GetHypothesis(ctx, id)
	if err != nil {
		go drain(ch)
		return nil, err
	}
	if !h.Status.Terminal() {
		return ch, nil
	}
	go drain(ch)
	done := make(chan types.ProgressEvent, 1)
	done <- types.ProgressEvent{
		HypothesisID: id,
		Step:         pipeline.StepFinished,
		Title:        "Validation finished",
		Status:       h.Status,
		Time:         h.UpdatedAt,
	}
	close(done)
	return done, nil
}

// drain discards a watch channel until the caller cancels its context.
func drain(ch <-chan types.ProgressEvent) {
	for range ch {
	}
}

// events streams progress as server-sent events.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id := r.PathValue("id")
	ch, err := s.subscribe(ctx, id)
	if err != nil {
		cancel()
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat())
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.log.Error().Err(err).Msg("encoding progress event")
				return
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// socket streams progress as JSON text frames and closes normally after
// the terminal event.
func (s *Server) socket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetHypothesis(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A read error means the client went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ch, err := s.subscribe(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("hypothesis_id", id).Msg("subscribing to progress")
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) heartbeat() time.Duration {
	if s.Heartbeat > 0 {
		return s.Heartbeat
	}
	return 15 * time.Second
}
