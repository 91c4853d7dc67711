// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

type createRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

type updateRequest struct {
	Content string `json:"content"`
}

// hypothesisView is a hypothesis with its stored verdicts.
type hypothesisView struct {
	types.Hypothesis
	Results []types.ValidationResult `json:"results"`
}

// createHypothesis stores a new hypothesis and schedules its validation.
func (s *Server) createHypothesis(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	h := types.Hypothesis{UserID: req.UserID, Content: req.Content}
	if err := s.store.CreateHypothesis(r.Context(), &h); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.submit(h.ID)
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) listHypotheses(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid limit %q", v)})
			return
		}
		limit = n
	}
	hs, err := s.store.ListHypotheses(r.Context(), r.URL.Query().Get("user_id"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if hs == nil {
		hs = []types.Hypothesis{}
	}
	writeJSON(w, http.StatusOK, hs)
}

func (s *Server) getHypothesis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h, err := s.store.GetHypothesis(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	results, err := s.store.ListResults(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []types.ValidationResult{}
	}
	writeJSON(w, http.StatusOK, hypothesisView{Hypothesis: h, Results: results})
}

// updateHypothesis replaces the content, which resets the hypothesis to
// Pending, and schedules a fresh run.
func (s *Server) updateHypothesis(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	h, err := s.store.UpdateContent(r.Context(), r.PathValue("id"), req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.submit(h.ID)
	writeJSON(w, http.StatusOK, h)
}

// validate schedules a run for an existing hypothesis.
func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetHypothesis(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.runner.Submit(id); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "validation is not accepting work"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "scheduled"})
}

// submit schedules a run after a write. The hypothesis is already stored,
// so a refused submission is only logged.
func (s *Server) submit(id string) {
	if err := s.runner.Submit(id); err != nil {
		s.log.Warn().Err(err).Str("hypothesis_id", id).Msg("scheduling validation")
	}
}
