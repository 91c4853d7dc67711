// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

const hypothesisColumns = `id, user_id, content, status, query_type, topics, keywords, entities, result, created_at, updated_at`

// CreateHypothesis validates and inserts h, assigning its ID and
// timestamps. New hypotheses start Pending with an unknown query type.
func (s *Store) CreateHypothesis(ctx context.Context, h *types.Hypothesis) error {
	if err := types.ValidateContent(h.Content); err != nil {
		return err
	}

	t := now()
	h.ID = newID("H")
	h.Status = types.StatusPending
	h.QueryType = types.QueryUnknown
	h.CreatedAt = t
	h.UpdatedAt = t

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hypotheses (`+hypothesisColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.Content, string(h.Status), string(h.QueryType),
		encodeList(h.Topics), encodeList(h.Keywords), encodeList(h.Entities),
		h.Result, formatTime(h.CreatedAt), formatTime(h.UpdatedAt),
	)
	if err != nil {
		return unavailable("inserting hypothesis", err)
	}
	return nil
}

// GetHypothesis loads a hypothesis by id.
func (s *Store) GetHypothesis(ctx context.Context, id string) (types.Hypothesis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+hypothesisColumns+` FROM hypotheses WHERE id = ?`, id)
	h, err := scanHypothesis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Hypothesis{}, fmt.Errorf("hypothesis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Hypothesis{}, unavailable("loading hypothesis", err)
	}
	return h, nil
}

// SaveHypothesis writes every mutable field of h and refreshes UpdatedAt.
func (s *Store) SaveHypothesis(ctx context.Context, h *types.Hypothesis) error {
	if !h.Status.Valid() {
		return fmt.Errorf("saving hypothesis %s: undefined status %q", h.ID, h.Status)
	}
	h.UpdatedAt = now()

	res, err := s.db.ExecContext(ctx,
		`UPDATE hypotheses SET user_id = ?, content = ?, status = ?, query_type = ?,
			topics = ?, keywords = ?, entities = ?, result = ?, updated_at = ?
		 WHERE id = ?`,
		h.UserID, h.Content, string(h.Status), string(h.QueryType),
		encodeList(h.Topics), encodeList(h.Keywords), encodeList(h.Entities),
		h.Result, formatTime(h.UpdatedAt), h.ID,
	)
	if err != nil {
		return unavailable("updating hypothesis", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("hypothesis %s: %w", h.ID, ErrNotFound)
	}
	return nil
}

// SaveRunState writes only the fields a validation run owns: status, query
// type, extracted terms, and the narrative result. Content and owner are left
// as stored so edits made during a run survive it.
func (s *Store) SaveRunState(ctx context.Context, h *types.Hypothesis) error {
	if !h.Status.Valid() {
		return fmt.Errorf("saving hypothesis %s: undefined status %q", h.ID, h.Status)
	}
	h.UpdatedAt = now()

	res, err := s.db.ExecContext(ctx,
		`UPDATE hypotheses SET status = ?, query_type = ?,
			topics = ?, keywords = ?, entities = ?, result = ?, updated_at = ?
		 WHERE id = ?`,
		string(h.Status), string(h.QueryType),
		encodeList(h.Topics), encodeList(h.Keywords), encodeList(h.Entities),
		h.Result, formatTime(h.UpdatedAt), h.ID,
	)
	if err != nil {
		return unavailable("updating hypothesis run state", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("hypothesis %s: %w", h.ID, ErrNotFound)
	}
	return nil
}

// UpdateContent replaces the text of a hypothesis. The extracted fields and
// narrative are cleared and status returns to Pending so a fresh run
// re-derives them.
func (s *Store) UpdateContent(ctx context.Context, id, content string) (types.Hypothesis, error) {
	if err := types.ValidateContent(content); err != nil {
		return types.Hypothesis{}, err
	}
	h, err := s.GetHypothesis(ctx, id)
	if err != nil {
		return types.Hypothesis{}, err
	}

	h.Content = content
	h.Status = types.StatusPending
	h.QueryType = types.QueryUnknown
	h.Topics, h.Keywords, h.Entities = nil, nil, nil
	h.Result = ""
	if err := s.SaveHypothesis(ctx, &h); err != nil {
		return types.Hypothesis{}, err
	}
	return h, nil
}

// ListHypotheses returns hypotheses newest first. An empty userID lists all.
func (s *Store) ListHypotheses(ctx context.Context, userID string, limit int) ([]types.Hypothesis, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + hypothesisColumns + ` FROM hypotheses`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("listing hypotheses", err)
	}
	defer rows.Close()

	var out []types.Hypothesis
	for rows.Next() {
		h, err := scanHypothesis(rows)
		if err != nil {
			return nil, unavailable("scanning hypothesis", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing hypotheses", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHypothesis(sc scanner) (types.Hypothesis, error) {
	var (
		h                          types.Hypothesis
		userID, result             sql.NullString
		topics, keywords, entities sql.NullString
		status, queryType          string
		created, updated           string
	)
	if err := sc.Scan(&h.ID, &userID, &h.Content, &status, &queryType,
		&topics, &keywords, &entities, &result, &created, &updated); err != nil {
		return types.Hypothesis{}, err
	}
	h.UserID = userID.String
	h.Status = types.Status(status)
	h.QueryType = types.QueryType(queryType)
	h.Topics = decodeList(topics)
	h.Keywords = decodeList(keywords)
	h.Entities = decodeList(entities)
	h.Result = result.String
	h.CreatedAt = parseTime(created)
	h.UpdatedAt = parseTime(updated)
	return h, nil
}
