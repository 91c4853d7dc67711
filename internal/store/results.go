// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// CreateResult inserts a validation result, assigning its ID and CreatedAt.
// Results are immutable once written.
func (s *Store) CreateResult(ctx context.Context, r *types.ValidationResult) error {
	if r.HypothesisID == "" {
		return fmt.Errorf("validation result has no hypothesis id")
	}
	r.ID = newID("V")
	r.CreatedAt = now()

	sources := r.Sources
	if sources == nil {
		sources = []types.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO validation_results (id, hypothesis_id, classification, motivation, sources, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.HypothesisID, string(r.Classification), r.Motivation,
		string(sourcesJSON), formatTime(r.CreatedAt),
	)
	if err != nil {
		return unavailable("inserting validation result", err)
	}
	return nil
}

// ListResults returns the results of a hypothesis in creation order.
func (s *Store) ListResults(ctx context.Context, hypothesisID string) ([]types.ValidationResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, hypothesis_id, classification, motivation, sources, created_at
		 FROM validation_results WHERE hypothesis_id = ? ORDER BY rowid`, hypothesisID)
	if err != nil {
		return nil, unavailable("listing validation results", err)
	}
	defer rows.Close()

	var out []types.ValidationResult
	for rows.Next() {
		var (
			r                   types.ValidationResult
			class               string
			motivation, sources sql.NullString
			created             string
		)
		if err := rows.Scan(&r.ID, &r.HypothesisID, &class, &motivation, &sources, &created); err != nil {
			return nil, unavailable("scanning validation result", err)
		}
		r.Classification = types.Classification(class)
		r.Motivation = motivation.String
		r.CreatedAt = parseTime(created)
		if sources.Valid && sources.String != "" {
			if err := json.Unmarshal([]byte(sources.String), &r.Sources); err != nil {
				return nil, unavailable("decoding sources of validation result "+r.ID, err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing validation results", err)
	}
	return out, nil
}
