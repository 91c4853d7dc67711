// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

const workColumns = `id, external_id, source, title, abstract, full_text, authors, citation, url,
	summary, phrase, summary_topics, extended_summary, created_at, updated_at`

// UpsertWork records w keyed by ExternalID. Descriptive fields are
// refreshed; cached summaries are kept. On return w holds the stored row.
func (s *Store) UpsertWork(ctx context.Context, w *types.Work) error {
	if w.ExternalID == "" {
		return fmt.Errorf("work has no external id")
	}
	t := now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO academic_works (id, external_id, source, title, abstract, full_text, authors, citation, url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(external_id) DO UPDATE SET
			source=excluded.source, title=excluded.title, abstract=excluded.abstract,
			full_text=excluded.full_text, authors=excluded.authors,
			citation=excluded.citation, url=excluded.url, updated_at=excluded.updated_at`,
		newID("W"), w.ExternalID, w.Source, w.Title, w.Abstract, w.FullText,
		encodeList(w.Authors), w.Citation, w.URL, formatTime(t), formatTime(t),
	)
	if err != nil {
		return unavailable("upserting work", err)
	}

	stored, err := s.GetWork(ctx, w.ExternalID)
	if err != nil {
		return err
	}
	*w = stored
	return nil
}

// GetWork loads a work by its external id.
func (s *Store) GetWork(ctx context.Context, externalID string) (types.Work, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workColumns+` FROM academic_works WHERE external_id = ?`, externalID)
	w, err := scanWork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Work{}, fmt.Errorf("work %s: %w", externalID, ErrNotFound)
	}
	if err != nil {
		return types.Work{}, unavailable("loading work", err)
	}
	return w, nil
}

// SaveSummary caches the summarizer's output on a work.
func (s *Store) SaveSummary(ctx context.Context, externalID, summary, phrase string, topics []string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE academic_works SET summary = ?, phrase = ?, summary_topics = ?, updated_at = ?
		 WHERE external_id = ?`,
		summary, phrase, encodeList(topics), formatTime(now()), externalID,
	)
	if err != nil {
		return unavailable("saving summary", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("work %s: %w", externalID, ErrNotFound)
	}
	return nil
}

// WorksMissingExtendedSummary returns up to limit works that have text to
// summarize but no extended summary yet, oldest first.
func (s *Store) WorksMissingExtendedSummary(ctx context.Context, limit int) ([]types.Work, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workColumns+` FROM academic_works
		 WHERE (extended_summary IS NULL OR extended_summary = '')
		   AND (COALESCE(full_text, '') != '' OR COALESCE(abstract, '') != '')
		 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, unavailable("listing works", err)
	}
	defer rows.Close()

	var out []types.Work
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, unavailable("scanning work", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing works", err)
	}
	return out, nil
}

// SetExtendedSummary stores the long-form summary of a work.
func (s *Store) SetExtendedSummary(ctx context.Context, externalID, text string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE academic_works SET extended_summary = ?, updated_at = ? WHERE external_id = ?`,
		text, formatTime(now()), externalID,
	)
	if err != nil {
		return unavailable("saving extended summary", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("work %s: %w", externalID, ErrNotFound)
	}
	return nil
}

func scanWork(sc scanner) (types.Work, error) {
	var w types.Work
	var created, updated string
	var source, title, abstract, fullText, authors, citation, url sql.NullString
	var summary, phrase, topics, extended sql.NullString
	if err := sc.Scan(&w.ID, &w.ExternalID, &source, &title, &abstract, &fullText,
		&authors, &citation, &url, &summary, &phrase, &topics, &extended,
		&created, &updated); err != nil {
		return types.Work{}, err
	}
	w.Source = source.String
	w.Title = title.String
	w.Abstract = abstract.String
	w.FullText = fullText.String
	w.Authors = decodeList(authors)
	w.Citation = citation.String
	w.URL = url.String
	w.Summary = summary.String
	w.Phrase = phrase.String
	w.SummaryTopics = decodeList(topics)
	w.ExtendedSummary = extended.String
	w.CreatedAt = parseTime(created)
	w.UpdatedAt = parseTime(updated)
	return w, nil
}
