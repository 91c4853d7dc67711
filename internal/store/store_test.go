// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createHypothesis(t *testing.T, s *Store, content string) types.Hypothesis {
	t.Helper()
	h := types.Hypothesis{UserID: "u1", Content: content}
	if err := s.CreateHypothesis(context.Background(), &h); err != nil {
		t.Fatalf("CreateHypothesis: %v", err)
	}
	return h
}

// --- hypotheses ---

func TestCreateHypothesisAssignsDefaults(t *testing.T) {
	s := testStore(t)
	h := createHypothesis(t, s, "Coffee improves short-term memory")

	if !strings.HasPrefix(h.ID, "H") || len(h.ID) != 33 {
		t.Errorf("ID = %q, want H + 32 hex chars", h.ID)
	}
	if h.Status != types.StatusPending {
		t.Errorf("Status = %q, want Pending", h.Status)
	}
	if h.QueryType != types.QueryUnknown {
		t.Errorf("QueryType = %q, want unknown", h.QueryType)
	}

	got, err := s.GetHypothesis(context.Background(), h.ID)
	if err != nil {
		t.Fatalf("GetHypothesis: %v", err)
	}
	if got.Content != h.Content || got.UserID != "u1" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not persisted")
	}
}

func TestCreateHypothesisRejectsBadContent(t *testing.T) {
	s := testStore(t)
	for _, content := range []string{"", "ab", strings.Repeat("x", 501)} {
		h := types.Hypothesis{Content: content}
		err := s.CreateHypothesis(context.Background(), &h)
		if !errors.Is(err, types.ErrInvalidContent) {
			t.Errorf("content len %d: err = %v, want ErrInvalidContent", len(content), err)
		}
	}
}

func TestGetHypothesisNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetHypothesis(context.Background(), "Hmissing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveHypothesisPersistsExtractedFields(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	h := createHypothesis(t, s, "The Eiffel Tower is in Paris")

	h.Status = types.StatusProcessing
	h.QueryType = types.QueryFactual
	h.Topics = []string{"landmarks"}
	h.Keywords = []string{"tower", "paris"}
	h.Entities = []string{"Eiffel Tower", "Paris"}
	if err := s.SaveHypothesis(ctx, &h); err != nil {
		t.Fatalf("SaveHypothesis: %v", err)
	}

	got, err := s.GetHypothesis(ctx, h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.StatusProcessing || got.QueryType != types.QueryFactual {
		t.Errorf("status/type = %s/%s", got.Status, got.QueryType)
	}
	if strings.Join(got.Entities, "|") != "Eiffel Tower|Paris" {
		t.Errorf("Entities = %v", got.Entities)
	}
	if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Errorf("UpdatedAt %v before CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}
}

func TestSaveHypothesisRejectsUndefinedStatus(t *testing.T) {
	s := testStore(t)
	h := createHypothesis(t, s, "Some hypothesis")
	h.Status = "Halfway"
	if err := s.SaveHypothesis(context.Background(), &h); err == nil {
		t.Error("expected error for undefined status")
	}
}

func TestSaveHypothesisNotFound(t *testing.T) {
	s := testStore(t)
	h := types.Hypothesis{ID: "Hnope", Content: "abc", Status: types.StatusPending}
	if err := s.SaveHypothesis(context.Background(), &h); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveRunStateLeavesContentAndOwner(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	h := createHypothesis(t, s, "Original claim")

	if _, err := s.UpdateContent(ctx, h.ID, "Edited claim"); err != nil {
		t.Fatal(err)
	}

	// h still carries the stale content and an unrelated owner.
	h.UserID = "someone-else"
	h.Status = types.StatusCompleted
	h.QueryType = types.QueryAbstract
	h.Topics = []string{"ethics"}
	h.Result = "narrative"
	if err := s.SaveRunState(ctx, &h); err != nil {
		t.Fatalf("SaveRunState: %v", err)
	}

	got, err := s.GetHypothesis(ctx, h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "Edited claim" || got.UserID != "u1" {
		t.Errorf("content/owner = %q/%q, want Edited claim/u1", got.Content, got.UserID)
	}
	if got.Status != types.StatusCompleted || got.QueryType != types.QueryAbstract || got.Result != "narrative" {
		t.Errorf("run state not written: %+v", got)
	}
	if strings.Join(got.Topics, "|") != "ethics" {
		t.Errorf("Topics = %v", got.Topics)
	}
}

func TestSaveRunStateRejectsUndefinedStatusAndMissing(t *testing.T) {
	s := testStore(t)
	h := createHypothesis(t, s, "Some hypothesis")
	h.Status = "Halfway"
	if err := s.SaveRunState(context.Background(), &h); err == nil {
		t.Error("expected error for undefined status")
	}

	ghost := types.Hypothesis{ID: "Hnope", Status: types.StatusFailed}
	if err := s.SaveRunState(context.Background(), &ghost); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateContentResetsState(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	h := createHypothesis(t, s, "Original claim")
	h.Status = types.StatusCompleted
	h.QueryType = types.QueryAbstract
	h.Topics = []string{"t"}
	h.Result = "narrative"
	if err := s.SaveHypothesis(ctx, &h); err != nil {
		t.Fatal(err)
	}

	got, err := s.UpdateContent(ctx, h.ID, "Revised claim")
	if err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if got.Content != "Revised claim" || got.Status != types.StatusPending {
		t.Errorf("got %+v", got)
	}
	if got.QueryType != types.QueryUnknown || got.Topics != nil || got.Result != "" {
		t.Errorf("extracted fields not cleared: %+v", got)
	}

	if _, err := s.UpdateContent(ctx, h.ID, "no"); !errors.Is(err, types.ErrInvalidContent) {
		t.Errorf("short content err = %v", err)
	}
}

func TestListHypothesesFiltersByUser(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	createHypothesis(t, s, "first claim")
	createHypothesis(t, s, "second claim")
	other := types.Hypothesis{UserID: "u2", Content: "other user"}
	if err := s.CreateHypothesis(ctx, &other); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListHypotheses(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all = %d, want 3", len(all))
	}

	mine, err := s.ListHypotheses(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Errorf("u1 = %d, want 2", len(mine))
	}
}

// --- validation results ---

func TestCreateAndListResults(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	h := createHypothesis(t, s, "Exercise reduces anxiety")

	first := types.ValidationResult{
		HypothesisID:   h.ID,
		Classification: types.ClassSupported,
		Motivation:     "Two trials agree.",
		Sources: []types.Source{
			{Index: 1, ReferenceID: "core:1", Citation: "Doe, J. (2020). Trial. Journal."},
			{Index: 2, ReferenceID: "core:2"},
		},
	}
	if err := s.CreateResult(ctx, &first); err != nil {
		t.Fatalf("CreateResult: %v", err)
	}
	if !strings.HasPrefix(first.ID, "V") {
		t.Errorf("ID = %q, want V prefix", first.ID)
	}
	second := types.ValidationResult{HypothesisID: h.ID, Classification: types.ClassNoData}
	if err := s.CreateResult(ctx, &second); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListResults(ctx, h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Errorf("order = %s, %s", got[0].ID, got[1].ID)
	}
	if len(got[0].Sources) != 2 || got[0].Sources[0].Citation == "" {
		t.Errorf("sources = %+v", got[0].Sources)
	}
	if got[1].Sources == nil || len(got[1].Sources) != 0 {
		t.Errorf("empty sources should decode as empty slice, got %#v", got[1].Sources)
	}
}

func TestListResultsCorruptSources(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	h := createHypothesis(t, s, "Exercise reduces anxiety")
	r := types.ValidationResult{HypothesisID: h.ID, Classification: types.ClassSupported}
	if err := s.CreateResult(ctx, &r); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE validation_results SET sources = ? WHERE id = ?`, "{not json", r.ID); err != nil {
		t.Fatal(err)
	}

	_, err := s.ListResults(ctx, h.ID)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if err != nil && !strings.Contains(err.Error(), r.ID) {
		t.Errorf("err = %v, want the result id named", err)
	}
}

func TestCreateResultRequiresExistingHypothesis(t *testing.T) {
	s := testStore(t)
	r := types.ValidationResult{HypothesisID: "Hghost", Classification: types.ClassError}
	err := s.CreateResult(context.Background(), &r)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want foreign key failure wrapped in ErrUnavailable", err)
	}
}

// --- works ---

func TestUpsertWorkKeepsCachedSummary(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	w := types.Work{ExternalID: "core:42", Source: "core", Title: "Old title", Authors: []string{"Doe, J."}}
	if err := s.UpsertWork(ctx, &w); err != nil {
		t.Fatalf("UpsertWork: %v", err)
	}
	if !strings.HasPrefix(w.ID, "W") {
		t.Errorf("ID = %q, want W prefix", w.ID)
	}
	firstID := w.ID

	if err := s.SaveSummary(ctx, "core:42", "sum", "phrase", []string{"a", "b"}); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	again := types.Work{ExternalID: "core:42", Source: "core", Title: "New title"}
	if err := s.UpsertWork(ctx, &again); err != nil {
		t.Fatal(err)
	}
	if again.ID != firstID {
		t.Errorf("ID changed on upsert: %s -> %s", firstID, again.ID)
	}
	if again.Title != "New title" {
		t.Errorf("Title = %q, want refreshed", again.Title)
	}
	if !again.HasSummary() {
		t.Errorf("cached summary lost: %+v", again)
	}
}

func TestSaveSummaryUnknownWork(t *testing.T) {
	s := testStore(t)
	err := s.SaveSummary(context.Background(), "nope", "s", "p", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestWorksMissingExtendedSummary(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, w := range []types.Work{
		{ExternalID: "a", Abstract: "has abstract"},
		{ExternalID: "b", FullText: "has text"},
		{ExternalID: "c"},
	} {
		w := w
		if err := s.UpsertWork(ctx, &w); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetExtendedSummary(ctx, "b", "long summary"); err != nil {
		t.Fatal(err)
	}

	got, err := s.WorksMissingExtendedSummary(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ExternalID != "a" {
		t.Errorf("got %+v, want only work a", got)
	}
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	createHypothesis(t, s, "in memory works")
}
