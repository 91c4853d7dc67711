// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Candidate is a piece of retrieved evidence (paper, article, page) being
// evaluated against a hypothesis. It lives for one pipeline run.
type Candidate struct {
	// ID is the external identifier assigned by the source (CORE id, DOI,
	// arXiv ID, page URL).
	ID string `json:"id" yaml:"id"`

	Title    string   `json:"title" yaml:"title"`
	Abstract string   `json:"abstract" yaml:"abstract"`
	FullText string   `json:"full_text,omitempty" yaml:"full_text,omitempty"`
	URL      string   `json:"url,omitempty" yaml:"url,omitempty"`
	Authors  []string `json:"authors" yaml:"authors"`

	// Year is the publication year as text ("2021"), or empty when unknown.
	Year      string `json:"year,omitempty" yaml:"year,omitempty"`
	Publisher string `json:"publisher,omitempty" yaml:"publisher,omitempty"`

	// Citation is an APA-style reference string.
	Citation string `json:"citation" yaml:"citation"`

	// Source identifies which adapter found this candidate (e.g. "core", "arxiv").
	Source string `json:"source" yaml:"source"`

	// Similarity is the cosine similarity to the hypothesis, set by the ranker.
	Similarity float64 `json:"similarity" yaml:"similarity"`

	// Summary, Phrase, and SummaryTopics are set by the summarizer.
	Summary       string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Phrase        string   `json:"phrase,omitempty" yaml:"phrase,omitempty"`
	SummaryTopics []string `json:"summary_topics,omitempty" yaml:"summary_topics,omitempty"`
}

// RankText is the text embedded for similarity ranking.
func (c Candidate) RankText() string {
	switch {
	case c.Title == "" && c.Abstract == "":
		return ""
	case c.Abstract == "":
		return c.Title
	default:
		return c.Title + "\n" + c.Abstract
	}
}

// Work is the persisted record of an academic candidate. Its summary fields
// cache the summarizer's output across runs, keyed by ExternalID.
type Work struct {
	ID         string   `json:"id" yaml:"id"`
	ExternalID string   `json:"external_id" yaml:"external_id"`
	Source     string   `json:"source" yaml:"source"`
	Title      string   `json:"title" yaml:"title"`
	Abstract   string   `json:"abstract" yaml:"abstract"`
	FullText   string   `json:"full_text,omitempty" yaml:"full_text,omitempty"`
	Authors    []string `json:"authors" yaml:"authors"`
	Citation   string   `json:"citation" yaml:"citation"`
	URL        string   `json:"url,omitempty" yaml:"url,omitempty"`

	Summary         string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Phrase          string   `json:"phrase,omitempty" yaml:"phrase,omitempty"`
	SummaryTopics   []string `json:"summary_topics,omitempty" yaml:"summary_topics,omitempty"`
	ExtendedSummary string   `json:"extended_summary,omitempty" yaml:"extended_summary,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// HasSummary reports whether all cached summary parts are present.
func (w Work) HasSummary() bool {
	return w.Summary != "" && w.Phrase != "" && len(w.SummaryTopics) > 0
}

// WorkFromCandidate builds the persisted form of a candidate.
func WorkFromCandidate(c Candidate) Work {
	return Work{
		ExternalID: c.ID,
		Source:     c.Source,
		Title:      c.Title,
		Abstract:   c.Abstract,
		FullText:   c.FullText,
		Authors:    c.Authors,
		Citation:   c.Citation,
		URL:        c.URL,
	}
}
