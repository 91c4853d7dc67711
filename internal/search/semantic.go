// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,publicationDate,venue,url"

// SemanticScholarBackend queries the Semantic Scholar API.
type SemanticScholarBackend struct {
	HTTPOptions
	APIKey     string
	MaxResults int
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return "semantic_scholar" }

// Search queries the Semantic Scholar API and returns results.
func (b *SemanticScholarBackend) Search(ctx context.Context, h types.Hypothesis) ([]types.Candidate, error) {
	q := termsQuery(h, " ")
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	maxResults := b.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(maxResults)},
		"fields": {semanticFields},
	}

	header := http.Header{}
	if b.APIKey != "" {
		header.Set("x-api-key", b.APIKey)
	}

	var sr semanticResponse
	if err := b.getJSON(ctx, "Semantic Scholar", semanticAPIBase+"?"+params.Encode(), header, &sr); err != nil {
		return nil, err
	}

	var results []types.Candidate
	for _, paper := range sr.Data {
		c := types.Candidate{
			ID:        "s2:" + paper.PaperID,
			Title:     paper.Title,
			Abstract:  paper.Abstract,
			URL:       paper.URL,
			Publisher: paper.Venue,
			Source:    "semantic_scholar",
		}

		for _, a := range paper.Authors {
			c.Authors = append(c.Authors, a.Name)
		}

		if paper.Year > 0 {
			c.Year = strconv.Itoa(paper.Year)
		} else {
			c.Year = YearOf(paper.PublicationDate)
		}

		if c.URL == "" && paper.ExternalIDs.DOI != "" {
			c.URL = "https://doi.org/" + paper.ExternalIDs.DOI
		}
		c.Citation = APACitation(c.Authors, c.Year, c.Title, c.Publisher)

		results = append(results, c)
	}
	return results, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	Venue           string              `json:"venue"`
	URL             string              `json:"url"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
