// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// coreAPIBase is the CORE works search endpoint. Declared as a var so tests
// can substitute an httptest server.
var coreAPIBase = "https://api.core.ac.uk/v3/search/works"

const coreMaxQueryLength = 80

// CoreBackend queries the CORE aggregator of open access research.
// Rate limiting answers 429 with X-RateLimit-Retry-After, which the
// shared retry honors.
type CoreBackend struct {
	HTTPOptions
	APIKey     string
	MaxResults int
}

// Name returns the backend identifier.
func (b *CoreBackend) Name() string { return "core" }

// Search queries CORE and returns up to MaxResults works with distinct titles.
func (b *CoreBackend) Search(ctx context.Context, h types.Hypothesis) ([]types.Candidate, error) {
	q := buildCoreQuery(h)
	if q == "" {
		return nil, fmt.Errorf("empty CORE query")
	}

	limit := b.MaxResults
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{
		"q":     {q},
		"limit": {strconv.Itoa(limit)},
	}
	header := http.Header{}
	if b.APIKey != "" {
		header.Set("Authorization", "Bearer "+b.APIKey)
	}

	var cr coreResponse
	if err := b.getJSON(ctx, "CORE", coreAPIBase+"?"+params.Encode(), header, &cr); err != nil {
		return nil, err
	}

	used := make(map[string]bool)
	var results []types.Candidate
	for _, work := range cr.Results {
		if work.Title == "" || used[work.Title] {
			continue
		}
		used[work.Title] = true

		c := types.Candidate{
			ID:        "core:" + work.ID.String(),
			Title:     work.Title,
			Abstract:  work.Description,
			FullText:  work.FullText,
			URL:       work.FullTextURL,
			Publisher: work.Publisher,
			Source:    "core",
		}
		if c.Abstract == "" {
			c.Abstract = work.Abstract
		}
		if c.URL == "" {
			c.URL = work.DownloadURL
		}
		for _, a := range work.Authors {
			if a.Name != "" {
				c.Authors = append(c.Authors, a.Name)
			}
		}
		if work.YearPublished > 0 {
			c.Year = strconv.Itoa(work.YearPublished)
		} else {
			c.Year = YearOf(work.PublishedDate)
		}
		c.Citation = APACitation(c.Authors, c.Year, c.Title, c.Publisher)

		results = append(results, c)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// buildCoreQuery joins the hypothesis terms with AND, caps the length, and
// restricts matches to works that carry a description.
func buildCoreQuery(h types.Hypothesis) string {
	q := termsQuery(h, " AND ")
	if q == "" {
		return ""
	}
	if r := []rune(q); len(r) > coreMaxQueryLength {
		q = string(r[:coreMaxQueryLength])
	}
	return q + " AND _exists_:description"
}

// CORE API JSON structures.
type coreResponse struct {
	TotalHits int        `json:"totalHits"`
	Results   []coreWork `json:"results"`
}

type coreWork struct {
	ID            json.Number  `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Abstract      string       `json:"abstract"`
	FullText      string       `json:"fullText"`
	FullTextURL   string       `json:"fullTextUrl"`
	DownloadURL   string       `json:"downloadUrl"`
	Publisher     string       `json:"publisher"`
	YearPublished int          `json:"yearPublished"`
	PublishedDate string       `json:"publishedDate"`
	Authors       []coreAuthor `json:"authors"`
}

type coreAuthor struct {
	Name string `json:"name"`
}
