// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// wikipediaAPIBase is the MediaWiki action API endpoint; "{lang}" is
// replaced by the configured language edition. Declared as a var so tests
// can substitute an httptest server.
var wikipediaAPIBase = "https://{lang}.wikipedia.org/w/api.php"

// WikipediaBackend finds encyclopedia articles for factual claims.
type WikipediaBackend struct {
	HTTPOptions
	Lang        string
	MaxArticles int
}

// Name returns the backend identifier.
func (b *WikipediaBackend) Name() string { return "wikipedia" }

// Search tries, in order, the entities joined with AND, the entities
// joined with OR, then the same two forms over the keywords, and stops at
// the first query that finds anything. Each hit is expanded into its
// article text.
func (b *WikipediaBackend) Search(ctx context.Context, h types.Hypothesis) ([]types.Candidate, error) {
	limit := b.MaxArticles
	if limit <= 0 {
		limit = 3
	}

	var hits []wikiSearchHit
	for _, q := range wikipediaQueries(h) {
		var err error
		hits, err = b.search(ctx, q, limit)
		if err != nil {
			return nil, err
		}
		if len(hits) > 0 {
			break
		}
	}

	var results []types.Candidate
	for _, hit := range hits {
		page, err := b.page(ctx, hit.Title)
		if err != nil {
			return results, err
		}
		if page == nil {
			continue
		}

		c := types.Candidate{
			ID:       "wikipedia:" + strconv.Itoa(page.PageID),
			Title:    page.Title,
			Abstract: leadSection(page.Extract),
			FullText: page.Extract,
			URL:      page.FullURL,
			Source:   "wikipedia",
		}
		if c.Abstract == "" {
			c.Abstract = cleanSnippet(hit.Snippet)
		}
		c.Citation = fmt.Sprintf("%s. (n.d.). In Wikipedia. %s", c.Title, c.URL)

		results = append(results, c)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (b *WikipediaBackend) endpoint() string {
	lang := b.Lang
	if lang == "" {
		lang = "en"
	}
	return strings.ReplaceAll(wikipediaAPIBase, "{lang}", lang)
}

func (b *WikipediaBackend) search(ctx context.Context, query string, limit int) ([]wikiSearchHit, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {strconv.Itoa(limit)},
		"format":   {"json"},
	}
	var resp wikiSearchResponse
	if err := b.getJSON(ctx, "Wikipedia", b.endpoint()+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Query.Search, nil
}

// page fetches the plain-text extract of one article. It returns nil when
// the page does not exist.
func (b *WikipediaBackend) page(ctx context.Context, title string) (*wikiPage, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts|info"},
		"explaintext": {"1"},
		"inprop":      {"url"},
		"redirects":   {"1"},
		"titles":      {title},
		"format":      {"json"},
	}
	var resp wikiPageResponse
	if err := b.getJSON(ctx, "Wikipedia", b.endpoint()+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	for _, p := range resp.Query.Pages {
		if p.Missing != nil || p.PageID == 0 {
			continue
		}
		p := p
		return &p, nil
	}
	return nil, nil
}

// wikipediaQueries lists the search strings to try, most specific first.
func wikipediaQueries(h types.Hypothesis) []string {
	var qs []string
	for _, group := range [][]string{h.Entities, h.Keywords} {
		if len(group) == 0 {
			continue
		}
		qs = append(qs, joinWikiTerms(group, "AND"), joinWikiTerms(group, "OR"))
	}
	return qs
}

// joinWikiTerms quotes multi-word terms and joins them with op.
func joinWikiTerms(terms []string, op string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.Contains(t, " ") {
			t = `"` + t + `"`
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " "+op+" ")
}

// leadSection returns the text before the first section heading.
func leadSection(extract string) string {
	if i := strings.Index(extract, "\n=="); i >= 0 {
		extract = extract[:i]
	}
	return strings.TrimSpace(extract)
}

// cleanSnippet strips the highlight markup MediaWiki puts in search snippets.
func cleanSnippet(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// MediaWiki API JSON structures.
type wikiSearchResponse struct {
	Query struct {
		Search []wikiSearchHit `json:"search"`
	} `json:"query"`
}

type wikiSearchHit struct {
	Title   string `json:"title"`
	PageID  int    `json:"pageid"`
	Snippet string `json:"snippet"`
}

type wikiPageResponse struct {
	Query struct {
		Pages map[string]wikiPage `json:"pages"`
	} `json:"query"`
}

type wikiPage struct {
	PageID  int     `json:"pageid"`
	Title   string  `json:"title"`
	Extract string  `json:"extract"`
	FullURL string  `json:"fullurl"`
	Missing *string `json:"missing"`
}
