// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// duckDuckGoAPIBase is the DuckDuckGo Instant Answer endpoint. Declared as
// a var so tests can substitute an httptest server.
var duckDuckGoAPIBase = "https://api.duckduckgo.com/"

// DuckDuckGoBackend looks up definitions through DuckDuckGo instant answers.
type DuckDuckGoBackend struct {
	HTTPOptions
	MaxArticles int
}

// Name returns the backend identifier.
func (b *DuckDuckGoBackend) Name() string { return "duckduckgo" }

// Search returns the abstract and definition of the instant answer, then
// related topics, up to MaxArticles.
func (b *DuckDuckGoBackend) Search(ctx context.Context, h types.Hypothesis) ([]types.Candidate, error) {
	q := definitionQuery(h)
	if q == "" {
		return nil, fmt.Errorf("empty DuckDuckGo query")
	}

	limit := b.MaxArticles
	if limit <= 0 {
		limit = 3
	}

	params := url.Values{
		"q":             {q},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
		"no_redirect":   {"1"},
		"t":             {"hypothesis-engine"},
	}
	var ia ddgAnswer
	if err := b.getJSON(ctx, "DuckDuckGo", duckDuckGoAPIBase+"?"+params.Encode(), nil, &ia); err != nil {
		return nil, err
	}

	var results []types.Candidate
	add := func(title, text, link, source string) {
		if len(results) >= limit || strings.TrimSpace(text) == "" {
			return
		}
		if title == "" {
			title = q
		}
		c := types.Candidate{
			ID:        "ddg:" + link,
			Title:     title,
			Abstract:  strings.TrimSpace(text),
			URL:       link,
			Publisher: source,
			Source:    "duckduckgo",
		}
		if link == "" {
			c.ID = "ddg:" + title
		}
		c.Citation = APACitation(nil, "", c.Title, source)
		if source != "" && link != "" {
			c.Citation = fmt.Sprintf("%s. (n.d.). %s. %s", c.Title, source, link)
		}
		results = append(results, c)
	}

	add(ia.Heading, ia.AbstractText, ia.AbstractURL, ia.AbstractSource)
	if ia.Definition != "" {
		add(ia.Heading+" (definition)", ia.Definition, ia.DefinitionURL, ia.DefinitionSource)
	}
	for _, t := range flattenTopics(ia.RelatedTopics) {
		title := topicTitle(t)
		add(title, t.Text, t.FirstURL, "DuckDuckGo")
	}
	return results, nil
}

// definitionQuery prefers the named entities, then keywords, then the raw text.
func definitionQuery(h types.Hypothesis) string {
	switch {
	case len(h.Entities) > 0:
		return strings.Join(h.Entities, " ")
	case len(h.Keywords) > 0:
		return strings.Join(h.Keywords, " ")
	default:
		return strings.TrimSpace(h.Content)
	}
}

// flattenTopics expands topic groups into their member topics.
func flattenTopics(topics []ddgTopic) []ddgTopic {
	var out []ddgTopic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			out = append(out, flattenTopics(t.Topics)...)
			continue
		}
		out = append(out, t)
	}
	return out
}

// topicTitle takes the anchor text from the topic's Result markup, which
// names the linked page.
func topicTitle(t ddgTopic) string {
	if t.Result != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(t.Result)); err == nil {
			if title := strings.TrimSpace(doc.Find("a").First().Text()); title != "" {
				return title
			}
		}
	}
	if before, _, ok := strings.Cut(t.Text, " - "); ok {
		return before
	}
	return t.Text
}

// DuckDuckGo Instant Answer JSON structures.
type ddgAnswer struct {
	Heading          string     `json:"Heading"`
	AbstractText     string     `json:"AbstractText"`
	AbstractURL      string     `json:"AbstractURL"`
	AbstractSource   string     `json:"AbstractSource"`
	Definition       string     `json:"Definition"`
	DefinitionURL    string     `json:"DefinitionURL"`
	DefinitionSource string     `json:"DefinitionSource"`
	RelatedTopics    []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Result   string     `json:"Result"`
	Name     string     `json:"Name"`
	Topics   []ddgTopic `json:"Topics"`
}
