// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// --- Wikipedia ---

func TestWikipediaQueries(t *testing.T) {
	h := types.Hypothesis{
		Entities: []string{"Eiffel Tower", "Paris"},
		Keywords: []string{"height"},
	}
	assert.Equal(t, []string{
		`"Eiffel Tower" AND Paris`,
		`"Eiffel Tower" OR Paris`,
		"height",
		"height",
	}, wikipediaQueries(h))

	assert.Empty(t, wikipediaQueries(types.Hypothesis{}))
}

func TestWikipediaBackendFallsBackThroughQueries(t *testing.T) {
	var searches []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("list") == "search":
			searches = append(searches, q.Get("srsearch"))
			if q.Get("srsearch") == `"Eiffel Tower" OR Paris` {
				fmt.Fprint(w, `{"query":{"search":[
					{"title":"Eiffel Tower","pageid":1,"snippet":"The <span class=\"searchmatch\">Eiffel</span> Tower"},
					{"title":"Ghost page","pageid":2,"snippet":""}
				]}}`)
				return
			}
			fmt.Fprint(w, `{"query":{"search":[]}}`)
		case q.Get("titles") == "Eiffel Tower":
			fmt.Fprint(w, `{"query":{"pages":{"1":{"pageid":1,"title":"Eiffel Tower",
				"extract":"The Eiffel Tower is a tower in Paris.\n\n== History ==\nBuilt in 1889.",
				"fullurl":"https://en.wikipedia.org/wiki/Eiffel_Tower"}}}}`)
		default:
			fmt.Fprint(w, `{"query":{"pages":{"-1":{"title":"Ghost page","missing":""}}}}`)
		}
	}))
	defer ts.Close()

	old := wikipediaAPIBase
	wikipediaAPIBase = ts.URL
	defer func() { wikipediaAPIBase = old }()

	b := &WikipediaBackend{HTTPOptions: HTTPOptions{Client: ts.Client()}, MaxArticles: 3}
	got, err := b.Search(context.Background(), types.Hypothesis{
		Entities: []string{"Eiffel Tower", "Paris"},
		Keywords: []string{"height"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{`"Eiffel Tower" AND Paris`, `"Eiffel Tower" OR Paris`}, searches)
	require.Len(t, got, 1)
	assert.Equal(t, "wikipedia:1", got[0].ID)
	assert.Equal(t, "The Eiffel Tower is a tower in Paris.", got[0].Abstract)
	assert.Contains(t, got[0].FullText, "Built in 1889.")
	assert.Equal(t, "https://en.wikipedia.org/wiki/Eiffel_Tower", got[0].URL)
	assert.Equal(t, "Eiffel Tower. (n.d.). In Wikipedia. https://en.wikipedia.org/wiki/Eiffel_Tower", got[0].Citation)
}

func TestWikipediaBackendNoTermsFindsNothing(t *testing.T) {
	b := &WikipediaBackend{}
	got, err := b.Search(context.Background(), types.Hypothesis{Content: "no terms"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCleanSnippet(t *testing.T) {
	assert.Equal(t, "The Eiffel Tower is",
		cleanSnippet(`The <span class="searchmatch">Eiffel</span>   Tower is`))
}

func TestLeadSection(t *testing.T) {
	assert.Equal(t, "Intro text.", leadSection("Intro text.\n\n== Body ==\nMore"))
	assert.Equal(t, "No headings", leadSection("No headings"))
}

// --- DuckDuckGo ---

func TestDuckDuckGoBackendSearch(t *testing.T) {
	var gotQ string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQ = r.URL.Query().Get("q")
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		fmt.Fprint(w, `{
			"Heading":"Photosynthesis",
			"AbstractText":"Photosynthesis is a process used by plants.",
			"AbstractURL":"https://en.wikipedia.org/wiki/Photosynthesis",
			"AbstractSource":"Wikipedia",
			"Definition":"",
			"RelatedTopics":[
				{"Text":"Chlorophyll - a green pigment","FirstURL":"https://duckduckgo.com/Chlorophyll","Result":"<a href=\"https://duckduckgo.com/Chlorophyll\">Chlorophyll</a> - a green pigment"},
				{"Name":"Group","Topics":[
					{"Text":"Calvin cycle - light-independent reactions","FirstURL":"https://duckduckgo.com/Calvin_cycle"},
					{"Text":"Beyond the limit","FirstURL":"https://duckduckgo.com/x"}
				]}
			]
		}`)
	}))
	defer ts.Close()

	old := duckDuckGoAPIBase
	duckDuckGoAPIBase = ts.URL
	defer func() { duckDuckGoAPIBase = old }()

	b := &DuckDuckGoBackend{HTTPOptions: HTTPOptions{Client: ts.Client()}, MaxArticles: 3}
	got, err := b.Search(context.Background(), types.Hypothesis{
		Content:  "Photosynthesis converts light into chemical energy",
		Entities: []string{"Photosynthesis"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Photosynthesis", gotQ)
	require.Len(t, got, 3)
	assert.Equal(t, "Photosynthesis", got[0].Title)
	assert.Equal(t, "Photosynthesis. (n.d.). Wikipedia. https://en.wikipedia.org/wiki/Photosynthesis", got[0].Citation)
	assert.Equal(t, "Chlorophyll", got[1].Title)
	assert.Equal(t, "Calvin cycle", got[2].Title)
	assert.Equal(t, "ddg:https://duckduckgo.com/Calvin_cycle", got[2].ID)
}

func TestDefinitionQuery(t *testing.T) {
	assert.Equal(t, "a b", definitionQuery(types.Hypothesis{Entities: []string{"a", "b"}, Keywords: []string{"k"}}))
	assert.Equal(t, "k", definitionQuery(types.Hypothesis{Keywords: []string{"k"}}))
	assert.Equal(t, "raw text", definitionQuery(types.Hypothesis{Content: " raw text "}))
}
