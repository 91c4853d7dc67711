// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"net/http"

	"github.com/pdiddy/hypothesis-engine/internal/httputil"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// options gives each backend its own limiter so a slow source never
// throttles another.
func options(cfg types.SearchConfig, client *http.Client) HTTPOptions {
	return HTTPOptions{
		Client:     client,
		Limiter:    httputil.NewLimiter(cfg.RequestsPerSecond),
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}
}

// AcademicBackends returns the enabled academic sources in a fixed order:
// CORE, OpenAlex, Semantic Scholar, arXiv. Earlier sources win title ties.
func AcademicBackends(cfg types.SearchConfig, client *http.Client) []Backend {
	var backends []Backend
	if cfg.EnableCore {
		backends = append(backends, &CoreBackend{
			HTTPOptions: options(cfg, client),
			APIKey:      cfg.CoreAPIKey,
			MaxResults:  cfg.MaxResults,
		})
	}
	if cfg.EnableOpenAlex {
		backends = append(backends, &OpenAlexBackend{
			HTTPOptions: options(cfg, client),
			Email:       cfg.OpenAlexEmail,
			MaxResults:  cfg.MaxResults,
		})
	}
	if cfg.EnableSemanticScholar {
		backends = append(backends, &SemanticScholarBackend{
			HTTPOptions: options(cfg, client),
			APIKey:      cfg.SemanticScholarAPIKey,
			MaxResults:  cfg.MaxResults,
		})
	}
	if cfg.EnableArxiv {
		backends = append(backends, &ArxivBackend{
			HTTPOptions: options(cfg, client),
			MaxResults:  cfg.MaxResults,
		})
	}
	return backends
}

// NewWikipedia returns the encyclopedic source used for factual claims.
func NewWikipedia(cfg types.SearchConfig, client *http.Client) *WikipediaBackend {
	return &WikipediaBackend{
		HTTPOptions: options(cfg, client),
		Lang:        cfg.WikipediaLang,
		MaxArticles: cfg.MaxArticles,
	}
}

// NewDuckDuckGo returns the web source used for definitional claims.
func NewDuckDuckGo(cfg types.SearchConfig, client *http.Client) *DuckDuckGoBackend {
	return &DuckDuckGoBackend{
		HTTPOptions: options(cfg, client),
		MaxArticles: cfg.MaxArticles,
	}
}
