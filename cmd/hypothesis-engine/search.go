// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hypothesis-engine/internal/rank"
	"github.com/pdiddy/hypothesis-engine/internal/search"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the academic sources for a query",
	Long: `Search fans a query out to the enabled academic sources (CORE, OpenAlex,
Semantic Scholar, arXiv) and prints the deduplicated candidates. With --rank
the candidates are scored against the query by embedding similarity.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("query", "", "free-text query or claim")
	searchCmd.Flags().String("keywords", "", "search terms (comma-separated); the query is used when empty")
	searchCmd.Flags().Int("max-results", 0, "per-source result limit (overrides search.max_results)")
	searchCmd.Flags().Bool("rank", false, "score candidates by embedding similarity to the query")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	_ = searchCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	keywords, _ := cmd.Flags().GetString("keywords")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	doRank, _ := cmd.Flags().GetBool("rank")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if maxResults > 0 {
		a.cfg.Search.MaxResults = maxResults
	}

	h := types.Hypothesis{Content: query}
	for _, k := range strings.Split(keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			h.Keywords = append(h.Keywords, k)
		}
	}

	adapters := a.academicAdapters()
	if len(adapters) == 0 {
		return fmt.Errorf("no academic sources enabled")
	}
	out := search.SearchAll(cmd.Context(), h, adapters)

	if doRank && len(out.Candidates) > 0 {
		model, err := a.models(cmd.Context())
		if err != nil {
			return err
		}
		ranked, err := rank.Rank(cmd.Context(), model, query, out.Candidates, 0)
		if err != nil {
			return err
		}
		out.Candidates = ranked
	}

	if jsonOutput {
		return search.FormatJSON(out, os.Stdout)
	}
	search.FormatTable(out, os.Stdout)
	return nil
}
