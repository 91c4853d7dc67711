// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a hypothesis and its validation results",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored hypotheses, newest first",
	RunE:  runList,
}

func init() {
	showCmd.Flags().Bool("json", false, "output as JSON")
	showCmd.Flags().Bool("yaml", false, "output as YAML")
	listCmd.Flags().String("user", "", "only hypotheses owned by this user")
	listCmd.Flags().Int("limit", 20, "maximum number of hypotheses")

	rootCmd.AddCommand(showCmd, listCmd)
}

// report is the machine-readable form of show.
type report struct {
	Hypothesis types.Hypothesis         `json:"hypothesis" yaml:"hypothesis"`
	Results    []types.ValidationResult `json:"results" yaml:"results"`
}

func runShow(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	yamlOutput, _ := cmd.Flags().GetBool("yaml")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	h, err := a.store.GetHypothesis(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	results, err := a.store.ListResults(cmd.Context(), h.ID)
	if err != nil {
		return err
	}
	r := report{Hypothesis: h, Results: results}

	w := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case yamlOutput:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(r)
	}
	formatReport(w, r)
	return nil
}

func formatReport(w io.Writer, r report) {
	h := r.Hypothesis
	fmt.Fprintf(w, "%s  %s\n", h.ID, h.Content)
	fmt.Fprintf(w, "  status:     %s\n", h.Status)
	fmt.Fprintf(w, "  query type: %s\n", h.QueryType)
	if len(h.Topics) > 0 {
		fmt.Fprintf(w, "  topics:     %s\n", strings.Join(h.Topics, ", "))
	}
	if h.Result != "" {
		fmt.Fprintf(w, "\n%s\n", h.Result)
	}
	for _, res := range r.Results {
		fmt.Fprintf(w, "\n[%s] %s\n", res.Classification, res.CreatedAt.Local().Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "%s\n", res.Motivation)
		for _, s := range res.Sources {
			mark := " "
			if s.Relevant {
				mark = "*"
			}
			fmt.Fprintf(w, "  %s[%d] %s\n", mark, s.Index, firstNonEmpty(s.Citation, s.Title))
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func runList(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	hs, err := a.store.ListHypotheses(cmd.Context(), user, limit)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(hs) == 0 {
		fmt.Fprintln(w, "No hypotheses found.")
		return nil
	}
	fmt.Fprintf(w, "%-38s  %-20s  %-14s  %s\n", "ID", "Status", "Query type", "Content")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, h := range hs {
		content := h.Content
		if r := []rune(content); len(r) > 30 {
			content = string(r[:27]) + "..."
		}
		fmt.Fprintf(w, "%-38s  %-20s  %-14s  %s\n", h.ID, h.Status, h.QueryType, content)
	}
	return nil
}
