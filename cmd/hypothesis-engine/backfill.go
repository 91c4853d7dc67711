// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hypothesis-engine/internal/backfill"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Write extended summaries for works that lack one",
	Long: `Backfill makes one pass over the stored academic works without an
extended summary and asks the completion model for an "academic breakdown"
of each. "serve" runs the same pass on backfill.schedule.`,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().Int("batch", 0, "maximum works handled in this pass (default 100)")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	batch, _ := cmd.Flags().GetInt("batch")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	model, err := a.models(cmd.Context())
	if err != nil {
		return err
	}
	b := &backfill.Backfiller{
		Works:    a.store,
		LLM:      model,
		MaxChars: a.cfg.Backfill.MaxChars,
		Batch:    batch,
		Log:      logger,
	}
	st, err := b.RunOnce(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d extended summaries written, %d failed\n", st.Written, st.Failed)
	if st.Failed > 0 {
		return fmt.Errorf("%d work(s) failed", st.Failed)
	}
	return nil
}
