// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hypothesis-engine/internal/progress"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

const drainTimeout = 5 * time.Second

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Create a hypothesis and validate it, printing progress",
	Long: `Submit stores a new hypothesis and runs its validation in this process,
printing each progress event as it is published. With --detach the
hypothesis is only stored; a running "serve" or a later "validate" picks
it up.`,
	RunE: runSubmit,
}

var validateCmd = &cobra.Command{
	Use:   "validate <id>",
	Short: "Validate a stored hypothesis, printing progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return validateAndPrint(cmd.Context(), a, args[0], cmd.OutOrStdout())
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Print progress events for a hypothesis until it finishes",
	Long: `Watch subscribes to the progress bus and prints the events of one
hypothesis until its terminal event. Use it with the redis bus to follow a
run executing in another process.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ch, err := progress.Watch(cmd.Context(), a.bus, args[0])
		if err != nil {
			return err
		}
		printEvents(cmd.OutOrStdout(), ch)
		return nil
	},
}

func init() {
	submitCmd.Flags().String("content", "", "claim to validate (3-500 characters)")
	submitCmd.Flags().String("user", "cli", "owner recorded on the hypothesis")
	submitCmd.Flags().Bool("detach", false, "store the hypothesis without running it")
	_ = submitCmd.MarkFlagRequired("content")

	rootCmd.AddCommand(submitCmd, validateCmd, watchCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	content, _ := cmd.Flags().GetString("content")
	user, _ := cmd.Flags().GetString("user")
	detach, _ := cmd.Flags().GetBool("detach")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	h := types.Hypothesis{UserID: user, Content: content}
	if err := a.store.CreateHypothesis(cmd.Context(), &h); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created hypothesis %s\n", h.ID)
	if detach {
		return nil
	}
	return validateAndPrint(cmd.Context(), a, h.ID, cmd.OutOrStdout())
}

// validateAndPrint runs the pipeline in this process while a watcher prints
// its events.
func validateAndPrint(ctx context.Context, a *app, id string, w io.Writer) error {
	mgr, err := a.manager(ctx)
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := progress.Watch(watchCtx, a.bus, id)
	if err != nil {
		return err
	}
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printEvents(w, ch)
	}()

	runErr := mgr.Run(ctx, id)
	if runErr != nil {
		cancel()
	}
	// The terminal event may trail the run on a remote bus; stop waiting if
	// it was lost.
	select {
	case <-printed:
	case <-time.After(drainTimeout):
		cancel()
		<-printed
	}
	if runErr != nil {
		return runErr
	}

	h, err := a.store.GetHypothesis(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Hypothesis %s finished: %s\n", h.ID, h.Status)
	if h.Status == types.StatusFailed {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func printEvents(w io.Writer, ch <-chan types.ProgressEvent) {
	for ev := range ch {
		line := fmt.Sprintf("%s  %-26s %s", ev.Time.Local().Format("15:04:05"), ev.Step, ev.Title)
		if ev.Comment != "" {
			line += ": " + ev.Comment
		}
		if ev.Error != "" {
			line += " [" + ev.Error + "]"
		}
		fmt.Fprintln(w, line)
	}
}
