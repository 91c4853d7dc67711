// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/hypothesis-engine/internal/backfill"
	"github.com/pdiddy/hypothesis-engine/internal/server"
	"github.com/pdiddy/hypothesis-engine/internal/worker"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, background workers, and backfill schedule",
	Long: `Serve exposes hypotheses and their progress over HTTP, runs submitted
validations on a bounded pool of background workers, and, when
backfill.schedule is set, writes extended summaries on that cron schedule.
Prometheus metrics are served at /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().Int("concurrency", 0, "concurrent validations (overrides worker.concurrency)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("worker.concurrency", serveCmd.Flags().Lookup("concurrency"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	mgr, err := a.manager(ctx)
	if err != nil {
		return err
	}
	exec := worker.New(mgr.Run, a.cfg.Worker.Concurrency, logger.With().Str("component", "worker").Logger())
	exec.OnCoalesce = a.recorder.ObserveCoalesced

	var sched *backfill.Scheduler
	if spec := a.cfg.Backfill.Schedule; spec != "" {
		model, err := a.models(ctx)
		if err != nil {
			return err
		}
		sched, err = backfill.Schedule(spec, &backfill.Backfiller{
			Works:    a.store,
			LLM:      model,
			MaxChars: a.cfg.Backfill.MaxChars,
			Log:      logger.With().Str("component", "backfill").Logger(),
		})
		if err != nil {
			return err
		}
		sched.Start()
		logger.Info().Str("schedule", spec).Msg("backfill scheduled")
	}

	srv := server.New(a.cfg.Server, a.store, a.bus, exec, a.registry, logger.With().Str("component", "server").Logger())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err = <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn().Err(serr).Msg("HTTP shutdown")
	}
	if sched != nil {
		sched.Stop()
	}
	if serr := exec.Shutdown(shutdownCtx); serr != nil {
		logger.Warn().Err(serr).Int("pending", exec.Pending()).Msg("validations still running at exit")
	}
	return err
}
