// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the hypothesis-engine CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/hypothesis-engine/internal/secrets"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is configured from --log-level and --log-json before any command runs.
var logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the hypothesis-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "hypothesis-engine",
	Short: "Validate claims against academic, encyclopedic, and web evidence",
	Long: `hypothesis-engine classifies a free-text claim, gathers evidence from the
sources that suit it, and has a language model judge the claim against that
evidence. Progress is published step by step while a run executes.

Run "serve" for the HTTP API and background workers, or use submit, validate,
watch, and show from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogger(cmd); err != nil {
			return err
		}
		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./hypothesis-engine.yaml or ~/.config/hypothesis-engine/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit logs as JSON instead of console text")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides store.path)")
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("hypothesis-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "hypothesis-engine"))
		}
	}

	setDefaults(viper.GetViper(), types.DefaultConfig())
	viper.SetEnvPrefix("HYPOTHESIS_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setupLogger(cmd *cobra.Command) error {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", levelName, err)
	}
	asJSON, _ := cmd.Flags().GetBool("log-json")
	if asJSON {
		logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
		return nil
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

// setDefaults registers every configuration key so that environment
// variables reach viper.Unmarshal.
func setDefaults(v *viper.Viper, d types.Config) {
	defaults := map[string]any{
		"store.path": d.Store.Path,

		"bus.backend":        d.Bus.Backend,
		"bus.channel":        d.Bus.Channel,
		"bus.redis.addr":     d.Bus.Redis.Addr,
		"bus.redis.password": d.Bus.Redis.Password,
		"bus.redis.db":       d.Bus.Redis.DB,

		"llm.completion":        d.LLM.Completion,
		"llm.embedding":         d.LLM.Embedding,
		"llm.model":             d.LLM.Model,
		"llm.embedding_model":   d.LLM.EmbeddingModel,
		"llm.openai_api_key":    d.LLM.OpenAIAPIKey,
		"llm.openai_base_url":   d.LLM.OpenAIBaseURL,
		"llm.anthropic_api_key": d.LLM.AnthropicAPIKey,
		"llm.gemini_api_key":    d.LLM.GeminiAPIKey,
		"llm.max_retries":       d.LLM.MaxRetries,
		"llm.backoff_base":      d.LLM.BackoffBase,
		"llm.timeout":           d.LLM.Timeout,

		"search.timeout":                  d.Search.Timeout,
		"search.user_agent":               d.Search.UserAgent,
		"search.max_results":              d.Search.MaxResults,
		"search.max_articles":             d.Search.MaxArticles,
		"search.enable_core":              d.Search.EnableCore,
		"search.enable_openalex":          d.Search.EnableOpenAlex,
		"search.enable_semantic_scholar":  d.Search.EnableSemanticScholar,
		"search.enable_arxiv":             d.Search.EnableArxiv,
		"search.core_api_key":             d.Search.CoreAPIKey,
		"search.semantic_scholar_api_key": d.Search.SemanticScholarAPIKey,
		"search.openalex_email":           d.Search.OpenAlexEmail,
		"search.wikipedia_lang":           d.Search.WikipediaLang,
		"search.requests_per_second":      d.Search.RequestsPerSecond,
		"search.max_retries":              d.Search.MaxRetries,

		"pipeline.top_n":           d.Pipeline.TopN,
		"pipeline.threshold":       d.Pipeline.Threshold,
		"pipeline.max_sources":     d.Pipeline.MaxSources,
		"pipeline.summary_workers": d.Pipeline.SummaryWorkers,
		"pipeline.debug_dir":       d.Pipeline.DebugDir,

		"worker.concurrency": d.Worker.Concurrency,
		"server.addr":        d.Server.Addr,

		"backfill.schedule":  d.Backfill.Schedule,
		"backfill.max_chars": d.Backfill.MaxChars,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// loadConfig decodes the merged configuration and fills credentials from
// .secrets/ where the configuration leaves them empty.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	secrets.Apply(&cfg, loadedSecrets)
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
