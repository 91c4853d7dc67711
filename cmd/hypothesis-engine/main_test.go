// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults(viper.GetViper(), types.DefaultConfig())
	viper.SetEnvPrefix("HYPOTHESIS_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func TestLoadConfigDefaults(t *testing.T) {
	resetViper(t)
	loadedSecrets = nil

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestLoadConfigEnvironment(t *testing.T) {
	resetViper(t)
	t.Setenv("HYPOTHESIS_ENGINE_PIPELINE_THRESHOLD", "0.35")
	t.Setenv("HYPOTHESIS_ENGINE_BUS_BACKEND", "redis")
	t.Setenv("HYPOTHESIS_ENGINE_LLM_TIMEOUT", "2m")
	t.Setenv("HYPOTHESIS_ENGINE_SEARCH_USER_AGENT", "test-agent")
	loadedSecrets = map[string]string{"core-api-key": "from-secrets"}
	t.Cleanup(func() { loadedSecrets = nil })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.35, cfg.Pipeline.Threshold)
	assert.Equal(t, types.BusRedis, cfg.Bus.Backend)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
	assert.Equal(t, "test-agent", cfg.Search.UserAgent)
	assert.Equal(t, "from-secrets", cfg.Search.CoreAPIKey)
}

func TestOpenBusRejectsUnknownBackend(t *testing.T) {
	_, err := openBus(types.BusConfig{Backend: "kafka"})
	assert.ErrorContains(t, err, "kafka")
}

func TestPrintEvents(t *testing.T) {
	ch := make(chan types.ProgressEvent, 2)
	ch <- types.ProgressEvent{Step: "ExtractingTopics", Title: "Extracting topics", Comment: "Extracted topics: sleep"}
	ch <- types.ProgressEvent{Step: "Finished", Title: "Validation failed", Error: "An error occurred: Timeout", Status: types.StatusFailed}
	close(ch)

	var buf bytes.Buffer
	printEvents(&buf, ch)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Extracting topics: Extracted topics: sleep")
	assert.Contains(t, lines[1], "[An error occurred: Timeout]")
}

func TestFormatReport(t *testing.T) {
	var buf bytes.Buffer
	formatReport(&buf, report{
		Hypothesis: types.Hypothesis{ID: "H1", Content: "Sleep improves memory", Status: types.StatusCompleted, QueryType: types.QueryResearchBased, Topics: []string{"sleep"}},
		Results: []types.ValidationResult{{
			Classification: types.ClassSupported,
			Motivation:     "Walker (2009) supports it.",
			Sources: []types.Source{
				{Index: 1, Citation: "Walker, M. P. (2009). Sleep and memory. Annals.", Relevant: true},
				{Index: 2, Title: "Other"},
			},
		}},
	})
	out := buf.String()
	assert.Contains(t, out, "H1  Sleep improves memory")
	assert.Contains(t, out, "[supported]")
	assert.Contains(t, out, "*[1] Walker, M. P. (2009)")
	assert.Contains(t, out, " [2] Other")
}
