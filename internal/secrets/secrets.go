// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files. Each
// file holds one secret: the filename is the key and the trimmed contents are
// the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Key files understood by Apply.
const (
	OpenAIKey          = "openai-api-key"
	AnthropicKey       = "anthropic-api-key"
	GeminiKey          = "gemini-api-key"
	CoreKey            = "core-api-key"
	SemanticScholarKey = "semantic-scholar-api-key"
	OpenAlexEmail      = "openalex-email"
	RedisPassword      = "redis-password"
)

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error. Unreadable files are logged
// and skipped.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Apply fills credentials left empty by the configuration. Configured values
// always win.
func Apply(cfg *types.Config, secrets map[string]string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}
	fill(&cfg.LLM.OpenAIAPIKey, OpenAIKey)
	fill(&cfg.LLM.AnthropicAPIKey, AnthropicKey)
	fill(&cfg.LLM.GeminiAPIKey, GeminiKey)
	fill(&cfg.Search.CoreAPIKey, CoreKey)
	fill(&cfg.Search.SemanticScholarAPIKey, SemanticScholarKey)
	fill(&cfg.Search.OpenAlexEmail, OpenAlexEmail)
	fill(&cfg.Bus.Redis.Password, RedisPassword)
}
