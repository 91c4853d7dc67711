// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "hypothesis-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the source search adapters.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the per-adapter result limit (default 5 for academic sources).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// MaxArticles is the encyclopedic/web article limit (default 3).
	MaxArticles int `json:"max_articles" yaml:"max_articles" mapstructure:"max_articles"`

	EnableCore            bool `json:"enable_core" yaml:"enable_core" mapstructure:"enable_core"`
	EnableOpenAlex        bool `json:"enable_openalex" yaml:"enable_openalex" mapstructure:"enable_openalex"`
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`
	EnableArxiv           bool `json:"enable_arxiv" yaml:"enable_arxiv" mapstructure:"enable_arxiv"`

	// CoreAPIKey authenticates against the CORE API.
	CoreAPIKey string `json:"core_api_key,omitempty" yaml:"core_api_key,omitempty" mapstructure:"core_api_key"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// OpenAlexEmail is sent as mailto for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// WikipediaLang selects the Wikipedia language edition (default "en").
	WikipediaLang string `json:"wikipedia_lang" yaml:"wikipedia_lang" mapstructure:"wikipedia_lang"`

	// RequestsPerSecond throttles each adapter independently (default 1).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// MaxRetries bounds HTTP 429/5xx retries per request (default 3). Zero
	// selects the default; a negative value sends each request once.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// Provider names accepted by LLMConfig.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// LLMConfig holds settings for the text/embedding capability.
type LLMConfig struct {
	// Completion selects the text completion provider: openai, anthropic, or gemini.
	Completion string `json:"completion" yaml:"completion" mapstructure:"completion"`

	// Embedding selects the embedding provider: openai or gemini.
	Embedding string `json:"embedding" yaml:"embedding" mapstructure:"embedding"`

	// Model is the completion model identifier (e.g. "gpt-4o").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// EmbeddingModel is the embedding model identifier (e.g. "text-embedding-3-large").
	EmbeddingModel string `json:"embedding_model" yaml:"embedding_model" mapstructure:"embedding_model"`

	OpenAIAPIKey    string `json:"openai_api_key,omitempty" yaml:"openai_api_key,omitempty" mapstructure:"openai_api_key"`
	OpenAIBaseURL   string `json:"openai_base_url,omitempty" yaml:"openai_base_url,omitempty" mapstructure:"openai_base_url"`
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty" yaml:"anthropic_api_key,omitempty" mapstructure:"anthropic_api_key"`
	GeminiAPIKey    string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty" mapstructure:"gemini_api_key"`

	// MaxRetries is the number of retry attempts for transient failures
	// (default 3). Zero selects the default; a negative value disables retries.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// BackoffBase is the first retry delay; it doubles per attempt (default 1s).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base" mapstructure:"backoff_base"`

	// Timeout bounds a single model call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// Bus backends accepted by BusConfig.
const (
	BusMemory = "memory"
	BusRedis  = "redis"
)

// RedisConfig holds the Redis connection settings for the progress bus.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`
}

// BusConfig selects and configures the progress bus.
type BusConfig struct {
	Backend string      `json:"backend" yaml:"backend" mapstructure:"backend"`
	Channel string      `json:"channel" yaml:"channel" mapstructure:"channel"`
	Redis   RedisConfig `json:"redis" yaml:"redis" mapstructure:"redis"`
}

// StoreConfig holds settings for the SQLite store.
type StoreConfig struct {
	// Path is the database file (default "data/hypothesis.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// PipelineConfig holds the tunables of the validation workflows.
type PipelineConfig struct {
	// TopN is how many ranked candidates are kept (default 10).
	TopN int `json:"top_n" yaml:"top_n" mapstructure:"top_n"`

	// Threshold is the similarity a candidate must exceed (default 0.2).
	// Zero selects the default; a negative value keeps every candidate that
	// received a score.
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`

	// MaxSources caps candidates passed to summarization (default 6).
	MaxSources int `json:"max_sources" yaml:"max_sources" mapstructure:"max_sources"`

	// SummaryWorkers bounds concurrent summarization calls (default 4).
	SummaryWorkers int `json:"summary_workers" yaml:"summary_workers" mapstructure:"summary_workers"`

	// DebugDir, when set, receives a YAML dump of ranked candidates per run.
	DebugDir string `json:"debug_dir,omitempty" yaml:"debug_dir,omitempty" mapstructure:"debug_dir"`
}

// WorkerConfig configures the background executor.
type WorkerConfig struct {
	// Concurrency is the number of pipelines that may run at once (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// BackfillConfig configures the extended-summary backfill job.
type BackfillConfig struct {
	// Schedule is a cron spec; empty disables the job.
	Schedule string `json:"schedule" yaml:"schedule" mapstructure:"schedule"`

	// MaxChars truncates the text sent for an extended summary (default 5000).
	MaxChars int `json:"max_chars" yaml:"max_chars" mapstructure:"max_chars"`
}

// Config groups all component configurations.
type Config struct {
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Bus      BusConfig      `json:"bus" yaml:"bus" mapstructure:"bus"`
	LLM      LLMConfig      `json:"llm" yaml:"llm" mapstructure:"llm"`
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Worker   WorkerConfig   `json:"worker" yaml:"worker" mapstructure:"worker"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	Backfill BackfillConfig `json:"backfill" yaml:"backfill" mapstructure:"backfill"`
}

// DefaultConfig returns the configuration used when no file or flag overrides a value.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{Path: "data/hypothesis.db"},
		Bus: BusConfig{
			Backend: BusMemory,
			Channel: "pipeline_updates",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		LLM: LLMConfig{
			Completion:     ProviderOpenAI,
			Embedding:      ProviderOpenAI,
			Model:          "gpt-4o",
			EmbeddingModel: "text-embedding-3-large",
			MaxRetries:     3,
			BackoffBase:    time.Second,
			Timeout:        90 * time.Second,
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "hypothesis-engine/0.1",
			},
			MaxResults:            5,
			MaxArticles:           3,
			EnableCore:            true,
			EnableOpenAlex:        true,
			EnableSemanticScholar: true,
			EnableArxiv:           true,
			WikipediaLang:         "en",
			RequestsPerSecond:     1,
			MaxRetries:            3,
		},
		Pipeline: PipelineConfig{
			TopN:           10,
			Threshold:      0.2,
			MaxSources:     6,
			SummaryWorkers: 4,
		},
		Worker:   WorkerConfig{Concurrency: 4},
		Server:   ServerConfig{Addr: ":8080"},
		Backfill: BackfillConfig{MaxChars: 5000},
	}
}
