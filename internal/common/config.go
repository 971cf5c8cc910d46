package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig     `toml:"logging"`
	Crawler     CrawlerConfig     `toml:"crawler"`
	Policy      PolicyConfig      `toml:"policy"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Reconstruct ReconstructConfig `toml:"reconstruct"`
	Tokens      TokensConfig      `toml:"tokens"`
	LLM         LLMConfig         `toml:"llm"`
	Storage     StorageConfig     `toml:"storage"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// CrawlerConfig controls the crawl orchestrator and fetcher
type CrawlerConfig struct {
	UserAgent         string        `toml:"user_agent"`
	WorkerCount       int           `toml:"worker_count" validate:"min=1"`
	MaxDepth          int           `toml:"max_depth"`
	MaxURLs           int           `toml:"max_urls"`
	SameOriginOnly    bool          `toml:"same_origin_only"`
	AllowPatterns     []string      `toml:"allow_patterns"`
	DenyPatterns      []string      `toml:"deny_patterns"`
	FetchTimeout      time.Duration `toml:"fetch_timeout"`
	JobTimeout        time.Duration `toml:"job_timeout"` // Zero disables the wall clock
	DefaultCrawlDelay time.Duration `toml:"default_crawl_delay"`
	MaxRetries        int           `toml:"max_retries" validate:"min=1,max=10"`
	RetryBackoff      time.Duration `toml:"retry_backoff"`
	MaxBodySize       int64         `toml:"max_body_size"`
	FollowSitemaps    bool          `toml:"follow_sitemaps"`
	VisitTimeSkip     bool          `toml:"visit_time_skip"` // Skip instead of defer outside visit-time windows
	SettleGrace       time.Duration `toml:"settle_grace"`    // Pipeline drain budget after cancellation
}

// PolicyConfig controls robots/manifest/sitemap caching
type PolicyConfig struct {
	TTL            time.Duration `toml:"ttl"`
	FetchManifest  bool          `toml:"fetch_manifest"`
	FetchSitemaps  bool          `toml:"fetch_sitemaps"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// ChunkingConfig controls the chunking stage
type ChunkingConfig struct {
	Strategy     string `toml:"strategy"` // "auto" or a registered strategy name
	MaxChunkSize int    `toml:"max_chunk_size" validate:"min=50"`
	MinChunkSize int    `toml:"min_chunk_size"`
	Overlap      int    `toml:"overlap"`
	StreamingMin int    `toml:"streaming_min"` // Input length that switches to memory-optimized
}

// ReconstructConfig controls the optional reconstruct stage
type ReconstructConfig struct {
	Strategy string `toml:"strategy"` // "auto", "none", "summarize", "expand", "rewrite", "enrich"
	UseLLM   bool   `toml:"use_llm"`
	Model    string `toml:"model"`
}

// TokensConfig controls the token counter
type TokensConfig struct {
	CacheSize    int    `toml:"cache_size" validate:"min=0"`
	DefaultModel string `toml:"default_model"`
}

// LLMConfig selects and configures completion/embedding backends
type LLMConfig struct {
	Provider string       `toml:"provider"` // "claude", "gemini", "mock" or "" for none
	Claude   ClaudeConfig `toml:"claude"`
	Gemini   GeminiConfig `toml:"gemini"`
}

type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

type GeminiConfig struct {
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	EmbedModel string `toml:"embed_model"`
}

// StorageConfig controls the optional Badger chunk sink
type StorageConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// DefaultConfig returns the configuration defaults applied before any
// file or environment override
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Crawler: CrawlerConfig{
			UserAgent:         "webflux/" + Version,
			WorkerCount:       4,
			MaxDepth:          3,
			MaxURLs:           500,
			SameOriginOnly:    true,
			FetchTimeout:      30 * time.Second,
			DefaultCrawlDelay: 500 * time.Millisecond,
			MaxRetries:        5,
			RetryBackoff:      500 * time.Millisecond,
			MaxBodySize:       10 * 1024 * 1024,
			FollowSitemaps:    true,
			SettleGrace:       5 * time.Second,
		},
		Policy: PolicyConfig{
			TTL:            4 * time.Hour,
			FetchManifest:  true,
			FetchSitemaps:  true,
			RequestTimeout: 10 * time.Second,
		},
		Chunking: ChunkingConfig{
			Strategy:     "auto",
			MaxChunkSize: 2000,
			MinChunkSize: 100,
			Overlap:      200,
			StreamingMin: 500_000,
		},
		Reconstruct: ReconstructConfig{
			Strategy: "auto",
			UseLLM:   false,
		},
		Tokens: TokensConfig{
			CacheSize:    10_000,
			DefaultModel: "gpt-4",
		},
		LLM: LLMConfig{
			Claude: ClaudeConfig{
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: 4096,
			},
			Gemini: GeminiConfig{
				Model:      "gemini-2.0-flash",
				EmbedModel: "text-embedding-004",
			},
		},
		Storage: StorageConfig{
			Path: "./data/chunks",
		},
	}
}

// LoadConfig loads configuration from defaults, an optional TOML file,
// then environment variable overrides, and validates the result
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks structural constraints on the configuration
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Chunking.MinChunkSize >= c.Chunking.MaxChunkSize {
		return fmt.Errorf("invalid configuration: min_chunk_size %d must be below max_chunk_size %d",
			c.Chunking.MinChunkSize, c.Chunking.MaxChunkSize)
	}
	if c.Chunking.Overlap >= c.Chunking.MaxChunkSize {
		return fmt.Errorf("invalid configuration: overlap %d must be below max_chunk_size %d",
			c.Chunking.Overlap, c.Chunking.MaxChunkSize)
	}
	return nil
}

// applyEnvOverrides applies WEBFLUX_* environment variables on top of
// file configuration. Secrets are expected to arrive this way.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WEBFLUX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WEBFLUX_USER_AGENT"); v != "" {
		cfg.Crawler.UserAgent = v
	}
	if v := os.Getenv("WEBFLUX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Crawler.WorkerCount = n
		}
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.Gemini.APIKey = v
	}
}
