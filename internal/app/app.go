package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/interfaces"
	"github.com/ternarybob/webflux/internal/services/cache"
	"github.com/ternarybob/webflux/internal/services/chunker"
	"github.com/ternarybob/webflux/internal/services/crawler"
	"github.com/ternarybob/webflux/internal/services/events"
	"github.com/ternarybob/webflux/internal/services/llm"
	"github.com/ternarybob/webflux/internal/services/policy"
	"github.com/ternarybob/webflux/internal/services/progress"
	"github.com/ternarybob/webflux/internal/services/ratelimit"
	"github.com/ternarybob/webflux/internal/services/reconstruct"
	"github.com/ternarybob/webflux/internal/services/tokens"
	"github.com/ternarybob/webflux/internal/storage/badger"
)

// App owns the wired service graph for one process. Construction order
// matters: storage first, then the LLM backends, then the pipeline
// services that depend on both.
type App struct {
	Config   *common.Config
	Logger   arbor.ILogger
	Events   *events.Service
	Progress *progress.Manager
	Policy   *policy.Service
	Limiter  *ratelimit.Limiter
	Tokens   *tokens.Counter
	Chunker  *chunker.Service
	Crawler  *crawler.Service
	Storage  *badger.ChunkStorage // Nil unless storage is enabled

	capabilities llm.Capabilities
	db           *badger.BadgerDB
	kv           interfaces.KeyValueCache
}

// New wires the application from configuration
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Events:   events.NewService(logger),
		Progress: progress.NewManager(0, logger),
	}

	if cfg.Storage.Enabled {
		db, err := badger.NewBadgerDB(cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.db = db
		a.kv = badger.NewKVCache(db, logger)
		a.Storage = badger.NewChunkStorage(db, logger)
	} else {
		a.kv = cache.NewMemoryCache()
	}

	capabilities, err := llm.Resolve(ctx, cfg.LLM, logger)
	if err != nil {
		a.closePartial()
		return nil, fmt.Errorf("resolve llm provider: %w", err)
	}
	a.capabilities = capabilities

	a.Policy = policy.NewService(cfg.Policy, cfg.Crawler.UserAgent, a.kv, logger)
	a.Limiter = ratelimit.NewLimiter(cfg.Crawler.DefaultCrawlDelay, cfg.Crawler.VisitTimeSkip, logger)
	a.Tokens = tokens.NewCounter(cfg.Tokens)
	a.Chunker = chunker.NewService(cfg.Chunking, capabilities.Embedding, a.Tokens, logger)

	factory := reconstruct.NewFactory(capabilities.Completion, a.Tokens, cfg.Reconstruct.UseLLM, logger)

	var sink crawler.ChunkSink
	if a.Storage != nil {
		sink = a.Storage
	}
	a.Crawler = crawler.NewService(cfg, a.Policy, a.Limiter, factory, a.Chunker, a.Progress, a.Events, sink, logger)

	logger.Info().
		Str("provider", cfg.LLM.Provider).
		Bool("storage", cfg.Storage.Enabled).
		Int("workers", cfg.Crawler.WorkerCount).
		Msg("Application wired")

	return a, nil
}

// Close releases the service graph in reverse dependency order
func (a *App) Close() {
	a.Progress.Close()
	if err := a.Events.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close event service")
	}
	a.closePartial()
}

func (a *App) closePartial() {
	if err := a.capabilities.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close llm backends")
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close kv cache")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}
