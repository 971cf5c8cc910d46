package chunker

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/interfaces"
	"github.com/ternarybob/webflux/internal/models"
)

// Service is the chunking facade used by the pipeline: it resolves the
// configured strategy (running the selector for "auto"), switches to
// streaming for oversized inputs, and guarantees dense sequence
// numbers on the result.
type Service struct {
	config   common.ChunkingConfig
	selector *Selector
	semantic *SemanticStrategy
	counter  interfaces.TokenCounter
	logger   arbor.ILogger
}

func NewService(config common.ChunkingConfig, embedder interfaces.EmbeddingService, counter interfaces.TokenCounter, logger arbor.ILogger) *Service {
	return &Service{
		config:   config,
		selector: NewSelector(),
		semantic: NewSemanticStrategy(embedder, 0),
		counter:  counter,
		logger:   logger,
	}
}

// Selector exposes the strategy selector for performance feedback
func (s *Service) Selector() *Selector { return s.selector }

// Chunk splits the content with the configured or selected strategy
func (s *Service) Chunk(ctx context.Context, content *models.ExtractedContent) ([]models.Chunk, error) {
	opts := DefaultOptions(s.config)

	name := strings.ToLower(s.config.Strategy)
	if s.config.StreamingMin > 0 && len(content.MainText) > s.config.StreamingMin {
		name = StrategyMemoryOptimized
	} else if name == "" || name == StrategyAuto {
		tokenCount := 0
		if s.counter != nil {
			tokenCount = s.counter.CountTokens(content.MainText, "gpt-4")
		}
		rec := s.selector.Select(Profile(content, tokenCount))
		name = rec.Strategy
		s.logger.Debug().
			Str("url", content.SourceURL).
			Str("strategy", name).
			Float64("confidence", rec.Confidence).
			Msg("Selected chunking strategy")
	}

	strategy, err := ResolveStrategy(name, s.semantic)
	if err != nil {
		return nil, err
	}

	chunks, err := strategy.Chunk(ctx, content, opts)
	if err != nil {
		return nil, err
	}
	return resequence(chunks), nil
}
