package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/interfaces"
)

// Capabilities bundles the optional LLM-backed capabilities resolved
// from configuration. Either field may be nil; consumers degrade
// gracefully.
type Capabilities struct {
	Completion interfaces.CompletionService
	Embedding  interfaces.EmbeddingService
}

// Resolve builds the configured provider. An empty provider name means
// no LLM capabilities at all, which is a fully supported mode.
func Resolve(ctx context.Context, config common.LLMConfig, logger arbor.ILogger) (Capabilities, error) {
	switch strings.ToLower(config.Provider) {
	case "":
		return Capabilities{}, nil

	case "claude":
		claude, err := NewClaudeService(config.Claude, logger)
		if err != nil {
			return Capabilities{}, err
		}
		// Claude has no embedding endpoint; Gemini supplies embeddings
		// when its key is also present
		caps := Capabilities{Completion: claude}
		if config.Gemini.APIKey != "" {
			gemini, err := NewGeminiService(ctx, config.Gemini, logger)
			if err != nil {
				logger.Warn().Err(err).Msg("Gemini embedding backend unavailable")
			} else {
				caps.Embedding = gemini
			}
		}
		return caps, nil

	case "gemini":
		gemini, err := NewGeminiService(ctx, config.Gemini, logger)
		if err != nil {
			return Capabilities{}, err
		}
		return Capabilities{Completion: gemini, Embedding: gemini}, nil

	case "mock":
		mock := NewMockService()
		return Capabilities{Completion: mock, Embedding: mock}, nil

	default:
		return Capabilities{}, fmt.Errorf("unknown llm provider %q", config.Provider)
	}
}

// Close releases both capabilities; safe on a zero value
func (c Capabilities) Close() error {
	var firstErr error
	if c.Completion != nil {
		if err := c.Completion.Close(); err != nil {
			firstErr = err
		}
	}
	if closer, ok := c.Embedding.(interface{ Close() error }); ok && any(closer) != any(c.Completion) {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
