package reconstruct

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/interfaces"
	"github.com/ternarybob/webflux/internal/models"
)

// Factory builds reconstruct strategies and applies the auto-selection
// rules. None is always available; the LLM-backed variants exist only
// when a completion backend is configured.
type Factory struct {
	completion interfaces.CompletionService
	counter    interfaces.TokenCounter
	useLLM     bool
	logger     arbor.ILogger
}

func NewFactory(completion interfaces.CompletionService, counter interfaces.TokenCounter, useLLM bool, logger arbor.ILogger) *Factory {
	return &Factory{
		completion: completion,
		counter:    counter,
		useLLM:     useLLM,
		logger:     logger,
	}
}

// hasCapability reports whether LLM-backed strategies can run
func (f *Factory) hasCapability() bool {
	return f.useLLM && f.completion != nil
}

// ForName resolves an explicitly named strategy. Naming an LLM variant
// without a backend is an error; the caller pinned it deliberately.
func (f *Factory) ForName(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case StrategyNone, "":
		return &NoneStrategy{}, nil
	case StrategySummarize:
		return f.llmStrategy(NewSummarize)
	case StrategyExpand:
		return f.llmStrategy(NewExpand)
	case StrategyRewrite:
		return f.llmStrategy(NewRewrite)
	case StrategyEnrich:
		return f.llmStrategy(NewEnrich)
	default:
		return nil, fmt.Errorf("unknown reconstruct strategy %q", name)
	}
}

func (f *Factory) llmStrategy(build func(interfaces.CompletionService, interfaces.TokenCounter) Strategy) (Strategy, error) {
	strategy := build(f.completion, f.counter)
	if !f.hasCapability() {
		f.logger.Warn().
			Str("strategy", strategy.Name()).
			Msg("Reconstruct strategy pinned without a completion backend")
		return nil, fmt.Errorf("strategy %s requires a completion backend", strategy.Name())
	}
	return strategy, nil
}

// Select applies the factory rules for a piece of content. An explicit
// non-auto name is honored (erroring when its capability is missing);
// "auto" or empty analyzes the content, degrading to None with a
// warning when no backend exists.
func (f *Factory) Select(name string, content *models.ExtractedContent) (Strategy, error) {
	lower := strings.ToLower(name)
	if lower != "" && lower != StrategyAuto {
		return f.ForName(lower)
	}

	if !f.hasCapability() {
		if f.useLLM {
			f.logger.Warn().
				Str("url", content.SourceURL).
				Msg("No completion backend available, falling back to passthrough reconstruction")
		}
		return &NoneStrategy{}, nil
	}

	return f.analyze(content), nil
}

// analyze picks the variant from content shape: very long text is
// summarized, poor quality rewritten, thin text expanded, image-heavy
// or deeply sectioned pages enriched, everything else rewritten
func (f *Factory) analyze(content *models.ExtractedContent) Strategy {
	length := len(content.MainText)
	quality := 1.0
	if content.Quality != nil {
		quality = content.Quality.Score
	}
	sections := 0
	if content.Metadata != nil {
		sections = content.Metadata.Structure.SectionCount
	}

	switch {
	case length > 10_000:
		return NewSummarize(f.completion, f.counter)
	case quality < 0.6:
		return NewRewrite(f.completion, f.counter)
	case length < 500:
		return NewExpand(f.completion, f.counter)
	case len(content.Images) > 0 || sections > 5:
		return NewEnrich(f.completion, f.counter)
	default:
		return NewRewrite(f.completion, f.counter)
	}
}
