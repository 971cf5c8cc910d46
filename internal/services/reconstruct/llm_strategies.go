package reconstruct

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/webflux/internal/interfaces"
	"github.com/ternarybob/webflux/internal/models"
)

// llmStrategy is the shared shape of the four completion-backed
// variants; they differ only in prompt and characteristics
type llmStrategy struct {
	name            string
	completion      interfaces.CompletionService
	counter         interfaces.TokenCounter
	characteristics Characteristics
	prompt          func(content *models.ExtractedContent, opts Options) string
}

func (s *llmStrategy) Name() string { return s.name }

func (s *llmStrategy) Characteristics() Characteristics { return s.characteristics }

func (s *llmStrategy) Reconstruct(ctx context.Context, content *models.ExtractedContent, opts Options) (*models.ReconstructedContent, error) {
	if s.completion == nil || !s.completion.IsAvailable(ctx) {
		return nil, fmt.Errorf("strategy %s requires a completion backend", s.name)
	}

	prompt := s.prompt(content, opts)
	messages := []interfaces.Message{
		{Role: "system", Content: "You rewrite web page content for retrieval pipelines. Reply with the rewritten text only, no preamble."},
		{Role: "user", Content: prompt},
	}

	output, err := s.completion.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("reconstruct %s for %s: %w", s.name, content.SourceURL, err)
	}
	output = strings.TrimSpace(output)
	if output == "" {
		output = content.MainText
	}

	result := &models.ReconstructedContent{
		Source:    content,
		Content:   output,
		Strategy:  s.name,
		ModelUsed: s.completion.ModelName(),
	}
	if s.counter != nil {
		model := s.completion.ModelName()
		result.InputTokens = s.counter.CountTokens(prompt, model)
		result.OutputTokens = s.counter.CountTokens(output, model)
	}
	return result, nil
}

// NewSummarize condenses long content while keeping structure markers
func NewSummarize(completion interfaces.CompletionService, counter interfaces.TokenCounter) Strategy {
	return &llmStrategy{
		name:       StrategySummarize,
		completion: completion,
		counter:    counter,
		characteristics: Characteristics{
			QualityLevel:    "high",
			MemoryCost:      "medium",
			ComputeCost:     "high",
			RequiresLLM:     true,
			RecommendedUses: []string{"long articles", "reports", "token-budget pipelines"},
		},
		prompt: func(content *models.ExtractedContent, opts Options) string {
			target := opts.TargetLength
			if target <= 0 {
				target = len(content.MainText) / 4
			}
			return fmt.Sprintf("Summarize the following page to roughly %d characters. Preserve section headings as markdown headings and keep factual statements intact.\n\nTitle: %s\n\n%s",
				target, content.Title, content.MainText)
		},
	}
}

// NewExpand elaborates thin content using the page's own metadata as
// context
func NewExpand(completion interfaces.CompletionService, counter interfaces.TokenCounter) Strategy {
	return &llmStrategy{
		name:       StrategyExpand,
		completion: completion,
		counter:    counter,
		characteristics: Characteristics{
			QualityLevel:    "good",
			MemoryCost:      "low",
			ComputeCost:     "medium",
			RequiresLLM:     true,
			RecommendedUses: []string{"stub pages", "landing pages", "sparse product pages"},
		},
		prompt: func(content *models.ExtractedContent, opts Options) string {
			var context strings.Builder
			if content.Metadata != nil {
				if d := content.Metadata.Basic.Description; d != "" {
					context.WriteString("Description: " + d + "\n")
				}
				for _, kw := range content.Metadata.Basic.Keywords {
					context.WriteString("Keyword: " + kw + "\n")
				}
			}
			return fmt.Sprintf("Expand the following short page into fuller prose using only facts present in the text and metadata. Do not invent details.\n\nTitle: %s\n%s\n%s",
				content.Title, context.String(), content.MainText)
		},
	}
}

// NewRewrite normalizes noisy content into clean retrieval-ready prose
func NewRewrite(completion interfaces.CompletionService, counter interfaces.TokenCounter) Strategy {
	return &llmStrategy{
		name:       StrategyRewrite,
		completion: completion,
		counter:    counter,
		characteristics: Characteristics{
			QualityLevel:    "good",
			MemoryCost:      "low",
			ComputeCost:     "medium",
			RequiresLLM:     true,
			RecommendedUses: []string{"noisy pages", "low-quality extractions", "boilerplate-heavy sites"},
		},
		prompt: func(content *models.ExtractedContent, _ Options) string {
			return fmt.Sprintf("Rewrite the following page text as clean, well-structured prose. Remove navigation remnants, ads and boilerplate; keep every substantive fact.\n\nTitle: %s\n\n%s",
				content.Title, content.MainText)
		},
	}
}

// NewEnrich annotates image-heavy or deeply sectioned content with
// inline context
func NewEnrich(completion interfaces.CompletionService, counter interfaces.TokenCounter) Strategy {
	return &llmStrategy{
		name:       StrategyEnrich,
		completion: completion,
		counter:    counter,
		characteristics: Characteristics{
			QualityLevel:    "high",
			MemoryCost:      "medium",
			ComputeCost:     "high",
			RequiresLLM:     true,
			RecommendedUses: []string{"image-heavy pages", "multi-section documents", "tutorials"},
		},
		prompt: func(content *models.ExtractedContent, _ Options) string {
			var images strings.Builder
			for i, img := range content.Images {
				if i >= 10 {
					break
				}
				images.WriteString(fmt.Sprintf("- %s (alt: %q)\n", img.URL, img.Alt))
			}
			return fmt.Sprintf("Enrich the following page text: where an image reference belongs, add a one-line description in brackets; keep section structure.\n\nTitle: %s\nImages:\n%s\n%s",
				content.Title, images.String(), content.MainText)
		},
	}
}
