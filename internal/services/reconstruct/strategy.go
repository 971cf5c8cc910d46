package reconstruct

import (
	"context"

	"github.com/ternarybob/webflux/internal/models"
)

// Canonical strategy names
const (
	StrategyAuto      = "auto"
	StrategyNone      = "none"
	StrategySummarize = "summarize"
	StrategyExpand    = "expand"
	StrategyRewrite   = "rewrite"
	StrategyEnrich    = "enrich"
)

// Characteristics describes a strategy's cost and fitness profile
type Characteristics struct {
	QualityLevel    string   `json:"quality_level"` // "passthrough", "good", "high"
	MemoryCost      string   `json:"memory_cost"`   // "low", "medium", "high"
	ComputeCost     string   `json:"compute_cost"`
	RequiresLLM     bool     `json:"requires_llm"`
	RecommendedUses []string `json:"recommended_uses"`
}

// Options tunes a single reconstruction
type Options struct {
	TargetLength int               // Hint for summarize/expand, characters
	Model        string            // Overrides the backend default
	Extra        map[string]string // Strategy-specific parameters
}

// Strategy rewrites extracted content before chunking. None is always
// available; the LLM-backed variants require a completion capability.
type Strategy interface {
	Name() string
	Characteristics() Characteristics
	Reconstruct(ctx context.Context, content *models.ExtractedContent, opts Options) (*models.ReconstructedContent, error)
}

// NoneStrategy passes the main text through untouched
type NoneStrategy struct{}

func (s *NoneStrategy) Name() string { return StrategyNone }

func (s *NoneStrategy) Characteristics() Characteristics {
	return Characteristics{
		QualityLevel:    "passthrough",
		MemoryCost:      "low",
		ComputeCost:     "low",
		RequiresLLM:     false,
		RecommendedUses: []string{"clean source content", "offline pipelines", "round-trip fidelity"},
	}
}

func (s *NoneStrategy) Reconstruct(_ context.Context, content *models.ExtractedContent, _ Options) (*models.ReconstructedContent, error) {
	return &models.ReconstructedContent{
		Source:   content,
		Content:  content.MainText,
		Strategy: StrategyNone,
	}, nil
}
