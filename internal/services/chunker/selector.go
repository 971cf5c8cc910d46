package chunker

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/webflux/internal/models"
)

// Selector candidate names in deterministic tie-break order. "Auto"
// delegates to DomStructure at execution time; "Smart" is the DOM
// structure strategy's selector alias.
var candidateOrder = []string{
	"auto",
	"smart",
	"semantic",
	"paragraph",
	"fixed_size",
	"memory_optimized",
}

// selectorAliases maps selector candidate names onto registered
// strategies
var selectorAliases = map[string]string{
	"auto":  StrategyDomStructure,
	"smart": StrategyDomStructure,
}

// SubScore is one named contribution to a strategy's total
type SubScore struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason"`
}

// StrategyScore is the composite score of one candidate
type StrategyScore struct {
	Strategy  string     `json:"strategy"`
	Total     float64    `json:"total"`
	SubScores []SubScore `json:"sub_scores"`
}

// Recommendation is the selector's output
type Recommendation struct {
	Strategy            string            `json:"strategy"`
	Confidence          float64           `json:"confidence"`
	Scores              []StrategyScore   `json:"scores"`
	Reasoning           string            `json:"reasoning"`
	ExpectedImprovement float64           `json:"expected_improvement"`
	Parameters          map[string]string `json:"parameters"`
}

// ContentProfile is the analysis input to the selector
type ContentProfile struct {
	TokenCount  int
	HasImages   bool
	ContentType models.ContentType
	Complexity  float64 // 0..1, structural complexity
	Structure   float64 // 0..1, how well-structured the prose is
}

// Selector scores chunking strategies against a content profile and
// recommends one. Historical per-strategy improvements feed back as an
// additive performance sub-score; selection is deterministic for
// identical inputs and history.
type Selector struct {
	mu      sync.Mutex
	history map[string][]float64 // Observed improvement samples
}

func NewSelector() *Selector {
	return &Selector{history: make(map[string][]float64)}
}

// RecordPerformance feeds back an observed improvement for a strategy,
// in [-1, 1]
func (s *Selector) RecordPerformance(strategy string, improvement float64) {
	if improvement < -1 {
		improvement = -1
	}
	if improvement > 1 {
		improvement = 1
	}
	s.mu.Lock()
	s.history[strings.ToLower(strategy)] = append(s.history[strings.ToLower(strategy)], improvement)
	s.mu.Unlock()
}

// Profile derives a content profile from extracted content
func Profile(content *models.ExtractedContent, tokenCount int) ContentProfile {
	profile := ContentProfile{
		TokenCount: tokenCount,
		HasImages:  len(content.Images) > 0,
	}
	if content.Quality != nil {
		profile.ContentType = content.Quality.ContentType
	}
	if content.Metadata != nil {
		profile.Complexity = content.Metadata.Structure.Complexity
		profile.Structure = structureQuality(content.Metadata.Structure)
	}
	return profile
}

// structureQuality rates how chunk-friendly the document structure is
func structureQuality(st models.DocumentStructure) float64 {
	var score float64
	if len(st.Headings) >= 2 {
		score += 0.4
	} else if len(st.Headings) == 1 {
		score += 0.2
	}
	if st.ParagraphCount >= 3 {
		score += 0.3
	}
	if st.SectionCount > 0 {
		score += 0.2
	}
	if st.WordCount > 200 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Select scores every candidate and returns the recommendation
func (s *Selector) Select(profile ContentProfile) Recommendation {
	scores := make([]StrategyScore, 0, len(candidateOrder))
	for _, name := range candidateOrder {
		scores = append(scores, s.score(name, profile))
	}

	// Highest total wins; candidateOrder is the deterministic tie-break
	best, second := 0, -1
	for i := 1; i < len(scores); i++ {
		if scores[i].Total > scores[best].Total {
			second = best
			best = i
		} else if second < 0 || scores[i].Total > scores[second].Total {
			second = i
		}
	}

	rec := Recommendation{
		Strategy:   scores[best].Strategy,
		Scores:     scores,
		Confidence: 1.0,
		Parameters: defaultParameters(scores[best].Strategy),
	}
	if second >= 0 && scores[best].Total > 0 {
		rec.Confidence = clipConfidence((scores[best].Total-scores[second].Total)/scores[best].Total + 0.5)
	}
	rec.ExpectedImprovement = s.averageImprovement(rec.Strategy)
	rec.Reasoning = reasoning(scores[best], profile)
	return rec
}

func (s *Selector) score(name string, p ContentProfile) StrategyScore {
	score := StrategyScore{Strategy: name}
	add := func(subName string, value float64, reason string) {
		if value == 0 {
			return
		}
		score.SubScores = append(score.SubScores, SubScore{Name: subName, Value: value, Reason: reason})
		score.Total += value
	}

	switch name {
	case "auto":
		add("general", 0.8, "adaptive default for mixed content")
		if p.HasImages {
			add("images", 0.9, "image context preserved by adaptive chunking")
		}
	case "smart":
		add("complexity", p.Complexity, "structural complexity favors DOM-aware splitting")
		if p.Structure > 0.7 {
			add("structure", 0.9, "well-structured document")
		}
	case "semantic":
		if p.TokenCount > 1000 {
			add("length", 0.9, "long content benefits from semantic grouping")
		}
		if p.Complexity > 0.6 {
			add("complexity", 0.8, "complex content benefits from topic grouping")
		}
	case "paragraph":
		if p.Structure > 0.8 {
			add("structure", 0.9, "clean paragraph structure")
		}
		add("baseline", 0.7, "reliable general-purpose splitting")
	case "fixed_size":
		add("predictability", 0.8, "uniform chunk sizes")
		if p.TokenCount < 500 {
			add("short_content", 0.6, "short content fits few fixed windows")
		}
	case "memory_optimized":
		if p.TokenCount > 5000 {
			add("length", 0.9, "very long content needs streaming")
		}
		add("memory", 0.8, "bounded memory footprint")
	}

	if avg := s.averageImprovement(name); avg != 0 {
		add("performance", clipConfidence(avg), "observed historical improvement")
	}

	return score
}

func (s *Selector) averageImprovement(strategy string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	samples := s.history[strings.ToLower(strategy)]
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

// ResolveStrategy maps a selector candidate name to an executable
// strategy instance; semantic needs the caller-provided instance
func ResolveStrategy(name string, semantic *SemanticStrategy) (Strategy, error) {
	lower := strings.ToLower(name)
	if target, ok := selectorAliases[lower]; ok {
		lower = target
	}
	if lower == StrategySemantic {
		if semantic == nil {
			return &ParagraphStrategy{}, nil
		}
		return semantic, nil
	}
	return New(lower)
}

func defaultParameters(strategy string) map[string]string {
	params := map[string]string{
		"max_chunk_size": "2000",
		"min_chunk_size": "100",
	}
	switch strings.ToLower(strategy) {
	case "fixed_size", "memory_optimized":
		params["overlap"] = "200"
	case "semantic":
		params["similarity_threshold"] = "0.80"
	}
	return params
}

func reasoning(best StrategyScore, p ContentProfile) string {
	reasons := make([]string, 0, len(best.SubScores))
	for _, sub := range best.SubScores {
		reasons = append(reasons, sub.Reason)
	}
	sort.Strings(reasons)
	return fmt.Sprintf("Selected %s (score %.2f, %d tokens): %s",
		best.Strategy, best.Total, p.TokenCount, strings.Join(reasons, "; "))
}

func clipConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
