package chunker

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
)

// Canonical strategy names. The registry is keyed by these.
const (
	StrategyAuto            = "auto"
	StrategyDomStructure    = "dom_structure"
	StrategyParagraph       = "paragraph"
	StrategyFixedSize       = "fixed_size"
	StrategySemantic        = "semantic"
	StrategyMemoryOptimized = "memory_optimized"
	StrategyMarkdown        = "markdown"
)

// Options carries the shared chunking parameters plus strategy-specific
// extras
type Options struct {
	MaxChunkSize int               // Characters
	MinChunkSize int               // Chunks below this merge into a neighbor
	Overlap      int               // Characters carried over between fixed chunks
	Extra        map[string]string // Strategy-specific options
}

// DefaultOptions derives chunker options from configuration
func DefaultOptions(cfg common.ChunkingConfig) Options {
	return Options{
		MaxChunkSize: cfg.MaxChunkSize,
		MinChunkSize: cfg.MinChunkSize,
		Overlap:      cfg.Overlap,
	}
}

// Strategy splits extracted content into an ordered chunk list with
// dense 0-based sequence numbers
type Strategy interface {
	Name() string
	Description() string
	Chunk(ctx context.Context, content *models.ExtractedContent, opts Options) ([]models.Chunk, error)
}

// Factory builds a strategy instance
type Factory func() Strategy

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a strategy factory under its canonical name
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New instantiates a registered strategy by name
func New(name string) (Strategy, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown chunking strategy %q", name)
	}
	return factory(), nil
}

// Names returns the registered strategy names, sorted
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sentenceBoundaries are the split points used when a single section or
// paragraph exceeds the maximum chunk size
var sentenceBoundaries = []string{". ", ".\n", ".\r\n"}

// splitSentences breaks text into pieces no longer than maxSize,
// preferring sentence boundaries and falling back to a hard cut
func splitSentences(text string, maxSize int) []string {
	if maxSize <= 0 || len(text) <= maxSize {
		return []string{text}
	}

	var parts []string
	remaining := text
	for len(remaining) > maxSize {
		window := remaining[:maxSize]
		cut := -1
		for _, boundary := range sentenceBoundaries {
			if i := strings.LastIndex(window, boundary); i > cut {
				cut = i + len(boundary)
			}
		}
		if cut <= 0 {
			// No sentence boundary: cut at the last whitespace, or hard
			if i := strings.LastIndexAny(window, " \t\n"); i > 0 {
				cut = i + 1
			} else {
				cut = maxSize
			}
		}
		parts = append(parts, strings.TrimSpace(remaining[:cut]))
		remaining = remaining[cut:]
	}
	if trimmed := strings.TrimSpace(remaining); trimmed != "" {
		parts = append(parts, trimmed)
	}
	return parts
}

// mergeShort folds any chunk shorter than minSize into its predecessor
// (or successor for the first chunk) and renumbers the survivors so
// sequence numbers stay dense
func mergeShort(chunks []models.Chunk, minSize int) []models.Chunk {
	if minSize <= 0 || len(chunks) < 2 {
		return resequence(chunks)
	}

	var merged []models.Chunk
	for _, chunk := range chunks {
		if len(chunk.Content) >= minSize || len(merged) == 0 {
			merged = append(merged, chunk)
			continue
		}
		prev := &merged[len(merged)-1]
		prev.Content = prev.Content + "\n\n" + chunk.Content
	}

	// A short leading chunk merges forward instead
	if len(merged) >= 2 && len(merged[0].Content) < minSize {
		merged[1].Content = merged[0].Content + "\n\n" + merged[1].Content
		if merged[1].SectionTitle == "" {
			merged[1].SectionTitle = merged[0].SectionTitle
		}
		merged = merged[1:]
	}

	return resequence(merged)
}

// resequence assigns dense 0-based sequence numbers and fresh ids where
// missing
func resequence(chunks []models.Chunk) []models.Chunk {
	for i := range chunks {
		chunks[i].Sequence = i
		if chunks[i].ID == "" {
			chunks[i].ID = common.NewChunkID()
		}
	}
	return chunks
}

// baseParams records the shared options on every emitted chunk
func baseParams(opts Options) map[string]string {
	params := map[string]string{
		"max_chunk_size": strconv.Itoa(opts.MaxChunkSize),
		"min_chunk_size": strconv.Itoa(opts.MinChunkSize),
	}
	if opts.Overlap > 0 {
		params["overlap"] = strconv.Itoa(opts.Overlap)
	}
	return params
}

// chunkQuality gives a crude per-chunk quality signal from length
// relative to the configured bounds
func chunkQuality(content string, opts Options) float64 {
	if opts.MaxChunkSize <= 0 {
		return 0.5
	}
	length := len(content)
	switch {
	case length >= opts.MinChunkSize && length <= opts.MaxChunkSize:
		return 0.9
	case length > opts.MaxChunkSize:
		return 0.6
	default:
		return 0.4
	}
}

func init() {
	Register(StrategyDomStructure, func() Strategy { return &DomStrategy{} })
	Register(StrategyParagraph, func() Strategy { return &ParagraphStrategy{} })
	Register(StrategyFixedSize, func() Strategy { return &FixedSizeStrategy{} })
	Register(StrategyMemoryOptimized, func() Strategy { return &MemoryOptimizedStrategy{} })
	Register(StrategyMarkdown, func() Strategy { return &MarkdownStrategy{} })
}
