package chunker

import (
	"context"
	"fmt"

	"github.com/ternarybob/webflux/internal/models"
)

// FixedSizeStrategy emits character-count chunks of exactly the
// configured size, each carrying an overlap prefix from its
// predecessor. Chunk i starts at offset i*(size-overlap); the final
// chunk may be shorter.
type FixedSizeStrategy struct{}

func (s *FixedSizeStrategy) Name() string { return StrategyFixedSize }

func (s *FixedSizeStrategy) Description() string {
	return "Fixed character windows with configurable overlap"
}

func (s *FixedSizeStrategy) Chunk(_ context.Context, content *models.ExtractedContent, opts Options) ([]models.Chunk, error) {
	size := opts.MaxChunkSize
	if size <= 0 {
		return nil, fmt.Errorf("fixed size chunking requires a positive chunk size")
	}
	overlap := opts.Overlap
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap %d must be in [0, %d)", overlap, size)
	}

	if content.MainText == "" {
		return nil, nil
	}
	// Windows count characters, not bytes, so multibyte text never
	// splits mid-rune
	text := []rune(content.MainText)

	stride := size - overlap
	var chunks []models.Chunk
	for offset := 0; offset < len(text); offset += stride {
		end := offset + size
		if end > len(text) {
			end = len(text)
		}
		body := string(text[offset:end])
		chunks = append(chunks, models.Chunk{
			Content:        body,
			Type:           models.ChunkTypeText,
			SourceURL:      content.SourceURL,
			Strategy:       StrategyFixedSize,
			StrategyParams: baseParams(opts),
			Quality:        chunkQuality(body, opts),
		})
		if end == len(text) {
			break
		}
	}

	return resequence(chunks), nil
}
