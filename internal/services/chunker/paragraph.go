package chunker

import (
	"context"
	"strings"

	"github.com/ternarybob/webflux/internal/models"
)

// ParagraphStrategy splits on blank-line separators and packs whole
// paragraphs into chunks up to the maximum size. A paragraph is never
// split unless it alone exceeds the maximum, in which case it breaks at
// sentence boundaries.
type ParagraphStrategy struct{}

func (s *ParagraphStrategy) Name() string { return StrategyParagraph }

func (s *ParagraphStrategy) Description() string {
	return "Packs whole paragraphs into chunks, splitting only oversized ones"
}

func (s *ParagraphStrategy) Chunk(_ context.Context, content *models.ExtractedContent, opts Options) ([]models.Chunk, error) {
	text := content.MainText
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var chunks []models.Chunk
	emit := func(body string) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		chunks = append(chunks, models.Chunk{
			Content:        body,
			Type:           models.ChunkTypeText,
			SourceURL:      content.SourceURL,
			Strategy:       StrategyParagraph,
			StrategyParams: baseParams(opts),
			Quality:        chunkQuality(body, opts),
		})
	}

	var current strings.Builder
	for _, paragraph := range splitParagraphs(text) {
		if opts.MaxChunkSize > 0 && len(paragraph) > opts.MaxChunkSize {
			// Oversized paragraph: flush, then split it on its own
			emit(current.String())
			current.Reset()
			for _, part := range splitSentences(paragraph, opts.MaxChunkSize) {
				emit(part)
			}
			continue
		}

		if opts.MaxChunkSize > 0 && current.Len() > 0 && current.Len()+len(paragraph)+2 > opts.MaxChunkSize {
			emit(current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	emit(current.String())

	return mergeShort(chunks, opts.MinChunkSize), nil
}

// splitParagraphs splits text on blank lines, tolerating \r\n endings
func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	var paragraphs []string
	for _, block := range strings.Split(normalized, "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}
