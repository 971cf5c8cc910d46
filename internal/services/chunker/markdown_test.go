package chunker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/webflux/internal/models"
)

const guideMarkdown = "# Guide\n\nIntro paragraph text.\n\n## Install\n\n```\ngo get example.com/pkg\n```\n\n- first item\n- second item\n"

func TestMarkdown_HeadingSections(t *testing.T) {
	strategy := &MarkdownStrategy{}
	content := &models.ExtractedContent{
		SourceURL: "https://example.com/guide",
		Markdown:  guideMarkdown,
	}

	chunks, err := strategy.Chunk(context.Background(), content, Options{MaxChunkSize: 500})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, models.ChunkTypeText, chunks[0].Type)
	assert.Equal(t, "Intro paragraph text.", chunks[0].Content)
	assert.Equal(t, []string{"Guide"}, chunks[0].HeadingPath)

	assert.Equal(t, models.ChunkTypeCode, chunks[1].Type)
	assert.Equal(t, "go get example.com/pkg", chunks[1].Content)
	assert.Equal(t, []string{"Guide", "Install"}, chunks[1].HeadingPath)
	assert.Equal(t, "Install", chunks[1].SectionTitle)

	assert.Equal(t, models.ChunkTypeList, chunks[2].Type)
	assert.Equal(t, "• first item\n• second item", chunks[2].Content)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Sequence)
		assert.Equal(t, StrategyMarkdown, chunk.Strategy)
	}
}

func TestMarkdown_FallsBackWithoutMarkdown(t *testing.T) {
	strategy := &MarkdownStrategy{}
	content := &models.ExtractedContent{MainText: "first block\n\nsecond block"}

	chunks, err := strategy.Chunk(context.Background(), content, Options{MaxChunkSize: 15})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, chunk := range chunks {
		assert.Equal(t, StrategyMarkdown, chunk.Strategy)
	}
}
