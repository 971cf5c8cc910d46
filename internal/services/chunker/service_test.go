package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func TestService_ExplicitStrategy(t *testing.T) {
	service := NewService(common.ChunkingConfig{
		Strategy:     StrategyFixedSize,
		MaxChunkSize: 100,
		Overlap:      20,
	}, nil, nil, testLogger())

	content := &models.ExtractedContent{MainText: strings.Repeat("0123456789", 25)}
	chunks, err := service.Chunk(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, StrategyFixedSize, chunks[0].Strategy)
}

func TestService_StreamingThresholdOverridesStrategy(t *testing.T) {
	service := NewService(common.ChunkingConfig{
		Strategy:     StrategyParagraph,
		MaxChunkSize: 100,
		Overlap:      20,
		StreamingMin: 50,
	}, nil, nil, testLogger())

	content := &models.ExtractedContent{MainText: strings.Repeat("0123456789", 25)}
	chunks, err := service.Chunk(context.Background(), content)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, StrategyMemoryOptimized, chunks[0].Strategy, "oversized input switches to streaming")
}

func TestService_AutoSelection(t *testing.T) {
	service := NewService(common.ChunkingConfig{
		Strategy:     StrategyAuto,
		MaxChunkSize: 200,
	}, nil, nil, testLogger())

	content := &models.ExtractedContent{MainText: "first block of prose\n\nsecond block of prose"}
	chunks, err := service.Chunk(context.Background(), content)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Sequence, "sequences stay dense regardless of strategy")
		assert.NotEmpty(t, chunk.ID)
	}
}

func TestService_UnknownStrategyErrors(t *testing.T) {
	service := NewService(common.ChunkingConfig{Strategy: "bogus", MaxChunkSize: 200}, nil, nil, testLogger())

	_, err := service.Chunk(context.Background(), &models.ExtractedContent{MainText: "text"})
	assert.Error(t, err)
}
