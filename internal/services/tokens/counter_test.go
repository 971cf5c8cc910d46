package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/webflux/internal/common"
)

func newTestCounter() *Counter {
	return NewCounter(common.TokensConfig{CacheSize: 100})
}

func TestCountTokens_FamilyDivisors(t *testing.T) {
	counter := newTestCounter()
	text := strings.Repeat("a", 350)

	tests := []struct {
		model    string
		expected int
	}{
		{"gpt-4-turbo", 92},   // 350 / 3.8
		{"gpt-4", 100},        // 350 / 3.5
		{"gpt-3.5-turbo", 87}, // 350 / 4.0
		{"claude-sonnet-4-20250514", 100},
		{"llama-3-70b", 109}, // 350 / 3.2
		{"llama-2-13b", 116}, // 350 / 3.0
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, counter.CountTokens(text, tt.model))
		})
	}
}

func TestCountTokens_GenericFallbackCountsWords(t *testing.T) {
	counter := newTestCounter()

	// 7 whitespace-delimited fields plus one standalone punctuation mark
	count := counter.CountTokens("one two three four five - dash", "unknown-model")
	assert.Equal(t, 8, count, "words plus standalone punctuation")
}

func TestCountTokens_CJKRatio(t *testing.T) {
	counter := newTestCounter()

	korean := strings.Repeat("한", 150)
	assert.Equal(t, 100, counter.CountTokens(korean, "gpt-4"), "CJK counts one token per 1.5 characters")
}

func TestCountTokens_EmptyText(t *testing.T) {
	counter := newTestCounter()
	assert.Equal(t, 0, counter.CountTokens("", "gpt-4"))
}

func TestCountTokens_CacheHits(t *testing.T) {
	counter := newTestCounter()
	text := "the quick brown fox jumps over the lazy dog"

	first := counter.CountTokens(text, "gpt-4")
	second := counter.CountTokens(text, "gpt-4")
	assert.Equal(t, first, second)

	stats := counter.Statistics("gpt-4")
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].Requests)
	assert.Equal(t, int64(1), stats[0].CacheHits)
	assert.Equal(t, int64(1), stats[0].CacheMisses)
}

func TestCountTokens_ModelsDoNotShareCacheEntries(t *testing.T) {
	counter := newTestCounter()
	text := strings.Repeat("b", 300)

	gpt4 := counter.CountTokens(text, "gpt-4")
	llama := counter.CountTokens(text, "llama-2")
	assert.NotEqual(t, gpt4, llama, "same text under different models must be estimated separately")
}

func TestCountTokens_CacheEvictionIsFIFO(t *testing.T) {
	counter := NewCounter(common.TokensConfig{CacheSize: 2})

	counter.CountTokens("first text here", "gpt-4")
	counter.CountTokens("second text here", "gpt-4")
	counter.CountTokens("third text here", "gpt-4") // Evicts the first

	counter.CountTokens("first text here", "gpt-4")
	stats := counter.Statistics("gpt-4")
	require.Len(t, stats, 1)
	assert.Equal(t, int64(0), stats[0].CacheHits, "evicted entry must be recomputed")
}

func TestTruncateToTokenLimit(t *testing.T) {
	counter := newTestCounter()

	short := "short text"
	assert.Equal(t, short, counter.TruncateToTokenLimit(short, 1000, "gpt-4"))

	long := strings.Repeat("word ", 2000)
	truncated := counter.TruncateToTokenLimit(long, 100, "gpt-4")
	assert.Less(t, len(truncated), len(long))
	assert.LessOrEqual(t, counter.CountTokens(truncated, "gpt-4"), 100)
	assert.False(t, strings.HasSuffix(truncated, " "), "cut lands on a word boundary")

	assert.Equal(t, "", counter.TruncateToTokenLimit("anything", 0, "gpt-4"))
}

func TestTruncateToTokenLimit_RuneSafe(t *testing.T) {
	counter := newTestCounter()

	text := strings.Repeat("한국어텍스트", 200)
	truncated := counter.TruncateToTokenLimit(text, 50, "gpt-4")
	assert.True(t, len(truncated) < len(text))
	for _, r := range truncated {
		assert.NotEqual(t, '�', r, "truncation must not split a rune")
	}
}

func TestAnalyzeTokens(t *testing.T) {
	counter := newTestCounter()
	text := strings.Repeat("analysis text sample ", 50)

	analysis := counter.AnalyzeTokens(text)
	assert.Equal(t, len(text), analysis.TextLength)
	assert.Equal(t, 150, analysis.WordCount)
	assert.Len(t, analysis.Counts, 6)

	// gpt-3 has the lowest per-token price of the paid families
	assert.Equal(t, "gpt-3", analysis.OptimalModel)

	for _, entry := range analysis.Counts {
		assert.Positive(t, entry.Tokens)
		if entry.Tokens > 0 {
			assert.Positive(t, entry.Compression)
		}
	}
}

func TestStatistics_AllModels(t *testing.T) {
	counter := newTestCounter()
	counter.CountTokens("some text", "gpt-4")
	counter.CountTokens("other text", "claude")

	stats := counter.Statistics("")
	assert.Len(t, stats, 2)
	// Sorted by model name
	assert.Equal(t, "claude", stats[0].Model)
	assert.Equal(t, "gpt-4", stats[1].Model)
}
