package tokens

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
)

const defaultCacheSize = 10_000

// modelFamily holds the length heuristic and pricing for one family.
// Divisors approximate characters-per-token for Latin text; CJK runs
// count one token per 1.5 characters regardless of family.
type modelFamily struct {
	name     string
	divisor  float64
	costPerK float64 // USD per 1k input tokens
}

// Families are matched against the model name in order, so the more
// specific names come first
var families = []modelFamily{
	{name: "gpt-4-turbo", divisor: 3.8, costPerK: 0.01},
	{name: "gpt-4", divisor: 3.5, costPerK: 0.03},
	{name: "gpt-3", divisor: 4.0, costPerK: 0.0015},
	{name: "claude", divisor: 3.5, costPerK: 0.003},
	{name: "llama-3", divisor: 3.2, costPerK: 0.0},
	{name: "llama-2", divisor: 3.0, costPerK: 0.0},
}

type modelStats struct {
	requests    int64
	cacheHits   int64
	cacheMisses int64
	totalTokens int64
}

// Counter estimates token counts with per-family length heuristics and
// a bounded result cache. Cache keys carry a 64-bit content hash plus
// the text length and model name, so distinct (text, model) pairs never
// share an entry.
type Counter struct {
	mu        sync.Mutex
	cache     map[string]int
	order     []string // Insertion order for FIFO eviction
	cacheSize int
	stats     map[string]*modelStats
}

// NewCounter builds a counter from configuration; a zero cache size
// takes the default of 10,000 entries.
func NewCounter(config common.TokensConfig) *Counter {
	size := config.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	return &Counter{
		cache:     make(map[string]int, size),
		cacheSize: size,
		stats:     make(map[string]*modelStats),
	}
}

// CountTokens estimates the token count of text for model
func (c *Counter) CountTokens(text, model string) int {
	if text == "" {
		return 0
	}

	key := cacheKey(text, model)

	c.mu.Lock()
	st := c.statsLocked(model)
	st.requests++
	if count, ok := c.cache[key]; ok {
		st.cacheHits++
		st.totalTokens += int64(count)
		c.mu.Unlock()
		return count
	}
	st.cacheMisses++
	c.mu.Unlock()

	count := estimate(text, model)

	c.mu.Lock()
	c.storeLocked(key, count)
	c.statsLocked(model).totalTokens += int64(count)
	c.mu.Unlock()

	return count
}

// TruncateToTokenLimit trims text so its estimate stays at or below
// maxTokens, targeting 90% of the limit and cutting at a whitespace
// boundary when one is near
func (c *Counter) TruncateToTokenLimit(text string, maxTokens int, model string) string {
	if maxTokens <= 0 {
		return ""
	}
	if c.CountTokens(text, model) <= maxTokens {
		return text
	}

	divisor := familyFor(model).divisor
	target := int(float64(maxTokens) * divisor * 0.9)
	if target >= len(text) {
		target = len(text) - 1
	}
	if target < 1 {
		target = 1
	}

	// Back off to a rune boundary, then prefer the last whitespace in
	// the tail of the kept region
	for target > 0 && !isRuneStart(text[target]) {
		target--
	}
	cut := text[:target]
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \t\n\r")
}

// AnalyzeTokens estimates the text against every known family and
// recommends the cheapest model
func (c *Counter) AnalyzeTokens(text string) models.TokenAnalysis {
	analysis := models.TokenAnalysis{
		TextLength: len(text),
		WordCount:  len(strings.Fields(text)),
	}

	for _, family := range families {
		count := estimate(text, family.name)
		entry := models.ModelTokenCount{
			Model:         family.name,
			Tokens:        count,
			EstimatedCost: float64(count) / 1000 * family.costPerK,
		}
		if count > 0 {
			entry.Compression = float64(len(text)) / float64(count)
		}
		analysis.Counts = append(analysis.Counts, entry)
	}

	// Cheapest non-free model wins; free models are local and not
	// comparable on cost
	sort.SliceStable(analysis.Counts, func(i, j int) bool {
		return analysis.Counts[i].Tokens < analysis.Counts[j].Tokens
	})
	for _, entry := range analysis.Counts {
		if entry.EstimatedCost > 0 {
			if analysis.OptimalModel == "" {
				analysis.OptimalModel = entry.Model
			} else {
				current := costOf(analysis, analysis.OptimalModel)
				if entry.EstimatedCost < current {
					analysis.OptimalModel = entry.Model
				}
			}
		}
	}

	return analysis
}

// Statistics reports usage counters. With an empty model, one entry per
// observed model is returned.
func (c *Counter) Statistics(model string) []models.TokenStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []models.TokenStatistics
	for name, st := range c.stats {
		if model != "" && name != model {
			continue
		}
		entry := models.TokenStatistics{
			Model:       name,
			Requests:    st.requests,
			CacheHits:   st.cacheHits,
			CacheMisses: st.cacheMisses,
			TotalTokens: st.totalTokens,
		}
		if st.requests > 0 {
			entry.MeanTokens = float64(st.totalTokens) / float64(st.requests)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

func (c *Counter) statsLocked(model string) *modelStats {
	key := strings.ToLower(model)
	st, ok := c.stats[key]
	if !ok {
		st = &modelStats{}
		c.stats[key] = st
	}
	return st
}

func (c *Counter) storeLocked(key string, count int) {
	if _, exists := c.cache[key]; exists {
		return
	}
	if len(c.cache) >= c.cacheSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.cache, oldest)
	}
	c.cache[key] = count
	c.order = append(c.order, key)
}

// estimate applies the family heuristic: Latin characters divided by
// the family divisor, CJK characters at one token per 1.5 characters.
// The generic fallback counts words plus standalone punctuation.
func estimate(text, model string) int {
	latin, cjk := splitScripts(text)

	family, known := lookupFamily(model)
	if !known {
		count := genericCount(text)
		if cjk > 0 {
			count += int(float64(cjk) / 1.5)
		}
		if count < 1 {
			count = 1
		}
		return count
	}

	tokens := float64(latin) / family.divisor
	if cjk > 0 {
		tokens += float64(cjk) / 1.5
	}
	count := int(tokens)
	if count < 1 {
		count = 1
	}
	return count
}

// genericCount counts words plus punctuation marks that stand apart
// from words
func genericCount(text string) int {
	count := len(strings.Fields(text))
	prevSpace := true
	for _, r := range text {
		if unicode.IsSpace(r) {
			prevSpace = true
			continue
		}
		if unicode.IsPunct(r) && prevSpace {
			count++
		}
		prevSpace = false
	}
	return count
}

// splitScripts counts Latin-and-other bytes versus CJK runes
func splitScripts(text string) (latin, cjk int) {
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			latin++
		}
	}
	return latin, cjk
}

func isCJK(r rune) bool {
	switch {
	case r >= 0xAC00 && r <= 0xD7A3: // Hangul syllables
		return true
	case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
		return true
	case r >= 0x3040 && r <= 0x30FF: // Hiragana + Katakana
		return true
	}
	return false
}

func familyFor(model string) modelFamily {
	if family, ok := lookupFamily(model); ok {
		return family
	}
	return modelFamily{name: "generic", divisor: 4.0}
}

func lookupFamily(model string) (modelFamily, bool) {
	name := strings.ToLower(model)
	for _, family := range families {
		if strings.Contains(name, family.name) {
			return family, true
		}
	}
	return modelFamily{}, false
}

func costOf(analysis models.TokenAnalysis, model string) float64 {
	for _, entry := range analysis.Counts {
		if entry.Model == model {
			return entry.EstimatedCost
		}
	}
	return 0
}

// cacheKey fingerprints (text, model) with a 64-bit content hash plus
// the text length; the length guards against hash collisions between
// texts of different sizes
func cacheKey(text, model string) string {
	return fmt.Sprintf("%s:%016x:%d", strings.ToLower(model), xxhash.Sum64String(text), len(text))
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
