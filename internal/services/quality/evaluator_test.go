package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/models"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func cleanContent(text string) *models.ExtractedContent {
	return &models.ExtractedContent{
		SourceURL: "https://example.com/page",
		Title:     "Page",
		MainText:  text,
	}
}

func TestEvaluate_KoreanPaywallDetected(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	text := strings.Repeat("이 기사는 구독 회원 전용입니다. ", 40)
	content := cleanContent(text)

	info := evaluator.Evaluate(content, "<html><body>"+text+"</body></html>")
	assert.True(t, info.HasPaywall)
	assert.Equal(t, "ko", info.Language)
}

func TestEvaluate_ShortSubscribePageIsPaywalled(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	content := cleanContent("Teaser only.")
	info := evaluator.Evaluate(content, `<html><body><div class="cta">Subscribe for full access</div></body></html>`)
	assert.True(t, info.HasPaywall, "short pages pushing a subscription count as paywalled")
}

func TestEvaluate_LongPageWithSubscribeFooterIsNot(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	text := strings.Repeat("Plenty of open editorial prose without any gating keywords. ", 20)
	content := cleanContent(text)

	info := evaluator.Evaluate(content, "<html><body>"+text+"<footer>Subscribe to the newsletter</footer></body></html>")
	assert.False(t, info.HasPaywall, "a newsletter footer on a long page is not a paywall")
}

func TestEvaluate_LoginWallDetected(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	content := cleanContent("Please log in to view this page.")
	info := evaluator.Evaluate(content, "")
	assert.True(t, info.RequiresLogin)

	korean := cleanContent("계속하려면 로그인 하세요")
	assert.True(t, evaluator.Evaluate(korean, "").RequiresLogin)
}

func TestEvaluate_AdDensity(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	text := strings.Repeat("ordinary editorial words here ", 30)
	content := cleanContent(text)

	single := evaluator.Evaluate(content, "<html><body>"+text+`<div class="sponsored">x</div></body></html>`)
	assert.InDelta(t, 0.05, single.AdDensity, 0.001, "one indicator out of the 20-occurrence cap")

	heavy := evaluator.Evaluate(content, "<html><body>"+strings.Repeat(`<div class="ad-slot">advertisement</div>`, 30)+"</body></html>")
	assert.Equal(t, 1.0, heavy.AdDensity, "density caps at 1.0")
}

func TestClassifyContent_FirstMatchWins(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		text     string
		url      string
		expected models.ContentType
	}{
		{"article by url", "", "plain prose", "https://example.com/article/go-scheduler", models.ContentTypeArticle},
		{"article beats docs url", "", "story with a byline attached", "https://example.com/docs/history", models.ContentTypeArticle},
		{"blog beats docs", "", "posted by the maintainers, api reference inside", "https://example.com/page", models.ContentTypeBlog},
		{"documentation", "", "getting started with the toolchain", "https://example.com/page", models.ContentTypeDocumentation},
		{"product", "", "limited offer: buy now while in stock", "https://example.com/item", models.ContentTypeProduct},
		{"forum", "", "discussion topic", "https://example.com/forum/go-help", models.ContentTypeForum},
		{"general fallback", "Untitled", "nothing distinctive", "https://example.com/page", models.ContentTypeGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyContent(tt.title, tt.text, tt.url))
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"english", "the quick brown fox jumps over the lazy dog", "en"},
		{"korean", strings.Repeat("한국어 문서입니다 ", 10), "ko"},
		{"chinese", strings.Repeat("这是一个中文页面 ", 10), "zh"},
		{"japanese kana", strings.Repeat("これはテストです ", 10), "ja"},
		{"empty", "", "en"},
		{"sparse cjk stays english", "mostly english text with one glyph 한 in the middle of a long sentence", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detectLanguage(tt.text))
		})
	}
}

func TestEvaluate_ContentRatioAndNoise(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	text := strings.Repeat("x", 100)
	content := cleanContent(text)

	// 3 * 100 / 600 = 0.5
	info := evaluator.Evaluate(content, text+strings.Repeat("z", 500))
	require.Equal(t, 100, len(text))
	assert.InDelta(t, 0.5, info.ContentRatio, 0.001)
	assert.InDelta(t, 0.5, info.NoiseRatio, 0.001)

	dense := evaluator.Evaluate(content, text)
	assert.Equal(t, 1.0, dense.ContentRatio, "ratio clips at 1.0")
}

func TestEvaluate_HTTPSAndReadingTime(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	secure := evaluator.Evaluate(cleanContent("words"), "")
	assert.True(t, secure.IsHTTPS)

	plain := &models.ExtractedContent{SourceURL: "http://example.com/", MainText: strings.Repeat("word ", 300)}
	info := evaluator.Evaluate(plain, "")
	assert.False(t, info.IsHTTPS)
	assert.Equal(t, 300, info.WordCount)
	assert.Equal(t, 2, info.ReadingTimeMin, "300 words round up to two minutes at 250 wpm")
}

func TestEvaluate_ScoreOrdering(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	goodText := strings.Repeat("useful standalone prose without gating phrases ", 40)
	good := evaluator.Evaluate(cleanContent(goodText), goodText)

	paywalledText := "구독 전용. " + goodText
	paywalled := evaluator.Evaluate(cleanContent(paywalledText), paywalledText)

	assert.Greater(t, good.Score, paywalled.Score)
	assert.GreaterOrEqual(t, good.Score, 0.0)
	assert.LessOrEqual(t, good.Score, 1.0)
	assert.GreaterOrEqual(t, paywalled.Score, 0.0)
}

func TestEvaluate_LLMSuitability(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	// 750 words of dense text lands in the rewarded band
	midText := strings.Repeat("retrieval ready content ", 250)
	mid := evaluator.Evaluate(cleanContent(midText), midText)

	tiny := evaluator.Evaluate(cleanContent("too short"), "too short")

	assert.Greater(t, mid.LLMSuitability, tiny.LLMSuitability)
	assert.LessOrEqual(t, mid.LLMSuitability, 1.0)
	assert.Positive(t, mid.EstimatedTokens)
}

func TestEvaluate_CitationsAndStructuredData(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	text := strings.Repeat("research summary with enough length to avoid teaser handling ", 10)
	html := "<html><head><script type=\"application/ld+json\">{}</script></head>" +
		"<body>" + text + "<cite>Knuth 1974</cite></body></html>"

	info := evaluator.Evaluate(cleanContent(text), html)
	assert.True(t, info.HasCitations)
	assert.True(t, info.HasStructuredData)
}
