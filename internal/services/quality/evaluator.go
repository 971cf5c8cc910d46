package quality

import (
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/models"
)

// paywallKeywords is checked against both the raw HTML and the main
// text; any hit marks the page paywalled
var paywallKeywords = []string{
	"paywall",
	"subscribe to continue",
	"subscription required",
	"premium content",
	"members only",
	"metered-content",
	"구독",
	"購読",
	"订阅",
}

var loginKeywords = []string{
	"log in to continue",
	"login required",
	"sign in to read",
	"sign in to continue",
	"please log in",
	"로그인",
	"ログイン",
}

var ageKeywords = []string{
	"age verification",
	"must be 18",
	"adults only",
	"age-restricted",
}

var citationMarkers = []string{
	"<cite",
	"class=\"citation",
	"class=\"reference",
	"[1]",
	"et al.",
	"doi.org",
}

// adIndicators are counted as occurrences across the raw HTML
var adIndicators = []string{
	"advertisement",
	"sponsored",
	"adsbygoogle",
	"ad-container",
	"ad-banner",
	"ad-slot",
	"taboola",
	"outbrain",
}

var adFrameRe = regexp.MustCompile(`(?i)<(?:ins|iframe)[^>]*(?:adsense|doubleclick|googlesyndication|adservice)`)

// contentTypePatterns classify pages by scanning title + main text +
// URL. First match wins; the fallback is "general".
var contentTypePatterns = []struct {
	contentType models.ContentType
	patterns    []string
}{
	{models.ContentTypeArticle, []string{"/article/", "/news/", "byline", "min read"}},
	{models.ContentTypeBlog, []string{"/blog/", "posted by", "read more", "/posts/"}},
	{models.ContentTypeDocumentation, []string{"/docs/", "/documentation/", "api reference", "getting started", "installation guide", "/reference/"}},
	{models.ContentTypeProduct, []string{"add to cart", "buy now", "/product/", "in stock", "free shipping"}},
	{models.ContentTypeForum, []string{"/forum/", "/thread/", "reply", "upvote", "/t/", "joined:"}},
}

// Evaluator assesses extracted content: paywall/login/age flags,
// content type, language, ad density, content ratio and the overall
// plus LLM-suitability scores
type Evaluator struct {
	logger arbor.ILogger
}

func NewEvaluator(logger arbor.ILogger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate scores the content; rawHTML may be empty, in which case the
// HTML-dependent heuristics fall back to the main text
func (e *Evaluator) Evaluate(content *models.ExtractedContent, rawHTML string) *models.QualityInfo {
	if rawHTML == "" {
		rawHTML = content.RawHTML
	}
	text := content.MainText
	htmlLower := strings.ToLower(rawHTML)
	textLower := strings.ToLower(text)
	combined := htmlLower + "\n" + textLower

	info := &models.QualityInfo{
		WordCount: len(strings.Fields(text)),
		IsHTTPS:   strings.HasPrefix(content.SourceURL, "https://"),
	}
	info.ReadingTimeMin = (info.WordCount + 249) / 250

	info.HasPaywall = containsAny(combined, paywallKeywords) ||
		(len(text) < 500 && strings.Contains(htmlLower, "subscribe"))
	info.RequiresLogin = containsAny(combined, loginKeywords)
	info.AgeRestricted = containsAny(combined, ageKeywords)
	info.HasCitations = containsAny(combined, citationMarkers)
	info.HasStructuredData = strings.Contains(htmlLower, "application/ld+json")

	if content.Metadata != nil {
		if content.Metadata.Basic.Author != "" {
			info.HasAuthor = true
		}
		if content.Metadata.SchemaOrg.Article != nil {
			if content.Metadata.SchemaOrg.Article.Author != "" {
				info.HasAuthor = true
			}
			info.PublishDate = content.Metadata.SchemaOrg.Article.DatePublished
		}
	}

	info.ContentType = classifyContent(content.Title, text, content.SourceURL)
	info.Language = detectLanguage(text)
	info.AdDensity = adDensity(rawHTML)
	info.ContentRatio = contentRatio(len(text), len(rawHTML))
	info.NoiseRatio = clip01(1 - info.ContentRatio)
	info.EstimatedTokens = estimateTokens(text)
	info.Score = overallScore(info, content)
	info.LLMSuitability = llmSuitability(info)

	return info
}

// classifyContent scans title + text + URL lowercased against the
// pattern table; first match wins
func classifyContent(title, text, url string) models.ContentType {
	haystack := strings.ToLower(title + " " + text + " " + url)
	for _, entry := range contentTypePatterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(haystack, pattern) {
				return entry.contentType
			}
		}
	}
	return models.ContentTypeGeneral
}

// detectLanguage counts CJK glyph ranges; a ratio above 0.1 wins in
// precedence order Korean, Chinese, Japanese, otherwise English
func detectLanguage(text string) string {
	if text == "" {
		return "en"
	}

	var korean, chinese, japanese, total int
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			continue
		}
		total++
		switch {
		case r >= 0xAC00 && r <= 0xD7A3:
			korean++
		case r >= 0x4E00 && r <= 0x9FFF:
			chinese++
		case (r >= 0x3040 && r <= 0x309F) || (r >= 0x30A0 && r <= 0x30FF):
			japanese++
		}
	}
	if total == 0 {
		return "en"
	}

	threshold := float64(total) * 0.1
	switch {
	case float64(korean) > threshold:
		return "ko"
	case float64(chinese) > threshold:
		return "zh"
	case float64(japanese) > threshold:
		return "ja"
	}
	return "en"
}

// adDensity counts ad-indicator tokens plus ad-network frames, capped
// at 20 occurrences for a density of 1.0
func adDensity(rawHTML string) float64 {
	if rawHTML == "" {
		return 0
	}
	lower := strings.ToLower(rawHTML)

	count := 0
	for _, indicator := range adIndicators {
		count += strings.Count(lower, indicator)
	}
	count += len(adFrameRe.FindAllString(rawHTML, -1))

	density := float64(count) / 20
	if density > 1 {
		density = 1
	}
	return density
}

func contentRatio(textLen, htmlLen int) float64 {
	if textLen == 0 || htmlLen == 0 {
		return 0
	}
	ratio := 3 * float64(textLen) / float64(htmlLen)
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// estimateTokens approximates Latin characters at 4 per token and CJK
// at 1.5 per token
func estimateTokens(text string) int {
	var latin, cjk int
	for _, r := range text {
		if (r >= 0xAC00 && r <= 0xD7A3) || (r >= 0x4E00 && r <= 0x9FFF) ||
			(r >= 0x3040 && r <= 0x30FF) {
			cjk++
		} else {
			latin++
		}
	}
	return latin/4 + int(float64(cjk)/1.5)
}

// overallScore seeds at 0.5 and applies the flag adjustments, clipped
// to [0,1]
func overallScore(info *models.QualityInfo, content *models.ExtractedContent) float64 {
	score := 0.5

	if info.HasPaywall {
		score -= 0.3
	}
	if info.RequiresLogin {
		score -= 0.2
	}
	score -= 0.2 * info.AdDensity
	score += 0.2 * info.ContentRatio

	switch {
	case info.WordCount >= 100 && info.WordCount <= 5000:
		score += 0.1
	case info.WordCount > 5000:
		score += 0.05
	}

	if len(content.Headings) >= 2 {
		score += 0.05
	}
	if content.Metadata != nil && content.Metadata.Score > 0 {
		score += 0.05
	}

	return clip01(score)
}

// llmSuitability predicts retrieval-context fitness: rewarding a high
// content ratio and mid-length text, penalizing ads and oversized pages
func llmSuitability(info *models.QualityInfo) float64 {
	score := 0.5

	score += 0.3 * info.ContentRatio
	score -= 0.2 * info.AdDensity

	switch {
	case info.WordCount >= 500 && info.WordCount <= 3000:
		score += 0.2
	case info.WordCount < 500:
		score -= 0.1
	}

	if info.EstimatedTokens <= 8000 {
		score += 0.1
	} else if info.EstimatedTokens > 32000 {
		score -= 0.2
	}

	return clip01(score)
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
