package crawler

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
	"github.com/ternarybob/webflux/internal/services/metadata"
	"github.com/ternarybob/webflux/internal/services/quality"
)

// mainContentSelectors locate the content region for text extraction,
// in priority order
var mainContentSelectors = []string{
	"article", "main", `[role="main"]`, "#content", ".content", "body",
}

var strippedSelectors = []string{
	"nav", "header", "footer", "aside", "script", "style", "noscript",
	".ads", ".sidebar",
}

// ContentExtractor turns fetched HTML into ExtractedContent: main
// text, a markdown rendition, headings, images, links, the metadata
// bundle and the quality assessment
type ContentExtractor struct {
	metadata *metadata.Extractor
	quality  *quality.Evaluator
	logger   arbor.ILogger
}

func NewContentExtractor(logger arbor.ILogger) *ContentExtractor {
	return &ContentExtractor{
		metadata: metadata.NewExtractor(logger),
		quality:  quality.NewEvaluator(logger),
		logger:   logger,
	}
}

// Extract parses the fetched page. Metadata families that fail to
// parse are left empty; only unparseable HTML fails extraction.
func (e *ContentExtractor) Extract(result *models.FetchResult) (*models.ExtractedContent, error) {
	rawHTML := string(result.Body)
	sourceURL := result.EffectiveURL
	if sourceURL == "" {
		sourceURL = result.URL
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html for %s: %w", sourceURL, err)
	}

	content := &models.ExtractedContent{
		SourceURL: sourceURL,
		RawHTML:   rawHTML,
		Title:     strings.TrimSpace(doc.Find("title").First().Text()),
	}

	region := contentRegion(doc)
	cleaned := region.Clone()
	for _, selector := range strippedSelectors {
		cleaned.Find(selector).Remove()
	}

	content.MainText = collapseWhitespace(cleaned.Text())
	content.Headings = extractHeadings(doc)
	content.Images = extractImages(doc, sourceURL)
	content.Links = ExtractLinks(doc, sourceURL)
	content.Markdown = e.toMarkdown(cleaned, sourceURL)
	if href := doc.Find(`link[rel="manifest"]`).First().AttrOr("href", ""); href != "" {
		content.ManifestURL = common.ResolveURL(sourceURL, href)
	}

	meta, err := e.metadata.Extract(rawHTML, sourceURL)
	if err != nil {
		e.logger.Warn().Err(err).Str("url", sourceURL).Msg("Metadata extraction failed")
	} else {
		content.Metadata = meta
		content.Language = meta.Basic.Language
	}

	content.Quality = e.quality.Evaluate(content, rawHTML)
	if content.Language == "" {
		content.Language = content.Quality.Language
	}

	return content, nil
}

func (e *ContentExtractor) toMarkdown(region *goquery.Selection, sourceURL string) string {
	html, err := region.Html()
	if err != nil {
		e.logger.Debug().Err(err).Str("url", sourceURL).Msg("Failed to serialize content region")
		return ""
	}
	converter := md.NewConverter(sourceURL, true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		e.logger.Debug().Err(err).Str("url", sourceURL).Msg("Failed to convert content to markdown")
		return ""
	}
	return markdown
}

func contentRegion(doc *goquery.Document) *goquery.Selection {
	for _, selector := range mainContentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 && strings.TrimSpace(sel.Text()) != "" {
			return sel
		}
	}
	return doc.Selection
}

func extractHeadings(doc *goquery.Document) []models.Heading {
	var headings []models.Heading
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		level, _ := strconv.Atoi(goquery.NodeName(s)[1:])
		headings = append(headings, models.Heading{
			Level:  level,
			Text:   text,
			Anchor: s.AttrOr("id", ""),
		})
	})
	return headings
}

func extractImages(doc *goquery.Document, sourceURL string) []models.ImageRef {
	var images []models.ImageRef
	doc.Find("img[src]").Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		resolved := common.ResolveURL(sourceURL, src)
		if resolved == "" {
			return
		}
		img := models.ImageRef{
			URL:      resolved,
			Alt:      strings.TrimSpace(s.AttrOr("alt", "")),
			Position: i,
			Format:   imageFormat(resolved),
			Context:  surroundingText(s),
		}
		if w, err := strconv.Atoi(s.AttrOr("width", "")); err == nil {
			img.Width = w
		}
		if h, err := strconv.Atoi(s.AttrOr("height", "")); err == nil {
			img.Height = h
		}
		images = append(images, img)
	})
	return images
}

// ExtractLinks returns the absolute, normalized outbound links of a
// parsed page
func ExtractLinks(doc *goquery.Document, sourceURL string) []models.LinkRef {
	var links []models.LinkRef
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		resolved := common.NormalizeURL(common.ResolveURL(sourceURL, href))
		if resolved == "" || !common.IsHTTPURL(resolved) || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, models.LinkRef{
			URL:      resolved,
			Text:     strings.TrimSpace(s.Text()),
			Rel:      s.AttrOr("rel", ""),
			Internal: common.SameOrigin(sourceURL, resolved),
		})
	})
	return links
}

// surroundingText grabs a short snippet of the parent element's text as
// image context
func surroundingText(s *goquery.Selection) string {
	parent := s.Parent()
	if parent.Length() == 0 {
		return ""
	}
	text := collapseWhitespace(parent.Text())
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func imageFormat(rawURL string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(stripQuery(rawURL)), "."))
	switch ext {
	case "png", "jpg", "jpeg", "gif", "svg", "webp", "avif", "ico", "bmp":
		return ext
	}
	return ""
}

func stripQuery(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// collapseWhitespace normalizes runs of whitespace to single spaces
// while keeping paragraph breaks
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	// Trim a trailing blank line
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
