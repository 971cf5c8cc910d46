package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
)

// Extractor mines the metadata bundle from page HTML: basic head tags,
// OpenGraph, Twitter Cards, Schema.org JSON-LD, Dublin Core, document
// structure and accessibility signals, plus a completeness score.
type Extractor struct {
	logger arbor.ILogger
}

func NewExtractor(logger arbor.ILogger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract parses the HTML and returns the full metadata bundle.
// Individual families failing to parse leave their section empty;
// extraction itself only fails on unparseable HTML.
func (e *Extractor) Extract(html, sourceURL string) (*models.PageMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html for %s: %w", sourceURL, err)
	}

	meta := &models.PageMetadata{
		Basic:       e.extractBasic(doc, sourceURL),
		OpenGraph:   e.extractOpenGraph(doc),
		TwitterCard: e.extractTwitterCard(doc),
		SchemaOrg:   e.extractSchemaOrg(doc, sourceURL),
		DublinCore:  e.extractDublinCore(doc),
	}
	meta.Structure = e.extractStructure(doc)
	meta.Accessibility = e.extractAccessibility(doc)
	meta.Score = completenessScore(meta)

	return meta, nil
}

func (e *Extractor) extractBasic(doc *goquery.Document, sourceURL string) models.BasicMetadata {
	basic := models.BasicMetadata{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	if lang, ok := doc.Find("html").Attr("lang"); ok {
		basic.Language = strings.TrimSpace(lang)
	}
	if charset, ok := doc.Find("meta[charset]").Attr("charset"); ok {
		basic.Charset = strings.TrimSpace(charset)
	}

	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		switch strings.ToLower(name) {
		case "description":
			basic.Description = content
		case "keywords":
			for _, kw := range strings.Split(content, ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					basic.Keywords = append(basic.Keywords, kw)
				}
			}
		case "author":
			basic.Author = content
		case "robots":
			basic.Robots = content
		case "viewport":
			basic.Viewport = content
		case "theme-color":
			basic.ThemeColor = content
		}
	})

	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		basic.Canonical = common.ResolveURL(sourceURL, strings.TrimSpace(canonical))
	}

	doc.Find(`link[rel="alternate"][hreflang]`).Each(func(_ int, s *goquery.Selection) {
		hreflang, _ := s.Attr("hreflang")
		href, ok := s.Attr("href")
		if !ok || hreflang == "" {
			return
		}
		if basic.Alternates == nil {
			basic.Alternates = make(map[string]string)
		}
		basic.Alternates[hreflang] = common.ResolveURL(sourceURL, href)
	})

	return basic
}

func (e *Extractor) extractOpenGraph(doc *goquery.Document) models.OpenGraphMetadata {
	var og models.OpenGraphMetadata

	doc.Find(`meta[property^="og:"]`).Each(func(_ int, s *goquery.Selection) {
		property, _ := s.Attr("property")
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		switch strings.ToLower(property) {
		case "og:title":
			og.Title = content
		case "og:description":
			og.Description = content
		case "og:type":
			og.Type = content
		case "og:url":
			og.URL = content
		case "og:site_name":
			og.SiteName = content
		case "og:image":
			og.Image = content
		case "og:image:width":
			if w, err := strconv.Atoi(content); err == nil {
				og.ImageWidth = w
			}
		case "og:image:height":
			if h, err := strconv.Atoi(content); err == nil {
				og.ImageHeight = h
			}
		case "og:image:alt":
			og.ImageAlt = content
		case "og:locale":
			og.Locale = content
		}
	})

	return og
}

func (e *Extractor) extractTwitterCard(doc *goquery.Document) models.TwitterCardMetadata {
	var tw models.TwitterCardMetadata

	doc.Find(`meta[name^="twitter:"]`).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		switch strings.ToLower(name) {
		case "twitter:card":
			tw.Card = content
		case "twitter:site":
			tw.Site = content
		case "twitter:creator":
			tw.Creator = content
		case "twitter:title":
			tw.Title = content
		case "twitter:description":
			tw.Description = content
		case "twitter:image":
			tw.Image = content
		case "twitter:image:alt":
			tw.ImageAlt = content
		}
	})

	return tw
}

func (e *Extractor) extractDublinCore(doc *goquery.Document) models.DublinCoreMetadata {
	var dc models.DublinCoreMetadata

	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		key := strings.ToLower(name)
		if !strings.HasPrefix(key, "dc.") && !strings.HasPrefix(key, "dcterms.") {
			return
		}
		key = key[strings.IndexByte(key, '.')+1:]
		switch key {
		case "title":
			dc.Title = content
		case "creator":
			dc.Creator = content
		case "subject":
			dc.Subject = content
		case "description":
			dc.Description = content
		case "publisher":
			dc.Publisher = content
		case "date":
			dc.Date = content
		case "type":
			dc.Type = content
		case "format":
			dc.Format = content
		case "language":
			dc.Language = content
		case "rights":
			dc.Rights = content
		}
	})

	return dc
}

// completenessScore weights family presence: basic 25%, OpenGraph 20%,
// Schema.org 20%, structure 15%, technical 10%, accessibility 10%
func completenessScore(meta *models.PageMetadata) float64 {
	score := 0.25*basicScore(meta.Basic) +
		0.20*openGraphScore(meta.OpenGraph) +
		0.20*schemaScore(meta.SchemaOrg) +
		0.15*structureScore(meta.Structure) +
		0.10*technicalScore(meta.Basic) +
		0.10*(meta.Accessibility.Score/100)
	return clip01(score)
}

func basicScore(b models.BasicMetadata) float64 {
	var score float64
	if b.Title != "" {
		score += 0.35
	}
	if b.Description != "" {
		score += 0.35
	}
	if len(b.Keywords) > 0 {
		score += 0.10
	}
	if b.Author != "" {
		score += 0.10
	}
	if b.Canonical != "" {
		score += 0.10
	}
	return clip01(score)
}

func openGraphScore(og models.OpenGraphMetadata) float64 {
	var score float64
	if og.Title != "" {
		score += 0.30
	}
	if og.Description != "" {
		score += 0.25
	}
	if og.Image != "" {
		score += 0.25
	}
	if og.Type != "" {
		score += 0.10
	}
	if og.URL != "" {
		score += 0.10
	}
	return clip01(score)
}

func schemaScore(s models.SchemaOrgMetadata) float64 {
	var score float64
	if s.MainEntityType != "" {
		score += 0.50
	}
	if len(s.Breadcrumbs) > 0 {
		score += 0.20
	}
	if len(s.FAQItems) > 0 {
		score += 0.10
	}
	if len(s.RawJSONLD) > 1 {
		score += 0.20
	}
	return clip01(score)
}

func structureScore(st models.DocumentStructure) float64 {
	var score float64
	if len(st.Headings) > 0 {
		score += 0.40
	}
	if st.ParagraphCount > 2 {
		score += 0.30
	}
	if st.SectionCount > 0 {
		score += 0.15
	}
	if st.ListCount > 0 || st.TableCount > 0 {
		score += 0.15
	}
	return clip01(score)
}

func technicalScore(b models.BasicMetadata) float64 {
	var score float64
	if b.Language != "" {
		score += 0.30
	}
	if b.Charset != "" {
		score += 0.30
	}
	if b.Viewport != "" {
		score += 0.25
	}
	if b.Robots != "" {
		score += 0.15
	}
	return clip01(score)
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
