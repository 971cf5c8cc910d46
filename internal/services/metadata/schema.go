package metadata

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
)

// typeAliases maps specialized schema types onto the extractor that
// handles their base type
var typeAliases = map[string]string{
	"blogposting":         "article",
	"newsarticle":         "article",
	"softwarelibrary":     "softwareapplication",
	"softwaresourcecode":  "softwareapplication",
	"website":             "website",
	"organization":        "organization",
	"person":              "person",
	"article":             "article",
	"softwareapplication": "softwareapplication",
	"product":             "product",
}

// extractSchemaOrg parses every JSON-LD script on the page. The first
// parseable root supplies the main entity type; typed extractors
// dispatch on the lowercased @type. Malformed blocks are skipped,
// never fatal.
func (e *Extractor) extractSchemaOrg(doc *goquery.Document, sourceURL string) models.SchemaOrgMetadata {
	var schema models.SchemaOrgMetadata

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		body := strings.TrimSpace(s.Text())
		if body == "" {
			return
		}

		var root map[string]any
		if err := json.Unmarshal([]byte(body), &root); err != nil {
			e.logger.Debug().Str("url", sourceURL).Msg("Skipping malformed JSON-LD block")
			return
		}
		schema.RawJSONLD = append(schema.RawJSONLD, body)

		entityType := stringField(root, "@type")
		if entityType == "" {
			return
		}
		// The raw @type keeps its original casing; the lowercased alias
		// only routes to the typed extractors
		if schema.MainEntityType == "" {
			schema.MainEntityType = entityType
		}

		switch typeAliases[strings.ToLower(entityType)] {
		case "organization":
			if schema.Organization == nil {
				schema.Organization = parseOrganization(root)
			}
		case "person":
			if schema.Person == nil {
				schema.Person = parsePerson(root)
			}
		case "article":
			if schema.Article == nil {
				schema.Article = parseArticle(root)
			}
		case "softwareapplication":
			if schema.Software == nil {
				schema.Software = parseSoftware(root)
			}
		case "product":
			if schema.Product == nil {
				schema.Product = parseProduct(root)
			}
		case "website":
			if schema.WebSite == nil {
				schema.WebSite = parseWebSite(root)
			}
		}

		if strings.EqualFold(entityType, "BreadcrumbList") && len(schema.Breadcrumbs) == 0 {
			schema.Breadcrumbs = parseBreadcrumbList(root)
		}
		if strings.EqualFold(entityType, "FAQPage") && len(schema.FAQItems) == 0 {
			schema.FAQItems = parseFAQPage(root)
		}
	})

	if len(schema.Breadcrumbs) == 0 {
		schema.Breadcrumbs = mineBreadcrumbsFromDOM(doc, sourceURL)
	}
	if len(schema.FAQItems) == 0 {
		schema.FAQItems = mineFAQFromDOM(doc)
	}

	return schema
}

func parseOrganization(root map[string]any) *models.OrganizationSchema {
	org := &models.OrganizationSchema{
		Name:        stringField(root, "name"),
		Description: stringField(root, "description"),
		URL:         stringField(root, "url"),
		Logo:        nestedString(root, "logo", "url"),
	}
	if sameAs, ok := root["sameAs"].([]any); ok {
		for _, v := range sameAs {
			if s, ok := v.(string); ok {
				org.SameAs = append(org.SameAs, s)
			}
		}
	}
	return org
}

func parsePerson(root map[string]any) *models.PersonSchema {
	return &models.PersonSchema{
		Name:     stringField(root, "name"),
		JobTitle: stringField(root, "jobTitle"),
		URL:      stringField(root, "url"),
		Image:    nestedString(root, "image", "url"),
	}
}

func parseArticle(root map[string]any) *models.ArticleSchema {
	article := &models.ArticleSchema{
		Headline:    stringField(root, "headline"),
		Description: stringField(root, "description"),
		Author:      nestedString(root, "author", "name"),
		Publisher:   nestedString(root, "publisher", "name"),
		Image:       nestedString(root, "image", "url"),
		Section:     stringField(root, "articleSection"),
	}
	article.DatePublished = parseSchemaDate(stringField(root, "datePublished"))
	article.DateModified = parseSchemaDate(stringField(root, "dateModified"))
	return article
}

func parseSoftware(root map[string]any) *models.SoftwareSchema {
	return &models.SoftwareSchema{
		Name:            stringField(root, "name"),
		Description:     stringField(root, "description"),
		Version:         stringField(root, "softwareVersion"),
		OperatingSystem: stringField(root, "operatingSystem"),
		Category:        stringField(root, "applicationCategory"),
		License:         stringField(root, "license"),
		CodeRepository:  stringField(root, "codeRepository"),
	}
}

func parseProduct(root map[string]any) *models.ProductSchema {
	product := &models.ProductSchema{
		Name:        stringField(root, "name"),
		Description: stringField(root, "description"),
		Brand:       nestedString(root, "brand", "name"),
		SKU:         stringField(root, "sku"),
	}
	if offers, ok := root["offers"].(map[string]any); ok {
		product.Price = anyToString(offers["price"])
		product.Currency = stringField(offers, "priceCurrency")
	}
	if rating, ok := root["aggregateRating"].(map[string]any); ok {
		product.Rating = anyToFloat(rating["ratingValue"])
		product.ReviewCount = int(anyToFloat(rating["reviewCount"]))
	}
	return product
}

func parseWebSite(root map[string]any) *models.WebSiteSchema {
	site := &models.WebSiteSchema{
		Name: stringField(root, "name"),
		URL:  stringField(root, "url"),
	}
	if action, ok := root["potentialAction"].(map[string]any); ok {
		site.SearchURLFormat = stringField(action, "target")
		if target, ok := action["target"].(map[string]any); ok {
			site.SearchURLFormat = stringField(target, "urlTemplate")
		}
	}
	return site
}

func parseBreadcrumbList(root map[string]any) []models.BreadcrumbItem {
	elements, ok := root["itemListElement"].([]any)
	if !ok {
		return nil
	}

	var crumbs []models.BreadcrumbItem
	for i, el := range elements {
		item, ok := el.(map[string]any)
		if !ok {
			continue
		}
		crumb := models.BreadcrumbItem{
			Position: int(anyToFloat(item["position"])),
			Name:     stringField(item, "name"),
		}
		if crumb.Position == 0 {
			crumb.Position = i + 1
		}
		switch v := item["item"].(type) {
		case string:
			crumb.URL = v
		case map[string]any:
			crumb.URL = stringField(v, "@id")
			if crumb.Name == "" {
				crumb.Name = stringField(v, "name")
			}
		}
		if crumb.Name != "" {
			crumbs = append(crumbs, crumb)
		}
	}
	return crumbs
}

func parseFAQPage(root map[string]any) []models.FAQItem {
	entities, ok := root["mainEntity"].([]any)
	if !ok {
		return nil
	}

	var items []models.FAQItem
	for _, el := range entities {
		question, ok := el.(map[string]any)
		if !ok {
			continue
		}
		item := models.FAQItem{
			Question: stringField(question, "name"),
			Answer:   nestedString(question, "acceptedAnswer", "text"),
		}
		if item.Question != "" && item.Answer != "" {
			items = append(items, item)
		}
	}
	return items
}

// mineBreadcrumbsFromDOM looks for common breadcrumb markup when no
// BreadcrumbList schema was present
func mineBreadcrumbsFromDOM(doc *goquery.Document, sourceURL string) []models.BreadcrumbItem {
	var crumbs []models.BreadcrumbItem

	selection := doc.Find(`nav[aria-label="breadcrumb"] a, .breadcrumb a, .breadcrumbs a, ol.breadcrumb a`)
	selection.Each(func(i int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Text())
		if name == "" {
			return
		}
		crumb := models.BreadcrumbItem{Position: i + 1, Name: name}
		if href, ok := s.Attr("href"); ok {
			crumb.URL = common.ResolveURL(sourceURL, href)
		}
		crumbs = append(crumbs, crumb)
	})

	return crumbs
}

// mineFAQFromDOM pairs dt/dd definitions and details/summary blocks as
// question/answer candidates
func mineFAQFromDOM(doc *goquery.Document) []models.FAQItem {
	var items []models.FAQItem

	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		terms := dl.Find("dt")
		defs := dl.Find("dd")
		if terms.Length() == 0 || terms.Length() != defs.Length() {
			return
		}
		terms.Each(func(i int, dt *goquery.Selection) {
			question := strings.TrimSpace(dt.Text())
			answer := strings.TrimSpace(defs.Eq(i).Text())
			if question != "" && answer != "" && strings.HasSuffix(question, "?") {
				items = append(items, models.FAQItem{Question: question, Answer: answer})
			}
		})
	})

	doc.Find("details").Each(func(_ int, d *goquery.Selection) {
		question := strings.TrimSpace(d.Find("summary").First().Text())
		if question == "" || !strings.HasSuffix(question, "?") {
			return
		}
		answer := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(d.Text()), question))
		if answer != "" {
			items = append(items, models.FAQItem{Question: question, Answer: answer})
		}
	})

	return items
}

// parseSchemaDate accepts RFC 3339 and a few common date-only forms
func parseSchemaDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// stringField reads a top-level string member; nested author/publisher
// style members may be an object or a bare string
func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// nestedString reads m[key] as either a string or an object with the
// given inner member
func nestedString(m map[string]any, key, inner string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		return stringField(v, inner)
	case []any:
		if len(v) > 0 {
			if obj, ok := v[0].(map[string]any); ok {
				return stringField(obj, inner)
			}
			if s, ok := v[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func anyToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func anyToFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return 0
}
