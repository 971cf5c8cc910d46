package models

import "time"

// PageMetadata bundles every metadata family extracted from a page.
// Families that were absent from the page are left as zero values; the
// presence flags on each family record whether anything was found.
type PageMetadata struct {
	Basic         BasicMetadata       `json:"basic"`
	OpenGraph     OpenGraphMetadata   `json:"open_graph"`
	TwitterCard   TwitterCardMetadata `json:"twitter_card"`
	SchemaOrg     SchemaOrgMetadata   `json:"schema_org"`
	DublinCore    DublinCoreMetadata  `json:"dublin_core"`
	Structure     DocumentStructure   `json:"structure"`
	Accessibility AccessibilityInfo   `json:"accessibility"`
	Manifest      *WebManifest        `json:"manifest,omitempty"`
	Score         float64             `json:"score"` // Completeness score in [0,1]
}

// BasicMetadata holds standard head metadata
type BasicMetadata struct {
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Keywords    []string          `json:"keywords,omitempty"`
	Author      string            `json:"author,omitempty"`
	Robots      string            `json:"robots,omitempty"`
	Language    string            `json:"language,omitempty"`
	Charset     string            `json:"charset,omitempty"`
	Viewport    string            `json:"viewport,omitempty"`
	ThemeColor  string            `json:"theme_color,omitempty"`
	Canonical   string            `json:"canonical,omitempty"`
	Alternates  map[string]string `json:"alternates,omitempty"` // hreflang -> URL
}

// OpenGraphMetadata holds og:* properties
type OpenGraphMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	URL         string `json:"url,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Image       string `json:"image,omitempty"`
	ImageWidth  int    `json:"image_width,omitempty"`
	ImageHeight int    `json:"image_height,omitempty"`
	ImageAlt    string `json:"image_alt,omitempty"`
	Locale      string `json:"locale,omitempty"`
}

// TwitterCardMetadata holds twitter:* properties
type TwitterCardMetadata struct {
	Card        string `json:"card,omitempty"`
	Site        string `json:"site,omitempty"`
	Creator     string `json:"creator,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	ImageAlt    string `json:"image_alt,omitempty"`
}

// SchemaOrgMetadata holds structured data mined from JSON-LD scripts and
// DOM patterns. RawJSONLD preserves the original script bodies so sinks
// can re-process them without another parse of the page.
type SchemaOrgMetadata struct {
	MainEntityType string              `json:"main_entity_type,omitempty"`
	Organization   *OrganizationSchema `json:"organization,omitempty"`
	Person         *PersonSchema       `json:"person,omitempty"`
	Article        *ArticleSchema      `json:"article,omitempty"`
	Software       *SoftwareSchema     `json:"software,omitempty"`
	Product        *ProductSchema      `json:"product,omitempty"`
	WebSite        *WebSiteSchema      `json:"website,omitempty"`
	Breadcrumbs    []BreadcrumbItem    `json:"breadcrumbs,omitempty"`
	FAQItems       []FAQItem           `json:"faq_items,omitempty"`
	RawJSONLD      []string            `json:"raw_json_ld,omitempty"`
}

type OrganizationSchema struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Logo        string   `json:"logo,omitempty"`
	SameAs      []string `json:"same_as,omitempty"`
}

type PersonSchema struct {
	Name     string `json:"name,omitempty"`
	JobTitle string `json:"job_title,omitempty"`
	URL      string `json:"url,omitempty"`
	Image    string `json:"image,omitempty"`
}

type ArticleSchema struct {
	Headline      string     `json:"headline,omitempty"`
	Description   string     `json:"description,omitempty"`
	Author        string     `json:"author,omitempty"`
	Publisher     string     `json:"publisher,omitempty"`
	DatePublished *time.Time `json:"date_published,omitempty"`
	DateModified  *time.Time `json:"date_modified,omitempty"`
	Image         string     `json:"image,omitempty"`
	Section       string     `json:"section,omitempty"`
}

type SoftwareSchema struct {
	Name            string `json:"name,omitempty"`
	Description     string `json:"description,omitempty"`
	Version         string `json:"version,omitempty"`
	OperatingSystem string `json:"operating_system,omitempty"`
	Category        string `json:"category,omitempty"`
	License         string `json:"license,omitempty"`
	CodeRepository  string `json:"code_repository,omitempty"`
}

type ProductSchema struct {
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	SKU         string  `json:"sku,omitempty"`
	Price       string  `json:"price,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`
}

type WebSiteSchema struct {
	Name            string `json:"name,omitempty"`
	URL             string `json:"url,omitempty"`
	SearchURLFormat string `json:"search_url_format,omitempty"`
}

// BreadcrumbItem is one entry of an ordered breadcrumb trail
type BreadcrumbItem struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
}

// FAQItem is a question/answer pair from FAQPage schema or DOM patterns
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// DublinCoreMetadata holds DC.* meta tags
type DublinCoreMetadata struct {
	Title       string `json:"title,omitempty"`
	Creator     string `json:"creator,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Description string `json:"description,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Date        string `json:"date,omitempty"`
	Type        string `json:"type,omitempty"`
	Format      string `json:"format,omitempty"`
	Language    string `json:"language,omitempty"`
	Rights      string `json:"rights,omitempty"`
}

// HeadingNode is one heading in the document heading tree
type HeadingNode struct {
	Level    int           `json:"level"` // 1..6
	Text     string        `json:"text"`
	Anchor   string        `json:"anchor,omitempty"`
	Children []HeadingNode `json:"children,omitempty"`
}

// DocumentStructure summarizes the structural shape of a document
type DocumentStructure struct {
	Headings       []Heading     `json:"headings"` // Flat, document order
	HeadingTree    []HeadingNode `json:"heading_tree,omitempty"`
	SectionCount   int           `json:"section_count"`
	ParagraphCount int           `json:"paragraph_count"`
	LinkCount      int           `json:"link_count"`
	ImageCount     int           `json:"image_count"`
	TableCount     int           `json:"table_count"`
	ListCount      int           `json:"list_count"`
	CodeBlockCount int           `json:"code_block_count"`
	WordCount      int           `json:"word_count"`
	ReadingTimeMin int           `json:"reading_time_min"` // ceil(words / 250)
	Complexity     float64       `json:"complexity"`       // 0..1
}

// AccessibilityInfo summarizes accessibility signals of a document
type AccessibilityInfo struct {
	AltTextCoverage       float64 `json:"alt_text_coverage"` // imgs with alt / total imgs, 1.0 when no imgs
	ValidHeadingHierarchy bool    `json:"valid_heading_hierarchy"`
	HasSkipNav            bool    `json:"has_skip_nav"`
	UsesARIA              bool    `json:"uses_aria"`
	Score                 float64 `json:"score"` // 0..100
}
