package models

import "time"

// ContentType classifies a page into a coarse editorial category
type ContentType string

const (
	ContentTypeArticle       ContentType = "article"
	ContentTypeBlog          ContentType = "blog"
	ContentTypeDocumentation ContentType = "documentation"
	ContentTypeProduct       ContentType = "product"
	ContentTypeForum         ContentType = "forum"
	ContentTypeGeneral       ContentType = "general"
)

// QualityInfo is the content quality assessment of a page
type QualityInfo struct {
	Score             float64     `json:"score"` // Overall, 0..1
	ContentType       ContentType `json:"content_type"`
	Language          string      `json:"language"`
	ReadingTimeMin    int         `json:"reading_time_min"`
	WordCount         int         `json:"word_count"`
	HasPaywall        bool        `json:"has_paywall"`
	RequiresLogin     bool        `json:"requires_login"`
	AgeRestricted     bool        `json:"age_restricted"`
	ContentRatio      float64     `json:"content_ratio"` // min(1, 3*text/html)
	AdDensity         float64     `json:"ad_density"`    // 0..1
	HasStructuredData bool        `json:"has_structured_data"`
	HasAuthor         bool        `json:"has_author"`
	PublishDate       *time.Time  `json:"publish_date,omitempty"`
	HasCitations      bool        `json:"has_citations"`
	IsHTTPS           bool        `json:"is_https"`
	LLMSuitability    float64     `json:"llm_suitability"` // 0..1
	EstimatedTokens   int         `json:"estimated_tokens"`
	NoiseRatio        float64     `json:"noise_ratio"` // 0..1
}
