package models

// Heading is one h1-h6 element in document order
type Heading struct {
	Level  int    `json:"level"` // 1..6
	Text   string `json:"text"`
	Anchor string `json:"anchor,omitempty"` // id attribute when present
}

// ImageRef describes an image discovered on a page
type ImageRef struct {
	URL      string `json:"url"`
	Alt      string `json:"alt,omitempty"`
	Context  string `json:"context,omitempty"` // Surrounding text
	Position int    `json:"position"`          // Document order index
	Format   string `json:"format,omitempty"`  // From extension: png, jpg, svg, ...
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// LinkRef describes an outbound link discovered on a page
type LinkRef struct {
	URL      string `json:"url"` // Absolute, normalized
	Text     string `json:"text,omitempty"`
	Rel      string `json:"rel,omitempty"`
	Internal bool   `json:"internal"` // Same origin as source page
}

// ExtractedContent is the output of the extract stage: parsed page
// content plus the metadata bundle and quality assessment. Markdown is
// the main content rendered through the HTML-to-markdown converter.
type ExtractedContent struct {
	SourceURL   string        `json:"source_url"`
	RawHTML     string        `json:"raw_html,omitempty"`
	MainText    string        `json:"main_text"`
	Markdown    string        `json:"markdown,omitempty"`
	Title       string        `json:"title,omitempty"`
	Headings    []Heading     `json:"headings,omitempty"`
	Images      []ImageRef    `json:"images,omitempty"`
	Links       []LinkRef     `json:"links,omitempty"`
	ManifestURL string        `json:"manifest_url,omitempty"` // From <link rel="manifest">
	Metadata    *PageMetadata `json:"metadata,omitempty"`
	Language    string        `json:"language,omitempty"`
	Quality     *QualityInfo  `json:"quality,omitempty"`
}

// ReconstructedContent is the output of a reconstruct strategy applied
// to extracted content before chunking
type ReconstructedContent struct {
	Source       *ExtractedContent `json:"source"`
	Content      string            `json:"content"`  // Text the chunkers operate on
	Strategy     string            `json:"strategy"` // Strategy name that produced it
	ModelUsed    string            `json:"model_used,omitempty"`
	InputTokens  int               `json:"input_tokens,omitempty"`
	OutputTokens int               `json:"output_tokens,omitempty"`
}
