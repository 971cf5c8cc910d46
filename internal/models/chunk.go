package models

// ChunkType identifies the structural kind of a chunk
type ChunkType string

const (
	ChunkTypeText  ChunkType = "text"
	ChunkTypeCode  ChunkType = "code"
	ChunkTypeTable ChunkType = "table"
	ChunkTypeList  ChunkType = "list"
)

// Chunk is a retrieval unit of text with structural provenance.
// Sequence numbers are dense and 0-based per source URL; the heading
// path lists ancestor section titles from the outermost heading down to
// the nearest enclosing one.
type Chunk struct {
	ID                string            `json:"id"`
	Sequence          int               `json:"sequence"`
	Content           string            `json:"content"`
	Type              ChunkType         `json:"type"`
	SourceURL         string            `json:"source_url"`
	HeadingPath       []string          `json:"heading_path,omitempty"`
	SectionTitle      string            `json:"section_title,omitempty"`
	Quality           float64           `json:"quality"` // 0..1
	ParentID          string            `json:"parent_id,omitempty"`
	ChildIDs          []string          `json:"child_ids,omitempty"`
	RelatedImages     []string          `json:"related_images,omitempty"`
	Tags              []string          `json:"tags,omitempty"`
	ContextDependency float64           `json:"context_dependency"` // 0..1
	Strategy          string            `json:"strategy"`
	StrategyParams    map[string]string `json:"strategy_params,omitempty"`
}
