package interfaces

import "context"

// EmbeddingService generates vector embeddings. The semantic chunker
// depends on it; when no implementation is available the chunker falls
// back to paragraph splitting.
type EmbeddingService interface {
	// Generate embedding for raw text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// Get model information
	ModelName() string
	Dimension() int

	// Check if service is available
	IsAvailable(ctx context.Context) bool
}
