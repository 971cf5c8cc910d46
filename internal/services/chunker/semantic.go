package chunker

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/ternarybob/webflux/internal/interfaces"
	"github.com/ternarybob/webflux/internal/models"
)

const defaultSimilarityThreshold = 0.8

// SemanticStrategy groups consecutive paragraphs whose embedding stays
// close to the running group centroid. Without an embedding backend it
// falls back to paragraph chunking.
type SemanticStrategy struct {
	embedder  interfaces.EmbeddingService
	threshold float64
}

// NewSemanticStrategy builds the strategy; embedder may be nil, in
// which case every call degrades to paragraph chunking
func NewSemanticStrategy(embedder interfaces.EmbeddingService, threshold float64) *SemanticStrategy {
	if threshold <= 0 || threshold > 1 {
		threshold = defaultSimilarityThreshold
	}
	return &SemanticStrategy{embedder: embedder, threshold: threshold}
}

func (s *SemanticStrategy) Name() string { return StrategySemantic }

func (s *SemanticStrategy) Description() string {
	return "Groups consecutive paragraphs by embedding similarity to a running centroid"
}

func (s *SemanticStrategy) Chunk(ctx context.Context, content *models.ExtractedContent, opts Options) ([]models.Chunk, error) {
	if s.embedder == nil || !s.embedder.IsAvailable(ctx) {
		p := &ParagraphStrategy{}
		return p.Chunk(ctx, content, opts)
	}

	paragraphs := splitParagraphs(content.MainText)
	if len(paragraphs) == 0 {
		return nil, nil
	}

	var chunks []models.Chunk
	emit := func(group []string) {
		body := strings.Join(group, "\n\n")
		if strings.TrimSpace(body) == "" {
			return
		}
		params := baseParams(opts)
		params["similarity_threshold"] = strconv.FormatFloat(s.threshold, 'f', 2, 64)
		chunks = append(chunks, models.Chunk{
			Content:        body,
			Type:           models.ChunkTypeText,
			SourceURL:      content.SourceURL,
			Strategy:       StrategySemantic,
			StrategyParams: params,
			Quality:        chunkQuality(body, opts),
		})
	}

	var group []string
	var groupLen int
	var centroid []float64

	for i, paragraph := range paragraphs {
		embedding, err := s.embedder.GenerateEmbedding(ctx, paragraph)
		if err != nil {
			// Embedding failure mid-document: close the group, then
			// paragraph-chunk only the remainder so emitted content is
			// never duplicated
			if len(group) > 0 {
				emit(group)
			}
			p := &ParagraphStrategy{}
			rest, perr := p.Chunk(ctx, &models.ExtractedContent{
				SourceURL: content.SourceURL,
				MainText:  strings.Join(paragraphs[i:], "\n\n"),
			}, opts)
			if perr != nil {
				return nil, perr
			}
			for i := range rest {
				rest[i].Strategy = StrategySemantic
			}
			return resequence(append(chunks, rest...)), nil
		}

		tooBig := opts.MaxChunkSize > 0 && groupLen+len(paragraph) > opts.MaxChunkSize
		if len(group) > 0 && (tooBig || cosine(centroid, embedding) < s.threshold) {
			emit(group)
			group = nil
			groupLen = 0
			centroid = nil
		}

		group = append(group, paragraph)
		groupLen += len(paragraph) + 2
		centroid = updateCentroid(centroid, embedding, len(group))
	}
	if len(group) > 0 {
		emit(group)
	}

	return mergeShort(chunks, opts.MinChunkSize), nil
}

// updateCentroid folds one embedding into the running mean
func updateCentroid(centroid []float64, embedding []float32, n int) []float64 {
	if centroid == nil {
		centroid = make([]float64, len(embedding))
		for i, v := range embedding {
			centroid[i] = float64(v)
		}
		return centroid
	}
	if len(centroid) != len(embedding) {
		return centroid
	}
	for i, v := range embedding {
		centroid[i] += (float64(v) - centroid[i]) / float64(n)
	}
	return centroid
}

// cosine computes cosine similarity between the centroid and an
// embedding; mismatched or zero vectors score 0
func cosine(centroid []float64, embedding []float32) float64 {
	if len(centroid) == 0 || len(centroid) != len(embedding) {
		return 0
	}
	var dot, normA, normB float64
	for i, v := range embedding {
		b := float64(v)
		dot += centroid[i] * b
		normA += centroid[i] * centroid[i]
		normB += b * b
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
