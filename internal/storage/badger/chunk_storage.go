package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/webflux/internal/models"
)

// StoredChunk is the persisted chunk record; JobID scopes chunks to the
// crawl that produced them
type StoredChunk struct {
	ID        string `badgerhold:"key"`
	JobID     string `badgerhold:"index"`
	SourceURL string `badgerhold:"index"`
	Sequence  int
	Chunk     models.Chunk
}

// ChunkStorage persists emitted chunks so a crawl's output survives the
// process. It is the CLI's sink when storage is enabled.
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) *ChunkStorage {
	return &ChunkStorage{db: db, logger: logger}
}

// SaveChunk upserts one chunk under its stable id
func (s *ChunkStorage) SaveChunk(_ context.Context, jobID string, chunk models.Chunk) error {
	if chunk.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}
	record := StoredChunk{
		ID:        chunk.ID,
		JobID:     jobID,
		SourceURL: chunk.SourceURL,
		Sequence:  chunk.Sequence,
		Chunk:     chunk,
	}
	if err := s.db.Store().Upsert(record.ID, &record); err != nil {
		return fmt.Errorf("failed to save chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// ChunksBySource returns a source URL's chunks in sequence order
func (s *ChunkStorage) ChunksBySource(_ context.Context, sourceURL string) ([]models.Chunk, error) {
	var records []StoredChunk
	query := badgerhold.Where("SourceURL").Eq(sourceURL).SortBy("Sequence")
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to load chunks for %s: %w", sourceURL, err)
	}
	chunks := make([]models.Chunk, len(records))
	for i := range records {
		chunks[i] = records[i].Chunk
	}
	return chunks, nil
}

// ChunksByTag returns every chunk carrying the tag, across jobs
func (s *ChunkStorage) ChunksByTag(_ context.Context, tag string) ([]models.Chunk, error) {
	var records []StoredChunk
	if err := s.db.Store().Find(&records, badgerhold.Where("Chunk.Tags").Contains(tag)); err != nil {
		return nil, fmt.Errorf("failed to load chunks tagged %s: %w", tag, err)
	}
	chunks := make([]models.Chunk, len(records))
	for i := range records {
		chunks[i] = records[i].Chunk
	}
	return chunks, nil
}

// ChunksByJob returns every chunk a job emitted
func (s *ChunkStorage) ChunksByJob(_ context.Context, jobID string) ([]models.Chunk, error) {
	var records []StoredChunk
	if err := s.db.Store().Find(&records, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("failed to load chunks for job %s: %w", jobID, err)
	}
	chunks := make([]models.Chunk, len(records))
	for i := range records {
		chunks[i] = records[i].Chunk
	}
	return chunks, nil
}

// DeleteJob removes a job's chunks
func (s *ChunkStorage) DeleteJob(_ context.Context, jobID string) error {
	if err := s.db.Store().DeleteMatching(&StoredChunk{}, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return fmt.Errorf("failed to delete chunks for job %s: %w", jobID, err)
	}
	return nil
}
