package chunker

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
)

// MemoryOptimizedStrategy streams fixed-size chunks through a bounded
// buffer without materializing the whole document a second time. It is
// the choice for inputs beyond the streaming threshold.
type MemoryOptimizedStrategy struct{}

func (s *MemoryOptimizedStrategy) Name() string { return StrategyMemoryOptimized }

func (s *MemoryOptimizedStrategy) Description() string {
	return "Streaming fixed-size chunking with a bounded in-flight buffer"
}

func (s *MemoryOptimizedStrategy) Chunk(ctx context.Context, content *models.ExtractedContent, opts Options) ([]models.Chunk, error) {
	out := make(chan models.Chunk, 8)
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.ChunkStream(ctx, strings.NewReader(content.MainText), content.SourceURL, opts, out)
		close(out)
	}()

	var chunks []models.Chunk
	for chunk := range out {
		chunks = append(chunks, chunk)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return chunks, nil
}

// ChunkStream reads from r and sends fixed-size chunks to out. The
// in-flight buffer never holds more than chunk size plus one read
// block; out is not closed by this function.
func (s *MemoryOptimizedStrategy) ChunkStream(ctx context.Context, r io.Reader, sourceURL string, opts Options, out chan<- models.Chunk) error {
	size := opts.MaxChunkSize
	if size <= 0 {
		size = 2000
	}
	overlap := opts.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	buf := make([]rune, 0, size*2)
	pending := make([]byte, 0, utf8.UTFMax)
	block := make([]byte, 4096)
	sequence := 0

	emit := func(body string) error {
		chunk := models.Chunk{
			Sequence:       sequence,
			Content:        body,
			Type:           models.ChunkTypeText,
			SourceURL:      sourceURL,
			Strategy:       StrategyMemoryOptimized,
			StrategyParams: baseParams(opts),
			Quality:        chunkQuality(body, opts),
		}
		chunk.ID = common.NewChunkID()
		select {
		case out <- chunk:
			sequence++
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// decode moves complete runes from pending into buf; a partial
	// UTF-8 sequence at the tail waits for the next read unless final
	decode := func(final bool) {
		for len(pending) > 0 {
			if !final && !utf8.FullRune(pending) {
				return
			}
			r, n := utf8.DecodeRune(pending)
			buf = append(buf, r)
			pending = pending[n:]
		}
	}

	for {
		n, err := r.Read(block)
		if n > 0 {
			pending = append(pending, block[:n]...)
			decode(false)
			for len(buf) >= size {
				if emitErr := emit(string(buf[:size])); emitErr != nil {
					return emitErr
				}
				// Keep the overlap tail as the next chunk's prefix
				buf = append(buf[:0], buf[size-overlap:]...)
			}
		}
		if err == io.EOF {
			decode(true)
			break
		}
		if err != nil {
			return err
		}
	}

	for len(buf) >= size {
		if emitErr := emit(string(buf[:size])); emitErr != nil {
			return emitErr
		}
		buf = append(buf[:0], buf[size-overlap:]...)
	}

	// Trailing remainder beyond the carried overlap
	if len(buf) > overlap || (sequence == 0 && len(buf) > 0) {
		return emit(string(buf))
	}
	return nil
}
