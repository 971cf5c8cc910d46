package progress

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
)

// maxErrors bounds the error list kept in the snapshot; older entries
// are discarded first
const maxErrors = 1000

// Tracker holds the progress of a single crawl job. Every mutating call
// updates timings, recomputes the remaining-time estimate and publishes
// a deep-copied snapshot on the updates channel. The channel closes
// exactly once, when processed reaches total or on Complete/Cancel.
type Tracker struct {
	mu        sync.Mutex
	snapshot  models.ProgressSnapshot
	updates   chan models.ProgressSnapshot
	closed    bool
	startedAt time.Time
	totalResp time.Duration
	respCount int
	logger    arbor.ILogger
}

// NewTracker creates a tracker for a job with a known URL total. The
// total may grow later as links are discovered.
func NewTracker(jobID string, totalURLs int, logger arbor.ILogger) *Tracker {
	now := time.Now()
	return &Tracker{
		snapshot: models.ProgressSnapshot{
			JobID:             jobID,
			TotalURLs:         totalURLs,
			DomainCounts:      make(map[string]int),
			StatusCounts:      make(map[int]int),
			ContentTypeCounts: make(map[string]int),
			ErrorTypeCounts:   make(map[string]int),
			StartedAt:         now,
			LastUpdated:       now,
		},
		updates:   make(chan models.ProgressSnapshot, 64),
		startedAt: now,
		logger:    logger,
	}
}

// Updates returns the snapshot stream. The channel completes when the
// job finishes or is cancelled.
func (t *Tracker) Updates() <-chan models.ProgressSnapshot {
	return t.updates
}

// AddTotal raises the URL total as new work is discovered
func (t *Tracker) AddTotal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || n <= 0 {
		return
	}
	t.snapshot.TotalURLs += n
	t.publishLocked()
}

// StartURL marks a URL as being processed
func (t *Tracker) StartURL(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.snapshot.CurrentURL = url
	t.publishLocked()
}

// CompleteURL records a successful URL with its chunk yield and fetch
// statistics. The content type is the true response MIME.
func (t *Tracker) CompleteURL(url string, chunkCount int, bytes int64, responseTime time.Duration, statusCode int, contentType string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	t.snapshot.ProcessedURLs++
	t.snapshot.SuccessURLs++
	t.snapshot.TotalChunks += chunkCount
	t.recordFetchLocked(url, statusCode, contentType, responseTime)
	t.publishLocked()
	t.maybeFinishLocked()
}

// FailURL records a terminal per-URL failure
func (t *Tracker) FailURL(url, errType, message string, statusCode, retries int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	t.snapshot.ProcessedURLs++
	t.snapshot.FailedURLs++
	t.snapshot.ErrorTypeCounts[errType]++
	if statusCode > 0 {
		t.snapshot.StatusCounts[statusCode]++
	}
	if host := common.ExtractHost(url); host != "" {
		t.snapshot.DomainCounts[host]++
	}

	t.snapshot.Errors = append(t.snapshot.Errors, models.CrawlError{
		URL:        url,
		Type:       errType,
		Message:    message,
		StatusCode: statusCode,
		Retries:    retries,
		OccurredAt: time.Now(),
	})
	if len(t.snapshot.Errors) > maxErrors {
		t.snapshot.Errors = t.snapshot.Errors[len(t.snapshot.Errors)-maxErrors:]
	}

	t.publishLocked()
	t.maybeFinishLocked()
}

// Complete finishes the job and closes the updates channel
func (t *Tracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishLocked()
}

// Cancel finishes the job early, recording the reason as a job-level
// error entry, and closes the updates channel
func (t *Tracker) Cancel(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if reason != "" {
		t.snapshot.Errors = append(t.snapshot.Errors, models.CrawlError{
			Type:       "cancelled",
			Message:    reason,
			OccurredAt: time.Now(),
		})
	}
	t.finishLocked()
}

// Snapshot returns a deep copy of the current progress
func (t *Tracker) Snapshot() models.ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked()
}

// LastUpdated returns the time of the last mutating call
func (t *Tracker) LastUpdated() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot.LastUpdated
}

// Closed reports whether the tracker has finished
func (t *Tracker) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Tracker) recordFetchLocked(url string, statusCode int, contentType string, responseTime time.Duration) {
	if host := common.ExtractHost(url); host != "" {
		t.snapshot.DomainCounts[host]++
	}
	if statusCode > 0 {
		t.snapshot.StatusCounts[statusCode]++
	}
	if contentType != "" {
		t.snapshot.ContentTypeCounts[contentType]++
	}

	t.respCount++
	t.totalResp += responseTime
	rt := &t.snapshot.ResponseTimes
	if rt.Min == 0 || responseTime < rt.Min {
		rt.Min = responseTime
	}
	if responseTime > rt.Max {
		rt.Max = responseTime
	}
	rt.Avg = t.totalResp / time.Duration(t.respCount)
}

// publishLocked refreshes timings and pushes a snapshot copy onto the
// updates channel. Slow consumers drop intermediate snapshots rather
// than block the pipeline.
func (t *Tracker) publishLocked() {
	now := time.Now()
	t.snapshot.LastUpdated = now
	t.snapshot.Elapsed = now.Sub(t.startedAt)

	if t.snapshot.ProcessedURLs > 0 {
		perURL := t.snapshot.Elapsed / time.Duration(t.snapshot.ProcessedURLs)
		remaining := t.snapshot.TotalURLs - t.snapshot.ProcessedURLs
		if remaining > 0 {
			t.snapshot.EstimatedRemaining = perURL * time.Duration(remaining)
		} else {
			t.snapshot.EstimatedRemaining = 0
		}
	}

	select {
	case t.updates <- t.copyLocked():
	default:
	}
}

func (t *Tracker) maybeFinishLocked() {
	if t.snapshot.TotalURLs > 0 && t.snapshot.ProcessedURLs >= t.snapshot.TotalURLs {
		t.finishLocked()
	}
}

func (t *Tracker) finishLocked() {
	if t.closed {
		return
	}
	t.closed = true
	t.snapshot.CurrentURL = ""
	t.snapshot.LastUpdated = time.Now()
	t.snapshot.Elapsed = t.snapshot.LastUpdated.Sub(t.startedAt)
	t.snapshot.EstimatedRemaining = 0

	select {
	case t.updates <- t.copyLocked():
	default:
	}
	close(t.updates)
}

// copyLocked deep-copies the snapshot so readers never observe the
// tracker's internal mutable state
func (t *Tracker) copyLocked() models.ProgressSnapshot {
	snap := t.snapshot

	snap.Errors = append([]models.CrawlError(nil), t.snapshot.Errors...)

	snap.DomainCounts = make(map[string]int, len(t.snapshot.DomainCounts))
	for k, v := range t.snapshot.DomainCounts {
		snap.DomainCounts[k] = v
	}
	snap.StatusCounts = make(map[int]int, len(t.snapshot.StatusCounts))
	for k, v := range t.snapshot.StatusCounts {
		snap.StatusCounts[k] = v
	}
	snap.ContentTypeCounts = make(map[string]int, len(t.snapshot.ContentTypeCounts))
	for k, v := range t.snapshot.ContentTypeCounts {
		snap.ContentTypeCounts[k] = v
	}
	snap.ErrorTypeCounts = make(map[string]int, len(t.snapshot.ErrorTypeCounts))
	for k, v := range t.snapshot.ErrorTypeCounts {
		snap.ErrorTypeCounts[k] = v
	}

	return snap
}
