package crawler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
)

// Frontier is the set of URLs known to a job but not yet fetched:
// a priority queue (shallower depth first, then insertion time) with
// deduplication by normalized URL. It drains itself: when every popped
// item has been marked done and nothing is queued, Pop returns nil.
type Frontier struct {
	items       *recordHeap
	seen        map[string]bool
	mu          sync.Mutex
	cond        *sync.Cond
	outstanding int // Popped but not yet marked Done
	accepted    int
	maxURLs     int
	maxDepth    int
	closed      bool
}

type recordHeap []*models.URLRecord

func (h recordHeap) Len() int { return len(h) }

func (h recordHeap) Less(i, j int) bool {
	if h[i].Depth != h[j].Depth {
		return h[i].Depth < h[j].Depth
	}
	return h[i].AddedAt.Before(h[j].AddedAt)
}

func (h recordHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *recordHeap) Push(x any) { *h = append(*h, x.(*models.URLRecord)) }

func (h *recordHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// NewFrontier creates a frontier bounded by depth and total accepted
// URLs; zero bounds mean unbounded
func NewFrontier(maxDepth, maxURLs int) *Frontier {
	h := &recordHeap{}
	heap.Init(h)
	f := &Frontier{
		items:    h,
		seen:     make(map[string]bool),
		maxURLs:  maxURLs,
		maxDepth: maxDepth,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Push enqueues a URL record once. Duplicates, over-depth and
// over-budget records are dropped; the return value reports acceptance.
func (f *Frontier) Push(record *models.URLRecord) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if f.maxDepth > 0 && record.Depth > f.maxDepth {
		return false
	}
	if f.maxURLs > 0 && f.accepted >= f.maxURLs {
		return false
	}

	normalized := common.NormalizeURL(record.URL)
	if normalized == "" || f.seen[normalized] {
		return false
	}

	f.seen[normalized] = true
	f.accepted++
	record.URL = normalized
	if record.AddedAt.IsZero() {
		record.AddedAt = time.Now()
	}
	heap.Push(f.items, record)
	f.cond.Signal()
	return true
}

// Pop blocks until a record is available, the frontier drains, or the
// context is cancelled. A nil record with nil error means drained.
func (f *Frontier) Pop(ctx context.Context) (*models.URLRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if f.items.Len() > 0 {
			record := heap.Pop(f.items).(*models.URLRecord)
			f.outstanding++
			return record, nil
		}
		if f.closed || f.outstanding == 0 {
			// Nothing queued and nothing in flight that could enqueue more
			return nil, nil
		}

		// Wake periodically so context cancellation is never missed
		timer := time.AfterFunc(time.Second, func() { f.cond.Broadcast() })
		f.cond.Wait()
		timer.Stop()
	}
}

// Done marks one popped record as fully processed. When the last
// in-flight record completes against an empty queue, waiting Pops
// observe the drain.
func (f *Frontier) Done() {
	f.mu.Lock()
	if f.outstanding > 0 {
		f.outstanding--
	}
	if f.outstanding == 0 && f.items.Len() == 0 {
		f.cond.Broadcast()
	}
	f.mu.Unlock()
}

// Accepted returns how many URLs the frontier has admitted
func (f *Frontier) Accepted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accepted
}

// Len returns the queued (not yet popped) count
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items.Len()
}

// Close drains the frontier immediately; waiting Pops return nil
func (f *Frontier) Close() {
	f.mu.Lock()
	f.closed = true
	f.cond.Broadcast()
	f.mu.Unlock()
}
