package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
	"github.com/ternarybob/webflux/internal/services/cache"
	"github.com/ternarybob/webflux/internal/services/chunker"
	"github.com/ternarybob/webflux/internal/services/events"
	"github.com/ternarybob/webflux/internal/services/policy"
	"github.com/ternarybob/webflux/internal/services/progress"
	"github.com/ternarybob/webflux/internal/services/ratelimit"
	"github.com/ternarybob/webflux/internal/services/reconstruct"
)

func crawlTestConfig() *common.Config {
	return &common.Config{
		Crawler: common.CrawlerConfig{
			UserAgent:         "webflux/test",
			WorkerCount:       2,
			MaxDepth:          2,
			MaxURLs:           20,
			SameOriginOnly:    true,
			FetchTimeout:      5 * time.Second,
			DefaultCrawlDelay: time.Millisecond,
			MaxRetries:        1,
			RetryBackoff:      time.Millisecond,
			SettleGrace:       2 * time.Second,
		},
		Policy: common.PolicyConfig{
			TTL:            time.Hour,
			RequestTimeout: 5 * time.Second,
		},
		Chunking: common.ChunkingConfig{
			Strategy:     chunker.StrategyParagraph,
			MaxChunkSize: 2000,
		},
		Reconstruct: common.ReconstructConfig{Strategy: reconstruct.StrategyNone},
	}
}

type captureSink struct {
	saved atomic.Int32
}

func (s *captureSink) SaveChunk(_ context.Context, _ string, _ models.Chunk) error {
	s.saved.Add(1)
	return nil
}

func newCrawlService(t *testing.T, cfg *common.Config, bus *events.Service, sink ChunkSink) *Service {
	t.Helper()
	logger := testLogger()

	kv := cache.NewMemoryCache()
	t.Cleanup(func() { kv.Close() })
	policyService := policy.NewService(cfg.Policy, cfg.Crawler.UserAgent, kv, logger)

	limiter := ratelimit.NewLimiter(cfg.Crawler.DefaultCrawlDelay, cfg.Crawler.VisitTimeSkip, logger)
	factory := reconstruct.NewFactory(nil, nil, false, logger)
	chunkService := chunker.NewService(cfg.Chunking, nil, nil, logger)

	trackers := progress.NewManager(time.Hour, logger)
	t.Cleanup(func() { trackers.Close() })

	return NewService(cfg, policyService, limiter, factory, chunkService, trackers, bus, sink, logger)
}

func articlePage(body string) string {
	return `<html><body><article><h1>Title</h1><p>` + body + `</p></article></body></html>`
}

func TestCrawl_EndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", http.NotFound)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><article><h1>Home</h1>
<p>The landing page introduces the project and points at its guides.</p>
<a href="/a">Guide A</a> <a href="/b">Guide B</a> <a href="/file.pdf">Download</a>
</article></body></html>`))
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articlePage("Guide A explains the crawl pipeline in some depth.")))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articlePage("Guide B explains the chunking stage in some depth.")))
	})
	mux.HandleFunc("/file.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	bus := events.NewService(testLogger())
	defer bus.Close()

	var completed atomic.Int32
	var completedCancelled atomic.Bool
	_, err := bus.Subscribe(models.EventCrawlCompleted, func(_ context.Context, event models.Event) error {
		completed.Add(1)
		if payload, ok := event.Payload.(models.CrawlCompletedPayload); ok {
			completedCancelled.Store(payload.Cancelled)
		}
		return nil
	})
	require.NoError(t, err)

	sink := &captureSink{}
	service := newCrawlService(t, crawlTestConfig(), bus, sink)

	job, err := service.Crawl(context.Background(), []string{server.URL + "/"})
	require.NoError(t, err)

	var chunks []models.Chunk
	for chunk := range job.Chunks {
		chunks = append(chunks, chunk)
	}

	snap, err := job.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, snap.TotalURLs, "seed plus two guides plus the pdf")
	assert.Equal(t, 4, snap.ProcessedURLs)
	assert.Equal(t, 4, snap.SuccessURLs)
	assert.Equal(t, 0, snap.FailedURLs)
	assert.Equal(t, 1, snap.ContentTypeCounts["application/pdf"], "non-HTML completes with its true MIME type")

	require.NotEmpty(t, chunks)
	assert.Equal(t, len(chunks), snap.TotalChunks)
	assert.Equal(t, int32(len(chunks)), sink.saved.Load(), "every chunk reaches the sink")
	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk.SourceURL)
		assert.NotEmpty(t, chunk.Content)
	}

	assert.Equal(t, int32(1), completed.Load(), "completion event fires exactly once")
	assert.False(t, completedCancelled.Load())
}

func TestCrawl_RobotsDisallowRecorded(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><article><p>Public page with a gated link.</p>
<a href="/private/secret">secret</a></article></body></html>`))
	})
	mux.HandleFunc("/private/secret", func(w http.ResponseWriter, r *http.Request) {
		t.Error("disallowed URL must never be fetched")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	bus := events.NewService(testLogger())
	defer bus.Close()
	service := newCrawlService(t, crawlTestConfig(), bus, nil)

	job, err := service.Crawl(context.Background(), []string{server.URL + "/"})
	require.NoError(t, err)
	for range job.Chunks {
	}

	snap, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TotalURLs)
	assert.Equal(t, 1, snap.SuccessURLs)
	assert.Equal(t, 1, snap.FailedURLs)
	assert.Equal(t, 1, snap.ErrorTypeCounts["RobotsDisallow"])
}

func TestCrawl_SeedValidation(t *testing.T) {
	bus := events.NewService(testLogger())
	defer bus.Close()
	service := newCrawlService(t, crawlTestConfig(), bus, nil)

	_, err := service.Crawl(context.Background(), nil)
	assert.Error(t, err, "no seeds")

	_, err = service.Crawl(context.Background(), []string{"ftp://example.com/"})
	assert.Error(t, err, "non-http seed")
}

func TestCrawl_DuplicateSeedsCollapse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", http.NotFound)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articlePage("A single page crawled once despite duplicate seeds.")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	bus := events.NewService(testLogger())
	defer bus.Close()
	service := newCrawlService(t, crawlTestConfig(), bus, nil)

	job, err := service.Crawl(context.Background(), []string{server.URL + "/", server.URL + "/#top"})
	require.NoError(t, err)
	for range job.Chunks {
	}

	snap, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalURLs)
	assert.Equal(t, 1, snap.SuccessURLs)
}

func TestCrawl_CancellationSettles(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", http.NotFound)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articlePage("Slow page released after cancellation.")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	bus := events.NewService(testLogger())
	defer bus.Close()

	var completedCancelled atomic.Bool
	_, err := bus.Subscribe(models.EventCrawlCompleted, func(_ context.Context, event models.Event) error {
		if payload, ok := event.Payload.(models.CrawlCompletedPayload); ok {
			completedCancelled.Store(payload.Cancelled)
		}
		return nil
	})
	require.NoError(t, err)

	service := newCrawlService(t, crawlTestConfig(), bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	job, err := service.Crawl(ctx, []string{server.URL + "/"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	cancel()
	close(release)

	done := make(chan struct{})
	go func() {
		for range job.Chunks {
		}
		close(done)
	}()

	select {
	case <-job.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("cancelled job did not settle")
	}
	<-done

	assert.True(t, completedCancelled.Load())
	snap := job.Snapshot()
	hasCancelError := false
	for _, crawlErr := range snap.Errors {
		if crawlErr.Type == "cancelled" {
			hasCancelError = true
		}
	}
	assert.True(t, hasCancelError, "cancellation is recorded in the error list")
}
