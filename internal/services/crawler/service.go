package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/interfaces"
	"github.com/ternarybob/webflux/internal/models"
	"github.com/ternarybob/webflux/internal/services/chunker"
	"github.com/ternarybob/webflux/internal/services/policy"
	"github.com/ternarybob/webflux/internal/services/progress"
	"github.com/ternarybob/webflux/internal/services/ratelimit"
	"github.com/ternarybob/webflux/internal/services/reconstruct"
)

// ChunkSink receives every chunk the pipeline emits, in addition to the
// job's chunk stream. Persistence backends implement this.
type ChunkSink interface {
	SaveChunk(ctx context.Context, jobID string, chunk models.Chunk) error
}

// Service orchestrates crawl jobs: it runs the worker pool over the
// frontier and drives each URL through fetch, extract, reconstruct and
// chunk, consulting the policy cache and rate limiter on the way.
type Service struct {
	config      common.CrawlerConfig
	reconstruct common.ReconstructConfig
	policy      *policy.Service
	limiter     *ratelimit.Limiter
	fetcher     *Fetcher
	extractor   *ContentExtractor
	factory     *reconstruct.Factory
	chunker     *chunker.Service
	progress    *progress.Manager
	events      interfaces.EventService
	sink        ChunkSink // Optional
	logger      arbor.ILogger
}

// NewService wires the crawl orchestrator. The sink may be nil; chunks
// then flow only through the job's channel.
func NewService(
	cfg *common.Config,
	policyService *policy.Service,
	limiter *ratelimit.Limiter,
	factory *reconstruct.Factory,
	chunkService *chunker.Service,
	trackers *progress.Manager,
	bus interfaces.EventService,
	sink ChunkSink,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:      cfg.Crawler,
		reconstruct: cfg.Reconstruct,
		policy:      policyService,
		limiter:     limiter,
		fetcher:     NewFetcher(cfg.Crawler, limiter, logger),
		extractor:   NewContentExtractor(logger),
		factory:     factory,
		chunker:     chunkService,
		progress:    trackers,
		events:      bus,
		sink:        sink,
		logger:      logger,
	}
}

// Job is a handle to a running crawl. Chunks closes after the final
// per-URL event; Progress closes when the job finishes or is cancelled.
type Job struct {
	ID       string
	Chunks   <-chan models.Chunk
	Progress <-chan models.ProgressSnapshot

	tracker *progress.Tracker
	done    chan struct{}
}

// Done completes when the job has fully settled
func (j *Job) Done() <-chan struct{} { return j.done }

// Snapshot returns the current progress of the job
func (j *Job) Snapshot() models.ProgressSnapshot { return j.tracker.Snapshot() }

// Wait blocks until the job settles or the context is cancelled,
// returning the final snapshot
func (j *Job) Wait(ctx context.Context) (models.ProgressSnapshot, error) {
	select {
	case <-ctx.Done():
		return j.tracker.Snapshot(), ctx.Err()
	case <-j.done:
		return j.tracker.Snapshot(), nil
	}
}

// crawlJob carries the per-job state shared by the workers
type crawlJob struct {
	service  *Service
	id       string
	frontier *Frontier
	filter   *LinkFilter
	tracker  *progress.Tracker
	chunks   chan models.Chunk

	// settleCtx outlives the job context by the settle grace so
	// in-flight URLs can finish after cancellation
	settleCtx context.Context

	hostsMu sync.Mutex
	hosts   map[string]bool // Hosts whose policy has been applied
}

// Crawl starts a job over the seed URLs. Cancelling the context stops
// new fetches immediately; in-flight URLs settle within the configured
// grace before the job completes with the cancelled flag set.
func (s *Service) Crawl(ctx context.Context, seeds []string) (*Job, error) {
	if len(seeds) == 0 {
		return nil, errors.New("at least one seed url is required")
	}

	jobCtx := ctx
	var timeoutCancel context.CancelFunc
	if s.config.JobTimeout > 0 {
		jobCtx, timeoutCancel = context.WithTimeout(ctx, s.config.JobTimeout)
	}

	frontier := NewFrontier(s.config.MaxDepth, s.config.MaxURLs)
	seeded := 0
	for _, seed := range seeds {
		if !common.IsHTTPURL(seed) {
			if timeoutCancel != nil {
				timeoutCancel()
			}
			return nil, fmt.Errorf("seed %q is not an http(s) url", seed)
		}
		if frontier.Push(&models.URLRecord{URL: seed, Depth: 0, Reason: models.DiscoverySeed}) {
			seeded++
		}
	}
	if seeded == 0 {
		if timeoutCancel != nil {
			timeoutCancel()
		}
		return nil, errors.New("no seed url was accepted")
	}

	jobID := common.NewJobID()
	tracker := s.progress.Create(jobID, seeded)

	settleCtx, settleCancel := context.WithCancel(context.Background())

	job := &crawlJob{
		service:   s,
		id:        jobID,
		frontier:  frontier,
		filter:    NewLinkFilter(s.config.AllowPatterns, s.config.DenyPatterns, s.config.SameOriginOnly, seeds, s.logger),
		tracker:   tracker,
		chunks:    make(chan models.Chunk, 256),
		settleCtx: settleCtx,
		hosts:     make(map[string]bool),
	}

	handle := &Job{
		ID:       jobID,
		Chunks:   job.chunks,
		Progress: tracker.Updates(),
		tracker:  tracker,
		done:     make(chan struct{}),
	}

	if err := s.events.Publish(jobCtx, models.NewEvent(models.EventCrawlStarted, jobID, models.CrawlStartedPayload{
		SeedURLs: seeds,
		MaxDepth: s.config.MaxDepth,
		MaxURLs:  s.config.MaxURLs,
	})); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to publish crawl start event")
	}

	workers := s.config.WorkerCount
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.run(jobCtx)
		}()
	}

	// Cancellation drains the frontier; workers then stop popping and
	// the settle grace bounds their in-flight work.
	go func() {
		select {
		case <-jobCtx.Done():
			frontier.Close()
			grace := s.config.SettleGrace
			if grace <= 0 {
				grace = 5 * time.Second
			}
			timer := time.NewTimer(grace)
			select {
			case <-timer.C:
				settleCancel()
			case <-handle.done:
				timer.Stop()
			}
		case <-handle.done:
		}
	}()

	go func() {
		wg.Wait()

		cancelled := jobCtx.Err() != nil
		if cancelled {
			tracker.Cancel("crawl cancelled")
		} else {
			tracker.Complete()
		}

		finalCtx, finalCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.events.Publish(finalCtx, models.NewEvent(models.EventCrawlCompleted, jobID, models.CrawlCompletedPayload{
			Snapshot:  tracker.Snapshot(),
			Cancelled: cancelled,
		})); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to publish crawl completion event")
		}
		finalCancel()

		close(job.chunks)
		close(handle.done)
		settleCancel()
		if timeoutCancel != nil {
			timeoutCancel()
		}

		s.logger.Info().
			Str("job_id", jobID).
			Int("processed", tracker.Snapshot().ProcessedURLs).
			Int("chunks", tracker.Snapshot().TotalChunks).
			Bool("cancelled", cancelled).
			Msg("Crawl finished")
	}()

	return handle, nil
}

// run is one worker's loop: pop, process, mark done, until the frontier
// drains or the job context is cancelled
func (j *crawlJob) run(ctx context.Context) {
	for {
		record, err := j.frontier.Pop(ctx)
		if err != nil || record == nil {
			return
		}
		j.process(record)
		j.frontier.Done()
	}
}

// process drives one URL through the pipeline. All per-URL failures are
// terminal here; retries already happened inside the fetcher.
func (j *crawlJob) process(record *models.URLRecord) {
	s := j.service
	ctx := j.settleCtx
	url := record.URL

	j.tracker.StartURL(url)
	s.events.PublishSync(ctx, models.NewEvent(models.EventURLProcessingStart, j.id, models.URLProcessingPayload{
		URL:   url,
		Depth: record.Depth,
	}))

	host := common.ExtractHost(url)

	snapshot, err := s.policy.Snapshot(ctx, url)
	if err != nil {
		j.fail(url, failure(ErrInternal, 0, err))
		return
	}
	j.applyHostPolicy(host, snapshot, record.Depth)

	allowed, err := s.policy.IsAllowed(ctx, url)
	if err != nil {
		j.fail(url, failure(ErrInternal, 0, err))
		return
	}
	if !allowed {
		j.fail(url, failure(ErrRobotsDisallow, 0, errors.New("disallowed by robots.txt")))
		return
	}

	if err := s.limiter.Acquire(ctx, host); err != nil {
		switch {
		case errors.Is(err, ratelimit.ErrOutsideVisitTime):
			j.fail(url, failure(ErrQuotaExceeded, 0, err))
		case ctx.Err() != nil:
			j.fail(url, failure(ErrCancelled, 0, err))
		default:
			j.fail(url, failure(ErrInternal, 0, err))
		}
		return
	}

	result, crawlErr := s.fetcher.Fetch(ctx, url)
	if crawlErr != nil {
		j.fail(url, crawlErr)
		return
	}

	// Non-HTML responses count as processed but yield no chunks; the
	// true MIME still lands in the progress counters.
	if !isHTML(result.ContentType) {
		j.complete(url, result, 0)
		return
	}

	content, err := s.extractor.Extract(result)
	if err != nil {
		j.fail(url, failure(ErrParse, result.StatusCode, err))
		return
	}

	if content.ManifestURL != "" {
		s.policy.ApplyManifestLink(ctx, url, content.ManifestURL)
	}

	j.enqueueLinks(record, content.Links)

	chunks, err := j.chunkContent(ctx, content)
	if err != nil {
		var capErr *CrawlFailure
		if errors.As(err, &capErr) {
			j.fail(url, capErr)
		} else {
			j.fail(url, failure(ErrInternal, result.StatusCode, err))
		}
		return
	}

	for i := range chunks {
		if chunks[i].SourceURL == "" {
			chunks[i].SourceURL = content.SourceURL
		}
		if s.sink != nil {
			if err := s.sink.SaveChunk(ctx, j.id, chunks[i]); err != nil {
				s.logger.Warn().Err(err).Str("url", url).Msg("Failed to persist chunk")
			}
		}
		select {
		case j.chunks <- chunks[i]:
		case <-ctx.Done():
			j.fail(url, failure(ErrCancelled, result.StatusCode, ctx.Err()))
			return
		}
	}

	j.complete(url, result, len(chunks))
}

// chunkContent runs the reconstruct stage then the chunker. A pinned
// reconstruct strategy without its backend is a hard failure; transient
// LLM errors degrade to the extracted text with a warning.
func (j *crawlJob) chunkContent(ctx context.Context, content *models.ExtractedContent) ([]models.Chunk, error) {
	s := j.service

	strategy, err := s.factory.Select(s.reconstruct.Strategy, content)
	if err != nil {
		return nil, failure(ErrCapabilityUnavailable, 0, err)
	}

	target := content
	recon, err := strategy.Reconstruct(ctx, content, reconstruct.Options{Model: s.reconstruct.Model})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("url", content.SourceURL).
			Str("strategy", strategy.Name()).
			Msg("Reconstruction failed, chunking extracted text")
		s.events.PublishSync(ctx, models.NewEvent(models.EventCrawlWarning, j.id, models.CrawlErrorPayload{
			Message: fmt.Sprintf("reconstruction failed: %v", err),
			URL:     content.SourceURL,
		}))
	} else if recon.Strategy != reconstruct.StrategyNone && recon.Content != "" {
		// Reconstructed text no longer matches the page DOM, so the
		// chunkers operate on the text alone
		modified := *content
		modified.MainText = recon.Content
		modified.RawHTML = ""
		target = &modified
	}

	return s.chunker.Chunk(ctx, target)
}

// applyHostPolicy configures the rate limiter from robots metadata and
// seeds the frontier from the host's sitemaps, once per host
func (j *crawlJob) applyHostPolicy(host string, snapshot *models.HostPolicy, depth int) {
	j.hostsMu.Lock()
	if j.hosts[host] {
		j.hostsMu.Unlock()
		return
	}
	j.hosts[host] = true
	j.hostsMu.Unlock()

	s := j.service
	s.limiter.ApplyPolicy(host, snapshot.Robots, s.config.UserAgent)

	if !s.config.FollowSitemaps {
		return
	}
	for _, sitemapURL := range snapshot.Sitemaps {
		if verdict := j.filter.Filter(sitemapURL); !verdict.Allowed {
			continue
		}
		if j.frontier.Push(&models.URLRecord{
			URL:    sitemapURL,
			Depth:  depth + 1,
			Reason: models.DiscoverySitemap,
		}) {
			j.tracker.AddTotal(1)
		}
	}
}

// enqueueLinks filters the discovered links and admits survivors to the
// frontier at the next depth
func (j *crawlJob) enqueueLinks(parent *models.URLRecord, links []models.LinkRef) {
	for _, link := range links {
		verdict := j.filter.Filter(link.URL)
		if !verdict.Allowed {
			continue
		}
		if j.frontier.Push(&models.URLRecord{
			URL:       link.URL,
			Depth:     parent.Depth + 1,
			ParentURL: parent.URL,
			Reason:    models.DiscoveryLink,
		}) {
			j.tracker.AddTotal(1)
		}
	}
}

// complete records a successful URL and publishes its terminal event
// after every chunk has been emitted
func (j *crawlJob) complete(url string, result *models.FetchResult, chunkCount int) {
	j.tracker.CompleteURL(url, chunkCount, result.Size, result.ResponseTime, result.StatusCode, result.ContentType)
	j.service.events.PublishSync(j.settleCtx, models.NewEvent(models.EventURLProcessed, j.id, models.URLProcessedPayload{
		URL:          url,
		StatusCode:   result.StatusCode,
		ChunkCount:   chunkCount,
		Bytes:        result.Size,
		ContentType:  result.ContentType,
		ResponseTime: result.ResponseTime,
	}))
}

// fail records a terminal per-URL failure and publishes its event
func (j *crawlJob) fail(url string, crawlErr *CrawlFailure) {
	message := ""
	if crawlErr.Err != nil {
		message = crawlErr.Err.Error()
	}
	j.tracker.FailURL(url, string(crawlErr.Kind), message, crawlErr.StatusCode, crawlErr.Retries)
	j.service.events.PublishSync(j.settleCtx, models.NewEvent(models.EventURLProcessingFailed, j.id, models.URLFailedPayload{
		URL:        url,
		ErrorType:  string(crawlErr.Kind),
		Message:    message,
		StatusCode: crawlErr.StatusCode,
		Retries:    crawlErr.Retries,
	}))

	j.service.logger.Debug().
		Str("url", url).
		Str("error_type", string(crawlErr.Kind)).
		Msg("URL failed")
}

// isHTML reports whether a MIME type is parseable page content
func isHTML(contentType string) bool {
	switch {
	case contentType == "", // Some servers omit the header for HTML
		strings.HasPrefix(contentType, "text/html"),
		strings.HasPrefix(contentType, "application/xhtml"):
		return true
	}
	return false
}
