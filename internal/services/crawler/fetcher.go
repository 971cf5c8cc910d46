package crawler

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
	"github.com/ternarybob/webflux/internal/services/ratelimit"
)

const maxRedirects = 10

// Fetcher performs polite GETs: transient errors (network, 5xx, 429)
// retry with exponential backoff and jitter; 429 Retry-After hints feed
// back to the rate limiter; other 4xx are terminal.
type Fetcher struct {
	client  *http.Client
	config  common.CrawlerConfig
	limiter *ratelimit.Limiter
	logger  arbor.ILogger
}

func NewFetcher(config common.CrawlerConfig, limiter *ratelimit.Limiter, logger arbor.ILogger) *Fetcher {
	client := &http.Client{
		Timeout: config.FetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &Fetcher{
		client:  client,
		config:  config,
		limiter: limiter,
		logger:  logger,
	}
}

// Fetch GETs the URL within the retry budget. On failure the returned
// CrawlFailure carries the error kind, final status and retry count.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*models.FetchResult, *CrawlFailure) {
	maxAttempts := f.config.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	backoff := f.config.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	host := common.ExtractHost(rawURL)

	var lastKind ErrorKind
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := jitteredBackoff(backoff, attempt-1)
			f.logger.Debug().
				Str("url", rawURL).
				Int("attempt", attempt+1).
				Dur("backoff", wait).
				Msg("Retrying fetch after backoff")
			select {
			case <-ctx.Done():
				return nil, failure(ErrCancelled, lastStatus, ctx.Err())
			case <-time.After(wait):
			}
			// The caller acquired the host slot for the first attempt
			// only; a retry is a fresh request and must respect the
			// effective crawl delay too
			if err := f.limiter.Acquire(ctx, host); err != nil {
				if ctx.Err() != nil {
					return nil, failure(ErrCancelled, lastStatus, err)
				}
				return nil, failure(ErrQuotaExceeded, lastStatus, err)
			}
		}

		result, err := f.doFetch(ctx, rawURL)
		if err == nil && result.StatusCode < 400 {
			return &result.FetchResult, nil
		}

		if err != nil {
			lastErr = err
			lastStatus = 0
			lastKind = classifyFetchError(0, err)
		} else {
			lastErr = fmt.Errorf("http status %d", result.StatusCode)
			lastStatus = result.StatusCode
			lastKind = classifyFetchError(result.StatusCode, nil)
			if result.StatusCode == http.StatusTooManyRequests {
				f.applyRetryAfter(host, result.RetryAfter)
			}
		}

		if lastKind == ErrCancelled || !retryable(lastKind) {
			break
		}
	}

	fail := failure(lastKind, lastStatus, lastErr)
	fail.Retries = maxAttempts - 1
	if !retryable(lastKind) {
		fail.Retries = 0
	}
	return nil, fail
}

// fetchResult is doFetch's raw outcome, carrying the Retry-After hint
// alongside the fetch record
type fetchResult struct {
	models.FetchResult
	RetryAfter time.Duration
}

func (f *Fetcher) doFetch(ctx context.Context, rawURL string) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	maxBody := f.config.MaxBodySize
	if maxBody <= 0 {
		maxBody = 10 * 1024 * 1024
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}

	result := &fetchResult{
		FetchResult: models.FetchResult{
			URL:          rawURL,
			EffectiveURL: resp.Request.URL.String(),
			StatusCode:   resp.StatusCode,
			Body:         body,
			ContentType:  mimeType(resp.Header.Get("Content-Type")),
			ResponseTime: time.Since(start),
			Size:         int64(len(body)),
		},
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
	return result, nil
}

// applyRetryAfter forwards a 429 hint to the limiter, falling back to
// the minimum when the header was absent or unparseable
func (f *Fetcher) applyRetryAfter(host string, retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	f.limiter.SetRetryAfterHint(host, retryAfter)
}

// jitteredBackoff doubles the base per attempt with ±20% jitter
func jitteredBackoff(base time.Duration, attempt int) time.Duration {
	backoff := float64(base)
	for i := 0; i < attempt; i++ {
		backoff *= 2
	}
	jitter := backoff * 0.2 * (rand.Float64()*2 - 1)
	wait := time.Duration(backoff + jitter)
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// parseRetryAfter handles the delta-seconds form; the HTTP-date form is
// rare enough to ignore
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// mimeType strips parameters from a Content-Type header value
func mimeType(header string) string {
	if i := strings.IndexByte(header, ';'); i >= 0 {
		header = header[:i]
	}
	return strings.TrimSpace(strings.ToLower(header))
}
