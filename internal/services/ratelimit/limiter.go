package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/webflux/internal/models"
)

// ErrOutsideVisitTime is returned in skip mode when a host's robots
// visit-time window excludes the current time
var ErrOutsideVisitTime = errors.New("outside robots visit-time window")

// Retry-After hints are clamped to this range before they take effect
const (
	minRetryAfter = time.Second
	maxRetryAfter = 60 * time.Second
)

// Limiter enforces per-host politeness: a minimum inter-request gap of
// max(robots crawl-delay, configured default), an optional sliding
// request-rate window, and robots visit-time windows. Ordering across
// hosts is independent.
type Limiter struct {
	hosts         map[string]*hostLimiter
	mu            sync.Mutex
	defaultDelay  time.Duration
	visitTimeSkip bool
	logger        arbor.ILogger
}

// hostLimiter tracks rate limiting for a single host
type hostLimiter struct {
	mu          sync.Mutex
	bucket      *rate.Limiter
	delay       time.Duration
	requestRate *models.RequestRate
	visitTime   *models.VisitTimeWindow
	recent      []time.Time // Timestamps inside the sliding window
	hintUntil   time.Time   // Retry-After hint expiry
	hintDelay   time.Duration
}

// NewLimiter creates a limiter with the given default inter-request
// delay. When visitTimeSkip is set, requests outside a visit-time
// window fail with ErrOutsideVisitTime instead of waiting.
func NewLimiter(defaultDelay time.Duration, visitTimeSkip bool, logger arbor.ILogger) *Limiter {
	return &Limiter{
		hosts:         make(map[string]*hostLimiter),
		defaultDelay:  defaultDelay,
		visitTimeSkip: visitTimeSkip,
		logger:        logger,
	}
}

// ApplyPolicy configures a host from its robots metadata for the given
// user agent. The effective delay is max(crawl-delay, default).
func (l *Limiter) ApplyPolicy(host string, robots *models.RobotsMetadata, userAgent string) {
	h := l.host(host)

	h.mu.Lock()
	defer h.mu.Unlock()

	delay := l.defaultDelay
	if robots != nil {
		if seconds, ok := lookupAgent(robots.CrawlDelays, userAgent); ok {
			robotsDelay := time.Duration(seconds * float64(time.Second))
			if robotsDelay > delay {
				delay = robotsDelay
			}
		}
		if rr, ok := lookupAgent(robots.RequestRates, userAgent); ok {
			h.requestRate = &rr
		}
		if vt, ok := lookupAgent(robots.VisitTimes, userAgent); ok {
			h.visitTime = &vt
		}
	}

	h.delay = delay
	h.bucket = rate.NewLimiter(rate.Every(delay), 1)
}

// SetRetryAfterHint records a 429 Retry-After delay for a host. The
// hint is clamped to [1s, 60s] and stretches the effective delay until
// it expires.
func (l *Limiter) SetRetryAfterHint(host string, retryAfter time.Duration) {
	if retryAfter < minRetryAfter {
		retryAfter = minRetryAfter
	}
	if retryAfter > maxRetryAfter {
		retryAfter = maxRetryAfter
	}

	h := l.host(host)
	h.mu.Lock()
	h.hintDelay = retryAfter
	h.hintUntil = time.Now().Add(retryAfter)
	h.mu.Unlock()

	l.logger.Debug().
		Str("host", host).
		Dur("retry_after", retryAfter).
		Msg("Applied Retry-After hint")
}

// EffectiveDelay returns the current inter-request delay for a host,
// including any Retry-After hint still in effect
func (l *Limiter) EffectiveDelay(host string) time.Duration {
	h := l.host(host)
	h.mu.Lock()
	defer h.mu.Unlock()

	delay := h.delay
	if time.Now().Before(h.hintUntil) && h.hintDelay > delay {
		delay = h.hintDelay
	}
	return delay
}

// Acquire blocks until the host slot is free or the context is
// cancelled. Successive acquisitions for the same host are separated by
// at least the effective delay.
func (l *Limiter) Acquire(ctx context.Context, host string) error {
	h := l.host(host)

	// Visit-time gate first: either skip or wait for the window to open
	if err := l.waitVisitTime(ctx, h); err != nil {
		return err
	}

	h.mu.Lock()
	bucket := h.bucket
	hintActive := time.Now().Before(h.hintUntil)
	hintDelay := h.hintDelay
	h.mu.Unlock()

	if hintActive && hintDelay > 0 {
		timer := time.NewTimer(hintDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := bucket.Wait(ctx); err != nil {
		return err
	}

	return l.waitRequestRate(ctx, h)
}

// waitRequestRate enforces the robots Request-rate sliding window: at
// most N timestamps in the last T
func (l *Limiter) waitRequestRate(ctx context.Context, h *hostLimiter) error {
	for {
		h.mu.Lock()
		if h.requestRate == nil || h.requestRate.Requests <= 0 {
			h.recent = append(h.recent, time.Now())
			h.mu.Unlock()
			return nil
		}

		now := time.Now()
		window := h.requestRate.Window
		cutoff := now.Add(-window)

		kept := h.recent[:0]
		for _, ts := range h.recent {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		h.recent = kept

		if len(h.recent) < h.requestRate.Requests {
			h.recent = append(h.recent, now)
			h.mu.Unlock()
			return nil
		}

		// Window full: wait until the oldest timestamp leaves it
		wait := h.recent[0].Add(window).Sub(now)
		h.mu.Unlock()

		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// waitVisitTime blocks (or skips) while the current time falls outside
// the host's visit-time window
func (l *Limiter) waitVisitTime(ctx context.Context, h *hostLimiter) error {
	for {
		h.mu.Lock()
		vt := h.visitTime
		h.mu.Unlock()

		if vt == nil || vt.Contains(time.Now()) {
			return nil
		}
		if l.visitTimeSkip {
			return ErrOutsideVisitTime
		}

		// Poll until the window opens; windows have minute resolution
		timer := time.NewTimer(30 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Limiter) host(host string) *hostLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.hosts[host]
	if !ok {
		h = &hostLimiter{
			delay:  l.defaultDelay,
			bucket: rate.NewLimiter(rate.Every(l.defaultDelay), 1),
		}
		l.hosts[host] = h
	}
	return h
}

// lookupAgent selects the per-agent value, falling back to the wildcard
// group
func lookupAgent[T any](m map[string]T, userAgent string) (T, bool) {
	var zero T
	if m == nil {
		return zero, false
	}
	if v, ok := m[normalizeAgent(userAgent)]; ok {
		return v, true
	}
	if v, ok := m["*"]; ok {
		return v, true
	}
	return zero, false
}

func normalizeAgent(agent string) string {
	// Robots groups commonly name the product token only; strip any
	// version suffix after the first slash.
	if i := strings.IndexByte(agent, '/'); i >= 0 {
		agent = agent[:i]
	}
	return strings.ToLower(agent)
}
