package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/interfaces"
	"github.com/ternarybob/webflux/internal/models"
)

const (
	robotsFetchAttempts = 3
	maxPolicyBody       = 2 * 1024 * 1024
)

// Service caches per-origin crawl policy: robots.txt, the web app
// manifest and sitemap contents, each held for a TTL (default 4h).
// Concurrent requests for the same origin while a fetch is in flight
// share the result; at most one fetch per origin runs at a time.
type Service struct {
	client    *http.Client
	config    common.PolicyConfig
	userAgent string
	kv        interfaces.KeyValueCache // Optional persistent snapshot store
	cache     map[string]*cacheEntry
	inflight  map[string]*inflightCall
	mu        sync.Mutex
	logger    arbor.ILogger
}

type cacheEntry struct {
	policy  *models.HostPolicy
	expires time.Time
}

type inflightCall struct {
	done   chan struct{}
	policy *models.HostPolicy
	err    error
}

// NewService creates a policy cache. kv may be nil; when set, snapshots
// are additionally persisted there under "policy:<origin>" keys.
func NewService(config common.PolicyConfig, userAgent string, kv interfaces.KeyValueCache, logger arbor.ILogger) *Service {
	ttl := config.TTL
	if ttl <= 0 {
		config.TTL = 4 * time.Hour
	}
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Service{
		client:    &http.Client{Timeout: timeout},
		config:    config,
		userAgent: userAgent,
		kv:        kv,
		cache:     make(map[string]*cacheEntry),
		inflight:  make(map[string]*inflightCall),
		logger:    logger,
	}
}

// Snapshot returns the policy for the origin of rawURL, fetching it on
// a cache miss. Entries older than the TTL are never returned.
func (s *Service) Snapshot(ctx context.Context, rawURL string) (*models.HostPolicy, error) {
	origin, err := originOf(rawURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if entry, ok := s.cache[origin]; ok && time.Now().Before(entry.expires) {
		policy := entry.policy
		s.mu.Unlock()
		return policy, nil
	}

	// Join an in-flight fetch for the same origin when one exists
	if call, ok := s.inflight[origin]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.policy, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &inflightCall{done: make(chan struct{})}
	s.inflight[origin] = call
	s.mu.Unlock()

	policy, err := s.loadPolicy(ctx, origin)

	s.mu.Lock()
	delete(s.inflight, origin)
	if err == nil {
		s.cache[origin] = &cacheEntry{policy: policy, expires: time.Now().Add(s.config.TTL)}
	}
	s.mu.Unlock()

	call.policy = policy
	call.err = err
	close(call.done)

	return policy, err
}

// IsAllowed decides whether the configured user agent may fetch rawURL
func (s *Service) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	policy, err := s.Snapshot(ctx, rawURL)
	if err != nil {
		return false, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse url %s: %w", rawURL, err)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return IsAllowed(policy.Robots, path, s.userAgent), nil
}

// Invalidate drops any cached policy for the origin of rawURL
func (s *Service) Invalidate(rawURL string) {
	origin, err := originOf(rawURL)
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.cache, origin)
	s.mu.Unlock()
}

// loadPolicy assembles the policy snapshot for an origin, consulting
// the persistent store first when one is configured
func (s *Service) loadPolicy(ctx context.Context, origin string) (*models.HostPolicy, error) {
	if s.kv != nil {
		if cached := s.loadPersisted(ctx, origin); cached != nil {
			return cached, nil
		}
	}

	policy := &models.HostPolicy{
		Host:      common.ExtractHost(origin),
		FetchedAt: time.Now(),
	}

	policy.Robots = s.fetchRobots(ctx, origin)

	if s.config.FetchManifest {
		policy.Manifest = s.fetchManifest(ctx, origin)
	}

	if s.config.FetchSitemaps && policy.Robots != nil {
		policy.Sitemaps = s.fetchSitemaps(ctx, policy.Robots.Sitemaps)
	}

	if s.kv != nil {
		s.persist(ctx, origin, policy)
	}

	return policy, nil
}

// fetchRobots retrieves and parses /robots.txt. A 404 or a network
// failure after retries yields a permissive default; a 5xx after
// retries yields a conservative disallow-all policy.
func (s *Service) fetchRobots(ctx context.Context, origin string) *models.RobotsMetadata {
	robotsURL := origin + "/robots.txt"

	var lastStatus int
	for attempt := 0; attempt < robotsFetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return permissiveRobots(origin)
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		body, status, err := s.get(ctx, robotsURL)
		if err != nil {
			lastStatus = 0
			continue
		}
		lastStatus = status

		switch {
		case status == http.StatusOK:
			return ParseRobots(origin, string(body))
		case status >= 400 && status < 500:
			// Missing robots means everything is allowed
			return permissiveRobots(origin)
		}
		// 5xx: retry
	}

	if lastStatus >= 500 {
		s.logger.Warn().
			Str("origin", origin).
			Int("status", lastStatus).
			Msg("robots.txt unavailable after retries, disallowing all")
		meta := permissiveRobots(origin)
		meta.DisallowAll = true
		return meta
	}

	s.logger.Debug().
		Str("origin", origin).
		Msg("robots.txt unreachable, using permissive default")
	return permissiveRobots(origin)
}

// ApplyManifestLink accepts a <link rel="manifest"> reference found in
// page HTML, filling the page origin's cached policy when the
// well-known path probes came up empty
func (s *Service) ApplyManifestLink(ctx context.Context, pageURL, manifestHref string) {
	if !s.config.FetchManifest || manifestHref == "" {
		return
	}
	origin, err := originOf(pageURL)
	if err != nil {
		return
	}
	manifestURL := common.ResolveURL(pageURL, manifestHref)
	if manifestURL == "" {
		return
	}

	s.mu.Lock()
	entry, ok := s.cache[origin]
	if !ok || entry.policy.Manifest != nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	body, status, err := s.get(ctx, manifestURL)
	if err != nil || status != http.StatusOK {
		return
	}
	manifest := ParseManifest(manifestURL, body)
	if manifest == nil {
		return
	}

	s.mu.Lock()
	var updated *models.HostPolicy
	if entry, ok := s.cache[origin]; ok && entry.policy.Manifest == nil {
		entry.policy.Manifest = manifest
		updated = entry.policy
	}
	s.mu.Unlock()

	if updated != nil {
		s.logger.Debug().Str("origin", origin).Str("manifest", manifestURL).Msg("Adopted manifest from page link")
		if s.kv != nil {
			s.persist(ctx, origin, updated)
		}
	}
}

// fetchManifest probes the well-known manifest paths in order and
// returns the first parseable manifest, or nil
func (s *Service) fetchManifest(ctx context.Context, origin string) *models.WebManifest {
	for _, path := range manifestPaths {
		body, status, err := s.get(ctx, origin+path)
		if err != nil || status != http.StatusOK {
			continue
		}
		if manifest := ParseManifest(origin+path, body); manifest != nil {
			return manifest
		}
	}
	return nil
}

// fetchSitemaps resolves robots Sitemap directives into page URLs,
// following one level of sitemap index nesting
func (s *Service) fetchSitemaps(ctx context.Context, sitemapURLs []string) []string {
	var pages []string
	seen := make(map[string]bool)

	add := func(urls []string) {
		for _, u := range urls {
			if !seen[u] && len(pages) < maxSitemapURLs {
				seen[u] = true
				pages = append(pages, u)
			}
		}
	}

	for _, sitemapURL := range sitemapURLs {
		body, status, err := s.get(ctx, sitemapURL)
		if err != nil || status != http.StatusOK {
			continue
		}
		urls, nested := ParseSitemap(body)
		add(urls)

		for _, nestedURL := range nested {
			nestedBody, nestedStatus, err := s.get(ctx, nestedURL)
			if err != nil || nestedStatus != http.StatusOK {
				continue
			}
			nestedPages, _ := ParseSitemap(nestedBody)
			add(nestedPages)
		}
	}

	return pages
}

func (s *Service) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPolicyBody))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (s *Service) loadPersisted(ctx context.Context, origin string) *models.HostPolicy {
	data, ok, err := s.kv.Get(ctx, "policy:"+origin)
	if err != nil || !ok {
		return nil
	}
	var policy models.HostPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil
	}
	return &policy
}

func (s *Service) persist(ctx context.Context, origin string, policy *models.HostPolicy) {
	data, err := json.Marshal(policy)
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, "policy:"+origin, data, s.config.TTL); err != nil {
		s.logger.Debug().Err(err).Str("origin", origin).Msg("Failed to persist policy snapshot")
	}
}

func permissiveRobots(origin string) *models.RobotsMetadata {
	return &models.RobotsMetadata{
		BaseURL:      origin,
		Groups:       make(map[string][]models.RobotsRule),
		CrawlDelays:  make(map[string]float64),
		RequestRates: make(map[string]models.RequestRate),
		VisitTimes:   make(map[string]models.VisitTimeWindow),
		FetchedAt:    time.Now(),
	}
}

func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %s has no origin", rawURL)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}
