package models

import "time"

// DiscoveryReason records how a URL entered the frontier
type DiscoveryReason string

const (
	DiscoverySeed    DiscoveryReason = "seed"
	DiscoveryLink    DiscoveryReason = "link"
	DiscoverySitemap DiscoveryReason = "sitemap"
)

// URLRecord represents a URL known to a crawl job. A record enters the
// frontier once and is fetched at most once.
type URLRecord struct {
	URL       string          `json:"url"` // Normalized absolute URL
	Depth     int             `json:"depth"`
	ParentURL string          `json:"parent_url,omitempty"`
	Reason    DiscoveryReason `json:"reason"`
	AddedAt   time.Time       `json:"added_at"`
}

// FetchResult represents the outcome of fetching a single URL
type FetchResult struct {
	URL          string        `json:"url"`           // Requested URL
	EffectiveURL string        `json:"effective_url"` // Final URL after redirects
	StatusCode   int           `json:"status_code"`
	Body         []byte        `json:"body,omitempty"`
	ContentType  string        `json:"content_type"` // Declared MIME, parameters stripped
	ResponseTime time.Duration `json:"response_time"`
	Size         int64         `json:"size"`
}
