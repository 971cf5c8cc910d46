package models

import "time"

// RuleType distinguishes Allow from Disallow robots rules
type RuleType string

const (
	RuleAllow    RuleType = "allow"
	RuleDisallow RuleType = "disallow"
)

// RobotsRule is a single allow/disallow directive. Pattern preserves the
// original value, including `*` wildcards and a trailing `$` end anchor.
type RobotsRule struct {
	Type    RuleType `json:"type"`
	Pattern string   `json:"pattern"`
}

// RequestRate is a robots Request-rate directive: at most Requests
// fetches per Window.
type RequestRate struct {
	Requests int           `json:"requests"`
	Window   time.Duration `json:"window"`
}

// VisitTimeWindow is a robots Visit-time directive in UTC. Minutes are
// measured from midnight; a window may wrap past midnight.
type VisitTimeWindow struct {
	StartMinute int `json:"start_minute"` // 0..1439
	EndMinute   int `json:"end_minute"`
}

// Contains reports whether t (converted to UTC) falls inside the window
func (w VisitTimeWindow) Contains(t time.Time) bool {
	minute := t.UTC().Hour()*60 + t.UTC().Minute()
	if w.StartMinute <= w.EndMinute {
		return minute >= w.StartMinute && minute <= w.EndMinute
	}
	// Window wraps midnight
	return minute >= w.StartMinute || minute <= w.EndMinute
}

// RobotsMetadata is the parsed robots.txt for one origin. Rules are kept
// per user-agent in source order; matching applies precedence separately.
type RobotsMetadata struct {
	BaseURL       string                  `json:"base_url"`
	Groups        map[string][]RobotsRule `json:"groups"`        // lowercased user-agent -> rules
	CrawlDelays   map[string]float64      `json:"crawl_delays"`  // seconds, fractional allowed
	RequestRates  map[string]RequestRate  `json:"request_rates"` // per user-agent
	VisitTimes    map[string]VisitTimeWindow `json:"visit_times"`
	PreferredHost string                  `json:"preferred_host,omitempty"`
	Sitemaps      []string                `json:"sitemaps,omitempty"`
	FetchedAt     time.Time               `json:"fetched_at"`
	DisallowAll   bool                    `json:"disallow_all"` // Conservative fallback after 5xx
}

// ManifestIcon is one icon entry of a web app manifest
type ManifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes,omitempty"`
	Type  string `json:"type,omitempty"`
}

// ManifestShortcut is one shortcut entry of a web app manifest
type ManifestShortcut struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// WebManifest is a parsed web app manifest. URLs are resolved against
// the manifest base; a malformed manifest is a soft failure and the
// field stays nil.
type WebManifest struct {
	Name                string             `json:"name,omitempty"`
	ShortName           string             `json:"short_name,omitempty"`
	Description         string             `json:"description,omitempty"`
	StartURL            string             `json:"start_url,omitempty"`
	Scope               string             `json:"scope,omitempty"`
	Display             string             `json:"display,omitempty"`
	Orientation         string             `json:"orientation,omitempty"`
	ThemeColor          string             `json:"theme_color,omitempty"`
	BackgroundColor     string             `json:"background_color,omitempty"`
	Lang                string             `json:"lang,omitempty"`
	Dir                 string             `json:"dir,omitempty"`
	Icons               []ManifestIcon     `json:"icons,omitempty"`
	Screenshots         []ManifestIcon     `json:"screenshots,omitempty"`
	Categories          []string           `json:"categories,omitempty"`
	Shortcuts           []ManifestShortcut `json:"shortcuts,omitempty"`
	RelatedApplications []string           `json:"related_applications,omitempty"`
	HasShareTarget      bool               `json:"has_share_target,omitempty"`
}

// HostPolicy is the cached policy snapshot for one host
type HostPolicy struct {
	Host      string          `json:"host"`
	Robots    *RobotsMetadata `json:"robots,omitempty"`
	Manifest  *WebManifest    `json:"manifest,omitempty"`
	Sitemaps  []string        `json:"sitemaps,omitempty"` // URLs listed in sitemap indexes
	FetchedAt time.Time       `json:"fetched_at"`
}
