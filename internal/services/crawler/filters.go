package crawler

import (
	"regexp"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/common"
)

// FilterResult is the outcome of the enqueue-time URL filter
type FilterResult struct {
	Allowed    bool
	Reason     string
	ExcludedBy string // Pattern that rejected the URL, when one did
}

// LinkFilter applies allow/deny regex patterns and the same-origin
// constraint at enqueue time
type LinkFilter struct {
	allowRegexes []*regexp.Regexp
	denyRegexes  []*regexp.Regexp
	sameOrigin   bool
	seedURLs     []string
	logger       arbor.ILogger
}

// NewLinkFilter compiles the patterns; invalid patterns are logged and
// skipped rather than failing the job
func NewLinkFilter(allowPatterns, denyPatterns []string, sameOrigin bool, seedURLs []string, logger arbor.ILogger) *LinkFilter {
	filter := &LinkFilter{
		sameOrigin:   sameOrigin,
		seedURLs:     seedURLs,
		logger:       logger,
		allowRegexes: make([]*regexp.Regexp, 0, len(allowPatterns)),
		denyRegexes:  make([]*regexp.Regexp, 0, len(denyPatterns)),
	}

	for _, pattern := range allowPatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			filter.allowRegexes = append(filter.allowRegexes, re)
		} else {
			logger.Warn().Err(err).Str("pattern", pattern).Msg("Failed to compile allow pattern")
		}
	}
	for _, pattern := range denyPatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			filter.denyRegexes = append(filter.denyRegexes, re)
		} else {
			logger.Warn().Err(err).Str("pattern", pattern).Msg("Failed to compile deny pattern")
		}
	}

	return filter
}

// Filter decides whether a discovered URL may enter the frontier. Deny
// patterns reject first; allow patterns, when present, must match; the
// same-origin constraint compares against every seed.
func (f *LinkFilter) Filter(rawURL string) FilterResult {
	if !common.IsHTTPURL(rawURL) {
		return FilterResult{Allowed: false, Reason: "not an http(s) url"}
	}

	for _, re := range f.denyRegexes {
		if re.MatchString(rawURL) {
			return FilterResult{Allowed: false, Reason: "matches deny pattern", ExcludedBy: re.String()}
		}
	}

	if len(f.allowRegexes) > 0 {
		matched := false
		for _, re := range f.allowRegexes {
			if re.MatchString(rawURL) {
				matched = true
				break
			}
		}
		if !matched {
			return FilterResult{Allowed: false, Reason: "does not match allow patterns"}
		}
	}

	if f.sameOrigin {
		sameOrigin := false
		for _, seed := range f.seedURLs {
			if common.SameOrigin(seed, rawURL) {
				sameOrigin = true
				break
			}
		}
		if !sameOrigin {
			return FilterResult{Allowed: false, Reason: "outside seed origins"}
		}
	}

	return FilterResult{Allowed: true}
}
