package policy

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/webflux/internal/models"
)

// ParseRobots parses a robots.txt body per RFC 9309. Lines are
// comment-stripped, fields are case-insensitive, and values preserve
// case along with literal `*` wildcards and `$` end anchors. Sitemap
// and Host directives are recognized outside any group.
func ParseRobots(baseURL, body string) *models.RobotsMetadata {
	meta := &models.RobotsMetadata{
		BaseURL:      baseURL,
		Groups:       make(map[string][]models.RobotsRule),
		CrawlDelays:  make(map[string]float64),
		RequestRates: make(map[string]models.RequestRate),
		VisitTimes:   make(map[string]models.VisitTimeWindow),
		FetchedAt:    time.Now(),
	}

	// Agents of the group currently being filled. Consecutive
	// User-agent lines before any rule share one group.
	var currentAgents []string
	lastWasAgent := false

	for _, line := range strings.Split(body, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		field = strings.ToLower(strings.TrimSpace(field))
		value = strings.TrimSpace(value)

		switch field {
		case "user-agent":
			agent := strings.ToLower(value)
			if lastWasAgent {
				currentAgents = append(currentAgents, agent)
			} else {
				currentAgents = []string{agent}
			}
			lastWasAgent = true
			// Materialize the group so agent-only records still select it
			for _, a := range currentAgents {
				if _, exists := meta.Groups[a]; !exists {
					meta.Groups[a] = []models.RobotsRule{}
				}
			}
			continue

		case "disallow", "allow":
			lastWasAgent = false
			if len(currentAgents) == 0 {
				continue
			}
			// An empty Disallow means allow-everything and adds no rule
			if value == "" {
				continue
			}
			ruleType := models.RuleDisallow
			if field == "allow" {
				ruleType = models.RuleAllow
			}
			for _, agent := range currentAgents {
				meta.Groups[agent] = append(meta.Groups[agent], models.RobotsRule{
					Type:    ruleType,
					Pattern: value,
				})
			}

		case "crawl-delay":
			lastWasAgent = false
			if seconds, err := strconv.ParseFloat(value, 64); err == nil && seconds >= 0 {
				for _, agent := range currentAgents {
					meta.CrawlDelays[agent] = seconds
				}
			}

		case "request-rate":
			lastWasAgent = false
			if rr, ok := parseRequestRate(value); ok {
				for _, agent := range currentAgents {
					meta.RequestRates[agent] = rr
				}
			}

		case "visit-time":
			lastWasAgent = false
			if vt, ok := parseVisitTime(value); ok {
				for _, agent := range currentAgents {
					meta.VisitTimes[agent] = vt
				}
			}

		case "sitemap":
			// Sitemap is valid outside any group and does not end one
			if value != "" {
				meta.Sitemaps = append(meta.Sitemaps, value)
			}

		case "host":
			lastWasAgent = false
			meta.PreferredHost = value

		default:
			lastWasAgent = false
		}
	}

	return meta
}

// parseRequestRate parses "N/T", "N/Ts", "N/Tm" or "N/Th"
func parseRequestRate(value string) (models.RequestRate, bool) {
	left, right, ok := strings.Cut(value, "/")
	if !ok {
		return models.RequestRate{}, false
	}

	requests, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil || requests <= 0 {
		return models.RequestRate{}, false
	}

	right = strings.TrimSpace(right)
	unit := time.Second
	switch {
	case strings.HasSuffix(right, "s"):
		right = strings.TrimSuffix(right, "s")
	case strings.HasSuffix(right, "m"):
		right = strings.TrimSuffix(right, "m")
		unit = time.Minute
	case strings.HasSuffix(right, "h"):
		right = strings.TrimSuffix(right, "h")
		unit = time.Hour
	}

	amount, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil || amount <= 0 {
		return models.RequestRate{}, false
	}

	return models.RequestRate{
		Requests: requests,
		Window:   time.Duration(amount) * unit,
	}, true
}

// parseVisitTime parses "HHMM-HHMM" (UTC)
func parseVisitTime(value string) (models.VisitTimeWindow, bool) {
	left, right, ok := strings.Cut(value, "-")
	if !ok {
		return models.VisitTimeWindow{}, false
	}

	start, okStart := parseHHMM(strings.TrimSpace(left))
	end, okEnd := parseHHMM(strings.TrimSpace(right))
	if !okStart || !okEnd {
		return models.VisitTimeWindow{}, false
	}

	return models.VisitTimeWindow{StartMinute: start, EndMinute: end}, true
}

func parseHHMM(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	hour, err := strconv.Atoi(s[:2])
	if err != nil || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(s[2:])
	if err != nil || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// IsAllowed decides whether the user agent may fetch the path. Rules of
// the exact agent group win over the wildcard group; Allow sorts before
// Disallow and longer patterns before shorter ones, so a longer Allow
// overrides a shorter Disallow; the first match wins; the default is
// allow. The decision is pure and idempotent.
func IsAllowed(meta *models.RobotsMetadata, path, userAgent string) bool {
	if meta == nil {
		return true
	}
	if meta.DisallowAll {
		return false
	}

	rules := selectRules(meta, userAgent)
	if len(rules) == 0 {
		return true
	}

	ordered := make([]models.RobotsRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Type != ordered[j].Type {
			return ordered[i].Type == models.RuleAllow
		}
		return len(ordered[i].Pattern) > len(ordered[j].Pattern)
	})

	for _, rule := range ordered {
		if matchPattern(rule.Pattern, path) {
			return rule.Type == models.RuleAllow
		}
	}

	return true
}

func selectRules(meta *models.RobotsMetadata, userAgent string) []models.RobotsRule {
	agent := strings.ToLower(userAgent)
	if i := strings.IndexByte(agent, '/'); i >= 0 {
		agent = agent[:i]
	}

	if rules, ok := meta.Groups[agent]; ok {
		return rules
	}
	// Longest agent token that prefixes the UA string, per RFC 9309
	best := ""
	for group := range meta.Groups {
		if group != "*" && strings.Contains(agent, group) && len(group) > len(best) {
			best = group
		}
	}
	if best != "" {
		return meta.Groups[best]
	}
	return meta.Groups["*"]
}

// matchPattern matches a robots pattern against a path. `*` maps to
// `.*`; a trailing `$` anchors the end of the path; comparison is
// case-insensitive. Without `$` the pattern matches as a prefix.
func matchPattern(pattern, path string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}

	var sb strings.Builder
	sb.WriteString("(?i)^")
	for i, segment := range strings.Split(pattern, "*") {
		if i > 0 {
			sb.WriteString(".*")
		}
		sb.WriteString(regexp.QuoteMeta(segment))
	}
	if anchored {
		sb.WriteString("$")
	}

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(path)
}
