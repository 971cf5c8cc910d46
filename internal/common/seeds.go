package common

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedList is the on-disk seed file format: a list of URLs plus
// optional per-file crawl overrides.
type SeedList struct {
	Seeds         []string `yaml:"seeds"`
	MaxDepth      int      `yaml:"max_depth,omitempty"`
	MaxURLs       int      `yaml:"max_urls,omitempty"`
	AllowPatterns []string `yaml:"allow_patterns,omitempty"`
	DenyPatterns  []string `yaml:"deny_patterns,omitempty"`
}

// LoadSeeds reads a YAML seed file and validates that every entry is an
// absolute http(s) URL
func LoadSeeds(path string) (*SeedList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}

	var list SeedList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if len(list.Seeds) == 0 {
		return nil, fmt.Errorf("seed file %s lists no seeds", path)
	}
	for _, seed := range list.Seeds {
		if !IsHTTPURL(seed) {
			return nil, fmt.Errorf("seed file %s: %q is not an http(s) url", path, seed)
		}
	}

	return &list, nil
}

// Apply overlays the seed file's overrides onto the crawler config
func (s *SeedList) Apply(cfg *CrawlerConfig) {
	if s.MaxDepth > 0 {
		cfg.MaxDepth = s.MaxDepth
	}
	if s.MaxURLs > 0 {
		cfg.MaxURLs = s.MaxURLs
	}
	if len(s.AllowPatterns) > 0 {
		cfg.AllowPatterns = append(cfg.AllowPatterns, s.AllowPatterns...)
	}
	if len(s.DenyPatterns) > 0 {
		cfg.DenyPatterns = append(cfg.DenyPatterns, s.DenyPatterns...)
	}
}
