package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSeeds(t *testing.T) {
	path := writeSeedFile(t, `
seeds:
  - https://example.com/
  - https://docs.example.com/guide
max_depth: 2
max_urls: 50
deny_patterns:
  - "/login"
`)

	list, err := LoadSeeds(path)
	require.NoError(t, err)
	assert.Len(t, list.Seeds, 2)
	assert.Equal(t, 2, list.MaxDepth)
	assert.Equal(t, 50, list.MaxURLs)
	assert.Equal(t, []string{"/login"}, list.DenyPatterns)
}

func TestLoadSeeds_RejectsNonHTTP(t *testing.T) {
	path := writeSeedFile(t, "seeds:\n  - ftp://example.com/\n")
	_, err := LoadSeeds(path)
	assert.Error(t, err)
}

func TestLoadSeeds_EmptyList(t *testing.T) {
	path := writeSeedFile(t, "max_depth: 3\n")
	_, err := LoadSeeds(path)
	assert.Error(t, err)
}

func TestSeedList_Apply(t *testing.T) {
	cfg := DefaultConfig().Crawler
	cfg.DenyPatterns = []string{"/logout"}

	list := &SeedList{
		MaxDepth:     5,
		DenyPatterns: []string{"/login"},
	}
	list.Apply(&cfg)

	assert.Equal(t, 5, cfg.MaxDepth)
	assert.Equal(t, 500, cfg.MaxURLs, "zero overrides leave the config untouched")
	assert.Equal(t, []string{"/logout", "/login"}, cfg.DenyPatterns, "patterns append rather than replace")
}
