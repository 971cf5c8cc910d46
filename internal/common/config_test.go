package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4, cfg.Crawler.WorkerCount)
	assert.True(t, cfg.Crawler.SameOriginOnly)
	assert.Equal(t, "auto", cfg.Chunking.Strategy)
	assert.Equal(t, 4*time.Hour, cfg.Policy.TTL)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webflux.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[crawler]
user_agent = "custom-agent/1.0"
max_depth = 7

[chunking]
strategy = "paragraph"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-agent/1.0", cfg.Crawler.UserAgent)
	assert.Equal(t, 7, cfg.Crawler.MaxDepth)
	assert.Equal(t, "paragraph", cfg.Chunking.Strategy)
	assert.Equal(t, 4, cfg.Crawler.WorkerCount, "untouched fields keep their defaults")
}

func TestLoadConfig_MissingFileErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("WEBFLUX_USER_AGENT", "env-agent/2.0")
	t.Setenv("WEBFLUX_WORKERS", "9")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "env-agent/2.0", cfg.Crawler.UserAgent)
	assert.Equal(t, 9, cfg.Crawler.WorkerCount)
}

func TestValidate_ChunkingBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chunking.MinChunkSize = cfg.Chunking.MaxChunkSize
	assert.Error(t, cfg.Validate(), "min must stay below max")

	cfg = DefaultConfig()
	cfg.Chunking.Overlap = cfg.Chunking.MaxChunkSize
	assert.Error(t, cfg.Validate(), "overlap must stay below max")

	cfg = DefaultConfig()
	cfg.Crawler.WorkerCount = 0
	assert.Error(t, cfg.Validate())
}
