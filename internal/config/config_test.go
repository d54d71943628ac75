package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "cli", cfg.AgentID)
	assert.Equal(t, 24, cfg.SessionTimeoutHours)
	assert.Equal(t, 48, cfg.ResolvedWindowHours)
	assert.Equal(t, 90, cfg.GCMaxAgeDays)
	assert.Equal(t, 100, cfg.MaxCommits)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".engram"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".engram", "config.toml"), []byte(`
agent_id = "claude-opus"
gc_max_age_days = 30
`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "claude-opus", cfg.AgentID)
	assert.Equal(t, 30, cfg.GCMaxAgeDays)
	assert.Equal(t, 24, cfg.SessionTimeoutHours, "unset keys keep defaults")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ENGRAM_AGENT_ID", "claude-env")
	t.Setenv("ENGRAM_SESSION_TIMEOUT_HOURS", "6")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "claude-env", cfg.AgentID)
	assert.Equal(t, 6, cfg.SessionTimeoutHours)
}

func TestLoadMalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".engram"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".engram", "config.toml"),
		[]byte("agent_id = = broken"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}
