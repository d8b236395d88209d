package interp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigEmptyPathFallsBackToDefault(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stepwise.yml")
	require.NoError(t, os.WriteFile(path, []byte("debug: true\nentry: programs/main.step\ntimeoutMillis: 2500\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "programs/main.step", cfg.Entry)
	assert.Equal(t, 2500, cfg.TimeoutMillis)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stepwise.yml")
	require.NoError(t, os.WriteFile(path, []byte("entry: [unterminated\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
