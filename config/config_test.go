package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultConfigWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":4000", cfg.ListenAddress)
	require.Equal(t, 2, cfg.Difficulty)
	require.Empty(t, cfg.BootstrapPeers)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestLoadParsesExistingFileAndAppliesDefaultsForZeroFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `ListenAddress = "0.0.0.0:5000"
BootstrapPeers = ["10.0.0.1:4000", "10.0.0.2:4000"]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:5000", cfg.ListenAddress)
	require.Len(t, cfg.BootstrapPeers, 2)
	require.Equal(t, 2, cfg.Difficulty)
	require.Equal(t, "./govledger-data", cfg.DataDir)
}
