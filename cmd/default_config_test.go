package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inference-sim/collision-risk/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsConfig_MissingDefaultFile_UsesBuiltIns(t *testing.T) {
	// GIVEN no defaults file at the implicit location
	path := filepath.Join(t.TempDir(), "defaults.yaml")

	// WHEN it is loaded without an explicit --defaults-filepath
	cfg, err := loadDefaultsConfig(path, false)

	// THEN the built-in defaults are used
	require.NoError(t, err)
	assert.Equal(t, risk.DefaultConfig(), cfg)
}

func TestLoadDefaultsConfig_MissingExplicitFile_Fails(t *testing.T) {
	_, err := loadDefaultsConfig(filepath.Join(t.TempDir(), "nope.yaml"), true)
	assert.Error(t, err)
}

func TestLoadDefaultsConfig_RepositoryFile(t *testing.T) {
	path := "../defaults.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("defaults.yaml not found, skipping integration test")
	}

	cfg, err := loadDefaultsConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, risk.DefaultConfig(), cfg)
}

func TestLoadDefaultsConfig_Typo_Rejected(t *testing.T) {
	// GIVEN a file with a misspelled key
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inference:\n  worker: 4\n"), 0o644))

	// WHEN loaded
	_, err := loadDefaultsConfig(path, true)

	// THEN strict parsing rejects it
	assert.Error(t, err)
}
