package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLevelDefaults_Fixture(t *testing.T) {
	d, err := loadLevelDefaults(fixture("level_defaults.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 0.95, d.Global.Mu)
	assert.Equal(t, 0.25, d.Global.CapacityFactor)
	require.Contains(t, d.PerLevel, 3)
	require.NotNil(t, d.PerLevel[3].K)
	assert.Equal(t, 0.8, *d.PerLevel[3].K)
	assert.Nil(t, d.PerLevel[3].Mu)
}

func TestLoadLevelDefaults_PartialGlobalKeepsBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.yaml")
	require.NoError(t, os.WriteFile(path, []byte("global:\n  eta: 0.5\n"), 0o644))

	d, err := loadLevelDefaults(path)

	require.NoError(t, err)
	assert.Equal(t, 0.5, d.Global.Eta)
	assert.Equal(t, 1.0, d.Global.Mu)
}

func TestLoadLevelDefaults_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"typo", "globl:\n  mu: 1\n", "field globl not found"},
		{"negative", "global:\n  mu: -0.5\n", "global.mu"},
		{"per level", "per_level:\n  2:\n    capacity_factor: -1\n", "per_level[2].capacity_factor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := loadLevelDefaults(path)

			assert.ErrorContains(t, err, tt.want)
		})
	}

	_, err := loadLevelDefaults(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
