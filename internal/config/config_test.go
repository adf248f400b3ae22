package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/deepzoom/pkg/pyramid"
	"github.com/menta2k/deepzoom/pkg/types"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	tiles := cfg.Tiles()
	assert.Equal(t, types.DefaultPyramidConfig(), tiles)
	assert.Equal(t, "fixed", cfg.Pyramid.LevelPolicy)
	assert.Equal(t, 6, cfg.Pyramid.Levels)
	assert.Equal(t, 1, cfg.Workers)
	assert.False(t, cfg.Strict)
}

func TestNormalizeCoercesInvalidValues(t *testing.T) {
	cfg := Default()
	cfg.Tile.Size = 0
	cfg.Tile.Format = "gif"
	cfg.Tile.Quality = 0
	cfg.Workers = -3

	warnings, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Len(t, warnings, 4)
	assert.Equal(t, 254, cfg.Tile.Size)
	assert.Equal(t, "jpg", cfg.Tile.Format)
	assert.Equal(t, 85, cfg.Tile.Quality)
	assert.Equal(t, 1, cfg.Workers)
}

func TestNormalizeCanonicalizesFormat(t *testing.T) {
	cfg := Default()
	cfg.Tile.Format = "JPEG"
	assert.Empty(t, cfg.Normalize())
	assert.Equal(t, "jpg", cfg.Tile.Format)
}

func TestStrictRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"tile size", func(c *Config) { c.Tile.Size = -1 }},
		{"format", func(c *Config) { c.Tile.Format = "tiff" }},
		{"quality", func(c *Config) { c.Tile.Quality = 101 }},
		{"overlap", func(c *Config) { c.Tile.Overlap = -1 }},
		{"palette", func(c *Config) { c.Tile.Palette = 300 }},
		{"policy", func(c *Config) { c.Pyramid.LevelPolicy = "auto" }},
		{"levels", func(c *Config) { c.Pyramid.Levels = 0 }},
		{"workers", func(c *Config) { c.Workers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Strict = true
			tt.mutate(cfg)

			warnings, err := cfg.Resolve()
			assert.Empty(t, warnings)
			assert.ErrorIs(t, err, types.ErrInvalidConfig)
		})
	}
}

func TestTilesAcceptsFormatAlias(t *testing.T) {
	cfg := Default()
	cfg.Strict = true
	cfg.Tile.Format = "JPEG"

	_, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, types.JPEG, cfg.Tiles().Format)
}

func TestPlanner(t *testing.T) {
	cfg := Default()
	p := cfg.Planner()
	assert.Equal(t, pyramid.FixedLevels(6), p.Policy)
	assert.Equal(t, 254, p.TileSize)
	assert.Equal(t, 1, p.Overlap)
	assert.False(t, p.ApplyOverlap)

	cfg.Pyramid.LevelPolicy = "Derived"
	cfg.Pyramid.ApplyOverlap = true
	p = cfg.Planner()
	assert.Equal(t, pyramid.DerivedLevels{}, p.Policy)
	assert.True(t, p.ApplyOverlap)
}

func TestLoadFromFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dzconvert.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tile:
  size: 512
  format: png
pyramid:
  level_policy: derived
workers: 4
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Tile.Size)
	assert.Equal(t, "png", cfg.Tile.Format)
	assert.Equal(t, 1, cfg.Tile.Overlap)
	assert.Equal(t, 85, cfg.Tile.Quality)
	assert.Equal(t, "derived", cfg.Pyramid.LevelPolicy)
	assert.Equal(t, 6, cfg.Pyramid.Levels)
	assert.Equal(t, 4, cfg.Workers)
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Tile.Format = "webp"
	cfg.Tile.Lossless = true
	cfg.Strict = true

	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("tile.quality", 70)
	v.Set("strict", true)

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 70, cfg.Tile.Quality)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 254, cfg.Tile.Size)
}
