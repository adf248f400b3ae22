package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/menta2k/deepzoom/pkg/pyramid"
	"github.com/menta2k/deepzoom/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Tile    TileConfig    `json:"tile" mapstructure:"tile"`
	Pyramid PyramidConfig `json:"pyramid" mapstructure:"pyramid"`
	Output  OutputConfig  `json:"output" mapstructure:"output"`

	// Workers is the number of tiles written concurrently
	Workers int `json:"workers" mapstructure:"workers"`

	// Strict turns values Normalize would replace with defaults into
	// validation errors
	Strict bool `json:"strict" mapstructure:"strict"`
}

// TileConfig holds tile size and encoding settings
type TileConfig struct {
	Size     int    `json:"size" mapstructure:"size"`
	Overlap  int    `json:"overlap" mapstructure:"overlap"`
	Format   string `json:"format" mapstructure:"format"`
	Quality  int    `json:"quality" mapstructure:"quality"`
	Lossless bool   `json:"lossless" mapstructure:"lossless"`
	Palette  int    `json:"palette" mapstructure:"palette"`
}

// PyramidConfig holds the level policy
type PyramidConfig struct {
	LevelPolicy  string `json:"level_policy" mapstructure:"level_policy"`
	Levels       int    `json:"levels" mapstructure:"levels"`
	ApplyOverlap bool   `json:"apply_overlap" mapstructure:"apply_overlap"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Tile: TileConfig{
			Size:    types.DefaultTileSize,
			Overlap: types.DefaultOverlap,
			Format:  string(types.JPEG),
			Quality: types.DefaultQuality,
		},
		Pyramid: PyramidConfig{
			LevelPolicy: "fixed",
			Levels:      types.DefaultLevels,
		},
		Workers: 1,
	}
}

// SetDefaults registers the defaults on v so config files and flags only
// need to override what they change
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("tile.size", d.Tile.Size)
	v.SetDefault("tile.overlap", d.Tile.Overlap)
	v.SetDefault("tile.format", d.Tile.Format)
	v.SetDefault("tile.quality", d.Tile.Quality)
	v.SetDefault("tile.lossless", d.Tile.Lossless)
	v.SetDefault("tile.palette", d.Tile.Palette)
	v.SetDefault("pyramid.level_policy", d.Pyramid.LevelPolicy)
	v.SetDefault("pyramid.levels", d.Pyramid.Levels)
	v.SetDefault("pyramid.apply_overlap", d.Pyramid.ApplyOverlap)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("strict", d.Strict)
}

// FromViper decodes the configuration held by v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a JSON, YAML or TOML file
func LoadFromFile(filename string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(filename)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return FromViper(v)
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Normalize replaces unusable values with defaults and returns one warning
// per replacement
func (c *Config) Normalize() []string {
	d := Default()
	var warnings []string
	coerce := func(field string, bad any, fix func()) {
		fix()
		warnings = append(warnings, fmt.Sprintf("%s %v is invalid, using default", field, bad))
	}

	if c.Tile.Size <= 0 {
		coerce("tile.size", c.Tile.Size, func() { c.Tile.Size = d.Tile.Size })
	}
	if c.Tile.Overlap < 0 {
		coerce("tile.overlap", c.Tile.Overlap, func() { c.Tile.Overlap = d.Tile.Overlap })
	}
	if f, err := types.ParseTileFormat(c.Tile.Format); err != nil {
		coerce("tile.format", fmt.Sprintf("%q", c.Tile.Format), func() { c.Tile.Format = d.Tile.Format })
	} else {
		c.Tile.Format = string(f)
	}
	if c.Tile.Quality < 1 || c.Tile.Quality > 100 {
		coerce("tile.quality", c.Tile.Quality, func() { c.Tile.Quality = d.Tile.Quality })
	}
	if c.Tile.Palette < 0 || c.Tile.Palette > 256 {
		coerce("tile.palette", c.Tile.Palette, func() { c.Tile.Palette = d.Tile.Palette })
	}
	if _, ok := pyramid.PolicyByName(strings.ToLower(c.Pyramid.LevelPolicy), 1); !ok {
		coerce("pyramid.level_policy", fmt.Sprintf("%q", c.Pyramid.LevelPolicy), func() { c.Pyramid.LevelPolicy = d.Pyramid.LevelPolicy })
	}
	if c.Pyramid.Levels <= 0 {
		coerce("pyramid.levels", c.Pyramid.Levels, func() { c.Pyramid.Levels = d.Pyramid.Levels })
	}
	if c.Workers <= 0 {
		coerce("workers", c.Workers, func() { c.Workers = d.Workers })
	}
	return warnings
}

// Resolve normalizes the configuration unless Strict is set, then validates
// it. Warnings describe every value that was replaced.
func (c *Config) Resolve() ([]string, error) {
	var warnings []string
	if !c.Strict {
		warnings = c.Normalize()
	}
	return warnings, c.Validate()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Tiles().Validate(); err != nil {
		return err
	}
	if _, ok := pyramid.PolicyByName(strings.ToLower(c.Pyramid.LevelPolicy), c.Pyramid.Levels); !ok {
		return fmt.Errorf("%w: pyramid.level_policy must be fixed or derived, got %q", types.ErrInvalidConfig, c.Pyramid.LevelPolicy)
	}
	if c.Pyramid.Levels <= 0 {
		return fmt.Errorf("%w: pyramid.levels must be positive", types.ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", types.ErrInvalidConfig)
	}
	return nil
}

// Tiles returns the tile settings as a PyramidConfig
func (c *Config) Tiles() types.PyramidConfig {
	format, err := types.ParseTileFormat(c.Tile.Format)
	if err != nil {
		format = types.TileFormat(c.Tile.Format)
	}
	return types.PyramidConfig{
		TileSize:    c.Tile.Size,
		Overlap:     c.Tile.Overlap,
		Format:      format,
		Quality:     c.Tile.Quality,
		Lossless:    c.Tile.Lossless,
		PaletteSize: c.Tile.Palette,
	}
}

// Planner builds the pyramid planner described by the configuration
func (c *Config) Planner() *pyramid.Planner {
	policy, ok := pyramid.PolicyByName(strings.ToLower(c.Pyramid.LevelPolicy), c.Pyramid.Levels)
	if !ok {
		policy = pyramid.FixedLevels(types.DefaultLevels)
	}
	return &pyramid.Planner{
		TileSize:     c.Tile.Size,
		Overlap:      c.Tile.Overlap,
		ApplyOverlap: c.Pyramid.ApplyOverlap,
		Policy:       policy,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.dzconvert.yaml"
	}
	return filepath.Join(home, ".dzconvert.yaml")
}
