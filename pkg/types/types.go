package types

import (
	"fmt"
	"strings"
)

// Defaults used when a PyramidConfig field is left at its zero value.
const (
	DefaultTileSize = 254
	DefaultOverlap  = 1
	DefaultQuality  = 85
	DefaultLevels   = 6
)

// TileFormat is the encoding used for every tile of a pyramid
type TileFormat string

const (
	JPEG TileFormat = "jpg"
	PNG  TileFormat = "png"
	WebP TileFormat = "webp"
)

// ParseTileFormat maps user input to a TileFormat. "jpeg" is accepted as an
// alias of "jpg".
func ParseTileFormat(s string) (TileFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	}
	return "", fmt.Errorf("%w: unknown tile format %q (use jpg, png or webp)", ErrInvalidConfig, s)
}

// Extension returns the filename extension without the dot
func (f TileFormat) Extension() string {
	return string(f)
}

func (f TileFormat) String() string {
	return string(f)
}

// PyramidConfig describes how a pyramid is cut and encoded.
// Overlap is recorded in the descriptor; it only changes tile rectangles
// when the planner is asked to apply it.
type PyramidConfig struct {
	TileSize    int
	Overlap     int
	Format      TileFormat
	Quality     int
	Lossless    bool // WebP only
	PaletteSize int  // PNG only, 0 keeps full color
}

// DefaultPyramidConfig returns the configuration used by the reference tool
func DefaultPyramidConfig() PyramidConfig {
	return PyramidConfig{
		TileSize: DefaultTileSize,
		Overlap:  DefaultOverlap,
		Format:   JPEG,
		Quality:  DefaultQuality,
	}
}

// Validate checks that the configuration can drive a conversion
func (c PyramidConfig) Validate() error {
	if c.TileSize <= 0 {
		return fmt.Errorf("%w: tile size must be positive, got %d", ErrInvalidConfig, c.TileSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, c.Overlap)
	}
	if _, err := ParseTileFormat(string(c.Format)); err != nil {
		return err
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("%w: quality must be between 1 and 100, got %d", ErrInvalidConfig, c.Quality)
	}
	if c.PaletteSize < 0 || c.PaletteSize > 256 {
		return fmt.Errorf("%w: palette size must be between 0 and 256, got %d", ErrInvalidConfig, c.PaletteSize)
	}
	return nil
}
