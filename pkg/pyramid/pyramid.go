// Package pyramid computes the geometry of a Deep Zoom tile pyramid.
//
// The planner is pure: it never touches pixels. Given the source
// dimensions, a tile size and a level count it returns one Level per
// resolution tier, coarsest first, each carrying its tile grid.
package pyramid

import (
	"fmt"
	"image"

	"github.com/menta2k/deepzoom/pkg/types"
)

// Level is one resolution tier of the pyramid
type Level struct {
	Index   int // 0 is the coarsest emitted level
	Scale   int // power of two divisor applied to the source dimensions
	Width   int
	Height  int
	Columns int
	Rows    int
	Tiles   []Tile // row-major
}

// Tile addresses one crop of a level's bitmap
type Tile struct {
	Column int
	Row    int
	Rect   image.Rectangle
}

// X returns the left edge of the tile rectangle
func (t Tile) X() int { return t.Rect.Min.X }

// Y returns the top edge of the tile rectangle
func (t Tile) Y() int { return t.Rect.Min.Y }

// W returns the tile width
func (t Tile) W() int { return t.Rect.Dx() }

// H returns the tile height
func (t Tile) H() int { return t.Rect.Dy() }

// Name returns the tile file name without extension, "{column}_{row}"
func (t Tile) Name() string {
	return fmt.Sprintf("%d_%d", t.Column, t.Row)
}

// Bounds returns the level rectangle in its own pixel space
func (l Level) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.Width, l.Height)
}

// TileCount returns the number of tiles in the level grid
func (l Level) TileCount() int {
	return l.Columns * l.Rows
}

// Plan computes levelCount levels for a source of the given size.
// Tile rectangles carry no overlap.
func Plan(sourceWidth, sourceHeight, tileSize, levelCount int) ([]Level, error) {
	p := Planner{TileSize: tileSize, Policy: FixedLevels(levelCount)}
	return p.Plan(sourceWidth, sourceHeight)
}

// Planner holds the geometry parameters of a pyramid.
// When ApplyOverlap is set, each tile rectangle grows by Overlap pixels on
// every edge shared with a neighbouring tile.
type Planner struct {
	TileSize     int
	Overlap      int
	ApplyOverlap bool
	Policy       LevelPolicy
}

// NewPlanner creates a Planner for the given config using the fixed
// six-level policy
func NewPlanner(cfg types.PyramidConfig) *Planner {
	return &Planner{
		TileSize: cfg.TileSize,
		Overlap:  cfg.Overlap,
		Policy:   FixedLevels(types.DefaultLevels),
	}
}

// Plan computes the levels for a source of the given size
func (p *Planner) Plan(sourceWidth, sourceHeight int) ([]Level, error) {
	if sourceWidth <= 0 || sourceHeight <= 0 {
		return nil, fmt.Errorf("%w: source is %dx%d", types.ErrInvalidDimension, sourceWidth, sourceHeight)
	}
	if p.TileSize <= 0 {
		return nil, fmt.Errorf("%w: tile size must be positive, got %d", types.ErrInvalidConfig, p.TileSize)
	}
	if p.Overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", types.ErrInvalidConfig, p.Overlap)
	}

	policy := p.Policy
	if policy == nil {
		policy = FixedLevels(types.DefaultLevels)
	}
	count := policy.Levels(sourceWidth, sourceHeight, p.TileSize)
	if count <= 0 {
		return nil, fmt.Errorf("%w: level count must be positive, got %d", types.ErrInvalidConfig, count)
	}
	if count > maxLevels {
		return nil, fmt.Errorf("%w: level count %d exceeds %d", types.ErrInvalidConfig, count, maxLevels)
	}

	levels := make([]Level, count)
	for i := range count {
		levels[i] = p.level(i, count, sourceWidth, sourceHeight)
	}
	return levels, nil
}

// maxLevels keeps 1<<levelNum inside a positive int
const maxLevels = 62

func (p *Planner) level(index, count, sourceWidth, sourceHeight int) Level {
	scale := 1 << (count - index - 1)
	width := max(1, sourceWidth/scale)
	height := max(1, sourceHeight/scale)

	lvl := Level{
		Index:   index,
		Scale:   scale,
		Width:   width,
		Height:  height,
		Columns: ceilDiv(width, p.TileSize),
		Rows:    ceilDiv(height, p.TileSize),
	}

	lvl.Tiles = make([]Tile, 0, lvl.Columns*lvl.Rows)
	for row := range lvl.Rows {
		for col := range lvl.Columns {
			lvl.Tiles = append(lvl.Tiles, Tile{
				Column: col,
				Row:    row,
				Rect:   p.tileRect(lvl, col, row),
			})
		}
	}
	return lvl
}

func (p *Planner) tileRect(lvl Level, col, row int) image.Rectangle {
	x := col * p.TileSize
	y := row * p.TileSize
	w := min(p.TileSize, lvl.Width-x)
	h := min(p.TileSize, lvl.Height-y)
	r := image.Rect(x, y, x+w, y+h)

	if !p.ApplyOverlap || p.Overlap == 0 {
		return r
	}
	// anything wider than the level is clamped away anyway
	overlap := min(p.Overlap, max(lvl.Width, lvl.Height))
	if col > 0 {
		r.Min.X -= overlap
	}
	if row > 0 {
		r.Min.Y -= overlap
	}
	if col < lvl.Columns-1 {
		r.Max.X += overlap
	}
	if row < lvl.Rows-1 {
		r.Max.Y += overlap
	}
	return r.Intersect(lvl.Bounds())
}

// ceilDiv expects a >= 1 and b >= 1; the form avoids overflowing a+b
func ceilDiv(a, b int) int {
	return (a-1)/b + 1
}
