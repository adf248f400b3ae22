package renderer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/menta2k/deepzoom/internal/utils"
	"github.com/menta2k/deepzoom/pkg/processing"
	"github.com/menta2k/deepzoom/pkg/pyramid"
	"github.com/menta2k/deepzoom/pkg/types"
)

// Sink receives the cropped tiles of a pyramid. WriteTile may be called
// concurrently for different tiles; a given tile is written exactly once.
type Sink interface {
	WriteTile(ctx context.Context, level int, tile pyramid.Tile, img image.Image) error
}

// LevelPreparer is implemented by sinks that need setup before the first
// tile of a level arrives
type LevelPreparer interface {
	PrepareLevel(level int) error
}

// TileFileName returns "{column}_{row}.{ext}"
func TileFileName(tile pyramid.Tile, format types.TileFormat) string {
	return tile.Name() + "." + format.Extension()
}

// DirSink stores tiles as files under root/{level}/{column}_{row}.{ext}
type DirSink struct {
	root      string
	cfg       types.PyramidConfig
	processor *processing.Processor
}

// NewDirSink creates a sink writing below root, typically "{name}_files"
func NewDirSink(root string, cfg types.PyramidConfig) *DirSink {
	return &DirSink{
		root:      root,
		cfg:       cfg,
		processor: processing.NewProcessor(),
	}
}

// Root returns the tiles directory
func (s *DirSink) Root() string {
	return s.root
}

// LevelDir returns the directory holding the tiles of level
func (s *DirSink) LevelDir(level int) string {
	return filepath.Join(s.root, strconv.Itoa(level))
}

// TilePath returns the file path of a tile
func (s *DirSink) TilePath(level int, tile pyramid.Tile) string {
	return filepath.Join(s.LevelDir(level), TileFileName(tile, s.cfg.Format))
}

// PrepareLevel creates the level directory. Existing directories are fine.
func (s *DirSink) PrepareLevel(level int) error {
	return utils.EnsureDir(s.LevelDir(level))
}

// WriteTile encodes img into the tile's file
func (s *DirSink) WriteTile(ctx context.Context, level int, tile pyramid.Tile, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.processor.SaveImage(img, s.TilePath(level, tile), s.cfg); err != nil {
		return &types.TileWriteError{Level: level, Column: tile.Column, Row: tile.Row, Err: err}
	}
	return nil
}

// MemorySink keeps encoded tiles in memory, keyed by "{level}/{column}_{row}.{ext}".
// Order records keys in arrival order.
type MemorySink struct {
	cfg       types.PyramidConfig
	processor *processing.Processor

	mu    sync.Mutex
	tiles map[string][]byte
	order []string
}

// NewMemorySink creates an empty in-memory sink
func NewMemorySink(cfg types.PyramidConfig) *MemorySink {
	return &MemorySink{
		cfg:       cfg,
		processor: processing.NewProcessor(),
		tiles:     make(map[string][]byte),
	}
}

// Key returns the map key used for a tile
func (s *MemorySink) Key(level int, tile pyramid.Tile) string {
	return fmt.Sprintf("%d/%s", level, TileFileName(tile, s.cfg.Format))
}

// WriteTile implements Sink
func (s *MemorySink) WriteTile(ctx context.Context, level int, tile pyramid.Tile, img image.Image) error {
	var buf bytes.Buffer
	if err := s.processor.Encode(&buf, img, s.cfg); err != nil {
		return &types.TileWriteError{Level: level, Column: tile.Column, Row: tile.Row, Err: err}
	}

	key := s.Key(level, tile)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tiles[key]; ok {
		return &types.TileWriteError{Level: level, Column: tile.Column, Row: tile.Row, Err: fmt.Errorf("tile %s written twice", key)}
	}
	s.tiles[key] = buf.Bytes()
	s.order = append(s.order, key)
	return nil
}

// Tile returns the encoded bytes stored under key
func (s *MemorySink) Tile(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.tiles[key]
	return b, ok
}

// Len returns the number of stored tiles
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tiles)
}

// Order returns the keys in the order tiles arrived
func (s *MemorySink) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}
