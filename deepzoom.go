// Package deepzoom converts a large raster image into a Deep Zoom tile
// pyramid and its DZI descriptor, ready for viewers such as OpenSeadragon.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/menta2k/deepzoom"
//		"github.com/menta2k/deepzoom/pkg/types"
//	)
//
//	func main() {
//		conv, err := deepzoom.New(types.DefaultPyramidConfig())
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		res, err := conv.Convert(context.Background(), "slide.tif", "slide")
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("wrote %s with %d tiles", res.DescriptorPath, res.Tiles)
//	}
//
// The output directory "slide" then holds:
//
//	slide/slide.dzi
//	slide/slide_files/{level}/{column}_{row}.jpg
//
// The package is built from four parts:
//
// 1. Planner (pkg/pyramid): level count, scaled sizes and tile rectangles
// 2. Processing (pkg/processing): Lanczos resampling and tile encoding
// 3. Renderer (pkg/renderer): crops each level into tiles and stores them
// 4. Descriptor (pkg/dzi): the XML file describing the pyramid
//
// Levels are written coarsest first. The descriptor is written only after
// every tile of every level has been stored; any failure aborts the run and
// leaves the output directory in an undefined state.
package deepzoom

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/menta2k/deepzoom/internal/utils"
	"github.com/menta2k/deepzoom/pkg/analyzer"
	"github.com/menta2k/deepzoom/pkg/dzi"
	"github.com/menta2k/deepzoom/pkg/pyramid"
	"github.com/menta2k/deepzoom/pkg/renderer"
	"github.com/menta2k/deepzoom/pkg/types"
)

// Version of the deepzoom library
const Version = "1.0.0"

// Converter turns source images into tile pyramids
type Converter struct {
	cfg      types.PyramidConfig
	planner  *pyramid.Planner
	workers  int
	log      *slog.Logger
	analyzer *analyzer.SourceAnalyzer
}

// Option configures a Converter
type Option func(*Converter)

// WithLevelPolicy replaces the fixed six-level policy
func WithLevelPolicy(policy pyramid.LevelPolicy) Option {
	return func(c *Converter) {
		c.planner.Policy = policy
	}
}

// WithApplyOverlap expands tile rectangles by the configured overlap on
// interior edges. Off by default: the overlap is only declared in the
// descriptor.
func WithApplyOverlap(apply bool) Option {
	return func(c *Converter) {
		c.planner.ApplyOverlap = apply
	}
}

// WithWorkers sets the number of tiles written concurrently
func WithWorkers(n int) Option {
	return func(c *Converter) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the structured logger for progress messages
func WithLogger(log *slog.Logger) Option {
	return func(c *Converter) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Converter for cfg
func New(cfg types.PyramidConfig, opts ...Option) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Converter{
		cfg:      cfg,
		planner:  pyramid.NewPlanner(cfg),
		workers:  1,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		analyzer: analyzer.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Result describes a completed conversion
type Result struct {
	DescriptorPath string
	TilesDir       string
	Document       dzi.Document
	Levels         []pyramid.Level
	Tiles          int
}

// Layout returns the descriptor path and tiles directory used for an
// output directory: {dir}/{name}.dzi and {dir}/{name}_files, where name is
// the last element of the absolute form of dir. A filesystem root has no
// name and is rejected.
func Layout(outputDir string) (descriptor, tilesDir string, err error) {
	dir := filepath.Clean(outputDir)
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", "", fmt.Errorf("%w: output directory %q: %w", types.ErrInvalidConfig, outputDir, err)
	}
	if filepath.Dir(abs) == abs {
		return "", "", fmt.Errorf("%w: output directory %q has no name to derive files from", types.ErrInvalidConfig, outputDir)
	}
	name := filepath.Base(abs)
	return filepath.Join(dir, name+"."+dzi.Extension), filepath.Join(dir, name+"_files"), nil
}

// Convert reads the source at input (file path or http(s) URL) and writes
// the pyramid into outputDir
func (c *Converter) Convert(ctx context.Context, input, outputDir string) (*Result, error) {
	c.log.Info("loading image", "source", input)
	img, err := c.analyzer.Open(ctx, input)
	if err != nil {
		return nil, err
	}
	return c.ConvertImage(ctx, img, outputDir)
}

// ConvertImage writes the pyramid of an already decoded image into
// outputDir. Nothing is created on disk until the image and its plan have
// been accepted.
func (c *Converter) ConvertImage(ctx context.Context, img image.Image, outputDir string) (*Result, error) {
	descriptor, tilesDir, err := Layout(outputDir)
	if err != nil {
		return nil, err
	}
	levels, info, err := c.plan(img)
	if err != nil {
		return nil, err
	}

	if err := utils.EnsureDir(tilesDir); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %w", types.ErrTileWrite, err)
	}
	if err := c.renderLevels(ctx, img, levels, info, renderer.NewDirSink(tilesDir, c.cfg)); err != nil {
		return nil, err
	}

	doc := dzi.New(c.cfg, info.Width, info.Height)
	if err := dzi.WriteFile(descriptor, doc); err != nil {
		return nil, err
	}

	res := &Result{
		DescriptorPath: descriptor,
		TilesDir:       tilesDir,
		Document:       doc,
		Levels:         levels,
	}
	for _, lvl := range levels {
		res.Tiles += lvl.TileCount()
	}
	c.log.Info("conversion complete", "descriptor", descriptor, "tiles_dir", tilesDir, "tiles", res.Tiles)
	return res, nil
}

// Render plans the pyramid for img and writes every level into sink,
// coarsest first. It returns the planned levels and the descriptor that
// matches them; nothing is written for the descriptor itself.
func (c *Converter) Render(ctx context.Context, img image.Image, sink renderer.Sink) ([]pyramid.Level, dzi.Document, error) {
	levels, info, err := c.plan(img)
	if err != nil {
		return nil, dzi.Document{}, err
	}
	if err := c.renderLevels(ctx, img, levels, info, sink); err != nil {
		return nil, dzi.Document{}, err
	}
	return levels, dzi.New(c.cfg, info.Width, info.Height), nil
}

func (c *Converter) plan(img image.Image) ([]pyramid.Level, analyzer.ImageInfo, error) {
	info := c.analyzer.GetImageInfo(img)
	if err := c.analyzer.ValidateImage(img); err != nil {
		return nil, info, err
	}
	levels, err := c.planner.Plan(info.Width, info.Height)
	if err != nil {
		return nil, info, err
	}
	return levels, info, nil
}

func (c *Converter) renderLevels(ctx context.Context, img image.Image, levels []pyramid.Level, info analyzer.ImageInfo, sink renderer.Sink) error {
	log := c.log.With("width", info.Width, "height", info.Height)
	log.Info("generating zoom levels", "levels", len(levels), "tile_size", c.cfg.TileSize, "format", c.cfg.Format)

	r := renderer.New(sink, renderer.WithWorkers(c.workers), renderer.WithLogger(log))
	provider := renderer.ResampleFrom(img)
	for _, lvl := range levels {
		if err := r.Render(ctx, lvl, provider); err != nil {
			return err
		}
	}
	return nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
