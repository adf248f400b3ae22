// Package renderer cuts resampled level bitmaps into tiles and hands them
// to a Sink. Geometry comes from package pyramid and is never recomputed
// here.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/deepzoom/pkg/processing"
	"github.com/menta2k/deepzoom/pkg/pyramid"
	"github.com/menta2k/deepzoom/pkg/types"
)

// BitmapProvider returns the source resampled to exactly width x height
type BitmapProvider func(width, height int) (image.Image, error)

// Renderer writes the tiles of one level at a time
type Renderer struct {
	sink      Sink
	workers   int
	log       *slog.Logger
	processor *processing.Processor
}

// Option configures a Renderer
type Option func(*Renderer)

// WithWorkers sets how many tiles are cropped and written concurrently.
// One worker keeps strict row-major order.
func WithWorkers(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger used for progress messages
func WithLogger(log *slog.Logger) Option {
	return func(r *Renderer) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates a Renderer writing into sink
func New(sink Sink, opts ...Option) *Renderer {
	r := &Renderer{
		sink:      sink,
		workers:   1,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		processor: processing.NewProcessor(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResampleFrom returns a BitmapProvider scaling src with the Lanczos filter
func ResampleFrom(src image.Image) BitmapProvider {
	p := processing.NewProcessor()
	return func(width, height int) (image.Image, error) {
		return p.Resample(src, width, height)
	}
}

// Render obtains the level bitmap from provider and writes every tile of
// the level. The first failing tile aborts the level.
func (r *Renderer) Render(ctx context.Context, level pyramid.Level, provider BitmapProvider) error {
	bitmap, err := provider(level.Width, level.Height)
	if err != nil {
		return fmt.Errorf("level %d: resample to %dx%d: %w", level.Index, level.Width, level.Height, err)
	}
	return r.RenderBitmap(ctx, level, bitmap)
}

// RenderBitmap writes every tile of level, cropping from an already
// resampled bitmap whose size must match the level
func (r *Renderer) RenderBitmap(ctx context.Context, level pyramid.Level, bitmap image.Image) error {
	if b := bitmap.Bounds(); b.Dx() != level.Width || b.Dy() != level.Height {
		return fmt.Errorf("%w: level %d bitmap is %dx%d, want %dx%d",
			types.ErrInvalidDimension, level.Index, b.Dx(), b.Dy(), level.Width, level.Height)
	}
	if b := bitmap.Bounds(); b.Min != (image.Point{}) {
		bitmap = imaging.Clone(bitmap)
	}

	if lp, ok := r.sink.(LevelPreparer); ok {
		if err := lp.PrepareLevel(level.Index); err != nil {
			return &types.TileWriteError{Level: level.Index, Column: -1, Row: -1, Err: err}
		}
	}

	log := r.log.With("level", level.Index, "width", level.Width, "height", level.Height)
	log.Debug("rendering level", "columns", level.Columns, "rows", level.Rows)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, tile := range level.Tiles {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return r.renderTile(gctx, level.Index, tile, bitmap)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("level failed", "error", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log.Info("level rendered", "tiles", len(level.Tiles))
	return nil
}

func (r *Renderer) renderTile(ctx context.Context, level int, tile pyramid.Tile, bitmap image.Image) error {
	img, err := r.processor.Crop(bitmap, tile.Rect)
	if err != nil {
		return &types.TileWriteError{Level: level, Column: tile.Column, Row: tile.Row, Err: err}
	}

	err = r.sink.WriteTile(ctx, level, tile, img)
	if err == nil {
		return nil
	}
	var twe *types.TileWriteError
	if errors.As(err, &twe) || errors.Is(err, context.Canceled) {
		return err
	}
	return &types.TileWriteError{Level: level, Column: tile.Column, Row: tile.Row, Err: err}
}
