package types

import (
	"errors"
	"fmt"
)

// Failure kinds of a conversion run. Every error returned by this module
// matches exactly one of them with errors.Is.
var (
	ErrInvalidDimension = errors.New("invalid dimension")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrSourceRead       = errors.New("source read failure")
	ErrTileWrite        = errors.New("tile write failure")
	ErrDescriptorWrite  = errors.New("descriptor write failure")
)

// SourceReadError reports a failure opening or decoding the source image
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSourceRead, e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

func (e *SourceReadError) Is(target error) bool { return target == ErrSourceRead }

// TileWriteError reports a failure encoding or storing a single tile.
// Column and Row are -1 when the level as a whole could not be prepared.
type TileWriteError struct {
	Level  int
	Column int
	Row    int
	Err    error
}

func (e *TileWriteError) Error() string {
	if e.Column < 0 || e.Row < 0 {
		return fmt.Sprintf("%s: level %d: %v", ErrTileWrite, e.Level, e.Err)
	}
	return fmt.Sprintf("%s: level %d tile %d_%d: %v", ErrTileWrite, e.Level, e.Column, e.Row, e.Err)
}

func (e *TileWriteError) Unwrap() error { return e.Err }

func (e *TileWriteError) Is(target error) bool { return target == ErrTileWrite }
