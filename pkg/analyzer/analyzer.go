package analyzer

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/deepzoom/internal/utils"
	"github.com/menta2k/deepzoom/pkg/processing"
	"github.com/menta2k/deepzoom/pkg/types"
)

// SourceAnalyzer opens source images and checks they can be tiled
type SourceAnalyzer struct {
	config    Config
	processor *processing.Processor
}

// Config holds configuration for source inspection
type Config struct {
	SupportedFormats []string
	MinImageSize     int
}

// New creates a new SourceAnalyzer with default configuration
func New() *SourceAnalyzer {
	return NewWithConfig(Config{
		SupportedFormats: []string{"tif", "tiff", "jpg", "jpeg", "png", "bmp", "gif", "webp"},
		MinImageSize:     1,
	})
}

// NewWithConfig creates a new SourceAnalyzer with custom configuration
func NewWithConfig(config Config) *SourceAnalyzer {
	return &SourceAnalyzer{
		config:    config,
		processor: processing.NewProcessor(),
	}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	AspectRatio float64
	Area        int
}

// Open loads the source from a file path or an http(s) URL. Every failure is
// reported as a *types.SourceReadError.
func (a *SourceAnalyzer) Open(ctx context.Context, source string) (image.Image, error) {
	if !processing.IsURL(source) {
		if !utils.FileExists(source) {
			return nil, &types.SourceReadError{Path: source, Err: fmt.Errorf("file not found")}
		}
		if ext := utils.GetFileExtension(source); ext != "" && !a.isFormatSupported(ext) {
			return nil, &types.SourceReadError{Path: source, Err: fmt.Errorf("unsupported image format: %s", ext)}
		}
	}

	img, err := a.processor.LoadImageSmart(ctx, source)
	if err != nil {
		return nil, &types.SourceReadError{Path: source, Err: err}
	}
	return img, nil
}

// GetImageInfo returns basic information about an image
func (a *SourceAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := ImageInfo{
		Width:  width,
		Height: height,
		Area:   width * height,
	}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// ValidateImage checks the image has positive dimensions of at least
// MinImageSize pixels
func (a *SourceAnalyzer) ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return fmt.Errorf("%w: image is %dx%d", types.ErrInvalidDimension, bounds.Dx(), bounds.Dy())
	}
	if bounds.Dx() < a.config.MinImageSize || bounds.Dy() < a.config.MinImageSize {
		return fmt.Errorf("%w: image too small: %dx%d (minimum: %d)",
			types.ErrInvalidDimension, bounds.Dx(), bounds.Dy(), a.config.MinImageSize)
	}
	return nil
}

func (a *SourceAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}
