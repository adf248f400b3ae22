package processing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/ericpauley/go-quantize/quantize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/deepzoom/pkg/types"
)

// maxDownloadSize caps the body read from a remote source
const maxDownloadSize = 1 << 30

// Processor handles decoding, resampling and tile encoding
type Processor struct {
	client *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// LoadImageFromURL downloads and decodes an image from a URL
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "deepzoom/1.0 (+https://github.com/menta2k/deepzoom)")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") && contentType != "application/octet-stream" {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return p.decodeImageFromBytes(imageData)
}

// LoadImage loads an image from a file path. TIFF, BMP and WebP are
// handled by the golang.org/x/image decoders registered above.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	img, openErr := imaging.Open(path)
	if openErr == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode, then whatever image.Decode knows
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
			return img, nil
		}
	}
	img, err = p.decodeImageFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, openErr)
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(ctx context.Context, source string) (image.Image, error) {
	if IsURL(source) {
		return p.LoadImageFromURL(ctx, source)
	}
	return p.LoadImage(source)
}

// IsURL reports whether source should be fetched over HTTP
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (p *Processor) decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// Resample scales img to exactly width x height with the Lanczos filter.
// The result always has its origin at (0, 0).
func (p *Processor) Resample(img image.Image, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: resample target %dx%d", types.ErrInvalidDimension, width, height)
	}
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

// Crop copies rect out of img
func (p *Processor) Crop(img image.Image, rect image.Rectangle) (*image.NRGBA, error) {
	r := rect.Intersect(img.Bounds())
	if r.Empty() || r != rect {
		return nil, fmt.Errorf("crop rectangle %v outside image bounds %v", rect, img.Bounds())
	}
	return imaging.Crop(img, rect), nil
}

// Encode writes img to w in the tile format of cfg. JPEG and WebP use
// cfg.Quality; PNG is lossless unless cfg.PaletteSize asks for a reduced
// palette.
func (p *Processor) Encode(w io.Writer, img image.Image, cfg types.PyramidConfig) error {
	switch cfg.Format {
	case types.WebP:
		opts := &webp.Options{Lossless: cfg.Lossless, Quality: float32(cfg.Quality)}
		return webp.Encode(w, img, opts)
	case types.PNG:
		if cfg.PaletteSize > 0 {
			img = quantizeImage(img, cfg.PaletteSize)
		}
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.DefaultCompression))
	case types.JPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(cfg.Quality))
	default:
		return fmt.Errorf("%w: unsupported tile format %q", types.ErrInvalidConfig, cfg.Format)
	}
}

// SaveImage encodes img into a new file at path
func (p *Processor) SaveImage(img image.Image, path string, cfg types.PyramidConfig) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return p.Encode(f, img, cfg)
}

// quantizeImage reduces img to at most colors entries with median cut
func quantizeImage(img image.Image, colors int) *image.Paletted {
	b := img.Bounds()
	q := quantize.MedianCutQuantizer{}
	pm := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, colors), img))
	draw.Draw(pm, b, img, b.Min, draw.Src)
	return pm
}
