package processing

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/deepzoom/pkg/types"
)

// createTestImage creates a gradient test image
func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}
	return img
}

func TestResample(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(400, 300)

	out, err := p.Resample(img, 125, 1)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 125, 1), out.Bounds())

	_, err = p.Resample(img, 0, 10)
	assert.ErrorIs(t, err, types.ErrInvalidDimension)
}

func TestResampleIsDeterministic(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(333, 217)

	a, err := p.Resample(img, 41, 27)
	require.NoError(t, err)
	b, err := p.Resample(img, 41, 27)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestCrop(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(200, 100)

	tile, err := p.Crop(img, image.Rect(150, 50, 200, 100))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 50), tile.Bounds())

	r, g, b, a := img.At(150, 50).RGBA()
	r2, g2, b2, a2 := tile.At(0, 0).RGBA()
	assert.Equal(t, []uint32{r, g, b, a}, []uint32{r2, g2, b2, a2})

	_, err = p.Crop(img, image.Rect(150, 50, 201, 100))
	assert.Error(t, err)
}

func TestEncodeFormats(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(64, 48)

	tests := []struct {
		name   string
		cfg    types.PyramidConfig
		format string
	}{
		{"jpeg", types.PyramidConfig{Format: types.JPEG, Quality: 85}, "jpeg"},
		{"png", types.PyramidConfig{Format: types.PNG}, "png"},
		{"png palette", types.PyramidConfig{Format: types.PNG, PaletteSize: 16}, "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, p.Encode(&buf, img, tt.cfg))

			decoded, format, err := image.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, img.Bounds(), decoded.Bounds())
		})
	}
}

func TestEncodePNGIsLossless(t *testing.T) {
	p := NewProcessor()
	img := imaging.Clone(createTestImage(32, 32))

	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf, img, types.PyramidConfig{Format: types.PNG}))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, imaging.Clone(decoded).Pix)
}

func TestEncodePNGPalette(t *testing.T) {
	p := NewProcessor()

	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf, createTestImage(64, 64), types.PyramidConfig{Format: types.PNG, PaletteSize: 8}))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	pm, ok := decoded.(*image.Paletted)
	require.True(t, ok, "expected paletted PNG, got %T", decoded)
	assert.LessOrEqual(t, len(pm.Palette), 8)
}

func TestEncodeJPEGDefaultQuality(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(96, 64)

	cfg := types.DefaultPyramidConfig()
	require.Equal(t, types.JPEG, cfg.Format)

	var got, want bytes.Buffer
	require.NoError(t, p.Encode(&got, img, cfg))
	require.NoError(t, imaging.Encode(&want, img, imaging.JPEG, imaging.JPEGQuality(85)))
	assert.Equal(t, want.Bytes(), got.Bytes())
}

func TestEncodeJPEGQuality(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(128, 128)

	var low, high bytes.Buffer
	require.NoError(t, p.Encode(&low, img, types.PyramidConfig{Format: types.JPEG, Quality: 10}))
	require.NoError(t, p.Encode(&high, img, types.PyramidConfig{Format: types.JPEG, Quality: 95}))
	assert.Less(t, low.Len(), high.Len())
}

func TestEncodeUnknownFormat(t *testing.T) {
	p := NewProcessor()
	err := p.Encode(&bytes.Buffer{}, createTestImage(4, 4), types.PyramidConfig{Format: "gif"})
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestLoadImage(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	path := filepath.Join(dir, "source.png")
	require.NoError(t, p.SaveImage(createTestImage(90, 70), path, types.PyramidConfig{Format: types.PNG}))

	img, err := p.LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 90, img.Bounds().Dx())
	assert.Equal(t, 70, img.Bounds().Dy())

	_, err = p.LoadImage(filepath.Join(dir, "missing.tif"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.tif")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	_, err = p.LoadImage(garbage)
	assert.Error(t, err)
}

func TestLoadImageKeepsDecodeCause(t *testing.T) {
	p := NewProcessor()
	path := filepath.Join(t.TempDir(), "truncated.png")
	// a PNG signature with no chunks after it
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o644))

	_, err := p.LoadImage(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorContains(t, err, path)
}

func TestLoadImageFromURL(t *testing.T) {
	var body bytes.Buffer
	require.NoError(t, jpeg.Encode(&body, createTestImage(40, 30), nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/image.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(body.Bytes())
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProcessor()
	ctx := context.Background()

	img, err := p.LoadImageSmart(ctx, srv.URL+"/image.jpg")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())

	_, err = p.LoadImageFromURL(ctx, srv.URL+"/page.html")
	assert.Error(t, err)

	_, err = p.LoadImageFromURL(ctx, srv.URL+"/missing.jpg")
	assert.Error(t, err)

	_, err = p.LoadImageFromURL(ctx, "ftp://example.com/image.jpg")
	assert.Error(t, err)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("http://example.com/a.tif"))
	assert.True(t, IsURL("https://example.com/a.tif"))
	assert.False(t, IsURL("/data/a.tif"))
	assert.False(t, IsURL("a.tif"))
}

func BenchmarkResample(b *testing.B) {
	p := NewProcessor()
	img := createTestImage(2048, 1536)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Resample(img, 1024, 768)
	}
}
