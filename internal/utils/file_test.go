package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, EnsureDir(file))
}

func TestGetFileExtension(t *testing.T) {
	assert.Equal(t, "tif", GetFileExtension("/data/Slide.TIF"))
	assert.Equal(t, "gz", GetFileExtension("archive.tar.gz"))
	assert.Equal(t, "", GetFileExtension("README"))
}

func TestDefaultOutputDir(t *testing.T) {
	assert.Equal(t, "slide", DefaultOutputDir("scans/slide.tif"))
	assert.Equal(t, "moon", DefaultOutputDir("https://example.com/img/moon.tiff?sig=abc"))
	assert.Equal(t, "a_b", DefaultOutputDir("a:b.png"))
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "x.png")
	require.NoError(t, os.WriteFile(file, []byte{1}, 0o644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(file))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeFilename("a/b\\c"))
	assert.Equal(t, "name", SanitizeFilename("  .name. "))
}
