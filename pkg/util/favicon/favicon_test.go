package favicon

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, size int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for x := range size {
		img.Set(x, x, color.RGBA{R: 255, A: 255})
	}
	path := filepath.Join(t.TempDir(), "icon.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestParse_FileIsScaledDown(t *testing.T) {
	f, err := Parse(writePNG(t, 128))
	require.NoError(t, err)
	assert.Contains(t, string(f), dataFullPrefix)

	img, err := f.Image()
	require.NoError(t, err)
	assert.Equal(t, Size, img.Bounds().Dx())
	assert.Equal(t, Size, img.Bounds().Dy())
}

func TestParse_SmallImageKeepsSize(t *testing.T) {
	f, err := Parse(writePNG(t, 16))
	require.NoError(t, err)
	img, err := f.Image()
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
}

func TestParse_DataURI(t *testing.T) {
	const uri = "data:image/png;base64,AAAA"
	f, err := Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, Favicon(uri), f)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "text.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err = Parse(path)
	assert.Error(t, err)
}
