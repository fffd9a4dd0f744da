package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeImage(t *testing.T, name string, encode func(*bytes.Buffer, image.Image) error) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	img.Set(2, 1, color.NRGBA{0, 0, 255, 255})
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, img))
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestLoadTexture_PNG(t *testing.T) {
	path := writeImage(t, "tex.png", func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) })

	tex, err := LoadTexture(path)
	require.NoError(t, err)
	assert.Equal(t, 3, tex.Width)
	assert.Equal(t, 2, tex.Height)
	assert.Len(t, tex.Pixels, 3*2*4)
	assert.Equal(t, []byte{255, 0, 0, 255}, tex.Pixels[0:4])
	last := (1*3 + 2) * 4
	assert.Equal(t, []byte{0, 0, 255, 255}, tex.Pixels[last:last+4])
	assert.NotEmpty(t, tex.ID)
}

func TestLoadTexture_BMP(t *testing.T) {
	path := writeImage(t, "tex.bmp", func(b *bytes.Buffer, img image.Image) error { return bmp.Encode(b, img) })

	tex, err := LoadTexture(path)
	require.NoError(t, err)
	assert.Equal(t, 3, tex.Width)
	assert.Equal(t, []byte{255, 0, 0, 255}, tex.Pixels[0:4])
}

func TestLoadTexture_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := LoadTexture(path)
	assert.Error(t, err)
}

func TestCheckerTexture(t *testing.T) {
	tex := CheckerTexture(8, 2)
	require.Equal(t, 8, tex.Width)
	require.Len(t, tex.Pixels, 8*8*4)

	at := func(x, y int) []byte { i := (y*8 + x) * 4; return tex.Pixels[i : i+4] }
	assert.Equal(t, at(0, 0), at(3, 3))
	assert.NotEqual(t, at(0, 0), at(4, 0))
	assert.Equal(t, at(4, 0), at(0, 4))
}

func TestLoadOrChecker(t *testing.T) {
	tex, err := LoadOrChecker("", nil)
	require.NoError(t, err)
	assert.Equal(t, "checker", tex.Name)

	tex, err = LoadOrChecker(filepath.Join(t.TempDir(), "missing.png"), nil)
	require.NoError(t, err)
	assert.Equal(t, "checker", tex.Name)

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0o644))
	_, err = LoadOrChecker(bad, nil)
	assert.Error(t, err)
}
