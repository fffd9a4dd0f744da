// Package assets loads the images the renderer samples.
package assets

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"

	"github.com/gekko3d/gpuparticles/particlert/rt/core"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type AssetId string

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

// TextureAsset is a decoded RGBA8 image, rows tightly packed.
type TextureAsset struct {
	ID     AssetId
	Name   string
	Width  int
	Height int
	Pixels []byte
}

func fromRGBA(name string, img *image.RGBA) *TextureAsset {
	b := img.Bounds()
	return &TextureAsset{
		ID:     makeAssetId(),
		Name:   name,
		Width:  b.Dx(),
		Height: b.Dy(),
		Pixels: img.Pix,
	}
}

// toRGBA returns img as a zero-origin RGBA whose stride is 4*width.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// LoadTexture decodes a png, jpeg, bmp or webp file.
func LoadTexture(filename string) (*TextureAsset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decode %s: empty %s image", filename, format)
	}
	return fromRGBA(filename, toRGBA(img)), nil
}

// CheckerTexture generates a two-tone checkerboard of cells x cells squares.
func CheckerTexture(size, cells int) *TextureAsset {
	size = max(size, 1)
	cells = max(min(cells, size), 1)
	light := color.RGBA{200, 200, 200, 255}
	dark := color.RGBA{90, 90, 96, 255}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	cell := size / cells
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := light
			if (x/cell+y/cell)%2 == 1 {
				c = dark
			}
			img.SetRGBA(x, y, c)
		}
	}
	return fromRGBA("checker", img)
}

// LoadOrChecker loads filename, falling back to a generated checker when the
// name is empty or the file is missing. Decode errors are returned.
func LoadOrChecker(filename string, log core.Logger) (*TextureAsset, error) {
	log = core.OrNop(log)
	if filename == "" {
		return CheckerTexture(256, 8), nil
	}
	tex, err := LoadTexture(filename)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warnf("Texture %s not found, using generated checker", filename)
		return CheckerTexture(256, 8), nil
	}
	if err != nil {
		return nil, err
	}
	log.Debugf("Texture %s loaded: %dx%d", filename, tex.Width, tex.Height)
	return tex, nil
}
