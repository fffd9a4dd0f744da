package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Grid is the fixed W x H texel layout of the particle state textures.
// One texel holds one particle, so NumParticles is always Width*Height.
type Grid struct {
	Width  int
	Height int
}

func NewGrid(width, height int) (Grid, error) {
	if width <= 0 || height <= 0 {
		return Grid{}, fmt.Errorf("invalid particle grid %dx%d", width, height)
	}
	return Grid{Width: width, Height: height}, nil
}

func (g Grid) NumParticles() int {
	return g.Width * g.Height
}

// TexelOf maps a particle identifier to its texel (id % W, id / W).
func (g Grid) TexelOf(id uint32) (x, y int) {
	return int(id) % g.Width, int(id) / g.Width
}

// TexCoordOf returns the texel of id normalized to [0,1).
func (g Grid) TexCoordOf(id uint32) mgl32.Vec2 {
	x, y := g.TexelOf(id)
	return mgl32.Vec2{float32(x) / float32(g.Width), float32(y) / float32(g.Height)}
}

// IndexOf is the row-major texel index, equal to the identifier that maps to (x, y).
func (g Grid) IndexOf(x, y int) int {
	return y*g.Width + x
}

// Dims returns the grid size as the vec2 uniform the shaders expect.
func (g Grid) Dims() mgl32.Vec2 {
	return mgl32.Vec2{float32(g.Width), float32(g.Height)}
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

// ParticleIDs returns the per-instance identifier attribute [0, n).
func ParticleIDs(n int) []uint32 {
	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(i)
	}
	return ids
}
