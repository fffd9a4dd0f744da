package core

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedState_Bounds(t *testing.T) {
	g := Grid{Width: 32, Height: 16}
	p := DefaultSeedParams()
	pos, vel := SeedState(g, p, rand.New(rand.NewSource(7)))
	require.Len(t, pos, g.NumParticles())
	require.Len(t, vel, g.NumParticles())

	for i := range pos {
		for a := 0; a < 3; a++ {
			assert.True(t, pos[i][a] >= -p.Extent[a] && pos[i][a] <= p.Extent[a], "position %d axis %d = %v", i, a, pos[i][a])
			assert.True(t, vel[i][a] >= p.VelocityMin && vel[i][a] <= p.VelocityMax, "velocity %d axis %d = %v", i, a, vel[i][a])
		}
		assert.Equal(t, float32(1), pos[i][3])
		assert.Equal(t, float32(1), vel[i][3])
	}
}

func TestSeedState_Deterministic(t *testing.T) {
	g := Grid{Width: 4, Height: 4}
	p1, v1 := SeedState(g, DefaultSeedParams(), rand.New(rand.NewSource(42)))
	p2, v2 := SeedState(g, DefaultSeedParams(), rand.New(rand.NewSource(42)))
	assert.Equal(t, p1, p2)
	assert.Equal(t, v1, v2)
}

func TestStep_TwoByTwo(t *testing.T) {
	pos := []Texel{{0, 0, 0, 1}, {1, 0, 0, 1}, {0, 1, 0, 1}, {1, 1, 0, 1}}
	vel := []Texel{{1, 0, 0, 1}, {1, 0, 0, 1}, {1, 0, 0, 1}, {1, 0, 0, 1}}
	dst := make([]Texel, 4)

	Step(dst, pos, vel, 0.5)

	assert.Equal(t, []Texel{{0.5, 0, 0, 1}, {1.5, 0, 0, 1}, {0.5, 1, 0, 1}, {1.5, 1, 0, 1}}, dst)
	assert.Equal(t, Texel{0, 0, 0, 1}, pos[0], "source must be untouched")
}

func TestStep_RepeatedStepsAreLinear(t *testing.T) {
	start := Texel{0.3, -1.2, 4, 1}
	vel := Texel{0.7, -0.25, 1.5, 1}
	const dt, n = float32(1.0 / 60), 120

	p := start
	for i := 0; i < n; i++ {
		p = StepTexel(p, vel, dt)
	}
	for a := 0; a < 3; a++ {
		assert.InDelta(t, start[a]+vel[a]*float32(n)*dt, p[a], 1e-4)
	}
	assert.Equal(t, start[3], p[3])
}

func TestValidDelta(t *testing.T) {
	assert.True(t, ValidDelta(0))
	assert.True(t, ValidDelta(0.016))
	assert.False(t, ValidDelta(-0.001))
	assert.False(t, ValidDelta(float32(math.NaN())))
	assert.False(t, ValidDelta(float32(math.Inf(1))))
}

func TestClampDelta(t *testing.T) {
	cases := []struct {
		in      float32
		want    float32
		clamped bool
	}{
		{0.016, 0.016, false},
		{0, 0, false},
		{0.25, 0.25, false},
		{3, 0.25, true},
		{-1, 0, true},
		{float32(math.NaN()), 0, true},
		{float32(math.Inf(1)), 0.25, true},
		{float32(math.Inf(-1)), 0, true},
	}
	for _, c := range cases {
		got, clamped := ClampDelta(c.in, 0.25)
		assert.Equal(t, c.want, got, "ClampDelta(%v)", c.in)
		assert.Equal(t, c.clamped, clamped, "ClampDelta(%v)", c.in)
	}
}

func TestFlattenTexels(t *testing.T) {
	texels := []Texel{{1, 2, 3, 4}, {5, 6, 7, 8}}
	flat := FlattenTexels(texels)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, flat)
	assert.Equal(t, texels, UnflattenTexels(flat))
	assert.Len(t, UnflattenTexels(flat[:6]), 1)
}
