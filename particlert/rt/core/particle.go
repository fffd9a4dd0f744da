package core

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// Texel is one RGBA32F slot of a state texture: xyz plus a flag channel.
type Texel = mgl32.Vec4

// SeedParams controls the initial particle distribution.
type SeedParams struct {
	// Positions are sampled uniformly in [-Extent, Extent] per axis.
	Extent mgl32.Vec3
	// Velocities are sampled uniformly in [VelocityMin, VelocityMax] per axis.
	VelocityMin float32
	VelocityMax float32
}

func DefaultSeedParams() SeedParams {
	return SeedParams{
		Extent:      mgl32.Vec3{5, 5, 5},
		VelocityMin: -1,
		VelocityMax: 1,
	}
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

// SeedState generates initial positions and velocities for every texel of g.
// The flag channel is 1 for both.
func SeedState(g Grid, p SeedParams, rng *rand.Rand) (positions, velocities []Texel) {
	n := g.NumParticles()
	positions = make([]Texel, n)
	velocities = make([]Texel, n)
	for i := 0; i < n; i++ {
		positions[i] = Texel{
			lerp(-p.Extent[0], p.Extent[0], rng.Float32()),
			lerp(-p.Extent[1], p.Extent[1], rng.Float32()),
			lerp(-p.Extent[2], p.Extent[2], rng.Float32()),
			1,
		}
		velocities[i] = Texel{
			lerp(p.VelocityMin, p.VelocityMax, rng.Float32()),
			lerp(p.VelocityMin, p.VelocityMax, rng.Float32()),
			lerp(p.VelocityMin, p.VelocityMax, rng.Float32()),
			1,
		}
	}
	return positions, velocities
}

// StepTexel is the per-texel update rule: explicit Euler at constant velocity.
// The flag channel of the position is carried through.
func StepTexel(pos, vel Texel, dt float32) Texel {
	return Texel{
		pos[0] + vel[0]*dt,
		pos[1] + vel[1]*dt,
		pos[2] + vel[2]*dt,
		pos[3],
	}
}

// Step applies StepTexel to every texel, writing into dst.
func Step(dst, pos, vel []Texel, dt float32) {
	for i := range dst {
		dst[i] = StepTexel(pos[i], vel[i], dt)
	}
}

// ValidDelta reports whether dt may be fed to the update pass.
func ValidDelta(dt float32) bool {
	f := float64(dt)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && dt >= 0
}

// ClampDelta forces dt into [0, max]. Non-finite input becomes 0.
// The second result reports whether dt was changed.
func ClampDelta(dt, max float32) (float32, bool) {
	f := float64(dt)
	switch {
	case math.IsNaN(f) || math.IsInf(f, -1) || dt < 0:
		return 0, true
	case math.IsInf(f, 1) || dt > max:
		return max, true
	}
	return dt, false
}

// FlattenTexels packs texels into the float32 slice uploaded to RGBA32F textures.
func FlattenTexels(texels []Texel) []float32 {
	out := make([]float32, 0, len(texels)*4)
	for _, t := range texels {
		out = append(out, t[0], t[1], t[2], t[3])
	}
	return out
}

// UnflattenTexels is the inverse of FlattenTexels. A trailing partial texel is dropped.
func UnflattenTexels(data []float32) []Texel {
	out := make([]Texel, len(data)/4)
	for i := range out {
		out[i] = Texel{data[i*4], data[i*4+1], data[i*4+2], data[i*4+3]}
	}
	return out
}
