package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraState is a Y-up look-at camera. The passes only read it.
type CameraState struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32 // degrees
	Near     float32
	Far      float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position: mgl32.Vec3{10, 10, 20},
		Target:   mgl32.Vec3{0, 0, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     45,
		Near:     0.1,
		Far:      100,
	}
}

func (c *CameraState) LookAt(x, y, z float32) {
	c.Target = mgl32.Vec3{x, y, z}
}

func (c *CameraState) GetForward() mgl32.Vec3 {
	d := c.Target.Sub(c.Position)
	if d.Len() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	return d.Normalize()
}

func (c *CameraState) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// GetProjection builds the perspective matrix for the given display aspect.
// WebGPU clip space has depth in [0,1], so the GL-style matrix is remapped.
func (c *CameraState) GetProjection(aspect float32) mgl32.Mat4 {
	if aspect <= 0 || math.IsNaN(float64(aspect)) {
		aspect = 1
	}
	proj := mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
	return glToZeroOneDepth.Mul4(proj)
}

var glToZeroOneDepth = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// RotationOnly strips the translation from a view matrix (skybox view).
func RotationOnly(view mgl32.Mat4) mgl32.Mat4 {
	return view.Mat3().Mat4()
}

// Aspect returns width/height, falling back to 1 for a degenerate display.
func Aspect(width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}
