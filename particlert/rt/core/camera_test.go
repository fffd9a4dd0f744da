package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCameraState_Defaults(t *testing.T) {
	c := NewCameraState()
	assert.Equal(t, mgl32.Vec3{10, 10, 20}, c.Position)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, c.Target)
	assert.InDelta(t, 1, c.GetForward().Len(), 1e-6)

	c.LookAt(10, 10, 19)
	assert.True(t, c.GetForward().ApproxEqual(mgl32.Vec3{0, 0, -1}))
}

func TestCameraState_ProjectionDepthRange(t *testing.T) {
	c := NewCameraState()
	proj := c.GetProjection(4.0 / 3.0)

	ndcDepth := func(viewZ float32) float32 {
		clip := proj.Mul4x1(mgl32.Vec4{0, 0, viewZ, 1})
		return clip.Z() / clip.W()
	}
	assert.InDelta(t, 0, ndcDepth(-c.Near), 1e-5)
	assert.InDelta(t, 1, ndcDepth(-c.Far), 1e-4)
}

func TestCameraState_ProjectionFollowsAspect(t *testing.T) {
	c := NewCameraState()
	wide := c.GetProjection(Aspect(800, 600))
	narrow := c.GetProjection(Aspect(400, 600))
	assert.Less(t, wide[0], narrow[0])
	assert.Equal(t, wide[5], narrow[5])

	assert.Equal(t, c.GetProjection(1), c.GetProjection(0), "degenerate aspect falls back to 1")
}

func TestRotationOnly(t *testing.T) {
	c := NewCameraState()
	view := c.GetViewMatrix()
	rot := RotationOnly(view)

	assert.Equal(t, mgl32.Vec3{}, rot.Col(3).Vec3())
	assert.Equal(t, float32(1), rot[15])
	assert.Equal(t, view.Mat3(), rot.Mat3())
}

func TestAspect(t *testing.T) {
	assert.InDelta(t, 4.0/3.0, Aspect(800, 600), 1e-6)
	assert.Equal(t, float32(1), Aspect(0, 600))
	assert.Equal(t, float32(1), Aspect(800, 0))
}
