package core

import (
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestVertexStride(t *testing.T) {
	assert.Equal(t, uintptr(VertexStride), unsafe.Sizeof(Vertex{}))
}

func TestUnitCube(t *testing.T) {
	vs := UnitCube()
	assert.Len(t, vs, 36)
	for _, v := range vs {
		for a := 0; a < 3; a++ {
			assert.Equal(t, float32(0.5), abs32(v.Pos[a]))
		}
		n := mgl32.Vec3(v.Normal)
		// each vertex lies on the face its normal points out of
		assert.InDelta(t, 0.5, mgl32.Vec3(v.Pos).Dot(n), 1e-6)
	}
}

func TestUnitCube_CounterClockwise(t *testing.T) {
	vs := UnitCube()
	for i := 0; i < len(vs); i += 3 {
		a, b, c := mgl32.Vec3(vs[i].Pos), mgl32.Vec3(vs[i+1].Pos), mgl32.Vec3(vs[i+2].Pos)
		face := b.Sub(a).Cross(c.Sub(a))
		assert.Greater(t, face.Dot(mgl32.Vec3(vs[i].Normal)), float32(0), "triangle %d winds clockwise", i/3)
	}
}

func TestUnitPlaneAndQuad(t *testing.T) {
	plane := UnitPlane()
	assert.Len(t, plane, 6)
	for _, v := range plane {
		assert.Equal(t, float32(0), v.Pos[1])
		assert.Equal(t, [3]float32{0, 1, 0}, v.Normal)
	}

	quad := UnitQuad()
	assert.Len(t, quad, 6)
	var minX, maxX float32
	for _, v := range quad {
		minX = min(minX, v.Pos[0])
		maxX = max(maxX, v.Pos[0])
		assert.Equal(t, float32(0), v.Pos[2])
	}
	assert.Equal(t, float32(-1), minX)
	assert.Equal(t, float32(1), maxX)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
