package gpu

import (
	"unsafe"

	"github.com/gekko3d/gpuparticles/particlert/rt/core"
)

func vertexBytes(vs []core.Vertex) []byte {
	if len(vs) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), len(vs)*int(unsafe.Sizeof(core.Vertex{})))
}

func idBytes(ids []uint32) []byte {
	if len(ids) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&ids[0])), len(ids)*4)
}

// NewShape uploads a static shape (cube, plane, quad).
func NewShape(dev Device, label string, vs []core.Vertex) (VertexArray, error) {
	return dev.CreateVertexArray(VertexArrayDesc{
		Label:   label,
		Buffers: []VertexBufferData{{Layout: ShapeLayout, Data: vertexBytes(vs)}},
	})
}

// NewInstancedGeometry pairs a unit shape with the per-instance identifier
// buffer [0, grid.NumParticles()).
func NewInstancedGeometry(dev Device, label string, shape []core.Vertex, grid core.Grid) (VertexArray, error) {
	ids := core.ParticleIDs(grid.NumParticles())
	return dev.CreateVertexArray(VertexArrayDesc{
		Label: label,
		Buffers: []VertexBufferData{
			{Layout: ShapeLayout, Data: vertexBytes(shape)},
			{Layout: InstanceIDLayout, Data: idBytes(ids)},
		},
	})
}

// Geometry is the static vertex data shared by the passes.
type Geometry struct {
	Cube          VertexArray
	Plane         VertexArray
	Quad          VertexArray
	InstancedCube VertexArray
}

func NewGeometry(dev Device, grid core.Grid) (*Geometry, error) {
	var g Geometry
	var err error
	if g.Cube, err = NewShape(dev, "unit cube", core.UnitCube()); err != nil {
		return nil, err
	}
	if g.Plane, err = NewShape(dev, "unit plane", core.UnitPlane()); err != nil {
		return nil, err
	}
	if g.Quad, err = NewShape(dev, "unit quad", core.UnitQuad()); err != nil {
		return nil, err
	}
	if g.InstancedCube, err = NewInstancedGeometry(dev, "instanced cube", core.UnitCube(), grid); err != nil {
		return nil, err
	}
	return &g, nil
}
