package gpu

import (
	"fmt"

	"github.com/gekko3d/gpuparticles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// InstancedDrawPass renders one copy of a unit shape per particle. The vertex
// stage turns the instance identifier into a texel coordinate and offsets the
// shape by the position stored there.
type InstancedDrawPass struct {
	Program Program
	// Scale is the uniform model scale applied to the unit shape.
	Scale float32
}

func NewInstancedDrawPass(program Program, scale float32) *InstancedDrawPass {
	return &InstancedDrawPass{Program: program, Scale: scale}
}

// Run draws into an already open display pass. It must follow the swap of the
// current frame so that it samples the freshly written positions.
func (d *InstancedDrawPass) Run(pass Pass, store *ParticleStateStore, cam *core.CameraState, geometry VertexArray, display Viewport) error {
	if err := store.check(core.OpDraw); err != nil {
		return err
	}
	n := uint32(store.NumParticles())
	if geometry.InstanceCount() < n {
		return fmt.Errorf("%s carries %d identifiers, need %d", geometry.Label(), geometry.InstanceCount(), n)
	}

	pass.SetViewport(display)
	pass.UseProgram(d.Program)
	if err := pass.BindTexture(SlotPosition, store.CurrentRead()); err != nil {
		return err
	}

	aspect := float32(1)
	if display.Height > 0 {
		aspect = display.Width / display.Height
	}
	uniforms := []struct {
		name  string
		value any
	}{
		{"proj", cam.GetProjection(aspect)},
		{"view", cam.GetViewMatrix()},
		{"model", mgl32.Scale3D(d.Scale, d.Scale, d.Scale)},
		{"tex_dims", store.Grid.Dims()},
	}
	for _, u := range uniforms {
		if err := d.Program.SetUniform(u.name, u.value); err != nil {
			return err
		}
	}

	if err := pass.Draw(geometry, n); err != nil {
		return err
	}
	return store.advance(core.OpDraw)
}
