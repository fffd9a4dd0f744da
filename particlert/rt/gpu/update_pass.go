package gpu

import (
	"fmt"

	"github.com/gekko3d/gpuparticles/particlert/rt/core"
)

// UpdatePass advances every particle by one explicit Euler step. It rasterizes
// a quad over a viewport the size of the particle grid, so the fragment stage
// runs once per texel and writes the new position into the write-side texture.
type UpdatePass struct {
	Program Program
	Quad    VertexArray
}

func NewUpdatePass(program Program, quad VertexArray) *UpdatePass {
	return &UpdatePass{Program: program, Quad: quad}
}

// Run records the update into frame. The velocity texture and the read-side
// position texture are only sampled.
func (u *UpdatePass) Run(frame Frame, store *ParticleStateStore, dt float32) (err error) {
	if !core.ValidDelta(dt) {
		return fmt.Errorf("%w: %v", ErrInvalidDelta, dt)
	}
	if err := store.check(core.OpUpdate); err != nil {
		return err
	}

	pass, err := frame.BeginPass(PassDesc{Label: "particle update", Target: store.WriteTarget()})
	if err != nil {
		return err
	}
	defer func() {
		// ending the pass releases the state framebuffer as render target
		if endErr := pass.End(); err == nil {
			err = endErr
		}
	}()

	pass.SetViewport(FullViewport(store.Grid.Width, store.Grid.Height))
	pass.UseProgram(u.Program)
	if err := pass.BindTexture(SlotPositionRead, store.CurrentRead()); err != nil {
		return err
	}
	if err := pass.BindTexture(SlotVelocity, store.Velocity()); err != nil {
		return err
	}
	if err := u.Program.SetUniform("tex_dims", store.Grid.Dims()); err != nil {
		return err
	}
	if err := u.Program.SetUniform("delta_time", dt); err != nil {
		return err
	}
	if err := pass.Draw(u.Quad, 1); err != nil {
		return err
	}
	return store.advance(core.OpUpdate)
}
