package gpu

import (
	"errors"
	"fmt"

	"github.com/gekko3d/gpuparticles/particlert/rt/core"
	"github.com/google/uuid"
)

// stateSlot is one physical position buffer: the texture and the framebuffer
// that renders into it.
type stateSlot struct {
	tex Texture
	fb  Framebuffer
}

// ParticleStateStore owns the GPU-resident particle state: two position
// textures used as a ping-pong pair and one constant velocity texture.
// Positions are written only by the update pass after the initial upload.
type ParticleStateStore struct {
	ID   uuid.UUID
	Grid core.Grid

	velocity Texture
	slots    [2]*stateSlot
	pair     *core.PingPong[*stateSlot]
	phase    core.PhaseTracker
	log      core.Logger
}

// NewParticleStateStore allocates posA, posB (each with a framebuffer) and vel,
// uploads positions into posA and velocities into vel, and makes posA the read side.
func NewParticleStateStore(dev Device, grid core.Grid, positions, velocities []core.Texel, log core.Logger) (*ParticleStateStore, error) {
	log = core.OrNop(log)
	n := grid.NumParticles()
	if n <= 0 {
		return nil, fmt.Errorf("particle grid %s is empty", grid)
	}
	if len(positions) != n || len(velocities) != n {
		return nil, fmt.Errorf("particle grid %s needs %d texels, got %d positions and %d velocities",
			grid, n, len(positions), len(velocities))
	}

	caps := dev.Capabilities()
	if !caps.FloatRenderTargets {
		return nil, &AllocationError{Label: "particle state", Width: grid.Width, Height: grid.Height, Err: ErrFloatTargetsUnsupported}
	}

	s := &ParticleStateStore{ID: uuid.New(), Grid: grid, log: log}
	label := func(name string) string {
		return fmt.Sprintf("particles/%s/%s", s.ID.String()[:8], name)
	}

	initial := [2][]float32{core.FlattenTexels(positions), nil}
	for i, name := range []string{"posA", "posB"} {
		tex, err := dev.CreateTexture(TextureDesc{
			Label:        label(name),
			Width:        grid.Width,
			Height:       grid.Height,
			Format:       FormatRGBA32Float,
			RenderTarget: true,
			Float:        initial[i],
		})
		if err != nil {
			return nil, allocationError(label(name), grid, err)
		}
		fb, err := dev.CreateFramebuffer(tex)
		if err != nil {
			return nil, allocationError(label(name)+"/fb", grid, err)
		}
		s.slots[i] = &stateSlot{tex: tex, fb: fb}
	}

	vel, err := dev.CreateTexture(TextureDesc{
		Label:  label("vel"),
		Width:  grid.Width,
		Height: grid.Height,
		Format: FormatRGBA32Float,
		Float:  core.FlattenTexels(velocities),
	})
	if err != nil {
		return nil, allocationError(label("vel"), grid, err)
	}
	s.velocity = vel

	s.pair, err = core.NewPingPong(s.slots[0], s.slots[1])
	if err != nil {
		return nil, err
	}
	log.Debugf("Particle state %s allocated: grid %s, %d particles", s.ID, grid, n)
	return s, nil
}

func allocationError(label string, grid core.Grid, err error) error {
	var ae *AllocationError
	if errors.As(err, &ae) {
		return err
	}
	return &AllocationError{Label: label, Width: grid.Width, Height: grid.Height, Err: err}
}

func (s *ParticleStateStore) NumParticles() int { return s.Grid.NumParticles() }

// CurrentRead is the position texture the draw pass samples this frame.
func (s *ParticleStateStore) CurrentRead() Texture { return s.pair.Read().tex }

// WriteTarget is the framebuffer the update pass renders into this frame.
func (s *ParticleStateStore) WriteTarget() Framebuffer { return s.pair.Write().fb }

func (s *ParticleStateStore) Velocity() Texture { return s.velocity }

// Textures returns posA, posB and vel in allocation order, independent of roles.
func (s *ParticleStateStore) Textures() [3]Texture {
	return [3]Texture{s.slots[0].tex, s.slots[1].tex, s.velocity}
}

// Swap exchanges the read and write roles. It must follow exactly one update
// pass; anything else is reported as a *core.PhaseError.
func (s *ParticleStateStore) Swap() error {
	if err := s.advance(core.OpSwap); err != nil {
		return err
	}
	s.pair.Swap()
	return nil
}

func (s *ParticleStateStore) Swaps() uint64 { return s.pair.Swaps() }

func (s *ParticleStateStore) Phase() core.FramePhase { return s.phase.Phase() }

func (s *ParticleStateStore) check(op core.FrameOp) error {
	if err := s.phase.Check(op); err != nil {
		s.log.Errorf("Particle state %s: %v", s.ID, err)
		return err
	}
	return nil
}

func (s *ParticleStateStore) advance(op core.FrameOp) error {
	if err := s.phase.Advance(op); err != nil {
		s.log.Errorf("Particle state %s: %v", s.ID, err)
		return err
	}
	return nil
}
