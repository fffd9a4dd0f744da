package gpu

import (
	"errors"

	"github.com/gekko3d/gpuparticles/particlert/rt/shaders"
)

const (
	ProgramMaterial       = "material"
	ProgramSkybox         = "skybox"
	ProgramQuad           = "quad"
	ProgramParticleUpdate = "particle_update"
	ProgramParticleDraw   = "particle_draw"
)

// Texture slots of the particle programs, in binding order.
const (
	SlotPositionRead = 0
	SlotVelocity     = 1
	SlotPosition     = 0
)

func MaterialProgramDesc() ProgramDesc {
	return ProgramDesc{
		Name:   ProgramMaterial,
		Source: shaders.MaterialWGSL,
		Uniforms: []UniformField{
			{Name: "proj", Type: UniformMat4},
			{Name: "view", Type: UniformMat4},
			{Name: "model", Type: UniformMat4},
		},
		Textures:   []TextureSlot{{Name: "albedo", Filterable: true}},
		Vertex:     []VertexLayout{ShapeLayout},
		Target:     TargetDisplay,
		DepthTest:  true,
		DepthWrite: true,
	}
}

func SkyboxProgramDesc() ProgramDesc {
	return ProgramDesc{
		Name:   ProgramSkybox,
		Source: shaders.SkyboxWGSL,
		Uniforms: []UniformField{
			{Name: "proj", Type: UniformMat4},
			{Name: "view", Type: UniformMat4},
		},
		Vertex:     []VertexLayout{ShapeLayout},
		Target:     TargetDisplay,
		DepthTest:  true,
		DepthWrite: false,
	}
}

// QuadProgramDesc draws a state texture preview. Previews sit at depth 0 and
// write it, so the sky drawn afterwards leaves them visible.
func QuadProgramDesc() ProgramDesc {
	return ProgramDesc{
		Name:   ProgramQuad,
		Source: shaders.QuadWGSL,
		Uniforms: []UniformField{
			{Name: "scale", Type: UniformFloat},
			{Name: "bias", Type: UniformFloat},
		},
		Textures:   []TextureSlot{{Name: "source"}},
		Vertex:     []VertexLayout{ShapeLayout},
		Target:     TargetDisplay,
		DepthTest:  true,
		DepthWrite: true,
	}
}

func ParticleUpdateProgramDesc() ProgramDesc {
	return ProgramDesc{
		Name:   ProgramParticleUpdate,
		Source: shaders.UpdateParticleWGSL,
		Uniforms: []UniformField{
			{Name: "tex_dims", Type: UniformVec2},
			{Name: "delta_time", Type: UniformFloat},
		},
		Textures: []TextureSlot{{Name: "position_read"}, {Name: "velocities"}},
		Vertex:   []VertexLayout{ShapeLayout},
		Target:   TargetState,
	}
}

func ParticleDrawProgramDesc() ProgramDesc {
	return ProgramDesc{
		Name:   ProgramParticleDraw,
		Source: shaders.DrawParticleWGSL,
		Uniforms: []UniformField{
			{Name: "proj", Type: UniformMat4},
			{Name: "view", Type: UniformMat4},
			{Name: "model", Type: UniformMat4},
			{Name: "tex_dims", Type: UniformVec2},
		},
		Textures:   []TextureSlot{{Name: "position_tex"}},
		Vertex:     []VertexLayout{ShapeLayout, InstanceIDLayout},
		Target:     TargetDisplay,
		DepthTest:  true,
		DepthWrite: true,
	}
}

// Programs is the set of five programs the renderer needs.
type Programs struct {
	Material       Program
	Skybox         Program
	Quad           Program
	ParticleUpdate Program
	ParticleDraw   Program
}

// CompilePrograms builds every program, failing on the first that does not compile.
func CompilePrograms(dev Device) (*Programs, error) {
	p := &Programs{}
	targets := []struct {
		desc ProgramDesc
		dst  *Program
	}{
		{MaterialProgramDesc(), &p.Material},
		{SkyboxProgramDesc(), &p.Skybox},
		{QuadProgramDesc(), &p.Quad},
		{ParticleUpdateProgramDesc(), &p.ParticleUpdate},
		{ParticleDrawProgramDesc(), &p.ParticleDraw},
	}
	for _, t := range targets {
		prog, err := dev.CreateProgram(t.desc)
		if err != nil {
			return nil, wrapProgramError(t.desc.Name, err)
		}
		*t.dst = prog
	}
	return p, nil
}

func wrapProgramError(name string, err error) error {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return err
	}
	return &ProgramError{Name: name, Err: err}
}
