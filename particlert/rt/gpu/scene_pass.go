package gpu

import (
	"github.com/gekko3d/gpuparticles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// ScenePass draws the surroundings of the particle cloud into the display pass:
// a textured floor, the sky and optional previews of the state textures.
type ScenePass struct {
	Programs *Programs
	Geometry *Geometry
	Floor    Texture

	FloorHeight float32
	FloorScale  float32
	// ShowStateTextures draws posA, posB and vel into small viewports.
	ShowStateTextures bool
	PreviewScale      float32
	PreviewBias       float32
}

func NewScenePass(programs *Programs, geometry *Geometry, floor Texture) *ScenePass {
	return &ScenePass{
		Programs:     programs,
		Geometry:     geometry,
		Floor:        floor,
		FloorHeight:  -1,
		FloorScale:   5,
		PreviewScale: 0.1,
		PreviewBias:  0.5,
	}
}

// PreviewViewports returns the square preview rectangles, left to right along
// the bottom edge of the display.
func PreviewViewports(display Viewport, count int) []Viewport {
	side := display.Width * 0.1
	vps := make([]Viewport, count)
	for i := range vps {
		vps[i] = Viewport{
			X:      display.X + float32(i)*side,
			Y:      display.Y + display.Height - side,
			Width:  side,
			Height: side,
		}
	}
	return vps
}

// Run draws the floor, the previews and finally the sky, which only fills
// pixels left at the far plane.
func (s *ScenePass) Run(pass Pass, store *ParticleStateStore, cam *core.CameraState, display Viewport) error {
	aspect := float32(1)
	if display.Height > 0 {
		aspect = display.Width / display.Height
	}
	proj := cam.GetProjection(aspect)
	view := cam.GetViewMatrix()

	pass.SetViewport(display)
	mat := s.Programs.Material
	pass.UseProgram(mat)
	if err := pass.BindTexture(0, s.Floor); err != nil {
		return err
	}
	model := mgl32.Translate3D(0, s.FloorHeight, 0).Mul4(mgl32.Scale3D(s.FloorScale, 1, s.FloorScale))
	if err := setUniforms(mat, "proj", proj, "view", view, "model", model); err != nil {
		return err
	}
	if err := pass.Draw(s.Geometry.Plane, 0); err != nil {
		return err
	}

	if s.ShowStateTextures && store != nil {
		if err := s.drawPreviews(pass, store, display); err != nil {
			return err
		}
		pass.SetViewport(display)
	}

	sky := s.Programs.Skybox
	pass.UseProgram(sky)
	if err := setUniforms(sky, "proj", proj, "view", core.RotationOnly(view)); err != nil {
		return err
	}
	return pass.Draw(s.Geometry.Cube, 0)
}

func (s *ScenePass) drawPreviews(pass Pass, store *ParticleStateStore, display Viewport) error {
	quad := s.Programs.Quad
	pass.UseProgram(quad)
	if err := setUniforms(quad, "scale", s.PreviewScale, "bias", s.PreviewBias); err != nil {
		return err
	}
	textures := store.Textures()
	for i, vp := range PreviewViewports(display, len(textures)) {
		pass.SetViewport(vp)
		if err := pass.BindTexture(0, textures[i]); err != nil {
			return err
		}
		if err := pass.Draw(s.Geometry.Quad, 0); err != nil {
			return err
		}
	}
	return nil
}

func setUniforms(p Program, kv ...any) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if err := p.SetUniform(kv[i].(string), kv[i+1]); err != nil {
			return err
		}
	}
	return nil
}
