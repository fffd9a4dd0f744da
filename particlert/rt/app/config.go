package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/gekko3d/gpuparticles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
)

type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

type ParticlesConfig struct {
	GridWidth      int     `toml:"grid_width"`
	GridHeight     int     `toml:"grid_height"`
	PositionExtent float32 `toml:"position_extent"`
	VelocityMin    float32 `toml:"velocity_min"`
	VelocityMax    float32 `toml:"velocity_max"`
	// Scale is the size of the unit cube drawn per particle.
	Scale float32 `toml:"scale"`
	// Seed 0 seeds from the clock.
	Seed int64 `toml:"seed"`
}

type SimulationConfig struct {
	// MaxDeltaSeconds caps the step after a stall; 0 freezes the simulation.
	MaxDeltaSeconds float32 `toml:"max_delta_seconds"`
}

type CameraConfig struct {
	Position   [3]float32 `toml:"position"`
	Target     [3]float32 `toml:"target"`
	FovDegrees float32    `toml:"fov_degrees"`
	Near       float32    `toml:"near"`
	Far        float32    `toml:"far"`
}

type AssetsConfig struct {
	// CheckerTexture is the floor image; empty uses a generated checker.
	CheckerTexture string `toml:"checker_texture"`
}

type DebugConfig struct {
	Enabled           bool `toml:"enabled"`
	ShowStateTextures bool `toml:"show_state_textures"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

type Config struct {
	Window     WindowConfig     `toml:"window"`
	Particles  ParticlesConfig  `toml:"particles"`
	Simulation SimulationConfig `toml:"simulation"`
	Camera     CameraConfig     `toml:"camera"`
	Assets     AssetsConfig     `toml:"assets"`
	Debug      DebugConfig      `toml:"debug"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

func DefaultConfig() Config {
	seed := core.DefaultSeedParams()
	cam := core.NewCameraState()
	return Config{
		Window: WindowConfig{Width: 1280, Height: 720, Title: "GPU Particles"},
		Particles: ParticlesConfig{
			GridWidth:      600,
			GridHeight:     600,
			PositionExtent: seed.Extent.X(),
			VelocityMin:    seed.VelocityMin,
			VelocityMax:    seed.VelocityMax,
			Scale:          0.01,
		},
		Simulation: SimulationConfig{MaxDeltaSeconds: 0.25},
		Camera: CameraConfig{
			Position:   cam.Position,
			Target:     cam.Target,
			FovDegrees: cam.FovY,
			Near:       cam.Near,
			Far:        cam.Far,
		},
		Debug: DebugConfig{ShowStateTextures: true},
	}
}

// LoadConfig reads a TOML file over DefaultConfig. Keys absent from the file
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := ParseConfig(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes TOML data into cfg and validates the result.
func ParseConfig(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown config keys:\n%s", strict.String())
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return cfg.Validate()
}

var ErrInvalidConfig = errors.New("invalid config")

func (c Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fail("window size %dx%d", c.Window.Width, c.Window.Height)
	case c.Particles.GridWidth <= 0 || c.Particles.GridHeight <= 0:
		return fail("particle grid %dx%d", c.Particles.GridWidth, c.Particles.GridHeight)
	case c.Particles.VelocityMin >= c.Particles.VelocityMax:
		return fail("velocity range [%v, %v] is empty", c.Particles.VelocityMin, c.Particles.VelocityMax)
	case c.Particles.PositionExtent < 0:
		return fail("negative position extent %v", c.Particles.PositionExtent)
	case c.Particles.Scale <= 0:
		return fail("particle scale %v", c.Particles.Scale)
	case c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180:
		return fail("camera fov %v", c.Camera.FovDegrees)
	case c.Camera.Near <= 0 || c.Camera.Near >= c.Camera.Far:
		return fail("camera clip range [%v, %v]", c.Camera.Near, c.Camera.Far)
	case c.Simulation.MaxDeltaSeconds < 0:
		return fail("negative max delta %v", c.Simulation.MaxDeltaSeconds)
	}
	return nil
}

func (c Config) Grid() (core.Grid, error) {
	return core.NewGrid(c.Particles.GridWidth, c.Particles.GridHeight)
}

func (c Config) SeedParams() core.SeedParams {
	e := c.Particles.PositionExtent
	return core.SeedParams{
		Extent:      mgl32.Vec3{e, e, e},
		VelocityMin: c.Particles.VelocityMin,
		VelocityMax: c.Particles.VelocityMax,
	}
}

func (c Config) CameraState() *core.CameraState {
	cam := core.NewCameraState()
	cam.Position = c.Camera.Position
	cam.Target = c.Camera.Target
	cam.FovY = c.Camera.FovDegrees
	cam.Near = c.Camera.Near
	cam.Far = c.Camera.Far
	return cam
}
