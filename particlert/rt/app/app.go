package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/gekko3d/gpuparticles/particlert/rt/assets"
	"github.com/gekko3d/gpuparticles/particlert/rt/core"
	"github.com/gekko3d/gpuparticles/particlert/rt/gpu"
)

type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrNotInitialized     = errors.New("particle renderer not initialized")
	ErrAlreadyInitialized = errors.New("particle renderer already initialized")
)

// App owns one particle system and drives it once per display refresh:
// update, swap, then draw, followed by the rest of the scene.
type App struct {
	Device   gpu.Device
	Config   Config
	Camera   *core.CameraState
	Clock    *core.FrameClock
	Profiler *Profiler

	Programs *gpu.Programs
	Geometry *gpu.Geometry
	Store    *gpu.ParticleStateStore
	Update   *gpu.UpdatePass
	Draw     *gpu.InstancedDrawPass
	Scene    *gpu.ScenePass
	Floor    gpu.Texture

	state    State
	displayW int
	displayH int
	log      core.Logger
}

func NewApp(device gpu.Device, cfg Config, log core.Logger) *App {
	return &App{
		Device:   device,
		Config:   cfg,
		Camera:   cfg.CameraState(),
		Clock:    core.NewFrameClock(cfg.Simulation.MaxDeltaSeconds),
		Profiler: NewProfiler(),
		displayW: cfg.Window.Width,
		displayH: cfg.Window.Height,
		log:      core.OrNop(log),
	}
}

func (a *App) State() State { return a.state }

// DisplaySize is the cached size used for the display viewport and aspect.
func (a *App) DisplaySize() (int, int) { return a.displayW, a.displayH }

// Init seeds the particle state from the configured distribution and
// allocates every GPU resource.
func (a *App) Init() error {
	grid, err := a.Config.Grid()
	if err != nil {
		return err
	}
	seed := a.Config.Particles.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	positions, velocities := core.SeedState(grid, a.Config.SeedParams(), rand.New(rand.NewSource(seed)))
	a.log.Debugf("Seeded %d particles (seed %d)", grid.NumParticles(), seed)
	return a.InitWithState(positions, velocities)
}

// InitWithState is Init with caller-supplied initial positions and velocities,
// one texel per particle in row-major grid order.
func (a *App) InitWithState(positions, velocities []core.Texel) error {
	if a.state != StateUninitialized {
		return ErrAlreadyInitialized
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}
	grid, err := a.Config.Grid()
	if err != nil {
		return err
	}

	// App fields stay untouched until every resource exists.
	programs, err := gpu.CompilePrograms(a.Device)
	if err != nil {
		return err
	}
	store, err := gpu.NewParticleStateStore(a.Device, grid, positions, velocities, a.log)
	if err != nil {
		return err
	}
	geometry, err := gpu.NewGeometry(a.Device, grid)
	if err != nil {
		return err
	}

	floorAsset, err := assets.LoadOrChecker(a.Config.Assets.CheckerTexture, a.log)
	if err != nil {
		return err
	}
	floor, err := a.Device.CreateTexture(gpu.TextureDesc{
		Label:  "floor/" + floorAsset.Name,
		Width:  floorAsset.Width,
		Height: floorAsset.Height,
		Format: gpu.FormatRGBA8UnormSrgb,
		Pixels: floorAsset.Pixels,
	})
	if err != nil {
		return err
	}

	a.Programs, a.Store, a.Geometry, a.Floor = programs, store, geometry, floor
	a.Update = gpu.NewUpdatePass(programs.ParticleUpdate, geometry.Quad)
	a.Draw = gpu.NewInstancedDrawPass(programs.ParticleDraw, a.Config.Particles.Scale)
	a.Scene = gpu.NewScenePass(programs, geometry, floor)
	a.Scene.ShowStateTextures = a.Config.Debug.ShowStateTextures

	a.state = StateInitialized
	a.log.Infof("Particle renderer initialized: grid %s, %d particles", grid, grid.NumParticles())
	return nil
}

// StatsReport returns the profiler timings and counters, then zeroes the timings.
func (a *App) StatsReport() string {
	s := a.Profiler.GetStatsString()
	a.Profiler.Reset()
	return s
}

// OnResize caches the new display size. The particle grid is independent of
// the display and is never reallocated.
func (a *App) OnResize(width, height int) {
	if width == a.displayW && height == a.displayH {
		return
	}
	a.displayW, a.displayH = width, height
	a.Device.ResizeDisplay(width, height)
	a.log.Infof("Display resized to %dx%d", width, height)
}

// OnFrame advances the simulation by the host delta and renders one frame.
// A frame with a zero-sized display (minimized window) is skipped entirely.
func (a *App) OnFrame(timestampMs, deltaMs float64) error {
	if a.state == StateUninitialized {
		return ErrNotInitialized
	}
	if a.displayW <= 0 || a.displayH <= 0 {
		return nil
	}
	p := a.Profiler
	p.BeginScope("frame")

	dt, clamped := a.Clock.Tick(timestampMs, deltaMs)
	if clamped {
		a.log.Debugf("Frame %d: delta %v clamped to %.3fs", a.Clock.Frames, a.Clock.Dt, dt)
	}

	frame, err := a.Device.BeginFrame()
	if err != nil {
		p.EndOpenScopes()
		return err
	}

	p.BeginScope("update")
	if err := a.Update.Run(frame, a.Store, dt); err != nil {
		return a.abort(frame, nil, err)
	}
	p.EndScope("update")

	if err := a.Store.Swap(); err != nil {
		return a.abort(frame, nil, err)
	}

	pass, err := frame.BeginPass(gpu.PassDesc{
		Label: "display",
		Clear: &gpu.ClearValues{Color: [4]float64{0, 0, 0, 1}, Depth: 1},
	})
	if err != nil {
		return a.abort(frame, nil, err)
	}
	display := gpu.FullViewport(a.displayW, a.displayH)

	p.BeginScope("draw")
	if err := a.Draw.Run(pass, a.Store, a.Camera, a.Geometry.InstancedCube, display); err != nil {
		return a.abort(frame, pass, err)
	}
	p.EndScope("draw")

	p.BeginScope("scene")
	if err := a.Scene.Run(pass, a.Store, a.Camera, display); err != nil {
		return a.abort(frame, pass, err)
	}
	p.EndScope("scene")

	if err := pass.End(); err != nil {
		return a.abort(frame, nil, err)
	}
	if err := frame.Submit(); err != nil {
		p.EndOpenScopes()
		return err
	}
	p.EndScope("frame")
	p.FrameDone(a.Store.NumParticles(), clamped)
	p.SetCount("particles", a.Store.NumParticles())
	p.SetCount("frames", int(a.Clock.Frames))
	a.state = StateRunning
	return nil
}

// abort closes whatever is open so the device can begin the next frame.
func (a *App) abort(frame gpu.Frame, pass gpu.Pass, err error) error {
	a.log.Errorf("Frame %d aborted: %v", a.Clock.Frames, err)
	a.Profiler.EndOpenScopes()
	if pass != nil {
		_ = pass.End()
	}
	_ = frame.Submit()
	return err
}
