package app

import (
	"errors"
	"testing"

	"github.com/gekko3d/gpuparticles/particlert/rt/core"
	"github.com/gekko3d/gpuparticles/particlert/rt/gpu"
	"github.com/gekko3d/gpuparticles/particlert/rt/gpu/softgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var square = []core.Texel{
	{0, 0, 0, 0},
	{1, 0, 0, 0},
	{0, 1, 0, 0},
	{1, 1, 0, 0},
}

func rightward() []core.Texel {
	v := make([]core.Texel, 4)
	for i := range v {
		v[i] = core.Texel{1, 0, 0, 0}
	}
	return v
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Window.Width, cfg.Window.Height = 800, 600
	cfg.Particles.GridWidth, cfg.Particles.GridHeight = 2, 2
	cfg.Simulation.MaxDeltaSeconds = 1
	return cfg
}

func newTestApp(t *testing.T, cfg Config) (*App, *softgpu.Device, *observer.ObservedLogs) {
	t.Helper()
	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	obs, logs := observer.New(level)
	dev := softgpu.NewDevice()
	return NewApp(dev, cfg, core.NewLoggerFromZap(zap.New(obs), level)), dev, logs
}

func positions(t *testing.T, a *App) []core.Texel {
	t.Helper()
	tex, ok := a.Store.CurrentRead().(*softgpu.Texture)
	require.True(t, ok)
	return tex.Snapshot()
}

func metric(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		if c := m.GetCounter(); c != nil {
			return c.GetValue()
		}
		return m.GetGauge().GetValue()
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestApp_Lifecycle(t *testing.T) {
	a, _, logs := newTestApp(t, testConfig())
	assert.Equal(t, StateUninitialized, a.State())
	assert.ErrorIs(t, a.OnFrame(0, 16), ErrNotInitialized)

	require.NoError(t, a.InitWithState(square, rightward()))
	assert.Equal(t, StateInitialized, a.State())
	assert.ErrorIs(t, a.InitWithState(square, rightward()), ErrAlreadyInitialized)
	assert.ErrorIs(t, a.Init(), ErrAlreadyInitialized)

	require.NoError(t, a.OnFrame(16, 16))
	assert.Equal(t, StateRunning, a.State())
	assert.Equal(t, 1, logs.FilterMessageSnippet("Particle renderer initialized").Len())
}

func TestApp_InitSeeded(t *testing.T) {
	cfg := testConfig()
	cfg.Particles.GridWidth, cfg.Particles.GridHeight = 8, 4
	cfg.Particles.Seed = 42
	a, _, _ := newTestApp(t, cfg)
	require.NoError(t, a.Init())

	got := positions(t, a)
	require.Len(t, got, 32)
	e := cfg.Particles.PositionExtent
	for _, p := range got {
		for i := 0; i < 3; i++ {
			assert.LessOrEqual(t, p[i], e)
			assert.GreaterOrEqual(t, p[i], -e)
		}
	}

	b, _, _ := newTestApp(t, cfg)
	require.NoError(t, b.Init())
	assert.Equal(t, got, positions(t, b), "same seed, same state")
}

func TestApp_InitErrors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig()
		cfg.Particles.Scale = 0
		a, _, _ := newTestApp(t, cfg)
		assert.ErrorIs(t, a.InitWithState(square, rightward()), ErrInvalidConfig)
		assert.Equal(t, StateUninitialized, a.State())
	})

	t.Run("no float render targets", func(t *testing.T) {
		a, dev, _ := newTestApp(t, testConfig())
		dev.Caps.FloatRenderTargets = false
		err := a.InitWithState(square, rightward())
		assert.ErrorIs(t, err, gpu.ErrFloatTargetsUnsupported)
		assert.Equal(t, StateUninitialized, a.State())
		assert.Nil(t, a.Programs, "programs compiled before the failure are not kept")
		assert.Nil(t, a.Store)
		assert.ErrorIs(t, a.OnFrame(0, 16), ErrNotInitialized)
	})

	t.Run("retry after failure", func(t *testing.T) {
		a, dev, _ := newTestApp(t, testConfig())
		dev.FailPrograms = map[string]error{gpu.ProgramSkybox: errors.New("link error")}
		require.Error(t, a.InitWithState(square, rightward()))
		assert.Nil(t, a.Programs)
		assert.Nil(t, a.Store)
		assert.Nil(t, a.Geometry)
		assert.Nil(t, a.Update)

		dev.FailPrograms = nil
		require.NoError(t, a.InitWithState(square, rightward()))
		assert.Equal(t, StateInitialized, a.State())
		require.NoError(t, a.OnFrame(250, 250))
		assert.Equal(t, core.Texel{0.25, 0, 0, 0}, positions(t, a)[0])
	})

	t.Run("program failure", func(t *testing.T) {
		a, dev, _ := newTestApp(t, testConfig())
		dev.FailPrograms = map[string]error{gpu.ProgramParticleUpdate: errors.New("syntax error")}
		var pe *gpu.ProgramError
		require.ErrorAs(t, a.InitWithState(square, rightward()), &pe)
		assert.Equal(t, gpu.ProgramParticleUpdate, pe.Name)
	})

	t.Run("missing floor texture falls back", func(t *testing.T) {
		cfg := testConfig()
		cfg.Assets.CheckerTexture = t.TempDir() + "/nope.png"
		a, _, _ := newTestApp(t, cfg)
		require.NoError(t, a.InitWithState(square, rightward()))
		assert.Equal(t, "floor/checker", a.Floor.Label())
	})
}

func TestApp_FrameSequence(t *testing.T) {
	a, dev, _ := newTestApp(t, testConfig())
	require.NoError(t, a.InitWithState(square, rightward()))
	writeLabel := a.Store.WriteTarget().Label()
	dev.ResetCommands()

	require.NoError(t, a.OnFrame(500, 500))

	assert.Equal(t, []core.Texel{
		{0.5, 0, 0, 0},
		{1.5, 0, 0, 0},
		{0.5, 1, 0, 0},
		{1.5, 1, 0, 0},
	}, positions(t, a))

	cmds := dev.Commands
	require.NotEmpty(t, cmds)
	assert.Equal(t, softgpu.CmdBeginFrame, cmds[0].Kind)
	assert.Equal(t, softgpu.CmdSubmit, cmds[len(cmds)-1].Kind)

	passes := dev.CommandsOf(softgpu.CmdBeginPass)
	require.Len(t, passes, 2)
	assert.Equal(t, writeLabel, passes[0].Target)
	assert.False(t, passes[0].Cleared, "update overwrites every texel")
	assert.Equal(t, "", passes[1].Target)
	assert.True(t, passes[1].Cleared)

	var programs []string
	for _, c := range dev.CommandsOf(softgpu.CmdDraw) {
		programs = append(programs, c.Program)
	}
	assert.Equal(t, []string{
		gpu.ProgramParticleUpdate,
		gpu.ProgramParticleDraw,
		gpu.ProgramMaterial,
		gpu.ProgramQuad, gpu.ProgramQuad, gpu.ProgramQuad,
		gpu.ProgramSkybox,
	}, programs)

	draw := dev.CommandsOf(softgpu.CmdDraw)[1]
	assert.Equal(t, uint32(4), draw.Instances)
	assert.Equal(t, []string{a.Store.CurrentRead().Label()}, draw.Textures)
	assert.Equal(t, gpu.FullViewport(800, 600), draw.Viewport)
	assert.Equal(t, []mgl32.Vec3{{0.5, 0, 0}, {1.5, 0, 0}, {0.5, 1, 0}, {1.5, 1, 0}}, dev.Instances)

	assert.Equal(t, core.PhaseDrawn, a.Store.Phase())
	assert.Equal(t, uint64(1), a.Store.Swaps())
	assert.Equal(t, float64(1), metric(t, a.Profiler.Registry(), "gpuparticles_frames_total"))
	assert.Equal(t, float64(4), metric(t, a.Profiler.Registry(), "gpuparticles_particles"))
	assert.Equal(t, 4, a.Profiler.Counts["particles"])
	assert.Equal(t, []string{"frame", "update", "draw", "scene"}, a.Profiler.Order)
}

func TestApp_ManyFrames(t *testing.T) {
	a, _, _ := newTestApp(t, testConfig())
	require.NoError(t, a.InitWithState(square, rightward()))

	for i := 1; i <= 10; i++ {
		require.NoError(t, a.OnFrame(float64(i)*250, 250))
	}
	got := positions(t, a)
	for i, p := range got {
		assert.InDelta(t, square[i][0]+2.5, p[0], 1e-5)
		assert.Equal(t, square[i][1], p[1])
	}
	assert.Equal(t, uint64(10), a.Store.Swaps())
	assert.Equal(t, uint64(10), a.Clock.Frames)
}

func TestApp_Resize(t *testing.T) {
	a, dev, _ := newTestApp(t, testConfig())
	require.NoError(t, a.InitWithState(square, rightward()))
	grid := a.Store.Grid
	store := a.Store

	require.NoError(t, a.OnFrame(250, 250))
	before := positions(t, a)
	a.OnResize(800, 600)
	a.OnResize(400, 300)
	assert.Equal(t, before, positions(t, a))
	assert.Equal(t, 4, a.Store.NumParticles())
	w, h := dev.DisplaySize()
	assert.Equal(t, 400, w)
	assert.Equal(t, 300, h)

	dev.ResetCommands()
	require.NoError(t, a.OnFrame(500, 250))

	assert.Same(t, store, a.Store, "state survives resize")
	assert.Equal(t, grid, a.Store.Grid)
	draw := dev.CommandsOf(softgpu.CmdDraw)[1]
	assert.Equal(t, gpu.FullViewport(400, 300), draw.Viewport)
	assert.InDelta(t, float32(0.5), positions(t, a)[0][0], 1e-6)

	t.Run("same size is a no-op", func(t *testing.T) {
		dev.ResetCommands()
		a.OnResize(400, 300)
		assert.Empty(t, dev.CommandsOf(softgpu.CmdResize))
	})
}

func TestApp_MinimizedSkipsFrame(t *testing.T) {
	a, dev, _ := newTestApp(t, testConfig())
	require.NoError(t, a.InitWithState(square, rightward()))
	a.OnResize(0, 0)
	dev.ResetCommands()

	require.NoError(t, a.OnFrame(1000, 16))
	assert.Empty(t, dev.Commands)
	assert.Equal(t, square, positions(t, a))
	assert.Equal(t, StateInitialized, a.State())
}

func TestApp_DeltaClamp(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.MaxDeltaSeconds = 0.25
	a, _, logs := newTestApp(t, cfg)
	require.NoError(t, a.InitWithState(square, rightward()))

	require.NoError(t, a.OnFrame(5000, 5000))
	assert.InDelta(t, float32(0.25), positions(t, a)[0][0], 1e-6)
	assert.Equal(t, uint64(1), a.Clock.Clamped)
	assert.Equal(t, float64(1), metric(t, a.Profiler.Registry(), "gpuparticles_delta_clamped_total"))
	assert.Equal(t, 1, logs.FilterMessageSnippet("clamped").Len())

	require.NoError(t, a.OnFrame(5100, -3))
	assert.InDelta(t, float32(0.35), positions(t, a)[0][0], 1e-5, "negative delta falls back to timestamps")
}

func TestApp_FrozenSimulation(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.MaxDeltaSeconds = 0
	a, _, _ := newTestApp(t, cfg)
	require.NoError(t, a.InitWithState(square, rightward()))

	require.NoError(t, a.OnFrame(16, 16))
	require.NoError(t, a.OnFrame(32, 16))
	assert.Equal(t, square, positions(t, a))
	assert.Equal(t, uint64(2), a.Store.Swaps())
}

func TestApp_FailedDrawIsReported(t *testing.T) {
	a, dev, logs := newTestApp(t, testConfig())
	require.NoError(t, a.InitWithState(square, rightward()))

	small, err := core.NewGrid(1, 1)
	require.NoError(t, err)
	a.Geometry.InstancedCube, err = gpu.NewInstancedGeometry(dev, "one", core.UnitCube(), small)
	require.NoError(t, err)

	assert.Error(t, a.OnFrame(16, 16))
	assert.Equal(t, 1, logs.FilterMessageSnippet("aborted").Len())
	assert.Empty(t, a.Profiler.StartTimes, "aborted frame closes its scopes")
	assert.Contains(t, a.Profiler.Scopes, "frame")

	// the next frame still begins, but the store is stuck after its swap
	err = a.OnFrame(32, 16)
	assert.ErrorIs(t, err, core.ErrOutOfOrder)
	assert.Equal(t, softgpu.CmdSubmit, dev.Commands[len(dev.Commands)-1].Kind)
}

func TestApp_StatsReport(t *testing.T) {
	a, _, _ := newTestApp(t, testConfig())
	require.NoError(t, a.InitWithState(square, rightward()))
	require.NoError(t, a.OnFrame(16, 16))
	require.NotZero(t, a.Profiler.Scopes["frame"])

	report := a.StatsReport()
	assert.Contains(t, report, "update")
	assert.Contains(t, report, "particles")
	for name, d := range a.Profiler.Scopes {
		assert.Zero(t, d, name)
	}
	assert.Equal(t, 4, a.Profiler.Counts["particles"], "counters survive the report")
}
