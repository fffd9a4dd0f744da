package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gekko3d/gpuparticles/particlert/rt/app"
	"github.com/gekko3d/gpuparticles/particlert/rt/core"
	"github.com/gekko3d/gpuparticles/particlert/rt/gpu"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "TOML config file (defaults apply when empty)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.Parse()

	cfg := app.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = app.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *debug {
		cfg.Debug.Enabled = true
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	log := core.NewDefaultLogger("particles", cfg.Debug.Enabled)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Errorf("%v", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg app.Config, log *core.DefaultLogger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()

	device, err := gpu.NewWgpuDevice(window, log)
	if err != nil {
		return err
	}
	defer device.Release()

	application := app.NewApp(device, cfg, log)
	if err := application.Init(); err != nil {
		return fmt.Errorf("initialize particle renderer: %w", err)
	}
	width, height := window.GetFramebufferSize()
	application.OnResize(width, height)

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, application.Profiler, log)
		defer srv.Close()
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.OnResize(width, height)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyF1:
			application.Scene.ShowStateTextures = !application.Scene.ShowStateTextures
		case glfw.KeyF2:
			log.SetDebug(!log.DebugEnabled())
		case glfw.KeyP:
			log.Infof("%s", application.StatsReport())
		}
	})

	last := glfw.GetTime()
	for !window.ShouldClose() {
		glfw.PollEvents()
		now := glfw.GetTime()
		if err := application.OnFrame(now*1000, (now-last)*1000); err != nil {
			return err
		}
		last = now
	}
	return nil
}

func serveMetrics(addr string, profiler *app.Profiler, log core.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(profiler.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server: %v", err)
		}
	}()
	log.Infof("Serving metrics on %s/metrics", addr)
	return srv
}
