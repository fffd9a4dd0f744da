package app

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Profiler keeps the last duration of each named frame scope plus a few
// counters, and mirrors both into a Prometheus registry.
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string

	registry     *prometheus.Registry
	scopeSeconds *prometheus.HistogramVec
	frames       prometheus.Counter
	particles    prometheus.Gauge
	clamped      prometheus.Counter
}

func NewProfiler() *Profiler {
	p := &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Order:      make([]string, 0),
		registry:   prometheus.NewRegistry(),
		scopeSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gpuparticles_frame_scope_seconds",
				Help:    "CPU time spent recording each frame scope",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
			[]string{"scope"},
		),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpuparticles_frames_total",
			Help: "Frames submitted",
		}),
		particles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gpuparticles_particles",
			Help: "Particles simulated per frame",
		}),
		clamped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpuparticles_delta_clamped_total",
			Help: "Frames whose host delta time was clamped",
		}),
	}
	p.registry.MustRegister(p.scopeSeconds, p.frames, p.particles, p.clamped)
	return p
}

// Registry is served by the metrics endpoint.
func (p *Profiler) Registry() *prometheus.Registry { return p.registry }

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = time.Now()
	if !slices.Contains(p.Order, name) {
		p.Order = append(p.Order, name)
	}
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.StartTimes[name]; ok {
		d := time.Since(start)
		p.Scopes[name] = d
		p.scopeSeconds.WithLabelValues(name).Observe(d.Seconds())
		delete(p.StartTimes, name)
	}
}

// EndOpenScopes closes every scope still running, innermost first.
func (p *Profiler) EndOpenScopes() {
	for i := len(p.Order) - 1; i >= 0; i-- {
		p.EndScope(p.Order[i])
	}
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

// FrameDone records one submitted frame.
func (p *Profiler) FrameDone(particles int, clamped bool) {
	p.frames.Inc()
	p.particles.Set(float64(particles))
	if clamped {
		p.clamped.Inc()
	}
}

func (p *Profiler) Reset() {
	// keep Order, reset times
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-15s: %.2f ms\n", name, ms))
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-15s: %d\n", k, p.Counts[k]))
	}
	return sb.String()
}
