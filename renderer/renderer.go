// Package renderer drives the per-frame pipeline: it snapshots settings into
// a ring of uniform slots, encodes the simulation and render passes into a
// command buffer, presents, and keeps at most a fixed number of frames in
// flight on the command queue.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/device"
	"github.com/pthm-cable/slime/sim"
	"github.com/pthm-cable/slime/telemetry"
)

// Options configures frame orchestration.
type Options struct {
	MaxFramesInFlight int           // in-flight gate and uniform ring size
	LogicalHeight     float32       // scene height in logical units
	SettleDelay       time.Duration // quiet time after a resize before the field is reallocated
	MaxDeltaTime      float32       // kernel delta time ceiling in seconds
	Persistence       bool          // blend frames into a persistent canvas

	StatsIntervalFrames int // frames between field statistics passes, 0 disables
	StatsSampleStride   int

	FuelNoiseScale   float64
	FuelNoiseOctaves int

	Workers int              // kernel worker count, 0 = GOMAXPROCS
	Now     func() time.Time // clock, defaults to time.Now
	Logger  *slog.Logger     // defaults to slog.Default()
}

// OptionsFromConfig builds options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxFramesInFlight:   cfg.Render.MaxFramesInFlight,
		LogicalHeight:       float32(cfg.Render.LogicalHeight),
		SettleDelay:         cfg.Derived.SettleDelay,
		MaxDeltaTime:        cfg.Derived.MaxDeltaTime,
		Persistence:         cfg.Render.Persistence,
		StatsIntervalFrames: cfg.Telemetry.StatsIntervalFrames,
		StatsSampleStride:   cfg.Telemetry.StatsSampleStride,
		FuelNoiseScale:      cfg.Fuel.NoiseScale,
		FuelNoiseOctaves:    cfg.Fuel.NoiseOctaves,
	}
}

// Renderer is the frame orchestrator. Draw, OnResize and Restart are meant
// for the control loop goroutine; UpdateSettings and Settings may be called
// from anywhere.
type Renderer struct {
	dev     device.Device
	surface device.Surface
	opts    Options
	log     *slog.Logger
	now     func() time.Time

	pool     *sim.Pool
	inFlight *semaphore.Weighted
	quad     *quadPass

	ring      []sim.Uniforms
	ringIndex int

	settingsMu sync.RWMutex
	settings   sim.Settings

	stateMu       sync.Mutex
	agents        *sim.AgentStore
	field         *sim.Field
	fuelSeeded    bool
	needsInit     bool
	clearField    bool
	pendingReload bool
	lastResize    time.Time
	scene         sim.Vec2
	projection    sim.Mat4

	started  bool
	start    time.Time
	prevTime time.Time
	frame    uint32
	fps      fpsCounter

	observerMu sync.RWMutex
	onFPS      func(int)
	onStats    func(telemetry.FieldStats)

	fieldAllocs int // fields allocated, logged on each reload
	agentAllocs int // agent stores allocated
}

// New creates a renderer that encodes into dev and presents to surface.
// Errors are fatal: the control loop must not start.
func New(dev device.Device, surface device.Surface, settings sim.Settings, opts Options) (*Renderer, error) {
	if dev == nil {
		return nil, errors.New("renderer: nil device")
	}
	if surface == nil {
		return nil, errors.New("renderer: nil surface")
	}
	if opts.MaxFramesInFlight < 1 {
		return nil, fmt.Errorf("renderer: max frames in flight must be >= 1, got %d", opts.MaxFramesInFlight)
	}
	if opts.LogicalHeight <= 0 {
		return nil, fmt.Errorf("renderer: logical height must be > 0, got %g", opts.LogicalHeight)
	}
	if opts.MaxDeltaTime <= 0 {
		opts.MaxDeltaTime = 0.1
	}
	if opts.StatsSampleStride < 1 {
		opts.StatsSampleStride = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	settings.Sanitize()
	r := &Renderer{
		dev:        dev,
		surface:    surface,
		opts:       opts,
		log:        opts.Logger,
		now:        opts.Now,
		pool:       sim.NewPool(opts.Workers),
		inFlight:   semaphore.NewWeighted(int64(opts.MaxFramesInFlight)),
		quad:       &quadPass{persistence: opts.Persistence},
		ring:       make([]sim.Uniforms, opts.MaxFramesInFlight),
		settings:   settings,
		agents:     sim.NewAgentStore(settings.AgentCount),
		needsInit:  true,
		projection: sim.Identity(),
	}
	r.agentAllocs++

	r.log.Info("renderer created",
		"frames_in_flight", opts.MaxFramesInFlight,
		"workers", r.pool.Workers(),
		"agents", settings.AgentCount,
	)
	return r, nil
}

// OnFPS registers a callback receiving the frame count about once a second.
func (r *Renderer) OnFPS(fn func(int)) {
	r.observerMu.Lock()
	r.onFPS = fn
	r.observerMu.Unlock()
}

// OnFieldStats registers a callback receiving periodic field statistics.
// It runs on the command queue goroutine.
func (r *Renderer) OnFieldStats(fn func(telemetry.FieldStats)) {
	r.observerMu.Lock()
	r.onStats = fn
	r.observerMu.Unlock()
}

// Settings returns a snapshot of the current settings.
func (r *Renderer) Settings() sim.Settings {
	r.settingsMu.RLock()
	defer r.settingsMu.RUnlock()
	return r.settings
}

// UpdateSettings applies fn to the settings. Changes are picked up by the
// next Draw. AgentCount only takes effect through Restart.
func (r *Renderer) UpdateSettings(fn func(*sim.Settings)) {
	r.settingsMu.Lock()
	fn(&r.settings)
	r.settings.Sanitize()
	r.settingsMu.Unlock()
}

// Restart re-initializes every agent and clears the field. The agent store
// is only reallocated when the count changes.
func (r *Renderer) Restart(agentCount int) {
	if agentCount < 1 {
		agentCount = 1
	}
	r.UpdateSettings(func(s *sim.Settings) { s.AgentCount = agentCount })

	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	if r.agents.Len() != agentCount {
		r.agents = sim.NewAgentStore(agentCount)
		r.agentAllocs++
	}
	r.needsInit = true
	r.clearField = true
	r.log.Debug("restart requested", "agents", agentCount)
}

// OnResize recomputes the projection for a drawable of width x height pixels
// and schedules a field reallocation once resizing settles.
func (r *Renderer) OnResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	aspect := float32(width) / float32(height)
	sy := r.opts.LogicalHeight
	sx := sy * aspect

	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	r.scene = sim.Vec2{X: sx, Y: sy}
	r.projection = sim.Ortho(-sx/2, sx/2, -sy/2, sy/2, -1, 1)
	r.lastResize = r.now()
	r.pendingReload = true
}

// Frames returns the number of frames committed so far.
func (r *Renderer) Frames() uint32 {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.frame
}

// Draw prepares and commits one frame. It blocks while the maximum number of
// frames is in flight; a done ctx makes it return without drawing.
func (r *Renderer) Draw(ctx context.Context) {
	if err := r.inFlight.Acquire(ctx, 1); err != nil {
		return
	}

	now := r.now()
	dt := r.advanceClock(now)
	if n, ok := r.fps.tick(dt); ok {
		r.observerMu.RLock()
		fn := r.onFPS
		r.observerMu.RUnlock()
		if fn != nil {
			fn(n)
		}
	}

	cb, err := r.dev.NewCommandBuffer()
	if err != nil {
		r.skip("command buffer unavailable", err)
		return
	}
	drawable, err := r.surface.NextDrawable()
	if err != nil {
		r.skip("drawable unavailable", err)
		return
	}

	// The slot only advances on commit, so a skipped frame leaves it free.
	u := &r.ring[r.ringIndex]
	settings := r.Settings()

	r.stateMu.Lock()
	if r.pendingReload && now.Sub(r.lastResize) >= r.opts.SettleDelay {
		r.reloadField()
	}
	field := r.field
	agents := r.agents
	initAgents := r.needsInit && field != nil
	clearField := r.clearField && field != nil
	seedFuel := settings.FuelEnabled() && !r.fuelSeeded && field != nil
	if initAgents {
		r.needsInit = false
	}
	if clearField {
		r.clearField = false
	}
	if seedFuel {
		r.fuelSeeded = true
	}

	*u = sim.Uniforms{
		Projection: r.projection,
		ScreenSize: r.scene,
		DeltaTime:  min(float32(dt), r.opts.MaxDeltaTime),
		Time:       float32(now.Sub(r.start).Seconds()),
		Frame:      r.frame,
	}
	if field != nil {
		u.FieldSize = field.Size
	}
	u.Apply(settings)
	r.stateMu.Unlock()

	pool := r.pool
	if seedFuel {
		scale, octaves := r.opts.FuelNoiseScale, r.opts.FuelNoiseOctaves
		cb.Encode(telemetry.PhaseInit, func() {
			field.SeedFuel(int64(u.Seed), scale, octaves)
		})
	}
	if initAgents {
		cb.Encode(telemetry.PhaseInit, func() {
			if clearField {
				field.Clear()
			}
			sim.InitAgents(pool, agents, field.Size, u)
		})
	}
	if field != nil {
		for step := 0; step < settings.SimulationSteps; step++ {
			cb.Encode(telemetry.PhaseDiffuse, func() {
				sim.Diffuse(pool, field, u)
			})
			cb.Encode(telemetry.PhaseAgents, func() {
				sim.StepAgents(pool, agents, field, u, step)
			})
		}
	}

	quad := r.quad
	img := drawable.Image()
	cb.Encode(telemetry.PhaseRender, func() {
		quad.draw(pool, field, u, img)
	})

	if stats := r.statsObserver(); stats != nil && field != nil && r.statsDue(u.Frame) {
		stride := r.opts.StatsSampleStride
		cb.Encode(telemetry.PhaseStats, func() {
			fs := telemetry.ComputeFieldStats(field, stride)
			fs.Frame = u.Frame
			fs.Agents = agents.Len()
			stats(fs)
		})
	}

	cb.Present(drawable)
	cb.AddCompletedHandler(func() {
		r.inFlight.Release(1)
	})
	cb.Commit()
	r.ringIndex = (r.ringIndex + 1) % len(r.ring)

	r.stateMu.Lock()
	r.frame++
	r.stateMu.Unlock()
}

// advanceClock returns the unclamped seconds since the previous Draw, or 0
// on the first one.
func (r *Renderer) advanceClock(now time.Time) float64 {
	if !r.started {
		r.started = true
		r.start = now
		r.prevTime = now
		return 0
	}
	dt := now.Sub(r.prevTime).Seconds()
	r.prevTime = now
	return dt
}

// reloadField allocates a field sized to the shorter side of the scene and
// flags the agents for re-initialization. Caller must hold stateMu.
func (r *Renderer) reloadField() {
	size := int(min(r.scene.X, r.scene.Y))
	r.field = sim.NewField(size)
	r.fuelSeeded = false
	r.needsInit = true
	r.clearField = false
	r.pendingReload = false
	r.fieldAllocs++

	// Allocation can take a while; do not count it as simulated time.
	r.prevTime = r.now()

	r.log.Info("field allocated",
		"size", size,
		"scene_w", r.scene.X,
		"scene_h", r.scene.Y,
		"field_allocs", r.fieldAllocs,
		"agent_allocs", r.agentAllocs,
	)
}

// skip abandons the current frame and frees its in-flight permit. The
// uniform slot was not claimed, so the next frame reuses it.
func (r *Renderer) skip(msg string, err error) {
	r.inFlight.Release(1)
	r.log.Debug("frame skipped", "reason", msg, "error", err)
}

func (r *Renderer) statsObserver() func(telemetry.FieldStats) {
	r.observerMu.RLock()
	defer r.observerMu.RUnlock()
	return r.onStats
}

func (r *Renderer) statsDue(frame uint32) bool {
	n := r.opts.StatsIntervalFrames
	return n > 0 && frame%uint32(n) == 0
}

// Close waits for in-flight frames to complete and stops the kernel workers.
// The command queue must still be running.
func (r *Renderer) Close() {
	n := int64(r.opts.MaxFramesInFlight)
	_ = r.inFlight.Acquire(context.Background(), n)
	r.pool.Stop()
	r.inFlight.Release(n)
}
