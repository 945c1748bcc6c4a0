// Package game wires the renderer, command queue, swap chain, telemetry and
// UI into the headless and graphical run loops.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/device"
	"github.com/pthm-cable/slime/renderer"
	"github.com/pthm-cable/slime/sim"
	"github.com/pthm-cable/slime/telemetry"
	"github.com/pthm-cable/slime/ui"
)

// Options configures a run.
type Options struct {
	Seed          uint32 // 0 keeps the configured seed
	LogStats      bool   // log perf and field stats via slog
	OutputDir     string // CSV logs, config snapshot and frames (empty = disabled)
	Headless      bool   // no window; frames stay in the swap chain
	SnapshotEvery int    // headless: write every Nth presented frame as PNG (0 = never)
}

// Game holds the running pipeline.
type Game struct {
	cfg *config.Config
	ctx context.Context

	queue    *device.Queue
	chain    *device.SwapChain
	renderer *renderer.Renderer
	perf     *telemetry.PerfCollector
	output   *telemetry.OutputManager

	logStats      bool
	snapshotEvery int
	start         time.Time
	lastPerfLog   time.Time
	lastSnapshot  uint64

	// Written by renderer callbacks, drained by the control loop
	mu           sync.Mutex
	fps          int
	fieldStats   telemetry.FieldStats
	pendingStats []telemetry.FieldStats

	// Graphical mode only
	surface *ui.WindowSurface
	panel   *ui.SettingsPanel
	hud     *ui.HUD
	width   int
	height  int
}

// NewGameWithOptions builds the pipeline. In graphical mode the raylib
// window must already be open.
func NewGameWithOptions(ctx context.Context, opts Options) (*Game, error) {
	cfg := config.Cfg()

	g := &Game{
		cfg:           cfg,
		ctx:           ctx,
		logStats:      opts.LogStats,
		snapshotEvery: opts.SnapshotEvery,
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		width:         cfg.Screen.Width,
		height:        cfg.Screen.Height,
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output manager: %w", err)
	}
	g.output = output
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	inFlight := cfg.Render.MaxFramesInFlight
	queue, err := device.NewQueue(inFlight, g.perf)
	if err != nil {
		output.Close()
		return nil, fmt.Errorf("creating command queue: %w", err)
	}
	g.queue = queue

	// One drawable per frame in flight plus the one on display
	g.chain = device.NewSwapChain(g.width, g.height, inFlight+1)

	settings := sim.DefaultSettings(cfg)
	if opts.Seed != 0 {
		settings.Seed = opts.Seed
	}

	ropts := renderer.OptionsFromConfig(cfg)
	if opts.Headless {
		// Nothing resizes a headless surface
		ropts.SettleDelay = 0
	}
	r, err := renderer.New(queue, g.chain, settings, ropts)
	if err != nil {
		queue.Close()
		output.Close()
		return nil, fmt.Errorf("creating renderer: %w", err)
	}
	g.renderer = r
	r.OnFPS(g.recordFPS)
	r.OnFieldStats(g.recordFieldStats)
	r.OnResize(g.width, g.height)

	if !opts.Headless {
		g.surface = ui.NewWindowSurface(g.chain)
		g.panel = ui.NewSettingsPanel(cfg.UI.PanelWidth, cfg.UI.SliderWidth, cfg.UI.ToggleZone)
		g.hud = ui.NewHUD()
	}

	g.start = time.Now()
	g.lastPerfLog = g.start
	slog.Info("pipeline ready",
		"headless", opts.Headless,
		"width", g.width,
		"height", g.height,
		"agents", settings.AgentCount,
		"seed", settings.Seed,
	)
	return g, nil
}

// Frames returns the number of committed frames.
func (g *Game) Frames() uint32 {
	return g.renderer.Frames()
}

// UpdateHeadless draws one frame and handles snapshots and telemetry.
func (g *Game) UpdateHeadless() {
	g.renderer.Draw(g.ctx)
	g.perf.RecordFrame()
	g.captureFrame()
	g.flushTelemetry()
}

// captureFrame writes the latest presented frame when a snapshot is due.
func (g *Game) captureFrame() {
	if g.snapshotEvery <= 0 || g.output == nil {
		return
	}
	presented := g.chain.Presented()
	if presented < g.lastSnapshot+uint64(g.snapshotEvery) {
		return
	}
	img, release := g.chain.Acquire()
	defer release()
	if img == nil {
		return
	}
	g.lastSnapshot = presented
	if err := g.output.WriteFrame(presented, img); err != nil {
		slog.Error("failed to write frame", "error", err)
	}
}

// Update handles input and draws one frame. Graphical mode only.
func (g *Game) Update() {
	g.handleInput()
	g.renderer.Draw(g.ctx)
	g.perf.RecordFrame()
	g.flushTelemetry()
}

// Unload drains in-flight frames and releases everything.
func (g *Game) Unload() {
	g.renderer.Close()
	g.queue.Close()
	g.flushTelemetry()
	if g.surface != nil {
		g.surface.Close()
	}
	if err := g.output.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
	slog.Info("pipeline stopped", "frames", g.renderer.Frames(), "elapsed_sec", time.Since(g.start).Seconds())
}
