package game

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/slime/telemetry"
	"github.com/pthm-cable/slime/ui"
)

// recordFPS runs on the control loop from inside Draw.
func (g *Game) recordFPS(n int) {
	g.mu.Lock()
	g.fps = n
	g.mu.Unlock()

	if err := g.output.WriteFPS(telemetry.FPSRecord{
		Frame:   uint64(g.renderer.Frames()),
		Elapsed: time.Since(g.start).Seconds(),
		FPS:     n,
	}); err != nil {
		slog.Error("failed to write fps", "error", err)
	}
	if g.panel != nil {
		g.panel.SetFPS(n)
	}
}

// recordFieldStats runs on the command queue goroutine.
func (g *Game) recordFieldStats(fs telemetry.FieldStats) {
	g.mu.Lock()
	g.fieldStats = fs
	g.pendingStats = append(g.pendingStats, fs)
	g.mu.Unlock()
}

// flushTelemetry writes queued field stats and logs perf on the configured interval.
func (g *Game) flushTelemetry() {
	g.mu.Lock()
	pending := g.pendingStats
	g.pendingStats = nil
	g.mu.Unlock()

	for _, fs := range pending {
		if g.logStats {
			slog.Info("field", "stats", fs)
		}
		if err := g.output.WriteFieldStats(fs); err != nil {
			slog.Error("failed to write field stats", "error", err)
		}
	}

	interval := g.cfg.Derived.LogInterval
	if interval <= 0 || time.Since(g.lastPerfLog) < interval {
		return
	}
	g.lastPerfLog = time.Now()

	perfStats := g.perf.Stats()
	frame := uint64(g.renderer.Frames())
	if g.logStats {
		slog.Info("perf", "frame", frame, "stats", perfStats)
	}
	if err := g.output.WritePerf(perfStats, frame); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}

// hudData snapshots what the HUD shows.
func (g *Game) hudData() ui.HUDData {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ui.HUDData{
		FPS:    g.fps,
		Agents: g.renderer.Settings().AgentCount,
		Field:  g.fieldStats,
		Perf:   g.perf.Stats(),
	}
}
