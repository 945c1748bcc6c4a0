package telemetry

import (
	"testing"
	"time"
)

// fakeClock advances by step on every read.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Millisecond}
	pc.now = clock.now

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseDiffuse)
		pc.StartPhase(PhaseAgents)
		pc.StartPhase(PhaseDiffuse)
		pc.StartPhase(PhaseAgents)
		pc.StartPhase(PhaseRender)
		pc.EndTick()
	}

	stats := pc.Stats()

	// Seven clock reads per tick, so a tick spans six steps
	if stats.AvgFrameDuration != 6*time.Millisecond {
		t.Errorf("expected 6ms average frame, got %v", stats.AvgFrameDuration)
	}
	// Repeated passes accumulate within a frame
	if got := stats.PhaseAvg[PhaseDiffuse]; got != 2*time.Millisecond {
		t.Errorf("expected diffuse to accumulate 2ms, got %v", got)
	}
	if got := stats.PhaseAvg[PhaseRender]; got != time.Millisecond {
		t.Errorf("expected render 1ms, got %v", got)
	}
	if stats.FramesPerSecond < 166 || stats.FramesPerSecond > 167 {
		t.Errorf("expected ~166.7 frames per second, got %v", stats.FramesPerSecond)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseAgents)
		time.Sleep(10 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	if stats.AvgFrameDuration <= 0 {
		t.Error("expected positive average frame duration after window filled")
	}
	if stats.FramesPerSecond <= 0 {
		t.Error("expected positive frames per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Millisecond}
	pc.now = clock.now

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseInit)
		pc.StartPhase(PhaseAgents)
		clock.now()
		clock.now()
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.PhasePct[PhaseAgents] <= stats.PhasePct[PhaseInit] {
		t.Errorf("expected agents (%v%%) > init (%v%%)", stats.PhasePct[PhaseAgents], stats.PhasePct[PhaseInit])
	}

	row := stats.ToCSV(42)
	if row.Frame != 42 || row.AgentsPct != stats.PhasePct[PhaseAgents] {
		t.Errorf("unexpected CSV row: %+v", row)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	if stats.AvgFrameDuration != 0 {
		t.Error("expected zero avg frame duration for empty collector")
	}
	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}
	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)
	clock := &fakeClock{t: time.Unix(0, 0), step: 16 * time.Millisecond}
	pc.now = clock.now

	pc.RecordFrame()
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameInterval != 16*time.Millisecond {
		t.Errorf("expected 16ms frame interval, got %v", stats.FrameInterval)
	}
	if stats.FPS < 62 || stats.FPS > 63 {
		t.Errorf("expected ~62.5 FPS, got %v", stats.FPS)
	}
}
