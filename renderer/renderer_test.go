package renderer

import (
	"bytes"
	"context"
	"image"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/device"
	"github.com/pthm-cable/slime/sim"
	"github.com/pthm-cable/slime/telemetry"
)

func init() {
	// Initialize config for tests
	config.MustInit("")
}

// mockClock only moves when told to.
type mockClock struct {
	mu sync.Mutex
	t  time.Time
}

func newMockClock() *mockClock { return &mockClock{t: time.Unix(1000, 0)} }

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// mockBuffer records what was encoded; nothing runs until the test completes it.
type mockBuffer struct {
	dev       *mockDevice
	labels    []string
	passes    []func()
	drawables []device.Drawable
	handlers  []func()
}

func (b *mockBuffer) Encode(label string, pass func()) {
	b.labels = append(b.labels, label)
	b.passes = append(b.passes, pass)
}
func (b *mockBuffer) Present(d device.Drawable)   { b.drawables = append(b.drawables, d) }
func (b *mockBuffer) AddCompletedHandler(h func()) { b.handlers = append(b.handlers, h) }
func (b *mockBuffer) Commit()                      { b.dev.commit(b) }

// mockDevice holds committed buffers until complete is called.
type mockDevice struct {
	mu        sync.Mutex
	committed []*mockBuffer
	total     int
	fail      bool
}

func (d *mockDevice) NewCommandBuffer() (device.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return nil, device.ErrQueueClosed
	}
	return &mockBuffer{dev: d}, nil
}

func (d *mockDevice) commit(b *mockBuffer) {
	d.mu.Lock()
	d.committed = append(d.committed, b)
	d.total++
	d.mu.Unlock()
}

// complete runs the oldest committed buffer, optionally executing its passes.
func (d *mockDevice) complete(run bool) *mockBuffer {
	d.mu.Lock()
	if len(d.committed) == 0 {
		d.mu.Unlock()
		return nil
	}
	b := d.committed[0]
	d.committed = d.committed[1:]
	d.mu.Unlock()

	if run {
		for _, p := range b.passes {
			p()
		}
	}
	for _, dr := range b.drawables {
		dr.Present()
	}
	for _, h := range b.handlers {
		h()
	}
	return b
}

func (d *mockDevice) completeAll(run bool) {
	for d.complete(run) != nil {
	}
}

func (d *mockDevice) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.committed)
}

type mockDrawable struct{ img *image.RGBA }

func (m *mockDrawable) Image() *image.RGBA { return m.img }
func (m *mockDrawable) Present()           {}

type mockSurface struct {
	empty bool
}

func (s *mockSurface) NextDrawable() (device.Drawable, error) {
	if s.empty {
		return nil, device.ErrNoDrawable
	}
	return &mockDrawable{img: image.NewRGBA(image.Rect(0, 0, 16, 16))}, nil
}

func testSettings() sim.Settings {
	s := sim.DefaultSettings(config.Cfg())
	s.AgentCount = 64
	s.SimulationSteps = 2
	return s
}

func newTestRenderer(t *testing.T, dev *mockDevice, surf *mockSurface, clock *mockClock) *Renderer {
	t.Helper()
	opts := OptionsFromConfig(config.Cfg())
	opts.LogicalHeight = 32
	opts.Workers = 1
	opts.Now = clock.Now
	r, err := New(dev, surf, testSettings(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		dev.completeAll(false)
		r.Close()
	})
	return r
}

func TestNewRejectsInvalidArguments(t *testing.T) {
	opts := OptionsFromConfig(config.Cfg())
	if _, err := New(nil, &mockSurface{}, testSettings(), opts); err == nil {
		t.Error("expected error for nil device")
	}
	if _, err := New(&mockDevice{}, nil, testSettings(), opts); err == nil {
		t.Error("expected error for nil surface")
	}
	opts.MaxFramesInFlight = 0
	if _, err := New(&mockDevice{}, &mockSurface{}, testSettings(), opts); err == nil {
		t.Error("expected error for zero frames in flight")
	}
}

func TestDrawBlocksAtMaxFramesInFlight(t *testing.T) {
	dev := &mockDevice{}
	clock := newMockClock()
	r := newTestRenderer(t, dev, &mockSurface{}, clock)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		r.Draw(ctx)
	}
	if dev.pending() != 3 {
		t.Fatalf("expected 3 frames in flight, got %d", dev.pending())
	}

	done := make(chan struct{})
	go func() {
		r.Draw(ctx)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("fourth Draw returned while 3 frames were in flight")
	case <-time.After(50 * time.Millisecond):
	}

	dev.complete(false)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fourth Draw did not proceed after a frame completed")
	}
	if dev.pending() != 3 {
		t.Errorf("expected 3 frames in flight, got %d", dev.pending())
	}
}

func TestDrawReturnsWhenContextDone(t *testing.T) {
	dev := &mockDevice{}
	r := newTestRenderer(t, dev, &mockSurface{}, newMockClock())

	for i := 0; i < 3; i++ {
		r.Draw(context.Background())
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Draw(ctx)
	if dev.total != 3 {
		t.Errorf("expected cancelled Draw to commit nothing, got %d commits", dev.total)
	}
}

func TestSkippedFramesReleaseSlot(t *testing.T) {
	dev := &mockDevice{}
	surf := &mockSurface{empty: true}
	r := newTestRenderer(t, dev, surf, newMockClock())

	done := make(chan struct{})
	go func() {
		// More draws than slots; each skip must give its slot back
		for i := 0; i < 10; i++ {
			r.Draw(context.Background())
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("skipped frames leaked in-flight slots")
	}
	if dev.total != 0 {
		t.Errorf("expected nothing committed, got %d", dev.total)
	}

	surf.empty = false
	dev.fail = true
	r.Draw(context.Background())
	r.Draw(context.Background())
	r.Draw(context.Background())
	r.Draw(context.Background())
	if dev.total != 0 {
		t.Errorf("expected nothing committed without command buffers, got %d", dev.total)
	}
}

func TestSkippedFrameDoesNotClaimUniformSlot(t *testing.T) {
	dev := &mockDevice{}
	surf := &mockSurface{}
	clock := newMockClock()
	r := newTestRenderer(t, dev, surf, clock)
	r.OnResize(16, 16)
	clock.Advance(time.Second)

	ctx := context.Background()
	r.Draw(ctx) // frame 0 in slot 0, left in flight

	surf.empty = true
	r.Draw(ctx)
	surf.empty = false

	r.Draw(ctx)
	r.Draw(ctx)
	if dev.pending() != 3 {
		t.Fatalf("expected 3 frames in flight, got %d", dev.pending())
	}
	if got := r.ring[0].Frame; got != 0 {
		t.Fatalf("slot 0 overwritten while its frame was in flight: frame %d", got)
	}
	if r.ringIndex != 0 {
		t.Errorf("expected ring to wrap after 3 commits, got index %d", r.ringIndex)
	}

	done := make(chan struct{})
	go func() {
		r.Draw(ctx)
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Draw returned while 3 frames were in flight")
	case <-time.After(50 * time.Millisecond):
	}
	if got := r.ring[0].Frame; got != 0 {
		t.Fatalf("slot 0 overwritten before its frame completed: frame %d", got)
	}

	dev.complete(false)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Draw did not proceed after a frame completed")
	}
	if got := r.ring[0].Frame; got != 3 {
		t.Errorf("expected slot 0 reused by frame 3, got frame %d", got)
	}
}

func TestFPSCallback(t *testing.T) {
	dev := &mockDevice{}
	clock := newMockClock()
	r := newTestRenderer(t, dev, &mockSurface{}, clock)

	var reports []int
	r.OnFPS(func(n int) { reports = append(reports, n) })

	// 125ms frames: the first draw has no delta, eight more reach one second
	for i := 0; i < 9+8; i++ {
		if i > 0 {
			clock.Advance(125 * time.Millisecond)
		}
		r.Draw(context.Background())
		dev.complete(false)
	}

	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %v", reports)
	}
	if reports[0] != 9 || reports[1] != 8 {
		t.Errorf("expected reports [9 8], got %v", reports)
	}
}

func TestResizeSettlesBeforeAllocating(t *testing.T) {
	dev := &mockDevice{}
	clock := newMockClock()
	r := newTestRenderer(t, dev, &mockSurface{}, clock)
	ctx := context.Background()

	r.OnResize(800, 600)
	clock.Advance(100 * time.Millisecond)
	r.OnResize(400, 800)

	clock.Advance(150 * time.Millisecond)
	r.Draw(ctx)
	dev.complete(false)
	if r.fieldAllocs != 0 {
		t.Fatalf("expected no allocation before settling, got %d", r.fieldAllocs)
	}

	clock.Advance(100 * time.Millisecond)
	r.Draw(ctx)
	dev.complete(false)
	r.Draw(ctx)
	dev.complete(false)

	if r.fieldAllocs != 1 {
		t.Fatalf("expected exactly one allocation, got %d", r.fieldAllocs)
	}
	// Portrait 400x800 with logical height 32: scene is 16 x 32
	if r.field.Size != 16 {
		t.Errorf("expected field sized to the final resize (16), got %d", r.field.Size)
	}
}

func TestRestartReallocatesOnlyOnCountChange(t *testing.T) {
	dev := &mockDevice{}
	clock := newMockClock()
	r := newTestRenderer(t, dev, &mockSurface{}, clock)
	ctx := context.Background()

	r.OnResize(64, 64)
	clock.Advance(time.Second)
	r.Draw(ctx)
	b := dev.complete(true)
	if b.labels[0] != telemetry.PhaseInit {
		t.Fatalf("expected init pass first after allocation, got %v", b.labels)
	}

	base := r.agentAllocs
	store := r.agents

	r.Restart(64)
	r.Restart(64)
	if r.agentAllocs != base || r.agents != store {
		t.Errorf("expected no reallocation for an unchanged count")
	}

	// Agents are re-initialized on the next frame
	r.Draw(ctx)
	b = dev.complete(true)
	if b.labels[0] != telemetry.PhaseInit {
		t.Errorf("expected init pass after restart, got %v", b.labels)
	}

	r.Restart(128)
	if r.agentAllocs != base+1 || r.agents.Len() != 128 {
		t.Errorf("expected reallocation to 128 agents, got %d allocs and %d agents", r.agentAllocs-base, r.agents.Len())
	}
	if got := r.Settings().AgentCount; got != 128 {
		t.Errorf("expected settings agent count 128, got %d", got)
	}

	r.Restart(0)
	if r.agents.Len() != 1 {
		t.Errorf("expected restart count clamped to 1, got %d", r.agents.Len())
	}
}

func TestFrameEncodesPassesInOrder(t *testing.T) {
	dev := &mockDevice{}
	clock := newMockClock()
	r := newTestRenderer(t, dev, &mockSurface{}, clock)
	ctx := context.Background()

	var stats []telemetry.FieldStats
	r.OnFieldStats(func(fs telemetry.FieldStats) { stats = append(stats, fs) })

	// No field yet: only the render pass
	r.Draw(ctx)
	b := dev.complete(true)
	if len(b.labels) != 1 || b.labels[0] != telemetry.PhaseRender {
		t.Fatalf("expected only a render pass before the field exists, got %v", b.labels)
	}

	r.OnResize(32, 32)
	clock.Advance(time.Second)
	r.Draw(ctx)
	b = dev.complete(true)

	want := []string{
		telemetry.PhaseInit,
		telemetry.PhaseDiffuse, telemetry.PhaseAgents,
		telemetry.PhaseDiffuse, telemetry.PhaseAgents,
		telemetry.PhaseRender,
	}
	for i, l := range want {
		if i >= len(b.labels) || b.labels[i] != l {
			t.Fatalf("expected passes %v (then optional stats), got %v", want, b.labels)
		}
	}
	if len(b.drawables) != 1 {
		t.Errorf("expected one presented drawable, got %d", len(b.drawables))
	}

	for _, a := range r.agents.Agents {
		if !r.field.Contains(a.Position) {
			t.Fatalf("agent outside field after frame: %+v", a.Position)
		}
	}
}

func TestUniformRingWraps(t *testing.T) {
	dev := &mockDevice{}
	clock := newMockClock()
	r := newTestRenderer(t, dev, &mockSurface{}, clock)

	slots := make(map[*sim.Uniforms]bool)
	for i := 0; i < 7; i++ {
		r.Draw(context.Background())
		slots[&r.ring[(r.ringIndex+len(r.ring)-1)%len(r.ring)]] = true
		dev.complete(false)
	}
	if len(slots) != 3 {
		t.Errorf("expected frames to cycle through 3 uniform slots, got %d", len(slots))
	}
	if r.ringIndex != 7%3 {
		t.Errorf("expected ring index %d, got %d", 7%3, r.ringIndex)
	}
	if r.Frames() != 7 {
		t.Errorf("expected 7 frames, got %d", r.Frames())
	}
}

func TestUpdateSettingsSanitizes(t *testing.T) {
	r := newTestRenderer(t, &mockDevice{}, &mockSurface{}, newMockClock())

	r.UpdateSettings(func(s *sim.Settings) {
		s.SensorFlip = -3
		s.DecayRate = -1
	})
	s := r.Settings()
	if s.SensorFlip != -1 || s.DecayRate != 0 {
		t.Errorf("expected sanitized settings, got flip %f decay %f", s.SensorFlip, s.DecayRate)
	}
}

func TestFPSCounterIgnoresZeroDelta(t *testing.T) {
	var c fpsCounter
	if _, ok := c.tick(2); !ok {
		t.Fatal("expected report after 2s")
	}
	c.tick(0.25)
	c.tick(0.5)
	if _, ok := c.tick(0); ok {
		t.Error("expected no report on a zero delta")
	}
	if n, ok := c.tick(0.25); !ok || n != 4 {
		t.Errorf("expected 4 frames reported, got %d %v", n, ok)
	}
}

func TestFieldAllocationLogsCounters(t *testing.T) {
	var buf bytes.Buffer
	dev := &mockDevice{}
	clock := newMockClock()
	opts := OptionsFromConfig(config.Cfg())
	opts.LogicalHeight = 32
	opts.Workers = 1
	opts.Now = clock.Now
	opts.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	r, err := New(dev, &mockSurface{}, testSettings(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() {
		dev.completeAll(false)
		r.Close()
	}()

	r.OnResize(16, 16)
	clock.Advance(time.Second)
	r.Draw(context.Background())

	out := buf.String()
	if !strings.Contains(out, "field allocated") || !strings.Contains(out, "field_allocs=1") || !strings.Contains(out, "agent_allocs=1") {
		t.Errorf("expected allocation counters in log, got %q", out)
	}
}
