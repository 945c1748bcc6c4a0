package ui

import (
	"testing"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/sim"
)

func init() {
	// Initialize config for tests
	config.MustInit("")
}

func TestSettingsSectionsCoverDefaults(t *testing.T) {
	s := sim.DefaultSettings(config.Cfg())
	seen := make(map[string]bool)

	for _, sd := range SettingsSections() {
		for _, fd := range sd.Fields {
			if seen[fd.ID] {
				t.Errorf("duplicate field id %q", fd.ID)
			}
			seen[fd.ID] = true

			if fd.Widget != WidgetSlider {
				continue
			}
			if fd.Get == nil || fd.Set == nil {
				t.Fatalf("field %q has no accessors", fd.ID)
			}
			v := fd.Get(&s)
			if v < fd.Range.Min || v > fd.Range.Max {
				t.Errorf("default %s = %f outside slider range [%f, %f]", fd.ID, v, fd.Range.Min, fd.Range.Max)
			}
		}
	}

	for _, id := range []string{"agent_count", "move_speed", "decay_rate", "color_a", "fuel_load"} {
		if !seen[id] {
			t.Errorf("expected a %q field", id)
		}
	}
}

func findField(t *testing.T, id string) FieldDescriptor {
	t.Helper()
	for _, sd := range SettingsSections() {
		for _, fd := range sd.Fields {
			if fd.ID == id {
				return fd
			}
		}
	}
	t.Fatalf("field %q not found", id)
	return FieldDescriptor{}
}

func TestApplySliderClampsAndRounds(t *testing.T) {
	s := sim.DefaultSettings(config.Cfg())

	steps := findField(t, "steps")
	if !applySlider(steps, &s, 3.6) || s.SimulationSteps != 4 {
		t.Errorf("expected steps rounded to 4, got %d", s.SimulationSteps)
	}
	if applySlider(steps, &s, 4.2) {
		t.Error("expected no change when the rounded value is equal")
	}
	applySlider(steps, &s, 99)
	if s.SimulationSteps != 5 {
		t.Errorf("expected steps clamped to 5, got %d", s.SimulationSteps)
	}

	decay := findField(t, "decay_rate")
	applySlider(decay, &s, 1.25)
	if s.DecayRate != 1.25 {
		t.Errorf("expected decay 1.25, got %f", s.DecayRate)
	}

	flip := findField(t, "sensor_flip")
	applySlider(flip, &s, -0.8)
	if s.SensorFlip != -1 {
		t.Errorf("expected flip -1, got %f", s.SensorFlip)
	}
}

func TestFuelFieldsHiddenUntilEnabled(t *testing.T) {
	s := sim.DefaultSettings(config.Cfg())
	s.FuelLoadRate, s.FuelConsumptionRate = 0, 0

	eff := findField(t, "efficiency")
	if eff.Visible == nil || eff.Visible(s) {
		t.Error("expected efficiency hidden while fuel is off")
	}
	s.FuelConsumptionRate = 1
	if !eff.Visible(s) {
		t.Error("expected efficiency visible once fuel is on")
	}
}

func TestApplyPresetKeepsPersistence(t *testing.T) {
	s := sim.Settings{Color: sim.Color{0, 0, 0, 0.1}}
	applyPreset(&s, ColorPresets[1])
	if s.Color[0] != 1 || s.Color[3] != 0.1 {
		t.Errorf("expected pink tint with persistence kept, got %v", s.Color)
	}
}

func TestPanelToggleZone(t *testing.T) {
	p := NewSettingsPanel(360, 180, 150)
	if p.IsVisible() {
		t.Fatal("expected panel hidden by default")
	}
	if !p.inToggleZone(10, 149) || p.inToggleZone(150, 10) || p.inToggleZone(-1, 5) {
		t.Error("unexpected toggle zone bounds")
	}
	if !p.Toggle() || p.Toggle() {
		t.Error("expected Toggle to flip visibility")
	}
}

type fakeController struct {
	settings sim.Settings
	restarts []int
}

func (f *fakeController) Settings() sim.Settings                 { return f.settings }
func (f *fakeController) UpdateSettings(fn func(*sim.Settings)) { fn(&f.settings) }
func (f *fakeController) Restart(n int)                          { f.restarts = append(f.restarts, n) }

func TestPanelRestartAppliesStagedValues(t *testing.T) {
	ctrl := &fakeController{settings: sim.DefaultSettings(config.Cfg())}
	p := NewSettingsPanel(360, 180, 150)
	p.pendingAgents = 5000
	p.pendingSpawn = sim.SpawnInward
	p.staged = true

	p.restart(ctrl)

	if len(ctrl.restarts) != 1 || ctrl.restarts[0] != 5000 {
		t.Errorf("expected restart with 5000 agents, got %v", ctrl.restarts)
	}
	if ctrl.settings.SpawnMode != sim.SpawnInward {
		t.Errorf("expected inward spawn, got %q", ctrl.settings.SpawnMode)
	}
	if p.staged {
		t.Error("expected staged values to be refreshed after restart")
	}
}
