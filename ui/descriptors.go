package ui

import (
	"math"

	"github.com/pthm-cable/slime/sim"
)

// floatField binds a slider to a float32 settings field.
func floatField(id, label, format string, lo, hi float32, field func(*sim.Settings) *float32) FieldDescriptor {
	return FieldDescriptor{
		ID:     id,
		Label:  label,
		Widget: WidgetSlider,
		Format: format,
		Range:  FieldRange{Min: lo, Max: hi},
		Get:    func(s *sim.Settings) float32 { return *field(s) },
		Set:    func(s *sim.Settings, v float32) { *field(s) = v },
	}
}

// intField binds a whole-number slider to an int settings field.
func intField(id, label string, lo, hi int, field func(*sim.Settings) *int) FieldDescriptor {
	return FieldDescriptor{
		ID:      id,
		Label:   label,
		Widget:  WidgetSlider,
		Format:  "%.0f",
		Range:   FieldRange{Min: float32(lo), Max: float32(hi)},
		Integer: true,
		Get:     func(s *sim.Settings) float32 { return float32(*field(s)) },
		Set:     func(s *sim.Settings, v float32) { *field(s) = int(v) },
	}
}

// SettingsSections returns the panel layout over sim.Settings.
func SettingsSections() []SectionDescriptor {
	agentCount := intField("agent_count", "Agents", 1, 1_000_000, func(s *sim.Settings) *int { return &s.AgentCount })
	agentCount.Restart = true

	sensorFlip := floatField("sensor_flip", "Sensor flip", "%+.0f", -1, 1, func(s *sim.Settings) *float32 { return &s.SensorFlip })
	sensorFlip.Integer = true

	fuelOnly := func(s sim.Settings) bool { return s.FuelEnabled() }
	efficiency := floatField("efficiency", "Efficiency", "%.2f", 0, 1, func(s *sim.Settings) *float32 { return &s.Efficiency })
	efficiency.Visible = fuelOnly
	wasteDeposit := floatField("waste_deposit", "Waste deposit", "%.2f", 0, 5, func(s *sim.Settings) *float32 { return &s.WasteDepositRate })
	wasteDeposit.Visible = fuelOnly
	wasteConversion := floatField("waste_conversion", "Waste to fuel", "%.2f", 0, 5, func(s *sim.Settings) *float32 { return &s.WasteConversionRate })
	wasteConversion.Visible = fuelOnly

	return []SectionDescriptor{
		{
			ID:    "agents",
			Title: "Agents",
			Fields: []FieldDescriptor{
				agentCount,
				intField("steps", "Steps / frame", 1, 5, func(s *sim.Settings) *int { return &s.SimulationSteps }),
				floatField("move_speed", "Move speed", "%.1f", 0, 400, func(s *sim.Settings) *float32 { return &s.MoveSpeed }),
				floatField("turn_rate", "Turn rate", "%.2f", 0, 5, func(s *sim.Settings) *float32 { return &s.TurnRate }),
				floatField("sensor_offset", "Sensor offset", "%.0f", 2, 250, func(s *sim.Settings) *float32 { return &s.SensorOffset }),
				floatField("sensor_angle", "Sensor angle", "%.0f deg", 0, 180, func(s *sim.Settings) *float32 { return &s.SensorAngleOffset }),
				intField("branch_count", "Branches", 0, 10, func(s *sim.Settings) *int { return &s.BranchCount }),
				floatField("branch_scale", "Branch scale", "%.2f", 0, 10, func(s *sim.Settings) *float32 { return &s.BranchScale }),
				floatField("deposit", "Deposit", "%.3f", 0, 1, func(s *sim.Settings) *float32 { return &s.DepositAmount }),
				sensorFlip,
			},
		},
		{
			ID:    "field",
			Title: "Field",
			Fields: []FieldDescriptor{
				floatField("diffuse_rate", "Diffuse rate", "%.2f", 0, 70, func(s *sim.Settings) *float32 { return &s.DiffuseRate }),
				floatField("decay_rate", "Decay rate", "%.2f", 0, 3, func(s *sim.Settings) *float32 { return &s.DecayRate }),
			},
		},
		{
			ID:    "color",
			Title: "Color",
			Fields: []FieldDescriptor{
				floatField("color_r", "Red", "%.3f", 0, 1, func(s *sim.Settings) *float32 { return &s.Color[0] }),
				floatField("color_g", "Green", "%.3f", 0, 1, func(s *sim.Settings) *float32 { return &s.Color[1] }),
				floatField("color_b", "Blue", "%.3f", 0, 1, func(s *sim.Settings) *float32 { return &s.Color[2] }),
				floatField("color_a", "Persistence", "%.4f", 0, 0.5, func(s *sim.Settings) *float32 { return &s.Color[3] }),
			},
		},
		{
			ID:    "fuel",
			Title: "Fuel",
			Fields: []FieldDescriptor{
				floatField("fuel_load", "Fuel regrowth", "%.2f", 0, 5, func(s *sim.Settings) *float32 { return &s.FuelLoadRate }),
				floatField("fuel_consumption", "Fuel eaten", "%.2f", 0, 5, func(s *sim.Settings) *float32 { return &s.FuelConsumptionRate }),
				wasteDeposit,
				wasteConversion,
				efficiency,
			},
		},
	}
}

// ColorPresets are the stock trail tints. Alpha keeps the current persistence.
var ColorPresets = []ColorPreset{
	{Name: "Cyan", Color: sim.Color{0.611, 0.848, 0.871}},
	{Name: "Pink", Color: sim.Color{1, 0.559, 0.89}},
	{Name: "Lime", Color: sim.Color{0.814, 0.929, 0.461}},
	{Name: "Ember", Color: sim.Color{0.9, 0.351, 0.248}},
}

// applySlider writes a slider value through fd, clamped to its range and
// rounded for whole-number fields. It reports whether the value changed.
func applySlider(fd FieldDescriptor, s *sim.Settings, v float32) bool {
	v = fd.Range.Clamp(v)
	if fd.Integer {
		v = float32(math.Round(float64(v)))
	}
	if v == fd.Get(s) {
		return false
	}
	fd.Set(s, v)
	return true
}

// applyPreset replaces the tint, keeping persistence.
func applyPreset(s *sim.Settings, p ColorPreset) {
	a := s.Color[3]
	s.Color = p.Color
	s.Color[3] = a
}
