package main

import (
	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/sim"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name string  // Human-readable name
	Path string  // Config path for logging
	Min  float64 // Lower bound
	Max  float64 // Upper bound

	get func(*sim.Settings) *float32
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters.
// Bounds match the control panel sliders, narrowed where the extremes only
// produce an empty or saturated field.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "move_speed", Path: "simulation.move_speed", Min: 5, Max: 120,
				get: func(s *sim.Settings) *float32 { return &s.MoveSpeed }},
			{Name: "turn_rate", Path: "simulation.turn_rate", Min: 0.05, Max: 3,
				get: func(s *sim.Settings) *float32 { return &s.TurnRate }},
			{Name: "sensor_offset", Path: "simulation.sensor_offset", Min: 2, Max: 64,
				get: func(s *sim.Settings) *float32 { return &s.SensorOffset }},
			{Name: "sensor_angle", Path: "simulation.sensor_angle_offset", Min: 5, Max: 90,
				get: func(s *sim.Settings) *float32 { return &s.SensorAngleOffset }},
			{Name: "diffuse_rate", Path: "simulation.diffuse_rate", Min: 0, Max: 20,
				get: func(s *sim.Settings) *float32 { return &s.DiffuseRate }},
			{Name: "decay_rate", Path: "simulation.decay_rate", Min: 0.05, Max: 3,
				get: func(s *sim.Settings) *float32 { return &s.DecayRate }},
			{Name: "deposit_amount", Path: "simulation.deposit_amount", Min: 0.005, Max: 0.5,
				get: func(s *sim.Settings) *float32 { return &s.DepositAmount }},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Extract reads the current parameter values from settings.
func (pv *ParamVector) Extract(s sim.Settings) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = float64(*spec.get(&s))
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Apply returns a copy of base with the clamped values written in.
func (pv *ParamVector) Apply(base sim.Settings, values []float64) sim.Settings {
	clamped := pv.Clamp(values)
	s := base
	for i, spec := range pv.Specs {
		*spec.get(&s) = float32(clamped[i])
	}
	s.Sanitize()
	return s
}

// ApplyToConfig writes the clamped values into the simulation section of cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	sc := &cfg.Simulation
	fields := map[string]*float64{
		"move_speed":     &sc.MoveSpeed,
		"turn_rate":      &sc.TurnRate,
		"sensor_offset":  &sc.SensorOffset,
		"sensor_angle":   &sc.SensorAngleOffset,
		"diffuse_rate":   &sc.DiffuseRate,
		"decay_rate":     &sc.DecayRate,
		"deposit_amount": &sc.DepositAmount,
	}
	for i, spec := range pv.Specs {
		if p, ok := fields[spec.Name]; ok {
			*p = clamped[i]
		}
	}
}
