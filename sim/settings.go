package sim

import (
	"math"

	"github.com/pthm-cable/slime/config"
)

// SpawnMode selects how the agent-init kernel places agents.
type SpawnMode string

const (
	SpawnRandom SpawnMode = "random" // uniform over the field, random heading
	SpawnCircle SpawnMode = "circle" // centered disc, heading outward
	SpawnInward SpawnMode = "inward" // uniform in a disc, heading toward the center
)

// Color is an RGBA tint. A is the trail persistence used when blending frames.
type Color [4]float32

// Settings are the live-tunable simulation parameters.
// SensorAngleOffset is in degrees; Uniforms holds it in radians.
type Settings struct {
	AgentCount        int
	SimulationSteps   int
	MoveSpeed         float32
	SensorOffset      float32
	SensorAngleOffset float32
	TurnRate          float32
	DiffuseRate       float32
	DecayRate         float32
	SensorFlip        float32
	DepositAmount     float32
	Color             Color

	FuelLoadRate        float32
	FuelConsumptionRate float32
	WasteDepositRate    float32
	WasteConversionRate float32
	Efficiency          float32

	BranchCount int
	BranchScale float32

	SpawnMode   SpawnMode
	SpawnRadius float32
	Seed        uint32
}

// DefaultSettings builds settings from the loaded configuration.
func DefaultSettings(cfg *config.Config) Settings {
	sc := cfg.Simulation
	fc := cfg.Fuel
	s := Settings{
		AgentCount:          sc.AgentCount,
		SimulationSteps:     sc.SimulationSteps,
		MoveSpeed:           float32(sc.MoveSpeed),
		SensorOffset:        float32(sc.SensorOffset),
		SensorAngleOffset:   float32(sc.SensorAngleOffset),
		TurnRate:            float32(sc.TurnRate),
		DiffuseRate:         float32(sc.DiffuseRate),
		DecayRate:           float32(sc.DecayRate),
		SensorFlip:          float32(sc.SensorFlip),
		DepositAmount:       float32(sc.DepositAmount),
		FuelLoadRate:        float32(fc.LoadRate),
		FuelConsumptionRate: float32(fc.ConsumptionRate),
		WasteDepositRate:    float32(fc.WasteDeposit),
		WasteConversionRate: float32(fc.WasteConversion),
		Efficiency:          float32(fc.Efficiency),
		BranchCount:         sc.BranchCount,
		BranchScale:         float32(sc.BranchScale),
		SpawnMode:           SpawnMode(sc.SpawnMode),
		SpawnRadius:         float32(sc.SpawnRadius),
		Seed:                sc.Seed,
	}
	for i, c := range sc.Color {
		s.Color[i] = float32(c)
	}
	s.Sanitize()
	return s
}

// Sanitize clamps malformed values to safe ones instead of failing.
func (s *Settings) Sanitize() {
	if s.AgentCount < 1 {
		s.AgentCount = 1
	}
	if s.SimulationSteps < 1 {
		s.SimulationSteps = 1
	}
	if s.BranchCount < 0 {
		s.BranchCount = 0
	}

	for _, p := range []*float32{
		&s.MoveSpeed, &s.SensorOffset, &s.SensorAngleOffset, &s.TurnRate,
		&s.DiffuseRate, &s.DecayRate, &s.DepositAmount, &s.BranchScale,
		&s.FuelLoadRate, &s.FuelConsumptionRate, &s.WasteDepositRate,
		&s.WasteConversionRate, &s.Efficiency,
	} {
		*p = nonNegative(*p)
	}

	if s.SensorFlip < 0 {
		s.SensorFlip = -1
	} else {
		s.SensorFlip = 1
	}

	for i := range s.Color {
		s.Color[i] = clamp01(finite(s.Color[i]))
	}

	switch s.SpawnMode {
	case SpawnRandom, SpawnCircle, SpawnInward:
	default:
		s.SpawnMode = SpawnRandom
	}
	s.SpawnRadius = clamp01(finite(s.SpawnRadius))
}

// FuelEnabled reports whether the fuel economy extension is active.
func (s Settings) FuelEnabled() bool {
	return s.FuelLoadRate > 0 || s.FuelConsumptionRate > 0
}

func finite(v float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	return v
}

func nonNegative(v float32) float32 {
	v = finite(v)
	if v < 0 {
		return 0
	}
	return v
}
