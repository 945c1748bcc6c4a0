// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Render     RenderConfig     `yaml:"render"`
	Simulation SimulationConfig `yaml:"simulation"`
	Fuel       FuelConfig       `yaml:"fuel"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	UI         UIConfig         `yaml:"ui"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	TargetFPS int    `yaml:"target_fps"`
	Resizable bool   `yaml:"resizable"`
	Title     string `yaml:"title"`
}

// RenderConfig holds frame orchestration parameters.
type RenderConfig struct {
	LogicalHeight     float64 `yaml:"logical_height"`       // Scene height in logical units; width follows aspect
	MaxFramesInFlight int     `yaml:"max_frames_in_flight"` // Uniform ring size and in-flight gate
	SettleDelay       float64 `yaml:"settle_delay"`         // Seconds after the last resize before reallocating
	MaxDeltaTime      float64 `yaml:"max_delta_time"`       // Kernel delta time ceiling (seconds)
	Persistence       bool    `yaml:"persistence"`          // Blend frames into a persistent canvas using color alpha
}

// SimulationConfig holds the default tunables for the agent and field kernels.
// Angles are in degrees here; the renderer converts them before upload.
type SimulationConfig struct {
	AgentCount        int        `yaml:"agent_count"`
	SimulationSteps   int        `yaml:"simulation_steps"`
	MoveSpeed         float64    `yaml:"move_speed"`
	SensorOffset      float64    `yaml:"sensor_offset"`
	SensorAngleOffset float64    `yaml:"sensor_angle_offset"`
	TurnRate          float64    `yaml:"turn_rate"`
	DiffuseRate       float64    `yaml:"diffuse_rate"`
	DecayRate         float64    `yaml:"decay_rate"`
	SensorFlip        float64    `yaml:"sensor_flip"`
	DepositAmount     float64    `yaml:"deposit_amount"`
	Color             [4]float64 `yaml:"color"` // RGBA; A is trail persistence
	BranchCount       int        `yaml:"branch_count"`
	BranchScale       float64    `yaml:"branch_scale"`
	SpawnMode         string     `yaml:"spawn_mode"`   // random, circle, inward
	SpawnRadius       float64    `yaml:"spawn_radius"` // Fraction of half the field size
	Seed              uint32     `yaml:"seed"`
}

// FuelConfig holds the optional fuel economy parameters.
type FuelConfig struct {
	LoadRate        float64 `yaml:"load_rate"`        // Fuel regrowth toward capacity per second
	ConsumptionRate float64 `yaml:"consumption_rate"` // Fuel eaten by an agent per second
	WasteDeposit    float64 `yaml:"waste_deposit"`    // Extra trail per unit of fuel eaten
	WasteConversion float64 `yaml:"waste_conversion"` // Trail converted back to fuel per second
	Efficiency      float64 `yaml:"efficiency"`       // Fraction of eaten fuel that becomes waste
	NoiseScale      float64 `yaml:"noise_scale"`      // Capacity noise frequency (cycles per field)
	NoiseOctaves    int     `yaml:"noise_octaves"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow          int     `yaml:"perf_window"`           // Frames in the rolling perf window
	LogInterval         float64 `yaml:"log_interval"`          // Seconds between perf log lines
	StatsIntervalFrames int     `yaml:"stats_interval_frames"` // Frames between field statistics passes
	StatsSampleStride   int     `yaml:"stats_sample_stride"`   // Cell stride when sampling field statistics
}

// UIConfig holds control panel parameters.
type UIConfig struct {
	PanelWidth  int `yaml:"panel_width"`
	ToggleZone  int `yaml:"toggle_zone"` // Top-left square (pixels) that toggles the panel on click
	SliderWidth int `yaml:"slider_width"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	SettleDelay  time.Duration
	LogInterval  time.Duration
	MaxDeltaTime float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects values the renderer cannot start with.
// Tunables the panel can change are clamped later instead.
func (c *Config) validate() error {
	if c.Render.MaxFramesInFlight < 1 {
		return fmt.Errorf("render.max_frames_in_flight must be >= 1, got %d", c.Render.MaxFramesInFlight)
	}
	if c.Render.LogicalHeight <= 0 {
		return fmt.Errorf("render.logical_height must be > 0, got %g", c.Render.LogicalHeight)
	}
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		return fmt.Errorf("screen size must be positive, got %dx%d", c.Screen.Width, c.Screen.Height)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.SettleDelay = time.Duration(c.Render.SettleDelay * float64(time.Second))
	c.Derived.LogInterval = time.Duration(c.Telemetry.LogInterval * float64(time.Second))
	c.Derived.MaxDeltaTime = float32(c.Render.MaxDeltaTime)
	if c.Telemetry.StatsSampleStride < 1 {
		c.Telemetry.StatsSampleStride = 1
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
