// Package main searches simulation settings with CMA-ES for fields that form
// stable, well-contrasted trail networks.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/sim"
)

// evalRecord is one row of tune_log.csv.
type evalRecord struct {
	Eval          int     `csv:"eval"`
	Fitness       float64 `csv:"fitness"`
	Coverage      float64 `csv:"coverage"`
	TrailMean     float64 `csv:"trail_mean"`
	MoveSpeed     float32 `csv:"move_speed"`
	TurnRate      float32 `csv:"turn_rate"`
	SensorOffset  float32 `csv:"sensor_offset"`
	SensorAngle   float32 `csv:"sensor_angle"`
	DiffuseRate   float32 `csv:"diffuse_rate"`
	DecayRate     float32 `csv:"decay_rate"`
	DepositAmount float32 `csv:"deposit_amount"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	size := flag.Int("size", 256, "Field edge in cells")
	agents := flag.Int("agents", 20000, "Agents per run (0 = use config)")
	frames := flag.Int("frames", 600, "Frames per run")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	target := flag.Float64("target-coverage", 0.35, "Desired fraction of covered cells")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if *outputDir == "" {
		fatal("--output is required")
	}
	if *seeds < 1 || *frames < 1 || *size < 1 {
		fatal("--seeds, --frames and --size must be positive")
	}

	// Create output directory
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fatal("failed to create output directory", "error", err)
	}

	// Load base config
	if err := config.Init(*configPath); err != nil {
		fatal("failed to load config", "error", err)
	}
	cfg := config.Cfg()

	base := sim.DefaultSettings(cfg)
	if *agents > 0 {
		base.AgentCount = *agents
	}
	// Fuel changes what the trail means; tune the plain model
	base.FuelLoadRate = 0
	base.FuelConsumptionRate = 0

	params := NewParamVector()

	evalSeeds := make([]uint32, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = uint32(i*1000 + 42)
	}

	run := RunConfig{
		Size:           *size,
		Frames:         *frames,
		StatsInterval:  max(1, *frames/20),
		SampleStride:   cfg.Telemetry.StatsSampleStride,
		TargetCoverage: *target,
	}
	evaluator := NewFitnessEvaluator(params, base, run, evalSeeds)

	dim := params.Dim()
	initX := params.Normalize(params.Clamp(params.Extract(base)))

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return evaluator.Evaluate(params.Denormalize(x))
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Seeds already run in parallel
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		fatal("failed to create log file", "error", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := 1.0
	var bestParams []float64
	startTime := time.Now()

	originalFunc := problem.Func
	problem.Func = func(x []float64) float64 {
		fitness := originalFunc(x)
		evalCount++

		clamped := params.Clamp(params.Denormalize(x))
		if fitness < bestFitness {
			bestFitness = fitness
			bestParams = clamped
		}

		applied := params.Apply(base, clamped)
		_, last := evaluator.LastQuality()
		rec := []evalRecord{{
			Eval:          evalCount,
			Fitness:       fitness,
			Coverage:      last.Coverage,
			TrailMean:     last.TrailMean,
			MoveSpeed:     applied.MoveSpeed,
			TurnRate:      applied.TurnRate,
			SensorOffset:  applied.SensorOffset,
			SensorAngle:   applied.SensorAngleOffset,
			DiffuseRate:   applied.DiffuseRate,
			DecayRate:     applied.DecayRate,
			DepositAmount: applied.DepositAmount,
		}}
		if evalCount == 1 {
			err = gocsv.Marshal(rec, logFile)
		} else {
			err = gocsv.MarshalWithoutHeaders(rec, logFile)
		}
		if err != nil {
			slog.Error("failed to write eval log", "error", err)
		}

		elapsed := time.Since(startTime)
		avgPerEval := elapsed / time.Duration(evalCount)
		remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

		fmt.Printf("Eval %d/%d: quality=%.3f coverage=%.2f (best=%.3f) | elapsed: %s, ETA: %s\n",
			evalCount, *maxEvals, -fitness, last.Coverage, -bestFitness,
			formatDuration(elapsed), formatDuration(remaining))

		return fitness
	}

	fmt.Printf("Starting CMA-ES with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, frames per run: %d, field: %dx%d\n", *seeds, *frames, *size, *size)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}

	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		fatal("no evaluation completed")
	}

	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best quality: %.3f\n", -bestFitness)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.4f\n", spec.Path, bestParams[i])
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		fatal("failed to reload config", "error", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		slog.Error("failed to write best config", "error", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}
