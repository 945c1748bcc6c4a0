package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/slime/device"
	"github.com/pthm-cable/slime/renderer"
	"github.com/pthm-cable/slime/sim"
	"github.com/pthm-cable/slime/telemetry"
)

// Quality component weights.
const (
	qualityWeightCoverage  = 0.40
	qualityWeightContrast  = 0.40
	qualityWeightStability = 0.20

	coverageWidth = 0.15 // gaussian width around the target coverage
	warmupShare   = 0.25 // leading share of stats windows ignored
)

// RunConfig fixes everything about a headless run except the tuned values.
type RunConfig struct {
	Size           int     // square scene edge in pixels and logical units
	Frames         int     // frames per run
	StatsInterval  int     // frames between field stats samples
	SampleStride   int     // cell stride for field stats
	TargetCoverage float64 // fraction of cells with a visible trail
}

// FitnessEvaluator runs headless renders and scores the field they settle into.
type FitnessEvaluator struct {
	params *ParamVector
	base   sim.Settings
	run    RunConfig
	seeds  []uint32
	log    *slog.Logger

	mu          sync.Mutex
	lastQuality float64
	lastStats   telemetry.FieldStats
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, base sim.Settings, run RunConfig, seeds []uint32) *FitnessEvaluator {
	return &FitnessEvaluator{
		params: params,
		base:   base,
		run:    run,
		seeds:  seeds,
		log:    slog.Default(),
	}
}

// LastQuality returns the mean quality and the final stats of the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() (float64, telemetry.FieldStats) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality, fe.lastStats
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	settings := fe.params.Apply(fe.base, x)

	workers := max(1, runtime.GOMAXPROCS(0)/len(fe.seeds))
	qualities := make([]float64, len(fe.seeds))
	finals := make([]telemetry.FieldStats, len(fe.seeds))

	var g errgroup.Group
	for i, seed := range fe.seeds {
		i, seed := i, seed
		g.Go(func() error {
			s := settings
			s.Seed = seed
			windows, err := fe.runSimulation(s, workers)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			qualities[i] = fe.computeQuality(windows)
			if n := len(windows); n > 0 {
				finals[i] = windows[n-1]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fe.log.Error("evaluation failed", "error", err)
		return 0
	}

	quality := stat.Mean(qualities, nil)

	fe.mu.Lock()
	fe.lastQuality = quality
	fe.lastStats = finals[0]
	fe.mu.Unlock()

	return -quality
}

// stepClock advances a fixed frame period per tick so runs are reproducible.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) tick(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// runSimulation renders a fixed number of frames and returns the field
// stats collected along the way.
func (fe *FitnessEvaluator) runSimulation(settings sim.Settings, workers int) ([]telemetry.FieldStats, error) {
	const inFlight = 2

	queue, err := device.NewQueue(inFlight, nil)
	if err != nil {
		return nil, err
	}
	defer queue.Close()

	chain := device.NewSwapChain(fe.run.Size, fe.run.Size, inFlight+1)
	clock := &stepClock{t: time.Unix(0, 0)}

	r, err := renderer.New(queue, chain, settings, renderer.Options{
		MaxFramesInFlight:   inFlight,
		LogicalHeight:       float32(fe.run.Size),
		MaxDeltaTime:        0.1,
		StatsIntervalFrames: fe.run.StatsInterval,
		StatsSampleStride:   fe.run.SampleStride,
		Workers:             workers,
		Now:                 clock.Now,
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		windows []telemetry.FieldStats
	)
	r.OnFieldStats(func(fs telemetry.FieldStats) {
		mu.Lock()
		windows = append(windows, fs)
		mu.Unlock()
	})
	r.OnResize(fe.run.Size, fe.run.Size)

	ctx := context.Background()
	for i := 0; i < fe.run.Frames; i++ {
		clock.tick(time.Second / 60)
		r.Draw(ctx)
	}
	r.Close()

	mu.Lock()
	defer mu.Unlock()
	return windows, nil
}

// computeQuality scores a run in [0, 1]: trails should cover about the
// target share of the field, stand out from the background, and not drift.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.FieldStats) float64 {
	skip := int(float64(len(windows)) * warmupShare)
	valid := windows[skip:]
	if len(valid) == 0 {
		return 0
	}

	coverage := make([]float64, len(valid))
	var coverageSum, contrastSum float64
	for i, w := range valid {
		coverage[i] = w.Coverage

		d := (w.Coverage - fe.run.TargetCoverage) / coverageWidth
		coverageSum += math.Exp(-d * d)

		if w.TrailMean > 0 {
			contrastSum += 1 - math.Exp(-w.TrailStd/w.TrailMean)
		}
	}
	n := float64(len(valid))

	stability := 0.0
	if len(coverage) >= 2 {
		mean, std := stat.MeanStdDev(coverage, nil)
		if mean > 0 {
			cv := std / mean
			stability = math.Exp(-cv * cv)
		}
	}

	quality := qualityWeightCoverage*coverageSum/n +
		qualityWeightContrast*contrastSum/n +
		qualityWeightStability*stability
	return min(max(quality, 0), 1)
}
