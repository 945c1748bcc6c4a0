package telemetry

import (
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/slime/sim"
)

// coverageThreshold is the trail value above which a cell counts as covered.
const coverageThreshold = 0.05

// FieldStats summarizes the field at one frame.
type FieldStats struct {
	Frame     uint32  `csv:"frame"`
	Size      int     `csv:"size"`
	Agents    int     `csv:"agents"`
	TrailMean float64 `csv:"trail_mean"`
	TrailStd  float64 `csv:"trail_std"`
	TrailMax  float64 `csv:"trail_max"`
	Coverage  float64 `csv:"coverage"` // fraction of sampled cells above coverageThreshold
	FuelMean  float64 `csv:"fuel_mean"`
}

// ComputeFieldStats samples every stride-th cell of f.
// It must run while no pass is writing the field.
func ComputeFieldStats(f *sim.Field, stride int) FieldStats {
	if stride < 1 {
		stride = 1
	}
	n := (len(f.Trail) + stride - 1) / stride
	trail := make([]float64, 0, n)
	fuel := make([]float64, 0, n)

	covered := 0
	for i := 0; i < len(f.Trail); i += stride {
		v := float64(f.Trail[i])
		trail = append(trail, v)
		fuel = append(fuel, float64(f.Fuel[i]))
		if v > coverageThreshold {
			covered++
		}
	}

	fs := FieldStats{Size: f.Size}
	if len(trail) == 0 {
		return fs
	}
	fs.TrailMean, fs.TrailStd = stat.MeanStdDev(trail, nil)
	if len(trail) < 2 {
		fs.TrailStd = 0
	}
	fs.TrailMax = floats.Max(trail)
	fs.Coverage = float64(covered) / float64(len(trail))
	fs.FuelMean = stat.Mean(fuel, nil)
	return fs
}

// LogValue implements slog.LogValuer for structured logging.
func (s FieldStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frame", int(s.Frame)),
		slog.Int("size", s.Size),
		slog.Int("agents", s.Agents),
		slog.Float64("trail_mean", s.TrailMean),
		slog.Float64("trail_std", s.TrailStd),
		slog.Float64("trail_max", s.TrailMax),
		slog.Float64("coverage", s.Coverage),
		slog.Float64("fuel_mean", s.FuelMean),
	)
}
