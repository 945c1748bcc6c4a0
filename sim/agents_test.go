package sim

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestInitAgentsUniformDistribution(t *testing.T) {
	pool := NewPool(4)
	defer pool.Stop()

	const (
		k    = 50000
		size = 512
	)
	store := NewAgentStore(k)
	u := testUniforms(size)
	u.SpawnMode = SpawnRandom
	InitAgents(pool, store, size, u)

	if store.Len() != k {
		t.Fatalf("expected %d agents, got %d", k, store.Len())
	}

	xs := make([]float64, k)
	ys := make([]float64, k)
	angles := make([]float64, k)
	for i, a := range store.Agents {
		if a.Position.X < 0 || a.Position.X >= size || a.Position.Y < 0 || a.Position.Y >= size {
			t.Fatalf("agent %d spawned out of bounds: %+v", i, a.Position)
		}
		if a.Angle < -math.Pi || a.Angle >= math.Pi {
			t.Fatalf("agent %d heading out of [-pi, pi): %f", i, a.Angle)
		}
		xs[i] = float64(a.Position.X)
		ys[i] = float64(a.Position.Y)
		angles[i] = float64(a.Angle)
	}

	// Uniform on [0, L): mean L/2, variance L^2/12
	wantMean := size / 2.0
	wantVar := size * size / 12.0
	for name, v := range map[string][]float64{"x": xs, "y": ys} {
		mean, variance := stat.MeanVariance(v, nil)
		if math.Abs(mean-wantMean) > 0.02*size {
			t.Errorf("%s mean: want ~%.1f, got %.1f", name, wantMean, mean)
		}
		if math.Abs(variance-wantVar) > 0.05*wantVar {
			t.Errorf("%s variance: want ~%.1f, got %.1f", name, wantVar, variance)
		}
	}

	// Uniform on [-pi, pi): mean 0, variance pi^2/3
	mean, variance := stat.MeanVariance(angles, nil)
	if math.Abs(mean) > 0.05 {
		t.Errorf("heading mean: want ~0, got %.3f", mean)
	}
	if wantVar := math.Pi * math.Pi / 3; math.Abs(variance-wantVar) > 0.05*wantVar {
		t.Errorf("heading variance: want ~%.3f, got %.3f", wantVar, variance)
	}
}

func TestInitAgentsRerandomizesEachFrame(t *testing.T) {
	pool := NewPool(2)
	defer pool.Stop()

	store := NewAgentStore(100)
	u := testUniforms(256)
	u.Frame = 1
	InitAgents(pool, store, 256, u)
	first := append([]Agent(nil), store.Agents...)

	u.Frame = 2
	InitAgents(pool, store, 256, u)

	same := 0
	for i := range first {
		if first[i] == store.Agents[i] {
			same++
		}
	}
	if same == len(first) {
		t.Error("expected a new frame to produce a different spawn")
	}
}

func TestInitAgentsSpawnModes(t *testing.T) {
	pool := NewPool(2)
	defer pool.Stop()

	const size = 400
	center := Vec2{X: size / 2, Y: size / 2}

	t.Run("circle", func(t *testing.T) {
		store := NewAgentStore(2000)
		u := testUniforms(size)
		u.SpawnMode = SpawnCircle
		u.SpawnRadius = 0.5
		InitAgents(pool, store, size, u)

		maxR := float64(u.SpawnRadius*size/2) + 1e-3
		for i, a := range store.Agents {
			dx := float64(a.Position.X - center.X)
			dy := float64(a.Position.Y - center.Y)
			if math.Hypot(dx, dy) > maxR {
				t.Fatalf("agent %d outside spawn disc: %+v", i, a.Position)
			}
		}
	})

	t.Run("inward", func(t *testing.T) {
		store := NewAgentStore(2000)
		u := testUniforms(size)
		u.SpawnMode = SpawnInward
		u.SpawnRadius = 1
		InitAgents(pool, store, size, u)

		for i, a := range store.Agents {
			toCenterX := float64(center.X - a.Position.X)
			toCenterY := float64(center.Y - a.Position.Y)
			if math.Hypot(toCenterX, toCenterY) < 1 {
				continue
			}
			// Heading should point toward the center
			dot := toCenterX*math.Cos(float64(a.Angle)) + toCenterY*math.Sin(float64(a.Angle))
			if dot <= 0 {
				t.Fatalf("agent %d heads away from center: pos=%+v angle=%f", i, a.Position, a.Angle)
			}
		}
	})
}

func TestNewAgentStoreClampsCount(t *testing.T) {
	if n := NewAgentStore(0).Len(); n != 1 {
		t.Errorf("expected zero count clamped to 1, got %d", n)
	}
}
