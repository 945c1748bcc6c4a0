package sim

import (
	"math"

	"github.com/ojrac/opensimplex-go"
)

// Field is a square grid of trail and fuel values in [0, 1].
// Each plane has a scratch twin so the diffuse pass never reads a cell it
// has already written in the same pass.
type Field struct {
	Size int

	Trail []float32
	Fuel  []float32
	// FuelCap is what Fuel regrows toward; nil until SeedFuel.
	FuelCap []float32

	trailTmp []float32
	fuelTmp  []float32
}

// NewField allocates a zeroed size x size field (size is clamped to >= 1).
func NewField(size int) *Field {
	if size < 1 {
		size = 1
	}
	n := size * size
	return &Field{
		Size:     size,
		Trail:    make([]float32, n),
		Fuel:     make([]float32, n),
		trailTmp: make([]float32, n),
		fuelTmp:  make([]float32, n),
	}
}

// Clear zeroes both planes. Fuel is reset to its capacity if seeded.
func (f *Field) Clear() {
	clear(f.Trail)
	if f.FuelCap != nil {
		copy(f.Fuel, f.FuelCap)
	} else {
		clear(f.Fuel)
	}
}

// Plane returns the plane agents sense and the quad samples.
func (f *Field) Plane(fuel bool) []float32 {
	if fuel {
		return f.Fuel
	}
	return f.Trail
}

// Contains reports whether a position lies in [0, Size) x [0, Size).
func (f *Field) Contains(p Vec2) bool {
	s := float32(f.Size)
	return p.X >= 0 && p.X < s && p.Y >= 0 && p.Y < s
}

// CellIndex returns the index of the cell containing p, clamped to the edge.
func (f *Field) CellIndex(x, y float32) int {
	cx := clampInt(int(x), 0, f.Size-1)
	cy := clampInt(int(y), 0, f.Size-1)
	return cy*f.Size + cx
}

// Sample returns the nearest-cell value of plane at (x, y), clamped to the edge.
func (f *Field) Sample(plane []float32, x, y float32) float32 {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return plane[f.CellIndex(x, y)]
}

// SeedFuel fills FuelCap with fractal OpenSimplex noise and resets Fuel to it.
// scale is in noise cycles across the field.
func (f *Field) SeedFuel(seed int64, scale float64, octaves int) {
	if octaves < 1 {
		octaves = 1
	}
	if scale <= 0 {
		scale = 1
	}
	noise := opensimplex.NewNormalized(seed)

	if f.FuelCap == nil {
		f.FuelCap = make([]float32, len(f.Fuel))
	}

	inv := 1 / float64(f.Size)
	for y := 0; y < f.Size; y++ {
		for x := 0; x < f.Size; x++ {
			u := float64(x) * inv * scale
			v := float64(y) * inv * scale

			var sum, norm float64
			amp, freq := 1.0, 1.0
			for o := 0; o < octaves; o++ {
				sum += amp * noise.Eval2(u*freq, v*freq)
				norm += amp
				amp *= 0.5
				freq *= 2
			}
			// Square to sharpen patches; keeps the value in [0, 1]
			c := math.Pow(sum/norm, 2)
			f.FuelCap[y*f.Size+x] = clamp01(float32(c))
		}
	}
	copy(f.Fuel, f.FuelCap)
}
