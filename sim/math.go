package sim

import "math"

const (
	pi    = math.Pi
	twoPi = 2 * math.Pi
)

// Vec2 is a 2D vector in field cell units.
type Vec2 struct {
	X, Y float32
}

// clamp01 clamps a float32 value to the [0, 1] range.
func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampInt clamps an int value between lo and hi.
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// below returns the largest float32 strictly less than v (v > 0).
func below(v float32) float32 {
	return math.Nextafter32(v, 0)
}

func sin32(a float32) float32 { return float32(math.Sin(float64(a))) }
func cos32(a float32) float32 { return float32(math.Cos(float64(a))) }

// Hash scrambles a 32-bit state. Kernels use it as a stateless per-lane
// random source so results do not depend on how lanes are chunked.
func Hash(state uint32) uint32 {
	state ^= 2747636419
	state *= 2654435769
	state ^= state >> 16
	state *= 2654435769
	state ^= state >> 16
	state *= 2654435769
	return state
}

// unit maps a hash to [0, 1).
func unit(h uint32) float32 {
	return float32(h&0x00FFFFFF) / float32(0x01000000)
}

// laneRandom returns a value in [0, 1) for one lane of one dispatch.
func laneRandom(seed, stream, lane uint32) float32 {
	return unit(Hash(lane ^ Hash(stream^Hash(seed))))
}

// heading maps r in [0, 1) to an angle in [-pi, pi). float32 rounding can
// push the top of the range onto pi, so it is clamped below.
func heading(r float32) float32 {
	return min(r*twoPi-pi, below(pi))
}

func atan2(y, x float32) float32 { return float32(math.Atan2(float64(y), float64(x))) }

func sqrt64(v float64) float64 { return math.Sqrt(v) }
