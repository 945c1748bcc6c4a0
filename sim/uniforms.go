package sim

import "math"

// Mat4 is a column-major 4x4 matrix.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Ortho builds an orthographic projection mapping the box to clip space.
func Ortho(left, right, bottom, top, near, far float32) Mat4 {
	m := Identity()
	m[0] = 2 / (right - left)
	m[5] = 2 / (top - bottom)
	m[10] = 1 / (near - far)
	m[12] = (left + right) / (left - right)
	m[13] = (top + bottom) / (bottom - top)
	m[14] = near / (near - far)
	return m
}

// Scale builds a scale matrix.
func Scale(sx, sy, sz float32) Mat4 {
	m := Identity()
	m[0] = sx
	m[5] = sy
	m[10] = sz
	return m
}

// Mul returns m * n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var r Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * n[col*4+k]
			}
			r[col*4+row] = sum
		}
	}
	return r
}

// Apply transforms the point (x, y, 0, 1) and returns clip-space x, y.
func (m Mat4) Apply(x, y float32) (float32, float32) {
	cx := m[0]*x + m[4]*y + m[12]
	cy := m[1]*x + m[5]*y + m[13]
	w := m[3]*x + m[7]*y + m[15]
	if w != 0 && w != 1 {
		cx /= w
		cy /= w
	}
	return cx, cy
}

// Uniforms is the immutable per-frame snapshot read by every kernel and the
// render pass. One lives in each in-flight slot.
type Uniforms struct {
	Projection Mat4
	ScreenSize Vec2
	FieldSize  int
	DeltaTime  float32
	Time       float32
	Frame      uint32

	MoveSpeed         float32
	SensorOffset      float32
	SensorAngleOffset float32 // radians
	TurnRate          float32
	DiffuseRate       float32
	DecayRate         float32
	SensorFlip        float32
	DepositAmount     float32
	Color             Color

	FuelEnabled         bool
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

// Apply copies every kernel-relevant setting into the snapshot.
func (u *Uniforms) Apply(s Settings) {
	u.MoveSpeed = s.MoveSpeed
	u.SensorOffset = s.SensorOffset
	u.SensorAngleOffset = s.SensorAngleOffset * math.Pi / 180
	u.TurnRate = s.TurnRate
	u.DiffuseRate = s.DiffuseRate
	u.DecayRate = s.DecayRate
	u.SensorFlip = s.SensorFlip
	u.DepositAmount = s.DepositAmount
	u.Color = s.Color

	u.FuelEnabled = s.FuelEnabled()
	u.FuelLoadRate = s.FuelLoadRate
	u.FuelConsumptionRate = s.FuelConsumptionRate
	u.WasteDepositRate = s.WasteDepositRate
	u.WasteConversionRate = s.WasteConversionRate
	u.Efficiency = s.Efficiency

	u.BranchCount = s.BranchCount
	u.BranchScale = s.BranchScale

	u.SpawnMode = s.SpawnMode
	u.SpawnRadius = s.SpawnRadius
	u.Seed = s.Seed
}

// SensesFuel reports whether agents sense (and the quad shows) the fuel plane.
func (u *Uniforms) SensesFuel() bool {
	return u.SensorFlip < 0
}
