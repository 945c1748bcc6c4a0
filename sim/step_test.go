package sim

import (
	"testing"
)

func TestStepAgentsStayInBounds(t *testing.T) {
	pool := NewPool(4)
	defer pool.Stop()

	const size = 128
	f := NewField(size)
	store := NewAgentStore(5000)
	u := testUniforms(size)
	InitAgents(pool, store, size, u)

	// Fast agents hit the walls constantly
	u.MoveSpeed = 400
	u.DeltaTime = 0.1

	for step := 0; step < 200; step++ {
		u.Frame = uint32(step)
		Diffuse(pool, f, u)
		StepAgents(pool, store, f, u, 0)

		for i, a := range store.Agents {
			if !f.Contains(a.Position) {
				t.Fatalf("step %d: agent %d left the field: %+v", step, i, a.Position)
			}
		}
	}

	for i, v := range f.Trail {
		if v < 0 || v > 1 {
			t.Fatalf("trail cell %d out of bounds: %f", i, v)
		}
	}
}

func TestStepAgentsDeposit(t *testing.T) {
	pool := NewPool(1)
	defer pool.Stop()

	f := NewField(32)
	store := NewAgentStore(3)
	for i := range store.Agents {
		store.Agents[i] = Agent{Position: Vec2{X: 16, Y: 16}, Angle: 0}
	}

	u := testUniforms(32)
	u.MoveSpeed = 0
	u.DepositAmount = 0.1
	StepAgents(pool, store, f, u, 0)

	cell := f.CellIndex(16, 16)
	if got := f.Trail[cell]; got < 0.299 || got > 0.301 {
		t.Errorf("expected three additive deposits of 0.1, got %f", got)
	}

	// Saturates instead of growing without bound
	u.DepositAmount = 1
	StepAgents(pool, store, f, u, 1)
	if f.Trail[cell] != 1 {
		t.Errorf("expected deposit to saturate at 1, got %f", f.Trail[cell])
	}
}

// steerFixture is a single stationary agent at the centre of a 64-cell field
// heading along +x. Seed 1 at frame 0 gives lane 0 a steering draw of about
// 0.23, so any turn moves the angle by a visible amount.
func steerFixture() (*Field, *AgentStore, *Uniforms) {
	const size = 64
	u := testUniforms(size)
	u.MoveSpeed = 0
	u.DepositAmount = 0
	u.SensorOffset = 8
	u.BranchCount = 0
	u.TurnRate = 1
	u.Seed = 1
	u.Frame = 0

	store := NewAgentStore(1)
	store.Agents[0] = Agent{Position: Vec2{X: 32, Y: 32}, Angle: 0}
	return NewField(size), store, u
}

// paintRay marks the cell dist ahead of the agent along angle in plane.
func paintRay(f *Field, plane []float32, a Agent, angle, dist float32) {
	x := a.Position.X + cos32(angle)*dist
	y := a.Position.Y + sin32(angle)*dist
	plane[f.CellIndex(x, y)] = 1
}

func TestStepAgentsSteerTowardTrail(t *testing.T) {
	pool := NewPool(1)
	defer pool.Stop()

	const minTurn = 1e-3

	run := func(flip float32) float32 {
		f, store, u := steerFixture()
		u.SensorFlip = flip

		// Paint under the left sensor only, on the plane the agent senses
		a := store.Agents[0]
		paintRay(f, f.Plane(u.SensesFuel()), a, a.Angle+u.SensorAngleOffset, u.SensorOffset)

		StepAgents(pool, store, f, u, 0)
		return store.Agents[0].Angle
	}

	if a := run(1); a <= minTurn {
		t.Errorf("expected attraction to turn left toward the trail, got angle %f", a)
	}
	if a := run(-1); a >= -minTurn {
		t.Errorf("expected flipped sensors to turn right away from the fuel, got angle %f", a)
	}
}

func TestStepAgentsBranchesExtendSensors(t *testing.T) {
	pool := NewPool(1)
	defer pool.Stop()

	run := func(branches int) float32 {
		f, store, u := steerFixture()
		u.BranchCount = branches
		u.BranchScale = 1

		// With 2 branches and scale 1 the last sub-sample sits at twice the
		// sensor offset; nothing is painted at the primary sample.
		a := store.Agents[0]
		paintRay(f, f.Trail, a, a.Angle+u.SensorAngleOffset, 2*u.SensorOffset)

		StepAgents(pool, store, f, u, 0)
		return store.Agents[0].Angle
	}

	if a := run(0); a != 0 {
		t.Errorf("expected no turn without branches, got angle %f", a)
	}
	if a := run(2); a <= 1e-3 {
		t.Errorf("expected the far branch sample to turn the agent left, got angle %f", a)
	}
}

func TestHeadingStaysBelowPi(t *testing.T) {
	if got := heading(0); got != -pi {
		t.Errorf("expected -pi for r=0, got %f", got)
	}
	top := below(1)
	if got := heading(top); got >= float32(pi) {
		t.Errorf("expected heading(%v) < pi, got %v", top, got)
	}
}

func TestStepAgentsConsumeFuel(t *testing.T) {
	pool := NewPool(1)
	defer pool.Stop()

	f := NewField(16)
	for i := range f.Fuel {
		f.Fuel[i] = 0.5
	}
	store := NewAgentStore(1)
	store.Agents[0] = Agent{Position: Vec2{X: 8, Y: 8}}

	u := testUniforms(16)
	u.MoveSpeed = 0
	u.DepositAmount = 0
	u.FuelEnabled = true
	u.FuelConsumptionRate = 1
	u.WasteDepositRate = 1
	u.Efficiency = 1
	u.DeltaTime = 0.1
	StepAgents(pool, store, f, u, 0)

	cell := f.CellIndex(8, 8)
	if got := f.Fuel[cell]; got < 0.399 || got > 0.401 {
		t.Errorf("expected fuel 0.4 after eating 0.1, got %f", got)
	}
	if got := f.Trail[cell]; got < 0.099 || got > 0.101 {
		t.Errorf("expected waste trail 0.1, got %f", got)
	}
}
