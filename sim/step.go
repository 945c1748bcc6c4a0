package sim

// Step streams keep steering and bounce randomness independent.
const (
	streamSteer uint32 = iota + 0x57e90000
	streamBounce
)

// StepAgents runs one sense-steer-move-deposit step for every agent.
//
// Phase A (parallel): each agent reads the field, which is read-only for the
// whole phase, and writes its new pose into its own intent slot.
// Phase B (single-threaded): poses are applied and deposits are summed into
// the field. Deposits are additive so their order does not matter, and
// saturate at 1 to keep the field bounded.
//
// step distinguishes repeated steps within one frame for the random source.
func StepAgents(pool *Pool, store *AgentStore, f *Field, u *Uniforms, step int) {
	k := newStepKernel(f, u, step)
	agents := store.Agents
	intents := store.intents

	pool.Dispatch(len(agents), func(_, i0, i1 int) {
		for i := i0; i < i1; i++ {
			intents[i] = k.advance(uint32(i), agents[i])
		}
	})

	deposit := u.DepositAmount
	trail := f.Trail
	for i := range agents {
		in := &intents[i]
		agents[i].Position = in.Position
		agents[i].Angle = in.Angle

		amount := deposit
		if u.FuelEnabled {
			amount += k.consumeFuel(f, int(in.Cell))
		}
		trail[in.Cell] = clamp01(trail[in.Cell] + amount)
	}
}

// stepKernel holds the per-dispatch constants of the agent kernel.
type stepKernel struct {
	field  *Field
	plane  []float32
	size   float32
	maxPos float32

	speed       float32
	turn        float32
	sensorDist  float32
	sensorAngle float32
	flip        float32
	branches    int
	branchScale float32

	seed   uint32
	stream uint32

	consumption float32
	wasteYield  float32
}

func newStepKernel(f *Field, u *Uniforms, step int) *stepKernel {
	size := float32(f.Size)
	return &stepKernel{
		field:       f,
		plane:       f.Plane(u.SensesFuel()),
		size:        size,
		maxPos:      below(size),
		speed:       u.MoveSpeed * u.DeltaTime,
		turn:        u.TurnRate * twoPi * u.DeltaTime,
		sensorDist:  u.SensorOffset,
		sensorAngle: u.SensorAngleOffset,
		flip:        u.SensorFlip,
		branches:    u.BranchCount,
		branchScale: u.BranchScale,
		seed:        u.Seed,
		stream:      Hash(u.Frame)*31 + uint32(step),
		consumption: u.FuelConsumptionRate * u.DeltaTime,
		wasteYield:  u.WasteDepositRate * u.Efficiency,
	}
}

// sense returns the flip-signed weight seen by a sensor pointing along angle.
// The primary sample sits sensorDist ahead; each branch adds a sample further
// along the same ray with a falling weight.
func (k *stepKernel) sense(pos Vec2, angle float32) float32 {
	dx, dy := cos32(angle), sin32(angle)
	d := k.sensorDist
	sum := k.field.Sample(k.plane, pos.X+dx*d, pos.Y+dy*d)

	for b := 1; b <= k.branches; b++ {
		bd := d * (1 + float32(b)*k.branchScale/float32(k.branches))
		sum += k.field.Sample(k.plane, pos.X+dx*bd, pos.Y+dy*bd) / float32(b+1)
	}
	return sum * k.flip
}

// advance computes the next pose of one agent.
func (k *stepKernel) advance(lane uint32, a Agent) intent {
	r := laneRandom(k.seed, k.stream^streamSteer, lane)

	wF := k.sense(a.Position, a.Angle)
	wL := k.sense(a.Position, a.Angle+k.sensorAngle)
	wR := k.sense(a.Position, a.Angle-k.sensorAngle)

	angle := a.Angle
	switch {
	case wF > wL && wF > wR:
		// keep heading
	case wF < wL && wF < wR:
		angle += (r - 0.5) * 2 * k.turn
	case wR > wL:
		angle -= r * k.turn
	case wL > wR:
		angle += r * k.turn
	}

	pos := Vec2{
		X: a.Position.X + cos32(angle)*k.speed,
		Y: a.Position.Y + sin32(angle)*k.speed,
	}

	// Boundary: clamp back inside the field and pick a fresh heading.
	if !k.field.Contains(pos) {
		pos.X = min(max(pos.X, 0), k.maxPos)
		pos.Y = min(max(pos.Y, 0), k.maxPos)
		angle = heading(laneRandom(k.seed, k.stream^streamBounce, lane))
	}

	return intent{
		Position: pos,
		Angle:    angle,
		Cell:     int32(k.field.CellIndex(pos.X, pos.Y)),
	}
}

// consumeFuel eats fuel at cell and returns the extra trail it turns into.
func (k *stepKernel) consumeFuel(f *Field, cell int) float32 {
	eaten := min(f.Fuel[cell], k.consumption)
	f.Fuel[cell] -= eaten
	return eaten * k.wasteYield
}
