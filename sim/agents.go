package sim

// Agent is one simulated particle. Its index in the store is its identity.
type Agent struct {
	Position Vec2
	Angle    float32 // radians, not wrapped
}

// intent captures a computed pose to apply after the parallel phase.
type intent struct {
	Position Vec2
	Angle    float32
	Cell     int32
}

// AgentStore is the flat agent array plus per-agent scratch for the step
// kernel. A store never changes length; a new count means a new store.
type AgentStore struct {
	Agents  []Agent
	intents []intent
}

// NewAgentStore allocates n zeroed agents (n is clamped to >= 1).
func NewAgentStore(n int) *AgentStore {
	if n < 1 {
		n = 1
	}
	return &AgentStore{
		Agents:  make([]Agent, n),
		intents: make([]intent, n),
	}
}

// Len returns the agent count.
func (s *AgentStore) Len() int {
	return len(s.Agents)
}

// Spawn streams keep init randomness independent of step randomness.
const (
	streamSpawnX uint32 = iota + 0x51a7e000
	streamSpawnY
	streamSpawnAngle
)

// InitAgents places every agent according to u.SpawnMode within a field of
// the given size. Random mode gives positions uniform over [0, size)^2 and
// headings uniform over [-pi, pi).
func InitAgents(pool *Pool, store *AgentStore, size int, u *Uniforms) {
	s := float32(size)
	maxPos := below(s)
	center := Vec2{X: s / 2, Y: s / 2}
	radius := u.SpawnRadius * s / 2
	seed := u.Seed ^ u.Frame*0x9E3779B9

	agents := store.Agents
	pool.Dispatch(len(agents), func(_, i0, i1 int) {
		for i := i0; i < i1; i++ {
			lane := uint32(i)
			rx := laneRandom(seed, streamSpawnX, lane)
			ry := laneRandom(seed, streamSpawnY, lane)
			angle := heading(laneRandom(seed, streamSpawnAngle, lane))

			a := &agents[i]
			switch u.SpawnMode {
			case SpawnCircle:
				// radius and direction share the heading so agents burst outward
				r := rx * radius
				a.Position = Vec2{X: center.X + cos32(angle)*r, Y: center.Y + sin32(angle)*r}
				a.Angle = angle
			case SpawnInward:
				// sqrt keeps the disc density uniform
				r := float32(sqrt64(float64(rx))) * radius
				a.Position = Vec2{X: center.X + cos32(angle)*r, Y: center.Y + sin32(angle)*r}
				a.Angle = atan2(center.Y-a.Position.Y, center.X-a.Position.X)
				if r == 0 {
					a.Angle = heading(ry)
				}
			default:
				a.Position = Vec2{X: rx * s, Y: ry * s}
				a.Angle = angle
			}

			a.Position.X = min(max(a.Position.X, 0), maxPos)
			a.Position.Y = min(max(a.Position.Y, 0), maxPos)
		}
	})
}
