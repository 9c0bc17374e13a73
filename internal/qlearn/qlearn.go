// Package qlearn implements tabular Q-learning over the aistate state
// space: epsilon-greedy action selection biased by monster personality,
// and the Bellman update used to learn from combat outcomes.
package qlearn

import (
	"math"
	"math/rand"

	"github.com/Ko-stant/dungeon-ai-server/internal/aistate"
)

// Action is one of the 10 discrete choices available to a monster each
// decision tick.
type Action int

const (
	ActionAttackAggressive Action = iota
	ActionAttackDefensive
	ActionDefend
	ActionFlee
	ActionCallAllies
	ActionAmbush
	ActionPatrol
	ActionMoveTowardThreat
	ActionMoveAwayFromThreat
	ActionPatrolWaypoint

	// ActionCount is the number of distinct actions; Q-tables are sized
	// aistate.StateSpace * ActionCount.
	ActionCount = 10
)

func (a Action) String() string {
	switch a {
	case ActionAttackAggressive:
		return "ATTACK_AGGRESSIVE"
	case ActionAttackDefensive:
		return "ATTACK_DEFENSIVE"
	case ActionDefend:
		return "DEFEND"
	case ActionFlee:
		return "FLEE"
	case ActionCallAllies:
		return "CALL_ALLIES"
	case ActionAmbush:
		return "AMBUSH"
	case ActionPatrol:
		return "PATROL"
	case ActionMoveTowardThreat:
		return "MOVE_TOWARD_THREAT"
	case ActionMoveAwayFromThreat:
		return "MOVE_AWAY_FROM_THREAT"
	case ActionPatrolWaypoint:
		return "PATROL_WAYPOINT"
	default:
		return "UNKNOWN"
	}
}

// IsCombatAction reports whether an action is valid during active combat.
func (a Action) IsCombatAction() bool {
	switch a {
	case ActionAttackAggressive, ActionAttackDefensive, ActionDefend, ActionFlee:
		return true
	default:
		return false
	}
}

// Personality biases action selection before the Q-table has learned
// anything, and continues to weight learned values afterward. Values are
// normalized to [0, 1].
type Personality struct {
	Aggression    float64
	Caution       float64
	Cunning       float64
	PackMentality float64
	Exploration   float64
}

// DefaultPersonality is a neutral profile with every trait at 0.5.
func DefaultPersonality() Personality {
	return Personality{Aggression: 0.5, Caution: 0.5, Cunning: 0.5, PackMentality: 0.5, Exploration: 0.5}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp restricts every trait to [0, 1].
func (p Personality) Clamp() Personality {
	return Personality{
		Aggression:    clamp01(p.Aggression),
		Caution:       clamp01(p.Caution),
		Cunning:       clamp01(p.Cunning),
		PackMentality: clamp01(p.PackMentality),
		Exploration:   clamp01(p.Exploration),
	}
}

// ActionBias returns the multiplier used to weight a Q-value for the given
// action. Biases center on 1.0, typically modified by +-0.2 to +-0.4
// depending on the relevant personality trait.
func (p Personality) ActionBias(a Action) float64 {
	base := 1.0
	switch a {
	case ActionAttackAggressive:
		base = 1.15 + (p.Aggression-0.5)*0.3
	case ActionAttackDefensive:
		base = 1.10 + (p.Cunning-0.5)*0.25
	case ActionDefend:
		base = 0.9 + (p.Caution-0.5)*0.4
	case ActionFlee:
		base = 0.7 + (p.Caution-0.5)*0.5
	case ActionCallAllies:
		base = 0.8 + (p.PackMentality-0.5)*0.4
	case ActionAmbush:
		base = 1.0 + (p.Cunning-0.5)*0.4 + (p.Aggression-0.5)*0.15
	case ActionPatrol:
		base = 0.85 + (p.Exploration-0.5)*0.3
	case ActionMoveTowardThreat:
		base = 1.05 + (p.Aggression-0.5)*0.35
	case ActionMoveAwayFromThreat:
		base = 0.8 + (p.Caution-0.5)*0.4
	case ActionPatrolWaypoint:
		base = 0.85 + (p.Exploration-0.5)*0.35
	}
	if base < 0.1 {
		return 0.1
	}
	return base
}

// Config holds the Q-learning hyperparameters.
type Config struct {
	LearningRate       float64 // alpha
	DiscountFactor     float64 // gamma
	ExplorationRate    float64 // epsilon
	MinExplorationRate float64
	ExplorationDecay   float64
}

// DefaultConfig matches the reference hyperparameters: moderate learning
// rate, strong future-reward weighting, and a slow decay from 30% down to
// a 5% exploration floor.
func DefaultConfig() Config {
	return Config{
		LearningRate:       0.1,
		DiscountFactor:     0.95,
		ExplorationRate:    0.3,
		MinExplorationRate: 0.05,
		ExplorationDecay:   0.995,
	}
}

// Clamp restricts every hyperparameter to a sane range.
func (c Config) Clamp() Config {
	lr := math.Max(1e-4, math.Min(1.0, c.LearningRate))
	df := math.Max(0.0, math.Min(0.999, c.DiscountFactor))
	er := math.Max(0.0, math.Min(1.0, c.ExplorationRate))
	minEr := math.Max(0.0, math.Min(er, c.MinExplorationRate))
	decay := math.Max(0.9, math.Min(0.9999, c.ExplorationDecay))
	return Config{LearningRate: lr, DiscountFactor: df, ExplorationRate: er, MinExplorationRate: minEr, ExplorationDecay: decay}
}

// Agent applies the epsilon-greedy policy and Bellman updates against a
// species' shared Q-table. The agent itself is stateless except for the
// live exploration rate; the table belongs to the species store.
type Agent struct {
	Config          Config
	ExplorationRate float64
	Rand            *rand.Rand
}

// NewAgent builds an Agent with clamped hyperparameters and its own PRNG.
func NewAgent(cfg Config, seed int64) *Agent {
	cfg = cfg.Clamp()
	return &Agent{Config: cfg, ExplorationRate: cfg.ExplorationRate, Rand: rand.New(rand.NewSource(seed))}
}

// NewTable allocates a zeroed Q-table: StateSpace rows of ActionCount
// float32 values, flattened into a single slice so it can be persisted and
// migrated as one contiguous buffer.
func NewTable() []float32 {
	return make([]float32, aistate.StateSpace*ActionCount)
}

func row(table []float32, stateIndex int) []float32 {
	start := stateIndex * ActionCount
	return table[start : start+ActionCount]
}

// SelectAction chooses an action for stateIndex using epsilon-greedy
// selection. With probability ExplorationRate it picks uniformly at
// random; otherwise it picks the action maximizing Q-value weighted by
// personality bias. When the Q-values for this state are still close to
// zero (untrained), personality bias alone drives the choice.
func (a *Agent) SelectAction(table []float32, stateIndex int, personality Personality) Action {
	if a.Rand.Float64() < a.ExplorationRate {
		return Action(a.Rand.Intn(ActionCount))
	}

	values := row(table, stateIndex)
	maxAbs := float32(0)
	for _, v := range values {
		if abs32(v) > maxAbs {
			maxAbs = abs32(v)
		}
	}

	best := Action(0)
	bestWeighted := math.Inf(-1)
	for i := 0; i < ActionCount; i++ {
		act := Action(i)
		var weighted float64
		if maxAbs < 0.1 {
			weighted = personality.ActionBias(act)
		} else {
			weighted = float64(values[i]) * personality.ActionBias(act)
		}
		if weighted > bestWeighted {
			bestWeighted = weighted
			best = act
		}
	}
	return best
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Update applies the Bellman equation to a single (state, action, reward,
// next state) transition and returns the delta applied, for monitoring.
func (a *Agent) Update(table []float32, stateIndex int, action Action, reward float64, nextStateIndex int) float64 {
	current := row(table, stateIndex)
	old := float64(current[action])

	next := row(table, nextStateIndex)
	nextMax := float64(next[0])
	for _, v := range next[1:] {
		if float64(v) > nextMax {
			nextMax = float64(v)
		}
	}

	target := reward + a.Config.DiscountFactor*nextMax
	delta := a.Config.LearningRate * (target - old)
	current[action] = float32(old + delta)
	return delta
}

// DecayExploration reduces ExplorationRate toward MinExplorationRate,
// called once per completed learning step.
func (a *Agent) DecayExploration() {
	a.ExplorationRate = math.Max(a.Config.MinExplorationRate, a.ExplorationRate*a.Config.ExplorationDecay)
}
