package decision

import (
	"math"

	"github.com/Ko-stant/dungeon-ai-server/internal/aistate"
	"github.com/Ko-stant/dungeon-ai-server/internal/qlearn"
)

// WorldState is the raw world perception fed into a decision: nearby
// combatants, terrain, and the monster's own vitals.
type WorldState struct {
	HPRatio          float64
	NearbyEnemies    int
	NearbyAllies     int
	RoomCategory     int
	DistanceToThreat int
	ThreatDirection  int
	InCorridor       bool
	Intelligence     int
}

// Context bundles everything one decision needs: the species' shared
// Q-table, the monster's personality, and its current world state.
type Context struct {
	QTable      []float32
	Personality qlearn.Personality
	World       WorldState
	CurrentTick int
}

// Result is what a single decision produces: the chosen action, the
// state it was chosen from, and a confidence score derived from how
// strongly the Q-table favors that state.
type Result struct {
	Action     qlearn.Action
	StateIndex int
	Indices    aistate.Indices
	Confidence float64
}

// Engine is the high-level brain each monster consults once per decision
// tick: it encodes world state, selects an action, and later learns from
// the reward that followed.
type Engine struct {
	Agent *qlearn.Agent
}

// NewEngine builds an Engine around a fresh Q-learning agent using the
// reference hyperparameters and seed.
func NewEngine(seed int64) *Engine {
	return &Engine{Agent: qlearn.NewAgent(qlearn.DefaultConfig(), seed)}
}

// Decide encodes ctx.World (applying intelligence gating), selects an
// action, and returns the full decision along with a confidence score.
func (e *Engine) Decide(ctx Context) Result {
	stateIndex, indices := e.encodeState(ctx.World)
	action := e.Agent.SelectAction(ctx.QTable, stateIndex, ctx.Personality)

	values := ctx.QTable[stateIndex*qlearn.ActionCount : stateIndex*qlearn.ActionCount+qlearn.ActionCount]
	qMax := float64(values[0])
	for _, v := range values[1:] {
		if float64(v) > qMax {
			qMax = float64(v)
		}
	}
	confidence := 0.5
	if qMax != 0 {
		confidence = 1.0 / (1.0 + math.Exp(-qMax))
	}

	return Result{Action: action, StateIndex: stateIndex, Indices: indices, Confidence: confidence}
}

// Learn applies a Bellman update for the (state, action, reward, next
// state) transition and decays the agent's exploration rate, returning
// the Q-value before and after the update for history tracking.
func (e *Engine) Learn(qTable []float32, stateIndex int, action qlearn.Action, reward float64, nextStateIndex int) (before, after float32) {
	before = qTable[stateIndex*qlearn.ActionCount+int(action)]
	e.Agent.Update(qTable, stateIndex, action, reward, nextStateIndex)
	e.Agent.DecayExploration()
	after = qTable[stateIndex*qlearn.ActionCount+int(action)]
	return before, after
}

// EncodeState exposes the world-state encoding step on its own, without
// selecting an action, for callers that need to recompute a state index
// from a previously recorded world state (e.g. a reward snapshot's
// next-state lookup).
func (e *Engine) EncodeState(w WorldState) (int, aistate.Indices) {
	return e.encodeState(w)
}

func (e *Engine) encodeState(w WorldState) (int, aistate.Indices) {
	obs := aistate.Observation{
		HPRatio:          clamp01(w.HPRatio),
		EnemyCount:       maxInt(0, w.NearbyEnemies),
		AllyCount:        maxInt(0, w.NearbyAllies),
		RoomCategory:     w.RoomCategory,
		DistanceToThreat: maxInt(0, w.DistanceToThreat),
		ThreatDirection:  w.ThreatDirection,
		InCorridor:       w.InCorridor,
	}
	intelligence := w.Intelligence
	if intelligence == 0 {
		intelligence = 10 // default when unset, matches an "average" monster
	}
	obs = aistate.GateByIntelligence(obs, intelligence)
	return aistate.Encode(obs)
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

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
