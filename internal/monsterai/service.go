// Package monsterai is the monster service: spawning, per-tick AI updates,
// in-combat decisions, and the Q-learning reward loop that lets every
// monster of a species learn from what happened to its kin.
package monsterai

import (
	"math/rand"
	"sync"

	"github.com/Ko-stant/dungeon-ai-server/internal/decision"
	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/eventbus"
	"github.com/Ko-stant/dungeon-ai-server/internal/pathfind"
	"github.com/Ko-stant/dungeon-ai-server/internal/qlearn"
	"github.com/Ko-stant/dungeon-ai-server/internal/species"
	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
)

// WorldState is everything the caller (the game instance) perceives about a
// monster's surroundings on a given tick, handed to the decision engine and
// to the movement routines that act on its choice.
type WorldState struct {
	HPRatio          float64
	NearbyEnemies    int
	NearbyAllies     int
	RoomCategory     tile.RoomCategory
	DistanceToThreat int
	ThreatDirection  pathfind.Direction
	InCorridor       bool

	HasThreatPosition bool
	ThreatX, ThreatY  int
}

func (w WorldState) toDecisionWorld(intelligence int) decision.WorldState {
	return decision.WorldState{
		HPRatio:          w.HPRatio,
		NearbyEnemies:    w.NearbyEnemies,
		NearbyAllies:     w.NearbyAllies,
		RoomCategory:     int(w.RoomCategory),
		DistanceToThreat: w.DistanceToThreat,
		ThreatDirection:  int(w.ThreatDirection),
		InCorridor:       w.InCorridor,
		Intelligence:     intelligence,
	}
}

// asSnapshotFields renders a world state as the plain-value map carried on
// an AISnapshot, so it can be serialized and later reconstructed to
// recompute a next-state index once a reward arrives.
func (w WorldState) asSnapshotFields() map[string]any {
	return map[string]any{
		"nearby_enemies":     w.NearbyEnemies,
		"nearby_allies":      w.NearbyAllies,
		"room_category":      int(w.RoomCategory),
		"distance_to_threat": w.DistanceToThreat,
		"threat_direction":   int(w.ThreatDirection),
		"in_corridor":        w.InCorridor,
	}
}

func worldStateFromSnapshotFields(fields map[string]any) WorldState {
	var w WorldState
	if v, ok := fields["nearby_enemies"].(int); ok {
		w.NearbyEnemies = v
	}
	if v, ok := fields["nearby_allies"].(int); ok {
		w.NearbyAllies = v
	}
	if v, ok := fields["room_category"].(int); ok {
		w.RoomCategory = tile.RoomCategory(v)
	}
	if v, ok := fields["distance_to_threat"].(int); ok {
		w.DistanceToThreat = v
	}
	if v, ok := fields["threat_direction"].(int); ok {
		w.ThreatDirection = pathfind.Direction(v)
	}
	if v, ok := fields["in_corridor"].(bool); ok {
		w.InCorridor = v
	}
	return w
}

// Snapshot captures a monster's most recent decision as an AISnapshot, for
// callers (the game instance) to attach to a reward event once they know
// the outcome of that decision (damage dealt, damage taken, death).
func (s *Service) Snapshot(m *entity.Monster, world WorldState) eventbus.AISnapshot {
	return eventbus.AISnapshot{
		MonsterType: m.MonsterType,
		StateIndex:  m.Intelligence.LastStateIndex,
		HasState:    m.Intelligence.HasLastState,
		Action:      m.Intelligence.LastAction,
		WorldState:  world.asSnapshotFields(),
		HPRatio:     world.HPRatio,
	}
}

// Service owns every monster species' AI profile (decision engine,
// personality, memory tuning) and the live per-monster threat memories.
type Service struct {
	registry *Registry
	spawnCfg SpawnConfig
	species  *species.Store
	bus      *eventbus.Bus
	maxGen   int

	mu      sync.Mutex
	engines map[string]*decision.Engine
	memory  map[string]*decision.ThreatMemory

	rng *rand.Rand
}

// NewService builds a monster service around registry/spawnCfg, persisting
// learned knowledge through speciesStore and consuming reward events from
// bus. maxGeneration caps how far a species' generation counter climbs (<=0
// uncapped). seed drives spawn-position and monster-type randomness.
func NewService(registry *Registry, spawnCfg SpawnConfig, speciesStore *species.Store, bus *eventbus.Bus, maxGeneration int, seed int64) *Service {
	s := &Service{
		registry: registry,
		spawnCfg: spawnCfg,
		species:  speciesStore,
		bus:      bus,
		maxGen:   maxGeneration,
		engines:  make(map[string]*decision.Engine),
		memory:   make(map[string]*decision.ThreatMemory),
		rng:      rand.New(rand.NewSource(seed)),
	}
	if bus != nil {
		bus.SubscribeAsync(eventbus.DamageDealt, s.handleDamageEvent)
		bus.SubscribeAsync(eventbus.MonsterDied, s.handleMonsterDeath)
	}
	return s
}

func (s *Service) engineFor(monsterType string, seed int64) *decision.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engines[monsterType]
	if !ok {
		e = decision.NewEngine(seed)
		s.engines[monsterType] = e
	}
	return e
}

func (s *Service) memoryFor(monsterID string) *decision.ThreatMemory {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memory[monsterID]
	if !ok {
		m = decision.NewThreatMemory()
		s.memory[monsterID] = m
	}
	return m
}

// ForgetMonster drops a dead/despawned monster's threat memory.
func (s *Service) ForgetMonster(monsterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memory, monsterID)
}

func (s *Service) evaluate(m *entity.Monster, world WorldState, currentTick int) decision.Result {
	cfg, ok := s.registry.Get(m.MonsterType)
	intelligence := 10
	personality := qlearn.DefaultPersonality()
	if ok {
		intelligence = cfg.Intelligence
		personality = cfg.Personality
	}

	engine := s.engineFor(m.MonsterType, int64(len(m.MonsterType))+int64(currentTick))
	memory := s.memoryFor(m.ID)
	memory.Decay(currentTick)

	record := s.species.GetOrCreate(m.MonsterType)
	dw := world.toDecisionWorld(intelligence)

	result := engine.Decide(decision.Context{
		QTable:      record.QTable,
		Personality: personality,
		World:       dw,
		CurrentTick: currentTick,
	})

	m.Intelligence.LastStateIndex = result.StateIndex
	m.Intelligence.HasLastState = true
	m.Intelligence.LastAction = result.Action.String()
	m.Intelligence.LastDecisionTick = currentTick
	m.Intelligence.QTableVersion = species.SchemaVersion
	return result
}

// DecideCombatAction asks the decision engine for a monster's in-combat
// action, with distance_to_threat and in_corridor overridden to reflect
// that combat is always adjacent. Unregistered monster types always attack
// aggressively, matching the reference fallback.
func (s *Service) DecideCombatAction(m *entity.Monster, world WorldState, currentTick int) qlearn.Action {
	if _, ok := s.registry.Get(m.MonsterType); !ok {
		return qlearn.ActionAttackAggressive
	}
	world.DistanceToThreat = 1
	world.InCorridor = false
	result := s.evaluate(m, world, currentTick)
	return result.Action
}

// UpdateMonster runs one AI tick for m outside of combat: it consults the
// decision engine (or, for monster types with no AI profile, falls back to
// the bare behavior-driven movement routines) and dispatches the chosen
// action to a movement routine. Returns whether the monster moved.
func (s *Service) UpdateMonster(m *entity.Monster, env *Environment, currentTick int, world WorldState) bool {
	if _, ok := s.registry.Get(m.MonsterType); !ok {
		switch m.Behavior {
		case entity.BehaviorPatrol:
			return s.updatePatrol(m, env, currentTick)
		default:
			return false
		}
	}

	result := s.evaluate(m, world, currentTick)
	return s.executeAction(result.Action, m, env, currentTick, world)
}

func (s *Service) executeAction(action qlearn.Action, m *entity.Monster, env *Environment, currentTick int, world WorldState) bool {
	switch action {
	case qlearn.ActionMoveTowardThreat:
		return s.moveTowardThreat(m, env, currentTick, world)
	case qlearn.ActionMoveAwayFromThreat:
		return s.moveAwayFromThreat(m, env, currentTick, world)
	case qlearn.ActionPatrolWaypoint:
		return s.patrolWaypoint(m, env, currentTick)
	case qlearn.ActionPatrol, qlearn.ActionAmbush, qlearn.ActionAttackDefensive:
		return s.updatePatrol(m, env, currentTick)
	case qlearn.ActionFlee:
		return s.attemptFlee(m, env, currentTick)
	case qlearn.ActionCallAllies:
		return false
	default:
		return false
	}
}
