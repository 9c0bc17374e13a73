package decision

import (
	"testing"

	"github.com/Ko-stant/dungeon-ai-server/internal/qlearn"
)

func TestDecideReturnsValidStateIndex(t *testing.T) {
	e := NewEngine(1)
	table := qlearn.NewTable()
	result := e.Decide(Context{
		QTable:      table,
		Personality: qlearn.DefaultPersonality(),
		World:       WorldState{HPRatio: 0.8, NearbyEnemies: 1, Intelligence: 10},
	})
	if result.StateIndex < 0 {
		t.Errorf("state index should be non-negative, got %d", result.StateIndex)
	}
}

func TestDecideConfidenceDefaultsToHalfWhenUntrained(t *testing.T) {
	e := NewEngine(1)
	table := qlearn.NewTable() // all zero Q-values
	result := e.Decide(Context{QTable: table, Personality: qlearn.DefaultPersonality(), World: WorldState{Intelligence: 10}})
	if result.Confidence != 0.5 {
		t.Errorf("confidence on an untrained table should be 0.5, got %v", result.Confidence)
	}
}

func TestLowIntelligenceMonsterIgnoresThreats(t *testing.T) {
	e := NewEngine(1)
	world := WorldState{HPRatio: 1.0, NearbyEnemies: 5, DistanceToThreat: 1, ThreatDirection: 2, Intelligence: 2}
	stateIndex, indices := e.encodeState(world)

	smartWorld := world
	smartWorld.Intelligence = 12
	smartIndex, smartIndices := e.encodeState(smartWorld)

	if stateIndex == smartIndex {
		t.Error("a dumb and a smart monster facing the same threat should encode to different states")
	}
	if indices.Enemy != 0 {
		t.Errorf("oblivious monster should perceive zero enemies, got %d", indices.Enemy)
	}
	if smartIndices.Enemy == 0 {
		t.Error("smart monster should perceive the actual enemy count")
	}
}

func TestLearnReturnsBeforeAndAfterQValues(t *testing.T) {
	e := NewEngine(1)
	table := qlearn.NewTable()
	before, after := e.Learn(table, 0, qlearn.ActionAttackAggressive, 10.0, 1)
	if before != 0 {
		t.Errorf("before value on a fresh table should be 0, got %v", before)
	}
	if after <= before {
		t.Errorf("positive reward should increase the Q-value: before=%v after=%v", before, after)
	}
}

func TestLearnDecaysExplorationRate(t *testing.T) {
	e := NewEngine(1)
	table := qlearn.NewTable()
	initial := e.Agent.ExplorationRate
	e.Learn(table, 0, qlearn.ActionPatrol, 1.0, 0)
	if e.Agent.ExplorationRate >= initial {
		t.Error("Learn should decay the exploration rate")
	}
}
