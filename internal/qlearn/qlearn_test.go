package qlearn

import (
	"testing"

	"github.com/Ko-stant/dungeon-ai-server/internal/aistate"
)

func TestNewTableSize(t *testing.T) {
	table := NewTable()
	if len(table) != aistate.StateSpace*ActionCount {
		t.Fatalf("table size = %d, want %d", len(table), aistate.StateSpace*ActionCount)
	}
}

func TestConfigClampBounds(t *testing.T) {
	cfg := Config{
		LearningRate: 5, DiscountFactor: 5, ExplorationRate: 5,
		MinExplorationRate: 5, ExplorationDecay: 5,
	}.Clamp()
	if cfg.LearningRate != 1.0 {
		t.Errorf("learning rate should clamp to 1.0, got %v", cfg.LearningRate)
	}
	if cfg.DiscountFactor != 0.999 {
		t.Errorf("discount factor should clamp to 0.999, got %v", cfg.DiscountFactor)
	}
	if cfg.MinExplorationRate != cfg.ExplorationRate {
		t.Errorf("min exploration rate should clamp to exploration rate, got %v vs %v", cfg.MinExplorationRate, cfg.ExplorationRate)
	}
	if cfg.ExplorationDecay != 0.9999 {
		t.Errorf("decay should clamp to 0.9999, got %v", cfg.ExplorationDecay)
	}
}

func TestSelectActionPureExploitationWithStrongQValues(t *testing.T) {
	agent := NewAgent(Config{ExplorationRate: 0}, 1)
	table := NewTable()
	state := 42
	current := row(table, state)
	current[ActionFlee] = 10.0 // far above the 0.1 "untrained" threshold

	got := agent.SelectAction(table, state, DefaultPersonality())
	if got != ActionFlee {
		t.Errorf("expected trained Q-values to dominate, got %v", got)
	}
}

func TestSelectActionUsesPersonalityWhenUntrained(t *testing.T) {
	agent := NewAgent(Config{ExplorationRate: 0}, 1)
	table := NewTable() // all zero -> untrained
	personality := Personality{Aggression: 1.0, Caution: 0, Cunning: 0, PackMentality: 0, Exploration: 0}

	got := agent.SelectAction(table, 0, personality)
	if got != ActionAttackAggressive {
		t.Errorf("untrained table should defer to the highest-biased action, got %v", got)
	}
}

func TestUpdateMovesTowardTarget(t *testing.T) {
	agent := NewAgent(DefaultConfig(), 1)
	table := NewTable()

	delta := agent.Update(table, 0, ActionAttackAggressive, 10.0, 1)
	if delta <= 0 {
		t.Errorf("positive reward should produce a positive delta, got %v", delta)
	}
	if row(table, 0)[ActionAttackAggressive] <= 0 {
		t.Error("Q-value should have increased after a positive-reward update")
	}
}

func TestDecayExplorationRespectsFloor(t *testing.T) {
	agent := NewAgent(Config{ExplorationRate: 0.06, MinExplorationRate: 0.05, ExplorationDecay: 0.9}, 1)
	for i := 0; i < 50; i++ {
		agent.DecayExploration()
	}
	if agent.ExplorationRate < agent.Config.MinExplorationRate {
		t.Errorf("exploration rate %v fell below floor %v", agent.ExplorationRate, agent.Config.MinExplorationRate)
	}
}

func TestActionBiasStaysPositive(t *testing.T) {
	p := Personality{Aggression: 0, Caution: 0, Cunning: 0, PackMentality: 0, Exploration: 0}
	for a := Action(0); a < ActionCount; a++ {
		if bias := p.ActionBias(a); bias < 0.1 {
			t.Errorf("ActionBias(%v) = %v, want >= 0.1", a, bias)
		}
	}
}
