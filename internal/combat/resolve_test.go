package combat

import (
	"testing"

	"github.com/Ko-stant/dungeon-ai-server/internal/dice"
	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/qlearn"
)

// sequenceRoller returns a fixed sequence of results, cycling the last value
// once exhausted, mirroring the fixedRoller pattern used by the dice package.
type sequenceRoller struct {
	values []int
	i      int
}

func (s *sequenceRoller) Roll(size int) int {
	if s.i >= len(s.values) {
		return s.values[len(s.values)-1]
	}
	v := s.values[s.i]
	s.i++
	return v
}

func withRoller(t *testing.T, r dice.Roller, fn func()) {
	t.Helper()
	prev := dice.DefaultRoller
	dice.DefaultRoller = r
	defer func() { dice.DefaultRoller = prev }()
	fn()
}

func newTestPlayer() *entity.Player {
	p := entity.NewPlayer("p1", 0, 0)
	p.Str = 14 // +2 mod
	p.DamageDice = "1d8"
	return p
}

func newTestMonster() *entity.Monster {
	return &entity.Monster{
		ID: "m1",
		Stats: entity.MonsterStats{
			HP: 20, MaxHP: 20, AC: 12,
			Str: 14, ChallengeRating: 2,
		},
	}
}

func TestResolvePlayerAttackHitsAndDamages(t *testing.T) {
	p := newTestPlayer()
	m := newTestMonster()
	withRoller(t, &sequenceRoller{values: []int{15, 5}}, func() {
		out := ResolvePlayerAttack(p, m)
		if !out.Hit {
			t.Fatal("expected hit against AC 12 with roll 15+2")
		}
		if out.Damage != 5 {
			t.Errorf("damage = %d, want 5", out.Damage)
		}
		if m.Stats.HP != 15 {
			t.Errorf("monster hp = %d, want 15", m.Stats.HP)
		}
	})
}

func TestResolvePlayerAttackNatural1AlwaysMisses(t *testing.T) {
	p := newTestPlayer()
	p.Str = 30
	m := newTestMonster()
	m.Stats.AC = 1
	withRoller(t, &sequenceRoller{values: []int{1}}, func() {
		out := ResolvePlayerAttack(p, m)
		if out.Hit || out.Critical {
			t.Fatal("natural 1 must always miss regardless of modifiers")
		}
		if out.Damage != 0 {
			t.Errorf("damage = %d, want 0 on a miss", out.Damage)
		}
	})
}

func TestResolvePlayerAttackCriticalDoublesDiceNotModifier(t *testing.T) {
	p := newTestPlayer()
	m := newTestMonster()
	withRoller(t, &sequenceRoller{values: []int{20, 3, 4}}, func() {
		out := ResolvePlayerAttack(p, m)
		if !out.Critical {
			t.Fatal("natural 20 must be a critical")
		}
		if len(out.Roll.Rolls) != 1 {
			t.Fatalf("attack roll should carry a single d20, got %v", out.Roll.Rolls)
		}
		if out.Damage != 7 {
			t.Errorf("damage = %d, want 7 (1d8 doubled to 2d8 rolling 3+4, no modifier added)", out.Damage)
		}
	})
}

func TestResolveItemHealsClampedToMaxHP(t *testing.T) {
	p := newTestPlayer()
	p.HP = 28
	withRoller(t, &sequenceRoller{values: []int{15}}, func() {
		healed := ResolveItem(p)
		if healed != 2 {
			t.Errorf("healed = %d, want 2 (clamped to max hp)", healed)
		}
		if p.HP != p.MaxHP {
			t.Errorf("hp = %d, want max hp %d", p.HP, p.MaxHP)
		}
	})
}

func TestResolveMonsterAttackAggressiveAddsToHitAndDamage(t *testing.T) {
	p := newTestPlayer()
	m := newTestMonster()
	withRoller(t, &sequenceRoller{values: []int{9, 4}}, func() {
		out := ResolveMonsterAttack(m, p, qlearn.ActionAttackAggressive)
		if !out.Hit {
			t.Fatal("aggressive +1 attack bonus should turn a borderline roll into a hit")
		}
		if out.Damage != 5 {
			t.Errorf("damage = %d, want 5 (4 base + 1 aggressive bonus)", out.Damage)
		}
	})
}

func TestResolveMonsterAttackDefensiveLowersTargetAC(t *testing.T) {
	p := newTestPlayer()
	p.AC = 14
	m := newTestMonster()
	withRoller(t, &sequenceRoller{values: []int{11, 4}}, func() {
		out := ResolveMonsterAttack(m, p, qlearn.ActionAttackDefensive)
		if !out.Hit {
			t.Fatal("lowering target AC by 1 should turn 11+2=13 into a hit against effective AC 13")
		}
	})
}

func TestResolveMonsterAttackAmbushRerollsAMiss(t *testing.T) {
	p := newTestPlayer()
	m := newTestMonster()
	withRoller(t, &sequenceRoller{values: []int{2, 15, 4}}, func() {
		out := ResolveMonsterAttack(m, p, qlearn.ActionAmbush)
		if !out.Hit {
			t.Fatal("ambush should reroll an initial miss and can still land")
		}
		if out.Damage != 5 {
			t.Errorf("damage = %d, want 5 (4 base + 1 ambush bonus)", out.Damage)
		}
	})
}

func TestResolveMonsterAttackDamageFloorsAtOne(t *testing.T) {
	p := newTestPlayer()
	m := newTestMonster()
	m.Stats.ChallengeRating = 0
	m.Stats.Str = 10
	withRoller(t, &sequenceRoller{values: []int{15, 1}}, func() {
		out := ResolveMonsterAttack(m, p, qlearn.ActionAttackDefensive)
		if !out.Hit {
			t.Fatal("expected a hit")
		}
		if out.Damage < 1 {
			t.Errorf("damage = %d, want at least 1", out.Damage)
		}
	})
}
