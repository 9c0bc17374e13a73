package dice

import "testing"

// fixedRoller always returns the same face, letting tests pin the "natural"
// roll without touching the package-level DefaultRoller's crypto source.
type fixedRoller struct{ face int }

func (f fixedRoller) Roll(size int) int {
	if f.face > size {
		return size
	}
	return f.face
}

func withRoller(t *testing.T, r Roller, fn func()) {
	t.Helper()
	prev := DefaultRoller
	DefaultRoller = r
	defer func() { DefaultRoller = prev }()
	fn()
}

func TestRollNotationBasic(t *testing.T) {
	withRoller(t, fixedRoller{face: 4}, func() {
		r := RollNotation("3d6+2")
		if len(r.Rolls) != 3 {
			t.Fatalf("expected 3 dice, got %d", len(r.Rolls))
		}
		if r.Total != 3*4+2 {
			t.Errorf("total = %d, want %d", r.Total, 3*4+2)
		}
	})
}

func TestRollNotationNegativeModifierClampsAtZero(t *testing.T) {
	withRoller(t, fixedRoller{face: 1}, func() {
		r := RollNotation("1d4-10")
		if r.Total != 0 {
			t.Errorf("total = %d, want 0 (clamped)", r.Total)
		}
	})
}

func TestRollNotationUnparseableFallsBackToD20(t *testing.T) {
	withRoller(t, fixedRoller{face: 15}, func() {
		r := RollNotation("not-dice")
		if r.Notation != "1d20" || r.Total != 15 {
			t.Errorf("unparseable notation should degrade to 1d20, got %+v", r)
		}
	})
}

func TestRollAttackNatural20AlwaysHitsAndCrits(t *testing.T) {
	withRoller(t, fixedRoller{face: 20}, func() {
		_, hit, crit := RollAttack(-100, 999)
		if !hit || !crit {
			t.Errorf("natural 20 must always hit and crit regardless of AC/bonus")
		}
	})
}

func TestRollAttackNatural1AlwaysMisses(t *testing.T) {
	withRoller(t, fixedRoller{face: 1}, func() {
		_, hit, crit := RollAttack(100, 1)
		if hit || crit {
			t.Errorf("natural 1 must always miss regardless of AC/bonus")
		}
	})
}

func TestRollAttackOrdinaryCompareToAC(t *testing.T) {
	withRoller(t, fixedRoller{face: 10}, func() {
		_, hit, crit := RollAttack(5, 14)
		if crit {
			t.Errorf("non-natural-20 roll must not crit")
		}
		if !hit {
			t.Errorf("10 + 5 = 15 should hit AC 14")
		}
	})
}

func TestRollDamageCriticalDoublesDiceCountNotModifier(t *testing.T) {
	withRoller(t, fixedRoller{face: 3}, func() {
		normal := RollDamage("2d6+4", false)
		crit := RollDamage("2d6+4", true)

		if len(crit.Rolls) != 2*len(normal.Rolls) {
			t.Errorf("critical roll dice count = %d, want double of %d", len(crit.Rolls), len(normal.Rolls))
		}
		if crit.Modifier != normal.Modifier {
			t.Errorf("critical hit must not double the flat modifier: got %d vs %d", crit.Modifier, normal.Modifier)
		}
	})
}

func TestRollDamageNeverNegative(t *testing.T) {
	withRoller(t, fixedRoller{face: 1}, func() {
		r := RollDamage("1d4-20", false)
		if r.Total < 0 {
			t.Errorf("damage total must clamp at 0, got %d", r.Total)
		}
	})
}

func TestCryptoRollerStaysInRange(t *testing.T) {
	r := CryptoRoller{}
	for i := 0; i < 200; i++ {
		v := r.Roll(6)
		if v < 1 || v > 6 {
			t.Fatalf("Roll(6) out of range: %d", v)
		}
	}
	if v := r.Roll(0); v != 1 {
		t.Errorf("Roll(0) should return 1, got %d", v)
	}
}
