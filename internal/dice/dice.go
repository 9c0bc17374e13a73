// Package dice rolls D&D-style "NdS+M" dice notation and the attack/damage
// resolution built on top of it.
package dice

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
)

// Roller generates uniformly distributed integers in [1, size]. Mirrors the
// Roller interface idiom used elsewhere in the pack's dice packages so a
// deterministic test double can be substituted for crypto/rand.
type Roller interface {
	Roll(size int) int
}

// CryptoRoller is the production Roller, backed by crypto/rand.
type CryptoRoller struct{}

// Roll returns a uniformly random integer in [1, size]. size <= 0 always
// returns 1.
func (CryptoRoller) Roll(size int) int {
	if size <= 0 {
		return 1
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(size)))
	if err != nil {
		// crypto/rand practically never fails; fall back to the low roll
		// rather than propagating an error through every call site.
		return 1
	}
	return int(n.Int64()) + 1
}

// DefaultRoller is used by every package-level convenience function below.
// Tests may swap it for a deterministic stub.
var DefaultRoller Roller = CryptoRoller{}

// Roll is a dice roll's full detail: which individual dice came up, the flat
// modifier applied, and the total.
type Roll struct {
	Notation string
	Rolls    []int
	Modifier int
	Total    int
}

var notationPattern = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// RollNotation parses and rolls "NdS", "NdS+M", or "NdS-M". Unparseable
// notation degrades to a single d20, matching the reference implementation.
func RollNotation(notation string) Roll {
	return rollNotationWith(DefaultRoller, notation)
}

func rollNotationWith(roller Roller, notation string) Roll {
	m := notationPattern.FindStringSubmatch(normalizeNotation(notation))
	if m == nil {
		r := roller.Roll(20)
		return Roll{Notation: "1d20", Rolls: []int{r}, Modifier: 0, Total: r}
	}

	count, _ := strconv.Atoi(m[1])
	size, _ := strconv.Atoi(m[2])
	modifier := 0
	if m[3] != "" {
		modifier, _ = strconv.Atoi(m[3])
	}

	rolls := make([]int, count)
	sum := 0
	for i := 0; i < count; i++ {
		rolls[i] = roller.Roll(size)
		sum += rolls[i]
	}
	total := sum + modifier
	if total < 0 {
		total = 0
	}

	return Roll{Notation: notation, Rolls: rolls, Modifier: modifier, Total: total}
}

func normalizeNotation(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// RollD20 rolls a single d20 plus modifier.
func RollD20(modifier int) Roll {
	r := DefaultRoller.Roll(20)
	return Roll{Notation: "1d20", Rolls: []int{r}, Modifier: modifier, Total: r + modifier}
}

// RollAttack rolls a d20 attack against a target AC. Natural 20 always hits
// and always crits; natural 1 always misses, regardless of modifiers.
func RollAttack(attackBonus, targetAC int) (roll Roll, hit bool, critical bool) {
	roll = RollD20(attackBonus)
	natural := roll.Rolls[0]

	switch {
	case natural == 20:
		return roll, true, true
	case natural == 1:
		return roll, false, false
	default:
		return roll, roll.Total >= targetAC, false
	}
}

// RollDamage rolls damage dice, doubling the die count (not the modifier)
// on a critical hit.
func RollDamage(damageDice string, critical bool) Roll {
	notation := damageDice
	if critical {
		if m := notationPattern.FindStringSubmatch(normalizeNotation(damageDice)); m != nil {
			count, _ := strconv.Atoi(m[1])
			notation = fmt.Sprintf("%dd%s%s", count*2, m[2], m[3])
		}
	}
	return RollNotation(notation)
}
