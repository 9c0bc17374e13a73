package combat

import (
	"fmt"

	"github.com/Ko-stant/dungeon-ai-server/internal/dice"
	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/qlearn"
)

// AttackOutcome is the result of a single attack resolution, used both to
// mutate the target and to build the combat log entry and reward event.
type AttackOutcome struct {
	Roll     dice.Roll
	Hit      bool
	Critical bool
	Damage   int
}

// ResolvePlayerAttack rolls a player's melee attack (STR modifier) against
// a monster's AC, applying damage on a hit and double dice on a crit.
func ResolvePlayerAttack(player *entity.Player, monster *entity.Monster) AttackOutcome {
	roll, hit, crit := dice.RollAttack(player.StrMod(), monster.Stats.AC)
	out := AttackOutcome{Roll: roll, Hit: hit, Critical: crit}
	if hit || crit {
		dmgRoll := dice.RollDamage(player.DamageDice, crit)
		out.Damage = monster.TakeDamage(dmgRoll.Total)
	}
	return out
}

// ResolveItem rolls 1d20 and heals the player by that amount, clamped to
// MaxHP, returning the amount actually healed.
func ResolveItem(player *entity.Player) int {
	roll := dice.RollD20(0)
	return player.Heal(roll.Rolls[0])
}

// monsterDamageDice derives a monster's base melee damage notation from its
// challenge rating, matching the original implementation's scaling.
func monsterDamageDice(cr float64) string {
	return fmt.Sprintf("1d%d", 6+int(cr*2))
}

// ResolveMonsterAttack rolls a monster's melee attack (STR modifier) against
// a player's effective AC, applying the chosen action's combat modifiers:
// ATTACK_AGGRESSIVE gets +1 to hit and +1 damage; ATTACK_DEFENSIVE instead
// lowers the target's effective AC by 1; AMBUSH rerolls a miss once
// (advantage) and adds +1 damage on a hit.
func ResolveMonsterAttack(monster *entity.Monster, player *entity.Player, action qlearn.Action) AttackOutcome {
	attackBonus := monster.Stats.StrMod()
	targetAC := player.EffectiveAC()
	bonusDamage := 0

	switch action {
	case qlearn.ActionAttackAggressive:
		attackBonus++
		bonusDamage++
	case qlearn.ActionAttackDefensive:
		targetAC--
	case qlearn.ActionAmbush:
		bonusDamage++
	}

	roll, hit, crit := dice.RollAttack(attackBonus, targetAC)
	if action == qlearn.ActionAmbush && !hit && !crit {
		roll, hit, crit = dice.RollAttack(attackBonus, targetAC)
	}

	out := AttackOutcome{Roll: roll, Hit: hit, Critical: crit}
	if hit || crit {
		dmgRoll := dice.RollDamage(monsterDamageDice(monster.Stats.ChallengeRating), crit)
		total := dmgRoll.Total + bonusDamage
		if total < 1 {
			total = 1
		}
		out.Damage = player.TakeDamage(total)
	}
	return out
}
