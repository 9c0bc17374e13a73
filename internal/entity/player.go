// Package entity holds the mutable game actors: players and monsters,
// their ability scores, and the combat-facing derived stats built on top
// of them.
package entity

import "time"

// Modifier computes the D&D-style ability modifier for a raw stat value.
func Modifier(stat int) int {
	return floorDiv(stat-10, 2)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Player is a connected player's avatar in the dungeon.
type Player struct {
	ID              string `json:"id"`
	X               int    `json:"x"`
	Y               int    `json:"y"`
	Symbol          string `json:"symbol"`
	Color           string `json:"color"`
	CurrentRoomID   string `json:"currentRoomId,omitempty"`
	Name            string `json:"name,omitempty"`
	HP              int    `json:"hp"`
	MaxHP           int    `json:"maxHp"`
	AC              int    `json:"ac"`
	Str             int    `json:"str"`
	Dex             int    `json:"dex"`
	Con             int    `json:"con"`
	DamageDice      string `json:"damageDice"`
	IsDefending     bool   `json:"isDefending"`
	FightImmunityAt time.Time `json:"-"`
}

// NewPlayer builds a player with the default starting stat block.
func NewPlayer(id string, x, y int) *Player {
	return &Player{
		ID: id, X: x, Y: y,
		Symbol: "@", Color: "#ff0",
		HP: 30, MaxHP: 30, AC: 12,
		Str: 12, Dex: 12, Con: 12,
		DamageDice: "1d6",
	}
}

// StrMod, DexMod and ConMod expose the player's ability modifiers.
func (p *Player) StrMod() int { return Modifier(p.Str) }
func (p *Player) DexMod() int { return Modifier(p.Dex) }
func (p *Player) ConMod() int { return Modifier(p.Con) }

// EffectiveAC is the player's armor class including the defend bonus.
func (p *Player) EffectiveAC() int {
	if p.IsDefending {
		return p.AC + 2
	}
	return p.AC
}

// HasFightImmunity reports whether the player is still within the grace
// window granted after leaving a fight, preventing immediate re-engagement.
func (p *Player) HasFightImmunity(now time.Time) bool {
	return now.Before(p.FightImmunityAt)
}

// GrantFightImmunity extends immunity from d from now.
func (p *Player) GrantFightImmunity(now time.Time, d time.Duration) {
	p.FightImmunityAt = now.Add(d)
}

// TakeDamage applies damage, clamped so HP never drops below zero, and
// returns the amount actually absorbed.
func (p *Player) TakeDamage(amount int) int {
	if amount > p.HP {
		amount = p.HP
	}
	p.HP -= amount
	return amount
}

// Heal restores HP up to MaxHP and returns the amount actually healed.
func (p *Player) Heal(amount int) int {
	if room := p.MaxHP - p.HP; amount > room {
		amount = room
	}
	p.HP += amount
	return amount
}

// Respawn resets the player to full health at (x, y), outside of any room.
func (p *Player) Respawn(x, y int) {
	p.X, p.Y = x, y
	p.HP = p.MaxHP
	p.IsDefending = false
	p.CurrentRoomID = ""
}

// IsAlive reports whether the player still has hit points remaining.
func (p *Player) IsAlive() bool { return p.HP > 0 }
