package game

import (
	"time"

	"github.com/Ko-stant/dungeon-ai-server/internal/combat"
	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/eventbus"
	"github.com/Ko-stant/dungeon-ai-server/internal/monsterai"
	"github.com/Ko-stant/dungeon-ai-server/internal/pathfind"
	"github.com/Ko-stant/dungeon-ai-server/internal/protocol"
	"github.com/Ko-stant/dungeon-ai-server/internal/qlearn"
	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
)

const aggroRange = 6

// nearestPlayerLocked returns the closest living, non-immune player to
// (x, y) and its Chebyshev distance, or ok=false if none exists.
func (g *Game) nearestPlayerLocked(x, y int, now time.Time) (*entity.Player, int, bool) {
	var best *entity.Player
	bestDist := 1 << 30
	for _, p := range g.players {
		if !p.IsAlive() || p.HasFightImmunity(now) {
			continue
		}
		dist := chebyshev(x, y, p.X, p.Y)
		if dist < bestDist {
			best, bestDist = p, dist
		}
	}
	return best, bestDist, best != nil
}

func chebyshev(ax, ay, bx, by int) int {
	dx, dy := ax-bx, ay-by
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// monsterWorldStateLocked builds the WorldState a monster's surroundings
// project for decision-making: nearest threat, room category, corridor
// status, and ally/enemy counts within aggroRange. Caller holds g.mu.
func (g *Game) monsterWorldStateLocked(m *entity.Monster) monsterai.WorldState {
	w := monsterai.WorldState{
		HPRatio: 1,
	}
	if m.Stats.MaxHP > 0 {
		w.HPRatio = float64(m.Stats.HP) / float64(m.Stats.MaxHP)
	}

	currentRoom := g.roomAt(m.X, m.Y)
	if currentRoom != nil {
		w.RoomCategory = tile.CategoryOf(currentRoom.RoomType)
	} else if room := g.roomByID(m.RoomID); room != nil {
		w.RoomCategory = tile.CategoryOf(room.RoomType)
	}
	w.InCorridor = currentRoom == nil

	now := time.Now()
	enemies := 0
	for _, p := range g.players {
		if p.IsAlive() && chebyshev(m.X, m.Y, p.X, p.Y) <= aggroRange {
			enemies++
		}
	}
	allies := 0
	for _, other := range g.monsters {
		if other.ID != m.ID && other.IsAlive() && chebyshev(m.X, m.Y, other.X, other.Y) <= aggroRange {
			allies++
		}
	}
	w.NearbyEnemies = enemies
	w.NearbyAllies = allies

	if threat, dist, ok := g.nearestPlayerLocked(m.X, m.Y, now); ok {
		w.DistanceToThreat = dist
		w.ThreatDirection = pathfind.DirectionFromDelta(threat.X-m.X, threat.Y-m.Y)
		w.HasThreatPosition = true
		w.ThreatX, w.ThreatY = threat.X, threat.Y
	} else {
		w.DistanceToThreat = aggroRange + 1
	}
	return w
}

func (g *Game) environmentForLocked(m *entity.Monster) *monsterai.Environment {
	bounds := monsterai.RoomBounds{X: 0, Y: 0, Width: g.dmap.Width, Height: g.dmap.Height}
	if room := g.roomByID(m.RoomID); room != nil {
		bounds = monsterai.RoomBounds{X: room.X, Y: room.Y, Width: room.Width, Height: room.Height}
	}
	return &monsterai.Environment{
		RoomBounds: bounds,
		Tiles:      g.dmap.Tiles,
		Occupied:   g.occupied,
		Rooms:      g.dmap.Rooms,
		Width:      g.dmap.Width,
		Height:     g.dmap.Height,
	}
}

// UpdateMonsters runs one AI tick for every living monster not currently in
// a fight: movement, patrol, and pursue/flee decisions.
func (g *Game) UpdateMonsters() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ai == nil {
		return
	}
	fighting := g.fightingMonstersLocked()
	for _, m := range g.monsters {
		if !m.IsAlive() || fighting[m.ID] {
			continue
		}
		world := g.monsterWorldStateLocked(m)
		env := g.environmentForLocked(m)
		if g.ai.UpdateMonster(m, env, g.tick, world) {
			g.markDirty()
		}
	}
}

func (g *Game) fightingMonstersLocked() map[string]bool {
	fighting := make(map[string]bool, len(g.fights))
	for _, f := range g.fights {
		if f.IsActive() {
			fighting[f.MonsterID] = true
		}
	}
	return fighting
}

// checkMonsterAggro lets an idle, non-fighting monster initiate combat
// against an adjacent, non-immune player when its decision engine picks an
// offensive combat action on its own, unprompted by any player interact.
func (g *Game) checkMonsterAggro() {
	g.mu.Lock()

	if g.ai == nil {
		g.mu.Unlock()
		return
	}
	fighting := g.fightingMonstersLocked()
	now := time.Now()

	var started []*struct {
		monsterID, playerID string
	}
	for _, m := range g.monsters {
		if !m.IsAlive() || fighting[m.ID] {
			continue
		}
		target, dist, ok := g.nearestPlayerLocked(m.X, m.Y, now)
		if !ok || dist > 1 {
			continue
		}
		if g.activeFightForPlayerLocked(target.ID) != "" {
			continue
		}
		world := g.monsterWorldStateLocked(m)
		action := g.ai.DecideCombatAction(m, world, g.tick)
		if !isOffensiveAction(action) {
			continue
		}
		started = append(started, &struct{ monsterID, playerID string }{m.ID, target.ID})
	}
	g.mu.Unlock()

	for _, s := range started {
		g.startMonsterInitiatedFight(s.monsterID, s.playerID)
	}
}

func isOffensiveAction(a qlearn.Action) bool {
	switch a {
	case qlearn.ActionAttackAggressive, qlearn.ActionAttackDefensive, qlearn.ActionAmbush:
		return true
	default:
		return false
	}
}

func (g *Game) startMonsterInitiatedFight(monsterID, playerID string) {
	g.mu.Lock()

	if g.activeFightForMonsterLocked(monsterID) != "" || g.activeFightForPlayerLocked(playerID) != "" {
		g.mu.Unlock()
		return
	}
	m, ok := g.monsters[monsterID]
	if !ok || !m.IsAlive() {
		g.mu.Unlock()
		return
	}
	f := combat.CreateMonsterInitiated(monsterID, playerID, g.cfg.FightTurnDuration, time.Now())
	g.fights[f.ID] = f
	g.markDirty()
	g.mu.Unlock()

	g.broadcast(protocol.ServerEnvelope{Type: protocol.MsgFightStarted, Payload: protocol.FightStartedPayload{Fight: f, Monster: m}})
	if g.bus != nil {
		g.bus.Publish(eventbus.Event{Type: eventbus.CombatStarted, GameID: g.ID, SourceID: monsterID, TargetID: playerID})
	}
}
