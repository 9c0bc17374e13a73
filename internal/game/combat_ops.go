package game

import (
	"time"

	"github.com/Ko-stant/dungeon-ai-server/internal/combat"
	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/eventbus"
	"github.com/Ko-stant/dungeon-ai-server/internal/protocol"
	"github.com/Ko-stant/dungeon-ai-server/internal/qlearn"
)

// ActionResult is the uniform shape every combat operation returns to its
// single caller: success plus an error string validation failures explain
// themselves with, never a state change on failure.
type ActionResult struct {
	Success bool
	Error   string
	FightID string
}

func (g *Game) playerFightIDLocked(playerID string) string {
	for id, f := range g.fights {
		if !f.IsActive() {
			continue
		}
		for _, pid := range f.PlayerIDs {
			if pid == playerID {
				return id
			}
		}
	}
	return ""
}

func (g *Game) activeFightForPlayerLocked(playerID string) string {
	return g.playerFightIDLocked(playerID)
}

// ActiveFightIDForPlayer returns the id of playerID's currently active
// fight, if any.
func (g *Game) ActiveFightIDForPlayer(playerID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.activeFightForPlayerLocked(playerID)
	return id, id != ""
}

func (g *Game) activeFightForMonsterLocked(monsterID string) string {
	for id, f := range g.fights {
		if f.IsActive() && f.MonsterID == monsterID {
			return id
		}
	}
	return ""
}

// StartFight begins a new fight between playerID and an 8-adjacent,
// not-already-fighting monsterID, with the player acting first.
func (g *Game) StartFight(playerID, monsterID string) ActionResult {
	g.mu.Lock()

	p, ok := g.players[playerID]
	if !ok {
		g.mu.Unlock()
		return ActionResult{Error: "unknown_player"}
	}
	m, ok := g.monsters[monsterID]
	if !ok || !m.IsAlive() {
		g.mu.Unlock()
		return ActionResult{Error: "unknown_monster"}
	}
	if g.activeFightForPlayerLocked(playerID) != "" {
		g.mu.Unlock()
		return ActionResult{Error: "already_in_fight"}
	}
	if g.activeFightForMonsterLocked(monsterID) != "" {
		g.mu.Unlock()
		return ActionResult{Error: "monster_already_in_fight"}
	}
	if !adjacent8(p.X, p.Y, m.X, m.Y) {
		g.mu.Unlock()
		return ActionResult{Error: "not_adjacent"}
	}

	f := combat.Create(monsterID, playerID, g.cfg.FightTurnDuration, time.Now())
	g.fights[f.ID] = f
	g.markDirty()
	g.mu.Unlock()

	g.broadcast(protocol.ServerEnvelope{Type: protocol.MsgFightStarted, Payload: protocol.FightStartedPayload{Fight: f, Monster: m}})
	if g.bus != nil {
		g.bus.Publish(eventbus.Event{Type: eventbus.CombatStarted, GameID: g.ID, SourceID: playerID, TargetID: monsterID})
	}
	return ActionResult{Success: true, FightID: f.ID}
}

// JoinFight adds an 8-adjacent player to an already active fight.
func (g *Game) JoinFight(playerID, fightID string) ActionResult {
	g.mu.Lock()

	p, ok := g.players[playerID]
	if !ok {
		g.mu.Unlock()
		return ActionResult{Error: "unknown_player"}
	}
	f, ok := g.fights[fightID]
	if !ok || !f.IsActive() {
		g.mu.Unlock()
		return ActionResult{Error: "unknown_fight"}
	}
	if g.activeFightForPlayerLocked(playerID) != "" {
		g.mu.Unlock()
		return ActionResult{Error: "already_in_fight"}
	}
	m, ok := g.monsters[f.MonsterID]
	if !ok || !adjacent8(p.X, p.Y, m.X, m.Y) {
		g.mu.Unlock()
		return ActionResult{Error: "not_adjacent"}
	}
	if !f.AddPlayer(playerID) {
		g.mu.Unlock()
		return ActionResult{Error: "already_in_fight"}
	}
	g.markDirty()
	g.mu.Unlock()

	g.broadcast(protocol.ServerEnvelope{Type: protocol.MsgFightUpdated, Payload: protocol.FightUpdatedPayload{Fight: f, Monster: m}})
	return ActionResult{Success: true, FightID: fightID}
}

// FleeFight removes playerID from fightID. If the fight empties out it ends
// (status FLED); otherwise it continues with the remaining combatants.
func (g *Game) FleeFight(playerID, fightID string) ActionResult {
	g.mu.Lock()

	f, ok := g.fights[fightID]
	if !ok || !f.IsActive() {
		g.mu.Unlock()
		return ActionResult{Error: "unknown_fight"}
	}
	if !f.RemovePlayer(playerID, time.Now()) {
		g.mu.Unlock()
		return ActionResult{Error: "not_in_fight"}
	}
	remaining := append([]string(nil), f.PlayerIDs...)
	ended := !f.IsActive()
	if ended {
		delete(g.fights, fightID)
	}
	g.markDirty()
	g.mu.Unlock()

	g.sendTo(playerID, protocol.ServerEnvelope{Type: protocol.MsgFightLeft, Payload: protocol.FightLeftPayload{FightID: fightID}})
	for _, pid := range remaining {
		g.sendTo(pid, protocol.ServerEnvelope{Type: protocol.MsgPlayerFled, Payload: protocol.PlayerFledPayload{FledPlayerID: playerID, RemainingPlayerIDs: remaining}})
	}
	if !ended {
		g.broadcastFightUpdated(fightID)
	}
	return ActionResult{Success: true}
}

func (g *Game) broadcastFightUpdated(fightID string) {
	g.mu.Lock()
	f, ok := g.fights[fightID]
	var m *entity.Monster
	if ok {
		m = g.monsters[f.MonsterID]
	}
	g.mu.Unlock()
	if !ok {
		return
	}
	g.broadcast(protocol.ServerEnvelope{Type: protocol.MsgFightUpdated, Payload: protocol.FightUpdatedPayload{Fight: f, Monster: m}})
}

// aiSnapshotFor builds the reward-event snapshot straight from a monster's
// last recorded decision, matching the reference behavior of reusing the
// same ai_snapshot for every reward fired during a monster's turn.
func aiSnapshotFor(m *entity.Monster) *eventbus.AISnapshot {
	if !m.Intelligence.HasLastState {
		return nil
	}
	hpRatio := 0.0
	if m.Stats.MaxHP > 0 {
		hpRatio = float64(m.Stats.HP) / float64(m.Stats.MaxHP)
	}
	return &eventbus.AISnapshot{
		MonsterType: m.MonsterType,
		StateIndex:  m.Intelligence.LastStateIndex,
		HasState:    true,
		Action:      m.Intelligence.LastAction,
		HPRatio:     hpRatio,
	}
}

func (g *Game) publishDamageDealt(sourceID, targetID string, snapshot *eventbus.AISnapshot, reward float64) {
	if g.bus == nil {
		return
	}
	g.bus.PublishAsync(eventbus.Event{
		Type: eventbus.DamageDealt, GameID: g.ID, SourceID: sourceID, TargetID: targetID,
		Snapshot: snapshot, Reward: reward, HasReward: true,
	})
}

func (g *Game) publishMonsterDied(monsterID string, snapshot *eventbus.AISnapshot) {
	if g.bus == nil {
		return
	}
	g.bus.PublishAsync(eventbus.Event{
		Type: eventbus.MonsterDied, GameID: g.ID, SourceID: monsterID,
		Snapshot: snapshot, Reward: -100, HasReward: true,
	})
}

// ProcessCombatAction resolves a player's turn in an active fight: attack,
// defend, or drink an item. If the action kills the monster, the fight ends
// in victory here and now; otherwise the turn advances to the monster,
// whose own turn is resolved later by ProcessMonsterCombatTurns on the tick
// loop's own schedule.
func (g *Game) ProcessCombatAction(playerID, fightID, action string) ActionResult {
	g.mu.Lock()

	f, ok := g.fights[fightID]
	if !ok || !f.IsActive() {
		g.mu.Unlock()
		return ActionResult{Error: "unknown_fight"}
	}
	if f.CurrentTurnID() != playerID {
		g.mu.Unlock()
		return ActionResult{Error: "not_your_turn"}
	}
	p, ok := g.players[playerID]
	if !ok {
		g.mu.Unlock()
		return ActionResult{Error: "unknown_player"}
	}
	m, ok := g.monsters[f.MonsterID]
	if !ok {
		g.mu.Unlock()
		return ActionResult{Error: "monster_missing"}
	}

	switch action {
	case "attack":
		outcome := combat.ResolvePlayerAttack(p, m)
		if outcome.Hit || outcome.Critical {
			f.AddLogEntry("player_attack", "Attack hits!", playerID)
		} else {
			f.AddLogEntry("player_attack", "Attack misses.", playerID)
		}
		g.publishDamageDealt(playerID, m.ID, aiSnapshotFor(m), float64(-outcome.Damage))
	case "defend":
		p.IsDefending = true
		f.AddLogEntry("player_defend", "Takes a defensive stance.", playerID)
	case "item":
		healed := combat.ResolveItem(p)
		f.AddLogEntry("player_item", "Uses an item.", playerID)
		_ = healed
	default:
		g.mu.Unlock()
		return ActionResult{Error: "unknown_action"}
	}

	if !m.IsAlive() {
		g.endFightVictoryLocked(f, m)
		g.mu.Unlock()
		g.broadcastFightEnded(fightID, "victory", m)
		return ActionResult{Success: true, FightID: fightID}
	}

	f.AdvanceTurn(time.Now())
	g.markDirty()
	g.mu.Unlock()

	g.broadcastFightUpdated(fightID)
	return ActionResult{Success: true, FightID: fightID}
}

// endFightVictoryLocked ends f as a victory, publishes MONSTER_DIED, awards
// XP, grants immunity to every surviving participant, and deletes the
// monster. Caller holds g.mu.
func (g *Game) endFightVictoryLocked(f *combat.Fight, m *entity.Monster) {
	f.EndFight("victory")
	delete(g.occupied, [2]int{m.X, m.Y})
	delete(g.monsters, m.ID)
	delete(g.fights, f.ID)
	if g.ai != nil {
		g.ai.ForgetMonster(m.ID)
	}

	if g.stats != nil {
		xp := g.stats.XPForChallengeRating(m.Stats.ChallengeRating)
		for _, pid := range f.PlayerIDs {
			g.stats.RecordKill(pid, m.MonsterType, xp)
		}
	}
	now := time.Now()
	for _, pid := range f.PlayerIDs {
		if p, ok := g.players[pid]; ok {
			p.GrantFightImmunity(now, g.cfg.FightImmunityDuration)
		}
	}
	g.markDirty()

	g.publishMonsterDied(f.MonsterID, aiSnapshotFor(m))
}

func (g *Game) broadcastFightEnded(fightID, result string, m *entity.Monster) {
	xp := 0
	if g.stats != nil && m != nil {
		xp = g.stats.XPForChallengeRating(m.Stats.ChallengeRating)
	}
	monsterType := ""
	if m != nil {
		monsterType = m.MonsterType
	}
	g.broadcast(protocol.ServerEnvelope{Type: protocol.MsgFightEnded, Payload: protocol.FightEndedPayload{
		Result: result, XPEarned: xp, MonsterType: monsterType,
	}})
}

// ProcessMonsterCombatTurns resolves one monster action for every active
// fight whose current turn belongs to the monster: damage, flee, defend,
// or a no-op call for allies. Dead players are respawned with immunity;
// a fight with no players left ends in defeat.
func (g *Game) ProcessMonsterCombatTurns() {
	g.mu.Lock()
	var due []*combat.Fight
	for _, f := range g.fights {
		if f.IsActive() && f.IsMonsterTurn() {
			due = append(due, f)
		}
	}
	g.mu.Unlock()

	for _, f := range due {
		g.processOneMonsterTurn(f.ID)
	}
}

func (g *Game) processOneMonsterTurn(fightID string) {
	g.mu.Lock()

	f, ok := g.fights[fightID]
	if !ok || !f.IsActive() || len(f.PlayerIDs) == 0 {
		g.mu.Unlock()
		return
	}
	m, ok := g.monsters[f.MonsterID]
	if !ok {
		g.mu.Unlock()
		return
	}
	targetID := f.PlayerIDs[0]
	target, ok := g.players[targetID]
	if !ok {
		g.mu.Unlock()
		return
	}

	var action qlearn.Action = qlearn.ActionAttackAggressive
	if g.ai != nil {
		world := g.monsterWorldStateLocked(m)
		action = g.ai.DecideCombatAction(m, world, g.tick)
	}

	switch action {
	case qlearn.ActionFlee:
		g.endFightMonsterFledLocked(f, m)
		g.mu.Unlock()
		g.broadcastFightEnded(fightID, "victory", m)
		return
	case qlearn.ActionCallAllies:
		f.AddLogEntry("monster_action", "Calls for allies!", m.ID)
	case qlearn.ActionDefend:
		f.AddLogEntry("monster_action", "Takes a defensive stance.", m.ID)
	default:
		outcome := combat.ResolveMonsterAttack(m, target, action)
		reward := -1.0
		if outcome.Hit || outcome.Critical {
			reward = float64(outcome.Damage)
			if outcome.Critical {
				reward *= 2
			}
			f.AddLogEntry("monster_attack", "The monster strikes!", m.ID)
		} else {
			f.AddLogEntry("monster_attack", "The monster's attack misses.", m.ID)
		}
		g.publishDamageDealt(m.ID, targetID, aiSnapshotFor(m), reward)
	}

	var respawn *protocol.PlayerRespawnedPayload
	if !target.IsAlive() {
		r := g.reapPlayerLocked(f, target)
		respawn = &r
	}

	if len(f.PlayerIDs) == 0 {
		f.EndFight("defeat")
		delete(g.fights, f.ID)
		g.mu.Unlock()
		if respawn != nil {
			g.sendTo(respawn.PlayerID, protocol.ServerEnvelope{Type: protocol.MsgPlayerRespawned, Payload: *respawn})
		}
		g.broadcastFightEnded(fightID, "defeat", m)
		return
	}

	if !f.IsActive() {
		g.mu.Unlock()
		if respawn != nil {
			g.sendTo(respawn.PlayerID, protocol.ServerEnvelope{Type: protocol.MsgPlayerRespawned, Payload: *respawn})
		}
		return
	}

	f.AdvanceTurn(time.Now())
	g.markDirty()
	g.mu.Unlock()

	if respawn != nil {
		g.sendTo(respawn.PlayerID, protocol.ServerEnvelope{Type: protocol.MsgPlayerRespawned, Payload: *respawn})
	}
	g.broadcast(protocol.ServerEnvelope{Type: protocol.MsgMonsterAttacks, Payload: protocol.MonsterAttacksPayload{Fight: f, Monster: m, Target: targetID}})
}

func (g *Game) endFightMonsterFledLocked(f *combat.Fight, m *entity.Monster) {
	f.EndFight("victory")
	delete(g.occupied, [2]int{m.X, m.Y})
	delete(g.monsters, m.ID)
	delete(g.fights, f.ID)
	if g.ai != nil {
		g.ai.ForgetMonster(m.ID)
	}

	xp := 0
	if g.stats != nil {
		xp = g.stats.XPForChallengeRating(m.Stats.ChallengeRating) / 2
		for _, pid := range f.PlayerIDs {
			g.stats.RecordKill(pid, m.MonsterType, xp)
		}
	}
	now := time.Now()
	for _, pid := range f.PlayerIDs {
		if p, ok := g.players[pid]; ok {
			p.GrantFightImmunity(now, g.cfg.FightImmunityDuration)
		}
	}
	g.markDirty()
}

// reapPlayerLocked removes a dead player from its fight, respawns it at the
// map's spawn point at full HP, and grants fight immunity. Caller holds
// g.mu, must re-check f.IsActive()/len(f.PlayerIDs) afterward, and is
// responsible for sending the returned notification once g.mu is released.
func (g *Game) reapPlayerLocked(f *combat.Fight, p *entity.Player) protocol.PlayerRespawnedPayload {
	now := time.Now()
	f.RemovePlayer(p.ID, now)
	if g.stats != nil {
		g.stats.RecordDeath(p.ID)
	}
	delete(g.occupied, [2]int{p.X, p.Y})
	p.Respawn(g.dmap.SpawnX, g.dmap.SpawnY)
	g.occupied[[2]int{p.X, p.Y}] = true
	p.GrantFightImmunity(now, g.cfg.FightImmunityDuration)
	g.markDirty()

	return protocol.PlayerRespawnedPayload{PlayerID: p.ID, X: p.X, Y: p.Y, HP: p.HP, MaxHP: p.MaxHP}
}

// ProcessTurnTimeouts ends the current player's turn in every active fight
// whose timer has expired: the player is knocked out, respawned with
// immunity, and the fight continues or ends in defeat.
func (g *Game) ProcessTurnTimeouts() {
	g.mu.Lock()
	now := time.Now()
	var due []string
	for id, f := range g.fights {
		if !f.IsActive() || f.IsMonsterTurn() {
			continue
		}
		if f.TimeRemaining(now) <= 0 {
			due = append(due, id)
		}
	}
	g.mu.Unlock()

	for _, id := range due {
		g.processOneTimeout(id)
	}
}

func (g *Game) processOneTimeout(fightID string) {
	g.mu.Lock()
	f, ok := g.fights[fightID]
	if !ok || !f.IsActive() {
		g.mu.Unlock()
		return
	}
	playerID := f.CurrentTurnID()
	p, ok := g.players[playerID]
	if !ok {
		g.mu.Unlock()
		return
	}
	var m *entity.Monster
	if mm, ok := g.monsters[f.MonsterID]; ok {
		m = mm
	}

	p.TakeDamage(p.HP)
	respawn := g.reapPlayerLocked(f, p)

	ended := !f.IsActive() || len(f.PlayerIDs) == 0
	if ended && f.IsActive() {
		f.EndFight("defeat")
	}
	if ended {
		delete(g.fights, fightID)
	} else {
		g.markDirty()
	}
	g.mu.Unlock()

	g.sendTo(respawn.PlayerID, protocol.ServerEnvelope{Type: protocol.MsgPlayerRespawned, Payload: respawn})
	if ended {
		g.broadcastFightEnded(fightID, "defeat", m)
	} else {
		g.broadcastFightUpdated(fightID)
	}
}
