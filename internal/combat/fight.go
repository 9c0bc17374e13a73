// Package combat implements the turn-based fight state machine: multiple
// players against one monster, timed turns, flee/join semantics, and the
// dice-based attack/damage resolution layered on top of it.
package combat

import (
	"time"

	"github.com/google/uuid"
)

// Status is a fight's lifecycle state.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
	StatusFled    Status = "fled"
)

// LogEntry is one line of a fight's combat log, shown to clients as a
// running feed of what happened.
type LogEntry struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	SourceID  string    `json:"sourceId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// historyLimit bounds how much combat log is retained per fight; only the
// most recent entries are sent to clients.
const historyLimit = 20

// Fight is a single combat encounter: one monster, one or more players,
// and a rotating turn order between them.
type Fight struct {
	ID                string     `json:"id"`
	MonsterID         string     `json:"monsterId"`
	PlayerIDs         []string   `json:"playerIds"`
	TurnOrder         []string   `json:"turnOrder"`
	CurrentTurnIndex  int        `json:"currentTurnIndex"`
	Status            Status     `json:"status"`
	StartedAt         time.Time  `json:"startedAt"`
	TurnEndTime       time.Time  `json:"turnEndTime"`
	TurnDuration      time.Duration `json:"turnDurationSeconds"`
	CombatLog         []LogEntry `json:"combatLog"`
}

// Create starts a new ACTIVE fight with the initiating player going first,
// the monster immediately after.
func Create(monsterID, initiatorPlayerID string, turnDuration time.Duration, now time.Time) *Fight {
	f := &Fight{
		ID:               uuid.NewString()[:8],
		MonsterID:        monsterID,
		PlayerIDs:        []string{initiatorPlayerID},
		TurnOrder:        []string{initiatorPlayerID, monsterID},
		CurrentTurnIndex: 0,
		Status:           StatusActive,
		StartedAt:        now,
		TurnDuration:     turnDuration,
	}
	f.resetTurnTimer(now)
	f.AddLogEntry("system", "Combat initiated!", "")
	return f
}

// CreateMonsterInitiated starts a fight where the monster acts first,
// having ambushed an adjacent player.
func CreateMonsterInitiated(monsterID, targetPlayerID string, turnDuration time.Duration, now time.Time) *Fight {
	f := Create(monsterID, targetPlayerID, turnDuration, now)
	f.CurrentTurnIndex = f.indexOf(monsterID)
	f.resetTurnTimer(now)
	return f
}

func (f *Fight) indexOf(id string) int {
	for i, v := range f.TurnOrder {
		if v == id {
			return i
		}
	}
	return 0
}

// CurrentTurnID is whoever's turn it currently is: a player ID or the
// monster ID.
func (f *Fight) CurrentTurnID() string {
	if len(f.TurnOrder) == 0 {
		return ""
	}
	return f.TurnOrder[f.CurrentTurnIndex%len(f.TurnOrder)]
}

// IsMonsterTurn reports whether the monster currently has the turn.
func (f *Fight) IsMonsterTurn() bool {
	return f.CurrentTurnID() == f.MonsterID
}

// IsActive reports whether the fight is still ongoing.
func (f *Fight) IsActive() bool {
	return f.Status == StatusActive
}

// TimeRemaining is how long is left in the current turn, never negative.
func (f *Fight) TimeRemaining(now time.Time) time.Duration {
	remaining := f.TurnEndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (f *Fight) resetTurnTimer(now time.Time) {
	f.TurnEndTime = now.Add(f.TurnDuration)
}

// AddPlayer inserts a new player into the fight immediately before the
// monster in turn order, without resetting the current turn timer. Returns
// false if the player is already in the fight.
func (f *Fight) AddPlayer(playerID string) bool {
	for _, id := range f.PlayerIDs {
		if id == playerID {
			return false
		}
	}
	f.PlayerIDs = append(f.PlayerIDs, playerID)

	monsterIdx := f.indexOf(f.MonsterID)
	f.TurnOrder = append(f.TurnOrder, "")
	copy(f.TurnOrder[monsterIdx+1:], f.TurnOrder[monsterIdx:])
	f.TurnOrder[monsterIdx] = playerID

	f.AddLogEntry("system", "A new ally joins the fight!", "")
	return true
}

// RemovePlayer removes a fleeing/dead player from the fight, adjusting the
// turn index and ending the fight (status FLED) if no players remain.
// Returns false if the player was not in the fight.
func (f *Fight) RemovePlayer(playerID string, now time.Time) bool {
	playerIdx := -1
	for i, id := range f.PlayerIDs {
		if id == playerID {
			playerIdx = i
			break
		}
	}
	if playerIdx == -1 {
		return false
	}
	f.PlayerIDs = append(f.PlayerIDs[:playerIdx], f.PlayerIDs[playerIdx+1:]...)

	turnIdx := f.indexOf(playerID)
	f.TurnOrder = append(f.TurnOrder[:turnIdx], f.TurnOrder[turnIdx+1:]...)

	switch {
	case turnIdx < f.CurrentTurnIndex:
		f.CurrentTurnIndex--
	case turnIdx == f.CurrentTurnIndex:
		if len(f.TurnOrder) > 0 {
			f.CurrentTurnIndex = f.CurrentTurnIndex % len(f.TurnOrder)
		}
		f.resetTurnTimer(now)
	}

	f.AddLogEntry("system", "A combatant has fled!", "")

	if len(f.PlayerIDs) == 0 {
		f.Status = StatusFled
		f.AddLogEntry("system", "All players have fled. Combat ends.", "")
	}
	return true
}

// AdvanceTurn rotates to the next actor in turn order and resets the turn
// timer, returning the new current turn ID.
func (f *Fight) AdvanceTurn(now time.Time) string {
	if len(f.TurnOrder) == 0 {
		return ""
	}
	f.CurrentTurnIndex = (f.CurrentTurnIndex + 1) % len(f.TurnOrder)
	f.resetTurnTimer(now)
	return f.CurrentTurnID()
}

// AddLogEntry appends a line to the combat log, trimming to historyLimit.
func (f *Fight) AddLogEntry(kind, message, sourceID string) {
	f.CombatLog = append(f.CombatLog, LogEntry{Type: kind, Message: message, SourceID: sourceID, Timestamp: time.Now()})
	if len(f.CombatLog) > historyLimit {
		f.CombatLog = f.CombatLog[len(f.CombatLog)-historyLimit:]
	}
}

// EndFight marks the fight ENDED with the given result ("victory" or
// "defeat"), logging the outcome.
func (f *Fight) EndFight(result string) {
	f.Status = StatusEnded
	f.AddLogEntry("system", "Combat ended: "+result, "")
}
