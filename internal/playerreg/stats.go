// Package playerreg is the cross-game player progress sink: XP-by-challenge-
// rating lookups, kill/death bookkeeping, and the leaderboard. Every Game
// reaches it through the narrow game.StatsRecorder interface; nothing here
// knows about a Game, a Fight, or a dungeon tile.
package playerreg

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Ko-stant/dungeon-ai-server/internal/storage"
)

// xpByChallengeRating is the D&D 5e challenge-rating-to-XP table, carried
// verbatim from the reference implementation.
var xpByChallengeRating = []struct {
	CR float64
	XP int
}{
	{0.0, 10}, {0.125, 25}, {0.25, 50}, {0.5, 100},
	{1.0, 200}, {2.0, 450}, {3.0, 700}, {4.0, 1100},
	{5.0, 1800}, {6.0, 2300}, {7.0, 2900}, {8.0, 3900},
}

// XPForChallengeRating returns the tabulated XP award for cr. A CR not
// present in the table falls back to the nearest lower tabulated CR; a CR
// below every table entry falls back to the lowest (CR 0).
func XPForChallengeRating(cr float64) int {
	best := xpByChallengeRating[0].XP
	for _, row := range xpByChallengeRating {
		if row.CR > cr {
			break
		}
		best = row.XP
	}
	return best
}

// Stats is one player's cross-game progress record.
type Stats struct {
	PlayerID         string         `json:"playerId"`
	Nickname         string         `json:"nickname"`
	MonstersKilled   int            `json:"monstersKilled"`
	RoomsVisited     int            `json:"roomsVisited"`
	DamageDealt      int            `json:"damageDealt"`
	DamageTaken      int            `json:"damageTaken"`
	Deaths           int            `json:"deaths"`
	GamesCompleted   int            `json:"gamesCompleted"`
	CriticalHits     int            `json:"criticalHits"`
	ExperienceEarned int            `json:"experienceEarned"`
	KillsByType      map[string]int `json:"killsByType"`
	KillsAtLastNick  int            `json:"killsAtLastNickname"`
	FirstGameAt      time.Time      `json:"firstGameAt"`
	LastUpdated      time.Time      `json:"lastUpdated"`
}

func newStats(playerID string) *Stats {
	now := time.Now()
	return &Stats{
		PlayerID:     playerID,
		KillsByType:  make(map[string]int),
		FirstGameAt:  now,
		LastUpdated:  now,
	}
}

// TopKillType returns the monster type this player has killed most, and
// how many times.
func (s *Stats) TopKillType() (string, int, bool) {
	var bestType string
	best := 0
	for t, n := range s.KillsByType {
		if n > best {
			bestType, best = t, n
		}
	}
	return bestType, best, best > 0
}

// NeedsNicknameRefresh mirrors the reference heuristic: the first
// nickname is earned at 5 kills, and every subsequent one once kills grow
// 50% past the count at the last refresh.
func (s *Stats) NeedsNicknameRefresh() bool {
	if s.KillsAtLastNick == 0 {
		return s.MonstersKilled >= 5
	}
	threshold := int(float64(s.KillsAtLastNick) * 1.5)
	return s.MonstersKilled >= threshold
}

// Registry tracks every player's cross-game Stats, keyed by player id, and
// persists them as a single document through a storage.Store.
type Registry struct {
	mu    sync.Mutex
	stats map[string]*Stats
	store storage.Store
	dirty bool
}

const registryKey = "playerreg/stats"

// NewRegistry creates an empty registry backed by store. Call Load to
// restore persisted stats.
func NewRegistry(store storage.Store) *Registry {
	return &Registry{stats: make(map[string]*Stats), store: store}
}

// Load restores every player's stats from the backing store. A missing
// document is not an error — it means no player has ever been tracked.
func (r *Registry) Load(ctx context.Context) error {
	var doc map[string]*Stats
	if err := r.store.Load(ctx, registryKey, &doc); err != nil {
		if _, ok := err.(*storage.ErrNotFound); ok {
			return nil
		}
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range doc {
		if s.KillsByType == nil {
			s.KillsByType = make(map[string]int)
		}
		r.stats[id] = s
	}
	return nil
}

// Save persists every player's stats as one document, if anything changed
// since the last save.
func (r *Registry) Save(ctx context.Context) error {
	r.mu.Lock()
	if !r.dirty {
		r.mu.Unlock()
		return nil
	}
	doc := make(map[string]*Stats, len(r.stats))
	for id, s := range r.stats {
		doc[id] = s
	}
	r.mu.Unlock()

	if err := r.store.Save(ctx, registryKey, doc); err != nil {
		return err
	}
	r.mu.Lock()
	r.dirty = false
	r.mu.Unlock()
	return nil
}

func (r *Registry) getOrCreateLocked(playerID string) *Stats {
	s, ok := r.stats[playerID]
	if !ok {
		s = newStats(playerID)
		r.stats[playerID] = s
	}
	return s
}

// XPForChallengeRating satisfies game.StatsRecorder; it's a pure function
// of the table above, independent of any player.
func (r *Registry) XPForChallengeRating(cr float64) int { return XPForChallengeRating(cr) }

// RecordKill credits playerID with a monster kill and xp already computed
// by the caller (the game, which knows the monster's exact challenge
// rating at time of death).
func (r *Registry) RecordKill(playerID, monsterType string, xp int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.getOrCreateLocked(playerID)
	s.MonstersKilled++
	s.KillsByType[monsterType]++
	s.ExperienceEarned += xp
	s.LastUpdated = time.Now()
	r.dirty = true
}

// RecordDeath credits playerID with a death.
func (r *Registry) RecordDeath(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.getOrCreateLocked(playerID)
	s.Deaths++
	s.LastUpdated = time.Now()
	r.dirty = true
}

// RecordRoomVisited credits playerID with a first-time room visit.
func (r *Registry) RecordRoomVisited(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.getOrCreateLocked(playerID)
	s.RoomsVisited++
	s.LastUpdated = time.Now()
	r.dirty = true
}

// RecordDamage credits playerID with damage dealt or taken.
func (r *Registry) RecordDamage(playerID string, amount int, dealt, critical bool) {
	if amount <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.getOrCreateLocked(playerID)
	if dealt {
		s.DamageDealt += amount
		if critical {
			s.CriticalHits++
		}
	} else {
		s.DamageTaken += amount
	}
	s.LastUpdated = time.Now()
	r.dirty = true
}

// RecordGameCompleted credits playerID with completing a dungeon.
func (r *Registry) RecordGameCompleted(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.getOrCreateLocked(playerID)
	s.GamesCompleted++
	s.LastUpdated = time.Now()
	r.dirty = true
}

// SetNickname updates a player's generated nickname and resets the kill
// threshold that triggers the next refresh.
func (r *Registry) SetNickname(playerID, nickname string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.getOrCreateLocked(playerID)
	s.Nickname = nickname
	s.KillsAtLastNick = s.MonstersKilled
	s.LastUpdated = time.Now()
	r.dirty = true
}

// Get returns a copy of playerID's stats, if tracked.
func (r *Registry) Get(playerID string) (Stats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[playerID]
	if !ok {
		return Stats{}, false
	}
	return *s, true
}

// LeaderboardEntry is one ranked row in a leaderboard response.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Value    int    `json:"value"`
}

// StatKey names the stat a leaderboard is ranked by.
type StatKey int

const (
	StatMonstersKilled StatKey = iota
	StatRoomsVisited
	StatDamageDealt
	StatGamesCompleted
	StatExperienceEarned
)

func valueFor(s *Stats, key StatKey) int {
	switch key {
	case StatMonstersKilled:
		return s.MonstersKilled
	case StatRoomsVisited:
		return s.RoomsVisited
	case StatDamageDealt:
		return s.DamageDealt
	case StatGamesCompleted:
		return s.GamesCompleted
	case StatExperienceEarned:
		return s.ExperienceEarned
	default:
		return 0
	}
}

// Leaderboard returns the top limit players ranked by key, highest first.
func (r *Registry) Leaderboard(key StatKey, limit int) []LeaderboardEntry {
	r.mu.Lock()
	all := make([]*Stats, 0, len(r.stats))
	for _, s := range r.stats {
		all = append(all, s)
	}
	r.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return valueFor(all[i], key) > valueFor(all[j], key) })
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	entries := make([]LeaderboardEntry, len(all))
	for i, s := range all {
		entries[i] = LeaderboardEntry{PlayerID: s.PlayerID, Nickname: s.Nickname, Value: valueFor(s, key)}
	}
	return entries
}
