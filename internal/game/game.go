// Package game is a single running dungeon instance: one procedurally
// generated map, its connected players, its monsters, and the fights
// between them. A single mutex protects all mutable state; operations take
// it for their full duration and release it before any network send.
package game

import (
	"context"
	"sync"
	"time"

	"github.com/Ko-stant/dungeon-ai-server/internal/combat"
	"github.com/Ko-stant/dungeon-ai-server/internal/dungeon"
	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/eventbus"
	"github.com/Ko-stant/dungeon-ai-server/internal/monsterai"
	"github.com/Ko-stant/dungeon-ai-server/internal/protocol"
	"github.com/Ko-stant/dungeon-ai-server/internal/storage"
	"go.uber.org/zap"
)

// Connection is the outgoing half of a player's WebSocket, narrowed to what
// a game instance needs: push an envelope, or close on protocol violation.
// Concrete dialing/reading lives in the transport layer; game never touches
// a socket directly, only this interface, so it can be tested without one.
type Connection interface {
	Send(envelope protocol.ServerEnvelope) error
	Close(reason string)
}

// StatsRecorder is the cross-game player-progress sink: XP-by-challenge-
// rating lookups and kill/death bookkeeping. Game depends on the interface,
// not the package that implements it, so the two can evolve independently.
type StatsRecorder interface {
	XPForChallengeRating(cr float64) int
	RecordKill(playerID, monsterType string, xp int)
	RecordDeath(playerID string)
}

// Config is the set of tunables a Game needs at construction; it is a
// narrow projection of the server's global config, not the whole thing.
type Config struct {
	Width, Height    int
	RoomCount        int
	MinRoomSize      int
	MaxRoomSize      int
	ChestRoomDivisor int

	TickInterval          time.Duration
	AutosaveInterval      time.Duration
	FightTurnDuration     time.Duration
	FightImmunityDuration time.Duration
}

const spawnColorCount = 8

var spawnColors = [spawnColorCount]string{
	"#e74c3c", "#3498db", "#2ecc71", "#f1c40f",
	"#9b59b6", "#e67e22", "#1abc9c", "#ecf0f1",
}

// Game is one dungeon instance: its own map, players, monsters, and fights.
type Game struct {
	ID     string
	Name   string
	cfg    Config
	bus    *eventbus.Bus
	ai     *monsterai.Service
	stats  StatsRecorder
	store  storage.Store
	logger *zap.Logger

	mu            sync.Mutex
	dmap          *dungeon.Map
	players       map[string]*entity.Player
	monsters      map[string]*entity.Monster
	fights        map[string]*combat.Fight
	connections   map[string]Connection
	tokenToPlayer map[string]string
	occupied      map[[2]int]bool
	nextColor     int
	tick          int
	dirty         bool
	lastActivity  time.Time
	createdAt     time.Time
	completed     bool
	completedAt   time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Game. It does not generate or load a map; call
// Initialize for that.
func New(id, name string, cfg Config, bus *eventbus.Bus, ai *monsterai.Service, stats StatsRecorder, store storage.Store, logger *zap.Logger) *Game {
	return &Game{
		ID:            id,
		Name:          name,
		cfg:           cfg,
		bus:           bus,
		ai:            ai,
		stats:         stats,
		store:         store,
		logger:        logger,
		players:       make(map[string]*entity.Player),
		monsters:      make(map[string]*entity.Monster),
		fights:        make(map[string]*combat.Fight),
		connections:   make(map[string]Connection),
		tokenToPlayer: make(map[string]string),
		occupied:      make(map[[2]int]bool),
		createdAt:     time.Now(),
		lastActivity:  time.Now(),
	}
}

// Initialize generates a fresh dungeon (or restores one from storage if
// loadSaveID is non-empty), then starts the tick and autosave loops.
// Restoring from a save that fails to load does not regenerate — the
// caller decides whether to retry with loadSaveID empty. Idempotent: a
// second call with the map already present is a no-op that returns true.
func (g *Game) Initialize(ctx context.Context, loadSaveID string) bool {
	g.mu.Lock()
	if g.dmap != nil {
		g.mu.Unlock()
		return true
	}

	if loadSaveID != "" {
		if g.restoreLocked(ctx, loadSaveID) {
			g.mu.Unlock()
			g.startLoops()
			return true
		}
		g.mu.Unlock()
		return false
	}

	g.dmap = dungeon.Generate(dungeon.Config{
		Width: g.cfg.Width, Height: g.cfg.Height, RoomCount: g.cfg.RoomCount,
		MinRoomSize: g.cfg.MinRoomSize, MaxRoomSize: g.cfg.MaxRoomSize,
		ChestRoomDivisor: g.cfg.ChestRoomDivisor,
	})
	g.mu.Unlock()

	g.startLoops()
	return true
}

func (g *Game) startLoops() {
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel

	g.wg.Add(2)
	go g.tickLoop(ctx)
	go g.autosaveLoop(ctx)
}

// Stop cancels the tick and autosave loops, waits for them to exit, and
// writes a final save.
func (g *Game) Stop(ctx context.Context) {
	if g.cancel != nil {
		g.cancel()
	}
	g.wg.Wait()
	g.save(ctx)
}

func (g *Game) tickLoop(ctx context.Context) {
	defer g.wg.Done()
	interval := g.cfg.TickInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.RunTick()
		}
	}
}

func (g *Game) autosaveLoop(ctx context.Context) {
	defer g.wg.Done()
	interval := g.cfg.AutosaveInterval
	if interval <= 0 {
		interval = 300 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.mu.Lock()
			dirty := g.dirty
			g.mu.Unlock()
			if dirty {
				g.save(ctx)
			}
		}
	}
}

// RunTick advances one monster-AI tick: aggro checks, monster movement,
// monster combat turns, and turn timeouts. It is what the tick loop calls
// on its own schedule, and tests can call it directly.
func (g *Game) RunTick() {
	g.mu.Lock()
	g.tick++
	g.checkCompletionLocked()
	g.mu.Unlock()

	g.checkMonsterAggro()
	g.UpdateMonsters()
	g.ProcessMonsterCombatTurns()
	g.ProcessTurnTimeouts()
}

func (g *Game) markDirty() {
	g.dirty = true
	g.lastActivity = time.Now()
}

// broadcast sends envelope to every currently-connected player. It must
// never be called while g.mu is held: it takes a snapshot of connections
// under the lock, then sends outside it, dropping any connection that
// fails (its player is removed non-permanently and stays on the roster).
func (g *Game) broadcast(envelope protocol.ServerEnvelope) {
	g.mu.Lock()
	conns := make(map[string]Connection, len(g.connections))
	for id, c := range g.connections {
		conns[id] = c
	}
	g.mu.Unlock()

	for playerID, conn := range conns {
		if err := conn.Send(envelope); err != nil {
			g.logDebug("dropping connection for player %s after send failure: %v", playerID, err)
			g.dropConnection(playerID)
		}
	}
}

// SendTo delivers envelope to a single connected player, dropping the
// connection on a send failure exactly as broadcast does. A no-op if the
// player has no live connection.
func (g *Game) SendTo(playerID string, envelope protocol.ServerEnvelope) {
	g.sendTo(playerID, envelope)
}

func (g *Game) sendTo(playerID string, envelope protocol.ServerEnvelope) {
	g.mu.Lock()
	conn, ok := g.connections[playerID]
	g.mu.Unlock()
	if !ok {
		return
	}
	if err := conn.Send(envelope); err != nil {
		g.dropConnection(playerID)
	}
}

func (g *Game) dropConnection(playerID string) {
	g.mu.Lock()
	delete(g.connections, playerID)
	g.mu.Unlock()
	g.RemovePlayer(playerID, false)
}

func (g *Game) logDebug(format string, args ...any) {
	if g.logger == nil {
		return
	}
	g.logger.Sugar().Debugf(format, args...)
}

// LastActivity reports when this game last had a mutation, for the
// registry's inactivity GC.
func (g *Game) LastActivity() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActivity
}

// CreatedAt reports when this game instance was constructed.
func (g *Game) CreatedAt() time.Time { return g.createdAt }

// PlayerCount returns the number of players currently on the roster
// (connected or not).
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

// ActivePlayerCount returns the number of players with a live connection,
// the figure the registry's join limit and lobby listing use.
func (g *Game) ActivePlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.connections)
}

// HasConnections reports whether any player is currently connected, used
// by the registry's inactivity GC (an empty-but-recent game is not idle).
func (g *Game) HasConnections() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.connections) > 0
}

// RemovePlayerByToken drops the connection (and, if still mapped, the
// player behind it) bound to token — used when the registry reassigns a
// player from one game to another.
func (g *Game) RemovePlayerByToken(token string) {
	g.mu.Lock()
	pid, ok := g.tokenToPlayer[token]
	g.mu.Unlock()
	if !ok {
		return
	}
	g.RemovePlayer(pid, true)
}

// IsCompleted reports whether every room has been visited, no monsters
// remain, and the map has at least one room. The first tick this holds
// latches CompletedAt; it never un-latches even if a new monster later
// spawns, matching the "first observation" rule.
func (g *Game) IsCompleted() (bool, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkCompletionLocked()
	return g.completed, g.completedAt
}

func (g *Game) checkCompletionLocked() {
	if g.completed || g.dmap == nil {
		return
	}
	if len(g.dmap.Rooms) == 0 || len(g.monsters) > 0 {
		return
	}
	for _, r := range g.dmap.Rooms {
		if !r.Visited {
			return
		}
	}
	g.completed = true
	g.completedAt = time.Now()
}
