// Package registry is the central coordinator for every running dungeon
// instance: creation, player routing (explicit id / current / auto-join),
// and the periodic GC sweep that retires inactive or long-completed games.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ko-stant/dungeon-ai-server/internal/eventbus"
	"github.com/Ko-stant/dungeon-ai-server/internal/game"
	"github.com/Ko-stant/dungeon-ai-server/internal/monsterai"
	"github.com/Ko-stant/dungeon-ai-server/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NameGenerator produces a display name for a newly created game when the
// caller doesn't supply one. The narrative name generator is an external
// collaborator (spec §1); a plain fallback keeps the registry usable
// without it wired in.
type NameGenerator interface {
	GenerateGameName(ctx context.Context) string
}

// Config holds the registry's own tunables plus the Game config every
// instance it creates is built with.
type Config struct {
	MaxPlayersPerGame        int
	InactiveTimeout          time.Duration
	CompletedGamePeriod      time.Duration
	CleanupInterval          time.Duration
	GameConfig               game.Config
}

// Registry owns the set of live Game instances. It holds no reference to
// any Game's internal state beyond what Game exposes publicly.
type Registry struct {
	cfg    Config
	bus    *eventbus.Bus
	ai     *monsterai.Service
	stats  game.StatsRecorder
	store  storage.Store
	names  NameGenerator
	logger *zap.Logger

	mu           sync.RWMutex
	games        map[string]*game.Game
	playerToGame map[string]string // token -> game id

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a registry. Call Start to begin its cleanup loop and
// RestoreGames to reload any games persisted by a previous run.
func New(cfg Config, bus *eventbus.Bus, ai *monsterai.Service, stats game.StatsRecorder, store storage.Store, names NameGenerator, logger *zap.Logger) *Registry {
	return &Registry{
		cfg:          cfg,
		bus:          bus,
		ai:           ai,
		stats:        stats,
		store:        store,
		names:        names,
		logger:       logger,
		games:        make(map[string]*game.Game),
		playerToGame: make(map[string]string),
	}
}

// Start begins the periodic cleanup sweep.
func (r *Registry) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	go r.cleanupLoop(cctx)
}

// Stop cancels the cleanup sweep and stops every live game.
func (r *Registry) Stop(ctx context.Context) {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()

	r.mu.RLock()
	games := make([]*game.Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	r.mu.RUnlock()

	for _, g := range games {
		g.Stop(ctx)
	}
}

func (r *Registry) cleanupLoop(ctx context.Context) {
	defer r.wg.Done()
	interval := r.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep removes any game that is completed past its grace period, or has
// no connections and has been idle past the inactivity timeout.
func (r *Registry) sweep(ctx context.Context) {
	now := time.Now()

	r.mu.RLock()
	var toRemove []string
	for id, g := range r.games {
		if completed, completedAt := g.IsCompleted(); completed {
			if !completedAt.IsZero() && now.Sub(completedAt) > r.cfg.CompletedGamePeriod {
				toRemove = append(toRemove, id)
				continue
			}
		}
		if !g.HasConnections() && now.Sub(g.LastActivity()) > r.cfg.InactiveTimeout {
			toRemove = append(toRemove, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range toRemove {
		r.removeGame(ctx, id)
	}
}

func (r *Registry) removeGame(ctx context.Context, gameID string) {
	r.mu.Lock()
	g, ok := r.games[gameID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.games, gameID)
	for token, id := range r.playerToGame {
		if id == gameID {
			delete(r.playerToGame, token)
		}
	}
	r.mu.Unlock()

	g.Stop(ctx)
	if r.logger != nil {
		r.logger.Info("removed game", zap.String("game_id", gameID))
	}
}

func generateGameID() string {
	return uuid.NewString()[:8]
}

// CreateGame constructs, initializes, and registers a brand-new game. An
// empty name is filled in from the registry's NameGenerator, or a plain
// "Dungeon <id>" fallback if none is configured.
func (r *Registry) CreateGame(ctx context.Context, name string) *game.Game {
	id := generateGameID()
	if name == "" {
		if r.names != nil {
			name = r.names.GenerateGameName(ctx)
		} else {
			name = "Dungeon " + id
		}
	}

	g := game.New(id, name, r.cfg.GameConfig, r.bus, r.ai, r.stats, r.store, r.logger)
	g.Initialize(ctx, "")

	r.mu.Lock()
	r.games[id] = g
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("created game", zap.String("game_id", id), zap.String("name", name))
	}
	return g
}

// GetOrCreateJoinableGame returns the first game with room for another
// active player that isn't completed, or creates a fresh one if none
// qualifies.
func (r *Registry) GetOrCreateJoinableGame(ctx context.Context) *game.Game {
	r.mu.RLock()
	for _, g := range r.games {
		if completed, _ := g.IsCompleted(); completed {
			continue
		}
		if g.ActivePlayerCount() < r.cfg.MaxPlayersPerGame {
			r.mu.RUnlock()
			return g
		}
	}
	r.mu.RUnlock()
	return r.CreateGame(ctx, "")
}

// GetGame looks up a game by id.
func (r *Registry) GetGame(gameID string) (*game.Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[gameID]
	return g, ok
}

// GetGameForPlayer looks up the game a player's token currently resolves
// to, for the "current game" routing case.
func (r *Registry) GetGameForPlayer(token string) (*game.Game, bool) {
	r.mu.RLock()
	gameID, ok := r.playerToGame[token]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.GetGame(gameID)
}

// AssignPlayerToGame binds token to gameID, rejecting the assignment if
// the game is full (completed games remain joinable for exploration, per
// the reference behavior). If token was previously bound elsewhere, that
// game's connection is dropped first.
func (r *Registry) AssignPlayerToGame(token, gameID string) error {
	r.mu.Lock()
	g, ok := r.games[gameID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown game %s", gameID)
	}
	completed, _ := g.IsCompleted()
	if !completed && g.ActivePlayerCount() >= r.cfg.MaxPlayersPerGame {
		r.mu.Unlock()
		return fmt.Errorf("game %s is full", gameID)
	}
	previous, hadPrevious := r.playerToGame[token]
	r.playerToGame[token] = gameID
	r.mu.Unlock()

	if hadPrevious && previous != gameID {
		if old, ok := r.GetGame(previous); ok {
			old.RemovePlayerByToken(token)
		}
	}
	return nil
}

// RemovePlayerMapping drops token's game binding entirely, used when a
// player disconnects for good.
func (r *Registry) RemovePlayerMapping(token string) {
	r.mu.Lock()
	delete(r.playerToGame, token)
	r.mu.Unlock()
}

// Info is a lightweight summary of one game, for lobby listings.
type Info struct {
	GameID            string    `json:"game_id"`
	Name              string    `json:"name"`
	PlayerCount       int       `json:"player_count"`
	ActivePlayerCount int       `json:"active_player_count"`
	MaxPlayers        int       `json:"max_players"`
	IsCompleted       bool      `json:"is_completed"`
	IsJoinable        bool      `json:"is_joinable"`
	CreatedAt         time.Time `json:"created_at"`
}

// ListGames returns every registered game, newest first.
func (r *Registry) ListGames() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.games))
	for _, g := range r.games {
		completed, _ := g.IsCompleted()
		active := g.ActivePlayerCount()
		infos = append(infos, Info{
			GameID:            g.ID,
			Name:              g.Name,
			PlayerCount:       g.PlayerCount(),
			ActivePlayerCount: active,
			MaxPlayers:        r.cfg.MaxPlayersPerGame,
			IsCompleted:       completed,
			IsJoinable:        !completed && active < r.cfg.MaxPlayersPerGame,
			CreatedAt:         g.CreatedAt(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.After(infos[j].CreatedAt) })
	return infos
}

// ListJoinableGames filters ListGames to those accepting new players.
func (r *Registry) ListJoinableGames() []Info {
	all := r.ListGames()
	joinable := make([]Info, 0, len(all))
	for _, info := range all {
		if info.IsJoinable {
			joinable = append(joinable, info)
		}
	}
	return joinable
}

// GameCount returns the number of registered games.
func (r *Registry) GameCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// RestoreGames reloads every game save found in storage under the "game:"
// prefix. A save that fails to load is skipped; the registry does not
// retry it.
func (r *Registry) RestoreGames(ctx context.Context) int {
	keys, err := r.store.List(ctx, "game:")
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("failed listing game saves", zap.Error(err))
		}
		return 0
	}

	restored := 0
	for _, key := range keys {
		id := key[len("game:"):]
		g := game.New(id, "", r.cfg.GameConfig, r.bus, r.ai, r.stats, r.store, r.logger)
		if !g.Initialize(ctx, id) {
			if r.logger != nil {
				r.logger.Warn("failed restoring game", zap.String("game_id", id))
			}
			continue
		}
		r.mu.Lock()
		r.games[id] = g
		r.mu.Unlock()
		restored++
	}
	if r.logger != nil {
		r.logger.Info("restored games", zap.Int("count", restored))
	}
	return restored
}
