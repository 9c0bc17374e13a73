// Package eventbus is a small pub/sub mechanism for game events: combat
// outcomes, room discoveries, deaths. The monster service consumes reward
// events from it; the player registry consumes stat events; nothing in the
// bus knows about either subscriber.
package eventbus

import (
	"sync"
)

// Type enumerates the kinds of event the bus carries.
type Type int

const (
	PlayerJoined Type = iota
	PlayerLeft
	PlayerMoved
	PlayerInteracted
	PlayerEnteredRoom
	PlayerTookDamage
	PlayerDied

	MonsterSpawned
	MonsterMoved
	MonsterAttacked
	MonsterDied

	StateChanged
	MapRegenerated
	GameSaved
	GameLoaded

	DoorOpened
	DoorClosed
	RoomDiscovered

	CombatStarted
	CombatEnded
	DamageDealt
)

func (t Type) String() string {
	switch t {
	case PlayerJoined:
		return "PLAYER_JOINED"
	case PlayerLeft:
		return "PLAYER_LEFT"
	case PlayerMoved:
		return "PLAYER_MOVED"
	case PlayerInteracted:
		return "PLAYER_INTERACTED"
	case PlayerEnteredRoom:
		return "PLAYER_ENTERED_ROOM"
	case PlayerTookDamage:
		return "PLAYER_TOOK_DAMAGE"
	case PlayerDied:
		return "PLAYER_DIED"
	case MonsterSpawned:
		return "MONSTER_SPAWNED"
	case MonsterMoved:
		return "MONSTER_MOVED"
	case MonsterAttacked:
		return "MONSTER_ATTACKED"
	case MonsterDied:
		return "MONSTER_DIED"
	case StateChanged:
		return "STATE_CHANGED"
	case MapRegenerated:
		return "MAP_REGENERATED"
	case GameSaved:
		return "GAME_SAVED"
	case GameLoaded:
		return "GAME_LOADED"
	case DoorOpened:
		return "DOOR_OPENED"
	case DoorClosed:
		return "DOOR_CLOSED"
	case RoomDiscovered:
		return "ROOM_DISCOVERED"
	case CombatStarted:
		return "COMBAT_STARTED"
	case CombatEnded:
		return "COMBAT_ENDED"
	case DamageDealt:
		return "DAMAGE_DEALT"
	default:
		return "UNKNOWN"
	}
}

// AISnapshot captures the (state, action) pair a monster's decision engine
// chose, so a later reward can be applied to the Q-table it came from.
type AISnapshot struct {
	MonsterType string
	StateIndex  int
	HasState    bool
	Action      string
	WorldState  map[string]any
	HPRatio     float64
}

// Event is one published occurrence. Data carries event-specific payload
// fields; callers type-assert the subset they care about.
type Event struct {
	Type        Type
	SourceID    string
	TargetID    string
	GameID      string
	PlayerToken string
	Data        map[string]any
	Snapshot    *AISnapshot
	Reward      float64
	HasReward   bool
}

// Handler processes an event synchronously, on the publisher's goroutine.
type Handler func(Event)

// AsyncHandler processes an event on its own goroutine; Bus waits for all
// async handlers of a Publish call to finish before returning from
// PublishAsync, collecting any panics as logged errors rather than
// propagating them.
type AsyncHandler func(Event)

// HistoryLimit bounds the ring buffer of recent events kept for debugging.
const HistoryLimit = 1000

// ErrorLogger receives handler panics/errors so a bus need not import a
// specific logging package.
type ErrorLogger interface {
	Errorw(msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (noopLogger) Errorw(string, ...interface{}) {}

// Bus is a process-wide pub/sub value; construct one with New and inject it
// into every component that publishes or subscribes, rather than reaching
// for a package-level singleton.
type Bus struct {
	mu       sync.Mutex
	handlers map[Type][]Handler
	async    map[Type][]AsyncHandler
	history  []Event
	logger   ErrorLogger
}

// New builds an empty Bus. logger may be nil, in which case handler errors
// are silently discarded.
func New(logger ErrorLogger) *Bus {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bus{
		handlers: make(map[Type][]Handler),
		async:    make(map[Type][]AsyncHandler),
		logger:   logger,
	}
}

// Subscribe registers a synchronous handler for eventType.
func (b *Bus) Subscribe(eventType Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// SubscribeAsync registers a handler that runs on its own goroutine whenever
// PublishAsync is called.
func (b *Bus) SubscribeAsync(eventType Type, h AsyncHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.async[eventType] = append(b.async[eventType], h)
}

func (b *Bus) record(e Event) {
	b.history = append(b.history, e)
	if len(b.history) > HistoryLimit {
		b.history = b.history[len(b.history)-HistoryLimit:]
	}
}

// Publish emits an event to every synchronous subscriber, in registration
// order, recovering from (and logging) any handler panic so one bad
// subscriber cannot break the publisher.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	b.record(e)
	handlers := append([]Handler(nil), b.handlers[e.Type]...)
	b.mu.Unlock()

	for _, h := range handlers {
		b.safeCall(e, h)
	}
}

func (b *Bus) safeCall(e Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorw("eventbus: handler panic", "event_type", e.Type.String(), "panic", r)
		}
	}()
	h(e)
}

// PublishAsync emits an event to sync subscribers immediately, then fans
// the event out to every async subscriber on its own goroutine and waits
// for all of them to finish before returning.
func (b *Bus) PublishAsync(e Event) {
	b.mu.Lock()
	b.record(e)
	syncHandlers := append([]Handler(nil), b.handlers[e.Type]...)
	asyncHandlers := append([]AsyncHandler(nil), b.async[e.Type]...)
	b.mu.Unlock()

	for _, h := range syncHandlers {
		b.safeCall(e, h)
	}

	if len(asyncHandlers) == 0 {
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(asyncHandlers))
	for _, h := range asyncHandlers {
		go func(h AsyncHandler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Errorw("eventbus: async handler panic", "event_type", e.Type.String(), "panic", r)
				}
			}()
			h(e)
		}(h)
	}
	wg.Wait()
}

// RecentEvents returns up to limit of the most recently published events,
// oldest first, optionally filtered to a single type. limit <= 0 means no
// limit (the full retained history).
func (b *Bus) RecentEvents(eventType Type, hasFilter bool, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var filtered []Event
	if hasFilter {
		for _, e := range b.history {
			if e.Type == eventType {
				filtered = append(filtered, e)
			}
		}
	} else {
		filtered = b.history
	}

	if limit > 0 && limit < len(filtered) {
		filtered = filtered[len(filtered)-limit:]
	}
	return append([]Event(nil), filtered...)
}

// ClearHistory discards the retained event ring buffer.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}
