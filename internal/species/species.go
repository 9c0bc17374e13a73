// Package species maintains shared Q-learning knowledge per monster
// species: every monster of a given type reads and writes the same
// Q-table, so a goblin's death teaches every future goblin.
package species

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ko-stant/dungeon-ai-server/internal/qlearn"
	"github.com/Ko-stant/dungeon-ai-server/internal/storage"
)

// SchemaVersion must be bumped whenever the state space's dimensions
// change; a stored record with a stale version is discarded rather than
// reshaped, since its bin semantics no longer mean the same thing.
const SchemaVersion = 3

// HistoryLimit caps how many learning events are kept per species.
const HistoryLimit = 1000

// HistoryEntry is one recorded learning step, used for evolution
// visualization and debugging.
type HistoryEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Generation   int       `json:"generation"`
	Reward       float64   `json:"reward"`
	StateIndex   int       `json:"stateIndex"`
	Action       string    `json:"action"`
	QValueBefore float32   `json:"qValueBefore"`
	QValueAfter  float32   `json:"qValueAfter"`
}

// Record is one species' complete learned knowledge.
type Record struct {
	MonsterType        string         `json:"monsterType"`
	Generation         int            `json:"generation"`
	Encounters         int            `json:"encounters"`
	TotalLearningSteps int            `json:"totalLearningSteps"`
	SchemaVersion      int            `json:"schemaVersion"`
	QTable             []float32      `json:"qTable"`
	History            []HistoryEntry `json:"-"`

	mu           sync.Mutex
	historyDirty bool
}

func newRecord(monsterType string) *Record {
	return &Record{
		MonsterType:   monsterType,
		SchemaVersion: SchemaVersion,
		QTable:        qlearn.NewTable(),
	}
}

// addHistoryEntry appends a learning event, trimming to HistoryLimit.
func (r *Record) addHistoryEntry(e HistoryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.History = append(r.History, e)
	r.historyDirty = true
	if len(r.History) > HistoryLimit {
		r.History = r.History[len(r.History)-HistoryLimit:]
	}
}

// persistedRecord is the on-disk shape for a species' main knowledge
// document; history is stored in a separate document so the hot Q-table
// file stays small and fast to load.
type persistedRecord struct {
	MonsterType        string    `json:"monsterType"`
	Generation         int       `json:"generation"`
	Encounters         int       `json:"encounters"`
	TotalLearningSteps int       `json:"totalLearningSteps"`
	SchemaVersion      int       `json:"schemaVersion"`
	QTable             []float32 `json:"qTable"`
}

type persistedHistory struct {
	MonsterType   string         `json:"monsterType"`
	SchemaVersion int            `json:"schemaVersion"`
	History       []HistoryEntry `json:"history"`
}

// Store owns the shared Q-table for every monster species encountered,
// and persists it through a storage.Store backend.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	backend storage.Store
}

// NewStore creates an empty species store backed by backend. Call Load to
// restore persisted knowledge.
func NewStore(backend storage.Store) *Store {
	return &Store{records: make(map[string]*Record), backend: backend}
}

func knowledgeKey(monsterType string) string { return "species/" + monsterType }
func historyKey(monsterType string) string   { return "species_history/" + monsterType }

// Load restores every previously persisted species record whose key is
// listed under the backend's "species/" prefix. Records with a stale
// SchemaVersion are dropped rather than migrated structurally, since a
// dimension change invalidates their bin semantics; a table-shape
// mismatch within the same schema version is still repaired via
// migrateShape.
func (s *Store) Load(ctx context.Context) error {
	keys, err := s.backend.List(ctx, "species/")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		monsterType := key[len("species/"):]
		var persisted persistedRecord
		if err := s.backend.Load(ctx, key, &persisted); err != nil {
			continue
		}
		if persisted.SchemaVersion != SchemaVersion {
			continue
		}

		record := &Record{
			MonsterType:        monsterType,
			Generation:         persisted.Generation,
			Encounters:         persisted.Encounters,
			TotalLearningSteps: persisted.TotalLearningSteps,
			SchemaVersion:      SchemaVersion,
			QTable:             migrateShape(persisted.QTable),
		}
		s.records[monsterType] = record
	}
	return nil
}

// migrateShape copies as much of an old Q-table as fits into a
// freshly-sized one, preserving learned values for any state/action pair
// present in both the old and new encoder shape.
func migrateShape(old []float32) []float32 {
	target := qlearn.NewTable()
	if len(old) == len(target) {
		copy(target, old)
		return target
	}
	n := len(old)
	if len(target) < n {
		n = len(target)
	}
	copy(target, old[:n])
	return target
}

// GetOrCreate returns the shared record for monsterType, creating a fresh
// zeroed Q-table if this is the first time the species is seen.
func (s *Store) GetOrCreate(monsterType string) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[monsterType]; ok {
		return r
	}
	r := newRecord(monsterType)
	s.records[monsterType] = r
	return r
}

// BumpGeneration increments a species' generation counter, capped at
// maxGeneration so a very long-lived server doesn't let generation drift
// unboundedly. maxGeneration <= 0 means uncapped.
func (s *Store) BumpGeneration(monsterType string, maxGeneration int) {
	s.mu.RLock()
	r, ok := s.records[monsterType]
	s.mu.RUnlock()
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if maxGeneration > 0 && r.Generation >= maxGeneration {
		return
	}
	r.Generation++
}

// RecordLearningEvent appends a learning-history entry for monsterType.
func (s *Store) RecordLearningEvent(monsterType string, reward float64, stateIndex int, action qlearn.Action, before, after float32) {
	s.mu.RLock()
	r, ok := s.records[monsterType]
	s.mu.RUnlock()
	if !ok {
		return
	}
	r.addHistoryEntry(HistoryEntry{
		Generation: r.Generation, Reward: reward, StateIndex: stateIndex,
		Action: action.String(), QValueBefore: before, QValueAfter: after,
	})
	r.mu.Lock()
	r.TotalLearningSteps++
	r.mu.Unlock()
}

// History returns a species' learning history, newest last. limit <= 0
// returns the full (capped) history.
func (s *Store) History(monsterType string, limit int) []HistoryEntry {
	s.mu.RLock()
	r, ok := s.records[monsterType]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > 0 && limit < len(r.History) {
		return append([]HistoryEntry(nil), r.History[len(r.History)-limit:]...)
	}
	return append([]HistoryEntry(nil), r.History...)
}

// Reset discards all learned knowledge for a species but keeps its
// generation counter, used when an operator wants to retrain a species
// from scratch without losing evolutionary progress tracking.
func (s *Store) Reset(monsterType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := 0
	if r, ok := s.records[monsterType]; ok {
		gen = r.Generation
	}
	r := newRecord(monsterType)
	r.Generation = gen
	s.records[monsterType] = r
}

// Save persists every species record, and its history if changed since
// the last save.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	records := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	s.mu.RUnlock()

	for _, r := range records {
		r.mu.Lock()
		persisted := persistedRecord{
			MonsterType: r.MonsterType, Generation: r.Generation,
			Encounters: r.Encounters, TotalLearningSteps: r.TotalLearningSteps,
			SchemaVersion: SchemaVersion, QTable: r.QTable,
		}
		dirty := r.historyDirty
		history := append([]HistoryEntry(nil), r.History...)
		r.mu.Unlock()

		if err := s.backend.Save(ctx, knowledgeKey(r.MonsterType), persisted); err != nil {
			return fmt.Errorf("save species %s: %w", r.MonsterType, err)
		}
		if dirty {
			if err := s.backend.Save(ctx, historyKey(r.MonsterType), persistedHistory{
				MonsterType: r.MonsterType, SchemaVersion: SchemaVersion, History: history,
			}); err != nil {
				return fmt.Errorf("save species history %s: %w", r.MonsterType, err)
			}
			r.mu.Lock()
			r.historyDirty = false
			r.mu.Unlock()
		}
	}
	return nil
}
