package main

import (
	"context"
	"sync"

	"github.com/Ko-stant/dungeon-ai-server/internal/authn"
	"github.com/Ko-stant/dungeon-ai-server/internal/storage"
)

// profileStore is a minimal, storage-backed stand-in for the external
// account-management service (spec §1 scope: issuing access tokens,
// hashing passwords, and profile CRUD all live outside this repo). It
// exists only so the WebSocket endpoint has something to resolve
// player_token against; a real deployment points authn.Checker at the
// account service's own lookup instead.
type profileStore struct {
	mu       sync.RWMutex
	store    storage.Store
	profiles map[string]authn.Profile
}

const profilesKey = "authn/profiles"

func newProfileStore(store storage.Store) *profileStore {
	return &profileStore{store: store, profiles: make(map[string]authn.Profile)}
}

func (s *profileStore) load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc map[string]authn.Profile
	if err := s.store.Load(ctx, profilesKey, &doc); err != nil {
		if _, ok := err.(*storage.ErrNotFound); ok {
			return nil
		}
		return err
	}
	s.profiles = doc
	return nil
}

// Put registers or updates a profile under its own player_token, and
// persists the change. Called by whatever bootstraps the external
// account service's records into this stand-in.
func (s *profileStore) Put(ctx context.Context, p authn.Profile) error {
	s.mu.Lock()
	s.profiles[p.PlayerToken] = p
	doc := make(map[string]authn.Profile, len(s.profiles))
	for k, v := range s.profiles {
		doc[k] = v
	}
	s.mu.Unlock()
	return s.store.Save(ctx, profilesKey, doc)
}

// FindByToken implements authn.ProfileLookup.
func (s *profileStore) FindByToken(playerToken string) (authn.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[playerToken]
	return p, ok
}
