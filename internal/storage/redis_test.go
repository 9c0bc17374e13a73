package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "dungeonai:")
}

func TestRedisStoreSaveLoadRoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	in := saveDoc{Name: "orc", Count: 7}
	if err := store.Save(ctx, "species/orc", in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var out saveDoc
	if err := store.Load(ctx, "species/orc", &out); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out != in {
		t.Errorf("loaded %+v, want %+v", out, in)
	}
}

func TestRedisStoreLoadMissingReturnsNotFound(t *testing.T) {
	store := newTestRedisStore(t)
	var out saveDoc
	err := store.Load(context.Background(), "missing", &out)
	var notFound *ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStoreListRespectsPrefixNamespace(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	store.Save(ctx, "species/goblin", saveDoc{Name: "goblin"})
	store.Save(ctx, "species/orc", saveDoc{Name: "orc"})
	store.Save(ctx, "games/g1", saveDoc{Name: "g1"})

	keys, err := store.List(ctx, "species/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 species keys, got %v", keys)
	}
	for _, k := range keys {
		if k != "species/goblin" && k != "species/orc" {
			t.Errorf("unexpected key returned without store prefix stripped correctly: %q", k)
		}
	}
}

func TestRedisStoreDeleteRemovesKey(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	store.Save(ctx, "present", saveDoc{Name: "x"})
	if err := store.Delete(ctx, "present"); err != nil {
		t.Fatal(err)
	}
	var out saveDoc
	if err := store.Load(ctx, "present", &out); err == nil {
		t.Error("expected key to be gone after delete")
	}
}
