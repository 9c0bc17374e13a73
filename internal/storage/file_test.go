package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type saveDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	in := saveDoc{Name: "goblin", Count: 3}
	if err := store.Save(ctx, "species/goblin", in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var out saveDoc
	if err := store.Load(ctx, "species/goblin", &out); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out != in {
		t.Errorf("loaded %+v, want %+v", out, in)
	}
}

func TestFileStoreLoadMissingReturnsNotFound(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var out saveDoc
	err = store.Load(context.Background(), "nothing-here", &out)
	var notFound *ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.Save(ctx, "game1", saveDoc{Name: "a"}); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "game1.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file should not remain after a successful save")
	}
}

func TestFileStoreDeleteIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("deleting a missing key should not error, got %v", err)
	}

	store.Save(ctx, "present", saveDoc{Name: "x"})
	if err := store.Delete(ctx, "present"); err != nil {
		t.Fatal(err)
	}
	var out saveDoc
	if err := store.Load(ctx, "present", &out); err == nil {
		t.Error("expected key to be gone after delete")
	}
}

func TestFileStoreListFiltersByPrefixAndSkipsTemp(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
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
}
