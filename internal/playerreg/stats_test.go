package playerreg

import (
	"context"
	"testing"

	"github.com/Ko-stant/dungeon-ai-server/internal/storage"
)

func TestXPForChallengeRating(t *testing.T) {
	cases := []struct {
		cr   float64
		want int
	}{
		{0.0, 10},
		{0.125, 25},
		{0.2, 25},
		{0.25, 50},
		{0.5, 100},
		{1.0, 200},
		{8.0, 3900},
		{99.0, 3900},
	}
	for _, c := range cases {
		if got := XPForChallengeRating(c.cr); got != c.want {
			t.Errorf("XPForChallengeRating(%v) = %d, want %d", c.cr, got, c.want)
		}
	}
}

func TestRecordKillAccumulatesAndGrantsXP(t *testing.T) {
	r := NewRegistry(nil)
	r.RecordKill("p1", "goblin", 50)
	r.RecordKill("p1", "goblin", 50)
	r.RecordKill("p1", "kobold", 25)

	stats, ok := r.Get("p1")
	if !ok {
		t.Fatal("expected stats for p1")
	}
	if stats.MonstersKilled != 3 {
		t.Errorf("MonstersKilled = %d, want 3", stats.MonstersKilled)
	}
	if stats.ExperienceEarned != 125 {
		t.Errorf("ExperienceEarned = %d, want 125", stats.ExperienceEarned)
	}
	if stats.KillsByType["goblin"] != 2 {
		t.Errorf("KillsByType[goblin] = %d, want 2", stats.KillsByType["goblin"])
	}

	topType, topCount, ok := stats.TopKillType()
	if !ok || topType != "goblin" || topCount != 2 {
		t.Errorf("TopKillType() = (%s, %d, %v), want (goblin, 2, true)", topType, topCount, ok)
	}
}

func TestRecordDeathAndRoomVisited(t *testing.T) {
	r := NewRegistry(nil)
	r.RecordDeath("p1")
	r.RecordDeath("p1")
	r.RecordRoomVisited("p1")

	stats, _ := r.Get("p1")
	if stats.Deaths != 2 {
		t.Errorf("Deaths = %d, want 2", stats.Deaths)
	}
	if stats.RoomsVisited != 1 {
		t.Errorf("RoomsVisited = %d, want 1", stats.RoomsVisited)
	}
}

func TestRecordDamageTracksDealtTakenAndCrits(t *testing.T) {
	r := NewRegistry(nil)
	r.RecordDamage("p1", 10, true, true)
	r.RecordDamage("p1", 4, false, false)

	stats, _ := r.Get("p1")
	if stats.DamageDealt != 10 {
		t.Errorf("DamageDealt = %d, want 10", stats.DamageDealt)
	}
	if stats.DamageTaken != 4 {
		t.Errorf("DamageTaken = %d, want 4", stats.DamageTaken)
	}
	if stats.CriticalHits != 1 {
		t.Errorf("CriticalHits = %d, want 1", stats.CriticalHits)
	}
}

func TestNeedsNicknameRefresh(t *testing.T) {
	s := newStats("p1")
	if s.NeedsNicknameRefresh() {
		t.Error("fresh stats with zero kills should not need a refresh")
	}
	s.MonstersKilled = 5
	if !s.NeedsNicknameRefresh() {
		t.Error("first nickname threshold (5 kills) should trigger a refresh")
	}
	s.Nickname = "Bob"
	s.KillsAtLastNick = 5
	s.MonstersKilled = 6
	if s.NeedsNicknameRefresh() {
		t.Error("below 1.5x kills-at-last-refresh should not need a refresh yet")
	}
	s.MonstersKilled = 7
	if !s.NeedsNicknameRefresh() {
		t.Error("at 1.5x kills-at-last-refresh should need a refresh")
	}
}

func TestLeaderboardSortsDescending(t *testing.T) {
	r := NewRegistry(nil)
	r.RecordKill("p1", "goblin", 10)
	r.RecordKill("p2", "goblin", 10)
	r.RecordKill("p2", "goblin", 10)
	r.RecordKill("p3", "goblin", 10)
	r.RecordKill("p3", "goblin", 10)
	r.RecordKill("p3", "goblin", 10)

	board := r.Leaderboard(StatMonstersKilled, 2)
	if len(board) != 2 {
		t.Fatalf("len(board) = %d, want 2", len(board))
	}
	if board[0].PlayerID != "p3" || board[0].Value != 3 {
		t.Errorf("board[0] = %+v, want p3 with value 3", board[0])
	}
	if board[1].PlayerID != "p2" || board[1].Value != 2 {
		t.Errorf("board[1] = %+v, want p2 with value 2", board[1])
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	r := NewRegistry(store)
	r.RecordKill("p1", "goblin", 50)
	r.SetNickname("p1", "Wanderer")
	if err := r.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewRegistry(store)
	if err := loaded.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	stats, ok := loaded.Get("p1")
	if !ok {
		t.Fatal("expected p1 to survive a save/load round trip")
	}
	if stats.Nickname != "Wanderer" || stats.MonstersKilled != 1 {
		t.Errorf("loaded stats = %+v", stats)
	}
}

func TestLoadMissingDocumentIsNotAnError(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(store)
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load on an empty store should not error, got %v", err)
	}
}
