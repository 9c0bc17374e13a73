package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestPublishCallsSubscribersInRegistrationOrder(t *testing.T) {
	b := New(nil)
	var order []int
	b.Subscribe(PlayerMoved, func(Event) { order = append(order, 1) })
	b.Subscribe(PlayerMoved, func(Event) { order = append(order, 2) })

	b.Publish(Event{Type: PlayerMoved})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("call order = %v, want [1 2]", order)
	}
}

func TestPublishOnlyInvokesMatchingType(t *testing.T) {
	b := New(nil)
	called := false
	b.Subscribe(PlayerDied, func(Event) { called = true })

	b.Publish(Event{Type: PlayerMoved})

	if called {
		t.Error("a handler subscribed to a different event type should not run")
	}
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	b := New(nil)
	after := false
	b.Subscribe(PlayerMoved, func(Event) { panic("boom") })
	b.Subscribe(PlayerMoved, func(Event) { after = true })

	b.Publish(Event{Type: PlayerMoved})

	if !after {
		t.Error("a panicking handler should not prevent later handlers from running")
	}
}

func TestPublishAsyncWaitsForAsyncHandlers(t *testing.T) {
	b := New(nil)
	var count int32
	for i := 0; i < 5; i++ {
		b.SubscribeAsync(DamageDealt, func(Event) { atomic.AddInt32(&count, 1) })
	}

	b.PublishAsync(Event{Type: DamageDealt})

	if atomic.LoadInt32(&count) != 5 {
		t.Errorf("count = %d, want 5 (PublishAsync should block until every async handler finishes)", count)
	}
}

func TestPublishAsyncRecoversHandlerPanic(t *testing.T) {
	b := New(nil)
	var wg sync.WaitGroup
	wg.Add(1)
	b.SubscribeAsync(MonsterDied, func(Event) { panic("boom") })
	b.SubscribeAsync(MonsterDied, func(Event) { wg.Done() })

	b.PublishAsync(Event{Type: MonsterDied})
	wg.Wait()
}

func TestRecentEventsFiltersByType(t *testing.T) {
	b := New(nil)
	b.Publish(Event{Type: PlayerMoved, SourceID: "a"})
	b.Publish(Event{Type: PlayerDied, SourceID: "b"})
	b.Publish(Event{Type: PlayerMoved, SourceID: "c"})

	moved := b.RecentEvents(PlayerMoved, true, 0)
	if len(moved) != 2 {
		t.Fatalf("len(moved) = %d, want 2", len(moved))
	}
	if moved[0].SourceID != "a" || moved[1].SourceID != "c" {
		t.Errorf("moved = %+v, want sources [a c] oldest first", moved)
	}

	all := b.RecentEvents(0, false, 0)
	if len(all) != 3 {
		t.Errorf("len(all) = %d, want 3", len(all))
	}
}

func TestRecentEventsRespectsLimit(t *testing.T) {
	b := New(nil)
	for i := 0; i < 5; i++ {
		b.Publish(Event{Type: PlayerMoved})
	}
	limited := b.RecentEvents(0, false, 2)
	if len(limited) != 2 {
		t.Errorf("len(limited) = %d, want 2", len(limited))
	}
}

func TestClearHistoryEmptiesRecentEvents(t *testing.T) {
	b := New(nil)
	b.Publish(Event{Type: PlayerMoved})
	b.ClearHistory()

	if got := b.RecentEvents(0, false, 0); len(got) != 0 {
		t.Errorf("len(got) = %d, want 0 after ClearHistory", len(got))
	}
}
