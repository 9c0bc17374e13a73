package decision

import "testing"

func TestThreatMemoryEvictsOldestAtCapacity(t *testing.T) {
	m := &ThreatMemory{Capacity: 2, DecayRate: 0.05}
	m.Remember(ThreatEvent{SourceID: "a", Tick: 1, Intensity: 1})
	m.Remember(ThreatEvent{SourceID: "b", Tick: 2, Intensity: 1})
	m.Remember(ThreatEvent{SourceID: "c", Tick: 3, Intensity: 1})

	if len(m.Events) != 2 {
		t.Fatalf("expected capacity-bounded memory, got %d events", len(m.Events))
	}
	if m.Events[0].SourceID != "b" {
		t.Errorf("oldest event should have been evicted, got %+v", m.Events)
	}
}

func TestThreatMemoryDecayDropsWeakEvents(t *testing.T) {
	m := NewThreatMemory()
	m.Remember(ThreatEvent{SourceID: "a", Tick: 0, Intensity: 0.1})
	m.Decay(20) // 20 ticks * 5%/tick decay should wipe out a weak event

	if len(m.Events) != 0 {
		t.Errorf("expected weak event to decay away, got %+v", m.Events)
	}
}

func TestThreatMemoryDecayIsNoOpSameTick(t *testing.T) {
	m := NewThreatMemory()
	m.Remember(ThreatEvent{SourceID: "a", Tick: 5, Intensity: 1.0})
	m.LastUpdatedTick = 5
	m.Decay(5)
	if m.Events[0].Intensity != 1.0 {
		t.Error("decay should not apply twice for the same tick")
	}
}

func TestStrongestAndMostRecentThreat(t *testing.T) {
	m := NewThreatMemory()
	m.Remember(ThreatEvent{SourceID: "weak-old", Tick: 1, Intensity: 0.2})
	m.Remember(ThreatEvent{SourceID: "strong-recent", Tick: 5, Intensity: 0.9})

	if got := m.StrongestThreat(); got.SourceID != "strong-recent" {
		t.Errorf("StrongestThreat = %v, want strong-recent", got.SourceID)
	}
	if got := m.MostRecentThreat(); got.SourceID != "strong-recent" {
		t.Errorf("MostRecentThreat = %v, want strong-recent", got.SourceID)
	}
}

func TestShareWithScalesIntensity(t *testing.T) {
	source := NewThreatMemory()
	source.Remember(ThreatEvent{SourceID: "a", Tick: 1, Intensity: 1.0})

	dest := NewThreatMemory()
	source.ShareWith(dest, 0.5)

	if len(dest.Events) != 1 || dest.Events[0].Intensity != 0.5 {
		t.Errorf("shared event should be scaled by blend factor, got %+v", dest.Events)
	}
}
