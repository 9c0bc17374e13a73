// Package decision wires threat memory, personality, and the Q-learning
// agent together into the high-level "brain" a monster consults once per
// decision tick.
package decision

// ThreatType classifies the source of a remembered threat.
type ThreatType string

const (
	ThreatPlayer      ThreatType = "player"
	ThreatTrap        ThreatType = "trap"
	ThreatEnvironment ThreatType = "environment"
	ThreatUnknown     ThreatType = "unknown"
)

// ThreatEvent is a single remembered danger: where it was, how strong it
// felt, and when it was last perceived.
type ThreatEvent struct {
	SourceID   string
	X, Y       int
	Intensity  float64
	Tick       int
	ThreatType ThreatType
}

func (e *ThreatEvent) decay(currentTick int, rate float64) {
	delta := currentTick - e.Tick
	if delta < 0 {
		delta = 0
	}
	factor := 1.0 - rate*float64(delta)
	if factor < 0 {
		factor = 0
	}
	e.Intensity *= factor
	e.Tick = currentTick
}

// ThreatMemory is a finite-capacity, decaying record of recent dangers a
// monster has perceived. Old entries fade and are dropped once their
// intensity becomes negligible.
type ThreatMemory struct {
	Capacity        int
	DecayRate       float64
	Events          []ThreatEvent
	LastUpdatedTick int
}

// NewThreatMemory builds a memory with the reference capacity and decay
// rate (5 slots, 5% intensity loss per tick of staleness).
func NewThreatMemory() *ThreatMemory {
	return &ThreatMemory{Capacity: 5, DecayRate: 0.05}
}

// Remember records a new threat, evicting the oldest entry if the memory
// is already at capacity.
func (m *ThreatMemory) Remember(e ThreatEvent) {
	if len(m.Events) >= m.Capacity {
		m.Events = m.Events[1:]
	}
	m.Events = append(m.Events, e)
}

// Decay ages every remembered event forward to currentTick, dropping any
// whose intensity has fallen to noise level. A no-op if already current.
func (m *ThreatMemory) Decay(currentTick int) {
	if currentTick == m.LastUpdatedTick {
		return
	}
	kept := m.Events[:0]
	for i := range m.Events {
		e := m.Events[i]
		e.decay(currentTick, m.DecayRate)
		if e.Intensity > 0.05 {
			kept = append(kept, e)
		}
	}
	m.Events = kept
	m.LastUpdatedTick = currentTick
}

// MostRecentThreat returns the threat with the highest tick, or nil if
// memory is empty.
func (m *ThreatMemory) MostRecentThreat() *ThreatEvent {
	if len(m.Events) == 0 {
		return nil
	}
	best := &m.Events[0]
	for i := range m.Events[1:] {
		if m.Events[i+1].Tick > best.Tick {
			best = &m.Events[i+1]
		}
	}
	return best
}

// StrongestThreat returns the highest-intensity remembered threat, or nil
// if memory is empty.
func (m *ThreatMemory) StrongestThreat() *ThreatEvent {
	if len(m.Events) == 0 {
		return nil
	}
	best := &m.Events[0]
	for i := range m.Events[1:] {
		if m.Events[i+1].Intensity > best.Intensity {
			best = &m.Events[i+1]
		}
	}
	return best
}

// ShareWith blends a scaled copy of every remembered event into other,
// letting packmates of a monster inherit a faded sense of what it has
// seen.
func (m *ThreatMemory) ShareWith(other *ThreatMemory, blend float64) {
	if len(m.Events) == 0 {
		return
	}
	if blend < 0 {
		blend = 0
	}
	if blend > 1 {
		blend = 1
	}
	for _, e := range m.Events {
		other.Remember(ThreatEvent{
			SourceID: e.SourceID, X: e.X, Y: e.Y,
			Intensity: e.Intensity * blend, Tick: e.Tick, ThreatType: e.ThreatType,
		})
	}
}
