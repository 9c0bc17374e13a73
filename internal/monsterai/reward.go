package monsterai

import (
	"github.com/Ko-stant/dungeon-ai-server/internal/eventbus"
	"github.com/Ko-stant/dungeon-ai-server/internal/qlearn"
)

func (s *Service) handleDamageEvent(e eventbus.Event) {
	if e.Snapshot == nil || !e.HasReward || e.Reward == 0 {
		return
	}
	s.applyRewardFromSnapshot(*e.Snapshot, e.Reward)
}

func (s *Service) handleMonsterDeath(e eventbus.Event) {
	if e.Snapshot == nil {
		return
	}
	reward := e.Reward
	if !e.HasReward {
		reward = -100.0
	}
	s.applyRewardFromSnapshot(*e.Snapshot, reward)
	s.species.BumpGeneration(e.Snapshot.MonsterType, s.maxGen)
}

// applyRewardFromSnapshot applies a Bellman update to the snapshot's
// species Q-table for the (state, action) pair it recorded, using the
// snapshot's own world state (re-encoded) as the next state. This mirrors
// a monster learning from the outcome of the decision it made a moment
// before the damage/death event fired.
func (s *Service) applyRewardFromSnapshot(snapshot eventbus.AISnapshot, reward float64) {
	if !snapshot.HasState || reward == 0 {
		return
	}
	cfg, ok := s.registry.Get(snapshot.MonsterType)
	if !ok {
		return
	}
	action, ok := parseAction(snapshot.Action)
	if !ok {
		return
	}

	engine := s.engineFor(snapshot.MonsterType, int64(len(snapshot.MonsterType)))
	record := s.species.GetOrCreate(snapshot.MonsterType)

	nextWorld := worldStateFromSnapshotFields(snapshot.WorldState)
	nextWorld.HPRatio = snapshot.HPRatio
	nextStateIndex, _ := engine.EncodeState(nextWorld.toDecisionWorld(cfg.Intelligence))

	before, after := engine.Learn(record.QTable, snapshot.StateIndex, action, reward, nextStateIndex)
	s.species.RecordLearningEvent(snapshot.MonsterType, reward, snapshot.StateIndex, action, before, after)
}

func parseAction(name string) (qlearn.Action, bool) {
	for i := 0; i < qlearn.ActionCount; i++ {
		a := qlearn.Action(i)
		if a.String() == name {
			return a, true
		}
	}
	return 0, false
}
