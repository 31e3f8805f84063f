// Package scheduler implements the turn scheduler's public surface:
// selecting the next actor from the active set in monotonic
// (ready_at, entity_id) order. The actual selection logic
// lives in action.PrepareTurn so that scheduling is itself an auditable,
// replayable transition; this package is a thin, ergonomic wrapper around
// executing that action through an engine.Engine.
package scheduler

import (
	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/engine"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

// Scheduler drives prepare_next_turn over an Engine.
type Scheduler struct {
	eng *engine.Engine
}

// New wraps an Engine.
func New(eng *engine.Engine) *Scheduler { return &Scheduler{eng: eng} }

// PrepareNextTurn selects the entity with the smallest (ready_at, id)
// pair among active_actors, advances the clock to that ready_at, and
// returns the selected entity id alongside the resulting StateDelta.
func (s *Scheduler) PrepareNextTurn(env action.Env) (primitives.EntityId, state.StateDelta, error) {
	delta, err := s.eng.Execute(env, &action.PrepareTurn{})
	if err != nil {
		return 0, state.StateDelta{}, err
	}
	return s.eng.State().Turn.CurrentActor, delta, nil
}
