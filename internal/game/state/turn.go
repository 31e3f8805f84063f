package state

import "github.com/0xwonj/dungeon-sim/internal/game/primitives"

// TurnState tracks scheduling progress.
type TurnState struct {
	Clock         primitives.Tick                `json:"clock"`
	ActiveActors  map[primitives.EntityId]struct{} `json:"active_actors"`
	CurrentActor  primitives.EntityId            `json:"current_actor"`
	ActionNonce   uint64                         `json:"action_nonce"`
}

// NewTurnState returns a zeroed TurnState with an initialized active set.
func NewTurnState() TurnState {
	return TurnState{ActiveActors: make(map[primitives.EntityId]struct{})}
}

// Clone deep-copies the turn state.
func (t TurnState) Clone() TurnState {
	out := t
	out.ActiveActors = make(map[primitives.EntityId]struct{}, len(t.ActiveActors))
	for id := range t.ActiveActors {
		out.ActiveActors[id] = struct{}{}
	}
	return out
}

// IsActive reports whether id is in the active set.
func (t TurnState) IsActive(id primitives.EntityId) bool {
	_, ok := t.ActiveActors[id]
	return ok
}

// Activate adds id to the active set.
func (t *TurnState) Activate(id primitives.EntityId) { t.ActiveActors[id] = struct{}{} }

// Deactivate removes id from the active set.
func (t *TurnState) Deactivate(id primitives.EntityId) { delete(t.ActiveActors, id) }

// NextNonce increments and returns the new action_nonce, which is
// strictly monotonic across all accepted actions.
func (t *TurnState) NextNonce() uint64 {
	t.ActionNonce++
	return t.ActionNonce
}
