package action

import (
	"github.com/0xwonj/dungeon-sim/internal/game/gameerr"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

// ActionCost advances an actor's ready_at by the given cost, scaled by
// their speed classification. It is always authored by primitives.System
// and always emitted by a handler, never directly by a provider.
type ActionCost struct {
	TargetID   primitives.EntityId `json:"target_id"`
	BaseCost   primitives.Tick     `json:"base_cost"`
	SpeedClass string              `json:"speed_class"`
}

func (c *ActionCost) Actor() primitives.EntityId { return primitives.System }
func (c *ActionCost) ActionKind() Kind           { return KindActionCost }
func (c *ActionCost) Cost(env Env, s *state.GameState) primitives.Tick { return 0 }

func (c *ActionCost) scaled(s *state.GameState) uint64 {
	actor, ok := s.Entities.Actor(c.TargetID)
	if !ok {
		return uint64(c.BaseCost)
	}
	bps := actor.Speed.BpsFor(state.SpeedClass(c.SpeedClass))
	return uint64(c.BaseCost) * uint64(bps) / 10000
}

func (c *ActionCost) PreValidate(s *state.GameState, env Env) error {
	if _, ok := s.Entities.Actor(c.TargetID); !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "target not found").WithDetail("target", c.TargetID)
	}
	return nil
}

func (c *ActionCost) Apply(s *state.GameState, env Env) error {
	actor, ok := s.Entities.Actor(c.TargetID)
	if !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "target not found")
	}
	if actor.ReadyAt == nil {
		return nil // deactivated between scheduling and cost application; no-op
	}
	next := actor.ReadyAt.AddSaturating(c.scaled(s))
	actor.ReadyAt = &next
	s.Entities.Actors[c.TargetID] = actor
	return nil
}

func (c *ActionCost) PostValidate(s *state.GameState, env Env) error {
	actor, ok := s.Entities.Actor(c.TargetID)
	if !ok {
		return gameerr.New(gameerr.CodeInvariantViolation, "target vanished")
	}
	if actor.ReadyAt != nil && *actor.ReadyAt < s.Turn.Clock {
		return gameerr.New(gameerr.CodeInvariantViolation, "ready_at moved before clock")
	}
	return nil
}

// Activation recomputes active_actors from proximity to the player,
// using activation_radius from the config oracle.
type Activation struct{}

func (a *Activation) Actor() primitives.EntityId                      { return primitives.System }
func (a *Activation) ActionKind() Kind                                { return KindActivation }
func (a *Activation) Cost(env Env, s *state.GameState) primitives.Tick { return 0 }

func (a *Activation) PreValidate(s *state.GameState, env Env) error {
	if _, ok := s.Entities.Actor(primitives.Player); !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "player not found")
	}
	return nil
}

func (a *Activation) Apply(s *state.GameState, env Env) error {
	player, _ := s.Entities.Actor(primitives.Player)
	radius := env.Oracles.Config.Config().ActivationRadius

	for id, actor := range s.Entities.Actors {
		if id == primitives.Player {
			continue
		}
		withinRange := player.Position.ChebyshevDistance(actor.Position) <= radius
		switch {
		case withinRange && actor.ReadyAt == nil:
			ready := s.Turn.Clock
			actor.ReadyAt = &ready
			s.Entities.Actors[id] = actor
			s.Turn.Activate(id)
		case !withinRange && actor.ReadyAt != nil:
			actor.ReadyAt = nil
			s.Entities.Actors[id] = actor
			s.Turn.Deactivate(id)
		}
	}
	return nil
}

func (a *Activation) PostValidate(s *state.GameState, env Env) error {
	for id, actor := range s.Entities.Actors {
		if actor.IsActive() != s.Turn.IsActive(id) {
			return gameerr.New(gameerr.CodeInvariantViolation, "ready_at/active_actors mismatch").WithDetail("entity", id)
		}
	}
	return nil
}

// PrepareTurn is the scheduler's "select next actor" step exposed as an
// action, so scheduling shows up in the action log and proof stream with
// the same pipeline semantics as any other transition.
type PrepareTurn struct{}

func (p *PrepareTurn) Actor() primitives.EntityId                      { return primitives.System }
func (p *PrepareTurn) ActionKind() Kind                                { return KindPrepareTurn }
func (p *PrepareTurn) Cost(env Env, s *state.GameState) primitives.Tick { return 0 }

func (p *PrepareTurn) selectNext(s *state.GameState) (primitives.EntityId, primitives.Tick, bool) {
	var best primitives.EntityId
	var bestReady primitives.Tick
	found := false
	for id := range s.Turn.ActiveActors {
		actor, ok := s.Entities.Actor(id)
		if !ok || actor.ReadyAt == nil {
			continue
		}
		ready := *actor.ReadyAt
		if !found || ready < bestReady || (ready == bestReady && id < best) {
			best, bestReady, found = id, ready, true
		}
	}
	return best, bestReady, found
}

func (p *PrepareTurn) PreValidate(s *state.GameState, env Env) error {
	if _, _, found := p.selectNext(s); !found {
		return gameerr.New(gameerr.CodeNoActiveEntities, "no active entities to schedule")
	}
	return nil
}

func (p *PrepareTurn) Apply(s *state.GameState, env Env) error {
	id, ready, found := p.selectNext(s)
	if !found {
		return gameerr.New(gameerr.CodeNoActiveEntities, "no active entities to schedule")
	}
	if ready > s.Turn.Clock {
		s.Turn.Clock = ready
	}
	s.Turn.CurrentActor = id
	return nil
}

func (p *PrepareTurn) PostValidate(s *state.GameState, env Env) error {
	if !s.Turn.IsActive(s.Turn.CurrentActor) {
		return gameerr.New(gameerr.CodeInvariantViolation, "current_actor not in active set")
	}
	return nil
}

// RemoveFromActive deactivates an entity: it leaves active_actors and its
// ready_at is cleared, normally triggered by an EntityDied event.
type RemoveFromActive struct {
	TargetID primitives.EntityId `json:"target_id"`
}

func (r *RemoveFromActive) Actor() primitives.EntityId                      { return primitives.System }
func (r *RemoveFromActive) ActionKind() Kind                                { return KindRemoveFromActive }
func (r *RemoveFromActive) Cost(env Env, s *state.GameState) primitives.Tick { return 0 }

func (r *RemoveFromActive) PreValidate(s *state.GameState, env Env) error {
	if _, ok := s.Entities.Actor(r.TargetID); !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "target not found")
	}
	return nil
}

func (r *RemoveFromActive) Apply(s *state.GameState, env Env) error {
	actor, ok := s.Entities.Actor(r.TargetID)
	if !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "target not found")
	}
	actor.ReadyAt = nil
	s.Entities.Actors[r.TargetID] = actor
	s.Turn.Deactivate(r.TargetID)
	return nil
}

func (r *RemoveFromActive) PostValidate(s *state.GameState, env Env) error {
	if s.Turn.IsActive(r.TargetID) {
		return gameerr.New(gameerr.CodeInvariantViolation, "target still active")
	}
	return nil
}

// RemoveFromWorld deletes an entity entirely: it leaves entities,
// active_actors, and the world.
type RemoveFromWorld struct {
	TargetID primitives.EntityId `json:"target_id"`
}

func (r *RemoveFromWorld) Actor() primitives.EntityId                      { return primitives.System }
func (r *RemoveFromWorld) ActionKind() Kind                                { return KindRemoveFromWorld }
func (r *RemoveFromWorld) Cost(env Env, s *state.GameState) primitives.Tick { return 0 }

func (r *RemoveFromWorld) PreValidate(s *state.GameState, env Env) error {
	if _, ok := s.Entities.Actor(r.TargetID); !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "target not found")
	}
	return nil
}

func (r *RemoveFromWorld) Apply(s *state.GameState, env Env) error {
	delete(s.Entities.Actors, r.TargetID)
	s.Turn.Deactivate(r.TargetID)
	return nil
}

func (r *RemoveFromWorld) PostValidate(s *state.GameState, env Env) error {
	if _, ok := s.Entities.Actor(r.TargetID); ok {
		return gameerr.New(gameerr.CodeInvariantViolation, "target still present")
	}
	return nil
}

// Deactivate clears an actor's ready_at without removing it from
// entities (used e.g. when a prop or script deliberately benches an
// NPC), mirroring RemoveFromActive's active-set bookkeeping.
type Deactivate struct {
	TargetID primitives.EntityId `json:"target_id"`
}

func (d *Deactivate) Actor() primitives.EntityId                      { return primitives.System }
func (d *Deactivate) ActionKind() Kind                                { return KindDeactivate }
func (d *Deactivate) Cost(env Env, s *state.GameState) primitives.Tick { return 0 }

func (d *Deactivate) PreValidate(s *state.GameState, env Env) error {
	if _, ok := s.Entities.Actor(d.TargetID); !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "target not found")
	}
	return nil
}

func (d *Deactivate) Apply(s *state.GameState, env Env) error {
	actor, ok := s.Entities.Actor(d.TargetID)
	if !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "target not found")
	}
	actor.ReadyAt = nil
	s.Entities.Actors[d.TargetID] = actor
	s.Turn.Deactivate(d.TargetID)
	return nil
}

func (d *Deactivate) PostValidate(s *state.GameState, env Env) error {
	if s.Turn.IsActive(d.TargetID) {
		return gameerr.New(gameerr.CodeInvariantViolation, "target still active")
	}
	return nil
}
