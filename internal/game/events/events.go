// Package events implements event extraction: diffing before/after
// GameState plus the StateDelta that produced them into a bounded,
// stably ordered sequence of GameEvent. Extraction is pure and
// read-only; it never feeds back into the engine directly, only into
// package handler, which turns events into follow-up system actions.
package events

import (
	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

// Kind discriminates the concrete GameEvent variants.
type Kind string

const (
	KindActionCompleted       Kind = "ActionCompleted"
	KindEntityMoved           Kind = "EntityMoved"
	KindDamageTaken           Kind = "DamageTaken"
	KindEntityDied            Kind = "EntityDied"
	KindHealthThresholdCrossed Kind = "HealthThresholdCrossed"
	KindEntityRemovedFromActive Kind = "EntityRemovedFromActive"
	KindReadyAtUpdated        Kind = "ReadyAtUpdated"
)

// priority fixes the within-entity tie-break used by the stable sort
// below: entity id ascending, then a fixed event-kind priority.
// ActionCompleted sorts first among events carrying its actor's entity
// id.
func (k Kind) priority() int {
	switch k {
	case KindActionCompleted:
		return 0
	case KindEntityMoved:
		return 1
	case KindDamageTaken:
		return 2
	case KindEntityDied:
		return 3
	case KindHealthThresholdCrossed:
		return 4
	case KindEntityRemovedFromActive:
		return 5
	case KindReadyAtUpdated:
		return 6
	default:
		return 99
	}
}

// GameEvent is the common interface every event variant satisfies, enough
// for Extract to sort and for package handler to dispatch on Kind.
type GameEvent interface {
	Kind() Kind
	EntityID() primitives.EntityId
}

// ActionCompleted is emitted exactly once per Extract call, for the
// action that was just executed.
type ActionCompleted struct {
	Actor  primitives.EntityId `json:"actor"`
	Action action.Kind         `json:"action"`
	Cost   primitives.Tick     `json:"cost"`
}

func (e ActionCompleted) Kind() Kind                     { return KindActionCompleted }
func (e ActionCompleted) EntityID() primitives.EntityId { return e.Actor }

// EntityMoved fires when FlagPosition is set in an ActorDelta.
type EntityMoved struct {
	Entity primitives.EntityId `json:"entity"`
	From   primitives.Position `json:"from"`
	To     primitives.Position `json:"to"`
}

func (e EntityMoved) Kind() Kind                     { return KindEntityMoved }
func (e EntityMoved) EntityID() primitives.EntityId { return e.Entity }

// DamageTaken fires when an actor's HP current value drops. Source is the
// attacking entity when Extract is called on an Attack action, primitives.
// System otherwise (e.g. environmental or script-driven damage).
type DamageTaken struct {
	Entity   primitives.EntityId `json:"entity"`
	Source   primitives.EntityId `json:"source"`
	Amount   uint32              `json:"amount"`
	HPBefore uint32              `json:"hp_before"`
	HPAfter  uint32              `json:"hp_after"`
}

func (e DamageTaken) Kind() Kind                     { return KindDamageTaken }
func (e DamageTaken) EntityID() primitives.EntityId { return e.Entity }

// EntityDied fires the one time an actor's HP transitions into depleted.
type EntityDied struct {
	Entity   primitives.EntityId `json:"entity"`
	Position primitives.Position `json:"position"`
}

func (e EntityDied) Kind() Kind                     { return KindEntityDied }
func (e EntityDied) EntityID() primitives.EntityId { return e.Entity }

// HealthThresholdCrossed fires whenever an actor's HP bucket changes,
// independent of EntityDied.
type HealthThresholdCrossed struct {
	Entity primitives.EntityId   `json:"entity"`
	From   primitives.HealthBucket `json:"from"`
	To     primitives.HealthBucket `json:"to"`
}

func (e HealthThresholdCrossed) Kind() Kind                     { return KindHealthThresholdCrossed }
func (e HealthThresholdCrossed) EntityID() primitives.EntityId { return e.Entity }

// EntityRemovedFromActive fires when ready_at transitions from set to nil,
// whether via RemoveFromActive, Deactivate, or RemoveFromWorld.
type EntityRemovedFromActive struct {
	Entity primitives.EntityId `json:"entity"`
}

func (e EntityRemovedFromActive) Kind() Kind                     { return KindEntityRemovedFromActive }
func (e EntityRemovedFromActive) EntityID() primitives.EntityId { return e.Entity }

// ReadyAtUpdated fires whenever ready_at changes but does not clear to nil
// (i.e. activation or an ActionCost bump), carrying both endpoints.
type ReadyAtUpdated struct {
	Entity primitives.EntityId `json:"entity"`
	Old    *primitives.Tick    `json:"old"`
	New    primitives.Tick     `json:"new"`
}

func (e ReadyAtUpdated) Kind() Kind                     { return KindReadyAtUpdated }
func (e ReadyAtUpdated) EntityID() primitives.EntityId { return e.Entity }

// attackSource returns the entity responsible for damage dealt by a, if
// identifiable; otherwise primitives.System.
func attackSource(a action.Action) primitives.EntityId {
	if atk, ok := a.(*action.Attack); ok {
		return atk.ActorID
	}
	return primitives.System
}

// appliedCost reports the ready_at advance this execution applied to its
// own actor (for ActionCost, to its target), if any. Character actions
// normally carry no cost of their own (the handler chain schedules a
// follow-up ActionCost); this mainly surfaces ActionCost's own effect on
// its target.
func appliedCost(a action.Action, delta state.StateDelta) primitives.Tick {
	target := a.Actor()
	if ac, ok := a.(*action.ActionCost); ok {
		target = ac.TargetID
	}
	for _, ad := range delta.ActorDeltas {
		if ad.ID != target || !ad.Flags.Has(state.FlagReadyAt) || ad.After.ReadyAt == nil {
			continue
		}
		var before uint64
		if ad.Before.ReadyAt != nil {
			before = uint64(*ad.Before.ReadyAt)
		}
		after := uint64(*ad.After.ReadyAt)
		if after <= before {
			return 0
		}
		return primitives.Tick(after - before)
	}
	return 0
}

// Extract diffs before/after plus the StateDelta that Engine.Execute
// already computed into an ordered GameEvent sequence. It never
// re-derives the diff itself, only reads it.
func Extract(before state.GameState, a action.Action, after state.GameState, delta state.StateDelta) []GameEvent {
	var out []GameEvent

	out = append(out, ActionCompleted{
		Actor:  a.Actor(),
		Action: a.ActionKind(),
		Cost:   appliedCost(a, delta),
	})

	source := attackSource(a)

	for _, ad := range delta.ActorDeltas {
		if ad.Flags.Has(state.FlagPosition) {
			out = append(out, EntityMoved{Entity: ad.ID, From: ad.Before.Position, To: ad.After.Position})
		}

		if ad.Flags.Has(state.FlagResources) {
			hpBefore := ad.Before.Resources.HP
			hpAfter := ad.After.Resources.HP
			if hpAfter.Current < hpBefore.Current {
				out = append(out, DamageTaken{
					Entity:   ad.ID,
					Source:   source,
					Amount:   hpBefore.Current - hpAfter.Current,
					HPBefore: hpBefore.Current,
					HPAfter:  hpAfter.Current,
				})
			}
			if hpAfter.IsDepleted() && !hpBefore.IsDepleted() {
				out = append(out, EntityDied{Entity: ad.ID, Position: ad.After.Position})
			}
			if beforeBucket, afterBucket := hpBefore.Bucket(), hpAfter.Bucket(); beforeBucket != afterBucket {
				out = append(out, HealthThresholdCrossed{Entity: ad.ID, From: beforeBucket, To: afterBucket})
			}
		}

		if ad.Flags.Has(state.FlagReadyAt) {
			switch {
			case ad.After.ReadyAt == nil && ad.Before.ReadyAt != nil:
				out = append(out, EntityRemovedFromActive{Entity: ad.ID})
			case ad.After.ReadyAt != nil:
				out = append(out, ReadyAtUpdated{Entity: ad.ID, Old: ad.Before.ReadyAt, New: *ad.After.ReadyAt})
			}
		}
	}

	for _, id := range delta.RemovedActors {
		out = append(out, EntityRemovedFromActive{Entity: id})
	}

	stableSort(out)
	return out
}

// stableSort orders events by entity id ascending, then by Kind's fixed
// priority, using an insertion sort so ties preserve the append order
// above.
func stableSort(evs []GameEvent) {
	for i := 1; i < len(evs); i++ {
		for j := i; j > 0 && less(evs[j], evs[j-1]); j-- {
			evs[j-1], evs[j] = evs[j], evs[j-1]
		}
	}
}

func less(a, b GameEvent) bool {
	if a.EntityID() != b.EntityID() {
		return a.EntityID() < b.EntityID()
	}
	return a.Kind().priority() < b.Kind().priority()
}
