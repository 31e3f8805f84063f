// Package state implements GameState: the single mutable object the
// engine advances. Every mutation anywhere in the simulation core goes
// through this package's types; nothing here ever touches an oracle,
// which is why clones are cheap and serialization is bit-exact.
package state

import "github.com/0xwonj/dungeon-sim/internal/game/primitives"

// Entities holds every live actor. Props and ground items live in
// WorldState.
type Entities struct {
	Actors map[primitives.EntityId]Actor `json:"actors"`
}

// NewEntities returns an empty Entities set.
func NewEntities() Entities {
	return Entities{Actors: make(map[primitives.EntityId]Actor)}
}

// Actor looks up a live actor by id.
func (e Entities) Actor(id primitives.EntityId) (Actor, bool) {
	a, ok := e.Actors[id]
	return a, ok
}

// Clone deep-copies the entity table.
func (e Entities) Clone() Entities {
	out := Entities{Actors: make(map[primitives.EntityId]Actor, len(e.Actors))}
	for id, a := range e.Actors {
		out.Actors[id] = a.Clone()
	}
	return out
}

// GameState is the sole object mutated by the engine.
type GameState struct {
	Entities Entities  `json:"entities"`
	Turn     TurnState `json:"turn"`
	World    WorldState `json:"world"`
}

// New returns an empty GameState with initialized maps.
func New() GameState {
	return GameState{
		Entities: NewEntities(),
		Turn:     NewTurnState(),
		World:    NewWorldState(),
	}
}

// CloneLightweight is the "before" snapshot the engine takes before
// every Execute call: a full value copy cheap enough to take on every
// action, used for delta diffing, rollback, and proof input.
func (s GameState) CloneLightweight() GameState {
	return GameState{
		Entities: s.Entities.Clone(),
		Turn:     s.Turn.Clone(),
		World:    s.World.Clone(),
	}
}

// ActorFieldFlag is a bitflag for one changed actor field, combined into
// a per-actor change mask in StateDelta.
type ActorFieldFlag uint8

const (
	FlagPosition ActorFieldFlag = 1 << iota
	FlagCoreStats
	FlagResources
	FlagBonuses
	FlagInventory
	FlagReadyAt
	FlagEquipment
)

// Has reports whether flag is set in mask.
func (mask ActorFieldFlag) Has(flag ActorFieldFlag) bool { return mask&flag != 0 }

// ActorDelta is the change mask plus before/after snapshots for one actor,
// used both to build events (package events) and as part of the
// serialized StateDelta.
type ActorDelta struct {
	ID     primitives.EntityId `json:"id"`
	Flags  ActorFieldFlag      `json:"flags"`
	Before Actor               `json:"before"`
	After  Actor               `json:"after"`
}

// StateDelta is the structural diff produced by one engine.Execute call.
type StateDelta struct {
	ActorDeltas    []ActorDelta                  `json:"actor_deltas,omitempty"`
	AddedActors    []primitives.EntityId         `json:"added_actors,omitempty"`
	RemovedActors  []primitives.EntityId         `json:"removed_actors,omitempty"`
	RemovedFromWorld []primitives.EntityId       `json:"removed_from_world,omitempty"`
	ClockBefore    primitives.Tick               `json:"clock_before"`
	ClockAfter     primitives.Tick               `json:"clock_after"`
	NonceBefore    uint64                        `json:"nonce_before"`
	NonceAfter     uint64                        `json:"nonce_after"`
}

// IsEmpty reports whether the delta carries no observable change. System
// actions like PrepareTurn that only move the clock still produce a
// non-empty delta via ClockBefore != ClockAfter.
func (d StateDelta) IsEmpty() bool {
	return len(d.ActorDeltas) == 0 && len(d.AddedActors) == 0 &&
		len(d.RemovedActors) == 0 && len(d.RemovedFromWorld) == 0 &&
		d.ClockBefore == d.ClockAfter && d.NonceBefore == d.NonceAfter
}

// Diff computes the StateDelta between before and after, setting bitflags
// per changed actor field. Diff is pure and must produce identical
// output on host and guest for the same two states.
func Diff(before, after GameState) StateDelta {
	d := StateDelta{
		ClockBefore: before.Turn.Clock,
		ClockAfter:  after.Turn.Clock,
		NonceBefore: before.Turn.ActionNonce,
		NonceAfter:  after.Turn.ActionNonce,
	}

	seen := make(map[primitives.EntityId]struct{})
	for id, a := range before.Entities.Actors {
		seen[id] = struct{}{}
		b, ok := after.Entities.Actors[id]
		if !ok {
			d.RemovedActors = append(d.RemovedActors, id)
			continue
		}
		if ad, changed := diffActor(id, a, b); changed {
			d.ActorDeltas = append(d.ActorDeltas, ad)
		}
	}
	for id, a := range after.Entities.Actors {
		if _, ok := seen[id]; ok {
			continue
		}
		d.AddedActors = append(d.AddedActors, id)
		d.ActorDeltas = append(d.ActorDeltas, ActorDelta{ID: id, Flags: allFlags(), After: a})
	}

	for id := range before.World.Props {
		if _, ok := after.World.Props[id]; !ok {
			d.RemovedFromWorld = append(d.RemovedFromWorld, id)
		}
	}
	for id := range before.World.GroundItems {
		if _, ok := after.World.GroundItems[id]; !ok {
			d.RemovedFromWorld = append(d.RemovedFromWorld, id)
		}
	}

	sortEntityIDs(d.RemovedActors)
	sortEntityIDs(d.AddedActors)
	sortEntityIDs(d.RemovedFromWorld)
	sortActorDeltas(d.ActorDeltas)

	return d
}

func allFlags() ActorFieldFlag {
	return FlagPosition | FlagCoreStats | FlagResources | FlagBonuses | FlagInventory | FlagReadyAt | FlagEquipment
}

func diffActor(id primitives.EntityId, before, after Actor) (ActorDelta, bool) {
	var flags ActorFieldFlag
	if before.Position != after.Position {
		flags |= FlagPosition
	}
	if before.Core != after.Core {
		flags |= FlagCoreStats
	}
	if before.Resources != after.Resources {
		flags |= FlagResources
	}
	if before.Bonuses != after.Bonuses {
		flags |= FlagBonuses
	}
	if !inventoryEqual(before.Inventory, after.Inventory) {
		flags |= FlagInventory
	}
	if !readyAtEqual(before.ReadyAt, after.ReadyAt) {
		flags |= FlagReadyAt
	}
	if !equipmentEqual(before.Equipment, after.Equipment) {
		flags |= FlagEquipment
	}
	if flags == 0 {
		return ActorDelta{}, false
	}
	return ActorDelta{ID: id, Flags: flags, Before: before, After: after}, true
}

func inventoryEqual(a, b []InventoryStack) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func readyAtEqual(a, b *primitives.Tick) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func handleEqual(a, b *primitives.ItemHandle) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equipmentEqual(a, b Equipment) bool {
	return handleEqual(a.Weapon, b.Weapon) && handleEqual(a.Armor, b.Armor) && handleEqual(a.Trinket, b.Trinket)
}

func sortEntityIDs(ids []primitives.EntityId) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

func sortActorDeltas(ds []ActorDelta) {
	for i := 1; i < len(ds); i++ {
		for j := i; j > 0 && ds[j-1].ID > ds[j].ID; j-- {
			ds[j-1], ds[j] = ds[j], ds[j-1]
		}
	}
}
