package action

import (
	"github.com/0xwonj/dungeon-sim/internal/game/gameerr"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

// Direction is one of the four cardinal movement directions.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

func (d Direction) delta() (int32, int32) {
	switch d {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	case West:
		return -1, 0
	default:
		return 0, 0
	}
}

// Move relocates the actor one tile in a cardinal direction.
type Move struct {
	ActorID   primitives.EntityId `json:"actor_id"`
	Direction Direction           `json:"direction"`
}

func (m *Move) Actor() primitives.EntityId { return m.ActorID }
func (m *Move) ActionKind() Kind           { return KindMove }

func (m *Move) Cost(env Env, s *state.GameState) primitives.Tick {
	return primitives.Tick(env.Oracles.Tables.Tables().Movement.BaseCost)
}

func (m *Move) target(s *state.GameState) (state.Actor, primitives.Position, bool) {
	actor, ok := s.Entities.Actor(m.ActorID)
	if !ok {
		return state.Actor{}, primitives.Position{}, false
	}
	dx, dy := m.Direction.delta()
	return actor, actor.Position.Add(dx, dy), true
}

func (m *Move) PreValidate(s *state.GameState, env Env) error {
	actor, ok := s.Entities.Actor(m.ActorID)
	if !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "actor not found").WithDetail("actor", m.ActorID)
	}
	dx, dy := m.Direction.delta()
	dest := actor.Position.Add(dx, dy)

	width, height := env.Oracles.Map.Dimensions()
	if dest.X < 0 || dest.Y < 0 || dest.X >= width || dest.Y >= height {
		return gameerr.New(gameerr.CodeOutOfBounds, "destination outside map bounds").WithDetail("position", dest)
	}
	if tile, ok := env.Oracles.Map.TileAt(dest); ok && tile.Terrain == 1 /* wall */ {
		return gameerr.New(gameerr.CodeBlocked, "destination is a wall").WithDetail("position", dest)
	}
	for _, a := range s.Entities.Actors {
		if a.ID != m.ActorID && a.Position == dest {
			return gameerr.New(gameerr.CodeBlocked, "destination occupied").WithDetail("position", dest)
		}
	}
	return nil
}

func (m *Move) Apply(s *state.GameState, env Env) error {
	actor, dest, ok := m.target(s)
	if !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "actor not found")
	}
	actor.Position = dest
	s.Entities.Actors[m.ActorID] = actor
	return nil
}

func (m *Move) PostValidate(s *state.GameState, env Env) error {
	actor, ok := s.Entities.Actor(m.ActorID)
	if !ok {
		return gameerr.New(gameerr.CodeInvariantViolation, "actor vanished during move")
	}
	width, height := env.Oracles.Map.Dimensions()
	if actor.Position.X < 0 || actor.Position.Y < 0 || actor.Position.X >= width || actor.Position.Y >= height {
		return gameerr.New(gameerr.CodeInvariantViolation, "actor left map bounds")
	}
	return nil
}

// Wait passes the actor's turn doing nothing but incurring a fixed cost.
type Wait struct {
	ActorID primitives.EntityId `json:"actor_id"`
}

func (w *Wait) Actor() primitives.EntityId { return w.ActorID }
func (w *Wait) ActionKind() Kind           { return KindWait }

func (w *Wait) Cost(env Env, s *state.GameState) primitives.Tick {
	return primitives.Tick(env.Oracles.Config.Config().WaitCost)
}

func (w *Wait) PreValidate(s *state.GameState, env Env) error {
	if _, ok := s.Entities.Actor(w.ActorID); !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "actor not found")
	}
	return nil
}

func (w *Wait) Apply(s *state.GameState, env Env) error { return nil }

func (w *Wait) PostValidate(s *state.GameState, env Env) error { return nil }

// UseItem consumes one charge of an inventory item, applying its effect
// (currently: heal self by the item's HealAmount).
type UseItem struct {
	ActorID primitives.EntityId   `json:"actor_id"`
	Handle  primitives.ItemHandle `json:"handle"`
}

func (u *UseItem) Actor() primitives.EntityId { return u.ActorID }
func (u *UseItem) ActionKind() Kind           { return KindUseItem }

func (u *UseItem) Cost(env Env, s *state.GameState) primitives.Tick {
	return primitives.Tick(env.Oracles.Config.Config().WaitCost)
}

func (u *UseItem) findStack(s *state.GameState) (state.Actor, int, bool) {
	actor, ok := s.Entities.Actor(u.ActorID)
	if !ok {
		return state.Actor{}, -1, false
	}
	for i, st := range actor.Inventory {
		if st.Handle == u.Handle && st.Quantity > 0 {
			return actor, i, true
		}
	}
	return actor, -1, false
}

func (u *UseItem) PreValidate(s *state.GameState, env Env) error {
	if _, ok := s.Entities.Actor(u.ActorID); !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "actor not found")
	}
	_, _, found := u.findStack(s)
	if !found {
		return gameerr.New(gameerr.CodeTargetNotFound, "item not in inventory").WithDetail("handle", u.Handle)
	}
	def, ok := env.Oracles.Items.ItemDef(u.Handle)
	if !ok || def.Category != "consumable" {
		return gameerr.New(gameerr.CodeInvalidEntityID, "item is not a consumable").WithDetail("handle", u.Handle)
	}
	return nil
}

func (u *UseItem) Apply(s *state.GameState, env Env) error {
	actor, idx, found := u.findStack(s)
	if !found {
		return gameerr.New(gameerr.CodeTargetNotFound, "item not in inventory")
	}
	def, _ := env.Oracles.Items.ItemDef(u.Handle)
	actor.Resources.HP = actor.Resources.HP.Add(def.HealAmount)
	actor.Inventory[idx].Quantity--
	if actor.Inventory[idx].Quantity == 0 {
		actor.Inventory = append(actor.Inventory[:idx], actor.Inventory[idx+1:]...)
	}
	s.Entities.Actors[u.ActorID] = actor
	return nil
}

func (u *UseItem) PostValidate(s *state.GameState, env Env) error { return nil }

// Interact toggles an interactable prop (e.g. opens a door).
type Interact struct {
	ActorID primitives.EntityId `json:"actor_id"`
	PropID  primitives.EntityId `json:"prop_id"`
}

func (i *Interact) Actor() primitives.EntityId { return i.ActorID }
func (i *Interact) ActionKind() Kind           { return KindInteract }

func (i *Interact) Cost(env Env, s *state.GameState) primitives.Tick {
	return primitives.Tick(env.Oracles.Config.Config().WaitCost)
}

func (i *Interact) PreValidate(s *state.GameState, env Env) error {
	actor, ok := s.Entities.Actor(i.ActorID)
	if !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "actor not found")
	}
	prop, ok := s.World.Props[i.PropID]
	if !ok {
		return gameerr.New(gameerr.CodeTargetNotFound, "prop not found")
	}
	if actor.Position.ChebyshevDistance(prop.Position) > 1 {
		return gameerr.New(gameerr.CodeOutOfRange, "prop too far away")
	}
	return nil
}

func (i *Interact) Apply(s *state.GameState, env Env) error {
	prop := s.World.Props[i.PropID]
	prop.IsActive = !prop.IsActive
	s.World.Props[i.PropID] = prop
	return nil
}

func (i *Interact) PostValidate(s *state.GameState, env Env) error { return nil }

// Attack is the shared implementation for basic melee/ranged/magic
// attacks; AttackStyle picks which attack profile and speed
// classification to use.
type Attack struct {
	ActorID  primitives.EntityId `json:"actor_id"`
	TargetID primitives.EntityId `json:"target_id"`
	Style    Kind                `json:"style"` // KindAttackMelee/Ranged/Magic
}

func (a *Attack) Actor() primitives.EntityId { return a.ActorID }
func (a *Attack) ActionKind() Kind           { return a.Style }

func (a *Attack) profileName() string {
	switch a.Style {
	case KindAttackRanged:
		return "ranged"
	case KindAttackMagic:
		return "magic"
	default:
		return "melee"
	}
}

func (a *Attack) Cost(env Env, s *state.GameState) primitives.Tick {
	profile := env.Oracles.Tables.Tables().Attacks[a.profileName()]
	return primitives.Tick(profile.BaseCost)
}

func (a *Attack) PreValidate(s *state.GameState, env Env) error {
	attacker, ok := s.Entities.Actor(a.ActorID)
	if !ok {
		return gameerr.New(gameerr.CodeInvalidEntityID, "actor not found")
	}
	target, ok := s.Entities.Actor(a.TargetID)
	if !ok {
		return gameerr.New(gameerr.CodeTargetNotFound, "target not found")
	}
	if target.Resources.HP.IsDepleted() {
		return gameerr.New(gameerr.CodeTargetNotFound, "target already dead")
	}
	const meleeRange = 1
	const rangedRange = 6
	rng := int64(meleeRange)
	if a.Style != KindAttackMelee {
		rng = rangedRange
	}
	if attacker.Position.ChebyshevDistance(target.Position) > rng {
		return gameerr.New(gameerr.CodeOutOfRange, "target out of range")
	}
	return nil
}

func (a *Attack) Apply(s *state.GameState, env Env) error {
	attacker, _ := s.Entities.Actor(a.ActorID)
	target, _ := s.Entities.Actor(a.TargetID)

	_, derived := attacker.Effective()
	profile := env.Oracles.Tables.Tables().Attacks[a.profileName()]
	damage := derived.Attack + profile.BaseDamage

	target.Resources.HP = target.Resources.HP.Sub(damage)
	s.Entities.Actors[a.TargetID] = target
	return nil
}

func (a *Attack) PostValidate(s *state.GameState, env Env) error { return nil }
