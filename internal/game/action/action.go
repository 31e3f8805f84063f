// Package action implements the action model: a common transition
// contract over two top-level variants, Character actions (authored by
// the player or an NPC) and System actions (always authored by
// primitives.System). Every Action is JSON-serializable so it can
// travel through persistence, the event bus, and the zkVM boundary
// unchanged.
package action

import (
	"encoding/json"
	"fmt"

	"github.com/0xwonj/dungeon-sim/internal/game/oracle"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

// Phase tags which stage of the three-phase transition produced an error.
type Phase string

const (
	PhasePreValidate  Phase = "pre_validate"
	PhaseApply        Phase = "apply"
	PhasePostValidate Phase = "post_validate"
)

// Kind identifies a concrete action type; it doubles as the JSON
// discriminator for Envelope and as the ExecuteError tag.
type Kind string

const (
	KindMove             Kind = "Move"
	KindWait             Kind = "Wait"
	KindUseItem          Kind = "UseItem"
	KindInteract         Kind = "Interact"
	KindAttackMelee      Kind = "AttackMelee"
	KindAttackRanged     Kind = "AttackRanged"
	KindAttackMagic      Kind = "AttackMagic"
	KindActionCost       Kind = "ActionCost"
	KindActivation       Kind = "Activation"
	KindPrepareTurn      Kind = "PrepareTurn"
	KindRemoveFromActive Kind = "RemoveFromActive"
	KindRemoveFromWorld  Kind = "RemoveFromWorld"
	KindDeactivate       Kind = "Deactivate"
)

// IsSystem reports whether a Kind is always authored by primitives.System.
func (k Kind) IsSystem() bool {
	switch k {
	case KindActionCost, KindActivation, KindPrepareTurn, KindRemoveFromActive, KindRemoveFromWorld, KindDeactivate:
		return true
	default:
		return false
	}
}

// Env bundles everything an action's contract methods may read besides
// the mutable GameState: the oracle surface, and the configured hook
// depth / activation radius that come along with it.
type Env struct {
	Oracles oracle.Manager
}

// Action is the common transition contract. Apply is the only mutator;
// pre/post are pure checks. Implementations must use saturating integer
// arithmetic only — no floats anywhere in Apply.
type Action interface {
	// Actor returns the entity id this action is attributed to.
	Actor() primitives.EntityId
	// ActionKind returns the discriminator used for error tagging,
	// persistence, and wire serialization.
	ActionKind() Kind
	// Cost returns the Tick cost of this action; system actions return 0.
	Cost(env Env, s *state.GameState) primitives.Tick
	// PreValidate checks legality without mutating s.
	PreValidate(s *state.GameState, env Env) error
	// Apply is the sole mutator.
	Apply(s *state.GameState, env Env) error
	// PostValidate checks invariants after Apply without mutating s.
	PostValidate(s *state.GameState, env Env) error
}

// Envelope is the wire form of an Action: a Kind discriminator plus its
// JSON payload, used by persistence, the event bus, and the zkVM guest
// input/journal.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps a concrete Action into an Envelope.
func Encode(a Action) (Envelope, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode action %s: %w", a.ActionKind(), err)
	}
	return Envelope{Kind: a.ActionKind(), Payload: payload}, nil
}

// Decode reconstructs the concrete Action a Envelope was built from.
func Decode(e Envelope) (Action, error) {
	var a Action
	switch e.Kind {
	case KindMove:
		a = &Move{}
	case KindWait:
		a = &Wait{}
	case KindUseItem:
		a = &UseItem{}
	case KindInteract:
		a = &Interact{}
	case KindAttackMelee, KindAttackRanged, KindAttackMagic:
		a = &Attack{}
	case KindActionCost:
		a = &ActionCost{}
	case KindActivation:
		a = &Activation{}
	case KindPrepareTurn:
		a = &PrepareTurn{}
	case KindRemoveFromActive:
		a = &RemoveFromActive{}
	case KindRemoveFromWorld:
		a = &RemoveFromWorld{}
	case KindDeactivate:
		a = &Deactivate{}
	default:
		return nil, fmt.Errorf("unknown action kind %q", e.Kind)
	}
	if err := json.Unmarshal(e.Payload, a); err != nil {
		return nil, fmt.Errorf("decode action %s: %w", e.Kind, err)
	}
	return a, nil
}
