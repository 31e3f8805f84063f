// Package engine implements GameEngine: the three-phase action transition
// pipeline (pre_validate -> apply -> post_validate) that is the only
// place GameState is ever mutated. The same Engine type runs identically
// on the host async runtime and inside the zkVM guest (package zkvm); the
// only difference is which oracle.Manager backs Env.
package engine

import (
	"fmt"

	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

// Error is the tagged sum ExecuteError{Kind} x Phase.
type Error struct {
	ActionKind action.Kind
	Phase      action.Phase
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("execute %s at %s: %v", e.ActionKind, e.Phase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HookChainTooDeepError guards reactive recursion. It is surfaced by
// package handler, not raised directly by Engine, but lives here because
// it shares the ExecuteError family conceptually.
type HookChainTooDeepError struct {
	Name  string
	Depth int
}

func (e *HookChainTooDeepError) Error() string {
	return fmt.Sprintf("hook chain too deep at %s: depth %d", e.Name, e.Depth)
}

// Engine wraps a mutable GameState and exposes the single Execute
// operation.
type Engine struct {
	state *state.GameState
}

// New wraps an existing GameState. The caller retains ownership; Engine
// never clones on construction, only inside Execute.
func New(s *state.GameState) *Engine { return &Engine{state: s} }

// State returns the live, mutable GameState. Callers outside this
// package should treat it as read-only except through Execute.
func (e *Engine) State() *state.GameState { return e.state }

// Execute runs one action through pre_validate -> apply -> post_validate
// and returns the resulting StateDelta.
//
//  1. before = state.clone_lightweight() is taken for diffing and as the
//     rollback point.
//  2. pre_validate failure: state is returned unchanged, tagged PreValidate.
//  3. apply failure: state is rolled back to before, tagged Apply.
//  4. post_validate failure: state is rolled back to before, tagged
//     PostValidate.
//  5. turn.action_nonce is bumped.
//  6. StateDelta is computed by structural diff against before.
func (e *Engine) Execute(env action.Env, a action.Action) (state.StateDelta, error) {
	before := e.state.CloneLightweight()

	if err := a.PreValidate(e.state, env); err != nil {
		return state.StateDelta{}, &Error{ActionKind: a.ActionKind(), Phase: action.PhasePreValidate, Err: err}
	}

	if err := a.Apply(e.state, env); err != nil {
		*e.state = before
		return state.StateDelta{}, &Error{ActionKind: a.ActionKind(), Phase: action.PhaseApply, Err: err}
	}

	if err := a.PostValidate(e.state, env); err != nil {
		*e.state = before
		return state.StateDelta{}, &Error{ActionKind: a.ActionKind(), Phase: action.PhasePostValidate, Err: err}
	}

	e.state.Turn.NextNonce()
	delta := state.Diff(before, *e.state)
	return delta, nil
}
