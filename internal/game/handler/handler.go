// Package handler implements the reactive handler registry: event-sourced
// system actions fed back through the same engine.Execute pipeline, run
// from an explicit bounded work queue rather than recursion so a maximum
// hook depth is enforced structurally rather than by the Go call stack.
package handler

import (
	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/engine"
	"github.com/0xwonj/dungeon-sim/internal/game/events"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
	"github.com/0xwonj/dungeon-sim/pkg/logger"
)

// Criticality controls how Registry.Run reacts when a handler-generated
// action fails to execute.
type Criticality string

const (
	// Critical aborts the entire handler chain and surfaces the error.
	Critical Criticality = "critical"
	// Important logs the failure and continues processing other handlers.
	Important Criticality = "important"
	// Optional swallows the failure silently.
	Optional Criticality = "optional"
)

// Handler reacts to one GameEvent by proposing follow-up system actions.
// Implementations must be side-effect free except through the returned
// actions; Registry.Run is the only thing that executes them.
type Handler interface {
	Name() string
	Priority() int
	Criticality() Criticality
	GenerateActions(ev events.GameEvent, s *state.GameState, env action.Env) []action.Action
}

// Registry holds the ordered set of registered handlers and drives the
// bounded reactive loop.
type Registry struct {
	handlers []Handler
	maxDepth int
	log      *logger.Logger
}

// NewRegistry returns an empty registry bounded by maxDepth hook-chain
// iterations (default 16).
func NewRegistry(maxDepth int, log *logger.Logger) *Registry {
	if maxDepth <= 0 {
		maxDepth = 16
	}
	if log == nil {
		log = logger.NewDefault("handler")
	}
	return &Registry{maxDepth: maxDepth, log: log}
}

// Register adds a handler, keeping the slice sorted by ascending Priority
// so lower-priority handlers (e.g. ActionCostHandler at -100) always run
// before higher ones for the same event.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
	for i := len(r.handlers) - 1; i > 0 && r.handlers[i-1].Priority() > r.handlers[i].Priority(); i-- {
		r.handlers[i-1], r.handlers[i] = r.handlers[i], r.handlers[i-1]
	}
}

// ChainError wraps a handler-generated action's execution failure with the
// handler that produced it, for Critical-criticality aborts.
type ChainError struct {
	Handler string
	Err     error
}

func (e *ChainError) Error() string { return e.Handler + ": " + e.Err.Error() }
func (e *ChainError) Unwrap() error { return e.Err }

// Run drains seed through the registered handlers, executing every
// generated action via eng and recursively feeding its extracted events
// back into the queue, until the queue empties or the maximum hook depth
// is reached. It returns every event observed, in the order produced,
// including seed.
func (r *Registry) Run(eng *engine.Engine, env action.Env, seed []events.GameEvent) ([]events.GameEvent, error) {
	all := append([]events.GameEvent(nil), seed...)
	queue := seed
	depth := 0

	for len(queue) > 0 {
		if depth >= r.maxDepth {
			return all, &engine.HookChainTooDeepError{Name: "handler-chain", Depth: depth}
		}
		depth++

		var next []events.GameEvent
		for _, h := range r.handlers {
			for _, ev := range queue {
				for _, act := range h.GenerateActions(ev, eng.State(), env) {
					before := eng.State().CloneLightweight()
					delta, err := eng.Execute(env, act)
					if err != nil {
						switch h.Criticality() {
						case Critical:
							return all, &ChainError{Handler: h.Name(), Err: err}
						case Important:
							r.log.WithField("handler", h.Name()).WithField("action", act.ActionKind()).WithError(err).Error("handler action failed")
							continue
						default: // Optional
							continue
						}
					}
					generated := events.Extract(before, act, *eng.State(), delta)
					all = append(all, generated...)
					next = append(next, generated...)
				}
			}
		}
		queue = next
	}

	return all, nil
}

// costForKind mirrors the Cost() methods in package action, looked up by
// Kind alone since ActionCostHandler only observes the completed event,
// not the original Action value.
func costForKind(kind action.Kind, env action.Env) primitives.Tick {
	switch kind {
	case action.KindMove:
		return primitives.Tick(env.Oracles.Tables.Tables().Movement.BaseCost)
	case action.KindAttackMelee:
		return primitives.Tick(env.Oracles.Tables.Tables().Attacks["melee"].BaseCost)
	case action.KindAttackRanged:
		return primitives.Tick(env.Oracles.Tables.Tables().Attacks["ranged"].BaseCost)
	case action.KindAttackMagic:
		return primitives.Tick(env.Oracles.Tables.Tables().Attacks["magic"].BaseCost)
	default: // Wait, UseItem, Interact
		return primitives.Tick(env.Oracles.Config.Config().WaitCost)
	}
}

// ActionCostHandler turns a completed character action into the
// ActionCost system action that actually advances the actor's ready_at.
// Priority -100, Critical.
type ActionCostHandler struct{}

func (ActionCostHandler) Name() string             { return "action_cost" }
func (ActionCostHandler) Priority() int             { return -100 }
func (ActionCostHandler) Criticality() Criticality { return Critical }

func (ActionCostHandler) GenerateActions(ev events.GameEvent, s *state.GameState, env action.Env) []action.Action {
	ac, ok := ev.(events.ActionCompleted)
	if !ok || ac.Action.IsSystem() {
		return nil
	}
	speedClass := env.Oracles.Action.SpeedClassFor(string(ac.Action))
	return []action.Action{&action.ActionCost{
		TargetID:   ac.Actor,
		BaseCost:   costForKind(ac.Action, env),
		SpeedClass: speedClass,
	}}
}

// DeathHandler removes a depleted actor from the active set as soon as
// EntityDied fires. Priority -50, Critical. The corpse stays in
// Entities; only RemoveFromWorld would delete it.
type DeathHandler struct{}

func (DeathHandler) Name() string             { return "death" }
func (DeathHandler) Priority() int             { return -50 }
func (DeathHandler) Criticality() Criticality { return Critical }

func (DeathHandler) GenerateActions(ev events.GameEvent, s *state.GameState, env action.Env) []action.Action {
	died, ok := ev.(events.EntityDied)
	if !ok {
		return nil
	}
	return []action.Action{&action.RemoveFromActive{TargetID: died.Entity}}
}

// ActivationHandler recomputes the active set whenever the player moves,
// since activation radius is centered on the player. Priority -10,
// Important.
type ActivationHandler struct{}

func (ActivationHandler) Name() string             { return "activation" }
func (ActivationHandler) Priority() int             { return -10 }
func (ActivationHandler) Criticality() Criticality { return Important }

func (ActivationHandler) GenerateActions(ev events.GameEvent, s *state.GameState, env action.Env) []action.Action {
	moved, ok := ev.(events.EntityMoved)
	if !ok || moved.Entity != primitives.Player {
		return nil
	}
	return []action.Action{&action.Activation{}}
}

// DefaultHandlers returns the three built-in handlers in registration
// order (Registry.Register re-sorts by Priority regardless).
func DefaultHandlers() []Handler {
	return []Handler{ActionCostHandler{}, DeathHandler{}, ActivationHandler{}}
}
