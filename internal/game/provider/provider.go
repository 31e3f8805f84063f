// Package provider implements ActionProvider: the layer that decides
// *which* Action an NPC submits for its turn. Deciding
// is explicitly outside the deterministic core — it runs host-side only,
// never inside engine.Execute and never replayed in the zkVM guest, which
// only ever re-executes the Action the provider already chose.
package provider

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/oracle"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
	"github.com/0xwonj/dungeon-sim/pkg/logger"
)

// ActionProvider decides the next Action for an actor's turn, given the
// live GameState. It never mutates s.
type ActionProvider interface {
	Decide(s *state.GameState, actorID primitives.EntityId, env action.Env) (action.Action, error)
}

// DefaultProvider is the fallback AI for NPCs without a decision script:
// attack the player in melee range, otherwise step toward it, at any
// distance. It waits when there is no player to chase or when the
// deciding actor is the player itself.
type DefaultProvider struct{}

func (DefaultProvider) Decide(s *state.GameState, actorID primitives.EntityId, env action.Env) (action.Action, error) {
	actor, ok := s.Entities.Actor(actorID)
	if !ok {
		return nil, fmt.Errorf("provider: actor %s not found", actorID)
	}
	player, ok := s.Entities.Actor(primitives.Player)
	if !ok || actorID == primitives.Player {
		return &action.Wait{ActorID: actorID}, nil
	}

	dist := actor.Position.ChebyshevDistance(player.Position)
	if dist <= 1 {
		return &action.Attack{ActorID: actorID, TargetID: primitives.Player, Style: action.KindAttackMelee}, nil
	}

	dx := player.Position.X - actor.Position.X
	dy := player.Position.Y - actor.Position.Y
	dir := stepToward(dx, dy)
	return &action.Move{ActorID: actorID, Direction: dir}, nil
}

func stepToward(dx, dy int32) action.Direction {
	absDx, absDy := dx, dy
	if absDx < 0 {
		absDx = -absDx
	}
	if absDy < 0 {
		absDy = -absDy
	}
	if absDx >= absDy {
		if dx > 0 {
			return action.East
		}
		return action.West
	}
	if dy > 0 {
		return action.South
	}
	return action.North
}

// decision is the JSON shape a decision script's entry point must return.
type decision struct {
	Action    string `json:"action"`
	Direction string `json:"direction,omitempty"`
	TargetID  uint32 `json:"target_id,omitempty"`
	Style     string `json:"style,omitempty"`
	PropID    uint32 `json:"prop_id,omitempty"`
	Handle    uint32 `json:"handle,omitempty"`
}

// ScriptedProvider runs a per-template goja decision script to pick an
// NPC's action, falling back to DefaultProvider when a template has no
// script or the script errors. Every Decide call gets a fresh
// goja.Runtime so scripts can never share mutable state across actors or
// turns.
type ScriptedProvider struct {
	templates map[primitives.EntityId]string // entity id -> npc template id
	npcs      oracle.NpcOracle
	fallback  ActionProvider
	log       *logger.Logger
}

// NewScriptedProvider builds a provider that resolves each entity's NPC
// template (and its decision_script, if any) from the spawn list the map
// oracle reports at session bootstrap.
func NewScriptedProvider(specs []oracle.InitialEntitySpec, npcs oracle.NpcOracle, log *logger.Logger) *ScriptedProvider {
	if log == nil {
		log = logger.NewDefault("provider")
	}
	templates := make(map[primitives.EntityId]string, len(specs))
	for _, spec := range specs {
		if spec.Template != "" {
			templates[spec.ID] = spec.Template
		}
	}
	return &ScriptedProvider{templates: templates, npcs: npcs, fallback: DefaultProvider{}, log: log}
}

func (p *ScriptedProvider) Decide(s *state.GameState, actorID primitives.EntityId, env action.Env) (action.Action, error) {
	templateID, ok := p.templates[actorID]
	if !ok {
		return p.fallback.Decide(s, actorID, env)
	}
	tmpl, ok := p.npcs.Template(templateID)
	if !ok || tmpl.DecisionScript == "" {
		return p.fallback.Decide(s, actorID, env)
	}

	act, err := p.run(s, actorID, tmpl.DecisionScript)
	if err != nil {
		p.log.WithField("actor", actorID).WithField("template", templateID).WithError(err).Warn("decision script failed, falling back")
		return p.fallback.Decide(s, actorID, env)
	}
	return act, nil
}

func (p *ScriptedProvider) run(s *state.GameState, actorID primitives.EntityId, script string) (action.Action, error) {
	actor, ok := s.Entities.Actor(actorID)
	if !ok {
		return nil, fmt.Errorf("actor %s not found", actorID)
	}
	player, _ := s.Entities.Actor(primitives.Player)

	vm := goja.New()
	if err := vm.Set("self", map[string]any{
		"id":       uint32(actorID),
		"x":        actor.Position.X,
		"y":        actor.Position.Y,
		"hp":       actor.Resources.HP.Current,
		"max_hp":   actor.Resources.HP.Maximum,
	}); err != nil {
		return nil, err
	}
	if err := vm.Set("player", map[string]any{
		"id": uint32(primitives.Player),
		"x":  player.Position.X,
		"y":  player.Position.Y,
		"hp": player.Resources.HP.Current,
	}); err != nil {
		return nil, err
	}

	if _, err := vm.RunString(script); err != nil {
		return nil, fmt.Errorf("run script: %w", err)
	}

	decideFn, ok := goja.AssertFunction(vm.Get("decide"))
	if !ok {
		return nil, fmt.Errorf("script has no decide() function")
	}
	result, err := decideFn(goja.Undefined())
	if err != nil {
		return nil, fmt.Errorf("call decide(): %w", err)
	}

	var d decision
	if err := vm.ExportTo(result, &d); err != nil {
		return nil, fmt.Errorf("decode decision: %w", err)
	}

	return toAction(actorID, d)
}

func toAction(actorID primitives.EntityId, d decision) (action.Action, error) {
	switch d.Action {
	case "move":
		dir := action.Direction(d.Direction)
		switch dir {
		case action.North, action.South, action.East, action.West:
		default:
			return nil, fmt.Errorf("invalid direction %q", d.Direction)
		}
		return &action.Move{ActorID: actorID, Direction: dir}, nil
	case "attack":
		style := action.KindAttackMelee
		switch d.Style {
		case "ranged":
			style = action.KindAttackRanged
		case "magic":
			style = action.KindAttackMagic
		}
		return &action.Attack{ActorID: actorID, TargetID: primitives.EntityId(d.TargetID), Style: style}, nil
	case "interact":
		return &action.Interact{ActorID: actorID, PropID: primitives.EntityId(d.PropID)}, nil
	case "use_item":
		return &action.UseItem{ActorID: actorID, Handle: primitives.ItemHandle(d.Handle)}, nil
	case "wait", "":
		return &action.Wait{ActorID: actorID}, nil
	default:
		return nil, fmt.Errorf("unknown decision action %q", d.Action)
	}
}
