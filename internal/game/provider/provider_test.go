package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/oracle"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

func twoActorState(npcPos, playerPos primitives.Position) *state.GameState {
	s := state.New()
	s.Entities.Actors[primitives.Player] = state.Actor{ID: primitives.Player, Position: playerPos}
	s.Entities.Actors[primitives.EntityId(9)] = state.Actor{ID: 9, Position: npcPos}
	return &s
}

func TestDefaultProviderAttacksWhenAdjacent(t *testing.T) {
	s := twoActorState(primitives.Position{X: 1, Y: 0}, primitives.Position{X: 0, Y: 0})
	act, err := DefaultProvider{}.Decide(s, primitives.EntityId(9), action.Env{})
	require.NoError(t, err)
	atk, ok := act.(*action.Attack)
	require.True(t, ok)
	assert.Equal(t, primitives.Player, atk.TargetID)
}

func TestDefaultProviderChasesWhenOutOfRange(t *testing.T) {
	s := twoActorState(primitives.Position{X: 5, Y: 0}, primitives.Position{X: 0, Y: 0})
	act, err := DefaultProvider{}.Decide(s, primitives.EntityId(9), action.Env{})
	require.NoError(t, err)
	mv, ok := act.(*action.Move)
	require.True(t, ok)
	assert.Equal(t, action.West, mv.Direction)
}

func TestDefaultProviderWaitsWithoutPlayer(t *testing.T) {
	s := state.New()
	s.Entities.Actors[primitives.EntityId(9)] = state.Actor{ID: 9}
	act, err := DefaultProvider{}.Decide(s, primitives.EntityId(9), action.Env{})
	require.NoError(t, err)
	_, ok := act.(*action.Wait)
	assert.True(t, ok)
}

func TestDefaultProviderErrorsOnMissingActor(t *testing.T) {
	s := state.New()
	_, err := DefaultProvider{}.Decide(s, primitives.EntityId(42), action.Env{})
	assert.Error(t, err)
}

func TestScriptedProviderFallsBackWithoutScript(t *testing.T) {
	npcs := stubNpcOracle{templates: map[string]oracle.NpcTemplate{
		"goblin": {ID: "goblin"}, // no decision script
	}}
	specs := []oracle.InitialEntitySpec{{ID: 9, Template: "goblin"}}
	p := NewScriptedProvider(specs, npcs, nil)

	s := twoActorState(primitives.Position{X: 5, Y: 0}, primitives.Position{X: 0, Y: 0})
	act, err := p.Decide(s, primitives.EntityId(9), action.Env{})
	require.NoError(t, err)
	_, ok := act.(*action.Move)
	assert.True(t, ok, "falls back to DefaultProvider chase behavior")
}

func TestScriptedProviderRunsDecideScript(t *testing.T) {
	npcs := stubNpcOracle{templates: map[string]oracle.NpcTemplate{
		"archer": {ID: "archer", DecisionScript: `function decide() { return {action: "wait"}; }`},
	}}
	specs := []oracle.InitialEntitySpec{{ID: 9, Template: "archer"}}
	p := NewScriptedProvider(specs, npcs, nil)

	s := twoActorState(primitives.Position{X: 5, Y: 0}, primitives.Position{X: 0, Y: 0})
	act, err := p.Decide(s, primitives.EntityId(9), action.Env{})
	require.NoError(t, err)
	_, ok := act.(*action.Wait)
	assert.True(t, ok)
}

func TestScriptedProviderFallsBackOnScriptError(t *testing.T) {
	npcs := stubNpcOracle{templates: map[string]oracle.NpcTemplate{
		"broken": {ID: "broken", DecisionScript: `this is not valid javascript {{{`},
	}}
	specs := []oracle.InitialEntitySpec{{ID: 9, Template: "broken"}}
	p := NewScriptedProvider(specs, npcs, nil)

	s := twoActorState(primitives.Position{X: 1, Y: 0}, primitives.Position{X: 0, Y: 0})
	act, err := p.Decide(s, primitives.EntityId(9), action.Env{})
	require.NoError(t, err, "a broken script must fall back, not propagate an error")
	_, ok := act.(*action.Attack)
	assert.True(t, ok)
}

func TestToActionRejectsUnknownAction(t *testing.T) {
	_, err := toAction(primitives.EntityId(9), decision{Action: "fly"})
	assert.Error(t, err)
}

type stubNpcOracle struct {
	templates map[string]oracle.NpcTemplate
}

func (s stubNpcOracle) Template(id string) (oracle.NpcTemplate, bool) {
	t, ok := s.templates[id]
	return t, ok
}

func (s stubNpcOracle) AllTemplates() []oracle.NpcTemplate {
	out := make([]oracle.NpcTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	return out
}
