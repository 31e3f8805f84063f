package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/engine"
	"github.com/0xwonj/dungeon-sim/internal/game/events"
	"github.com/0xwonj/dungeon-sim/internal/game/oracle"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

func testEnv(attacks map[string]oracle.AttackProfile) action.Env {
	tables := oracle.Tables{
		Movement: oracle.MovementProfile{BaseCost: 100},
		Attacks:  attacks,
	}
	cfg := oracle.Config{ActivationRadius: 5, MaxHookDepth: 4, WaitCost: 50}
	static := oracle.NewStaticOracles(10, 10, nil, nil, nil, nil, tables, cfg)
	return action.Env{Oracles: static.Manager()}
}

func readyAt(t primitives.Tick) *primitives.Tick { return &t }

func TestActionCostHandlerGeneratesActionCostForCharacterAction(t *testing.T) {
	h := ActionCostHandler{}
	env := testEnv(map[string]oracle.AttackProfile{
		"melee": {Name: "melee", BaseCost: 80, Speed: "physical"},
	})
	ev := events.ActionCompleted{Actor: primitives.Player, Action: action.KindAttackMelee}

	acts := h.GenerateActions(ev, nil, env)
	require.Len(t, acts, 1)
	ac, ok := acts[0].(*action.ActionCost)
	require.True(t, ok)
	assert.Equal(t, primitives.Player, ac.TargetID)
	assert.Equal(t, "physical", ac.SpeedClass)
}

func TestActionCostHandlerSkipsSystemActions(t *testing.T) {
	h := ActionCostHandler{}
	env := testEnv(nil)
	ev := events.ActionCompleted{Actor: primitives.System, Action: action.KindPrepareTurn}

	acts := h.GenerateActions(ev, nil, env)
	assert.Empty(t, acts)
}

// TestActionCostHandlerResolvesNonPhysicalSpeedClass guards the
// translation between action.Kind discriminators (e.g. "AttackMagic") and
// the short keys used in Tables.Attacks (e.g. "magic"): a magic attack
// profile configured with a cognitive speed class must actually surface
// as "cognitive", not silently fall back to "physical".
func TestActionCostHandlerResolvesNonPhysicalSpeedClass(t *testing.T) {
	h := ActionCostHandler{}
	env := testEnv(map[string]oracle.AttackProfile{
		"magic": {Name: "magic", BaseCost: 120, Speed: "cognitive"},
	})
	ev := events.ActionCompleted{Actor: primitives.Player, Action: action.KindAttackMagic}

	acts := h.GenerateActions(ev, nil, env)
	require.Len(t, acts, 1)
	ac := acts[0].(*action.ActionCost)
	assert.Equal(t, "cognitive", ac.SpeedClass, "magic attacks must resolve their configured speed class, not default to physical")
}

func TestDeathHandlerGeneratesRemoveFromActive(t *testing.T) {
	h := DeathHandler{}
	ev := events.EntityDied{Entity: primitives.EntityId(3)}

	acts := h.GenerateActions(ev, nil, testEnv(nil))
	require.Len(t, acts, 1)
	rm, ok := acts[0].(*action.RemoveFromActive)
	require.True(t, ok)
	assert.Equal(t, primitives.EntityId(3), rm.TargetID)
}

func TestActivationHandlerOnlyReactsToPlayerMovement(t *testing.T) {
	h := ActivationHandler{}
	env := testEnv(nil)

	npcMoved := events.EntityMoved{Entity: primitives.EntityId(7)}
	assert.Empty(t, h.GenerateActions(npcMoved, nil, env))

	playerMoved := events.EntityMoved{Entity: primitives.Player}
	acts := h.GenerateActions(playerMoved, nil, env)
	require.Len(t, acts, 1)
	_, ok := acts[0].(*action.Activation)
	assert.True(t, ok)
}

func TestRegistryRunEndToEndAppliesActionCost(t *testing.T) {
	s := state.New()
	s.Entities.Actors[primitives.Player] = state.Actor{
		ID:      primitives.Player,
		Speed:   state.SpeedStats{PhysicalBps: 10000},
		ReadyAt: readyAt(0),
	}
	eng := engine.New(&s)
	env := testEnv(map[string]oracle.AttackProfile{
		"melee": {Name: "melee", BaseCost: 80, BaseDamage: 1, Speed: "physical"},
	})

	reg := NewRegistry(16, nil)
	for _, h := range DefaultHandlers() {
		reg.Register(h)
	}

	seed := []events.GameEvent{events.ActionCompleted{Actor: primitives.Player, Action: action.KindMove}}
	all, err := reg.Run(eng, env, seed)
	require.NoError(t, err)
	assert.NotEmpty(t, all)

	actor, _ := eng.State().Entities.Actor(primitives.Player)
	require.NotNil(t, actor.ReadyAt)
	assert.Greater(t, *actor.ReadyAt, primitives.Tick(0), "ActionCostHandler must have advanced ready_at")
}

// TestRegistryRunTerminatesAtMaxHookDepth verifies the bounded work-queue
// loop raises HookChainTooDeepError instead of recursing forever when a
// handler keeps regenerating events.
func TestRegistryRunTerminatesAtMaxHookDepth(t *testing.T) {
	s := state.New()
	s.Entities.Actors[primitives.Player] = state.Actor{ID: primitives.Player}
	eng := engine.New(&s)
	env := testEnv(nil)

	reg := NewRegistry(3, nil)
	reg.Register(loopingHandler{})

	seed := []events.GameEvent{events.EntityMoved{Entity: primitives.Player}}
	_, err := reg.Run(eng, env, seed)
	require.Error(t, err)

	var depthErr *engine.HookChainTooDeepError
	require.ErrorAs(t, err, &depthErr)
	assert.Equal(t, 3, depthErr.Depth)
}

// loopingHandler answers every EntityMoved with a Wait, which in turn
// produces a fresh EntityMoved-free ActionCompleted... to actually exercise
// the depth guard we need the queue to never drain, so we re-emit a Wait
// for the same actor indefinitely by reacting to ActionCompleted instead.
type loopingHandler struct{}

func (loopingHandler) Name() string             { return "looping" }
func (loopingHandler) Priority() int             { return 0 }
func (loopingHandler) Criticality() Criticality { return Optional }

func (loopingHandler) GenerateActions(ev events.GameEvent, s *state.GameState, env action.Env) []action.Action {
	return []action.Action{&action.Wait{ActorID: primitives.Player}}
}
