package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xwonj/dungeon-sim/internal/game/gameerr"
	"github.com/0xwonj/dungeon-sim/internal/game/oracle"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

func testEnv() Env {
	tiles := map[primitives.Position]oracle.MapTile{
		{X: -1, Y: 0}: {Terrain: 1}, // wall, also serves as out-of-range probe
		{X: 0, Y: 1}:  {Terrain: 1}, // in-bounds wall
	}
	tables := oracle.Tables{
		Movement: oracle.MovementProfile{BaseCost: 100},
		Attacks: map[string]oracle.AttackProfile{
			"melee": {Name: "melee", BaseCost: 80, BaseDamage: 5, Speed: "physical"},
		},
	}
	cfg := oracle.Config{ActivationRadius: 3, MaxHookDepth: 16, WaitCost: 50}
	static := oracle.NewStaticOracles(10, 10, tiles, nil, map[primitives.ItemHandle]oracle.ItemDef{
		1: {Handle: 1, Category: oracle.CategoryConsumable, HealAmount: 10},
	}, nil, tables, cfg)
	return Env{Oracles: static.Manager()}
}

func freshState() *state.GameState {
	s := state.New()
	s.Entities.Actors[primitives.Player] = state.Actor{
		ID:       primitives.Player,
		Position: primitives.Position{X: 1, Y: 1},
		Core:     state.CoreStats{Strength: 10, Dexterity: 10},
		Resources: state.ActorResources{
			HP: primitives.NewResourceMeter(20),
		},
		Speed: state.SpeedStats{PhysicalBps: 10000},
	}
	return &s
}

func TestMoveAppliesPositionChange(t *testing.T) {
	s := freshState()
	env := testEnv()
	m := &Move{ActorID: primitives.Player, Direction: East}

	require.NoError(t, m.PreValidate(s, env))
	require.NoError(t, m.Apply(s, env))
	require.NoError(t, m.PostValidate(s, env))

	actor, _ := s.Entities.Actor(primitives.Player)
	assert.Equal(t, primitives.Position{X: 2, Y: 1}, actor.Position)
}

func TestMoveRejectsOutOfBounds(t *testing.T) {
	s := freshState()
	actor, _ := s.Entities.Actor(primitives.Player)
	actor.Position = primitives.Position{X: 0, Y: 0}
	s.Entities.Actors[primitives.Player] = actor

	env := testEnv()
	m := &Move{ActorID: primitives.Player, Direction: West}

	err := m.PreValidate(s, env)
	require.Error(t, err)
	ge, ok := gameerr.As(err)
	require.True(t, ok)
	assert.Equal(t, gameerr.CodeOutOfBounds, ge.Code)
}

func TestMoveRejectsWall(t *testing.T) {
	s := freshState()
	env := testEnv()
	m := &Move{ActorID: primitives.Player, Direction: West} // steps from (1, 1) to (0, 1), a wall

	err := m.PreValidate(s, env)
	require.Error(t, err)
	assert.True(t, gameerr.Is(err, gameerr.CodeBlocked))
}

func TestMoveRejectsOccupiedDestination(t *testing.T) {
	s := freshState()
	s.Entities.Actors[primitives.EntityId(2)] = state.Actor{ID: 2, Position: primitives.Position{X: 2, Y: 1}}

	env := testEnv()
	m := &Move{ActorID: primitives.Player, Direction: East}

	err := m.PreValidate(s, env)
	require.Error(t, err)
	assert.True(t, gameerr.Is(err, gameerr.CodeBlocked))
}

func TestAttackDealsDamage(t *testing.T) {
	s := freshState()
	s.Entities.Actors[primitives.EntityId(2)] = state.Actor{
		ID:        2,
		Position:  primitives.Position{X: 2, Y: 1},
		Resources: state.ActorResources{HP: primitives.NewResourceMeter(10)},
	}
	env := testEnv()
	atk := &Attack{ActorID: primitives.Player, TargetID: 2, Style: KindAttackMelee}

	require.NoError(t, atk.PreValidate(s, env))
	require.NoError(t, atk.Apply(s, env))

	target, _ := s.Entities.Actor(2)
	assert.Less(t, target.Resources.HP.Current, uint32(10))
}

func TestAttackRejectsDeadTarget(t *testing.T) {
	s := freshState()
	s.Entities.Actors[primitives.EntityId(2)] = state.Actor{
		ID:        2,
		Position:  primitives.Position{X: 2, Y: 1},
		Resources: state.ActorResources{HP: primitives.ResourceMeter{Current: 0, Maximum: 10}},
	}
	env := testEnv()
	atk := &Attack{ActorID: primitives.Player, TargetID: 2, Style: KindAttackMelee}

	err := atk.PreValidate(s, env)
	require.Error(t, err)
}

func TestAttackRejectsOutOfRange(t *testing.T) {
	s := freshState()
	s.Entities.Actors[primitives.EntityId(2)] = state.Actor{
		ID:        2,
		Position:  primitives.Position{X: 9, Y: 9},
		Resources: state.ActorResources{HP: primitives.NewResourceMeter(10)},
	}
	env := testEnv()
	atk := &Attack{ActorID: primitives.Player, TargetID: 2, Style: KindAttackMelee}

	err := atk.PreValidate(s, env)
	require.Error(t, err)
	assert.True(t, gameerr.Is(err, gameerr.CodeOutOfRange))
}

func TestUseItemHealsAndConsumesCharge(t *testing.T) {
	s := freshState()
	actor, _ := s.Entities.Actor(primitives.Player)
	actor.Resources.HP = primitives.ResourceMeter{Current: 5, Maximum: 20}
	actor.Inventory = []state.InventoryStack{{Handle: 1, Quantity: 1}}
	s.Entities.Actors[primitives.Player] = actor

	env := testEnv()
	u := &UseItem{ActorID: primitives.Player, Handle: 1}

	require.NoError(t, u.PreValidate(s, env))
	require.NoError(t, u.Apply(s, env))

	after, _ := s.Entities.Actor(primitives.Player)
	assert.Equal(t, uint32(15), after.Resources.HP.Current)
	assert.Empty(t, after.Inventory)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := &Move{ActorID: primitives.Player, Direction: East}
	envelope, err := Encode(m)
	require.NoError(t, err)
	assert.Equal(t, KindMove, envelope.Kind)

	decoded, err := Decode(envelope)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestKindIsSystem(t *testing.T) {
	assert.True(t, KindActionCost.IsSystem())
	assert.True(t, KindPrepareTurn.IsSystem())
	assert.False(t, KindMove.IsSystem())
	assert.False(t, KindAttackMelee.IsSystem())
}
