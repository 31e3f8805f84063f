package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/engine"
	"github.com/0xwonj/dungeon-sim/internal/game/gameerr"
	"github.com/0xwonj/dungeon-sim/internal/game/oracle"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

func testEnv() action.Env {
	static := oracle.NewStaticOracles(10, 10, nil, nil, nil, nil, oracle.Tables{Attacks: map[string]oracle.AttackProfile{}}, oracle.Config{})
	return action.Env{Oracles: static.Manager()}
}

func readyAt(t primitives.Tick) *primitives.Tick { return &t }

func TestPrepareNextTurnPicksMinimumReadyAtThenID(t *testing.T) {
	s := state.New()
	s.Entities.Actors[primitives.Player] = state.Actor{ID: primitives.Player, ReadyAt: readyAt(5)}
	s.Entities.Actors[primitives.EntityId(1)] = state.Actor{ID: 1, ReadyAt: readyAt(5)}
	s.Entities.Actors[primitives.EntityId(2)] = state.Actor{ID: 2, ReadyAt: readyAt(2)}
	s.Turn.Activate(primitives.Player)
	s.Turn.Activate(1)
	s.Turn.Activate(2)

	eng := engine.New(&s)
	sched := New(eng)

	actor, _, err := sched.PrepareNextTurn(testEnv())
	require.NoError(t, err)
	assert.Equal(t, primitives.EntityId(2), actor, "lowest ready_at wins")
	assert.Equal(t, primitives.Tick(2), eng.State().Turn.Clock)
}

func TestPrepareNextTurnTieBreaksOnEntityID(t *testing.T) {
	s := state.New()
	s.Entities.Actors[primitives.EntityId(5)] = state.Actor{ID: 5, ReadyAt: readyAt(10)}
	s.Entities.Actors[primitives.EntityId(3)] = state.Actor{ID: 3, ReadyAt: readyAt(10)}
	s.Turn.Activate(5)
	s.Turn.Activate(3)

	eng := engine.New(&s)
	sched := New(eng)

	actor, _, err := sched.PrepareNextTurn(testEnv())
	require.NoError(t, err)
	assert.Equal(t, primitives.EntityId(3), actor)
}

func TestPrepareNextTurnFailsWithNoActiveEntities(t *testing.T) {
	s := state.New()
	eng := engine.New(&s)
	sched := New(eng)

	_, _, err := sched.PrepareNextTurn(testEnv())
	require.Error(t, err)
	var execErr *engine.Error
	require.ErrorAs(t, err, &execErr)
	ge, ok := gameerr.As(execErr.Err)
	require.True(t, ok)
	assert.Equal(t, gameerr.CodeNoActiveEntities, ge.Code)
}

func TestPrepareNextTurnNeverMovesClockBackward(t *testing.T) {
	s := state.New()
	s.Turn.Clock = 50
	s.Entities.Actors[primitives.Player] = state.Actor{ID: primitives.Player, ReadyAt: readyAt(10)}
	s.Turn.Activate(primitives.Player)

	eng := engine.New(&s)
	sched := New(eng)

	_, _, err := sched.PrepareNextTurn(testEnv())
	require.NoError(t, err)
	assert.Equal(t, primitives.Tick(50), eng.State().Turn.Clock, "clock must never move backward even if the selected ready_at is earlier")
}
