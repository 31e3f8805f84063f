package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

func TestExtractAlwaysIncludesActionCompletedExactlyOnce(t *testing.T) {
	before := state.New()
	before.Entities.Actors[primitives.Player] = state.Actor{ID: primitives.Player, Position: primitives.Position{X: 0}}
	after := before.CloneLightweight()
	moved := after.Entities.Actors[primitives.Player]
	moved.Position = primitives.Position{X: 1}
	after.Entities.Actors[primitives.Player] = moved

	delta := state.Diff(before, after)
	evs := Extract(before, &action.Move{ActorID: primitives.Player, Direction: action.East}, after, delta)

	count := 0
	for _, e := range evs {
		if e.Kind() == KindActionCompleted {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

// TestExtractDeathCascadeOrdering mirrors scenario S3: an NPC with 3 HP
// takes 5 damage and dies in the same action.
func TestExtractDeathCascadeOrdering(t *testing.T) {
	const npc = primitives.EntityId(1)

	before := state.New()
	before.Entities.Actors[primitives.Player] = state.Actor{ID: primitives.Player}
	before.Entities.Actors[npc] = state.Actor{
		ID:        npc,
		Resources: state.ActorResources{HP: primitives.ResourceMeter{Current: 3, Maximum: 10}},
		ReadyAt:   readyAt(0),
	}

	after := before.CloneLightweight()
	dead := after.Entities.Actors[npc]
	dead.Resources.HP = primitives.ResourceMeter{Current: 0, Maximum: 10}
	after.Entities.Actors[npc] = dead

	delta := state.Diff(before, after)
	a := &action.Attack{ActorID: primitives.Player, TargetID: npc, Style: action.KindAttackMelee}
	evs := Extract(before, a, after, delta)

	require.GreaterOrEqual(t, len(evs), 3)
	assert.Equal(t, KindActionCompleted, evs[0].Kind(), "ActionCompleted sorts first for the acting player")

	var sawDamage, sawDeath, sawThreshold bool
	for _, e := range evs {
		switch ev := e.(type) {
		case DamageTaken:
			sawDamage = true
			assert.Equal(t, npc, ev.Entity)
			assert.Equal(t, uint32(3), ev.Amount)
		case EntityDied:
			sawDeath = true
			assert.Equal(t, npc, ev.Entity)
		case HealthThresholdCrossed:
			sawThreshold = true
			assert.Equal(t, primitives.BucketDead, ev.To)
		}
	}
	assert.True(t, sawDamage)
	assert.True(t, sawDeath)
	assert.True(t, sawThreshold)

	// DamageTaken must precede EntityDied for the same entity (fixed
	// event-kind priority).
	damageIdx, deathIdx := -1, -1
	for i, e := range evs {
		if e.EntityID() != npc {
			continue
		}
		if e.Kind() == KindDamageTaken {
			damageIdx = i
		}
		if e.Kind() == KindEntityDied {
			deathIdx = i
		}
	}
	require.NotEqual(t, -1, damageIdx)
	require.NotEqual(t, -1, deathIdx)
	assert.Less(t, damageIdx, deathIdx)
}

func TestExtractEntityMovedOnPositionFlag(t *testing.T) {
	before := state.New()
	before.Entities.Actors[primitives.Player] = state.Actor{ID: primitives.Player, Position: primitives.Position{}}
	after := before.CloneLightweight()
	moved := after.Entities.Actors[primitives.Player]
	moved.Position = primitives.Position{X: 1}
	after.Entities.Actors[primitives.Player] = moved

	delta := state.Diff(before, after)
	evs := Extract(before, &action.Move{ActorID: primitives.Player, Direction: action.East}, after, delta)

	var found bool
	for _, e := range evs {
		if m, ok := e.(EntityMoved); ok {
			found = true
			assert.Equal(t, primitives.Position{}, m.From)
			assert.Equal(t, primitives.Position{X: 1}, m.To)
		}
	}
	assert.True(t, found)
}

func TestEventsAreOrderedByEntityIDThenPriority(t *testing.T) {
	before := state.New()
	before.Entities.Actors[primitives.EntityId(5)] = state.Actor{ID: 5, Position: primitives.Position{}}
	before.Entities.Actors[primitives.EntityId(2)] = state.Actor{ID: 2, Position: primitives.Position{}}
	after := before.CloneLightweight()
	for _, id := range []primitives.EntityId{5, 2} {
		a := after.Entities.Actors[id]
		a.Position = primitives.Position{X: 1}
		after.Entities.Actors[id] = a
	}

	delta := state.Diff(before, after)
	evs := Extract(before, &action.Wait{ActorID: primitives.EntityId(2)}, after, delta)

	var seenIDs []primitives.EntityId
	for _, e := range evs {
		seenIDs = append(seenIDs, e.EntityID())
	}
	for i := 1; i < len(seenIDs); i++ {
		assert.LessOrEqual(t, seenIDs[i-1], seenIDs[i], "events must be ordered by ascending entity id")
	}
}

func readyAt(t primitives.Tick) *primitives.Tick { return &t }
