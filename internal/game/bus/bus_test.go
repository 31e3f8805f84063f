package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
)

func TestSubscribePublishDeliversMessage(t *testing.T) {
	b := New(4, nil)
	h := b.Subscribe(TopicTurn)
	defer h.Unsubscribe()

	b.PublishTurn(TurnMessage{Actor: primitives.Player, Clock: 5})

	msg := <-h.C()
	tm, ok := msg.(TurnMessage)
	require.True(t, ok)
	assert.Equal(t, primitives.Player, tm.Actor)
	assert.Equal(t, primitives.Tick(5), tm.Clock)
}

func TestPublishDoesNotBlockOnFullMailbox(t *testing.T) {
	b := New(1, nil)
	h := b.Subscribe(TopicTurn)
	defer h.Unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.PublishTurn(TurnMessage{Clock: primitives.Tick(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full mailbox")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(4, nil)
	h := b.Subscribe(TopicTurn)
	h.Unsubscribe()

	b.PublishTurn(TurnMessage{Clock: 1})

	_, ok := <-h.C()
	assert.False(t, ok, "channel must be closed after Unsubscribe")
}

func TestSubscribersOnDifferentTopicsAreIndependent(t *testing.T) {
	b := New(4, nil)
	turnH := b.Subscribe(TopicTurn)
	gsH := b.Subscribe(TopicGameState)
	defer turnH.Unsubscribe()
	defer gsH.Unsubscribe()

	b.PublishTurn(TurnMessage{Clock: 7})

	select {
	case <-gsH.C():
		t.Fatal("game_state subscriber must not receive a turn message")
	default:
	}

	msg := <-turnH.C()
	tm := msg.(TurnMessage)
	assert.Equal(t, primitives.Tick(7), tm.Clock)
}
