package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/gameerr"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleEnvelope(t *testing.T) action.Envelope {
	t.Helper()
	env, err := action.Encode(&action.Wait{ActorID: primitives.Player})
	require.NoError(t, err)
	return env
}

// TestAppendAndReplayRoundTrip mirrors scenario S5: append a few action
// records, then replay them back from a given nonce in log order.
func TestAppendAndReplayRoundTrip(t *testing.T) {
	s := openStore(t)
	envelope := sampleEnvelope(t)

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, s.AppendAction(Record{Nonce: i, ClockAfter: i * 10, Envelope: envelope}))
	}

	recs, err := s.ReplayFrom(0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, uint64(i+1), rec.Nonce)
	}
}

func TestReplayFromSkipsAlreadyAppliedNonces(t *testing.T) {
	s := openStore(t)
	envelope := sampleEnvelope(t)
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, s.AppendAction(Record{Nonce: i, ClockAfter: i, Envelope: envelope}))
	}

	recs, err := s.ReplayFrom(3)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, uint64(4), recs[0].Nonce)
	assert.Equal(t, uint64(5), recs[1].Nonce)
}

func TestReplayDetectsNonMonotonicNonce(t *testing.T) {
	s := openStore(t)
	envelope := sampleEnvelope(t)
	require.NoError(t, s.AppendAction(Record{Nonce: 2, ClockAfter: 2, Envelope: envelope}))
	require.NoError(t, s.AppendAction(Record{Nonce: 1, ClockAfter: 1, Envelope: envelope}))

	_, err := s.ReplayFrom(0)
	require.Error(t, err)
	assert.True(t, gameerr.Is(err, gameerr.CodeNonMonotonicLog))
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := openStore(t)
	snap := state.New()
	snap.Entities.Actors[primitives.Player] = state.Actor{ID: primitives.Player, Position: primitives.Position{X: 3, Y: 4}}
	snap.Turn.Clock = 42

	require.NoError(t, s.Checkpoint(7, snap))

	nonce, ok, err := s.LatestCheckpoint()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(7), nonce)

	loaded, err := s.LoadCheckpoint(7)
	require.NoError(t, err)
	assert.Equal(t, primitives.Tick(42), loaded.Turn.Clock)
	actor, found := loaded.Entities.Actor(primitives.Player)
	require.True(t, found)
	assert.Equal(t, primitives.Position{X: 3, Y: 4}, actor.Position)
}

func TestLatestCheckpointReportsNoneForFreshStore(t *testing.T) {
	s := openStore(t)
	_, ok, err := s.LatestCheckpoint()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppendProofWritesRecord(t *testing.T) {
	s := openStore(t)
	err := s.AppendProof(ProofRecord{Nonce: 1, ProofPath: "proofs/1.json", Verified: true})
	assert.NoError(t, err)
}
