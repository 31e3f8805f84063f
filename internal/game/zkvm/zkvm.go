// Package zkvm implements the zkVM bridge: proving that one action
// execution was carried out correctly by re-running the exact same
// engine.Engine.Execute the host already ran, inside a guest environment
// that only ever sees the oracle.Snapshot-backed Bundle, never the live
// host oracle.Manager. Only the Stub backend is implemented; Risc0 and
// Sp1 are named so a future backend can be swapped in behind the same
// Prover interface.
package zkvm

import (
	"encoding/json"

	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/engine"
	"github.com/0xwonj/dungeon-sim/internal/game/gameerr"
	"github.com/0xwonj/dungeon-sim/internal/game/oracle"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

// Backend names a zkVM guest implementation.
type Backend string

const (
	BackendStub   Backend = "stub"
	BackendRisc0  Backend = "risc0"
	BackendSp1    Backend = "sp1"
)

// Journal is the public output of one proved execution: everything a
// verifier needs to check the guest actually ran Action from BeforeState
// to AfterState.
type Journal struct {
	Action      action.Envelope  `json:"action"`
	BeforeState state.GameState  `json:"before_state"`
	AfterState  state.GameState  `json:"after_state"`
	Delta       state.StateDelta `json:"delta"`
}

// Proof bundles a Journal with the backend that produced it and an
// opaque artifact (for Stub, the serialized Journal itself; a real
// backend would carry the actual succinct proof bytes here instead).
type Proof struct {
	Backend  Backend `json:"backend"`
	Nonce    uint64  `json:"nonce"`
	Journal  Journal `json:"journal"`
	Artifact []byte  `json:"artifact"`
}

// Prover proves and verifies single-action executions.
type Prover interface {
	Backend() Backend
	// Prove re-executes a against before inside the guest environment env
	// describes, and returns the resulting Proof.
	Prove(env action.Env, before state.GameState, a action.Action, nonce uint64) (Proof, error)
	// Verify re-runs the journaled action against its own recorded
	// BeforeState and checks the result matches AfterState/Delta exactly.
	Verify(env action.Env, p Proof) error
}

// StubProver is a non-succinct placeholder backend: it proves by actually
// running the engine once and verifies by running it again, bit-for-bit
// comparing the two GameState values. It exists so the rest of the
// pipeline (persistence, the proof_index, the HTTP surface) can be built
// and tested end to end before a real backend is wired in.
type StubProver struct{}

// NewStubProver returns the always-available Stub backend.
func NewStubProver() *StubProver { return &StubProver{} }

func (p *StubProver) Backend() Backend { return BackendStub }

func (p *StubProver) Prove(env action.Env, before state.GameState, a action.Action, nonce uint64) (Proof, error) {
	// The guest reads only a Bundle built from a snapshot of env's oracles.
	guestEnv := action.Env{Oracles: oracle.NewBundle(oracle.Capture(env.Oracles)).Manager()}
	guestState := before.CloneLightweight() // guest gets its own owning copy, never aliases host state
	eng := engine.New(&guestState)

	delta, err := eng.Execute(guestEnv, a)
	if err != nil {
		return Proof{}, gameerr.Wrap(gameerr.CodeProveFailed, "guest execution failed", err)
	}

	envelope, err := action.Encode(a)
	if err != nil {
		return Proof{}, gameerr.Wrap(gameerr.CodeProveFailed, "encode action for journal", err)
	}

	journal := Journal{
		Action:      envelope,
		BeforeState: before,
		AfterState:  guestState,
		Delta:       delta,
	}
	artifact, err := json.Marshal(journal)
	if err != nil {
		return Proof{}, gameerr.Wrap(gameerr.CodeProveFailed, "serialize journal", err)
	}

	return Proof{Backend: BackendStub, Nonce: nonce, Journal: journal, Artifact: artifact}, nil
}

func (p *StubProver) Verify(env action.Env, proof Proof) error {
	if proof.Backend != BackendStub {
		return gameerr.New(gameerr.CodeBackendMismatch, "proof was not produced by the stub backend").WithDetail("backend", proof.Backend)
	}

	a, err := action.Decode(proof.Journal.Action)
	if err != nil {
		return gameerr.Wrap(gameerr.CodeVerificationFailed, "decode journaled action", err)
	}

	replay := proof.Journal.BeforeState.CloneLightweight() // never mutate the journaled copy in place
	eng := engine.New(&replay)
	delta, err := eng.Execute(env, a)
	if err != nil {
		return gameerr.Wrap(gameerr.CodeVerificationFailed, "replay execution failed", err)
	}

	replayBytes, err := json.Marshal(replay)
	if err != nil {
		return gameerr.Wrap(gameerr.CodeVerificationFailed, "serialize replayed state", err)
	}
	afterBytes, err := json.Marshal(proof.Journal.AfterState)
	if err != nil {
		return gameerr.Wrap(gameerr.CodeVerificationFailed, "serialize journaled after_state", err)
	}
	if string(replayBytes) != string(afterBytes) {
		return gameerr.New(gameerr.CodeVerificationFailed, "replayed state diverges from journal")
	}

	deltaBytes, err := json.Marshal(delta)
	if err != nil {
		return gameerr.Wrap(gameerr.CodeVerificationFailed, "serialize replayed delta", err)
	}
	journalDeltaBytes, err := json.Marshal(proof.Journal.Delta)
	if err != nil {
		return gameerr.Wrap(gameerr.CodeVerificationFailed, "serialize journaled delta", err)
	}
	if string(deltaBytes) != string(journalDeltaBytes) {
		return gameerr.New(gameerr.CodeVerificationFailed, "replayed delta diverges from journal")
	}

	return nil
}
