// Package persistence implements the append-only session log:
// length-prefixed actions.log, periodic full-state checkpoints keyed by
// action_nonce, and the proof_index that correlates a nonce to a proof
// record once zkVM proving is enabled. All multi-byte integers are
// little-endian; nonces are strictly increasing within one log file.
package persistence

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/gameerr"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
	"github.com/0xwonj/dungeon-sim/pkg/logger"
)

const (
	actionsLogName  = "actions.log"
	proofIndexName  = "proof_index"
	checkpointMeta  = "checkpoint.meta"
	checkpointDir   = "checkpoints"
)

// Record is one entry in actions.log: the nonce the action produced, the
// action that was executed, and the resulting clock for quick scanning.
type Record struct {
	Nonce      uint64          `json:"nonce"`
	ClockAfter uint64          `json:"clock_after"`
	Envelope   action.Envelope `json:"envelope"`
}

// ProofRecord correlates an action_nonce to its proof artifact location,
// written to proof_index once the zkVM bridge finishes proving a nonce.
type ProofRecord struct {
	Nonce     uint64 `json:"nonce"`
	ProofPath string `json:"proof_path"`
	Verified  bool   `json:"verified"`
}

// Store owns one session's on-disk layout under dir.
type Store struct {
	dir string
	log *logger.Logger

	logFile   *os.File
	logWriter *bufio.Writer

	proofFile *os.File
}

// Open creates dir (and its checkpoints subdirectory) if missing and
// opens actions.log and proof_index for appending.
func Open(dir string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewDefault("persistence")
	}
	if err := os.MkdirAll(filepath.Join(dir, checkpointDir), 0o755); err != nil {
		return nil, gameerr.Wrap(gameerr.CodeIO, "create session directory", err)
	}

	logFile, err := os.OpenFile(filepath.Join(dir, actionsLogName), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, gameerr.Wrap(gameerr.CodeIO, "open actions.log", err)
	}
	proofFile, err := os.OpenFile(filepath.Join(dir, proofIndexName), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		logFile.Close()
		return nil, gameerr.Wrap(gameerr.CodeIO, "open proof_index", err)
	}

	return &Store{
		dir:       dir,
		log:       log,
		logFile:   logFile,
		logWriter: bufio.NewWriter(logFile),
		proofFile: proofFile,
	}, nil
}

// Close flushes and closes both open files.
func (s *Store) Close() error {
	if err := s.logWriter.Flush(); err != nil {
		return err
	}
	if err := s.logFile.Close(); err != nil {
		return err
	}
	return s.proofFile.Close()
}

// AppendAction writes one length-prefixed Record to actions.log. It does
// not check nonce order; ReplayFrom rejects a non-increasing nonce when
// the log is read back.
func (s *Store) AppendAction(rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return gameerr.Wrap(gameerr.CodeIO, "marshal action record", err)
	}

	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(payload)))
	if _, err := s.logWriter.Write(length[:]); err != nil {
		return gameerr.Wrap(gameerr.CodeIO, "write record length", err)
	}
	if _, err := s.logWriter.Write(payload); err != nil {
		return gameerr.Wrap(gameerr.CodeIO, "write record payload", err)
	}
	return s.logWriter.Flush()
}

// AppendProof records a proof artifact's location for a nonce.
func (s *Store) AppendProof(rec ProofRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return gameerr.Wrap(gameerr.CodeIO, "marshal proof record", err)
	}
	payload = append(payload, '\n')
	if _, err := s.proofFile.Write(payload); err != nil {
		return gameerr.Wrap(gameerr.CodeIO, "write proof record", err)
	}
	return nil
}

// Checkpoint writes a full GameState snapshot to checkpoints/<nonce>.bin
// and updates checkpoint.meta to point at the latest one.
func (s *Store) Checkpoint(nonce uint64, snapshot state.GameState) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return gameerr.Wrap(gameerr.CodeIO, "marshal checkpoint", err)
	}
	path := filepath.Join(s.dir, checkpointDir, fmt.Sprintf("%020d.bin", nonce))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return gameerr.Wrap(gameerr.CodeIO, "write checkpoint", err)
	}

	meta := fmt.Sprintf("%d\n", nonce)
	if err := os.WriteFile(filepath.Join(s.dir, checkpointMeta), []byte(meta), 0o644); err != nil {
		return gameerr.Wrap(gameerr.CodeIO, "write checkpoint.meta", err)
	}
	return nil
}

// LatestCheckpoint reports the nonce checkpoint.meta points to, and
// whether one exists at all (a fresh session has none).
func (s *Store) LatestCheckpoint() (uint64, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, checkpointMeta))
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, gameerr.Wrap(gameerr.CodeIO, "read checkpoint.meta", err)
	}
	var nonce uint64
	if _, err := fmt.Sscanf(string(data), "%d", &nonce); err != nil {
		return 0, false, gameerr.Wrap(gameerr.CodeCorruption, "parse checkpoint.meta", err)
	}
	return nonce, true, nil
}

// LoadCheckpoint reads back the GameState snapshot at the given nonce.
func (s *Store) LoadCheckpoint(nonce uint64) (state.GameState, error) {
	path := filepath.Join(s.dir, checkpointDir, fmt.Sprintf("%020d.bin", nonce))
	data, err := os.ReadFile(path)
	if err != nil {
		return state.GameState{}, gameerr.Wrap(gameerr.CodeIO, "read checkpoint", err)
	}
	var snap state.GameState
	if err := json.Unmarshal(data, &snap); err != nil {
		return state.GameState{}, gameerr.Wrap(gameerr.CodeCorruption, "unmarshal checkpoint", err)
	}
	return snap, nil
}

// ReplayFrom reads every Record appended after afterNonce, in log order,
// for crash-recovery replay on top of the most recent checkpoint.
func (s *Store) ReplayFrom(afterNonce uint64) ([]Record, error) {
	if _, err := s.logFile.Seek(0, 0); err != nil {
		return nil, gameerr.Wrap(gameerr.CodeIO, "seek actions.log", err)
	}
	r := bufio.NewReader(s.logFile)

	var out []Record
	var lastNonce uint64
	haveLast := false
	for {
		var length [4]byte
		if _, err := readFull(r, length[:]); err != nil {
			break // clean EOF between records
		}
		n := binary.LittleEndian.Uint32(length[:])
		payload := make([]byte, n)
		if _, err := readFull(r, payload); err != nil {
			return nil, gameerr.Wrap(gameerr.CodeTruncatedRecord, "truncated actions.log record", err)
		}

		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, gameerr.Wrap(gameerr.CodeCorruption, "unmarshal action record", err)
		}
		if haveLast && rec.Nonce <= lastNonce {
			return nil, gameerr.New(gameerr.CodeNonMonotonicLog, "nonce did not increase").WithDetail("nonce", rec.Nonce)
		}
		lastNonce, haveLast = rec.Nonce, true

		if rec.Nonce > afterNonce {
			out = append(out, rec)
		}
	}

	// re-append from where we left off
	if _, err := s.logFile.Seek(0, 2); err != nil {
		return nil, gameerr.Wrap(gameerr.CodeIO, "seek to end of actions.log", err)
	}
	s.logWriter = bufio.NewWriter(s.logFile)

	return out, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
