// Package gameerr provides the structured error taxonomy shared across the
// simulation core: Validation, Integrity, Handler chain, Scheduler,
// Transport, Persistence and Proof errors all carry a stable Code, a
// human message, and an optional wrapped cause so logs and the
// GameState/Proof topics can serialize them uniformly.
package gameerr

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-comparable error identifier.
type Code string

const (
	// Validation (pre-validate)
	CodeTargetNotFound       Code = "VAL_TARGET_NOT_FOUND"
	CodeOutOfRange           Code = "VAL_OUT_OF_RANGE"
	CodeOutOfBounds          Code = "VAL_OUT_OF_BOUNDS"
	CodeBlocked              Code = "VAL_BLOCKED"
	CodeInsufficientResource Code = "VAL_INSUFFICIENT_RESOURCE"
	CodeCooldownActive       Code = "VAL_COOLDOWN_ACTIVE"
	CodeNotActorsTurn        Code = "VAL_NOT_ACTORS_TURN"
	CodeInvalidEntityID      Code = "VAL_INVALID_ENTITY_ID"

	// Integrity (post-validate)
	CodeInvariantViolation Code = "INT_INVARIANT_VIOLATION"

	// Handler chain
	CodeHookChainTooDeep Code = "HOOK_CHAIN_TOO_DEEP"
	CodeCriticalHandler  Code = "HOOK_CRITICAL_HANDLER_FAILED"

	// Scheduler
	CodeNoActiveEntities Code = "SCHED_NO_ACTIVE_ENTITIES"

	// Transport
	CodeCommandChannelClosed  Code = "TRANSPORT_COMMAND_CHANNEL_CLOSED"
	CodeReplyChannelDropped   Code = "TRANSPORT_REPLY_CHANNEL_DROPPED"
	CodeProviderChannelClosed Code = "TRANSPORT_PROVIDER_CHANNEL_CLOSED"
	CodeProviderFailed        Code = "TRANSPORT_PROVIDER_FAILED"

	// Persistence
	CodeIO               Code = "PERSIST_IO"
	CodeCorruption       Code = "PERSIST_CORRUPTION"
	CodeNonMonotonicLog  Code = "PERSIST_NON_MONOTONIC_NONCE"
	CodeTruncatedRecord  Code = "PERSIST_TRUNCATED_RECORD"
	CodeLockPoisoned     Code = "PERSIST_LOCK_POISONED"

	// Proof
	CodeProveFailed        Code = "PROOF_EXECUTION_FAILED"
	CodeVerificationFailed Code = "PROOF_VERIFICATION_FAILED"
	CodeBackendMismatch    Code = "PROOF_BACKEND_MISMATCH"
)

// GameError is the structured error carried through the engine, worker,
// persistence, and prover layers.
type GameError struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *GameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *GameError) Unwrap() error { return e.Err }

// WithDetail attaches a diagnostic detail and returns the same error.
func (e *GameError) WithDetail(key string, value any) *GameError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a GameError with no wrapped cause.
func New(code Code, message string) *GameError {
	return &GameError{Code: code, Message: message}
}

// Wrap creates a GameError wrapping an underlying cause.
func Wrap(code Code, message string, err error) *GameError {
	return &GameError{Code: code, Message: message, Err: err}
}

// As extracts a *GameError from an error chain, if present.
func As(err error) (*GameError, bool) {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// Is reports whether err carries the given Code anywhere in its chain.
func Is(err error, code Code) bool {
	ge, ok := As(err)
	return ok && ge.Code == code
}
