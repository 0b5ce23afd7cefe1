// Package ledgererr implements the design-level error taxonomy shared by
// every core component (spec.md §7): NotFound, Duplicate, State, Auth,
// Validation, and Integrity. It follows the teacher's per-domain sentinel +
// predicate idiom (core/errors, native/loyalty/errors.go, p2p/errors.go),
// collapsed into one package because the taxonomy itself is defined once,
// cross-cutting every component, rather than per-domain.
package ledgererr

import (
	"errors"
	"fmt"
)

// Kind identifies which of the six design-level error categories an Error
// belongs to.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindDuplicate  Kind = "duplicate"
	KindState      Kind = "state"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindIntegrity  Kind = "integrity"
)

// Error is the concrete error type raised by every core component. Errors
// carry a Kind so callers (including external HTTP layers, out of scope
// here) can map them to a stable status without string matching.
type Error struct {
	Kind       Kind
	Message    string
	BlockIndex *int // set only for IntegrityError with a known locus
}

func (e *Error) Error() string {
	if e.BlockIndex != nil {
		return fmt.Sprintf("%s: %s (block %d)", e.Kind, e.Message, *e.BlockIndex)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is allows errors.Is(err, ledgererr.ErrNotFound) style checks against the
// category sentinels below.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	if !ok {
		return false
	}
	return sentinel.Kind == e.Kind
}

// Category sentinels for errors.Is matching.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrDuplicate  = &Error{Kind: KindDuplicate}
	ErrState      = &Error{Kind: KindState}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrValidation = &Error{Kind: KindValidation}
	ErrIntegrity  = &Error{Kind: KindIntegrity}
)

// NotFound constructs an unknown-id error (identity, proposal, petition,
// entry, session).
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Duplicate constructs a repeat-registration/commitment/signature error.
func Duplicate(format string, args ...interface{}) *Error {
	return &Error{Kind: KindDuplicate, Message: fmt.Sprintf(format, args...)}
}

// State constructs an invalid-for-current-state error.
func State(format string, args ...interface{}) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// Auth constructs a signer/credential/commitment-opening failure error.
func Auth(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

// Validation constructs a malformed-input error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Integrity constructs a chain-verification failure with a specific block
// locus.
func Integrity(blockIndex int, format string, args ...interface{}) *Error {
	idx := blockIndex
	return &Error{Kind: KindIntegrity, Message: fmt.Sprintf(format, args...), BlockIndex: &idx}
}

// Is* helpers mirror p2p.IsInvalidPayload's style.

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsDuplicate(err error) bool  { return errors.Is(err, ErrDuplicate) }
func IsState(err error) bool      { return errors.Is(err, ErrState) }
func IsAuth(err error) bool       { return errors.Is(err, ErrAuth) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsIntegrity(err error) bool  { return errors.Is(err, ErrIntegrity) }
