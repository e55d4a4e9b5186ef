package engine

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error so the caller can map it to a
// transport-level response without parsing messages.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindConflict
	KindInvalidAction
	KindWrongPhase
	KindRuleViolation
	KindInvalidInput
	KindGameOver
	KindUnknownRole
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidAction:
		return "invalid_action"
	case KindWrongPhase:
		return "wrong_phase"
	case KindRuleViolation:
		return "rule_violation"
	case KindInvalidInput:
		return "invalid_input"
	case KindGameOver:
		return "game_over"
	case KindUnknownRole:
		return "unknown_role"
	default:
		return "unknown"
	}
}

// Error is the engine's domain error. Every failed operation returns one;
// the session is never mutated when an Error comes back.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from an engine error, or KindNone for any
// other error (including nil).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}
