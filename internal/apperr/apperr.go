// Package apperr defines the decision outcomes surfaced by orgkeeper operations.
//
// A Kind is a stable, distinguishable signal. Callers compare with errors.Is
// against the exported sentinels, for example:
//
//	if errors.Is(err, apperr.ErrConflict) { ... }
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind uint8

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindGone
	KindExpired
	KindUnauthorized
	KindDataIntegrity
	KindInvalid
	KindUnavailable
)

var kindNames = map[Kind]string{
	KindInternal:      "internal",
	KindNotFound:      "not_found",
	KindForbidden:     "forbidden",
	KindConflict:      "conflict",
	KindGone:          "gone",
	KindExpired:       "expired",
	KindUnauthorized:  "unauthorized",
	KindDataIntegrity: "data_integrity",
	KindInvalid:       "invalid",
	KindUnavailable:   "unavailable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "internal"
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrGone          = &Error{Kind: KindGone}
	ErrExpired       = &Error{Kind: KindExpired}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrDataIntegrity = &Error{Kind: KindDataIntegrity}
	ErrInvalid       = &Error{Kind: KindInvalid}
	ErrUnavailable   = &Error{Kind: KindUnavailable}
)

// Error is a classified error carrying the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so sentinels compare equal to any error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// E builds a classified error.
func E(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds a classified error around a cause.
func Wrap(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsDecision reports whether err is a decision outcome rather than an upstream failure.
// Decision outcomes are returned verbatim and never retried.
func IsDecision(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindInternal, KindUnavailable:
		return false
	default:
		return true
	}
}

// IsRetryable reports whether err signals a transient upstream failure.
func IsRetryable(err error) bool {
	return KindOf(err) == KindUnavailable
}
