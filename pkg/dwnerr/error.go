package dwnerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for status mapping and retry decisions.
type Kind string

const (
	// Unauthorized: signature/JWS invalid, DID unresolvable, keyring not found.
	Unauthorized Kind = "unauthorized"
	// Forbidden: policy denies (grant scope, role, protocol rule).
	Forbidden Kind = "forbidden"
	// BadRequest: schema/shape, CID/size mismatch, immutability violation,
	// invalid URL, tag validation.
	BadRequest Kind = "bad_request"
	// NotFound: no matching record; message CID not present; data blocks
	// absent.
	NotFound Kind = "not_found"
	// Conflict: stale write, identical-timestamp smaller-CID, delete
	// predating a newer version.
	Conflict Kind = "conflict"
	// Unexpected: invariant broken inside the engine; surfaced as 500.
	Unexpected Kind = "unexpected"
)

// Error is a classified node error. It wraps an underlying cause so
// errors.Is/As still reach through to it.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether err (or anything it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == k
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Unexpected if err is not
// (or does not wrap) a classified *Error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return Unexpected
}

func New(k Kind, msg string) error {
	return &Error{Kind: k, Message: msg}
}

func Newf(k Kind, format string, args ...any) error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func Wrap(k Kind, msg string, cause error) error {
	return &Error{Kind: k, Message: msg, Cause: cause}
}

func Unauthorizedf(format string, args ...any) error {
	return Newf(Unauthorized, format, args...)
}

func Forbiddenf(format string, args ...any) error {
	return Newf(Forbidden, format, args...)
}

func BadRequestf(format string, args ...any) error {
	return Newf(BadRequest, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return Newf(NotFound, format, args...)
}

func Conflictf(format string, args ...any) error {
	return Newf(Conflict, format, args...)
}

func Unexpectedf(format string, args ...any) error {
	return Newf(Unexpected, format, args...)
}
