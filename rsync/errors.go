package rsync

import (
	"github.com/pkg/errors"
)

// Kind identifies the category of a core-level failure. Every operation the
// core exposes returns either a result value or an error carrying one of
// these kinds; nothing is caught or logged internally.
type Kind uint

const (
	// KindProtocolUnsupported indicates that a negotiated or requested
	// protocol version falls outside [20, 32].
	KindProtocolUnsupported Kind = iota
	// KindConfigInvalid indicates an invalid block size, digest kind, or
	// other configuration value.
	KindConfigInvalid
	// KindWireMalformed indicates a truncated or internally inconsistent
	// sum-head, token, or varint on the wire.
	KindWireMalformed
	// KindSignatureInvalid indicates a signature whose header contradicts
	// its entry count or whose fields are out of range.
	KindSignatureInvalid
	// KindDeltaInvalid indicates a delta whose instructions reference
	// out-of-range blocks or whose reconstructed length disagrees with the
	// declared target length.
	KindDeltaInvalid
	// KindIntegrityFailure indicates a whole-file digest mismatch after
	// patching.
	KindIntegrityFailure
	// KindResourceLimit indicates that a requested block size or block
	// count would exceed a caller-configured memory cap.
	KindResourceLimit
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case KindProtocolUnsupported:
		return "protocol unsupported"
	case KindConfigInvalid:
		return "config invalid"
	case KindWireMalformed:
		return "wire malformed"
	case KindSignatureInvalid:
		return "signature invalid"
	case KindDeltaInvalid:
		return "delta invalid"
	case KindIntegrityFailure:
		return "integrity failure"
	case KindResourceLimit:
		return "resource limit"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every core operation that can fail. It
// carries a Kind so that callers can branch on failure category (via
// errors.As) without string matching, while still supporting pkg/errors
// cause-chain inspection and formatting.
type Error struct {
	// Kind categorizes the failure.
	Kind Kind
	// cause is the underlying wrapped error, usually constructed with
	// errors.New or errors.Wrap so that %+v formatting retains a stack
	// trace, matching the teacher's error-handling idiom.
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.cause.Error()
}

// Unwrap allows errors.Is and errors.As to see through to the cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Cause implements the github.com/pkg/errors Causer interface.
func (e *Error) Cause() error {
	return e.cause
}

// newError creates a new Error of the given kind with a plain message.
func newError(kind Kind, message string) error {
	return &Error{Kind: kind, cause: errors.New(message)}
}

// newErrorf creates a new Error of the given kind with a formatted message.
func newErrorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, cause: errors.Errorf(format, args...)}
}

// wrapError wraps an existing error as an Error of the given kind, attaching
// a contextual message in the teacher's "unable to X" style.
func wrapError(kind Kind, cause error, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, cause: errors.Wrap(cause, message)}
}

// IsKind reports whether err is (or wraps) an *Error of the specified kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
