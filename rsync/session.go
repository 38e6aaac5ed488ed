package rsync

import (
	"io"

	"github.com/deltasync/rdelta/pkg/logging"
)

// Options carries the caller-configurable tuning constants for a Session:
// the teacher has no standalone config file format for its rsync engine (its
// defaults are untyped constants in rsync.go), so this keeps that pattern —
// typed constants plus an optional override struct — rather than inventing
// a config file parser no example in the pack grounds.
type Options struct {
	// RequestedBlockSize overrides the square-root block-size heuristic
	// when non-zero.
	RequestedBlockSize uint32
	// MaxBlockCount caps the number of blocks a signature built by
	// Session.Signature may contain. It is not applied to signatures decoded
	// with ReadSignature. Zero means unlimited.
	MaxBlockCount uint64
	// VerifyWholeFileDigest enables whole-file digest verification during
	// Patch.
	VerifyWholeFileDigest bool
	// LogLevel sets the verbosity of the session's logger. It defaults to
	// logging.LevelInfo (the zero value of logging.Level is
	// LevelDisabled, so an explicit default is applied in NewSession when
	// a nil logger is not supplied).
	LogLevel logging.Level
}

// Session groups a negotiated ProtocolContext with the memory-cap and
// diagnostics settings a caller configures once per logical connection. It
// owns no sockets or file handles; it is the in-process analogue of the
// "external collaborator" wiring that a transport layer would otherwise
// provide.
type Session struct {
	proto   *ProtocolContext
	options Options
	logger  *logging.Logger
}

// NewSession constructs a Session from an already-negotiated protocol
// context. A nil logger is valid and silently discards output. The logger
// is narrowed to options.LogLevel, so a caller wanting the session's
// Debugf diagnostics (block-plan and delta-mix summaries) must pass
// logging.LevelDebug.
func NewSession(proto *ProtocolContext, options Options, logger *logging.Logger) *Session {
	level := options.LogLevel
	if level == logging.LevelDisabled {
		level = logging.LevelInfo
	}
	return &Session{proto: proto, options: options, logger: logger.WithLevel(level)}
}

// Protocol returns the session's negotiated protocol context.
func (s *Session) Protocol() *ProtocolContext {
	return s.proto
}

// Signature builds a Signature over basis under the session's options.
func (s *Session) Signature(basis io.Reader, basisLength uint64) (*Signature, error) {
	planned, err := PlanBlockSize(basisLength, s.proto, s.options.RequestedBlockSize)
	if err != nil {
		return nil, err
	}
	if s.options.MaxBlockCount != 0 && planned.BlockCount > s.options.MaxBlockCount {
		return nil, newErrorf(KindResourceLimit,
			"signature would have %d blocks, exceeding configured maximum %d", planned.BlockCount, s.options.MaxBlockCount)
	}
	s.logger.Debugf("planned signature: %d blocks of length %d (remainder %d)", planned.BlockCount, planned.BlockLength, planned.RemainderLength)
	return BuildSignature(basis, basisLength, s.proto, planned)
}

// Delta compares target against sig, logging a summary of the resulting
// operation mix at debug level.
func (s *Session) Delta(target io.Reader, sig *Signature) ([]Operation, error) {
	var ops []Operation
	err := Match(target, sig, s.proto, func(op Operation) error {
		if !op.IsMatch {
			op.Data = append([]byte(nil), op.Data...)
		}
		ops = append(ops, op)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var matched, literal int
	for _, op := range ops {
		if op.IsMatch {
			matched++
		} else {
			literal++
		}
	}
	s.logger.Debugf("delta: %d copy operations, %d literal operations", matched, literal)
	return ops, nil
}

// Patch reconstructs a target from basis and ops, verifying the whole-file
// digest when the session was configured to do so.
func (s *Session) Patch(destination io.Writer, basis io.ReadSeeker, sig *Signature, ops []Operation, expectedDigest []byte) error {
	if !s.options.VerifyWholeFileDigest {
		expectedDigest = nil
	}
	i := 0
	receive := func() (Operation, error) {
		if i >= len(ops) {
			return Operation{}, io.EOF
		}
		op := ops[i]
		i++
		return op, nil
	}
	return Patch(destination, basis, sig, s.proto, receive, expectedDigest)
}
