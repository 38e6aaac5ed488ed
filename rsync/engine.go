package rsync

import "io"

// Engine ties the signature builder, matcher, and patcher to a single
// negotiated ProtocolContext so that callers need not pass it to every call.
// It holds no other state: the block-size plan and any scratch buffers are
// computed or allocated anew on each call.
type Engine struct {
	proto *ProtocolContext
}

// NewEngine constructs an Engine bound to proto.
func NewEngine(proto *ProtocolContext) *Engine {
	return &Engine{proto: proto}
}

// Signature builds a Signature over basis, planning the block layout from
// basisLength unless requestedBlockSize is non-zero.
func (e *Engine) Signature(basis io.Reader, basisLength uint64, requestedBlockSize uint32) (*Signature, error) {
	planned, err := PlanBlockSize(basisLength, e.proto, requestedBlockSize)
	if err != nil {
		return nil, err
	}
	return BuildSignature(basis, basisLength, e.proto, planned)
}

// SignatureBytes is the in-memory convenience form of Signature.
func (e *Engine) SignatureBytes(basis []byte, requestedBlockSize uint32) (*Signature, error) {
	return e.Signature(sliceReader(basis), uint64(len(basis)), requestedBlockSize)
}

// Delta compares target against sig and reports the result as a stream of
// Operations.
func (e *Engine) Delta(target io.Reader, sig *Signature, transmit OperationTransmitter) error {
	return Match(target, sig, e.proto, transmit)
}

// DeltaBytes is the in-memory convenience form of Delta.
func (e *Engine) DeltaBytes(target []byte, sig *Signature) ([]Operation, error) {
	return MatchBytes(target, sig, e.proto)
}

// Patch reconstructs a target from basis and a stream of Operations,
// optionally verifying a whole-file digest.
func (e *Engine) Patch(destination io.Writer, basis io.ReadSeeker, sig *Signature, receive OperationReceiver, expectedDigest []byte) error {
	return Patch(destination, basis, sig, e.proto, receive, expectedDigest)
}

// PatchBytes is the in-memory convenience form of Patch.
func (e *Engine) PatchBytes(basis []byte, sig *Signature, ops []Operation, expectedDigest []byte) ([]byte, error) {
	return PatchBytes(basis, sig, e.proto, ops, expectedDigest)
}
