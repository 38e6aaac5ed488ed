package rsync

import (
	"bytes"
	"hash"
	"io"
)

// OperationReceiver supplies the next delta Operation to apply, returning
// io.EOF once the stream is exhausted. It mirrors OperationTransmitter's
// pull-based counterpart so Patch can be driven by a decoded token stream
// just as easily as by an in-memory operation slice.
type OperationReceiver func() (Operation, error)

// Patch reconstructs a target by replaying operations against basis,
// writing the result to destination (C6). sig must be the signature the
// operations were matched against; it supplies block boundaries for COPY
// operations. If proto.Digest is set and expectedDigest is non-nil, the
// reconstructed stream's whole-file digest is verified against it and a
// KindIntegrityFailure error is returned on mismatch.
func Patch(destination io.Writer, basis io.ReadSeeker, sig *Signature, proto *ProtocolContext, receive OperationReceiver, expectedDigest []byte) error {
	var verify hash.Hash
	if expectedDigest != nil {
		verify = newWholeFileHasher(proto.Digest, proto.Version, proto.Seed)
	}

	out := io.Writer(destination)
	if verify != nil {
		out = io.MultiWriter(destination, verify)
	}

	blockBuf := make([]byte, sig.BlockLength)

	for {
		op, err := receive()
		if err == io.EOF {
			break
		}
		if err != nil {
			return wrapError(KindDeltaInvalid, err, "unable to receive operation")
		}

		if op.IsMatch {
			if op.Count == 0 {
				return newError(KindDeltaInvalid, "match operation has zero block count")
			}
			last := op.BlockIndex + op.Count - 1
			if last >= uint64(len(sig.Hashes)) {
				return newErrorf(KindDeltaInvalid,
					"operation references blocks [%d, %d], basis has %d blocks", op.BlockIndex, last, len(sig.Hashes))
			}
			offset := op.BlockIndex * uint64(sig.BlockLength)
			if _, err := basis.Seek(int64(offset), io.SeekStart); err != nil {
				return wrapError(KindDeltaInvalid, err, "unable to seek basis")
			}
			for i := uint64(0); i < op.Count; i++ {
				length := sig.blockLengthAt(op.BlockIndex + i)
				chunk := blockBuf[:length]
				if _, err := io.ReadFull(basis, chunk); err != nil {
					return wrapError(KindDeltaInvalid, err, "unable to read basis block")
				}
				if _, err := out.Write(chunk); err != nil {
					return wrapError(KindDeltaInvalid, err, "unable to write reconstructed data")
				}
			}
		} else {
			if _, err := out.Write(op.Data); err != nil {
				return wrapError(KindDeltaInvalid, err, "unable to write literal data")
			}
		}
	}

	if verify != nil {
		sum := verify.Sum(nil)
		if !bytes.Equal(sum, expectedDigest) {
			return newErrorf(KindIntegrityFailure,
				"reconstructed whole-file digest %x does not match expected %x", sum, expectedDigest)
		}
	}

	return nil
}

// PatchBytes is the in-memory convenience form of Patch.
func PatchBytes(basis []byte, sig *Signature, proto *ProtocolContext, ops []Operation, expectedDigest []byte) ([]byte, error) {
	var out bytes.Buffer
	i := 0
	receive := func() (Operation, error) {
		if i >= len(ops) {
			return Operation{}, io.EOF
		}
		op := ops[i]
		i++
		return op, nil
	}
	if err := Patch(&out, bytes.NewReader(basis), sig, proto, receive, expectedDigest); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
