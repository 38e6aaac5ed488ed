package rsync

import (
	"bufio"
	"io"
)

// maximumDataOperationSize caps the length of a single literal Operation, so
// that a long run of non-matching data is still delivered incrementally
// rather than as one unbounded allocation.
const maximumDataOperationSize = 1 << 16

// Operation is a single delta instruction: either a COPY referring to a run
// of Count consecutive basis blocks starting at BlockIndex, or a LITERAL
// carrying raw target bytes.
type Operation struct {
	// IsMatch is true for a COPY operation, false for a LITERAL operation.
	IsMatch bool
	// BlockIndex is the first basis block index, valid when IsMatch is
	// true.
	BlockIndex uint64
	// Count is the number of consecutive basis blocks copied, valid (and
	// always >= 1) when IsMatch is true. The matcher fuses adjacent block
	// matches into a single Operation with Count > 1 rather than emitting
	// one Operation per block.
	Count uint64
	// Data is the literal payload, valid when IsMatch is false. Data
	// aliases an internal buffer and must not be retained past the
	// transmitter call it was delivered in.
	Data []byte
}

// OperationTransmitter receives delta operations as they are produced.
type OperationTransmitter func(Operation) error

// Match compares target against the basis described by sig and reports the
// delta as a stream of Operations (C5). It reproduces rsync's matching
// strategy: a weak rolling checksum is evaluated at every byte offset, and
// only when it collides with a signature block's weak checksum is the
// (more expensive) strong digest computed to confirm the match. When
// several basis blocks share a weak checksum, the block immediately
// following the previous match (the "want" index) is preferred over an
// arbitrary earlier duplicate, favoring contiguous runs.
func Match(target io.Reader, sig *Signature, proto *ProtocolContext, transmit OperationTransmitter) error {
	if err := sig.ensureValid(); err != nil {
		return err
	}
	if len(sig.Hashes) == 0 {
		return transmitLiteralReader(target, transmit)
	}

	index := NewHashIndex(sig)
	blockLength := int(sig.BlockLength)

	r := bufio.NewReaderSize(target, blockLength*2+64)

	// coalescedStart/coalescedCount buffer a run of adjacent COPY
	// operations so the matcher emits one Operation per contiguous run of
	// basis blocks rather than one per block (see SPEC_FULL.md's
	// Operation-coalescing note).
	var coalescedStart, coalescedCount uint64
	flushMatch := func() error {
		if coalescedCount == 0 {
			return nil
		}
		err := transmit(Operation{IsMatch: true, BlockIndex: coalescedStart, Count: coalescedCount})
		coalescedCount = 0
		return err
	}
	sendMatch := func(index uint64) error {
		if coalescedCount > 0 && coalescedStart+coalescedCount == index {
			coalescedCount++
			return nil
		}
		if err := flushMatch(); err != nil {
			return err
		}
		coalescedStart = index
		coalescedCount = 1
		return nil
	}

	var pending []byte
	flush := func() error {
		for len(pending) > 0 {
			n := len(pending)
			if n > maximumDataOperationSize {
				n = maximumDataOperationSize
			}
			if err := transmit(Operation{Data: pending[:n]}); err != nil {
				return err
			}
			pending = pending[n:]
		}
		pending = nil
		return nil
	}

	window := make([]byte, blockLength)
	filled, rerr := io.ReadFull(r, window)
	if rerr == io.ErrUnexpectedEOF || rerr == io.EOF {
		rerr = nil
	} else if rerr != nil {
		return wrapError(KindDeltaInvalid, rerr, "unable to read target")
	}
	window = window[:filled]

	var weak *weakChecksum
	if filled > 0 {
		weak = newWeakChecksum(window, proto.Seed, true)
	}

	want := uint64(0)

	for filled > 0 {
		matched := false
		var match *BlockHash

		// filled can be shorter than blockLength only for the trailing
		// window once the target is exhausted (the window only ever
		// shrinks in the EOF branches below), so this also covers matching
		// against a short final basis block.
		if index.HasChain(weak.value()) {
			strong := blockDigest(proto.Digest, proto.Seed, window, int(sig.StrongLength))
			if h, ok := index.Lookup(weak.value(), strong, want); ok {
				match = h
				matched = true
			}
		}

		if matched {
			if err := flush(); err != nil {
				return err
			}
			if err := sendMatch(match.Index); err != nil {
				return err
			}
			want = match.Index + 1

			filled, rerr = io.ReadFull(r, window[:blockLength])
			if rerr == io.ErrUnexpectedEOF || rerr == io.EOF {
				rerr = nil
			} else if rerr != nil {
				return wrapError(KindDeltaInvalid, rerr, "unable to read target")
			}
			window = window[:filled]
			if filled > 0 {
				weak = newWeakChecksum(window, proto.Seed, true)
			}
			continue
		}

		// No match at this offset: the leading byte becomes literal data,
		// and the window slides forward by one byte if more input remains.
		// Any pending coalesced COPY run ends here.
		if err := flushMatch(); err != nil {
			return err
		}
		out := window[0]
		pending = append(pending, out)
		if len(pending) >= maximumDataOperationSize {
			if err := flush(); err != nil {
				return err
			}
		}

		var in [1]byte
		n, err := io.ReadFull(r, in[:])
		if err == io.EOF || n == 0 {
			// No more input: shrink the window by one and keep trying to
			// match the (now shorter) remainder only if it's the final,
			// possibly-short block.
			copy(window, window[1:])
			window = window[:len(window)-1]
			filled = len(window)
			if filled == 0 {
				break
			}
			weak = newWeakChecksum(window, proto.Seed, true)
			continue
		} else if err != nil && err != io.ErrUnexpectedEOF {
			return wrapError(KindDeltaInvalid, err, "unable to read target")
		}

		weak.roll(out, in[0])
		copy(window, window[1:])
		window[len(window)-1] = in[0]
	}

	if err := flush(); err != nil {
		return err
	}
	return flushMatch()
}

// transmitLiteralReader streams target to transmit entirely as literal
// operations, used when the basis signature has no blocks (empty basis).
func transmitLiteralReader(target io.Reader, transmit OperationTransmitter) error {
	buf := make([]byte, maximumDataOperationSize)
	for {
		n, err := target.Read(buf)
		if n > 0 {
			if terr := transmit(Operation{Data: buf[:n]}); terr != nil {
				return terr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapError(KindDeltaInvalid, err, "unable to read target")
		}
	}
}

// MatchBytes is the in-memory convenience form of Match, collecting the
// resulting operations into a slice. Data in returned LITERAL operations is
// copied so it remains valid after Match returns.
func MatchBytes(target []byte, sig *Signature, proto *ProtocolContext) ([]Operation, error) {
	var ops []Operation
	err := Match(sliceReader(target), sig, proto, func(op Operation) error {
		if !op.IsMatch {
			op.Data = append([]byte(nil), op.Data...)
		}
		ops = append(ops, op)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ops, nil
}
