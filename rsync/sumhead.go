package rsync

import (
	"encoding/binary"
	"io"
)

// WriteSumHead writes the sum-head record (block count N, block length B,
// strong-digest length S, remainder length R) that precedes a signature's
// block hashes on the wire, using fixed-width ints for protocol versions
// below 27 and the variable-length encoding from version 27 onward.
func WriteSumHead(w io.Writer, proto *ProtocolContext, sizes SumSizes) error {
	if proto.UsesVarint() {
		if err := WriteVarint(w, int64(sizes.BlockCount)); err != nil {
			return wrapError(KindWireMalformed, err, "unable to write block count")
		}
		if err := WriteVarint(w, int64(sizes.BlockLength)); err != nil {
			return wrapError(KindWireMalformed, err, "unable to write block length")
		}
		if err := WriteVarint(w, int64(sizes.StrongLength)); err != nil {
			return wrapError(KindWireMalformed, err, "unable to write strong digest length")
		}
		if err := WriteVarint(w, int64(sizes.RemainderLength)); err != nil {
			return wrapError(KindWireMalformed, err, "unable to write remainder length")
		}
		return nil
	}

	if err := WriteFixedInt32(w, int32(sizes.BlockCount)); err != nil {
		return wrapError(KindWireMalformed, err, "unable to write block count")
	}
	if err := WriteFixedInt32(w, int32(sizes.BlockLength)); err != nil {
		return wrapError(KindWireMalformed, err, "unable to write block length")
	}
	if err := WriteFixedInt32(w, int32(sizes.StrongLength)); err != nil {
		return wrapError(KindWireMalformed, err, "unable to write strong digest length")
	}
	if err := WriteFixedInt32(w, int32(sizes.RemainderLength)); err != nil {
		return wrapError(KindWireMalformed, err, "unable to write remainder length")
	}
	return nil
}

// ReadSumHead reads a sum-head record written by WriteSumHead, validating
// that none of its fields are negative.
func ReadSumHead(r io.Reader, proto *ProtocolContext) (SumSizes, error) {
	read := func() (int64, error) {
		if proto.UsesVarint() {
			return ReadVarint(r)
		}
		v, err := ReadFixedInt32(r)
		return int64(v), err
	}

	count, err := read()
	if err != nil {
		return SumSizes{}, wrapError(KindWireMalformed, err, "unable to read block count")
	}
	blockLength, err := read()
	if err != nil {
		return SumSizes{}, wrapError(KindWireMalformed, err, "unable to read block length")
	}
	strongLength, err := read()
	if err != nil {
		return SumSizes{}, wrapError(KindWireMalformed, err, "unable to read strong digest length")
	}
	remainder, err := read()
	if err != nil {
		return SumSizes{}, wrapError(KindWireMalformed, err, "unable to read remainder length")
	}

	if count < 0 || blockLength < 0 || strongLength < 0 || remainder < 0 {
		return SumSizes{}, newError(KindWireMalformed, "sum-head contains a negative field")
	}
	if remainder != 0 && uint32(remainder) >= uint32(blockLength) && blockLength != 0 {
		return SumSizes{}, newErrorf(KindWireMalformed,
			"sum-head remainder %d is not shorter than block length %d", remainder, blockLength)
	}

	return SumSizes{
		BlockCount:      uint64(count),
		BlockLength:     uint32(blockLength),
		StrongLength:    uint32(strongLength),
		RemainderLength: uint32(remainder),
	}, nil
}

// sumSizesForSignature derives the SumSizes a Signature implies, for
// writing its sum-head.
func sumSizesForSignature(sig *Signature) SumSizes {
	sizes := SumSizes{
		BlockCount:   uint64(len(sig.Hashes)),
		BlockLength:  sig.BlockLength,
		StrongLength: sig.StrongLength,
	}
	if n := len(sig.Hashes); n > 0 {
		if last := sig.blockLengthAt(uint64(n - 1)); last != sig.BlockLength {
			sizes.RemainderLength = last
		}
	}
	return sizes
}

// WriteSignature serializes sig to the wire (C8 + C3's per-block entries,
// spec.md §6): the sum-head, followed by N entries of {weak uint32
// little-endian, strong S raw bytes}, with no padding between fields or
// entries.
func WriteSignature(w io.Writer, proto *ProtocolContext, sig *Signature) error {
	if err := WriteSumHead(w, proto, sumSizesForSignature(sig)); err != nil {
		return err
	}
	var weakBuf [4]byte
	for _, h := range sig.Hashes {
		binary.LittleEndian.PutUint32(weakBuf[:], h.Weak)
		if _, err := w.Write(weakBuf[:]); err != nil {
			return wrapError(KindWireMalformed, err, "unable to write block weak checksum")
		}
		if _, err := w.Write(h.Strong); err != nil {
			return wrapError(KindWireMalformed, err, "unable to write block strong digest")
		}
	}
	return nil
}

// ReadSignature deserializes a Signature written by WriteSignature. The wire
// format does not carry the basis length directly; it is inferred here from
// the decoded block count, length, and remainder for ensureValid's benefit.
func ReadSignature(r io.Reader, proto *ProtocolContext) (*Signature, error) {
	sizes, err := ReadSumHead(r, proto)
	if err != nil {
		return nil, err
	}

	sig := &Signature{
		BlockLength:  sizes.BlockLength,
		StrongLength: sizes.StrongLength,
	}
	if sizes.BlockCount == 0 {
		return sig, nil
	}

	sig.Hashes = make([]BlockHash, sizes.BlockCount)
	var weakBuf [4]byte
	for i := range sig.Hashes {
		if _, err := io.ReadFull(r, weakBuf[:]); err != nil {
			return nil, wrapError(KindWireMalformed, err, "unable to read block weak checksum")
		}
		strong := make([]byte, sizes.StrongLength)
		if _, err := io.ReadFull(r, strong); err != nil {
			return nil, wrapError(KindWireMalformed, err, "unable to read block strong digest")
		}
		sig.Hashes[i] = BlockHash{
			Index:  uint64(i),
			Weak:   binary.LittleEndian.Uint32(weakBuf[:]),
			Strong: strong,
		}
	}

	if sizes.RemainderLength != 0 {
		sig.BasisLength = (sizes.BlockCount-1)*uint64(sizes.BlockLength) + uint64(sizes.RemainderLength)
	} else {
		sig.BasisLength = sizes.BlockCount * uint64(sizes.BlockLength)
	}
	if err := sig.ensureValid(); err != nil {
		return nil, err
	}
	return sig, nil
}
