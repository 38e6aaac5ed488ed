package rsync

import (
	"bufio"
	"io"
)

// BlockHash is the weak/strong checksum pair recorded for one signature
// block, plus the block's index so matcher lookups can report which basis
// block a match refers to.
type BlockHash struct {
	// Index is the zero-based position of this block in the basis.
	Index uint64
	// Weak is the rolling checksum of the block.
	Weak uint32
	// Strong is the truncated strong digest of the block, Strong bytes long
	// as recorded on the owning Signature.
	Strong []byte
}

// Signature is the ordered collection of block hashes describing a basis
// stream, plus the header fields needed to interpret it (spec.md §3's N, B,
// S, R fields).
type Signature struct {
	// BlockLength is the nominal block length B used for every block except
	// possibly the last.
	BlockLength uint32
	// StrongLength is the truncated strong-digest length S recorded for
	// every block hash.
	StrongLength uint32
	// BasisLength is the total length of the basis the signature describes.
	BasisLength uint64
	// Hashes is the ordered list of per-block hashes, Index 0 first.
	Hashes []BlockHash
}

// ensureValid checks the internal consistency invariants a Signature must
// satisfy before it is safe to hand to the matcher: block count agrees with
// basis length and block length, every strong digest has the declared
// length, and indices are contiguous from zero.
func (s *Signature) ensureValid() error {
	if s.BasisLength == 0 {
		if len(s.Hashes) != 0 {
			return newError(KindSignatureInvalid, "empty basis has a non-empty signature")
		}
		return nil
	}
	if s.BlockLength == 0 {
		return newError(KindSignatureInvalid, "non-empty signature has a zero block length")
	}

	expectedCount := s.BasisLength / uint64(s.BlockLength)
	if s.BasisLength%uint64(s.BlockLength) != 0 {
		expectedCount++
	}
	if uint64(len(s.Hashes)) != expectedCount {
		return newErrorf(KindSignatureInvalid,
			"signature has %d blocks, expected %d for basis length %d and block length %d",
			len(s.Hashes), expectedCount, s.BasisLength, s.BlockLength)
	}

	for i, h := range s.Hashes {
		if h.Index != uint64(i) {
			return newErrorf(KindSignatureInvalid, "block %d has out-of-order index %d", i, h.Index)
		}
		if uint32(len(h.Strong)) != s.StrongLength {
			return newErrorf(KindSignatureInvalid,
				"block %d has strong digest length %d, expected %d", i, len(h.Strong), s.StrongLength)
		}
	}
	return nil
}

// blockLengthAt returns the length of block i: BlockLength for every block
// but a short final block, whose length is the basis length's remainder.
func (s *Signature) blockLengthAt(i uint64) uint32 {
	if i+1 < uint64(len(s.Hashes)) {
		return s.BlockLength
	}
	remainder := uint32(s.BasisLength % uint64(s.BlockLength))
	if remainder == 0 {
		return s.BlockLength
	}
	return remainder
}

// BuildSignature computes a Signature over basis, a basis of the given
// total length, under the given protocol context. planned selects the block
// layout (BlockLength, StrongLength, BlockCount, RemainderLength); callers
// normally obtain it from PlanBlockSize.
func BuildSignature(basis io.Reader, basisLength uint64, proto *ProtocolContext, planned SumSizes) (*Signature, error) {
	sig := &Signature{
		BlockLength:  planned.BlockLength,
		StrongLength: planned.StrongLength,
		BasisLength:  basisLength,
	}
	if basisLength == 0 {
		return sig, nil
	}

	sig.Hashes = make([]BlockHash, 0, planned.BlockCount)

	r := bufio.NewReaderSize(basis, int(planned.BlockLength))
	buf := make([]byte, planned.BlockLength)

	var index uint64
	var remaining uint64 = basisLength
	for remaining > 0 {
		n := uint64(planned.BlockLength)
		if remaining < n {
			n = remaining
		}
		block := buf[:n]
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, wrapError(KindSignatureInvalid, err, "unable to read basis block")
		}

		weak := newWeakChecksum(block, proto.Seed, true).value()
		strong := blockDigest(proto.Digest, proto.Seed, block, int(planned.StrongLength))

		sig.Hashes = append(sig.Hashes, BlockHash{
			Index:  index,
			Weak:   weak,
			Strong: append([]byte(nil), strong...),
		})

		index++
		remaining -= n
	}

	if err := sig.ensureValid(); err != nil {
		return nil, err
	}
	return sig, nil
}

// BuildSignatureBytes is the in-memory convenience form of BuildSignature
// for callers that already hold the basis in memory.
func BuildSignatureBytes(basis []byte, proto *ProtocolContext, planned SumSizes) (*Signature, error) {
	return BuildSignature(sliceReader(basis), uint64(len(basis)), proto, planned)
}

// sliceReader adapts a byte slice to io.Reader without an extra copy,
// avoiding the allocation bytes.NewReader's wrapper would otherwise cost
// callers that already hold basis data in memory.
func sliceReader(b []byte) io.Reader {
	return &byteSliceReader{b: b}
}

type byteSliceReader struct {
	b   []byte
	pos int
}

func (r *byteSliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}
