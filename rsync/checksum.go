package rsync

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"hash"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/md4"
)

// weakModulus is the weak-hash modulus, matching rsync's choice of 2^16 for
// each half of the rolling checksum (spec.md §4.1).
const weakModulus = 1 << 16

// weakChecksum is the two-halves Adler-32-variant rolling checksum described
// in spec.md §4.1. It supports O(1) incremental updates as the match window
// slides one byte at a time. When seeded is true, the seed term is folded in
// only when the packed value is read, not on every roll, so that the s1/s2
// recurrence itself stays identical to the unseeded case. Match and
// BuildSignature always pass seeded=true, so the seed term is included at
// every protocol version, not only from 27 onward.
type weakChecksum struct {
	s1, s2 uint32
	length uint32
	seed   uint32
	seeded bool
}

// newWeakChecksum computes the weak checksum of data from scratch.
func newWeakChecksum(data []byte, seed uint32, seeded bool) *weakChecksum {
	w := &weakChecksum{length: uint32(len(data)), seed: seed, seeded: seeded}
	var s1, s2 uint32
	l := w.length
	for i, b := range data {
		s1 += uint32(b)
		s2 += (l - uint32(i)) * uint32(b)
	}
	w.s1 = s1 % weakModulus
	w.s2 = s2 % weakModulus
	return w
}

// value returns the packed 32-bit weak checksum used as the hash-index
// lookup key.
func (w *weakChecksum) value() uint32 {
	s2 := w.s2
	if w.seeded {
		s2 = (s2 + w.s1*w.seed) % weakModulus
	}
	return (s2 << 16) | w.s1
}

// roll advances the window by one byte, dropping out and admitting in.
func (w *weakChecksum) roll(out, in byte) {
	w.s1 = (w.s1 - uint32(out) + uint32(in)) % weakModulus
	w.s2 = (w.s2 - w.length*uint32(out) + w.s1) % weakModulus
}

// newStrongHasher constructs a fresh, unseeded hash.Hash for the given
// digest kind.
func newStrongHasher(kind DigestKind) hash.Hash {
	switch kind {
	case DigestMD4:
		return md4.New()
	case DigestMD5:
		return md5.New()
	case DigestSHA1:
		return sha1.New()
	case DigestSHA256:
		return sha256.New()
	case DigestXXH64:
		return xxhash.New()
	case DigestXXH3_64:
		return xxh3.New()
	case DigestXXH3_128:
		return &xxh3_128{}
	default:
		return sha1.New()
	}
}

// digestSize returns the full (untruncated) digest length, in bytes, for the
// given digest kind.
func digestSize(kind DigestKind) int {
	return newStrongHasher(kind).Size()
}

// xxh3_128 adapts xxh3.Hasher (which natively exposes a 128-bit Sum128
// result) to the hash.Hash interface, matching the wrapper pattern used by
// kitty's rsync implementation for the same purpose.
type xxh3_128 struct {
	xxh3.Hasher
}

// Size implements hash.Hash.Size, reporting the 16-byte length of the
// 128-bit digest Sum appends.
func (x *xxh3_128) Size() int {
	return 16
}

// Sum implements hash.Hash.Sum, appending the big-endian 128-bit digest.
func (x *xxh3_128) Sum(b []byte) []byte {
	s := x.Sum128()
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], s.Hi)
	binary.BigEndian.PutUint64(buf[8:], s.Lo)
	return append(b, buf[:]...)
}

// seedBytes returns the little-endian four-byte encoding of a checksum
// seed, as folded into strong digests.
func seedBytes(seed uint32) [4]byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], seed)
	return buf
}

// blockDigest computes the truncated strong digest of a single signature
// block. The seed is appended as four little-endian bytes after the block
// data, matching rsync's per-block digest seeding.
func blockDigest(kind DigestKind, seed uint32, data []byte, truncate int) []byte {
	h := newStrongHasher(kind)
	h.Write(data)
	buf := seedBytes(seed)
	h.Write(buf[:])
	sum := h.Sum(nil)
	if truncate > len(sum) {
		truncate = len(sum)
	}
	return sum[:truncate]
}

// newWholeFileHasher constructs a hash.Hash for the whole-file digest
// verified by the patcher. Per the observed rsync C behavior, the whole-file
// digest is unseeded for protocol versions below 30 and seeded (with the
// seed written before any file data) for versions 30 and above.
func newWholeFileHasher(kind DigestKind, protocolVersion uint8, seed uint32) hash.Hash {
	h := newStrongHasher(kind)
	if protocolVersion >= 30 {
		buf := seedBytes(seed)
		h.Write(buf[:])
	}
	return h
}
