package rsync

import (
	"encoding/binary"
	"io"
)

// longintMarker is the sentinel fixed-width int32 value that precedes a
// following 8-byte little-endian magnitude when encoding an int64 that does
// not fit in a non-negative int32, matching rsync's read_longint/
// write_longint dual-write form used by protocol versions below 27.
const longintMarker = -1

// WriteFixedInt32 writes a 4-byte little-endian int32, the encoding used by
// protocol versions below 27.
func WriteFixedInt32(w io.Writer, v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadFixedInt32 reads a 4-byte little-endian int32.
func ReadFixedInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapError(KindWireMalformed, err, "unable to read fixed int32")
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// WriteFixedInt64 writes an int64 using rsync's dual-write form: values that
// fit in a non-negative int32 are written directly as a 4-byte int32;
// larger values are preceded by the longintMarker and followed by 8 raw
// little-endian bytes.
func WriteFixedInt64(w io.Writer, v int64) error {
	if v >= 0 && v <= 0x7FFFFFFF {
		return WriteFixedInt32(w, int32(v))
	}
	if err := WriteFixedInt32(w, longintMarker); err != nil {
		return err
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadFixedInt64 reads an int64 in rsync's dual-write form.
func ReadFixedInt64(r io.Reader) (int64, error) {
	head, err := ReadFixedInt32(r)
	if err != nil {
		return 0, err
	}
	if head != longintMarker {
		return int64(head), nil
	}
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapError(KindWireMalformed, err, "unable to read fixed int64 extension")
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// maxVarintBytes bounds the magnitude-byte count so a corrupt header can
// never cause an unbounded read.
const maxVarintBytes = 8

// WriteVarint writes v using the variable-length integer format used by
// protocol versions 27 and above: a header byte giving the count of
// magnitude bytes that follow (the minimal count needed to represent v in
// two's complement, 0 for v == 0), followed by that many little-endian
// magnitude bytes.
func WriteVarint(w io.Writer, v int64) error {
	n := varintByteCount(v)
	if _, err := w.Write([]byte{byte(n)}); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	var buf [maxVarintBytes]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:n])
	return err
}

// varintByteCount returns the minimal number of little-endian bytes needed
// to represent v in two's complement such that sign-extending the top byte
// recovers v exactly.
func varintByteCount(v int64) int {
	if v == 0 {
		return 0
	}
	u := uint64(v)
	for n := 1; n <= maxVarintBytes; n++ {
		shift := uint(n * 8)
		var top byte
		if shift >= 64 {
			top = byte(u >> 56)
		} else {
			top = byte(u >> (shift - 8))
		}
		// Sign-extending from byte n should reproduce v exactly: check by
		// truncating u to n bytes and sign-extending.
		trunc := u & (maskForBytes(n))
		sign := (top & 0x80) != 0
		var extended uint64
		if sign {
			extended = trunc | ^maskForBytes(n)
		} else {
			extended = trunc
		}
		if extended == u {
			return n
		}
	}
	return maxVarintBytes
}

// maskForBytes returns a mask with the low n*8 bits set.
func maskForBytes(n int) uint64 {
	if n >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (uint(n) * 8)) - 1
}

// ReadVarint reads a value encoded by WriteVarint. A header byte claiming
// more magnitude bytes than maxVarintBytes, or a short read of the magnitude
// bytes, fails with KindWireMalformed.
func ReadVarint(r io.Reader) (int64, error) {
	var head [1]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return 0, wrapError(KindWireMalformed, err, "unable to read varint header")
	}
	n := int(head[0])
	if n == 0 {
		return 0, nil
	}
	if n > maxVarintBytes {
		return 0, newErrorf(KindWireMalformed, "varint header claims %d bytes, maximum is %d", n, maxVarintBytes)
	}
	var buf [maxVarintBytes]byte
	if _, err := io.ReadFull(r, buf[:n]); err != nil {
		return 0, wrapError(KindWireMalformed, err, "unable to read varint magnitude")
	}
	var u uint64
	for i := n - 1; i >= 0; i-- {
		u = (u << 8) | uint64(buf[i])
	}
	sign := (buf[n-1] & 0x80) != 0
	if sign {
		u |= ^maskForBytes(n)
	}
	return int64(u), nil
}
