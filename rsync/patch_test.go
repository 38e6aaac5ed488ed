package rsync

import (
	"bytes"
	"testing"
)

func TestPatchEmptyDeltaOnEmptyBasisAndTarget(t *testing.T) {
	proto := testProtoP30(t)
	sig := &Signature{}
	out, err := PatchBytes(nil, sig, proto, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %d bytes", len(out))
	}
}

func TestPatchPureLiteralIgnoresBasis(t *testing.T) {
	proto := testProtoP30(t)
	sig := &Signature{}
	ops := []Operation{{Data: []byte("hello")}}
	out, err := PatchBytes([]byte("this basis is never touched"), sig, proto, ops, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, []byte("hello")) {
		t.Errorf("got %q, want %q", out, "hello")
	}
}

func TestPatchCopyReconstructsBasisRange(t *testing.T) {
	proto := testProtoP30(t)
	basis := []byte("ABCDEFGHIJKLMNOP") // 16 bytes, one block of 16
	planned, err := PlanBlockSize(uint64(len(basis)), proto, 16)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	sig, err := BuildSignatureBytes(basis, proto, planned)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	ops := []Operation{{IsMatch: true, BlockIndex: 0, Count: 1}}
	out, err := PatchBytes(basis, sig, proto, ops, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, basis) {
		t.Errorf("got %q, want %q", out, basis)
	}
}

func TestPatchOutOfRangeBlockIndexFails(t *testing.T) {
	proto := testProtoP30(t)
	basis := []byte("ABCDEFGHIJKLMNOP")
	planned, _ := PlanBlockSize(uint64(len(basis)), proto, 16)
	sig, _ := BuildSignatureBytes(basis, proto, planned)
	ops := []Operation{{IsMatch: true, BlockIndex: 5, Count: 1}}
	_, err := PatchBytes(basis, sig, proto, ops, nil)
	if err == nil || !IsKind(err, KindDeltaInvalid) {
		t.Fatalf("expected KindDeltaInvalid, got %v", err)
	}
}

func TestPatchIntegrityFailureOnDigestMismatch(t *testing.T) {
	proto := testProtoP30(t)
	sig := &Signature{}
	ops := []Operation{{Data: []byte("hello")}}
	wrongDigest := blockDigest(proto.Digest, 0, []byte("not hello"), digestSize(proto.Digest))
	_, err := PatchBytes(nil, sig, proto, ops, wrongDigest)
	if err == nil || !IsKind(err, KindIntegrityFailure) {
		t.Fatalf("expected KindIntegrityFailure, got %v", err)
	}
}

func TestPatchIntegrityVerificationSucceedsOnMatch(t *testing.T) {
	proto := testProtoP30(t)
	sig := &Signature{}
	data := []byte("verify me")
	ops := []Operation{{Data: data}}
	h := newWholeFileHasher(proto.Digest, proto.Version, proto.Seed)
	h.Write(data)
	expected := h.Sum(nil)
	out, err := PatchBytes(nil, sig, proto, ops, expected)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("got %q, want %q", out, data)
	}
}

func TestPatchZeroCountMatchFails(t *testing.T) {
	proto := testProtoP30(t)
	basis := []byte("ABCDEFGHIJKLMNOP")
	planned, _ := PlanBlockSize(uint64(len(basis)), proto, 16)
	sig, _ := BuildSignatureBytes(basis, proto, planned)
	ops := []Operation{{IsMatch: true, BlockIndex: 0, Count: 0}}
	_, err := PatchBytes(basis, sig, proto, ops, nil)
	if err == nil || !IsKind(err, KindDeltaInvalid) {
		t.Fatalf("expected KindDeltaInvalid, got %v", err)
	}
}
