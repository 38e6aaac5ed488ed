package rsync

import (
	"bytes"
	"testing"
)

func TestBuildSignatureEmptyBasis(t *testing.T) {
	proto := testProtoP30(t)
	sig, err := BuildSignatureBytes(nil, proto, SumSizes{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sig.Hashes) != 0 {
		t.Errorf("expected no blocks for empty basis, got %d", len(sig.Hashes))
	}
	if sig.BasisLength != 0 {
		t.Errorf("expected basis length 0, got %d", sig.BasisLength)
	}
}

func TestBuildSignatureExactMultiple(t *testing.T) {
	proto := testProtoP30(t)
	basis := bytes.Repeat([]byte("ABCD"), 16) // 64 bytes
	planned, err := PlanBlockSize(uint64(len(basis)), proto, 16)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	sig, err := BuildSignatureBytes(basis, proto, planned)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(sig.Hashes) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(sig.Hashes))
	}
	for i, h := range sig.Hashes {
		if h.Index != uint64(i) {
			t.Errorf("block %d has index %d", i, h.Index)
		}
		if uint32(len(h.Strong)) != planned.StrongLength {
			t.Errorf("block %d strong digest length %d, want %d", i, len(h.Strong), planned.StrongLength)
		}
	}
	// All four blocks are identical ("ABCD" repeated), so every block hash
	// must be identical too.
	for i := 1; i < len(sig.Hashes); i++ {
		if sig.Hashes[i].Weak != sig.Hashes[0].Weak {
			t.Errorf("block %d weak checksum differs from block 0 despite identical content", i)
		}
		if !bytes.Equal(sig.Hashes[i].Strong, sig.Hashes[0].Strong) {
			t.Errorf("block %d strong digest differs from block 0 despite identical content", i)
		}
	}
}

func TestBuildSignatureShortLastBlock(t *testing.T) {
	proto := testProtoP30(t)
	basis := bytes.Repeat([]byte{'a'}, 17)
	planned, err := PlanBlockSize(uint64(len(basis)), proto, 16)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if planned.BlockCount != 2 || planned.RemainderLength != 1 {
		t.Fatalf("unexpected plan %+v", planned)
	}
	sig, err := BuildSignatureBytes(basis, proto, planned)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if sig.blockLengthAt(0) != 16 {
		t.Errorf("block 0 length = %d, want 16", sig.blockLengthAt(0))
	}
	if sig.blockLengthAt(1) != 1 {
		t.Errorf("block 1 (last, short) length = %d, want 1", sig.blockLengthAt(1))
	}
}

func TestSignatureEnsureValidRejectsMismatchedCount(t *testing.T) {
	sig := &Signature{
		BlockLength: 16,
		BasisLength: 64,
		Hashes:      []BlockHash{{Index: 0, Strong: make([]byte, 8)}},
	}
	if err := sig.ensureValid(); err == nil || !IsKind(err, KindSignatureInvalid) {
		t.Fatalf("expected KindSignatureInvalid, got %v", err)
	}
}

func TestSignatureEnsureValidRejectsOutOfOrderIndex(t *testing.T) {
	sig := &Signature{
		BlockLength:  16,
		StrongLength: 8,
		BasisLength:  16,
		Hashes:       []BlockHash{{Index: 1, Strong: make([]byte, 8)}},
	}
	if err := sig.ensureValid(); err == nil || !IsKind(err, KindSignatureInvalid) {
		t.Fatalf("expected KindSignatureInvalid, got %v", err)
	}
}

func TestSignatureEnsureValidAcceptsEmpty(t *testing.T) {
	sig := &Signature{}
	if err := sig.ensureValid(); err != nil {
		t.Fatalf("empty signature should be valid, got %v", err)
	}
}
