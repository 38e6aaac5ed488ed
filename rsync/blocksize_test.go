package rsync

import "testing"

func testProtoP30(t *testing.T) *ProtocolContext {
	t.Helper()
	proto, err := Negotiate(30, 30, NegotiateOptions{})
	if err != nil {
		t.Fatalf("negotiate failed: %v", err)
	}
	return proto
}

func TestPlanBlockSizeEmptyBasis(t *testing.T) {
	proto := testProtoP30(t)
	sizes, err := PlanBlockSize(0, proto, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sizes != (SumSizes{}) {
		t.Errorf("expected zero-value SumSizes for empty basis, got %+v", sizes)
	}
}

func TestPlanBlockSizeClampsToMinimum(t *testing.T) {
	proto := testProtoP30(t)
	sizes, err := PlanBlockSize(10, proto, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sizes.BlockLength < minBlockSize {
		t.Errorf("block length %d below minimum %d", sizes.BlockLength, minBlockSize)
	}
}

func TestPlanBlockSizeClampsToProtocolMaximum(t *testing.T) {
	proto, err := Negotiate(29, 29, NegotiateOptions{})
	if err != nil {
		t.Fatalf("negotiate failed: %v", err)
	}
	sizes, err := PlanBlockSize(1<<40, proto, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sizes.BlockLength > legacyMaxBlockSize {
		t.Errorf("block length %d exceeds legacy maximum %d", sizes.BlockLength, legacyMaxBlockSize)
	}
}

func TestPlanBlockSizeRoundsToMultipleOf8(t *testing.T) {
	proto := testProtoP30(t)
	for _, length := range []uint64{1001, 123456, 7777777} {
		sizes, err := PlanBlockSize(length, proto, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sizes.BlockLength%blockSizeRounding != 0 {
			t.Errorf("length %d: block length %d is not a multiple of %d", length, sizes.BlockLength, blockSizeRounding)
		}
	}
}

func TestPlanBlockSizeRequestedOverride(t *testing.T) {
	proto := testProtoP30(t)
	sizes, err := PlanBlockSize(1000, proto, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sizes.BlockLength != 16 {
		t.Errorf("expected requested block length 16, got %d", sizes.BlockLength)
	}
	if sizes.BlockCount != 63 {
		t.Errorf("expected 63 blocks of 16 for length 1000, got %d", sizes.BlockCount)
	}
	if sizes.RemainderLength != 8 {
		t.Errorf("expected remainder length 8, got %d", sizes.RemainderLength)
	}
}

func TestPlanBlockSizeRequestedExceedsMaximumFails(t *testing.T) {
	proto, err := Negotiate(29, 29, NegotiateOptions{})
	if err != nil {
		t.Fatalf("negotiate failed: %v", err)
	}
	_, err = PlanBlockSize(1000, proto, legacyMaxBlockSize+1)
	if err == nil || !IsKind(err, KindConfigInvalid) {
		t.Fatalf("expected KindConfigInvalid, got %v", err)
	}
}

func TestPlanBlockSizeExactMultipleHasZeroRemainder(t *testing.T) {
	proto := testProtoP30(t)
	sizes, err := PlanBlockSize(64, proto, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sizes.RemainderLength != 0 {
		t.Errorf("expected zero remainder for an exact multiple, got %d", sizes.RemainderLength)
	}
	if sizes.BlockCount != 4 {
		t.Errorf("expected 4 blocks, got %d", sizes.BlockCount)
	}
}

func TestPlanBlockSizeStrongLengthBounds(t *testing.T) {
	proto := testProtoP30(t)
	sizes, err := PlanBlockSize(1<<20, proto, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sizes.StrongLength < 2 {
		t.Errorf("strong length %d below hard lower bound of 2", sizes.StrongLength)
	}
	if int(sizes.StrongLength) > digestSize(proto.Digest) {
		t.Errorf("strong length %d exceeds full digest length %d", sizes.StrongLength, digestSize(proto.Digest))
	}
}

func TestRoundUp(t *testing.T) {
	cases := []struct{ v, m, want uint32 }{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
	}
	for _, c := range cases {
		if got := roundUp(c.v, c.m); got != c.want {
			t.Errorf("roundUp(%d, %d) = %d, want %d", c.v, c.m, got, c.want)
		}
	}
}

func TestLog2Ceil(t *testing.T) {
	cases := []struct {
		v    uint64
		want uint32
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{3, 2},
		{256, 8},
		{257, 9},
	}
	for _, c := range cases {
		if got := log2Ceil(c.v); got != c.want {
			t.Errorf("log2Ceil(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}
