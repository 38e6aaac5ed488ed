package rsync

import "testing"

func TestNegotiateAgreesOnLowerVersion(t *testing.T) {
	proto, err := Negotiate(32, 29, NegotiateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proto.Version != 29 {
		t.Errorf("agreed version = %d, want 29", proto.Version)
	}
}

func TestNegotiateBelowMinimumFails(t *testing.T) {
	_, err := Negotiate(19, 19, NegotiateOptions{})
	if err == nil || !IsKind(err, KindProtocolUnsupported) {
		t.Fatalf("expected KindProtocolUnsupported, got %v", err)
	}
}

func TestNegotiateAboveMaximumClampsViaMin(t *testing.T) {
	proto, err := Negotiate(40, 32, NegotiateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proto.Version != 32 {
		t.Errorf("agreed version = %d, want 32", proto.Version)
	}
}

func TestNegotiateDigestDefaults(t *testing.T) {
	cases := []struct {
		version uint8
		want    DigestKind
	}{
		{20, DigestMD4},
		{29, DigestMD4},
		{30, DigestMD5},
		{31, DigestMD5},
		{32, DigestMD5},
	}
	for _, c := range cases {
		proto, err := Negotiate(c.version, c.version, NegotiateOptions{})
		if err != nil {
			t.Fatalf("version %d: unexpected error: %v", c.version, err)
		}
		if proto.Digest != c.want {
			t.Errorf("version %d: digest = %v, want %v", c.version, proto.Digest, c.want)
		}
	}
}

func TestNegotiateProtocol32HonorsDigestOverride(t *testing.T) {
	override := DigestXXH3_128
	proto, err := Negotiate(32, 32, NegotiateOptions{Digest: &override})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proto.Digest != DigestXXH3_128 {
		t.Errorf("digest = %v, want %v", proto.Digest, DigestXXH3_128)
	}
}

func TestNegotiateDigestOverrideIgnoredBelow32(t *testing.T) {
	override := DigestXXH3_128
	proto, err := Negotiate(31, 31, NegotiateOptions{Digest: &override})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proto.Digest != DigestMD5 {
		t.Errorf("digest override should be ignored below protocol 32, got %v", proto.Digest)
	}
}

func TestNegotiateMaxBlockSizeByVersion(t *testing.T) {
	legacy, _ := Negotiate(29, 29, NegotiateOptions{})
	if legacy.MaxBlockSize != legacyMaxBlockSize {
		t.Errorf("legacy max block size = %d, want %d", legacy.MaxBlockSize, legacyMaxBlockSize)
	}
	modern, _ := Negotiate(30, 30, NegotiateOptions{})
	if modern.MaxBlockSize != modernMaxBlockSize {
		t.Errorf("modern max block size = %d, want %d", modern.MaxBlockSize, modernMaxBlockSize)
	}
}

func TestNegotiateCompressionByVersion(t *testing.T) {
	cases := []struct {
		version    uint8
		enableZstd bool
		want       CompressionKind
	}{
		{29, false, CompressionNone},
		{30, false, CompressionZlib},
		{31, false, CompressionZlib},
		{31, true, CompressionZstd},
	}
	for _, c := range cases {
		proto, err := Negotiate(c.version, c.version, NegotiateOptions{EnableZstd: c.enableZstd})
		if err != nil {
			t.Fatalf("version %d: unexpected error: %v", c.version, err)
		}
		if proto.Compression != c.want {
			t.Errorf("version %d (zstd=%v): compression = %v, want %v", c.version, c.enableZstd, proto.Compression, c.want)
		}
	}
}

func TestUsesVarintByVersion(t *testing.T) {
	legacy, _ := Negotiate(26, 26, NegotiateOptions{})
	if legacy.UsesVarint() {
		t.Error("protocol 26 should not use varint encoding")
	}
	modern, _ := Negotiate(27, 27, NegotiateOptions{})
	if !modern.UsesVarint() {
		t.Error("protocol 27 should use varint encoding")
	}
}

func TestDigestKindStringIsNonEmpty(t *testing.T) {
	kinds := []DigestKind{DigestMD4, DigestMD5, DigestSHA1, DigestSHA256, DigestXXH64, DigestXXH3_64, DigestXXH3_128}
	for _, k := range kinds {
		if k.String() == "" || k.String() == "unknown" {
			t.Errorf("%d: expected a known name, got %q", k, k.String())
		}
	}
}
