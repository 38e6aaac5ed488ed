package rsync

// DigestKind identifies a strong-digest algorithm. The matcher and signature
// builder consume digests purely through the capability set described in the
// package's design notes (init/update/finalize/length) and never care which
// concrete kind is in use.
type DigestKind uint8

const (
	// DigestMD4 is the rsync default for protocol versions below 30.
	DigestMD4 DigestKind = iota
	// DigestMD5 is the rsync default for protocol versions 30 and 31.
	DigestMD5
	// DigestSHA1 is available as a per-session negotiated choice.
	DigestSHA1
	// DigestSHA256 is available as a per-session negotiated choice.
	DigestSHA256
	// DigestXXH64 is available as a per-session negotiated choice.
	DigestXXH64
	// DigestXXH3_64 is available as a per-session negotiated choice.
	DigestXXH3_64
	// DigestXXH3_128 is available as a per-session negotiated choice.
	DigestXXH3_128
)

// String returns a human-readable name for the digest kind.
func (k DigestKind) String() string {
	switch k {
	case DigestMD4:
		return "md4"
	case DigestMD5:
		return "md5"
	case DigestSHA1:
		return "sha1"
	case DigestSHA256:
		return "sha256"
	case DigestXXH64:
		return "xxh64"
	case DigestXXH3_64:
		return "xxh3-64"
	case DigestXXH3_128:
		return "xxh3-128"
	default:
		return "unknown"
	}
}

// CompressionKind identifies how the token stream is framed on the wire.
type CompressionKind uint8

const (
	// CompressionNone sends the token stream uncompressed.
	CompressionNone CompressionKind = iota
	// CompressionZlib wraps the token stream in a raw-deflate frame,
	// available for protocol versions 30 and 31.
	CompressionZlib
	// CompressionZstd wraps the token stream in a zstd frame, available
	// (opt-in) for protocol version 31 and above.
	CompressionZstd
)

const (
	// MinProtocolVersion is the oldest protocol version this core
	// understands.
	MinProtocolVersion = 20
	// MaxProtocolVersion is the newest protocol version this core
	// understands.
	MaxProtocolVersion = 32

	// legacyMaxBlockSize is the maximum block size permitted for protocol
	// versions below 30.
	legacyMaxBlockSize = 8 * 1024
	// modernMaxBlockSize is the maximum block size permitted for protocol
	// versions 30 and above.
	modernMaxBlockSize = 128 * 1024
)

// ProtocolContext is the immutable, negotiated configuration shared for the
// lifetime of a session. It carries no back-references and no transport
// state; it is a plain value that every core operation takes as an explicit
// argument rather than reading from ambient globals (see the package's
// "replacing module-level globals" design note).
type ProtocolContext struct {
	// Version is the agreed protocol version, in [MinProtocolVersion,
	// MaxProtocolVersion].
	Version uint8
	// Digest is the strong-digest kind used for per-block and whole-file
	// digests in this session.
	Digest DigestKind
	// Seed is the checksum seed mixed into strong digests. Zero is
	// permitted.
	Seed uint32
	// MaxBlockSize is the largest block size the block-size planner may
	// select or accept for this protocol version.
	MaxBlockSize uint32
	// Compression is the compression kind applied to the token stream.
	Compression CompressionKind
}

// UsesVarint reports whether this protocol version uses the variable-length
// integer encoding (protocol >= 27) rather than the fixed-width int32/int64
// forms used by earlier versions.
func (p *ProtocolContext) UsesVarint() bool {
	return p.Version >= 27
}

// NegotiateOptions customizes protocol negotiation beyond the bare version
// agreement.
type NegotiateOptions struct {
	// Seed is the checksum seed to associate with the negotiated context.
	Seed uint32
	// Digest, if non-nil, overrides the protocol-version default digest
	// kind. It is only honored for protocol 32, which leaves digest choice
	// to the session layer; for earlier versions the default is mandatory
	// and this field is ignored.
	Digest *DigestKind
	// EnableZstd opts in to zstd compression for protocol versions 31 and
	// above. If false (the default), protocol versions 30 and 31 use zlib
	// and every other version uses no compression.
	EnableZstd bool
}

// defaultDigestForVersion returns the mandatory default strong-digest kind
// for protocol versions below 32, and the negotiable default for 32.
func defaultDigestForVersion(version uint8) DigestKind {
	switch {
	case version < 30:
		return DigestMD4
	case version <= 31:
		return DigestMD5
	default:
		// Protocol 32 leaves per-session digest negotiation to the session
		// layer (spec.md §9, Open Questions); absent an explicit override
		// we default to the same choice rsync makes for 30/31 so that a
		// caller who doesn't care gets a sane, widely-interoperable digest.
		return DigestMD5
	}
}

// maxBlockSizeForVersion returns the maximum block size permitted for the
// given protocol version.
func maxBlockSizeForVersion(version uint8) uint32 {
	if version < 30 {
		return legacyMaxBlockSize
	}
	return modernMaxBlockSize
}

// compressionForVersion returns the compression kind available for the given
// protocol version and options.
func compressionForVersion(version uint8, opts NegotiateOptions) CompressionKind {
	switch {
	case version >= 31 && opts.EnableZstd:
		return CompressionZstd
	case version == 30 || version == 31:
		return CompressionZlib
	default:
		return CompressionNone
	}
}

// Negotiate agrees on a protocol version given local and remote preferred
// versions and derives the feature set (digest default, max block size,
// compression availability) implied by that version. Negotiation is
// stateless and occurs once at session start; the result is immutable for
// the remainder of the session.
func Negotiate(localPreferred, remotePreferred uint8, opts NegotiateOptions) (*ProtocolContext, error) {
	agreed := localPreferred
	if remotePreferred < agreed {
		agreed = remotePreferred
	}
	if agreed < MinProtocolVersion || agreed > MaxProtocolVersion {
		return nil, newErrorf(KindProtocolUnsupported,
			"negotiated protocol version %d outside supported range [%d, %d]",
			agreed, MinProtocolVersion, MaxProtocolVersion)
	}

	digest := defaultDigestForVersion(agreed)
	if agreed == MaxProtocolVersion && opts.Digest != nil {
		digest = *opts.Digest
	}

	return &ProtocolContext{
		Version:      agreed,
		Digest:       digest,
		Seed:         opts.Seed,
		MaxBlockSize: maxBlockSizeForVersion(agreed),
		Compression:  compressionForVersion(agreed, opts),
	}, nil
}
