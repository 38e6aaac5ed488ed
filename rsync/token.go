package rsync

import "io"

// Token stream encoding (C9): a signed integer precedes each delta
// instruction. A positive token is a literal run length, immediately
// followed by that many raw literal bytes. A negative token n refers to
// basis block -(n+1) (a COPY instruction). A zero token terminates the
// stream.
const tokenEndOfStream = 0

// WriteLiteralToken writes a literal-run token of the given length. length
// must be strictly positive; the caller is responsible for writing the
// length bytes of literal data immediately afterward.
func WriteLiteralToken(w io.Writer, proto *ProtocolContext, length uint32) error {
	if length == 0 {
		return newError(KindDeltaInvalid, "literal token length must be non-zero")
	}
	return writeToken(w, proto, int64(length))
}

// WriteCopyToken writes a COPY token referring to blockIndex.
func WriteCopyToken(w io.Writer, proto *ProtocolContext, blockIndex uint64) error {
	return writeToken(w, proto, -(int64(blockIndex) + 1))
}

// WriteEndToken writes the token that terminates the stream.
func WriteEndToken(w io.Writer, proto *ProtocolContext) error {
	return writeToken(w, proto, tokenEndOfStream)
}

func writeToken(w io.Writer, proto *ProtocolContext, v int64) error {
	if proto.UsesVarint() {
		return wrapError(KindWireMalformed, WriteVarint(w, v), "unable to write token")
	}
	return wrapError(KindWireMalformed, WriteFixedInt32(w, int32(v)), "unable to write token")
}

// ReadToken reads the next raw token value from the stream.
func ReadToken(r io.Reader, proto *ProtocolContext) (int64, error) {
	if proto.UsesVarint() {
		return ReadVarint(r)
	}
	v, err := ReadFixedInt32(r)
	return int64(v), err
}

// TokenIsEnd reports whether token terminates the stream.
func TokenIsEnd(token int64) bool {
	return token == tokenEndOfStream
}

// TokenIsCopy reports whether token is a COPY instruction.
func TokenIsCopy(token int64) bool {
	return token < 0
}

// TokenBlockIndex recovers the basis block index referenced by a COPY
// token. The caller must have already confirmed TokenIsCopy(token).
func TokenBlockIndex(token int64) uint64 {
	return uint64(-token - 1)
}

// TokenLiteralLength recovers the literal run length from a literal token.
// The caller must have already confirmed !TokenIsCopy(token) &&
// !TokenIsEnd(token).
func TokenLiteralLength(token int64) uint32 {
	return uint32(token)
}

// WriteOperation serializes op to the wire. A coalesced COPY run of Count
// blocks is expanded into Count individual COPY tokens, one per basis
// block, matching the wire's one-token-per-block granularity even though
// the in-memory Operation fuses the run.
func WriteOperation(w io.Writer, proto *ProtocolContext, op Operation) error {
	if op.IsMatch {
		for i := uint64(0); i < op.Count; i++ {
			if err := WriteCopyToken(w, proto, op.BlockIndex+i); err != nil {
				return err
			}
		}
		return nil
	}
	for data := op.Data; len(data) > 0; {
		n := len(data)
		if n > maximumDataOperationSize {
			n = maximumDataOperationSize
		}
		if err := WriteLiteralToken(w, proto, uint32(n)); err != nil {
			return err
		}
		if _, err := w.Write(data[:n]); err != nil {
			return wrapError(KindWireMalformed, err, "unable to write literal data")
		}
		data = data[n:]
	}
	return nil
}

// WriteOperations writes every operation in ops followed by the end token.
func WriteOperations(w io.Writer, proto *ProtocolContext, ops []Operation) error {
	for _, op := range ops {
		if err := WriteOperation(w, proto, op); err != nil {
			return err
		}
	}
	return WriteEndToken(w, proto)
}

// ReadOperations decodes a token stream into the coalesced Operation form
// Match produces: consecutive COPY tokens referencing consecutive basis
// blocks are fused into a single Operation with Count > 1.
func ReadOperations(r io.Reader, proto *ProtocolContext) ([]Operation, error) {
	var ops []Operation
	for {
		token, err := ReadToken(r, proto)
		if err != nil {
			return nil, err
		}
		if TokenIsEnd(token) {
			return ops, nil
		}
		if TokenIsCopy(token) {
			index := TokenBlockIndex(token)
			if n := len(ops); n > 0 && ops[n-1].IsMatch && ops[n-1].BlockIndex+ops[n-1].Count == index {
				ops[n-1].Count++
				continue
			}
			ops = append(ops, Operation{IsMatch: true, BlockIndex: index, Count: 1})
			continue
		}
		length := TokenLiteralLength(token)
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, wrapError(KindWireMalformed, err, "unable to read literal data")
		}
		ops = append(ops, Operation{Data: data})
	}
}
