package rsync

import (
	"compress/flate"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// defaultFlateLevel is the deflate compression level NewCompressor uses for
// CompressionZlib.
const defaultFlateLevel = 6

// automaticallyFlushingFlateWriter wraps a flate.Writer and flushes on every
// write, so a token boundary is never left buffered inside the compressor
// when the caller expects it on the wire immediately.
type automaticallyFlushingFlateWriter struct {
	compressor *flate.Writer
}

func (w *automaticallyFlushingFlateWriter) Write(buffer []byte) (int, error) {
	count, err := w.compressor.Write(buffer)
	if err != nil {
		return count, err
	}
	if err := w.compressor.Flush(); err != nil {
		return 0, errors.Wrap(err, "unable to flush compressor")
	}
	return count, nil
}

func (w *automaticallyFlushingFlateWriter) Close() error {
	return w.compressor.Close()
}

// zstdWriterCloser adapts *zstd.Encoder, flushing after every write for the
// same reason as automaticallyFlushingFlateWriter.
type zstdWriterCloser struct {
	encoder *zstd.Encoder
}

func (w *zstdWriterCloser) Write(buffer []byte) (int, error) {
	count, err := w.encoder.Write(buffer)
	if err != nil {
		return count, err
	}
	if err := w.encoder.Flush(); err != nil {
		return 0, errors.Wrap(err, "unable to flush compressor")
	}
	return count, nil
}

func (w *zstdWriterCloser) Close() error {
	return w.encoder.Close()
}

// NewCompressor wraps destination in the compressor appropriate for kind.
// CompressionNone returns destination unwrapped (as a no-op closer).
func NewCompressor(destination io.Writer, kind CompressionKind) (io.WriteCloser, error) {
	switch kind {
	case CompressionNone:
		return nopWriteCloser{destination}, nil
	case CompressionZlib:
		compressor, err := flate.NewWriter(destination, defaultFlateLevel)
		if err != nil {
			return nil, wrapError(KindConfigInvalid, err, "unable to construct deflate compressor")
		}
		return &automaticallyFlushingFlateWriter{compressor}, nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(destination)
		if err != nil {
			return nil, wrapError(KindConfigInvalid, err, "unable to construct zstd compressor")
		}
		return &zstdWriterCloser{encoder}, nil
	default:
		return nil, newErrorf(KindConfigInvalid, "unknown compression kind %d", kind)
	}
}

// NewDecompressor wraps source in the decompressor appropriate for kind.
func NewDecompressor(source io.Reader, kind CompressionKind) (io.ReadCloser, error) {
	switch kind {
	case CompressionNone:
		return io.NopCloser(source), nil
	case CompressionZlib:
		// flate.Reader.Close only checks for stream errors; there is no
		// state it is unsafe to skip releasing.
		return io.NopCloser(flate.NewReader(source)), nil
	case CompressionZstd:
		decoder, err := zstd.NewReader(source)
		if err != nil {
			return nil, wrapError(KindConfigInvalid, err, "unable to construct zstd decompressor")
		}
		return decoderReadCloser{decoder}, nil
	default:
		return nil, newErrorf(KindConfigInvalid, "unknown compression kind %d", kind)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// decoderReadCloser adapts *zstd.Decoder (whose Close returns nothing) to
// io.ReadCloser.
type decoderReadCloser struct {
	decoder *zstd.Decoder
}

func (d decoderReadCloser) Read(p []byte) (int, error) {
	return d.decoder.Read(p)
}

func (d decoderReadCloser) Close() error {
	d.decoder.Close()
	return nil
}
