// Package streaming implements the chunked decompress→process→recompress
// pipeline (spec.md §4.6, C6): a pluggable stream processor sees decoded
// bytes in fixed-size chunks and returns transformed bytes, which are
// re-encoded with the same codec the input arrived in.
package streaming

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/trusted-server/ts-edge/internal/tserr"
)

// Codec identifies a supported content-encoding.
type Codec string

const (
	CodecNone    Codec = "none"
	CodecGzip    Codec = "gzip"
	CodecDeflate Codec = "deflate"
	CodecBrotli  Codec = "br"
)

// Brotli quality/window per spec.md §4.6 ("Compression choices").
const (
	brotliQuality = 4
	brotliWindow  = 22
)

// DefaultChunkSize is the pipeline's default read size (spec.md §4.6).
const DefaultChunkSize = 8192

// CodecFromEncoding maps an HTTP Content-Encoding header value to the
// Codec that decodes it, used by the proxy to pick the pipeline's codec
// from an upstream response without the caller hand-rolling the mapping.
func CodecFromEncoding(encoding string) Codec {
	switch encoding {
	case "gzip":
		return CodecGzip
	case "deflate":
		return CodecDeflate
	case "br":
		return CodecBrotli
	default:
		return CodecNone
	}
}

// decodeReader wraps r with a decompressing reader for codec. CodecNone
// passes r through unchanged.
func decodeReader(codec Codec, r io.Reader) (io.Reader, error) {
	switch codec {
	case CodecNone:
		return r, nil
	case CodecGzip:
		return gzip.NewReader(r)
	case CodecDeflate:
		return flate.NewReader(r), nil
	case CodecBrotli:
		return brotli.NewReader(r), nil
	default:
		return nil, tserr.Proxy("unsupported input codec %q", codec)
	}
}

// flushWriter is satisfied by every compressing writer this package uses;
// Flush forces already-written bytes out without closing the stream,
// Close writes the final trailer.
type flushWriter interface {
	io.Writer
	Flush() error
	Close() error
}

// encodeWriter wraps w with a compressing writer for codec. CodecNone
// returns a no-op wrapper that satisfies flushWriter trivially.
func encodeWriter(codec Codec, w io.Writer) (flushWriter, error) {
	switch codec {
	case CodecNone:
		return passthroughWriter{w}, nil
	case CodecGzip:
		return gzip.NewWriter(w), nil
	case CodecDeflate:
		fw, err := flate.NewWriter(w, flate.DefaultCompression)
		if err != nil {
			return nil, tserr.ProxyWrap(err, "init deflate writer")
		}
		return fw, nil
	case CodecBrotli:
		bw := brotli.NewWriterOptions(w, brotli.WriterOptions{Quality: brotliQuality, LGWin: brotliWindow})
		return bw, nil
	default:
		return nil, tserr.Proxy("unsupported output codec %q", codec)
	}
}

// DecodeAll fully decompresses r under codec into a plain byte slice. Used
// by callers that need the whole body buffered (e.g. to run a
// post-processing rewrite over it) rather than streamed chunk by chunk
// through a Pipeline.
func DecodeAll(codec Codec, r io.Reader) ([]byte, error) {
	dr, err := decodeReader(codec, r)
	if err != nil {
		return nil, tserr.ProxyWrap(err, "open decoder for %s", codec)
	}
	return io.ReadAll(dr)
}

// EncodeAll compresses data under codec into a plain byte slice, flushing
// and closing the encoder so any trailer is written. The counterpart to
// DecodeAll for buffered (non-streaming) rewrites.
func EncodeAll(codec Codec, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := encodeWriter(codec, &buf)
	if err != nil {
		return nil, tserr.ProxyWrap(err, "open encoder for %s", codec)
	}
	if _, err := w.Write(data); err != nil {
		return nil, tserr.ProxyWrap(err, "write encoded data")
	}
	if err := w.Flush(); err != nil {
		return nil, tserr.ProxyWrap(err, "flush encoder")
	}
	if err := w.Close(); err != nil {
		return nil, tserr.ProxyWrap(err, "close encoder")
	}
	return buf.Bytes(), nil
}

type passthroughWriter struct{ w io.Writer }

func (p passthroughWriter) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p passthroughWriter) Flush() error                { return nil }
func (p passthroughWriter) Close() error                { return nil }
