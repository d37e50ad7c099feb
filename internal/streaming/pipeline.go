package streaming

import (
	"io"

	"github.com/trusted-server/ts-edge/internal/metrics"
	"github.com/trusted-server/ts-edge/internal/tserr"
)

// Processor is the pluggable stream transform contract (spec.md §4.6). It
// MUST tolerate arbitrary chunk boundaries, including splits inside
// multi-byte UTF-8 sequences, by buffering internally as needed.
type Processor interface {
	// ProcessChunk transforms data and returns the bytes ready to emit now.
	// isLast is true exactly once, on a final call carrying an empty data
	// slice, signaling end of stream.
	ProcessChunk(data []byte, isLast bool) ([]byte, error)
	// Reset clears any buffered state, for reuse across streams.
	Reset()
}

// Pipeline reads input_compression-encoded bytes from a source, decodes
// them into fixed-size chunks, runs them through a Processor, and
// re-encodes the result with output_compression. Only identical
// input/output codecs are supported (spec.md §4.6): no transcoding.
type Pipeline struct {
	InputCodec  Codec
	OutputCodec Codec
	ChunkSize   int
	Processor   Processor
}

// NewPipeline returns a ready Pipeline that uses codec on both sides,
// defaulting a non-positive chunkSize to DefaultChunkSize; it never fails.
// Run rejects, with a tserr.Proxy unsupported-transformation error, a
// Pipeline whose InputCodec and OutputCodec have been set to differ.
func NewPipeline(codec Codec, chunkSize int, proc Processor) (*Pipeline, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pipeline{
		InputCodec:  codec,
		OutputCodec: codec,
		ChunkSize:   chunkSize,
		Processor:   proc,
	}, nil
}

// Run decodes src, processes it in ChunkSize-byte chunks, and writes the
// recompressed result to dst. It guarantees exactly one call to
// ProcessChunk with isLast=true and an empty payload at end of stream, and
// flushes the output writer so trailers are written.
func (p *Pipeline) Run(src io.Reader, dst io.Writer) error {
	if p.InputCodec != p.OutputCodec {
		return tserr.Proxy("unsupported transformation: %s -> %s", p.InputCodec, p.OutputCodec)
	}

	in, err := decodeReader(p.InputCodec, src)
	if err != nil {
		return tserr.ProxyWrap(err, "open decoder for %s", p.InputCodec)
	}
	out, err := encodeWriter(p.OutputCodec, dst)
	if err != nil {
		return tserr.ProxyWrap(err, "open encoder for %s", p.OutputCodec)
	}

	buf := make([]byte, p.ChunkSize)
	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			metrics.AddStreamBytes(string(p.InputCodec), "decoded", n)
			processed, err := p.Processor.ProcessChunk(buf[:n], false)
			if err != nil {
				return tserr.ProxyWrap(err, "process chunk")
			}
			if _, err := out.Write(processed); err != nil {
				return tserr.ProxyWrap(err, "write processed chunk")
			}
			metrics.AddStreamBytes(string(p.OutputCodec), "encoded", len(processed))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return tserr.ProxyWrap(readErr, "read input stream")
		}
	}

	final, err := p.Processor.ProcessChunk(nil, true)
	if err != nil {
		return tserr.ProxyWrap(err, "process final chunk")
	}
	if len(final) > 0 {
		if _, err := out.Write(final); err != nil {
			return tserr.ProxyWrap(err, "write final chunk")
		}
	}
	if err := out.Flush(); err != nil {
		return tserr.ProxyWrap(err, "flush output")
	}
	return out.Close()
}
