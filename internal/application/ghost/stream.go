// Package ghost records, replays and persists ghost runs: previously
// recorded worm positions replayed alongside the live run for time-trial
// comparison.
package ghost

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"log"

	"github.com/floppyworm/ghost/internal/domain/replay"
)

// Transform is a reversible byte-stream transform used to shrink frame
// buffers before storage. It may be unavailable at runtime; a nil Transform
// degrades the stream to plain base64.
type Transform interface {
	Apply(data []byte) ([]byte, error)
	Invert(data []byte) ([]byte, error)
}

// GzipTransform implements Transform with gzip.
type GzipTransform struct{}

// Apply gzip-compresses data.
func (GzipTransform) Apply(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Invert gzip-decompresses data.
func (GzipTransform) Invert(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer func() { _ = zr.Close() }()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return out, nil
}

// Stream converts encoded frame buffers to and from their stored text form.
// The compression decision is recorded in the returned tag so Decompress is
// deterministic from the tag alone.
type Stream struct {
	Transform Transform
	// Strict makes Decompress fail on a corrupt compressed stream instead
	// of returning the raw bytes with a warning.
	Strict bool
}

// Compress transforms buf and base64-encodes the result. If no transform is
// available, or the transform fails, the raw buffer is stored with the
// "none" tag instead.
func (s Stream) Compress(buf []byte) (string, replay.Compression) {
	if s.Transform != nil {
		packed, err := s.Transform.Apply(buf)
		if err == nil {
			return replay.EncodeBase64(packed), replay.CompressionGzip
		}
		log.Printf("Warning: ghost compression failed, storing raw: %v", err)
	}
	return replay.EncodeBase64(buf), replay.CompressionNone
}

// Decompress restores a frame buffer from its stored text form. With the
// default lenient mode a failed inverse transform logs a warning and returns
// the raw bytes; the frame codec's length validation catches garbage
// downstream.
func (s Stream) Decompress(data string, tag replay.Compression) ([]byte, error) {
	raw, err := replay.DecodeBase64(data)
	if err != nil {
		return nil, fmt.Errorf("decode ghost data: %w", err)
	}
	switch tag {
	case replay.CompressionNone:
		return raw, nil
	case replay.CompressionGzip:
		if s.Transform == nil {
			return nil, fmt.Errorf("ghost data is %q but no transform is available", tag)
		}
		out, err := s.Transform.Invert(raw)
		if err != nil {
			if s.Strict {
				return nil, fmt.Errorf("decompress ghost data: %w", err)
			}
			log.Printf("Warning: ghost decompression failed, treating data as raw: %v", err)
			return raw, nil
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown compression tag %q", tag)
	}
}
