// Package replay defines the ghost recording data model and the binary
// frame codec.
package replay

import "fmt"

// Encoding selects the per-frame byte layout of a recording.
type Encoding string

const (
	// EncodingBinaryV1 is the base layout: a uint32 timestamp followed by
	// one float32 x/y pair per tracked point.
	EncodingBinaryV1 Encoding = "binary-v1"
	// EncodingBinaryV2 appends a 24-byte auxiliary input block after each
	// frame's point data. Playback ignores the block.
	EncodingBinaryV2 Encoding = "binary-v2"
)

// Valid reports whether e is a known encoding.
func (e Encoding) Valid() bool {
	return e == EncodingBinaryV1 || e == EncodingBinaryV2
}

// Compression tags how a recording's frame buffer was transformed before
// base64 encoding. Decompression is driven by the tag alone, never guessed.
type Compression string

const (
	CompressionGzip Compression = "gzip"
	CompressionNone Compression = "none"
)

// Valid reports whether c is a known compression tag.
func (c Compression) Valid() bool {
	return c == CompressionGzip || c == CompressionNone
}

// Point is one tracked point's position in a single frame.
type Point struct {
	X float32
	Y float32
}

// Frame is one timestamped snapshot of all tracked points' positions.
// Timestamps are milliseconds since recording start and non-decreasing
// within a recording.
type Frame struct {
	TimestampMs uint32
	Points      []Point
}

const (
	timestampSize = 4
	pointSize     = 8
	// auxBlockSize is the per-frame auxiliary block of the v2 layout:
	// 6 packed float32 values of control-input data, opaque to playback.
	auxBlockSize = 24
)

// FrameLayout describes the byte layout of one encoded frame. The layout is
// not self-describing on the wire; it travels in the payload metadata, and
// all byte-offset arithmetic in the codec derives from this struct.
type FrameLayout struct {
	SegmentCount int
	Encoding     Encoding
}

// Validate checks that the layout is usable.
func (l FrameLayout) Validate() error {
	if l.SegmentCount <= 0 {
		return fmt.Errorf("invalid segment count %d", l.SegmentCount)
	}
	if !l.Encoding.Valid() {
		return fmt.Errorf("unknown encoding %q", l.Encoding)
	}
	return nil
}

// BytesPerFrame returns the exact encoded size of a single frame.
func (l FrameLayout) BytesPerFrame() int {
	n := timestampSize + l.SegmentCount*pointSize
	if l.Encoding == EncodingBinaryV2 {
		n += auxBlockSize
	}
	return n
}

// RecordingPayload is the finished, compressed, base64-embedded form of a
// recording, ready to persist.
type RecordingPayload struct {
	FrameCount   int         `json:"frameCount"`
	Duration     uint32      `json:"duration"`
	SegmentCount int         `json:"segmentCount"`
	Compression  Compression `json:"compression"`
	Encoding     Encoding    `json:"encoding"`
	Data         string      `json:"data"`
}

// Layout returns the frame layout the payload declares.
func (p *RecordingPayload) Layout() FrameLayout {
	return FrameLayout{SegmentCount: p.SegmentCount, Encoding: p.Encoding}
}

// Validate checks the payload's metadata fields. It does not touch the
// frame buffer; length validation happens at decode.
func (p *RecordingPayload) Validate() error {
	if p.Data == "" {
		return fmt.Errorf("payload has no data")
	}
	if p.FrameCount <= 0 {
		return fmt.Errorf("invalid frame count %d", p.FrameCount)
	}
	if !p.Compression.Valid() {
		return fmt.Errorf("unknown compression %q", p.Compression)
	}
	return p.Layout().Validate()
}

// RecordVersion is the GhostRecord schema version this package understands.
// Records with any other version are ignored on load.
const RecordVersion = 1

// GhostRecord is the persisted form of a payload plus level metadata. The
// frame buffer is stored under the "frames" key for compatibility with
// existing records.
type GhostRecord struct {
	Version        int         `json:"version"`
	MapKey         string      `json:"mapKey"`
	MapHash        string      `json:"mapHash"`
	CompletionTime uint32      `json:"completionTime"`
	RecordedAt     string      `json:"recordedAt"`
	Compression    Compression `json:"compression"`
	Encoding       Encoding    `json:"encoding"`
	SegmentCount   int         `json:"segmentCount"`
	FrameCount     int         `json:"frameCount"`
	Duration       uint32      `json:"duration"`
	Frames         string      `json:"frames,omitempty"`
}

// Payload extracts the RecordingPayload subset of the record.
func (r *GhostRecord) Payload() *RecordingPayload {
	return &RecordingPayload{
		FrameCount:   r.FrameCount,
		Duration:     r.Duration,
		SegmentCount: r.SegmentCount,
		Compression:  r.Compression,
		Encoding:     r.Encoding,
		Data:         r.Frames,
	}
}

// Meta returns a copy of the record without the frame buffer, for the
// metadata namespace used by cheap listing.
func (r *GhostRecord) Meta() GhostRecord {
	meta := *r
	meta.Frames = ""
	return meta
}
