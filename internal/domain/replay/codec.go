package replay

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeFrames serializes frames to a flat little-endian buffer: uint32
// timestamp, then one float32 x/y pair per tracked point, then (v2 only) a
// zeroed auxiliary block. There is no header or padding; the layout travels
// in the payload metadata.
func EncodeFrames(frames []Frame, layout FrameLayout) ([]byte, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(frames)*layout.BytesPerFrame())
	for i, f := range frames {
		if len(f.Points) != layout.SegmentCount {
			return nil, fmt.Errorf("frame %d has %d points, layout expects %d", i, len(f.Points), layout.SegmentCount)
		}
		buf = binary.LittleEndian.AppendUint32(buf, f.TimestampMs)
		for _, p := range f.Points {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(p.X))
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(p.Y))
		}
		if layout.Encoding == EncodingBinaryV2 {
			buf = append(buf, make([]byte, auxBlockSize)...)
		}
	}
	return buf, nil
}

// DecodeFrames reads frameCount frames back out of buf using the declared
// layout. A buffer whose length does not match exactly is a contract
// violation by the caller and fails loudly rather than truncating.
func DecodeFrames(buf []byte, frameCount int, layout FrameLayout) ([]Frame, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if frameCount < 0 {
		return nil, fmt.Errorf("invalid frame count %d", frameCount)
	}
	want := frameCount * layout.BytesPerFrame()
	if len(buf) != want {
		return nil, fmt.Errorf("frame buffer is %d bytes, want %d (%d frames of %d bytes)",
			len(buf), want, frameCount, layout.BytesPerFrame())
	}
	frames := make([]Frame, 0, frameCount)
	off := 0
	for i := 0; i < frameCount; i++ {
		ts := binary.LittleEndian.Uint32(buf[off:])
		off += timestampSize
		points := make([]Point, layout.SegmentCount)
		for j := range points {
			points[j].X = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
			points[j].Y = math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:]))
			off += pointSize
		}
		if layout.Encoding == EncodingBinaryV2 {
			// Opaque control-input block; playback never interprets it.
			off += auxBlockSize
		}
		frames = append(frames, Frame{TimestampMs: ts, Points: points})
	}
	return frames, nil
}

// EncodeBase64 converts a raw frame buffer to text for embedding in a
// stored record.
func EncodeBase64(buf []byte) string {
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeBase64 is the inverse of EncodeBase64.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
