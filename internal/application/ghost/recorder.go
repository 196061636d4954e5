package ghost

import (
	"fmt"
	"math"
	"time"

	"github.com/floppyworm/ghost/internal/domain/replay"
)

// targetFrameIntervalMs caps recording at 60 samples per second no matter
// how often the game loop calls RecordFrame.
const targetFrameIntervalMs = 1000.0 / 60.0

// Recorder samples tracked-point positions during a live run and turns them
// into a RecordingPayload when the run ends. One Recorder per active level
// session; it owns its frame buffer exclusively until Stop.
type Recorder struct {
	segmentCount  int
	stream        Stream
	frames        []replay.Frame
	recording     bool
	lastTimestamp float64
	startedAt     time.Time
}

// NewRecorder creates a recorder for a fixed number of tracked points.
func NewRecorder(segmentCount int, stream Stream) *Recorder {
	return &Recorder{
		segmentCount: segmentCount,
		stream:       stream,
		frames:       make([]replay.Frame, 0, 3600), // Pre-allocate for ~1 minute at 60fps
	}
}

// Start clears any prior frames and begins a fresh recording. Safe to call
// repeatedly; it always resets.
func (r *Recorder) Start() {
	r.frames = make([]replay.Frame, 0, 3600)
	r.recording = true
	r.lastTimestamp = 0
	r.startedAt = time.Now()
}

// RecordFrame appends one snapshot of the tracked points at the given
// elapsed time since recording start. Samples arriving faster than the
// 60 Hz gate, and samples whose point count does not match the recorder's
// segment count, are dropped.
func (r *Recorder) RecordFrame(points []replay.Point, elapsedMs float64) {
	if !r.recording || len(points) == 0 {
		return
	}
	if len(points) != r.segmentCount {
		return
	}
	if len(r.frames) > 0 && elapsedMs-r.lastTimestamp < targetFrameIntervalMs {
		return
	}

	frame := replay.Frame{
		TimestampMs: uint32(math.Round(elapsedMs)),
		Points:      append([]replay.Point(nil), points...),
	}
	r.frames = append(r.frames, frame)
	r.lastTimestamp = float64(frame.TimestampMs)
}

// RecordFrameNow is RecordFrame with the elapsed time taken from the wall
// clock since Start. Callers wanting deterministic timestamps should supply
// their own clock through RecordFrame.
func (r *Recorder) RecordFrameNow(points []replay.Point) {
	r.RecordFrame(points, float64(time.Since(r.startedAt))/float64(time.Millisecond))
}

// Stop ends the recording and returns the accumulated frames. The frames
// are kept so RecordingData still works after stopping.
func (r *Recorder) Stop() []replay.Frame {
	r.recording = false
	return r.frames
}

// IsRecording reports whether the recorder is currently accepting frames.
func (r *Recorder) IsRecording() bool {
	return r.recording
}

// FrameCount returns the number of recorded frames so far.
func (r *Recorder) FrameCount() int {
	return len(r.frames)
}

// RecordingData encodes and compresses the accumulated frames into a
// finished payload. Returns (nil, nil) when nothing was recorded.
func (r *Recorder) RecordingData() (*replay.RecordingPayload, error) {
	if len(r.frames) == 0 {
		return nil, nil
	}

	layout := replay.FrameLayout{SegmentCount: r.segmentCount, Encoding: replay.EncodingBinaryV1}
	buf, err := replay.EncodeFrames(r.frames, layout)
	if err != nil {
		return nil, fmt.Errorf("encode ghost frames: %w", err)
	}
	data, tag := r.stream.Compress(buf)

	return &replay.RecordingPayload{
		FrameCount:   len(r.frames),
		Duration:     r.frames[len(r.frames)-1].TimestampMs,
		SegmentCount: r.segmentCount,
		Compression:  tag,
		Encoding:     replay.EncodingBinaryV1,
		Data:         data,
	}, nil
}

// Reset clears frames and all timing state back to pristine.
func (r *Recorder) Reset() {
	r.frames = make([]replay.Frame, 0, 3600)
	r.recording = false
	r.lastTimestamp = 0
	r.startedAt = time.Time{}
}
