package ghost

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floppyworm/ghost/internal/domain/replay"
)

// brokenTransform always fails, simulating a runtime without a usable
// compression primitive.
type brokenTransform struct{}

func (brokenTransform) Apply(data []byte) ([]byte, error)  { return nil, fmt.Errorf("no codec") }
func (brokenTransform) Invert(data []byte) ([]byte, error) { return nil, fmt.Errorf("no codec") }

func sampleBuffer(t *testing.T) []byte {
	t.Helper()
	layout := replay.FrameLayout{SegmentCount: 3, Encoding: replay.EncodingBinaryV1}
	frames := []replay.Frame{
		{TimestampMs: 0, Points: []replay.Point{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}}},
		{TimestampMs: 17, Points: []replay.Point{{X: 1.5, Y: 2.5}, {X: 3.5, Y: 4.5}, {X: 5.5, Y: 6.5}}},
	}
	buf, err := replay.EncodeFrames(frames, layout)
	require.NoError(t, err)
	return buf
}

func TestStream_GzipRoundTrip(t *testing.T) {
	s := Stream{Transform: GzipTransform{}}
	buf := sampleBuffer(t)

	data, tag := s.Compress(buf)
	assert.Equal(t, replay.CompressionGzip, tag)

	back, err := s.Decompress(data, tag)
	require.NoError(t, err)
	assert.Equal(t, buf, back)
}

func TestStream_NoTransformRoundTrip(t *testing.T) {
	s := Stream{}
	buf := sampleBuffer(t)

	data, tag := s.Compress(buf)
	assert.Equal(t, replay.CompressionNone, tag)

	back, err := s.Decompress(data, tag)
	require.NoError(t, err)
	assert.Equal(t, buf, back)
}

func TestStream_BrokenTransformFallsBackToRaw(t *testing.T) {
	s := Stream{Transform: brokenTransform{}}
	buf := sampleBuffer(t)

	data, tag := s.Compress(buf)
	assert.Equal(t, replay.CompressionNone, tag)

	back, err := s.Decompress(data, tag)
	require.NoError(t, err)
	assert.Equal(t, buf, back)
}

func TestStream_DecompressGzipWithoutTransform(t *testing.T) {
	compressor := Stream{Transform: GzipTransform{}}
	data, tag := compressor.Compress(sampleBuffer(t))
	require.Equal(t, replay.CompressionGzip, tag)

	_, err := Stream{}.Decompress(data, tag)
	assert.Error(t, err)
}

func TestStream_CorruptGzipLenientReturnsRaw(t *testing.T) {
	buf := sampleBuffer(t)
	// Tagged gzip but the bytes were never compressed.
	data := replay.EncodeBase64(buf)

	back, err := Stream{Transform: GzipTransform{}}.Decompress(data, replay.CompressionGzip)
	require.NoError(t, err)
	assert.Equal(t, buf, back)
}

func TestStream_CorruptGzipStrictFails(t *testing.T) {
	buf := sampleBuffer(t)
	data := replay.EncodeBase64(buf)

	_, err := Stream{Transform: GzipTransform{}, Strict: true}.Decompress(data, replay.CompressionGzip)
	assert.Error(t, err)
}

func TestStream_BadBase64(t *testing.T) {
	_, err := Stream{}.Decompress("!!!", replay.CompressionNone)
	assert.Error(t, err)
}

func TestStream_UnknownTag(t *testing.T) {
	_, err := Stream{}.Decompress("AAAA", replay.Compression("zstd"))
	assert.Error(t, err)
}

func TestGzipTransform_RoundTrip(t *testing.T) {
	tr := GzipTransform{}
	original := []byte("the worm wiggles across the level, frame by frame")

	packed, err := tr.Apply(original)
	require.NoError(t, err)
	assert.NotEqual(t, original, packed)

	back, err := tr.Invert(packed)
	require.NoError(t, err)
	assert.Equal(t, original, back)
}
