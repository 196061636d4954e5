package ghost

import (
	"fmt"
	"log"

	"github.com/tanema/gween/ease"

	"github.com/floppyworm/ghost/internal/domain/replay"
)

// PlaybackState tracks where a Player is in its lifecycle.
type PlaybackState int

const (
	PlaybackIdle PlaybackState = iota
	PlaybackLoaded
	PlaybackPlaying
	PlaybackFinished
)

// String returns the string representation of the playback state.
func (s PlaybackState) String() string {
	switch s {
	case PlaybackIdle:
		return "Idle"
	case PlaybackLoaded:
		return "Loaded"
	case PlaybackPlaying:
		return "Playing"
	case PlaybackFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Marker is one visual handle for a tracked point. The render layer
// provides the implementation; the player only positions and toggles it.
type Marker interface {
	SetPosition(x, y float64)
	SetVisible(visible bool)
	Release()
}

// MarkerFactory creates one marker per tracked point when a ghost loads.
type MarkerFactory interface {
	CreateMarker(index int) Marker
}

// Player decodes a finished recording and serves interpolated tracked-point
// positions for any elapsed-time value during playback. It owns its decoded
// frames and markers exclusively until Destroy.
type Player struct {
	stream  Stream
	factory MarkerFactory

	frames  []replay.Frame
	markers []Marker
	current int
	state   PlaybackState
	visible bool
}

// NewPlayer creates a player. factory may be nil for headless playback.
func NewPlayer(stream Stream, factory MarkerFactory) *Player {
	return &Player{
		stream:  stream,
		factory: factory,
		visible: true,
	}
}

// Load decompresses and decodes a recording payload and positions one
// marker per tracked point at the first frame. A nil, empty or malformed
// payload is returned as an error; callers should treat a broken ghost the
// same as no ghost.
func (p *Player) Load(payload *replay.RecordingPayload) error {
	if payload == nil || payload.Data == "" {
		return fmt.Errorf("ghost payload has no data")
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("ghost payload: %w", err)
	}

	buf, err := p.stream.Decompress(payload.Data, payload.Compression)
	if err != nil {
		return fmt.Errorf("ghost payload: %w", err)
	}
	frames, err := replay.DecodeFrames(buf, payload.FrameCount, payload.Layout())
	if err != nil {
		return fmt.Errorf("ghost payload: %w", err)
	}

	p.releaseMarkers()
	p.frames = frames
	p.current = 0
	p.state = PlaybackLoaded

	if p.factory != nil {
		p.markers = make([]Marker, 0, payload.SegmentCount)
		for i := 0; i < payload.SegmentCount; i++ {
			p.markers = append(p.markers, p.factory.CreateMarker(i))
		}
	}
	p.applyFrame(0)
	p.setMarkersVisible(p.visible)
	return nil
}

// Start begins playback from the first frame.
func (p *Player) Start() {
	if len(p.frames) == 0 {
		log.Printf("Warning: ghost player started with no frames loaded")
		return
	}
	p.state = PlaybackPlaying
	p.current = 0
	p.applyFrame(0)
}

// Update advances playback to the given elapsed time, interpolating each
// tracked point between the surrounding frames. Moving the clock backwards
// (a level restart) rewinds the cursor without an explicit seek. Reaching
// the last frame hides the markers and finishes playback; there is no loop.
func (p *Player) Update(elapsedMs float64) {
	if p.state != PlaybackPlaying || len(p.frames) == 0 {
		return
	}

	for p.current+1 < len(p.frames) && float64(p.frames[p.current+1].TimestampMs) <= elapsedMs {
		p.current++
	}
	for p.current > 0 && float64(p.frames[p.current].TimestampMs) > elapsedMs {
		p.current--
	}

	if p.current >= len(p.frames)-1 {
		if elapsedMs >= float64(p.frames[len(p.frames)-1].TimestampMs) {
			p.state = PlaybackFinished
			p.setMarkersVisible(false)
		} else {
			p.applyFrame(p.current)
		}
		return
	}

	a := p.frames[p.current]
	b := p.frames[p.current+1]
	span := float64(b.TimestampMs) - float64(a.TimestampMs)
	t := 0.0
	if span > 0 {
		t = (elapsedMs - float64(a.TimestampMs)) / span
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	for i, m := range p.markers {
		if i >= len(a.Points) || i >= len(b.Points) {
			break
		}
		x := ease.Linear(float32(t), a.Points[i].X, b.Points[i].X-a.Points[i].X, 1)
		y := ease.Linear(float32(t), a.Points[i].Y, b.Points[i].Y-a.Points[i].Y, 1)
		m.SetPosition(float64(x), float64(y))
	}
}

// Stop pauses playback in place; the cursor keeps its position.
func (p *Player) Stop() {
	if p.state == PlaybackPlaying || p.state == PlaybackFinished {
		p.state = PlaybackLoaded
	}
}

// Reset stops playback, snaps the cursor back to the first frame and hides
// the markers.
func (p *Player) Reset() {
	p.Stop()
	p.current = 0
	p.setMarkersVisible(false)
}

// SetVisible toggles marker visibility immediately, mid-playback included.
func (p *Player) SetVisible(visible bool) {
	p.visible = visible
	p.setMarkersVisible(visible)
}

// Progress returns the playback position as a fraction of the ghost's
// duration in [0, 1].
func (p *Player) Progress() float64 {
	if len(p.frames) == 0 {
		return 0
	}
	last := p.frames[len(p.frames)-1].TimestampMs
	if last == 0 {
		return 0
	}
	return float64(p.frames[p.current].TimestampMs) / float64(last)
}

// State returns the current playback state.
func (p *Player) State() PlaybackState {
	return p.state
}

// FrameCount returns the number of loaded frames.
func (p *Player) FrameCount() int {
	return len(p.frames)
}

// Destroy releases all marker resources and clears the frame data.
func (p *Player) Destroy() {
	p.releaseMarkers()
	p.frames = nil
	p.current = 0
	p.state = PlaybackIdle
}

// applyFrame snaps every marker to the positions of frame i.
func (p *Player) applyFrame(i int) {
	if i < 0 || i >= len(p.frames) {
		return
	}
	for j, m := range p.markers {
		if j >= len(p.frames[i].Points) {
			break
		}
		pt := p.frames[i].Points[j]
		m.SetPosition(float64(pt.X), float64(pt.Y))
	}
}

func (p *Player) setMarkersVisible(visible bool) {
	for _, m := range p.markers {
		m.SetVisible(visible)
	}
}

func (p *Player) releaseMarkers() {
	for _, m := range p.markers {
		m.Release()
	}
	p.markers = nil
}
