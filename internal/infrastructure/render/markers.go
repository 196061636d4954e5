// Package render draws ghost markers with ebiten.
package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/floppyworm/ghost/internal/application/ghost"
)

// Ghost palette, translucent so the ghost reads as a shadow of the live worm.
var (
	colorGhostHead = color.RGBA{200, 200, 255, 140}
	colorGhostBody = color.RGBA{140, 140, 200, 110}
)

// defaultMarkerSize is the square marker edge in pixels.
const defaultMarkerSize = 6.0

// MarkerLayer owns the drawable markers for one ghost and implements
// ghost.MarkerFactory. Create one per level session and call Draw from the
// scene's Draw.
type MarkerLayer struct {
	size    float64
	markers []*rectMarker
}

// NewMarkerLayer creates a layer with the given marker size; size <= 0
// uses the default.
func NewMarkerLayer(size float64) *MarkerLayer {
	if size <= 0 {
		size = defaultMarkerSize
	}
	return &MarkerLayer{size: size}
}

// CreateMarker returns one marker handle. Index 0 is the worm's head and
// gets the brighter color.
func (l *MarkerLayer) CreateMarker(index int) ghost.Marker {
	c := colorGhostBody
	if index == 0 {
		c = colorGhostHead
	}
	m := &rectMarker{size: l.size, color: c, visible: true}
	l.markers = append(l.markers, m)
	return m
}

// Draw renders all live markers with the camera offset applied.
func (l *MarkerLayer) Draw(screen *ebiten.Image, camX, camY float64) {
	for _, m := range l.markers {
		if m.released || !m.visible {
			continue
		}
		ebitenutil.DrawRect(screen,
			m.x-camX-m.size/2, m.y-camY-m.size/2,
			m.size, m.size, m.color)
	}
}

// rectMarker is one tracked point's square, positioned by the ghost player.
type rectMarker struct {
	x, y     float64
	size     float64
	color    color.RGBA
	visible  bool
	released bool
}

func (m *rectMarker) SetPosition(x, y float64) { m.x, m.y = x, y }
func (m *rectMarker) SetVisible(visible bool)  { m.visible = visible }
func (m *rectMarker) Release()                 { m.released = true }
