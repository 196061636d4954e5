// Package session ties one level run's ghost recorder, player and store
// together and owns their lifecycle.
package session

import (
	"log"
	"sync"

	"github.com/floppyworm/ghost/internal/application/ghost"
	"github.com/floppyworm/ghost/internal/domain/replay"
	"github.com/floppyworm/ghost/internal/infrastructure/config"
)

// Session owns the recorder and ghost player for a single level run. Its
// methods are safe to call concurrently with Close, so a payload build or
// save finishing after the level unloads cannot write into a dead session.
type Session struct {
	mu     sync.Mutex
	closed bool

	levelKey    string
	geometry    config.LevelGeometry
	store       *ghost.Store
	recorder    *ghost.Recorder
	player      *ghost.Player
	ghostLoaded bool
}

// New creates a session for one level run. factory may be nil when ghosts
// are not rendered.
func New(levelKey string, geom config.LevelGeometry, store *ghost.Store, factory ghost.MarkerFactory, segmentCount int) *Session {
	stream := ghost.Stream{Transform: ghost.GzipTransform{}}
	return &Session{
		levelKey: levelKey,
		geometry: geom,
		store:    store,
		recorder: ghost.NewRecorder(segmentCount, stream),
		player:   ghost.NewPlayer(stream, factory),
	}
}

// Begin loads any stored ghost for the level and starts recording the new
// run. A missing or broken ghost is not an error; the run simply has no
// ghost to race against.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	payload, err := s.store.LoadGhost(s.levelKey, s.geometry)
	if err != nil {
		log.Printf("Warning: could not load ghost for %q: %v", s.levelKey, err)
	} else if payload != nil {
		if err := s.player.Load(payload); err != nil {
			log.Printf("Warning: could not load ghost for %q: %v", s.levelKey, err)
		} else {
			s.player.Start()
			s.ghostLoaded = true
		}
	}
	s.recorder.Start()
}

// Tick records the live run's tracked points and advances ghost playback.
// Call once per simulated frame with the level's elapsed clock.
func (s *Session) Tick(points []replay.Point, elapsedMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.recorder.RecordFrame(points, elapsedMs)
	if s.ghostLoaded {
		s.player.Update(elapsedMs)
	}
}

// Complete finishes the run and saves the recording when it strictly beats
// the stored best time. Safe to call from a goroutine off the game loop; a
// session closed in the meantime discards the result.
func (s *Session) Complete(completionTimeMs uint32) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.recorder.Stop()
	if !s.store.ShouldSaveGhost(s.levelKey, completionTimeMs) {
		s.mu.Unlock()
		return nil
	}
	payload, err := s.recorder.RecordingData()
	s.mu.Unlock()
	if err != nil {
		log.Printf("Warning: could not build ghost payload for %q: %v", s.levelKey, err)
		return err
	}
	if payload == nil {
		return nil
	}

	// The payload build may have run off the game loop; re-check that the
	// session is still alive before touching the store.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.store.SaveGhost(s.levelKey, s.geometry, payload, completionTimeMs); err != nil {
		log.Printf("Warning: could not save ghost for %q: %v", s.levelKey, err)
		return err
	}
	return nil
}

// HasGhost reports whether a ghost is loaded and replayable this run.
func (s *Session) HasGhost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.ghostLoaded
}

// SetGhostVisible toggles the ghost markers.
func (s *Session) SetGhostVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.player.SetVisible(visible)
}

// GhostProgress returns ghost playback progress in [0, 1].
func (s *Session) GhostProgress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	return s.player.Progress()
}

// FramesRecorded returns how many frames the live run has captured.
func (s *Session) FramesRecorded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	return s.recorder.FrameCount()
}

// Close tears the session down. Late async results are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.player.Destroy()
	s.recorder.Reset()
	s.player = nil
	s.recorder = nil
}
