package ghost

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/floppyworm/ghost/internal/domain/replay"
	"github.com/floppyworm/ghost/internal/infrastructure/config"
	"github.com/floppyworm/ghost/internal/infrastructure/storage"
)

// Two entries per level: the full record and a metadata copy without the
// frame buffer, for cheap listing.
const (
	dataKeyPrefix = "ghost_data_"
	metaKeyPrefix = "ghost_meta_"
)

// sizeWarnBytes is the serialized record size above which SaveGhost logs a
// warning.
const sizeWarnBytes = 2 * 1024 * 1024

// StoreOptions configures a Store.
type StoreOptions struct {
	// AutoEvict retries a failed save once after evicting the oldest ghost.
	// Off by default: a full store then simply refuses new ghosts.
	AutoEvict bool
}

// Store persists ghost records keyed by level. Every call is a stateless
// read or write against the backend; the Store holds no record state.
type Store struct {
	backend   storage.Storage
	autoEvict bool
}

// NewStore creates a store over the given backend.
func NewStore(backend storage.Storage, opts StoreOptions) *Store {
	return &Store{
		backend:   backend,
		autoEvict: opts.AutoEvict,
	}
}

// SaveGhost writes a completed run's recording for a level. It overwrites
// unconditionally; callers gate on ShouldSaveGhost to keep only the best
// run per level.
func (s *Store) SaveGhost(levelKey string, geom config.LevelGeometry, payload *replay.RecordingPayload, completionTimeMs uint32) error {
	if levelKey == "" {
		return fmt.Errorf("save ghost: empty level key")
	}
	if payload == nil {
		return fmt.Errorf("save ghost for %q: nil payload", levelKey)
	}

	record := replay.GhostRecord{
		Version:        replay.RecordVersion,
		MapKey:         levelKey,
		MapHash:        MapHash(geom),
		CompletionTime: completionTimeMs,
		RecordedAt:     time.Now().UTC().Format(time.RFC3339),
		Compression:    payload.Compression,
		Encoding:       payload.Encoding,
		SegmentCount:   payload.SegmentCount,
		FrameCount:     payload.FrameCount,
		Duration:       payload.Duration,
		Frames:         payload.Data,
	}
	data, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("serialize ghost for %q: %w", levelKey, err)
	}
	if len(data) > sizeWarnBytes {
		log.Printf("Warning: ghost for %q is %d bytes", levelKey, len(data))
	}
	meta := record.Meta()
	metaData, err := json.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("serialize ghost metadata for %q: %w", levelKey, err)
	}

	err = s.writeRecord(levelKey, data, metaData)
	if err != nil && s.autoEvict && errors.Is(err, storage.ErrQuotaExceeded) {
		evicted, evictErr := s.EvictOldest()
		if evictErr == nil && evicted != "" {
			log.Printf("Warning: ghost storage full, evicted ghost for %q", evicted)
			err = s.writeRecord(levelKey, data, metaData)
		}
	}
	if err != nil {
		return fmt.Errorf("save ghost for %q: %w", levelKey, err)
	}
	return nil
}

func (s *Store) writeRecord(levelKey string, data, metaData []byte) error {
	if err := s.backend.Set(dataKeyPrefix+levelKey, data); err != nil {
		return err
	}
	return s.backend.Set(metaKeyPrefix+levelKey, metaData)
}

// LoadGhost returns the stored payload for a level, or (nil, nil) when
// nothing usable is stored. A record written under a different schema
// version is ignored; one whose map hash no longer matches the level's
// geometry is deleted and treated as absent.
func (s *Store) LoadGhost(levelKey string, geom config.LevelGeometry) (*replay.RecordingPayload, error) {
	raw, err := s.backend.Get(dataKeyPrefix + levelKey)
	if err != nil {
		return nil, fmt.Errorf("load ghost for %q: %w", levelKey, err)
	}
	if raw == nil {
		return nil, nil
	}

	var record replay.GhostRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("parse ghost for %q: %w", levelKey, err)
	}
	if record.Version != replay.RecordVersion {
		return nil, nil
	}
	if record.MapHash != MapHash(geom) {
		// The level changed since this ghost was recorded.
		if err := s.DeleteGhost(levelKey); err != nil {
			log.Printf("Warning: could not delete stale ghost for %q: %v", levelKey, err)
		}
		return nil, nil
	}
	return record.Payload(), nil
}

// Record returns the full stored record for a level without the version and
// hash gates, or (nil, nil) when absent. Intended for tooling.
func (s *Store) Record(levelKey string) (*replay.GhostRecord, error) {
	raw, err := s.backend.Get(dataKeyPrefix + levelKey)
	if err != nil {
		return nil, fmt.Errorf("load ghost for %q: %w", levelKey, err)
	}
	if raw == nil {
		return nil, nil
	}
	var record replay.GhostRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("parse ghost for %q: %w", levelKey, err)
	}
	return &record, nil
}

// GhostMetadata returns the lightweight record (no frame buffer) for a
// level, or (nil, nil) when no ghost is stored. It reads the metadata entry
// and falls back to stripping the full record when that entry is missing.
func (s *Store) GhostMetadata(levelKey string) (*replay.GhostRecord, error) {
	raw, err := s.backend.Get(metaKeyPrefix + levelKey)
	if err == nil && raw != nil {
		var meta replay.GhostRecord
		if err := json.Unmarshal(raw, &meta); err == nil {
			return &meta, nil
		}
	}

	record, err := s.Record(levelKey)
	if err != nil || record == nil {
		return nil, err
	}
	meta := record.Meta()
	return &meta, nil
}

// HasGhost reports whether any ghost is stored for the level.
func (s *Store) HasGhost(levelKey string) bool {
	raw, err := s.backend.Get(dataKeyPrefix + levelKey)
	return err == nil && raw != nil
}

// DeleteGhost removes both entries for a level.
func (s *Store) DeleteGhost(levelKey string) error {
	if err := s.backend.Remove(dataKeyPrefix + levelKey); err != nil {
		return fmt.Errorf("delete ghost for %q: %w", levelKey, err)
	}
	if err := s.backend.Remove(metaKeyPrefix + levelKey); err != nil {
		return fmt.Errorf("delete ghost metadata for %q: %w", levelKey, err)
	}
	return nil
}

// AllGhosts returns the metadata of every stored ghost, keyed by level.
func (s *Store) AllGhosts() (map[string]*replay.GhostRecord, error) {
	keys, err := s.backend.Keys()
	if err != nil {
		return nil, fmt.Errorf("list ghosts: %w", err)
	}

	levels := make(map[string]struct{})
	for _, k := range keys {
		switch {
		case strings.HasPrefix(k, metaKeyPrefix):
			levels[strings.TrimPrefix(k, metaKeyPrefix)] = struct{}{}
		case strings.HasPrefix(k, dataKeyPrefix):
			levels[strings.TrimPrefix(k, dataKeyPrefix)] = struct{}{}
		}
	}

	out := make(map[string]*replay.GhostRecord, len(levels))
	for level := range levels {
		meta, err := s.GhostMetadata(level)
		if err != nil || meta == nil {
			continue
		}
		out[level] = meta
	}
	return out, nil
}

// ClearAllGhosts removes every ghost entry from the backend.
func (s *Store) ClearAllGhosts() error {
	keys, err := s.backend.Keys()
	if err != nil {
		return fmt.Errorf("clear ghosts: %w", err)
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, dataKeyPrefix) && !strings.HasPrefix(k, metaKeyPrefix) {
			continue
		}
		if err := s.backend.Remove(k); err != nil {
			return fmt.Errorf("clear ghosts: %w", err)
		}
	}
	return nil
}

// StorageSize returns the total bytes used by ghost entries.
func (s *Store) StorageSize() (int, error) {
	keys, err := s.backend.Keys()
	if err != nil {
		return 0, fmt.Errorf("size ghosts: %w", err)
	}
	total := 0
	for _, k := range keys {
		if !strings.HasPrefix(k, dataKeyPrefix) && !strings.HasPrefix(k, metaKeyPrefix) {
			continue
		}
		value, err := s.backend.Get(k)
		if err != nil {
			return 0, fmt.Errorf("size ghosts: %w", err)
		}
		total += len(value)
	}
	return total, nil
}

// ShouldSaveGhost reports whether a completion time strictly beats the
// stored best for a level. True when no ghost is stored yet. This is the
// sole "new best" gate; SaveGhost itself overwrites unconditionally.
func (s *Store) ShouldSaveGhost(levelKey string, completionTimeMs uint32) bool {
	meta, err := s.GhostMetadata(levelKey)
	if err != nil || meta == nil {
		return true
	}
	return completionTimeMs < meta.CompletionTime
}

// EvictOldest deletes the ghost with the earliest recordedAt timestamp and
// returns its level key, or "" when the store holds no ghosts.
func (s *Store) EvictOldest() (string, error) {
	ghosts, err := s.AllGhosts()
	if err != nil {
		return "", err
	}

	oldestKey := ""
	var oldest time.Time
	for level, meta := range ghosts {
		ts, err := time.Parse(time.RFC3339, meta.RecordedAt)
		if err != nil {
			// Unparseable timestamps sort first and get evicted early.
			ts = time.Time{}
		}
		if oldestKey == "" || ts.Before(oldest) {
			oldestKey = level
			oldest = ts
		}
	}
	if oldestKey == "" {
		return "", nil
	}
	return oldestKey, s.DeleteGhost(oldestKey)
}
