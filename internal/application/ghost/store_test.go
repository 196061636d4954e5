package ghost

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floppyworm/ghost/internal/domain/replay"
	"github.com/floppyworm/ghost/internal/infrastructure/storage"
)

func recordedPayload(t *testing.T, timestamps ...float64) *replay.RecordingPayload {
	t.Helper()
	r := NewRecorder(2, Stream{Transform: GzipTransform{}})
	r.Start()
	for i, ts := range timestamps {
		r.RecordFrame(twoPoints(float32(i)), ts)
	}
	r.Stop()
	payload, err := r.RecordingData()
	require.NoError(t, err)
	require.NotNil(t, payload)
	return payload
}

func TestStore_SaveAndLoad(t *testing.T) {
	backend := storage.NewMemory()
	store := NewStore(backend, StoreOptions{})
	geom := testGeometry()
	payload := recordedPayload(t, 0, 20, 45)

	require.NoError(t, store.SaveGhost("lvl1", geom, payload, 45))
	assert.True(t, store.HasGhost("lvl1"))

	loaded, err := store.LoadGhost("lvl1", geom)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, payload.FrameCount, loaded.FrameCount)
	assert.Equal(t, payload.Duration, loaded.Duration)
	assert.Equal(t, payload.Data, loaded.Data)
}

func TestStore_SaveValidation(t *testing.T) {
	store := NewStore(storage.NewMemory(), StoreOptions{})
	geom := testGeometry()

	assert.Error(t, store.SaveGhost("", geom, recordedPayload(t, 0, 20), 20))
	assert.Error(t, store.SaveGhost("lvl1", geom, nil, 20))
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(storage.NewMemory(), StoreOptions{})

	loaded, err := store.LoadGhost("nothing", testGeometry())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_HashMismatchDeletesStaleGhost(t *testing.T) {
	store := NewStore(storage.NewMemory(), StoreOptions{})
	geom := testGeometry()
	require.NoError(t, store.SaveGhost("lvl1", geom, recordedPayload(t, 0, 20, 45), 45))

	mutated := testGeometry()
	mutated.Platforms[0].Width = 999

	loaded, err := store.LoadGhost("lvl1", mutated)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Silent invalidation removed the entry entirely.
	assert.False(t, store.HasGhost("lvl1"))
	meta, err := store.GhostMetadata("lvl1")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestStore_VersionMismatchIgnored(t *testing.T) {
	backend := storage.NewMemory()
	store := NewStore(backend, StoreOptions{})
	geom := testGeometry()
	require.NoError(t, store.SaveGhost("lvl1", geom, recordedPayload(t, 0, 20), 20))

	// Tamper with the stored record's version.
	raw, err := backend.Get("ghost_data_lvl1")
	require.NoError(t, err)
	var record replay.GhostRecord
	require.NoError(t, json.Unmarshal(raw, &record))
	record.Version = 2
	tampered, err := json.Marshal(&record)
	require.NoError(t, err)
	require.NoError(t, backend.Set("ghost_data_lvl1", tampered))

	loaded, err := store.LoadGhost("lvl1", geom)
	require.NoError(t, err)
	assert.Nil(t, loaded)
	// Unlike a hash mismatch, a version mismatch does not mutate storage.
	assert.True(t, store.HasGhost("lvl1"))
}

func TestStore_GhostMetadata(t *testing.T) {
	backend := storage.NewMemory()
	store := NewStore(backend, StoreOptions{})
	require.NoError(t, store.SaveGhost("lvl1", testGeometry(), recordedPayload(t, 0, 20, 45), 4500))

	meta, err := store.GhostMetadata("lvl1")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, uint32(4500), meta.CompletionTime)
	assert.Equal(t, 3, meta.FrameCount)
	assert.Empty(t, meta.Frames)

	// Fallback: strip the full record when the metadata entry is gone.
	require.NoError(t, backend.Remove("ghost_meta_lvl1"))
	meta, err = store.GhostMetadata("lvl1")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, uint32(4500), meta.CompletionTime)
	assert.Empty(t, meta.Frames)
}

func TestStore_ShouldSaveGhost(t *testing.T) {
	store := NewStore(storage.NewMemory(), StoreOptions{})
	geom := testGeometry()

	// No record yet: anything is a best.
	assert.True(t, store.ShouldSaveGhost("lvl1", 99999))

	require.NoError(t, store.SaveGhost("lvl1", geom, recordedPayload(t, 0, 20), 5000))

	assert.True(t, store.ShouldSaveGhost("lvl1", 4999))
	assert.False(t, store.ShouldSaveGhost("lvl1", 5000))
	assert.False(t, store.ShouldSaveGhost("lvl1", 5001))
}

func TestStore_DeleteGhost(t *testing.T) {
	store := NewStore(storage.NewMemory(), StoreOptions{})
	require.NoError(t, store.SaveGhost("lvl1", testGeometry(), recordedPayload(t, 0, 20), 20))

	require.NoError(t, store.DeleteGhost("lvl1"))
	assert.False(t, store.HasGhost("lvl1"))
}

func TestStore_AllGhostsAndClear(t *testing.T) {
	store := NewStore(storage.NewMemory(), StoreOptions{})
	geom := testGeometry()
	require.NoError(t, store.SaveGhost("lvl1", geom, recordedPayload(t, 0, 20), 20))
	require.NoError(t, store.SaveGhost("lvl2", geom, recordedPayload(t, 0, 20, 45), 45))

	ghosts, err := store.AllGhosts()
	require.NoError(t, err)
	require.Len(t, ghosts, 2)
	assert.Equal(t, "lvl1", ghosts["lvl1"].MapKey)
	assert.Equal(t, uint32(45), ghosts["lvl2"].CompletionTime)

	require.NoError(t, store.ClearAllGhosts())
	ghosts, err = store.AllGhosts()
	require.NoError(t, err)
	assert.Empty(t, ghosts)
}

func TestStore_StorageSize(t *testing.T) {
	store := NewStore(storage.NewMemory(), StoreOptions{})

	size, err := store.StorageSize()
	require.NoError(t, err)
	assert.Zero(t, size)

	require.NoError(t, store.SaveGhost("lvl1", testGeometry(), recordedPayload(t, 0, 20), 20))
	size, err = store.StorageSize()
	require.NoError(t, err)
	assert.Greater(t, size, 0)
}

func TestStore_QuotaFailure(t *testing.T) {
	backend := storage.NewMemory()
	backend.Quota = 64
	store := NewStore(backend, StoreOptions{})

	err := store.SaveGhost("lvl1", testGeometry(), recordedPayload(t, 0, 20, 45), 45)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)
}

func TestStore_AutoEvictRetriesAfterQuota(t *testing.T) {
	backend := storage.NewMemory()
	store := NewStore(backend, StoreOptions{AutoEvict: true})
	geom := testGeometry()

	require.NoError(t, store.SaveGhost("old", geom, recordedPayload(t, 0, 20), 20))

	// Backdate the stored record so the eviction order is unambiguous.
	raw, err := backend.Get("ghost_meta_old")
	require.NoError(t, err)
	var meta replay.GhostRecord
	require.NoError(t, json.Unmarshal(raw, &meta))
	meta.RecordedAt = "2020-01-01T00:00:00Z"
	backdated, err := json.Marshal(&meta)
	require.NoError(t, err)
	require.NoError(t, backend.Set("ghost_meta_old", backdated))

	// Shrink the quota so the next save only fits after evicting.
	size, err := store.StorageSize()
	require.NoError(t, err)
	backend.Quota = size + 64

	require.NoError(t, store.SaveGhost("new", geom, recordedPayload(t, 0, 20), 19))
	assert.True(t, store.HasGhost("new"))
	assert.False(t, store.HasGhost("old"))
}

func TestStore_EvictOldest(t *testing.T) {
	backend := storage.NewMemory()
	store := NewStore(backend, StoreOptions{})
	geom := testGeometry()

	evicted, err := store.EvictOldest()
	require.NoError(t, err)
	assert.Empty(t, evicted)

	require.NoError(t, store.SaveGhost("first", geom, recordedPayload(t, 0, 20), 20))
	require.NoError(t, store.SaveGhost("second", geom, recordedPayload(t, 0, 20), 20))

	// Backdate the first record so eviction order is unambiguous.
	raw, err := backend.Get("ghost_meta_first")
	require.NoError(t, err)
	var meta replay.GhostRecord
	require.NoError(t, json.Unmarshal(raw, &meta))
	meta.RecordedAt = "2020-01-01T00:00:00Z"
	backdated, err := json.Marshal(&meta)
	require.NoError(t, err)
	require.NoError(t, backend.Set("ghost_meta_first", backdated))

	evicted, err = store.EvictOldest()
	require.NoError(t, err)
	assert.Equal(t, "first", evicted)
	assert.False(t, store.HasGhost("first"))
	assert.True(t, store.HasGhost("second"))
}

// TestStore_EndToEnd walks the full pipeline: record, persist, reload,
// decode, invalidate.
func TestStore_EndToEnd(t *testing.T) {
	stream := Stream{Transform: GzipTransform{}}
	recorder := NewRecorder(2, stream)
	recorder.Start()
	recorder.RecordFrame(twoPoints(0), 0)
	recorder.RecordFrame(twoPoints(1), 20)
	recorder.RecordFrame(twoPoints(2), 45)
	original := recorder.Stop()

	payload, err := recorder.RecordingData()
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, 3, payload.FrameCount)
	assert.Equal(t, uint32(45), payload.Duration)
	assert.Equal(t, 2, payload.SegmentCount)

	store := NewStore(storage.NewMemory(), StoreOptions{})
	geom := testGeometry()
	require.NoError(t, store.SaveGhost("lvl1", geom, payload, 45))

	loaded, err := store.LoadGhost("lvl1", geom)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	buf, err := stream.Decompress(loaded.Data, loaded.Compression)
	require.NoError(t, err)
	frames, err := replay.DecodeFrames(buf, loaded.FrameCount, loaded.Layout())
	require.NoError(t, err)
	assert.Equal(t, original, frames)

	changed := testGeometry()
	changed.Platforms[1].Angle = 0.5
	gone, err := store.LoadGhost("lvl1", changed)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.False(t, store.HasGhost("lvl1"))
}
