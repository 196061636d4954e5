package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/quasilyte/gdata"
)

// indexItem is the reserved item that tracks which keys exist. gdata itself
// has no key enumeration, so the adapter maintains its own index.
const indexItem = "ghost_index"

// GData is a Storage backed by quasilyte/gdata, which places items under
// the OS-appropriate application data directory.
type GData struct {
	manager *gdata.Manager

	mu    sync.Mutex
	index map[string]struct{}
}

// OpenGData opens (or creates) the app's data directory and loads the key
// index.
func OpenGData(appName string) (*GData, error) {
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		return nil, fmt.Errorf("open game data: %w", err)
	}

	g := &GData{
		manager: m,
		index:   make(map[string]struct{}),
	}
	raw, err := m.LoadItem(indexItem)
	if err == nil && len(raw) > 0 {
		var keys []string
		if err := json.Unmarshal(raw, &keys); err == nil {
			for _, k := range keys {
				g.index[k] = struct{}{}
			}
		}
	}
	return g, nil
}

// Get returns the stored value, or (nil, nil) when the key is absent.
func (g *GData) Get(key string) ([]byte, error) {
	data, err := g.manager.LoadItem(key)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// Set stores value under key and records the key in the index.
func (g *GData) Set(key string, value []byte) error {
	if err := g.manager.SaveItem(key, value); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.index[key] = struct{}{}
	return g.saveIndexLocked()
}

// Remove clears the item by saving nil data and drops it from the index.
func (g *GData) Remove(key string) error {
	if err := g.manager.SaveItem(key, nil); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.index, key)
	return g.saveIndexLocked()
}

// Keys returns all indexed keys in sorted order.
func (g *GData) Keys() ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	keys := make([]string, 0, len(g.index))
	for k := range g.index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (g *GData) saveIndexLocked() error {
	keys := make([]string, 0, len(g.index))
	for k := range g.index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("serialize key index: %w", err)
	}
	if err := g.manager.SaveItem(indexItem, data); err != nil {
		return fmt.Errorf("save key index: %w", err)
	}
	return nil
}
