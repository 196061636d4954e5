package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
)

// Loader loads level configuration from JSON files using the fs.FS interface.
type Loader struct {
	fsys     fs.FS
	basePath string
}

// NewLoader creates a new config loader from a filesystem path.
func NewLoader(basePath string) *Loader {
	return &Loader{
		fsys:     os.DirFS(basePath),
		basePath: basePath,
	}
}

// NewFSLoader creates a new config loader from an fs.FS.
func NewFSLoader(fsys fs.FS, basePath string) *Loader {
	return &Loader{
		fsys:     fsys,
		basePath: basePath,
	}
}

// LoadLevel loads <id>.json.
func (l *Loader) LoadLevel(id string) (*LevelConfig, error) {
	name := fmt.Sprintf("%s.json", id)
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var cfg LevelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	return &cfg, nil
}
