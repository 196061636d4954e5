// Package config loads level definitions from JSON files using fs.FS.
package config

// Platform is one static collision body in a level.
type Platform struct {
	ID     string  `json:"id,omitempty"`
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle,omitempty"`
}

// EntityPlacement is one non-platform object placed in a level (goal,
// checkpoint, hazard, collectible).
type EntityPlacement struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Dimensions is the playable size of a level in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// LevelGeometry is the structural subset of a level that the ghost map hash
// covers: changing any of it invalidates stored ghosts for the level.
type LevelGeometry struct {
	Platforms  []Platform        `json:"platforms"`
	Entities   []EntityPlacement `json:"entities"`
	Dimensions Dimensions        `json:"dimensions"`
}

// LevelConfig is the root config for level JSON files.
type LevelConfig struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Platforms  []Platform        `json:"platforms"`
	Entities   []EntityPlacement `json:"entities"`
	Dimensions Dimensions        `json:"dimensions"`
}

// Geometry returns the hashable structural subset of the level.
func (c *LevelConfig) Geometry() LevelGeometry {
	return LevelGeometry{
		Platforms:  c.Platforms,
		Entities:   c.Entities,
		Dimensions: c.Dimensions,
	}
}
