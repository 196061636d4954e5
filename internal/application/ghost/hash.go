package ghost

import (
	"encoding/json"
	"strconv"

	"github.com/floppyworm/ghost/internal/infrastructure/config"
)

// MapHash fingerprints the structural parts of a level so stale ghosts can
// be detected when the level changes. It is the same 32-bit rolling
// multiply-add hash existing recordings were stored with; it detects
// change, it does not protect integrity.
func MapHash(geom config.LevelGeometry) string {
	// Struct marshaling fixes the field order, so the canonical form does
	// not depend on how the level JSON happened to order its keys.
	canonical, err := json.Marshal(geom)
	if err != nil {
		return "0"
	}

	var h int32
	for _, c := range canonical {
		h = (h << 5) - h + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 16)
}
