package packager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidemark/twinmesh/internal/chunk"
)

// FootprintIndex maps a chunk key (as it appears in asset file names) to the
// face ranges of the footprint mesh in that chunk, so the viewer can map a
// picked triangle back to its building.
type FootprintIndex map[string][]chunk.FaceRange

// BuildingInfo is the tag subset exported for viewer-side popups.
type BuildingInfo struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name,omitempty"`
	Category     string            `json:"category"`
	Height       float64           `json:"height_m"`
	HeightSource string            `json:"height_source"`
	Address      map[string]string `json:"address,omitempty"`
}

// WriteFootprintIndex writes footprints_metadata.json into the dist dir.
func (p *Packer) WriteFootprintIndex(idx FootprintIndex) error {
	return writeJSON(filepath.Join(p.distDir, "footprints_metadata.json"), idx)
}

// WriteBuildingMetadata writes buildings_metadata.json into the dist dir.
func (p *Packer) WriteBuildingMetadata(infos []BuildingInfo) error {
	return writeJSON(filepath.Join(p.distDir, "buildings_metadata.json"), infos)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("packager: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("packager: write %s: %w", path, err)
	}
	return nil
}

// ReadFootprintIndex parses footprints_metadata.json, used by the validate
// command and tests.
func ReadFootprintIndex(path string) (FootprintIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("packager: read %s: %w", path, err)
	}
	var idx FootprintIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("packager: parse %s: %w", path, err)
	}
	return idx, nil
}
