package packager

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ManifestVersion is bumped when the manifest shape changes incompatibly.
const ManifestVersion = 1

// Origin declares the planar CRS and the local origin within it, so
// consumers can convert mesh coordinates back to geographic ones.
type Origin struct {
	CRS string  `json:"crs"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

// AOIInfo echoes the area the twin was generated for.
type AOIInfo struct {
	CentreWGS84 [2]float64 `json:"centre_wgs84"` // lat, lon
	SideLength  float64    `json:"side_length_m"`
	Buffer      float64    `json:"buffer_m"`
}

// Asset is one packaged file. BBox is [minX, minY, minZ, maxX, maxY, maxZ]
// in local coordinates and is omitted for non-mesh assets.
type Asset struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	URL        string      `json:"url"`
	SizeBytes  int64       `json:"size_bytes"`
	Compressed bool        `json:"compressed"`
	BBox       *[6]float64 `json:"bbox,omitempty"`
}

// Manifest is the only long-lived artifact of a pipeline run.
type Manifest struct {
	Version   int       `json:"version"`
	Name      string    `json:"name"`
	RunID     string    `json:"run_id"`
	Generated time.Time `json:"generated"`
	Origin    Origin    `json:"origin"`
	AOI       AOIInfo   `json:"aoi"`
	Assets    []Asset   `json:"assets"`
}

// WriteManifest writes the manifest as indented JSON.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("packager: encode manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("packager: write manifest: %w", err)
	}
	return nil
}

// ReadManifest parses a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("packager: read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("packager: parse manifest: %w", err)
	}
	return &m, nil
}
