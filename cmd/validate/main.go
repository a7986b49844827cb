// Command validate checks a packaged dist directory against its manifest:
// every asset exists with the recorded size, gzipped meshes decompress to
// parseable binary glTF, bounding boxes are well formed, and the selection
// metadata is consistent with the building metadata.
//
// Usage:
//
//	go run ./cmd/validate -dist dist
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/qmuntal/gltf"

	"github.com/tidemark/twinmesh/internal/packager"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dist := flag.String("dist", "dist", "packaged output directory")
	flag.Parse()

	os.Exit(run(*dist))
}

func run(dist string) int {
	manifest, err := packager.ReadManifest(filepath.Join(dist, "manifest.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL manifest: %v\n", err)
		return 1
	}

	phases := []*phase{
		checkManifest(manifest),
		checkAssets(dist, manifest),
		checkMeshes(dist, manifest),
		checkMetadata(dist, manifest),
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed > 0 {
		return 1
	}
	fmt.Printf("validated %d assets for run %s\n", len(manifest.Assets), manifest.RunID)
	return 0
}

func checkManifest(m *packager.Manifest) *phase {
	p := &phase{name: "manifest"}
	if m.Version != packager.ManifestVersion {
		p.errorf("version %d, want %d", m.Version, packager.ManifestVersion)
	}
	if m.RunID == "" {
		p.errorf("empty run_id")
	}
	if m.Generated.IsZero() {
		p.errorf("zero generated timestamp")
	}
	if !strings.HasPrefix(m.Origin.CRS, "EPSG:") {
		p.errorf("origin CRS %q is not an EPSG code", m.Origin.CRS)
	}
	if m.AOI.SideLength <= 0 {
		p.errorf("non-positive AOI side length %g", m.AOI.SideLength)
	}
	if len(m.Assets) == 0 {
		p.errorf("no assets")
	}
	return p
}

func checkAssets(dist string, m *packager.Manifest) *phase {
	p := &phase{name: "assets"}
	seen := map[string]bool{}
	for _, a := range m.Assets {
		if seen[a.ID] {
			p.errorf("duplicate asset id %s", a.ID)
		}
		seen[a.ID] = true

		path := filepath.Join(dist, filepath.FromSlash(a.URL))
		fi, err := os.Stat(path)
		if err != nil {
			p.errorf("%s: %v", a.ID, err)
			continue
		}
		if fi.Size() != a.SizeBytes {
			p.errorf("%s: size %d on disk, manifest says %d", a.ID, fi.Size(), a.SizeBytes)
		}
		if a.Compressed != strings.HasSuffix(a.URL, ".gz") {
			p.errorf("%s: compressed flag %t does not match url %s", a.ID, a.Compressed, a.URL)
		}
	}
	return p
}

// checkMeshes decompresses and parses every mesh asset and sanity-checks its
// bounding box.
func checkMeshes(dist string, m *packager.Manifest) *phase {
	p := &phase{name: "meshes"}
	for _, a := range m.Assets {
		if a.Type == "texture" {
			continue
		}
		if a.BBox == nil {
			p.errorf("%s: missing bbox", a.ID)
			continue
		}
		for i := 0; i < 3; i++ {
			if a.BBox[i] > a.BBox[i+3] {
				p.errorf("%s: bbox min exceeds max on axis %d", a.ID, i)
			}
		}

		path := filepath.Join(dist, filepath.FromSlash(a.URL))
		doc, err := openGLB(path, a.Compressed)
		if err != nil {
			p.errorf("%s: %v", a.ID, err)
			continue
		}
		if len(doc.Meshes) == 0 {
			p.errorf("%s: document has no meshes", a.ID)
		}
	}
	return p
}

// openGLB parses a binary glTF file, decompressing to a temporary file
// first when the asset is gzipped.
func openGLB(path string, compressed bool) (*gltf.Document, error) {
	if !compressed {
		return gltf.Open(path)
	}

	src, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	zr, err := gzip.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()

	tmp, err := os.CreateTemp("", "validate-*.glb")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, zr); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	return gltf.Open(tmp.Name())
}

// checkMetadata cross-references the footprint index against the footprint
// assets and the building metadata.
func checkMetadata(dist string, m *packager.Manifest) *phase {
	p := &phase{name: "metadata"}

	idx, err := packager.ReadFootprintIndex(filepath.Join(dist, "footprints_metadata.json"))
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	var infos []packager.BuildingInfo
	data, err := os.ReadFile(filepath.Join(dist, "buildings_metadata.json"))
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if err := json.Unmarshal(data, &infos); err != nil {
		p.errorf("buildings_metadata.json: %v", err)
		return p
	}
	known := map[int64]bool{}
	for _, info := range infos {
		known[info.ID] = true
		if info.Height <= 0 {
			p.errorf("building %d: non-positive height %g", info.ID, info.Height)
		}
		if info.HeightSource == "" {
			p.errorf("building %d: missing height source", info.ID)
		}
	}

	footprintAssets := map[string]bool{}
	for _, a := range m.Assets {
		if a.Type == "footprints" {
			footprintAssets[a.ID] = true
		}
	}

	for key, ranges := range idx {
		if !footprintAssets["footprints_"+key] {
			p.errorf("index entry %s has no footprint asset", key)
		}
		for _, r := range ranges {
			if r.StartFace > r.EndFace {
				p.errorf("chunk %s building %d: start face %d after end face %d", key, r.FeatureID, r.StartFace, r.EndFace)
			}
			if !known[r.FeatureID] {
				p.errorf("chunk %s: building %d missing from building metadata", key, r.FeatureID)
			}
		}
	}
	return p
}
