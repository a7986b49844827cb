// Package packager turns combined chunk meshes into the on-disk asset set:
// one (optionally gzipped) GLB per chunk, texture copies, selection
// metadata, and the manifest the viewer loads first.
package packager

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/tidemark/twinmesh/internal/chunk"
	"github.com/tidemark/twinmesh/internal/mesh"
)

// Item is one combined chunk mesh ready for packaging.
type Item struct {
	Type       chunk.AssetType
	Key        chunk.Key
	Mesh       *mesh.Mesh
	Surface    mesh.Surface
	FaceRanges []chunk.FaceRange
}

// TextureRef points at a texture image to ship alongside the meshes.
type TextureRef struct {
	Key  string
	Path string
}

// Info carries the run metadata recorded in the manifest.
type Info struct {
	Name       string
	CRS        string
	OriginX    float64
	OriginY    float64
	CentreLat  float64
	CentreLon  float64
	SideLength float64
	Buffer     float64
}

// Packer writes assets under a dist directory.
type Packer struct {
	distDir  string
	compress bool
	log      *slog.Logger
}

// New returns a packer rooted at distDir.
func New(distDir string, compress bool, log *slog.Logger) *Packer {
	return &Packer{distDir: distDir, compress: compress, log: log}
}

// Pack writes every item and texture and returns the manifest. The manifest
// itself is written to manifest.json in the dist directory.
func (p *Packer) Pack(items []Item, textures []TextureRef, info Info) (*Manifest, error) {
	assetDir := filepath.Join(p.distDir, "assets")
	if err := os.MkdirAll(assetDir, 0o755); err != nil {
		return nil, fmt.Errorf("packager: create asset dir: %w", err)
	}

	m := &Manifest{
		Version:   ManifestVersion,
		Name:      info.Name,
		RunID:     uuid.NewString(),
		Generated: clock.Now().UTC(),
		Origin:    Origin{CRS: info.CRS, X: info.OriginX, Y: info.OriginY},
		AOI: AOIInfo{
			CentreWGS84: [2]float64{info.CentreLat, info.CentreLon},
			SideLength:  info.SideLength,
			Buffer:      info.Buffer,
		},
	}

	for _, item := range items {
		asset, err := p.packItem(assetDir, item)
		if err != nil {
			return nil, err
		}
		m.Assets = append(m.Assets, asset)
	}

	for _, tex := range textures {
		asset, err := p.packTexture(tex)
		if err != nil {
			return nil, err
		}
		m.Assets = append(m.Assets, asset)
	}

	if err := WriteManifest(filepath.Join(p.distDir, "manifest.json"), m); err != nil {
		return nil, err
	}
	p.log.Info("packaged assets", "count", len(m.Assets), "dist", p.distDir)
	return m, nil
}

func (p *Packer) packItem(assetDir string, item Item) (Asset, error) {
	id := fmt.Sprintf("%s_%s", item.Type, item.Key)
	name := id + ".glb"
	path := filepath.Join(assetDir, name)

	if err := mesh.WriteGLB(path, item.Mesh, item.Surface); err != nil {
		return Asset{}, err
	}
	if p.compress {
		var err error
		if path, err = gzipFile(path); err != nil {
			return Asset{}, err
		}
		name += ".gz"
	}

	fi, err := os.Stat(path)
	if err != nil {
		return Asset{}, fmt.Errorf("packager: stat %s: %w", path, err)
	}

	min, max := item.Mesh.Bounds()
	bbox := [6]float64{min[0], min[1], min[2], max[0], max[1], max[2]}
	return Asset{
		ID:         id,
		Type:       string(item.Type),
		URL:        "assets/" + name,
		SizeBytes:  fi.Size(),
		Compressed: p.compress,
		BBox:       &bbox,
	}, nil
}

func (p *Packer) packTexture(tex TextureRef) (Asset, error) {
	dir := filepath.Join(p.distDir, "textures")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Asset{}, fmt.Errorf("packager: create texture dir: %w", err)
	}
	name := filepath.Base(tex.Path)
	dst := filepath.Join(dir, name)
	if err := copyFile(tex.Path, dst); err != nil {
		return Asset{}, err
	}
	fi, err := os.Stat(dst)
	if err != nil {
		return Asset{}, fmt.Errorf("packager: stat %s: %w", dst, err)
	}
	return Asset{
		ID:        "texture_" + tex.Key,
		Type:      "texture",
		URL:       "textures/" + name,
		SizeBytes: fi.Size(),
	}, nil
}

// gzipFile compresses path into path.gz and removes the original.
func gzipFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("packager: open %s: %w", path, err)
	}
	defer src.Close()

	gzPath := path + ".gz"
	dst, err := os.Create(gzPath)
	if err != nil {
		return "", fmt.Errorf("packager: create %s: %w", gzPath, err)
	}
	defer dst.Close()

	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		return "", fmt.Errorf("packager: compress %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("packager: compress %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("packager: compress %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("packager: remove %s: %w", path, err)
	}
	return gzPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("packager: open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("packager: create %s: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("packager: copy %s: %w", src, err)
	}
	return out.Close()
}
