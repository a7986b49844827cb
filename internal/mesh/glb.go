package mesh

import (
	"fmt"
	"os"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Surface describes how a mesh is shaded. When TexturePath is set the image
// is embedded in the GLB and tiled with repeat wrapping; otherwise BaseColor
// is used as a flat factor.
type Surface struct {
	Name        string
	TexturePath string
	BaseColor   [4]float64
}

// WriteGLB serialises the mesh to a binary glTF file. Vertex positions stay
// in the local frame with z up; viewers apply the up-axis transform. Feature
// identity rides along as the custom _FEATURE_ID vertex attribute.
func WriteGLB(path string, m *Mesh, surface Surface) error {
	if m.FaceCount() == 0 {
		return fmt.Errorf("mesh: refusing to write empty mesh %q", surface.Name)
	}

	positions := make([][3]float32, len(m.Positions))
	for i, p := range m.Positions {
		positions[i] = [3]float32{float32(p[0]), float32(p[1]), float32(p[2])}
	}
	uvs := make([][2]float32, len(m.UVs))
	for i, uv := range m.UVs {
		uvs[i] = [2]float32{float32(uv[0]), float32(uv[1])}
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "twinmesh"

	attrs := map[string]uint32{
		gltf.POSITION:   modeler.WritePosition(doc, positions),
		gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, uvs),
		"_FEATURE_ID":   modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, m.FeatureIDs),
	}

	mat, err := appendMaterial(doc, surface)
	if err != nil {
		return err
	}

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: surface.Name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(modeler.WriteIndices(doc, m.Indices)),
			Attributes: attrs,
			Material:   gltf.Index(mat),
		}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name: surface.Name,
		Mesh: gltf.Index(uint32(len(doc.Meshes) - 1)),
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))

	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("mesh: write %s: %w", path, err)
	}
	return nil
}

func appendMaterial(doc *gltf.Document, surface Surface) (uint32, error) {
	pbr := &gltf.PBRMetallicRoughness{
		MetallicFactor:  gltf.Float(0),
		RoughnessFactor: gltf.Float(0.9),
	}

	if surface.TexturePath != "" {
		f, err := os.Open(surface.TexturePath)
		if err != nil {
			return 0, fmt.Errorf("mesh: open texture: %w", err)
		}
		defer f.Close()

		img, err := modeler.WriteImage(doc, surface.Name, "image/png", f)
		if err != nil {
			return 0, fmt.Errorf("mesh: embed texture: %w", err)
		}
		doc.Samplers = append(doc.Samplers, &gltf.Sampler{
			WrapS: gltf.WrapRepeat,
			WrapT: gltf.WrapRepeat,
		})
		doc.Textures = append(doc.Textures, &gltf.Texture{
			Sampler: gltf.Index(uint32(len(doc.Samplers) - 1)),
			Source:  gltf.Index(img),
		})
		pbr.BaseColorTexture = &gltf.TextureInfo{Index: uint32(len(doc.Textures) - 1)}
	} else {
		color := surface.BaseColor
		if color == ([4]float64{}) {
			color = [4]float64{0.8, 0.8, 0.8, 1}
		}
		factor := [4]float32{float32(color[0]), float32(color[1]), float32(color[2]), float32(color[3])}
		pbr.BaseColorFactor = &factor
	}

	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:                 surface.Name,
		PBRMetallicRoughness: pbr,
	})
	return uint32(len(doc.Materials) - 1), nil
}
