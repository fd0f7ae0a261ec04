// Package gltfexport writes reconstructed LOD meshes as binary glTF (.glb).
package gltfexport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/midgard-lod/pkg/lod"
	"github.com/Faultbox/midgard-lod/pkg/math"
)

// ErrEmptyMesh is returned for a mesh without faces.
var ErrEmptyMesh = errors.New("mesh has no faces")

// Options controls document metadata.
type Options struct {
	Name      string // mesh and node name; defaults to "lod"
	Generator string // asset generator; defaults to "midgard-lod"
}

// Document builds a glTF document with one primitive per material.
func Document(m *lod.Mesh, opts Options) (*gltf.Document, error) {
	if len(m.Faces) == 0 {
		return nil, ErrEmptyMesh
	}
	if opts.Name == "" {
		opts.Name = "lod"
	}
	if opts.Generator == "" {
		opts.Generator = "midgard-lod"
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = opts.Generator

	normals := wedgeNormals(m)
	mesh := &gltf.Mesh{Name: opts.Name}

	for _, mat := range usedMaterials(m) {
		remap := make(map[uint32]uint32)
		var (
			positions [][3]float32
			norms     [][3]float32
			uvs       [][2]float32
			indices   []uint32
		)
		for _, f := range m.Faces {
			if f.Material != mat {
				continue
			}
			for _, w := range f.Wedges {
				idx, ok := remap[w]
				if !ok {
					idx = uint32(len(positions))
					remap[w] = idx
					wd := m.Wedges[w]
					positions = append(positions, m.Points[wd.Point].Array())
					norms = append(norms, normals[w].Array())
					uvs = append(uvs, wd.UV.Array())
				}
				indices = append(indices, idx)
			}
		}

		posAccessor := modeler.WritePosition(doc, positions)
		normalAccessor := modeler.WriteNormal(doc, norms)
		uvAccessor := modeler.WriteTextureCoord(doc, uvs)
		indicesAccessor := modeler.WriteIndices(doc, indices)

		doc.Materials = append(doc.Materials, material(m, mat))
		mesh.Primitives = append(mesh.Primitives, &gltf.Primitive{
			Attributes: map[string]uint32{
				gltf.POSITION:   uint32(posAccessor),
				gltf.NORMAL:     uint32(normalAccessor),
				gltf.TEXCOORD_0: uint32(uvAccessor),
			},
			Indices:  gltf.Index(uint32(indicesAccessor)),
			Material: gltf.Index(uint32(len(doc.Materials) - 1)),
		})
	}

	doc.Meshes = []*gltf.Mesh{mesh}
	doc.Nodes = []*gltf.Node{{Name: opts.Name, Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(0))
	return doc, nil
}

// Write encodes m as .glb to w.
func Write(w io.Writer, m *lod.Mesh, opts Options) error {
	doc, err := Document(m, opts)
	if err != nil {
		return err
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding glb: %w", err)
	}
	return nil
}

// Bytes returns m encoded as .glb.
func Bytes(m *lod.Mesh, opts Options) ([]byte, error) {
	var out bytes.Buffer
	if err := Write(&out, m, opts); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// SaveFile writes m as a .glb file.
func SaveFile(path string, m *lod.Mesh, opts Options) error {
	doc, err := Document(m, opts)
	if err != nil {
		return err
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func usedMaterials(m *lod.Mesh) []int {
	var ids []int
	for _, f := range m.Faces {
		ids = append(ids, f.Material)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func material(m *lod.Mesh, id int) *gltf.Material {
	src := lod.Material{Name: fmt.Sprintf("material%d", id)}
	if id < len(m.Materials) {
		src = m.Materials[id]
	}
	mat := &gltf.Material{
		Name: src.Name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 1, 1, 1},
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
		DoubleSided: src.TwoSided,
		AlphaMode:   gltf.AlphaOpaque,
	}
	if src.Translucent {
		mat.AlphaMode = gltf.AlphaBlend
	}
	return mat
}

// wedgeNormals sums the area-weighted normals of the faces around each
// wedge. Stream wedges are keyed by point, material and UV, so faces that
// share those share a normal whatever their smoothing groups.
func wedgeNormals(m *lod.Mesh) []math.Vec3 {
	sums := make([]math.Vec3, len(m.Wedges))
	for _, f := range m.Faces {
		p0 := m.Points[m.Wedges[f.Wedges[0]].Point]
		p1 := m.Points[m.Wedges[f.Wedges[1]].Point]
		p2 := m.Points[m.Wedges[f.Wedges[2]].Point]
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		for _, w := range f.Wedges {
			sums[w] = sums[w].Add(n)
		}
	}
	up := math.Vec3{Y: 1}
	for i, n := range sums {
		if n = n.Normalize(); n == (math.Vec3{}) {
			n = up
		}
		sums[i] = n
	}
	return sums
}
