package formats

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-lod/pkg/lod"
	"github.com/Faultbox/midgard-lod/pkg/math"
)

// ErrInvalidRSMFace is returned when a face indexes data its node lacks.
var ErrInvalidRSMFace = errors.New("RSM face references missing data")

// LocalTransform returns the node transform relative to its parent.
func (n *RSMNode) LocalTransform() math.Mat4 {
	scale := math.V3(n.Scale)
	if scale == (math.Vec3{}) {
		scale = math.Vec3{X: 1, Y: 1, Z: 1}
	}
	return math.Translate(math.V3(n.Position)).
		Mul(math.RotateAxis(math.V3(n.RotAxis), n.RotAngle)).
		Mul(math.Scale(scale))
}

// MeshTransform maps the raw vertices of n into model space.
func (rsm *RSM) MeshTransform(n *RSMNode) math.Mat4 {
	world := n.LocalTransform()
	parent := n.Parent
	// At most len(Nodes) hops; a longer walk means a parent cycle.
	for range len(rsm.Nodes) {
		if parent == "" || parent == n.Name {
			break
		}
		p := rsm.GetNodeByName(parent)
		if p == nil {
			break
		}
		world = p.LocalTransform().Mul(world)
		parent = p.Parent
	}
	return world.Mul(math.Translate(math.V3(n.Offset))).Mul(math.FromMat3x3(n.Matrix))
}

// LODInput merges every node of the model into one simplifier input.
func (rsm *RSM) LODInput() (lod.Input, error) {
	b := newLODBuilder(rsm)
	for i := range rsm.Nodes {
		if err := b.addNode(&rsm.Nodes[i]); err != nil {
			return lod.Input{}, fmt.Errorf("node %q: %w", rsm.Nodes[i].Name, err)
		}
	}
	return b.in, nil
}

// NodeLODInput converts a single named node into a simplifier input.
func (rsm *RSM) NodeLODInput(name string) (lod.Input, error) {
	node := rsm.GetNodeByName(name)
	if node == nil {
		return lod.Input{}, fmt.Errorf("node %q not found", name)
	}
	b := newLODBuilder(rsm)
	if err := b.addNode(node); err != nil {
		return lod.Input{}, fmt.Errorf("node %q: %w", name, err)
	}
	return b.in, nil
}

type rsmMaterialKey struct {
	texture  int32
	twoSided bool
}

type rsmWedgeKey struct {
	point     int
	uv        math.Vec2
	material  int
	smoothing uint32
}

// lodBuilder accumulates nodes into a single lod.Input, sharing materials
// and identical wedges.
type lodBuilder struct {
	rsm       *RSM
	in        lod.Input
	materials map[rsmMaterialKey]int
	wedges    map[rsmWedgeKey]int
}

func newLODBuilder(rsm *RSM) *lodBuilder {
	return &lodBuilder{
		rsm:       rsm,
		materials: make(map[rsmMaterialKey]int),
		wedges:    make(map[rsmWedgeKey]int),
	}
}

func (b *lodBuilder) addNode(n *RSMNode) error {
	xf := b.rsm.MeshTransform(n)
	mirrored := xf.Determinant3() < 0

	base := len(b.in.Points)
	for _, v := range n.Vertices {
		b.in.Points = append(b.in.Points, xf.TransformPoint(math.V3(v)))
	}

	for fi, f := range n.Faces {
		if int(f.TextureID) >= len(n.TextureIDs) {
			return fmt.Errorf("%w: face %d texture %d (node has %d)", ErrInvalidRSMFace, fi, f.TextureID, len(n.TextureIDs))
		}
		mat := b.material(n.TextureIDs[f.TextureID], f.TwoSide != 0)
		smoothing := smoothingMask(f.SmoothGroup)

		tri := lod.Triangle{Material: mat}
		for c := range 3 {
			vi, ti := int(f.VertexIDs[c]), int(f.TexCoordIDs[c])
			if vi >= len(n.Vertices) {
				return fmt.Errorf("%w: face %d vertex %d (node has %d)", ErrInvalidRSMFace, fi, vi, len(n.Vertices))
			}
			if ti >= len(n.TexCoords) {
				return fmt.Errorf("%w: face %d texcoord %d (node has %d)", ErrInvalidRSMFace, fi, ti, len(n.TexCoords))
			}
			tc := n.TexCoords[ti]
			tri.Wedges[c] = b.wedge(base+vi, math.Vec2{X: tc.U, Y: tc.V}, mat, smoothing)
		}
		if mirrored {
			tri.Wedges[1], tri.Wedges[2] = tri.Wedges[2], tri.Wedges[1]
		}
		b.in.Faces = append(b.in.Faces, tri)
	}
	return nil
}

func (b *lodBuilder) material(texture int32, twoSided bool) int {
	key := rsmMaterialKey{texture: texture, twoSided: twoSided}
	if id, ok := b.materials[key]; ok {
		return id
	}
	name := fmt.Sprintf("texture%d", texture)
	if texture >= 0 && int(texture) < len(b.rsm.Textures) {
		name = b.rsm.Textures[texture]
	}
	id := len(b.in.Materials)
	b.in.Materials = append(b.in.Materials, lod.Material{
		Name:        name,
		TwoSided:    twoSided,
		Translucent: b.rsm.Alpha < 1,
	})
	b.materials[key] = id
	return id
}

func (b *lodBuilder) wedge(point int, uv math.Vec2, material int, smoothing uint32) int {
	key := rsmWedgeKey{point: point, uv: uv, material: material, smoothing: smoothing}
	if id, ok := b.wedges[key]; ok {
		return id
	}
	id := len(b.in.Wedges)
	b.in.Wedges = append(b.in.Wedges, lod.Wedge{
		Point:           point,
		UV:              uv,
		Material:        material,
		SmoothingGroups: smoothing,
	})
	b.wedges[key] = id
	return id
}

// smoothingMask turns an RSM smoothing group id into a single-bit mask.
func smoothingMask(group int32) uint32 {
	return 1 << (uint32(group) & 31)
}
