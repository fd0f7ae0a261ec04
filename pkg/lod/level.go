package lod

import (
	gomath "math"
	"sort"

	"github.com/Faultbox/midgard-lod/pkg/math"
)

// MeshFace is a triangle of an extracted level.
type MeshFace struct {
	Wedges   [3]uint32 // indices into Mesh.Wedges
	Material int
	Original int
}

// Mesh is a standalone mesh reconstructed from a Stream at one vertex budget.
type Mesh struct {
	Points    []math.Vec3
	Wedges    []StreamWedge // Point indexes Mesh.Points; Original is the input wedge
	Faces     []MeshFace
	Materials []Material
}

// ResolveBudget turns a reduction fraction or explicit vertex count into a
// budget in [minFloor, source]. An explicit budget > 0 wins over reduction.
func ResolveBudget(source, minFloor int, reduction float64, explicit int) int {
	floor := clamp(minFloor, 0, source)
	budget := explicit
	if budget <= 0 {
		r := gomath.Max(0, gomath.Min(1, reduction))
		budget = int(gomath.Round(float64(source) * (1 - r)))
	}
	return clamp(budget, floor, source)
}

// ClampBudget limits a vertex budget to [MinVertices, TrueVertexCount].
func (s *Stream) ClampBudget(budget int) int {
	return clamp(budget, s.MinVertices, s.TrueVertexCount)
}

// FacesForBudget returns the faces visible at the given budget. Faces are
// sorted by level, so this is a prefix of s.Faces.
func (s *Stream) FacesForBudget(budget int) []StreamFace {
	n := sort.Search(len(s.Faces), func(i int) bool {
		return s.Faces[i].Level > budget
	})
	return s.Faces[:n]
}

// ResolveWedge follows the collapse chain of wedge w until its point is
// below budget. It returns false if the chain ends first.
func (s *Stream) ResolveWedge(w uint32, budget int) (uint32, bool) {
	for hops := 0; int(s.Wedges[w].Point) >= budget; hops++ {
		next := s.CollapseWedgeThus[w]
		if next == NoCollapse || hops > len(s.Wedges) {
			return w, false
		}
		w = next
	}
	return w, true
}

// Level reconstructs the mesh for a vertex budget. The budget is clamped to
// the stream's valid range first.
func (s *Stream) Level(budget int) *Mesh {
	n := s.ClampBudget(budget)
	m := &Mesh{
		Points:    s.Points[:n:n],
		Materials: s.Materials,
	}
	remap := make(map[uint32]uint32)
	for _, f := range s.FacesForBudget(n) {
		mf := MeshFace{Material: f.Material, Original: f.Original}
		for i, w := range f.Wedges {
			r, ok := s.ResolveWedge(w, n)
			if !ok {
				panic("lod: visible face references a wedge that never reaches the budget")
			}
			idx, seen := remap[r]
			if !seen {
				idx = uint32(len(m.Wedges))
				remap[r] = idx
				m.Wedges = append(m.Wedges, s.Wedges[r])
			}
			mf.Wedges[i] = idx
		}
		m.Faces = append(m.Faces, mf)
	}
	return m
}

// Normals returns one flat-shaded normal per face.
func (m *Mesh) Normals() []math.Vec3 {
	out := make([]math.Vec3, len(m.Faces))
	for i, f := range m.Faces {
		p0 := m.Points[m.Wedges[f.Wedges[0]].Point]
		p1 := m.Points[m.Wedges[f.Wedges[1]].Point]
		p2 := m.Points[m.Wedges[f.Wedges[2]].Point]
		out[i] = p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
	}
	return out
}

// Bounds returns the axis-aligned box around the mesh points.
func (m *Mesh) Bounds() (lo, hi math.Vec3) {
	if len(m.Points) == 0 {
		return
	}
	lo, hi = m.Points[0], m.Points[0]
	for _, p := range m.Points[1:] {
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return lo, hi
}
