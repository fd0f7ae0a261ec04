package lod

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Faultbox/midgard-lod/pkg/math"
)

// StreamWedge is a deduplicated wedge. Point indexes Stream.Points.
type StreamWedge struct {
	Point           uint32
	UV              math.Vec2
	Material        int
	SmoothingGroups uint32
	Original        int // input wedge this one descends from
}

// StreamFace is a face of the full-detail mesh. It is visible for every
// vertex budget >= Level.
type StreamFace struct {
	Wedges   [3]uint32
	Material int
	Level    int
	Original int // input face index
}

// Stream is the flattened collapse history of one mesh.
type Stream struct {
	// Points in ascending importance: a budget of N keeps Points[:N].
	Points []math.Vec3
	Wedges []StreamWedge
	// CollapseWedgeThus[i] is the wedge that Wedges[i] becomes when its
	// point is removed, or NoCollapse.
	CollapseWedgeThus []uint32
	// Faces sorted by ascending Level.
	Faces []StreamFace
	// PointCollapse[i] is the point that Points[i] merges into, or NoCollapse.
	PointCollapse []uint32
	Materials     []Material

	TrueVertexCount int
	MinVertices     int
	Style           Style
	Dropped         int // source faces rejected as degenerate
}

// buildStream turns the finished collapse history into a Stream.
func (s *Simplifier) buildStream() *Stream {
	g := s.g
	n := len(g.verts)

	st := &Stream{
		Points:          make([]math.Vec3, n),
		PointCollapse:   make([]uint32, n),
		Materials:       slices.Clone(s.input.Materials),
		TrueVertexCount: n,
		MinVertices:     clamp(s.opts.MinVertices, 0, n),
		Style:           s.opts.Style,
		Dropped:         g.dropped,
	}
	for idx, p := range s.order {
		st.Points[idx] = g.verts[p].pos
		st.PointCollapse[idx] = NoCollapse
		if t := s.targetOf[p]; t >= 0 {
			st.PointCollapse[idx] = uint32(s.perm[t])
		}
	}

	// Sort every snapshot by (material, point, u, v) and keep the first of
	// each run as the unique wedge.
	ids := make([]int, len(g.wedges))
	for i := range ids {
		ids[i] = i
	}
	point := func(id int) int { return s.perm[g.wedges[id].Point] }
	slices.SortStableFunc(ids, func(a, b int) int {
		wa, wb := &g.wedges[a], &g.wedges[b]
		if c := cmp.Compare(wa.Material, wb.Material); c != 0 {
			return c
		}
		if c := cmp.Compare(point(a), point(b)); c != 0 {
			return c
		}
		if c := cmp.Compare(wa.UV.X, wb.UV.X); c != 0 {
			return c
		}
		return cmp.Compare(wa.UV.Y, wb.UV.Y)
	})

	unique := make([]int, len(g.wedges))
	for i, id := range ids {
		if i > 0 {
			prev := ids[i-1]
			if g.wedges[prev].key() == g.wedges[id].key() && point(prev) == point(id) {
				unique[id] = unique[prev]
				continue
			}
		}
		w := &g.wedges[id]
		unique[id] = len(st.Wedges)
		st.Wedges = append(st.Wedges, StreamWedge{
			Point:           uint32(point(id)),
			UV:              w.UV,
			Material:        w.Material,
			SmoothingGroups: w.SmoothingGroups,
			Original:        w.origin,
		})
		st.CollapseWedgeThus = append(st.CollapseWedgeThus, NoCollapse)
	}
	for id := range g.wedges {
		next := g.wedges[id].next
		if next < 0 {
			continue
		}
		u := unique[id]
		thus := uint32(unique[next])
		if cur := st.CollapseWedgeThus[u]; cur != NoCollapse && cur != thus {
			panic(fmt.Sprintf("lod: wedge %d collapses into both %d and %d", u, cur, thus))
		}
		st.CollapseWedgeThus[u] = thus
	}

	for id := range g.faces {
		f := &g.faces[id]
		if !f.built {
			continue
		}
		st.Faces = append(st.Faces, StreamFace{
			Wedges: [3]uint32{
				uint32(unique[f.source[0]]),
				uint32(unique[f.source[1]]),
				uint32(unique[f.source[2]]),
			},
			Material: f.material,
			Level:    f.level,
			Original: id,
		})
	}
	slices.SortStableFunc(st.Faces, func(a, b StreamFace) int {
		return cmp.Compare(a.Level, b.Level)
	})
	return st
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
