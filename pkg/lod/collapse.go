package lod

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-lod/pkg/math"
)

// uvTolerance is how close two texture coordinates must be for a wedge to
// morph into a side wedge instead of stretching.
const uvTolerance = 1.0 / 1024

// wedgeKey identifies a wedge by what a renderer sees at its point.
type wedgeKey struct {
	material int
	uv       math.Vec2
}

func (w *wedgeRec) key() wedgeKey {
	return wedgeKey{material: w.Material, uv: w.UV}
}

func (w *wedgeRec) matches(other *wedgeRec) bool {
	return w.Material == other.Material && w.UV.ApproxEqual(other.UV, uvTolerance)
}

// Simplifier owns one mesh's graph for the duration of a simplification.
// It is not safe for concurrent use; run independent meshes on independent
// Simplifiers.
type Simplifier struct {
	opts  Options
	log   *zap.Logger
	input Input
	g     *graph

	order    []int // order[newIndex] = source point
	perm     []int // perm[source point] = newIndex
	targetOf []int // targetOf[source point] = source point it merged into, -1 if none
	steps    int
}

// NewSimplifier validates the input and builds the collapse graph.
func NewSimplifier(in Input, opts Options) (*Simplifier, error) {
	s := &Simplifier{opts: opts, log: opts.Logger}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if err := s.Reset(in); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset discards all state and prepares the simplifier for a new mesh.
func (s *Simplifier) Reset(in Input) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	n := len(in.Points)
	s.input = in
	s.g = newGraph(&in, s.log)
	s.order = make([]int, n)
	s.perm = make([]int, n)
	s.targetOf = make([]int, n)
	s.steps = 0
	for v := range s.g.verts {
		s.g.computeEdgeCostAtVertex(v, s.opts.Style)
	}
	return nil
}

// LiveVertices returns the number of vertices not yet collapsed.
func (s *Simplifier) LiveVertices() int {
	return s.g.live
}

// LiveFaces returns the number of faces still in the graph.
func (s *Simplifier) LiveFaces() int {
	return s.g.liveFaces()
}

// Step collapses the cheapest vertex. It returns false once the graph is empty.
func (s *Simplifier) Step() bool {
	if s.g.live == 0 {
		return false
	}
	u := s.cheapestVertex()
	target := s.g.verts[u].target
	idx := s.g.live - 1
	s.order[idx] = u
	s.perm[u] = idx
	s.targetOf[u] = target

	s.collapse(u, target)
	s.steps++

	if s.opts.CheckInvariants {
		if err := s.g.validate(); err != nil {
			panic(fmt.Sprintf("lod: graph invariant broken after collapsing %d into %d: %v", u, target, err))
		}
	}
	return true
}

// Run drains the graph and builds the stream.
func (s *Simplifier) Run() (*Stream, error) {
	if s.steps > 0 {
		return nil, ErrAlreadySimplified
	}
	for s.Step() {
	}
	st := s.buildStream()
	s.log.Debug("mesh simplified",
		zap.Int("points", len(st.Points)),
		zap.Int("wedges", len(st.Wedges)),
		zap.Int("faces", len(st.Faces)),
		zap.Int("dropped", st.Dropped),
		zap.Stringer("style", s.opts.Style))
	return st, nil
}

// cheapestVertex scans for the lowest cached cost; ties go to the lowest index.
func (s *Simplifier) cheapestVertex() int {
	best := -1
	for v := range s.g.verts {
		vx := &s.g.verts[v]
		if !vx.alive {
			continue
		}
		if best < 0 || vx.cost < s.g.verts[best].cost {
			best = v
		}
	}
	return best
}

type sideCorner struct {
	uWedge int
	vWedge int
}

// collapse merges u into v, or deletes u outright when v is -1.
func (s *Simplifier) collapse(u, v int) {
	g := s.g
	if v < 0 {
		g.deleteVertex(u)
		return
	}

	ux := &g.verts[u]
	neighbors := slices.Clone(ux.neighbors)
	faces := slices.Clone(ux.faces)
	wedges := slices.Clone(ux.wedges)

	var sides []sideCorner
	for i, id := range faces {
		if k := g.cornerOf(id, v); k >= 0 {
			sides = append(sides, sideCorner{uWedge: wedges[i], vWedge: g.faces[id].wedges[k]})
		}
	}

	s.disposeWedges(u, v, sides)

	for i := len(faces) - 1; i >= 0; i-- {
		if g.hasVertex(faces[i], v) {
			g.removeFace(faces[i])
		}
	}
	for i := len(faces) - 1; i >= 0; i-- {
		id := faces[i]
		if !g.faces[id].alive {
			continue
		}
		g.replaceVertexInFace(id, u, v, g.wedges[wedges[i]].next)
	}
	g.deleteVertex(u)

	for _, n := range neighbors {
		if g.verts[n].alive {
			g.computeEdgeCostAtVertex(n, s.opts.Style)
		}
	}
}

// disposeWedges decides what every wedge on u becomes once u is gone. A
// wedge whose UV matches a side wedge morphs into that side face's wedge on
// v; any other wedge stretches: a new snapshot on v keeps its UV.
func (s *Simplifier) disposeWedges(u, v int, sides []sideCorner) {
	g := s.g
	stretched := map[wedgeKey]int{}
	owned := g.verts[u].owned
	for _, w := range owned {
		next := -1
		for _, sc := range sides {
			if g.wedges[w].matches(&g.wedges[sc.uWedge]) {
				next = sc.vWedge
				break
			}
		}
		if next < 0 {
			k := g.wedges[w].key()
			if id, ok := stretched[k]; ok {
				next = id
			} else {
				rec := g.wedges[w]
				rec.Point = v
				rec.next = -1
				next = len(g.wedges)
				g.wedges = append(g.wedges, rec)
				g.verts[v].owned = append(g.verts[v].owned, next)
				stretched[k] = next
			}
		}
		g.wedges[w].next = next
	}
}
