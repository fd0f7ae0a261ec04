package lod

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-lod/pkg/math"
)

// normalEpsilon is the cross-product length below which a face normal is
// left unnormalized.
const normalEpsilon = 1e-6

// vertex is one graph node per source point. Vertex ids equal point indices.
type vertex struct {
	pos       math.Vec3
	faces     []int // face ids touching this vertex
	wedges    []int // wedge ids at this vertex's corner of faces[i]
	neighbors []int
	owned     []int // every archived wedge whose point is this vertex
	cost      float64
	target    int
	alive     bool
}

type face struct {
	corners  [3]int // vertex ids
	wedges   [3]int // current wedge ids, one per corner
	source   [3]int // input wedge ids
	material int
	normal   math.Vec3
	built    bool
	alive    bool
	level    int // live vertex count when the face was removed
}

// wedgeRec is an immutable wedge snapshot. Collapses never edit a record;
// they append a new one and link it through next.
type wedgeRec struct {
	Wedge
	origin int // input wedge this snapshot descends from
	next   int // wedge this one turns into when its point collapses, -1 if none
}

// graph is the mutable mesh topology used while simplifying.
type graph struct {
	verts     []vertex
	faces     []face
	wedges    []wedgeRec
	materials []Material
	live      int
	dropped   int
	log       *zap.Logger
}

func newGraph(in *Input, log *zap.Logger) *graph {
	g := &graph{
		verts:     make([]vertex, len(in.Points)),
		faces:     make([]face, 0, len(in.Faces)),
		wedges:    make([]wedgeRec, 0, len(in.Wedges)*2),
		materials: in.Materials,
		live:      len(in.Points),
		log:       log,
	}
	for i, p := range in.Points {
		g.verts[i] = vertex{pos: p, target: -1, alive: true}
	}
	for i, w := range in.Wedges {
		g.wedges = append(g.wedges, wedgeRec{Wedge: w, origin: i, next: -1})
		g.verts[w.Point].owned = append(g.verts[w.Point].owned, i)
	}
	for i, t := range in.Faces {
		g.addFace(t.Material, t.Wedges[0], t.Wedges[1], t.Wedges[2], i)
	}
	return g
}

func (g *graph) material(id int) Material {
	if id >= 0 && id < len(g.materials) {
		return g.materials[id]
	}
	return Material{}
}

// addFace registers a triangle. Faces whose corners do not resolve to three
// distinct points are kept in the arena as never built and logged.
func (g *graph) addFace(material, wa, wb, wc, original int) bool {
	ws := [3]int{wa, wb, wc}
	f := face{
		wedges:   ws,
		source:   ws,
		material: material,
	}
	for i, w := range ws {
		f.corners[i] = g.wedges[w].Point
	}
	id := len(g.faces)
	if id != original {
		panic(fmt.Sprintf("lod: face %d added out of order as %d", original, id))
	}
	a, b, c := f.corners[0], f.corners[1], f.corners[2]
	if a == b || b == c || a == c {
		g.faces = append(g.faces, f)
		g.dropped++
		g.log.Warn("dropping degenerate face",
			zap.Int("face", original),
			zap.Ints("points", f.corners[:]))
		return false
	}

	f.built = true
	f.alive = true
	g.faces = append(g.faces, f)
	for i := range 3 {
		v := &g.verts[f.corners[i]]
		v.faces = append(v.faces, id)
		v.wedges = append(v.wedges, ws[i])
	}
	g.linkCorners(id)
	g.computeNormal(id)
	return true
}

func (g *graph) linkCorners(id int) {
	c := g.faces[id].corners
	for i := range 3 {
		for j := range 3 {
			if i != j {
				g.addNeighbor(c[i], c[j])
			}
		}
	}
}

func (g *graph) addNeighbor(v, n int) {
	if !slices.Contains(g.verts[v].neighbors, n) {
		g.verts[v].neighbors = append(g.verts[v].neighbors, n)
	}
}

// computeNormal sets the unit face normal. A near-zero cross product is
// stored as is.
func (g *graph) computeNormal(id int) {
	f := &g.faces[id]
	p0 := g.verts[f.corners[0]].pos
	p1 := g.verts[f.corners[1]].pos
	p2 := g.verts[f.corners[2]].pos
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	if l := n.Length(); l > normalEpsilon {
		n = n.Scale(1 / l)
	}
	f.normal = n
}

func (g *graph) hasVertex(id, v int) bool {
	c := g.faces[id].corners
	return c[0] == v || c[1] == v || c[2] == v
}

func (g *graph) cornerOf(id, v int) int {
	for i, c := range g.faces[id].corners {
		if c == v {
			return i
		}
	}
	return -1
}

// detach drops face id from vertex v's face list and the matching wedge slot.
func (g *graph) detach(v, id int) {
	vx := &g.verts[v]
	k := slices.Index(vx.faces, id)
	if k < 0 {
		panic(fmt.Sprintf("lod: face %d not registered with vertex %d", id, v))
	}
	vx.faces = slices.Delete(vx.faces, k, k+1)
	vx.wedges = slices.Delete(vx.wedges, k, k+1)
}

// removeFace takes a face out of the graph and records the live vertex
// count as its level.
func (g *graph) removeFace(id int) {
	f := &g.faces[id]
	f.alive = false
	f.level = g.live
	c := f.corners
	for _, v := range c {
		g.detach(v, id)
	}
	for i := range 3 {
		i2 := (i + 1) % 3
		g.removeIfNonNeighbor(c[i], c[i2])
		g.removeIfNonNeighbor(c[i2], c[i])
	}
}

// removeIfNonNeighbor unlinks n from v unless a face of v still spans them.
func (g *graph) removeIfNonNeighbor(v, n int) {
	vx := &g.verts[v]
	k := slices.Index(vx.neighbors, n)
	if k < 0 {
		return
	}
	for _, id := range vx.faces {
		if g.hasVertex(id, n) {
			return
		}
	}
	vx.neighbors = slices.Delete(vx.neighbors, k, k+1)
}

// replaceVertexInFace moves one corner of a face from oldV to newV. The
// corner takes wedge w, which must live on newV.
func (g *graph) replaceVertexInFace(id, oldV, newV, w int) {
	k := g.cornerOf(id, oldV)
	if k < 0 {
		panic(fmt.Sprintf("lod: vertex %d is not a corner of face %d", oldV, id))
	}
	if g.wedges[w].Point != newV {
		panic(fmt.Sprintf("lod: wedge %d lives on point %d, not %d", w, g.wedges[w].Point, newV))
	}
	g.detach(oldV, id)

	f := &g.faces[id]
	f.corners[k] = newV
	f.wedges[k] = w
	nv := &g.verts[newV]
	nv.faces = append(nv.faces, id)
	nv.wedges = append(nv.wedges, w)

	c := f.corners
	for i := range 3 {
		g.removeIfNonNeighbor(oldV, c[i])
		g.removeIfNonNeighbor(c[i], oldV)
	}
	g.linkCorners(id)
	g.computeNormal(id)
}

// isBorder reports whether v sits on an open boundary: some neighbor is
// shared with exactly one of v's faces.
func (g *graph) isBorder(v int) bool {
	vx := &g.verts[v]
	for _, n := range vx.neighbors {
		count := 0
		for _, id := range vx.faces {
			if g.hasVertex(id, n) {
				count++
			}
		}
		if count == 1 {
			return true
		}
	}
	return false
}

// deleteVertex removes a vertex that no longer has faces.
func (g *graph) deleteVertex(v int) {
	vx := &g.verts[v]
	if len(vx.faces) != 0 {
		panic(fmt.Sprintf("lod: deleting vertex %d with %d faces", v, len(vx.faces)))
	}
	for _, n := range vx.neighbors {
		nv := &g.verts[n]
		if k := slices.Index(nv.neighbors, v); k >= 0 {
			nv.neighbors = slices.Delete(nv.neighbors, k, k+1)
		}
	}
	vx.neighbors = nil
	vx.alive = false
	g.live--
}

// liveFaces counts faces still in the graph.
func (g *graph) liveFaces() int {
	n := 0
	for i := range g.faces {
		if g.faces[i].alive {
			n++
		}
	}
	return n
}

// validate checks the structural invariants of the graph.
func (g *graph) validate() error {
	live := 0
	for v := range g.verts {
		vx := &g.verts[v]
		if !vx.alive {
			if len(vx.faces) != 0 || len(vx.neighbors) != 0 {
				return fmt.Errorf("dead vertex %d still linked", v)
			}
			continue
		}
		live++
		if len(vx.faces) != len(vx.wedges) {
			return fmt.Errorf("vertex %d: %d faces but %d wedges", v, len(vx.faces), len(vx.wedges))
		}
		want := map[int]bool{}
		for i, id := range vx.faces {
			f := &g.faces[id]
			if !f.alive {
				return fmt.Errorf("vertex %d references dead face %d", v, id)
			}
			k := g.cornerOf(id, v)
			if k < 0 {
				return fmt.Errorf("vertex %d lists face %d it is not a corner of", v, id)
			}
			if f.wedges[k] != vx.wedges[i] {
				return fmt.Errorf("vertex %d: wedge slot %d out of step with face %d", v, i, id)
			}
			if g.wedges[vx.wedges[i]].Point != v {
				return fmt.Errorf("vertex %d: wedge %d lives on point %d", v, vx.wedges[i], g.wedges[vx.wedges[i]].Point)
			}
			for _, c := range f.corners {
				if c != v {
					want[c] = true
				}
			}
		}
		if len(want) != len(vx.neighbors) {
			return fmt.Errorf("vertex %d: %d neighbors, faces span %d", v, len(vx.neighbors), len(want))
		}
		for _, n := range vx.neighbors {
			if !want[n] {
				return fmt.Errorf("vertex %d: stale neighbor %d", v, n)
			}
		}
	}
	if live != g.live {
		return fmt.Errorf("live count %d, counted %d", g.live, live)
	}
	for id := range g.faces {
		f := &g.faces[id]
		if !f.alive {
			continue
		}
		c := f.corners
		if c[0] == c[1] || c[1] == c[2] || c[0] == c[2] {
			return fmt.Errorf("face %d is degenerate: %v", id, c)
		}
		for _, v := range c {
			if !g.verts[v].alive {
				return fmt.Errorf("face %d uses dead vertex %d", id, v)
			}
		}
	}
	return nil
}
