package lod

import (
	gomath "math"
)

// Cost function constants.
const (
	isolatedCost     = -0.01 // below any real cost: vertices with no neighbors go first
	planarCurvature  = 0.35
	seamFactor       = 0.7
	strictSeamFactor = 2.1
	translucentBias  = 1.7
)

// edgeCost is the damage of merging u into its neighbor v. Lower collapses first.
func (g *graph) edgeCost(u, v int, style Style) float64 {
	uv := &g.verts[u]

	length := float64(uv.pos.Distance(g.verts[v].pos))
	switch {
	case style.Has(StyleIgnoreLength):
		length = 1
	case style.Has(StyleSquareLength):
		length *= length
	}

	var sides []int
	for _, id := range uv.faces {
		if g.hasVertex(id, v) {
			sides = append(sides, id)
		}
	}

	curvature := 1.0
	if !style.Has(StyleIgnoreCurvature) {
		curvature = g.curvature(u, sides)
		if style.Has(StylePlanarBonus) && len(sides) > 0 && g.allTwoSided(sides) {
			curvature = min(curvature, planarCurvature)
		}
	}

	seam := 1.0
	if n := g.distinctWedges(u); n > 1 {
		factor := seamFactor
		if style.Has(StyleStrictSeams) {
			factor = strictSeamFactor
		}
		seam = float64(n) * factor
	}

	bias := 1.0
	if style.Has(StyleTranslucentBias) {
		for _, id := range sides {
			if g.material(g.faces[id].material).Translucent {
				bias = translucentBias
				break
			}
		}
	}

	return length * curvature * seam * bias
}

// curvature takes, for each face of u, the flattest angle to any side face,
// and returns the sharpest of those.
func (g *graph) curvature(u int, sides []int) float64 {
	if len(sides) > 1 && g.isBorder(u) {
		return 1
	}
	curvature := 0.0
	for _, id := range g.verts[u].faces {
		n := g.faces[id].normal
		minCurv := 1.0
		for _, s := range sides {
			dot := float64(n.Dot(g.faces[s].normal))
			minCurv = min(minCurv, (1-dot)/2)
		}
		curvature = max(curvature, minCurv)
	}
	return curvature
}

func (g *graph) allTwoSided(faces []int) bool {
	for _, id := range faces {
		if !g.material(g.faces[id].material).TwoSided {
			return false
		}
	}
	return true
}

// distinctWedges counts the UV/material combinations meeting at v.
func (g *graph) distinctWedges(v int) int {
	var seen []wedgeKey
	for _, w := range g.verts[v].wedges {
		k := g.wedges[w].key()
		found := false
		for _, s := range seen {
			if s == k {
				found = true
				break
			}
		}
		if !found {
			seen = append(seen, k)
		}
	}
	return len(seen)
}

// computeEdgeCostAtVertex caches the cheapest collapse of v. Ties keep the
// earliest neighbor.
func (g *graph) computeEdgeCostAtVertex(v int, style Style) {
	vx := &g.verts[v]
	if len(vx.neighbors) == 0 {
		vx.cost = isolatedCost
		vx.target = -1
		return
	}
	vx.cost = gomath.MaxFloat64
	vx.target = -1
	for _, n := range vx.neighbors {
		if c := g.edgeCost(v, n, style); c < vx.cost {
			vx.cost = c
			vx.target = n
		}
	}
}
