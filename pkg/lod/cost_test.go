package lod

import (
	gomath "math"
	"testing"

	"go.uber.org/zap"
)

func TestEdgeCost_FlatQuad(t *testing.T) {
	sqrt2 := gomath.Sqrt2

	tests := []struct {
		name      string
		seam      bool
		materials []Material
		style     Style
		u, v      int
		want      float64
	}{
		{name: "flat interior edge", u: 0, v: 1, want: 0},
		{name: "border diagonal", u: 0, v: 2, want: sqrt2},
		{name: "ignore length", u: 0, v: 2, style: StyleIgnoreLength, want: 1},
		{name: "square length", u: 0, v: 2, style: StyleSquareLength, want: 2},
		{name: "ignore length beats square", u: 0, v: 2, style: StyleIgnoreLength | StyleSquareLength, want: 1},
		{name: "ignore curvature", u: 0, v: 1, style: StyleIgnoreCurvature, want: 1},
		{
			name:  "both ignore flags leave seam term",
			seam:  true,
			u:     0,
			v:     1,
			style: StyleIgnoreLength | StyleIgnoreCurvature,
			want:  2 * seamFactor,
		},
		{
			name:  "both ignore flags strict seams",
			seam:  true,
			u:     0,
			v:     3,
			style: StyleIgnoreLength | StyleIgnoreCurvature | StyleStrictSeams,
			want:  2 * strictSeamFactor,
		},
		{
			name:  "both ignore flags without seam are constant",
			u:     2,
			v:     3,
			style: StyleIgnoreLength | StyleIgnoreCurvature,
			want:  1,
		},
		{
			name:      "translucent bias",
			materials: []Material{{Translucent: true}},
			u:         0,
			v:         1,
			style:     StyleIgnoreLength | StyleIgnoreCurvature | StyleTranslucentBias,
			want:      translucentBias,
		},
		{
			name:      "translucent without bias flag",
			materials: []Material{{Translucent: true}},
			u:         0,
			v:         1,
			style:     StyleIgnoreLength | StyleIgnoreCurvature,
			want:      1,
		},
		{
			name:      "planar bonus on two-sided border",
			materials: []Material{{TwoSided: true}},
			u:         0,
			v:         2,
			style:     StylePlanarBonus,
			want:      sqrt2 * planarCurvature,
		},
		{
			name:  "planar bonus ignored for one-sided",
			u:     0,
			v:     2,
			style: StylePlanarBonus,
			want:  sqrt2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := quadInput(tt.seam)
			in.Materials = tt.materials
			g := newGraph(&in, zap.NewNop())
			got := g.edgeCost(tt.u, tt.v, tt.style)
			if !approx(got, tt.want) {
				t.Errorf("edgeCost(%d, %d) = %v, want %v", tt.u, tt.v, got, tt.want)
			}
		})
	}
}

func TestEdgeCost_Fold(t *testing.T) {
	in := tentInput()
	g := newGraph(&in, zap.NewNop())

	tests := []struct {
		u, v int
		want float64
	}{
		{0, 2, 0.5}, // one side face, the other face is at 90 degrees
		{0, 3, 0.5},
		{0, 1, 1},   // border vertex, two side faces
		{2, 0, 0},   // single face: flat from its own point of view
		{3, 1, 0},
	}
	for _, tt := range tests {
		if got := g.edgeCost(tt.u, tt.v, 0); !approx(got, tt.want) {
			t.Errorf("edgeCost(%d, %d) = %v, want %v", tt.u, tt.v, got, tt.want)
		}
	}
}

func TestComputeEdgeCostAtVertex(t *testing.T) {
	in := tentInput()
	g := newGraph(&in, zap.NewNop())

	g.computeEdgeCostAtVertex(0, 0)
	if g.verts[0].target != 2 {
		t.Errorf("target = %d, want 2 (first of the cheapest neighbors)", g.verts[0].target)
	}
	if !approx(g.verts[0].cost, 0.5) {
		t.Errorf("cost = %v, want 0.5", g.verts[0].cost)
	}
}

func TestComputeEdgeCostAtVertex_Isolated(t *testing.T) {
	in := quadInput(false)
	in.Points = append(in.Points, in.Points[0])
	g := newGraph(&in, zap.NewNop())

	g.computeEdgeCostAtVertex(4, 0)
	if g.verts[4].target != -1 {
		t.Errorf("target = %d, want -1", g.verts[4].target)
	}
	if g.verts[4].cost >= 0 {
		t.Errorf("isolated cost = %v, want below zero", g.verts[4].cost)
	}
}

func TestDistinctWedges(t *testing.T) {
	plain := quadInput(false)
	g := newGraph(&plain, zap.NewNop())
	if n := g.distinctWedges(0); n != 1 {
		t.Errorf("plain quad distinctWedges(0) = %d, want 1", n)
	}

	seam := quadInput(true)
	g = newGraph(&seam, zap.NewNop())
	if n := g.distinctWedges(0); n != 2 {
		t.Errorf("seam quad distinctWedges(0) = %d, want 2", n)
	}
	if n := g.distinctWedges(1); n != 1 {
		t.Errorf("seam quad distinctWedges(1) = %d, want 1", n)
	}
}

func TestEdgeCost_IgnoreFlagsOnGrid(t *testing.T) {
	in := gridInput(5)
	g := newGraph(&in, zap.NewNop())
	style := StyleIgnoreLength | StyleIgnoreCurvature

	for u := range g.verts {
		want := 1.0
		if n := g.distinctWedges(u); n > 1 {
			want = float64(n) * seamFactor
		}
		for _, v := range g.verts[u].neighbors {
			if got := g.edgeCost(u, v, style); !approx(got, want) {
				t.Errorf("edgeCost(%d, %d) = %v, want %v", u, v, got, want)
			}
		}
	}
}
