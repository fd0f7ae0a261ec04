package lod

import (
	"testing"

	"github.com/Faultbox/midgard-lod/pkg/math"
)

// quadInput is a unit quad split along the 0-2 diagonal. With seam set,
// the second triangle uses its own wedges on points 0 and 2.
func quadInput(seam bool) Input {
	in := Input{
		Points: []math.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Wedges: []Wedge{
			{Point: 0, UV: math.Vec2{0, 0}},
			{Point: 1, UV: math.Vec2{1, 0}},
			{Point: 2, UV: math.Vec2{1, 1}},
			{Point: 3, UV: math.Vec2{0, 1}},
		},
		Faces: []Triangle{
			{Wedges: [3]int{0, 1, 2}},
			{Wedges: [3]int{0, 2, 3}},
		},
	}
	if seam {
		in.Wedges = append(in.Wedges,
			Wedge{Point: 0, UV: math.Vec2{0.5, 0}},
			Wedge{Point: 2, UV: math.Vec2{0.5, 1}},
		)
		in.Faces[1].Wedges = [3]int{4, 5, 3}
	}
	return in
}

// tentInput is two triangles sharing edge 0-1, folded at a right angle.
func tentInput() Input {
	return Input{
		Points: []math.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Wedges: []Wedge{
			{Point: 0}, {Point: 1}, {Point: 2}, {Point: 3},
		},
		Faces: []Triangle{
			{Wedges: [3]int{0, 1, 2}},
			{Wedges: [3]int{0, 3, 1}},
		},
	}
}

// cubeInput is a closed unit cube with per-face UVs (24 wedges). With
// shared set, every point has exactly one wedge instead.
func cubeInput(shared bool) Input {
	in := Input{}
	for i := 0; i < 8; i++ {
		in.Points = append(in.Points, math.Vec3{
			X: float32(i & 1),
			Y: float32((i >> 1) & 1),
			Z: float32((i >> 2) & 1),
		})
	}
	quads := [6][4]int{
		{0, 4, 6, 2}, // -x
		{1, 3, 7, 5}, // +x
		{0, 1, 5, 4}, // -y
		{2, 6, 7, 3}, // +y
		{0, 2, 3, 1}, // -z
		{4, 5, 7, 6}, // +z
	}
	uvs := [4]math.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	if shared {
		for i := range in.Points {
			in.Wedges = append(in.Wedges, Wedge{Point: i, UV: math.Vec2{X: in.Points[i].X, Y: in.Points[i].Y}})
		}
	}
	for _, q := range quads {
		var w [4]int
		for k, p := range q {
			if shared {
				w[k] = p
				continue
			}
			w[k] = len(in.Wedges)
			in.Wedges = append(in.Wedges, Wedge{Point: p, UV: uvs[k]})
		}
		in.Faces = append(in.Faces,
			Triangle{Wedges: [3]int{w[0], w[1], w[2]}},
			Triangle{Wedges: [3]int{w[0], w[2], w[3]}},
		)
	}
	return in
}

// twoTrianglesInput is two triangles that share nothing.
func twoTrianglesInput() Input {
	return Input{
		Points: []math.Vec3{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{5, 0, 0}, {6, 0, 0}, {5, 1, 0},
		},
		Wedges: []Wedge{
			{Point: 0}, {Point: 1}, {Point: 2},
			{Point: 3}, {Point: 4}, {Point: 5},
		},
		Faces: []Triangle{
			{Wedges: [3]int{0, 1, 2}},
			{Wedges: [3]int{3, 4, 5}},
		},
	}
}

// gridInput is a bumpy size x size height field. Cells right of the middle
// column use material 1, so the middle column carries two wedges per point.
func gridInput(size int) Input {
	in := Input{
		Materials: []Material{
			{Name: "stone"},
			{Name: "leaves", TwoSided: true, Translucent: true},
		},
	}
	split := size / 2
	wedgeFor := map[[2]int]int{}
	point := func(x, y int) int { return y*size + x }
	wedge := func(x, y, mat int) int {
		key := [2]int{point(x, y), mat}
		if w, ok := wedgeFor[key]; ok {
			return w
		}
		w := len(in.Wedges)
		in.Wedges = append(in.Wedges, Wedge{
			Point:    point(x, y),
			UV:       math.Vec2{X: float32(x) / float32(size-1), Y: float32(y) / float32(size-1)},
			Material: mat,
		})
		wedgeFor[key] = w
		return w
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			in.Points = append(in.Points, math.Vec3{
				X: float32(x),
				Y: float32(y),
				Z: float32((x*7+y*3)%5) * 0.3,
			})
		}
	}
	for y := 0; y < size-1; y++ {
		for x := 0; x < size-1; x++ {
			mat := 0
			if x >= split {
				mat = 1
			}
			a, b := wedge(x, y, mat), wedge(x+1, y, mat)
			c, d := wedge(x+1, y+1, mat), wedge(x, y+1, mat)
			in.Faces = append(in.Faces,
				Triangle{Wedges: [3]int{a, b, c}, Material: mat},
				Triangle{Wedges: [3]int{a, c, d}, Material: mat},
			)
		}
	}
	return in
}

func mustBuild(t *testing.T, in Input, opts Options) *Stream {
	t.Helper()
	opts.CheckInvariants = true
	st, err := Build(in, opts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return st
}

func mustSimplifier(t *testing.T, in Input, opts Options) *Simplifier {
	t.Helper()
	s, err := NewSimplifier(in, opts)
	if err != nil {
		t.Fatalf("NewSimplifier() error = %v", err)
	}
	return s
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-5 && d > -1e-5
}
