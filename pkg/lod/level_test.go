package lod

import (
	"testing"
)

func TestResolveBudget(t *testing.T) {
	tests := []struct {
		name      string
		source    int
		floor     int
		reduction float64
		explicit  int
		want      int
	}{
		{"half", 100, 10, 0.5, 0, 50},
		{"floor wins", 100, 10, 0.95, 0, 10},
		{"no reduction", 100, 0, 0, 0, 100},
		{"explicit above source", 100, 0, 0, 250, 100},
		{"negative explicit uses reduction", 100, 0, 0.5, -5, 50},
		{"floor above source", 100, 150, 0, 0, 100},
		{"reduction clamped", 100, 0, 1.5, 0, 0},
		{"negative reduction clamped", 100, 0, -1, 0, 100},
		{"explicit wins over reduction", 100, 20, 0.25, 30, 30},
		{"explicit below floor", 100, 20, 0, 5, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveBudget(tt.source, tt.floor, tt.reduction, tt.explicit)
			if got != tt.want {
				t.Errorf("ResolveBudget() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStream_ClampBudget(t *testing.T) {
	st := mustBuild(t, cubeInput(true), Options{MinVertices: 4})

	if st.MinVertices != 4 {
		t.Fatalf("MinVertices = %d, want 4", st.MinVertices)
	}
	tests := []struct{ in, want int }{
		{-1, 4},
		{0, 4},
		{6, 6},
		{8, 8},
		{9, 8},
	}
	for _, tt := range tests {
		if got := st.ClampBudget(tt.in); got != tt.want {
			t.Errorf("ClampBudget(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if got := len(st.Level(0).Points); got != 4 {
		t.Errorf("Level(0) points = %d, want the floor of 4", got)
	}
}

func TestMesh_NormalsAndBounds(t *testing.T) {
	st := mustBuild(t, quadInput(false), Options{})
	m := st.Level(4)

	for i, n := range m.Normals() {
		if n.Z < 0.999 {
			t.Errorf("face %d normal = %v, want +Z", i, n)
		}
	}
	lo, hi := m.Bounds()
	if lo.X != 0 || lo.Y != 0 || hi.X != 1 || hi.Y != 1 {
		t.Errorf("Bounds() = %v %v, want unit square", lo, hi)
	}

	empty := st.Level(0)
	if lo, hi := empty.Bounds(); lo != hi {
		t.Errorf("empty bounds should be zero, got %v %v", lo, hi)
	}
}
