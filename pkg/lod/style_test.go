package lod

import "testing"

func TestParseStyle(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    Style
		wantErr bool
	}{
		{"empty", nil, 0, false},
		{"default", []string{"default"}, 0, false},
		{"single", []string{"square_length"}, StyleSquareLength, false},
		{"dashes and case", []string{"Strict-Seams", " planar_bonus "}, StyleStrictSeams | StylePlanarBonus, false},
		{"all", []string{"ignore_length", "square_length", "ignore_curvature", "planar_bonus", "strict_seams", "translucent_bias"}, allStyles(), false},
		{"unknown", []string{"smooth"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStyle(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStyle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStyle() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStyle_String(t *testing.T) {
	tests := []struct {
		s    Style
		want string
	}{
		{0, "default"},
		{StyleIgnoreLength, "ignore_length"},
		{StyleStrictSeams | StyleTranslucentBias, "strict_seams|translucent_bias"},
		{Style(1 << 20), "0x100000"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Style(%d).String() = %q, want %q", uint32(tt.s), got, tt.want)
		}
	}
}

func TestStyle_NamesRoundTrip(t *testing.T) {
	s := StyleSquareLength | StylePlanarBonus
	got, err := ParseStyle(s.Names())
	if err != nil {
		t.Fatalf("ParseStyle() error = %v", err)
	}
	if got != s {
		t.Errorf("round trip = %v, want %v", got, s)
	}
}
