package lod

import (
	"fmt"
	"strings"
)

// Style selects which terms of the collapse cost are active.
type Style uint32

const (
	// StyleIgnoreLength treats every edge as length 1, ranking by curvature alone.
	StyleIgnoreLength Style = 1 << iota
	// StyleSquareLength squares the edge length so long edges go last.
	StyleSquareLength
	// StyleIgnoreCurvature treats the surface as uniformly curved, ranking by length alone.
	StyleIgnoreCurvature
	// StylePlanarBonus caps curvature when every side face is two-sided.
	StylePlanarBonus
	// StyleStrictSeams raises the per-wedge seam penalty.
	StyleStrictSeams
	// StyleTranslucentBias penalizes collapses across translucent faces.
	StyleTranslucentBias
)

var styleNames = []struct {
	flag Style
	name string
}{
	{StyleIgnoreLength, "ignore_length"},
	{StyleSquareLength, "square_length"},
	{StyleIgnoreCurvature, "ignore_curvature"},
	{StylePlanarBonus, "planar_bonus"},
	{StyleStrictSeams, "strict_seams"},
	{StyleTranslucentBias, "translucent_bias"},
}

// Has reports whether all bits of flag are set.
func (s Style) Has(flag Style) bool {
	return s&flag == flag
}

// String returns the flag names joined by "|", or "default".
func (s Style) String() string {
	var parts []string
	for _, n := range styleNames {
		if s.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if rest := s &^ allStyles(); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, "|")
}

// Names returns the flag names set in s.
func (s Style) Names() []string {
	var names []string
	for _, n := range styleNames {
		if s.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return names
}

// ParseStyle turns flag names (case-insensitive, "-" or "_") into a Style.
func ParseStyle(names []string) (Style, error) {
	var s Style
	for _, raw := range names {
		name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
		if name == "" || name == "default" {
			continue
		}
		found := false
		for _, n := range styleNames {
			if n.name == name {
				s |= n.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown style flag %q", raw)
		}
	}
	return s, nil
}

func allStyles() Style {
	var s Style
	for _, n := range styleNames {
		s |= n.flag
	}
	return s
}
