// Package lod builds progressive-mesh level-of-detail streams.
//
// A source triangle mesh is simplified by repeated edge collapse until no
// vertices remain. The collapse history is then flattened into a single
// Stream: points sorted by importance, a deduplicated wedge list with a
// collapse chain, and faces tagged with the vertex count at which they
// disappear. Any vertex budget can be reconstructed from that one stream.
package lod

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-lod/pkg/math"
)

// Input validation errors.
var (
	ErrNoPoints          = errors.New("mesh has no points")
	ErrWedgeOutOfRange   = errors.New("wedge references point out of range")
	ErrFaceOutOfRange    = errors.New("face references wedge out of range")
	ErrNegativeMaterial  = errors.New("negative material id")
	ErrAlreadySimplified = errors.New("simplifier already ran; call Reset")
)

// NoCollapse marks a wedge or point that never collapses into another one.
const NoCollapse = ^uint32(0)

// Wedge is a textured vertex: a point plus the attributes a renderer needs
// at one face corner. Wedges sharing a point but differing in UV, material
// or smoothing groups describe a seam.
type Wedge struct {
	Point           int
	UV              math.Vec2
	Material        int
	SmoothingGroups uint32
}

// Triangle is a source face referencing three wedges.
type Triangle struct {
	Wedges   [3]int
	Material int
}

// Material holds the per-material properties the cost function looks at.
type Material struct {
	Name        string
	TwoSided    bool
	Translucent bool
}

// Input is the source triangle soup.
type Input struct {
	Points    []math.Vec3
	Wedges    []Wedge
	Faces     []Triangle
	Materials []Material // indexed by material id; missing ids are opaque and one-sided
}

// Options controls a simplification run.
type Options struct {
	Style Style
	// MinVertices is the floor below which consumers may not reduce the mesh.
	MinVertices int
	// CheckInvariants validates the whole graph after every collapse and
	// panics on a breach. Slow; meant for tests and debugging.
	CheckInvariants bool
	Logger          *zap.Logger
}

// Validate checks the input for errors that make simplification impossible.
func (in *Input) Validate() error {
	if len(in.Points) == 0 {
		return ErrNoPoints
	}
	for i, w := range in.Wedges {
		if w.Point < 0 || w.Point >= len(in.Points) {
			return fmt.Errorf("%w: wedge %d -> point %d (have %d)", ErrWedgeOutOfRange, i, w.Point, len(in.Points))
		}
		if w.Material < 0 {
			return fmt.Errorf("%w: wedge %d", ErrNegativeMaterial, i)
		}
	}
	for i, f := range in.Faces {
		for _, w := range f.Wedges {
			if w < 0 || w >= len(in.Wedges) {
				return fmt.Errorf("%w: face %d -> wedge %d (have %d)", ErrFaceOutOfRange, i, w, len(in.Wedges))
			}
		}
		if f.Material < 0 {
			return fmt.Errorf("%w: face %d", ErrNegativeMaterial, i)
		}
	}
	return nil
}

// Build simplifies the input all the way down and returns the LOD stream.
func Build(in Input, opts Options) (*Stream, error) {
	s, err := NewSimplifier(in, opts)
	if err != nil {
		return nil, err
	}
	return s.Run()
}
