package lodfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/Faultbox/midgard-lod/pkg/lod"
	lmath "github.com/Faultbox/midgard-lod/pkg/math"
)

// Material flag bits.
const (
	materialTwoSided    = 1 << 0
	materialTranslucent = 1 << 1
)

// Fixed record sizes, used to reject counts larger than the remaining data.
const (
	pointSize = 12
	wedgeSize = 28
	faceSize  = 24
)

func encodeStream(st *lod.Stream) []byte {
	var buf bytes.Buffer
	w := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	w(uint32(st.TrueVertexCount))
	w(uint32(st.MinVertices))
	w(uint32(st.Style))
	w(uint32(st.Dropped))

	w(uint32(len(st.Materials)))
	for _, m := range st.Materials {
		name := m.Name
		if len(name) > math.MaxUint16 {
			name = name[:math.MaxUint16]
		}
		w(uint16(len(name)))
		buf.WriteString(name)
		var flags uint8
		if m.TwoSided {
			flags |= materialTwoSided
		}
		if m.Translucent {
			flags |= materialTranslucent
		}
		w(flags)
	}

	w(uint32(len(st.Points)))
	for i, p := range st.Points {
		w(p.Array())
		w(st.PointCollapse[i])
	}

	w(uint32(len(st.Wedges)))
	for i, wd := range st.Wedges {
		w(wd.Point)
		w(wd.UV.Array())
		w(uint32(wd.Material))
		w(wd.SmoothingGroups)
		w(uint32(wd.Original))
		w(st.CollapseWedgeThus[i])
	}

	w(uint32(len(st.Faces)))
	for _, f := range st.Faces {
		w(f.Wedges)
		w(uint32(f.Material))
		w(uint32(f.Level))
		w(uint32(f.Original))
	}
	return buf.Bytes()
}

// decoder reads little-endian values and keeps the first error.
type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) read(v any) {
	if d.err != nil {
		return
	}
	if err := binary.Read(d.r, binary.LittleEndian, v); err != nil {
		d.err = ErrTruncated
	}
}

func (d *decoder) u32() uint32 {
	var v uint32
	d.read(&v)
	return v
}

// count reads a record count and checks that many records of size bytes fit.
func (d *decoder) count(what string, size int) int {
	n := d.u32()
	if d.err != nil {
		return 0
	}
	if int64(n)*int64(size) > int64(d.r.Len()) {
		d.err = fmt.Errorf("%w: %d %s exceed remaining %d bytes", ErrTruncated, n, what, d.r.Len())
		return 0
	}
	return int(n)
}

func decodeStream(payload []byte) (*lod.Stream, error) {
	d := &decoder{r: bytes.NewReader(payload)}
	st := &lod.Stream{}

	st.TrueVertexCount = int(d.u32())
	st.MinVertices = int(d.u32())
	st.Style = lod.Style(d.u32())
	st.Dropped = int(d.u32())

	st.Materials = make([]lod.Material, d.count("materials", 3))
	for i := range st.Materials {
		var nameLen uint16
		d.read(&nameLen)
		name := make([]byte, nameLen)
		if d.err == nil {
			if _, err := io.ReadFull(d.r, name); err != nil {
				d.err = ErrTruncated
			}
		}
		var flags uint8
		d.read(&flags)
		st.Materials[i] = lod.Material{
			Name:        string(name),
			TwoSided:    flags&materialTwoSided != 0,
			Translucent: flags&materialTranslucent != 0,
		}
	}

	n := d.count("points", pointSize+4)
	st.Points = make([]lmath.Vec3, n)
	st.PointCollapse = make([]uint32, n)
	for i := range n {
		var p [3]float32
		d.read(&p)
		st.Points[i] = lmath.V3(p)
		st.PointCollapse[i] = d.u32()
	}

	n = d.count("wedges", wedgeSize)
	st.Wedges = make([]lod.StreamWedge, n)
	st.CollapseWedgeThus = make([]uint32, n)
	for i := range n {
		var uv [2]float32
		wd := &st.Wedges[i]
		wd.Point = d.u32()
		d.read(&uv)
		wd.UV = lmath.Vec2{X: uv[0], Y: uv[1]}
		wd.Material = int(d.u32())
		wd.SmoothingGroups = d.u32()
		wd.Original = int(d.u32())
		st.CollapseWedgeThus[i] = d.u32()
	}

	st.Faces = make([]lod.StreamFace, d.count("faces", faceSize))
	for i := range st.Faces {
		f := &st.Faces[i]
		d.read(&f.Wedges)
		f.Material = int(d.u32())
		f.Level = int(d.u32())
		f.Original = int(d.u32())
	}

	if d.err != nil {
		return nil, d.err
	}
	if d.r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, d.r.Len())
	}
	if err := checkStream(st); err != nil {
		return nil, err
	}
	return st, nil
}

// checkStream verifies every index in st points inside its array, that
// collapse chains only move toward more important points, and that every
// face's wedges resolve below the face's level.
func checkStream(st *lod.Stream) error {
	points, wedges := uint32(len(st.Points)), uint32(len(st.Wedges))
	if st.TrueVertexCount != len(st.Points) {
		return fmt.Errorf("%w: vertex count %d, have %d points", ErrCorrupt, st.TrueVertexCount, points)
	}
	if st.MinVertices > st.TrueVertexCount {
		return fmt.Errorf("%w: min vertices %d above vertex count %d", ErrCorrupt, st.MinVertices, st.TrueVertexCount)
	}
	for i, t := range st.PointCollapse {
		if t != lod.NoCollapse && t >= uint32(i) {
			return fmt.Errorf("%w: point %d collapses to %d", ErrCorrupt, i, t)
		}
	}
	for i, wd := range st.Wedges {
		if wd.Point >= points {
			return fmt.Errorf("%w: wedge %d -> point %d", ErrCorrupt, i, wd.Point)
		}
		if t := st.CollapseWedgeThus[i]; t != lod.NoCollapse {
			if t >= wedges || st.Wedges[t].Point >= wd.Point {
				return fmt.Errorf("%w: wedge %d collapses to %d", ErrCorrupt, i, t)
			}
		}
	}
	prev := 0
	for i, f := range st.Faces {
		for _, w := range f.Wedges {
			if w >= wedges {
				return fmt.Errorf("%w: face %d -> wedge %d", ErrCorrupt, i, w)
			}
		}
		if f.Level < prev {
			return fmt.Errorf("%w: face %d level %d below %d", ErrCorrupt, i, f.Level, prev)
		}
		prev = f.Level
		for _, w := range f.Wedges {
			if _, ok := st.ResolveWedge(w, f.Level); !ok {
				return fmt.Errorf("%w: face %d wedge %d does not resolve at level %d", ErrCorrupt, i, w, f.Level)
			}
		}
	}
	return nil
}
