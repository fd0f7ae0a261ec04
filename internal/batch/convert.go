package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-lod/internal/config"
	"github.com/Faultbox/midgard-lod/pkg/formats"
	"github.com/Faultbox/midgard-lod/pkg/gltfexport"
	"github.com/Faultbox/midgard-lod/pkg/lod"
	"github.com/Faultbox/midgard-lod/pkg/lodfile"
)

// ErrUnsafeName is returned for model names that would write outside OutDir.
var ErrUnsafeName = errors.New("model name escapes output directory")

// Source provides model bytes by name. *grf.Archive and DirSource implement it.
type Source interface {
	Read(name string) ([]byte, error)
}

// DirSource reads models from a directory tree.
type DirSource struct {
	Root string
}

// Read reads name, a slash-separated path relative to Root.
func (d DirSource) Read(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(name)))
}

// Converter turns RSM models into LOD containers or GLB levels.
type Converter struct {
	Source          Source
	OutDir          string
	Format          string // config.FormatPLOD or config.FormatGLB
	Compression     lodfile.Compression
	Style           lod.Style
	MinVertices     int
	Reduction       float64
	Budget          int
	CheckInvariants bool
	Logger          *zap.Logger
}

// NewConverter builds a Converter from a validated config.
func NewConverter(cfg *config.Config, src Source, log *zap.Logger) (*Converter, error) {
	style, err := cfg.Simplify.ParsedStyle()
	if err != nil {
		return nil, err
	}
	comp, err := lodfile.ParseCompression(cfg.Output.Compression)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{
		Source:          src,
		OutDir:          cfg.Output.Dir,
		Format:          cfg.Output.Format,
		Compression:     comp,
		Style:           style,
		MinVertices:     cfg.Simplify.MinVertices,
		Reduction:       cfg.Simplify.Reduction,
		Budget:          cfg.Simplify.Budget,
		CheckInvariants: cfg.Simplify.CheckInvariants,
		Logger:          log,
	}, nil
}

// OutputPath returns where the result for a source name is written. Names
// that are absolute or climb out of OutDir are rejected.
func (c *Converter) OutputPath(name string) (string, error) {
	ext := ".plod"
	if c.Format == config.FormatGLB {
		ext = ".glb"
	}
	rel := filepath.FromSlash(strings.TrimSuffix(name, path.Ext(name)) + ext)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeName, name)
	}
	return filepath.Join(c.OutDir, rel), nil
}

// Convert processes one job. It matches Func.
func (c *Converter) Convert(ctx context.Context, job Job) Result {
	res := Result{Name: job.Name}
	log := c.Logger.With(zap.String("model", job.Name))

	out, err := c.OutputPath(job.Name)
	if err != nil {
		res.Err = err
		return res
	}

	data, err := c.Source.Read(job.Name)
	if err != nil {
		res.Err = fmt.Errorf("reading model: %w", err)
		return res
	}
	model, err := formats.ParseRSM(data)
	if err != nil {
		res.Err = fmt.Errorf("parsing model: %w", err)
		return res
	}
	in, err := model.LODInput()
	if err != nil {
		res.Err = fmt.Errorf("converting model: %w", err)
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	st, err := lod.Build(in, lod.Options{
		Style:           c.Style,
		MinVertices:     c.MinVertices,
		CheckInvariants: c.CheckInvariants,
		Logger:          log,
	})
	if err != nil {
		res.Err = fmt.Errorf("simplifying model: %w", err)
		return res
	}

	res.Points = st.TrueVertexCount
	res.Faces = len(st.Faces)
	res.Dropped = st.Dropped
	res.Budget = lod.ResolveBudget(st.TrueVertexCount, st.MinVertices, c.Reduction, c.Budget)
	res.Kept = len(st.FacesForBudget(res.Budget))
	res.Output = out

	if err := os.MkdirAll(filepath.Dir(res.Output), 0755); err != nil {
		res.Err = err
		return res
	}

	switch c.Format {
	case config.FormatGLB:
		name := strings.TrimSuffix(path.Base(job.Name), path.Ext(job.Name))
		err = gltfexport.SaveFile(res.Output, st.Level(res.Budget), gltfexport.Options{Name: name})
	default:
		err = lodfile.WriteFile(res.Output, st, c.Compression)
	}
	if err != nil {
		res.Err = err
		return res
	}

	log.Debug("model converted",
		zap.Int("points", res.Points),
		zap.Int("faces", res.Faces),
		zap.Int("budget", res.Budget),
		zap.Int("kept", res.Kept),
		zap.String("output", res.Output))
	return res
}
