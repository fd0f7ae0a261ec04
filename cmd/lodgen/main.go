// lodgen builds progressive-mesh LOD streams from Ragnarok Online RSM models.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-lod/internal/assets"
	"github.com/Faultbox/midgard-lod/internal/batch"
	"github.com/Faultbox/midgard-lod/internal/config"
	"github.com/Faultbox/midgard-lod/internal/logger"
	"github.com/Faultbox/midgard-lod/pkg/formats"
	"github.com/Faultbox/midgard-lod/pkg/gltfexport"
	"github.com/Faultbox/midgard-lod/pkg/lod"
	"github.com/Faultbox/midgard-lod/pkg/lodfile"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build", "b":
		cmdBuild(args)
	case "info", "i":
		cmdInfo(args)
	case "export", "x":
		cmdExport(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`lodgen - progressive mesh LOD generator for RSM models

Usage:
  lodgen <command> [options]

Commands:
  build [options] <source> [pattern...]   Simplify models from a .rsm file, directory or .grf archives
  info <file.plod|file.rsm>               Show container or model information
  export [options] <file.plod> <out.glb>  Write one level of a stream as GLB
  config [path]                           Write the default config file

Build options:
  -config <file>       Config file (default: ./lodgen.yaml or the user config dir)
  -style <flags>       Cost style flags: ignore_length, square_length, ignore_curvature,
                       planar_bonus, strict_seams, translucent_bias
  -reduction <0..1>    Fraction of vertices removed for exported levels
  -budget <n>          Explicit vertex budget (overrides -reduction)
  -min-vertices <n>    Floor for any exported level
  -format plod|glb     Output format
  -compression none|zstd
  -out <dir>           Output directory
  -workers <n>         Parallel workers (0 = CPU count)
  -manifest <file>     Write a JSON manifest of results
  -check               Validate mesh invariants after every collapse
  -debug               Enable debug logging

Examples:
  lodgen build -out lod data/model
  lodgen build -format glb -reduction 0.75 data.grf "data/model/prontera/*.rsm"
  lodgen build data.grf rdata.grf "data/model/*/*.rsm"
  lodgen info lod/prontera/tree.plod
  lodgen export -budget 120 lod/prontera/tree.plod tree.glb`)
}

func fatalf(format string, args ...any) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func setupLogging(cfg *config.Config) {
	opts := logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Console: true,
	}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithOptions(opts); err != nil {
		fatalf("initializing logger: %v", err)
	}
}

func cmdBuild(args []string) {
	fset := flag.NewFlagSet("build", flag.ExitOnError)
	flags := config.RegisterFlags(fset)
	manifest := fset.String("manifest", "", "Write a JSON manifest of results")
	fset.Parse(args)

	if fset.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: lodgen build [options] <source|archive.grf...> [pattern...]")
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fatalf("%v", err)
	}
	setupLogging(cfg)
	defer logger.Sync()

	src, names, closeSource, err := openSource(fset.Args())
	if err != nil {
		fatalf("%v", err)
	}
	defer closeSource()
	if len(names) == 0 {
		fatalf("no .rsm models found in %s", fset.Arg(0))
	}

	conv, err := batch.NewConverter(cfg, src, logger.Named("lod"))
	if err != nil {
		fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cfg.Batch.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Batch.Timeout)
		defer cancel()
	}

	logger.Info("building LOD streams",
		zap.String("source", fset.Arg(0)),
		zap.Int("models", len(names)),
		zap.String("style", conv.Style.String()),
		zap.String("format", cfg.Output.Format))

	results := batch.Run(ctx, names, conv.Convert, batch.Options{
		Workers:  cfg.Batch.Workers,
		Progress: cfg.Batch.ProgressInterval,
		Logger:   logger.Named("batch"),
	})

	for _, r := range results {
		if !r.Success() {
			logger.Warn("model failed", zap.String("model", r.Name), zap.Error(r.Err))
		}
	}

	if *manifest != "" {
		if err := batch.WriteManifest(*manifest, results); err != nil {
			fatalf("writing manifest: %v", err)
		}
	}

	s := batch.Summarize(results)
	fmt.Printf("Models:    %d (%d ok, %d failed)\n", s.Total, s.Succeeded, s.Failed)
	fmt.Printf("Vertices:  %d\n", s.Points)
	if s.Faces > 0 {
		fmt.Printf("Faces:     %d -> %d at budget (%.1f%%)\n", s.Faces, s.Kept, 100*float64(s.Kept)/float64(s.Faces))
	}
	fmt.Printf("CPU time:  %v\n", s.Elapsed.Round(time.Millisecond))

	if s.Failed > 0 {
		logger.Sync()
		os.Exit(1)
	}
}

// openSource resolves the build source into a batch.Source and the model
// names to process. Leading .grf arguments are overlaid as archives; the
// remaining arguments filter names with path.Match.
func openSource(args []string) (batch.Source, []string, func(), error) {
	noop := func() {}

	var archives []string
	for len(args) > 0 && isArchive(args[0]) {
		archives = append(archives, args[0])
		args = args[1:]
	}
	if len(archives) > 0 {
		return openArchives(archives, args)
	}

	root, patterns := args[0], args[1:]
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, noop, err
	}
	if !info.IsDir() {
		return batch.DirSource{Root: filepath.Dir(root)}, []string{filepath.Base(root)}, noop, nil
	}

	var names []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchAny(patterns, rel) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, nil, noop, err
	}
	return batch.DirSource{Root: root}, filterModels(names), noop, nil
}

func isArchive(arg string) bool {
	return strings.EqualFold(filepath.Ext(arg), ".grf")
}

func openArchives(paths, patterns []string) (batch.Source, []string, func(), error) {
	m := assets.NewManager()
	for _, p := range paths {
		if err := m.AddArchive(p); err != nil {
			m.Close()
			return nil, nil, func() {}, err
		}
		logger.Debug("archive opened", zap.String("path", p))
	}

	var names []string
	if len(patterns) == 0 {
		names = m.List()
	}
	for _, p := range patterns {
		matched, err := m.Glob(p)
		if err != nil {
			m.Close()
			return nil, nil, func() {}, fmt.Errorf("pattern %q: %w", p, err)
		}
		names = append(names, matched...)
	}
	return m, filterModels(names), func() { m.Close() }, nil
}

func matchAny(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

func filterModels(names []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range names {
		if strings.EqualFold(path.Ext(n), ".rsm") && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: lodgen info <file.plod|file.rsm>")
		os.Exit(1)
	}
	file := args[0]

	if strings.EqualFold(filepath.Ext(file), ".rsm") {
		infoModel(file)
		return
	}

	st, info, err := lodfile.ReadFile(file)
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("File:        %s\n", file)
	fmt.Printf("Version:     %d\n", info.Version)
	fmt.Printf("Compression: %s (%d -> %d bytes)\n", info.Compression, info.PayloadSize, info.StoredSize)
	fmt.Printf("Checksum:    %016x\n", info.Checksum)
	fmt.Printf("Style:       %s\n", st.Style)
	fmt.Printf("Points:      %d (min %d)\n", st.TrueVertexCount, st.MinVertices)
	fmt.Printf("Wedges:      %d\n", len(st.Wedges))
	fmt.Printf("Faces:       %d (%d degenerate dropped)\n", len(st.Faces), st.Dropped)
	fmt.Println()
	fmt.Println("Materials:")
	for i, m := range st.Materials {
		var flags []string
		if m.TwoSided {
			flags = append(flags, "two-sided")
		}
		if m.Translucent {
			flags = append(flags, "translucent")
		}
		fmt.Printf("  %-3d %-32s %s\n", i, m.Name, strings.Join(flags, ","))
	}
	fmt.Println()
	fmt.Println("Levels:")
	for _, keep := range []float64{1, 0.75, 0.5, 0.25, 0.1} {
		budget := lod.ResolveBudget(st.TrueVertexCount, st.MinVertices, 1-keep, 0)
		fmt.Printf("  %3.0f%%  %6d points  %6d faces\n", keep*100, budget, len(st.FacesForBudget(budget)))
	}
}

func infoModel(file string) {
	model, err := formats.ParseRSMFile(file)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Model:     %s\n", file)
	fmt.Printf("Version:   %s\n", model.Version)
	fmt.Printf("Shading:   %s\n", model.Shading)
	fmt.Printf("Alpha:     %.2f\n", model.Alpha)
	fmt.Printf("Nodes:     %d (root %q)\n", len(model.Nodes), model.RootNode)
	fmt.Printf("Vertices:  %d\n", model.GetTotalVertexCount())
	fmt.Printf("Faces:     %d\n", model.GetTotalFaceCount())
	fmt.Printf("Animated:  %v\n", model.HasAnimation())
	fmt.Println()
	fmt.Println("Textures:")
	for i, tex := range model.Textures {
		fmt.Printf("  %-3d %s\n", i, tex)
	}
}

func cmdExport(args []string) {
	fset := flag.NewFlagSet("export", flag.ExitOnError)
	budget := fset.Int("budget", 0, "Vertex budget (overrides -reduction)")
	reduction := fset.Float64("reduction", 0.5, "Fraction of vertices to remove (0..1)")
	name := fset.String("name", "", "Mesh name (default: output file name)")
	fset.Parse(args)

	if fset.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: lodgen export [options] <file.plod> <out.glb>")
		os.Exit(1)
	}
	in, out := fset.Arg(0), fset.Arg(1)

	st, _, err := lodfile.ReadFile(in)
	if err != nil {
		fatalf("%v", err)
	}

	n := lod.ResolveBudget(st.TrueVertexCount, st.MinVertices, *reduction, *budget)
	mesh := st.Level(n)

	if *name == "" {
		*name = strings.TrimSuffix(filepath.Base(out), filepath.Ext(out))
	}
	if err := gltfexport.SaveFile(out, mesh, gltfexport.Options{Name: *name}); err != nil {
		if errors.Is(err, gltfexport.ErrEmptyMesh) {
			fatalf("budget %d leaves no faces", n)
		}
		fatalf("%v", err)
	}
	fmt.Printf("Wrote %s: %d points, %d faces (budget %d of %d)\n",
		out, len(mesh.Points), len(mesh.Faces), n, st.TrueVertexCount)
}

func cmdConfig(args []string) {
	cfg := config.Default()
	var err error
	target := filepath.Join(config.ConfigDir(), "lodgen.yaml")
	if len(args) > 0 {
		target = args[0]
		err = cfg.SaveTo(target)
	} else {
		err = cfg.Save()
	}
	if err != nil {
		fatalf("writing config: %v", err)
	}
	fmt.Printf("Wrote default config to %s\n", target)
}
