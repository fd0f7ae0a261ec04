package config

import (
	"flag"
	"strings"
)

// Flags holds command-line overrides. Zero values leave the config untouched.
type Flags struct {
	Config      string
	Debug       bool
	Style       string
	MinVertices int
	Reduction   float64
	Budget      int
	Workers     int
	OutDir      string
	Format      string
	Compression string
	Check       bool
}

// RegisterFlags binds the shared lodgen flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Style, "style", "", "Comma-separated cost style flags (e.g. square_length,strict_seams)")
	fs.IntVar(&f.MinVertices, "min-vertices", -1, "Minimum vertex count for exported levels")
	fs.Float64Var(&f.Reduction, "reduction", -1, "Fraction of vertices to remove (0..1)")
	fs.IntVar(&f.Budget, "budget", 0, "Explicit vertex budget (overrides -reduction)")
	fs.IntVar(&f.Workers, "workers", -1, "Number of parallel workers (0 = CPU count)")
	fs.StringVar(&f.OutDir, "out", "", "Output directory")
	fs.StringVar(&f.Format, "format", "", "Output format: plod or glb")
	fs.StringVar(&f.Compression, "compression", "", "Container compression: none or zstd")
	fs.BoolVar(&f.Check, "check", false, "Validate mesh invariants after every collapse")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.Config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Style != "" {
		cfg.Simplify.Style = splitList(f.Style)
	}
	if f.MinVertices >= 0 {
		cfg.Simplify.MinVertices = f.MinVertices
	}
	if f.Reduction >= 0 {
		cfg.Simplify.Reduction = f.Reduction
	}
	if f.Budget > 0 {
		cfg.Simplify.Budget = f.Budget
	}
	if f.Workers >= 0 {
		cfg.Batch.Workers = f.Workers
	}
	if f.OutDir != "" {
		cfg.Output.Dir = f.OutDir
	}
	if f.Format != "" {
		cfg.Output.Format = strings.ToLower(f.Format)
	}
	if f.Compression != "" {
		cfg.Output.Compression = strings.ToLower(f.Compression)
	}
	if f.Check {
		cfg.Simplify.CheckInvariants = true
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
