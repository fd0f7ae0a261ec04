// Package batch runs LOD builds over many models with a worker pool.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job identifies one model to process.
type Job struct {
	Index int
	Name  string // source path, relative to the Source
}

// Result holds the outcome of processing one model.
type Result struct {
	Name     string
	Output   string
	Points   int // source vertex count
	Faces    int // full-detail face count
	Budget   int // vertex budget used for exported levels
	Kept     int // faces visible at Budget
	Dropped  int // degenerate source faces
	Duration time.Duration
	Err      error
}

// Success reports whether the job finished without error.
func (r Result) Success() bool {
	return r.Err == nil
}

// Func processes one job. It should return promptly once ctx is done.
type Func func(ctx context.Context, job Job) Result

// Options controls a batch run.
type Options struct {
	Workers  int           // <= 0 means one per CPU
	Progress time.Duration // interval between progress logs; 0 disables them
	Logger   *zap.Logger
}

// Run processes every name with fn on a worker pool. Results are returned
// in input order. Jobs not started before ctx is done get ctx.Err().
func Run(ctx context.Context, names []string, fn Func, opts Options) []Result {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, max(len(names), 1))

	total := len(names)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	var reporter sync.WaitGroup
	if opts.Progress > 0 {
		reporter.Add(1)
		go func() {
			defer reporter.Done()
			ticker := time.NewTicker(opts.Progress)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						rate := float64(p) / time.Since(start).Seconds()
						log.Info("progress",
							zap.Int64("done", p),
							zap.Int("total", total),
							zap.Float64("models_per_sec", rate))
					}
				}
			}
		}()
	}

	// Worker pool
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				job := Job{Index: idx, Name: names[idx]}
				if err := ctx.Err(); err != nil {
					results[idx] = Result{Name: job.Name, Err: err}
				} else {
					results[idx] = runJob(ctx, fn, job, log)
				}
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range names {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(done)
	reporter.Wait()

	log.Debug("batch finished",
		zap.Int("total", total),
		zap.Int("workers", workers),
		zap.Duration("elapsed", time.Since(start)))
	return results
}

// runJob times fn and converts a panic into a failed Result.
func runJob(ctx context.Context, fn Func, job Job, log *zap.Logger) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", zap.String("model", job.Name), zap.Any("panic", r))
			res = Result{Name: job.Name, Err: &PanicError{Value: r}}
		}
		res.Duration = time.Since(start)
	}()
	res = fn(ctx, job)
	if res.Name == "" {
		res.Name = job.Name
	}
	return res
}

// PanicError wraps a value recovered from a panicking job.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Summary aggregates a batch run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Points    int
	Faces     int
	Kept      int
	Elapsed   time.Duration // sum of job durations
}

// Summarize totals the results of a run.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		s.Elapsed += r.Duration
		if !r.Success() {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.Points += r.Points
		s.Faces += r.Faces
		s.Kept += r.Kept
	}
	return s
}
