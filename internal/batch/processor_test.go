package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunPreservesOrder(t *testing.T) {
	names := make([]string, 50)
	for i := range names {
		names[i] = fmt.Sprintf("model%02d.rsm", i)
	}

	fn := func(ctx context.Context, job Job) Result {
		if job.Index%7 == 0 {
			time.Sleep(time.Millisecond)
		}
		return Result{Points: job.Index}
	}

	results := Run(context.Background(), names, fn, Options{Workers: 4})
	if len(results) != len(names) {
		t.Fatalf("got %d results, want %d", len(results), len(names))
	}
	for i, r := range results {
		if r.Name != names[i] || r.Points != i {
			t.Errorf("result %d = %+v", i, r)
		}
		if !r.Success() {
			t.Errorf("result %d failed: %v", i, r.Err)
		}
	}
}

func TestRunWorkerLimit(t *testing.T) {
	var active, peak atomic.Int32
	fn := func(ctx context.Context, job Job) Result {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
		return Result{}
	}

	names := make([]string, 20)
	Run(context.Background(), names, fn, Options{Workers: 3})
	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency %d, want <= 3", p)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	fn := func(ctx context.Context, job Job) Result {
		calls.Add(1)
		return Result{}
	}

	results := Run(ctx, []string{"a", "b", "c"}, fn, Options{Workers: 2})
	if calls.Load() != 0 {
		t.Errorf("fn called %d times after cancellation", calls.Load())
	}
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", r.Name, r.Err)
		}
	}
}

func TestRunRecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	fn := func(ctx context.Context, job Job) Result {
		if job.Name == "bad" {
			panic("broken mesh")
		}
		return Result{Points: 1}
	}

	results := Run(context.Background(), []string{"good", "bad"}, fn, Options{Workers: 1, Logger: zap.New(core)})

	if !results[0].Success() {
		t.Errorf("good job failed: %v", results[0].Err)
	}
	var perr *PanicError
	if !errors.As(results[1].Err, &perr) {
		t.Fatalf("expected PanicError, got %v", results[1].Err)
	}
	if perr.Error() != "panic: broken mesh" {
		t.Errorf("panic message = %q", perr.Error())
	}
	if results[1].Name != "bad" {
		t.Errorf("panicked result name = %q", results[1].Name)
	}
	if logs.FilterMessage("job panicked").Len() != 1 {
		t.Errorf("expected one panic log, got %d", logs.FilterMessage("job panicked").Len())
	}
}

func TestRunProgress(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	fn := func(ctx context.Context, job Job) Result {
		time.Sleep(20 * time.Millisecond)
		return Result{}
	}

	Run(context.Background(), make([]string, 6), fn, Options{
		Workers:  1,
		Progress: 10 * time.Millisecond,
		Logger:   zap.New(core),
	})

	if logs.FilterMessage("progress").Len() == 0 {
		t.Error("expected at least one progress log")
	}
}

func TestRunEmpty(t *testing.T) {
	results := Run(context.Background(), nil, func(context.Context, Job) Result {
		t.Error("fn should not be called")
		return Result{}
	}, Options{})
	if len(results) != 0 {
		t.Errorf("got %d results for no jobs", len(results))
	}
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Points: 10, Faces: 16, Kept: 8, Duration: time.Second},
		{Points: 4, Faces: 4, Kept: 2, Duration: time.Second},
		{Points: 99, Err: errors.New("bad"), Duration: time.Second},
	}

	s := Summarize(results)
	want := Summary{Total: 3, Succeeded: 2, Failed: 1, Points: 14, Faces: 20, Kept: 10, Elapsed: 3 * time.Second}
	if s != want {
		t.Errorf("Summarize() = %+v, want %+v", s, want)
	}
}
