// Package runtime runs the collection operators in parallel.
//
// An Engine splits an operator's iteration space into one contiguous range
// per worker and runs the operator's range runner on each range in its own
// goroutine. Workers share nothing but the output buffer, which an Arena
// carves into per-worker target regions: each worker sees the output
// through a window that rejects stores outside its region, and sees the
// input through a read-only view.
//
// Merges are ordered by loop index, never by completion order, so results
// do not depend on the worker count:
//   - build and map need no merge
//   - filter and pipeline collection compact per-worker runs in order
//   - reduce folds the per-worker partials left to right
//   - scatter fills defaults in parallel, then scatters on one goroutine
//
// Operators fall back to the sequential kernels when parallel execution
// could change their meaning (see EngineOptions) or when the element type
// can hold references.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sbl8/binlayout/core"
	"github.com/sbl8/binlayout/kernels"
	"github.com/sbl8/binlayout/pipeline"
)

// EngineOptions configures engine behavior
type EngineOptions struct {
	Workers int
	// ForceSequential runs every operator on the calling goroutine.
	ForceSequential bool
	// SideEffects declares that callbacks touch state outside their
	// arguments, which rules out running them concurrently.
	SideEffects bool
	EnableStats bool
	// Logger receives fallback and compaction notes. Nil discards them.
	Logger *log.Logger
}

// ExecutionStats tracks engine activity
type ExecutionStats struct {
	TotalExecutions     int64
	ParallelExecutions  int64
	SequentialFallbacks int64
	Compactions         int64
	Elements            int64
	AverageLatency      time.Duration
}

// DefaultEngineOptions provides sensible runtime defaults
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Workers:     runtime.NumCPU(),
		EnableStats: false,
	}
}

// Engine dispatches operators over a fixed number of workers.
type Engine struct {
	opts    EngineOptions
	workers int
	logger  *log.Logger
	stats   ExecutionStats
	mu      sync.RWMutex
}

// NewEngine creates an engine. Nil options or a non-positive worker count
// take the defaults.
func NewEngine(opts *EngineOptions) *Engine {
	engineOpts := DefaultEngineOptions()
	if opts != nil {
		engineOpts = *opts
		if opts.Workers <= 0 {
			engineOpts.Workers = DefaultEngineOptions().Workers
		}
	}
	logger := engineOpts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		opts:    engineOpts,
		workers: engineOpts.Workers,
		logger:  logger,
	}
}

// Workers returns the configured worker count.
func (e *Engine) Workers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.workers
}

// SetWorkers configures the number of worker goroutines for parallel execution
func (e *Engine) SetWorkers(n int) {
	if n > 0 {
		e.mu.Lock()
		e.workers = n
		e.mu.Unlock()
	}
}

// Stats returns a copy of the execution statistics.
func (e *Engine) Stats() ExecutionStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// workersFor picks the worker count for one operation over grain, logging
// why it falls back to one.
func (e *Engine) workersFor(op string, grain *core.Descr) int {
	k := e.Workers()
	var reason string
	switch {
	case e.opts.ForceSequential:
		reason = "forced"
	case e.opts.SideEffects:
		reason = "callbacks have side effects"
	case k <= 1:
		reason = "one worker"
	case grain.Opaque():
		reason = fmt.Sprintf("%s can hold references", grain)
	}
	if reason == "" {
		return k
	}
	e.logger.Printf("%s: sequential: %s", op, reason)
	return 1
}

// forkJoin runs fn for every non-empty range on its own goroutine. The
// first error cancels the rest and is returned; work already stored stays.
func (e *Engine) forkJoin(ctx context.Context, ranges []Range, fn func(k int, r Range) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for k, r := range ranges {
		k, r := k, r
		if r.Len() == 0 {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(k, r)
		})
	}
	return g.Wait()
}

// updateExecutionStats records one finished operation.
func (e *Engine) updateExecutionStats(start time.Time, workers, elements int, compacted bool) {
	if !e.opts.EnableStats {
		return
	}
	duration := time.Since(start)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.TotalExecutions++
	if workers > 1 {
		e.stats.ParallelExecutions++
	} else {
		e.stats.SequentialFallbacks++
	}
	if compacted {
		e.stats.Compactions++
	}
	e.stats.Elements += int64(elements)

	if e.stats.TotalExecutions == 1 {
		e.stats.AverageLatency = duration
	} else {
		oldTotal := e.stats.TotalExecutions - 1
		e.stats.AverageLatency = time.Duration((int64(e.stats.AverageLatency)*oldTotal + int64(duration)) / e.stats.TotalExecutions)
	}
}

// Build is kernels.Build run across the engine's workers.
func (e *Engine) Build(ctx context.Context, d *core.Descr, depth int, fn kernels.BuildFunc) (*core.View, error) {
	if d != nil && d.Kind() == core.KindUnsizedArray {
		return nil, errors.Wrapf(core.ErrInvalidArgument, "%s needs a length", d)
	}
	return e.BuildUnsized(ctx, d, 0, depth, fn)
}

// BuildUnsized is kernels.BuildUnsized run across the engine's workers.
func (e *Engine) BuildUnsized(ctx context.Context, d *core.Descr, n, depth int, fn kernels.BuildFunc) (*core.View, error) {
	start := time.Now()
	p, err := kernels.NewBuildPlan(d, n, depth)
	if err != nil {
		return nil, err
	}
	grain := p.Space.Grain
	k := e.workersFor("build", grain)
	if k == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.Run(0, p.Space.Total, fn, false); err != nil {
			return nil, err
		}
	} else {
		ranges := Partition(p.Space.Total, k)
		arena, err := NewArena(p.Out, ranges, grain.Size())
		if err != nil {
			return nil, err
		}
		err = e.forkJoin(ctx, ranges, func(w int, r Range) error {
			wp := p
			wp.Out = arena.Window(w)
			return wp.Run(r.Start, r.End, fn, true)
		})
		if err != nil {
			return nil, err
		}
	}
	e.updateExecutionStats(start, k, p.Space.Total, false)
	return p.Out, nil
}

// From is kernels.From run across the engine's workers.
func (e *Engine) From(ctx context.Context, outType *core.Descr, in *core.View, depth int, fn kernels.MapFunc) (*core.View, error) {
	start := time.Now()
	p, err := kernels.NewMapPlan(outType, in, depth)
	if err != nil {
		return nil, err
	}
	k := e.workersFor("map", p.OutGrain)
	if k == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.Run(0, p.Space.Total, fn, false); err != nil {
			return nil, err
		}
	} else {
		ranges := Partition(p.Space.Total, k)
		arena, err := NewArena(p.Out, ranges, p.OutGrain.Size())
		if err != nil {
			return nil, err
		}
		readOnly := p.In.Restrict(0, 0)
		err = e.forkJoin(ctx, ranges, func(w int, r Range) error {
			wp := p
			wp.In = readOnly
			wp.Out = arena.Window(w)
			return wp.Run(r.Start, r.End, fn, true)
		})
		if err != nil {
			return nil, err
		}
	}
	e.updateExecutionStats(start, k, p.Space.Total, false)
	return p.Out, nil
}

// Map is From with the input's own type as the output type.
func (e *Engine) Map(ctx context.Context, in *core.View, depth int, fn kernels.MapFunc) (*core.View, error) {
	if in == nil {
		return nil, errors.Wrap(core.ErrInvalidArgument, "nil view")
	}
	return e.From(ctx, in.Descr(), in, depth, fn)
}

// Filter is kernels.Filter run across the engine's workers. Each worker
// marks its own range; the kept runs are then copied into the result in
// range order.
func (e *Engine) Filter(ctx context.Context, in *core.View, pred kernels.Predicate) (*core.View, error) {
	start := time.Now()
	p, err := kernels.NewFilterPlan(in)
	if err != nil {
		return nil, err
	}
	k := e.workersFor("filter", p.Grain)
	if k == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := kernels.Filter(in, pred)
		if err != nil {
			return nil, err
		}
		e.updateExecutionStats(start, k, p.Len, out.Len() < p.Len)
		return out, nil
	}

	ranges := Partition(p.Len, k)
	keeps := make([]*bitset.BitSet, len(ranges))
	counts := make([]int, len(ranges))
	wp := p
	wp.In = p.In.Restrict(0, 0)
	err = e.forkJoin(ctx, ranges, func(w int, r Range) error {
		keeps[w] = bitset.New(uint(r.Len()))
		n, err := wp.Mark(r.Start, r.End, pred, keeps[w])
		counts[w] = n
		return err
	})
	if err != nil {
		return nil, err
	}

	runs, total := runsOf(counts)
	out, err := core.NewArray(p.Grain, total)
	if err != nil {
		return nil, err
	}
	arena, err := NewArena(out, runs, p.Grain.Size())
	if err != nil {
		return nil, err
	}
	err = e.forkJoin(ctx, runs, func(w int, run Range) error {
		r := ranges[w]
		_, err := wp.Compact(r.Start, r.End, keeps[w], arena.Window(w), run.Start)
		return err
	})
	if err != nil {
		return nil, err
	}
	if total < p.Len {
		e.logger.Printf("filter: compacted %d of %d elements from %d workers", total, p.Len, k)
	}
	e.updateExecutionStats(start, k, p.Len, total < p.Len)
	return out, nil
}

// runsOf lays per-worker counts end to end.
func runsOf(counts []int) ([]Range, int) {
	runs := make([]Range, len(counts))
	at := 0
	for w, n := range counts {
		runs[w] = Range{Start: at, End: at + n}
		at += n
	}
	return runs, at
}

// Reduce is kernels.Reduce run across the engine's workers. fn must be
// associative: per-worker partials are folded left to right in range
// order.
func (e *Engine) Reduce(ctx context.Context, in *core.View, fn kernels.ReduceFunc) (any, error) {
	acc, err := e.reduce(ctx, in, nil, false, fn)
	if err != nil {
		return nil, err
	}
	if !acc.Ok {
		return nil, errors.Wrapf(core.ErrEmptyReduce, "%s", in.Descr())
	}
	return acc.Acc, nil
}

// Fold is Reduce starting from initial, which is folded in exactly once
// before every partial.
func (e *Engine) Fold(ctx context.Context, in *core.View, initial any, fn kernels.ReduceFunc) (any, error) {
	acc, err := e.reduce(ctx, in, initial, true, fn)
	if err != nil {
		return nil, err
	}
	return acc.Acc, nil
}

func (e *Engine) reduce(ctx context.Context, in *core.View, initial any, seeded bool, fn kernels.ReduceFunc) (kernels.Partial, error) {
	start := time.Now()
	p, err := kernels.NewReducePlan(in)
	if err != nil {
		return kernels.Partial{}, err
	}
	var acc kernels.Partial
	if seeded {
		if acc, err = p.Seed(initial); err != nil {
			return kernels.Partial{}, err
		}
	}
	k := e.workersFor("reduce", p.Grain)
	if k == 1 {
		if err := ctx.Err(); err != nil {
			return kernels.Partial{}, err
		}
		if acc, err = p.Run(0, p.Len, acc, fn); err != nil {
			return kernels.Partial{}, err
		}
		e.updateExecutionStats(start, k, p.Len, false)
		return acc, nil
	}

	ranges := Partition(p.Len, k)
	partials := make([]kernels.Partial, len(ranges))
	wp := p
	wp.In = p.In.Restrict(0, 0)
	err = e.forkJoin(ctx, ranges, func(w int, r Range) error {
		part, err := wp.Run(r.Start, r.End, kernels.Partial{}, fn)
		partials[w] = part
		return err
	})
	if err != nil {
		return kernels.Partial{}, err
	}
	for _, part := range partials {
		if !part.Ok {
			continue
		}
		if !acc.Ok {
			acc = part
			continue
		}
		if acc.Acc, err = p.Step(acc.Acc, part.Acc, fn); err != nil {
			return kernels.Partial{}, err
		}
	}
	e.updateExecutionStats(start, k, p.Len, false)
	return acc, nil
}

// Scatter is kernels.Scatter with the default fill spread across the
// engine's workers. Scattering itself stays on one goroutine so that
// conflicts are resolved in index order.
func (e *Engine) Scatter(ctx context.Context, in *core.View, outType *core.Descr, indices []int, defaultValue any, conflict kernels.ConflictFunc) (*core.View, error) {
	start := time.Now()
	p, err := kernels.NewScatterPlan(in, outType, indices, defaultValue)
	if err != nil {
		return nil, err
	}
	n := p.Out.Len()
	k := e.workersFor("scatter", p.Elem)
	if k == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.FillRange(p.Out, 0, n); err != nil {
			return nil, err
		}
	} else if p.Fill {
		ranges := Partition(n, k)
		arena, err := NewArena(p.Out, ranges, p.Elem.Size())
		if err != nil {
			return nil, err
		}
		err = e.forkJoin(ctx, ranges, func(w int, r Range) error {
			return p.FillRange(arena.Window(w), r.Start, r.End)
		})
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.Scatter(conflict); err != nil {
		return nil, err
	}
	e.updateExecutionStats(start, k, n, false)
	return p.Out, nil
}

// Collect is pipeline.Collect run across the engine's workers. Every worker
// drains its slice into its own run of a scratch array; when filters drop
// positions the runs are compacted in order.
func (e *Engine) Collect(ctx context.Context, op pipeline.Op) (*core.View, error) {
	start := time.Now()
	grain := op.GrainType()
	n := core.ElementCount(op.Shape())
	k := e.workersFor("collect", grain)
	if k == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := pipeline.Collect(op)
		if err != nil {
			return nil, err
		}
		e.updateExecutionStats(start, k, n, !op.Exact())
		return out, nil
	}

	scratch, err := pipeline.NewScratch(op)
	if err != nil {
		return nil, err
	}
	ranges := Partition(n, k)
	arena, err := NewArena(scratch, ranges, grain.Size())
	if err != nil {
		return nil, err
	}
	counts := make([]int, len(ranges))
	err = e.forkJoin(ctx, ranges, func(w int, r Range) error {
		st, err := op.MakeSliceState(r.Start, r.End)
		if err != nil {
			return err
		}
		counts[w], err = pipeline.CollectRange(st, r.Len(), arena.Window(w), r.Start)
		return err
	})
	if err != nil {
		return nil, err
	}

	runs, total := runsOf(counts)
	out := scratch
	if total < n {
		if out, err = core.NewArray(grain, total); err != nil {
			return nil, err
		}
		size := grain.Size()
		for w, run := range runs {
			if err := core.CopyBytes(out, run.Start*size, scratch, ranges[w].Start*size, run.Len()*size); err != nil {
				return nil, err
			}
		}
		e.logger.Printf("collect: compacted %d of %d elements from %d workers", total, n, k)
	}
	e.updateExecutionStats(start, k, n, total < n)
	return pipeline.Shaped(op, out)
}

// ReducePipeline is pipeline.Reduce run across the engine's workers. fn
// must be associative.
func (e *Engine) ReducePipeline(ctx context.Context, op pipeline.Op, fn pipeline.ReduceFunc) (any, error) {
	start := time.Now()
	grain := op.GrainType()
	n := core.ElementCount(op.Shape())
	k := e.workersFor("reduce", grain)
	if k == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		acc, err := pipeline.Reduce(op, fn)
		if err != nil {
			return nil, err
		}
		e.updateExecutionStats(start, k, n, false)
		return acc, nil
	}

	ranges := Partition(n, k)
	partials := make([]kernels.Partial, len(ranges))
	err := e.forkJoin(ctx, ranges, func(w int, r Range) error {
		st, err := op.MakeSliceState(r.Start, r.End)
		if err != nil {
			return err
		}
		acc, ok, err := pipeline.ReduceRange(grain, st, r.Len(), fn)
		partials[w] = kernels.Partial{Acc: acc, Ok: ok}
		return err
	})
	if err != nil {
		return nil, err
	}

	var acc kernels.Partial
	for _, part := range partials {
		if !part.Ok {
			continue
		}
		if !acc.Ok {
			acc = part
			continue
		}
		if acc.Acc, err = pipeline.Step(grain, acc.Acc, part.Acc, fn); err != nil {
			return nil, err
		}
	}
	if !acc.Ok {
		return nil, errors.Wrap(core.ErrEmptyReduce, "pipeline")
	}
	e.updateExecutionStats(start, k, n, false)
	return acc.Acc, nil
}
