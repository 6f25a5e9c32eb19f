package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sbl8/binlayout/core"
	"github.com/sbl8/binlayout/kernels"
	"github.com/sbl8/binlayout/runtime"
	"github.com/sbl8/binlayout/schema"
)

// maxPrinted is the largest result printed in full.
const maxPrinted = 32

func cmdRun(out *printer, types *schema.Schema, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var (
		op         = fs.String("op", "map", "Operator: build, map, reduce, filter, scatter")
		typ        = fs.String("type", "float32", "Element type")
		n          = fs.Int("n", 16, "Number of elements")
		fn         = fs.String("fn", "", "Named function (default depends on -op)")
		in         = fs.String("in", "", "Read the input from a snapshot instead of generating it")
		outPath    = fs.String("out", "", "Write the result as a snapshot")
		workers    = fs.Int("workers", 0, "Number of worker goroutines (0: from config or CPUs)")
		config     = fs.String("config", "", "YAML engine options")
		sequential = fs.Bool("sequential", false, "Run on one goroutine")
		verbose    = fs.Bool("verbose", false, "Log engine decisions and statistics")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := runtime.DefaultEngineOptions()
	if *config != "" {
		var err error
		if opts, err = runtime.LoadEngineOptions(*config); err != nil {
			return err
		}
	}
	if *workers > 0 {
		opts.Workers = *workers
	}
	opts.ForceSequential = opts.ForceSequential || *sequential
	if *verbose {
		opts.EnableStats = true
		opts.Logger = log.New(os.Stderr, "engine: ", 0)
	}
	engine := runtime.NewEngine(&opts)
	ctx := context.Background()

	elem, err := types.Resolve(*typ)
	if err != nil {
		return err
	}
	var input *core.View
	if *in != "" {
		if input, err = readSnapshot(*in, types); err != nil {
			return err
		}
	} else if *op != "build" {
		if input, err = generate(ctx, engine, elem, *n); err != nil {
			return err
		}
	}

	var result any
	switch *op {
	case "build":
		result, err = generate(ctx, engine, elem, *n)
	case "map":
		var f kernels.MapFunc
		if f, err = kernels.LookupMap(orDefault(*fn, "sqrplusx")); err == nil {
			result, err = engine.Map(ctx, input, 1, f)
		}
	case "reduce":
		var f kernels.ReduceFunc
		if f, err = kernels.LookupReducer(orDefault(*fn, "sum")); err == nil {
			result, err = engine.Reduce(ctx, input, f)
		}
	case "filter":
		var f kernels.Predicate
		if f, err = kernels.LookupPredicate(orDefault(*fn, "positive")); err == nil {
			result, err = engine.Filter(ctx, input, f)
		}
	case "scatter":
		result, err = reverse(ctx, engine, input)
	default:
		return fmt.Errorf("unknown operator %q (functions: %s; reducers: %s; predicates: %s)", *op,
			strings.Join(kernels.Names(kernels.Catalog), ", "),
			strings.Join(kernels.Names(kernels.Reducers), ", "),
			strings.Join(kernels.Names(kernels.Predicates), ", "))
	}
	if err != nil {
		return err
	}

	printResult(out, result)
	if *verbose {
		s := engine.Stats()
		log.Printf("%d workers, %d elements in %v", engine.Workers(), s.Elements, s.AverageLatency)
	}
	if *outPath != "" {
		v, ok := result.(*core.View)
		if !ok {
			return fmt.Errorf("-out needs a collection result, got %s", core.Format(result))
		}
		return writeSnapshot(*outPath, v)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// generate builds elem[n] holding i - n/2 at position i.
func generate(ctx context.Context, engine *runtime.Engine, elem *core.Descr, n int) (*core.View, error) {
	d, err := core.UnsizedArrayOf(elem)
	if err != nil {
		return nil, err
	}
	return engine.BuildUnsized(ctx, d, n, 1, func(indices []int, _ *core.View) (any, error) {
		return indices[0] - n/2, nil
	})
}

// reverse scatters element i to slot n-1-i.
func reverse(ctx context.Context, engine *runtime.Engine, in *core.View) (*core.View, error) {
	n := in.Len()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = n - 1 - i
	}
	d, err := core.ArrayOf(in.Descr().Elem(), max(n, 1))
	if err != nil {
		return nil, err
	}
	return engine.Scatter(ctx, in, d, indices, nil, nil)
}

func printResult(out *printer, result any) {
	v, ok := result.(*core.View)
	if !ok || !v.Descr().IsArray() || v.Len() <= maxPrinted {
		fmt.Fprintln(out, core.Format(result))
		return
	}
	parts := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		x, err := v.Index(i)
		if err != nil {
			fmt.Fprintln(out, out.failure(err.Error()))
			return
		}
		parts = append(parts, core.Format(x))
	}
	fmt.Fprintf(out, "[%s, ...] %s of %d elements\n", strings.Join(parts, ", "), out.heading(v.Descr().String()), v.Len())
}

func readSnapshot(path string, types *schema.Schema) (*core.View, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return core.ReadSnapshot(f, types.Lookup)
}

func writeSnapshot(path string, v *core.View) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := core.WriteSnapshot(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
