package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sbl8/binlayout/core"
	"github.com/sbl8/binlayout/kernels"
	binruntime "github.com/sbl8/binlayout/runtime"
)

var (
	testType = flag.String("test", "all", "Test type: all, build, map, reduce, filter, scatter")
	size     = flag.Int("size", 1<<16, "Test data size")
	iter     = flag.Int("iter", 20, "Number of iterations")
	elemType = flag.String("type", "float32", "Element type")
	workers  = flag.String("workers", "", "Comma-separated worker counts (default 1,2,4,...,NumCPU)")
	verbose  = flag.Bool("verbose", false, "Verbose output")
)

// operation runs one operator once on engine.
type operation func(ctx context.Context, engine *binruntime.Engine, in *core.View) error

func main() {
	flag.Parse()

	fmt.Printf("Typed Object Performance Analysis Tool\n")
	fmt.Printf("======================================\n")
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("CPUs: %d\n", runtime.NumCPU())
	fmt.Printf("Test Size: %d elements of %s\n", *size, *elemType)
	fmt.Printf("Iterations: %d\n", *iter)
	fmt.Printf("\n")

	elem, err := core.ParseType(*elemType, nil)
	if err != nil {
		fmt.Printf("Bad element type: %v\n", err)
		os.Exit(1)
	}
	counts, err := workerCounts(*workers)
	if err != nil {
		fmt.Printf("Bad worker list: %v\n", err)
		os.Exit(1)
	}
	in, err := input(elem, *size)
	if err != nil {
		fmt.Printf("Cannot build input: %v\n", err)
		os.Exit(1)
	}

	ops := operations(elem, *size)
	names := []string{"build", "map", "reduce", "filter", "scatter"}
	if *testType != "all" {
		if _, ok := ops[*testType]; !ok {
			fmt.Printf("Unknown test type: %s\n", *testType)
			os.Exit(1)
		}
		names = []string{*testType}
	}
	for _, name := range names {
		runTest(name, ops[name], in, counts)
	}
}

func operations(elem *core.Descr, n int) map[string]operation {
	mapFn, _ := kernels.LookupMap("sqrplusx")
	sum, _ := kernels.LookupReducer("sum")
	positive, _ := kernels.LookupPredicate("positive")
	return map[string]operation{
		"build": func(ctx context.Context, e *binruntime.Engine, _ *core.View) error {
			d, err := core.UnsizedArrayOf(elem)
			if err != nil {
				return err
			}
			_, err = e.BuildUnsized(ctx, d, n, 1, func(indices []int, _ *core.View) (any, error) {
				return indices[0], nil
			})
			return err
		},
		"map": func(ctx context.Context, e *binruntime.Engine, in *core.View) error {
			_, err := e.Map(ctx, in, 1, mapFn)
			return err
		},
		"reduce": func(ctx context.Context, e *binruntime.Engine, in *core.View) error {
			_, err := e.Reduce(ctx, in, sum)
			return err
		},
		"filter": func(ctx context.Context, e *binruntime.Engine, in *core.View) error {
			_, err := e.Filter(ctx, in, positive)
			return err
		},
		"scatter": func(ctx context.Context, e *binruntime.Engine, in *core.View) error {
			indices := make([]int, in.Len())
			for i := range indices {
				indices[i] = len(indices) - 1 - i
			}
			d, err := core.ArrayOf(elem, max(in.Len(), 1))
			if err != nil {
				return err
			}
			_, err = e.Scatter(ctx, in, d, indices, -1, nil)
			return err
		},
	}
}

func runTest(name string, op operation, in *core.View, counts []int) {
	fmt.Printf("%s\n%s\n", strings.ToUpper(name[:1])+name[1:], strings.Repeat("-", len(name)))

	var base time.Duration
	for _, k := range counts {
		engine := binruntime.NewEngine(&binruntime.EngineOptions{Workers: k, EnableStats: true})
		ctx := context.Background()

		start := time.Now()
		for i := 0; i < *iter; i++ {
			if err := op(ctx, engine, in); err != nil {
				fmt.Printf("  %d workers: %v\n", k, err)
				return
			}
		}
		duration := time.Since(start)
		if base == 0 {
			base = duration
		}

		elementsPerSecond := float64(*size*(*iter)) / duration.Seconds()
		fmt.Printf("  %2d workers: %12v (%8.2f Melem/s, %.2fx)\n",
			k, duration, elementsPerSecond/1e6, float64(base)/float64(duration))
		if *verbose {
			s := engine.Stats()
			fmt.Printf("              parallel %d, sequential %d, compactions %d, avg %v\n",
				s.ParallelExecutions, s.SequentialFallbacks, s.Compactions, s.AverageLatency)
		}
	}
	fmt.Printf("\n")
}

func input(elem *core.Descr, n int) (*core.View, error) {
	d, err := core.UnsizedArrayOf(elem)
	if err != nil {
		return nil, err
	}
	return kernels.BuildUnsized(d, n, 1, func(indices []int, _ *core.View) (any, error) {
		return indices[0]%101 - 50, nil
	})
}

func workerCounts(list string) ([]int, error) {
	if list == "" {
		var counts []int
		for k := 1; k < runtime.NumCPU(); k *= 2 {
			counts = append(counts, k)
		}
		return append(counts, runtime.NumCPU()), nil
	}
	var counts []int
	for _, s := range strings.Split(list, ",") {
		k, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || k < 1 {
			return nil, fmt.Errorf("worker count %q", s)
		}
		counts = append(counts, k)
	}
	return counts, nil
}
