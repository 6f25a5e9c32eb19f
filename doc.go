// Package binlayout implements typed objects: values with a fixed binary
// layout, stored in shared byte buffers and manipulated through typed views.
//
// # Architecture Overview
//
// The module consists of several layers:
//
//   - Types: scalar, reference, vector, struct and array descriptors with
//     C-like sizes, alignments and field offsets
//   - Views: typed handles over a byte range of a buffer that can be
//     detached at any moment; every access re-checks attachment and bounds
//   - Load/store: conversion between Go values and slot encodings
//   - Operators: build, map, reduce, filter and scatter over array views at
//     any depth of nesting
//   - Runtime: the same operators split across worker goroutines, each
//     writing only its own region of the output
//
// # Basic Usage
//
//	point, _ := core.NewStruct(
//	    core.FieldSpec{Name: "x", Type: core.Float32Type},
//	    core.FieldSpec{Name: "y", Type: core.Float32Type},
//	)
//	line, _ := core.ArrayOf(point, 2)
//	v, _ := core.NewFrom(line, []any{
//	    map[string]any{"x": 0, "y": 0},
//	    map[string]any{"x": 3, "y": 4},
//	})
//
//	pair, _ := core.ArrayOf(core.Float64Type, 2)
//	engine := runtime.NewEngine(nil)
//	xs, err := engine.From(ctx, pair, v, 1,
//	    func(elem any, _ []int, _, _ *core.View) (any, error) {
//	        x, _ := elem.(*core.View).Field("x")
//	        return x, nil
//	    })
//
// # Package Structure
//
//   - core: descriptors, buffers, views, load/store, iteration spaces,
//     type expressions, snapshots
//   - kernels: sequential collection operators and named element functions
//   - pipeline: lazy operator chains with sequential terminals
//   - runtime: parallel engine, target-region arena, engine options
//   - schema: named types loaded from YAML, layout reports
//   - cmd: command-line tools (tobj, tobjc, tobjperf)
package binlayout
