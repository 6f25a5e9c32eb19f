// Package pipeline describes lazy collection computations as a chain of
// operators. A chain is only evaluated by a terminal, Collect or Reduce here
// or the parallel terminals of the runtime package, which ask each operator
// for a cursor over a slice of its flattened index space.
package pipeline

import (
	"github.com/pkg/errors"

	"github.com/sbl8/binlayout/core"
)

// Op is one stage of a pipeline.
type Op interface {
	// Shape is the n-dimensional index space the stage produces.
	Shape() []int
	// GrainType is the type of each produced element.
	GrainType() *core.Descr
	// Exact reports whether every position yields a value, i.e. no
	// upstream stage filters.
	Exact() bool
	// MakeSliceState returns a cursor over linear positions [start, end).
	MakeSliceState(start, end int) (SliceState, error)
}

// SliceState walks a slice of positions. Each call to Next consumes one
// position; keep is false when the position was filtered out.
type SliceState interface {
	Next() (val any, keep bool, err error)
}

// ElemFunc transforms one element.
type ElemFunc func(v any) (any, error)

// PredFunc decides whether an element is kept.
type PredFunc func(v any) (bool, error)

// IndexFunc computes the element at indices. indices is only valid during
// the call.
type IndexFunc func(indices []int) (any, error)

func checkSlice(op Op, start, end int) error {
	n := core.ElementCount(op.Shape())
	if start < 0 || end < start || end > n {
		return errors.Wrapf(core.ErrRange, "slice [%d, %d) outside %d positions", start, end, n)
	}
	return nil
}

// rangeOp yields lo, lo+1, ..., hi-1.
type rangeOp struct {
	lo, hi int
}

// Range produces the integers in [lo, hi) as int32 elements.
func Range(lo, hi int) (Op, error) {
	if hi < lo {
		return nil, errors.Wrapf(core.ErrInvalidArgument, "range [%d, %d) is reversed", lo, hi)
	}
	return rangeOp{lo: lo, hi: hi}, nil
}

func (r rangeOp) Shape() []int           { return []int{r.hi - r.lo} }
func (r rangeOp) GrainType() *core.Descr { return core.Int32Type }
func (r rangeOp) Exact() bool            { return true }

func (r rangeOp) MakeSliceState(start, end int) (SliceState, error) {
	if err := checkSlice(r, start, end); err != nil {
		return nil, err
	}
	return &rangeState{next: r.lo + start}, nil
}

type rangeState struct {
	next int
}

func (s *rangeState) Next() (any, bool, error) {
	v := float64(s.next)
	s.next++
	return v, true, nil
}

// shapeOp yields the index vector of every position.
type shapeOp struct {
	dims []int
}

// ShapeOf produces, for each position of dims in row-major order, a fresh
// []int of its indices.
func ShapeOf(dims ...int) (Op, error) {
	if len(dims) == 0 {
		return nil, errors.Wrap(core.ErrInvalidArgument, "shape has no dimensions")
	}
	for _, d := range dims {
		if d < 0 {
			return nil, errors.Wrapf(core.ErrInvalidArgument, "negative dimension in %v", dims)
		}
	}
	return shapeOp{dims: append([]int(nil), dims...)}, nil
}

func (s shapeOp) Shape() []int           { return s.dims }
func (s shapeOp) GrainType() *core.Descr { return core.AnyType }
func (s shapeOp) Exact() bool            { return true }

func (s shapeOp) MakeSliceState(start, end int) (SliceState, error) {
	if err := checkSlice(s, start, end); err != nil {
		return nil, err
	}
	st := &shapeState{dims: s.dims, indices: make([]int, len(s.dims))}
	core.Unflatten(start, s.dims, st.indices)
	return st, nil
}

type shapeState struct {
	dims    []int
	indices []int
}

func (s *shapeState) Next() (any, bool, error) {
	v := append([]int(nil), s.indices...)
	core.IncrementIndices(s.indices, s.dims)
	return v, true, nil
}

// comprehensionOp calls a function for every position of a shape.
type comprehensionOp struct {
	grain *core.Descr
	dims  []int
	fn    IndexFunc
}

// Comprehension produces fn(indices) for every position of shape.
func Comprehension(grain *core.Descr, shape []int, fn IndexFunc) (Op, error) {
	if grain == nil || !grain.IsSized() {
		return nil, errors.Wrapf(core.ErrInvalidArgument, "comprehension grain %s must be sized", grain)
	}
	sh, err := ShapeOf(shape...)
	if err != nil {
		return nil, err
	}
	return comprehensionOp{grain: grain, dims: sh.Shape(), fn: fn}, nil
}

func (c comprehensionOp) Shape() []int           { return c.dims }
func (c comprehensionOp) GrainType() *core.Descr { return c.grain }
func (c comprehensionOp) Exact() bool            { return true }

func (c comprehensionOp) MakeSliceState(start, end int) (SliceState, error) {
	if err := checkSlice(c, start, end); err != nil {
		return nil, err
	}
	st := &comprehensionState{dims: c.dims, fn: c.fn, indices: make([]int, len(c.dims))}
	core.Unflatten(start, c.dims, st.indices)
	return st, nil
}

type comprehensionState struct {
	dims    []int
	fn      IndexFunc
	indices []int
}

func (s *comprehensionState) Next() (any, bool, error) {
	v, err := s.fn(s.indices)
	core.IncrementIndices(s.indices, s.dims)
	return v, err == nil, err
}

// mapOp transforms the elements of its upstream stage.
type mapOp struct {
	prev  Op
	grain *core.Descr
	fn    ElemFunc
}

// MapTo transforms each element of prev with fn, producing grain elements.
func MapTo(prev Op, grain *core.Descr, fn ElemFunc) (Op, error) {
	if prev == nil {
		return nil, errors.Wrap(core.ErrInvalidArgument, "nil upstream stage")
	}
	if grain == nil || !grain.IsSized() {
		return nil, errors.Wrapf(core.ErrInvalidArgument, "map grain %s must be sized", grain)
	}
	return mapOp{prev: prev, grain: grain, fn: fn}, nil
}

// Map is MapTo keeping the upstream grain type.
func Map(prev Op, fn ElemFunc) (Op, error) {
	if prev == nil {
		return nil, errors.Wrap(core.ErrInvalidArgument, "nil upstream stage")
	}
	return MapTo(prev, prev.GrainType(), fn)
}

func (m mapOp) Shape() []int           { return m.prev.Shape() }
func (m mapOp) GrainType() *core.Descr { return m.grain }
func (m mapOp) Exact() bool            { return m.prev.Exact() }

func (m mapOp) MakeSliceState(start, end int) (SliceState, error) {
	prev, err := m.prev.MakeSliceState(start, end)
	if err != nil {
		return nil, err
	}
	return &mapState{prev: prev, fn: m.fn}, nil
}

type mapState struct {
	prev SliceState
	fn   ElemFunc
}

func (s *mapState) Next() (any, bool, error) {
	v, keep, err := s.prev.Next()
	if err != nil || !keep {
		return nil, false, err
	}
	v, err = s.fn(v)
	return v, err == nil, err
}

// filterOp drops elements of a one-dimensional upstream stage.
type filterOp struct {
	prev Op
	pred PredFunc
}

// Filter keeps the elements of prev for which pred reports true. Only
// one-dimensional stages can be filtered.
func Filter(prev Op, pred PredFunc) (Op, error) {
	if prev == nil {
		return nil, errors.Wrap(core.ErrInvalidArgument, "nil upstream stage")
	}
	if len(prev.Shape()) != 1 {
		return nil, errors.Wrapf(core.ErrInvalidArgument, "cannot filter %d-dimensional shape %v", len(prev.Shape()), prev.Shape())
	}
	return filterOp{prev: prev, pred: pred}, nil
}

func (f filterOp) Shape() []int           { return f.prev.Shape() }
func (f filterOp) GrainType() *core.Descr { return f.prev.GrainType() }
func (f filterOp) Exact() bool            { return false }

func (f filterOp) MakeSliceState(start, end int) (SliceState, error) {
	prev, err := f.prev.MakeSliceState(start, end)
	if err != nil {
		return nil, err
	}
	return &filterState{prev: prev, pred: f.pred}, nil
}

type filterState struct {
	prev SliceState
	pred PredFunc
}

func (s *filterState) Next() (any, bool, error) {
	v, keep, err := s.prev.Next()
	if err != nil || !keep {
		return nil, false, err
	}
	ok, err := s.pred(v)
	if err != nil || !ok {
		return nil, false, err
	}
	return v, true, nil
}

// viewOp yields the outer elements of an array view.
type viewOp struct {
	v     *core.View
	grain *core.Descr
}

// FromView produces the outer elements of an array view. Struct and array
// elements are produced as views into v.
func FromView(v *core.View) (Op, error) {
	if v == nil || !v.Descr().IsArray() {
		return nil, errors.Wrap(core.ErrInvalidArgument, "pipeline source must be an array view")
	}
	return viewOp{v: v, grain: v.Descr().Elem()}, nil
}

func (o viewOp) Shape() []int           { return []int{o.v.Len()} }
func (o viewOp) GrainType() *core.Descr { return o.grain }
func (o viewOp) Exact() bool            { return true }

func (o viewOp) MakeSliceState(start, end int) (SliceState, error) {
	if err := checkSlice(o, start, end); err != nil {
		return nil, err
	}
	return &viewState{op: o, next: start}, nil
}

type viewState struct {
	op   viewOp
	next int
}

func (s *viewState) Next() (any, bool, error) {
	v, err := core.Get(s.op.grain, s.op.v, s.next*s.op.grain.Size())
	s.next++
	return v, err == nil, err
}

// sliceOp yields the elements of a Go slice as references.
type sliceOp struct {
	xs []any
}

// FromSlice produces the elements of xs with grain any.
func FromSlice(xs []any) Op {
	return sliceOp{xs: xs}
}

func (o sliceOp) Shape() []int           { return []int{len(o.xs)} }
func (o sliceOp) GrainType() *core.Descr { return core.AnyType }
func (o sliceOp) Exact() bool            { return true }

func (o sliceOp) MakeSliceState(start, end int) (SliceState, error) {
	if err := checkSlice(o, start, end); err != nil {
		return nil, err
	}
	return &sliceState{xs: o.xs, next: start}, nil
}

type sliceState struct {
	xs   []any
	next int
}

func (s *sliceState) Next() (any, bool, error) {
	v := s.xs[s.next]
	s.next++
	return v, true, nil
}
