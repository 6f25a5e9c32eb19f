// Package kernels implements the collection operators over typed views:
// build, map/from, reduce, filter and scatter.
//
// Every operator is split into a plan, computed once from the operator's
// arguments, and a range runner that processes a contiguous slice of the
// plan's iteration space. The functions in this package run the whole space
// on the calling goroutine and define the reference semantics; the runtime
// package runs the same range runners on disjoint slices in parallel.
//
// Callbacks receive index slices and out-pointer views that are borrowed:
// they are only valid for the duration of the call and must not be
// retained.
package kernels

import (
	"github.com/pkg/errors"

	"github.com/sbl8/binlayout/core"
)

// BuildFunc computes the element at indices. out is a handle to the element's
// storage when the element type is a struct or array, nil otherwise. A nil
// result leaves the element as the callback wrote it through out.
type BuildFunc func(indices []int, out *core.View) (any, error)

// MapFunc computes an output element from an input element. in is the whole
// input collection.
type MapFunc func(elem any, indices []int, in, out *core.View) (any, error)

// ReduceFunc folds one element into the accumulator.
type ReduceFunc func(acc, elem any) (any, error)

// Predicate decides whether element i of in is kept by Filter.
type Predicate func(elem any, i int, in *core.View) (bool, error)

// ConflictFunc resolves a second scatter into an already written slot. A nil
// result keeps the current value.
type ConflictFunc func(current, incoming any) (any, error)

// arrayView checks that v is an attached array view.
func arrayView(v *core.View) error {
	if v == nil {
		return errors.Wrap(core.ErrInvalidArgument, "nil view")
	}
	if !v.Descr().IsArray() {
		return errors.Wrapf(core.ErrInvalidArgument, "%s is not an array", v.Descr())
	}
	return v.Validate()
}

// newResult allocates the output of an operator producing d, which may be
// unsized with n outer elements.
func newResult(d *core.Descr, n int) (*core.View, error) {
	if d.Kind() == core.KindUnsizedArray {
		return core.NewUnsized(d, n)
	}
	return core.New(d)
}

// handle hands out element views at successive offsets of base. With reuse
// one view is redirected from element to element instead of allocating.
type handle struct {
	base   *core.View
	grain  *core.Descr
	reuse  bool
	opaque bool
	cur    *core.View
}

func (h *handle) at(off int) *core.View {
	if h.reuse && h.cur != nil {
		h.cur.Retarget(h.base, off)
		return h.cur
	}
	var v *core.View
	if h.opaque {
		v = h.base.DeriveOpaque(off, h.grain, 0)
	} else {
		v = h.base.Derive(off, h.grain, 0)
	}
	if h.reuse {
		h.cur = v
	}
	return v
}
