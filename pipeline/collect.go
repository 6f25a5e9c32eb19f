package pipeline

import (
	"github.com/pkg/errors"

	"github.com/sbl8/binlayout/core"
)

// NewScratch allocates the flat output of op, one slot per position.
func NewScratch(op Op) (*core.View, error) {
	return core.NewArray(op.GrainType(), core.ElementCount(op.Shape()))
}

// CollectRange drains a cursor over count positions, storing kept values
// into consecutive slots of out from slot at. It returns how many were kept.
func CollectRange(st SliceState, count int, out *core.View, at int) (int, error) {
	kept := 0
	for i := 0; i < count; i++ {
		v, keep, err := st.Next()
		if err != nil {
			return kept, err
		}
		if !keep {
			continue
		}
		if err := out.SetIndex(at+kept, v); err != nil {
			return kept, err
		}
		kept++
	}
	return kept, nil
}

// Shaped gives a collected flat result the shape of op. One-dimensional or
// empty results stay flat.
func Shaped(op Op, flat *core.View) (*core.View, error) {
	shape := op.Shape()
	if len(shape) < 2 || flat.Len() == 0 {
		return flat, nil
	}
	d, err := core.ArrayOfDims(op.GrainType(), shape...)
	if err != nil {
		return nil, err
	}
	return flat.Redimension(d)
}

// Collect evaluates op into a new array, in index order.
func Collect(op Op) (*core.View, error) {
	n := core.ElementCount(op.Shape())
	out, err := NewScratch(op)
	if err != nil {
		return nil, err
	}
	st, err := op.MakeSliceState(0, n)
	if err != nil {
		return nil, err
	}
	kept, err := CollectRange(st, n, out, 0)
	if err != nil {
		return nil, err
	}
	if kept < n {
		compact, err := core.NewArray(op.GrainType(), kept)
		if err != nil {
			return nil, err
		}
		size := op.GrainType().Size()
		if err := core.CopyBytes(compact, 0, out, 0, kept*size); err != nil {
			return nil, err
		}
		out = compact
	}
	return Shaped(op, out)
}

// ReduceFunc folds one element into the accumulator.
type ReduceFunc func(acc, v any) (any, error)

// Step applies fn and, for simple grains, coerces the result to the grain.
func Step(grain *core.Descr, acc, v any, fn ReduceFunc) (any, error) {
	r, err := fn(acc, v)
	if err != nil {
		return nil, err
	}
	if grain.IsSimple() {
		return core.Coerce(grain, r)
	}
	return r, nil
}

// ReduceRange folds the kept values of a cursor over count positions. ok is
// false when nothing was kept.
func ReduceRange(grain *core.Descr, st SliceState, count int, fn ReduceFunc) (any, bool, error) {
	var (
		acc any
		ok  bool
	)
	for i := 0; i < count; i++ {
		v, keep, err := st.Next()
		if err != nil {
			return nil, false, err
		}
		if !keep {
			continue
		}
		if ok {
			acc, err = Step(grain, acc, v, fn)
		} else if grain.IsSimple() {
			acc, err = core.Coerce(grain, v)
		} else {
			acc = v
		}
		if err != nil {
			return nil, false, err
		}
		ok = true
	}
	return acc, ok, nil
}

// Reduce folds the values of op left to right, starting from the first.
func Reduce(op Op, fn ReduceFunc) (any, error) {
	n := core.ElementCount(op.Shape())
	st, err := op.MakeSliceState(0, n)
	if err != nil {
		return nil, err
	}
	acc, ok, err := ReduceRange(op.GrainType(), st, n, fn)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(core.ErrEmptyReduce, "pipeline")
	}
	return acc, nil
}
