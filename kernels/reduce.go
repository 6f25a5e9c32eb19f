package kernels

import (
	"github.com/pkg/errors"

	"github.com/sbl8/binlayout/core"
)

// Partial is an accumulator over some slice of a reduce. Ok is false when
// the slice contributed nothing.
type Partial struct {
	Acc any
	Ok  bool
}

// ReducePlan folds the outer elements of an array.
type ReducePlan struct {
	In    *core.View
	Grain *core.Descr
	Len   int
}

func NewReducePlan(in *core.View) (ReducePlan, error) {
	if err := arrayView(in); err != nil {
		return ReducePlan{}, err
	}
	sp, err := core.SpaceOf(in, 1)
	if err != nil {
		return ReducePlan{}, err
	}
	return ReducePlan{In: in, Grain: sp.Grain, Len: sp.Total}, nil
}

// Seed turns an initial value into a partial. Simple grains coerce it to
// the element type.
func (p ReducePlan) Seed(initial any) (Partial, error) {
	if !p.Grain.IsSimple() {
		return Partial{Acc: initial, Ok: true}, nil
	}
	v, err := core.Coerce(p.Grain, initial)
	if err != nil {
		return Partial{}, err
	}
	return Partial{Acc: v, Ok: true}, nil
}

// Step applies fn once. Results over simple grains are coerced back to the
// element type so every intermediate accumulator is storable.
func (p ReducePlan) Step(acc, elem any, fn ReduceFunc) (any, error) {
	r, err := fn(acc, elem)
	if err != nil {
		return nil, err
	}
	if p.Grain.IsSimple() {
		return core.Coerce(p.Grain, r)
	}
	return r, nil
}

// Run folds the elements at [start, end) into acc. A slice without an
// accumulator starts from its first element; composite elements are copied
// so that fn may mutate the accumulator without touching the input.
func (p ReducePlan) Run(start, end int, acc Partial, fn ReduceFunc) (Partial, error) {
	size := p.Grain.Size()
	for i := start; i < end; i++ {
		elem, err := core.Get(p.Grain, p.In, i*size)
		if err != nil {
			return Partial{}, err
		}
		if !acc.Ok {
			if p.Grain.IsComposite() {
				if elem, err = core.NewFrom(p.Grain, elem); err != nil {
					return Partial{}, err
				}
			}
			acc = Partial{Acc: elem, Ok: true}
			continue
		}
		if acc.Acc, err = p.Step(acc.Acc, elem, fn); err != nil {
			return Partial{}, err
		}
	}
	return acc, nil
}

// Reduce folds the outer elements of in left to right, starting from the
// first element. An empty input fails with ErrEmptyReduce.
func Reduce(in *core.View, fn ReduceFunc) (any, error) {
	p, err := NewReducePlan(in)
	if err != nil {
		return nil, err
	}
	part, err := p.Run(0, p.Len, Partial{}, fn)
	if err != nil {
		return nil, err
	}
	if !part.Ok {
		return nil, errors.Wrapf(core.ErrEmptyReduce, "%s", in.Descr())
	}
	return part.Acc, nil
}

// Fold is Reduce starting from initial. An empty input yields initial.
func Fold(in *core.View, initial any, fn ReduceFunc) (any, error) {
	p, err := NewReducePlan(in)
	if err != nil {
		return nil, err
	}
	seed, err := p.Seed(initial)
	if err != nil {
		return nil, err
	}
	part, err := p.Run(0, p.Len, seed, fn)
	if err != nil {
		return nil, err
	}
	return part.Acc, nil
}
