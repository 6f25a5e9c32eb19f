package kernels

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/sbl8/binlayout/core"
)

// FilterPlan selects outer elements of an array.
type FilterPlan struct {
	In    *core.View
	Grain *core.Descr
	Len   int
}

func NewFilterPlan(in *core.View) (FilterPlan, error) {
	if err := arrayView(in); err != nil {
		return FilterPlan{}, err
	}
	sp, err := core.SpaceOf(in, 1)
	if err != nil {
		return FilterPlan{}, err
	}
	return FilterPlan{In: in, Grain: sp.Grain, Len: sp.Total}, nil
}

// Mark evaluates pred on [start, end), setting bit i-start of keep for
// every kept element i, and returns how many were kept. keep only needs
// end-start bits.
func (p FilterPlan) Mark(start, end int, pred Predicate, keep *bitset.BitSet) (int, error) {
	size := p.Grain.Size()
	kept := 0
	for i := start; i < end; i++ {
		elem, err := core.Get(p.Grain, p.In, i*size)
		if err != nil {
			return 0, err
		}
		ok, err := pred(elem, i, p.In)
		if err != nil {
			return 0, err
		}
		if ok {
			keep.Set(uint(i - start))
			kept++
		}
	}
	return kept, nil
}

// Compact copies the elements of [start, end) marked by Mark into out from
// element position at onward, preserving order, and returns the next free
// position.
func (p FilterPlan) Compact(start, end int, keep *bitset.BitSet, out *core.View, at int) (int, error) {
	size := p.Grain.Size()
	for i, ok := keep.NextSet(0); ok && start+int(i) < end; i, ok = keep.NextSet(i + 1) {
		if err := core.CopyBytes(out, at*size, p.In, (start+int(i))*size, size); err != nil {
			return at, err
		}
		at++
	}
	return at, nil
}

// Filter returns a new unsized array holding, in order, the outer elements
// of in for which pred reports true.
func Filter(in *core.View, pred Predicate) (*core.View, error) {
	p, err := NewFilterPlan(in)
	if err != nil {
		return nil, err
	}
	keep := bitset.New(uint(p.Len))
	kept, err := p.Mark(0, p.Len, pred, keep)
	if err != nil {
		return nil, err
	}
	out, err := core.NewArray(p.Grain, kept)
	if err != nil {
		return nil, err
	}
	if _, err := p.Compact(0, p.Len, keep, out, 0); err != nil {
		return nil, err
	}
	return out, nil
}
