package kernels

import (
	"github.com/pkg/errors"

	"github.com/sbl8/binlayout/core"
)

// MapPlan is a map from an input array to a preallocated output whose
// iteration spaces agree.
type MapPlan struct {
	Space    core.Space
	In       *core.View
	InGrain  *core.Descr
	Out      *core.View
	OutGrain *core.Descr
}

// NewMapPlan checks that in and outType agree on their first depth
// dimensions and allocates the output. An unsized outType takes the
// input's outer length.
func NewMapPlan(outType *core.Descr, in *core.View, depth int) (MapPlan, error) {
	if err := arrayView(in); err != nil {
		return MapPlan{}, err
	}
	if outType == nil || !outType.IsArray() {
		return MapPlan{}, errors.Wrapf(core.ErrInvalidArgument, "cannot map into %s", outType)
	}
	inSpace, err := core.SpaceOf(in, depth)
	if err != nil {
		return MapPlan{}, err
	}
	outSpace, err := core.ComputeIterationSpace(outType, in.Len(), depth)
	if err != nil {
		return MapPlan{}, err
	}
	if !inSpace.Equal(outSpace) {
		return MapPlan{}, errors.Wrapf(core.ErrIncompatibleShape,
			"cannot map %s to %s at depth %d: %v vs %v", in.Descr(), outType, depth, inSpace.Dims, outSpace.Dims)
	}
	out, err := newResult(outType, in.Len())
	if err != nil {
		return MapPlan{}, err
	}
	return MapPlan{
		Space:    inSpace,
		In:       in,
		InGrain:  inSpace.Grain,
		Out:      out,
		OutGrain: outSpace.Grain,
	}, nil
}

// simple reports whether the depth-1 direct path applies.
func (p MapPlan) simple() bool {
	return len(p.Space.Dims) == 1 && p.InGrain.IsSimple() && p.OutGrain.IsSimple()
}

// Run maps the elements at linear positions [start, end). With reuse the
// element and out-pointer handles are redirected between elements, which is
// only sound for grains that hold no references.
func (p MapPlan) Run(start, end int, fn MapFunc, reuse bool) error {
	if p.simple() {
		return p.runSimple(start, end, fn)
	}
	return p.runGeneral(start, end, fn, reuse)
}

func (p MapPlan) runGeneral(start, end int, fn MapFunc, reuse bool) error {
	inSize, outSize := p.InGrain.Size(), p.OutGrain.Size()
	indices := make([]int, len(p.Space.Dims))
	core.Unflatten(start, p.Space.Dims, indices)
	inH := handle{base: p.In, grain: p.InGrain, reuse: reuse && !p.InGrain.Opaque()}
	outH := handle{base: p.Out, grain: p.OutGrain, reuse: reuse && !p.OutGrain.Opaque(), opaque: true}

	for i := start; i < end; i++ {
		inOff, outOff := i*inSize, i*outSize
		var elem any
		if p.InGrain.IsComposite() && inH.reuse {
			v := inH.at(inOff)
			if err := v.Validate(); err != nil {
				return err
			}
			elem = v
		} else {
			var err error
			if elem, err = core.Get(p.InGrain, p.In, inOff); err != nil {
				return err
			}
		}
		var out *core.View
		if p.OutGrain.IsComposite() {
			out = outH.at(outOff)
		}
		val, err := fn(elem, indices, p.In, out)
		if err != nil {
			return err
		}
		if val != nil {
			if err := core.Set(p.OutGrain, p.Out, outOff, val); err != nil {
				return err
			}
		}
		core.IncrementIndices(indices, p.Space.Dims)
	}
	return nil
}

// runSimple reads and writes slots directly. Every slot access goes through
// Get and Set, so attachment is still checked per element.
func (p MapPlan) runSimple(start, end int, fn MapFunc) error {
	inSize, outSize := p.InGrain.Size(), p.OutGrain.Size()
	index := []int{0}
	for i := start; i < end; i++ {
		elem, err := core.Get(p.InGrain, p.In, i*inSize)
		if err != nil {
			return err
		}
		index[0] = i
		val, err := fn(elem, index, p.In, nil)
		if err != nil {
			return err
		}
		if val != nil {
			if err := core.Set(p.OutGrain, p.Out, i*outSize, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// From maps in to a new value of outType, calling fn once per element at
// the given depth.
func From(outType *core.Descr, in *core.View, depth int, fn MapFunc) (*core.View, error) {
	p, err := NewMapPlan(outType, in, depth)
	if err != nil {
		return nil, err
	}
	if err := p.Run(0, p.Space.Total, fn, false); err != nil {
		return nil, err
	}
	return p.Out, nil
}

// Map is From with the input's own type as the output type.
func Map(in *core.View, depth int, fn MapFunc) (*core.View, error) {
	if err := arrayView(in); err != nil {
		return nil, err
	}
	return From(in.Descr(), in, depth, fn)
}

// FromSlice maps untyped values into a new outType[] of the same length.
func FromSlice(outType *core.Descr, in []any, fn func(elem any, i int) (any, error)) (*core.View, error) {
	out, err := core.NewArray(outType, len(in))
	if err != nil {
		return nil, err
	}
	for i, x := range in {
		val, err := fn(x, i)
		if err != nil {
			return nil, err
		}
		if val == nil {
			continue
		}
		if err := out.SetIndex(i, val); err != nil {
			return nil, err
		}
	}
	return out, nil
}
