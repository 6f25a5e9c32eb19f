package kernels

import (
	"github.com/pkg/errors"

	"github.com/sbl8/binlayout/core"
)

// BuildPlan is a build over a preallocated output.
type BuildPlan struct {
	Space core.Space
	Out   *core.View
}

// NewBuildPlan allocates the output of type d (unsized d takes n outer
// elements) and computes its iteration space at depth.
func NewBuildPlan(d *core.Descr, n, depth int) (BuildPlan, error) {
	if d == nil || !d.IsArray() {
		return BuildPlan{}, errors.Wrapf(core.ErrInvalidArgument, "cannot build %s", d)
	}
	sp, err := core.ComputeIterationSpace(d, n, depth)
	if err != nil {
		return BuildPlan{}, err
	}
	out, err := newResult(d, n)
	if err != nil {
		return BuildPlan{}, err
	}
	return BuildPlan{Space: sp, Out: out}, nil
}

// Run builds the elements at linear positions [start, end). With reuse the
// out-pointer handle is redirected between elements rather than allocated,
// which is only sound when the grain holds no references.
func (p BuildPlan) Run(start, end int, fn BuildFunc, reuse bool) error {
	grain := p.Space.Grain
	size := grain.Size()
	indices := make([]int, len(p.Space.Dims))
	core.Unflatten(start, p.Space.Dims, indices)
	h := handle{base: p.Out, grain: grain, reuse: reuse, opaque: true}

	for i := start; i < end; i++ {
		off := i * size
		var out *core.View
		if grain.IsComposite() {
			out = h.at(off)
		}
		val, err := fn(indices, out)
		if err != nil {
			return err
		}
		if val != nil {
			if err := core.Set(grain, p.Out, off, val); err != nil {
				return err
			}
		}
		core.IncrementIndices(indices, p.Space.Dims)
	}
	return nil
}

// Build allocates a value of sized array type d and fills it by calling fn
// for every element at the given depth, in row-major order.
func Build(d *core.Descr, depth int, fn BuildFunc) (*core.View, error) {
	if d != nil && d.Kind() == core.KindUnsizedArray {
		return nil, errors.Wrapf(core.ErrInvalidArgument, "%s needs a length", d)
	}
	return BuildUnsized(d, 0, depth, fn)
}

// BuildUnsized is Build for an unsized array type with n outer elements.
func BuildUnsized(d *core.Descr, n, depth int, fn BuildFunc) (*core.View, error) {
	p, err := NewBuildPlan(d, n, depth)
	if err != nil {
		return nil, err
	}
	if err := p.Run(0, p.Space.Total, fn, false); err != nil {
		return nil, err
	}
	return p.Out, nil
}
