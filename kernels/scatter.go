package kernels

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"

	"github.com/sbl8/binlayout/core"
)

// ScatterPlan writes input elements to chosen slots of a fresh output.
type ScatterPlan struct {
	In      *core.View
	Indices []int
	Out     *core.View
	Elem    *core.Descr
	Default *core.View // one encoded default element
	Fill    bool       // false when the default encodes as zero bytes
}

// NewScatterPlan validates the arguments, allocates the output of sized
// array type outType and encodes the default value.
func NewScatterPlan(in *core.View, outType *core.Descr, indices []int, defaultValue any) (ScatterPlan, error) {
	if err := arrayView(in); err != nil {
		return ScatterPlan{}, err
	}
	if outType == nil || outType.Kind() != core.KindSizedArray {
		return ScatterPlan{}, errors.Wrapf(core.ErrInvalidArgument, "scatter needs a sized array type, got %s", outType)
	}
	if len(indices) > in.Len() {
		return ScatterPlan{}, errors.Wrapf(core.ErrInvalidArgument,
			"%d indices for %d input elements", len(indices), in.Len())
	}
	for i, j := range indices {
		if j < 0 || j >= outType.Len() {
			return ScatterPlan{}, errors.Wrapf(core.ErrInvalidArgument,
				"index %d at position %d outside %s", j, i, outType)
		}
	}
	elem := outType.Elem()
	def, err := core.NewArray(elem, 1)
	if err != nil {
		return ScatterPlan{}, err
	}
	zero := true
	if defaultValue != nil {
		if err := def.SetIndex(0, defaultValue); err != nil {
			return ScatterPlan{}, err
		}
		if zero, err = def.IsZero(); err != nil {
			return ScatterPlan{}, err
		}
	}
	out, err := core.New(outType)
	if err != nil {
		return ScatterPlan{}, err
	}
	return ScatterPlan{
		In:      in,
		Indices: indices,
		Out:     out,
		Elem:    elem,
		Default: def,
		Fill:    !zero,
	}, nil
}

// FillRange writes the default into output slots [start, end) of out,
// which may be a restricted view of p.Out.
func (p ScatterPlan) FillRange(out *core.View, start, end int) error {
	if !p.Fill {
		return nil
	}
	size := p.Elem.Size()
	for i := start; i < end; i++ {
		if err := core.CopyBytes(out, i*size, p.Default, 0, size); err != nil {
			return err
		}
	}
	return nil
}

// Scatter writes the input elements in index order, tracking written slots.
func (p ScatterPlan) Scatter(conflict ConflictFunc) error {
	inElem := p.In.Descr().Elem()
	size := p.Elem.Size()
	written := bitset.New(uint(p.Out.Len()))
	for i, j := range p.Indices {
		val, err := core.Get(inElem, p.In, i*inElem.Size())
		if err != nil {
			return err
		}
		if !written.Test(uint(j)) {
			if err := core.Set(p.Elem, p.Out, j*size, val); err != nil {
				return err
			}
			written.Set(uint(j))
			continue
		}
		if conflict == nil {
			return errors.Wrapf(core.ErrScatterConflict, "slot %d written by input %d", j, i)
		}
		cur, err := core.Get(p.Elem, p.Out, j*size)
		if err != nil {
			return err
		}
		incoming, err := core.Coerce(p.Elem, val)
		if err != nil {
			return err
		}
		res, err := conflict(cur, incoming)
		if err != nil {
			return err
		}
		if res == nil {
			continue
		}
		if err := core.Set(p.Elem, p.Out, j*size, res); err != nil {
			return err
		}
	}
	return nil
}

// Scatter builds a value of sized array type outType in which slot
// indices[i] holds element i of in. Slots no index names hold defaultValue,
// or the zero value when defaultValue is nil.
// Writing a slot twice needs conflict to merge the values, otherwise it
// fails with ErrScatterConflict.
func Scatter(in *core.View, outType *core.Descr, indices []int, defaultValue any, conflict ConflictFunc) (*core.View, error) {
	p, err := NewScatterPlan(in, outType, indices, defaultValue)
	if err != nil {
		return nil, err
	}
	if err := p.FillRange(p.Out, 0, p.Out.Len()); err != nil {
		return nil, err
	}
	if err := p.Scatter(conflict); err != nil {
		return nil, err
	}
	return p.Out, nil
}
