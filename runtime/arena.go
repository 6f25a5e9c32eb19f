package runtime

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sbl8/binlayout/core"
)

// ArenaRegion is the byte range of a shared output that one worker may
// write.
type ArenaRegion struct {
	Offset int
	Size   int
	Name   string
}

// Arena carves a shared output view into per-worker target regions. A
// worker only ever receives its own window, so stores outside its region
// fail instead of racing with a neighbor.
type Arena struct {
	target  *core.View
	regions []ArenaRegion
	byName  map[string]int
}

// NewArena lays out one region per range, grainSize bytes per position.
// The ranges must be contiguous from zero and fit the target.
func NewArena(target *core.View, ranges []Range, grainSize int) (*Arena, error) {
	a := &Arena{
		target:  target,
		regions: make([]ArenaRegion, len(ranges)),
		byName:  make(map[string]int, len(ranges)),
	}
	for k, r := range ranges {
		name := fmt.Sprintf("worker-%d", k)
		a.regions[k] = ArenaRegion{
			Offset: r.Start * grainSize,
			Size:   r.Len() * grainSize,
			Name:   name,
		}
		a.byName[name] = k
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks that regions are disjoint, ascending and within the
// target.
func (a *Arena) Validate() error {
	next := 0
	for _, r := range a.regions {
		if r.Size < 0 || r.Offset != next {
			return errors.Wrapf(core.ErrInvalidArgument, "region %s at %d, expected %d", r.Name, r.Offset, next)
		}
		next = r.Offset + r.Size
	}
	if next > a.target.ByteLen() {
		return errors.Wrapf(core.ErrInvalidArgument, "regions cover %d bytes of a %d byte target", next, a.target.ByteLen())
	}
	return nil
}

// Region looks up a region by name.
func (a *Arena) Region(name string) (ArenaRegion, bool) {
	k, ok := a.byName[name]
	if !ok {
		return ArenaRegion{}, false
	}
	return a.regions[k], true
}

// Regions returns the regions in worker order.
func (a *Arena) Regions() []ArenaRegion {
	return append([]ArenaRegion(nil), a.regions...)
}

// Window is the target as seen by worker k: every store outside the
// worker's region fails with core.ErrTargetRegion.
func (a *Arena) Window(k int) *core.View {
	r := a.regions[k]
	return a.target.Restrict(r.Offset, r.Offset+r.Size)
}

// TotalSize is the number of bytes covered by all regions.
func (a *Arena) TotalSize() int {
	if len(a.regions) == 0 {
		return 0
	}
	last := a.regions[len(a.regions)-1]
	return last.Offset + last.Size
}
