package core

// Space is the iteration space of an array at some traversal depth: the
// outer dimensions visited, the type of each visited element and their
// count.
type Space struct {
	Dims  []int
	Grain *Descr
	Total int
}

// ComputeIterationSpace traverses depth array layers of d. length is the
// element count when d is unsized and ignored otherwise. depth must lie in
// [1, rank of d].
func ComputeIterationSpace(d *Descr, length, depth int) (Space, error) {
	if d == nil {
		return Space{}, invalidf("nil type")
	}
	if rank := d.Rank(); depth <= 0 || depth > rank {
		return Space{}, rangef("depth %d outside [1, %d] for %s", depth, rank, d)
	}
	sp := Space{Dims: make([]int, 0, depth), Total: 1}
	cur := d
	for i := 0; i < depth; i++ {
		n := cur.length
		if cur.kind == KindUnsizedArray {
			n = length
		}
		sp.Dims = append(sp.Dims, n)
		sp.Total *= n
		cur = cur.elem
	}
	sp.Grain = cur
	return sp, nil
}

// SpaceOf is ComputeIterationSpace for the type and length of an array view.
func SpaceOf(v *View, depth int) (Space, error) {
	if !v.descr.IsArray() {
		return Space{}, invalidf("%s is not an array", v.descr)
	}
	return ComputeIterationSpace(v.descr, v.length, depth)
}

// Equal reports whether two spaces visit the same dimensions.
func (s Space) Equal(o Space) bool {
	if len(s.Dims) != len(o.Dims) {
		return false
	}
	for i := range s.Dims {
		if s.Dims[i] != o.Dims[i] {
			return false
		}
	}
	return true
}

// ElementCount is the product of shape; one for an empty shape.
func ElementCount(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Shape lists every array dimension of d, outermost first.
func Shape(d *Descr, length int) []int {
	var dims []int
	for d.IsArray() {
		if d.kind == KindUnsizedArray {
			dims = append(dims, length)
		} else {
			dims = append(dims, d.length)
		}
		d = d.elem
	}
	return dims
}

// IncrementIndices advances indices through dims in row-major order. It
// reports true when the increment wrapped back to all zeros.
func IncrementIndices(indices, dims []int) bool {
	for i := len(indices) - 1; i >= 0; i-- {
		indices[i]++
		if indices[i] < dims[i] {
			return false
		}
		indices[i] = 0
	}
	return true
}

// Unflatten writes the row-major indices of linear position pos into
// indices.
func Unflatten(pos int, dims, indices []int) {
	for i := len(dims) - 1; i >= 0; i-- {
		if dims[i] == 0 {
			indices[i] = 0
			continue
		}
		indices[i] = pos % dims[i]
		pos /= dims[i]
	}
}
