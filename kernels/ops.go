package kernels

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/sbl8/binlayout/core"
)

// ElemFn transforms one numeric element.
type ElemFn func(x float64) float64

// Catalog holds the named element functions available to the command-line
// tools.
var Catalog = map[string]ElemFn{
	"noop":     func(x float64) float64 { return x },
	"sqrplusx": func(x float64) float64 { return x*x + x },
	"square":   func(x float64) float64 { return x * x },
	"double":   func(x float64) float64 { return 2 * x },
	"negate":   func(x float64) float64 { return -x },
	"relu":     relu,
	"sigmoid":  sigmoid,
	"tanh":     tanh,
}

// Reducers holds the named folds.
var Reducers = map[string]func(a, b float64) float64{
	"sum":     func(a, b float64) float64 { return a + b },
	"product": func(a, b float64) float64 { return a * b },
	"max":     math.Max,
	"min":     math.Min,
}

// Predicates holds the named filters.
var Predicates = map[string]func(x float64) bool{
	"positive": func(x float64) bool { return x > 0 },
	"negative": func(x float64) bool { return x < 0 },
	"nonzero":  func(x float64) bool { return x != 0 },
	"even":     func(x float64) bool { return math.Mod(x, 2) == 0 },
	"odd":      func(x float64) bool { return math.Abs(math.Mod(x, 2)) == 1 },
}

// relu implements Rectified Linear Unit: max(0, x)
func relu(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

// sigmoid uses the fast approximation x / (1 + |x|).
func sigmoid(x float64) float64 {
	if x >= 0 {
		return x / (1 + x)
	}
	return x / (1 - x)
}

// tanh uses a rational approximation.
func tanh(x float64) float64 {
	x2 := x * x
	return x * (27 + x2) / (27 + 9*x2)
}

func number(v any) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, errors.Wrapf(core.ErrTypeCoercion, "element %T is not a number", v)
	}
	return f, nil
}

// LookupMap returns the named element function as a MapFunc over numeric
// elements.
func LookupMap(name string) (MapFunc, error) {
	fn, ok := Catalog[name]
	if !ok {
		return nil, errors.Wrapf(core.ErrInvalidArgument, "unknown function %q", name)
	}
	return func(elem any, _ []int, _, _ *core.View) (any, error) {
		x, err := number(elem)
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}, nil
}

// LookupReducer returns the named fold as a ReduceFunc.
func LookupReducer(name string) (ReduceFunc, error) {
	fn, ok := Reducers[name]
	if !ok {
		return nil, errors.Wrapf(core.ErrInvalidArgument, "unknown reducer %q", name)
	}
	return func(acc, elem any) (any, error) {
		a, err := number(acc)
		if err != nil {
			return nil, err
		}
		b, err := number(elem)
		if err != nil {
			return nil, err
		}
		return fn(a, b), nil
	}, nil
}

// LookupPredicate returns the named filter as a Predicate.
func LookupPredicate(name string) (Predicate, error) {
	fn, ok := Predicates[name]
	if !ok {
		return nil, errors.Wrapf(core.ErrInvalidArgument, "unknown predicate %q", name)
	}
	return func(elem any, _ int, _ *core.View) (bool, error) {
		x, err := number(elem)
		if err != nil {
			return false, err
		}
		return fn(x), nil
	}, nil
}

// Names lists the keys of a catalog map in order.
func Names[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
