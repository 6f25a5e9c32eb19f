package kernels

import (
	"errors"
	"math"
	"testing"

	"github.com/sbl8/binlayout/core"
)

func TestSqrPlusX(t *testing.T) {
	t.Parallel()
	in := mustView(t, "float32[4]", []float64{1, 2, 3, 4})
	fn, err := LookupMap("sqrplusx")
	if err != nil {
		t.Fatal(err)
	}
	out, err := Map(in, 1, fn)
	if err != nil {
		t.Fatal(err)
	}
	expected := []float64{2, 6, 12, 20}
	for i, want := range expected {
		got, _ := out.Index(i)
		if math.Abs(got.(float64)-want) > 1e-6 {
			t.Errorf("Index %d: got %v, want %v", i, got, want)
		}
	}
}

func TestReLU(t *testing.T) {
	t.Parallel()
	in := mustView(t, "float32[4]", []float64{-1, 2, -3, 4})
	fn, _ := LookupMap("relu")
	out, err := Map(in, 1, fn)
	if err != nil {
		t.Fatal(err)
	}
	if got := core.Format(out); got != "[0, 2, 0, 4]" {
		t.Errorf("relu = %s", got)
	}
}

func TestActivationApproximations(t *testing.T) {
	t.Parallel()
	for _, x := range []float64{-3, -0.5, 0, 0.5, 3} {
		if s := sigmoid(x); math.Abs(s) >= 1 || (x > 0) != (s > 0) {
			t.Errorf("sigmoid(%v) = %v", x, s)
		}
		if th := tanh(x); math.Abs(th-math.Tanh(x)) > 0.03 && math.Abs(x) < 3 {
			t.Errorf("tanh(%v) = %v, want about %v", x, th, math.Tanh(x))
		}
	}
}

func TestLookupReducer(t *testing.T) {
	t.Parallel()
	in := mustView(t, "float64[4]", []float64{3, -1, 7, 2})
	tests := []struct {
		name string
		want float64
	}{
		{"sum", 11},
		{"product", -42},
		{"max", 7},
		{"min", -1},
	}
	for _, tt := range tests {
		fn, err := LookupReducer(tt.name)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Reduce(in, fn)
		if err != nil {
			t.Fatal(err)
		}
		if got.(float64) != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	t.Parallel()
	if _, err := LookupMap("nope"); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("LookupMap error = %v", err)
	}
	if _, err := LookupReducer("nope"); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("LookupReducer error = %v", err)
	}
	if _, err := LookupPredicate("nope"); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("LookupPredicate error = %v", err)
	}
}

func TestCatalogRejectsComposite(t *testing.T) {
	t.Parallel()
	in := mustView(t, "int8[2][2]", [][]int{{1, 2}, {3, 4}})
	fn, _ := LookupMap("double")
	if _, err := Map(in, 1, fn); !errors.Is(err, core.ErrTypeCoercion) {
		t.Errorf("Map error = %v, want ErrTypeCoercion", err)
	}
}

func TestNames(t *testing.T) {
	t.Parallel()
	names := Names(Reducers)
	if len(names) != 4 || names[0] != "max" || names[3] != "sum" {
		t.Errorf("Names = %v", names)
	}
}

func BenchmarkMapDouble_1K(b *testing.B) {
	vals := make([]float64, 1024)
	for i := range vals {
		vals[i] = float64(i)
	}
	in := mustView(b, "float32[1024]", vals)
	fn, _ := LookupMap("double")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Map(in, 1, fn); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReduceSum_1K(b *testing.B) {
	in := mustView(b, "float64[1024]", make([]float64, 1024))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Reduce(in, add); err != nil {
			b.Fatal(err)
		}
	}
}
