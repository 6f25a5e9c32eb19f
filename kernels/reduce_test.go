package kernels

import (
	"errors"
	"testing"

	"github.com/sbl8/binlayout/core"
)

func TestReduceSum(t *testing.T) {
	t.Parallel()
	in := mustView(t, "int32[5]", []int{1, 2, 3, 4, 5})
	got, err := Reduce(in, add)
	if err != nil {
		t.Fatal(err)
	}
	if got.(float64) != 15 {
		t.Errorf("Reduce = %v, want 15", got)
	}
}

func TestReduceEmpty(t *testing.T) {
	t.Parallel()
	in, _ := core.NewArray(core.Int32Type, 0)
	if _, err := Reduce(in, add); !errors.Is(err, core.ErrEmptyReduce) {
		t.Errorf("Reduce error = %v, want ErrEmptyReduce", err)
	}
	got, err := Fold(in, 7, add)
	if err != nil || got.(float64) != 7 {
		t.Errorf("Fold over empty = %v, %v; want 7", got, err)
	}
}

func TestReduceCoercesEachStep(t *testing.T) {
	t.Parallel()
	in := mustView(t, "uint8[3]", []int{200, 100, 1})
	got, err := Reduce(in, add)
	if err != nil {
		t.Fatal(err)
	}
	// (200+100) wraps to 44, then 45.
	if got.(float64) != 45 {
		t.Errorf("Reduce = %v, want 45", got)
	}
	got, err = Fold(in, 300, add)
	if err != nil {
		t.Fatal(err)
	}
	// 300 coerces to 44; 244; 344 wraps to 88; 89.
	if got.(float64) != 89 {
		t.Errorf("Fold = %v, want 89", got)
	}
}

func TestReduceLeftToRight(t *testing.T) {
	t.Parallel()
	in := mustView(t, "string[4]", []string{"a", "b", "c", "d"})
	got, err := Reduce(in, func(acc, elem any) (any, error) {
		return "(" + acc.(string) + elem.(string) + ")", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "(((ab)c)d)" {
		t.Errorf("Reduce = %v", got)
	}
}

func TestReduceCompositeSeedIsCopy(t *testing.T) {
	t.Parallel()
	in := mustView(t, "{n: int32}[3]", []any{
		map[string]any{"n": 1}, map[string]any{"n": 2}, map[string]any{"n": 3},
	})
	got, err := Reduce(in, func(acc, elem any) (any, error) {
		a, e := acc.(*core.View), elem.(*core.View)
		x, _ := a.Field("n")
		y, _ := e.Field("n")
		return a, a.SetField("n", x.(float64)+y.(float64))
	})
	if err != nil {
		t.Fatal(err)
	}
	if core.Format(got) != "{n: 6}" {
		t.Errorf("Reduce = %s", core.Format(got))
	}
	if core.Format(in) != "[{n: 1}, {n: 2}, {n: 3}]" {
		t.Errorf("input mutated to %s", core.Format(in))
	}
}

func TestReduceNotArray(t *testing.T) {
	t.Parallel()
	v, _ := core.New(mustType(t, "{a: int8}"))
	if _, err := Reduce(v, add); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("Reduce error = %v, want ErrInvalidArgument", err)
	}
}
