package kernels

import (
	"testing"

	"github.com/bits-and-blooms/bitset"

	"github.com/sbl8/binlayout/core"
)

func TestFilterKeepsOrder(t *testing.T) {
	t.Parallel()
	in := mustView(t, "int16[8]", []int{5, -1, 4, 0, -7, 3, 3, -2})
	pred, err := LookupPredicate("positive")
	if err != nil {
		t.Fatal(err)
	}
	out, err := Filter(in, pred)
	if err != nil {
		t.Fatal(err)
	}
	if out.Descr().String() != "int16[]" {
		t.Errorf("result type %s, want int16[]", out.Descr())
	}
	if got := core.Format(out); got != "[5, 4, 3, 3]" {
		t.Errorf("Filter = %s", got)
	}
}

func TestFilterCount(t *testing.T) {
	t.Parallel()
	vals := make([]int, 100)
	for i := range vals {
		vals[i] = (i * 37) % 11
	}
	in := mustView(t, "int32[100]", vals)
	want := 0
	for _, x := range vals {
		if x%2 == 1 {
			want++
		}
	}
	out, err := Filter(in, func(elem any, i int, _ *core.View) (bool, error) {
		return int(elem.(float64))%2 == 1, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != want {
		t.Errorf("Filter kept %d, want %d", out.Len(), want)
	}
}

func TestFilterComposite(t *testing.T) {
	t.Parallel()
	in := mustView(t, "{id: uint8, tag: string}[3]", []any{
		map[string]any{"id": 1, "tag": "a"},
		map[string]any{"id": 2, "tag": "b"},
		map[string]any{"id": 3, "tag": "c"},
	})
	out, err := Filter(in, func(_ any, i int, _ *core.View) (bool, error) { return i != 1, nil })
	if err != nil {
		t.Fatal(err)
	}
	if got := core.Format(out); got != `[{id: 1, tag: "a"}, {id: 3, tag: "c"}]` {
		t.Errorf("Filter = %s", got)
	}
}

func TestFilterNone(t *testing.T) {
	t.Parallel()
	in := mustView(t, "float32[3]", []float64{1, 2, 3})
	out, err := Filter(in, func(any, int, *core.View) (bool, error) { return false, nil })
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("Filter kept %d", out.Len())
	}
}

func TestFilterPlanRangeLocalBits(t *testing.T) {
	t.Parallel()
	in := mustView(t, "int32[10]", []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	p, err := NewFilterPlan(in)
	if err != nil {
		t.Fatal(err)
	}
	even := func(elem any, _ int, _ *core.View) (bool, error) {
		return int(elem.(float64))%2 == 0, nil
	}
	keep := bitset.New(4)
	kept, err := p.Mark(6, 10, even, keep)
	if err != nil {
		t.Fatal(err)
	}
	if kept != 2 || keep.Len() != 4 || keep.Count() != 2 {
		t.Fatalf("Mark kept %d, bits %d of %d", kept, keep.Count(), keep.Len())
	}
	if !keep.Test(0) || !keep.Test(2) {
		t.Errorf("marked bits %v, want {0,2}", keep)
	}

	out, err := core.NewArray(core.Int32Type, 3)
	if err != nil {
		t.Fatal(err)
	}
	next, err := p.Compact(6, 10, keep, out, 1)
	if err != nil {
		t.Fatal(err)
	}
	if next != 3 {
		t.Errorf("Compact returned %d, want 3", next)
	}
	if got := core.Format(out); got != "[0, 6, 8]" {
		t.Errorf("Compact wrote %s", got)
	}
}
