package kernels

import (
	"testing"

	"github.com/sbl8/binlayout/core"
)

func mustType(t testing.TB, expr string) *core.Descr {
	t.Helper()
	d, err := core.ParseType(expr, nil)
	if err != nil {
		t.Fatalf("ParseType(%q): %v", expr, err)
	}
	return d
}

func mustView(t testing.TB, expr string, val any) *core.View {
	t.Helper()
	v, err := core.NewFrom(mustType(t, expr), val)
	if err != nil {
		t.Fatalf("NewFrom(%s): %v", expr, err)
	}
	return v
}

func add(acc, elem any) (any, error) {
	return acc.(float64) + elem.(float64), nil
}
