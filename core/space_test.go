package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestComputeIterationSpace(t *testing.T) {
	t.Parallel()
	point := mustStruct(t, FieldSpec{"x", Float32Type})
	grid := mustArray(t, point, 3, 4, 5)
	u, _ := UnsizedArrayOf(mustArray(t, Int8Type, 6))

	tests := []struct {
		name      string
		d         *Descr
		length    int
		depth     int
		wantDims  []int
		wantGrain string
		wantErr   bool
	}{
		{"depth 1", grid, 0, 1, []int{3}, "{x: float32}[4][5]", false},
		{"depth 2", grid, 0, 2, []int{3, 4}, "{x: float32}[5]", false},
		{"full depth", grid, 0, 3, []int{3, 4, 5}, "{x: float32}", false},
		{"unsized outer", u, 7, 2, []int{7, 6}, "int8", false},
		{"zero depth", grid, 0, 0, nil, "", true},
		{"too deep", grid, 0, 4, nil, "", true},
		{"scalar", Int32Type, 0, 1, nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp, err := ComputeIterationSpace(tt.d, tt.length, tt.depth)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrRange) {
					t.Errorf("error = %v, want ErrRange", err)
				}
				return
			}
			if !reflect.DeepEqual(sp.Dims, tt.wantDims) {
				t.Errorf("Dims = %v, want %v", sp.Dims, tt.wantDims)
			}
			if sp.Grain.String() != tt.wantGrain {
				t.Errorf("Grain = %s, want %s", sp.Grain, tt.wantGrain)
			}
			if sp.Total != ElementCount(tt.wantDims) {
				t.Errorf("Total = %d, want %d", sp.Total, ElementCount(tt.wantDims))
			}
		})
	}
}

func TestIncrementIndices(t *testing.T) {
	t.Parallel()
	dims := []int{2, 3, 2}
	idx := make([]int, len(dims))
	seen := 0
	for {
		want := make([]int, len(dims))
		Unflatten(seen, dims, want)
		if !reflect.DeepEqual(idx, want) {
			t.Fatalf("step %d: indices %v, want %v", seen, idx, want)
		}
		seen++
		if IncrementIndices(idx, dims) {
			break
		}
	}
	if seen != ElementCount(dims) {
		t.Errorf("visited %d positions, want %d", seen, ElementCount(dims))
	}
	if !reflect.DeepEqual(idx, []int{0, 0, 0}) {
		t.Errorf("indices after wrap = %v", idx)
	}
}

func TestElementCount(t *testing.T) {
	t.Parallel()
	tests := []struct {
		shape []int
		want  int
	}{
		{nil, 1},
		{[]int{5}, 5},
		{[]int{2, 3, 4}, 24},
		{[]int{3, 0}, 0},
	}
	for _, tt := range tests {
		if got := ElementCount(tt.shape); got != tt.want {
			t.Errorf("ElementCount(%v) = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShape(t *testing.T) {
	t.Parallel()
	u, _ := UnsizedArrayOf(mustArray(t, Int8Type, 2, 3))
	if got := Shape(u, 4); !reflect.DeepEqual(got, []int{4, 2, 3}) {
		t.Errorf("Shape = %v", got)
	}
}

func BenchmarkIncrementIndices(b *testing.B) {
	dims := []int{16, 16, 16}
	idx := make([]int, len(dims))
	for i := 0; i < b.N; i++ {
		IncrementIndices(idx, dims)
	}
}
