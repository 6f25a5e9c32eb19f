package core

import (
	"errors"
	"testing"
)

func mustStruct(t testing.TB, fields ...FieldSpec) *Descr {
	t.Helper()
	d, err := NewStruct(fields...)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return d
}

func mustArray(t testing.TB, elem *Descr, dims ...int) *Descr {
	t.Helper()
	d, err := ArrayOfDims(elem, dims...)
	if err != nil {
		t.Fatalf("ArrayOfDims(%s, %v): %v", elem, dims, err)
	}
	return d
}

func TestStructLayout(t *testing.T) {
	t.Parallel()
	d := mustStruct(t,
		FieldSpec{"a", Uint8Type},
		FieldSpec{"b", Float64Type},
		FieldSpec{"c", Int16Type},
	)

	wantOffsets := map[string]int{"a": 0, "b": 8, "c": 16}
	for name, want := range wantOffsets {
		f, ok := d.Field(name)
		if !ok {
			t.Fatalf("field %q missing", name)
		}
		if f.Offset != want {
			t.Errorf("offset of %q = %d, want %d", name, f.Offset, want)
		}
	}
	if d.Size() != 24 {
		t.Errorf("Size() = %d, want 24", d.Size())
	}
	if d.Align() != 8 {
		t.Errorf("Align() = %d, want 8", d.Align())
	}
	if Padding(d) != 24-11 {
		t.Errorf("Padding() = %d, want %d", Padding(d), 24-11)
	}
	if got, want := d.String(), "{a: uint8, b: float64, c: int16}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStructErrors(t *testing.T) {
	t.Parallel()
	unsized, _ := UnsizedArrayOf(Int32Type)
	tests := []struct {
		name   string
		fields []FieldSpec
	}{
		{"duplicate field", []FieldSpec{{"x", Int32Type}, {"x", Float32Type}}},
		{"empty name", []FieldSpec{{"", Int32Type}}},
		{"nil type", []FieldSpec{{"x", nil}}},
		{"unsized field", []FieldSpec{{"xs", unsized}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStruct(tt.fields...)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("NewStruct() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestArraySize(t *testing.T) {
	t.Parallel()
	point := mustStruct(t, FieldSpec{"x", Float32Type}, FieldSpec{"y", Float32Type})
	for _, elem := range []*Descr{Int8Type, Uint16Type, Float64Type, Int32x4Descr, point, AnyType} {
		for _, n := range []int{1, 3, 32} {
			d, err := ArrayOf(elem, n)
			if err != nil {
				t.Fatalf("ArrayOf(%s, %d): %v", elem, n, err)
			}
			if d.Size() != n*elem.Size() {
				t.Errorf("size of %s = %d, want %d", d, d.Size(), n*elem.Size())
			}
			if d.Opaque() != elem.Opaque() {
				t.Errorf("opacity of %s = %v, want %v", d, d.Opaque(), elem.Opaque())
			}
		}
	}
}

func TestArrayErrors(t *testing.T) {
	t.Parallel()
	unsized, _ := UnsizedArrayOf(Int32Type)
	tests := []struct {
		name string
		elem *Descr
		n    int
	}{
		{"zero length", Int32Type, 0},
		{"negative length", Int32Type, -4},
		{"unsized element", unsized, 2},
		{"too large", Float64Type, 1 << 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ArrayOf(tt.elem, tt.n)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("ArrayOf() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestDescrRepr(t *testing.T) {
	t.Parallel()
	point := mustStruct(t, FieldSpec{"x", Float32Type})
	rows := mustArray(t, Float32Type, 5, 4)
	unsizedRows, _ := UnsizedArrayOf(mustArray(t, Float32Type, 4))

	tests := []struct {
		d    *Descr
		want string
	}{
		{Uint8ClampedType, "uint8Clamped"},
		{ObjectType, "Object"},
		{Float32x4Descr, "float32x4"},
		{rows, "float32[5][4]"},
		{unsizedRows, "float32[][4]"},
		{mustArray(t, point, 4), "{x: float32}[4]"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if rows.Elem().Len() != 4 || rows.Len() != 5 {
		t.Errorf("float32[5][4] has outer %d inner %d, want 5 and 4", rows.Len(), rows.Elem().Len())
	}
}

func TestEquivalence(t *testing.T) {
	t.Parallel()
	a := mustStruct(t, FieldSpec{"x", Int32Type}, FieldSpec{"y", Int32Type})
	b := mustStruct(t, FieldSpec{"x", Int32Type}, FieldSpec{"y", Int32Type})
	c := mustStruct(t, FieldSpec{"y", Int32Type}, FieldSpec{"x", Int32Type})

	if a == b {
		t.Fatal("separately constructed structs share identity")
	}
	if !a.Equivalent(b) {
		t.Error("structurally equal structs are not equivalent")
	}
	if a.Equivalent(c) {
		t.Error("field order must matter for equivalence")
	}
	if mustArray(t, Int32Type, 4).Equivalent(mustArray(t, Int32Type, 5)) {
		t.Error("array lengths must matter for equivalence")
	}
}

func TestSizedUnsized(t *testing.T) {
	t.Parallel()
	u, err := UnsizedArrayOf(Int16Type)
	if err != nil {
		t.Fatal(err)
	}
	if u.IsSized() || u.Size() != 0 {
		t.Errorf("unsized array reports size %d", u.Size())
	}
	s, err := u.Sized(6)
	if err != nil {
		t.Fatal(err)
	}
	if s.Size() != 12 || s.String() != "int16[6]" {
		t.Errorf("Sized(6) = %s of %d bytes", s, s.Size())
	}
	back, err := s.Unsized()
	if err != nil || !back.Equivalent(u) {
		t.Errorf("Unsized() = %v, %v; want %s", back, err, u)
	}
	if _, err := Int32Type.Sized(3); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Sized on scalar error = %v", err)
	}
}

func TestBaseAndRank(t *testing.T) {
	t.Parallel()
	d := mustArray(t, Uint8Type, 2, 3, 4)
	base, n := d.Base()
	if base != Uint8Type || n != 24 {
		t.Errorf("Base() = %s, %d; want uint8, 24", base, n)
	}
	if d.Rank() != 3 {
		t.Errorf("Rank() = %d, want 3", d.Rank())
	}
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()
	if !errors.Is(ErrIncompatibleShape, ErrInvalidArgument) {
		t.Error("ErrIncompatibleShape should be an ErrInvalidArgument")
	}
	if !errors.Is(ErrEmptyReduce, ErrRange) {
		t.Error("ErrEmptyReduce should be an ErrRange")
	}
	if errors.Is(ErrUnattached, ErrInvalidArgument) {
		t.Error("ErrUnattached must stay distinct")
	}
}
