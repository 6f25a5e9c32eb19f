package core

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestScalarConversions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		typ  *Descr
		in   any
		want float64
	}{
		{"int8 wraps", Int8Type, 200, -56},
		{"int8 truncates", Int8Type, -3.9, -3},
		{"uint8 wraps negative", Uint8Type, -1, 255},
		{"uint8 NaN", Uint8Type, math.NaN(), 0},
		{"clamped high", Uint8ClampedType, 300, 255},
		{"clamped low", Uint8ClampedType, -5, 0},
		{"clamped half to even", Uint8ClampedType, 2.5, 2},
		{"clamped half to even up", Uint8ClampedType, 3.5, 4},
		{"int16 wraps", Int16Type, 40000, 40000 - 65536},
		{"uint16 wraps", Uint16Type, 65537, 1},
		{"int32 wraps", Int32Type, float64(1 << 31), -(1 << 31)},
		{"uint32 negative", Uint32Type, -1, 4294967295},
		{"int32 infinity", Int32Type, math.Inf(1), 0},
		{"float32 narrows", Float32Type, 0.1, float64(float32(0.1))},
		{"bool", Int32Type, true, 1},
		{"numeric string", Int32Type, " 42 ", 42},
		{"empty string", Float64Type, "", 0},
		{"hex string", Float64Type, "0x10", 16},
		{"octal string", Float64Type, "0o17", 15},
		{"binary string", Float64Type, "0b101", 5},
		{"exponent string", Float64Type, "-1.5e2", -150},
		{"leading dot", Float64Type, ".5", 0.5},
		{"infinity string", Float64Type, "-Infinity", math.Inf(-1)},
		{"huge string", Float64Type, "1e400", math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.typ, tt.in)
			if err != nil {
				t.Fatalf("Coerce: %v", err)
			}
			if got.(float64) != tt.want {
				t.Errorf("Coerce(%s, %v) = %v, want %v", tt.typ, tt.in, got, tt.want)
			}
		})
	}
}

func TestGetSetIdempotent(t *testing.T) {
	t.Parallel()
	types := []*Descr{
		Int8Type, Uint8Type, Uint8ClampedType, Int16Type, Uint16Type,
		Int32Type, Uint32Type, Float32Type, Float64Type, Int32x4Descr, Float32x4Descr,
	}
	for _, d := range types {
		v, err := NewArray(d, 1)
		if err != nil {
			t.Fatal(err)
		}
		raw, _ := v.Bytes()
		for i := range raw {
			raw[i] = byte(0x9d + 7*i)
		}
		if d == Float32Type || d == Float64Type || d == Float32x4Descr {
			// NaN payloads are canonicalized by Get.
			raw[len(raw)-1] = 0x40
			if d == Float32x4Descr {
				for i := 3; i < 16; i += 4 {
					raw[i] = 0x40
				}
			}
		}
		before := bytes.Clone(raw)

		val, err := Get(d, v, 0)
		if err != nil {
			t.Fatalf("Get %s: %v", d, err)
		}
		if err := Set(d, v, 0, val); err != nil {
			t.Fatalf("Set %s: %v", d, err)
		}
		if !bytes.Equal(before, raw) {
			t.Errorf("%s: get then set changed % x to % x", d, before, raw)
		}
	}
}

func TestNumberStringsNaN(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"inf", "nan", "NaN", "infinity", "-0x10", "0x", "0x1p4", "1_000", "1e", "abc", "+-1"} {
		f, err := ToNumber(in)
		if err != nil {
			t.Fatalf("ToNumber(%q): %v", in, err)
		}
		if !math.IsNaN(f) {
			t.Errorf("ToNumber(%q) = %v, want NaN", in, f)
		}
	}
}

func TestStoreScalar(t *testing.T) {
	t.Parallel()
	b := make([]byte, 4)
	if err := StoreScalar(Int16, b, 70000); err != nil {
		t.Fatal(err)
	}
	if got := LoadScalar(Int16, b); got != 70000-65536 {
		t.Errorf("int16 round trip = %v, want %v", got, 70000-65536)
	}
	if err := StoreScalar(Float32, b, "0x20"); err != nil {
		t.Fatal(err)
	}
	if got := LoadScalar(Float32, b); got != 32 {
		t.Errorf("float32 round trip = %v, want 32", got)
	}
	if err := StoreScalar(Int32, b, struct{}{}); !errors.Is(err, ErrTypeCoercion) {
		t.Errorf("StoreScalar of struct error = %v, want ErrTypeCoercion", err)
	}
}

func TestNaNCanonicalized(t *testing.T) {
	t.Parallel()
	v, _ := NewArray(Float32Type, 1)
	raw, _ := v.Bytes()
	binary.LittleEndian.PutUint32(raw, 0x7F812345)
	val, err := v.Index(0)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(val.(float64)) {
		t.Fatalf("Index(0) = %v, want NaN", val)
	}
	if err := v.SetIndex(0, val); err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))) {
		t.Errorf("stored bits %#x are not a NaN", binary.LittleEndian.Uint32(raw))
	}
}

func TestReferenceHandlesBounded(t *testing.T) {
	// Not parallel: counts entries of the shared handle table.
	d := mustArray(t, StringType, 1)
	v, err := New(d)
	if err != nil {
		t.Fatal(err)
	}
	obj := &struct{ n int }{}
	before := refCount()
	for i := 0; i < 10000; i++ {
		if err := v.SetIndex(0, "same"); err != nil {
			t.Fatal(err)
		}
	}
	w, _ := NewArray(ObjectType, 4)
	for i := 0; i < 1000; i++ {
		if err := w.SetIndex(i%4, obj); err != nil {
			t.Fatal(err)
		}
	}
	if grown := refCount() - before; grown > 2 {
		t.Errorf("handle table grew by %d entries, want at most 2", grown)
	}
	if got, _ := v.Index(0); got != "same" {
		t.Errorf("Index(0) = %v, want \"same\"", got)
	}
	if got, _ := w.Index(3); got != obj {
		t.Errorf("Index(3) = %v, want the stored pointer", got)
	}
}

func TestVectorLoadStore(t *testing.T) {
	t.Parallel()
	v, _ := NewArray(Float32x4Descr, 2)
	want := Float32x4{1, -2, 3.5, 0}
	if err := v.SetIndex(1, want); err != nil {
		t.Fatal(err)
	}
	got, _ := v.Index(1)
	if got.(Float32x4) != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if err := v.SetIndex(0, Int32x4{1, 2, 3, 4}); !errors.Is(err, ErrTypeCoercion) {
		t.Errorf("storing int32x4 as float32x4 error = %v, want ErrTypeCoercion", err)
	}
	if err := v.SetIndex(0, 1.0); !errors.Is(err, ErrTypeCoercion) {
		t.Errorf("storing number as vector error = %v, want ErrTypeCoercion", err)
	}
}

func TestReferenceSlots(t *testing.T) {
	t.Parallel()
	d := mustStruct(t,
		FieldSpec{"label", StringType},
		FieldSpec{"payload", AnyType},
		FieldSpec{"owner", ObjectType},
	)
	v, err := New(d)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := v.Field("label"); got != "" {
		t.Errorf("zeroed string slot = %q", got)
	}
	if got, _ := v.Field("owner"); got != nil {
		t.Errorf("zeroed object slot = %v", got)
	}

	owner := map[string]any{"k": 1}
	if err := v.SetField("label", 12.5); err != nil {
		t.Fatal(err)
	}
	if err := v.SetField("payload", []int{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := v.SetField("owner", owner); err != nil {
		t.Fatal(err)
	}
	if got, _ := v.Field("label"); got != "12.5" {
		t.Errorf("label = %v, want \"12.5\"", got)
	}
	if got, _ := v.Field("payload"); len(got.([]int)) != 2 {
		t.Errorf("payload = %v", got)
	}
	if err := v.SetField("owner", 3); !errors.Is(err, ErrTypeCoercion) {
		t.Errorf("storing number in Object slot error = %v, want ErrTypeCoercion", err)
	}
}

func TestStructStore(t *testing.T) {
	t.Parallel()
	point := mustStruct(t, FieldSpec{"x", Float32Type}, FieldSpec{"y", Float32Type})
	line := mustStruct(t, FieldSpec{"from", point}, FieldSpec{"to", point})

	v, err := NewFrom(line, map[string]any{
		"from": map[string]any{"x": 1, "y": 2},
		"to":   map[string]any{"x": 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	to, _ := v.Field("to")
	y, _ := to.(*View).Field("y")
	if !math.IsNaN(y.(float64)) {
		t.Errorf("missing field stored %v, want NaN", y)
	}
	if got := Format(v); got != "{from: {x: 1, y: 2}, to: {x: 3, y: NaN}}" {
		t.Errorf("Format() = %s", got)
	}

	// A struct view of a different but compatible type is copied by field.
	xy := mustStruct(t, FieldSpec{"y", Int32Type}, FieldSpec{"x", Int32Type})
	src, _ := NewFrom(xy, map[string]any{"x": 7, "y": 8})
	if err := v.SetField("from", src); err != nil {
		t.Fatal(err)
	}
	from, _ := v.Field("from")
	if got := Format(from); got != "{x: 7, y: 8}" {
		t.Errorf("from = %s", got)
	}

	if err := v.SetField("from", 4); !errors.Is(err, ErrTypeCoercion) {
		t.Errorf("storing number as struct error = %v, want ErrTypeCoercion", err)
	}
}

func TestArrayStore(t *testing.T) {
	t.Parallel()
	d := mustArray(t, Int32Type, 2, 3)
	v, err := NewFrom(d, [][]int{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	if got := Format(v); got != "[[1, 2, 3], [4, 5, 6]]" {
		t.Errorf("Format() = %s", got)
	}

	if err := v.SetIndex(0, []int{1, 2}); !errors.Is(err, ErrTypeCoercion) {
		t.Errorf("length mismatch error = %v, want ErrTypeCoercion", err)
	}
	if err := v.SetIndex(0, "abc"); !errors.Is(err, ErrTypeCoercion) {
		t.Errorf("string as array error = %v, want ErrTypeCoercion", err)
	}

	// Arrays of a different element type copy element by element.
	f, _ := NewFrom(mustArray(t, Float64Type, 3), []float64{0.5, 1.5, -2.5})
	if err := v.SetIndex(1, f); err != nil {
		t.Fatal(err)
	}
	if got := Format(v); got != "[[1, 2, 3], [0, 1, -2]]" {
		t.Errorf("Format() = %s", got)
	}
}

func TestFastPathCopiesBytes(t *testing.T) {
	t.Parallel()
	point := mustStruct(t, FieldSpec{"x", Float64Type}, FieldSpec{"y", Float64Type})
	arr, _ := NewArray(point, 2)
	src, _ := NewFrom(point, map[string]any{"x": math.NaN(), "y": 1})
	if err := arr.SetIndex(1, src); err != nil {
		t.Fatal(err)
	}
	got, _ := arr.Bytes()
	want, _ := src.Bytes()
	if !bytes.Equal(got[16:], want) {
		t.Errorf("fast path did not copy raw bytes")
	}

	src.Owner().Detach()
	if err := arr.SetIndex(0, src); !errors.Is(err, ErrUnattached) {
		t.Errorf("copy from detached view error = %v, want ErrUnattached", err)
	}
}

func TestNewFromUnsized(t *testing.T) {
	t.Parallel()
	u, _ := UnsizedArrayOf(Uint8Type)
	v, err := NewFrom(u, []int{1, 2, 300})
	if err != nil {
		t.Fatal(err)
	}
	if v.Len() != 3 || Format(v) != "[1, 2, 44]" {
		t.Errorf("NewFrom = %s", Format(v))
	}
	empty, err := NewFrom(u, []int{})
	if err != nil || empty.Len() != 0 {
		t.Errorf("empty NewFrom = %v, %v", empty, err)
	}
}
