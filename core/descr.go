package core

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags the representation of a type descriptor.
type Kind uint8

const (
	KindScalar Kind = iota + 1
	KindReference
	KindVector4
	KindStruct
	KindSizedArray
	KindUnsizedArray
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindReference:
		return "reference"
	case KindVector4:
		return "vector4"
	case KindStruct:
		return "struct"
	case KindSizedArray:
		return "sized array"
	case KindUnsizedArray:
		return "unsized array"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ScalarType enumerates the numeric scalar encodings.
type ScalarType uint8

const (
	Int8 ScalarType = iota
	Uint8
	Uint8Clamped
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

var scalarInfo = [...]struct {
	name string
	size int
}{
	Int8:         {"int8", 1},
	Uint8:        {"uint8", 1},
	Uint8Clamped: {"uint8Clamped", 1},
	Int16:        {"int16", 2},
	Uint16:       {"uint16", 2},
	Int32:        {"int32", 4},
	Uint32:       {"uint32", 4},
	Float32:      {"float32", 4},
	Float64:      {"float64", 8},
}

func (s ScalarType) String() string { return scalarInfo[s].name }

// Size is the width of the scalar in bytes.
func (s ScalarType) Size() int { return scalarInfo[s].size }

// ReferenceType enumerates the reference slot flavors.
type ReferenceType uint8

const (
	Any ReferenceType = iota
	Object
	String
)

func (r ReferenceType) String() string {
	switch r {
	case Object:
		return "Object"
	case String:
		return "string"
	}
	return "any"
}

// Vector4Type enumerates the four-lane vector encodings.
type Vector4Type uint8

const (
	Int32x4Type Vector4Type = iota
	Float32x4Type
)

func (v Vector4Type) String() string {
	if v == Float32x4Type {
		return "float32x4"
	}
	return "int32x4"
}

// refSlotSize is the width of a stored reference handle.
const refSlotSize = 8

// maxTypeSize bounds the byte size of any sized descriptor.
const maxTypeSize = math.MaxUint32

// Field is one member of a struct descriptor.
type Field struct {
	Name   string
	Type   *Descr
	Offset int
}

// FieldSpec names a field when declaring a struct.
type FieldSpec struct {
	Name string
	Type *Descr
}

// Descr is an immutable description of a binary layout. Descriptors are
// interchangeable when their String forms are equal.
type Descr struct {
	kind   Kind
	scalar ScalarType
	ref    ReferenceType
	vec    Vector4Type

	size   int
	align  int
	opaque bool
	repr   string

	fields []Field
	index  map[string]int

	elem   *Descr
	length int
}

// Predeclared descriptors.
var (
	Int8Type         = scalarDescr(Int8)
	Uint8Type        = scalarDescr(Uint8)
	Uint8ClampedType = scalarDescr(Uint8Clamped)
	Int16Type        = scalarDescr(Int16)
	Uint16Type       = scalarDescr(Uint16)
	Int32Type        = scalarDescr(Int32)
	Uint32Type       = scalarDescr(Uint32)
	Float32Type      = scalarDescr(Float32)
	Float64Type      = scalarDescr(Float64)

	AnyType    = refDescr(Any)
	ObjectType = refDescr(Object)
	StringType = refDescr(String)

	Int32x4Descr   = vectorDescr(Int32x4Type)
	Float32x4Descr = vectorDescr(Float32x4Type)
)

func scalarDescr(s ScalarType) *Descr {
	n := s.Size()
	return &Descr{kind: KindScalar, scalar: s, size: n, align: n, repr: s.String()}
}

func refDescr(r ReferenceType) *Descr {
	return &Descr{kind: KindReference, ref: r, size: refSlotSize, align: refSlotSize, opaque: true, repr: r.String()}
}

func vectorDescr(v Vector4Type) *Descr {
	return &Descr{kind: KindVector4, vec: v, size: 16, align: 16, repr: v.String()}
}

// ScalarDescr returns the predeclared descriptor for s.
func ScalarDescr(s ScalarType) *Descr {
	switch s {
	case Int8:
		return Int8Type
	case Uint8:
		return Uint8Type
	case Uint8Clamped:
		return Uint8ClampedType
	case Int16:
		return Int16Type
	case Uint16:
		return Uint16Type
	case Int32:
		return Int32Type
	case Uint32:
		return Uint32Type
	case Float32:
		return Float32Type
	}
	return Float64Type
}

// NewStruct lays out fields in declaration order, padding each to its
// alignment. The struct is as aligned as its most aligned field.
func NewStruct(fields ...FieldSpec) (*Descr, error) {
	d := &Descr{kind: KindStruct, align: 1, index: make(map[string]int, len(fields))}
	var repr strings.Builder
	repr.WriteByte('{')
	off := 0
	for i, f := range fields {
		if f.Name == "" {
			return nil, invalidf("struct field %d has no name", i)
		}
		if f.Type == nil {
			return nil, invalidf("struct field %q has no type", f.Name)
		}
		if _, dup := d.index[f.Name]; dup {
			return nil, invalidf("duplicate struct field %q", f.Name)
		}
		if !f.Type.IsSized() {
			return nil, invalidf("struct field %q has unsized type %s", f.Name, f.Type)
		}
		off = AlignSize(off, f.Type.align)
		d.fields = append(d.fields, Field{Name: f.Name, Type: f.Type, Offset: off})
		d.index[f.Name] = i
		off += f.Type.size
		if off > maxTypeSize {
			return nil, invalidf("struct size exceeds %d bytes", uint64(maxTypeSize))
		}
		if f.Type.align > d.align {
			d.align = f.Type.align
		}
		d.opaque = d.opaque || f.Type.opaque
		if i > 0 {
			repr.WriteString(", ")
		}
		repr.WriteString(f.Name)
		repr.WriteString(": ")
		repr.WriteString(f.Type.repr)
	}
	repr.WriteByte('}')
	d.size = AlignSize(off, d.align)
	d.repr = repr.String()
	return d, nil
}

// ArrayOf returns the sized array type elem[n].
func ArrayOf(elem *Descr, n int) (*Descr, error) {
	if elem == nil {
		return nil, invalidf("array element type is nil")
	}
	if n <= 0 {
		return nil, invalidf("array length %d is not positive", n)
	}
	if !elem.IsSized() {
		return nil, invalidf("array element type %s is unsized", elem)
	}
	if elem.size > 0 && n > maxTypeSize/elem.size {
		return nil, invalidf("array %s[%d] exceeds %d bytes", elem, n, uint64(maxTypeSize))
	}
	return &Descr{
		kind:   KindSizedArray,
		size:   n * elem.size,
		align:  elem.align,
		opaque: elem.opaque,
		repr:   arrayRepr(elem, strconv.Itoa(n)),
		elem:   elem,
		length: n,
	}, nil
}

// UnsizedArrayOf returns the array type elem[] whose length is fixed per view.
func UnsizedArrayOf(elem *Descr) (*Descr, error) {
	if elem == nil {
		return nil, invalidf("array element type is nil")
	}
	if !elem.IsSized() {
		return nil, invalidf("array element type %s is unsized", elem)
	}
	return &Descr{
		kind:   KindUnsizedArray,
		align:  elem.align,
		opaque: elem.opaque,
		repr:   arrayRepr(elem, ""),
		elem:   elem,
	}, nil
}

// ArrayOfDims nests sized arrays around elem, outermost dimension first:
// ArrayOfDims(float32, 5, 4) is float32[5][4], five rows of float32[4].
func ArrayOfDims(elem *Descr, dims ...int) (*Descr, error) {
	if len(dims) == 0 {
		return nil, invalidf("no array dimensions")
	}
	d := elem
	for i := len(dims) - 1; i >= 0; i-- {
		var err error
		if d, err = ArrayOf(d, dims[i]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// arrayRepr renders elem[dim] with dimensions listed outermost first.
func arrayRepr(elem *Descr, dim string) string {
	base := elem
	var inner strings.Builder
	for base.kind == KindSizedArray {
		inner.WriteByte('[')
		inner.WriteString(strconv.Itoa(base.length))
		inner.WriteByte(']')
		base = base.elem
	}
	return base.repr + "[" + dim + "]" + inner.String()
}

// Sized pairs an unsized array type with a length.
func (d *Descr) Sized(n int) (*Descr, error) {
	if d.kind != KindUnsizedArray {
		return nil, invalidf("%s is not an unsized array", d)
	}
	return ArrayOf(d.elem, n)
}

// Unsized returns the unsized variant of an array type.
func (d *Descr) Unsized() (*Descr, error) {
	switch d.kind {
	case KindUnsizedArray:
		return d, nil
	case KindSizedArray:
		return UnsizedArrayOf(d.elem)
	}
	return nil, invalidf("%s is not an array", d)
}

func (d *Descr) Kind() Kind { return d.kind }

// Size is the byte size of one value; zero for unsized arrays.
func (d *Descr) Size() int { return d.size }

func (d *Descr) Align() int { return d.align }

// Opaque reports whether values of d can hold references, in which case
// their bytes are never exposed.
func (d *Descr) Opaque() bool { return d.opaque }

func (d *Descr) String() string {
	if d == nil {
		return "<nil>"
	}
	return d.repr
}

// Equivalent compares canonical string forms.
func (d *Descr) Equivalent(o *Descr) bool {
	return d != nil && o != nil && d.repr == o.repr
}

// Elem is the element type of an array, or nil.
func (d *Descr) Elem() *Descr { return d.elem }

// Len is the length of a sized array, or zero.
func (d *Descr) Len() int { return d.length }

// Fields returns a copy of the struct's fields.
func (d *Descr) Fields() []Field {
	return append([]Field(nil), d.fields...)
}

// Field looks up a struct field by name.
func (d *Descr) Field(name string) (Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return Field{}, false
	}
	return d.fields[i], true
}

func (d *Descr) Scalar() ScalarType       { return d.scalar }
func (d *Descr) Reference() ReferenceType { return d.ref }
func (d *Descr) Vector() Vector4Type      { return d.vec }

// IsSimple reports whether values of d are loaded by value rather than as views.
func (d *Descr) IsSimple() bool {
	return d.kind == KindScalar || d.kind == KindReference || d.kind == KindVector4
}

// IsComposite reports whether loads of d produce derived views.
func (d *Descr) IsComposite() bool { return !d.IsSimple() }

func (d *Descr) IsArray() bool {
	return d.kind == KindSizedArray || d.kind == KindUnsizedArray
}

func (d *Descr) IsSized() bool { return d.kind != KindUnsizedArray }

// Base strips every array layer and returns the innermost element type
// together with the number of elements the sized layers contribute.
func (d *Descr) Base() (*Descr, int) {
	n := 1
	if d.kind == KindUnsizedArray {
		d = d.elem
	}
	for d.kind == KindSizedArray {
		n *= d.length
		d = d.elem
	}
	return d, n
}

// Rank counts array layers, an unsized outermost layer included.
func (d *Descr) Rank() int {
	r := 0
	for d.IsArray() {
		r++
		d = d.elem
	}
	return r
}
