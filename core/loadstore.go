package core

import "reflect"

// Get loads the value of type d stored at byte offset off of v. Scalars load
// as float64, references as the stored Go value, vectors as Int32x4 or
// Float32x4. Structs and arrays load as views derived from v.
//
// Float lanes pass through float64, so a NaN loads as a quiet NaN and its
// payload bits are not preserved by a later Set.
func Get(d *Descr, v *View, off int) (any, error) {
	switch d.kind {
	case KindScalar:
		b, err := v.span(off, d.size, false)
		if err != nil {
			return nil, err
		}
		return LoadScalar(d.scalar, b), nil
	case KindReference:
		b, err := v.span(off, d.size, false)
		if err != nil {
			return nil, err
		}
		return loadReference(d.ref, b), nil
	case KindVector4:
		b, err := v.span(off, d.size, false)
		if err != nil {
			return nil, err
		}
		return loadVector(d.vec, b), nil
	case KindStruct, KindSizedArray:
		if _, err := v.span(off, d.size, false); err != nil {
			return nil, err
		}
		return v.Derive(off, d, 0), nil
	case KindUnsizedArray:
		if off != 0 || !d.Equivalent(v.descr) {
			return nil, invalidf("cannot load %s at offset %d of %s", d, off, v.descr)
		}
		if !v.IsAttached() {
			return nil, unattached(v)
		}
		return v.Derive(0, d, v.length), nil
	}
	return nil, invalidf("unknown kind %s", d.kind)
}

// Set stores from as a value of type d at byte offset off of v.
//
// A view of an equivalent sized type is copied byte for byte. Otherwise
// structs accept a struct view or map[string]any (missing fields store nil),
// and arrays accept an array view or any Go slice or array of the same
// length. Attachment is re-checked on every recursive store.
func Set(d *Descr, v *View, off int, from any) error {
	if !v.IsAttached() {
		return unattached(v)
	}
	if src, ok := from.(*View); ok && d.IsSized() && src.descr.Equivalent(d) {
		return CopyBytes(v, off, src, 0, d.size)
	}

	switch d.kind {
	case KindScalar:
		f, err := ToNumber(from)
		if err != nil {
			return coercef("cannot store %T as %s", from, d)
		}
		b, err := v.span(off, d.size, true)
		if err != nil {
			return err
		}
		storeNumber(d.scalar, b, f)
		return nil
	case KindReference:
		b, err := v.span(off, d.size, true)
		if err != nil {
			return err
		}
		return storeReference(d.ref, b, from)
	case KindVector4:
		var tmp [16]byte
		if err := storeVector(d.vec, tmp[:], from); err != nil {
			return err
		}
		b, err := v.span(off, d.size, true)
		if err != nil {
			return err
		}
		copy(b, tmp[:])
		return nil
	case KindStruct:
		return setStruct(d, v, off, from)
	case KindSizedArray:
		return setArray(d.elem, d.length, v, off, from)
	case KindUnsizedArray:
		if off != 0 || !d.Equivalent(v.descr) {
			return invalidf("cannot store %s at offset %d of %s", d, off, v.descr)
		}
		return setArray(d.elem, v.length, v, off, from)
	}
	return invalidf("unknown kind %s", d.kind)
}

func setStruct(d *Descr, v *View, off int, from any) error {
	var get func(name string) (any, error)
	switch src := from.(type) {
	case *View:
		if src.descr.kind != KindStruct {
			return coercef("cannot store %s as %s", src.descr, d)
		}
		get = func(name string) (any, error) {
			if _, ok := src.descr.Field(name); !ok {
				return nil, nil
			}
			return src.Field(name)
		}
	case map[string]any:
		get = func(name string) (any, error) { return src[name], nil }
	default:
		return coercef("cannot store %T as %s", from, d)
	}
	for _, f := range d.fields {
		val, err := get(f.Name)
		if err != nil {
			return err
		}
		if err := Set(f.Type, v, off+f.Offset, val); err != nil {
			return err
		}
	}
	return nil
}

func setArray(elem *Descr, n int, v *View, off int, from any) error {
	if src, ok := from.(*View); ok {
		if !src.descr.IsArray() {
			return coercef("cannot store %s as an array", src.descr)
		}
		if src.Len() != n {
			return coercef("cannot store %s of length %d into %s[%d]", src.descr, src.Len(), elem, n)
		}
		for i := 0; i < n; i++ {
			val, err := src.Index(i)
			if err != nil {
				return err
			}
			if err := Set(elem, v, off+i*elem.size, val); err != nil {
				return err
			}
		}
		return nil
	}

	rv := reflect.ValueOf(from)
	if k := rv.Kind(); k != reflect.Slice && k != reflect.Array {
		return coercef("cannot store %T as an array", from)
	}
	if rv.Len() != n {
		return coercef("cannot store %T of length %d into %s[%d]", from, rv.Len(), elem, n)
	}
	for i := 0; i < n; i++ {
		if err := Set(elem, v, off+i*elem.size, rv.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// arrayLen reports the length of an array-like value.
func arrayLen(val any) (int, bool) {
	if src, ok := val.(*View); ok {
		if !src.descr.IsArray() {
			return 0, false
		}
		return src.Len(), true
	}
	rv := reflect.ValueOf(val)
	if k := rv.Kind(); k == reflect.Slice || k == reflect.Array {
		return rv.Len(), true
	}
	return 0, false
}
