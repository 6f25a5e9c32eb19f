package core

// AlignSize rounds size up to align, which must be a power of two.
func AlignSize(size, align int) int {
	return (size + align - 1) &^ (align - 1)
}

// Padding reports the bytes of a struct not covered by any field.
func Padding(d *Descr) int {
	if d.Kind() != KindStruct {
		return 0
	}
	used := 0
	for _, f := range d.fields {
		used += f.Type.Size()
	}
	return d.Size() - used
}
