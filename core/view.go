package core

// View is a typed handle over a byte range of a Buffer. Views are cheap:
// deriving one never copies and never validates. Attachment and bounds are
// checked on every access instead, since the owner can be detached at any
// moment.
type View struct {
	owner  *Buffer
	offset int
	length int // element count, unsized arrays only
	descr  *Descr
	win    *window
	opaque bool
}

// window is the absolute byte range of the owner a view may store into.
type window struct {
	lo, hi int
}

// Storage locates a transparent view's bytes.
type Storage struct {
	Buffer     *Buffer
	ByteOffset int
	ByteLength int
}

// New allocates a zeroed owning view of a sized struct or array type.
func New(d *Descr) (*View, error) {
	if d == nil {
		return nil, invalidf("nil type")
	}
	switch d.kind {
	case KindStruct, KindSizedArray:
	case KindUnsizedArray:
		return nil, invalidf("%s needs a length", d)
	default:
		return nil, invalidf("cannot instantiate %s type %s", d.kind, d)
	}
	return &View{owner: NewBuffer(d.size), descr: d}, nil
}

// NewUnsized allocates a zeroed owning view of an unsized array type with
// n elements. n may be zero.
func NewUnsized(d *Descr, n int) (*View, error) {
	if d == nil || d.kind != KindUnsizedArray {
		return nil, invalidf("%s is not an unsized array", d)
	}
	if n < 0 {
		return nil, invalidf("array length %d is negative", n)
	}
	if d.elem.size > 0 && n > maxTypeSize/d.elem.size {
		return nil, invalidf("array %s of %d elements is too large", d, n)
	}
	return &View{owner: NewBuffer(n * d.elem.size), descr: d, length: n}, nil
}

// NewArray allocates elem[] with n elements.
func NewArray(elem *Descr, n int) (*View, error) {
	d, err := UnsizedArrayOf(elem)
	if err != nil {
		return nil, err
	}
	return NewUnsized(d, n)
}

// NewFrom allocates an owning view of d initialized from val. For unsized
// array types the length is taken from val.
func NewFrom(d *Descr, val any) (*View, error) {
	if d == nil {
		return nil, invalidf("nil type")
	}
	var (
		v   *View
		err error
	)
	if d.kind == KindUnsizedArray {
		n, ok := arrayLen(val)
		if !ok {
			return nil, coercef("cannot convert %T to %s", val, d)
		}
		v, err = NewUnsized(d, n)
	} else {
		v, err = New(d)
	}
	if err != nil {
		return nil, err
	}
	if err := Set(d, v, 0, val); err != nil {
		return nil, err
	}
	return v, nil
}

// ViewOf wraps an existing buffer region. length is used only for unsized
// array types.
func ViewOf(buf *Buffer, byteOffset int, d *Descr, length int) *View {
	return &View{owner: buf, offset: byteOffset, descr: d, length: length}
}

// Derive returns a view over the same owner at byteOffset relative to v.
// Nothing is checked until the derived view is used.
func (v *View) Derive(byteOffset int, d *Descr, length int) *View {
	return &View{
		owner:  v.owner,
		offset: v.offset + byteOffset,
		length: length,
		descr:  d,
		win:    v.win,
		opaque: v.opaque,
	}
}

// DeriveOpaque is Derive for handles passed to user callbacks as
// out-pointers: their bytes are never exposed through Storage.
func (v *View) DeriveOpaque(byteOffset int, d *Descr, length int) *View {
	w := v.Derive(byteOffset, d, length)
	w.opaque = true
	return w
}

// Retarget redirects v to byteOffset relative to base, keeping v's type.
// It lets one handle walk a slice without allocating per element; callers
// must not hand such a handle to code that may retain it.
func (v *View) Retarget(base *View, byteOffset int) {
	v.owner = base.owner
	v.offset = base.offset + byteOffset
	v.win = base.win
}

// Restrict returns a view that may only store into bytes [lo, hi) relative
// to v, intersected with any window v already has. Loads are unaffected.
// Restrict(0, 0) yields a read-only view.
func (v *View) Restrict(lo, hi int) *View {
	w := &window{lo: v.offset + lo, hi: v.offset + hi}
	if v.win != nil {
		w.lo = max(w.lo, v.win.lo)
		w.hi = min(w.hi, v.win.hi)
	}
	if w.hi < w.lo {
		w.hi = w.lo
	}
	r := *v
	r.win = w
	return &r
}

func (v *View) Descr() *Descr  { return v.descr }
func (v *View) Owner() *Buffer { return v.owner }
func (v *View) Offset() int    { return v.offset }
func (v *View) IsOpaque() bool { return v.opaque || v.descr.opaque }

// Len is the element count of an array view, or zero.
func (v *View) Len() int {
	switch v.descr.kind {
	case KindUnsizedArray:
		return v.length
	case KindSizedArray:
		return v.descr.length
	}
	return 0
}

// ByteLen is the number of bytes the view covers.
func (v *View) ByteLen() int {
	if v.descr.kind == KindUnsizedArray {
		return v.length * v.descr.elem.size
	}
	return v.descr.size
}

// IsAttached reports whether the owner is live and still covers the view.
func (v *View) IsAttached() bool {
	data := v.owner.Bytes()
	return data != nil && v.offset >= 0 && v.offset+v.ByteLen() <= len(data)
}

// Validate reports ErrUnattached when the view can no longer be used.
func (v *View) Validate() error {
	if !v.IsAttached() {
		return unattached(v)
	}
	return nil
}

// IsZero reports whether every byte of the view is zero, for opaque views
// too. A zero reference slot is the empty reference.
func (v *View) IsZero() (bool, error) {
	b, err := v.span(0, v.ByteLen(), false)
	if err != nil {
		return false, err
	}
	for _, c := range b {
		if c != 0 {
			return false, nil
		}
	}
	return true, nil
}

// Type is the concrete sized type of the view's value.
func (v *View) Type() (*Descr, error) {
	if v.descr.kind != KindUnsizedArray {
		return v.descr, nil
	}
	if v.length == 0 {
		return v.descr, nil
	}
	return v.descr.Sized(v.length)
}

// Storage exposes where a transparent view lives. ok is false for opaque
// views.
func (v *View) Storage() (s Storage, ok bool) {
	if v.IsOpaque() {
		return Storage{}, false
	}
	return Storage{Buffer: v.owner, ByteOffset: v.offset, ByteLength: v.ByteLen()}, true
}

// Bytes returns the live bytes of a transparent view. The slice aliases the
// buffer and is only meaningful while the buffer stays attached.
func (v *View) Bytes() ([]byte, error) {
	if v.IsOpaque() {
		return nil, invalidf("%s view is opaque", v.descr)
	}
	return v.span(0, v.ByteLen(), false)
}

// span returns n bytes at off relative to v after checking attachment,
// bounds and, for stores, the target window.
func (v *View) span(off, n int, store bool) ([]byte, error) {
	data := v.owner.Bytes()
	if data == nil || v.offset < 0 || v.offset+v.ByteLen() > len(data) {
		return nil, unattached(v)
	}
	if off < 0 || off+n > v.ByteLen() {
		return nil, rangef("bytes [%d, %d) outside %s view of %d bytes", off, off+n, v.descr, v.ByteLen())
	}
	abs := v.offset + off
	if store && v.win != nil && n > 0 && (abs < v.win.lo || abs+n > v.win.hi) {
		return nil, targetf(abs, abs+n, v.win)
	}
	return data[abs : abs+n : abs+n], nil
}

// Redimension rewraps v's bytes as nd. Both types must reduce to the same
// innermost element type and element count once array layers are peeled.
func (v *View) Redimension(nd *Descr) (*View, error) {
	if !v.descr.IsArray() {
		return nil, invalidf("cannot redimension non-array %s", v.descr)
	}
	if nd == nil {
		return nil, invalidf("nil type")
	}
	oldBase, oldCount := v.descr.Base()
	if v.descr.kind == KindUnsizedArray {
		oldCount *= v.length
	}
	newBase, newCount := nd, 1
	for newBase.kind == KindSizedArray {
		newCount *= newBase.length
		newBase = newBase.elem
	}
	if oldCount != newCount {
		return nil, shapef("cannot redimension %s of %d elements to %s of %d", v.descr, oldCount, nd, newCount)
	}
	if !oldBase.Equivalent(newBase) {
		return nil, shapef("cannot redimension %s to %s: element types differ", v.descr, nd)
	}
	if !v.IsAttached() {
		return nil, unattached(v)
	}
	return v.Derive(0, nd, 0), nil
}

// Index loads element i of an array view.
func (v *View) Index(i int) (any, error) {
	elem, err := v.elemAt(i)
	if err != nil {
		return nil, err
	}
	return Get(elem, v, i*elem.size)
}

// SetIndex stores val into element i of an array view.
func (v *View) SetIndex(i int, val any) error {
	elem, err := v.elemAt(i)
	if err != nil {
		return err
	}
	return Set(elem, v, i*elem.size, val)
}

func (v *View) elemAt(i int) (*Descr, error) {
	if !v.descr.IsArray() {
		return nil, invalidf("%s is not an array", v.descr)
	}
	if i < 0 || i >= v.Len() {
		return nil, rangef("index %d outside %s of length %d", i, v.descr, v.Len())
	}
	return v.descr.elem, nil
}

// Field loads a named field of a struct view.
func (v *View) Field(name string) (any, error) {
	f, err := v.field(name)
	if err != nil {
		return nil, err
	}
	return Get(f.Type, v, f.Offset)
}

// SetField stores val into a named field of a struct view.
func (v *View) SetField(name string, val any) error {
	f, err := v.field(name)
	if err != nil {
		return err
	}
	return Set(f.Type, v, f.Offset, val)
}

func (v *View) field(name string) (Field, error) {
	if v.descr.kind != KindStruct {
		return Field{}, invalidf("%s is not a struct", v.descr)
	}
	f, ok := v.descr.Field(name)
	if !ok {
		return Field{}, invalidf("%s has no field %q", v.descr, name)
	}
	return f, nil
}

func (v *View) String() string { return Format(v) }

// CopyBytes copies n bytes between views, checking both ends.
func CopyBytes(dst *View, dstOff int, src *View, srcOff, n int) error {
	from, err := src.span(srcOff, n, false)
	if err != nil {
		return err
	}
	to, err := dst.span(dstOff, n, true)
	if err != nil {
		return err
	}
	copy(to, from)
	return nil
}
