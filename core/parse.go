package core

import (
	"strconv"
	"strings"
	"unicode"
)

var builtinTypes = map[string]*Descr{
	"int8":         Int8Type,
	"uint8":        Uint8Type,
	"uint8Clamped": Uint8ClampedType,
	"int16":        Int16Type,
	"uint16":       Uint16Type,
	"int32":        Int32Type,
	"uint32":       Uint32Type,
	"float32":      Float32Type,
	"float64":      Float64Type,
	"any":          AnyType,
	"Object":       ObjectType,
	"string":       StringType,
	"int32x4":      Int32x4Descr,
	"float32x4":    Float32x4Descr,
}

// Builtin returns the predeclared descriptor with the given name.
func Builtin(name string) (*Descr, bool) {
	d, ok := builtinTypes[name]
	return d, ok
}

// ParseType parses a type expression in the canonical String form, e.g.
// "{x: float32, y: float32}[]" or "uint8[3][4]". Names that are not
// predeclared are resolved through lookup, which may be nil.
func ParseType(expr string, lookup func(name string) (*Descr, bool)) (*Descr, error) {
	p := &typeParser{src: expr, lookup: lookup}
	d, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return d, nil
}

type typeParser struct {
	src    string
	pos    int
	lookup func(string) (*Descr, bool)
}

func (p *typeParser) errorf(format string, args ...any) error {
	return invalidf("type %q at %d: "+format, append([]any{p.src, p.pos}, args...)...)
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if c != '_' && !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '.' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parseType() (*Descr, error) {
	base, err := p.parseBase()
	if err != nil {
		return nil, err
	}
	var dims []int
	unsized := false
	for p.peek() == '[' {
		p.pos++
		p.skipSpace()
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != ']' {
			p.pos++
		}
		text := strings.TrimSpace(p.src[start:p.pos])
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		if text == "" {
			if len(dims) > 0 || unsized {
				return nil, p.errorf("only the outermost dimension may be unsized")
			}
			unsized = true
			continue
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, p.errorf("array length %q is not an integer", text)
		}
		dims = append(dims, n)
	}
	d := base
	if len(dims) > 0 {
		if d, err = ArrayOfDims(base, dims...); err != nil {
			return nil, err
		}
	}
	if unsized {
		return UnsizedArrayOf(d)
	}
	return d, nil
}

func (p *typeParser) parseBase() (*Descr, error) {
	if p.peek() == '{' {
		return p.parseStruct()
	}
	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected a type")
	}
	if d, ok := builtinTypes[name]; ok {
		return d, nil
	}
	if p.lookup != nil {
		if d, ok := p.lookup(name); ok {
			return d, nil
		}
	}
	return nil, p.errorf("unknown type %q", name)
}

func (p *typeParser) parseStruct() (*Descr, error) {
	p.pos++
	var fields []FieldSpec
	for p.peek() != '}' {
		if len(fields) > 0 {
			if err := p.expect(','); err != nil {
				return nil, err
			}
		}
		name := p.ident()
		if name == "" {
			return nil, p.errorf("expected a field name")
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, FieldSpec{Name: name, Type: t})
	}
	p.pos++
	return NewStruct(fields...)
}
