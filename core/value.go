package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Int32x4 is the loaded form of an int32x4 value.
type Int32x4 [4]int32

// Float32x4 is the loaded form of a float32x4 value.
type Float32x4 [4]float32

// refTable holds the values behind stored reference handles. Handle 0 is
// the empty reference. Comparable values are interned, so storing an equal
// value again reuses its handle; other values get a fresh handle per store.
// Handles may be copied between buffers byte for byte, so entries are never
// reclaimed.
var refTable struct {
	sync.RWMutex
	vals  []any
	index map[any]uint64
}

func storeRef(v any) uint64 {
	if v == nil {
		return 0
	}
	interned := isInternable(v)
	if interned {
		refTable.RLock()
		h, ok := refTable.index[v]
		refTable.RUnlock()
		if ok {
			return h
		}
	}
	refTable.Lock()
	defer refTable.Unlock()
	if interned {
		if h, ok := refTable.index[v]; ok {
			return h
		}
	}
	refTable.vals = append(refTable.vals, v)
	h := uint64(len(refTable.vals))
	if interned {
		if refTable.index == nil {
			refTable.index = make(map[any]uint64)
		}
		refTable.index[v] = h
	}
	return h
}

// isInternable reports whether v can key a map and equals itself.
func isInternable(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.Comparable() {
		return false
	}
	return rv.Equal(rv)
}

func loadRef(h uint64) any {
	if h == 0 {
		return nil
	}
	refTable.RLock()
	defer refTable.RUnlock()
	if h > uint64(len(refTable.vals)) {
		return nil
	}
	return refTable.vals[h-1]
}

// ToNumber converts a Go value to the float64 a scalar store starts from.
// nil converts to NaN; strings are parsed, with unparsable text giving NaN.
func ToNumber(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseNumber(strings.TrimSpace(x)), nil
	}
	return 0, coercef("cannot convert %T to a number", v)
}

// parseNumber reads the numeric string grammar of typed-object stores:
// decimal literals with an optional sign and exponent, unsigned 0x, 0o and
// 0b integers, and signed Infinity. Anything else, including Go's "inf" and
// "nan" spellings and digit separators, is NaN.
func parseNumber(s string) float64 {
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, ok := new(big.Int).SetString(s[2:], base)
			if !ok || n.Sign() < 0 || s[2] == '+' || s[2] == '-' {
				return math.NaN()
			}
			f, _ := new(big.Float).SetInt(n).Float64()
			return f
		}
	}
	if !isDecimalLiteral(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

func isDecimalLiteral(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && isDigit(s[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for ; i < len(s) && isDigit(s[i]); i++ {
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// toInt32 wraps f modulo 2^32 into the signed range, NaN and infinities to 0.
func toInt32(f float64) int32 {
	return int32(toUint32(f))
}

func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 1<<32)
	if m < 0 {
		m += 1 << 32
	}
	return uint32(m)
}

func clampUint8(f float64) uint8 {
	switch {
	case math.IsNaN(f), f <= 0:
		return 0
	case f >= 255:
		return 255
	}
	return uint8(math.RoundToEven(f))
}

// StoreScalar encodes v as a scalar of type s into b, little-endian.
func StoreScalar(s ScalarType, b []byte, v any) error {
	f, err := ToNumber(v)
	if err != nil {
		return err
	}
	storeNumber(s, b, f)
	return nil
}

func storeNumber(s ScalarType, b []byte, f float64) {
	switch s {
	case Int8, Uint8:
		b[0] = byte(toUint32(f))
	case Uint8Clamped:
		b[0] = clampUint8(f)
	case Int16, Uint16:
		binary.LittleEndian.PutUint16(b, uint16(toUint32(f)))
	case Int32, Uint32:
		binary.LittleEndian.PutUint32(b, toUint32(f))
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(f)))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(f))
	}
}

// LoadScalar decodes a scalar of type s from b.
func LoadScalar(s ScalarType, b []byte) float64 {
	switch s {
	case Int8:
		return float64(int8(b[0]))
	case Uint8, Uint8Clamped:
		return float64(b[0])
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// isPrimitive reports values an Object slot refuses.
func isPrimitive(v any) bool {
	switch v.(type) {
	case bool, string, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// ToString converts v the way a string slot stores it; nil becomes "".
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatNumber(x)
	case float32:
		return formatNumber(float64(x))
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func storeReference(r ReferenceType, b []byte, v any) error {
	switch r {
	case Object:
		if isPrimitive(v) {
			return coercef("%T is not an object", v)
		}
	case String:
		s := ToString(v)
		if s == "" {
			v = nil
		} else {
			v = s
		}
	}
	binary.LittleEndian.PutUint64(b, storeRef(v))
	return nil
}

func loadReference(r ReferenceType, b []byte) any {
	v := loadRef(binary.LittleEndian.Uint64(b))
	if r == String && v == nil {
		return ""
	}
	return v
}

func storeVector(t Vector4Type, b []byte, v any) error {
	switch x := v.(type) {
	case Int32x4:
		if t != Int32x4Type {
			break
		}
		for i, lane := range x {
			binary.LittleEndian.PutUint32(b[4*i:], uint32(lane))
		}
		return nil
	case Float32x4:
		if t != Float32x4Type {
			break
		}
		for i, lane := range x {
			binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(lane))
		}
		return nil
	}
	return coercef("cannot store %T as %s", v, t)
}

func loadVector(t Vector4Type, b []byte) any {
	if t == Float32x4Type {
		var x Float32x4
		for i := range x {
			x[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		}
		return x
	}
	var x Int32x4
	for i := range x {
		x[i] = int32(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return x
}

// Coerce converts v to a value of type d, as if storing it into a fresh
// slot of d and loading it back. Composite types produce a new owning view.
func Coerce(d *Descr, v any) (any, error) {
	switch d.kind {
	case KindScalar:
		f, err := ToNumber(v)
		if err != nil {
			return nil, err
		}
		var b [8]byte
		storeNumber(d.scalar, b[:], f)
		return LoadScalar(d.scalar, b[:]), nil
	case KindReference:
		switch d.ref {
		case Object:
			if isPrimitive(v) {
				return nil, coercef("%T is not an object", v)
			}
		case String:
			return ToString(v), nil
		}
		return v, nil
	case KindVector4:
		var b [16]byte
		if err := storeVector(d.vec, b[:], v); err != nil {
			return nil, err
		}
		return loadVector(d.vec, b[:]), nil
	}
	return NewFrom(d, v)
}
