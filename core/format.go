package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a loaded value or a view for display.
func Format(v any) string {
	var sb strings.Builder
	formatTo(&sb, v)
	return sb.String()
}

func formatTo(sb *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		sb.WriteString("nil")
	case float64:
		sb.WriteString(formatNumber(x))
	case string:
		sb.WriteString(strconv.Quote(x))
	case Int32x4:
		fmt.Fprintf(sb, "int32x4(%d, %d, %d, %d)", x[0], x[1], x[2], x[3])
	case Float32x4:
		fmt.Fprintf(sb, "float32x4(%s, %s, %s, %s)",
			formatNumber(float64(x[0])), formatNumber(float64(x[1])),
			formatNumber(float64(x[2])), formatNumber(float64(x[3])))
	case *View:
		formatView(sb, x)
	default:
		fmt.Fprint(sb, v)
	}
}

func formatView(sb *strings.Builder, v *View) {
	if !v.IsAttached() {
		sb.WriteString("<unattached ")
		sb.WriteString(v.descr.String())
		sb.WriteByte('>')
		return
	}
	switch v.descr.kind {
	case KindStruct:
		sb.WriteByte('{')
		for i, f := range v.descr.fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			val, err := Get(f.Type, v, f.Offset)
			if err != nil {
				sb.WriteString("<" + err.Error() + ">")
				continue
			}
			formatTo(sb, val)
		}
		sb.WriteByte('}')
	case KindSizedArray, KindUnsizedArray:
		sb.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			val, err := v.Index(i)
			if err != nil {
				sb.WriteString("<" + err.Error() + ">")
				continue
			}
			formatTo(sb, val)
		}
		sb.WriteByte(']')
	default:
		val, err := Get(v.descr, v, 0)
		if err != nil {
			sb.WriteString("<" + err.Error() + ">")
			return
		}
		formatTo(sb, val)
	}
}
