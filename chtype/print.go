package chtype

import (
	"strconv"
	"strings"
)

var primitiveNames = map[Kind]string{
	KindUInt8:   "UInt8",
	KindUInt16:  "UInt16",
	KindUInt32:  "UInt32",
	KindUInt64:  "UInt64",
	KindUInt128: "UInt128",
	KindUInt256: "UInt256",
	KindInt8:    "Int8",
	KindInt16:   "Int16",
	KindInt32:   "Int32",
	KindInt64:   "Int64",
	KindInt128:  "Int128",
	KindInt256:  "Int256",
	KindFloat32: "Float32",
	KindFloat64: "Float64",
	KindBool:    "Bool",
	KindString:  "String",
	KindDate:    "Date",
	KindDate32:  "Date32",
	KindUUID:    "UUID",
	KindIPv4:    "IPv4",
	KindIPv6:    "IPv6",
	KindJSON:    "JSON",
	KindDynamic: "Dynamic",
}

// print renders a Type back to the exact textual form the parser accepts:
// print(parse(s)) == s for any emitted form; canonicalization reorders
// nothing.
func print(t *Type) string {
	var b strings.Builder
	writeType(&b, t)
	return b.String()
}

func writeType(b *strings.Builder, t *Type) {
	if name, ok := primitiveNames[t.Kind]; ok {
		b.WriteString(name)
		return
	}

	switch t.Kind {
	case KindFixedString:
		b.WriteString("FixedString(")
		b.WriteString(strconv.Itoa(t.N))
		b.WriteByte(')')

	case KindDateTime:
		b.WriteString("DateTime")
		if t.TZ != "" {
			b.WriteByte('(')
			writeQuoted(b, t.TZ)
			b.WriteByte(')')
		}

	case KindDateTime64:
		b.WriteString("DateTime64(")
		b.WriteString(strconv.Itoa(int(t.Precision)))
		if t.TZ != "" {
			b.WriteString(", ")
			writeQuoted(b, t.TZ)
		}
		b.WriteByte(')')

	case KindEnum8, KindEnum16:
		if t.Kind == KindEnum8 {
			b.WriteString("Enum8(")
		} else {
			b.WriteString("Enum16(")
		}
		for i, v := range t.Variants {
			if i > 0 {
				b.WriteString(", ")
			}
			writeQuoted(b, v.Name)
			b.WriteString(" = ")
			b.WriteString(strconv.FormatInt(v.Value, 10))
		}
		b.WriteByte(')')

	case KindDecimal:
		if t.decimalShort != "" {
			b.WriteString("Decimal")
			b.WriteString(t.decimalShort)
			b.WriteByte('(')
			b.WriteString(strconv.Itoa(int(t.Scale)))
			b.WriteByte(')')
		} else {
			b.WriteString("Decimal(")
			b.WriteString(strconv.Itoa(int(t.Precision)))
			b.WriteString(", ")
			b.WriteString(strconv.Itoa(int(t.Scale)))
			b.WriteByte(')')
		}

	case KindNullable:
		b.WriteString("Nullable(")
		writeType(b, t.Elem)
		b.WriteByte(')')

	case KindLowCardinality:
		b.WriteString("LowCardinality(")
		writeType(b, t.Elem)
		b.WriteByte(')')

	case KindArray:
		b.WriteString("Array(")
		writeType(b, t.Elem)
		b.WriteByte(')')

	case KindTuple:
		b.WriteString("Tuple(")
		writeFields(b, t.Fields)
		b.WriteByte(')')

	case KindNested:
		b.WriteString("Nested(")
		writeFields(b, t.Fields)
		b.WriteByte(')')

	case KindMap:
		b.WriteString("Map(")
		writeType(b, t.Key)
		b.WriteString(", ")
		writeType(b, t.Value)
		b.WriteByte(')')

	default:
		b.WriteString("Invalid")
	}
}

func writeFields(b *strings.Builder, fields []Field) {
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		if f.Name != "" {
			b.WriteString(f.Name)
			b.WriteByte(' ')
		}
		writeType(b, f.Type)
	}
}

// writeQuoted renders s as a single-quoted literal with '' escaping, the
// grammar used for quoted strings inside type expressions.
func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			b.WriteString("''")
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
}
