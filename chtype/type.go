// Package chtype implements the ClickHouse Type Registry: parsing type
// expressions from RowBinaryWithNamesAndTypes headers into a type tree,
// canonicalizing their textual form, and interning parsed types so
// identity comparison is sufficient on hot paths.
package chtype

// Kind enumerates every primitive and composite type node the registry
// can produce.
type Kind uint8

const (
	KindInvalid Kind = iota

	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindUInt128
	KindUInt256
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindInt128
	KindInt256
	KindFloat32
	KindFloat64
	KindBool
	KindString
	KindFixedString
	KindDate
	KindDate32
	KindDateTime
	KindDateTime64
	KindUUID
	KindIPv4
	KindIPv6
	KindEnum8
	KindEnum16
	KindDecimal
	KindJSON
	KindDynamic

	KindNullable
	KindLowCardinality
	KindArray
	KindTuple
	KindMap
	KindNested
)

// EnumVariant is one (name, numeric value) pair of an Enum8/Enum16
// bijection.
type EnumVariant struct {
	Name  string
	Value int64
}

// Field is one named member of a Tuple or Nested type.
type Field struct {
	Name string // "" for an unnamed tuple element
	Type *Type
}

// Type is one node of the parsed type tree. Only the fields relevant to
// Kind are populated; Type values are interned by Registry and compared
// by canonical string equality (identity, once interned).
type Type struct {
	Kind Kind

	// FixedString(N)
	N int

	// DateTime(tz?), DateTime64(p, tz?)
	TZ string

	// DateTime64(p, tz?), Decimal(p,s)
	Precision uint8
	Scale     uint8
	// decimalShort records "32"/"64"/"128"/"256" when the type was
	// parsed as the short DecimalN(s) spelling, so printing reproduces
	// the exact input form (the parser must round-trip verbatim).
	decimalShort string

	// Enum8/Enum16
	Variants []EnumVariant

	// Nullable/LowCardinality/Array element
	Elem *Type

	// Tuple/Nested members
	Fields []Field

	// Map
	Key   *Type
	Value *Type

	canonical string
}

// DecimalWidth returns the wire integer width in bytes for a Decimal(p,s)
// node,: p<=9 -> 4, p<=18 -> 8, p<=38 -> 16, p<=76 -> 32.
func (t *Type) DecimalWidth() int {
	switch {
	case t.Precision <= 9:
		return 4
	case t.Precision <= 18:
		return 8
	case t.Precision <= 38:
		return 16
	default:
		return 32
	}
}

// IntWidth returns the wire width in bytes and signedness for fixed-width
// integer kinds and for Enum8/Enum16 (stored as signed integers), and
// (0, false, false) for anything else.
func (t *Type) IntWidth() (width int, signed, ok bool) {
	switch t.Kind {
	case KindUInt8:
		return 1, false, true
	case KindUInt16:
		return 2, false, true
	case KindUInt32:
		return 4, false, true
	case KindUInt64:
		return 8, false, true
	case KindUInt128:
		return 16, false, true
	case KindUInt256:
		return 32, false, true
	case KindInt8:
		return 1, true, true
	case KindInt16:
		return 2, true, true
	case KindInt32:
		return 4, true, true
	case KindInt64:
		return 8, true, true
	case KindInt128:
		return 16, true, true
	case KindInt256:
		return 32, true, true
	case KindEnum8:
		return 1, true, true
	case KindEnum16:
		return 2, true, true
	}
	return 0, false, false
}

// Canonical returns the type's canonical textual form, computed lazily on
// first use and cached; this is also the key used to intern the type.
func (t *Type) Canonical() string {
	if t.canonical == "" {
		t.canonical = print(t)
	}
	return t.canonical
}

func (t *Type) String() string { return t.Canonical() }
