package chtype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// ParseError reports a malformed type expression at a byte position,
// naming what the parser expected there.
type ParseError struct {
	Position int
	Expected string
	Input    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("chtype: parse error at %d in %q: expected %s", e.Position, e.Input, e.Expected)
}

type parser struct {
	s   string
	pos int
}

// Parse parses a single ClickHouse type expression into a
// type tree. It does not intern the result; use Registry.Parse for that.
func Parse(s string) (*Type, error) {
	p := &parser{s: s}
	p.skipSpace()
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, p.errorf("end of input")
	}
	return t, nil
}

func (p *parser) errorf(expected string) error {
	return &ParseError{Position: p.pos, Expected: expected, Input: p.s}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func (p *parser) parseIdent() (string, error) {
	start := p.pos
	for p.pos < len(p.s) && isIdentByte(p.s[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("identifier")
	}
	return p.s[start:p.pos], nil
}

// parseQuoted reads a single-quoted string literal with '' escaping.
func (p *parser) parseQuoted() (string, error) {
	if p.pos >= len(p.s) || p.s[p.pos] != '\'' {
		return "", p.errorf("quoted string")
	}
	p.pos++
	var b strings.Builder
	for {
		if p.pos >= len(p.s) {
			return "", p.errorf("closing quote")
		}
		c := p.s[p.pos]
		if c == '\'' {
			if p.pos+1 < len(p.s) && p.s[p.pos+1] == '\'' {
				b.WriteByte('\'')
				p.pos += 2
				continue
			}
			p.pos++
			return b.String(), nil
		}
		b.WriteByte(c)
		p.pos++
	}
}

func (p *parser) parseInt() (int64, error) {
	start := p.pos
	if p.pos < len(p.s) && (p.s[p.pos] == '-' || p.s[p.pos] == '+') {
		p.pos++
	}
	digitsStart := p.pos
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == digitsStart {
		return 0, p.errorf("integer literal")
	}
	n, err := strconv.ParseInt(p.s[start:p.pos], 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "chtype: integer literal")
	}
	return n, nil
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != c {
		return p.errorf(string(c))
	}
	p.pos++
	return nil
}

func (p *parser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

// parseType parses one type expression: Name | Name(args...).
func (p *parser) parseType() (*Type, error) {
	p.skipSpace()
	name, err := p.parseIdent()
	if err != nil {
		return nil, err
	}

	switch name {
	case "UInt8":
		return &Type{Kind: KindUInt8}, nil
	case "UInt16":
		return &Type{Kind: KindUInt16}, nil
	case "UInt32":
		return &Type{Kind: KindUInt32}, nil
	case "UInt64":
		return &Type{Kind: KindUInt64}, nil
	case "UInt128":
		return &Type{Kind: KindUInt128}, nil
	case "UInt256":
		return &Type{Kind: KindUInt256}, nil
	case "Int8":
		return &Type{Kind: KindInt8}, nil
	case "Int16":
		return &Type{Kind: KindInt16}, nil
	case "Int32":
		return &Type{Kind: KindInt32}, nil
	case "Int64":
		return &Type{Kind: KindInt64}, nil
	case "Int128":
		return &Type{Kind: KindInt128}, nil
	case "Int256":
		return &Type{Kind: KindInt256}, nil
	case "Float32":
		return &Type{Kind: KindFloat32}, nil
	case "Float64":
		return &Type{Kind: KindFloat64}, nil
	case "Bool":
		return &Type{Kind: KindBool}, nil
	case "String":
		return &Type{Kind: KindString}, nil
	case "Date":
		return &Type{Kind: KindDate}, nil
	case "Date32":
		return &Type{Kind: KindDate32}, nil
	case "UUID":
		return &Type{Kind: KindUUID}, nil
	case "IPv4":
		return &Type{Kind: KindIPv4}, nil
	case "IPv6":
		return &Type{Kind: KindIPv6}, nil
	case "JSON":
		return &Type{Kind: KindJSON}, nil
	case "Dynamic":
		return &Type{Kind: KindDynamic}, nil

	case "FixedString":
		return p.parseFixedString()
	case "DateTime":
		return p.parseDateTime()
	case "DateTime64":
		return p.parseDateTime64()
	case "Enum8":
		return p.parseEnum(KindEnum8, -128, 127)
	case "Enum16":
		return p.parseEnum(KindEnum16, -32768, 32767)
	case "Decimal":
		return p.parseDecimal()
	case "Decimal32":
		return p.parseDecimalShort("32", 9)
	case "Decimal64":
		return p.parseDecimalShort("64", 18)
	case "Decimal128":
		return p.parseDecimalShort("128", 38)
	case "Decimal256":
		return p.parseDecimalShort("256", 76)
	case "Nullable":
		return p.parseWrapped(KindNullable)
	case "LowCardinality":
		return p.parseWrapped(KindLowCardinality)
	case "Array":
		return p.parseWrapped(KindArray)
	case "Tuple":
		return p.parseFieldList(KindTuple)
	case "Nested":
		return p.parseFieldList(KindNested)
	case "Map":
		return p.parseMap()
	}

	return nil, &ParseError{Position: p.pos - len(name), Expected: "known type name", Input: p.s}
}

func (p *parser) parseFixedString() (*Type, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	n, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return &Type{Kind: KindFixedString, N: int(n)}, nil
}

func (p *parser) parseDateTime() (*Type, error) {
	t := &Type{Kind: KindDateTime}
	p.skipSpace()
	if p.peek() != '(' {
		return t, nil
	}
	p.pos++
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return t, nil
	}
	tz, err := p.parseQuoted()
	if err != nil {
		return nil, err
	}
	t.TZ = tz
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *parser) parseDateTime64() (*Type, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	prec, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	t := &Type{Kind: KindDateTime64, Precision: uint8(prec)}
	p.skipSpace()
	if p.peek() == ',' {
		p.pos++
		p.skipSpace()
		tz, err := p.parseQuoted()
		if err != nil {
			return nil, err
		}
		t.TZ = tz
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *parser) parseEnum(kind Kind, min, max int64) (*Type, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var variants []EnumVariant
	seenNames := map[string]bool{}
	seenValues := map[int64]bool{}
	for {
		p.skipSpace()
		name, err := p.parseQuoted()
		if err != nil {
			return nil, err
		}
		if err := p.expect('='); err != nil {
			return nil, err
		}
		p.skipSpace()
		val, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		if val < min || val > max {
			return nil, p.errorf("enum value in range")
		}
		if seenNames[name] || seenValues[val] {
			return nil, p.errorf("bijective enum mapping")
		}
		seenNames[name] = true
		seenValues[val] = true
		variants = append(variants, EnumVariant{Name: name, Value: val})

		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return &Type{Kind: kind, Variants: variants}, nil
}

// parseDecimal parses the general Decimal(p, s) form.
func (p *parser) parseDecimal() (*Type, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	prec, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	p.skipSpace()
	scale, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	if prec < 1 || prec > 76 || scale < 0 || scale > prec {
		return nil, p.errorf("1<=precision<=76 and 0<=scale<=precision")
	}
	return &Type{Kind: KindDecimal, Precision: uint8(prec), Scale: uint8(scale)}, nil
}

// parseDecimalShort parses DecimalN(s), the width-named spelling whose
// precision is implied by N.
func (p *parser) parseDecimalShort(short string, impliedPrecision uint8) (*Type, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	scale, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	if scale < 0 || uint8(scale) > impliedPrecision {
		return nil, p.errorf("0<=scale<=precision")
	}
	return &Type{Kind: KindDecimal, Precision: impliedPrecision, Scale: uint8(scale), decimalShort: short}, nil
}

func (p *parser) parseWrapped(kind Kind) (*Type, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	elem, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return &Type{Kind: kind, Elem: elem}, nil
}

func (p *parser) parseMap() (*Type, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	key, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	p.skipSpace()
	val, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return &Type{Kind: KindMap, Key: key, Value: val}, nil
}

// parseFieldList parses Tuple(...)/Nested(...) bodies, where each element
// is either a bare type or "name Type".
func (p *parser) parseFieldList(kind Kind) (*Type, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var fields []Field
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return &Type{Kind: kind, Fields: fields}, nil
	}
	for {
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return &Type{Kind: kind, Fields: fields}, nil
}

// parseField speculatively parses a leading identifier as a field name:
// if a type keyword follows, the identifier was a name; otherwise it was
// itself the start of an (unnamed) type and we rewind.
func (p *parser) parseField() (Field, error) {
	p.skipSpace()
	mark := p.pos
	name, err := p.parseIdent()
	if err != nil {
		return Field{}, err
	}
	savedSpace := p.pos
	p.skipSpace()
	if p.pos < len(p.s) && isIdentByte(p.s[p.pos]) {
		// "name Type": name followed by another identifier, the type.
		elem, err := p.parseType()
		if err != nil {
			return Field{}, err
		}
		return Field{Name: name, Type: elem}, nil
	}
	// Not a named field: the identifier we read was the type name itself.
	p.pos = mark
	_ = savedSpace
	elem, err := p.parseType()
	if err != nil {
		return Field{}, err
	}
	return Field{Type: elem}, nil
}
