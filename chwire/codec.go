package chwire

import (
	"bufio"
	"io"

	"github.com/go-faster/errors"

	"chnative/chtype"
	"chnative/chvalue"
)

// Error kinds raised by the codec.
var (
	ErrOutOfRange    = errors.New("chwire: out of range")
	ErrTypeMismatch  = errors.New("chwire: type mismatch")
	ErrInvalidEnum   = errors.New("chwire: invalid enum")
	ErrUnknownKind   = errors.New("chwire: unknown type kind")
)

// Encode writes v, which must conform to t, to w in RowBinary form.
// Encode never suspends on I/O.
func Encode(w io.Writer, t *chtype.Type, v chvalue.Value) error {
	switch t.Kind {
	case chtype.KindNullable:
		return encodeNullable(w, t, v)
	case chtype.KindLowCardinality:
		// LowCardinality is wire-equivalent to its wrapped type in
		// RowBinary.
		return Encode(w, t.Elem, v)
	case chtype.KindArray:
		return encodeArray(w, t, v)
	case chtype.KindTuple:
		return encodeTuple(w, t, v)
	case chtype.KindNested:
		// Treated as Array(Tuple(fields)) so the host representation (an
		// array of per-row tuples) has one consistent wire shape.
		return encodeNestedAsArrayTuple(w, t, v)
	case chtype.KindMap:
		return encodeMap(w, t, v)
	case chtype.KindDecimal:
		return encodeDecimal(w, t, v)
	case chtype.KindString:
		return encodeString(w, v)
	case chtype.KindFixedString:
		return encodeFixedString(w, t, v)
	case chtype.KindDate:
		return encodeDate(w, v)
	case chtype.KindDate32:
		return encodeDate32(w, v)
	case chtype.KindDateTime:
		return encodeDateTime(w, v)
	case chtype.KindDateTime64:
		return encodeDateTime64(w, t, v)
	case chtype.KindUUID:
		return encodeUUID(w, v)
	case chtype.KindIPv4:
		return encodeIPv4(w, v)
	case chtype.KindIPv6:
		return encodeIPv6(w, v)
	case chtype.KindEnum8, chtype.KindEnum16:
		return encodeEnum(w, t, v)
	case chtype.KindBool:
		return encodeBool(w, v)
	case chtype.KindFloat32, chtype.KindFloat64:
		return encodeFloat(w, t, v)
	case chtype.KindJSON, chtype.KindDynamic:
		return encodeDynamic(w, v)
	}
	if _, _, ok := t.IntWidth(); ok {
		return encodeInt(w, t, v)
	}
	return errors.Wrapf(ErrUnknownKind, "encode %s", t.Canonical())
}

// Decode reads one value of type t from r in RowBinary form.
func Decode(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	switch t.Kind {
	case chtype.KindNullable:
		return decodeNullable(r, t)
	case chtype.KindLowCardinality:
		return Decode(r, t.Elem)
	case chtype.KindArray:
		return decodeArray(r, t)
	case chtype.KindTuple:
		return decodeTuple(r, t)
	case chtype.KindNested:
		return decodeNestedAsArrayTuple(r, t)
	case chtype.KindMap:
		return decodeMap(r, t)
	case chtype.KindDecimal:
		return decodeDecimal(r, t)
	case chtype.KindString:
		return decodeString(r)
	case chtype.KindFixedString:
		return decodeFixedString(r, t)
	case chtype.KindDate:
		return decodeDate(r)
	case chtype.KindDate32:
		return decodeDate32(r)
	case chtype.KindDateTime:
		return decodeDateTime(r, t)
	case chtype.KindDateTime64:
		return decodeDateTime64(r, t)
	case chtype.KindUUID:
		return decodeUUID(r)
	case chtype.KindIPv4:
		return decodeIPv4(r)
	case chtype.KindIPv6:
		return decodeIPv6(r)
	case chtype.KindEnum8, chtype.KindEnum16:
		return decodeEnum(r, t)
	case chtype.KindBool:
		return decodeBool(r)
	case chtype.KindFloat32, chtype.KindFloat64:
		return decodeFloat(r, t)
	case chtype.KindJSON, chtype.KindDynamic:
		return decodeDynamic(r)
	}
	if _, _, ok := t.IntWidth(); ok {
		return decodeInt(r, t)
	}
	return chvalue.Value{}, errors.Wrapf(ErrUnknownKind, "decode %s", t.Canonical())
}

func readFull(r *bufio.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return buf, nil
}
