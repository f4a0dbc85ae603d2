package chwire

import (
	"bufio"
	"io"

	"github.com/go-faster/errors"

	"chnative/chtype"
	"chnative/chvalue"
)

// encodeNullable writes a one-byte null flag (1 = null, 0 = present),
// then, only if present, the wrapped value.
func encodeNullable(w io.Writer, t *chtype.Type, v chvalue.Value) error {
	if v.IsNull() {
		_, err := w.Write([]byte{1})
		return err
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	return Encode(w, t.Elem, v)
}

func decodeNullable(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	flag, err := readFull(r, 1)
	if err != nil {
		return chvalue.Value{}, err
	}
	if flag[0] == 1 {
		return chvalue.Null(), nil
	}
	return Decode(r, t.Elem)
}

// encodeArray writes an unsigned varint count, then count encoded
// elements.
func encodeArray(w io.Writer, t *chtype.Type, v chvalue.Value) error {
	if v.Kind != chvalue.KindArray {
		return errors.Wrap(ErrTypeMismatch, "Array expects an Array value")
	}
	items := v.AsItems()
	if err := PutUvarint(w, uint64(len(items))); err != nil {
		return err
	}
	for _, item := range items {
		if err := Encode(w, t.Elem, item); err != nil {
			return err
		}
	}
	return nil
}

func decodeArray(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	n, err := ReadUvarint(r)
	if err != nil {
		return chvalue.Value{}, err
	}
	items := make([]chvalue.Value, 0, n)
	for i := uint64(0); i < n; i++ {
		item, err := Decode(r, t.Elem)
		if err != nil {
			return chvalue.Value{}, err
		}
		items = append(items, item)
	}
	return chvalue.Array(items), nil
}

// encodeTuple writes each member's encoding concatenated in declared
// order.
func encodeTuple(w io.Writer, t *chtype.Type, v chvalue.Value) error {
	if v.Kind != chvalue.KindTuple {
		return errors.Wrap(ErrTypeMismatch, "Tuple expects a Tuple value")
	}
	items := v.AsItems()
	if len(items) != len(t.Fields) {
		return errors.Wrapf(ErrTypeMismatch, "Tuple: expected %d elements, got %d", len(t.Fields), len(items))
	}
	for i, field := range t.Fields {
		if err := Encode(w, field.Type, items[i]); err != nil {
			return err
		}
	}
	return nil
}

func decodeTuple(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	items := make([]chvalue.Value, len(t.Fields))
	for i, field := range t.Fields {
		v, err := Decode(r, field.Type)
		if err != nil {
			return chvalue.Value{}, err
		}
		items[i] = v
	}
	return chvalue.Tuple(items), nil
}

// tupleType builds the synthetic Tuple(fields...) node backing a Nested
// column, so Nested can reuse the Array/Tuple codec paths: Nested(fields)
// is treated as Array(Tuple(fields)) consistently on both encode and
// decode.
func tupleType(fields []chtype.Field) *chtype.Type {
	return &chtype.Type{Kind: chtype.KindTuple, Fields: fields}
}

func encodeNestedAsArrayTuple(w io.Writer, t *chtype.Type, v chvalue.Value) error {
	arrType := &chtype.Type{Kind: chtype.KindArray, Elem: tupleType(t.Fields)}
	return encodeArray(w, arrType, v)
}

func decodeNestedAsArrayTuple(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	arrType := &chtype.Type{Kind: chtype.KindArray, Elem: tupleType(t.Fields)}
	return decodeArray(r, arrType)
}

// encodeMap writes a Map(K,V) as Array(Tuple(K,V)).
func encodeMap(w io.Writer, t *chtype.Type, v chvalue.Value) error {
	if v.Kind != chvalue.KindMap {
		return errors.Wrap(ErrTypeMismatch, "Map expects a Map value")
	}
	pairs := v.AsPairs()
	if err := PutUvarint(w, uint64(len(pairs))); err != nil {
		return err
	}
	for _, pair := range pairs {
		if err := Encode(w, t.Key, pair.Key); err != nil {
			return err
		}
		if err := Encode(w, t.Value, pair.Val); err != nil {
			return err
		}
	}
	return nil
}

func decodeMap(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	n, err := ReadUvarint(r)
	if err != nil {
		return chvalue.Value{}, err
	}
	pairs := make([]chvalue.Pair, 0, n)
	for i := uint64(0); i < n; i++ {
		k, err := Decode(r, t.Key)
		if err != nil {
			return chvalue.Value{}, err
		}
		val, err := Decode(r, t.Value)
		if err != nil {
			return chvalue.Value{}, err
		}
		pairs = append(pairs, chvalue.Pair{Key: k, Val: val})
	}
	return chvalue.Map(pairs), nil
}
