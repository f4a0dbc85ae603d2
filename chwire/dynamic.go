package chwire

import (
	"bufio"
	"io"

	goccyjson "github.com/goccy/go-json"

	"github.com/go-faster/errors"

	"chnative/chvalue"
)

// Dynamic/JSON values carry a type tag byte followed by the tagged
// value's own encoding. Unknown tags decode to
// an opaque byte string rather than failing, so a client built against
// an older tag table can still pass the bytes through unchanged.
const (
	tagNull  = 0x00
	tagJSON  = 0x01
	tagInt   = 0x02
	tagUInt  = 0x03
	tagFloat = 0x04
	tagBool  = 0x05
	tagStr   = 0x06
	tagArray = 0x07
	tagTuple = 0x08
	tagMap   = 0x09
)

func encodeDynamic(w io.Writer, v chvalue.Value) error {
	switch v.Kind {
	case chvalue.KindNull:
		return writeTag(w, tagNull)
	case chvalue.KindJSON:
		raw := v.AsJSON()
		if !goccyjson.Valid(raw) {
			return errors.Wrap(ErrTypeMismatch, "JSON: payload is not valid JSON")
		}
		return writeTagged(w, tagJSON, raw)
	case chvalue.KindInt:
		return writeTagged(w, tagInt, zigzagEncode(v.AsInt()))
	case chvalue.KindUInt:
		return writeTagged(w, tagUInt, uvarintBytes(v.AsUInt()))
	case chvalue.KindFloat:
		return writeTagged(w, tagFloat, float64Bytes(v.AsFloat()))
	case chvalue.KindBool:
		b := byte(0)
		if v.AsBool() {
			b = 1
		}
		return writeTagged(w, tagBool, []byte{b})
	case chvalue.KindStr:
		return writeTagged(w, tagStr, []byte(v.AsStr()))
	case chvalue.KindBytes:
		return writeTagged(w, tagStr, v.AsBytes())
	case chvalue.KindArray:
		return encodeDynamicSeq(w, tagArray, v.AsItems())
	case chvalue.KindTuple:
		return encodeDynamicSeq(w, tagTuple, v.AsItems())
	case chvalue.KindMap:
		return encodeDynamicMap(w, v.AsPairs())
	}
	return errors.Wrapf(ErrTypeMismatch, "Dynamic: unsupported host value kind %d", v.Kind)
}

func encodeDynamicSeq(w io.Writer, tag byte, items []chvalue.Value) error {
	if _, err := w.Write([]byte{tag}); err != nil {
		return err
	}
	if err := PutUvarint(w, uint64(len(items))); err != nil {
		return err
	}
	for _, item := range items {
		if err := encodeDynamic(w, item); err != nil {
			return err
		}
	}
	return nil
}

func encodeDynamicMap(w io.Writer, pairs []chvalue.Pair) error {
	if _, err := w.Write([]byte{tagMap}); err != nil {
		return err
	}
	if err := PutUvarint(w, uint64(len(pairs))); err != nil {
		return err
	}
	for _, pair := range pairs {
		if err := encodeDynamic(w, pair.Key); err != nil {
			return err
		}
		if err := encodeDynamic(w, pair.Val); err != nil {
			return err
		}
	}
	return nil
}

func decodeDynamic(r *bufio.Reader) (chvalue.Value, error) {
	tagBuf, err := readFull(r, 1)
	if err != nil {
		return chvalue.Value{}, err
	}
	tag := tagBuf[0]
	switch tag {
	case tagNull:
		if _, err := readLenPrefixed(r); err != nil {
			return chvalue.Value{}, err
		}
		return chvalue.Null(), nil
	case tagJSON:
		payload, err := readLenPrefixed(r)
		if err != nil {
			return chvalue.Value{}, err
		}
		if !goccyjson.Valid(payload) {
			return chvalue.Value{}, errors.Wrap(ErrTypeMismatch, "JSON: payload is not valid JSON")
		}
		return chvalue.JSON(payload), nil
	case tagInt:
		payload, err := readLenPrefixed(r)
		if err != nil {
			return chvalue.Value{}, err
		}
		n, _ := zigzagDecode(payload)
		return chvalue.Int(n), nil
	case tagUInt:
		payload, err := readLenPrefixed(r)
		if err != nil {
			return chvalue.Value{}, err
		}
		n, _ := decodeUvarintBytes(payload)
		return chvalue.UInt(n), nil
	case tagFloat:
		payload, err := readLenPrefixed(r)
		if err != nil {
			return chvalue.Value{}, err
		}
		return chvalue.Float(bytesToFloat64(payload)), nil
	case tagBool:
		payload, err := readLenPrefixed(r)
		if err != nil {
			return chvalue.Value{}, err
		}
		return chvalue.Bool(len(payload) > 0 && payload[0] != 0), nil
	case tagStr:
		payload, err := readLenPrefixed(r)
		if err != nil {
			return chvalue.Value{}, err
		}
		return chvalue.Str(string(payload)), nil
	case tagArray, tagTuple:
		n, err := ReadUvarint(r)
		if err != nil {
			return chvalue.Value{}, err
		}
		items := make([]chvalue.Value, 0, n)
		for i := uint64(0); i < n; i++ {
			item, err := decodeDynamic(r)
			if err != nil {
				return chvalue.Value{}, err
			}
			items = append(items, item)
		}
		if tag == tagArray {
			return chvalue.Array(items), nil
		}
		return chvalue.Tuple(items), nil
	case tagMap:
		n, err := ReadUvarint(r)
		if err != nil {
			return chvalue.Value{}, err
		}
		pairs := make([]chvalue.Pair, 0, n)
		for i := uint64(0); i < n; i++ {
			key, err := decodeDynamic(r)
			if err != nil {
				return chvalue.Value{}, err
			}
			val, err := decodeDynamic(r)
			if err != nil {
				return chvalue.Value{}, err
			}
			pairs = append(pairs, chvalue.Pair{Key: key, Val: val})
		}
		return chvalue.Map(pairs), nil
	default:
		payload, err := readLenPrefixed(r)
		if err != nil {
			return chvalue.Value{}, err
		}
		return chvalue.Bytes(payload), nil
	}
}

// writeTag writes a bare tag byte with a zero-length payload.
func writeTag(w io.Writer, tag byte) error {
	return writeTagged(w, tag, nil)
}

// writeTagged writes tag, then an unsigned varint length, then payload,
// so a reader holding an older tag table can skip an unrecognized tag
// without losing framing on the values that follow.
func writeTagged(w io.Writer, tag byte, payload []byte) error {
	if _, err := w.Write([]byte{tag}); err != nil {
		return err
	}
	if err := PutUvarint(w, uint64(len(payload))); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

func readLenPrefixed(r *bufio.Reader) ([]byte, error) {
	n, err := ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return readFull(r, int(n))
}
