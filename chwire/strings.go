package chwire

import (
	"bufio"
	"io"

	"github.com/go-faster/errors"

	"chnative/chtype"
	"chnative/chvalue"
)

// encodeString writes an unsigned varint length prefix followed by the
// UTF-8 bytes.
func encodeString(w io.Writer, v chvalue.Value) error {
	var b []byte
	switch v.Kind {
	case chvalue.KindStr:
		b = []byte(v.AsStr())
	case chvalue.KindBytes:
		b = v.AsBytes()
	default:
		return errors.Wrap(ErrTypeMismatch, "String expects string/bytes value")
	}
	if err := PutUvarint(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func decodeString(r *bufio.Reader) (chvalue.Value, error) {
	n, err := ReadUvarint(r)
	if err != nil {
		return chvalue.Value{}, err
	}
	buf, err := readFull(r, int(n))
	if err != nil {
		return chvalue.Value{}, err
	}
	return chvalue.Str(string(buf)), nil
}

// encodeFixedString writes exactly N raw bytes, right-padding with zero
// bytes if the value is shorter and rejecting it if longer.
func encodeFixedString(w io.Writer, t *chtype.Type, v chvalue.Value) error {
	var b []byte
	switch v.Kind {
	case chvalue.KindStr:
		b = []byte(v.AsStr())
	case chvalue.KindBytes:
		b = v.AsBytes()
	default:
		return errors.Wrap(ErrTypeMismatch, "FixedString expects string/bytes value")
	}
	if len(b) > t.N {
		return errors.Wrapf(ErrOutOfRange, "FixedString(%d): value has %d bytes", t.N, len(b))
	}
	buf := make([]byte, t.N)
	copy(buf, b)
	_, err := w.Write(buf)
	return err
}

func decodeFixedString(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	buf, err := readFull(r, t.N)
	if err != nil {
		return chvalue.Value{}, err
	}
	return chvalue.Bytes(buf), nil
}
