// Package chwire implements the Value Codec: encode/decode of a
// single value of a given chtype.Type to/from RowBinary bytes.
package chwire

import (
	"bufio"
	"io"

	"github.com/go-faster/errors"
)

// ErrTruncated is returned when the reader is exhausted mid-value.
var ErrTruncated = errors.New("chwire: truncated")

// PutUvarint writes v as an unsigned LEB128 varint.
func PutUvarint(w io.Writer, v uint64) error {
	var buf [10]byte
	n := 0
	for v >= 0x80 {
		buf[n] = byte(v) | 0x80
		v >>= 7
		n++
	}
	buf[n] = byte(v)
	n++
	_, err := w.Write(buf[:n])
	return err
}

// ReadUvarint reads an unsigned LEB128 varint, 7 payload bits per byte,
// high bit set meaning "more bytes follow".
func ReadUvarint(r *bufio.Reader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, ErrTruncated
			}
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, errors.New("chwire: varint too long")
		}
	}
}
