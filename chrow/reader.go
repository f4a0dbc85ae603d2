// Package chrow implements the Row Stream Reader: consuming an
// HTTP response body streaming RowBinaryWithNamesAndTypes into a
// single-pass, lazy sequence of rows.
package chrow

import (
	"bufio"
	"context"
	"io"

	"github.com/go-faster/errors"

	"chnative/chtype"
	"chnative/chvalue"
	"chnative/chwire"
)

// Errors raised while reading the header or row stream.
var (
	ErrMalformedHeader = errors.New("chrow: malformed header")
	ErrTrailingBytes    = errors.New("chrow: trailing bytes after last row")
	ErrCancelled        = errors.New("chrow: cancelled")
	ErrColumnIndex      = errors.New("chrow: column index out of range")
	ErrNotNullable      = errors.New("chrow: is_null on a non-Nullable column")
	ErrTypeMismatch     = errors.New("chrow: column value type mismatch")
)

// state is the reader's position in the RowBinaryWithNamesAndTypes state
// machine: Header-Names -> Header-Types -> Rows -> Done.
type state int

const (
	stateHeader state = iota
	stateRows
	stateDone
)

// Reader consumes one streaming response body exclusively: closing the
// reader closes the underlying stream, and there is no back-reference
// to it.
type Reader struct {
	body io.ReadCloser
	br   *bufio.Reader
	reg  *chtype.Registry

	st state

	names []string
	types []*chtype.Type

	row []chvalue.Value
	err error
}

// NewReader begins consuming body as RowBinaryWithNamesAndTypes, parsing
// the column-names and column-types header immediately. reg resolves the
// header's type strings into interned *chtype.Type values.
func NewReader(body io.ReadCloser, reg *chtype.Registry) (*Reader, error) {
	r := &Reader{
		body: body,
		br:   bufio.NewReader(body),
		reg:  reg,
	}
	if err := r.readHeader(); err != nil {
		r.body.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) readHeader() error {
	n, err := chwire.ReadUvarint(r.br)
	if err != nil {
		return errors.Wrap(ErrMalformedHeader, err.Error())
	}
	r.names = make([]string, n)
	for i := range r.names {
		name, err := readHeaderString(r.br)
		if err != nil {
			return errors.Wrap(ErrMalformedHeader, err.Error())
		}
		r.names[i] = name
	}
	r.types = make([]*chtype.Type, n)
	for i := range r.types {
		typeText, err := readHeaderString(r.br)
		if err != nil {
			return errors.Wrap(ErrMalformedHeader, err.Error())
		}
		typ, err := r.reg.Parse(typeText)
		if err != nil {
			return errors.Wrap(ErrMalformedHeader, err.Error())
		}
		r.types[i] = typ
	}
	r.row = make([]chvalue.Value, n)
	return nil
}

func readHeaderString(br *bufio.Reader) (string, error) {
	n, err := chwire.ReadUvarint(br)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// FieldCount returns the number of columns.
func (r *Reader) FieldCount() int { return len(r.names) }

// ColumnName returns the name of column i.
func (r *Reader) ColumnName(i int) string { return r.names[i] }

// ColumnType returns the declared type of column i.
func (r *Reader) ColumnType(i int) *chtype.Type { return r.types[i] }

// Err returns the error that ended iteration, if any. It is nil after a
// clean end-of-stream.
func (r *Reader) Err() error { return r.err }

// Read advances to the next row, decoding one value per column in
// order, and reports whether a row was produced. Once Read returns
// false the reader is Done; a second call after end returns false
// stably.
//
// Cancellation is honored between rows, and best-effort between column
// decodes within a row, via ctx.
func (r *Reader) Read(ctx context.Context) bool {
	if r.st == stateDone {
		return false
	}
	if err := ctx.Err(); err != nil {
		r.fail(errors.Wrap(ErrCancelled, err.Error()))
		return false
	}

	if _, err := r.br.Peek(1); err != nil {
		if err == io.EOF {
			r.finish()
			return false
		}
		r.fail(err)
		return false
	}

	for i, typ := range r.types {
		if i > 0 {
			if err := ctx.Err(); err != nil {
				r.fail(errors.Wrap(ErrCancelled, err.Error()))
				return false
			}
		}
		v, err := chwire.Decode(r.br, typ)
		if err != nil {
			// The stream ended inside a row: the bytes after the last
			// complete row do not form a full row.
			if errors.Is(err, chwire.ErrTruncated) {
				err = errors.Wrap(ErrTrailingBytes, err.Error())
			}
			r.fail(err)
			return false
		}
		r.row[i] = v
	}
	r.st = stateRows
	return true
}

func (r *Reader) finish() {
	r.st = stateDone
	if _, err := r.br.Peek(1); err == nil {
		r.err = ErrTrailingBytes
	}
	r.body.Close()
}

func (r *Reader) fail(err error) {
	r.st = stateDone
	r.err = err
	r.body.Close()
}

// Close releases the underlying response stream. Safe to call after the
// reader has already reached Done.
func (r *Reader) Close() error {
	if r.st != stateDone {
		r.st = stateDone
	}
	return r.body.Close()
}

// Value returns the raw decoded value of column i from the current row.
func (r *Reader) Value(i int) (chvalue.Value, error) {
	if i < 0 || i >= len(r.row) {
		return chvalue.Value{}, ErrColumnIndex
	}
	return r.row[i], nil
}

// IsNull reports whether column i of the current row is null. Defined
// only for Nullable columns.
func (r *Reader) IsNull(i int) (bool, error) {
	if i < 0 || i >= len(r.types) {
		return false, ErrColumnIndex
	}
	if r.types[i].Kind != chtype.KindNullable {
		return false, ErrNotNullable
	}
	return r.row[i].IsNull(), nil
}

// GetInt converts column i to an int64, or fails TypeMismatch.
func (r *Reader) GetInt(i int) (int64, error) {
	v, err := r.Value(i)
	if err != nil {
		return 0, err
	}
	if v.Kind != chvalue.KindInt {
		return 0, errors.Wrapf(ErrTypeMismatch, "column %d is not an integer", i)
	}
	return v.AsInt(), nil
}

// GetUInt converts column i to a uint64, or fails TypeMismatch.
func (r *Reader) GetUInt(i int) (uint64, error) {
	v, err := r.Value(i)
	if err != nil {
		return 0, err
	}
	if v.Kind != chvalue.KindUInt {
		return 0, errors.Wrapf(ErrTypeMismatch, "column %d is not an unsigned integer", i)
	}
	return v.AsUInt(), nil
}

// GetString converts column i to a string, or fails TypeMismatch.
func (r *Reader) GetString(i int) (string, error) {
	v, err := r.Value(i)
	if err != nil {
		return "", err
	}
	switch v.Kind {
	case chvalue.KindStr:
		return v.AsStr(), nil
	case chvalue.KindBytes:
		return string(v.AsBytes()), nil
	}
	return "", errors.Wrapf(ErrTypeMismatch, "column %d is not a string", i)
}

// GetFloat converts column i to a float64, or fails TypeMismatch.
func (r *Reader) GetFloat(i int) (float64, error) {
	v, err := r.Value(i)
	if err != nil {
		return 0, err
	}
	if v.Kind != chvalue.KindFloat {
		return 0, errors.Wrapf(ErrTypeMismatch, "column %d is not a float", i)
	}
	return v.AsFloat(), nil
}

// GetBool converts column i to a bool, or fails TypeMismatch.
func (r *Reader) GetBool(i int) (bool, error) {
	v, err := r.Value(i)
	if err != nil {
		return false, err
	}
	if v.Kind != chvalue.KindBool {
		return false, errors.Wrapf(ErrTypeMismatch, "column %d is not a bool", i)
	}
	return v.AsBool(), nil
}
