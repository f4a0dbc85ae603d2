package chwire

import (
	"bufio"
	"encoding/binary"
	"io"
	"time"

	"github.com/go-faster/errors"

	"chnative/chtype"
	"chnative/chvalue"
)

func tzLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc
	}
	return time.UTC
}

// encodeDate writes a u16 count of days since 1970-01-01.
func encodeDate(w io.Writer, v chvalue.Value) error {
	if v.Kind != chvalue.KindDate {
		return errors.Wrap(ErrTypeMismatch, "Date expects a Date value")
	}
	days := v.AsDays()
	if days < 0 || days > 0xFFFF {
		return errors.Wrap(ErrOutOfRange, "Date: day count out of range")
	}
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(days))
	_, err := w.Write(buf)
	return err
}

func decodeDate(r *bufio.Reader) (chvalue.Value, error) {
	buf, err := readFull(r, 2)
	if err != nil {
		return chvalue.Value{}, err
	}
	return chvalue.Date(int32(binary.LittleEndian.Uint16(buf))), nil
}

// encodeDate32 writes an i32 count of days since 1900-01-01.
func encodeDate32(w io.Writer, v chvalue.Value) error {
	if v.Kind != chvalue.KindDate {
		return errors.Wrap(ErrTypeMismatch, "Date32 expects a Date value")
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v.AsDays()))
	_, err := w.Write(buf)
	return err
}

func decodeDate32(r *bufio.Reader) (chvalue.Value, error) {
	buf, err := readFull(r, 4)
	if err != nil {
		return chvalue.Value{}, err
	}
	return chvalue.Date(int32(binary.LittleEndian.Uint32(buf))), nil
}

// encodeDateTime writes a u32 count of UTC seconds since epoch; the
// type's timezone affects only textual display, never the wire bytes.
func encodeDateTime(w io.Writer, v chvalue.Value) error {
	if v.Kind != chvalue.KindDateTime {
		return errors.Wrap(ErrTypeMismatch, "DateTime expects a DateTime value")
	}
	secs, _ := v.AsDateTime()
	if secs < 0 || secs > 0xFFFFFFFF {
		return errors.Wrap(ErrOutOfRange, "DateTime: seconds out of range")
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(secs))
	_, err := w.Write(buf)
	return err
}

func decodeDateTime(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	buf, err := readFull(r, 4)
	if err != nil {
		return chvalue.Value{}, err
	}
	secs := int64(binary.LittleEndian.Uint32(buf))
	return chvalue.DateTime(secs, tzLocation(t.TZ)), nil
}

// encodeDateTime64 writes an i64 tick count, one tick = 10^-p seconds
// from epoch.
func encodeDateTime64(w io.Writer, t *chtype.Type, v chvalue.Value) error {
	if v.Kind != chvalue.KindDateTime64 {
		return errors.Wrap(ErrTypeMismatch, "DateTime64 expects a DateTime64 value")
	}
	ticks, _, _ := v.AsDateTime64()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(ticks))
	_, err := w.Write(buf)
	return err
}

func decodeDateTime64(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	buf, err := readFull(r, 8)
	if err != nil {
		return chvalue.Value{}, err
	}
	ticks := int64(binary.LittleEndian.Uint64(buf))
	return chvalue.DateTime64(ticks, t.Precision, tzLocation(t.TZ)), nil
}
