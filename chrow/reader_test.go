package chrow

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"chnative/chtype"
	"chnative/chvalue"
	"chnative/chwire"
)

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }

func newBody(buf *bytes.Buffer) io.ReadCloser {
	return nopCloser{bytes.NewReader(buf.Bytes())}
}

func writeHeader(t *testing.T, buf *bytes.Buffer, names []string, types []string) {
	t.Helper()
	if err := chwire.PutUvarint(buf, uint64(len(names))); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		writeHeaderString(t, buf, name)
	}
	for _, typ := range types {
		writeHeaderString(t, buf, typ)
	}
}

func writeHeaderString(t *testing.T, buf *bytes.Buffer, s string) {
	t.Helper()
	if err := chwire.PutUvarint(buf, uint64(len(s))); err != nil {
		t.Fatal(err)
	}
	buf.WriteString(s)
}

func TestRowRoundTrip(t *testing.T) {
	reg := chtype.NewRegistry()
	intType, _ := reg.Parse("Int32")
	strType, _ := reg.Parse("String")
	dtType, _ := reg.Parse("DateTime('UTC')")

	var buf bytes.Buffer
	writeHeader(t, &buf, []string{"a", "b", "c"}, []string{"Int32", "String", "DateTime('UTC')"})

	row := []chvalue.Value{
		chvalue.Int(42),
		chvalue.Str("ab\ncd"),
		chvalue.DateTime(time.Date(2023, 4, 15, 1, 2, 3, 0, time.UTC).Unix(), time.UTC),
	}
	types := []*chtype.Type{intType, strType, dtType}
	for i, v := range row {
		if err := chwire.Encode(&buf, types[i], v); err != nil {
			t.Fatal(err)
		}
	}

	r, err := NewReader(newBody(&buf), reg)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if r.FieldCount() != 3 {
		t.Fatalf("FieldCount = %d, want 3", r.FieldCount())
	}

	ctx := context.Background()
	if !r.Read(ctx) {
		t.Fatalf("Read: expected a row, err=%v", r.Err())
	}

	gotInt, err := r.GetInt(0)
	if err != nil || gotInt != 42 {
		t.Fatalf("GetInt(0) = %d, %v", gotInt, err)
	}
	gotStr, err := r.GetString(1)
	if err != nil || gotStr != "ab\ncd" {
		t.Fatalf("GetString(1) = %q, %v", gotStr, err)
	}
	secs, _ := func() (int64, error) {
		v, err := r.Value(2)
		if err != nil {
			return 0, err
		}
		s, _ := v.AsDateTime()
		return s, nil
	}()
	if secs != time.Date(2023, 4, 15, 1, 2, 3, 0, time.UTC).Unix() {
		t.Fatalf("DateTime seconds = %d", secs)
	}

	if r.Read(ctx) {
		t.Fatal("expected Read to return false at end of stream")
	}
	if r.Err() != nil {
		t.Fatalf("unexpected error at clean end: %v", r.Err())
	}
	if r.Read(ctx) {
		t.Fatal("second Read after end must return false stably")
	}
}

func TestReadCancelled(t *testing.T) {
	reg := chtype.NewRegistry()
	intType, _ := reg.Parse("Int32")

	var buf bytes.Buffer
	writeHeader(t, &buf, []string{"a"}, []string{"Int32"})
	if err := chwire.Encode(&buf, intType, chvalue.Int(1)); err != nil {
		t.Fatal(err)
	}
	if err := chwire.Encode(&buf, intType, chvalue.Int(2)); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(newBody(&buf), reg)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if !r.Read(ctx) {
		t.Fatalf("first Read failed: %v", r.Err())
	}
	cancel()
	if r.Read(ctx) {
		t.Fatal("expected Read to stop after cancellation")
	}
	if r.Err() == nil {
		t.Fatal("expected Cancelled error")
	}
}

func TestTrailingBytes(t *testing.T) {
	reg := chtype.NewRegistry()
	intType, _ := reg.Parse("Int32")

	var buf bytes.Buffer
	writeHeader(t, &buf, []string{"a"}, []string{"Int32"})
	if err := chwire.Encode(&buf, intType, chvalue.Int(1)); err != nil {
		t.Fatal(err)
	}
	buf.WriteByte(0xFF) // partial garbage after the last complete row

	r, err := NewReader(newBody(&buf), reg)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if !r.Read(ctx) {
		t.Fatalf("Read: %v", r.Err())
	}
	if r.Read(ctx) {
		t.Fatal("expected false once the stream is exhausted of full rows")
	}
	if !errors.Is(r.Err(), ErrTrailingBytes) {
		t.Fatalf("got %v, want ErrTrailingBytes", r.Err())
	}
}
