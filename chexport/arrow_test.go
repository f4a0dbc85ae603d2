package chexport

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"

	"chnative/chrow"
	"chnative/chtype"
	"chnative/chvalue"
	"chnative/chwire"
)

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }

func TestToArrowIPC(t *testing.T) {
	reg := chtype.NewRegistry()
	intType, _ := reg.Parse("Int32")
	strType, _ := reg.Parse("String")
	arrType, _ := reg.Parse("Array(Int32)")

	var buf bytes.Buffer
	if err := chwire.PutUvarint(&buf, 3); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"id", "label", "tags"} {
		if err := chwire.PutUvarint(&buf, uint64(len(name))); err != nil {
			t.Fatal(err)
		}
		buf.WriteString(name)
	}
	for _, typ := range []string{"Int32", "String", "Array(Int32)"} {
		if err := chwire.PutUvarint(&buf, uint64(len(typ))); err != nil {
			t.Fatal(err)
		}
		buf.WriteString(typ)
	}

	rows := [][3]chvalue.Value{
		{chvalue.Int(1), chvalue.Str("a"), chvalue.Array([]chvalue.Value{chvalue.Int(1), chvalue.Int(2)})},
		{chvalue.Int(2), chvalue.Str("b"), chvalue.Array(nil)},
	}
	for _, row := range rows {
		if err := chwire.Encode(&buf, intType, row[0]); err != nil {
			t.Fatal(err)
		}
		if err := chwire.Encode(&buf, strType, row[1]); err != nil {
			t.Fatal(err)
		}
		if err := chwire.Encode(&buf, arrType, row[2]); err != nil {
			t.Fatal(err)
		}
	}

	var body io.ReadCloser = nopCloser{bytes.NewReader(buf.Bytes())}
	reader, err := chrow.NewReader(body, reg)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	out, err := ToArrowIPC(context.Background(), reader)
	if err != nil {
		t.Fatalf("ToArrowIPC: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected non-empty Arrow IPC bytes")
	}

	ipcReader, err := ipc.NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("ipc.NewReader: %v", err)
	}
	defer ipcReader.Release()

	if got := ipcReader.Schema().NumFields(); got != 3 {
		t.Fatalf("schema fields = %d, want 3", got)
	}
	for i, name := range []string{"id", "label", "tags"} {
		if got := ipcReader.Schema().Field(i).Name; got != name {
			t.Fatalf("field %d name = %q, want %q", i, got, name)
		}
	}

	if !ipcReader.Next() {
		t.Fatal("expected one record batch")
	}
	rec := ipcReader.Record()
	if rec.NumRows() != 2 {
		t.Fatalf("NumRows = %d, want 2", rec.NumRows())
	}

	ids := rec.Column(0).(*array.Int64)
	if ids.Value(0) != 1 || ids.Value(1) != 2 {
		t.Fatalf("id column = [%d,%d], want [1,2]", ids.Value(0), ids.Value(1))
	}

	labels := rec.Column(1).(*array.String)
	if labels.Value(0) != "a" || labels.Value(1) != "b" {
		t.Fatalf("label column = [%q,%q], want [\"a\",\"b\"]", labels.Value(0), labels.Value(1))
	}

	tags := rec.Column(2).(*array.String)
	if tags.Value(0) != "[1,2]" {
		t.Fatalf("tags[0] = %q, want [1,2]", tags.Value(0))
	}
	if tags.Value(1) != "[]" {
		t.Fatalf("tags[1] = %q, want []", tags.Value(1))
	}

	if ipcReader.Next() {
		t.Fatal("expected exactly one record batch")
	}
}
