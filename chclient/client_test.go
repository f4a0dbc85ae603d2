package chclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"chnative/chtype"
	"chnative/chvalue"
	"chnative/internal/chconfig"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c, err := New(Options{Addr: srv.URL, Database: "default"}, chtype.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func writeRowBinaryHeader(buf *bytes.Buffer, names, types []string) {
	writeUvarint(buf, uint64(len(names)))
	for _, n := range names {
		writeUvarint(buf, uint64(len(n)))
		buf.WriteString(n)
	}
	for _, ty := range types {
		writeUvarint(buf, uint64(len(ty)))
		buf.WriteString(ty)
	}
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	for v >= 0x80 {
		buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	buf.WriteByte(byte(v))
}

func TestPing(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		if q != "SELECT 1" {
			t.Errorf("query = %q", q)
		}
		w.Write([]byte("1\n"))
	})
	defer srv.Close()

	if !c.Ping(context.Background()) {
		t.Fatal("expected Ping to succeed")
	}
}

func TestScalarEmptyResult(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		writeRowBinaryHeader(&buf, []string{"v"}, []string{"Int32"})
		w.Write(buf.Bytes())
	})
	defer srv.Close()

	v, err := c.Scalar(context.Background(), "SELECT v FROM t WHERE 1=0", nil, QueryOptions{})
	if err != nil {
		t.Fatalf("Scalar: %v", err)
	}
	if !v.IsNull() {
		t.Fatalf("expected null scalar, got %+v", v)
	}
}

func TestScalarWithParams(t *testing.T) {
	var gotQuery string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery, _ = url.QueryUnescape(r.URL.Query().Get("query"))
		var buf bytes.Buffer
		writeRowBinaryHeader(&buf, []string{"v"}, []string{"Int32"})
		buf.WriteByte(42)
		buf.WriteByte(0)
		buf.WriteByte(0)
		buf.WriteByte(0)
		w.Write(buf.Bytes())
	})
	defer srv.Close()

	v, err := c.Scalar(context.Background(), "SELECT {x:Int32}", map[string]chvalue.Value{"x": chvalue.Int(42)}, QueryOptions{})
	if err != nil {
		t.Fatalf("Scalar: %v", err)
	}
	if v.AsInt() != 42 {
		t.Fatalf("value = %d, want 42", v.AsInt())
	}
	if gotQuery != "SELECT 42" {
		t.Fatalf("query = %q, want %q", gotQuery, "SELECT 42")
	}
}

func TestExecuteServerError(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Code: 60. DB::Exception: Table default.missing doesn't exist"))
	})
	defer srv.Close()

	_, err := c.Execute(context.Background(), "SELECT 1 FROM missing", nil, QueryOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	se, ok := err.(*ServerError)
	if !ok {
		t.Fatalf("got %T, want *ServerError", err)
	}
	if se.Code != 60 {
		t.Fatalf("code = %d, want 60", se.Code)
	}
}

func TestUploadInsertGzip(t *testing.T) {
	var gotBody []byte
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") != "gzip" {
			t.Errorf("Content-Encoding = %q", r.Header.Get("Content-Encoding"))
		}
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			t.Fatalf("gzip.NewReader: %v", err)
		}
		gotBody, _ = io.ReadAll(gz)
		w.Header().Set("X-ClickHouse-Summary", `{"read_rows":"0","written_rows":"1"}`)
	})
	defer srv.Close()

	raw := []byte{1, 2, 3, 4}
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	gz.Write(raw)
	gz.Close()

	n, err := c.UploadInsert(context.Background(), "INSERT INTO t (v) FORMAT RowBinary", &compressed, "gzip")
	if err != nil {
		t.Fatalf("UploadInsert: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
	if !bytes.Equal(gotBody, raw) {
		t.Fatalf("body = %v, want %v", gotBody, raw)
	}
}

func TestNewFromSettings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1\n"))
	}))
	defer srv.Close()

	raw := []byte("addr: " + srv.URL + "\ndatabase: default\ncompression: gzip\nbatch:\n  batch_size: 500\n  max_parallel: 2\n")
	settings, err := chconfig.Parse(raw)
	if err != nil {
		t.Fatalf("chconfig.Parse: %v", err)
	}

	c, err := NewFromSettings(settings, chtype.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("NewFromSettings: %v", err)
	}
	if c.opts.Compression != "gzip" || c.opts.BatchSize != 500 || c.opts.MaxParallel != 2 {
		t.Fatalf("opts = %+v, want compression=gzip batch_size=500 max_parallel=2", c.opts)
	}
	if !c.Ping(context.Background()) {
		t.Fatal("expected Ping to succeed")
	}
}

func TestExecuteRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, err := New(Options{Addr: srv.URL, Database: "default", RequestTimeout: 10 * time.Millisecond}, chtype.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Execute(context.Background(), "SELECT 1", nil, QueryOptions{})
	if err != ErrTimeout {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
}

func TestDescribeTable(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		writeRowBinaryHeader(&buf, []string{"name", "type"}, []string{"String", "String"})
		writeUvarint(&buf, 2)
		buf.WriteString("id")
		writeUvarint(&buf, 5)
		buf.WriteString("Int32")
		writeUvarint(&buf, 5)
		buf.WriteString("label")
		writeUvarint(&buf, 6)
		buf.WriteString("String")
		w.Write(buf.Bytes())
	})
	defer srv.Close()

	cols, err := c.DescribeTable(context.Background(), "t")
	if err != nil {
		t.Fatalf("DescribeTable: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("len(cols) = %d, want 2", len(cols))
	}
	if cols["id"].Kind != chtype.KindInt32 {
		t.Fatalf("id kind = %v", cols["id"].Kind)
	}
}
