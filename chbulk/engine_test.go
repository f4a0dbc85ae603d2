package chbulk

import (
	"compress/gzip"
	"context"
	"io"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"chnative/chtype"
	"chnative/chvalue"
	"chnative/internal/chlog"
)

type sliceSource struct {
	rows [][]chvalue.Value
	i    int
}

func (s *sliceSource) Next(ctx context.Context) ([]chvalue.Value, bool, error) {
	if s.i >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.i]
	s.i++
	return row, true, nil
}

type fakeUploader struct {
	schema map[string]*chtype.Type

	mu       sync.Mutex
	uploads  int
	rowsSeen int64
	fail     bool
}

func (f *fakeUploader) DescribeTable(ctx context.Context, table string) (map[string]*chtype.Type, error) {
	return f.schema, nil
}

func (f *fakeUploader) UploadInsert(ctx context.Context, query string, body io.Reader, encoding string) (int64, error) {
	gz, err := gzip.NewReader(body)
	if err != nil {
		return 0, err
	}
	raw, err := io.ReadAll(gz)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.fail {
		return 0, errBoom
	}
	// Int64 column encodes to 8 bytes per row.
	n := int64(len(raw) / 8)
	f.rowsSeen += n
	return n, nil
}

var errBoom = &boom{}

type boom struct{}

func (*boom) Error() string { return "boom" }

func TestCopyOrderedSingleParallel(t *testing.T) {
	reg := chtype.NewRegistry()
	int64Type, _ := reg.Parse("Int64")
	up := &fakeUploader{schema: map[string]*chtype.Type{"v": int64Type}}

	rows := make([][]chvalue.Value, 0, 100)
	for i := 0; i < 100; i++ {
		rows = append(rows, []chvalue.Value{chvalue.Int(int64(i))})
	}
	src := &sliceSource{rows: rows}

	res, err := Copy(context.Background(), up, src, Options{
		Table:       "t",
		Columns:     []string{"v"},
		BatchSize:   10,
		MaxParallel: 1,
	})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if res.RowsWritten != 100 {
		t.Fatalf("RowsWritten = %d, want 100", res.RowsWritten)
	}
	if up.uploads != 10 {
		t.Fatalf("uploads = %d, want 10", up.uploads)
	}
}

func TestCopyUnknownColumn(t *testing.T) {
	reg := chtype.NewRegistry()
	int64Type, _ := reg.Parse("Int64")
	up := &fakeUploader{schema: map[string]*chtype.Type{"v": int64Type}}
	src := &sliceSource{}

	_, err := Copy(context.Background(), up, src, Options{
		Table:   "t",
		Columns: []string{"missing"},
	})
	if err == nil {
		t.Fatal("expected ErrUnknownColumn")
	}
}

func TestCopyFirstErrorWins(t *testing.T) {
	reg := chtype.NewRegistry()
	int64Type, _ := reg.Parse("Int64")
	up := &fakeUploader{schema: map[string]*chtype.Type{"v": int64Type}, fail: true}

	rows := make([][]chvalue.Value, 0, 30)
	for i := 0; i < 30; i++ {
		rows = append(rows, []chvalue.Value{chvalue.Int(int64(i))})
	}
	src := &sliceSource{rows: rows}

	_, err := Copy(context.Background(), up, src, Options{
		Table:       "t",
		Columns:     []string{"v"},
		BatchSize:   10,
		MaxParallel: 2,
	})
	if err == nil {
		t.Fatal("expected upload failure to surface")
	}
	var batchErr *BatchError
	if !asBatchError(err, &batchErr) {
		t.Fatalf("got %T (%v), want *BatchError", err, err)
	}
}

func TestCopyLogsFirstFailure(t *testing.T) {
	reg := chtype.NewRegistry()
	int64Type, _ := reg.Parse("Int64")
	up := &fakeUploader{schema: map[string]*chtype.Type{"v": int64Type}, fail: true}

	rows := make([][]chvalue.Value, 0, 30)
	for i := 0; i < 30; i++ {
		rows = append(rows, []chvalue.Value{chvalue.Int(int64(i))})
	}
	src := &sliceSource{rows: rows}

	core, logs := observer.New(zapcore.DebugLevel)
	log := chlog.New(zap.New(core))

	_, err := Copy(context.Background(), up, src, Options{
		Table:       "t",
		Columns:     []string{"v"},
		BatchSize:   10,
		MaxParallel: 2,
		Logger:      log,
	})
	if err == nil {
		t.Fatal("expected upload failure to surface")
	}

	errEntries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	if len(errEntries) != 1 {
		t.Fatalf("error log entries = %d, want 1", len(errEntries))
	}
	fields := errEntries[0].ContextMap()
	if _, ok := fields["batch_index"]; !ok {
		t.Fatalf("error log missing batch_index field: %v", fields)
	}
	if _, ok := fields["start_row"]; !ok {
		t.Fatalf("error log missing start_row field: %v", fields)
	}

	if sealed := logs.FilterMessage("chbulk: batch sealed").Len(); sealed == 0 {
		t.Fatal("expected at least one batch-sealed debug log")
	}
}

func asBatchError(err error, target **BatchError) bool {
	be, ok := err.(*BatchError)
	if !ok {
		return false
	}
	*target = be
	return true
}
