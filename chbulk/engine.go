// Package chbulk implements the Bulk Copy Engine: a producer /
// batcher / upload-queue / worker-pool / aggregator pipeline that streams
// rows from a lazy source into a ClickHouse table over many concurrent
// HTTP POSTs.
package chbulk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/go-faster/errors"

	"chnative/chtype"
	"chnative/chvalue"
	"chnative/internal/chlog"
)

// ErrUnknownColumn is returned when a requested column name has no
// match in the destination table's declared schema.
var ErrUnknownColumn = errors.New("chbulk: unknown column")

// ErrAmbiguousColumn names the case of a requested column name matching
// more than one declared column. Copy never returns it: DescribeTable
// yields a map keyed by column name, so each name resolves to at most one
// declared column.
var ErrAmbiguousColumn = errors.New("chbulk: ambiguous column")

// RowSource lazily produces positional value rows, one column per entry
// in the engine's configured column list, in source order.
type RowSource interface {
	// Next returns the next row, or ok=false once the source is
	// exhausted. It must preserve call order: row N is produced before
	// row N+1.
	Next(ctx context.Context) (row []chvalue.Value, ok bool, err error)
}

// Uploader posts one sealed RowBinary batch body against an INSERT
// statement and reports how many rows the server confirmed. Implemented
// by chclient.
type Uploader interface {
	UploadInsert(ctx context.Context, query string, body io.Reader, encoding string) (rowsWritten int64, err error)
	// DescribeTable returns the declared type of every column of table,
	// keyed by column name.
	DescribeTable(ctx context.Context, table string) (map[string]*chtype.Type, error)
}

// Options configures one bulk-copy run.
type Options struct {
	Table       string
	Columns     []string
	BatchSize   int
	MaxParallel int

	// Logger receives batch seal/upload events at Debug level and the
	// first bulk-copy failure at Error level. A nil Logger is a no-op.
	Logger chlog.Logger
}

// BatchError reports the first upload failure, naming the batch index
// and the (start, end) row range it covered, without attempting any
// server-side rollback.
type BatchError struct {
	BatchIndex int
	StartRow   int
	EndRow     int
	Err        error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("chbulk: batch %d (rows %d..%d): %v", e.BatchIndex, e.StartRow, e.EndRow, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Result aggregates the outcome of a Copy run.
type Result struct {
	RowsWritten int64
}

// Copy runs the full pipeline: a single producer pulls rows from src in
// order and appends them to the current batch buffer; when a batch
// reaches opts.BatchSize rows it is sealed and handed to up to
// opts.MaxParallel concurrent upload workers bounded by a semaphore.
// Each worker owns its own sealed batch and never touches another's.
//
// The producer does not run inside the errgroup: g.Go goroutines share
// one context only insofar as the caller's ctx is passed through to
// every upload, so one upload's failure never cancels an upload already
// in flight; it only stops the producer from sealing further batches.
func Copy(ctx context.Context, up Uploader, src RowSource, opts Options) (*Result, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 1
	}
	log := opts.Logger
	if log == nil {
		log = chlog.Nop()
	}

	colTypes, err := resolveColumns(ctx, up, opts.Table, opts.Columns)
	if err != nil {
		return nil, err
	}
	insertStmt := buildInsertStatement(opts.Table, opts.Columns)

	sem := semaphore.NewWeighted(int64(opts.MaxParallel))
	g := new(errgroup.Group)
	var rowsWritten int64
	var firstBatchErr atomic.Value // *BatchError

	uploadBatch := func(b *batch) error {
		defer sem.Release(1)

		var body bytes.Buffer
		gz := gzip.NewWriter(&body)
		if _, err := gz.Write(b.buf.Bytes()); err != nil {
			return &BatchError{BatchIndex: b.index, StartRow: b.startRow, EndRow: b.endRow(), Err: err}
		}
		if err := gz.Close(); err != nil {
			return &BatchError{BatchIndex: b.index, StartRow: b.startRow, EndRow: b.endRow(), Err: err}
		}

		n, err := up.UploadInsert(ctx, insertStmt, &body, "gzip")
		if err != nil {
			return &BatchError{BatchIndex: b.index, StartRow: b.startRow, EndRow: b.endRow(), Err: err}
		}
		log.Debug("chbulk: batch uploaded",
			zap.Int("batch_index", b.index), zap.Int("start_row", b.startRow), zap.Int("end_row", b.endRow()))
		atomic.AddInt64(&rowsWritten, n)
		return nil
	}

	batchIndex := 0
	startRow := 0
	cur := newBatch(batchIndex, startRow)

	seal := func() error {
		if cur.empty() {
			return nil
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		sealed := cur
		log.Debug("chbulk: batch sealed",
			zap.Int("batch_index", sealed.index), zap.Int("start_row", sealed.startRow), zap.Int("end_row", sealed.endRow()))
		g.Go(func() error {
			err := uploadBatch(sealed)
			if err != nil {
				if be, ok := err.(*BatchError); ok {
					if firstBatchErr.CompareAndSwap(nil, be) {
						log.Error("chbulk: bulk copy failed",
							zap.Int("batch_index", be.BatchIndex), zap.Int("start_row", be.StartRow),
							zap.Int("end_row", be.EndRow), zap.Error(be.Err))
					}
				}
			}
			return err
		})
		batchIndex++
		startRow = cur.endRow()
		cur = newBatch(batchIndex, startRow)
		return nil
	}

	var producerErr error
producer:
	for {
		if err := ctx.Err(); err != nil {
			producerErr = err
			break
		}
		if firstBatchErr.Load() != nil {
			break
		}
		row, ok, err := src.Next(ctx)
		if err != nil {
			producerErr = err
			break producer
		}
		if !ok {
			break producer
		}
		if err := cur.appendRow(colTypes, row); err != nil {
			producerErr = err
			break producer
		}
		if cur.full(opts.BatchSize) {
			if sealErr := seal(); sealErr != nil {
				producerErr = sealErr
				break producer
			}
		}
	}
	if firstBatchErr.Load() == nil {
		if err := seal(); err != nil && producerErr == nil {
			producerErr = err
		}
	}

	groupErr := g.Wait()

	// A batch upload failure is reported in preference to a producer
	// error raised afterward (the engine had already committed those
	// rows to a batch before the producer stopped); a producer error
	// with no batch failure yet is reported as-is.
	if be := firstBatchErr.Load(); be != nil {
		return &Result{RowsWritten: atomic.LoadInt64(&rowsWritten)}, be.(*BatchError)
	}
	if groupErr != nil {
		return &Result{RowsWritten: atomic.LoadInt64(&rowsWritten)}, groupErr
	}
	if producerErr != nil {
		return &Result{RowsWritten: atomic.LoadInt64(&rowsWritten)}, producerErr
	}
	return &Result{RowsWritten: atomic.LoadInt64(&rowsWritten)}, nil
}

// resolveColumns cross-checks the requested column names against the
// table's declared schema and projects a type vector in the requested
// order.
func resolveColumns(ctx context.Context, up Uploader, table string, columns []string) ([]*chtype.Type, error) {
	declared, err := up.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	types := make([]*chtype.Type, len(columns))
	for i, name := range columns {
		typ, ok := declared[name]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownColumn, "%q", name)
		}
		types[i] = typ
	}
	return types, nil
}

func buildInsertStatement(table string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) FORMAT RowBinary", table, strings.Join(columns, ", "))
}
