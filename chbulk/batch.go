package chbulk

import (
	"bytes"

	"github.com/go-faster/errors"

	"chnative/chtype"
	"chnative/chvalue"
	"chnative/chwire"
)

// batch is a sealed, bounded set of rows encoded as headerless RowBinary
// ready for one HTTP POST. The server
// learns the column layout from the `INSERT INTO t (cols) FORMAT
// RowBinary` statement sent as the request's query text, so the body
// carries no names/types header.
type batch struct {
	index      int
	startRow   int
	rowCount   int
	buf        bytes.Buffer
}

func newBatch(index, startRow int) *batch {
	return &batch{index: index, startRow: startRow}
}

// appendRow encodes one row's values against colTypes, in column order,
// into the batch buffer.
func (b *batch) appendRow(colTypes []*chtype.Type, row []chvalue.Value) error {
	if len(row) != len(colTypes) {
		return errors.Newf("chbulk: row has %d values, want %d columns", len(row), len(colTypes))
	}
	for i, typ := range colTypes {
		if err := chwire.Encode(&b.buf, typ, row[i]); err != nil {
			return errors.Wrapf(err, "row %d, column %d", b.startRow+b.rowCount, i)
		}
	}
	b.rowCount++
	return nil
}

func (b *batch) endRow() int { return b.startRow + b.rowCount }

func (b *batch) full(batchSize int) bool { return b.rowCount >= batchSize }

func (b *batch) empty() bool { return b.rowCount == 0 }
