// Package chexport adapts a chrow.Reader result set to Apache Arrow IPC,
// for callers that want to hand query results to Arrow-native tooling
// instead of consuming rows directly.
package chexport

import (
	"bytes"
	"context"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/go-faster/errors"

	"chnative/chparam"
	"chnative/chrow"
	"chnative/chtype"
	"chnative/chvalue"
)

// ToArrowIPC drains r to completion and serializes the result set as one
// Arrow IPC stream. Columns whose ClickHouse type maps directly onto an
// Arrow primitive (integers up to 64 bits, floats, Bool,
// String/FixedString) use a matching builder; every other type (Array,
// Tuple, Map, Decimal, Date/DateTime, UUID, Enum, Int128/256 and
// UInt128/256, JSON/Dynamic, ...) is rendered through
// chparam's SQL-literal form into an Arrow string column, so no column
// is dropped even when it has no native Arrow counterpart here.
func ToArrowIPC(ctx context.Context, r *chrow.Reader) ([]byte, error) {
	pool := memory.NewGoAllocator()

	n := r.FieldCount()
	fields := make([]arrow.Field, n)
	builders := make([]array.Builder, n)
	kinds := make([]columnKind, n)

	for i := 0; i < n; i++ {
		kind, arrowType := arrowMapping(r.ColumnType(i))
		kinds[i] = kind
		fields[i] = arrow.Field{Name: r.ColumnName(i), Type: arrowType, Nullable: isNullable(r.ColumnType(i))}
		builders[i] = array.NewBuilder(pool, arrowType)
	}
	defer func() {
		for _, b := range builders {
			b.Release()
		}
	}()

	schema := arrow.NewSchema(fields, nil)

	var nrows int64
	for r.Read(ctx) {
		nrows++
		for i := 0; i < n; i++ {
			v, err := r.Value(i)
			if err != nil {
				return nil, err
			}
			if err := appendValue(builders[i], kinds[i], r.ColumnType(i), v); err != nil {
				return nil, errors.Wrapf(err, "column %q", r.ColumnName(i))
			}
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	arrays := make([]arrow.Array, n)
	for i, b := range builders {
		arrays[i] = b.NewArray()
		defer arrays[i].Release()
	}

	record := array.NewRecord(schema, arrays, nrows)
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, errors.Wrap(err, "chexport: write Arrow record")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "chexport: close Arrow writer")
	}
	return buf.Bytes(), nil
}

type columnKind uint8

const (
	kindRenderedString columnKind = iota
	kindInt64
	kindUint64
	kindFloat64
	kindBool
	kindString
)

func isNullable(t *chtype.Type) bool {
	return t.Kind == chtype.KindNullable
}

// arrowMapping picks the Arrow type and append strategy for a ClickHouse
// column type. LowCardinality/Nullable unwrap to their element's mapping
// before the switch.
func arrowMapping(t *chtype.Type) (columnKind, arrow.DataType) {
	switch t.Kind {
	case chtype.KindNullable, chtype.KindLowCardinality:
		return arrowMapping(t.Elem)
	case chtype.KindEnum8, chtype.KindEnum16:
		return kindRenderedString, arrow.BinaryTypes.String
	}
	if width, signed, ok := t.IntWidth(); ok && width <= 8 {
		if signed {
			return kindInt64, arrow.PrimitiveTypes.Int64
		}
		return kindUint64, arrow.PrimitiveTypes.Uint64
	}
	switch t.Kind {
	case chtype.KindFloat32, chtype.KindFloat64:
		return kindFloat64, arrow.PrimitiveTypes.Float64
	case chtype.KindBool:
		return kindBool, arrow.FixedWidthTypes.Boolean
	case chtype.KindString, chtype.KindFixedString:
		return kindString, arrow.BinaryTypes.String
	}
	return kindRenderedString, arrow.BinaryTypes.String
}

func appendValue(b array.Builder, kind columnKind, t *chtype.Type, v chvalue.Value) error {
	if v.IsNull() {
		b.AppendNull()
		return nil
	}
	elemType := t
	if t.Kind == chtype.KindNullable || t.Kind == chtype.KindLowCardinality {
		elemType = t.Elem
	}
	switch kind {
	case kindInt64:
		if v.Kind == chvalue.KindBigInt && v.AsBigInt() != nil {
			b.(*array.Int64Builder).Append(v.AsBigInt().Int64())
			return nil
		}
		b.(*array.Int64Builder).Append(v.AsInt())
		return nil
	case kindUint64:
		if v.Kind == chvalue.KindBigInt && v.AsBigInt() != nil {
			b.(*array.Uint64Builder).Append(v.AsBigInt().Uint64())
			return nil
		}
		b.(*array.Uint64Builder).Append(v.AsUInt())
		return nil
	case kindFloat64:
		b.(*array.Float64Builder).Append(v.AsFloat())
		return nil
	case kindBool:
		b.(*array.BooleanBuilder).Append(v.AsBool())
		return nil
	case kindString:
		if v.Kind == chvalue.KindBytes {
			b.(*array.StringBuilder).Append(string(v.AsBytes()))
			return nil
		}
		b.(*array.StringBuilder).Append(v.AsStr())
		return nil
	default:
		s, err := chparam.Render(elemType, v)
		if err != nil {
			return err
		}
		b.(*array.StringBuilder).Append(s)
		return nil
	}
}
