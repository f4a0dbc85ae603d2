package chwire

import (
	"bufio"
	"io"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"chnative/chtype"
	"chnative/chvalue"
)

// encodeDecimal writes a signed integer of the width implied by the
// type's precision, value = unscaled * 10^-scale.
func encodeDecimal(w io.Writer, t *chtype.Type, v chvalue.Value) error {
	var d decimal.Decimal
	switch v.Kind {
	case chvalue.KindDecimal:
		d = v.AsDecimal()
	case chvalue.KindInt:
		d = decimal.NewFromInt(v.AsInt())
	case chvalue.KindFloat:
		d = decimal.NewFromFloat(v.AsFloat())
	default:
		return errors.Wrap(ErrTypeMismatch, "Decimal expects a decimal/numeric value")
	}
	unscaled := d.Shift(int32(t.Scale)).Round(0).BigInt()
	width := t.DecimalWidth()
	buf, err := bigIntToLE(unscaled, width, true)
	if err != nil {
		return errors.Wrapf(ErrOutOfRange, "Decimal(%d,%d): %v", t.Precision, t.Scale, err)
	}
	_, err = w.Write(buf)
	return err
}

func decodeDecimal(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	width := t.DecimalWidth()
	buf, err := readFull(r, width)
	if err != nil {
		return chvalue.Value{}, err
	}
	unscaled := leToBigInt(buf, true)
	d := decimal.NewFromBigInt(unscaled, -int32(t.Scale))
	return chvalue.Decimal(d), nil
}
