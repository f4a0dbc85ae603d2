package chwire

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"math/big"

	"github.com/go-faster/errors"

	"chnative/chtype"
	"chnative/chvalue"
)

// encodeInt writes a fixed-width little-endian integer; width in bytes
// is determined by the type (1, 2, 4, 8, 16, 32).
func encodeInt(w io.Writer, t *chtype.Type, v chvalue.Value) error {
	width, signed, _ := t.IntWidth()
	switch width {
	case 1, 2, 4, 8:
		var u uint64
		switch v.Kind {
		case chvalue.KindInt:
			u = uint64(v.AsInt())
		case chvalue.KindUInt:
			u = v.AsUInt()
		default:
			return errors.Wrapf(ErrTypeMismatch, "%s expects int/uint value", t.Canonical())
		}
		if !fitsWidth(u, width, signed) {
			return errors.Wrapf(ErrOutOfRange, "%s: value out of range", t.Canonical())
		}
		buf := make([]byte, width)
		switch width {
		case 1:
			buf[0] = byte(u)
		case 2:
			binary.LittleEndian.PutUint16(buf, uint16(u))
		case 4:
			binary.LittleEndian.PutUint32(buf, uint32(u))
		case 8:
			binary.LittleEndian.PutUint64(buf, u)
		}
		_, err := w.Write(buf)
		return err
	case 16, 32:
		var bi *big.Int
		switch v.Kind {
		case chvalue.KindBigInt:
			bi = v.AsBigInt()
		case chvalue.KindInt:
			bi = big.NewInt(v.AsInt())
		case chvalue.KindUInt:
			bi = new(big.Int).SetUint64(v.AsUInt())
		default:
			return errors.Wrapf(ErrTypeMismatch, "%s expects big integer value", t.Canonical())
		}
		buf, err := bigIntToLE(bi, width, signed)
		if err != nil {
			return errors.Wrapf(ErrOutOfRange, "%s: %v", t.Canonical(), err)
		}
		_, err = w.Write(buf)
		return err
	}
	return errors.Wrapf(ErrUnknownKind, "unsupported integer width %d", width)
}

func decodeInt(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	width, signed, _ := t.IntWidth()
	buf, err := readFull(r, width)
	if err != nil {
		return chvalue.Value{}, err
	}
	switch width {
	case 1:
		if signed {
			return chvalue.Int(int64(int8(buf[0]))), nil
		}
		return chvalue.UInt(uint64(buf[0])), nil
	case 2:
		u := binary.LittleEndian.Uint16(buf)
		if signed {
			return chvalue.Int(int64(int16(u))), nil
		}
		return chvalue.UInt(uint64(u)), nil
	case 4:
		u := binary.LittleEndian.Uint32(buf)
		if signed {
			return chvalue.Int(int64(int32(u))), nil
		}
		return chvalue.UInt(uint64(u)), nil
	case 8:
		u := binary.LittleEndian.Uint64(buf)
		if signed {
			return chvalue.Int(int64(u)), nil
		}
		return chvalue.UInt(u), nil
	case 16, 32:
		return chvalue.BigInt(leToBigInt(buf, signed)), nil
	}
	return chvalue.Value{}, errors.Wrapf(ErrUnknownKind, "unsupported integer width %d", width)
}

func fitsWidth(u uint64, width int, signed bool) bool {
	if width >= 8 {
		return true
	}
	bits := uint(width * 8)
	if signed {
		s := int64(u)
		min := -(int64(1) << (bits - 1))
		max := (int64(1) << (bits - 1)) - 1
		return s >= min && s <= max
	}
	max := (uint64(1) << bits) - 1
	return u <= max
}

// bigIntToLE renders v as a two's-complement little-endian buffer of
// exactly width bytes.
func bigIntToLE(v *big.Int, width int, signed bool) ([]byte, error) {
	if signed {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(width*8-1))
		if v.Cmp(limit) >= 0 || v.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, errors.New("value does not fit in width")
		}
	}
	var mag *big.Int
	if v.Sign() < 0 {
		if !signed {
			return nil, errors.New("negative value for unsigned type")
		}
		mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
		mag = new(big.Int).Add(mod, v)
	} else {
		mag = v
	}
	be := mag.Bytes()
	if len(be) > width {
		return nil, errors.New("value does not fit in width")
	}
	le := make([]byte, width)
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	return le, nil
}

func leToBigInt(buf []byte, signed bool) *big.Int {
	be := make([]byte, len(buf))
	for i, b := range buf {
		be[len(buf)-1-i] = b
	}
	v := new(big.Int).SetBytes(be)
	if signed && len(buf) > 0 && buf[len(buf)-1]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(buf)*8))
		v.Sub(v, mod)
	}
	return v
}

func encodeBool(w io.Writer, v chvalue.Value) error {
	if v.Kind != chvalue.KindBool {
		return errors.Wrap(ErrTypeMismatch, "Bool expects bool value")
	}
	var b byte
	if v.AsBool() {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

func decodeBool(r *bufio.Reader) (chvalue.Value, error) {
	buf, err := readFull(r, 1)
	if err != nil {
		return chvalue.Value{}, err
	}
	return chvalue.Bool(buf[0] != 0), nil
}

func encodeFloat(w io.Writer, t *chtype.Type, v chvalue.Value) error {
	var f float64
	switch v.Kind {
	case chvalue.KindFloat:
		f = v.AsFloat()
	case chvalue.KindInt:
		f = float64(v.AsInt())
	case chvalue.KindUInt:
		f = float64(v.AsUInt())
	default:
		return errors.Wrap(ErrTypeMismatch, "Float expects numeric value")
	}
	if t.Kind == chtype.KindFloat32 {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
		_, err := w.Write(buf)
		return err
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
	_, err := w.Write(buf)
	return err
}

func decodeFloat(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	if t.Kind == chtype.KindFloat32 {
		buf, err := readFull(r, 4)
		if err != nil {
			return chvalue.Value{}, err
		}
		return chvalue.Float(float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))), nil
	}
	buf, err := readFull(r, 8)
	if err != nil {
		return chvalue.Value{}, err
	}
	return chvalue.Float(math.Float64frombits(binary.LittleEndian.Uint64(buf))), nil
}
