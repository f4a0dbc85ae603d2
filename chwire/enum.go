package chwire

import (
	"bufio"
	"io"

	"github.com/go-faster/errors"

	"chnative/chtype"
	"chnative/chvalue"
)

// encodeEnum writes the signed numeric value backing the enum name, via
// the type's name<->value bijection.
func encodeEnum(w io.Writer, t *chtype.Type, v chvalue.Value) error {
	if v.Kind != chvalue.KindEnum {
		return errors.Wrap(ErrTypeMismatch, "Enum expects an Enum value")
	}
	name, num := v.AsEnum()
	resolved, ok := resolveEnumValue(t, name, num)
	if !ok {
		return errors.Wrapf(ErrInvalidEnum, "unknown enum name/value %q/%d", name, num)
	}
	return encodeInt(w, t, chvalue.Int(resolved))
}

// resolveEnumValue finds the canonical numeric value for a name, or
// validates a given numeric value is a member of the bijection.
func resolveEnumValue(t *chtype.Type, name string, num int64) (int64, bool) {
	if name != "" {
		for _, variant := range t.Variants {
			if variant.Name == name {
				return variant.Value, true
			}
		}
		return 0, false
	}
	for _, variant := range t.Variants {
		if variant.Value == num {
			return num, true
		}
	}
	return 0, false
}

func decodeEnum(r *bufio.Reader, t *chtype.Type) (chvalue.Value, error) {
	decoded, err := decodeInt(r, t)
	if err != nil {
		return chvalue.Value{}, err
	}
	num := decoded.AsInt()
	for _, variant := range t.Variants {
		if variant.Value == num {
			return chvalue.Enum(variant.Name, num), nil
		}
	}
	return chvalue.Value{}, errors.Wrapf(ErrInvalidEnum, "unknown enum numeric value %d", num)
}
