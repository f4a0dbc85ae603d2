package chparam

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/text/unicode/norm"

	"chnative/chtype"
	"chnative/chvalue"
)

// Render converts v into the textual literal form the server's SQL
// parser accepts for t. This is distinct from chwire.Encode: the output
// is SQL source, not wire bytes.
func Render(t *chtype.Type, v chvalue.Value) (string, error) {
	if t.Kind == chtype.KindNullable {
		if v.IsNull() {
			return "NULL", nil
		}
		return Render(t.Elem, v)
	}
	if v.IsNull() {
		return "", errors.Wrapf(ErrRenderTypeMismatch, "NULL given for non-Nullable type %s", t.Canonical())
	}

	switch t.Kind {
	case chtype.KindLowCardinality:
		return Render(t.Elem, v)
	case chtype.KindBool:
		if v.AsBool() {
			return "true", nil
		}
		return "false", nil
	case chtype.KindFloat32, chtype.KindFloat64:
		return renderFloat(v.AsFloat()), nil
	case chtype.KindString, chtype.KindFixedString:
		return renderString(stringBytes(v)), nil
	case chtype.KindDate, chtype.KindDate32:
		return renderDate(v.AsDays(), t.Kind == chtype.KindDate32), nil
	case chtype.KindDateTime:
		secs, _ := v.AsDateTime()
		return renderDateTime(secs), nil
	case chtype.KindDateTime64:
		ticks, prec, _ := v.AsDateTime64()
		return renderDateTime64(ticks, prec), nil
	case chtype.KindUUID:
		return "'" + v.AsUUID().String() + "'", nil
	case chtype.KindIPv4, chtype.KindIPv6:
		return "'" + v.AsIP().String() + "'", nil
	case chtype.KindEnum8, chtype.KindEnum16:
		name, num := v.AsEnum()
		if name == "" {
			for _, variant := range t.Variants {
				if variant.Value == num {
					name = variant.Name
					break
				}
			}
		}
		return renderString(name), nil
	case chtype.KindDecimal:
		return v.AsDecimal().String(), nil
	case chtype.KindArray:
		return renderSeq(t.Elem, v.AsItems(), "[", "]")
	case chtype.KindTuple:
		return renderTuple(t, v)
	case chtype.KindNested:
		return renderSeq(tupleType(t.Fields), v.AsItems(), "[", "]")
	case chtype.KindMap:
		return renderMap(t, v)
	case chtype.KindJSON, chtype.KindDynamic:
		return renderString(string(v.AsJSON())), nil
	}
	if _, signed, ok := t.IntWidth(); ok {
		return renderInt(v, signed), nil
	}
	return "", errors.Wrapf(ErrRenderTypeMismatch, "unsupported render target %s", t.Canonical())
}

// ErrRenderTypeMismatch is returned when a host value cannot be rendered
// as a literal of the target type.
var ErrRenderTypeMismatch = errors.New("chparam: render type mismatch")

func stringBytes(v chvalue.Value) string {
	if v.Kind == chvalue.KindBytes {
		return string(v.AsBytes())
	}
	return v.AsStr()
}

func renderInt(v chvalue.Value, signed bool) string {
	if v.Kind == chvalue.KindBigInt && v.AsBigInt() != nil {
		return v.AsBigInt().String()
	}
	if signed {
		return strconv.FormatInt(v.AsInt(), 10)
	}
	if v.Kind == chvalue.KindInt {
		return strconv.FormatInt(v.AsInt(), 10)
	}
	return strconv.FormatUint(v.AsUInt(), 10)
}

// renderFloat uses the shortest round-tripping decimal form.
func renderFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// renderString NFC-normalizes s, then single-quotes it, backslash-escaping
// \, ', and the named control bytes, and \xHH-escaping every other
// non-printable byte.
func renderString(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\a':
			b.WriteString(`\a`)
		case '\v':
			b.WriteString(`\v`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func renderDate(days int32, date32 bool) string {
	epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	if date32 {
		epoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	t := epoch.AddDate(0, 0, int(days))
	return "'" + t.Format("2006-01-02") + "'"
}

func renderDateTime(secs int64) string {
	t := time.Unix(secs, 0).UTC()
	return "'" + t.Format("2006-01-02 15:04:05") + "'"
}

func renderDateTime64(ticks int64, precision uint8) string {
	div := int64(1)
	for i := uint8(0); i < precision; i++ {
		div *= 10
	}
	secs := ticks / div
	frac := ticks % div
	if frac < 0 {
		frac += div
		secs--
	}
	t := time.Unix(secs, 0).UTC()
	base := t.Format("2006-01-02 15:04:05")
	if precision == 0 {
		return "'" + base + "'"
	}
	fracStr := fmt.Sprintf("%0*d", precision, frac)
	return "'" + base + "." + fracStr + "'"
}

func renderSeq(elem *chtype.Type, items []chvalue.Value, open, close string) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		s, err := Render(elem, item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return open + strings.Join(parts, ",") + close, nil
}

func renderTuple(t *chtype.Type, v chvalue.Value) (string, error) {
	items := v.AsItems()
	if len(items) != len(t.Fields) {
		return "", errors.Wrapf(ErrRenderTypeMismatch, "Tuple: expected %d elements, got %d", len(t.Fields), len(items))
	}
	parts := make([]string, len(items))
	for i, field := range t.Fields {
		s, err := Render(field.Type, items[i])
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, ",") + ")", nil
}

func renderMap(t *chtype.Type, v chvalue.Value) (string, error) {
	pairs := v.AsPairs()
	parts := make([]string, len(pairs))
	for i, pair := range pairs {
		k, err := Render(t.Key, pair.Key)
		if err != nil {
			return "", err
		}
		val, err := Render(t.Value, pair.Val)
		if err != nil {
			return "", err
		}
		parts[i] = k + ":" + val
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

func tupleType(fields []chtype.Field) *chtype.Type {
	return &chtype.Type{Kind: chtype.KindTuple, Fields: fields}
}
