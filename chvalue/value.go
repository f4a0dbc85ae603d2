// Package chvalue defines the host-side dynamic value bag shared by the
// wire codec (chwire) and the SQL parameter renderer (chparam), so both
// concerns convert to/from one representation instead of diverging.
package chvalue

import (
	"math/big"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind tags the variant carried by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindUInt
	KindBigInt
	KindFloat
	KindDecimal
	KindBool
	KindStr
	KindBytes
	KindDate
	KindDateTime
	KindDateTime64
	KindUUID
	KindIP
	KindEnum
	KindArray
	KindTuple
	KindMap
	KindJSON
)

// Pair is one key/value entry of a Map value.
type Pair struct {
	Key Value
	Val Value
}

// Value is a tagged union over every host shape the codec and renderer
// need to move a ClickHouse cell through. Only the field matching Kind is
// meaningful; constructors below are the supported way to build one.
type Value struct {
	Kind Kind

	i   int64
	u   uint64
	big *big.Int
	f   float64
	dec decimal.Decimal
	b   bool
	s   string
	buf []byte

	days  int32 // Date / Date32
	secs  int64 // DateTime seconds since epoch (UTC)
	ticks int64 // DateTime64 ticks
	prec  uint8 // DateTime64 precision
	tz    *time.Location

	uid uuid.UUID
	ip  net.IP

	enumName string
	enumNum  int64

	items []Value
	pairs []Pair
}

func Null() Value                       { return Value{Kind: KindNull} }
func Int(v int64) Value                 { return Value{Kind: KindInt, i: v} }
func UInt(v uint64) Value               { return Value{Kind: KindUInt, u: v} }
func BigInt(v *big.Int) Value           { return Value{Kind: KindBigInt, big: v} }
func Float(v float64) Value             { return Value{Kind: KindFloat, f: v} }
func Bool(v bool) Value                 { return Value{Kind: KindBool, b: v} }
func Str(v string) Value                { return Value{Kind: KindStr, s: v} }
func Bytes(v []byte) Value              { return Value{Kind: KindBytes, buf: v} }
func UUIDVal(v uuid.UUID) Value         { return Value{Kind: KindUUID, uid: v} }
func IP(v net.IP) Value                 { return Value{Kind: KindIP, ip: v} }
func JSON(v []byte) Value               { return Value{Kind: KindJSON, buf: v} }

func Decimal(unscaled decimal.Decimal) Value {
	return Value{Kind: KindDecimal, dec: unscaled}
}

// Date carries days-since-epoch as kept on the wire.
func Date(days int32) Value { return Value{Kind: KindDate, days: days} }

func DateTime(seconds int64, tz *time.Location) Value {
	return Value{Kind: KindDateTime, secs: seconds, tz: tz}
}

func DateTime64(ticks int64, precision uint8, tz *time.Location) Value {
	return Value{Kind: KindDateTime64, ticks: ticks, prec: precision, tz: tz}
}

func Enum(name string, num int64) Value {
	return Value{Kind: KindEnum, enumName: name, enumNum: num}
}

func Array(items []Value) Value { return Value{Kind: KindArray, items: items} }
func Tuple(items []Value) Value { return Value{Kind: KindTuple, items: items} }
func Map(pairs []Pair) Value    { return Value{Kind: KindMap, pairs: pairs} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) AsInt() int64               { return v.i }
func (v Value) AsUInt() uint64             { return v.u }
func (v Value) AsBigInt() *big.Int         { return v.big }
func (v Value) AsFloat() float64           { return v.f }
func (v Value) AsDecimal() decimal.Decimal { return v.dec }
func (v Value) AsBool() bool               { return v.b }
func (v Value) AsStr() string              { return v.s }
func (v Value) AsBytes() []byte            { return v.buf }
func (v Value) AsUUID() uuid.UUID          { return v.uid }
func (v Value) AsIP() net.IP               { return v.ip }
func (v Value) AsJSON() []byte             { return v.buf }

func (v Value) AsDays() int32 { return v.days }

func (v Value) AsDateTime() (seconds int64, tz *time.Location) { return v.secs, v.tz }

func (v Value) AsDateTime64() (ticks int64, precision uint8, tz *time.Location) {
	return v.ticks, v.prec, v.tz
}

func (v Value) AsEnum() (name string, num int64) { return v.enumName, v.enumNum }

func (v Value) AsItems() []Value { return v.items }
func (v Value) AsPairs() []Pair  { return v.pairs }
