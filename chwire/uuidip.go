package chwire

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"chnative/chvalue"
)

// encodeUUID writes the UUID as two little-endian u64 halves, high word
// first, matching the server's layout.
func encodeUUID(w io.Writer, v chvalue.Value) error {
	if v.Kind != chvalue.KindUUID {
		return errors.Wrap(ErrTypeMismatch, "UUID expects a UUID value")
	}
	id := v.AsUUID()
	hi := binary.BigEndian.Uint64(id[0:8])
	lo := binary.BigEndian.Uint64(id[8:16])
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], hi)
	binary.LittleEndian.PutUint64(buf[8:16], lo)
	_, err := w.Write(buf)
	return err
}

func decodeUUID(r *bufio.Reader) (chvalue.Value, error) {
	buf, err := readFull(r, 16)
	if err != nil {
		return chvalue.Value{}, err
	}
	hi := binary.LittleEndian.Uint64(buf[0:8])
	lo := binary.LittleEndian.Uint64(buf[8:16])
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[0:8], hi)
	binary.BigEndian.PutUint64(id[8:16], lo)
	return chvalue.UUIDVal(id), nil
}

// encodeIPv4 writes a u32 little-endian address.
func encodeIPv4(w io.Writer, v chvalue.Value) error {
	if v.Kind != chvalue.KindIP {
		return errors.Wrap(ErrTypeMismatch, "IPv4 expects an IP value")
	}
	ip4 := v.AsIP().To4()
	if ip4 == nil {
		return errors.Wrap(ErrTypeMismatch, "IPv4: value is not an IPv4 address")
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, binary.BigEndian.Uint32(ip4))
	_, err := w.Write(buf)
	return err
}

func decodeIPv4(r *bufio.Reader) (chvalue.Value, error) {
	buf, err := readFull(r, 4)
	if err != nil {
		return chvalue.Value{}, err
	}
	be := make([]byte, 4)
	binary.BigEndian.PutUint32(be, binary.LittleEndian.Uint32(buf))
	return chvalue.IP(net.IP(be)), nil
}

// encodeIPv6 writes 16 raw big-endian bytes.
func encodeIPv6(w io.Writer, v chvalue.Value) error {
	if v.Kind != chvalue.KindIP {
		return errors.Wrap(ErrTypeMismatch, "IPv6 expects an IP value")
	}
	ip16 := v.AsIP().To16()
	if ip16 == nil {
		return errors.Wrap(ErrTypeMismatch, "IPv6: invalid IP value")
	}
	_, err := w.Write(ip16)
	return err
}

func decodeIPv6(r *bufio.Reader) (chvalue.Value, error) {
	buf, err := readFull(r, 16)
	if err != nil {
		return chvalue.Value{}, err
	}
	return chvalue.IP(net.IP(buf)), nil
}
