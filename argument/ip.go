package argument

import (
	"fmt"
	"net/netip"
)

// IPAddressCodec carries an IP address as its fixed-length
// network-byte-order form: exactly 4 bytes for IPv4, exactly 16 bytes
// for IPv6. An IPv4-mapped IPv6 address stays a full 16-byte value — it
// is never collapsed to the 4-byte form, so the address family survives
// the round trip.
type IPAddressCodec struct{}

func (IPAddressCodec) Encode(v any) ([]byte, error) {
	addr, ok := v.(netip.Addr)
	if !ok {
		return nil, fmt.Errorf("%w: not an IP address: %v (%T)", ErrTypeMismatch, v, v)
	}
	if !addr.IsValid() {
		return nil, fmt.Errorf("%w: zero IP address", ErrTypeMismatch)
	}
	if addr.Is4() {
		b := addr.As4()
		return b[:], nil
	}
	b := addr.As16()
	return b[:], nil
}

// Decode infers the address family solely from the byte length:
// 4 → IPv4, 16 → IPv6. Any other length is malformed.
func (IPAddressCodec) Decode(data []byte) (any, error) {
	switch len(data) {
	case 4:
		return netip.AddrFrom4([4]byte(data)), nil
	case 16:
		return netip.AddrFrom16([16]byte(data)), nil
	default:
		return nil, fmt.Errorf("%w: IP address must be 4 or 16 bytes, got %d", ErrMalformedWire, len(data))
	}
}

// IPNetworkCodec carries an IP network as the IPAddressCodec form of its
// base address followed by exactly one byte holding the prefix length:
// 5 bytes total for IPv4, 17 for IPv6.
type IPNetworkCodec struct {
	addr IPAddressCodec
}

func (c IPNetworkCodec) Encode(v any) ([]byte, error) {
	p, ok := v.(netip.Prefix)
	if !ok {
		return nil, fmt.Errorf("%w: not an IP network: %v (%T)", ErrTypeMismatch, v, v)
	}
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: invalid IP network: %v", ErrTypeMismatch, p)
	}
	data, err := c.addr.Encode(p.Addr())
	if err != nil {
		return nil, err
	}
	return append(data, byte(p.Bits())), nil
}

func (c IPNetworkCodec) Decode(data []byte) (any, error) {
	if len(data) != 5 && len(data) != 17 {
		return nil, fmt.Errorf("%w: IP network must be 5 or 17 bytes, got %d", ErrMalformedWire, len(data))
	}
	bits := int(data[len(data)-1])
	decoded, err := c.addr.Decode(data[:len(data)-1])
	if err != nil {
		return nil, err
	}
	addr := decoded.(netip.Addr)
	if bits > addr.BitLen() {
		return nil, fmt.Errorf("%w: prefix length %d exceeds %d-bit address", ErrMalformedWire, bits, addr.BitLen())
	}
	return netip.PrefixFrom(addr, bits), nil
}
