// Package box implements the fixed-key box wire format that rack-rpc
// messages are built from.
//
// A box is an ordered set of named byte-string fields. On the wire each
// field is a big-endian uint16 key length, the key, a big-endian uint16
// value length, and the value; the box ends with a zero key length:
//
//	┌─────────┬───────┬─────────┬─────────┬──── ─ ─ ┬──────┐
//	│ keyLen  │  key  │ valLen  │  value  │   ...   │ 0x0000│
//	│ uint16  │ ≤255B │ uint16  │ ≤65535B │         │ (end) │
//	└─────────┴───────┴─────────┴─────────┴──── ─ ─ ┴──────┘
//
// Several boxes can be concatenated into one byte stream (one box per
// record); Parse consumes exactly one box and returns the remainder.
//
// A single outbound message must not exceed MaxMessageSize bytes. Serialize
// enforces this ceiling, so oversize payloads fail before they reach the
// transport. Codecs that can produce large batches offer a compressed
// variant to stay under the ceiling.
package box

import (
	"encoding/binary"
	"fmt"
)

const (
	// MaxMessageSize is the hard ceiling for a single serialized message.
	MaxMessageSize = 65536
	// MaxKeyLength is the longest permitted field key.
	MaxKeyLength = 255
	// MaxValueLength is the longest permitted field value. The value length
	// is carried in a uint16, so this is also the representable maximum.
	MaxValueLength = 65535
)

// Box is an ordered collection of named byte-string fields.
// Keys are unique; setting an existing key replaces its value in place.
type Box struct {
	keys   []string
	values map[string][]byte
}

// New creates an empty box.
func New() *Box {
	return &Box{values: make(map[string][]byte)}
}

// Set adds or replaces a field. The key and value length limits are
// checked here so a bad field is rejected as early as possible.
func (b *Box) Set(key string, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("box: empty key")
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("box: key %q exceeds %d bytes", key[:16]+"...", MaxKeyLength)
	}
	if len(value) > MaxValueLength {
		return fmt.Errorf("box: value for key %q exceeds %d bytes (%d)", key, MaxValueLength, len(value))
	}
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = value
	return nil
}

// Get returns the value for key and whether the key is present.
func (b *Box) Get(key string) ([]byte, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Keys returns the field keys in insertion order.
func (b *Box) Keys() []string {
	keys := make([]string, len(b.keys))
	copy(keys, b.keys)
	return keys
}

// Len returns the number of fields in the box.
func (b *Box) Len() int {
	return len(b.keys)
}

// Serialize writes the box into its wire form. It fails if the result
// would exceed MaxMessageSize.
func (b *Box) Serialize() ([]byte, error) {
	// 2 bytes per key length + 2 per value length + 2 for the terminator
	total := 2
	for _, k := range b.keys {
		total += 4 + len(k) + len(b.values[k])
	}
	if total > MaxMessageSize {
		return nil, fmt.Errorf("box: serialized size %d exceeds message ceiling %d", total, MaxMessageSize)
	}

	buf := make([]byte, 0, total)
	for _, k := range b.keys {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(k)))
		buf = append(buf, k...)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(b.values[k])))
		buf = append(buf, b.values[k]...)
	}
	buf = binary.BigEndian.AppendUint16(buf, 0) // terminator
	return buf, nil
}

// Parse consumes exactly one box from data and returns it along with the
// unconsumed remainder. Truncated or malformed input fails without
// consuming anything.
func Parse(data []byte) (*Box, []byte, error) {
	b := New()
	rest := data
	for {
		if len(rest) < 2 {
			return nil, nil, fmt.Errorf("box: truncated key length")
		}
		keyLen := binary.BigEndian.Uint16(rest[:2])
		rest = rest[2:]
		if keyLen == 0 {
			return b, rest, nil // terminator
		}
		if keyLen > MaxKeyLength {
			return nil, nil, fmt.Errorf("box: key length %d exceeds %d", keyLen, MaxKeyLength)
		}
		if len(rest) < int(keyLen)+2 {
			return nil, nil, fmt.Errorf("box: truncated key")
		}
		key := string(rest[:keyLen])
		rest = rest[keyLen:]

		valLen := binary.BigEndian.Uint16(rest[:2])
		rest = rest[2:]
		if len(rest) < int(valLen) {
			return nil, nil, fmt.Errorf("box: truncated value for key %q", key)
		}
		value := make([]byte, valLen)
		copy(value, rest[:valLen])
		rest = rest[valLen:]

		if _, dup := b.values[key]; dup {
			return nil, nil, fmt.Errorf("box: duplicate key %q", key)
		}
		b.keys = append(b.keys, key)
		b.values[key] = value
	}
}

// ParseAll parses a stream of concatenated boxes until data is exhausted.
// Empty input yields an empty slice.
func ParseAll(data []byte) ([]*Box, error) {
	var boxes []*Box
	rest := data
	for len(rest) > 0 {
		b, remainder, err := Parse(rest)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, b)
		rest = remainder
	}
	return boxes, nil
}
