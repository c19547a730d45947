package argument

import (
	"fmt"
	"unicode/utf8"
)

// BytesCodec passes byte strings through unchanged. The input must
// already be a byte string; the codec performs no conversion.
type BytesCodec struct{}

func (BytesCodec) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: not a byte string: %v (%T)", ErrTypeMismatch, v, v)
	}
	return b, nil
}

func (BytesCodec) Decode(data []byte) (any, error) {
	return data, nil
}

// StringCodec carries UTF-8 text. It is the field codec for
// human-readable record values such as addresses and identifiers.
type StringCodec struct{}

func (StringCodec) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: not a string: %v (%T)", ErrTypeMismatch, v, v)
	}
	return []byte(s), nil
}

func (StringCodec) Decode(data []byte) (any, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrMalformedWire)
	}
	return string(data), nil
}
