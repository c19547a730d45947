package argument

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// JSONStructureCodec carries an arbitrary nested structure (maps,
// slices, strings, numbers, booleans, nil) as the UTF-8 bytes of its
// canonical JSON text. encoding/json sorts map keys, so the same logical
// structure always produces identical bytes.
//
// Round trips preserve structure, not map key order; numbers come back
// as float64, which is the defined native form for this codec.
type JSONStructureCodec struct{}

func (JSONStructureCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: not JSON-serializable: %v", ErrTypeMismatch, err)
	}
	return data, nil
}

func (JSONStructureCodec) Decode(data []byte) (any, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrMalformedWire)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformedWire, err)
	}
	return v, nil
}
