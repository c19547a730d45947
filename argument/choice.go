package argument

import (
	"fmt"
	"sort"
	"strings"
)

// ChoiceCodec encodes one key out of a fixed set of choices as its
// configured wire value, and decodes a wire value back to its key via a
// reverse table built once at construction.
//
// The reverse table is codec-local immutable state, so independently
// configured ChoiceCodecs coexist safely.
type ChoiceCodec struct {
	choices map[string][]byte
	reverse map[string]string
}

// NewChoiceCodec validates the mapping and builds the reverse table.
// Construction fails if any value is nil or if two keys share the same
// wire value (the reverse lookup would be ambiguous). Every offending
// entry is named in the error, not merely the first one found.
func NewChoiceCodec(choices map[string][]byte) (*ChoiceCodec, error) {
	if choices == nil {
		return nil, fmt.Errorf("%w: not a mapping: nil", ErrConfiguration)
	}

	var bad []string
	byValue := make(map[string][]string, len(choices))
	for key, value := range choices {
		if value == nil {
			bad = append(bad, fmt.Sprintf("%q has nil value", key))
			continue
		}
		byValue[string(value)] = append(byValue[string(value)], key)
	}
	for value, keys := range byValue {
		if len(keys) > 1 {
			sort.Strings(keys)
			bad = append(bad, fmt.Sprintf("%q shared by keys %s", value, strings.Join(keys, ", ")))
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, fmt.Errorf("%w: bad choices: %s", ErrConfiguration, strings.Join(bad, "; "))
	}

	c := &ChoiceCodec{
		choices: make(map[string][]byte, len(choices)),
		reverse: make(map[string]string, len(choices)),
	}
	for key, value := range choices {
		wire := make([]byte, len(value))
		copy(wire, value)
		c.choices[key] = wire
		c.reverse[string(wire)] = key
	}
	return c, nil
}

func (c *ChoiceCodec) Encode(v any) ([]byte, error) {
	key, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %v (%T) is not among the choices", ErrUnknownKey, v, v)
	}
	wire, ok := c.choices[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not among the choices", ErrUnknownKey, key)
	}
	// Copy out, as the constructor copies in: callers must not be able to
	// mutate the choice table through the returned slice.
	out := make([]byte, len(wire))
	copy(out, wire)
	return out, nil
}

func (c *ChoiceCodec) Decode(data []byte) (any, error) {
	key, ok := c.reverse[string(data)]
	if !ok {
		return nil, fmt.Errorf("%w: wire value %q is not among the choices", ErrUnknownKey, data)
	}
	return key, nil
}
