package argument

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Converter coerces a decoded field value into its native form. A
// converter must be idempotent on its own output: it runs once when the
// caller builds the original object and again during decode-time
// reconstruction, and applying it twice must not change the value.
type Converter func(v any) (any, error)

// SchemaField declares one field of a validated object: its name and an
// optional converter re-applied on decode.
type SchemaField struct {
	Name    string
	Convert Converter
}

// SchemaObjectCodec encodes a validated object — a flat map of declared
// fields — as canonical JSON text, and reconstructs it on decode by
// passing every field value back through its converter.
//
// The schema is explicit and ordered, declared at construction. Nothing
// is discovered by reflection, so the wire contract is visible in the
// command table rather than implied by a struct definition.
type SchemaObjectCodec struct {
	fields []SchemaField
	inner  JSONStructureCodec
}

// NewSchemaObjectCodec validates the declared schema. Construction fails
// on an empty schema, empty field names, or duplicate field names; all
// violations are reported together.
func NewSchemaObjectCodec(fields []SchemaField) (*SchemaObjectCodec, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: schema declares no fields", ErrConfiguration)
	}
	var bad []string
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			bad = append(bad, fmt.Sprintf("field %d has an empty name", i))
			continue
		}
		if seen[f.Name] {
			bad = append(bad, fmt.Sprintf("duplicate field %q", f.Name))
		}
		seen[f.Name] = true
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, fmt.Errorf("%w: bad schema: %s", ErrConfiguration, strings.Join(bad, "; "))
	}

	declared := make([]SchemaField, len(fields))
	copy(declared, fields)
	return &SchemaObjectCodec{fields: declared}, nil
}

func (c *SchemaObjectCodec) Encode(v any) ([]byte, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: not an object: %v (%T)", ErrTypeMismatch, v, v)
	}
	flat := make(map[string]any, len(c.fields))
	for _, f := range c.fields {
		value, ok := obj[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: object is missing field %q", ErrTypeMismatch, f.Name)
		}
		flat[f.Name] = value
	}
	return c.inner.Encode(flat)
}

func (c *SchemaObjectCodec) Decode(data []byte) (any, error) {
	raw, err := c.inner.Decode(data)
	if err != nil {
		return nil, err
	}
	flat, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedWire)
	}
	obj := make(map[string]any, len(c.fields))
	for _, f := range c.fields {
		value, ok := flat[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrMalformedWire, f.Name)
		}
		if f.Convert != nil {
			value, err = f.Convert(value)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", ErrMalformedWire, f.Name, err)
			}
		}
		obj[f.Name] = value
	}
	return obj, nil
}

// ToString is a Converter that renders any scalar as its string form.
// Idempotent: strings pass through unchanged.
func ToString(v any) (any, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

// ToInt is a Converter that coerces JSON numbers (and numeric strings)
// to int. Idempotent: ints pass through unchanged. Fractional values
// fail rather than silently truncate.
func ToInt(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", n)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("not an integer: %v (%T)", v, v)
	}
}
