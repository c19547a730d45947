// Package argument implements the typed argument codecs for rack-rpc.
//
// A command's request and response are flat maps of named fields. Each
// field has a declared Codec that converts the native Go value to the
// byte string carried inside a message box, and back. Codecs are built
// once when the command table is assembled and are reused for the life
// of the process — they hold no mutable state and are safe to share
// across goroutines.
//
// Encode and decode never block and never perform I/O: the transport may
// run decode synchronously while draining a connection, so a blocking
// codec would stall every call multiplexed on that connection.
package argument

import "errors"

// Codec converts a native value to its wire byte string and back.
//
// Implementations are pure functions of their construction-time
// configuration and the input: same input, same output, no side effects.
type Codec interface {
	// Encode converts a native value into wire bytes. The value must
	// match the codec's domain; anything else fails with ErrTypeMismatch.
	Encode(v any) ([]byte, error)

	// Decode converts wire bytes back into the native value. Bytes that
	// cannot be parsed under the codec's format fail with ErrMalformedWire.
	Decode(data []byte) (any, error)
}

// Field pairs a field name with the codec for its values. An ordered
// slice of Fields is the schema for one flat record, and also the shape
// declaration for a command's request or response.
type Field struct {
	Name  string
	Codec Codec
}

// Record is one flat name→value entry. Two decoded records compare equal
// irrespective of the order their fields were read.
type Record = map[string]any

// Error classes. Every failure from this package wraps exactly one of
// these, so callers can dispatch with errors.Is without string matching.
var (
	// ErrConfiguration reports an invalid codec configuration at
	// construction time. All violations are reported together, not just
	// the first one found.
	ErrConfiguration = errors.New("invalid codec configuration")

	// ErrTypeMismatch reports an encode-time input whose shape does not
	// match what the codec requires.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnknownKey reports a choice key absent from the configured
	// mapping (encode) or a wire value absent from the reverse mapping
	// (decode).
	ErrUnknownKey = errors.New("unknown key")

	// ErrMalformedWire reports bytes that cannot be parsed under the
	// codec's wire format.
	ErrMalformedWire = errors.New("malformed wire value")
)
