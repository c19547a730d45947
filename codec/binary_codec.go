package codec

import (
	"encoding/binary"
	"errors"

	"rack-rpc/message"
)

// BinaryCodec serializes the envelope with explicit length-prefixed
// fields instead of JSON — smaller and cheaper to parse, at the cost of
// being opaque on the wire.
//
// Layout: uint16 command length, command, uint32 payload length,
// payload, uint16 error length, error. All lengths big-endian.
type BinaryCodec struct{}

func (c *BinaryCodec) Encode(v any) ([]byte, error) {
	// v must be *RPCMessage
	msg, ok := v.(*message.RPCMessage)
	if !ok {
		return nil, errors.New("BinaryCodec: v must be *RPCMessage")
	}
	total := 2 + len(msg.Command) + 4 + len(msg.Payload) + 2 + len(msg.Error)
	buf := make([]byte, total)

	offset := 0
	// Command length -- 2 bytes
	binary.BigEndian.PutUint16(buf[offset:offset+2], uint16(len(msg.Command)))
	offset += 2

	// Command -- n bytes
	copy(buf[offset:offset+len(msg.Command)], []byte(msg.Command))
	offset += len(msg.Command)

	// Payload length -- 4 bytes
	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(msg.Payload)))
	offset += 4

	// Payload -- n bytes
	copy(buf[offset:offset+len(msg.Payload)], msg.Payload)
	offset += len(msg.Payload)

	// Error length -- 2 bytes
	binary.BigEndian.PutUint16(buf[offset:offset+2], uint16(len(msg.Error)))
	offset += 2

	// Error -- n bytes
	copy(buf[offset:offset+len(msg.Error)], []byte(msg.Error))
	return buf, nil
}

func (c *BinaryCodec) Decode(data []byte, v any) error {
	// v must be *RPCMessage
	msg, ok := v.(*message.RPCMessage)
	if !ok {
		return errors.New("BinaryCodec: v must be *RPCMessage")
	}

	offset := 0

	// Read Command
	if len(data) < offset+2 {
		return errors.New("BinaryCodec: truncated command length")
	}
	cmdLen := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2
	if len(data) < offset+int(cmdLen) {
		return errors.New("BinaryCodec: truncated command")
	}
	msg.Command = string(data[offset : offset+int(cmdLen)])
	offset += int(cmdLen)

	// Read Payload
	if len(data) < offset+4 {
		return errors.New("BinaryCodec: truncated payload length")
	}
	payloadLen := binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4
	if len(data) < offset+int(payloadLen) {
		return errors.New("BinaryCodec: truncated payload")
	}
	msg.Payload = make([]byte, payloadLen)
	copy(msg.Payload, data[offset:offset+int(payloadLen)])
	offset += int(payloadLen)

	// Read Error
	if len(data) < offset+2 {
		return errors.New("BinaryCodec: truncated error length")
	}
	errLen := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2
	if len(data) < offset+int(errLen) {
		return errors.New("BinaryCodec: truncated error")
	}
	msg.Error = string(data[offset : offset+int(errLen)])

	return nil
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}
