// Package message defines the RPC message structure exchanged between the
// controller and rack agents.
//
// RPCMessage is the "envelope" for every RPC call. It gets serialized by the
// codec layer and wrapped in a protocol frame for transmission over TCP.
package message

// RPCMessage carries the data for a single RPC request or response.
//
//   - On request:  Command is set, Payload holds the marshalled argument box,
//     Error is empty.
//   - On response: Payload holds the marshalled response box, Error is
//     non-empty if the agent-side handler failed. A failed call fails only
//     this message — other calls multiplexed on the connection are unaffected.
type RPCMessage struct {
	Command string // Command name, e.g., "update-leases"
	Error   string // Non-empty if the agent-side handler returned an error
	Payload []byte // Serialized argument box (request) or response box (response)
}
