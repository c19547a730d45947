// Package server implements the rack-agent RPC endpoint with command
// registration, middleware chain, parallel request processing, and graceful
// shutdown.
//
// Request processing pipeline:
//
//	Accept conn → handleConn (single goroutine reads frames)
//	  → for each request: go handleRequest (parallel processing)
//	    → Codec.Decode → Middleware Chain → dispatch (command table) → Codec.Encode → write response
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"rack-rpc/codec"
	"rack-rpc/command"
	"rack-rpc/message"
	"rack-rpc/middleware"
	"rack-rpc/protocol"
	"rack-rpc/registry"
)

// Handler processes one command call. Arguments arrive already decoded to
// their native values by the command's field codecs; the returned map is
// encoded the same way. Returning an error fails this call only — the
// connection and its other in-flight calls are unaffected.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// registration binds a command declaration to its handler.
type registration struct {
	cmd     *command.Command
	handler Handler
}

// Server is the agent-side RPC endpoint that registers commands and handles
// incoming requests.
type Server struct {
	commands      map[string]*registration // Registered commands: "update-leases" → handler
	listener      net.Listener             // TCP listener
	wg            sync.WaitGroup           // Tracks in-flight requests for graceful shutdown
	shutdown      atomic.Bool              // Set to true during shutdown to suppress Accept errors
	middlewares   []middleware.Middleware  // Registered middlewares (applied in order)
	handler       middleware.HandlerFunc   // The final handler chain: middleware(middleware(...(dispatch)))
	registry      registry.Registry        // Agent registry (etcd), nil if not using discovery
	advertiseAddr string                   // Address registered in etcd (e.g., "127.0.0.1:8080")
	// Different from listen address (":8080") because etcd needs a routable IP
}

// NewServer creates a new RPC server with an empty command table.
func NewServer() *Server {
	s := new(Server)
	s.commands = make(map[string]*registration)
	return s
}

// Register binds a command declaration to its handler. The declared
// argument and response schemas drive all marshalling for this command —
// nothing is discovered by reflection at call time.
func (svr *Server) Register(cmd *command.Command, h Handler) error {
	if cmd == nil || cmd.Name == "" {
		return fmt.Errorf("rpc: command must have a name")
	}
	if h == nil {
		return fmt.Errorf("rpc: nil handler for command %q", cmd.Name)
	}
	if _, dup := svr.commands[cmd.Name]; dup {
		return fmt.Errorf("rpc: command %q already registered", cmd.Name)
	}
	svr.commands[cmd.Name] = &registration{cmd: cmd, handler: h}
	return nil
}

// Serve starts the server: listens on the given address, optionally
// registers with etcd, and enters the Accept loop to handle incoming
// connections.
//
// Parameters:
//   - advertiseAddr: the address to register in etcd (e.g., "127.0.0.1:8080").
//     This differs from the listen address because ":8080" resolves to
//     "[::]:8080" locally.
//   - reg: the registry implementation. Pass nil to skip service discovery.
func (svr *Server) Serve(network, address string, advertiseAddr string, reg registry.Registry) error {
	listener, err := net.Listen(network, address)
	svr.listener = listener

	// Build the middleware chain once at startup (not per-request)
	// Chain wraps middlewares in reverse order to create the onion model:
	//   Chain(A, B, C)(handler) → A(B(C(handler)))
	//   Execution order: A.before → B.before → C.before → handler → C.after → B.after → A.after
	svr.handler = middleware.Chain(svr.middlewares...)(svr.dispatch)

	if err != nil {
		return err
	}

	// Register all commands to etcd (if registry is provided)
	svr.advertiseAddr = advertiseAddr
	if reg != nil {
		svr.registry = reg
		for commandName := range svr.commands {
			svr.registry.Register(commandName, registry.AgentInstance{
				Addr: advertiseAddr,
			}, 10) // TTL = 10 seconds, KeepAlive renews automatically
		}
	}

	// Accept loop: one goroutine per connection
	for {
		conn, err := listener.Accept()
		if err != nil {
			// During shutdown, listener.Close() causes Accept to return an error.
			// Check the shutdown flag to distinguish intentional close from real errors.
			if svr.shutdown.Load() {
				return nil
			} else {
				return err
			}
		}
		go svr.handleConn(conn)
	}
}

// Use registers a middleware. Middlewares are applied in the order they are
// added.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

// handleConn processes a single TCP connection.
// It runs a read loop in a single goroutine (reads must be sequential to
// parse frame boundaries), but dispatches each request to its own goroutine
// for parallel processing.
//
// A per-connection write mutex (writeMu) is shared among all request
// goroutines on this connection. This prevents frame interleaving when
// multiple goroutines write responses concurrently.
func (svr *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	writeMu := &sync.Mutex{} // Per-connection write lock, shared by all requests on this conn
	for {
		// Read one complete frame (sequential — single reader per connection)
		header, body, err := protocol.Decode(conn)
		if err != nil {
			break // Connection closed or protocol error
		}

		// Skip heartbeat frames — they exist only to keep the connection alive
		if header.MsgType == protocol.MsgTypeHeartbeat {
			continue
		}

		// Dispatch request to a new goroutine for parallel processing.
		// Without `go`, a slow handler on request 1 would block all
		// subsequent requests on the same connection.
		go svr.handleRequest(header, body, conn, writeMu)
	}
}

// handleRequest processes a single RPC request: decode → middleware →
// command handler → encode → write.
//
// The protocol layer (codec encode/decode, frame write) is separated from
// the command layer (table lookup, argument unmarshalling) to allow
// middleware to wrap only the command logic.
func (svr *Server) handleRequest(header *protocol.Header, body []byte, conn net.Conn, writeMu *sync.Mutex) {
	// Track this request for graceful shutdown (wg.Wait ensures all in-flight requests complete)
	svr.wg.Add(1)
	defer svr.wg.Done()

	// Step 1: Decode the frame body into an RPCMessage using the appropriate codec
	c := codec.GetCodec(codec.CodecType(header.CodecType))
	msg := message.RPCMessage{}
	if err := c.Decode(body, &msg); err != nil {
		log.Printf("Failed to decode request body: %v", err)
		return
	}

	// Step 2: Run through the middleware chain → command handler
	// The handler returns an RPCMessage with the response payload (or error)
	rpcMessage := svr.handler(context.Background(), &msg)

	// Step 3: Encode and write the response (protected by per-connection write lock)
	writeMu.Lock()
	defer writeMu.Unlock()

	result, err := c.Encode(rpcMessage)
	if err != nil {
		log.Println("Failed to encode command result")
		return
	}

	// Build response header — preserve the same Seq so the controller can match it
	replyHeader := protocol.Header{
		CodecType: header.CodecType,
		MsgType:   protocol.MsgTypeResponse,
		Seq:       header.Seq, // Same seq as request — this is how multiplexing works
		BodyLen:   uint32(len(result)),
	}
	err = protocol.Encode(conn, &replyHeader, result)
	if err != nil {
		log.Println("Failed to encode reply message")
	}
}

// Shutdown performs graceful shutdown:
//  1. Deregister all commands from etcd (controllers stop routing here)
//  2. Set shutdown flag (so Accept error is recognized as intentional)
//  3. Close the listener (stop accepting new connections)
//  4. Wait for in-flight requests to finish (with timeout)
func (svr *Server) Shutdown(timeout time.Duration) error {
	// Step 1: Deregister from etcd FIRST — so controllers stop sending new requests
	for commandName := range svr.commands {
		if svr.registry != nil {
			svr.registry.Deregister(commandName, svr.advertiseAddr)
		}
	}

	// Step 2: Set shutdown flag BEFORE closing listener
	// If we close first, the Accept error fires before the flag is set,
	// and Serve() would return a real error instead of nil
	svr.shutdown.Store(true)
	svr.listener.Close()

	// Step 3: Wait for in-flight requests with timeout
	done := make(chan struct{})
	go func() {
		svr.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil // All requests completed
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for ongoing requests to finish")
	}
}

// dispatch is the core handler that routes RPC requests through the command
// table. It is wrapped by the middleware chain and has the HandlerFunc
// signature.
//
// Flow: look up command → UnmarshalArgs (declared field codecs) → handler →
// MarshalResponse → return RPCMessage. Any failure produces an error
// response for this one call; the connection and its other multiplexed
// calls are untouched.
func (svr *Server) dispatch(ctx context.Context, req *message.RPCMessage) *message.RPCMessage {
	reg, ok := svr.commands[req.Command]
	if !ok {
		return &message.RPCMessage{Command: req.Command, Error: fmt.Sprintf("unknown command: %q", req.Command)}
	}

	// Decode the argument box through the declared field codecs
	args, err := reg.cmd.UnmarshalArgs(req.Payload)
	if err != nil {
		return &message.RPCMessage{Command: req.Command, Error: err.Error()}
	}

	// Invoke the command handler
	results, handlerErr := reg.handler(ctx, args)

	rpcMessage := &message.RPCMessage{Command: req.Command}
	if handlerErr != nil {
		rpcMessage.Error = handlerErr.Error()
		return rpcMessage
	}

	// Encode the response box through the declared field codecs
	payload, err := reg.cmd.MarshalResponse(results)
	if err != nil {
		rpcMessage.Error = err.Error()
		return rpcMessage
	}
	rpcMessage.Payload = payload
	return rpcMessage
}
