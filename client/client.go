// Package client implements the controller-side RPC client: it discovers
// rack agents through the registry, balances calls across them, and
// marshals arguments through the shared command table.
package client

import (
	"fmt"
	"net"
	"sync"

	"rack-rpc/codec"
	"rack-rpc/command"
	"rack-rpc/loadbalance"
	"rack-rpc/registry"
	"rack-rpc/transport"
)

type Client struct {
	table     *command.Table    // Declared command shapes shared with the agents
	registry  registry.Registry // Find agent instances from registry
	balancer  loadbalance.Balancer
	pools     map[string]*transport.Pool // Transport pool per agent address
	codecType codec.CodecType
	mu        sync.Mutex // Guards pools
	poolSize  int
}

func NewClient(table *command.Table, reg registry.Registry, bal loadbalance.Balancer, codecType byte, poolSize int) *Client {
	return &Client{
		table:     table,
		registry:  reg,
		balancer:  bal,
		pools:     make(map[string]*transport.Pool),
		codecType: codec.CodecType(codecType),
		poolSize:  poolSize,
	}
}

// pool returns the transport pool for an agent address, creating it on
// first use. The pools map is only ever touched under the mutex; callers
// hold the returned *Pool (itself goroutine-safe) and never re-index the
// map.
func (c *Client) pool(addr string) *transport.Pool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pools[addr]
	if !ok {
		p = transport.NewPool(c.poolSize, func() (*transport.ClientTransport, error) {
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				return nil, err
			}
			return transport.NewClientTransport(conn, c.codecType), nil
		})
		c.pools[addr] = p
	}
	return p
}

// Call invokes a command on some agent serving it and returns the decoded
// response fields. Arguments are marshalled through the command table's
// declared field codecs; a marshalling failure surfaces here, before any
// bytes reach the wire.
func (c *Client) Call(commandName string, args map[string]any) (map[string]any, error) {
	cmd, ok := c.table.Lookup(commandName)
	if !ok {
		return nil, fmt.Errorf("unknown command: %q", commandName)
	}

	// Marshal the argument box before touching the network
	payload, err := cmd.MarshalArgs(args)
	if err != nil {
		return nil, err
	}

	// Get agent instances from registry
	instances, err := c.registry.Discover(commandName)

	if err != nil {
		return nil, err
	}

	// Select an agent using the load balancer
	instance, err := c.balancer.Pick(instances)

	if err != nil {
		return nil, err
	}

	// Borrow a transport from the selected agent's pool
	pool := c.pool(instance.Addr)
	t, err := pool.Get()

	if err != nil {
		return nil, err
	}

	defer pool.Put(t)

	// Send the request and wait for the response
	_, ch, err := t.Send(commandName, payload)

	if err != nil {
		return nil, err
	}

	resp := <-ch

	if resp.Error != "" {
		return nil, fmt.Errorf("agent error: %v", resp.Error)
	}

	// Decode the response box through the declared field codecs
	return cmd.UnmarshalResponse(resp.Payload)
}
