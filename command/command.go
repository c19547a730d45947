// Package command defines the command table: the declared shapes of the
// RPC commands exchanged between the controller and rack agents.
//
// A command names its request and response as ordered lists of
// (field name, codec) pairs. Marshalling moves a native argument map
// through the field codecs into a single box; the box layer enforces the
// per-message size ceiling, so an oversize call fails at marshal time
// instead of corrupting the connection.
//
// Commands are assembled once at startup and shared read-only across
// every connection.
package command

import (
	"fmt"

	"rack-rpc/argument"
	"rack-rpc/box"
)

// Command declares one RPC command: its name and the field schemas of
// its request and response.
type Command struct {
	Name      string
	Arguments []argument.Field
	Response  []argument.Field
}

// MarshalArgs encodes a native argument map into request wire bytes.
func (c *Command) MarshalArgs(args map[string]any) ([]byte, error) {
	return marshal(c.Arguments, args)
}

// UnmarshalArgs decodes request wire bytes back into an argument map.
func (c *Command) UnmarshalArgs(data []byte) (map[string]any, error) {
	return unmarshal(c.Arguments, data)
}

// MarshalResponse encodes a native result map into response wire bytes.
func (c *Command) MarshalResponse(results map[string]any) ([]byte, error) {
	return marshal(c.Response, results)
}

// UnmarshalResponse decodes response wire bytes back into a result map.
func (c *Command) UnmarshalResponse(data []byte) (map[string]any, error) {
	return unmarshal(c.Response, data)
}

func marshal(fields []argument.Field, values map[string]any) ([]byte, error) {
	b := box.New()
	for _, f := range fields {
		value, ok := values[f.Name]
		if !ok {
			return nil, fmt.Errorf("missing argument %q", f.Name)
		}
		wire, err := f.Codec.Encode(value)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", f.Name, err)
		}
		if err := b.Set(f.Name, wire); err != nil {
			return nil, fmt.Errorf("argument %q: %w", f.Name, err)
		}
	}
	return b.Serialize()
}

func unmarshal(fields []argument.Field, data []byte) (map[string]any, error) {
	b, rest, err := box.Parse(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%d trailing bytes after box", len(rest))
	}
	values := make(map[string]any, len(fields))
	for _, f := range fields {
		wire, ok := b.Get(f.Name)
		if !ok {
			return nil, fmt.Errorf("missing argument %q", f.Name)
		}
		value, err := f.Codec.Decode(wire)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", f.Name, err)
		}
		values[f.Name] = value
	}
	// Keys not in the schema are ignored: a newer peer may send fields
	// this side does not know yet.
	return values, nil
}

// Table maps command names to their declarations. It backs both the
// server dispatcher and the client call path.
type Table struct {
	commands map[string]*Command
}

// NewTable builds a table from the given commands. Duplicate names fail.
func NewTable(commands ...*Command) (*Table, error) {
	t := &Table{commands: make(map[string]*Command, len(commands))}
	for _, c := range commands {
		if c.Name == "" {
			return nil, fmt.Errorf("command with empty name")
		}
		if _, dup := t.commands[c.Name]; dup {
			return nil, fmt.Errorf("duplicate command %q", c.Name)
		}
		t.commands[c.Name] = c
	}
	return t, nil
}

// Lookup returns the command with the given name.
func (t *Table) Lookup(name string) (*Command, bool) {
	c, ok := t.commands[name]
	return c, ok
}
