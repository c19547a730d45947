// Package loadbalance provides load balancing strategies for distributing
// RPC commands across multiple rack agents.
//
// Three strategies are implemented:
//   - RoundRobin:      Stateless commands, equal-capacity agents
//   - WeightedRandom:  Heterogeneous agents (different CPU/memory)
//   - ConsistentHash:  Commands requiring rack affinity (e.g., always
//     steering one machine's power commands to the same agent)
package loadbalance

import "rack-rpc/registry"

// Balancer is the interface for load balancing strategies.
// The controller calls Pick() before each RPC to select a target agent.
type Balancer interface {
	// Pick selects one agent from the available list.
	// Called on every RPC call — must be goroutine-safe.
	Pick(instances []registry.AgentInstance) (*registry.AgentInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}
