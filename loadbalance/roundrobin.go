package loadbalance

import (
	"fmt"
	"sync/atomic"

	"rack-rpc/registry"
)

// RoundRobinBalancer distributes requests evenly across all agents in order.
// Uses an atomic counter for lock-free, goroutine-safe operation.
//
// Best for: stateless commands where all agents have similar capacity.
type RoundRobinBalancer struct {
	counter int64 // Atomic counter, incremented on each Pick()
}

// Pick selects the next agent in round-robin order.
// The atomic counter ensures even distribution without locks.
func (b *RoundRobinBalancer) Pick(instances []registry.AgentInstance) (*registry.AgentInstance, error) {
	if len(instances) == 0 {
		return nil, fmt.Errorf("no agents available")
	}
	index := atomic.AddInt64(&b.counter, 1) % int64(len(instances))
	return &instances[index], nil
}

func (b *RoundRobinBalancer) Name() string {
	return "RoundRobin"
}
