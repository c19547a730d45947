package loadbalance

import (
	"fmt"
	"math/rand"

	"rack-rpc/registry"
)

type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(instances []registry.AgentInstance) (*registry.AgentInstance, error) {
	if len(instances) == 0 {
		return nil, fmt.Errorf("no agents available")
	}

	// Total up the weights
	totalWeight := 0
	for _, v := range instances {
		totalWeight += v.Weight
	}
	if totalWeight <= 0 {
		return &instances[rand.Intn(len(instances))], nil
	}

	// Draw a random number in [0, totalWeight) and walk the list
	r := rand.Intn(totalWeight)
	for i := range instances {
		r -= instances[i].Weight
		if r < 0 {
			return &instances[i], nil
		}
	}

	return nil, fmt.Errorf("unexpected error in weighted random selection")
}

func (b *WeightedRandomBalancer) Name() string {
	return "WeightedRandom"
}
