package registry

// AgentInstance describes one rack agent endpoint serving a command.
type AgentInstance struct {
	Addr    string
	Weight  int // Weight for load balancing
	Version string
}

// Registry is the discovery surface between the controller and the rack
// agents: agents register the commands they serve, the controller
// discovers which agents currently serve a command.
type Registry interface {
	Register(commandName string, instance AgentInstance, ttl int64) error
	Deregister(commandName string, addr string) error
	Discover(commandName string) ([]AgentInstance, error)
	Watch(commandName string) <-chan []AgentInstance
}
