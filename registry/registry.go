// Package registry provides the process-wide agent lookup table used by
// orchestrators to resolve a name to a processing unit. Construct one
// AgentRegistry at startup and pass it by shared reference; there is no
// implicit global instance.
package registry

import (
	"fmt"
	"sync"

	"github.com/agentrelay/agentrelay/agent"
)

// AgentInfo is the lightweight discovery view of a registered agent.
type AgentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AgentNotFoundError reports a lookup or removal for a name that is not
// registered.
type AgentNotFoundError struct {
	Name string
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent %q not found in registry", e.Name)
}

// DuplicateAgentError reports registration of a name that is already taken.
type DuplicateAgentError struct {
	Name string
}

func (e *DuplicateAgentError) Error() string {
	return fmt.Sprintf("agent %q already registered", e.Name)
}

// AgentRegistry maps agent names to instances. Reads run fully concurrently;
// registration and removal are mutually exclusive. The registry owns
// registered agents for the program lifetime.
//
// Duplicate policy: Register rejects an already-taken name with
// *DuplicateAgentError; replacing an agent requires an explicit Remove first.
type AgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]agent.Agent
	order  []string
}

// NewAgentRegistry constructs an empty registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{agents: make(map[string]agent.Agent)}
}

// Register stores the agent under its name.
func (r *AgentRegistry) Register(a agent.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := a.Name()
	if _, ok := r.agents[name]; ok {
		return &DuplicateAgentError{Name: name}
	}
	r.agents[name] = a
	r.order = append(r.order, name)
	return nil
}

// Remove deletes the named agent, failing with *AgentNotFoundError if absent.
func (r *AgentRegistry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[name]; !ok {
		return &AgentNotFoundError{Name: name}
	}
	delete(r.agents, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the agent registered under name, or *AgentNotFoundError. The
// error carries the requested name, so an empty registry and a missing name
// remain distinguishable from each other via List.
func (r *AgentRegistry) Get(name string) (agent.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return nil, &AgentNotFoundError{Name: name}
	}
	return a, nil
}

// List returns AgentInfo for every registered agent, in registration order.
func (r *AgentRegistry) List() []AgentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AgentInfo, 0, len(r.order))
	for _, name := range r.order {
		a := r.agents[name]
		out = append(out, AgentInfo{Name: a.Name(), Description: a.Description()})
	}
	return out
}

// Len reports the number of registered agents.
func (r *AgentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
