package orchestrator

import (
	"context"

	"github.com/agentrelay/agentrelay/agent"
	"github.com/agentrelay/agentrelay/logging"
	"github.com/agentrelay/agentrelay/memory"
	"github.com/agentrelay/agentrelay/registry"
)

// SimpleOptions configures a SimpleOrchestrator.
type SimpleOptions struct {
	// DefaultAgentName is used when a request names no agent. Leaving it empty
	// makes the per-request override mandatory.
	DefaultAgentName string
	// Logger receives orchestration events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// SimpleOrchestrator resolves the agent by name only: the per-request
// override wins, then the configured default, then the turn fails. There is
// no silent fallback past an override that does not resolve.
type SimpleOrchestrator struct {
	registry    *registry.AgentRegistry
	turn        turn
	defaultName string
}

var _ Orchestrator = (*SimpleOrchestrator)(nil)

// NewSimpleOrchestrator wires an orchestrator to its registry and repository.
func NewSimpleOrchestrator(reg *registry.AgentRegistry, repo memory.Repository, optFns ...func(o *SimpleOptions)) *SimpleOrchestrator {
	opts := SimpleOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SimpleOrchestrator{
		registry:    reg,
		turn:        turn{repo: repo, logger: opts.Logger},
		defaultName: opts.DefaultAgentName,
	}
}

// resolve applies the selection precedence. Resolution happens before any
// thread state is touched, so a failed turn leaves no half-created thread.
func (o *SimpleOrchestrator) resolve(override string) (agent.Agent, error) {
	name := override
	if name == "" {
		name = o.defaultName
	}
	ag, err := o.registry.Get(name)
	if err != nil {
		o.turn.logger.Warn("orchestrator.resolve.failed", "agent", name, "override", override != "")
		return nil, err
	}
	return ag, nil
}

// Orchestrate implements Orchestrator.
func (o *SimpleOrchestrator) Orchestrate(ctx context.Context, req Request) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}
	ag, err := o.resolve(req.AgentName)
	if err != nil {
		return "", err
	}
	return o.turn.execute(ctx, ag, req, "")
}
