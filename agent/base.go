package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentrelay/agentrelay/logging"
	"github.com/agentrelay/agentrelay/memory"
	"github.com/agentrelay/agentrelay/tool"
)

// BaseAgentOptions configures the shared agent state.
type BaseAgentOptions struct {
	// Description explains the agent's capabilities; classifiers and the
	// registry listing surface it for discovery.
	Description string
	// SystemPrompt configures the backend's behavior for every turn.
	SystemPrompt string
	// Memory optionally binds a conversation repository the agent may read
	// through (summaries, last-n context).
	Memory memory.Repository
	// Tools optionally binds a shared tool registry for runtime dispatch.
	Tools *tool.Registry
	// Logger defaults to NoOp when nil.
	Logger logging.Logger
}

// BaseAgent bundles identity, configuration and the tool/memory bindings
// every concrete agent shares. Embed it and supply the message handlers to
// satisfy the Agent interface. All fields are set at construction and
// immutable afterwards, so the methods are safe for concurrent use.
type BaseAgent struct {
	name         string
	description  string
	systemPrompt string
	memory       memory.Repository
	tools        *tool.Registry
	logger       logging.Logger
}

// NewBaseAgent constructs the shared agent state with optional overrides.
func NewBaseAgent(name string, optFns ...func(o *BaseAgentOptions)) BaseAgent {
	opts := BaseAgentOptions{
		Description:  fmt.Sprintf("Agent %s", name),
		SystemPrompt: "You are a helpful AI assistant.",
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return BaseAgent{
		name:         name,
		description:  opts.Description,
		systemPrompt: opts.SystemPrompt,
		memory:       opts.Memory,
		tools:        opts.Tools,
		logger:       opts.Logger,
	}
}

// Name returns the agent's unique name within a registry.
func (b *BaseAgent) Name() string { return b.name }

// Description returns the agent's capability description.
func (b *BaseAgent) Description() string { return b.description }

// SystemPrompt returns the configured system prompt.
func (b *BaseAgent) SystemPrompt() string { return b.systemPrompt }

// Memory returns the bound conversation repository, or nil.
func (b *BaseAgent) Memory() memory.Repository { return b.memory }

// Tools returns the bound tool registry, or nil.
func (b *BaseAgent) Tools() *tool.Registry { return b.tools }

// Logger returns the agent's logger (never nil).
func (b *BaseAgent) Logger() logging.Logger { return b.logger }

// CallTool looks up a named capability in the bound registry and invokes it.
// An unregistered name fails with *tool.NotFoundError and performs no side
// effect; failures raised by the tool's own function surface as
// *tool.ExecutionError wrapping the original cause.
func (b *BaseAgent) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if b.tools == nil {
		return nil, fmt.Errorf("agent %q has no tool registry attached", b.name)
	}
	t, err := b.tools.Get(name)
	if err != nil {
		return nil, err
	}
	result, err := t.Call(ctx, args)
	if err != nil {
		var execErr *tool.ExecutionError
		if !errors.As(err, &execErr) {
			err = &tool.ExecutionError{Tool: name, Err: err}
		}
		b.logger.Error("agent.tool.failed", "agent", b.name, "tool", name, "error", err)
		return nil, err
	}
	b.logger.Debug("agent.tool.called", "agent", b.name, "tool", name)
	return result, nil
}

// DiscoverTools returns the names of all tools available to this agent, in
// registration order. Returns nil when no registry is bound.
func (b *BaseAgent) DiscoverTools() []string {
	if b.tools == nil {
		return nil
	}
	return b.tools.Names()
}
