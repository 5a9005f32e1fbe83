// Package agentrelay provides a high-level façade over the orchestration core
// and service abstractions (agents, tools, conversation memory & logging)
// enabling rapid construction of agent-backed conversational systems. Most
// applications interact with this package by:
//  1. Creating an AgentRelay via New() (optionally overriding the default in-memory repository)
//  2. Registering one or more agents (model, remote, custom) and tools
//  3. Orchestrating turns synchronously (Orchestrate) or streamed (OrchestrateStream)
//
// The façade delegates routing to an orchestrator.Orchestrator while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a durable
// repository implementation and a structured logger.
package agentrelay

import (
	"context"
	"time"

	"github.com/agentrelay/agentrelay/agent"
	"github.com/agentrelay/agentrelay/classifier"
	"github.com/agentrelay/agentrelay/logging"
	"github.com/agentrelay/agentrelay/memory"
	"github.com/agentrelay/agentrelay/orchestrator"
	"github.com/agentrelay/agentrelay/registry"
	"github.com/agentrelay/agentrelay/tool"
)

// Options configures the AgentRelay instance.
type Options struct {
	// Repository stores conversation threads (defaults to in-memory if nil).
	Repository memory.Repository

	// DefaultAgentName is used when a turn names no agent.
	DefaultAgentName string

	// Classifier, when set, switches routing to the multi-agent orchestrator:
	// turns without an explicit agent name are classified against the registry
	// listing and responses carry a "[agent] " attribution prefix.
	Classifier classifier.Classifier

	// Timeout bounds each orchestrated turn. Zero means no bound beyond the
	// caller's context.
	Timeout time.Duration

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentRelay is the high-level façade aggregating the registries, the
// repository and the orchestrator behind a single entry point.
type AgentRelay struct {
	opts         Options
	agents       *registry.AgentRegistry
	tools        *tool.Registry
	orchestrator orchestrator.Orchestrator
}

// New creates a new AgentRelay instance with optional overrides. An unset
// repository is initialized with the in-memory implementation.
func New(optFns ...func(o *Options)) *AgentRelay {
	opts := Options{
		Repository: memory.NewInMemoryRepository(),
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	agents := registry.NewAgentRegistry()

	var orch orchestrator.Orchestrator
	if opts.Classifier != nil {
		orch = orchestrator.NewMultiAgentOrchestrator(agents, opts.Repository, opts.Classifier, func(o *orchestrator.MultiAgentOptions) {
			o.DefaultAgentName = opts.DefaultAgentName
			o.Logger = opts.Logger
		})
	} else {
		orch = orchestrator.NewSimpleOrchestrator(agents, opts.Repository, func(o *orchestrator.SimpleOptions) {
			o.DefaultAgentName = opts.DefaultAgentName
			o.Logger = opts.Logger
		})
	}

	return &AgentRelay{
		opts:         opts,
		agents:       agents,
		tools:        tool.NewRegistry(),
		orchestrator: orch,
	}
}

// RegisterAgent adds an agent to the underlying registry.
func (r *AgentRelay) RegisterAgent(a agent.Agent) error { return r.agents.Register(a) }

// RegisterTool adds a tool to the shared tool registry.
func (r *AgentRelay) RegisterTool(t tool.Tool) error { return r.tools.Register(t) }

// Agents exposes the agent registry for discovery and removal.
func (r *AgentRelay) Agents() *registry.AgentRegistry { return r.agents }

// Tools exposes the shared tool registry so agents can be constructed
// against it.
func (r *AgentRelay) Tools() *tool.Registry { return r.tools }

// Repository exposes the configured conversation store.
func (r *AgentRelay) Repository() memory.Repository { return r.opts.Repository }

// Orchestrate runs one synchronous turn and returns the full response text.
// agentName may be empty when a default agent (or classifier) is configured.
func (r *AgentRelay) Orchestrate(ctx context.Context, threadID, agentName, message string) (string, error) {
	return r.orchestrator.Orchestrate(ctx, orchestrator.Request{
		ThreadID:  threadID,
		Message:   message,
		AgentName: agentName,
		Timeout:   r.opts.Timeout,
	})
}

// OrchestrateStream runs one streamed turn, forwarding response fragments to
// sink in emission order, and returns the assembled response text.
func (r *AgentRelay) OrchestrateStream(ctx context.Context, threadID, agentName, message string, sink orchestrator.StreamSink) (string, error) {
	return r.orchestrator.Orchestrate(ctx, orchestrator.Request{
		ThreadID:  threadID,
		Message:   message,
		AgentName: agentName,
		Sink:      sink,
		Timeout:   r.opts.Timeout,
	})
}
