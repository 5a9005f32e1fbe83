package orchestrator

import (
	"context"

	"github.com/agentrelay/agentrelay/agent"
	"github.com/agentrelay/agentrelay/classifier"
	"github.com/agentrelay/agentrelay/logging"
	"github.com/agentrelay/agentrelay/memory"
	"github.com/agentrelay/agentrelay/registry"
)

// MultiAgentOptions configures a MultiAgentOrchestrator.
type MultiAgentOptions struct {
	// DefaultAgentName is the fallback when the classifier has no opinion.
	DefaultAgentName string
	// Logger receives orchestration events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// MultiAgentOrchestrator routes each turn through a classifier: the
// per-request override still wins, otherwise the classifier picks from the
// registry listing, and the configured default covers an empty classifier
// verdict. Responses are prefixed with the handling agent's name so multi
// specialist threads stay attributable.
type MultiAgentOrchestrator struct {
	registry    *registry.AgentRegistry
	classifier  classifier.Classifier
	turn        turn
	defaultName string
}

var _ Orchestrator = (*MultiAgentOrchestrator)(nil)

// NewMultiAgentOrchestrator wires a classifier-routed orchestrator.
func NewMultiAgentOrchestrator(reg *registry.AgentRegistry, repo memory.Repository, cls classifier.Classifier, optFns ...func(o *MultiAgentOptions)) *MultiAgentOrchestrator {
	opts := MultiAgentOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MultiAgentOrchestrator{
		registry:    reg,
		classifier:  cls,
		turn:        turn{repo: repo, logger: opts.Logger},
		defaultName: opts.DefaultAgentName,
	}
}

// resolve applies override → classifier → default. A classifier failure fails
// the turn rather than guessing.
func (o *MultiAgentOrchestrator) resolve(ctx context.Context, req Request) (agent.Agent, error) {
	name := req.AgentName
	if name == "" {
		selected, err := o.classifier.Classify(ctx, req.Message, o.registry.List())
		if err != nil {
			o.turn.logger.Error("orchestrator.classify.failed", "thread_id", req.ThreadID, "error", err)
			return nil, err
		}
		name = selected
		o.turn.logger.Debug("orchestrator.classify", "thread_id", req.ThreadID, "agent", name)
	}
	if name == "" {
		name = o.defaultName
	}
	return o.registry.Get(name)
}

// Orchestrate implements Orchestrator.
func (o *MultiAgentOrchestrator) Orchestrate(ctx context.Context, req Request) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}
	ag, err := o.resolve(ctx, req)
	if err != nil {
		return "", err
	}
	return o.turn.execute(ctx, ag, req, "["+ag.Name()+"] ")
}
