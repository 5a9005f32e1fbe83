// Package agent defines the processing units that consume a conversational
// turn and produce a response or a response stream. Concrete variants wrap
// different backends (language models, remote HTTP endpoints) behind a single
// contract; shared behavior – tool dispatch, memory binding, logging – lives
// in BaseAgent.
package agent

import (
	"context"
	"fmt"

	"github.com/agentrelay/agentrelay/conversation"
)

// Request carries one turn into an agent: the current user message plus a
// read snapshot of prior conversation context. Agents must not mutate the
// snapshot; memory writes go through the bound repository.
type Request struct {
	ThreadID string
	Message  string
	Context  []conversation.Message
}

// Agent is the unit of work the orchestrator invokes. Implementations are
// constructed once, registered, and invoked many times; they must be safe for
// concurrent invocations.
type Agent interface {
	Name() string
	Description() string

	// HandleMessage produces the complete response for one turn.
	HandleMessage(ctx context.Context, req Request) (string, error)

	// HandleMessageStream produces response fragments in emission order. The
	// fragment channel is closed when the backend signals completion; a
	// terminal failure arrives on the error channel. Streams are not
	// restartable – a new call re-executes the underlying work. Cancelling
	// ctx tears the producer down within one fragment step.
	HandleMessageStream(ctx context.Context, req Request) (<-chan string, <-chan error)
}

// InvocationError reports that an agent could not complete a turn: the
// backend was unreachable, reported an error, or timed out. It carries the
// backend identity and the underlying cause so the orchestrator can
// distinguish "the agent itself failed" from anything a nested tool did.
type InvocationError struct {
	Agent   string
	Backend string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("agent %q invocation failed (backend %s): %v", e.Agent, e.Backend, e.Err)
}

// Unwrap exposes the underlying backend failure.
func (e *InvocationError) Unwrap() error { return e.Err }
