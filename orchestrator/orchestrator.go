// Package orchestrator routes a conversational turn to an agent, persists the
// exchange as an ordered thread and returns or streams the result. The
// per-turn pipeline is a fixed state machine: resolve agent → load context →
// invoke → persist → respond, with failure reachable from every step.
package orchestrator

import (
	"context"
	"fmt"
	"time"
)

// StreamSink consumes response fragments in emission order. Returning an
// error aborts the stream and tears down the producing agent, surfacing as
// *StreamSinkError; a slow sink simply applies backpressure through its own
// forwarding loop.
type StreamSink func(fragment string) error

// Request is the closed per-turn context structure. Only the enumerated
// fields influence routing; there is no open keyword bag.
type Request struct {
	// ThreadID identifies the conversation; must be non-empty. A thread that
	// does not exist yet is created as part of the turn.
	ThreadID string
	// Message is the user's turn; must be non-empty.
	Message string
	// AgentName optionally overrides agent selection. An override that does
	// not resolve fails the turn; there is no silent fallback past it.
	AgentName string
	// Sink, when non-nil, switches the turn to streaming mode: fragments are
	// forwarded as they arrive and the assembled response is persisted once
	// the stream ends.
	Sink StreamSink
	// Timeout optionally bounds the whole turn.
	Timeout time.Duration
	// Metadata is attached to the persisted user message.
	Metadata map[string]string
}

// Orchestrator coordinates message flow between callers and registered
// agents. Implementations differ only in how they resolve the agent for a
// turn.
type Orchestrator interface {
	// Orchestrate executes one turn and returns the final response text. In
	// streaming mode the same text has additionally been forwarded to the
	// sink fragment by fragment.
	Orchestrate(ctx context.Context, req Request) (string, error)
}

// InvalidArgumentError reports a malformed orchestration request.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// StreamSinkError reports that the caller-supplied sink aborted a streaming
// turn. The abort is a consumer-side outcome: the producing agent is torn
// down, no response is persisted and no agent failure is recorded.
type StreamSinkError struct {
	Err error
}

func (e *StreamSinkError) Error() string {
	return fmt.Sprintf("stream sink: %v", e.Err)
}

// Unwrap exposes the sink's error.
func (e *StreamSinkError) Unwrap() error { return e.Err }

func validate(req Request) error {
	if req.ThreadID == "" {
		return &InvalidArgumentError{Field: "thread_id", Reason: "must be non-empty"}
	}
	if req.Message == "" {
		return &InvalidArgumentError{Field: "message", Reason: "must be non-empty"}
	}
	return nil
}
