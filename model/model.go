// Package model defines the abstract contract consumed from agent backends:
// given a message plus optional conversation context, return a complete text
// response or a finite, ordered stream of response fragments. Vendor
// authentication, request shaping and transport live in the sub-packages;
// only this normalized surface crosses the boundary into agents.
package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentrelay/agentrelay/conversation"
)

// ToolCall is a function call request surfaced by a backend, unified across
// vendors so downstream logic needs no per-provider branching.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult carries the outcome of a dispatched tool call back to the
// backend on the next generation round.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ToolDefinition declaratively exposes a callable function to the backend.
// Parameters is a minimal JSON schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the normalized backend input produced by agents.
type Request struct {
	// SystemPrompt configures the backend's behavior for the whole request.
	SystemPrompt string
	// History is prior conversation context in arrival order. Senders map to
	// backend roles: "user" stays user, everything else becomes assistant.
	History []conversation.Message
	// Message is the current user turn.
	Message string
	// ToolCalls / ToolResults carry a pending function calling exchange.
	ToolCalls   []ToolCall
	ToolResults []ToolResult
	// Tools declares the capabilities the backend may call.
	Tools []ToolDefinition
	// Stream requests incremental fragment emission.
	Stream bool
}

// Response is a partial or final chunk emitted by a backend.
type Response struct {
	// Text is the fragment (partial) or full accumulated text (final).
	Text string
	// Partial marks streaming fragments; the final response has Partial false.
	Partial bool
	// ToolCalls is populated on a final response when the backend requests
	// function execution instead of (or before) answering.
	ToolCalls []ToolCall
	// FinishReason is "stop", "length", "tool_calls", etc.
	FinishReason string
}

// Info describes a backend implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface agents use to drive generation. Generate
// emits zero or more partial responses followed by exactly one final response
// on the first channel, then closes both channels. Implementations must
// observe ctx cancellation within one fragment-production step.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns metadata about the backend implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model for tests and examples. It
// replays canned completions, optionally as per-character streaming
// fragments, and can be scripted to request tool calls.
type MockModel struct {
	info      Info
	responses map[string]string
	toolCalls map[string][]ToolCall
	err       error
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider, SupportsTools: true},
		responses: make(map[string]string),
		toolCalls: make(map[string][]ToolCall),
	}
}

// AddResponse registers a deterministic canned completion for an input.
func (m *MockModel) AddResponse(input, response string) { m.responses[input] = response }

// AddToolCalls scripts the model to request the given tool calls when it sees
// the input. The following round (with tool results present) falls through to
// the canned completion.
func (m *MockModel) AddToolCalls(input string, calls ...ToolCall) { m.toolCalls[input] = calls }

// FailWith makes every Generate call emit err.
func (m *MockModel) FailWith(err error) { m.err = err }

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if m.err != nil {
			errCh <- m.err
			return
		}

		if calls, ok := m.toolCalls[req.Message]; ok && len(req.ToolResults) == 0 {
			respCh <- Response{ToolCalls: calls, FinishReason: "tool_calls"}
			return
		}

		full := m.responses[req.Message]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", req.Message)
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Text: string(r), Partial: true}:
				}
			}
		}
		respCh <- Response{Text: full, FinishReason: "stop"}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
