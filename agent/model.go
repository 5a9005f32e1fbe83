package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentrelay/agentrelay/model"
	"github.com/agentrelay/agentrelay/tool"
)

// ModelAgentOptions configures a ModelAgent instance.
type ModelAgentOptions struct {
	BaseAgentOptions

	// MaxToolRounds bounds the generate → dispatch → regenerate loop so a
	// backend that keeps requesting tools cannot spin forever.
	MaxToolRounds int
}

// ModelAgent drives a language-model backend. It supports synchronous and
// streaming turns and, when a tool registry is bound, a bounded function
// calling loop: the backend requests tool calls, the agent dispatches them
// through the registry, feeds results back and regenerates.
//
// Tool failures are handled inside the agent: the failing call's error text
// is returned to the backend as an error-marked tool result, so callers only
// ever observe a successful response or an *InvocationError.
type ModelAgent struct {
	BaseAgent
	llm           model.Model
	maxToolRounds int
}

// NewModelAgent creates a model-backed agent with sensible defaults.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		BaseAgentOptions: BaseAgentOptions{
			Description:  fmt.Sprintf("Agent %s", name),
			SystemPrompt: "You are a helpful AI assistant.",
		},
		MaxToolRounds: 5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	base := NewBaseAgent(name, func(o *BaseAgentOptions) { *o = opts.BaseAgentOptions })
	return &ModelAgent{BaseAgent: base, llm: llm, maxToolRounds: opts.MaxToolRounds}
}

// backend identifies the model behind this agent for error reporting.
func (a *ModelAgent) backend() string {
	info := a.llm.Info()
	return fmt.Sprintf("%s/%s", info.Provider, info.Name)
}

// toolDefinitions renders the bound registry into backend declarations.
func (a *ModelAgent) toolDefinitions() []model.ToolDefinition {
	if a.Tools() == nil {
		return nil
	}
	tools := a.Tools().Tools()
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  tool.Schema(t),
		})
	}
	return defs
}

func (a *ModelAgent) buildRequest(req Request, stream bool) model.Request {
	return model.Request{
		SystemPrompt: a.SystemPrompt(),
		History:      req.Context,
		Message:      req.Message,
		Tools:        a.toolDefinitions(),
		Stream:       stream,
	}
}

// generate drains one backend round, forwarding partial fragments to emit
// when non-nil, and returns the final response.
func (a *ModelAgent) generate(ctx context.Context, mReq model.Request, emit func(string) error) (model.Response, error) {
	start := time.Now()
	respCh, errCh := a.llm.Generate(ctx, mReq)

	var final model.Response
	emitted := false
	for resp := range respCh {
		if resp.Partial {
			if emit != nil {
				if err := emit(resp.Text); err != nil {
					return model.Response{}, err
				}
				emitted = true
			}
			continue
		}
		final = resp
	}
	if err := <-errCh; err != nil {
		a.Logger().Error("agent.model.failed", "agent", a.Name(), "backend", a.backend(), "error", err)
		return model.Response{}, &InvocationError{Agent: a.Name(), Backend: a.backend(), Err: err}
	}

	// Backends that do not stream emit only the final response; forward it as
	// a single fragment so the sink still receives the full text.
	if emit != nil && !emitted && final.Text != "" && len(final.ToolCalls) == 0 {
		if err := emit(final.Text); err != nil {
			return model.Response{}, err
		}
	}
	a.Logger().Debug("agent.model.round", "agent", a.Name(), "backend", a.backend(),
		"finish_reason", final.FinishReason, "duration_ms", time.Since(start).Milliseconds())
	return final, nil
}

// dispatchToolCalls executes each requested call through the registry and
// renders results (or error texts) for the next backend round.
func (a *ModelAgent) dispatchToolCalls(ctx context.Context, calls []model.ToolCall) []model.ToolResult {
	results := make([]model.ToolResult, 0, len(calls))
	for _, call := range calls {
		args := map[string]any{}
		if len(call.Arguments) > 0 {
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				results = append(results, model.ToolResult{
					CallID: call.ID, Name: call.Name,
					Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true,
				})
				continue
			}
		}
		result, err := a.CallTool(ctx, call.Name, args)
		if err != nil {
			results = append(results, model.ToolResult{
				CallID: call.ID, Name: call.Name, Content: err.Error(), IsError: true,
			})
			continue
		}
		results = append(results, model.ToolResult{
			CallID: call.ID, Name: call.Name, Content: renderToolResult(result),
		})
	}
	return results
}

func renderToolResult(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// run executes the bounded tool-calling loop for one turn.
func (a *ModelAgent) run(ctx context.Context, req Request, stream bool, emit func(string) error) (string, error) {
	mReq := a.buildRequest(req, stream)
	for round := 0; round <= a.maxToolRounds; round++ {
		final, err := a.generate(ctx, mReq, emit)
		if err != nil {
			return "", err
		}
		if len(final.ToolCalls) == 0 {
			return final.Text, nil
		}
		mReq.ToolCalls = final.ToolCalls
		mReq.ToolResults = a.dispatchToolCalls(ctx, final.ToolCalls)
	}
	return "", &InvocationError{
		Agent:   a.Name(),
		Backend: a.backend(),
		Err:     fmt.Errorf("tool call limit of %d rounds exceeded", a.maxToolRounds),
	}
}

// HandleMessage implements Agent.
func (a *ModelAgent) HandleMessage(ctx context.Context, req Request) (string, error) {
	return a.run(ctx, req, false, nil)
}

// HandleMessageStream implements Agent. Fragments are forwarded in emission
// order; the stream terminates when the backend signals completion or ctx is
// cancelled.
func (a *ModelAgent) HandleMessageStream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	out := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		emit := func(fragment string) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- fragment:
				return nil
			}
		}
		if _, err := a.run(ctx, req, true, emit); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}
