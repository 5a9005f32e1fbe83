package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/agentrelay/model"
	"github.com/agentrelay/agentrelay/tool"
)

// Interface compliance (compile-time assertions)
var (
	_ Agent = (*ModelAgent)(nil)
	_ Agent = (*RemoteAgent)(nil)
)

func TestModelAgent_HandleMessage(t *testing.T) {
	mock := model.NewMockModel("test-model", "mock")
	mock.AddResponse("hi", "hello there")

	a := NewModelAgent("TestAgent", mock)
	assert.Equal(t, "TestAgent", a.Name())

	resp, err := a.HandleMessage(context.Background(), Request{ThreadID: "t1", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp)
}

func TestModelAgent_HandleMessageStream(t *testing.T) {
	mock := model.NewMockModel("test-model", "mock")
	mock.AddResponse("hi", "hello")

	a := NewModelAgent("TestAgent", mock)
	fragments, errCh := a.HandleMessageStream(context.Background(), Request{ThreadID: "t1", Message: "hi"})

	var sb strings.Builder
	for f := range fragments {
		sb.WriteString(f)
	}
	require.NoError(t, <-errCh)
	// concatenated fragments equal the synchronous response
	assert.Equal(t, "hello", sb.String())
}

func TestModelAgent_BackendFailure(t *testing.T) {
	mock := model.NewMockModel("test-model", "mock")
	cause := errors.New("backend down")
	mock.FailWith(cause)

	a := NewModelAgent("TestAgent", mock)
	_, err := a.HandleMessage(context.Background(), Request{ThreadID: "t1", Message: "hi"})

	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "TestAgent", invErr.Agent)
	assert.Equal(t, "mock/test-model", invErr.Backend)
	assert.ErrorIs(t, err, cause)
}

func TestModelAgent_ToolCallingLoop(t *testing.T) {
	reg := tool.NewRegistry()
	var gotArgs map[string]any
	echo := tool.NewFunctionTool("echo", "Echoes input",
		map[string]tool.ParameterSpec{"text": {Type: "string", Required: true}},
		func(_ context.Context, args map[string]any) (any, error) {
			gotArgs = args
			return args["text"], nil
		},
	)
	require.NoError(t, reg.Register(echo))

	mock := model.NewMockModel("test-model", "mock")
	args, _ := json.Marshal(map[string]any{"text": "ping"})
	mock.AddToolCalls("use the tool", model.ToolCall{ID: "call-1", Name: "echo", Arguments: args})
	mock.AddResponse("use the tool", "tool said ping")

	a := NewModelAgent("TestAgent", mock, func(o *ModelAgentOptions) {
		o.Tools = reg
	})

	resp, err := a.HandleMessage(context.Background(), Request{ThreadID: "t1", Message: "use the tool"})
	require.NoError(t, err)
	assert.Equal(t, "tool said ping", resp)
	assert.Equal(t, "ping", gotArgs["text"])
}

func TestModelAgent_ToolFailureIsAbsorbed(t *testing.T) {
	reg := tool.NewRegistry()
	failing := tool.NewFunctionTool("failing", "Always fails", nil,
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("boom")
		},
	)
	require.NoError(t, reg.Register(failing))

	mock := model.NewMockModel("test-model", "mock")
	mock.AddToolCalls("go", model.ToolCall{ID: "call-1", Name: "failing"})
	mock.AddResponse("go", "recovered")

	a := NewModelAgent("TestAgent", mock, func(o *ModelAgentOptions) {
		o.Tools = reg
	})

	// the tool error is fed back as an error-marked result, not surfaced
	resp, err := a.HandleMessage(context.Background(), Request{ThreadID: "t1", Message: "go"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp)
}

// loopingModel keeps requesting tool calls forever to exercise the round cap.
type loopingModel struct{}

func (loopingModel) Generate(_ context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	out <- model.Response{ToolCalls: []model.ToolCall{{ID: "c", Name: "echo"}}, FinishReason: "tool_calls"}
	close(out)
	close(errCh)
	return out, errCh
}

func (loopingModel) Info() model.Info {
	return model.Info{Name: "looper", Provider: "mock", SupportsTools: true}
}

func TestModelAgent_ToolRoundLimit(t *testing.T) {
	reg := tool.NewRegistry()
	echo := tool.NewFunctionTool("echo", "Echoes", nil,
		func(_ context.Context, _ map[string]any) (any, error) { return "ok", nil },
	)
	require.NoError(t, reg.Register(echo))

	a := NewModelAgent("TestAgent", loopingModel{}, func(o *ModelAgentOptions) {
		o.Tools = reg
		o.MaxToolRounds = 2
	})

	_, err := a.HandleMessage(context.Background(), Request{ThreadID: "t1", Message: "loop"})
	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, invErr.Error(), "tool call limit")
}
