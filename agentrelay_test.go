package agentrelay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/agentrelay/agent"
	"github.com/agentrelay/agentrelay/classifier"
	"github.com/agentrelay/agentrelay/model"
	"github.com/agentrelay/agentrelay/registry"
	"github.com/agentrelay/agentrelay/tool"
)

func newRelayAgent(name string, script map[string]string) agent.Agent {
	mock := model.NewMockModel(name+"-model", "mock")
	for input, response := range script {
		mock.AddResponse(input, response)
	}
	return agent.NewModelAgent(name, mock)
}

func TestAgentRelay_Defaults(t *testing.T) {
	relay := New()
	assert.NotNil(t, relay.Repository())
	assert.NotNil(t, relay.Agents())
	assert.NotNil(t, relay.Tools())
}

func TestAgentRelay_OrchestrateWithDefaultAgent(t *testing.T) {
	relay := New(func(o *Options) {
		o.DefaultAgentName = "Echo"
	})
	require.NoError(t, relay.RegisterAgent(newRelayAgent("Echo", map[string]string{"hi": "hello"})))

	resp, err := relay.Orchestrate(context.Background(), "t1", "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp)

	th, err := relay.Repository().GetThread("t1")
	require.NoError(t, err)
	require.Len(t, th.Messages, 2)
}

func TestAgentRelay_DuplicateRegistrations(t *testing.T) {
	relay := New()
	require.NoError(t, relay.RegisterAgent(newRelayAgent("Echo", nil)))

	var dupAgent *registry.DuplicateAgentError
	require.ErrorAs(t, relay.RegisterAgent(newRelayAgent("Echo", nil)), &dupAgent)

	echo := tool.NewFunctionTool("echo", "Echoes", nil,
		func(_ context.Context, args map[string]any) (any, error) { return args, nil },
	)
	require.NoError(t, relay.RegisterTool(echo))
	var dupTool *tool.DuplicateError
	require.ErrorAs(t, relay.RegisterTool(echo), &dupTool)
}

func TestAgentRelay_OrchestrateStream(t *testing.T) {
	relay := New(func(o *Options) {
		o.DefaultAgentName = "Echo"
	})
	require.NoError(t, relay.RegisterAgent(newRelayAgent("Echo", map[string]string{"hi": "hello"})))

	var streamed string
	resp, err := relay.OrchestrateStream(context.Background(), "t1", "", "hi", func(fragment string) error {
		streamed += fragment
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp)
	assert.Equal(t, "hello", streamed)
}

func TestAgentRelay_ClassifierRouting(t *testing.T) {
	routerMock := model.NewMockModel("router-model", "mock")
	router := agent.NewModelAgent("Router", routerMock)

	relay := New(func(o *Options) {
		o.Classifier = classifier.NewLLMClassifier(router, "GeneralAgent")
	})
	require.NoError(t, relay.RegisterAgent(newRelayAgent("GeneralAgent", map[string]string{"hi": "hello"})))

	// mock router output matches no agent name, so the classifier default wins
	resp, err := relay.Orchestrate(context.Background(), "t1", "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "[GeneralAgent] hello", resp)
}
