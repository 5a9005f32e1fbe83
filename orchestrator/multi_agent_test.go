package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/agentrelay/memory"
	"github.com/agentrelay/agentrelay/registry"
)

// stubClassifier returns a scripted verdict and remembers the listing it saw.
type stubClassifier struct {
	name  string
	err   error
	seen  []registry.AgentInfo
	calls int
}

func (c *stubClassifier) Classify(_ context.Context, _ string, available []registry.AgentInfo) (string, error) {
	c.calls++
	c.seen = available
	return c.name, c.err
}

func TestMultiAgentOrchestrator_ClassifierRouting(t *testing.T) {
	repo := memory.NewInMemoryRepository()
	reg := registry.NewAgentRegistry()
	require.NoError(t, reg.Register(newMockAgent("CodeAgent", map[string]string{"hi": "code answer"})))
	require.NoError(t, reg.Register(newMockAgent("GeneralAgent", map[string]string{"hi": "general answer"})))

	cls := &stubClassifier{name: "CodeAgent"}
	orch := NewMultiAgentOrchestrator(reg, repo, cls)

	resp, err := orch.Orchestrate(context.Background(), Request{ThreadID: "t1", Message: "hi"})
	require.NoError(t, err)

	// the handling agent's name prefixes the response
	assert.Equal(t, "[CodeAgent] code answer", resp)
	require.Len(t, cls.seen, 2)

	// the prefixed response is what gets persisted
	th, _ := repo.GetThread("t1")
	require.Len(t, th.Messages, 2)
	assert.Equal(t, "CodeAgent", th.Messages[1].Sender)
	assert.Equal(t, "[CodeAgent] code answer", th.Messages[1].Content)
}

func TestMultiAgentOrchestrator_OverrideSkipsClassifier(t *testing.T) {
	repo := memory.NewInMemoryRepository()
	reg := registry.NewAgentRegistry()
	require.NoError(t, reg.Register(newMockAgent("GeneralAgent", map[string]string{"hi": "general answer"})))

	cls := &stubClassifier{name: "GeneralAgent"}
	orch := NewMultiAgentOrchestrator(reg, repo, cls)

	resp, err := orch.Orchestrate(context.Background(), Request{ThreadID: "t1", Message: "hi", AgentName: "GeneralAgent"})
	require.NoError(t, err)
	assert.Equal(t, "[GeneralAgent] general answer", resp)
	assert.Zero(t, cls.calls)
}

func TestMultiAgentOrchestrator_EmptyVerdictFallsBackToDefault(t *testing.T) {
	repo := memory.NewInMemoryRepository()
	reg := registry.NewAgentRegistry()
	require.NoError(t, reg.Register(newMockAgent("GeneralAgent", map[string]string{"hi": "general answer"})))

	cls := &stubClassifier{name: ""}
	orch := NewMultiAgentOrchestrator(reg, repo, cls, func(o *MultiAgentOptions) {
		o.DefaultAgentName = "GeneralAgent"
	})

	resp, err := orch.Orchestrate(context.Background(), Request{ThreadID: "t1", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "[GeneralAgent] general answer", resp)
}

func TestMultiAgentOrchestrator_ClassifierFailureFailsTurn(t *testing.T) {
	repo := memory.NewInMemoryRepository()
	reg := registry.NewAgentRegistry()
	require.NoError(t, reg.Register(newMockAgent("GeneralAgent", nil)))

	cause := errors.New("router down")
	orch := NewMultiAgentOrchestrator(reg, repo, &stubClassifier{err: cause})

	_, err := orch.Orchestrate(context.Background(), Request{ThreadID: "t1", Message: "hi"})
	require.ErrorIs(t, err, cause)

	// no thread state is touched when resolution fails
	ids, _ := repo.ListThreads()
	assert.Empty(t, ids)
}

func TestMultiAgentOrchestrator_StreamingCarriesPrefix(t *testing.T) {
	repo := memory.NewInMemoryRepository()
	reg := registry.NewAgentRegistry()
	require.NoError(t, reg.Register(newMockAgent("CodeAgent", map[string]string{"hi": "ok"})))

	orch := NewMultiAgentOrchestrator(reg, repo, &stubClassifier{name: "CodeAgent"})

	var first string
	var all string
	resp, err := orch.Orchestrate(context.Background(), Request{
		ThreadID: "t1",
		Message:  "hi",
		Sink: func(fragment string) error {
			if first == "" {
				first = fragment
			}
			all += fragment
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "[CodeAgent] ", first, "prefix streams before the first backend fragment")
	assert.Equal(t, "[CodeAgent] ok", all)
	assert.Equal(t, resp, all)
}
