package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/agentrelay/agent"
	"github.com/agentrelay/agentrelay/model"
)

func newTestAgent(name, description string) agent.Agent {
	return agent.NewModelAgent(name, model.NewMockModel("m", "mock"), func(o *agent.ModelAgentOptions) {
		o.Description = description
	})
}

func TestAgentRegistry_RegisterRejectsDuplicates(t *testing.T) {
	reg := NewAgentRegistry()
	require.NoError(t, reg.Register(newTestAgent("a", "first")))

	err := reg.Register(newTestAgent("a", "second"))
	var dup *DuplicateAgentError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a", dup.Name)

	// original registration stays in place
	got, err := reg.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Description())
}

func TestAgentRegistry_GetAndRemove(t *testing.T) {
	reg := NewAgentRegistry()
	require.NoError(t, reg.Register(newTestAgent("a", "")))

	var notFound *AgentNotFoundError
	_, err := reg.Get("missing")
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Name)

	require.NoError(t, reg.Remove("a"))
	err = reg.Remove("a")
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 0, reg.Len())

	// remove frees the name for re-registration
	require.NoError(t, reg.Register(newTestAgent("a", "replacement")))
}

func TestAgentRegistry_ListOrder(t *testing.T) {
	reg := NewAgentRegistry()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, reg.Register(newTestAgent(name, "Agent "+name)))
	}
	infos := reg.List()
	require.Len(t, infos, 3)
	assert.Equal(t, AgentInfo{Name: "c", Description: "Agent c"}, infos[0])
	assert.Equal(t, "a", infos[1].Name)
	assert.Equal(t, "b", infos[2].Name)
}

func TestAgentRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewAgentRegistry()
	require.NoError(t, reg.Register(newTestAgent("stable", "")))

	wg := sync.WaitGroup{}
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a, err := reg.Get("stable"); err == nil {
				_, _ = a.HandleMessage(context.Background(), agent.Request{Message: "hi"})
			}
			_ = reg.List()
			_ = reg.Len()
		}()
	}
	wg.Wait()
}
