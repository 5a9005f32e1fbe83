// Package classifier selects which agent should handle a message when the
// caller does not name one. The LLM-backed implementation delegates the
// choice to a routing agent fed with the registry's discovery listing.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentrelay/agentrelay/agent"
	"github.com/agentrelay/agentrelay/registry"
)

// Classifier picks the most appropriate agent name for a message from the
// available discovery listing. Returning an empty name means "no opinion";
// the orchestrator then applies its default-agent fallback.
type Classifier interface {
	Classify(ctx context.Context, message string, available []registry.AgentInfo) (string, error)
}

// LLMClassifier routes by asking a language-model agent to pick from the
// available agent descriptions. A selection that does not match any available
// name falls back to the configured default.
type LLMClassifier struct {
	llmAgent     agent.Agent
	defaultAgent string
}

// NewLLMClassifier constructs a classifier around a routing agent.
func NewLLMClassifier(llmAgent agent.Agent, defaultAgent string) *LLMClassifier {
	return &LLMClassifier{llmAgent: llmAgent, defaultAgent: defaultAgent}
}

// Classify implements Classifier.
func (c *LLMClassifier) Classify(ctx context.Context, message string, available []registry.AgentInfo) (string, error) {
	if len(available) == 0 {
		return "", nil
	}

	descriptions := make([]string, 0, len(available))
	for _, info := range available {
		descriptions = append(descriptions, fmt.Sprintf("'%s: %s'", info.Name, info.Description))
	}
	prompt := fmt.Sprintf(
		"Given the following user message and list of available specialized agents, "+
			"select the most appropriate agent to handle the request. Return only the agent name.\n\n"+
			"Available agents: %s\n\nUser message: %s",
		strings.Join(descriptions, ", "), message,
	)

	response, err := c.llmAgent.HandleMessage(ctx, agent.Request{Message: prompt})
	if err != nil {
		return "", err
	}

	selected := strings.TrimSpace(response)
	for _, info := range available {
		if info.Name == selected {
			return selected, nil
		}
	}
	return c.defaultAgent, nil
}
