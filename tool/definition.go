package tool

import "sort"

// Backend definition rendering.
//
// Each function is a pure transformation from a Tool's name, description and
// parameter specification into the calling convention a model backend family
// expects. Same tool state always yields the same rendered definition, so
// callers are free to cache the result.

// Schema renders the parameter specification as a minimal JSON schema object:
// {"type": "object", "properties": {...}, "required": [...]}. The required
// list is sorted for stable output.
func Schema(t Tool) map[string]any {
	params := t.Parameters()
	properties := make(map[string]any, len(params))
	var required []string
	for name, spec := range params {
		prop := map[string]any{"type": spec.Type}
		if spec.Description != "" {
			prop["description"] = spec.Description
		}
		properties[name] = prop
		if spec.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// OpenAIDefinition renders the tool as an OpenAI-style function declaration.
func OpenAIDefinition(t Tool) map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name(),
			"description": t.Description(),
			"parameters":  Schema(t),
		},
	}
}

// AnthropicDefinition renders the tool as an Anthropic-style tool declaration.
func AnthropicDefinition(t Tool) map[string]any {
	return map[string]any{
		"name":         t.Name(),
		"description":  t.Description(),
		"input_schema": Schema(t),
	}
}

// BedrockDefinition renders the tool in the flat shape Bedrock-family
// backends expect.
func BedrockDefinition(t Tool) map[string]any {
	return map[string]any{
		"name":        t.Name(),
		"description": t.Description(),
		"parameters":  Schema(t),
	}
}
