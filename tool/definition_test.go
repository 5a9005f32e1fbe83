package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func definitionFixture() *FunctionTool {
	return NewFunctionTool("weather", "Looks up the weather",
		map[string]ParameterSpec{
			"city": {Type: "string", Description: "City name", Required: true},
			"unit": {Type: "string", Description: "celsius or fahrenheit"},
			"days": {Type: "integer", Required: true},
		},
		func(_ context.Context, _ map[string]any) (any, error) { return nil, nil },
	)
}

func TestSchema(t *testing.T) {
	schema := Schema(definitionFixture())
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "city")
	assert.Contains(t, props, "unit")
	assert.Contains(t, props, "days")

	city, ok := props["city"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", city["type"])
	assert.Equal(t, "City name", city["description"])

	// required list is sorted for deterministic output
	assert.Equal(t, []string{"city", "days"}, schema["required"])
}

func TestSchema_NoRequired(t *testing.T) {
	optional := NewFunctionTool("optional", "All optional",
		map[string]ParameterSpec{"x": {Type: "string"}},
		func(_ context.Context, _ map[string]any) (any, error) { return nil, nil },
	)
	schema := Schema(optional)
	assert.NotContains(t, schema, "required")
}

func TestOpenAIDefinition(t *testing.T) {
	def := OpenAIDefinition(definitionFixture())
	assert.Equal(t, "function", def["type"])

	fn, ok := def["function"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "weather", fn["name"])
	assert.Equal(t, "Looks up the weather", fn["description"])
	assert.Equal(t, Schema(definitionFixture()), fn["parameters"])
}

func TestAnthropicDefinition(t *testing.T) {
	def := AnthropicDefinition(definitionFixture())
	assert.Equal(t, "weather", def["name"])
	assert.Equal(t, Schema(definitionFixture()), def["input_schema"])
}

func TestBedrockDefinition(t *testing.T) {
	def := BedrockDefinition(definitionFixture())
	assert.Equal(t, "weather", def["name"])
	assert.Equal(t, Schema(definitionFixture()), def["parameters"])
}
