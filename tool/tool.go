// Package tool implements the capability subsystem that lets agents invoke
// named external functions with validated arguments, consistent error handling
// and backend-specific definition rendering for model function calling.
package tool

import (
	"context"
	"fmt"

	"github.com/agentrelay/agentrelay/internal/util"
)

// ParameterSpec describes one named tool parameter. The canonical internal
// representation is backend-agnostic; rendering into vendor calling
// conventions happens in definition.go.
type ParameterSpec struct {
	// Type is a JSON schema type name: string, integer, number, boolean,
	// object or array.
	Type string `json:"type"`
	// Description is shown to models to guide argument construction.
	Description string `json:"description,omitempty"`
	// Required marks the parameter as mandatory at call time.
	Required bool `json:"required,omitempty"`
}

// Tool is a named capability an agent can discover and call at runtime.
//
// Implementations must be immutable after registration and safe for
// concurrent use. Names should follow function naming conventions
// (snake_case recommended) and be unique within a registry.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	Description() string

	// Parameters returns the declared parameter specifications by name.
	Parameters() map[string]ParameterSpec

	// Call executes the tool with the supplied arguments. Arguments have
	// typically been decoded from JSON produced by a model backend.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ValidationError re-exports the argument validation failure type.
type ValidationError = util.ValidationError

// NotFoundError reports a dispatch against a tool name absent from the
// registry. The lookup has no side effect.
type NotFoundError struct {
	Tool string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found in registry", e.Tool)
}

// DuplicateError reports registration of a name that is already taken.
type DuplicateError struct {
	Tool string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Tool)
}

// ExecutionError wraps a failure raised by a tool's own function. The
// original cause is preserved for errors.As / errors.Is inspection.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %q execution failed: %v", e.Tool, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ExecutionError) Unwrap() error { return e.Err }
