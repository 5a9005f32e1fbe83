package tool

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/agentrelay/agentrelay/internal/util"
)

// FunctionTool is a generic adapter exposing a plain Go function as a Tool.
//
// It holds the declared parameter specifications, validates supplied
// arguments against them before execution, and normalizes failures so callers
// always receive an *ExecutionError wrapping the original cause. A
// FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]ParameterSpec
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit parameter
// specification and implementation.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]tool.ParameterSpec{
//	    "a": {Type: "number", Description: "First addend", Required: true},
//	    "b": {Type: "number", Description: "Second addend", Required: true},
//	  },
//	  func(_ context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]ParameterSpec,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter specification from a struct
// type using reflection. Exported fields become parameters named after their
// json tag; fields without omitempty and non-pointer type are required.
// `description` struct tags populate parameter descriptions.
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, SpecFromStruct(structType), fn)
}

// SpecFromStruct reflects a struct type into a parameter specification map.
func SpecFromStruct(structType any) map[string]ParameterSpec {
	t := reflect.TypeOf(structType)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	specs := make(map[string]ParameterSpec)
	if t.Kind() != reflect.Struct {
		return specs
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name := field.Name
		if jsonTag != "" {
			if base := strings.Split(jsonTag, ",")[0]; base != "" {
				name = base
			}
		}
		specs[name] = ParameterSpec{
			Type:        util.JSONType(field.Type),
			Description: field.Tag.Get("description"),
			Required:    !util.HasOmitEmpty(jsonTag) && field.Type.Kind() != reflect.Ptr,
		}
	}
	return specs
}

// Name returns the unique tool name used in function call declarations.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns a copy of the declared parameter specifications.
func (t *FunctionTool) Parameters() map[string]ParameterSpec {
	out := make(map[string]ParameterSpec, len(t.parameters))
	for k, v := range t.parameters {
		out[k] = v
	}
	return out
}

// Call validates args against the declared specification then invokes the
// wrapped function. Validation failures and function errors both surface as
// *ExecutionError; the validation cause remains reachable via errors.As.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if err := ValidateArgs(args, t.parameters); err != nil {
		return nil, &ExecutionError{Tool: t.name, Err: err}
	}
	result, err := t.fn(ctx, args)
	if err != nil {
		return nil, &ExecutionError{Tool: t.name, Err: err}
	}
	return result, nil
}

// ValidateArgs checks supplied arguments against a parameter specification:
// required parameters must be present and every supplied value must match its
// declared type. Extra arguments without a specification pass through.
func ValidateArgs(args map[string]any, params map[string]ParameterSpec) error {
	for name, spec := range params {
		if !spec.Required {
			continue
		}
		if _, ok := args[name]; !ok {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
	}
	for name, value := range args {
		spec, ok := params[name]
		if !ok {
			continue
		}
		if !util.CheckType(value, spec.Type) {
			return &ValidationError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %T", spec.Type, value),
			}
		}
	}
	return nil
}
