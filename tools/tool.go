// Package tools exposes the leave ledger as named function calls that take
// simple JSON-like arguments and return human-readable text.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownTool is returned by Registry.Execute for an unregistered name.
var ErrUnknownTool = errors.New("unknown tool")

// ArgumentError reports a missing or mistyped argument.
type ArgumentError struct {
	Tool string
	Arg  string
	Msg  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: argument %q %s", e.Tool, e.Arg, e.Msg)
}

// Tool defines the interface that all tools must implement.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description for the caller.
	Description() string

	// Parameters returns the JSON schema for the tool's parameters.
	Parameters() map[string]any

	// Execute runs the tool with the given arguments and returns the result.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds all registered tools
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry
func (r *Registry) Register(tool Tool) {
	r.tools[tool.Name()] = tool
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// All returns all registered tools sorted by name
func (r *Registry) All() []Tool {
	result := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Execute runs the named tool.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return tool.Execute(ctx, args)
}

// =============================================================================
// ARGUMENT HELPERS
// =============================================================================

func stringArg(tool string, args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok {
		return "", &ArgumentError{Tool: tool, Arg: name, Msg: "is required"}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &ArgumentError{Tool: tool, Arg: name, Msg: "must be a string"}
	}
	return s, nil
}

// stringsArg accepts []string or the []any produced by encoding/json.
func stringsArg(tool string, args map[string]any, name string) ([]string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &ArgumentError{Tool: tool, Arg: name, Msg: "must contain only strings"}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, &ArgumentError{Tool: tool, Arg: name, Msg: "must be a list of strings"}
	}
}
