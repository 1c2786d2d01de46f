package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/kaptinlin/jsonrepair"
)

// ErrUnknownTool is returned when a model requests a tool that is not part of the catalog
var ErrUnknownTool = errors.New("unknown tool")

// Tool represents a named, described callable a model may select and invoke
type Tool interface {
	// Spec returns the metadata used to advertise the tool to a model
	Spec() ToolSpec

	// Call invokes the tool with JSON-encoded arguments and returns its textual result
	Call(ctx context.Context, arguments string) (string, error)
}

// FuncTool binds a name and description to a strongly typed function.
// The parameter schema is derived from the input type I.
type FuncTool[I, O any] struct {
	name        string
	description string
	parameters  *Schema
	function    func(ctx context.Context, input I) (O, error)
}

var _ Tool = (*FuncTool[struct{}, string])(nil)

// NewTool creates a new tool calling function with the decoded arguments
func NewTool[I, O any](name, description string, function func(ctx context.Context, input I) (O, error)) *FuncTool[I, O] {
	return &FuncTool[I, O]{
		name:        name,
		description: description,
		parameters:  SchemaFor[I](),
		function:    function,
	}
}

// Spec returns the metadata used to advertise the tool to a model
func (tool *FuncTool[I, O]) Spec() ToolSpec {
	return ToolSpec{
		Name:        tool.name,
		Description: tool.description,
		Parameters:  tool.parameters,
	}
}

// Call decodes the arguments, calls the function and encodes its output.
// String outputs are returned verbatim, everything else as JSON.
func (tool *FuncTool[I, O]) Call(ctx context.Context, arguments string) (string, error) {
	input, err := ParseArguments[I](arguments)
	if err != nil {
		return "", fmt.Errorf("tool '%s': %w", tool.name, err)
	}

	output, err := tool.function(ctx, input)
	if err != nil {
		return "", err
	}

	if text, ok := any(output).(string); ok {
		return text, nil
	}
	encoded, err := json.Marshal(output)
	if err != nil {
		return "", fmt.Errorf("tool '%s': encoding output: %w", tool.name, err)
	}
	return string(encoded), nil
}

// ParseArguments decodes model supplied JSON arguments into T.
// Models regularly emit slightly malformed JSON; such input is repaired before giving up.
func ParseArguments[T any](arguments string) (T, error) {
	var target T
	if arguments == "" && reflect.TypeFor[T]().Kind() == reflect.Struct {
		return target, nil
	}

	err := json.Unmarshal([]byte(arguments), &target)
	if err == nil {
		return target, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(arguments)
	if repairErr != nil {
		return target, fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &target); err != nil {
		return target, fmt.Errorf("invalid arguments after repair: %w", err)
	}
	return target, nil
}

// Catalog holds the tools available to an agent, addressable by name
type Catalog struct {
	tools map[string]Tool
	specs []ToolSpec
}

// NewCatalog creates a new catalog; tool names have to be unique
func NewCatalog(tools ...Tool) (*Catalog, error) {
	catalog := &Catalog{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		spec := tool.Spec()
		if spec.Name == "" {
			return nil, errors.New("tool without a name")
		}
		if _, ok := catalog.tools[spec.Name]; ok {
			return nil, fmt.Errorf("duplicate tool '%s'", spec.Name)
		}
		catalog.tools[spec.Name] = tool
		catalog.specs = append(catalog.specs, spec)
	}
	return catalog, nil
}

// Specs returns the specs of all tools in registration order
func (catalog *Catalog) Specs() []ToolSpec {
	return catalog.specs
}

// Call dispatches a tool call to the matching tool
func (catalog *Catalog) Call(ctx context.Context, call ToolCall) (string, error) {
	tool, ok := catalog.tools[call.Name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}
	return tool.Call(ctx, call.Arguments)
}
