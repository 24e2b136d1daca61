package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/leofalp/promptenhancer/internal/jsonschema"
	"github.com/leofalp/promptenhancer/internal/utils"
	"github.com/leofalp/promptenhancer/providers/ai"
)

// Tool is a named, typed operation exposed by the service, such as prompt
// structure inspection or URL extraction. Use NewTool to construct one.
//
// A Tool satisfies ai.FunctionTool, so it can also be offered to the model:
// Parameters is derived from I and advertised through ToolInfo.
type Tool[I, O any] struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Function    func(ctx context.Context, input I) (O, error)
}

type funcToolOptions struct {
	Description string
}

// WithDescription sets a human-readable description for the tool.
func WithDescription(description string) func(tool *funcToolOptions) {
	return func(s *funcToolOptions) {
		s.Description = description
	}
}

// NewTool constructs a Tool with the given name and handler.
//
//	inspect := tool.NewTool("inspect_prompt_structure", inspectFunc,
//	    tool.WithDescription("Reports which core sections a prompt contains."),
//	)
func NewTool[I, O any](name string, function func(ctx context.Context, input I) (O, error), options ...func(tool *funcToolOptions)) *Tool[I, O] {
	toolOptions := &funcToolOptions{}
	for _, option := range options {
		option(toolOptions)
	}

	parameters, err := jsonschema.GenerateJSONSchema[I]()
	if err != nil {
		slog.Error("tool parameter schema", slog.String("tool", name), slog.String("error", err.Error()))
		parameters = &jsonschema.Schema{Type: "object"}
	}

	return &Tool[I, O]{
		Name:        name,
		Description: toolOptions.Description,
		Parameters:  parameters,
		Function:    function,
	}
}

// ToolInfo returns the description used to advertise the tool to a model.
func (t *Tool[I, O]) ToolInfo() ai.ToolDescription {
	return ai.ToolDescription{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Run executes the tool with a typed input and logs its duration.
func (t *Tool[I, O]) Run(ctx context.Context, input I) (O, error) {
	timer := utils.NewTimer()
	output, err := t.Function(ctx, input)
	timer.Stop()

	if err != nil {
		slog.DebugContext(ctx, "tool failed",
			slog.String("tool", t.Name),
			slog.Float64("duration_ms", timer.Milliseconds()),
			slog.String("error", err.Error()),
		)
		return output, err
	}
	slog.DebugContext(ctx, "tool completed",
		slog.String("tool", t.Name),
		slog.Float64("duration_ms", timer.Milliseconds()),
	)
	return output, nil
}

// Call decodes a JSON input (repairing it if needed), runs the tool and
// returns the JSON-encoded output.
func (t *Tool[I, O]) Call(ctx context.Context, inputJSON string) (string, error) {
	input, err := utils.DecodeLenient[I]([]byte(inputJSON))
	if err != nil {
		return "", fmt.Errorf("%s: invalid input: %w", t.Name, err)
	}

	output, err := t.Run(ctx, input)
	if err != nil {
		return "", err
	}

	encoded, err := json.Marshal(output)
	if err != nil {
		return "", fmt.Errorf("%s: encode output: %w", t.Name, err)
	}
	return string(encoded), nil
}
