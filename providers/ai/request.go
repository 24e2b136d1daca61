package ai

import (
	"context"

	"github.com/leofalp/promptenhancer/internal/jsonschema"
)

// Request is a single completion request. It is built once per inbound call
// and never mutated after it is handed to a driver.
type Request struct {
	Model        string       `json:"model"`
	Instructions string       `json:"instructions,omitempty"` // Fixed system instruction
	Input        string       `json:"input"`                  // User message
	Options      RunOptions   `json:"options"`
	Tools        []HostedTool `json:"tools,omitempty"`

	// Functions are offered to the model as callable tools. The provider
	// runs the calls the model makes and feeds the results back before the
	// final answer is streamed.
	Functions []FunctionTool `json:"-"`
}

// RunOptions are the per-run overrides forwarded to the model. Zero values
// mean "provider default".
type RunOptions struct {
	MaxOutputTokens  *int   `json:"max_output_tokens,omitempty"`
	ReasoningEffort  string `json:"reasoning_effort,omitempty"`  // none, minimal, low, medium, high, xhigh
	ReasoningSummary string `json:"reasoning_summary,omitempty"` // auto, concise, detailed
	TextVerbosity    string `json:"text_verbosity,omitempty"`    // low, medium, high
}

// HostedTool is a tool executed by the provider itself (e.g. web search).
type HostedTool struct {
	Type     string        `json:"type"`
	Location *UserLocation `json:"user_location,omitempty"`
}

// ToolDescription advertises a function tool to the model.
type ToolDescription struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// FunctionTool is a function the model may call. Call receives the model's
// JSON arguments and returns the JSON result sent back to it.
type FunctionTool interface {
	ToolInfo() ToolDescription
	Call(ctx context.Context, inputJSON string) (string, error)
}

// UserLocation narrows hosted web search results.
type UserLocation struct {
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
}

// Usage reports token accounting for a completed response.
type Usage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	TotalTokens     int `json:"total_tokens"`
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
}

// HasOptions reports whether any run option is set.
func (o RunOptions) HasOptions() bool {
	return o.MaxOutputTokens != nil || o.ReasoningEffort != "" || o.ReasoningSummary != "" || o.TextVerbosity != ""
}
