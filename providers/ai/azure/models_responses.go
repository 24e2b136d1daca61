package azure

import (
	"encoding/json"
	"strconv"

	"github.com/leofalp/promptenhancer/internal/jsonschema"
	"github.com/leofalp/promptenhancer/providers/ai"
)

const (
	toolTypeFunction   = "function"
	itemFunctionCall   = "function_call"
	itemFunctionOutput = "function_call_output"
)

// responsesRequest is the body of POST /openai/v1/responses.
type responsesRequest struct {
	Model              string           `json:"model"`
	Instructions       string           `json:"instructions,omitempty"`
	Input              any              `json:"input"` // string, or []inputItem on follow-up calls
	PreviousResponseID string           `json:"previous_response_id,omitempty"`
	Stream             bool             `json:"stream"`
	MaxOutputTokens    *int             `json:"max_output_tokens,omitempty"`
	Reasoning          *reasoningConfig `json:"reasoning,omitempty"`
	Text               *textConfig      `json:"text,omitempty"`
	Tools              []responseTool   `json:"tools,omitempty"`
	ToolChoice         string           `json:"tool_choice,omitempty"` // auto, none, required
}

// inputItem is a function_call_output sent back to the model.
type inputItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

type reasoningConfig struct {
	Effort  string `json:"effort,omitempty"`  // none, minimal, low, medium, high, xhigh
	Summary string `json:"summary,omitempty"` // auto, concise, detailed
}

type textConfig struct {
	Verbosity string `json:"verbosity,omitempty"` // low, medium, high
}

// responseTool is a hosted tool (web_search) or a function tool.
type responseTool struct {
	Type         string             `json:"type"`
	UserLocation *userLocation      `json:"user_location,omitempty"`
	Name         string             `json:"name,omitempty"`
	Description  string             `json:"description,omitempty"`
	Parameters   *jsonschema.Schema `json:"parameters,omitempty"`
}

type userLocation struct {
	Type    string `json:"type"` // always "approximate"
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
}

func requestFromGeneric(request ai.Request, deployment string) responsesRequest {
	model := request.Model
	if model == "" {
		model = deployment
	}

	body := responsesRequest{
		Model:           model,
		Instructions:    request.Instructions,
		Input:           request.Input,
		Stream:          true,
		MaxOutputTokens: request.Options.MaxOutputTokens,
	}
	if request.Options.ReasoningEffort != "" || request.Options.ReasoningSummary != "" {
		body.Reasoning = &reasoningConfig{
			Effort:  request.Options.ReasoningEffort,
			Summary: request.Options.ReasoningSummary,
		}
	}
	if request.Options.TextVerbosity != "" {
		body.Text = &textConfig{Verbosity: request.Options.TextVerbosity}
	}

	for _, tool := range request.Tools {
		wire := responseTool{Type: tool.Type}
		if tool.Location != nil {
			wire.UserLocation = &userLocation{
				Type:    "approximate",
				City:    tool.Location.City,
				Country: tool.Location.Country,
				Region:  tool.Location.Region,
			}
		}
		body.Tools = append(body.Tools, wire)
	}
	for _, function := range request.Functions {
		info := function.ToolInfo()
		body.Tools = append(body.Tools, responseTool{
			Type:        toolTypeFunction,
			Name:        info.Name,
			Description: info.Description,
			Parameters:  info.Parameters,
		})
	}
	return body
}

// streamEvent is one SSE payload of a streaming Responses call. Only the
// fields the client reads are declared.
type streamEvent struct {
	Type     string          `json:"type"`
	Delta    string          `json:"delta"`
	Response *responseObject `json:"response"`
	Item     *outputItem     `json:"item"` // response.output_item.*

	// Set on "error" events.
	Code    flexString `json:"code"`
	Message string     `json:"message"`
}

type responseObject struct {
	ID                string             `json:"id"`
	Status            string             `json:"status"`
	Usage             *responseUsage     `json:"usage"`
	Error             *errorBody         `json:"error"`
	IncompleteDetails *incompleteDetails `json:"incomplete_details"`
}

type outputItem struct {
	Type      string `json:"type"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type responseUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	TotalTokens         int `json:"total_tokens"`
	OutputTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details"`
}

type incompleteDetails struct {
	Reason string `json:"reason"`
}

// errorBody is the "error" member of an error envelope or failed response.
type errorBody struct {
	Message string     `json:"message"`
	Type    string     `json:"type"`
	Code    flexString `json:"code"`
}

type errorEnvelope struct {
	Error *errorBody `json:"error"`
}

// flexString accepts a JSON string, number or null. Azure sends error codes
// as either "429" or 429 depending on the gateway.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*f = flexString(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	*f = flexString(number.String())
	return nil
}

func (u *responseUsage) toGeneric() *ai.Usage {
	if u == nil {
		return nil
	}
	usage := &ai.Usage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.TotalTokens,
	}
	if u.OutputTokensDetails != nil {
		usage.ReasoningTokens = u.OutputTokensDetails.ReasoningTokens
	}
	return usage
}

// addUsage sums token accounting across the rounds of one stream.
func addUsage(total, round *ai.Usage) *ai.Usage {
	if round == nil {
		return total
	}
	if total == nil {
		sum := *round
		return &sum
	}
	return &ai.Usage{
		InputTokens:     total.InputTokens + round.InputTokens,
		OutputTokens:    total.OutputTokens + round.OutputTokens,
		TotalTokens:     total.TotalTokens + round.TotalTokens,
		ReasoningTokens: total.ReasoningTokens + round.ReasoningTokens,
	}
}

func isNumericCode(code string, want int) bool {
	n, err := strconv.Atoi(code)
	return err == nil && n == want
}
