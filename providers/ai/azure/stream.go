package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"

	"github.com/leofalp/promptenhancer/internal/utils"
	"github.com/leofalp/promptenhancer/providers/ai"
)

// Responses API streaming event types.
const (
	eventTextDelta      = "response.output_text.delta"
	eventOutputItemDone = "response.output_item.done"
	eventCompleted      = "response.completed"
	eventIncomplete     = "response.incomplete"
	eventFailed         = "response.failed"
	eventError          = "error"
)

// maxFunctionRounds bounds the function-call round trips of one stream. The
// last follow-up call sets tool_choice "none" so the model has to answer.
const maxFunctionRounds = 4

type functionCall struct {
	CallID    string
	Name      string
	Arguments string
}

// roundResult is what one streamed Responses call ended with.
type roundResult struct {
	responseID string
	calls      []functionCall
	usage      *ai.Usage
	completed  bool
	stopped    bool // the consumer stopped iterating
	err        error
}

// streamRounds yields the text of the first response and, while the model
// calls functions, runs them and streams the follow-up responses. Only text
// deltas and one final chunk carrying the summed usage are yielded.
// Lifecycle and function-call events are consumed silently, so the first
// yielded chunk is the first piece of real output.
func (c *Client) streamRounds(ctx context.Context, functions []ai.FunctionTool, body responsesRequest, httpResponse *http.Response) iter.Seq2[ai.Chunk, error] {
	return func(yield func(ai.Chunk, error) bool) {
		var usage *ai.Usage

		for round := 1; ; round++ {
			result := readRound(ctx, httpResponse, yield)
			if result.stopped {
				return
			}
			if result.err != nil {
				yield(ai.Chunk{}, result.err)
				return
			}
			usage = addUsage(usage, result.usage)

			if len(result.calls) == 0 {
				if result.completed {
					yield(ai.Chunk{EventType: eventCompleted, ResponseID: result.responseID, Usage: usage}, nil)
				}
				return
			}
			if round > maxFunctionRounds {
				yield(ai.Chunk{}, fmt.Errorf("azure openai: model still calling functions after %d rounds", maxFunctionRounds))
				return
			}

			body.Input = runFunctions(ctx, functions, result.calls)
			body.PreviousResponseID = result.responseID
			if round == maxFunctionRounds {
				body.ToolChoice = "none"
			}

			slog.DebugContext(ctx, "azure openai function round",
				slog.Int("round", round),
				slog.Int("calls", len(result.calls)),
				slog.String("previous_response_id", result.responseID),
			)

			next, err := c.post(ctx, body)
			if err != nil {
				yield(ai.Chunk{}, err)
				return
			}
			httpResponse = next
		}
	}
}

// readRound reads one SSE response to its end, yielding text deltas as they
// arrive. The body is always closed.
func readRound(ctx context.Context, httpResponse *http.Response, yield func(ai.Chunk, error) bool) roundResult {
	defer utils.CloseWithLog(httpResponse.Body)

	scanner := utils.NewSSEScanner(httpResponse.Body)
	var result roundResult

	for {
		if err := ctx.Err(); err != nil {
			result.err = err
			return result
		}

		sse, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			return result
		}
		if err != nil {
			result.err = fmt.Errorf("SSE read error: %w", err)
			return result
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(sse.Data), &event); err != nil {
			result.err = fmt.Errorf("failed to parse stream event: %w", err)
			return result
		}
		if event.Type == "" {
			event.Type = sse.Event
		}
		if event.Response != nil && event.Response.ID != "" {
			result.responseID = event.Response.ID
		}

		switch event.Type {
		case eventTextDelta:
			if event.Delta == "" {
				continue
			}
			chunk := ai.Chunk{Text: event.Delta, EventType: event.Type, ResponseID: result.responseID}
			if !yield(chunk, nil) {
				result.stopped = true
				return result
			}

		case eventOutputItemDone:
			if event.Item != nil && event.Item.Type == itemFunctionCall {
				result.calls = append(result.calls, functionCall{
					CallID:    event.Item.CallID,
					Name:      event.Item.Name,
					Arguments: event.Item.Arguments,
				})
			}

		case eventCompleted:
			result.completed = true
			if event.Response != nil {
				result.usage = event.Response.Usage.toGeneric()
			}
			return result

		case eventIncomplete:
			reason := ""
			if event.Response != nil && event.Response.IncompleteDetails != nil {
				reason = event.Response.IncompleteDetails.Reason
			}
			slog.WarnContext(ctx, "azure openai response incomplete",
				slog.String("response_id", result.responseID),
				slog.String("reason", reason),
			)
			result.calls = nil
			return result

		case eventFailed:
			body := errorBody{}
			if event.Response != nil && event.Response.Error != nil {
				body = *event.Response.Error
			}
			result.err = streamError(eventFailed, body)
			return result

		case eventError:
			result.err = streamError(eventError, errorBody{Code: event.Code, Message: event.Message})
			return result
		}
		// response.created, response.in_progress, reasoning and the other
		// output_item events carry no output text.
	}
}

// runFunctions runs each call against the function of the same name. A
// failed or unknown call is reported to the model as {"error": "..."}.
func runFunctions(ctx context.Context, functions []ai.FunctionTool, calls []functionCall) []inputItem {
	outputs := make([]inputItem, 0, len(calls))
	for _, call := range calls {
		outputs = append(outputs, inputItem{
			Type:   itemFunctionOutput,
			CallID: call.CallID,
			Output: callFunction(ctx, functions, call),
		})
	}
	return outputs
}

func callFunction(ctx context.Context, functions []ai.FunctionTool, call functionCall) string {
	for _, function := range functions {
		if function.ToolInfo().Name != call.Name {
			continue
		}
		output, err := function.Call(ctx, call.Arguments)
		if err != nil {
			slog.WarnContext(ctx, "function call failed",
				slog.String("function", call.Name),
				slog.String("error", err.Error()),
			)
			return errorOutput(err)
		}
		return output
	}

	slog.WarnContext(ctx, "model called an unknown function", slog.String("function", call.Name))
	return errorOutput(fmt.Errorf("unknown function %q", call.Name))
}

func errorOutput(err error) string {
	encoded, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(encoded)
}
