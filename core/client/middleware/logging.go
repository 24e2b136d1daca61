package middleware

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/leofalp/promptenhancer/core/client"
	"github.com/leofalp/promptenhancer/internal/utils"
	"github.com/leofalp/promptenhancer/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits per call.
type LogLevel int

const (
	// LogLevelMinimal logs the model, duration and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds the prompt size, hosted tool count, chunk count
	// and response id. This is the default used by the server.
	LogLevelStandard

	// LogLevelVerbose adds the prompt and the response text, each truncated
	// to 500 characters.
	//
	// WARNING: do not use LogLevelVerbose in production. It logs raw user
	// prompts and model output.
	LogLevelVerbose
)

const truncateLen = 500

// NewLoggingMiddleware logs every physical streaming call: a DEBUG entry
// when it opens, a WARN entry if it fails before or during streaming, and
// an INFO entry with usage once the stream ends. Each retry attempt is a
// separate call and is logged separately.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) client.StreamMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next client.StreamFunc) client.StreamFunc {
		return func(ctx context.Context, request ai.Request) (*ai.ChunkStream, error) {
			logger.DebugContext(ctx, "llm stream", buildRequestAttrs(request, level)...)

			start := time.Now()
			stream, err := next(ctx, request)
			if err != nil {
				logger.WarnContext(ctx, "llm stream failed",
					slog.String("model", request.Model),
					slog.Duration("duration", time.Since(start)),
					slog.String("error", err.Error()),
				)
				return nil, err
			}
			if stream == nil {
				return nil, nil
			}
			return wrapStreamWithLogging(ctx, stream, logger, request.Model, level, start), nil
		}
	}
}

// wrapStreamWithLogging logs the outcome of stream once its iterator returns.
func wrapStreamWithLogging(
	ctx context.Context,
	stream *ai.ChunkStream,
	logger *slog.Logger,
	model string,
	level LogLevel,
	start time.Time,
) *ai.ChunkStream {
	return ai.NewChunkStream(func(yield func(ai.Chunk, error) bool) {
		var (
			usage      *ai.Usage
			responseID string
			chunks     int
			text       []byte
		)

		for chunk, err := range stream.Iter() {
			if err != nil {
				logger.WarnContext(ctx, "llm stream failed",
					slog.String("model", model),
					slog.Duration("duration", time.Since(start)),
					slog.Int("chunks", chunks),
					slog.String("error", err.Error()),
				)
				yield(chunk, err)
				return
			}

			if chunk.Usage != nil {
				usage = chunk.Usage
			}
			if chunk.ResponseID != "" {
				responseID = chunk.ResponseID
			}
			if chunk.Text != "" {
				chunks++
				if level >= LogLevelVerbose && len(text) < truncateLen*utf8.UTFMax {
					text = append(text, chunk.Text...)
				}
			}

			if !yield(chunk, nil) {
				logger.InfoContext(ctx, "llm stream abandoned",
					slog.String("model", model),
					slog.Duration("duration", time.Since(start)),
					slog.Int("chunks", chunks),
				)
				return
			}
		}

		attrs := []any{
			slog.String("model", model),
			slog.Duration("duration", time.Since(start)),
		}
		if usage != nil {
			attrs = append(attrs,
				slog.Int("input_tokens", usage.InputTokens),
				slog.Int("output_tokens", usage.OutputTokens),
				slog.Int("total_tokens", usage.TotalTokens),
			)
			if usage.ReasoningTokens > 0 {
				attrs = append(attrs, slog.Int("reasoning_tokens", usage.ReasoningTokens))
			}
		}
		if level >= LogLevelStandard {
			attrs = append(attrs, slog.Int("chunks", chunks))
			if responseID != "" {
				attrs = append(attrs, slog.String("response_id", responseID))
			}
		}
		if level >= LogLevelVerbose {
			attrs = append(attrs, slog.String("response_content", utils.TruncateString(string(text), truncateLen)))
		}

		logger.InfoContext(ctx, "llm stream completed", attrs...)
	})
}

// buildRequestAttrs returns the attributes logged when a call opens.
func buildRequestAttrs(request ai.Request, level LogLevel) []any {
	attrs := []any{slog.String("model", request.Model)}

	if level >= LogLevelStandard {
		attrs = append(attrs,
			slog.Int("input_chars", utf8.RuneCountInString(request.Input)),
			slog.Int("tools", len(request.Tools)),
		)
		if request.Options.ReasoningEffort != "" {
			attrs = append(attrs, slog.String("reasoning_effort", request.Options.ReasoningEffort))
		}
	}
	if level >= LogLevelVerbose {
		attrs = append(attrs, slog.String("input", utils.TruncateString(request.Input, truncateLen)))
	}
	return attrs
}
