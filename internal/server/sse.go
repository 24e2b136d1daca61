package server

import (
	"iter"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leofalp/promptenhancer/core/events"
)

// writeEvents streams events as SSE frames, flushing after each one. It
// stops when the client goes away or a write fails; leaving the range loop
// stops the producer and any retry it has pending.
func writeEvents(c *gin.Context, stream iter.Seq[events.Event], logger *slog.Logger) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	ctx := c.Request.Context()
	for event := range stream {
		if ctx.Err() != nil {
			logger.DebugContext(ctx, "client disconnected; stream stopped")
			return
		}
		if event.Type == events.TypeTurnError {
			logger.ErrorContext(ctx, "enhancement stream failed",
				slog.String("turn_id", event.TurnID),
				slog.String("code", event.Code),
				slog.String("error", event.Error),
			)
		}

		frame, err := events.Encode(event)
		if err != nil {
			logger.ErrorContext(ctx, "failed to encode event", slog.String("error", err.Error()))
			return
		}
		if _, err := c.Writer.Write(frame); err != nil {
			logger.DebugContext(ctx, "stream write failed", slog.String("error", err.Error()))
			return
		}
		c.Writer.Flush()
	}
}
