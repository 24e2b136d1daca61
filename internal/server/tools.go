package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leofalp/promptenhancer/core/retry"
	"github.com/leofalp/promptenhancer/providers/tool/structure"
	"github.com/leofalp/promptenhancer/providers/tool/webfetch"
)

var inspectTool = structure.NewInspectTool()

// inspect reports which core sections a prompt draft contains.
func (s *Server) inspect(c *gin.Context) {
	var input structure.Input
	if !s.bindJSON(c, &input, "Prompt is required.") {
		return
	}
	prompt, ok := s.checkPrompt(c, input.Prompt)
	if !ok {
		return
	}

	report, err := inspectTool.Run(c.Request.Context(), structure.Input{Prompt: prompt})
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

// extractURL fetches a page and returns its title with model-extracted key
// points. Unlike /enhance the model output is collected, not streamed.
func (s *Server) extractURL(c *gin.Context) {
	var input webfetch.Input
	if !s.bindJSON(c, &input, "URL is required.") {
		return
	}

	provider, err := s.provider.Get(c.Request.Context())
	if err != nil {
		s.configurationError(c, err)
		return
	}

	extractor := webfetch.NewExtractor(s.fetcher, s.newDriver(c, provider), s.baseRequest(),
		webfetch.WithCache(s.extractCache))
	output, err := webfetch.NewExtractTool(extractor).Run(c.Request.Context(), input)
	if err != nil {
		s.extractError(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func (s *Server) extractError(c *gin.Context, err error) {
	logger := requestLogger(c, s.logger)
	switch {
	case errors.Is(err, context.Canceled):
		c.Abort()
	case errors.Is(err, webfetch.ErrInvalidURL):
		abortWithError(c, http.StatusBadRequest, CodeInvalidInput, err.Error())
	case errors.Is(err, webfetch.ErrURLNotAllowed):
		abortWithError(c, http.StatusUnprocessableEntity, CodeURLNotAllowed, "URL is not allowed.")
	case errors.Is(err, webfetch.ErrFetchFailed), errors.Is(err, webfetch.ErrTooLittleContent):
		abortWithError(c, http.StatusUnprocessableEntity, CodeUpstreamFetchFailed, err.Error())
	case errors.Is(err, retry.ErrProviderUnavailable):
		logger.WarnContext(c.Request.Context(), "extraction rate limited", slog.String("error", err.Error()))
		abortWithError(c, http.StatusTooManyRequests, CodeProviderUnavailable, "The model is rate limited. Please try again shortly.")
	default:
		logger.ErrorContext(c.Request.Context(), "extraction failed", slog.String("error", err.Error()))
		abortWithError(c, http.StatusBadGateway, CodeProviderError, "Failed to extract content from the page.")
	}
}
