package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/leofalp/promptenhancer/providers/ai"
)

// EnhanceInstructions is the fixed system instruction for prompt enhancement.
const EnhanceInstructions = `You are an expert prompt engineer. Your job is to take a structured prompt and enhance it to be more effective, clear, and optimized for large language models.

Rules:
- Keep the original intent perfectly intact
- Improve clarity, specificity, and structure
- Add helpful instructions the user may have missed
- Use clear section headers (Role, Task, Context, Format, Constraints)
- Be concise but thorough
- Return ONLY the enhanced prompt text, no explanations or meta-commentary
- Do not wrap in markdown code blocks
- Maintain a professional and direct tone
- Use available tools when useful to verify structure before finalizing`

// enhanceInputPrefix introduces the user's prompt in the model input.
const enhanceInputPrefix = "Please enhance this prompt:\n\n"

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

type enhanceRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// enhance validates the prompt, resolves the provider and streams the
// enhancement as SSE events. Once the stream has started every failure is
// reported in-band as a turn/error event.
func (s *Server) enhance(c *gin.Context) {
	var body enhanceRequest
	if !s.bindJSON(c, &body, "Prompt is required.") {
		return
	}

	prompt, ok := s.checkPrompt(c, body.Prompt)
	if !ok {
		return
	}

	provider, err := s.provider.Get(c.Request.Context())
	if err != nil {
		s.configurationError(c, err)
		return
	}

	request := s.baseRequest()
	request.Instructions = EnhanceInstructions
	request.Input = enhanceInputPrefix + prompt
	request.Tools = s.settings.Tools()
	request.Functions = []ai.FunctionTool{inspectTool}

	driver := s.newDriver(c, provider)
	writeEvents(c, s.translator.Translate(prompt, driver.Run(c.Request.Context(), request)), requestLogger(c, s.logger))
}

// bindJSON decodes the body into target. Missing required fields are
// reported with requiredDetail, oversized bodies with 413 and malformed
// JSON with a generic 400.
func (s *Server) bindJSON(c *gin.Context, target any, requiredDetail string) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	err := c.ShouldBindJSON(target)
	if err == nil {
		return true
	}

	var validationErrors validator.ValidationErrors
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &validationErrors):
		abortWithError(c, http.StatusBadRequest, CodeInvalidInput, requiredDetail)
	case errors.As(err, &maxBytesError):
		abortWithError(c, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body is too large.")
	default:
		abortWithError(c, http.StatusBadRequest, CodeInvalidInput, "Request body must be a JSON object.")
	}
	return false
}

// checkPrompt trims the prompt and enforces the non-empty and size rules.
// Size is counted in characters, not bytes.
func (s *Server) checkPrompt(c *gin.Context, raw string) (string, bool) {
	prompt := strings.TrimSpace(raw)
	if prompt == "" {
		abortWithError(c, http.StatusBadRequest, CodeInvalidInput, "Prompt is required.")
		return "", false
	}
	if utf8.RuneCountInString(prompt) > s.settings.MaxPromptChars {
		abortWithError(c, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
			fmt.Sprintf("Prompt is too large. Maximum %d characters.", s.settings.MaxPromptChars))
		return "", false
	}
	return prompt, true
}

func (s *Server) configurationError(c *gin.Context, err error) {
	requestLogger(c, s.logger).ErrorContext(c.Request.Context(), "provider configuration failed",
		slog.String("error", err.Error()),
	)
	abortWithError(c, http.StatusInternalServerError, CodeConfiguration, err.Error())
}
