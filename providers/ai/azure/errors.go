package azure

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/leofalp/promptenhancer/internal/utils"
)

// APIError is an error reported by the Azure OpenAI service, either as a
// non-2xx response or as an error event inside the stream. StatusCode is 0
// for in-stream errors that carry no status.
type APIError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
	Header     http.Header
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("azure openai")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, ": %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// HTTPStatus returns the response status, if any.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// ErrorCode returns the service error code, e.g. "rate_limit_exceeded".
func (e *APIError) ErrorCode() string { return e.Code }

// ResponseHeader returns the response headers, including Retry-After.
func (e *APIError) ResponseHeader() http.Header { return e.Header }

// newAPIError decodes the {"error": {...}} envelope of a failed response.
// Truncated or slightly malformed bodies are repaired; an undecodable body
// becomes the message as-is.
func newAPIError(statusErr *utils.HTTPStatusError) *APIError {
	apiErr := &APIError{
		StatusCode: statusErr.StatusCode,
		Header:     statusErr.Header,
	}

	body := strings.TrimSpace(string(statusErr.Body))
	if body == "" {
		apiErr.Message = http.StatusText(statusErr.StatusCode)
		return apiErr
	}

	envelope, err := utils.DecodeLenient[errorEnvelope]([]byte(body))
	if err != nil || envelope.Error == nil {
		apiErr.Message = utils.TruncateString(body, utils.DefaultMaxStringLength)
		return apiErr
	}
	apiErr.Code = string(envelope.Error.Code)
	apiErr.Type = envelope.Error.Type
	apiErr.Message = envelope.Error.Message
	return apiErr
}

// streamError converts an in-stream failure. Codes that denote throttling
// are given status 429 so they classify like a 429 response.
func streamError(errType string, body errorBody) *APIError {
	apiErr := &APIError{
		Code:    string(body.Code),
		Type:    errType,
		Message: body.Message,
	}
	code := strings.ToLower(apiErr.Code)
	if isNumericCode(code, http.StatusTooManyRequests) || code == "too_many_requests" {
		apiErr.StatusCode = http.StatusTooManyRequests
	}
	if apiErr.Message == "" {
		apiErr.Message = "stream failed"
	}
	return apiErr
}
