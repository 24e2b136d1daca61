package server

import (
	"github.com/gin-gonic/gin"

	"github.com/leofalp/promptenhancer/core/events"
)

// Error codes returned in synchronous JSON error bodies.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeConfiguration       = "CONFIGURATION_ERROR"
	CodeURLNotAllowed       = "URL_NOT_ALLOWED"
	CodeUpstreamFetchFailed = "UPSTREAM_FETCH_FAILED"
	CodeProviderUnavailable = events.CodeProviderUnavailable
	CodeProviderError       = events.CodeProviderError
	CodeNotFound            = "NOT_FOUND"
	CodeInternal            = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every synchronous error.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func abortWithError(c *gin.Context, status int, code, detail string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail, Code: code})
}
