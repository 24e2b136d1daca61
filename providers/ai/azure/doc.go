// Package azure implements ai.StreamProvider for the Azure OpenAI Responses
// API (POST {base}/responses with stream=true).
//
// Authentication uses, in order of preference, an API key ("api-key"
// header), a static Microsoft Entra token, or a token credential from
// azidentity (the Azure CLI login by default). Non-2xx answers and in-stream
// failures are reported as *APIError, whose HTTPStatus, ErrorCode and
// ResponseHeader methods let the retry classifier recognise throttling and
// read Retry-After.
package azure
