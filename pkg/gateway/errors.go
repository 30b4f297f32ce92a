package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/papercomputeco/promptsmith/pkg/llm"
)

var (
	// ErrRateLimited is an upstream 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrPaymentRequired is an upstream 402.
	ErrPaymentRequired = errors.New("payment required")

	// ErrInvalidRequest is an upstream 400.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUpstream is any other unsuccessful upstream status.
	ErrUpstream = errors.New("upstream error")
)

// StatusError is a non-2xx response from the gateway. It wraps one of the
// sentinels above and carries the user-facing texts for it.
type StatusError struct {
	StatusCode int
	Body       string

	// Message and Fallback are shown to the user.
	Message  string
	Fallback string

	err error
}

// NewStatusError classifies an unsuccessful response. When body is an error
// document from the promptsmith proxy its texts are kept.
func NewStatusError(status int, body []byte) *StatusError {
	e := &StatusError{StatusCode: status, Body: string(body)}

	switch status {
	case http.StatusTooManyRequests:
		e.err = ErrRateLimited
		e.Message = "Rate limits exceeded. Please try again in a few moments."
		e.Fallback = "Consider breaking down your request into smaller parts or waiting before retrying."
	case http.StatusPaymentRequired:
		e.err = ErrPaymentRequired
		e.Message = "Payment required. Please add credits to your AI gateway workspace."
		e.Fallback = "Visit your workspace settings to add credits and continue using AI features."
	case http.StatusBadRequest:
		e.err = ErrInvalidRequest
		e.Message = "Invalid request format. Please check your input and try again."
		e.Fallback = "Ensure your message is properly formatted and contains valid content."
	default:
		e.err = ErrUpstream
		e.Message = "AI service temporarily unavailable. Please try again."
		e.Fallback = "The service may be experiencing high load. Wait a moment and retry your request."
	}

	var doc llm.ErrorResponse
	if json.Unmarshal(body, &doc) == nil && doc.Error != "" {
		e.Message = doc.Error
		if doc.Fallback != "" {
			e.Fallback = doc.Fallback
		}
	}
	return e
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.err
}

// HTTPStatus is the status to report downstream: 429, 402 and 400 pass
// through, anything else becomes 500.
func (e *StatusError) HTTPStatus() int {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusPaymentRequired, http.StatusBadRequest:
		return e.StatusCode
	default:
		return http.StatusInternalServerError
	}
}

// Response is the JSON error document for e.
func (e *StatusError) Response() llm.ErrorResponse {
	resp := llm.ErrorResponse{Error: e.Message, Fallback: e.Fallback}
	if errors.Is(e.err, ErrUpstream) {
		if e.StatusCode >= http.StatusInternalServerError {
			resp.Details = "Server error"
		} else {
			resp.Details = "Request error"
		}
	}
	return resp
}
