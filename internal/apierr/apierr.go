// Package apierr provides standardized error responses for the SDL
// validation service API.
package apierr

import (
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized API error code.
type ErrorCode string

const (
	// Request errors
	SDL_BAD_REQUEST  ErrorCode = "SDL_BAD_REQUEST"  // Malformed request
	SDL_DUMP_INVALID ErrorCode = "SDL_DUMP_INVALID" // Document dump cannot be decoded

	// Authentication errors
	SDL_AUTHN         ErrorCode = "SDL_AUTHN"         // Authentication failed
	SDL_JWT_INVALID   ErrorCode = "SDL_JWT_INVALID"   // Invalid JWT
	SDL_JWT_EXPIRED   ErrorCode = "SDL_JWT_EXPIRED"   // Expired JWT
	SDL_JWT_MALFORMED ErrorCode = "SDL_JWT_MALFORMED" // Malformed JWT

	// Resource errors
	SDL_NOT_FOUND ErrorCode = "SDL_NOT_FOUND" // Resource not found
	SDL_CONFLICT  ErrorCode = "SDL_CONFLICT"  // Resource conflict

	// Server errors
	SDL_INTERNAL    ErrorCode = "SDL_INTERNAL"    // Internal server error
	SDL_UNAVAILABLE ErrorCode = "SDL_UNAVAILABLE" // Service unavailable
)

// Error represents a standardized error response.
type Error struct {
	Code          ErrorCode `json:"code"`
	Message       string    `json:"message"`
	CorrelationID string    `json:"correlationId"`
	Details       any       `json:"details,omitempty"`
	HTTPStatus    int       `json:"-"`
}

// New creates a new Error with the specified code and message.
func New(code ErrorCode, message string, correlationID string) *Error {
	return &Error{
		Code:          code,
		Message:       message,
		CorrelationID: correlationID,
		HTTPStatus:    httpStatusCodeForCode(code),
	}
}

// NewWithDetails creates a new Error carrying structured details.
func NewWithDetails(code ErrorCode, message string, correlationID string, details any) *Error {
	e := New(code, message, correlationID)
	e.Details = details
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// httpStatusCodeForCode maps error codes to HTTP status codes.
func httpStatusCodeForCode(code ErrorCode) int {
	switch code {
	case SDL_BAD_REQUEST, SDL_DUMP_INVALID:
		return http.StatusBadRequest
	case SDL_AUTHN, SDL_JWT_INVALID, SDL_JWT_EXPIRED, SDL_JWT_MALFORMED:
		return http.StatusUnauthorized
	case SDL_NOT_FOUND:
		return http.StatusNotFound
	case SDL_CONFLICT:
		return http.StatusConflict
	case SDL_UNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
