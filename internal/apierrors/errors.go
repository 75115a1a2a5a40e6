// Package errors provides standardized error handling for the agent
// platform's HTTP surfaces.
//
// It implements a consistent error format across all endpoints:
//   - Structured error responses with error codes
//   - Automatic HTTP status code mapping
//   - Optional error details for debugging
//   - Machine-readable error codes for client error handling
//
// Usage patterns:
//
//	return errors.AgentNotFound(agentID)
//	return errors.QuotaExceeded(userID, limit)
//	return errors.Wrap(errors.ErrCodeStoreBackend, "list agents", err)
package errors

import (
	"fmt"
	"net/http"
)

// AppError represents a standardized application error with HTTP context.
type AppError struct {
	// Code is a machine-readable error identifier, UPPER_SNAKE_CASE.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Details provides additional context for debugging (optional).
	Details string `json:"details,omitempty"`

	// StatusCode is the HTTP status code to return. Not serialized.
	StatusCode int `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorResponse is the JSON error response shape sent to clients.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error codes, mapped to this platform's domain taxonomy rather than a
// generic REST error set.
const (
	ErrCodeAgentNotFound         = "AGENT_NOT_FOUND"
	ErrCodeSessionNotFound       = "SESSION_NOT_FOUND"
	ErrCodeQuotaExceeded         = "QUOTA_EXCEEDED"
	ErrCodeNotOwner              = "NOT_OWNER"
	ErrCodeInvalidState          = "INVALID_STATE"
	ErrCodeAgentNotRunnable      = "AGENT_NOT_RUNNABLE"
	ErrCodeSessionAlreadyActive  = "SESSION_ALREADY_ACTIVE"
	ErrCodeAgentUnavailable      = "AGENT_UNAVAILABLE"
	ErrCodeStoreBackend          = "STORE_BACKEND_ERROR"
	ErrCodeSchedulerBackend      = "SCHEDULER_BACKEND_ERROR"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeMfaRequired           = "MFA_REQUIRED"
	ErrCodeIdentityFrozen        = "IDENTITY_FROZEN"
	ErrCodeBadRequest            = "BAD_REQUEST"
	ErrCodeRateLimited           = "RATE_LIMITED"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// New creates a new AppError with the status code implied by code.
func New(code string, message string) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusForCode(code)}
}

// NewWithDetails creates a new AppError carrying debugging details.
func NewWithDetails(code string, message string, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details, StatusCode: statusForCode(code)}
}

// Wrap wraps an existing error as an AppError's details.
func Wrap(code string, message string, err error) *AppError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewWithDetails(code, message, details)
}

func statusForCode(code string) int {
	switch code {
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeNotOwner, ErrCodeIdentityFrozen, ErrCodeMfaRequired:
		return http.StatusForbidden
	case ErrCodeAgentNotFound, ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidState, ErrCodeAgentNotRunnable, ErrCodeSessionAlreadyActive, ErrCodeQuotaExceeded:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeAgentUnavailable, ErrCodeSchedulerBackend:
		return http.StatusServiceUnavailable
	case ErrCodeStoreBackend, ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ToResponse converts an AppError to its wire representation.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Code, Message: e.Message, Code: e.Code, Details: e.Details}
}

// Common error constructors.

func AgentNotFound(agentID string) *AppError {
	return New(ErrCodeAgentNotFound, fmt.Sprintf("agent not found: %s", agentID))
}

func SessionNotFound(sessionID string) *AppError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("session not found: %s", sessionID))
}

func QuotaExceeded(userID string, limit uint32) *AppError {
	return New(ErrCodeQuotaExceeded, fmt.Sprintf("agent quota exceeded for user %s: limit is %d", userID, limit))
}

func NotOwner(userID, agentID string) *AppError {
	return New(ErrCodeNotOwner, fmt.Sprintf("user %s is not the owner of agent %s", userID, agentID))
}

func InvalidState(agentID, from, to string) *AppError {
	return New(ErrCodeInvalidState, fmt.Sprintf("invalid state transition for agent %s: cannot go from %s to %s", agentID, from, to))
}

func AgentNotRunnable(agentID string) *AppError {
	return New(ErrCodeAgentNotRunnable, fmt.Sprintf("agent %s is not in a runnable state", agentID))
}

func SessionAlreadyActive(agentID string) *AppError {
	return New(ErrCodeSessionAlreadyActive, fmt.Sprintf("agent %s already has an active session", agentID))
}

func AgentUnavailable(agentID string) *AppError {
	return New(ErrCodeAgentUnavailable, fmt.Sprintf("agent %s has no reachable endpoint", agentID))
}

func StoreBackend(err error) *AppError {
	return Wrap(ErrCodeStoreBackend, "store operation failed", err)
}

func SchedulerBackend(err error) *AppError {
	return Wrap(ErrCodeSchedulerBackend, "scheduler operation failed", err)
}

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func MfaRequired() *AppError {
	return New(ErrCodeMfaRequired, "multi-factor authentication is required for this operation")
}

func IdentityFrozen() *AppError {
	return New(ErrCodeIdentityFrozen, "identity is frozen")
}

func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message)
}

func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "too many requests")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}
