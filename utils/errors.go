package utils

import (
	"fmt"
	"net/http"
)

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

var (
	ErrInvalidRequest       = NewAPIError(http.StatusBadRequest, "Invalid request")
	ErrSubscriptionNotFound = NewAPIError(http.StatusNotFound, "Subscription not found")
	ErrPlanNotFound         = NewAPIError(http.StatusNotFound, "Plan not found")
)

// ConfigError marks a request that cannot proceed without an operator fix,
// such as missing provider credentials. It is raised before any network call.
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Missing)
}

// AuthError is a rejected provider token exchange. The provider's status
// code is kept for the operator; the webhook caller sees a 500 so the
// delivery is retried.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("provider token exchange failed: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("provider token exchange failed: status %d", e.StatusCode)
}
