package utils

import "github.com/gofiber/fiber/v2"

// APIError represents a structured API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string, status int) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// Common API Errors
var (
	ErrInternalServer  = NewAPIError("internal_server_error", "An unexpected error occurred", fiber.StatusInternalServerError)
	ErrBadRequest      = NewAPIError("invalid_body", "Invalid request", fiber.StatusBadRequest)
	ErrValidation      = NewAPIError("validation_failed", "Validation failed", fiber.StatusBadRequest)
	ErrUnauthorized    = NewAPIError("unauthorized", "Authentication required", fiber.StatusUnauthorized)
	ErrForbidden       = NewAPIError("forbidden", "You do not have permission to access this resource", fiber.StatusForbidden)
	ErrNotFound        = NewAPIError("not_found", "Resource not found", fiber.StatusNotFound)
	ErrTooManyRequests = NewAPIError("too_many_requests", "Too many requests, please try again later.", fiber.StatusTooManyRequests)
)
