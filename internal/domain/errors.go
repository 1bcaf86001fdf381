package domain

import (
	"errors"
	"fmt"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Field     string    `json:"field,omitempty"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodePlanNotFound   = "PLAN_NOT_FOUND"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeDivisionGuard  = "DIVISION_GUARD"
	ErrCodeDatabase       = "DATABASE_ERROR"
	ErrCodePaymentGateway = "PAYMENT_GATEWAY_ERROR"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// Sentinel errors for errors.Is matching
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrPlanNotFound   = errors.New("plan not found")
	ErrDivisionGuard  = errors.New("division by zero guarded")
	ErrPaymentGateway = errors.New("payment gateway failure")
)

// ValidationError is the InvalidInputError kind: it names the offending field.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any validation error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NotFoundError is the PlanNotFoundError kind for plans, packages and incentive rules.
type NotFoundError struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Is matches both ErrPlanNotFound and the generic ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrPlanNotFound || target == ErrNotFound
}

// DivisionGuardError is raised internally when a denominator is zero.
// It never escapes the engine: callers receive a defined fallback instead.
type DivisionGuardError struct {
	Denominator string
}

func (e *DivisionGuardError) Error() string {
	return fmt.Sprintf("division guard: %s is zero", e.Denominator)
}

func (e *DivisionGuardError) Is(target error) bool {
	return target == ErrDivisionGuard
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(kind, name string) *NotFoundError {
	return &NotFoundError{Kind: kind, Name: name}
}

// ErrorCode maps an error to its API error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return ErrCodeInvalidInput
	case errors.Is(err, ErrPlanNotFound):
		return ErrCodePlanNotFound
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrDivisionGuard):
		return ErrCodeDivisionGuard
	case errors.Is(err, ErrPaymentGateway):
		return ErrCodePaymentGateway
	default:
		return ErrCodeInternalServer
	}
}

// ToAPIError converts any error into an APIError, carrying the field name of validation errors.
func ToAPIError(err error, requestID string) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	out := NewAPIError(ErrorCode(err), err.Error(), "", requestID)
	var ve *ValidationError
	if errors.As(err, &ve) {
		out.Field = ve.Field
		out.Message = ve.Message
	}
	return out
}
