package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Invalid input",
			code:      ErrCodeInvalidInput,
			message:   "components must not be empty",
			details:   "estimate requires at least one service line item",
			requestID: "req-123",
		},
		{
			name:      "Plan not found",
			code:      ErrCodePlanNotFound,
			message:   "insurance plan \"Platinum\" not found",
			details:   "",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("components[2].baseAmount", "must not be negative", "-10")

	expected := "validation error for field 'components[2].baseAmount': must not be negative"
	if err.Error() != expected {
		t.Errorf("Expected error string %s, got %s", expected, err.Error())
	}

	wrapped := fmt.Errorf("estimate: %w", err)
	if !errors.Is(wrapped, ErrInvalidInput) {
		t.Error("wrapped validation error should match ErrInvalidInput")
	}
	if errors.Is(wrapped, ErrPlanNotFound) {
		t.Error("validation error should not match ErrPlanNotFound")
	}
}

func TestNotFoundError(t *testing.T) {
	err := fmt.Errorf("resolve plan: %w", NewNotFoundError("insurance plan", "Platinum"))

	if !errors.Is(err, ErrPlanNotFound) {
		t.Error("expected ErrPlanNotFound match")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected ErrNotFound match")
	}
	if ErrorCode(err) != ErrCodePlanNotFound {
		t.Errorf("expected %s, got %s", ErrCodePlanNotFound, ErrorCode(err))
	}
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		field   string
		message string
	}{
		{
			name:    "validation carries field",
			err:     fmt.Errorf("wrap: %w", NewValidationError("qualityScore", "must be between 0 and 10", "11")),
			code:    ErrCodeInvalidInput,
			field:   "qualityScore",
			message: "must be between 0 and 10",
		},
		{
			name:    "division guard",
			err:     &DivisionGuardError{Denominator: "discountedAmount"},
			code:    ErrCodeDivisionGuard,
			message: "division guard: discountedAmount is zero",
		},
		{
			name:    "unknown error",
			err:     errors.New("boom"),
			code:    ErrCodeInternalServer,
			message: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := ToAPIError(tt.err, "req-1")
			if apiErr.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, apiErr.Code)
			}
			if apiErr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, apiErr.Field)
			}
			if apiErr.Message != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, apiErr.Message)
			}
			if apiErr.RequestID != "req-1" {
				t.Errorf("Expected request id req-1, got %s", apiErr.RequestID)
			}
		})
	}
}

func TestErrorConstants(t *testing.T) {
	expectedValues := map[string]string{
		ErrCodeInvalidInput:   "INVALID_INPUT",
		ErrCodePlanNotFound:   "PLAN_NOT_FOUND",
		ErrCodeNotFound:       "NOT_FOUND",
		ErrCodeDivisionGuard:  "DIVISION_GUARD",
		ErrCodeDatabase:       "DATABASE_ERROR",
		ErrCodePaymentGateway: "PAYMENT_GATEWAY_ERROR",
		ErrCodeRateLimit:      "RATE_LIMIT_EXCEEDED",
		ErrCodeInternalServer: "INTERNAL_SERVER_ERROR",
	}

	for actual, expected := range expectedValues {
		if actual != expected {
			t.Errorf("Expected %s, got %s", expected, actual)
		}
	}
}

func TestErrorCode_GenericNotFound(t *testing.T) {
	err := fmt.Errorf("estimate abc: %w", ErrNotFound)
	if ErrorCode(err) != ErrCodeNotFound {
		t.Errorf("expected %s, got %s", ErrCodeNotFound, ErrorCode(err))
	}
}
