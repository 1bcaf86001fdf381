package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/middleware"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPlanNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPaymentGateway):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// apiError renders err for clients. Internal errors are not echoed.
func apiError(err error, requestID string) *domain.APIError {
	out := *domain.ToAPIError(err, requestID)
	if statusFor(err) == http.StatusInternalServerError {
		out.Message = "internal server error"
		out.Details = ""
	}
	return &out
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	requestID := c.GetString(middleware.CorrelationIDKey)

	entry := s.logger.WithError(err).WithField("correlation_id", requestID)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	c.AbortWithStatusJSON(status, gin.H{"error": apiError(err, requestID)})
}

// bindJSON decodes the body; malformed JSON is an InvalidInputError on "body".
func (s *Server) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.respondError(c, domain.NewValidationError("body", "malformed JSON: "+err.Error(), nil))
		return false
	}
	return true
}
