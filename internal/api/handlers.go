package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/ledger"
	"github.com/tiered-billing-engine/internal/middleware"
	"github.com/tiered-billing-engine/internal/service"
)

func requestID(c *gin.Context, given string) string {
	if given != "" {
		return given
	}
	return c.GetString(middleware.CorrelationIDKey)
}

func (s *Server) handleEstimate(c *gin.Context) {
	var req service.EstimateRequest
	if !s.bindJSON(c, &req) {
		return
	}
	req.RequestID = requestID(c, req.RequestID)

	resp, err := s.billing.Estimate(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetEstimate(c *gin.Context) {
	resp, err := s.billing.GetEstimate(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAdjudicate(c *gin.Context) {
	var req service.AdjudicateRequest
	if !s.bindJSON(c, &req) {
		return
	}
	req.RequestID = requestID(c, req.RequestID)

	resp, err := s.billing.Adjudicate(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleReconcile(c *gin.Context) {
	var req service.ReconcileRequest
	if !s.bindJSON(c, &req) {
		return
	}
	req.RequestID = requestID(c, req.RequestID)

	resp, err := s.billing.ReconcilePackage(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleIncentive(c *gin.Context) {
	var req service.IncentiveRequest
	if !s.bindJSON(c, &req) {
		return
	}
	req.RequestID = requestID(c, req.RequestID)

	resp, err := s.billing.ComputeIncentive(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSplit(c *gin.Context) {
	var req service.SplitRequest
	if !s.bindJSON(c, &req) {
		return
	}
	req.RequestID = requestID(c, req.RequestID)

	resp, err := s.billing.SplitBill(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListPlans(c *gin.Context) {
	plans, err := s.billing.ListPlans(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (s *Server) handleGetPlan(c *gin.Context) {
	plan, err := s.billing.GetPlan(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) handleListPackages(c *gin.Context) {
	pkgs, err := s.billing.ListPackages(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs})
}

func (s *Server) handleInitiatePayment(c *gin.Context) {
	var req service.PaymentRequest
	if !s.bindJSON(c, &req) {
		return
	}
	req.RequestID = requestID(c, req.RequestID)

	resp, err := s.billing.InitiatePayment(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePaymentStatus(c *gin.Context) {
	resp, err := s.billing.PaymentStatus(c.Request.Context(), c.Param("txnId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListLedger(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		s.respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}

	page, err := s.billing.ListLedger(c.Request.Context(), ledger.Kind(c.Query("kind")), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer", raw)
	}
	return v, nil
}
