package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/engine"
	"github.com/tiered-billing-engine/internal/ledger"
	"github.com/tiered-billing-engine/internal/money"
	"github.com/tiered-billing-engine/internal/payment"
)

// ErrPaymentsDisabled is returned by InitiatePayment when no gateway is configured.
var ErrPaymentsDisabled = fmt.Errorf("%w: payments are not enabled", domain.ErrPaymentGateway)

// PaymentGateway initiates hosted payments and reports their state
type PaymentGateway interface {
	Initiate(ctx context.Context, req payment.PaymentRequest) (*payment.PaymentResponse, error)
	Status(ctx context.Context, transactionID string) (*payment.PaymentResponse, error)
}

// Dependencies wires a BillingService. Only Catalog and Logger are required.
type Dependencies struct {
	Catalog   domain.PlanCatalog
	Ledger    ledger.Store
	Estimates domain.EstimateRepository
	Payments  PaymentGateway
	Engine    domain.EngineConfig
	Logger    *logrus.Logger
}

// BillingService resolves reference data, runs the engine and records every
// calculation in the ledger. The engine itself stays pure; all I/O happens here.
type BillingService struct {
	catalog    domain.PlanCatalog
	ledger     ledger.Store
	estimates  domain.EstimateRepository
	payments   PaymentGateway
	reconciler engine.ReconcileOptions
	logger     *logrus.Logger
}

// NewBillingService creates a new billing service
func NewBillingService(deps Dependencies) (*BillingService, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	store := deps.Ledger
	if store == nil {
		store = ledger.NopStore{}
	}

	opts := engine.DefaultReconcileOptions()
	if deps.Engine != (domain.EngineConfig{}) {
		opts = engine.ReconcileOptionsFromConfig(deps.Engine)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	return &BillingService{
		catalog:    deps.Catalog,
		ledger:     store,
		estimates:  deps.Estimates,
		payments:   deps.Payments,
		reconciler: opts,
		logger:     deps.Logger,
	}, nil
}

// Estimate runs the pricing pipeline and adjudicates against the named plan, if any.
func (s *BillingService) Estimate(ctx context.Context, req EstimateRequest) (*EstimateResponse, error) {
	startTime := time.Now()

	complexity, err := domain.ParseComplexityLevel(req.Complexity)
	if err != nil {
		return nil, domain.NewValidationError("complexity", "must be one of Standard, Moderate, High", req.Complexity)
	}
	urgency, err := domain.ParseUrgencyLevel(req.Urgency)
	if err != nil {
		return nil, domain.NewValidationError("urgency", "must be one of Routine, Urgent, Emergency", req.Urgency)
	}
	category, err := domain.ParsePatientCategory(req.Category)
	if err != nil {
		return nil, domain.NewValidationError("category", "is not a known patient category", req.Category)
	}

	var plan *domain.InsurancePlan
	if strings.TrimSpace(req.InsurancePlan) != "" {
		plan, err = s.catalog.GetPlan(ctx, req.InsurancePlan)
		if err != nil {
			return nil, err
		}
	}

	est, err := engine.Estimate(req.Components, complexity, urgency, category)
	if err != nil {
		return nil, err
	}
	adj, err := engine.Adjudicate(est.PreInsuranceTotal, plan)
	if err != nil {
		return nil, err
	}
	est = est.WithAdjudication(adj)

	id := uuid.New().String()
	resp := NewEstimateResponse(id, est, adj)

	if s.estimates != nil {
		record := &domain.EstimateRecord{ID: id, RequestID: req.RequestID, PlanName: adj.PlanName, Estimate: est}
		if plan != nil {
			record.AmountAfterDeductible = decimal.NewNullDecimal(adj.AmountAfterDeductible)
		}
		if err := s.estimates.SaveEstimate(ctx, record); err != nil {
			s.logger.WithError(err).WithField("estimate_id", id).Warn("Failed to save estimate")
		}
	}
	s.record(ctx, ledger.KindEstimate, req.RequestID, req, resp)

	s.logger.WithFields(logrus.Fields{
		"estimate_id":         id,
		"components":          len(req.Components),
		"complexity":          complexity,
		"urgency":             urgency,
		"category":            category,
		"plan":                adj.PlanName,
		"pre_insurance_total": resp.PreInsuranceTotal,
		"processing_time":     time.Since(startTime),
	}).Info("Estimate completed")

	return &resp, nil
}

// GetEstimate returns a previously saved estimate.
func (s *BillingService) GetEstimate(ctx context.Context, id string) (*EstimateResponse, error) {
	if s.estimates == nil {
		return nil, fmt.Errorf("estimate %s: %w", id, domain.ErrNotFound)
	}
	record, err := s.estimates.GetEstimate(ctx, id)
	if err != nil {
		return nil, err
	}
	adj := domain.Adjudication{
		PreInsuranceTotal:     record.Estimate.PreInsuranceTotal,
		InsuranceCoverage:     record.Estimate.InsuranceCoverage,
		PatientResponsibility: record.Estimate.PatientResponsibility,
	}
	if record.AmountAfterDeductible.Valid {
		adj.PlanName = record.PlanName
		adj.AmountAfterDeductible = record.AmountAfterDeductible.Decimal
	}
	resp := NewEstimateResponse(record.ID, record.Estimate, adj)
	resp.InsurancePlan = record.PlanName
	return &resp, nil
}

// Adjudicate splits a pre-insurance total using a named or inline plan.
func (s *BillingService) Adjudicate(ctx context.Context, req AdjudicateRequest) (*AdjudicationResponse, error) {
	plan := req.Plan
	if strings.TrimSpace(req.InsurancePlan) != "" {
		var err error
		plan, err = s.catalog.GetPlan(ctx, req.InsurancePlan)
		if err != nil {
			return nil, err
		}
	}

	adj, err := engine.Adjudicate(req.PreInsuranceTotal, plan)
	if err != nil {
		return nil, err
	}

	resp := NewAdjudicationResponse(adj)
	s.record(ctx, ledger.KindAdjudication, req.RequestID, req, resp)
	return &resp, nil
}

// ReconcilePackage closes a package episode and classifies it.
func (s *BillingService) ReconcilePackage(ctx context.Context, req ReconcileRequest) (*ReconcileResponse, error) {
	pkg := req.Package
	if pkg == nil {
		if strings.TrimSpace(req.PackageName) == "" {
			return nil, domain.NewValidationError("package", "a package or packageName is required", nil)
		}
		var err error
		pkg, err = s.catalog.GetPackage(ctx, req.PackageName)
		if err != nil {
			return nil, err
		}
	}

	record, err := engine.Reconcile(*pkg, req.ServicesUsed, s.reconciler)
	if err != nil {
		return nil, err
	}

	resp := NewReconcileResponse(record)
	s.record(ctx, ledger.KindReconciliation, req.RequestID, req, resp)

	s.logger.WithFields(logrus.Fields{
		"package":          pkg.Name,
		"services":         len(req.ServicesUsed),
		"utilization":      resp.UtilizationPercentage,
		"efficiency_score": resp.EfficiencyScore,
	}).WithFields(logrus.Fields(record.Status.LogFields())).Info("Package reconciled")

	return &resp, nil
}

// ComputeIncentive computes a provider payout.
func (s *BillingService) ComputeIncentive(ctx context.Context, req IncentiveRequest) (*IncentiveResponse, error) {
	record := req.IncentiveRecord
	if strings.TrimSpace(req.RuleKey) != "" {
		rule, err := s.catalog.GetIncentiveRule(ctx, req.RuleKey)
		if err != nil {
			return nil, err
		}
		record.Rule = *rule
	}

	breakdown, err := engine.ComputeIncentive(record)
	if err != nil {
		return nil, err
	}

	resp := NewIncentiveResponse(record, breakdown)
	s.record(ctx, ledger.KindIncentive, req.RequestID, req, resp)

	s.logger.WithFields(logrus.Fields{
		"provider":   record.ProviderName,
		"department": record.Department,
		"total":      resp.Total,
	}).Info("Incentive computed")

	return &resp, nil
}

// SplitBill allocates a total across paying parties in whole cents.
func (s *BillingService) SplitBill(ctx context.Context, req SplitRequest) (*SplitResponse, error) {
	result, err := engine.SplitBill(req.Total, req.Shares)
	if err != nil {
		return nil, err
	}

	resp := NewSplitResponse(result)
	s.record(ctx, ledger.KindSplit, req.RequestID, req, resp)
	return &resp, nil
}

// InitiatePayment hands the payable amount to the payment gateway.
func (s *BillingService) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	if s.payments == nil {
		return nil, ErrPaymentsDisabled
	}

	gwResp, err := s.payments.Initiate(ctx, payment.PaymentRequest{
		MerchantTransactionID: req.MerchantTransactionID,
		MerchantUserID:        req.MerchantUserID,
		Amount:                req.Amount,
		RedirectURL:           req.RedirectURL,
		CallbackURL:           req.CallbackURL,
		MobileNumber:          req.MobileNumber,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidInput) {
			s.record(ctx, ledger.KindPayment, req.RequestID, req, domain.ToAPIError(err, req.RequestID))
		}
		return nil, err
	}

	resp := PaymentResponse{
		Success:       gwResp.Success,
		Code:          gwResp.Code,
		Message:       gwResp.Message,
		RedirectURL:   gwResp.RedirectURL,
		TransactionID: gwResp.TransactionID,
		Amount:        money.Format(req.Amount),
	}
	s.record(ctx, ledger.KindPayment, req.RequestID, req, resp)
	return &resp, nil
}

// PaymentStatus asks the gateway for the state of a transaction.
func (s *BillingService) PaymentStatus(ctx context.Context, transactionID string) (*PaymentResponse, error) {
	if s.payments == nil {
		return nil, ErrPaymentsDisabled
	}
	if strings.TrimSpace(transactionID) == "" {
		return nil, domain.NewValidationError("transactionId", "is required", transactionID)
	}

	gwResp, err := s.payments.Status(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return &PaymentResponse{
		Success:       gwResp.Success,
		Code:          gwResp.Code,
		Message:       gwResp.Message,
		TransactionID: gwResp.TransactionID,
		State:         gwResp.State,
	}, nil
}

// ListPlans returns every insurance plan.
func (s *BillingService) ListPlans(ctx context.Context) ([]PlanView, error) {
	plans, err := s.catalog.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]PlanView, len(plans))
	for i, p := range plans {
		views[i] = NewPlanView(p)
	}
	return views, nil
}

// GetPlan returns one insurance plan by name.
func (s *BillingService) GetPlan(ctx context.Context, name string) (*PlanView, error) {
	plan, err := s.catalog.GetPlan(ctx, name)
	if err != nil {
		return nil, err
	}
	view := NewPlanView(*plan)
	return &view, nil
}

// ListPackages returns every package definition.
func (s *BillingService) ListPackages(ctx context.Context) ([]PackageView, error) {
	pkgs, err := s.catalog.ListPackages(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]PackageView, len(pkgs))
	for i, p := range pkgs {
		views[i] = NewPackageView(p)
	}
	return views, nil
}

// LedgerPage is one page of recorded calculations.
type LedgerPage struct {
	Entries []*ledger.Entry `json:"entries"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListLedger pages through recorded calculations, newest first. An empty kind lists all.
func (s *BillingService) ListLedger(ctx context.Context, kind ledger.Kind, limit, offset int) (*LedgerPage, error) {
	if kind != "" && !kind.IsValid() {
		return nil, domain.NewValidationError("kind", "is not a recorded calculation kind", string(kind))
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		return nil, domain.NewValidationError("offset", "must not be negative", offset)
	}

	entries, err := s.ledger.List(ctx, kind, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing ledger: %w", err)
	}
	total, err := s.ledger.Count(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("counting ledger: %w", err)
	}
	if entries == nil {
		entries = []*ledger.Entry{}
	}
	return &LedgerPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

// record writes a ledger entry. Ledger failures are logged, never returned: the
// calculation already succeeded.
func (s *BillingService) record(ctx context.Context, kind ledger.Kind, requestID string, request, result interface{}) {
	entry, err := ledger.NewEntry(kind, requestID, request, result)
	if err != nil {
		s.logger.WithError(err).WithField("kind", kind).Warn("Failed to build ledger entry")
		return
	}
	if err := s.ledger.Record(ctx, entry); err != nil {
		s.logger.WithFields(logrus.Fields{
			"kind":       kind,
			"request_id": requestID,
			"error":      err,
		}).Warn("Failed to record calculation")
	}
}
