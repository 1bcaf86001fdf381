package service

import (
	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/money"
)

// The response types are the presentation boundary: money is rendered once here as
// 2-decimal strings and fractions become 0–100 percentages with 1 decimal.

// ComponentView is a rendered service line item.
type ComponentView struct {
	Name       string `json:"name"`
	BaseAmount string `json:"baseAmount"`
	IsRequired bool   `json:"isRequired"`
}

// EstimateResponse is a rendered ProcedureEstimate.
type EstimateResponse struct {
	ID                    string          `json:"id,omitempty"`
	Components            []ComponentView `json:"components"`
	Complexity            string          `json:"complexity"`
	Urgency               string          `json:"urgency"`
	Category              string          `json:"category"`
	BaseTotal             string          `json:"baseTotal"`
	ComplexityAdjusted    string          `json:"complexityAdjusted"`
	ComplexityAdjustment  string          `json:"complexityAdjustment"`
	UrgencyAdjusted       string          `json:"urgencyAdjusted"`
	UrgencyAdjustment     string          `json:"urgencyAdjustment"`
	CategoryDiscount      string          `json:"categoryDiscount"`
	PreInsuranceTotal     string          `json:"preInsuranceTotal"`
	InsurancePlan         string          `json:"insurancePlan,omitempty"`
	AmountAfterDeductible string          `json:"amountAfterDeductible,omitempty"`
	InsuranceCoverage     string          `json:"insuranceCoverage"`
	PatientResponsibility string          `json:"patientResponsibility"`
}

// NewEstimateResponse renders an estimate and its adjudication.
func NewEstimateResponse(id string, est domain.ProcedureEstimate, adj domain.Adjudication) EstimateResponse {
	components := make([]ComponentView, len(est.Components))
	for i, c := range est.Components {
		components[i] = ComponentView{Name: c.Name, BaseAmount: money.Format(c.BaseAmount), IsRequired: c.IsRequired}
	}

	resp := EstimateResponse{
		ID:                    id,
		Components:            components,
		Complexity:            est.Complexity.String(),
		Urgency:               est.Urgency.String(),
		Category:              est.Category.String(),
		BaseTotal:             money.Format(est.BaseTotal),
		ComplexityAdjusted:    money.Format(est.ComplexityAdjusted),
		ComplexityAdjustment:  money.Format(est.ComplexityAdjustment),
		UrgencyAdjusted:       money.Format(est.UrgencyAdjusted),
		UrgencyAdjustment:     money.Format(est.UrgencyAdjustment),
		CategoryDiscount:      money.Format(est.CategoryDiscount),
		PreInsuranceTotal:     money.Format(est.PreInsuranceTotal),
		InsuranceCoverage:     money.Format(est.InsuranceCoverage),
		PatientResponsibility: money.Format(est.PatientResponsibility),
	}
	if adj.PlanName != "" {
		resp.InsurancePlan = adj.PlanName
		resp.AmountAfterDeductible = money.Format(adj.AmountAfterDeductible)
	}
	return resp
}

// AdjudicationResponse is a rendered insurance split.
type AdjudicationResponse struct {
	PlanName              string `json:"planName,omitempty"`
	PreInsuranceTotal     string `json:"preInsuranceTotal"`
	AmountAfterDeductible string `json:"amountAfterDeductible"`
	InsuranceCoverage     string `json:"insuranceCoverage"`
	PatientResponsibility string `json:"patientResponsibility"`
}

// NewAdjudicationResponse renders an adjudication.
func NewAdjudicationResponse(adj domain.Adjudication) AdjudicationResponse {
	return AdjudicationResponse{
		PlanName:              adj.PlanName,
		PreInsuranceTotal:     money.Format(adj.PreInsuranceTotal),
		AmountAfterDeductible: money.Format(adj.AmountAfterDeductible),
		InsuranceCoverage:     money.Format(adj.InsuranceCoverage),
		PatientResponsibility: money.Format(adj.PatientResponsibility),
	}
}

// PackageView is a rendered package definition.
type PackageView struct {
	Name             string `json:"name"`
	Type             string `json:"type,omitempty"`
	TotalAmount      string `json:"totalAmount"`
	DiscountedAmount string `json:"discountedAmount"`
}

// NewPackageView renders a package definition.
func NewPackageView(p domain.PackageDefinition) PackageView {
	return PackageView{
		Name:             p.Name,
		Type:             p.Type,
		TotalAmount:      money.Format(p.TotalAmount),
		DiscountedAmount: money.Format(p.DiscountedAmount),
	}
}

// ServiceUsageView is a rendered consumed service.
type ServiceUsageView struct {
	Name           string `json:"name"`
	IndividualRate string `json:"individualRate"`
	Quantity       int64  `json:"quantity"`
	LineTotal      string `json:"lineTotal"`
}

// ReconcileResponse is a rendered PackageUtilizationRecord.
type ReconcileResponse struct {
	Package                PackageView        `json:"package"`
	ServicesUsed           []ServiceUsageView `json:"servicesUsed"`
	IndividualPricingTotal string             `json:"individualPricingTotal"`
	TotalUtilized          string             `json:"totalUtilized"`
	RemainingBalance       string             `json:"remainingBalance"`
	UtilizationPercentage  float64            `json:"utilizationPercentage"`
	Variance               *string            `json:"variance"`
	SavingsAmount          *string            `json:"savingsAmount"`
	EfficiencyScore        float64            `json:"efficiencyScore"`
	Status                 string             `json:"status"`
}

// NewReconcileResponse renders a utilization record.
func NewReconcileResponse(r domain.PackageUtilizationRecord) ReconcileResponse {
	services := make([]ServiceUsageView, len(r.ServicesUsed))
	for i, s := range r.ServicesUsed {
		services[i] = ServiceUsageView{
			Name:           s.Name,
			IndividualRate: money.Format(s.IndividualRate),
			Quantity:       s.Quantity,
			LineTotal:      money.Format(s.LineTotal()),
		}
	}
	return ReconcileResponse{
		Package:                NewPackageView(r.Package),
		ServicesUsed:           services,
		IndividualPricingTotal: money.Format(r.IndividualPricingTotal),
		TotalUtilized:          money.Format(r.TotalUtilized),
		RemainingBalance:       money.Format(r.RemainingBalance),
		UtilizationPercentage:  money.FormatPercent(r.Utilization),
		Variance:               money.FormatNullable(r.Variance),
		SavingsAmount:          money.FormatNullable(r.SavingsAmount),
		EfficiencyScore:        money.FormatScore(r.EfficiencyScore),
		Status:                 r.Status.String(),
	}
}

// IncentiveResponse is a rendered IncentiveBreakdown.
type IncentiveResponse struct {
	ProviderName   string `json:"providerName,omitempty"`
	Department     string `json:"department,omitempty"`
	BaseIncentive  string `json:"baseIncentive"`
	ProcedureBonus string `json:"procedureBonus"`
	QualityBonus   string `json:"qualityBonus"`
	TargetBonus    string `json:"targetBonus"`
	Total          string `json:"total"`
}

// NewIncentiveResponse renders a payout breakdown.
func NewIncentiveResponse(record domain.IncentiveRecord, b domain.IncentiveBreakdown) IncentiveResponse {
	return IncentiveResponse{
		ProviderName:   record.ProviderName,
		Department:     record.Department,
		BaseIncentive:  money.Format(b.BaseIncentive),
		ProcedureBonus: money.Format(b.ProcedureBonus),
		QualityBonus:   money.Format(b.QualityBonus),
		TargetBonus:    money.Format(b.TargetBonus),
		Total:          money.Format(b.Total),
	}
}

// AllocationView is one party's rendered share.
type AllocationView struct {
	Party      string  `json:"party"`
	Percentage float64 `json:"percentage"`
	Amount     string  `json:"amount"`
}

// SplitResponse is a rendered SplitResult.
type SplitResponse struct {
	Total       string           `json:"total"`
	Allocations []AllocationView `json:"allocations"`
}

// NewSplitResponse renders a bill split.
func NewSplitResponse(r domain.SplitResult) SplitResponse {
	allocations := make([]AllocationView, len(r.Allocations))
	for i, a := range r.Allocations {
		allocations[i] = AllocationView{
			Party:      a.Party,
			Percentage: money.FormatPercent(a.Fraction),
			Amount:     money.Format(a.Amount),
		}
	}
	return SplitResponse{Total: money.Format(r.Total), Allocations: allocations}
}

// PlanView is a rendered insurance plan.
type PlanView struct {
	Name               string  `json:"name"`
	CoveragePercentage float64 `json:"coveragePercentage"`
	Copay              string  `json:"copay"`
	Deductible         string  `json:"deductible"`
}

// NewPlanView renders an insurance plan.
func NewPlanView(p domain.InsurancePlan) PlanView {
	return PlanView{
		Name:               p.Name,
		CoveragePercentage: money.FormatPercent(p.CoverageFraction),
		Copay:              money.Format(p.Copay),
		Deductible:         money.Format(p.Deductible),
	}
}

// PaymentResponse is the gateway answer returned to callers.
type PaymentResponse struct {
	Success       bool   `json:"success"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	RedirectURL   string `json:"redirectUrl,omitempty"`
	TransactionID string `json:"transactionId"`
	State         string `json:"state,omitempty"`
	Amount        string `json:"amount,omitempty"`
}
