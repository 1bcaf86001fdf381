package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceLineItem is one billable component of a procedure, e.g. anesthesia or a room charge.
type ServiceLineItem struct {
	Name       string          `json:"name"`
	BaseAmount decimal.Decimal `json:"baseAmount"`
	IsRequired bool            `json:"isRequired"`
}

// InsurancePlan is read-only reference data used by the adjudicator.
type InsurancePlan struct {
	Name             string          `json:"name"`
	CoverageFraction decimal.Decimal `json:"coverageFraction"`
	Copay            decimal.Decimal `json:"copay"`
	Deductible       decimal.Decimal `json:"deductible"`
}

// Adjudication splits a pre-insurance total between insurer and patient.
type Adjudication struct {
	PreInsuranceTotal     decimal.Decimal `json:"preInsuranceTotal"`
	AmountAfterDeductible decimal.Decimal `json:"amountAfterDeductible"`
	InsuranceCoverage     decimal.Decimal `json:"insuranceCoverage"`
	PatientResponsibility decimal.Decimal `json:"patientResponsibility"`
	PlanName              string          `json:"planName,omitempty"`
}

// ProcedureEstimate is the output of the pricing pipeline plus adjudication.
// Adjustments are signed: each equals its stage output minus its stage input.
type ProcedureEstimate struct {
	Components           []ServiceLineItem `json:"components"`
	Complexity           ComplexityLevel   `json:"complexity"`
	Urgency              UrgencyLevel      `json:"urgency"`
	Category             PatientCategory   `json:"category"`
	BaseTotal            decimal.Decimal   `json:"baseTotal"`
	ComplexityAdjusted   decimal.Decimal   `json:"complexityAdjusted"`
	ComplexityAdjustment decimal.Decimal   `json:"complexityAdjustment"`
	UrgencyAdjusted      decimal.Decimal   `json:"urgencyAdjusted"`
	UrgencyAdjustment    decimal.Decimal   `json:"urgencyAdjustment"`
	CategoryDiscount     decimal.Decimal   `json:"categoryDiscount"`
	PreInsuranceTotal    decimal.Decimal   `json:"preInsuranceTotal"`

	InsuranceCoverage     decimal.Decimal `json:"insuranceCoverage"`
	PatientResponsibility decimal.Decimal `json:"patientResponsibility"`
}

// WithAdjudication returns a copy of the estimate carrying the insurance split.
func (e ProcedureEstimate) WithAdjudication(a Adjudication) ProcedureEstimate {
	e.InsuranceCoverage = a.InsuranceCoverage
	e.PatientResponsibility = a.PatientResponsibility
	return e
}

// PackageDefinition is a bundled, fixed-price grouping of services.
type PackageDefinition struct {
	Name             string          `json:"name"`
	Type             string          `json:"type,omitempty"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	DiscountedAmount decimal.Decimal `json:"discountedAmount"`
}

// ServiceUsage is a service consumed during a package episode, priced at its itemized rate.
type ServiceUsage struct {
	Name           string          `json:"name"`
	IndividualRate decimal.Decimal `json:"individualRate"`
	Quantity       int64           `json:"quantity"`
}

// LineTotal returns rate × quantity.
func (s ServiceUsage) LineTotal() decimal.Decimal {
	return s.IndividualRate.Mul(decimal.NewFromInt(s.Quantity))
}

// PackageUtilizationRecord is produced once per package episode.
// Utilization is stored as a fraction; UtilizationPercentage scales it for presentation.
// SavingsAmount and Variance are null when the itemized total is zero.
type PackageUtilizationRecord struct {
	Package                PackageDefinition   `json:"package"`
	ServicesUsed           []ServiceUsage      `json:"servicesUsed"`
	IndividualPricingTotal decimal.Decimal     `json:"individualPricingTotal"`
	TotalUtilized          decimal.Decimal     `json:"totalUtilized"`
	RemainingBalance       decimal.Decimal     `json:"remainingBalance"`
	Utilization            decimal.Decimal     `json:"utilization"`
	Variance               decimal.NullDecimal `json:"variance"`
	SavingsAmount          decimal.NullDecimal `json:"savingsAmount"`
	EfficiencyScore        decimal.Decimal     `json:"efficiencyScore"`
	Status                 PackageStatus       `json:"status"`
}

// UtilizationPercentage returns utilization on the 0–100 scale.
func (r PackageUtilizationRecord) UtilizationPercentage() decimal.Decimal {
	return r.Utilization.Mul(decimal.NewFromInt(100))
}

// IncentiveRule holds the payout parameters for a provider or department.
type IncentiveRule struct {
	Key                  string          `json:"key,omitempty"`
	BasePercentage       decimal.Decimal `json:"basePercentage"`
	ProcedureBonus       decimal.Decimal `json:"procedureBonus"`
	QualityMultiplier    decimal.Decimal `json:"qualityMultiplier"`
	TargetBonusThreshold decimal.Decimal `json:"targetBonusThreshold"`
}

// IncentiveRecord is a provider's performance for one period.
type IncentiveRecord struct {
	ProviderName             string          `json:"providerName,omitempty"`
	Department               string          `json:"department,omitempty"`
	Revenue                  decimal.Decimal `json:"revenue"`
	ProcedureCount           int64           `json:"procedureCount"`
	QualityScore             decimal.Decimal `json:"qualityScore"`
	TargetAchievementPercent decimal.Decimal `json:"targetAchievementPercent"`
	Rule                     IncentiveRule   `json:"rule"`
}

// IncentiveBreakdown decomposes a payout. Total is the literal sum of the four parts.
type IncentiveBreakdown struct {
	BaseIncentive  decimal.Decimal `json:"baseIncentive"`
	ProcedureBonus decimal.Decimal `json:"procedureBonus"`
	QualityBonus   decimal.Decimal `json:"qualityBonus"`
	TargetBonus    decimal.Decimal `json:"targetBonus"`
	Total          decimal.Decimal `json:"total"`
}

// SplitShare assigns a fraction of a bill to a paying party.
type SplitShare struct {
	Party    string          `json:"party"`
	Fraction decimal.Decimal `json:"fraction"`
}

// SplitAllocation is a party's whole-cent portion of a split bill.
type SplitAllocation struct {
	Party    string          `json:"party"`
	Fraction decimal.Decimal `json:"fraction"`
	Amount   decimal.Decimal `json:"amount"`
}

// SplitResult is the outcome of SplitBill. Allocations sum exactly to Total.
type SplitResult struct {
	Total       decimal.Decimal   `json:"total"`
	Allocations []SplitAllocation `json:"allocations"`
}

// EstimateRecord is a persisted estimate.
type EstimateRecord struct {
	ID        string            `json:"id"`
	RequestID string            `json:"request_id,omitempty"`
	PlanName  string            `json:"plan_name,omitempty"`
	Estimate  ProcedureEstimate `json:"estimate"`
	CreatedAt time.Time         `json:"created_at"`

	// AmountAfterDeductible is set only when a plan was applied.
	AmountAfterDeductible decimal.NullDecimal `json:"amount_after_deductible"`
}
