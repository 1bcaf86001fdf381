package engine

import (
	"github.com/shopspring/decimal"

	"github.com/tiered-billing-engine/internal/domain"
)

var one = decimal.NewFromInt(1)

// Adjudicate splits a pre-insurance total between the insurer and the patient.
//
// The deductible is taken first and cannot push the covered base below zero. Coverage
// applies to what remains, and the copay is a flat add-on billed even when coverage is
// zero. Patient responsibility can therefore exceed the pre-insurance total.
func Adjudicate(preInsuranceTotal decimal.Decimal, plan *domain.InsurancePlan) (domain.Adjudication, error) {
	if preInsuranceTotal.IsNegative() {
		return domain.Adjudication{}, domain.NewValidationError("preInsuranceTotal", "must not be negative", preInsuranceTotal.String())
	}

	if plan == nil {
		return domain.Adjudication{
			PreInsuranceTotal:     preInsuranceTotal,
			AmountAfterDeductible: preInsuranceTotal,
			InsuranceCoverage:     decimal.Zero,
			PatientResponsibility: preInsuranceTotal,
		}, nil
	}

	if err := ValidatePlan(plan); err != nil {
		return domain.Adjudication{}, err
	}

	afterDeductible := decimal.Max(decimal.Zero, preInsuranceTotal.Sub(plan.Deductible))
	coverage := afterDeductible.Mul(plan.CoverageFraction)
	responsibility := preInsuranceTotal.Sub(coverage).Add(plan.Copay)

	return domain.Adjudication{
		PreInsuranceTotal:     preInsuranceTotal,
		AmountAfterDeductible: afterDeductible,
		InsuranceCoverage:     coverage,
		PatientResponsibility: responsibility,
		PlanName:              plan.Name,
	}, nil
}

// ValidatePlan checks an insurance plan's reference values.
func ValidatePlan(plan *domain.InsurancePlan) error {
	if plan.CoverageFraction.IsNegative() || plan.CoverageFraction.GreaterThan(one) {
		return domain.NewValidationError("insurancePlan.coverageFraction", "must be between 0 and 1", plan.CoverageFraction.String())
	}
	if plan.Copay.IsNegative() {
		return domain.NewValidationError("insurancePlan.copay", "must not be negative", plan.Copay.String())
	}
	if plan.Deductible.IsNegative() {
		return domain.NewValidationError("insurancePlan.deductible", "must not be negative", plan.Deductible.String())
	}
	return nil
}
