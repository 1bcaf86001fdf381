// Package engine implements the billing calculations: the tiered pricing pipeline,
// insurance adjudication, package reconciliation, incentive computation and bill
// splitting.
//
// Every function here is pure. Nothing performs I/O, logs, or holds mutable state, so
// all of it is safe for concurrent use. Arithmetic is carried in full-precision
// decimals and is never rounded between stages.
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tiered-billing-engine/internal/domain"
)

// Estimate runs the pricing pipeline. Stages are applied strictly in order and each
// stage's output is the next stage's input:
//
//	base → × complexity → × urgency → − category discount → pre-insurance total
//
// The returned estimate carries no insurance split; InsuranceCoverage is zero and
// PatientResponsibility equals PreInsuranceTotal until Adjudicate is applied.
func Estimate(components []domain.ServiceLineItem, complexity domain.ComplexityLevel, urgency domain.UrgencyLevel, category domain.PatientCategory) (domain.ProcedureEstimate, error) {
	if err := validateEstimateInput(components, complexity, urgency, category); err != nil {
		return domain.ProcedureEstimate{}, err
	}

	baseTotal := decimal.Zero
	for _, c := range components {
		baseTotal = baseTotal.Add(c.BaseAmount)
	}

	complexityAdjusted := baseTotal.Mul(complexity.Multiplier())
	urgencyAdjusted := complexityAdjusted.Mul(urgency.Multiplier())
	categoryDiscount := urgencyAdjusted.Mul(category.DiscountFraction())
	preInsuranceTotal := urgencyAdjusted.Sub(categoryDiscount)

	items := make([]domain.ServiceLineItem, len(components))
	copy(items, components)

	return domain.ProcedureEstimate{
		Components:            items,
		Complexity:            complexity,
		Urgency:               urgency,
		Category:              category,
		BaseTotal:             baseTotal,
		ComplexityAdjusted:    complexityAdjusted,
		ComplexityAdjustment:  complexityAdjusted.Sub(baseTotal),
		UrgencyAdjusted:       urgencyAdjusted,
		UrgencyAdjustment:     urgencyAdjusted.Sub(complexityAdjusted),
		CategoryDiscount:      categoryDiscount,
		PreInsuranceTotal:     preInsuranceTotal,
		InsuranceCoverage:     decimal.Zero,
		PatientResponsibility: preInsuranceTotal,
	}, nil
}

// EstimateWithInsurance runs the pipeline and adjudicates the result against plan.
// A nil plan means the patient is uninsured.
func EstimateWithInsurance(components []domain.ServiceLineItem, complexity domain.ComplexityLevel, urgency domain.UrgencyLevel, category domain.PatientCategory, plan *domain.InsurancePlan) (domain.ProcedureEstimate, error) {
	est, err := Estimate(components, complexity, urgency, category)
	if err != nil {
		return domain.ProcedureEstimate{}, err
	}
	adj, err := Adjudicate(est.PreInsuranceTotal, plan)
	if err != nil {
		return domain.ProcedureEstimate{}, err
	}
	return est.WithAdjudication(adj), nil
}

func validateEstimateInput(components []domain.ServiceLineItem, complexity domain.ComplexityLevel, urgency domain.UrgencyLevel, category domain.PatientCategory) error {
	if len(components) == 0 {
		return domain.NewValidationError("components", "must contain at least one service line item", nil)
	}
	for i, c := range components {
		if c.BaseAmount.IsNegative() {
			return domain.NewValidationError(fmt.Sprintf("components[%d].baseAmount", i), "must not be negative", c.BaseAmount.String())
		}
	}
	if !complexity.IsValid() {
		return domain.NewValidationError("complexity", "unknown complexity level", string(complexity))
	}
	if !urgency.IsValid() {
		return domain.NewValidationError("urgency", "unknown urgency level", string(urgency))
	}
	if !category.IsValid() {
		return domain.NewValidationError("category", "unknown patient category", string(category))
	}
	return nil
}
