package engine

import (
	"github.com/shopspring/decimal"

	"github.com/tiered-billing-engine/internal/domain"
)

// TargetBonusPerPoint is paid for each percentage point of target achievement over 100.
var TargetBonusPerPoint = decimal.NewFromInt(50)

var (
	maxQualityScore = decimal.NewFromInt(10)
	fullTarget      = decimal.NewFromInt(100)
)

// ComputeIncentive decomposes a provider's payout. Each component reads only the
// record and its rule, never another component, and Total is their literal sum.
func ComputeIncentive(record domain.IncentiveRecord) (domain.IncentiveBreakdown, error) {
	if err := validateIncentive(record); err != nil {
		return domain.IncentiveBreakdown{}, err
	}
	rule := record.Rule

	base := record.Revenue.Mul(rule.BasePercentage).Div(hundred)
	procedure := decimal.NewFromInt(record.ProcedureCount).Mul(rule.ProcedureBonus)
	quality := base.Mul(rule.QualityMultiplier.Sub(one)).Mul(record.QualityScore.Div(maxQualityScore))
	target := decimal.Max(decimal.Zero, record.TargetAchievementPercent.Sub(fullTarget)).Mul(TargetBonusPerPoint)

	return domain.IncentiveBreakdown{
		BaseIncentive:  base,
		ProcedureBonus: procedure,
		QualityBonus:   quality,
		TargetBonus:    target,
		Total:          base.Add(procedure).Add(quality).Add(target),
	}, nil
}

func validateIncentive(record domain.IncentiveRecord) error {
	switch {
	case record.Revenue.IsNegative():
		return domain.NewValidationError("revenue", "must not be negative", record.Revenue.String())
	case record.ProcedureCount < 0:
		return domain.NewValidationError("procedureCount", "must not be negative", record.ProcedureCount)
	case record.QualityScore.IsNegative() || record.QualityScore.GreaterThan(maxQualityScore):
		return domain.NewValidationError("qualityScore", "must be between 0 and 10", record.QualityScore.String())
	case record.TargetAchievementPercent.IsNegative():
		return domain.NewValidationError("targetAchievementPercent", "must not be negative", record.TargetAchievementPercent.String())
	case record.Rule.BasePercentage.IsNegative():
		return domain.NewValidationError("rule.basePercentage", "must not be negative", record.Rule.BasePercentage.String())
	case record.Rule.ProcedureBonus.IsNegative():
		return domain.NewValidationError("rule.procedureBonus", "must not be negative", record.Rule.ProcedureBonus.String())
	case record.Rule.QualityMultiplier.LessThan(one):
		return domain.NewValidationError("rule.qualityMultiplier", "must be at least 1", record.Rule.QualityMultiplier.String())
	}
	return nil
}
