package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tiered-billing-engine/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// ReconcileOptions tunes package classification and the efficiency score.
type ReconcileOptions struct {
	// Tolerance is how far below full utilization (as a fraction) an episode may
	// close and still count as Completed.
	Tolerance decimal.Decimal
	// SavingsWeight and UtilizationWeight blend the two score components. They sum to 1.
	SavingsWeight     decimal.Decimal
	UtilizationWeight decimal.Decimal
	// OverrunPenalty is the score lost per point of utilization over 100 %.
	OverrunPenalty decimal.Decimal
}

// DefaultReconcileOptions returns the stock tuning: 10 point tolerance, a 60/40
// savings/utilization blend and a double penalty for overrun.
func DefaultReconcileOptions() ReconcileOptions {
	return ReconcileOptions{
		Tolerance:         decimal.RequireFromString("0.10"),
		SavingsWeight:     decimal.RequireFromString("0.6"),
		UtilizationWeight: decimal.RequireFromString("0.4"),
		OverrunPenalty:    decimal.NewFromInt(2),
	}
}

// ReconcileOptionsFromConfig converts the engine section of the application config.
func ReconcileOptionsFromConfig(cfg domain.EngineConfig) ReconcileOptions {
	return ReconcileOptions{
		Tolerance:         decimal.NewFromFloat(cfg.PackageTolerance),
		SavingsWeight:     decimal.NewFromFloat(cfg.SavingsWeight),
		UtilizationWeight: decimal.NewFromFloat(cfg.UtilizationWeight),
		OverrunPenalty:    decimal.NewFromFloat(cfg.OverrunPenalty),
	}
}

// Validate checks option ranges.
func (o ReconcileOptions) Validate() error {
	if o.Tolerance.IsNegative() || o.Tolerance.GreaterThan(one) {
		return domain.NewValidationError("engine.packageTolerance", "must be between 0 and 1", o.Tolerance.String())
	}
	if o.SavingsWeight.IsNegative() || o.UtilizationWeight.IsNegative() {
		return domain.NewValidationError("engine.weights", "must not be negative", nil)
	}
	if !o.SavingsWeight.Add(o.UtilizationWeight).Equal(one) {
		return domain.NewValidationError("engine.weights", "savings and utilization weights must sum to 1",
			o.SavingsWeight.Add(o.UtilizationWeight).String())
	}
	if o.OverrunPenalty.IsNegative() {
		return domain.NewValidationError("engine.overrunPenalty", "must not be negative", o.OverrunPenalty.String())
	}
	return nil
}

// OpenEpisode starts tracking a package episode. Nothing has been consumed yet,
// so the whole discounted price remains as credit.
func OpenEpisode(pkg domain.PackageDefinition) (domain.PackageUtilizationRecord, error) {
	if err := validatePackage(pkg); err != nil {
		return domain.PackageUtilizationRecord{}, err
	}
	return domain.PackageUtilizationRecord{
		Package:                pkg,
		ServicesUsed:           []domain.ServiceUsage{},
		IndividualPricingTotal: decimal.Zero,
		TotalUtilized:          decimal.Zero,
		RemainingBalance:       pkg.DiscountedAmount,
		Utilization:            decimal.Zero,
		EfficiencyScore:        decimal.Zero,
		Status:                 domain.PackageActive,
	}, nil
}

// Reconcile closes a package episode against the services actually consumed.
//
// Consumption is valued at the itemized rates, so utilization is the itemized worth
// over the package price and may exceed 1. Variance and savings compare the itemized
// worth with the discounted package price. A zero package price yields zero
// utilization and a zero score; a zero itemized total leaves savings null.
func Reconcile(pkg domain.PackageDefinition, services []domain.ServiceUsage, opts ReconcileOptions) (domain.PackageUtilizationRecord, error) {
	if err := validatePackage(pkg); err != nil {
		return domain.PackageUtilizationRecord{}, err
	}
	if err := opts.Validate(); err != nil {
		return domain.PackageUtilizationRecord{}, err
	}

	individual := decimal.Zero
	for i, s := range services {
		if s.IndividualRate.IsNegative() {
			return domain.PackageUtilizationRecord{}, domain.NewValidationError(
				fmt.Sprintf("servicesUsed[%d].individualRate", i), "must not be negative", s.IndividualRate.String())
		}
		if s.Quantity < 0 {
			return domain.PackageUtilizationRecord{}, domain.NewValidationError(
				fmt.Sprintf("servicesUsed[%d].quantity", i), "must not be negative", s.Quantity)
		}
		individual = individual.Add(s.LineTotal())
	}

	discounted := pkg.DiscountedAmount
	utilized := individual

	utilization, err := ratio(utilized, discounted, "package.discountedAmount")
	if err != nil {
		utilization = decimal.Zero
	}

	var savings decimal.NullDecimal
	if !individual.IsZero() {
		savings = decimal.NewNullDecimal(individual.Sub(discounted))
	}

	used := make([]domain.ServiceUsage, len(services))
	copy(used, services)

	return domain.PackageUtilizationRecord{
		Package:                pkg,
		ServicesUsed:           used,
		IndividualPricingTotal: individual,
		TotalUtilized:          utilized,
		RemainingBalance:       discounted.Sub(utilized),
		Utilization:            utilization,
		Variance:               savings,
		SavingsAmount:          savings,
		EfficiencyScore:        EfficiencyScore(savings, individual, utilization, discounted.IsZero(), opts),
		Status:                 ClassifyStatus(utilization, opts.Tolerance),
	}, nil
}

// ClassifyStatus maps a closed episode's utilization fraction to its terminal status.
func ClassifyStatus(utilization, tolerance decimal.Decimal) domain.PackageStatus {
	switch {
	case utilization.GreaterThan(one):
		return domain.PackageExceeded
	case utilization.LessThan(one.Sub(tolerance)):
		return domain.PackageUnderutilized
	default:
		return domain.PackageCompleted
	}
}

// EfficiencyScore blends a savings component and a utilization component into 0–100.
//
// The savings component maps savings/itemized (clamped to [-1, 1]) linearly onto
// 0–100. The utilization component is 100 at full utilization, loses one point per
// point of underuse and OverrunPenalty points per point of overrun. Within one package
// savings and utilization grow together, so past full utilization the penalty dominates.
func EfficiencyScore(savings decimal.NullDecimal, individualTotal, utilization decimal.Decimal, zeroPackage bool, opts ReconcileOptions) decimal.Decimal {
	if zeroPackage {
		return decimal.Zero
	}

	savingsComponent := decimal.Zero
	if savings.Valid {
		if r, err := ratio(savings.Decimal, individualTotal, "individualPricingTotal"); err == nil {
			r = clamp(r, one.Neg(), one)
			savingsComponent = r.Add(one).Mul(decimal.NewFromInt(50))
		}
	}

	pct := utilization.Mul(hundred)
	var utilizationComponent decimal.Decimal
	if pct.LessThanOrEqual(hundred) {
		utilizationComponent = pct
	} else {
		utilizationComponent = hundred.Sub(opts.OverrunPenalty.Mul(pct.Sub(hundred)))
	}
	utilizationComponent = clamp(utilizationComponent, decimal.Zero, hundred)

	score := savingsComponent.Mul(opts.SavingsWeight).Add(utilizationComponent.Mul(opts.UtilizationWeight))
	return clamp(score, decimal.Zero, hundred)
}

// ratio divides, reporting a DivisionGuardError instead of panicking on a zero denominator.
func ratio(num, den decimal.Decimal, name string) (decimal.Decimal, error) {
	if den.IsZero() {
		return decimal.Zero, &domain.DivisionGuardError{Denominator: name}
	}
	return num.Div(den), nil
}

func clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(d, lo), hi)
}

func validatePackage(pkg domain.PackageDefinition) error {
	if pkg.TotalAmount.IsNegative() {
		return domain.NewValidationError("package.totalAmount", "must not be negative", pkg.TotalAmount.String())
	}
	if pkg.DiscountedAmount.IsNegative() {
		return domain.NewValidationError("package.discountedAmount", "must not be negative", pkg.DiscountedAmount.String())
	}
	return nil
}
