package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tiered-billing-engine/internal/domain"
)

// SplitBill allocates total across paying parties by fraction.
//
// The total is taken to whole cents first. Each party receives its share rounded to
// whole cents, and the rounding residue goes to the party with the largest fraction
// (the first one on ties), so allocations always sum exactly to the cent total.
func SplitBill(total decimal.Decimal, shares []domain.SplitShare) (domain.SplitResult, error) {
	if total.IsNegative() {
		return domain.SplitResult{}, domain.NewValidationError("total", "must not be negative", total.String())
	}
	if len(shares) == 0 {
		return domain.SplitResult{}, domain.NewValidationError("shares", "must contain at least one party", nil)
	}

	sum := decimal.Zero
	largest := 0
	for i, s := range shares {
		if strings.TrimSpace(s.Party) == "" {
			return domain.SplitResult{}, domain.NewValidationError(fmt.Sprintf("shares[%d].party", i), "is required", nil)
		}
		if s.Fraction.IsNegative() {
			return domain.SplitResult{}, domain.NewValidationError(fmt.Sprintf("shares[%d].fraction", i), "must not be negative", s.Fraction.String())
		}
		if s.Fraction.GreaterThan(shares[largest].Fraction) {
			largest = i
		}
		sum = sum.Add(s.Fraction)
	}
	if !sum.Equal(one) {
		return domain.SplitResult{}, domain.NewValidationError("shares", "fractions must sum to 1", sum.String())
	}

	cents := total.Round(2)
	allocations := make([]domain.SplitAllocation, len(shares))
	allocated := decimal.Zero
	for i, s := range shares {
		amount := cents.Mul(s.Fraction).Round(2)
		allocations[i] = domain.SplitAllocation{Party: s.Party, Fraction: s.Fraction, Amount: amount}
		allocated = allocated.Add(amount)
	}
	allocations[largest].Amount = allocations[largest].Amount.Add(cents.Sub(allocated))

	return domain.SplitResult{Total: cents, Allocations: allocations}, nil
}
