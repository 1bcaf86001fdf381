// Package domain contains the core billing entities shared by the estimation engine,
// the HTTP API and the persistence layers: service line items, tier enumerations,
// insurance plans, package definitions and incentive rules.
//
// Tier multipliers and category discounts are closed enumerations. Each lookup is an
// exhaustive switch, so adding a tier is a compile-visible change to this file rather
// than an edit to a shared mutable table.
package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ComplexityLevel represents the clinical complexity tier of a procedure.
type ComplexityLevel string

const (
	ComplexityStandard ComplexityLevel = "Standard"
	ComplexityModerate ComplexityLevel = "Moderate"
	ComplexityHigh     ComplexityLevel = "High"
)

// UrgencyLevel represents how urgently a procedure is scheduled.
type UrgencyLevel string

const (
	UrgencyRoutine   UrgencyLevel = "Routine"
	UrgencyUrgent    UrgencyLevel = "Urgent"
	UrgencyEmergency UrgencyLevel = "Emergency"
)

// PatientCategory determines the discount (or surcharge) applied after tier adjustments.
type PatientCategory string

const (
	CategoryGeneral       PatientCategory = "General"
	CategorySeniorCitizen PatientCategory = "SeniorCitizen"
	CategoryEmployee      PatientCategory = "Employee"
	CategoryCorporate     PatientCategory = "Corporate"
	CategoryInsurance     PatientCategory = "Insurance"
	CategoryEmergency     PatientCategory = "Emergency"
)

// PackageStatus is derived from the final utilization of a package episode.
type PackageStatus string

const (
	PackageActive        PackageStatus = "Active"
	PackageCompleted     PackageStatus = "Completed"
	PackageUnderutilized PackageStatus = "Underutilized"
	PackageExceeded      PackageStatus = "Exceeded"
)

// Enumeration errors
var (
	ErrInvalidComplexity = errors.New("invalid complexity level")
	ErrInvalidUrgency    = errors.New("invalid urgency level")
	ErrInvalidCategory   = errors.New("invalid patient category")
)

var (
	multiplierOne       = decimal.NewFromInt(1)
	multiplierModerate  = decimal.RequireFromString("1.3")
	multiplierHigh      = decimal.RequireFromString("1.6")
	multiplierUrgent    = decimal.RequireFromString("1.2")
	multiplierEmergency = decimal.RequireFromString("1.5")

	fractionSenior    = decimal.RequireFromString("0.10")
	fractionEmployee  = decimal.RequireFromString("0.50")
	fractionCorporate = decimal.RequireFromString("0.15")
	fractionInsurance = decimal.RequireFromString("0.20")
	fractionEmergency = decimal.RequireFromString("-0.25")
)

// AllComplexityLevels lists complexity tiers in ascending order.
var AllComplexityLevels = []ComplexityLevel{ComplexityStandard, ComplexityModerate, ComplexityHigh}

// AllUrgencyLevels lists urgency tiers in ascending order.
var AllUrgencyLevels = []UrgencyLevel{UrgencyRoutine, UrgencyUrgent, UrgencyEmergency}

// AllPatientCategories lists every patient category.
var AllPatientCategories = []PatientCategory{
	CategoryGeneral, CategorySeniorCitizen, CategoryEmployee,
	CategoryCorporate, CategoryInsurance, CategoryEmergency,
}

// IsValid reports whether c is a known complexity tier.
func (c ComplexityLevel) IsValid() bool {
	switch c {
	case ComplexityStandard, ComplexityModerate, ComplexityHigh:
		return true
	default:
		return false
	}
}

// Multiplier returns the fixed price multiplier for the tier.
// Unknown tiers return zero; callers validate first.
func (c ComplexityLevel) Multiplier() decimal.Decimal {
	switch c {
	case ComplexityStandard:
		return multiplierOne
	case ComplexityModerate:
		return multiplierModerate
	case ComplexityHigh:
		return multiplierHigh
	default:
		return decimal.Zero
	}
}

func (c ComplexityLevel) String() string {
	return string(c)
}

// IsValid reports whether u is a known urgency tier.
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyRoutine, UrgencyUrgent, UrgencyEmergency:
		return true
	default:
		return false
	}
}

// Multiplier returns the fixed price multiplier for the tier.
func (u UrgencyLevel) Multiplier() decimal.Decimal {
	switch u {
	case UrgencyRoutine:
		return multiplierOne
	case UrgencyUrgent:
		return multiplierUrgent
	case UrgencyEmergency:
		return multiplierEmergency
	default:
		return decimal.Zero
	}
}

func (u UrgencyLevel) String() string {
	return string(u)
}

// IsValid reports whether pc is a known patient category.
func (pc PatientCategory) IsValid() bool {
	switch pc {
	case CategoryGeneral, CategorySeniorCitizen, CategoryEmployee,
		CategoryCorporate, CategoryInsurance, CategoryEmergency:
		return true
	default:
		return false
	}
}

// DiscountFraction returns the category discount as a fraction of the adjusted amount.
// A negative fraction is a surcharge.
func (pc PatientCategory) DiscountFraction() decimal.Decimal {
	switch pc {
	case CategoryGeneral:
		return decimal.Zero
	case CategorySeniorCitizen:
		return fractionSenior
	case CategoryEmployee:
		return fractionEmployee
	case CategoryCorporate:
		return fractionCorporate
	case CategoryInsurance:
		return fractionInsurance
	case CategoryEmergency:
		return fractionEmergency
	default:
		return decimal.Zero
	}
}

// IsSurcharge reports whether the category increases the bill.
func (pc PatientCategory) IsSurcharge() bool {
	return pc.DiscountFraction().IsNegative()
}

func (pc PatientCategory) String() string {
	return string(pc)
}

// IsValid reports whether s is a known package status.
func (s PackageStatus) IsValid() bool {
	switch s {
	case PackageActive, PackageCompleted, PackageUnderutilized, PackageExceeded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the episode is closed. Terminal states never transition.
func (s PackageStatus) IsTerminal() bool {
	switch s {
	case PackageCompleted, PackageUnderutilized, PackageExceeded:
		return true
	default:
		return false
	}
}

func (s PackageStatus) String() string {
	return string(s)
}

// LogFields returns structured logging fields for audit trails.
func (s PackageStatus) LogFields() map[string]any {
	return map[string]any{
		"package_status": string(s),
		"is_terminal":    s.IsTerminal(),
		"is_valid":       s.IsValid(),
	}
}

// normalizeEnum folds case and drops separators so "senior citizen",
// "senior-citizen" and "SeniorCitizen" all compare equal.
func normalizeEnum(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// ParseComplexityLevel parses a complexity tier name.
func ParseComplexityLevel(s string) (ComplexityLevel, error) {
	for _, c := range AllComplexityLevels {
		if normalizeEnum(string(c)) == normalizeEnum(s) {
			return c, nil
		}
	}
	return "", ErrInvalidComplexity
}

// ParseUrgencyLevel parses an urgency tier name.
func ParseUrgencyLevel(s string) (UrgencyLevel, error) {
	for _, u := range AllUrgencyLevels {
		if normalizeEnum(string(u)) == normalizeEnum(s) {
			return u, nil
		}
	}
	return "", ErrInvalidUrgency
}

// ParsePatientCategory parses a patient category name.
func ParsePatientCategory(s string) (PatientCategory, error) {
	for _, pc := range AllPatientCategories {
		if normalizeEnum(string(pc)) == normalizeEnum(s) {
			return pc, nil
		}
	}
	return "", ErrInvalidCategory
}
