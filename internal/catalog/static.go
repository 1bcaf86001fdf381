// Package catalog holds the built-in reference data: insurance plans, packages and
// incentive rules. It backs lite mode and seeds the database.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tiered-billing-engine/internal/domain"
)

// Static is an immutable in-memory PlanCatalog. Name lookups are case-insensitive.
type Static struct {
	plans    map[string]domain.InsurancePlan
	packages map[string]domain.PackageDefinition
	rules    map[string]domain.IncentiveRule
}

// NewStatic builds a catalog from the given reference data.
func NewStatic(plans []domain.InsurancePlan, packages []domain.PackageDefinition, rules []domain.IncentiveRule) *Static {
	s := &Static{
		plans:    make(map[string]domain.InsurancePlan, len(plans)),
		packages: make(map[string]domain.PackageDefinition, len(packages)),
		rules:    make(map[string]domain.IncentiveRule, len(rules)),
	}
	for _, p := range plans {
		s.plans[NormalizeName(p.Name)] = p
	}
	for _, p := range packages {
		s.packages[NormalizeName(p.Name)] = p
	}
	for _, r := range rules {
		s.rules[NormalizeName(r.Key)] = r
	}
	return s
}

// Default returns the catalog seeded with the stock reference data.
func Default() *Static {
	return NewStatic(DefaultPlans(), DefaultPackages(), DefaultIncentiveRules())
}

// NormalizeName folds a reference-data name to its lookup key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *Static) GetPlan(_ context.Context, name string) (*domain.InsurancePlan, error) {
	p, ok := s.plans[NormalizeName(name)]
	if !ok {
		return nil, domain.NewNotFoundError("insurance plan", name)
	}
	return &p, nil
}

func (s *Static) ListPlans(_ context.Context) ([]domain.InsurancePlan, error) {
	out := make([]domain.InsurancePlan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Static) GetPackage(_ context.Context, name string) (*domain.PackageDefinition, error) {
	p, ok := s.packages[NormalizeName(name)]
	if !ok {
		return nil, domain.NewNotFoundError("package", name)
	}
	return &p, nil
}

func (s *Static) ListPackages(_ context.Context) ([]domain.PackageDefinition, error) {
	out := make([]domain.PackageDefinition, 0, len(s.packages))
	for _, p := range s.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Static) GetIncentiveRule(_ context.Context, key string) (*domain.IncentiveRule, error) {
	r, ok := s.rules[NormalizeName(key)]
	if !ok {
		return nil, domain.NewNotFoundError("incentive rule", key)
	}
	return &r, nil
}

// DefaultPlans returns the stock insurance plans.
func DefaultPlans() []domain.InsurancePlan {
	return []domain.InsurancePlan{
		plan("Star Health Gold", "0.80", "50", "1500"),
		plan("HDFC Ergo Silver", "0.70", "100", "2500"),
		plan("ICICI Lombard Basic", "0.60", "200", "5000"),
		plan("CGHS", "1.00", "0", "0"),
	}
}

// DefaultPackages returns the stock treatment packages.
func DefaultPackages() []domain.PackageDefinition {
	return []domain.PackageDefinition{
		pkg("Cardiac Checkup", "Diagnostic", "1500", "1250"),
		pkg("Master Health Checkup", "Diagnostic", "5000", "3500"),
		pkg("Normal Delivery", "Maternity", "45000", "38000"),
		pkg("Knee Replacement", "Surgical", "250000", "210000"),
		pkg("Cataract Surgery", "Surgical", "30000", "24000"),
	}
}

// DefaultIncentiveRules returns the stock department incentive rules.
func DefaultIncentiveRules() []domain.IncentiveRule {
	return []domain.IncentiveRule{
		rule("cardiology", "7.0", "500", "1.2", "100000"),
		rule("orthopedics", "6.0", "750", "1.15", "150000"),
		rule("general-medicine", "5.0", "200", "1.1", "60000"),
		rule("radiology", "4.5", "150", "1.1", "80000"),
	}
}

func plan(name, coverage, copay, deductible string) domain.InsurancePlan {
	return domain.InsurancePlan{
		Name:             name,
		CoverageFraction: decimal.RequireFromString(coverage),
		Copay:            decimal.RequireFromString(copay),
		Deductible:       decimal.RequireFromString(deductible),
	}
}

func pkg(name, kind, total, discounted string) domain.PackageDefinition {
	return domain.PackageDefinition{
		Name:             name,
		Type:             kind,
		TotalAmount:      decimal.RequireFromString(total),
		DiscountedAmount: decimal.RequireFromString(discounted),
	}
}

func rule(key, base, procedure, quality, threshold string) domain.IncentiveRule {
	return domain.IncentiveRule{
		Key:                  key,
		BasePercentage:       decimal.RequireFromString(base),
		ProcedureBonus:       decimal.RequireFromString(procedure),
		QualityMultiplier:    decimal.RequireFromString(quality),
		TargetBonusThreshold: decimal.RequireFromString(threshold),
	}
}
