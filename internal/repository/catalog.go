package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tiered-billing-engine/internal/domain"
)

// CatalogRepository serves insurance plans, packages and incentive rules from Postgres.
// Names are trimmed and matched case-insensitively, mirroring the LOWER() unique indexes.
type CatalogRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *pgxpool.Pool, logger *logrus.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:  db,
		log: logger,
	}
}

// NUMERIC columns are selected as text and parsed with shopspring/decimal so no
// value passes through float64.
const (
	planColumns    = `name, coverage_fraction::text, copay::text, deductible::text`
	packageColumns = `name, package_type, total_amount::text, discounted_amount::text`
	ruleColumns    = `rule_key, base_percentage::text, procedure_bonus::text, quality_multiplier::text, target_bonus_threshold::text`
)

// GetPlan retrieves an insurance plan by name
func (r *CatalogRepository) GetPlan(ctx context.Context, name string) (*domain.InsurancePlan, error) {
	query := `SELECT ` + planColumns + ` FROM insurance_plans WHERE LOWER(name) = LOWER($1)`
	name = strings.TrimSpace(name)

	plan, err := scanPlan(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("insurance plan", name)
		}
		r.log.WithFields(logrus.Fields{
			"plan":  name,
			"error": err,
		}).Error("Failed to get insurance plan")
		return nil, fmt.Errorf("getting insurance plan: %w", err)
	}
	return plan, nil
}

// ListPlans returns every insurance plan ordered by name
func (r *CatalogRepository) ListPlans(ctx context.Context) ([]domain.InsurancePlan, error) {
	query := `SELECT ` + planColumns + ` FROM insurance_plans ORDER BY LOWER(name)`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("Failed to list insurance plans")
		return nil, fmt.Errorf("listing insurance plans: %w", err)
	}
	defer rows.Close()

	plans := []domain.InsurancePlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning insurance plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating insurance plans: %w", err)
	}
	return plans, nil
}

// GetPackage retrieves a package definition by name
func (r *CatalogRepository) GetPackage(ctx context.Context, name string) (*domain.PackageDefinition, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE LOWER(name) = LOWER($1)`
	name = strings.TrimSpace(name)

	pkg, err := scanPackage(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("package", name)
		}
		r.log.WithFields(logrus.Fields{
			"package": name,
			"error":   err,
		}).Error("Failed to get package")
		return nil, fmt.Errorf("getting package: %w", err)
	}
	return pkg, nil
}

// ListPackages returns every package definition ordered by name
func (r *CatalogRepository) ListPackages(ctx context.Context) ([]domain.PackageDefinition, error) {
	query := `SELECT ` + packageColumns + ` FROM packages ORDER BY LOWER(name)`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("Failed to list packages")
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	defer rows.Close()

	pkgs := []domain.PackageDefinition{}
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning package: %w", err)
		}
		pkgs = append(pkgs, *pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating packages: %w", err)
	}
	return pkgs, nil
}

// GetIncentiveRule retrieves the incentive rule for a department or provider key
func (r *CatalogRepository) GetIncentiveRule(ctx context.Context, key string) (*domain.IncentiveRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM incentive_rules WHERE LOWER(rule_key) = LOWER($1)`
	key = strings.TrimSpace(key)

	var rule domain.IncentiveRule
	var base, bonus, multiplier, threshold string
	err := r.db.QueryRow(ctx, query, key).Scan(&rule.Key, &base, &bonus, &multiplier, &threshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("incentive rule", key)
		}
		r.log.WithFields(logrus.Fields{
			"rule":  key,
			"error": err,
		}).Error("Failed to get incentive rule")
		return nil, fmt.Errorf("getting incentive rule: %w", err)
	}

	if err := parseDecimals(
		field{base, &rule.BasePercentage},
		field{bonus, &rule.ProcedureBonus},
		field{multiplier, &rule.QualityMultiplier},
		field{threshold, &rule.TargetBonusThreshold},
	); err != nil {
		return nil, fmt.Errorf("decoding incentive rule %q: %w", key, err)
	}
	return &rule, nil
}

const (
	upsertPlanSQL = `
		INSERT INTO insurance_plans (name, coverage_fraction, copay, deductible)
		VALUES ($1, $2::numeric, $3::numeric, $4::numeric)
		ON CONFLICT ((LOWER(name))) DO UPDATE SET
			coverage_fraction = EXCLUDED.coverage_fraction,
			copay = EXCLUDED.copay,
			deductible = EXCLUDED.deductible,
			updated_at = NOW()`

	upsertPackageSQL = `
		INSERT INTO packages (name, package_type, total_amount, discounted_amount)
		VALUES ($1, $2, $3::numeric, $4::numeric)
		ON CONFLICT ((LOWER(name))) DO UPDATE SET
			package_type = EXCLUDED.package_type,
			total_amount = EXCLUDED.total_amount,
			discounted_amount = EXCLUDED.discounted_amount,
			updated_at = NOW()`

	upsertRuleSQL = `
		INSERT INTO incentive_rules (rule_key, base_percentage, procedure_bonus, quality_multiplier, target_bonus_threshold)
		VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5::numeric)
		ON CONFLICT ((LOWER(rule_key))) DO UPDATE SET
			base_percentage = EXCLUDED.base_percentage,
			procedure_bonus = EXCLUDED.procedure_bonus,
			quality_multiplier = EXCLUDED.quality_multiplier,
			target_bonus_threshold = EXCLUDED.target_bonus_threshold,
			updated_at = NOW()`
)

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertPlan(ctx context.Context, q execer, plan domain.InsurancePlan) error {
	_, err := q.Exec(ctx, upsertPlanSQL,
		plan.Name,
		plan.CoverageFraction.String(),
		plan.Copay.String(),
		plan.Deductible.String(),
	)
	return err
}

func upsertPackage(ctx context.Context, q execer, pkg domain.PackageDefinition) error {
	_, err := q.Exec(ctx, upsertPackageSQL,
		pkg.Name,
		pkg.Type,
		pkg.TotalAmount.String(),
		pkg.DiscountedAmount.String(),
	)
	return err
}

func upsertRule(ctx context.Context, q execer, rule domain.IncentiveRule) error {
	_, err := q.Exec(ctx, upsertRuleSQL,
		rule.Key,
		rule.BasePercentage.String(),
		rule.ProcedureBonus.String(),
		rule.QualityMultiplier.String(),
		rule.TargetBonusThreshold.String(),
	)
	return err
}

// UpsertPlan inserts a plan or replaces the terms of an existing one with the same name
func (r *CatalogRepository) UpsertPlan(ctx context.Context, plan domain.InsurancePlan) error {
	if err := upsertPlan(ctx, r.db, plan); err != nil {
		r.log.WithFields(logrus.Fields{
			"plan":  plan.Name,
			"error": err,
		}).Error("Failed to upsert insurance plan")
		return fmt.Errorf("upserting insurance plan: %w", err)
	}
	return nil
}

// UpsertPackage inserts or updates a package definition
func (r *CatalogRepository) UpsertPackage(ctx context.Context, pkg domain.PackageDefinition) error {
	if err := upsertPackage(ctx, r.db, pkg); err != nil {
		r.log.WithFields(logrus.Fields{
			"package": pkg.Name,
			"error":   err,
		}).Error("Failed to upsert package")
		return fmt.Errorf("upserting package: %w", err)
	}
	return nil
}

// UpsertIncentiveRule inserts or updates an incentive rule keyed by rule.Key
func (r *CatalogRepository) UpsertIncentiveRule(ctx context.Context, rule domain.IncentiveRule) error {
	if err := upsertRule(ctx, r.db, rule); err != nil {
		r.log.WithFields(logrus.Fields{
			"rule":  rule.Key,
			"error": err,
		}).Error("Failed to upsert incentive rule")
		return fmt.Errorf("upserting incentive rule: %w", err)
	}
	return nil
}

// Seed upserts the given reference data in a single transaction.
func (r *CatalogRepository) Seed(ctx context.Context, plans []domain.InsurancePlan, pkgs []domain.PackageDefinition, rules []domain.IncentiveRule) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range plans {
		if err := upsertPlan(ctx, tx, p); err != nil {
			return fmt.Errorf("seeding plan %q: %w", p.Name, err)
		}
	}
	for _, p := range pkgs {
		if err := upsertPackage(ctx, tx, p); err != nil {
			return fmt.Errorf("seeding package %q: %w", p.Name, err)
		}
	}
	for _, rule := range rules {
		if err := upsertRule(ctx, tx, rule); err != nil {
			return fmt.Errorf("seeding incentive rule %q: %w", rule.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing seed transaction: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"plans":    len(plans),
		"packages": len(pkgs),
		"rules":    len(rules),
	}).Info("Reference data seeded")
	return nil
}

func scanPlan(row pgx.Row) (*domain.InsurancePlan, error) {
	var plan domain.InsurancePlan
	var coverage, copay, deductible string
	if err := row.Scan(&plan.Name, &coverage, &copay, &deductible); err != nil {
		return nil, err
	}
	if err := parseDecimals(
		field{coverage, &plan.CoverageFraction},
		field{copay, &plan.Copay},
		field{deductible, &plan.Deductible},
	); err != nil {
		return nil, fmt.Errorf("decoding plan %q: %w", plan.Name, err)
	}
	return &plan, nil
}

func scanPackage(row pgx.Row) (*domain.PackageDefinition, error) {
	var pkg domain.PackageDefinition
	var total, discounted string
	if err := row.Scan(&pkg.Name, &pkg.Type, &total, &discounted); err != nil {
		return nil, err
	}
	if err := parseDecimals(
		field{total, &pkg.TotalAmount},
		field{discounted, &pkg.DiscountedAmount},
	); err != nil {
		return nil, fmt.Errorf("decoding package %q: %w", pkg.Name, err)
	}
	return &pkg, nil
}

type field struct {
	raw string
	dst *decimal.Decimal
}

func parseDecimals(fields ...field) error {
	for _, f := range fields {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}
