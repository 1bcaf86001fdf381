package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tiered-billing-engine/internal/domain"
)

// EstimateRepository persists produced estimates. The full estimate is stored as
// JSONB; the headline totals are duplicated into NUMERIC columns for reporting.
type EstimateRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewEstimateRepository creates a new estimate repository
func NewEstimateRepository(db *pgxpool.Pool, logger *logrus.Logger) *EstimateRepository {
	return &EstimateRepository{
		db:  db,
		log: logger,
	}
}

// SaveEstimate inserts an estimate. A missing ID is generated.
func (r *EstimateRepository) SaveEstimate(ctx context.Context, record *domain.EstimateRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	} else if _, err := uuid.Parse(record.ID); err != nil {
		return domain.NewValidationError("id", "must be a UUID", record.ID)
	}

	payload, err := json.Marshal(record.Estimate)
	if err != nil {
		return fmt.Errorf("marshaling estimate: %w", err)
	}

	query := `
		INSERT INTO estimates (
			id, request_id, plan_name, pre_insurance_total, patient_responsibility,
			amount_after_deductible, estimate
		) VALUES (
			$1::uuid, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7
		)
		RETURNING created_at`

	var afterDeductible *string
	if record.AmountAfterDeductible.Valid {
		s := record.AmountAfterDeductible.Decimal.String()
		afterDeductible = &s
	}

	err = r.db.QueryRow(ctx, query,
		record.ID,
		record.RequestID,
		record.PlanName,
		record.Estimate.PreInsuranceTotal.String(),
		record.Estimate.PatientResponsibility.String(),
		afterDeductible,
		payload,
	).Scan(&record.CreatedAt)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"estimate_id": record.ID,
			"request_id":  record.RequestID,
			"error":       err,
		}).Error("Failed to save estimate")
		return fmt.Errorf("saving estimate: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"estimate_id":         record.ID,
		"plan":                record.PlanName,
		"pre_insurance_total": record.Estimate.PreInsuranceTotal.StringFixed(2),
	}).Debug("Estimate saved")

	return nil
}

// GetEstimate retrieves an estimate by ID
func (r *EstimateRepository) GetEstimate(ctx context.Context, id string) (*domain.EstimateRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewValidationError("id", "must be a UUID", id)
	}

	query := `
		SELECT id::text, request_id, plan_name, amount_after_deductible::text, estimate, created_at
		FROM estimates
		WHERE id = $1::uuid`

	var record domain.EstimateRecord
	var payload []byte
	var afterDeductible *string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.RequestID,
		&record.PlanName,
		&afterDeductible,
		&payload,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("estimate %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"estimate_id": id,
			"error":       err,
		}).Error("Failed to get estimate")
		return nil, fmt.Errorf("getting estimate: %w", err)
	}

	if err := json.Unmarshal(payload, &record.Estimate); err != nil {
		return nil, fmt.Errorf("decoding estimate %s: %w", id, err)
	}
	if afterDeductible != nil {
		d, err := decimal.NewFromString(*afterDeductible)
		if err != nil {
			return nil, fmt.Errorf("decoding amount after deductible for %s: %w", id, err)
		}
		record.AmountAfterDeductible = decimal.NewNullDecimal(d)
	}
	return &record, nil
}
