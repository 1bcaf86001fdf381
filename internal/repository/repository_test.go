package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tiered-billing-engine/internal/catalog"
	"github.com/tiered-billing-engine/internal/database"
	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/engine"
)

// generateTestPassword creates a random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()
	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	migrationRunner, err := database.NewMigrationRunner(config.URL(), "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}
	if err := migrationRunner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		migrationRunner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestCatalogRepository_SeedAndLookup(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCatalogRepository(db.Pool, testLogger())
	ctx := context.Background()

	err := repo.Seed(ctx, catalog.DefaultPlans(), catalog.DefaultPackages(), catalog.DefaultIncentiveRules())
	require.NoError(t, err)

	// seeding twice is idempotent
	err = repo.Seed(ctx, catalog.DefaultPlans(), catalog.DefaultPackages(), catalog.DefaultIncentiveRules())
	require.NoError(t, err)

	plans, err := repo.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, len(catalog.DefaultPlans()))

	plan, err := repo.GetPlan(ctx, "  star health GOLD ")
	require.NoError(t, err)
	assert.Equal(t, "Star Health Gold", plan.Name)
	assert.True(t, plan.CoverageFraction.Equal(decimal.RequireFromString("0.80")))
	assert.True(t, plan.Copay.Equal(decimal.NewFromInt(50)))
	assert.True(t, plan.Deductible.Equal(decimal.NewFromInt(1500)))

	pkg, err := repo.GetPackage(ctx, "Cardiac Checkup")
	require.NoError(t, err)
	assert.True(t, pkg.DiscountedAmount.Equal(decimal.NewFromInt(1250)))

	pkgs, err := repo.ListPackages(ctx)
	require.NoError(t, err)
	assert.Len(t, pkgs, len(catalog.DefaultPackages()))

	rule, err := repo.GetIncentiveRule(ctx, "CARDIOLOGY")
	require.NoError(t, err)
	assert.True(t, rule.BasePercentage.Equal(decimal.NewFromInt(7)))
	assert.True(t, rule.QualityMultiplier.Equal(decimal.RequireFromString("1.2")))
}

func TestCatalogRepository_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCatalogRepository(db.Pool, testLogger())
	ctx := context.Background()

	_, err := repo.GetPlan(ctx, "Nonexistent Plan")
	assert.True(t, errors.Is(err, domain.ErrPlanNotFound))

	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "insurance plan", nf.Kind)

	_, err = repo.GetPackage(ctx, "Nothing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = repo.GetIncentiveRule(ctx, "nobody")
	assert.True(t, errors.Is(err, domain.ErrPlanNotFound))
}

func TestCatalogRepository_UpsertReplacesTerms(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCatalogRepository(db.Pool, testLogger())
	ctx := context.Background()

	plan := domain.InsurancePlan{
		Name:             "Regional Co-op",
		CoverageFraction: decimal.RequireFromString("0.5"),
		Copay:            decimal.NewFromInt(10),
		Deductible:       decimal.NewFromInt(100),
	}
	require.NoError(t, repo.UpsertPlan(ctx, plan))

	plan.Name = "REGIONAL CO-OP"
	plan.CoverageFraction = decimal.RequireFromString("0.65")
	require.NoError(t, repo.UpsertPlan(ctx, plan))

	plans, err := repo.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.True(t, plans[0].CoverageFraction.Equal(decimal.RequireFromString("0.65")))

	// the CHECK constraint rejects a fraction above one
	plan.CoverageFraction = decimal.RequireFromString("1.5")
	assert.Error(t, repo.UpsertPlan(ctx, plan))
}

func TestEstimateRepository_SaveAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEstimateRepository(db.Pool, testLogger())
	ctx := context.Background()

	est, err := engine.Estimate([]domain.ServiceLineItem{
		{Name: "Consultation", BaseAmount: decimal.NewFromInt(1500), IsRequired: true},
		{Name: "ECG", BaseAmount: decimal.NewFromInt(2000), IsRequired: true},
		{Name: "Echo", BaseAmount: decimal.NewFromInt(1000)},
	}, domain.ComplexityModerate, domain.UrgencyRoutine, domain.CategorySeniorCitizen)
	require.NoError(t, err)

	record := &domain.EstimateRecord{RequestID: "req-1", Estimate: est}
	require.NoError(t, repo.SaveEstimate(ctx, record))
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.CreatedAt.IsZero())

	got, err := repo.GetEstimate(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "req-1", got.RequestID)
	assert.True(t, got.Estimate.PreInsuranceTotal.Equal(decimal.NewFromInt(5265)))
	assert.Len(t, got.Estimate.Components, 3)
	assert.Equal(t, domain.CategorySeniorCitizen, got.Estimate.Category)

	assert.False(t, got.AmountAfterDeductible.Valid)

	insured := &domain.EstimateRecord{
		PlanName:              "Star Health Gold",
		Estimate:              est,
		AmountAfterDeductible: decimal.NewNullDecimal(decimal.NewFromInt(3765)),
	}
	require.NoError(t, repo.SaveEstimate(ctx, insured))
	got, err = repo.GetEstimate(ctx, insured.ID)
	require.NoError(t, err)
	assert.Equal(t, "Star Health Gold", got.PlanName)
	require.True(t, got.AmountAfterDeductible.Valid)
	assert.True(t, got.AmountAfterDeductible.Decimal.Equal(decimal.NewFromInt(3765)))

	_, err = repo.GetEstimate(ctx, uuid.New().String())
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = repo.GetEstimate(ctx, "not-a-uuid")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
