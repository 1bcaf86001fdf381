package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	litecfg "github.com/tiered-billing-engine/internal/config"
	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/ledger"
	"github.com/tiered-billing-engine/internal/logging"
	"github.com/tiered-billing-engine/internal/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := litecfg.DefaultLiteConfig()
	cfg.DataDir = t.TempDir()

	server, err := NewServer(cfg, WithLogger(logging.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })
	return server
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func scenario() service.EstimateRequest {
	item := func(name, amount string, required bool) domain.ServiceLineItem {
		return domain.ServiceLineItem{Name: name, BaseAmount: decimal.RequireFromString(amount), IsRequired: required}
	}
	return service.EstimateRequest{
		Components: []domain.ServiceLineItem{
			item("Consultation", "3500", true),
			item("ECG", "500", true),
			item("Blood Panel", "800", true),
			item("Nursing", "300", false),
			item("Pharmacy", "400", false),
		},
		Complexity: "Moderate",
		Urgency:    "Routine",
		Category:   "SeniorCitizen",
	}
}

func TestNewServer(t *testing.T) {
	server := newTestServer(t)

	assert.NotNil(t, server.mcpServer)
	assert.NotNil(t, server.billing)
	_, isSQLite := server.ledger.(*ledger.SQLiteStore)
	assert.True(t, isSQLite)
	assert.FileExists(t, filepath.Join(server.config.DataDir, "ledger.db"))
}

func TestNewServer_LedgerDisabled(t *testing.T) {
	cfg := litecfg.DefaultLiteConfig()
	cfg.DataDir = t.TempDir()
	cfg.LedgerEnabled = false

	server, err := NewServer(cfg, WithLogger(logging.Discard()))
	require.NoError(t, err)
	defer server.Close()

	assert.IsType(t, ledger.NopStore{}, server.ledger)
}

func TestEstimateTool(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	req := scenario()
	req.InsurancePlan = "Star Health Gold"
	res, _, err := server.handleEstimate(ctx, nil, req)
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var resp service.EstimateResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Equal(t, "6435.00", resp.PreInsuranceTotal)
	assert.Equal(t, "3948.00", resp.InsuranceCoverage)
	assert.Equal(t, "2537.00", resp.PatientResponsibility)

	count, err := server.ledger.Count(ctx, ledger.KindEstimate)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEstimateTool_ErrorNamesField(t *testing.T) {
	server := newTestServer(t)

	req := scenario()
	req.Urgency = "Whenever"
	res, _, err := server.handleEstimate(context.Background(), nil, req)
	require.NoError(t, err, "billing failures are tool results, not protocol errors")

	assert.True(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, domain.ErrCodeInvalidInput)
	assert.Contains(t, text, `"urgency"`)
}

func TestAdjudicateTool(t *testing.T) {
	server := newTestServer(t)

	res, _, err := server.handleAdjudicate(context.Background(), nil, service.AdjudicateRequest{
		PreInsuranceTotal: decimal.NewFromInt(1000),
		InsurancePlan:     "Star Health Gold",
	})
	require.NoError(t, err)

	var resp service.AdjudicationResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Equal(t, "0.00", resp.InsuranceCoverage)
	assert.Equal(t, "1050.00", resp.PatientResponsibility)
}

func TestReconcileTool(t *testing.T) {
	server := newTestServer(t)

	res, _, err := server.handleReconcile(context.Background(), nil, service.ReconcileRequest{
		PackageName: "Cardiac Checkup",
		ServicesUsed: []domain.ServiceUsage{
			{Name: "ECG", IndividualRate: decimal.NewFromInt(500), Quantity: 1},
			{Name: "Echo", IndividualRate: decimal.NewFromInt(800), Quantity: 1},
		},
	})
	require.NoError(t, err)

	var resp service.ReconcileResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Equal(t, "Exceeded", resp.Status)

	res, _, err = server.handleReconcile(context.Background(), nil, service.ReconcileRequest{PackageName: "Space Tourism"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), domain.ErrCodePlanNotFound)
}

func TestIncentiveTool(t *testing.T) {
	server := newTestServer(t)

	res, _, err := server.handleIncentive(context.Background(), nil, service.IncentiveRequest{
		IncentiveRecord: domain.IncentiveRecord{
			Revenue:                  decimal.NewFromInt(125000),
			ProcedureCount:           18,
			QualityScore:             decimal.RequireFromString("9.2"),
			TargetAchievementPercent: decimal.RequireFromString("104.2"),
		},
		RuleKey: "Cardiology",
	})
	require.NoError(t, err)

	var resp service.IncentiveResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Equal(t, "19570.00", resp.Total)
}

func TestSplitTool(t *testing.T) {
	server := newTestServer(t)

	res, _, err := server.handleSplit(context.Background(), nil, service.SplitRequest{
		Total: decimal.RequireFromString("2537"),
		Shares: []domain.SplitShare{
			{Party: "patient", Fraction: decimal.RequireFromString("0.5")},
			{Party: "employer", Fraction: decimal.RequireFromString("0.5")},
		},
	})
	require.NoError(t, err)

	var resp service.SplitResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	require.Len(t, resp.Allocations, 2)
	assert.Equal(t, "1268.50", resp.Allocations[0].Amount)
	assert.Equal(t, "1268.50", resp.Allocations[1].Amount)

	res, _, err = server.handleSplit(context.Background(), nil, service.SplitRequest{Total: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListPlansTool(t *testing.T) {
	server := newTestServer(t)

	res, _, err := server.handleListPlans(context.Background(), nil, ListPlansParams{})
	require.NoError(t, err)

	var body struct {
		Plans []service.PlanView `json:"plans"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
	assert.NotEmpty(t, body.Plans)
}

func TestCatalogResources(t *testing.T) {
	server := newTestServer(t)

	res, err := server.readPlans(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, plansResourceURI, res.Contents[0].URI)
	assert.Contains(t, res.Contents[0].Text, "Star Health Gold")

	res, err = server.readPackages(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "Cardiac Checkup")
}

func TestErrorResult(t *testing.T) {
	res := errorResult(domain.NewValidationError("total", "must be positive", "-5"))
	assert.True(t, res.IsError)
	assert.Equal(t, `Error INVALID_INPUT in field "total": must be positive`, res.Content[0].(*mcp.TextContent).Text)

	res = errorResult(service.ErrPaymentsDisabled)
	assert.Equal(t, "Error PAYMENT_GATEWAY_ERROR: "+service.ErrPaymentsDisabled.Error(), res.Content[0].(*mcp.TextContent).Text)
}
