package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/service"
)

// ListPlansParams takes no arguments.
type ListPlansParams struct{}

// registerTools registers the billing tools with the MCP SDK.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "estimate_procedure_cost",
		Description: "Estimate a procedure's cost from its line items, complexity, urgency and patient category, optionally adjudicated against an insurance plan.",
		InputSchema: estimateSchema(),
	}, s.handleEstimate)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "adjudicate_insurance",
		Description: "Split a pre-insurance total into insurer coverage and patient responsibility using a deductible, coverage percentage and copay.",
		InputSchema: adjudicateSchema(),
	}, s.handleAdjudicate)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "reconcile_package",
		Description: "Compare services consumed during a package episode against the package price and classify utilization.",
		InputSchema: reconcileSchema(),
	}, s.handleReconcile)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "compute_incentive",
		Description: "Compute a provider's incentive payout from revenue, procedures, quality score and target achievement.",
		InputSchema: incentiveSchema(),
	}, s.handleIncentive)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "split_bill",
		Description: "Divide a payable total between parties by fraction, in whole cents that sum to the total.",
		InputSchema: splitSchema(),
	}, s.handleSplit)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_insurance_plans",
		Description: "List the insurance plans known to the catalog with their coverage terms.",
		InputSchema: emptySchema(),
	}, s.handleListPlans)

	s.logger.WithField("tool_count", 6).Debug("Registered MCP tools")
}

// registerResources exposes the reference catalog as read-only resources.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         plansResourceURI,
		Name:        "insurance-plans",
		Description: "Insurance plans and their coverage terms",
		MIMEType:    "application/json",
	}, s.readPlans)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         packagesResourceURI,
		Name:        "packages",
		Description: "Fixed-price treatment packages",
		MIMEType:    "application/json",
	}, s.readPackages)
}

const (
	plansResourceURI    = "billing://catalog/plans"
	packagesResourceURI = "billing://catalog/packages"
)

func (s *Server) handleEstimate(ctx context.Context, _ *mcp.CallToolRequest, params service.EstimateRequest) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, "estimate_procedure_cost", func() (any, error) {
		return s.billing.Estimate(ctx, params)
	})
}

func (s *Server) handleAdjudicate(ctx context.Context, _ *mcp.CallToolRequest, params service.AdjudicateRequest) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, "adjudicate_insurance", func() (any, error) {
		return s.billing.Adjudicate(ctx, params)
	})
}

func (s *Server) handleReconcile(ctx context.Context, _ *mcp.CallToolRequest, params service.ReconcileRequest) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, "reconcile_package", func() (any, error) {
		return s.billing.ReconcilePackage(ctx, params)
	})
}

func (s *Server) handleIncentive(ctx context.Context, _ *mcp.CallToolRequest, params service.IncentiveRequest) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, "compute_incentive", func() (any, error) {
		return s.billing.ComputeIncentive(ctx, params)
	})
}

func (s *Server) handleSplit(ctx context.Context, _ *mcp.CallToolRequest, params service.SplitRequest) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, "split_bill", func() (any, error) {
		return s.billing.SplitBill(ctx, params)
	})
}

func (s *Server) handleListPlans(ctx context.Context, _ *mcp.CallToolRequest, _ ListPlansParams) (*mcp.CallToolResult, any, error) {
	return s.run(ctx, "list_insurance_plans", func() (any, error) {
		plans, err := s.billing.ListPlans(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"plans": plans}, nil
	})
}

func (s *Server) readPlans(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	plans, err := s.billing.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(plansResourceURI, plans)
}

func (s *Server) readPackages(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	pkgs, err := s.billing.ListPackages(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(packagesResourceURI, pkgs)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "application/json", Text: string(data)}},
	}, nil
}

// run invokes a billing operation. Billing failures become IsError results, not
// protocol errors, so the agent sees which field was wrong.
func (s *Server) run(ctx context.Context, tool string, call func() (any, error)) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	log := s.logger.WithField("tool", tool)

	resp, err := call()
	if err != nil {
		log.WithError(err).WithField("code", domain.ErrorCode(err)).Warn("Tool call failed")
		return errorResult(err), nil, nil
	}

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		log.WithError(err).Error("Failed to encode tool result")
		return nil, nil, fmt.Errorf("encoding %s result: %w", tool, err)
	}

	log.WithFields(logrus.Fields{"duration_ms": time.Since(start).Milliseconds()}).Info("Tool invoked")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// errorResult creates a standardized error result for tool calls
func errorResult(err error) *mcp.CallToolResult {
	apiErr := domain.ToAPIError(err, "")

	text := fmt.Sprintf("Error %s: %s", apiErr.Code, apiErr.Message)
	if apiErr.Field != "" {
		text = fmt.Sprintf("Error %s in field %q: %s", apiErr.Code, apiErr.Field, apiErr.Message)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
