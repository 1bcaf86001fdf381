package service

import (
	"github.com/shopspring/decimal"

	"github.com/tiered-billing-engine/internal/domain"
)

// Money fields decode from JSON numbers ("1500.00" style major units) or numeric strings.

// EstimateRequest asks for a procedure estimate, optionally adjudicated against a named plan.
type EstimateRequest struct {
	RequestID     string                   `json:"requestId,omitempty"`
	Components    []domain.ServiceLineItem `json:"components"`
	Complexity    string                   `json:"complexity"`
	Urgency       string                   `json:"urgency"`
	Category      string                   `json:"category"`
	InsurancePlan string                   `json:"insurancePlan,omitempty"`
}

// AdjudicateRequest splits a pre-insurance total. Plan may be given by name or inline;
// neither means no coverage.
type AdjudicateRequest struct {
	RequestID         string                `json:"requestId,omitempty"`
	PreInsuranceTotal decimal.Decimal       `json:"preInsuranceTotal"`
	InsurancePlan     string                `json:"insurancePlan,omitempty"`
	Plan              *domain.InsurancePlan `json:"plan,omitempty"`
}

// ReconcileRequest closes a package episode. The package is given inline or by catalog name.
type ReconcileRequest struct {
	RequestID    string                    `json:"requestId,omitempty"`
	Package      *domain.PackageDefinition `json:"package,omitempty"`
	PackageName  string                    `json:"packageName,omitempty"`
	ServicesUsed []domain.ServiceUsage     `json:"servicesUsed"`
}

// IncentiveRequest is an IncentiveRecord. When RuleKey is set the rule comes from the
// catalog and any inline rule is ignored.
type IncentiveRequest struct {
	RequestID string `json:"requestId,omitempty"`
	domain.IncentiveRecord
	RuleKey string `json:"ruleKey,omitempty"`
}

// SplitRequest divides a payable total between parties.
type SplitRequest struct {
	RequestID string              `json:"requestId,omitempty"`
	Total     decimal.Decimal     `json:"total"`
	Shares    []domain.SplitShare `json:"shares"`
}

// PaymentRequest asks the gateway for a hosted payment page.
type PaymentRequest struct {
	RequestID             string          `json:"requestId,omitempty"`
	MerchantTransactionID string          `json:"merchantTransactionId,omitempty"`
	MerchantUserID        string          `json:"merchantUserId"`
	Amount                decimal.Decimal `json:"amount"`
	RedirectURL           string          `json:"redirectUrl,omitempty"`
	CallbackURL           string          `json:"callbackUrl,omitempty"`
	MobileNumber          string          `json:"mobileNumber,omitempty"`
}
