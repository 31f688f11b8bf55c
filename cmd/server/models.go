package main

import (
	"github.com/liamcoop/adjudication/adjudication"
	"github.com/liamcoop/adjudication/internal/logger"
	"github.com/liamcoop/adjudication/rules"
)

// AdjudicateRequest is the body of the adjudication endpoints
type AdjudicateRequest struct {
	BillAmount    float64                     `json:"billAmount"`
	IsInNetwork   bool                        `json:"isInNetwork"`
	PolicyBenefit *adjudication.PolicyBenefit `json:"policyBenefit"`
	CompanyID     string                      `json:"companyId,omitempty"`
}

func (r AdjudicateRequest) claim() adjudication.ClaimInput {
	return adjudication.ClaimInput{BillAmount: r.BillAmount, IsInNetwork: r.IsInNetwork}
}

// AdjudicateResponse carries the unrounded breakdown, its rounded display
// view and the review rules that matched
type AdjudicateResponse struct {
	Formula string                    `json:"formula"`
	Details adjudication.ClaimDetails `json:"details"`
	Display adjudication.ClaimDetails `json:"display"`
	Flags   []FlagResponse            `json:"flags"`
}

// FlagResponse is one matched review rule
type FlagResponse struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
}

// CompareResponse reports both formulas side by side
type CompareResponse struct {
	CanonicalFormula string `json:"canonicalFormula"`
	LegacyFormula    string `json:"legacyFormula"`
	adjudication.Divergence
}

// CreateCompanyRequest is the body for creating a company
type CreateCompanyRequest struct {
	Name string `json:"name"`
}

// CompaniesListResponse lists companies
type CompaniesListResponse struct {
	Companies []Company `json:"companies"`
}

// ReloadResponse reports a company engine rebuilt from its stored rules
type ReloadResponse struct {
	CompanyID   string `json:"companyId"`
	ActiveRules int    `json:"activeRules"`
}

// CreateRuleRequest is the body for creating a review rule.
// Active defaults to true.
type CreateRuleRequest struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Active     *bool  `json:"active,omitempty"`
}

// UpdateRuleRequest is the body for updating a review rule.
// Omitted fields keep their stored values.
type UpdateRuleRequest struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Active     *bool  `json:"active,omitempty"`
}

// RulesListResponse lists a company's review rules
type RulesListResponse struct {
	Rules []*rules.Rule `json:"rules"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the health check body
type HealthResponse struct {
	Status          string       `json:"status"`
	Storage         string       `json:"storage"`
	Formula         string       `json:"formula"`
	CompaniesLoaded int          `json:"companiesLoaded"`
	LogLevel        string       `json:"logLevel"`
	Logging         logger.Stats `json:"logging"`
	Error           string       `json:"error,omitempty"`
}
