package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/liamcoop/adjudication/adjudication"
)

// Top-level objects available to rule expressions
const (
	FactClaim        = "Claim"
	FactBenefit      = "Benefit"
	FactAdjudication = "Adjudication"
)

// FactObjects lists every object a rule expression may reference
var FactObjects = []string{FactClaim, FactBenefit, FactAdjudication}

// NewEnv creates the CEL environment rule expressions are compiled against.
// Fact objects are dynamic maps; all amounts are doubles, so expressions
// should compare against double literals (5000.0, not 5000).
func NewEnv() (*cel.Env, error) {
	opts := make([]cel.EnvOption, 0, len(FactObjects))
	for _, name := range FactObjects {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// NewFacts builds the evaluation input for one adjudicated claim line.
// A nil benefit is exposed as an empty Benefit object.
func NewFacts(in adjudication.ClaimInput, benefit *adjudication.PolicyBenefit, details adjudication.ClaimDetails) map[string]any {
	benefitFacts := map[string]any{}
	if benefit != nil {
		benefitFacts = map[string]any{
			"benefitName":           benefit.BenefitName,
			"frequency":             benefit.Frequency,
			"inNetworkMaxCoverage":  benefit.InNetworkMaxCoverage,
			"outNetworkMaxCoverage": benefit.OutNetworkMaxCoverage,
			"inNetworkUsageLeft":    benefit.InNetworkUsageLeft,
			"outNetworkUsageLeft":   benefit.OutNetworkUsageLeft,
			"inNetworkPay":          benefit.InNetworkPay,
			"outNetworkPay":         benefit.OutNetworkPay,
			"copayType":             string(benefit.CopayType),
			"copayAmount":           benefit.CopayAmount,
			"copayPercentage":       benefit.CopayPercentage,
		}
	}

	return map[string]any{
		FactClaim: map[string]any{
			"billAmount":  in.BillAmount,
			"isInNetwork": in.IsInNetwork,
		},
		FactBenefit: benefitFacts,
		FactAdjudication: map[string]any{
			"amountToBeCoPaid":    details.AmountToBeCoPaid,
			"claimableAfterCopay": details.ClaimableAfterCopay,
			"totalClaimable":      details.TotalClaimable,
			"copayType":           string(details.CopayType),
			"isInNetwork":         details.IsInNetwork,
			"frequency":           details.Frequency,
		},
	}
}
