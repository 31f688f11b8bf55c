package adjudication

import (
	"fmt"
	"math"
	"strings"
)

// Calculator adjudicates claim lines against policy benefits.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	formula Formula
}

// NewCalculator creates a calculator that applies the given formula for the
// final payable amount
func NewCalculator(formula Formula) *Calculator {
	return &Calculator{formula: formula}
}

// Formula returns the formula the calculator applies
func (c *Calculator) Formula() Formula {
	return c.formula
}

var canonical = NewCalculator(FormulaPayPercentage)

// Calculate adjudicates one claim line with the official pay-percentage formula
func Calculate(billAmount float64, benefit *PolicyBenefit, isInNetwork bool) ClaimDetails {
	return canonical.Calculate(ClaimInput{BillAmount: billAmount, IsInNetwork: isInNetwork}, benefit)
}

// Zero returns the result used when there is nothing to adjudicate yet
func Zero() ClaimDetails {
	return ClaimDetails{}
}

// Calculate computes copay, claimable-after-copay and the final payable amount.
// It never panics: a missing or invalid benefit, or a bill amount that is not
// positive, yields Zero(). Amounts are not rounded.
func (c *Calculator) Calculate(in ClaimInput, benefit *PolicyBenefit) ClaimDetails {
	if !validBillAmount(in.BillAmount) || benefit == nil {
		return Zero()
	}
	if err := ValidatePolicyBenefit(benefit); err != nil {
		return Zero()
	}

	usageLeft, payPercent := networkTerms(benefit, in.IsInNetwork)

	copayType := benefit.CopayType
	if copayType == "" {
		copayType = CopayFixed
	}

	var copay float64
	switch copayType {
	case CopayPercentage:
		copay = in.BillAmount * (benefit.CopayPercentage / 100)
	default:
		copay = math.Min(benefit.CopayAmount, in.BillAmount)
	}

	claimableAfterCopay := math.Max(in.BillAmount-copay, 0)

	payable := claimableAfterCopay
	if c.formula == FormulaPayPercentage {
		payable = claimableAfterCopay * (payPercent / 100)
	}
	totalClaimable := math.Max(math.Min(payable, usageLeft), 0)

	return ClaimDetails{
		InNetworkCoverage:   benefit.InNetworkMaxCoverage,
		OutNetworkCoverage:  benefit.OutNetworkMaxCoverage,
		InNetworkUsageLeft:  benefit.InNetworkUsageLeft,
		OutNetworkUsageLeft: benefit.OutNetworkUsageLeft,
		InNetworkPay:        benefit.InNetworkPay,
		OutNetworkPay:       benefit.OutNetworkPay,
		CopayAmount:         benefit.CopayAmount,
		CopayPercentage:     benefit.CopayPercentage,
		BillAmount:          in.BillAmount,
		ClaimableAfterCopay: claimableAfterCopay,
		TotalClaimable:      totalClaimable,
		IsInNetwork:         in.IsInNetwork,
		Frequency:           benefit.Frequency,
		CopayType:           copayType,
		AmountToBeCoPaid:    copay,
	}
}

// networkTerms selects the usage left and pay percentage that apply to the
// claim's network mode. Coverage ceilings are echoed for both modes and do
// not enter the math.
func networkTerms(b *PolicyBenefit, inNetwork bool) (usageLeft, payPercent float64) {
	if inNetwork {
		return b.InNetworkUsageLeft, b.InNetworkPay
	}
	return b.OutNetworkUsageLeft, b.OutNetworkPay
}

// Compare adjudicates a claim line with both formulas
func Compare(in ClaimInput, benefit *PolicyBenefit) Divergence {
	canon := NewCalculator(FormulaPayPercentage).Calculate(in, benefit)
	legacy := NewCalculator(FormulaUsageCapOnly).Calculate(in, benefit)

	diff := legacy.TotalClaimable - canon.TotalClaimable
	return Divergence{
		Canonical:  canon,
		Legacy:     legacy,
		Difference: diff,
		Diverges:   diff != 0,
	}
}

// ParseFormula maps a formula name to a Formula. An empty name selects the
// pay-percentage formula.
func ParseFormula(name string) (Formula, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pay-percentage":
		return FormulaPayPercentage, nil
	case "usage-cap-only":
		return FormulaUsageCapOnly, nil
	default:
		return FormulaPayPercentage, fmt.Errorf("unknown adjudication formula: %s (use: pay-percentage, usage-cap-only)", name)
	}
}
