package adjudication

import (
	"fmt"
	"math"
)

// PrepareSubmission runs the checks a claim form performs before posting a
// claim and returns the amounts to submit. The claim amount is the rounded
// canonical total claimable, never more than the usage left in cents.
func PrepareSubmission(in ClaimInput, benefit *PolicyBenefit) (Submission, error) {
	if !validBillAmount(in.BillAmount) || math.IsInf(in.BillAmount, 1) {
		return Submission{}, fmt.Errorf("%w, got %v", ErrInvalidBillAmount, in.BillAmount)
	}
	if err := ValidatePolicyBenefit(benefit); err != nil {
		return Submission{}, err
	}

	raw := canonical.Calculate(in, benefit)
	if !finite(raw.TotalClaimable) || !finite(raw.AmountToBeCoPaid) {
		return Submission{}, fmt.Errorf("%w: benefit terms produce no finite claim amount", ErrInvalidBenefit)
	}
	details := Round(raw)

	usageLeft, _ := networkTerms(benefit, in.IsInNetwork)
	claimAmount := math.Min(details.TotalClaimable, RoundAmountDown(usageLeft))

	return Submission{
		BenefitName:      benefit.BenefitName,
		BillAmount:       details.BillAmount,
		IsInNetwork:      details.IsInNetwork,
		AmountToBeCoPaid: details.AmountToBeCoPaid,
		ClaimAmount:      claimAmount,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
