package adjudication

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingBenefit is returned when no policy benefit is selected
	ErrMissingBenefit = errors.New("policy benefit is required")

	// ErrInvalidBenefit wraps every policy benefit validation failure
	ErrInvalidBenefit = errors.New("invalid policy benefit")

	// ErrInvalidBillAmount is returned when a bill amount is not a positive number
	ErrInvalidBillAmount = errors.New("bill amount must be greater than zero")
)

// ValidatePolicyBenefit checks the fields the calculation depends on.
// NaN values are not rejected here; they propagate through the arithmetic.
func ValidatePolicyBenefit(b *PolicyBenefit) error {
	if b == nil {
		return ErrMissingBenefit
	}

	switch b.CopayType {
	case "", CopayFixed, CopayPercentage:
	default:
		return fmt.Errorf("%w: unknown copay type %q (must be %q or %q)", ErrInvalidBenefit, b.CopayType, CopayFixed, CopayPercentage)
	}

	amounts := []struct {
		name  string
		value float64
	}{
		{"inNetworkMaxCoverage", b.InNetworkMaxCoverage},
		{"outNetworkMaxCoverage", b.OutNetworkMaxCoverage},
		{"inNetworkUsageLeft", b.InNetworkUsageLeft},
		{"outNetworkUsageLeft", b.OutNetworkUsageLeft},
		{"copayAmount", b.CopayAmount},
	}
	for _, a := range amounts {
		if a.value < 0 {
			return fmt.Errorf("%w: %s cannot be negative, got %v", ErrInvalidBenefit, a.name, a.value)
		}
	}

	percentages := []struct {
		name  string
		value float64
	}{
		{"inNetworkPay", b.InNetworkPay},
		{"outNetworkPay", b.OutNetworkPay},
		{"copayPercentage", b.CopayPercentage},
	}
	for _, p := range percentages {
		if p.value < 0 || p.value > 100 {
			return fmt.Errorf("%w: %s must be between 0 and 100, got %v", ErrInvalidBenefit, p.name, p.value)
		}
	}

	return nil
}

// validBillAmount reports whether a bill amount takes the full calculation
// path. Zero, negative and NaN amounts short-circuit to the zero result.
func validBillAmount(amount float64) bool {
	return amount > 0
}
