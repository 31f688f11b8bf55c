package adjudication

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidatePolicyBenefit_Valid(t *testing.T) {
	benefits := []*PolicyBenefit{
		{},
		{CopayType: CopayFixed, CopayAmount: 25, InNetworkPay: 100, OutNetworkPay: 0},
		{CopayType: CopayPercentage, CopayPercentage: 100, InNetworkUsageLeft: 1e9},
		{InNetworkPay: math.NaN()},
	}

	for _, b := range benefits {
		if err := ValidatePolicyBenefit(b); err != nil {
			t.Errorf("ValidatePolicyBenefit(%+v) returned error: %v", b, err)
		}
	}
}

func TestValidatePolicyBenefit_Nil(t *testing.T) {
	if err := ValidatePolicyBenefit(nil); !errors.Is(err, ErrMissingBenefit) {
		t.Errorf("ValidatePolicyBenefit(nil) = %v, want ErrMissingBenefit", err)
	}
}

func TestValidatePolicyBenefit_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		benefit *PolicyBenefit
		mention string
	}{
		{"Unknown copay type", &PolicyBenefit{CopayType: "Fixed"}, "copay type"},
		{"Negative in-network coverage", &PolicyBenefit{InNetworkMaxCoverage: -1}, "inNetworkMaxCoverage"},
		{"Negative out-network coverage", &PolicyBenefit{OutNetworkMaxCoverage: -1}, "outNetworkMaxCoverage"},
		{"Negative in-network usage", &PolicyBenefit{InNetworkUsageLeft: -0.01}, "inNetworkUsageLeft"},
		{"Negative out-network usage", &PolicyBenefit{OutNetworkUsageLeft: -10}, "outNetworkUsageLeft"},
		{"Negative copay amount", &PolicyBenefit{CopayAmount: -25}, "copayAmount"},
		{"In-network pay above 100", &PolicyBenefit{InNetworkPay: 100.5}, "inNetworkPay"},
		{"Out-network pay negative", &PolicyBenefit{OutNetworkPay: -1}, "outNetworkPay"},
		{"Copay percentage above 100", &PolicyBenefit{CopayPercentage: 101}, "copayPercentage"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePolicyBenefit(tc.benefit)
			if !errors.Is(err, ErrInvalidBenefit) {
				t.Fatalf("ValidatePolicyBenefit() = %v, want ErrInvalidBenefit", err)
			}
			if !strings.Contains(err.Error(), tc.mention) {
				t.Errorf("error %q should mention %q", err.Error(), tc.mention)
			}
		})
	}
}
