package adjudication

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// displayPlaces is the number of decimal places currency is shown with
const displayPlaces = 2

// RoundAmount rounds a currency amount half away from zero to two decimal
// places. NaN and infinities are returned unchanged.
func RoundAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(displayPlaces).InexactFloat64()
}

// RoundAmountDown truncates a currency amount toward zero at two decimal
// places. NaN and infinities are returned unchanged.
func RoundAmountDown(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).RoundDown(displayPlaces).InexactFloat64()
}

// FormatAmount renders a currency amount with exactly two decimal places
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(displayPlaces)
}

// Round returns a copy of d with every currency amount rounded for display.
// Percentages are left as entered. Never feed the result back into Calculate.
func Round(d ClaimDetails) ClaimDetails {
	d.InNetworkCoverage = RoundAmount(d.InNetworkCoverage)
	d.OutNetworkCoverage = RoundAmount(d.OutNetworkCoverage)
	d.InNetworkUsageLeft = RoundAmount(d.InNetworkUsageLeft)
	d.OutNetworkUsageLeft = RoundAmount(d.OutNetworkUsageLeft)
	d.CopayAmount = RoundAmount(d.CopayAmount)
	d.BillAmount = RoundAmount(d.BillAmount)
	d.ClaimableAfterCopay = RoundAmount(d.ClaimableAfterCopay)
	d.TotalClaimable = RoundAmount(d.TotalClaimable)
	d.AmountToBeCoPaid = RoundAmount(d.AmountToBeCoPaid)
	return d
}
