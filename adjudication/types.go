package adjudication

// CopayType selects how the copay portion of a bill is computed
type CopayType string

const (
	// CopayFixed charges a flat currency amount, capped at the bill amount
	CopayFixed CopayType = "fixed"

	// CopayPercentage charges a percentage (0-100) of the bill amount
	CopayPercentage CopayType = "percentage"
)

// PolicyBenefit describes one coverage line of a policy.
// Zero values mean "not specified": an empty CopayType is treated as fixed
// and an absent CopayAmount as 0.
type PolicyBenefit struct {
	BenefitName string `json:"benefitName"`
	Frequency   string `json:"frequency"`

	// Coverage ceilings are informational; they are echoed, not enforced
	InNetworkMaxCoverage  float64 `json:"inNetworkMaxCoverage"`
	OutNetworkMaxCoverage float64 `json:"outNetworkMaxCoverage"`

	// Remaining claimable currency per network mode; the hard cap
	InNetworkUsageLeft  float64 `json:"inNetworkUsageLeft"`
	OutNetworkUsageLeft float64 `json:"outNetworkUsageLeft"`

	// Percentage (0-100) of the post-copay bill paid by the insurer
	InNetworkPay  float64 `json:"inNetworkPay"`
	OutNetworkPay float64 `json:"outNetworkPay"`

	CopayType       CopayType `json:"copayType,omitempty"`
	CopayAmount     float64   `json:"copayAmount"`
	CopayPercentage float64   `json:"copayPercentage"`
}

// ClaimInput is the per-call claim line being adjudicated
type ClaimInput struct {
	BillAmount  float64 `json:"billAmount"`
	IsInNetwork bool    `json:"isInNetwork"`
}

// ClaimDetails is the adjudication breakdown for one claim line.
// It is derived on demand and never persisted by this package.
type ClaimDetails struct {
	InNetworkCoverage   float64   `json:"inNetworkCoverage"`
	OutNetworkCoverage  float64   `json:"outNetworkCoverage"`
	InNetworkUsageLeft  float64   `json:"inNetworkUsageLeft"`
	OutNetworkUsageLeft float64   `json:"outNetworkUsageLeft"`
	InNetworkPay        float64   `json:"inNetworkPay"`
	OutNetworkPay       float64   `json:"outNetworkPay"`
	CopayAmount         float64   `json:"copayAmount"`
	CopayPercentage     float64   `json:"copayPercentage"`
	BillAmount          float64   `json:"billAmount"`
	ClaimableAfterCopay float64   `json:"claimableAfterCopay"`
	TotalClaimable      float64   `json:"totalClaimable"`
	IsInNetwork         bool      `json:"isInNetwork"`
	Frequency           string    `json:"frequency"`
	CopayType           CopayType `json:"copayType"`
	AmountToBeCoPaid    float64   `json:"amountToBeCoPaid"`
}

// Formula is the rule used to derive the final payable amount
type Formula int

const (
	// FormulaPayPercentage applies the network pay percentage to the
	// post-copay amount before capping by usage left. This is the
	// official adjudication rule.
	FormulaPayPercentage Formula = iota

	// FormulaUsageCapOnly caps the post-copay amount by usage left without
	// applying the pay percentage. Older claim-detail pages computed this;
	// it is kept only to reconcile previews produced by them.
	FormulaUsageCapOnly
)

func (f Formula) String() string {
	switch f {
	case FormulaPayPercentage:
		return "pay-percentage"
	case FormulaUsageCapOnly:
		return "usage-cap-only"
	default:
		return "unknown"
	}
}

// Divergence reports how far the two formulas disagree for one claim line
type Divergence struct {
	Canonical ClaimDetails `json:"canonical"`
	Legacy    ClaimDetails `json:"legacy"`

	// Difference is Legacy.TotalClaimable - Canonical.TotalClaimable
	Difference float64 `json:"difference"`
	Diverges   bool    `json:"diverges"`
}

// Submission carries the amounts a claim-creation request is built from
type Submission struct {
	BenefitName      string  `json:"benefitName"`
	BillAmount       float64 `json:"billAmount"`
	IsInNetwork      bool    `json:"isInNetwork"`
	AmountToBeCoPaid float64 `json:"amountToBeCoPaid"`
	ClaimAmount      float64 `json:"claimAmount"`
}
