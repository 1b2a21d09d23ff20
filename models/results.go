package models

import "database/sql"

// LossRatioRow is one car-type segment of the loss-ratio query. LossRatio is
// invalid when the segment wrote no premium, so the undefined case survives
// export instead of turning into a zero.
type LossRatioRow struct {
	CarType      string
	Policies     int
	ClaimCount   int
	TotalClaims  float64
	TotalPremium float64
	LossRatio    sql.NullFloat64
}

// AgeGroupRow is one age-group segment of the exposure query.
// ClaimFrequency is claims per policy in the group.
type AgeGroupRow struct {
	AgeGroup       string
	Policies       int
	ClaimCount     int
	ClaimFrequency float64
	TotalClaims    float64
	TotalPremium   float64
	LossRatio      sql.NullFloat64
}

// TopPolicyRow is one ranked entry of the top-policies-by-claims query.
type TopPolicyRow struct {
	PolicyID    int64
	CustomerAge int
	CarType     string
	AgeGroup    string
	Premium     float64
	TotalClaims float64
	ClaimCount  int
}

// MixRow is one car-type slice of the portfolio-mix query. Shares are
// fractions of the whole portfolio, not percentages.
type MixRow struct {
	CarType      string
	Policies     int
	PolicyShare  float64
	TotalPremium float64
	PremiumShare float64
}

// PolicyTotalsRow is one policy of the per-policy totals query. Policies
// without claims appear with zero totals.
type PolicyTotalsRow struct {
	PolicyID    int64
	CustomerAge int
	CarType     string
	AgeGroup    string
	Premium     float64
	TotalClaims float64
	ClaimCount  int
}

// Summary holds the portfolio-wide headline metrics, derived from the
// per-policy totals.
type Summary struct {
	TotalPolicies    int
	TotalClaims      int
	TotalClaimAmount float64
	TotalPremium     float64
	OverallLossRatio sql.NullFloat64
}

// AnalyticsResults collects every query result for the export and report
// layers. A query that failed leaves its slice empty.
type AnalyticsResults struct {
	LossByCarType []LossRatioRow
	AgeGroups     []AgeGroupRow
	TopPolicies   []TopPolicyRow
	PortfolioMix  []MixRow
	PolicyTotals  []PolicyTotalsRow
	Summary       Summary
}

// Table is a render-ready tabular result: ordered columns and stringified
// rows, consumed uniformly by the CSV exporter.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}
