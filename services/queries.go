package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"insurance-analytics/models"
	"insurance-analytics/utils"
)

// perPolicyCTE rolls claims up to one row per policy before any further
// grouping. Aggregating premiums after this step keeps them from being
// double-counted through the claims join when a policy has several claims.
const perPolicyCTE = `
WITH policy_claims AS (
	SELECT p.policy_id,
	       p.customer_age,
	       p.car_type,
	       p.age_group,
	       p.premium,
	       COUNT(c.claim_id)                AS claims_count,
	       COALESCE(SUM(c.claim_amount), 0) AS claims_amount
	FROM policies p
	LEFT JOIN claims c ON p.policy_id = c.policy_id
	GROUP BY p.policy_id, p.customer_age, p.car_type, p.age_group, p.premium
)`

const lossByCarSQL = perPolicyCTE + `
SELECT car_type,
       COUNT(*)           AS num_policies,
       SUM(claims_count)  AS total_claims_count,
       SUM(claims_amount) AS total_claims,
       SUM(premium)       AS total_premiums,
       CASE WHEN SUM(premium) = 0 THEN NULL
            ELSE SUM(claims_amount) / SUM(premium)
       END AS loss_ratio
FROM policy_claims
GROUP BY car_type`

const ageGroupSQL = perPolicyCTE + `
SELECT age_group,
       COUNT(*)           AS num_policies,
       SUM(claims_count)  AS total_claims_count,
       AVG(claims_count)  AS claim_frequency,
       SUM(claims_amount) AS total_claims,
       SUM(premium)       AS total_premiums,
       CASE WHEN SUM(premium) = 0 THEN NULL
            ELSE SUM(claims_amount) / SUM(premium)
       END AS loss_ratio
FROM policy_claims
GROUP BY age_group
ORDER BY age_group`

const topPoliciesSQL = perPolicyCTE + `
SELECT policy_id,
       customer_age,
       car_type,
       age_group,
       premium,
       claims_amount AS total_claims,
       claims_count
FROM policy_claims
ORDER BY claims_amount DESC, policy_id ASC
LIMIT %d`

const portfolioMixSQL = `
SELECT car_type,
       COUNT(*)     AS num_policies,
       SUM(premium) AS total_premium
FROM policies
GROUP BY car_type
ORDER BY car_type`

const policyTotalsSQL = perPolicyCTE + `
SELECT policy_id,
       customer_age,
       car_type,
       age_group,
       premium,
       claims_amount AS total_claims,
       claims_count
FROM policy_claims
ORDER BY policy_id`

const orphanClaimsSQL = `
SELECT COUNT(*)
FROM claims c
LEFT JOIN policies p ON c.policy_id = p.policy_id
WHERE p.policy_id IS NULL`

// QueryService runs the fixed analytics queries against a loaded store.
// The SQL sticks to the dialect subset both backends accept.
type QueryService struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewQueryService creates a QueryService on an already loaded store
// connection.
func NewQueryService(db *sql.DB, logger *utils.Logger) *QueryService {
	return &QueryService{db: db, logger: logger}
}

// RunAll executes every analytics query. A failing query is logged and
// leaves its result slice empty; the remaining queries still run. The
// summary is derived from whatever the per-policy query returned.
func (s *QueryService) RunAll(ctx context.Context, topN int) *models.AnalyticsResults {
	res := &models.AnalyticsResults{}
	var err error

	if res.LossByCarType, err = s.LossRatioByCarType(ctx); err != nil {
		s.logger.Error("[query] Loss ratio by car type failed: %v", err)
	}
	if res.AgeGroups, err = s.AgeGroupStats(ctx); err != nil {
		s.logger.Error("[query] Age group stats failed: %v", err)
	}
	if res.TopPolicies, err = s.TopPoliciesByClaims(ctx, topN); err != nil {
		s.logger.Error("[query] Top policies failed: %v", err)
	}
	if res.PortfolioMix, err = s.PortfolioMix(ctx); err != nil {
		s.logger.Error("[query] Portfolio mix failed: %v", err)
	}
	if res.PolicyTotals, err = s.PolicyTotals(ctx); err != nil {
		s.logger.Error("[query] Per-policy totals failed: %v", err)
	}

	res.Summary = Summarize(res.PolicyTotals)
	return res
}

// LossRatioByCarType aggregates claims against premiums per car type.
// Segments with premium but no claims show a zero ratio; a segment with no
// premium at all carries an invalid (NULL) ratio. Rows are ordered worst
// loss ratio first, undefined ratios last.
func (s *QueryService) LossRatioByCarType(ctx context.Context) ([]models.LossRatioRow, error) {
	rows, err := s.db.QueryContext(ctx, lossByCarSQL)
	if err != nil {
		return nil, fmt.Errorf("query: loss ratio by car type: %w", err)
	}
	defer rows.Close()

	var out []models.LossRatioRow
	for rows.Next() {
		var r models.LossRatioRow
		if err := rows.Scan(&r.CarType, &r.Policies, &r.ClaimCount, &r.TotalClaims, &r.TotalPremium, &r.LossRatio); err != nil {
			return nil, fmt.Errorf("query: scan loss ratio row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: loss ratio rows: %w", err)
	}

	// NULL ordering differs between backends, so the final order is fixed
	// here rather than in SQL.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.LossRatio.Valid != b.LossRatio.Valid:
			return a.LossRatio.Valid
		case a.LossRatio.Valid && a.LossRatio.Float64 != b.LossRatio.Float64:
			return a.LossRatio.Float64 > b.LossRatio.Float64
		default:
			return a.CarType < b.CarType
		}
	})
	return out, nil
}

// AgeGroupStats reports exposure, claim frequency and loss ratio per age
// group, ordered by group label.
func (s *QueryService) AgeGroupStats(ctx context.Context) ([]models.AgeGroupRow, error) {
	rows, err := s.db.QueryContext(ctx, ageGroupSQL)
	if err != nil {
		return nil, fmt.Errorf("query: age group stats: %w", err)
	}
	defer rows.Close()

	var out []models.AgeGroupRow
	for rows.Next() {
		var r models.AgeGroupRow
		if err := rows.Scan(&r.AgeGroup, &r.Policies, &r.ClaimCount, &r.ClaimFrequency, &r.TotalClaims, &r.TotalPremium, &r.LossRatio); err != nil {
			return nil, fmt.Errorf("query: scan age group row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: age group rows: %w", err)
	}
	return out, nil
}

// TopPoliciesByClaims returns the topN policies by total claim amount.
// Ties resolve to the lower policy ID; fewer than topN policies simply
// yields a shorter list.
func (s *QueryService) TopPoliciesByClaims(ctx context.Context, topN int) ([]models.TopPolicyRow, error) {
	if topN < 1 {
		return nil, fmt.Errorf("query: top policies count must be positive (got %d)", topN)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(topPoliciesSQL, topN))
	if err != nil {
		return nil, fmt.Errorf("query: top policies: %w", err)
	}
	defer rows.Close()

	var out []models.TopPolicyRow
	for rows.Next() {
		var r models.TopPolicyRow
		if err := rows.Scan(&r.PolicyID, &r.CustomerAge, &r.CarType, &r.AgeGroup, &r.Premium, &r.TotalClaims, &r.ClaimCount); err != nil {
			return nil, fmt.Errorf("query: scan top policy row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: top policy rows: %w", err)
	}
	return out, nil
}

// PortfolioMix reports policy counts and premium volume per car type, with
// each segment's share of the whole. Shares sum to 1 across segments.
func (s *QueryService) PortfolioMix(ctx context.Context) ([]models.MixRow, error) {
	rows, err := s.db.QueryContext(ctx, portfolioMixSQL)
	if err != nil {
		return nil, fmt.Errorf("query: portfolio mix: %w", err)
	}
	defer rows.Close()

	var out []models.MixRow
	var totalPolicies int
	var totalPremium float64
	for rows.Next() {
		var r models.MixRow
		if err := rows.Scan(&r.CarType, &r.Policies, &r.TotalPremium); err != nil {
			return nil, fmt.Errorf("query: scan portfolio mix row: %w", err)
		}
		totalPolicies += r.Policies
		totalPremium += r.TotalPremium
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: portfolio mix rows: %w", err)
	}

	for i := range out {
		if totalPolicies > 0 {
			out[i].PolicyShare = float64(out[i].Policies) / float64(totalPolicies)
		}
		if totalPremium > 0 {
			out[i].PremiumShare = out[i].TotalPremium / totalPremium
		}
	}
	return out, nil
}

// PolicyTotals returns one row per policy with its rolled-up claims, in
// policy ID order. Policies without claims appear with zero totals.
func (s *QueryService) PolicyTotals(ctx context.Context) ([]models.PolicyTotalsRow, error) {
	rows, err := s.db.QueryContext(ctx, policyTotalsSQL)
	if err != nil {
		return nil, fmt.Errorf("query: per-policy totals: %w", err)
	}
	defer rows.Close()

	var out []models.PolicyTotalsRow
	for rows.Next() {
		var r models.PolicyTotalsRow
		if err := rows.Scan(&r.PolicyID, &r.CustomerAge, &r.CarType, &r.AgeGroup, &r.Premium, &r.TotalClaims, &r.ClaimCount); err != nil {
			return nil, fmt.Errorf("query: scan per-policy row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: per-policy rows: %w", err)
	}
	return out, nil
}

// CountOrphanClaims reports how many loaded claims reference a missing
// policy. A correct load always returns zero.
func (s *QueryService) CountOrphanClaims(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, orphanClaimsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("query: orphan claims: %w", err)
	}
	return n, nil
}

// Summarize computes the portfolio-wide metrics from the per-policy totals.
// With no premium volume the overall loss ratio stays undefined.
func Summarize(totals []models.PolicyTotalsRow) models.Summary {
	var sum models.Summary
	sum.TotalPolicies = len(totals)
	for _, r := range totals {
		sum.TotalClaims += r.ClaimCount
		sum.TotalClaimAmount += r.TotalClaims
		sum.TotalPremium += r.Premium
	}
	if sum.TotalPremium > 0 {
		sum.OverallLossRatio = sql.NullFloat64{Float64: sum.TotalClaimAmount / sum.TotalPremium, Valid: true}
	}
	return sum
}
