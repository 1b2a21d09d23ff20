package services

import (
	"database/sql"
	"fmt"
	"strconv"

	"insurance-analytics/models"
	"insurance-analytics/storage"
	"insurance-analytics/utils"
)

// ChartRenderer is the part of the chart layer the report service needs.
type ChartRenderer interface {
	Bar(filename, title, yLabel string, labels []string, values []float64) error
	Line(filename, title, xLabel, yLabel string, labels []string, values []float64) error
	Pie(filename, title string, labels []string, values []float64) error
	Histogram(filename, title, yLabel string, values []float64, bins int) error
	Scatter(filename, title, xLabel, yLabel string, xs, ys []float64) error
}

// ReportService materializes analytics results as CSV files and charts.
type ReportService struct {
	csv    storage.TableWriter
	charts ChartRenderer
	logger *utils.Logger
	bins   int
}

// NewReportService creates a ReportService writing through the given
// exporter and renderer. bins controls the claims distribution histogram.
func NewReportService(csv storage.TableWriter, charts ChartRenderer, logger *utils.Logger, bins int) *ReportService {
	return &ReportService{csv: csv, charts: charts, logger: logger, bins: bins}
}

// ExportDataset dumps the raw generated records, mirroring what the loader
// is about to insert.
func (s *ReportService) ExportDataset(ds *models.Dataset) error {
	if err := s.csv.WriteTable(policiesTable(ds.Policies)); err != nil {
		return err
	}
	return s.csv.WriteTable(claimsTable(ds.Claims))
}

// Export writes every report: one CSV per query plus the charts. Each
// report is isolated, so a failure is logged and the rest still export.
// Returns how many reports succeeded and failed.
func (s *ReportService) Export(res *models.AnalyticsResults) (succeeded, failed int) {
	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			s.logger.Error("[report] %s failed: %v", name, err)
			failed++
			return
		}
		s.logger.Debug("[report] Wrote %s", name)
		succeeded++
	}

	step("loss_by_car.csv", func() error {
		return s.csv.WriteTable(lossRatioTable(res.LossByCarType))
	})
	step("loss_ratio_by_car_type.png", func() error {
		// Undefined ratios cannot be drawn, so those segments stay off
		// the chart while the CSV keeps them.
		var labels []string
		var values []float64
		for _, r := range res.LossByCarType {
			if r.LossRatio.Valid {
				labels = append(labels, r.CarType)
				values = append(values, r.LossRatio.Float64)
			}
		}
		return s.charts.Bar("loss_ratio_by_car_type.png", "Loss Ratio by Car Type",
			"Loss Ratio (Claims / Premiums)", labels, values)
	})

	step("age_group_stats.csv", func() error {
		return s.csv.WriteTable(ageGroupTable(res.AgeGroups))
	})
	step("claim_frequency_by_age_group.png", func() error {
		labels := make([]string, 0, len(res.AgeGroups))
		values := make([]float64, 0, len(res.AgeGroups))
		for _, r := range res.AgeGroups {
			labels = append(labels, r.AgeGroup)
			values = append(values, r.ClaimFrequency)
		}
		return s.charts.Line("claim_frequency_by_age_group.png", "Claim Frequency by Age Group",
			"Age Group", "Claims per Policy", labels, values)
	})

	step("top_policies.csv", func() error {
		return s.csv.WriteTable(topPoliciesTable(res.TopPolicies))
	})
	step("top_policies_by_claims.png", func() error {
		labels := make([]string, 0, len(res.TopPolicies))
		values := make([]float64, 0, len(res.TopPolicies))
		for _, r := range res.TopPolicies {
			labels = append(labels, fmt.Sprintf("P%d", r.PolicyID))
			values = append(values, r.TotalClaims)
		}
		return s.charts.Bar("top_policies_by_claims.png", "Top Policies by Total Claims",
			"Total Claims ($)", labels, values)
	})

	step("portfolio_mix.csv", func() error {
		return s.csv.WriteTable(portfolioMixTable(res.PortfolioMix))
	})
	step("portfolio_mix.png", func() error {
		labels := make([]string, 0, len(res.PortfolioMix))
		values := make([]float64, 0, len(res.PortfolioMix))
		for _, r := range res.PortfolioMix {
			labels = append(labels, r.CarType)
			values = append(values, float64(r.Policies))
		}
		return s.charts.Pie("portfolio_mix.png", "Portfolio Mix by Car Type", labels, values)
	})

	step("per_policy.csv", func() error {
		return s.csv.WriteTable(perPolicyTable(res.PolicyTotals))
	})
	step("claims_distribution.png", func() error {
		values := make([]float64, 0, len(res.PolicyTotals))
		for _, r := range res.PolicyTotals {
			values = append(values, r.TotalClaims)
		}
		return s.charts.Histogram("claims_distribution.png", "Distribution of Total Claims per Policy",
			"Policies", values, s.bins)
	})
	step("premium_vs_claims.png", func() error {
		xs := make([]float64, 0, len(res.PolicyTotals))
		ys := make([]float64, 0, len(res.PolicyTotals))
		for _, r := range res.PolicyTotals {
			xs = append(xs, r.Premium)
			ys = append(ys, r.TotalClaims)
		}
		return s.charts.Scatter("premium_vs_claims.png", "Policy Premium vs Total Claims",
			"Premium ($)", "Total Claims ($)", xs, ys)
	})

	step("portfolio_summary_metrics.csv", func() error {
		return s.csv.WriteTable(summaryTable(res.Summary))
	})

	return succeeded, failed
}

func policiesTable(policies []*models.Policy) models.Table {
	t := models.Table{
		Name:    "policies",
		Columns: []string{"policy_id", "customer_age", "car_type", "age_group", "premium"},
	}
	for _, p := range policies {
		t.Rows = append(t.Rows, []string{
			formatID(p.ID), strconv.Itoa(p.CustomerAge), p.CarType, p.AgeGroup, money(p.Premium),
		})
	}
	return t
}

func claimsTable(claims []*models.Claim) models.Table {
	t := models.Table{
		Name:    "claims",
		Columns: []string{"claim_id", "policy_id", "claim_amount", "claim_date"},
	}
	for _, c := range claims {
		t.Rows = append(t.Rows, []string{
			formatID(c.ID), formatID(c.PolicyID), money(c.Amount), c.Date,
		})
	}
	return t
}

func lossRatioTable(rows []models.LossRatioRow) models.Table {
	t := models.Table{
		Name:    "loss_by_car",
		Columns: []string{"car_type", "num_policies", "total_claims_count", "total_claims", "total_premiums", "loss_ratio"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.CarType, strconv.Itoa(r.Policies), strconv.Itoa(r.ClaimCount),
			money(r.TotalClaims), money(r.TotalPremium), nullableRatio(r.LossRatio),
		})
	}
	return t
}

func ageGroupTable(rows []models.AgeGroupRow) models.Table {
	t := models.Table{
		Name:    "age_group_stats",
		Columns: []string{"age_group", "num_policies", "total_claims_count", "claim_frequency", "total_claims", "total_premiums", "loss_ratio"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.AgeGroup, strconv.Itoa(r.Policies), strconv.Itoa(r.ClaimCount),
			ratio(r.ClaimFrequency), money(r.TotalClaims), money(r.TotalPremium), nullableRatio(r.LossRatio),
		})
	}
	return t
}

func topPoliciesTable(rows []models.TopPolicyRow) models.Table {
	t := models.Table{
		Name:    "top_policies",
		Columns: []string{"policy_id", "customer_age", "car_type", "age_group", "premium", "total_claims", "claims_count"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			formatID(r.PolicyID), strconv.Itoa(r.CustomerAge), r.CarType, r.AgeGroup,
			money(r.Premium), money(r.TotalClaims), strconv.Itoa(r.ClaimCount),
		})
	}
	return t
}

func portfolioMixTable(rows []models.MixRow) models.Table {
	t := models.Table{
		Name:    "portfolio_mix",
		Columns: []string{"car_type", "num_policies", "policy_share", "total_premium", "premium_share"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.CarType, strconv.Itoa(r.Policies), ratio(r.PolicyShare),
			money(r.TotalPremium), ratio(r.PremiumShare),
		})
	}
	return t
}

func perPolicyTable(rows []models.PolicyTotalsRow) models.Table {
	t := models.Table{
		Name:    "per_policy",
		Columns: []string{"policy_id", "customer_age", "car_type", "age_group", "premium", "total_claims", "claims_count"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			formatID(r.PolicyID), strconv.Itoa(r.CustomerAge), r.CarType, r.AgeGroup,
			money(r.Premium), money(r.TotalClaims), strconv.Itoa(r.ClaimCount),
		})
	}
	return t
}

func summaryTable(sum models.Summary) models.Table {
	return models.Table{
		Name:    "portfolio_summary_metrics",
		Columns: []string{"total_policies", "total_claims_records", "total_claims_amount", "average_loss_ratio_overall"},
		Rows: [][]string{{
			strconv.Itoa(sum.TotalPolicies), strconv.Itoa(sum.TotalClaims),
			money(sum.TotalClaimAmount), nullableRatio(sum.OverallLossRatio),
		}},
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// nullableRatio keeps an undefined ratio as an empty CSV field instead of
// faking a zero.
func nullableRatio(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return ratio(v.Float64)
}
