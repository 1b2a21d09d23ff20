package services

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"insurance-analytics/models"
	"insurance-analytics/storage"
)

// stubRenderer records chart calls and can be told to fail one file.
type stubRenderer struct {
	calls  []string
	failOn string
}

func (s *stubRenderer) record(filename string) error {
	s.calls = append(s.calls, filename)
	if s.failOn == filename {
		return fmt.Errorf("render blew up")
	}
	return nil
}

func (s *stubRenderer) Bar(filename, _, _ string, _ []string, _ []float64) error {
	return s.record(filename)
}

func (s *stubRenderer) Line(filename, _, _, _ string, _ []string, _ []float64) error {
	return s.record(filename)
}

func (s *stubRenderer) Pie(filename, _ string, _ []string, _ []float64) error {
	return s.record(filename)
}

func (s *stubRenderer) Histogram(filename, _, _ string, _ []float64, _ int) error {
	return s.record(filename)
}

func (s *stubRenderer) Scatter(filename, _, _, _ string, _, _ []float64) error {
	return s.record(filename)
}

func sampleResults() *models.AnalyticsResults {
	defined := func(v float64) sql.NullFloat64 {
		return sql.NullFloat64{Float64: v, Valid: true}
	}
	return &models.AnalyticsResults{
		LossByCarType: []models.LossRatioRow{
			{CarType: "SUV", Policies: 1, ClaimCount: 1, TotalClaims: 2500, TotalPremium: 2000, LossRatio: defined(1.25)},
			{CarType: "Sedan", Policies: 2, ClaimCount: 2, TotalClaims: 500, TotalPremium: 1500, LossRatio: defined(1.0 / 3.0)},
			{CarType: "Moped", Policies: 1, ClaimCount: 0, TotalClaims: 0, TotalPremium: 0},
		},
		AgeGroups: []models.AgeGroupRow{
			{AgeGroup: "18-29", Policies: 1, ClaimCount: 1, ClaimFrequency: 1, TotalClaims: 2500, TotalPremium: 2000, LossRatio: defined(1.25)},
			{AgeGroup: "30-39", Policies: 2, ClaimCount: 2, ClaimFrequency: 1, TotalClaims: 500, TotalPremium: 1500, LossRatio: defined(1.0 / 3.0)},
		},
		TopPolicies: []models.TopPolicyRow{
			{PolicyID: 3, CustomerAge: 22, CarType: "SUV", AgeGroup: "18-29", Premium: 2000, TotalClaims: 2500, ClaimCount: 1},
			{PolicyID: 1, CustomerAge: 30, CarType: "Sedan", AgeGroup: "30-39", Premium: 1000, TotalClaims: 500, ClaimCount: 2},
		},
		PortfolioMix: []models.MixRow{
			{CarType: "SUV", Policies: 1, PolicyShare: 1.0 / 3.0, TotalPremium: 2000, PremiumShare: 2000.0 / 3500.0},
			{CarType: "Sedan", Policies: 2, PolicyShare: 2.0 / 3.0, TotalPremium: 1500, PremiumShare: 1500.0 / 3500.0},
		},
		PolicyTotals: []models.PolicyTotalsRow{
			{PolicyID: 1, CustomerAge: 30, CarType: "Sedan", AgeGroup: "30-39", Premium: 1000, TotalClaims: 500, ClaimCount: 2},
			{PolicyID: 2, CustomerAge: 45, CarType: "Sedan", AgeGroup: "40-49", Premium: 500, TotalClaims: 0, ClaimCount: 0},
			{PolicyID: 3, CustomerAge: 22, CarType: "SUV", AgeGroup: "18-29", Premium: 2000, TotalClaims: 2500, ClaimCount: 1},
		},
		Summary: models.Summary{
			TotalPolicies:    3,
			TotalClaims:      3,
			TotalClaimAmount: 3000,
			TotalPremium:     3500,
			OverallLossRatio: defined(3000.0 / 3500.0),
		},
	}
}

var reportCSVs = []string{
	"loss_by_car.csv",
	"age_group_stats.csv",
	"top_policies.csv",
	"portfolio_mix.csv",
	"per_policy.csv",
	"portfolio_summary_metrics.csv",
}

var reportCharts = []string{
	"loss_ratio_by_car_type.png",
	"claim_frequency_by_age_group.png",
	"top_policies_by_claims.png",
	"portfolio_mix.png",
	"claims_distribution.png",
	"premium_vs_claims.png",
}

func newTestReportService(t *testing.T, charts ChartRenderer) (*ReportService, string) {
	t.Helper()
	dir := t.TempDir()
	exporter, err := storage.NewCSVExporter(dir)
	if err != nil {
		t.Fatalf("NewCSVExporter: %v", err)
	}
	return NewReportService(exporter, charts, testLogger(), 20), dir
}

func TestExportWritesEveryReport(t *testing.T) {
	stub := &stubRenderer{}
	svc, dir := newTestReportService(t, stub)

	succeeded, failed := svc.Export(sampleResults())
	if want := len(reportCSVs) + len(reportCharts); succeeded != want || failed != 0 {
		t.Errorf("Export: got %d succeeded / %d failed, want %d / 0", succeeded, failed, want)
	}

	for _, name := range reportCSVs {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if len(stub.calls) != len(reportCharts) {
		t.Fatalf("chart calls: got %d, want %d", len(stub.calls), len(reportCharts))
	}
	for i, want := range reportCharts {
		if stub.calls[i] != want {
			t.Errorf("chart call %d: got %s, want %s", i, stub.calls[i], want)
		}
	}
}

func TestExportChartFailureIsIsolated(t *testing.T) {
	stub := &stubRenderer{failOn: "loss_ratio_by_car_type.png"}
	svc, dir := newTestReportService(t, stub)

	succeeded, failed := svc.Export(sampleResults())
	if failed != 1 {
		t.Errorf("failed: got %d, want 1", failed)
	}
	if want := len(reportCSVs) + len(reportCharts) - 1; succeeded != want {
		t.Errorf("succeeded: got %d, want %d", succeeded, want)
	}

	// The failing chart must not stop anything after it.
	if len(stub.calls) != len(reportCharts) {
		t.Errorf("chart calls after failure: got %d, want %d", len(stub.calls), len(reportCharts))
	}
	for _, name := range reportCSVs {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s after chart failure: %v", name, err)
		}
	}
}

func TestExportLossRatioCSVKeepsUndefinedRatioEmpty(t *testing.T) {
	svc, dir := newTestReportService(t, &stubRenderer{})

	svc.Export(sampleResults())

	data, err := os.ReadFile(filepath.Join(dir, "loss_by_car.csv"))
	if err != nil {
		t.Fatalf("read loss_by_car.csv: %v", err)
	}

	want := "car_type,num_policies,total_claims_count,total_claims,total_premiums,loss_ratio\n" +
		"SUV,1,1,2500.00,2000.00,1.2500\n" +
		"Sedan,2,2,500.00,1500.00,0.3333\n" +
		"Moped,1,0,0.00,0.00,\n"
	if string(data) != want {
		t.Errorf("loss_by_car.csv:\ngot  %q\nwant %q", string(data), want)
	}
}

func TestExportSummaryCSV(t *testing.T) {
	svc, dir := newTestReportService(t, &stubRenderer{})

	svc.Export(sampleResults())

	data, err := os.ReadFile(filepath.Join(dir, "portfolio_summary_metrics.csv"))
	if err != nil {
		t.Fatalf("read portfolio_summary_metrics.csv: %v", err)
	}

	want := "total_policies,total_claims_records,total_claims_amount,average_loss_ratio_overall\n" +
		"3,3,3000.00,0.8571\n"
	if string(data) != want {
		t.Errorf("portfolio_summary_metrics.csv:\ngot  %q\nwant %q", string(data), want)
	}
}

func TestExportDataset(t *testing.T) {
	svc, dir := newTestReportService(t, &stubRenderer{})

	ds := validDataset()
	if err := svc.ExportDataset(ds); err != nil {
		t.Fatalf("ExportDataset: %v", err)
	}

	policies, err := os.ReadFile(filepath.Join(dir, "policies.csv"))
	if err != nil {
		t.Fatalf("read policies.csv: %v", err)
	}
	wantPolicies := "policy_id,customer_age,car_type,age_group,premium\n" +
		"1,30,Sedan,30-39,1000.00\n" +
		"2,45,Sedan,40-49,500.00\n" +
		"3,22,SUV,18-29,2000.00\n"
	if string(policies) != wantPolicies {
		t.Errorf("policies.csv:\ngot  %q\nwant %q", string(policies), wantPolicies)
	}

	claims, err := os.ReadFile(filepath.Join(dir, "claims.csv"))
	if err != nil {
		t.Fatalf("read claims.csv: %v", err)
	}
	wantClaims := "claim_id,policy_id,claim_amount,claim_date\n" +
		"1,1,200.00,2024-03-01\n" +
		"2,1,300.00,2024-07-15\n" +
		"3,3,2500.00,2024-11-30\n"
	if string(claims) != wantClaims {
		t.Errorf("claims.csv:\ngot  %q\nwant %q", string(claims), wantClaims)
	}
}

func TestExportDatasetByteIdentical(t *testing.T) {
	svc, dir := newTestReportService(t, &stubRenderer{})

	ds := validDataset()
	if err := svc.ExportDataset(ds); err != nil {
		t.Fatalf("first ExportDataset: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dir, "policies.csv"))
	if err != nil {
		t.Fatalf("read first export: %v", err)
	}

	if err := svc.ExportDataset(ds); err != nil {
		t.Fatalf("second ExportDataset: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "policies.csv"))
	if err != nil {
		t.Fatalf("read second export: %v", err)
	}

	if string(first) != string(second) {
		t.Error("re-export of the same dataset is not byte-identical")
	}
}
