package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestReadApplicants(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "credit.csv",
		"CustomerID,MonthlyIncome,debt_to_income_ratio,emi_to_income_ratio,NumberOfOpenCreditLinesAndLoans,NumberRealEstateLoansOrLines,LoanAmount\n"+
			"1001,5000,0.35,0.2,4,1,25000\n"+
			",1200,0.9,0.6,0,0,80000\n")

	applicants, err := ReadApplicants(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(applicants) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(applicants))
	}

	first := applicants[0]
	if first.CustomerID != "1001" || first.MonthlyIncome != 5000 || first.DebtToIncome != 0.35 ||
		first.OpenCreditLines != 4 || first.LoanAmount != 25000 {
		t.Errorf("bad first row: %+v", first)
	}
	if applicants[1].CustomerID != "" {
		t.Errorf("expected empty customer id, got %q", applicants[1].CustomerID)
	}
}

func TestReadApplicantsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.csv", "MonthlyIncome\n5000\n")

	if _, err := ReadApplicants(path); err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestReadTransactions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "txns.csv",
		"CustomerID,Time,Amount,MerchantCategory,City,transaction_hour,is_high_risk_merchant\n"+
			"2001,3600,150.5,Gambling,London,3,1\n"+
			"2002,7200,20,Groceries,Paris,14,0\n")

	txns, err := ReadTransactions(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(txns))
	}

	first := txns[0]
	if first.CustomerID != "2001" || first.Timestamp != 3600 || first.Amount != 150.5 ||
		first.City != "London" || first.Hour != 3 || !first.HighRiskMerchant {
		t.Errorf("bad first row: %+v", first)
	}
	if txns[1].HighRiskMerchant {
		t.Error("flag 0 parsed as high risk")
	}
}

func TestReadTransactionsFlagColumnOptional(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "txns.csv",
		"CustomerID,Time,Amount,MerchantCategory,City,transaction_hour\n"+
			"2001,0,10,Jewelry,London,12\n")

	txns, err := ReadTransactions(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txns[0].HighRiskMerchant {
		t.Error("missing flag column must default to false")
	}
}

func TestWriteScoredTransactionsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scored.csv")

	rows := []domain.ScoredTransaction{
		{
			Transaction: domain.Transaction{
				CustomerID: "c1", Timestamp: 600, Amount: 99.5,
				MerchantCategory: "Jewelry", City: "Paris", Hour: 2, HighRiskMerchant: true,
			},
			WindowFeatures:    domain.WindowFeatures{TxnCount5Min: 2, TxnCount1H: 4, GeoInconsistency: true},
			FraudRiskScore:    60,
			RiskReasonSummary: "Illiquid Hours; High Risk Merchant; Impossible Travel; ",
			RiskBand:          domain.BandMedium,
		},
	}
	if err := WriteScoredTransactions(path, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	content := string(data)
	for _, want := range []string{"txn_count_5min", "fraud_risk_score", "Medium Risk", "Impossible Travel; "} {
		if !strings.Contains(content, want) {
			t.Errorf("output missing %q:\n%s", want, content)
		}
	}

	// No temp files may survive a successful write.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("stray temp file %s", e.Name())
		}
	}
}

func TestWriteProfilesAndSummary(t *testing.T) {
	dir := t.TempDir()

	profiles := []domain.CustomerProfile{
		{
			CustomerID: "c1", MaxCreditScore: 80, CreditRiskBand: domain.BandHigh,
			MaxFraudScore: 60, FraudRiskBand: domain.BandMedium,
			HybridScore: 70, HybridStatus: domain.StatusHypersensitive,
			AvgMonthlyIncome: 4200, AvgHourlyTxns: 1.5,
		},
	}
	profilePath := filepath.Join(dir, "profiles.csv")
	if err := WriteProfiles(profilePath, profiles); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, _ := os.ReadFile(profilePath)
	if !strings.Contains(string(data), "Hypersensitive") {
		t.Errorf("profile output missing status:\n%s", data)
	}

	summaryPath := filepath.Join(dir, "summary.csv")
	err := WriteSummary(summaryPath, domain.BatchSummary{
		TotalCustomers: 10, HighRiskCount: 2, HighRiskPct: 20, ReviewReductionPct: 80,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ = os.ReadFile(summaryPath)
	if !strings.Contains(string(data), "Manual Review Reduction %,80.00%") {
		t.Errorf("summary output:\n%s", data)
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := ReadApplicants(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
