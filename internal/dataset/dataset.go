// Package dataset reads the cleaned tabular inputs and writes the scored
// tabular outputs. Column names follow the upstream cleaning stage's
// conventions so the two stages stay file-compatible.
//
// All writes go through a temp-file-and-rename so a failed stage never
// leaves a partial score file behind.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Input column names (cleaning stage vocabulary).
const (
	colCustomerID    = "CustomerID"
	colMonthlyIncome = "MonthlyIncome"
	colDTI           = "debt_to_income_ratio"
	colEMI           = "emi_to_income_ratio"
	colOpenLines     = "NumberOfOpenCreditLinesAndLoans"
	colRealEstate    = "NumberRealEstateLoansOrLines"
	colLoanAmount    = "LoanAmount"

	colTime         = "Time"
	colAmount       = "Amount"
	colMerchant     = "MerchantCategory"
	colCity         = "City"
	colHour         = "transaction_hour"
	colHighRiskFlag = "is_high_risk_merchant"
)

type header map[string]int

func readTable(path string) (header, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("dataset: %s has no header row", path)
	}

	h := make(header, len(rows[0]))
	for i, name := range rows[0] {
		h[name] = i
	}
	return h, rows[1:], nil
}

func (h header) str(row []string, col string) (string, bool) {
	idx, ok := h[col]
	if !ok || idx >= len(row) {
		return "", false
	}
	return row[idx], true
}

func (h header) float(row []string, col string) (float64, error) {
	s, ok := h.str(row, col)
	if !ok {
		return 0, fmt.Errorf("dataset: missing column %s", col)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("dataset: column %s: %w", col, err)
	}
	return v, nil
}

func (h header) int(row []string, col string) (int, error) {
	v, err := h.float(row, col)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// ReadApplicants loads a cleaned applicant table. The CustomerID column is
// optional; rows without it are scored but never joined into profiles.
func ReadApplicants(path string) ([]domain.Applicant, error) {
	h, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	applicants := make([]domain.Applicant, 0, len(rows))
	for i, row := range rows {
		var a domain.Applicant
		a.CustomerID, _ = h.str(row, colCustomerID)

		if a.MonthlyIncome, err = h.float(row, colMonthlyIncome); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if a.DebtToIncome, err = h.float(row, colDTI); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if a.EMIToIncome, err = h.float(row, colEMI); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if a.OpenCreditLines, err = h.int(row, colOpenLines); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if a.RealEstateLoans, err = h.int(row, colRealEstate); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if a.LoanAmount, err = h.float(row, colLoanAmount); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		applicants = append(applicants, a)
	}
	return applicants, nil
}

// ReadTransactions loads a cleaned transaction table. The merchant risk
// flag column is optional; when absent the fraud scorer derives it from
// the category.
func ReadTransactions(path string) ([]domain.Transaction, error) {
	h, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	txns := make([]domain.Transaction, 0, len(rows))
	for i, row := range rows {
		var tx domain.Transaction
		tx.CustomerID, _ = h.str(row, colCustomerID)
		tx.MerchantCategory, _ = h.str(row, colMerchant)
		tx.City, _ = h.str(row, colCity)

		ts, err := h.float(row, colTime)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		tx.Timestamp = int64(ts)

		if tx.Amount, err = h.float(row, colAmount); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if tx.Hour, err = h.int(row, colHour); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if flag, err := h.int(row, colHighRiskFlag); err == nil {
			tx.HighRiskMerchant = flag == 1
		}
		txns = append(txns, tx)
	}
	return txns, nil
}

// writeTable writes a CSV atomically: the file appears complete or not at
// all, never half-written.
func writeTable(path string, headerRow []string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("dataset: create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := csv.NewWriter(tmp)
	if err := w.Write(headerRow); err != nil {
		tmp.Close()
		return fmt.Errorf("dataset: write %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("dataset: write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("dataset: flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("dataset: close %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("dataset: finalize %s: %w", path, err)
	}
	return nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteScoredApplicants writes the scored applicant table.
func WriteScoredApplicants(path string, rows []domain.ScoredApplicant) error {
	headerRow := []string{
		colCustomerID, colMonthlyIncome, colDTI, colEMI, colOpenLines,
		colRealEstate, colLoanAmount,
		"credit_risk_score", "risk_reason_summary", "risk_band",
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			r.CustomerID,
			ftoa(r.MonthlyIncome), ftoa(r.DebtToIncome), ftoa(r.EMIToIncome),
			strconv.Itoa(r.OpenCreditLines), strconv.Itoa(r.RealEstateLoans),
			ftoa(r.LoanAmount),
			strconv.Itoa(r.CreditRiskScore), r.RiskReasonSummary, string(r.RiskBand),
		}
	}
	return writeTable(path, headerRow, out)
}

// WriteScoredTransactions writes the scored transaction table, including
// the intermediate window feature columns.
func WriteScoredTransactions(path string, rows []domain.ScoredTransaction) error {
	headerRow := []string{
		colCustomerID, colTime, colAmount, colMerchant, colCity, colHour,
		colHighRiskFlag,
		"txn_count_5min", "txn_count_1h", "geo_inconsistency",
		"fraud_risk_score", "risk_reason_summary", "risk_band",
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		flag := "0"
		if r.HighRiskMerchant {
			flag = "1"
		}
		geo := "0"
		if r.GeoInconsistency {
			geo = "1"
		}
		out[i] = []string{
			r.CustomerID,
			strconv.FormatInt(r.Timestamp, 10),
			ftoa(r.Amount), r.MerchantCategory, r.City, strconv.Itoa(r.Hour),
			flag,
			strconv.Itoa(r.TxnCount5Min), strconv.Itoa(r.TxnCount1H), geo,
			strconv.Itoa(r.FraudRiskScore), r.RiskReasonSummary, string(r.RiskBand),
		}
	}
	return writeTable(path, headerRow, out)
}

// WriteProfiles writes the hybrid customer profile table.
func WriteProfiles(path string, profiles []domain.CustomerProfile) error {
	headerRow := []string{
		colCustomerID, "credit_risk_score", "credit_risk_band",
		"fraud_risk_score", "fraud_risk_band",
		"hybrid_risk_score", "hybrid_risk_status",
		"avg_monthly_income", "avg_txn_count_1h",
	}
	out := make([][]string, len(profiles))
	for i, p := range profiles {
		out[i] = []string{
			p.CustomerID,
			strconv.Itoa(p.MaxCreditScore), string(p.CreditRiskBand),
			strconv.Itoa(p.MaxFraudScore), string(p.FraudRiskBand),
			ftoa(p.HybridScore), string(p.HybridStatus),
			ftoa(p.AvgMonthlyIncome), ftoa(p.AvgHourlyTxns),
		}
	}
	return writeTable(path, headerRow, out)
}

// WriteSummary writes the batch business-impact report.
func WriteSummary(path string, s domain.BatchSummary) error {
	headerRow := []string{"metric", "value"}
	out := [][]string{
		{"Total Customers", strconv.Itoa(s.TotalCustomers)},
		{"High Risk Count", strconv.Itoa(s.HighRiskCount)},
		{"High Risk %", fmt.Sprintf("%.2f%%", s.HighRiskPct)},
		{"Manual Review Reduction %", fmt.Sprintf("%.2f%%", s.ReviewReductionPct)},
	}
	return writeTable(path, headerRow, out)
}

// WriteBacktest writes the monthly backtest summary.
func WriteBacktest(path string, rows []domain.MonthlyBacktest) error {
	headerRow := []string{"month", "avg_risk_score", "total_txns", "high_risk_flags", "flag_rate_pct"}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			r.Month, ftoa(r.AvgRiskScore), strconv.Itoa(r.TotalTxns),
			strconv.Itoa(r.HighRiskFlags), ftoa(r.FlagRatePct),
		}
	}
	return writeTable(path, headerRow, out)
}
