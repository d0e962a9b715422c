// Package domain defines the core types and interfaces for Harrier.
package domain

// Applicant is a cleaned credit application row. All numeric attributes are
// assumed pre-cleaned by the upstream stage (no nulls, DTI capped at the
// batch's 99th percentile).
type Applicant struct {
	// CustomerID links the applicant to the transaction ledger for hybrid
	// aggregation. May be empty, in which case the applicant is scored but
	// never appears in a hybrid profile.
	CustomerID string `json:"customerId"`

	MonthlyIncome    float64 `json:"monthlyIncome"`
	DebtToIncome     float64 `json:"debtToIncomeRatio"`
	EMIToIncome      float64 `json:"emiToIncomeRatio"`
	OpenCreditLines  int     `json:"openCreditLines"`
	RealEstateLoans  int     `json:"realEstateLoans"`
	LoanAmount       float64 `json:"loanAmount"`
}

// ScoredApplicant is an applicant with the derived credit risk fields.
// Source attributes are carried unmodified.
type ScoredApplicant struct {
	Applicant

	CreditRiskScore   int      `json:"creditRiskScore"`
	RiskReasonSummary string   `json:"riskReasonSummary"`
	RiskBand          RiskBand `json:"riskBand"`
}
