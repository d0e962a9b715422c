package domain

// RiskBand is the categorical label derived from a numeric risk score.
type RiskBand string

const (
	BandLow    RiskBand = "Low Risk"
	BandMedium RiskBand = "Medium Risk"
	BandHigh   RiskBand = "High Risk"
)

// Band cut-points shared by credit scores, fraud scores, and the hybrid
// status classification.
const (
	CutMedium = 40
	CutHigh   = 70
)

// BandForScore maps a score to its risk band: below 40 is Low, 40-69 is
// Medium, 70 and above is High.
func BandForScore(score int) RiskBand {
	switch {
	case score >= CutHigh:
		return BandHigh
	case score >= CutMedium:
		return BandMedium
	default:
		return BandLow
	}
}

// HybridStatus is the customer-level classification combining credit and
// fraud maxima.
type HybridStatus string

const (
	StatusStandard       HybridStatus = "Standard"
	StatusModerate       HybridStatus = "Moderate"
	StatusHypersensitive HybridStatus = "Hypersensitive"
)

// StatusForScore maps a hybrid score to its status using the same cut-point
// scheme as the per-domain bands.
func StatusForScore(score float64) HybridStatus {
	switch {
	case score >= CutHigh:
		return StatusHypersensitive
	case score >= CutMedium:
		return StatusModerate
	default:
		return StatusStandard
	}
}

// CustomerProfile is the hybrid per-customer risk posture: the maximum
// observed score from each domain, their bands, and the averaged hybrid view.
type CustomerProfile struct {
	CustomerID string `json:"customerId"`

	MaxCreditScore int      `json:"maxCreditScore"`
	CreditRiskBand RiskBand `json:"creditRiskBand"`
	MaxFraudScore  int      `json:"maxFraudScore"`
	FraudRiskBand  RiskBand `json:"fraudRiskBand"`

	// HybridScore is always the arithmetic mean of the two maxima.
	HybridScore  float64      `json:"hybridRiskScore"`
	HybridStatus HybridStatus `json:"hybridRiskStatus"`

	// Context carried from the source tables for reporting.
	AvgMonthlyIncome float64 `json:"avgMonthlyIncome"`
	AvgHourlyTxns    float64 `json:"avgHourlyTxns"`
}

// BatchSummary holds the business-impact metrics for one scored batch.
type BatchSummary struct {
	BatchID            string  `json:"batchId"`
	TotalCustomers     int     `json:"totalCustomers"`
	HighRiskCount      int     `json:"highRiskCount"`
	HighRiskPct        float64 `json:"highRiskPct"`
	ReviewReductionPct float64 `json:"reviewReductionPct"`
}

// MonthlyBacktest is one row of the monthly backtest report.
type MonthlyBacktest struct {
	Month         string  `json:"month"` // YYYY-MM
	AvgRiskScore  float64 `json:"avgRiskScore"`
	TotalTxns     int     `json:"totalTxns"`
	HighRiskFlags int     `json:"highRiskFlags"`
	FlagRatePct   float64 `json:"flagRatePct"`
}
