package domain

import "time"

// EpochOrigin anchors transaction timestamps: the Timestamp field counts
// seconds from this instant. Matches the dataset's synthetic clock.
var EpochOrigin = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Transaction is a cleaned card transaction row.
type Transaction struct {
	// CustomerID may be empty; such rows are scored on static rules only
	// and are excluded from windowing and hybrid aggregation.
	CustomerID string `json:"customerId"`

	// Timestamp is seconds since EpochOrigin.
	Timestamp int64 `json:"timestamp"`

	Amount           float64 `json:"amount"`
	MerchantCategory string  `json:"merchantCategory"`
	City             string  `json:"city"`

	// Hour is the hour-of-day derived field supplied by the cleaning stage.
	Hour int `json:"transactionHour"`

	// HighRiskMerchant is the precomputed merchant flag. When the cleaned
	// input lacks it, the fraud scorer derives it from MerchantCategory.
	HighRiskMerchant bool `json:"isHighRiskMerchant"`
}

// Time converts the relative timestamp to an absolute instant.
func (t *Transaction) Time() time.Time {
	return EpochOrigin.Add(time.Duration(t.Timestamp) * time.Second)
}

// WindowFeatures holds the per-transaction time-windowed aggregates.
type WindowFeatures struct {
	// TxnCount5Min and TxnCount1H are self-inclusive trailing-window counts
	// of the same customer's transactions, so both are always >= 1 and the
	// 1-hour count is never below the 5-minute count.
	TxnCount5Min int `json:"txnCount5min"`
	TxnCount1H   int `json:"txnCount1h"`

	// GeoInconsistency flags a same-customer city change within an hour.
	GeoInconsistency bool `json:"geoInconsistency"`
}

// ScoredTransaction is a transaction with window features and the derived
// fraud risk fields. Source attributes are carried unmodified.
type ScoredTransaction struct {
	Transaction
	WindowFeatures

	FraudRiskScore    int      `json:"fraudRiskScore"`
	RiskReasonSummary string   `json:"riskReasonSummary"`
	RiskBand          RiskBand `json:"riskBand"`
}
