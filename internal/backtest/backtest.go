// Package backtest aggregates scored transactions into a monthly view of
// how the rule set would have behaved over the batch's history.
package backtest

import (
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Monthly buckets scored transactions by calendar month (on the dataset's
// synthetic clock) and reports the average fraud score, volume, High Risk
// flag count, and flag rate per month. Rows come back in month order.
func Monthly(txns []domain.ScoredTransaction) []domain.MonthlyBacktest {
	type agg struct {
		scoreSum int
		total    int
		flags    int
	}

	months := make(map[string]*agg)
	for _, tx := range txns {
		month := tx.Time().Format("2006-01")
		a, ok := months[month]
		if !ok {
			a = &agg{}
			months[month] = a
		}
		a.scoreSum += tx.FraudRiskScore
		a.total++
		if tx.RiskBand == domain.BandHigh {
			a.flags++
		}
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]domain.MonthlyBacktest, 0, len(keys))
	for _, month := range keys {
		a := months[month]
		rows = append(rows, domain.MonthlyBacktest{
			Month:         month,
			AvgRiskScore:  float64(a.scoreSum) / float64(a.total),
			TotalTxns:     a.total,
			HighRiskFlags: a.flags,
			FlagRatePct:   float64(a.flags) / float64(a.total) * 100,
		})
	}
	return rows
}
