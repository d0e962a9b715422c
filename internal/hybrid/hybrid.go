// Package hybrid merges credit and fraud scores into per-customer risk
// profiles and batch-level business metrics.
package hybrid

import (
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

type creditAgg struct {
	maxScore    int
	incomeSum   float64
	incomeCount int
}

type fraudAgg struct {
	maxScore  int
	txnsSum   float64
	txnsCount int
}

// BuildProfiles joins the two scored tables by customer id.
//
// Per customer and per source the maximum observed score wins, and the
// hybrid score is the unweighted mean of the two maxima. The join is an
// inner join: customers seen in only one source are dropped. That is a
// documented completeness limitation, not an error. Rows with an empty
// customer id never aggregate.
//
// Output is sorted by customer id so identical inputs produce identical
// profile tables.
func BuildProfiles(applicants []domain.ScoredApplicant, txns []domain.ScoredTransaction) []domain.CustomerProfile {
	credit := make(map[string]*creditAgg)
	for _, a := range applicants {
		if a.CustomerID == "" {
			continue
		}
		agg, ok := credit[a.CustomerID]
		if !ok {
			agg = &creditAgg{}
			credit[a.CustomerID] = agg
		}
		agg.maxScore = max(agg.maxScore, a.CreditRiskScore)
		agg.incomeSum += a.MonthlyIncome
		agg.incomeCount++
	}

	fraud := make(map[string]*fraudAgg)
	for _, tx := range txns {
		if tx.CustomerID == "" {
			continue
		}
		agg, ok := fraud[tx.CustomerID]
		if !ok {
			agg = &fraudAgg{}
			fraud[tx.CustomerID] = agg
		}
		agg.maxScore = max(agg.maxScore, tx.FraudRiskScore)
		agg.txnsSum += float64(tx.TxnCount1H)
		agg.txnsCount++
	}

	profiles := make([]domain.CustomerProfile, 0, len(credit))
	for customerID, c := range credit {
		f, ok := fraud[customerID]
		if !ok {
			continue
		}

		hybridScore := (float64(c.maxScore) + float64(f.maxScore)) / 2
		profiles = append(profiles, domain.CustomerProfile{
			CustomerID:       customerID,
			MaxCreditScore:   c.maxScore,
			CreditRiskBand:   domain.BandForScore(c.maxScore),
			MaxFraudScore:    f.maxScore,
			FraudRiskBand:    domain.BandForScore(f.maxScore),
			HybridScore:      hybridScore,
			HybridStatus:     domain.StatusForScore(hybridScore),
			AvgMonthlyIncome: c.incomeSum / float64(c.incomeCount),
			AvgHourlyTxns:    f.txnsSum / float64(f.txnsCount),
		})
	}

	sort.Slice(profiles, func(a, b int) bool {
		return profiles[a].CustomerID < profiles[b].CustomerID
	})
	return profiles
}

// Summarize computes the batch business-impact metrics: how many customers
// land in the Hypersensitive tier and how much manual review the remaining
// tiers avoid.
func Summarize(batchID string, profiles []domain.CustomerProfile) domain.BatchSummary {
	summary := domain.BatchSummary{BatchID: batchID, TotalCustomers: len(profiles)}
	for _, p := range profiles {
		if p.HybridStatus == domain.StatusHypersensitive {
			summary.HighRiskCount++
		}
	}
	if summary.TotalCustomers > 0 {
		summary.HighRiskPct = float64(summary.HighRiskCount) / float64(summary.TotalCustomers) * 100
	}
	summary.ReviewReductionPct = 100 - summary.HighRiskPct
	return summary
}
