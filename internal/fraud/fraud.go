// Package fraud scores transactions using static rules plus the
// time-windowed behavioral features.
package fraud

import (
	"context"
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/rules"
	"github.com/opensource-finance/harrier/internal/stats"
	"github.com/opensource-finance/harrier/internal/window"
)

// Thresholds are the batch-relative cut-offs the fraud rule table compares
// against. The velocity pair is floored so that tiny batches cannot flag
// ordinary activity as a burst.
type Thresholds struct {
	AmountP95 float64
	AmountP99 float64
	Burst     float64
	Velocity  float64
}

// Scorer evaluates the fraud rule table over transaction batches.
type Scorer struct {
	evaluator *rules.Evaluator
	cfg       domain.ScoringConfig
	merchants map[string]bool
}

// NewScorer compiles the fraud rule table from the scoring configuration.
func NewScorer(cfg domain.ScoringConfig) (*Scorer, error) {
	env, err := rules.FraudEnv()
	if err != nil {
		return nil, fmt.Errorf("fraud: failed to create environment: %w", err)
	}
	evaluator, err := rules.NewEvaluator(env, cfg.FraudRules)
	if err != nil {
		return nil, fmt.Errorf("fraud: %w", err)
	}

	merchants := make(map[string]bool, len(cfg.HighRiskMerchants))
	for _, m := range cfg.HighRiskMerchants {
		merchants[m] = true
	}

	return &Scorer{evaluator: evaluator, cfg: cfg, merchants: merchants}, nil
}

// ScoreBatch scores every transaction in the batch. The output is in the
// engine's canonical (customer, timestamp) order regardless of input order,
// since windowing requires that sort anyway.
func (s *Scorer) ScoreBatch(ctx context.Context, txns []domain.Transaction) ([]domain.ScoredTransaction, error) {
	if len(txns) == 0 {
		return nil, fmt.Errorf("fraud: %w", stats.ErrEmptyColumn)
	}

	records := make([]window.Record, len(txns))
	for i, tx := range txns {
		records[i] = window.Record{
			CustomerID: tx.CustomerID,
			Timestamp:  tx.Timestamp,
			City:       tx.City,
		}
	}
	features, order := window.Extract(records, window.Config{
		BurstWindowSecs:    s.cfg.BurstWindowSecs,
		VelocityWindowSecs: s.cfg.VelocityWindowSecs,
	})

	thresholds, err := resolveThresholds(txns, features, s.cfg)
	if err != nil {
		return nil, err
	}

	scored := make([]domain.ScoredTransaction, len(txns))
	for pos, idx := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tx := txns[idx]
		f := features[pos]
		highRisk := tx.HighRiskMerchant || s.merchants[tx.MerchantCategory]

		res, err := s.evaluator.Evaluate(map[string]any{
			"amount":             tx.Amount,
			"hour":               int64(tx.Hour),
			"high_risk_merchant": highRisk,
			"txn_count_5min":     float64(f.Count5Min),
			"txn_count_1h":       float64(f.Count1H),
			"geo_inconsistency":  f.GeoInconsistency,
			"amount_p95":         thresholds.AmountP95,
			"amount_p99":         thresholds.AmountP99,
			"burst_threshold":    thresholds.Burst,
			"velocity_threshold": thresholds.Velocity,
		})
		if err != nil {
			return nil, fmt.Errorf("fraud: transaction %d: %w", idx, err)
		}

		scored[pos] = domain.ScoredTransaction{
			Transaction: tx,
			WindowFeatures: domain.WindowFeatures{
				TxnCount5Min:     f.Count5Min,
				TxnCount1H:       f.Count1H,
				GeoInconsistency: f.GeoInconsistency,
			},
			FraudRiskScore:    res.Score,
			RiskReasonSummary: res.ReasonSummary,
			RiskBand:          domain.BandForScore(res.Score),
		}
	}
	return scored, nil
}

// resolveThresholds computes the amount quantiles and the floored velocity
// quantiles from the batch itself. The velocity thresholds come from the
// derived count columns, so they are resolved after window extraction.
func resolveThresholds(txns []domain.Transaction, features []window.Features, cfg domain.ScoringConfig) (Thresholds, error) {
	amounts := make([]float64, len(txns))
	for i, tx := range txns {
		amounts[i] = tx.Amount
	}
	counts5 := make([]float64, len(features))
	counts1h := make([]float64, len(features))
	for i, f := range features {
		counts5[i] = float64(f.Count5Min)
		counts1h[i] = float64(f.Count1H)
	}

	var t Thresholds
	var err error
	if t.AmountP95, err = stats.Quantile(amounts, 0.95); err != nil {
		return Thresholds{}, fmt.Errorf("fraud: amount p95: %w", err)
	}
	if t.AmountP99, err = stats.Quantile(amounts, 0.99); err != nil {
		return Thresholds{}, fmt.Errorf("fraud: amount p99: %w", err)
	}
	if t.Burst, err = stats.QuantileFloor(counts5, 0.995, cfg.BurstFloor); err != nil {
		return Thresholds{}, fmt.Errorf("fraud: burst threshold: %w", err)
	}
	if t.Velocity, err = stats.QuantileFloor(counts1h, 0.99, cfg.VelocityFloor); err != nil {
		return Thresholds{}, fmt.Errorf("fraud: velocity threshold: %w", err)
	}
	return t, nil
}
