// Package credit scores credit applicants against the batch's own
// distribution.
package credit

import (
	"context"
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/rules"
	"github.com/opensource-finance/harrier/internal/stats"
)

// Thresholds are the batch-relative cut-offs the credit rule table compares
// against. Resolved once per batch from empirical quantiles.
type Thresholds struct {
	DTIP80    float64
	EMIP80    float64
	IncomeP10 float64
	LoanP75   float64
}

// Scorer evaluates the credit rule table over applicant batches.
type Scorer struct {
	evaluator *rules.Evaluator
}

// NewScorer compiles the given credit rule table.
func NewScorer(table []domain.RuleConfig) (*Scorer, error) {
	env, err := rules.CreditEnv()
	if err != nil {
		return nil, fmt.Errorf("credit: failed to create environment: %w", err)
	}
	evaluator, err := rules.NewEvaluator(env, table)
	if err != nil {
		return nil, fmt.Errorf("credit: %w", err)
	}
	return &Scorer{evaluator: evaluator}, nil
}

// ResolveThresholds computes the batch quantile thresholds. An empty batch
// is a hard error: scoring against zero-valued thresholds would be garbage.
func ResolveThresholds(applicants []domain.Applicant) (Thresholds, error) {
	if len(applicants) == 0 {
		return Thresholds{}, fmt.Errorf("credit: %w", stats.ErrEmptyColumn)
	}

	dti := make([]float64, len(applicants))
	emi := make([]float64, len(applicants))
	income := make([]float64, len(applicants))
	loan := make([]float64, len(applicants))
	for i, a := range applicants {
		dti[i] = a.DebtToIncome
		emi[i] = a.EMIToIncome
		income[i] = a.MonthlyIncome
		loan[i] = a.LoanAmount
	}

	var t Thresholds
	var err error
	if t.DTIP80, err = stats.Quantile(dti, 0.80); err != nil {
		return Thresholds{}, fmt.Errorf("credit: dti threshold: %w", err)
	}
	if t.EMIP80, err = stats.Quantile(emi, 0.80); err != nil {
		return Thresholds{}, fmt.Errorf("credit: emi threshold: %w", err)
	}
	if t.IncomeP10, err = stats.Quantile(income, 0.10); err != nil {
		return Thresholds{}, fmt.Errorf("credit: income threshold: %w", err)
	}
	if t.LoanP75, err = stats.Quantile(loan, 0.75); err != nil {
		return Thresholds{}, fmt.Errorf("credit: loan threshold: %w", err)
	}
	return t, nil
}

// ScoreBatch scores every applicant in the batch. Thresholds come from the
// batch itself, so the same rows always produce the same scores.
func (s *Scorer) ScoreBatch(ctx context.Context, applicants []domain.Applicant) ([]domain.ScoredApplicant, error) {
	thresholds, err := ResolveThresholds(applicants)
	if err != nil {
		return nil, err
	}
	return s.ScoreWithThresholds(ctx, applicants, thresholds)
}

// ScoreWithThresholds scores applicants against externally resolved
// thresholds. Exposed so tests and what-if runs can pin them.
func (s *Scorer) ScoreWithThresholds(ctx context.Context, applicants []domain.Applicant, t Thresholds) ([]domain.ScoredApplicant, error) {
	scored := make([]domain.ScoredApplicant, len(applicants))
	for i, a := range applicants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := s.evaluator.Evaluate(map[string]any{
			"dti":               a.DebtToIncome,
			"emi_ratio":         a.EMIToIncome,
			"open_credit_lines": int64(a.OpenCreditLines),
			"real_estate_loans": int64(a.RealEstateLoans),
			"monthly_income":    a.MonthlyIncome,
			"loan_amount":       a.LoanAmount,
			"dti_p80":           t.DTIP80,
			"emi_p80":           t.EMIP80,
			"income_p10":        t.IncomeP10,
			"loan_p75":          t.LoanP75,
		})
		if err != nil {
			return nil, fmt.Errorf("credit: applicant %d: %w", i, err)
		}

		scored[i] = domain.ScoredApplicant{
			Applicant:         a,
			CreditRiskScore:   res.Score,
			RiskReasonSummary: res.ReasonSummary,
			RiskBand:          domain.BandForScore(res.Score),
		}
	}
	return scored, nil
}
