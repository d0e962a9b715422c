package rules

import (
	"github.com/google/cel-go/cel"

	"github.com/opensource-finance/harrier/internal/domain"
)

// CreditEnv declares the activation variables available to credit rules:
// the applicant's attributes plus the batch thresholds resolved by the
// credit scorer.
func CreditEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("dti", cel.DoubleType),
		cel.Variable("emi_ratio", cel.DoubleType),
		cel.Variable("open_credit_lines", cel.IntType),
		cel.Variable("real_estate_loans", cel.IntType),
		cel.Variable("monthly_income", cel.DoubleType),
		cel.Variable("loan_amount", cel.DoubleType),
		// Batch thresholds
		cel.Variable("dti_p80", cel.DoubleType),
		cel.Variable("emi_p80", cel.DoubleType),
		cel.Variable("income_p10", cel.DoubleType),
		cel.Variable("loan_p75", cel.DoubleType),
	)
}

// FraudEnv declares the activation variables available to fraud rules:
// transaction attributes, window features, and batch thresholds.
func FraudEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("high_risk_merchant", cel.BoolType),
		// Window features (as doubles, compared against quantile thresholds)
		cel.Variable("txn_count_5min", cel.DoubleType),
		cel.Variable("txn_count_1h", cel.DoubleType),
		cel.Variable("geo_inconsistency", cel.BoolType),
		// Batch thresholds
		cel.Variable("amount_p95", cel.DoubleType),
		cel.Variable("amount_p99", cel.DoubleType),
		cel.Variable("burst_threshold", cel.DoubleType),
		cel.Variable("velocity_threshold", cel.DoubleType),
	)
}

// DefaultCreditRules returns the credit rule table. Order matters: reason
// summaries concatenate in this order.
func DefaultCreditRules() []domain.RuleConfig {
	return []domain.RuleConfig{
		{
			ID:         "credit-dti-001",
			Name:       "High debt-to-income",
			Expression: "dti > dti_p80",
			Weight:     25,
			Reason:     "High DTI",
			Enabled:    true,
		},
		{
			ID:         "credit-emi-001",
			Name:       "High EMI burden",
			Expression: "emi_ratio > emi_p80",
			Weight:     25,
			Reason:     "High EMI Burden",
			Enabled:    true,
		},
		{
			ID:         "credit-history-001",
			Name:       "No credit history",
			Expression: "open_credit_lines == 0 && real_estate_loans == 0",
			Weight:     20,
			Reason:     "No Credit History",
			Enabled:    true,
		},
		{
			ID:         "credit-income-001",
			Name:       "Low income",
			Expression: "monthly_income < income_p10",
			Weight:     10,
			Reason:     "Low Income",
			Enabled:    true,
		},
		{
			ID:         "credit-loan-001",
			Name:       "Large loan request",
			Expression: "loan_amount > loan_p75",
			Weight:     10,
			Reason:     "Large Loan Request",
			Enabled:    true,
		},
	}
}

// DefaultFraudRules returns the fraud rule table.
//
// The amount-above-p99 condition appears twice (20 then an additive 5),
// giving 25 total above the 99th percentile versus 15 in the 95th-99th
// band. That layering is deliberate severity weighting carried over from
// the calibrated rule set, not duplication to remove.
func DefaultFraudRules() []domain.RuleConfig {
	return []domain.RuleConfig{
		{
			ID:         "fraud-amount-shock-001",
			Name:       "Extreme price shock",
			Expression: "amount > amount_p99",
			Weight:     20,
			Reason:     "Extreme Price Shock",
			Enabled:    true,
		},
		{
			ID:         "fraud-amount-high-001",
			Name:       "High value",
			Expression: "amount > amount_p95",
			Weight:     15,
			Reason:     "High Value",
			Enabled:    true,
		},
		{
			ID:         "fraud-amount-extreme-001",
			Name:       "Extreme value",
			Expression: "amount > amount_p99",
			Weight:     5,
			Reason:     "Extreme Value",
			Enabled:    true,
		},
		{
			ID:         "fraud-burst-001",
			Name:       "Burst activity",
			Expression: "txn_count_5min > burst_threshold",
			Weight:     25,
			Reason:     "Burst Activity",
			Enabled:    true,
		},
		{
			ID:         "fraud-velocity-001",
			Name:       "High velocity",
			Expression: "txn_count_1h > velocity_threshold",
			Weight:     15,
			Reason:     "High Velocity",
			Enabled:    true,
		},
		{
			ID:         "fraud-hours-001",
			Name:       "Illiquid hours",
			Expression: "hour == 2 || hour == 3 || hour == 4",
			Weight:     10,
			Reason:     "Illiquid Hours",
			Enabled:    true,
		},
		{
			ID:         "fraud-merchant-001",
			Name:       "High risk merchant",
			Expression: "high_risk_merchant",
			Weight:     15,
			Reason:     "High Risk Merchant",
			Enabled:    true,
		},
		{
			ID:         "fraud-geo-001",
			Name:       "Impossible travel",
			Expression: "geo_inconsistency",
			Weight:     35,
			Reason:     "Impossible Travel",
			Enabled:    true,
		},
	}
}

// DefaultHighRiskMerchants returns the merchant categories treated as high
// risk when the cleaned input carries no precomputed flag.
func DefaultHighRiskMerchants() []string {
	return []string{"Gambling", "Jewelry", "Electronics"}
}

// DefaultScoringConfig returns the full default scoring parameterization.
func DefaultScoringConfig() domain.ScoringConfig {
	return domain.ScoringConfig{
		CreditRules:        DefaultCreditRules(),
		FraudRules:         DefaultFraudRules(),
		HighRiskMerchants:  DefaultHighRiskMerchants(),
		BurstWindowSecs:    300,
		VelocityWindowSecs: 3600,
		BurstFloor:         5,
		VelocityFloor:      10,
	}
}
